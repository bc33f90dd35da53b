package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/intcode/cpu"
)

// Kind selects the shape of a topology.
type Kind string

const (
	KIND_SINGLE   = Kind("single")   // One processor, prefilled input.
	KIND_PIPELINE = Kind("pipeline") // Chain or feedback ring of processors.
	KIND_SEARCH   = Kind("search")   // Noun/verb patch search.
)

const (
	DEFAULT_TIMEOUT = 5 * time.Second // Default deadlock watchdog period.
	DEFAULT_LOW     = 0               // Default first noun/verb candidate.
	DEFAULT_HIGH    = 99              // Default last noun/verb candidate.
	DEFAULT_ANSWER  = "100*noun+verb" // Default search answer expression.
)

// Search describes a patch search.
type Search struct {
	Target int64  // Required value at address 0 after the run.
	Low    int64  // First candidate for nouns and verbs.
	High   int64  // Last candidate for nouns and verbs.
	Answer string // Expression of 'noun' and 'verb' reported on success.
}

// Topology is a fully resolved topology description.
type Topology struct {
	Kind     Kind
	Program  cpu.Program
	Patches  []cpu.Patch
	Inputs   []int64
	Phases   []int64
	Seed     int64
	Feedback bool
	Permute  bool
	Capacity int
	Timeout  time.Duration
	Verbose  bool
	Search   Search
}

type fileSearch struct {
	Target int64  `toml:"target"`
	Low    int64  `toml:"low"`
	High   int64  `toml:"high"`
	Answer string `toml:"answer"`
}

type fileConfig struct {
	Kind     string           `toml:"kind"`
	Program  string           `toml:"program,omitempty"`
	Text     string           `toml:"text,omitempty"`
	Patches  []string         `toml:"patches,omitempty"`
	Equates  map[string]int64 `toml:"equates,omitempty"`
	Inputs   []int64          `toml:"inputs,omitempty"`
	Phases   []int64          `toml:"phases,omitempty"`
	Seed     int64            `toml:"seed"`
	Feedback bool             `toml:"feedback"`
	Permute  bool             `toml:"permute"`
	Capacity int              `toml:"capacity"`
	Timeout  string           `toml:"timeout"`
	Verbose  bool             `toml:"verbose"`
	Search   fileSearch       `toml:"search,omitempty"`
}

// Load reads a TOML topology file. A relative program path is resolved
// against the directory of the file.
func Load(path string) (topo Topology, err error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
		return
	}

	topo, err = resolve(raw, meta, filepath.Dir(path))
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
	}
	return
}

// Parse decodes TOML topology text. Relative program paths are resolved
// against dir.
func Parse(text string, dir string) (topo Topology, err error) {
	var raw fileConfig
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return
	}

	return resolve(raw, meta, dir)
}

func resolve(raw fileConfig, meta toml.MetaData, dir string) (topo Topology, err error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.Print(f("config: ignoring unknown keys %v", undecoded))
	}

	topo.Kind = KIND_SINGLE
	if meta.IsDefined("kind") {
		topo.Kind = Kind(strings.TrimSpace(raw.Kind))
	}
	switch topo.Kind {
	case KIND_SINGLE, KIND_PIPELINE, KIND_SEARCH:
	default:
		err = fmt.Errorf("%w: '%v'", ErrTopologyKind, raw.Kind)
		return
	}

	switch {
	case meta.IsDefined("program") && !meta.IsDefined("text"):
		path := raw.Program
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		topo.Program, err = cpu.ReadProgram(path)
	case meta.IsDefined("text") && !meta.IsDefined("program"):
		topo.Program, err = cpu.ParseProgram(strings.NewReader(raw.Text))
	default:
		err = ErrTopologyProgram
	}
	if err != nil {
		return
	}

	equ := ProgramEquates(topo.Program).With(raw.Equates)
	topo.Patches, err = ParsePatches(raw.Patches, equ)
	if err != nil {
		return
	}

	topo.Inputs = raw.Inputs
	topo.Phases = raw.Phases
	topo.Seed = raw.Seed
	topo.Feedback = raw.Feedback
	topo.Permute = raw.Permute
	topo.Capacity = max(raw.Capacity, 0)
	topo.Verbose = raw.Verbose

	topo.Timeout = DEFAULT_TIMEOUT
	if meta.IsDefined("timeout") {
		topo.Timeout, err = time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			err = fmt.Errorf("parse timeout: %w", err)
			return
		}
	}

	if topo.Kind == KIND_PIPELINE && len(topo.Phases) == 0 {
		err = ErrTopologyPhases
		return
	}

	topo.Search = Search{
		Target: raw.Search.Target,
		Low:    DEFAULT_LOW,
		High:   DEFAULT_HIGH,
		Answer: DEFAULT_ANSWER,
	}
	if meta.IsDefined("search", "low") {
		topo.Search.Low = raw.Search.Low
	}
	if meta.IsDefined("search", "high") {
		topo.Search.High = raw.Search.High
	}
	if meta.IsDefined("search", "answer") {
		topo.Search.Answer = raw.Search.Answer
	}
	if topo.Kind == KIND_SEARCH {
		if !meta.IsDefined("search", "target") || topo.Search.Low > topo.Search.High {
			err = ErrSearchRange
			return
		}
	}

	return
}

// Save writes a topology description. Used to produce a starting file.
// The program is referenced by path, or written inline when path is empty.
func Save(path string, program string, topo Topology) (err error) {
	raw := fileConfig{
		Kind:     string(topo.Kind),
		Program:  program,
		Inputs:   topo.Inputs,
		Phases:   topo.Phases,
		Seed:     topo.Seed,
		Feedback: topo.Feedback,
		Permute:  topo.Permute,
		Capacity: topo.Capacity,
		Timeout:  topo.Timeout.String(),
		Verbose:  topo.Verbose,
	}
	if len(program) == 0 {
		raw.Text = topo.Program.String()
	}
	for _, patch := range topo.Patches {
		raw.Patches = append(raw.Patches, fmt.Sprintf("%d=%d", patch.Address, patch.Value))
	}
	if topo.Kind == KIND_SEARCH {
		raw.Search = fileSearch(topo.Search)
	}

	ouf, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		cerr := ouf.Close()
		if err == nil {
			err = cerr
		}
	}()

	err = toml.NewEncoder(ouf).Encode(raw)
	return
}
