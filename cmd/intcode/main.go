// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Command intcode runs Intcode programs, alone or wired into topologies.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezrec/intcode/config"
	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/internal"
	"github.com/ezrec/intcode/topology"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Fatalf("%v: %v", rootCmd.Name(), err)
	}
}

func newRootCmd() (rootCmd *cobra.Command) {
	rootCmd = &cobra.Command{
		Use:           "intcode",
		Short:         "Intcode virtual machine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose mode")
	rootCmd.PersistentFlags().StringArrayP("patch", "p", nil, "Patch ADDR=EXPR applied before the run")
	rootCmd.PersistentFlags().StringToString("equ", nil, "Equate NAME=EXPR visible to patches, defined in name order")

	rootCmd.AddCommand(newRunCmd(), newPipelineCmd(), newSearchCmd(), newTopologyCmd())

	return
}

// common reads the program and the flags shared by every subcommand.
func common(cmd *cobra.Command, path string, kind config.Kind) (topo config.Topology, err error) {
	prog, err := cpu.ReadProgram(path)
	if err != nil {
		return
	}

	patches, err := flagPatches(cmd, prog)
	if err != nil {
		return
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	topo = config.Topology{
		Kind:    kind,
		Program: prog,
		Patches: patches,
		Timeout: config.DEFAULT_TIMEOUT,
		Verbose: verbose,
	}

	return
}

// flagPatches evaluates the --patch flags. Equates from --equ are defined
// in name order, each one seeing those before it.
func flagPatches(cmd *cobra.Command, prog cpu.Program) (patches []cpu.Patch, err error) {
	flags := cmd.Flags()
	texts, _ := flags.GetStringArray("patch")
	equs, _ := flags.GetStringToString("equ")

	equ := config.ProgramEquates(prog)
	for _, name := range slices.Sorted(maps.Keys(equs)) {
		var value int64
		value, err = config.Evaluate(equs[name], equ)
		if err != nil {
			return
		}
		equ[name] = value
	}

	patches, err = config.ParsePatches(texts, equ)
	return
}

// readInputs reads one integer per line.
func readInputs(r io.Reader) (values []int64, err error) {
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if len(text) == 0 {
			continue
		}
		var value int64
		value, err = strconv.ParseInt(text, 10, 64)
		if err != nil {
			err = fmt.Errorf("line %d: %w", line, cpu.ErrParseNumber{Index: line - 1, Token: text})
			return
		}
		values = append(values, value)
	}

	err = scanner.Err()
	return
}

// execute runs a topology, printing its results.
func execute(ctx context.Context, out io.Writer, topo config.Topology, dump bool) (err error) {
	switch topo.Kind {
	case config.KIND_SINGLE:
		var result topology.Result
		result, err = topology.Run(ctx, topology.Single{
			Verbose: topo.Verbose,
			Program: topo.Program,
			Patches: topo.Patches,
			Inputs:  topo.Inputs,
			Timeout: topo.Timeout,
		})
		if len(result.Outputs) > 0 {
			for _, value := range result.Outputs[0] {
				fmt.Fprintln(out, value)
			}
		}
		if dump && len(result.Memory) > 0 {
			mem := result.Memory[0]
			words := mem.Dump()
			fmt.Fprintln(out, cpu.Program(words))
			for addr, value := range mem.Cells(int64(len(words))) {
				fmt.Fprintf(out, "%d=%d\n", addr, value)
			}
		}
	case config.KIND_PIPELINE:
		p := topology.Pipeline{
			Verbose:  topo.Verbose,
			Program:  topo.Program,
			Patches:  topo.Patches,
			Phases:   topo.Phases,
			Seed:     topo.Seed,
			Feedback: topo.Feedback,
			Capacity: topo.Capacity,
			Timeout:  topo.Timeout,
		}
		if topo.Permute {
			var best int64
			var order []int64
			best, order, err = topology.MaxSignal(ctx, p, topo.Phases)
			if err != nil {
				return
			}
			fmt.Fprintf(out, "%d %v\n", best, order)
			return
		}
		var result topology.Result
		result, err = p.Run(ctx)
		if err != nil {
			return
		}
		fmt.Fprintln(out, result.Signal)
	case config.KIND_SEARCH:
		s := topology.Search{
			Verbose: topo.Verbose,
			Program: topo.Program,
			Patches: topo.Patches,
			Low:     topo.Search.Low,
			High:    topo.Search.High,
			Target:  topo.Search.Target,
			Timeout: topo.Timeout,
		}
		var noun, verb int64
		noun, verb, err = s.Run(ctx)
		if err != nil {
			return
		}
		var answer int64
		answer, err = config.Evaluate(topo.Search.Answer, config.Equates{"noun": noun, "verb": verb})
		if err != nil {
			return
		}
		fmt.Fprintln(out, answer)
	default:
		err = fmt.Errorf("%w: %q", config.ErrTopologyKind, topo.Kind)
	}

	return
}

func newRunCmd() (cmd *cobra.Command) {
	var inputs []int64
	var stdin bool
	var dump bool

	cmd = &cobra.Command{
		Use:   "run PROGRAM",
		Short: "Run a single program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			topo, err := common(cmd, args[0], config.KIND_SINGLE)
			if err != nil {
				return
			}

			var lines []int64
			if stdin {
				lines, err = readInputs(cmd.InOrStdin())
				if err != nil {
					return
				}
			}
			topo.Inputs = slices.Collect(internal.IterSeqConcat(slices.Values(inputs), slices.Values(lines)))

			return execute(cmd.Context(), cmd.OutOrStdout(), topo, dump)
		},
	}

	cmd.Flags().Int64SliceVarP(&inputs, "input", "i", nil, "Comma separated input values")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read further input values from stdin, one per line")
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the final memory image")

	return
}

func newPipelineCmd() (cmd *cobra.Command) {
	var phases []int64
	var seed int64
	var feedback bool
	var permute bool
	var capacity int
	var timeout = config.DEFAULT_TIMEOUT
	var save string

	cmd = &cobra.Command{
		Use:   "pipeline PROGRAM",
		Short: "Run a chain or ring of processors, one per phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			topo, err := common(cmd, args[0], config.KIND_PIPELINE)
			if err != nil {
				return
			}
			if len(phases) == 0 {
				err = config.ErrTopologyPhases
				return
			}

			topo.Phases = phases
			topo.Seed = seed
			topo.Feedback = feedback
			topo.Permute = permute
			topo.Capacity = capacity
			topo.Timeout = timeout

			if len(save) != 0 {
				var path string
				path, err = filepath.Abs(args[0])
				if err != nil {
					return
				}
				return config.Save(save, path, topo)
			}

			return execute(cmd.Context(), cmd.OutOrStdout(), topo, false)
		},
	}

	cmd.Flags().Int64SliceVar(&phases, "phases", nil, "Phase of each instance")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Value sent once to the first instance")
	cmd.Flags().BoolVar(&feedback, "feedback", false, "Close the pipeline into a ring")
	cmd.Flags().BoolVar(&permute, "permute", false, "Find the phase order with the highest signal")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Conduit bound, 0 for unbounded")
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "Deadlock watchdog period, 0 to disable")
	cmd.Flags().StringVar(&save, "save", "", "Write the topology to a TOML file instead of running it")

	return
}

func newSearchCmd() (cmd *cobra.Command) {
	var target int64
	var span string
	var answer string

	cmd = &cobra.Command{
		Use:   "search PROGRAM",
		Short: "Find the noun and verb giving a target value at address 0",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			topo, err := common(cmd, args[0], config.KIND_SEARCH)
			if err != nil {
				return
			}

			low, high, ok := strings.Cut(span, ":")
			if !ok {
				err = fmt.Errorf("%w: %q", config.ErrSearchRange, span)
				return
			}
			topo.Search.Low, err = config.Evaluate(low, nil)
			if err != nil {
				return
			}
			topo.Search.High, err = config.Evaluate(high, nil)
			if err != nil {
				return
			}
			if topo.Search.Low > topo.Search.High {
				err = fmt.Errorf("%w: %q", config.ErrSearchRange, span)
				return
			}
			topo.Search.Target = target
			topo.Search.Answer = answer

			return execute(cmd.Context(), cmd.OutOrStdout(), topo, false)
		},
	}

	cmd.Flags().Int64Var(&target, "target", 0, "Required value at address 0")
	cmd.Flags().StringVar(&span, "range", fmt.Sprintf("%d:%d", config.DEFAULT_LOW, config.DEFAULT_HIGH), "Candidate range LOW:HIGH")
	cmd.Flags().StringVar(&answer, "answer", config.DEFAULT_ANSWER, "Expression of noun and verb to print")
	_ = cmd.MarkFlagRequired("target")

	return
}

func newTopologyCmd() (cmd *cobra.Command) {
	var dump bool

	cmd = &cobra.Command{
		Use:   "topology FILE.toml",
		Short: "Run the topology described in a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			topo, err := config.Load(args[0])
			if err != nil {
				return
			}

			patches, err := flagPatches(cmd, topo.Program)
			if err != nil {
				return
			}
			topo.Patches = append(topo.Patches, patches...)

			verbose, _ := cmd.Flags().GetBool("verbose")
			topo.Verbose = topo.Verbose || verbose

			return execute(cmd.Context(), cmd.OutOrStdout(), topo, dump)
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "Print the final memory image of a single run")

	return
}
