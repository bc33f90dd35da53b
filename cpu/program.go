package cpu

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
)

// Program is the initial memory image of a processor.
type Program []int64

// Patch overrides a single address after load and before the run.
type Patch struct {
	Address int64
	Value   int64
}

// ParseProgram reads a line of comma separated base-10 integers.
// Surrounding whitespace, including a trailing newline, is ignored.
func ParseProgram(r io.Reader) (prog Program, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	text := strings.TrimSpace(string(data))
	if len(text) == 0 {
		err = errors.Join(ErrConfig, ErrProgramEmpty)
		return
	}

	for n, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		var word int64
		word, err = strconv.ParseInt(token, 10, 64)
		if err != nil {
			err = ErrParseNumber{Index: n, Token: token}
			prog = nil
			return
		}
		prog = append(prog, word)
	}

	return
}

// ReadProgram loads a program from a file.
func ReadProgram(path string) (prog Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	return ParseProgram(inf)
}

// String returns the program in its text format.
func (prog Program) String() string {
	words := make([]string, len(prog))
	for n, word := range prog {
		words[n] = strconv.FormatInt(word, 10)
	}
	return strings.Join(words, ",")
}

// Memory loads the program into a fresh memory store and applies the patches.
func (prog Program) Memory(patches ...Patch) (mem *Memory, err error) {
	mem = LoadMemory(prog)
	for _, patch := range patches {
		err = mem.Write(patch.Address, patch.Value)
		if err != nil {
			mem = nil
			return
		}
	}

	return
}
