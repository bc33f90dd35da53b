package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/intcode/config"
	"github.com/ezrec/intcode/cpu"
)

func writeProgram(t *testing.T, text string) (path string) {
	t.Helper()

	path = filepath.Join(t.TempDir(), "prog.ic")
	require.NoError(t, os.WriteFile(path, []byte(text+"\n"), 0o644))
	return
}

func intcode(t *testing.T, stdin string, args ...string) (out string, err error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&buf)
	err = cmd.ExecuteContext(context.Background())
	out = buf.String()
	return
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	path := writeProgram(t, "3,9,8,9,10,9,4,9,99,-1,8")

	out, err := intcode(t, "", "run", path, "-i", "8")
	assert.NoError(err)
	assert.Equal("1\n", out)

	out, err = intcode(t, "5\n", "run", path, "--stdin")
	assert.NoError(err)
	assert.Equal("0\n", out)
}

func TestRun_PatchDump(t *testing.T) {
	assert := assert.New(t)

	path := writeProgram(t, "1,9,10,3,2,3,11,0,99,30,40,50")

	out, err := intcode(t, "", "run", path, "--dump", "--patch", "9=PROGRAM_LENGTH-2")
	assert.NoError(err)
	assert.Equal("2500,9,10,50,2,3,11,0,99,10,40,50\n", out)
}

func TestRun_Errors(t *testing.T) {
	assert := assert.New(t)

	_, err := intcode(t, "", "run", filepath.Join(t.TempDir(), "missing.ic"))
	assert.ErrorIs(err, os.ErrNotExist)

	path := writeProgram(t, "99")
	_, err = intcode(t, "", "run", path, "--patch", "nonsense")
	assert.ErrorIs(err, config.ErrPatchSyntax)

	_, err = intcode(t, "x\n", "run", path, "--stdin")
	assert.ErrorIs(err, cpu.ErrConfig)

	path = writeProgram(t, "104,1,98")
	out, err := intcode(t, "", "run", path)
	assert.ErrorIs(err, cpu.ErrUnknownOpcode)
	assert.Equal("1\n", out)
}

func TestPipeline(t *testing.T) {
	assert := assert.New(t)

	linear := writeProgram(t, "3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0")
	feedback := writeProgram(t, "3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,27,4,27,1001,28,-1,28,1005,28,6,99,0,0,5")

	out, err := intcode(t, "", "pipeline", linear, "--phases", "4,3,2,1,0")
	assert.NoError(err)
	assert.Equal("43210\n", out)

	out, err = intcode(t, "", "pipeline", feedback, "--phases", "9,8,7,6,5", "--feedback")
	assert.NoError(err)
	assert.Equal("139629729\n", out)

	out, err = intcode(t, "", "pipeline", linear, "--phases", "0,1,2,3,4", "--permute")
	assert.NoError(err)
	assert.Equal("43210 [4 3 2 1 0]\n", out)

	_, err = intcode(t, "", "pipeline", linear)
	assert.ErrorIs(err, config.ErrTopologyPhases)
}

func TestPipeline_SaveLoad(t *testing.T) {
	assert := assert.New(t)

	feedback := writeProgram(t, "3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,27,4,27,1001,28,-1,28,1005,28,6,99,0,0,5")
	save := filepath.Join(t.TempDir(), "amp.toml")

	out, err := intcode(t, "", "pipeline", feedback, "--phases", "9,8,7,6,5", "--feedback", "--save", save)
	assert.NoError(err)
	assert.Empty(out)

	out, err = intcode(t, "", "topology", save)
	assert.NoError(err)
	assert.Equal("139629729\n", out)
}

func TestSearch(t *testing.T) {
	assert := assert.New(t)

	path := writeProgram(t, "1,0,0,0,99")

	out, err := intcode(t, "", "search", path, "--target", "100", "--range", "0:4")
	assert.NoError(err)
	assert.Equal("4\n", out)

	out, err = intcode(t, "", "search", path, "--target", "100", "--range", "0:4", "--answer", "noun*10+verb*2")
	assert.NoError(err)
	assert.Equal("8\n", out)

	_, err = intcode(t, "", "search", path, "--target", "100", "--range", "4:0")
	assert.ErrorIs(err, config.ErrSearchRange)
}

func TestTopology(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "single.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
text = "3,0,4,0,99"
inputs = [ 17 ]
`), 0o644))

	out, err := intcode(t, "", "topology", path)
	assert.NoError(err)
	assert.Equal("17\n", out)
}

func TestRun_SparseDump(t *testing.T) {
	assert := assert.New(t)

	path := writeProgram(t, "21101,1,1,1099511627776,99")

	out, err := intcode(t, "", "run", path, "--dump")
	assert.NoError(err)
	assert.Equal("21101,1,1,1099511627776,99\n1099511627776=2\n", out)
}

func TestRun_Equates(t *testing.T) {
	assert := assert.New(t)

	path := writeProgram(t, "104,0,99")

	for range 8 {
		out, err := intcode(t, "", "run", path, "--equ", "B=A+1", "--equ", "A=2", "--patch", "1=B*PROGRAM_LENGTH")
		assert.NoError(err)
		assert.Equal("9\n", out)
	}

	_, err := intcode(t, "", "run", path, "--equ", "A=B+1", "--equ", "B=2")
	assert.ErrorIs(err, cpu.ErrConfig)
}

func TestTopology_Patch(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "single.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
text = "104,0,99"
patches = [ "1=5" ]
`), 0o644))

	out, err := intcode(t, "", "topology", path)
	assert.NoError(err)
	assert.Equal("5\n", out)

	out, err = intcode(t, "", "topology", path, "--patch", "1=PROGRAM_LENGTH")
	assert.NoError(err)
	assert.Equal("3\n", out)

	_, err = intcode(t, "", "topology", path, "--patch", "bogus")
	assert.ErrorIs(err, config.ErrPatchSyntax)
}
