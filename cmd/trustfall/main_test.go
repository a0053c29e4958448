package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	defer func() { os.Stdout = old }()

	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() { io.Copy(&buf, r); close(done) }()

	err := fn()
	w.Close()
	<-done
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_UnknownCommand(t *testing.T) {
	require.Error(t, run([]string{"bogus"}))
	require.Error(t, run(nil))
}

func TestRun_Help(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return run([]string{"help", "query"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "-query <file>")
}

func TestRun_Query(t *testing.T) {
	dir := t.TempDir()
	queryFile := writeFile(t, dir, "q.graphql", `
{
    Number(min: 8, max: 11) {
        value @output
        vowelsInName @filter(op: "contains", value: ["$vowel"])
    }
}`)
	argsFile := writeFile(t, dir, "args.yaml", "vowel: i\n")

	out, err := captureStdout(t, func() error {
		return run([]string{"query", "-query", queryFile, "-args", argsFile})
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"value": 8}`, lines[0])
	require.JSONEq(t, `{"value": 9}`, lines[1])
}

func TestRun_QueryMaxRows(t *testing.T) {
	dir := t.TempDir()
	queryFile := writeFile(t, dir, "q.graphql", `
{
    Number(min: 0, max: 100) {
        value @output
    }
}`)
	out, err := captureStdout(t, func() error {
		return run([]string{"query", "-query", queryFile, "-max", "3"})
	})
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestRun_CompileIR(t *testing.T) {
	dir := t.TempDir()
	queryFile := writeFile(t, dir, "q.graphql", `
{
    Two {
        value @output
    }
}`)
	out, err := captureStdout(t, func() error {
		return run([]string{"compile-ir", "-query", queryFile})
	})
	require.NoError(t, err)
	require.Contains(t, out, `"rootName": "Two"`)
	require.Contains(t, out, `"typeName": "Prime"`)
}

func TestRun_Trace(t *testing.T) {
	dir := t.TempDir()
	queryFile := writeFile(t, dir, "q.graphql", `
{
    Two {
        value @output
    }
}`)
	out, err := captureStdout(t, func() error {
		return run([]string{"trace", "-query", queryFile})
	})
	require.NoError(t, err)
	require.Contains(t, out, `"ResolveStartingVertices"`)
	require.Contains(t, out, `"ProduceQueryResult"`)
}

func TestRun_CompileError(t *testing.T) {
	dir := t.TempDir()
	queryFile := writeFile(t, dir, "q.graphql", `{ Number(max: 1) { bogus @output } }`)
	_, err := captureStdout(t, func() error {
		return run([]string{"query", "-query", queryFile})
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}
