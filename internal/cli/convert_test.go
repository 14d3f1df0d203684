package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userHi         = `{"payload":{"type":"message","role":"user","content":[{"text":"hi"}]}}`
	assistantHello = `{"payload":{"type":"message","role":"assistant","content":[{"text":"hello"}]}}`
)

func writeSession(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestConvert(t *testing.T) {
	t.Run("single user turn", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "session.jsonl", userHi)
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		code := Run(context.Background(), []string{input}, stdout, stderr)

		require.Equal(t, ExitOK, code, stderr.String())
		assert.Equal(t, "USER:\nhi\n", readFile(t, filepath.Join(dir, "session.txt")))
		assert.Empty(t, stdout.String())
		assert.Empty(t, stderr.String())
	})

	t.Run("user then assistant", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "session.jsonl", userHi, assistantHello)

		code := Run(context.Background(), []string{input}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Equal(t, ExitOK, code)
		assert.Equal(t, "USER:\nhi\n\n---\nASSISTANT:\nhello\n", readFile(t, filepath.Join(dir, "session.txt")))
	})

	t.Run("malformed lines do not change exit status", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "session.jsonl", "{not json", "", userHi)

		code := Run(context.Background(), []string{input}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Equal(t, ExitOK, code)
		assert.Equal(t, "USER:\nhi\n", readFile(t, filepath.Join(dir, "session.txt")))
	})

	t.Run("no turns still succeeds", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "events.jsonl", `{"payload":{"type":"other"}}`)

		code := Run(context.Background(), []string{input}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Equal(t, ExitOK, code)
		assert.Equal(t, "", readFile(t, filepath.Join(dir, "events.txt")))
	})

	t.Run("running twice is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "session.jsonl", userHi, "garbage", assistantHello)
		output := filepath.Join(dir, "session.txt")

		require.Equal(t, ExitOK, Run(context.Background(), []string{input}, &bytes.Buffer{}, &bytes.Buffer{}))
		first := readFile(t, output)
		require.Equal(t, ExitOK, Run(context.Background(), []string{input}, &bytes.Buffer{}, &bytes.Buffer{}))

		assert.Equal(t, first, readFile(t, output))
	})

	t.Run("existing output is truncated", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "session.jsonl", userHi)
		output := filepath.Join(dir, "session.txt")
		require.NoError(t, os.WriteFile(output, []byte("stale content that is longer"), 0644))

		require.Equal(t, ExitOK, Run(context.Background(), []string{input}, &bytes.Buffer{}, &bytes.Buffer{}))

		assert.Equal(t, "USER:\nhi\n", readFile(t, output))
	})
}

func TestConvertErrors(t *testing.T) {
	t.Run("usage error creates no output", func(t *testing.T) {
		dir := t.TempDir()
		a := writeSession(t, dir, "a.jsonl", userHi)
		b := writeSession(t, dir, "b.jsonl", userHi)
		stderr := &bytes.Buffer{}

		code := Run(context.Background(), []string{a, b}, &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitUsage, code)
		assert.Equal(t, UsageLine+"\n", stderr.String())
		assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
		assert.NoFileExists(t, filepath.Join(dir, "b.txt"))
	})

	t.Run("missing input is fatal", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "missing.jsonl")
		stderr := &bytes.Buffer{}

		code := Run(context.Background(), []string{input}, &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr.String(), "error: failed to open input file")
		// the output is opened before the input and stays behind
		assert.FileExists(t, filepath.Join(dir, "missing.txt"))
	})

	t.Run("unwritable output is fatal", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "no-such-dir", "session.jsonl")
		stderr := &bytes.Buffer{}

		code := Run(context.Background(), []string{input}, &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr.String(), "failed to create output file")
	})

	t.Run("watch refuses a file that is its own transcript", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "notes.txt", userHi)
		stderr := &bytes.Buffer{}

		code := Run(context.Background(), []string{"--watch", input}, &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr.String(), ErrWatchSelf.Error())
		// refused before anything was opened
		assert.Equal(t, userHi+"\n", readFile(t, input))
	})

	t.Run("invalid redact pattern", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "session.jsonl", userHi)
		cfgPath := filepath.Join(dir, "format.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  redact_patterns: [\"[bad\"]\n"), 0644))
		stderr := &bytes.Buffer{}

		code := Run(context.Background(), []string{"--config", cfgPath, input}, &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr.String(), "invalid redact pattern")
	})

	t.Run("invalid log level", func(t *testing.T) {
		dir := t.TempDir()
		input := writeSession(t, dir, "session.jsonl", userHi)
		stderr := &bytes.Buffer{}

		code := Run(context.Background(), []string{"--log-level", "loud", input}, &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr.String(), "invalid log level")
	})
}

func TestVerboseDiagnostics(t *testing.T) {
	dir := t.TempDir()
	input := writeSession(t, dir, "session.jsonl",
		"{broken",
		`{"payload":{"type":"message","role":"system","content":[{"text":"x"}]}}`,
		userHi,
	)
	stderr := &bytes.Buffer{}

	code := Run(context.Background(), []string{"--verbose", input}, &bytes.Buffer{}, stderr)

	require.Equal(t, ExitOK, code)
	assert.Contains(t, stderr.String(), "Skipping line")
	assert.Contains(t, stderr.String(), "parse_error")
	assert.Contains(t, stderr.String(), "unsupported_role")
	assert.Equal(t, "USER:\nhi\n", readFile(t, filepath.Join(dir, "session.txt")))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := writeSession(t, dir, "session.jsonl", "{broken", userHi)
	cfgPath := filepath.Join(dir, "format.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"logging": {"level": "debug", "pretty": false, "redact_patterns": ["broken"]}}`), 0644))
	stderr := &bytes.Buffer{}

	code := Run(context.Background(), []string{"--config", cfgPath, input}, &bytes.Buffer{}, stderr)

	require.Equal(t, ExitOK, code)
	assert.Contains(t, stderr.String(), `"reason":"parse_error"`)
	assert.Contains(t, stderr.String(), `"message":"Transcript written"`)
	assert.Contains(t, stderr.String(), `"message":"Configuration loaded"`)
	assert.Contains(t, stderr.String(), `"run_id"`)
	// the preview of "{broken" is masked by the configured pattern
	assert.Contains(t, stderr.String(), `"preview":"{[REDACTED]"`)
}

func TestWatchMode(t *testing.T) {
	dir := t.TempDir()
	input := writeSession(t, dir, "session.jsonl", userHi)
	output := filepath.Join(dir, "session.txt")
	cfgPath := filepath.Join(dir, "format.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"watch": {"debounce_ms": 20}}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- Run(ctx, []string{"--watch", "--config", cfgPath, input}, &bytes.Buffer{}, &bytes.Buffer{})
	}()

	want := "USER:\nhi\n\n---\nASSISTANT:\nhello\n"
	require.Eventually(t, func() bool {
		// Rewrite on every tick so a change made before the watcher started is not lost
		writeSession(t, dir, "session.jsonl", userHi, assistantHello)
		data, err := os.ReadFile(output)
		return err == nil && string(data) == want
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch mode did not stop after cancel")
	}
}
