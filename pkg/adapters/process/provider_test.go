package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/rapport/pkg/adapters/process"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, script string) *process.Provider {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	p, err := process.New("sh", []string{"-c", script})
	require.NoError(t, err)
	return p
}

func TestProvider_PlainText(t *testing.T) {
	p := shell(t, `echo "model=$RAPPORT_GEN_MODEL tokens=$RAPPORT_GEN_MAX_TOKENS"`)

	resp, err := p.Generate(context.Background(), ports.GenerationRequest{Model: "tiny", MaxTokens: 42})
	require.NoError(t, err)
	assert.Equal(t, "model=tiny tokens=42", resp.Text)
	assert.Equal(t, "tiny", resp.Model)
}

func TestProvider_ReadsRequestFromStdin(t *testing.T) {
	p := shell(t, `cat`)

	resp, err := p.Generate(context.Background(), ports.GenerationRequest{Input: "hello"})
	require.NoError(t, err)
	// The request has no "text" field, so the echoed JSON is returned verbatim.
	assert.Contains(t, resp.Text, `"input":"hello"`)
}

func TestProvider_JSONEnvelope(t *testing.T) {
	p := shell(t, `echo '{"text":"hi there","model":"local-7b","usage":{"total_tokens":9}}'`)

	resp, err := p.Generate(context.Background(), ports.GenerationRequest{Model: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text)
	assert.Equal(t, "local-7b", resp.Model)
	assert.Equal(t, 9, resp.Usage.TotalTokens)
}

func TestProvider_Errors(t *testing.T) {
	t.Run("empty output", func(t *testing.T) {
		_, err := shell(t, `true`).Generate(context.Background(), ports.GenerationRequest{})
		assert.ErrorIs(t, err, process.ErrEmptyResponse)
	})

	t.Run("non-zero exit carries stderr", func(t *testing.T) {
		_, err := shell(t, `echo "model not loaded" >&2; exit 3`).Generate(context.Background(), ports.GenerationRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("context deadline kills the command", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := shell(t, `sleep 5`).Generate(ctx, ports.GenerationRequest{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := process.New(" ", nil)
		assert.ErrorIs(t, err, process.ErrNoCommand)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "gen.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("command: python3\nargs: [gen.py, --fast]\nenv:\n  MODEL_PATH: ./m\n"), 0o644))
	cfg, err := process.LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "python3", cfg.Command)
	assert.Equal(t, []string{"gen.py", "--fast"}, cfg.Args)
	assert.Equal(t, "./m", cfg.Environment["MODEL_PATH"])

	jsonPath := filepath.Join(dir, "gen.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"args": ["x"]}`), 0o644))
	_, err = process.LoadConfig(jsonPath)
	assert.ErrorIs(t, err, process.ErrNoCommand)

	_, err = process.LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFromConfig_Env(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	p, err := process.FromConfig(process.Config{
		Command:     "sh",
		Args:        []string{"-c", `printf '%s' "$GREETING"`},
		Environment: map[string]string{"GREETING": "hola"},
	})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), ports.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text)
}

func TestParseCommandLine(t *testing.T) {
	cfg, err := process.ParseCommandLine("  llama-run  --model tiny ")
	require.NoError(t, err)
	assert.Equal(t, "llama-run", cfg.Command)
	assert.Equal(t, []string{"--model", "tiny"}, cfg.Args)

	_, err = process.ParseCommandLine("   ")
	assert.ErrorIs(t, err, process.ErrNoCommand)
}
