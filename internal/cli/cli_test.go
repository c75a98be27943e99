package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/tablecast/internal/cli"
	"github.com/aretw0/tablecast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tablecast.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	v := cli.NewViper()
	v.Set(cli.KeyConfig, path)
	v.Set(cli.KeyLogFormat, "json")
	v.Set(cli.KeyMaxSessions, 5)
	v.Set(cli.KeyDriver, "chromedp")

	cfg, err := cli.LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5, cfg.Limiter.MaxSessions)
	for _, s := range cfg.Strategies {
		if s.Type == config.TypeBrowser {
			assert.Equal(t, "chromedp", s.Driver)
		}
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("TABLECAST_LOG_LEVEL", "debug")
	t.Setenv("TABLECAST_LIMITER_BACKEND", "bogus")

	_, err := cli.LoadConfig(cli.NewViper())
	assert.ErrorContains(t, err, "unknown backend")

	t.Setenv("TABLECAST_LIMITER_BACKEND", "memory")
	cfg, err := cli.LoadConfig(cli.NewViper())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestReadInput(t *testing.T) {
	text, err := cli.ReadInput("-", strings.NewReader("A - Red\nAlice 1500"))
	require.NoError(t, err)
	assert.Equal(t, "A - Red\nAlice 1500", text)

	path := filepath.Join(t.TempDir(), "table.txt")
	require.NoError(t, os.WriteFile(path, []byte("B - Blue"), 0o600))
	text, err = cli.ReadInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "B - Blue", text)
}

func TestWriteImage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, cli.WriteImage(path, []byte("png"), os.Stdout))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)
}

func TestWriteImage_NonTerminalStdout(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, cli.WriteImage("-", []byte("png"), f))
	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)
}
