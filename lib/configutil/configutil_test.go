package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Inflater string `json:"partial_inflater"`
	Database struct {
		File string `json:"file"`
	} `json:"database"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "alevents.local.json5", LocalPath("alevents.json5"))
	require.Equal(t, "/etc/x/cfg.local.json5", LocalPath("/etc/x/cfg.json5"))
	require.Equal(t, "noext.local", LocalPath("noext"))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "alevents.json5")

	writeFile(t, name, `{
		// comments are allowed
		base_url: "https://console.example.com",
		username: "analyst",
		partial_inflater: "auto",
		database: { file: "events.db" },
	}`)
	writeFile(t, LocalPath(name), `{ username: "other", database: { file: "local.db" } }`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "https://console.example.com", cfg.BaseUrl)
	require.Equal(t, "other", cfg.Username)
	require.Equal(t, "auto", cfg.Inflater)
	require.Equal(t, "local.db", cfg.Database.File)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "alevents.json5")
	writeFile(t, LocalPath(name), `{ username: "local-only" }`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "local-only", cfg.Username)
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.json5")
	writeFile(t, name, `{ username: `)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}
