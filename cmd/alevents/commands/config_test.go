package commands

import (
	"os"
	"path/filepath"
	"testing"

	"alertlogic-events/internal/store"
	"alertlogic-events/lib/configutil"
	"alertlogic-events/lib/gzrecover"

	"github.com/stretchr/testify/require"
)

func TestExampleConfig(t *testing.T) {
	example, err := configutil.ReadConfig[Config]("../alevents.example.json5")
	require.NoError(t, err)

	require.Equal(t, "https://console.clouddefender.alertlogic.com", example.BaseUrl)
	require.Equal(t, store.Config{File: "alevents.db"}, example.Database)

	_, err = gzrecover.InflaterFromName(example.PartialInflater)
	require.NoError(t, err)
}

func TestLocalOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "alevents.json5")
	require.NoError(t, os.WriteFile(base, []byte(`{customer_id: "56", username: "shared"}`), 0600))
	require.NoError(t, os.WriteFile(configutil.LocalPath(base), []byte(`{username: "analyst", password: "hunter2"}`), 0600))

	merged, err := configutil.ReadConfig[Config](base)
	require.NoError(t, err)
	require.Equal(t, "56", merged.CustomerId)
	require.Equal(t, "analyst", merged.Username)
	require.Equal(t, "hunter2", merged.Password)

	cfg = merged
	require.Equal(t, "56", customerId(""))
	require.Equal(t, "7", customerId("7"))
}
