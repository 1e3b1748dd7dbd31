package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updown.yaml")
	data := []byte(`
listen_addr: ":9999"
market:
  admins: [boss]
  asset_denom: ufoo
  accepted_bet_denoms: [ubar, ubaz]
  treasury_addr: vault
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Equal(t, []string{"boss"}, cfg.Market.Admins)
	require.Equal(t, "ufoo", cfg.Market.AssetDenom)
	require.Equal(t, []string{"ubar", "ubaz"}, cfg.Market.AcceptedBetDenoms)
	// Untouched fields keep their defaults.
	require.Equal(t, "./data", cfg.DataDir)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updown.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: ':9999'\n"), 0644))

	t.Setenv("UPDOWN_LISTEN_ADDR", ":7777")
	t.Setenv("UPDOWN_ORACLE_URL", "http://oracle.local/rate")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7777", cfg.ListenAddr)
	require.Equal(t, "http://oracle.local/rate", cfg.Oracle.URL)
}

func TestValidateRejectsEmptyAdmins(t *testing.T) {
	cfg := Default()
	cfg.Market.Admins = nil
	require.Error(t, cfg.Validate())
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updown.yaml")
	orig := Default()
	orig.ListenAddr = ":6001"
	require.NoError(t, Save(orig, path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, orig, cfg)
}
