package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/custody-wallet/internal/keystore"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 15*time.Second, cfg.RPCTimeout)
	require.Equal(t, "wallets.json", cfg.BackupPath)
	require.True(t, cfg.BackupArchive)
	require.Zero(t, cfg.SendInterval)
	require.Nil(t, cfg.ChainIDBig())
	require.True(t, cfg.KDFParams().Equal(keystore.DefaultKDFParams()))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CHAIN_ID", "11155111")
	t.Setenv("KDF", "PBKDF2")
	t.Setenv("PBKDF2_ITERATIONS", "200000")
	t.Setenv("SEND_INTERVAL", "4m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, int64(11155111), cfg.ChainIDBig().Int64())
	require.Equal(t, 4*time.Minute, cfg.SendInterval)
	require.Equal(t, keystore.KDFParams{Name: keystore.KDFPBKDF2, Iterations: 200000}, cfg.KDFParams())

	log, err := cfg.NewLogger()
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"unknown kdf", "KDF", "md5"},
		{"weak scrypt", "SCRYPT_N", "16"},
		{"weak pbkdf2", "PBKDF2_ITERATIONS", "10"},
		{"negative chain id", "CHAIN_ID", "-1"},
		{"negative interval", "SEND_INTERVAL", "-1s"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"not a number", "SCRYPT_R", "eight"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.key == "PBKDF2_ITERATIONS" {
				t.Setenv("KDF", "pbkdf2")
			}
			t.Setenv(c.key, c.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
