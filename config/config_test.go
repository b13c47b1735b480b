package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NethermindEth/cheatnet/cheatnet"
	"github.com/NethermindEth/cheatnet/config"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cheatnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, &config.Config{
		Timeout:         forking.DefaultTimeout,
		MaxRetries:      3,
		LogLevel:        utils.INFO,
		InitialGas:      cheatnet.DefaultInitialGas,
		MaxSteps:        vm.DefaultMaxSteps,
		PrefetchWorkers: 8,
	}, cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `cache-dir: /tmp/forks
timeout: 5s
max-retries: 1
log-level: debug
initial-gas: 5000
max-steps: 100
forks:
  - name: pinned
    url: http://localhost:5050/rpc
    block: 100
    prefetch:
      - "0x1"
      - "0x2"
  - name: tip
    url: https://starknet.example.org
    block: latest
  - name: by-hash
    url: https://starknet.example.org
    block: "0xabc"
  - name: implicit
    url: https://starknet.example.org
`)

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/forks", cfg.CacheDir)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, utils.DEBUG, cfg.LogLevel)
	assert.Equal(t, uint64(5000), cfg.InitialGas)
	assert.Equal(t, uint64(100), cfg.MaxSteps)
	require.Len(t, cfg.Forks, 4)

	tests := map[string]starknet.BlockID{
		"pinned":   starknet.BlockNumber(100),
		"tip":      starknet.LatestBlock(),
		"by-hash":  starknet.BlockHash(felt.NewUnsafeFromString("0xabc")),
		"implicit": starknet.LatestBlock(),
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			fork, found := cfg.Fork(name)
			require.True(t, found)
			assert.Equal(t, want, fork.BlockID())
		})
	}

	pinned, _ := cfg.Fork("pinned")
	assert.Equal(t, []felt.Felt{felt.FromUint64(1), felt.FromUint64(2)}, pinned.Prefetch)

	_, found := cfg.Fork("missing")
	assert.False(t, found)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `max-retries: 1
cache-dir: /from/file
log-level: error
`)

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("CHEATNET_MAX_RETRIES", "7")
		t.Setenv("CHEATNET_LOG_LEVEL", "warn")

		cfg, err := config.Load(viper.New(), path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.MaxRetries)
		assert.Equal(t, utils.WARN, cfg.LogLevel)
		assert.Equal(t, "/from/file", cfg.CacheDir)
	})

	t.Run("flag overrides file", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String(config.CacheDirKey, "", "")
		flags.Int(config.MaxRetriesKey, 0, "")
		require.NoError(t, flags.Parse([]string{"--cache-dir", "/from/flag"}))

		v := viper.New()
		require.NoError(t, v.BindPFlags(flags))

		cfg, err := config.Load(v, path)
		require.NoError(t, err)
		assert.Equal(t, "/from/flag", cfg.CacheDir)
		// unchanged flags do not shadow the file
		assert.Equal(t, 1, cfg.MaxRetries)
	})
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"duplicate fork names": `forks:
  - {name: a, url: "http://localhost:5050"}
  - {name: a, url: "http://localhost:5051"}
`,
		"malformed url":       "forks: [{name: a, url: not-a-url}]",
		"missing fork name":   `forks: [{url: "http://localhost:5050"}]`,
		"malformed block id":  `forks: [{name: a, url: "http://localhost:5050", block: pending-ish}]`,
		"negative block":      `forks: [{name: a, url: "http://localhost:5050", block: -1}]`,
		"malformed prefetch":  `forks: [{name: a, url: "http://localhost:5050", prefetch: ["0xzz"]}]`,
		"zero step limit":     "max-steps: 0",
		"zero timeout":        "timeout: 0s",
		"unknown log level":   "log-level: loud",
		"no prefetch workers": "prefetch-workers: 0",
	}

	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(viper.New(), writeConfig(t, contents))
			require.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestOpenStore(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		cfg := &config.Config{}
		store, err := cfg.OpenStore()
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})

	t.Run("on disk", func(t *testing.T) {
		dir := t.TempDir()
		cfg := &config.Config{CacheDir: dir}

		store, err := cfg.OpenStore()
		require.NoError(t, err)
		key := forking.Key{Fork: "node", Block: "1", Kind: forking.KindNonce}
		require.NoError(t, store.Put(key, felt.One))
		require.NoError(t, store.Close())

		store, err = cfg.OpenStore()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, store.Close()) })

		var got felt.Felt
		found, err := store.Get(key, &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, felt.One, got)
	})
}
