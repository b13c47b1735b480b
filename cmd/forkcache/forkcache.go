package main

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/config"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version string

const (
	configF     = "config"
	cacheDirF   = config.CacheDirKey
	logLevelF   = config.LogLevelKey
	timeoutF    = config.TimeoutKey
	maxRetriesF = config.MaxRetriesKey
	workersF    = config.PrefetchWorkersKey

	defaultConfig     = ""
	defaultCacheDir   = ""
	defaultLogLevel   = utils.INFO
	defaultMaxRetries = 3
	defaultWorkers    = 8

	configUsage     = "The yaml configuration file."
	cacheDirUsage   = "Location of the fork cache database."
	logLevelUsage   = "Options: debug, info, warn, error."
	timeoutUsage    = "Maximum duration of a single request to a fork node."
	maxRetriesUsage = "Number of times a failed request to a fork node is retried."
	workersUsage    = "Number of concurrent requests used to warm a fork."
)

var errNoCacheDir = fmt.Errorf("--%v cannot be empty", cacheDirF)

func NewCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "forkcache",
		Short:        "Inspect and maintain the on-disk cache of forked Starknet state.",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(configF, defaultConfig, configUsage)
	rootCmd.PersistentFlags().String(cacheDirF, defaultCacheDir, cacheDirUsage)
	rootCmd.PersistentFlags().Var(utils.NewLogLevel(defaultLogLevel), logLevelF, logLevelUsage)
	rootCmd.PersistentFlags().Duration(timeoutF, forking.DefaultTimeout, timeoutUsage)
	rootCmd.PersistentFlags().Int(maxRetriesF, defaultMaxRetries, maxRetriesUsage)

	rootCmd.AddCommand(ListCmd(), ClearCmd(), WarmCmd())
	return rootCmd
}

// loadConfig merges the flags of cmd with the configuration file they name
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, err := cmd.Flags().GetString(configF)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	if err = v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v, file)
}

// openStore loads the configuration and opens the cache it points to
func openStore(cmd *cobra.Command) (*config.Config, *forking.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.CacheDir == "" {
		return nil, nil, errNoCacheDir
	}

	store, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func closeStore(store *forking.Store, err *error) {
	*err = errors.Join(*err, store.Close())
}
