// Package config loads the settings shared by the fork cache tooling and
// forked test runtimes.
package config

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/NethermindEth/cheatnet/cheatnet"
	"github.com/NethermindEth/cheatnet/clients/starknetrpc"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/NethermindEth/cheatnet/vm"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix = "CHEATNET"

const (
	CacheDirKey        = "cache-dir"
	TimeoutKey         = "timeout"
	MaxRetriesKey      = "max-retries"
	LogLevelKey        = "log-level"
	InitialGasKey      = "initial-gas"
	MaxStepsKey        = "max-steps"
	PrefetchWorkersKey = "prefetch-workers"
)

const (
	defaultMaxRetries      = 3
	defaultPrefetchWorkers = 8
)

// Fork names a node and the block a test forks from.
type Fork struct {
	Name string `mapstructure:"name" validate:"required"`
	URL  string `mapstructure:"url" validate:"required,url"`
	// Block defaults to latest when unset
	Block *starknet.BlockID `mapstructure:"block"`
	// Prefetch lists contracts loaded into the cache by forkcache warm
	Prefetch []felt.Felt `mapstructure:"prefetch"`
}

func (f *Fork) BlockID() starknet.BlockID {
	if f.Block == nil {
		return starknet.LatestBlock()
	}
	return *f.Block
}

type Config struct {
	Forks           []Fork         `mapstructure:"forks" validate:"unique=Name,dive"`
	CacheDir        string         `mapstructure:"cache-dir"`
	Timeout         time.Duration  `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries      int            `mapstructure:"max-retries" validate:"min=0"`
	LogLevel        utils.LogLevel `mapstructure:"log-level"`
	InitialGas      uint64         `mapstructure:"initial-gas" validate:"min=1"`
	MaxSteps        uint64         `mapstructure:"max-steps" validate:"min=1"`
	PrefetchWorkers int            `mapstructure:"prefetch-workers" validate:"min=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(CacheDirKey, "")
	v.SetDefault(TimeoutKey, forking.DefaultTimeout)
	v.SetDefault(MaxRetriesKey, defaultMaxRetries)
	v.SetDefault(LogLevelKey, utils.INFO.String())
	v.SetDefault(InitialGasKey, cheatnet.DefaultInitialGas)
	v.SetDefault(MaxStepsKey, vm.DefaultMaxSteps)
	v.SetDefault(PrefetchWorkersKey, defaultPrefetchWorkers)
}

// Load reads file (when not empty) into v and decodes the result. Values
// already bound to v, such as command line flags, take precedence over the
// file, and CHEATNET_ prefixed environment variables over both the file and
// the defaults.
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Fork looks a fork target up by name
func (c *Config) Fork(name string) (*Fork, bool) {
	for i := range c.Forks {
		if c.Forks[i].Name == name {
			return &c.Forks[i], true
		}
	}
	return nil, false
}

func (c *Config) Logger() (*utils.ZapLogger, error) {
	return utils.NewZapLogger(c.LogLevel, false)
}

// OpenStore opens the persistent cache, or an in-memory one when no
// directory is configured.
func (c *Config) OpenStore() (*forking.Store, error) {
	if c.CacheDir == "" {
		return forking.NewMemStore()
	}
	return forking.OpenStore(c.CacheDir)
}

// Dial connects to the node of fork with the configured retry policy
func (c *Config) Dial(ctx context.Context, fork *Fork, log utils.SimpleLogger) (*starknetrpc.Client, error) {
	client, err := starknetrpc.Dial(ctx, fork.URL)
	if err != nil {
		return nil, fmt.Errorf("dial fork %s: %w", fork.Name, err)
	}
	return client.
		WithTimeout(c.Timeout).
		WithMaxRetries(c.MaxRetries).
		WithLogger(log), nil
}

// Registry returns a fork registry backed by store
func (c *Config) Registry(store *forking.Store, log utils.SimpleLogger) *forking.Registry {
	return forking.NewRegistry().
		WithStore(store).
		WithLogger(log).
		WithTimeout(c.Timeout)
}

// Runtime builds a runtime forked from cache with the configured gas and
// step limits.
func (c *Config) Runtime(ctx context.Context, cache *forking.Cache, log utils.SimpleLogger) (*cheatnet.Runtime, error) {
	rt, err := cheatnet.NewForked(ctx, cache)
	if err != nil {
		return nil, err
	}
	return rt.
		WithLogger(log).
		WithInitialGas(c.InitialGas).
		WithMaxSteps(c.MaxSteps), nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		feltHook,
		blockIDHook,
	)
}

var (
	feltType    = reflect.TypeOf(felt.Felt{})
	blockIDType = reflect.TypeOf(starknet.BlockID{})
)

func feltHook(from, to reflect.Type, data any) (any, error) {
	if to != feltType || from.Kind() != reflect.String {
		return data, nil
	}
	f, err := felt.NewFromString(data.(string))
	if err != nil {
		return nil, fmt.Errorf("parse felt %q: %w", data, err)
	}
	return *f, nil
}

// blockIDHook accepts "latest", a block number or a 0x prefixed block hash
func blockIDHook(from, to reflect.Type, data any) (any, error) {
	if to != blockIDType {
		return data, nil
	}

	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := reflect.ValueOf(data).Int()
		if n < 0 {
			return nil, fmt.Errorf("negative block number %d", n)
		}
		return starknet.BlockNumber(uint64(n)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starknet.BlockNumber(reflect.ValueOf(data).Uint()), nil
	case reflect.String:
		return parseBlockID(data.(string))
	default:
		return data, nil
	}
}

func parseBlockID(s string) (starknet.BlockID, error) {
	switch {
	case s == "" || s == "latest":
		return starknet.LatestBlock(), nil
	case strings.HasPrefix(s, "0x"):
		hash, err := felt.NewFromString(s)
		if err != nil {
			return starknet.BlockID{}, fmt.Errorf("parse block hash %q: %w", s, err)
		}
		return starknet.BlockHash(hash), nil
	default:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return starknet.BlockID{}, fmt.Errorf("parse block id %q: %w", s, err)
		}
		return starknet.BlockNumber(n), nil
	}
}
