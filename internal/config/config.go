// Package config loads bistro client configuration through koanf.
//
// Sources, lowest precedence first: built-in defaults, a YAML file, and
// BISTRO_* environment variables (BISTRO_API_BASEURL -> api.baseURL).
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	envPrefix = "BISTRO_"
	appDir    = "bistro"

	DefaultBaseURL      = "http://localhost:3000"
	DefaultTimeout      = 15 * time.Second
	DefaultPollInterval = 10 * time.Second
)

type Config struct {
	API struct {
		BaseURL string        `koanf:"baseURL" yaml:"baseURL"`
		Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	} `koanf:"api" yaml:"api"`

	Storage struct {
		Path string `koanf:"path" yaml:"path"`
	} `koanf:"storage" yaml:"storage"`

	Notifications struct {
		PollInterval time.Duration `koanf:"pollInterval" yaml:"pollInterval"`
	} `koanf:"notifications" yaml:"notifications"`

	Log Log `koanf:"log" yaml:"log"`
}

type Log struct {
	Pretty bool   `koanf:"pretty" yaml:"pretty"`
	Level  string `koanf:"level" yaml:"level"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	cfg := new(Config)
	cfg.API.BaseURL = DefaultBaseURL
	cfg.API.Timeout = DefaultTimeout
	cfg.Storage.Path = defaultStoragePath()
	cfg.Notifications.PollInterval = DefaultPollInterval
	cfg.Log.Level = "info"
	cfg.Log.Pretty = true
	return cfg
}

// Load reads configuration from path (if non-empty) or from the default
// location, then applies environment overrides. An explicit path that does
// not exist is an error; a missing default file is not.
func Load(path string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	configFile := path
	if configFile == "" {
		configFile = DefaultFile()
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s failed", configFile)
		}
	} else if path != "" {
		return nil, errors.Errorf("config file %s not found", path)
	}

	paths := keyPaths(reflect.TypeOf(*cfg), "")
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(k, v string) (string, any) {
		return envKey(paths, k), v
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	return cfg, nil
}

// envKey maps BISTRO_API_BASEURL to api.baseURL. Variables that match no
// known key keep their lower-cased dotted form.
func envKey(paths map[string]string, name string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, envPrefix)), "_", ".")
	if canonical, ok := paths[key]; ok {
		return canonical
	}
	return key
}

// keyPaths indexes every koanf path of t by its lower-cased form.
func keyPaths(t reflect.Type, prefix string) map[string]string {
	out := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" {
			continue
		}
		path := prefix + tag
		if f.Type.Kind() == reflect.Struct {
			for lower, canonical := range keyPaths(f.Type, path+".") {
				out[lower] = canonical
			}
			continue
		}
		out[strings.ToLower(path)] = path
	}
	return out
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.baseURL must not be empty")
	}
	if c.API.Timeout <= 0 {
		return errors.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Notifications.PollInterval <= 0 {
		return errors.Errorf("notifications.pollInterval must be positive, got %s", c.Notifications.PollInterval)
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path must not be empty")
	}
	return nil
}

// DefaultFile is $XDG_CONFIG_HOME/bistro/config.yaml (or the platform equivalent).
func DefaultFile() string {
	return filepath.Join(configDir(), "config.yaml")
}

func defaultStoragePath() string {
	return filepath.Join(configDir(), "bistro.db")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + appDir
	}
	return filepath.Join(dir, appDir)
}
