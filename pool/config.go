// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pool

import (
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultMaxGrowthFactor bounds pool capacity to this multiple of the
// initial size.
const DefaultMaxGrowthFactor = 4

// DefaultEnvPrefix is the environment variable prefix read by LoadConfig.
const DefaultEnvPrefix = "PRIMCOLL_POOL_"

// Config controls the size of a pool.
type Config struct {
	// InitialSize is the number of objects a pool starts with and the
	// increment by which it grows.
	InitialSize int `koanf:"initial_size" yaml:"initial_size"`
	// MaxGrowthFactor bounds the capacity of a pool to
	// MaxGrowthFactor*InitialSize.
	MaxGrowthFactor int `koanf:"max_growth_factor" yaml:"max_growth_factor"`
}

// Validate returns an error if the configuration cannot be used to build a
// pool.
func (c Config) Validate() error {
	if c.InitialSize <= 0 {
		return errors.Newf("pool: initial size must be positive, got %d", c.InitialSize)
	}
	if c.MaxGrowthFactor < 1 {
		return errors.Newf("pool: max growth factor must be at least 1, got %d", c.MaxGrowthFactor)
	}
	return nil
}

func (c Config) maxCap() int {
	return c.InitialSize * c.MaxGrowthFactor
}

var defaultConfig atomic.Pointer[Config]

// DefaultConfig returns the process-wide configuration used by pools built
// without WithConfig. Unless SetDefaultConfig was called, InitialSize is
// runtime.GOMAXPROCS(0) and MaxGrowthFactor is DefaultMaxGrowthFactor.
func DefaultConfig() Config {
	if c := defaultConfig.Load(); c != nil {
		return *c
	}
	return Config{
		InitialSize:     runtime.GOMAXPROCS(0),
		MaxGrowthFactor: DefaultMaxGrowthFactor,
	}
}

// SetDefaultConfig replaces the process-wide configuration. It is intended to
// be called once during startup. Pools that already exist are unaffected.
func SetDefaultConfig(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	defaultConfig.Store(&c)
	return nil
}

// ResetDefaultConfig restores the built-in process-wide configuration.
func ResetDefaultConfig() {
	defaultConfig.Store(nil)
}

type loadOptions struct {
	path      string
	envPrefix string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// FromFile reads a YAML file before the environment. Keys are those of the
// koanf tags on Config.
func FromFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// LoadConfig builds a Config starting from DefaultConfig, then applying an
// optional YAML file and finally the environment, e.g.
// PRIMCOLL_POOL_INITIAL_SIZE=16.
func LoadConfig(opts ...LoadOption) (Config, error) {
	o := loadOptions{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	def := DefaultConfig()
	if err := k.Load(confmap(map[string]any{
		"initial_size":      def.InitialSize,
		"max_growth_factor": def.MaxGrowthFactor,
	}), nil); err != nil {
		return Config{}, errors.Wrap(err, "pool: load defaults")
	}
	if o.path != "" {
		if err := k.Load(file.Provider(o.path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "pool: load config file %s", o.path)
		}
	}
	prefix := o.envPrefix
	if err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, prefix))
	}), nil); err != nil {
		return Config{}, errors.Wrap(err, "pool: load environment")
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, errors.Wrap(err, "pool: unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// confmap is a koanf.Provider over a flat map.
type confmap map[string]any

func (m confmap) ReadBytes() ([]byte, error) {
	return nil, errors.New("pool: confmap does not support ReadBytes")
}

func (m confmap) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}
