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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	defer ResetDefaultConfig()

	c := DefaultConfig()
	require.Equal(t, runtime.GOMAXPROCS(0), c.InitialSize)
	require.Equal(t, DefaultMaxGrowthFactor, c.MaxGrowthFactor)

	require.Error(t, SetDefaultConfig(Config{InitialSize: 0, MaxGrowthFactor: 1}))
	require.Equal(t, c, DefaultConfig())

	require.NoError(t, SetDefaultConfig(Config{InitialSize: 5, MaxGrowthFactor: 2}))
	require.Equal(t, Config{InitialSize: 5, MaxGrowthFactor: 2}, DefaultConfig())

	p := MustNew(func() *testObj { return &testObj{} })
	require.Equal(t, 5, p.Cap())
	require.Equal(t, 10, p.MaxCap())

	ResetDefaultConfig()
	require.Equal(t, c, DefaultConfig())
}

func TestLoadConfig(t *testing.T) {
	defer ResetDefaultConfig()
	require.NoError(t, SetDefaultConfig(Config{InitialSize: 3, MaxGrowthFactor: 2}))

	t.Run("defaults", func(t *testing.T) {
		c, err := LoadConfig(WithEnvPrefix("PRIMCOLL_TEST_NONE_"))
		require.NoError(t, err)
		require.Equal(t, Config{InitialSize: 3, MaxGrowthFactor: 2}, c)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("PRIMCOLL_TEST_ENV_INITIAL_SIZE", "16")
		c, err := LoadConfig(WithEnvPrefix("PRIMCOLL_TEST_ENV_"))
		require.NoError(t, err)
		require.Equal(t, Config{InitialSize: 16, MaxGrowthFactor: 2}, c)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pool.yaml")
		require.NoError(t, os.WriteFile(path, []byte("initial_size: 7\nmax_growth_factor: 6\n"), 0o644))
		t.Setenv("PRIMCOLL_TEST_FILE_MAX_GROWTH_FACTOR", "8")
		c, err := LoadConfig(FromFile(path), WithEnvPrefix("PRIMCOLL_TEST_FILE_"))
		require.NoError(t, err)
		// The environment overrides the file.
		require.Equal(t, Config{InitialSize: 7, MaxGrowthFactor: 8}, c)
	})

	t.Run("missing-file", func(t *testing.T) {
		_, err := LoadConfig(FromFile(filepath.Join(t.TempDir(), "missing.yaml")))
		require.Error(t, err)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("PRIMCOLL_TEST_BAD_INITIAL_SIZE", "0")
		_, err := LoadConfig(WithEnvPrefix("PRIMCOLL_TEST_BAD_"))
		require.Error(t, err)
	})
}
