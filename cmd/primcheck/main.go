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

// Command primcheck runs randomized consistency checks against the primcoll
// containers, the sort kernel and the cursor pool, and prints a YAML report.
//
//	primcheck diff --capacities 1000,20000
//	primcheck sort --n 100000
//	primcheck --pool-config pool.yaml pool --rounds 5000
package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/primcoll/pool"
	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:  "primcheck",
		Usage: "Consistency checks for primcoll containers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: trace, debug, info, warn, error",
				EnvVars: []string{"PRIMCHECK_LOG_LEVEL"},
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:  "pool-config",
				Usage: "YAML file with cursor pool settings (initial_size, max_growth_factor)",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed; 0 picks one",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			diffCommand(),
			sortCommand(),
			poolCommand(),
		},
	}
}

// setup builds the logger and installs the pool configuration as the
// process-wide default before any container is created.
func setup(c *cli.Context) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "primcheck",
		Level:  hclog.LevelFromString(c.String("log-level")),
		Output: c.App.ErrWriter,
	})

	var opts []pool.LoadOption
	if path := c.String("pool-config"); path != "" {
		opts = append(opts, pool.FromFile(path))
	}
	cfg, err := pool.LoadConfig(opts...)
	if err != nil {
		return errors.Wrap(err, "loading pool config")
	}
	if err := pool.SetDefaultConfig(cfg); err != nil {
		return err
	}
	logger.Debug("pool config", "initial_size", cfg.InitialSize, "max_growth_factor", cfg.MaxGrowthFactor)

	seed := c.Uint64("seed")
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger.Info("starting", "seed", seed)

	c.App.Metadata["logger"] = logger
	c.App.Metadata["rng"] = rand.New(rand.NewPCG(seed, seed))
	return nil
}

func loggerFrom(c *cli.Context) hclog.Logger {
	if l, ok := c.App.Metadata["logger"].(hclog.Logger); ok {
		return l
	}
	return hclog.NewNullLogger()
}

func rngFrom(c *cli.Context) *rand.Rand {
	if r, ok := c.App.Metadata["rng"].(*rand.Rand); ok {
		return r
	}
	return rand.New(rand.NewPCG(1, 1))
}

func writeReport(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encoding report")
	}
	return enc.Close()
}

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Compare maps against the builtin map under random operations",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{
				Name:  "capacities",
				Usage: "Key space sizes to test",
				Value: cli.NewIntSlice(1000, 5000, 20000),
			},
			&cli.StringSliceFlag{
				Name:  "layouts",
				Usage: "Table layouts: linear, robin-hood",
				Value: cli.NewStringSlice("linear", "robin-hood"),
			},
		},
		Action: func(c *cli.Context) error {
			var report diffReport
			for _, layout := range c.StringSlice("layouts") {
				for _, n := range c.IntSlice("capacities") {
					r, err := runDiff(rngFrom(c), layout, n, loggerFrom(c))
					if err != nil {
						return err
					}
					report.Runs = append(report.Runs, r)
					report.Mismatches += r.Mismatches
				}
			}
			if err := writeReport(c.App.Writer, report); err != nil {
				return err
			}
			if report.Mismatches > 0 {
				return errors.Newf("differential check found %d mismatches", report.Mismatches)
			}
			return nil
		},
	}
}

func sortCommand() *cli.Command {
	return &cli.Command{
		Name:  "sort",
		Usage: "Check the sort kernel against a reference total order sort",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Usage: "Elements per round", Value: 10000},
			&cli.IntFlag{Name: "rounds", Usage: "Number of rounds", Value: 10},
		},
		Action: func(c *cli.Context) error {
			var report sortReport
			for i := 0; i < c.Int("rounds"); i++ {
				r := runSort(rngFrom(c), c.Int("n"))
				if !r.Sorted || !r.MatchesReference {
					report.Failures++
				}
				report.Runs = append(report.Runs, r)
			}
			if err := writeReport(c.App.Writer, report); err != nil {
				return err
			}
			if report.Failures > 0 {
				return errors.Newf("sort check failed %d rounds", report.Failures)
			}
			return nil
		},
	}
}

func poolCommand() *cli.Command {
	return &cli.Command{
		Name:  "pool",
		Usage: "Leak cursors and check that the cursor pool stays bounded",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "rounds", Usage: "Cursors to leak", Value: 1000},
		},
		Action: func(c *cli.Context) error {
			r, err := runPool(pool.DefaultConfig(), c.Int("rounds"), loggerFrom(c))
			if err != nil {
				return err
			}
			if err := writeReport(c.App.Writer, r); err != nil {
				return err
			}
			if !r.Bounded {
				return errors.Newf("pool grew to %d, bound is %d", r.Capacity, r.Bound)
			}
			return nil
		},
	}
}
