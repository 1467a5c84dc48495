// Copyright 2025 EURECOM
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
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

// macsim runs the LTE MAC scheduler simulator.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/logging"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/macstats"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/simulator"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	runTtis   uint64
	runDb     string
	runSeed   uint64
	runMetric string
)

const version = "0.3.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "macsim",
		Short:   "LTE MAC scheduler simulator",
		Version: version,
		Long: `macsim drives a TTI-level LTE MAC scheduler against simulated UEs.

Examples:
  # Serve the OAM API and metrics, configure through REST
  macsim serve --config config/macsim.yaml

  # Run 10 seconds of simulated time as fast as possible
  macsim run --config config/macsim.yaml --ttis 10000
`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (text|json)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*simulator.AppConfig, error) {
	if configPath == "" {
		return &simulator.AppConfig{Phy: simulator.PhyLoopback, Log: logging.Config{Level: "info"}}, nil
	}
	return simulator.InitConfig(configPath)
}

func newLogger(cfg logging.Config) *slog.Logger {
	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	return logging.FromConfig(cfg)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the OAM API and the Prometheus endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log)
			slog.SetDefault(logger)

			ctx, cancel := signalContext()
			defer cancel()
			return simulator.NewSchedulerSimulatorApp(cfg, logger).Run(ctx)
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch simulation and print per-UE totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log)

			profile := simulator.DefaultCellProfile()
			if cfg.SimulationProfile != nil {
				profile = *cfg.SimulationProfile
			}
			profile.Accelerated = true
			if runSeed != 0 {
				profile.Seed = runSeed
			}
			if runMetric != "" {
				profile.Scheduler.Metric = runMetric
			}

			db := runDb
			if db == "" {
				db = cfg.StatsDb
			}
			if db == "" {
				db = ":memory:"
			}

			ctx, cancel := signalContext()
			defer cancel()
			return runBatch(ctx, cmd.OutOrStdout(), profile, db, logger)
		},
	}
	cmd.Flags().Uint64Var(&runTtis, "ttis", 10000, "Number of TTIs to simulate")
	cmd.Flags().StringVar(&runDb, "db", "", "SQLite statistics database (default: statsDb of the config, else in memory)")
	cmd.Flags().Uint64Var(&runSeed, "seed", 0, "Random seed (0 keeps the profile seed)")
	cmd.Flags().StringVar(&runMetric, "metric", "", "Override the scheduler metric (pss|pss-coita|fdmt|pf)")
	return cmd
}

func runBatch(ctx context.Context, out io.Writer, profile simulator.CellProfile, db string, logger *slog.Logger) error {
	st, err := macstats.NewStore(db, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	cell, err := simulator.NewCellInstance(uuid.NewString(), profile,
		simulator.WithStatsStore(st),
		simulator.WithCellLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := cell.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if err := cell.Close(); err != nil {
			logger.Warn("could not close cell", "error", err)
		}
	}()

	started := time.Now()
	<-cell.Start(ctx, runTtis)
	elapsed := time.Since(started)

	summary, err := cell.Summary(context.Background())
	if err != nil {
		return err
	}
	ttis := cell.Tti()
	if err := cell.Stop(context.Background()); err != nil {
		return err
	}

	fmt.Fprintf(out, "simulation %s: %s TTIs in %s (metric %s)\n\n",
		cell.SimulationId(), humanize.Comma(int64(ttis)), elapsed.Round(time.Millisecond), profile.Scheduler.Metric)
	return printSummary(out, summary, ttis, profile.TtiDuration)
}

func printSummary(out io.Writer, summary []macstats.UeSummary, ttis uint64, tti time.Duration) error {
	seconds := float64(ttis) * tti.Seconds()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "RNTI\tDL GRANTS\tDL RETX\tDL BYTES\tDL RATE\tUL GRANTS\tUL RETX\tUL BYTES\tUL RATE\tDEFERRALS\t")

	var dlTotal, ulTotal uint64
	for _, u := range summary {
		dlTotal += u.DlBytes
		ulTotal += u.UlBytes
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t\n",
			u.Rnti,
			humanize.Comma(int64(u.DlGrants)), u.DlRetx, humanize.Bytes(u.DlBytes), rate(u.DlBytes, seconds),
			humanize.Comma(int64(u.UlGrants)), u.UlRetx, humanize.Bytes(u.UlBytes), rate(u.UlBytes, seconds),
			humanize.Comma(int64(u.Deferrals)))
	}
	fmt.Fprintf(w, "total\t\t\t%s\t%s\t\t\t%s\t%s\t\t\n",
		humanize.Bytes(dlTotal), rate(dlTotal, seconds), humanize.Bytes(ulTotal), rate(ulTotal, seconds))
	return w.Flush()
}

func rate(bytes uint64, seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return humanize.SIWithDigits(float64(bytes)*8/seconds, 2, "bit/s")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "macsim", version)
		},
	}
}
