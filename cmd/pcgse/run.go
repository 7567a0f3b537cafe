package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/voxpcg/pcgse-go/pkg/config"
	"github.com/voxpcg/pcgse-go/pkg/controller"
	"github.com/voxpcg/pcgse-go/pkg/logging"
	"github.com/voxpcg/pcgse-go/pkg/metrics"
	"github.com/voxpcg/pcgse-go/pkg/storage"
)

var (
	configPath  string
	generations int
	dbPath      string
	seed        int64
	metricsOut  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a headless experiment with the built-in demo generator",
	RunE:  runExperiment,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := yaml.Marshal(config.GetDefaultConfig())
		if err != nil {
			return err
		}
		cmd.Print(string(out))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "experiment config file (YAML)")
	runCmd.Flags().IntVarP(&generations, "generations", "g", 0, "override the generation budget")
	runCmd.Flags().StringVar(&dbPath, "db", "", "persist snapshots to this SQLite database")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "override the RNG seed")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write the coverage series as an Arrow IPC file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

func runExperiment(cmd *cobra.Command, _ []string) error {
	cfg := config.GetDefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if generations > 0 {
		cfg.Experiment.GenerationsAllowed = generations
	}
	if seed != 0 {
		cfg.Experiment.Seed = seed
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	outputs := []logging.Output{logging.NewConsoleOutput(true, logging.WithColor(true))}
	if cfg.Logging.File != "" {
		fileOut, err := logging.NewFileOutput(cfg.Logging.File)
		if err != nil {
			return err
		}
		outputs = append(outputs, fileOut)
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Logging.Level),
		Outputs:  outputs,
	}))

	ctrlOpts := []controller.Option{}
	if cfg.Storage.Path != "" {
		store, err := storage.Open(storage.Config{
			Path:           cfg.Storage.Path,
			EnableWAL:      cfg.Storage.EnableWAL,
			MaxConnections: cfg.Storage.MaxConnections,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		ctrlOpts = append(ctrlOpts, controller.WithStore(store))
	}

	expanderSeed := cfg.Experiment.Seed
	if expanderSeed == 0 {
		expanderSeed = time.Now().UnixNano()
	}
	ctrl, err := controller.New(cfg, newDemoExpander(expanderSeed), demoBuilder{}, ctrlOpts...)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for i := 0; i < cfg.Experiment.GenerationsAllowed; i++ {
		result, err := ctrl.TriggerGeneration(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("gen %3d  %-18s inserted=%d infeasible=%d evicted=%d  %s\n",
			result.Generation, metrics.DisplayName(result.Emitter), result.Inserted,
			result.Infeasible, result.Evicted, result.Elapsed.Round(time.Millisecond))
	}

	snap := ctrl.Snapshot()
	fmt.Printf("run %s (%s): %d filled cells (%d bins per dimension, %d dims)\n",
		ctrl.RunID(), metrics.DisplayName(ctrl.ActiveEmitter()),
		len(snap.Cells), snap.Bins, snap.Dims)

	if metricsOut != "" {
		f, err := os.Create(metricsOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := ctrl.ExportCoverage(f); err != nil {
			return err
		}
		fmt.Printf("coverage series written to %s\n", metricsOut)
	}
	return nil
}
