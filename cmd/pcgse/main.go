package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pcgse",
	Short: "Interactive quality-diversity search over voxel spaceships",
	Long: `pcgse runs a MAP-Elites archive over procedurally generated voxel
spaceships. Offspring are produced by an emitter (random, human
preference matrix, or contextual bandit), scored on structural fitness
functions, and binned by behavior descriptors.

Without a front end attached, the run command drives the loop headless
and can persist per-generation snapshots to SQLite.`,
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
