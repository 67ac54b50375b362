package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/xpbd/internal/config"
	"github.com/san-kum/xpbd/internal/metrics"
	"github.com/san-kum/xpbd/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	theme      string
	configFile string
	variant    string

	dt           float64
	duration     float64
	seed         int64
	gravity      []float64
	safetyMargin float64
	restingSpeed float64
	workers      int

	recordEvery int
	metricNames []string
	body        int
)

// main registers the commands and runs the scene picker when no subcommand
// is given.
func main() {
	rootCmd := &cobra.Command{
		Use:           "xpbd",
		Short:         "2d xpbd particle physics lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFlags(log.Ltime | log.Lmicroseconds)
			log.SetPrefix("xpbd: ")
			if !verbose {
				log.SetOutput(io.Discard)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(theme)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".xpbd", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.Themes[0].Name, fmt.Sprintf("live view theme %v", viz.ThemeNames()))

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "keep every n-th snapshot")
	runCmd.Flags().StringSliceVar(&metricNames, "metrics", metrics.Names(), "metrics to compute")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "also draw the final scene to this SVG file")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a scene with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)

	rootCmd.AddCommand(runCmd, liveCmd)
	rootCmd.AddCommand(storageCommands()...)
	rootCmd.AddCommand(analysisCommands()...)
	rootCmd.AddCommand(toolCommands()...)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&variant, "variant", "", "preset variant (default depends on scene)")
	f.StringVar(&configFile, "config", "", "scene file (yaml), replaces the preset")
	f.Float64Var(&dt, "dt", 0, "timestep")
	f.Float64Var(&duration, "time", 0, "duration in seconds")
	f.Int64Var(&seed, "seed", 0, "random seed for emitters")
	f.Float64SliceVar(&gravity, "gravity", nil, "gravity as x,y")
	f.Float64Var(&safetyMargin, "margin", 0, "broad-phase safety margin")
	f.Float64Var(&restingSpeed, "resting", 0, "normal speed below which restitution is dropped")
	f.IntVar(&workers, "workers", 0, "broad-phase workers (0 = GOMAXPROCS)")
}

// loadScene resolves the preset or scene file and applies explicitly set
// flags on top. It returns the config and the variant name for storage.
func loadScene(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	scene := config.DefaultScene
	if len(args) > 0 {
		scene = args[0]
	}

	var cfg *config.Config
	name := variant
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg, name = c, "custom"
		log.Printf("loaded scene %q from %s", cfg.Scene, configFile)
	} else {
		if name == "" {
			name = config.DefaultVariant[scene]
		}
		cfg = config.GetPreset(scene, name)
		if cfg == nil {
			if config.ListPresets(scene) == nil {
				return nil, "", fmt.Errorf("unknown scene: %s (available: %v)", scene, config.ListScenes())
			}
			return nil, "", fmt.Errorf("unknown variant: %s (available: %v)", name, config.ListPresets(scene))
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("gravity") {
		if len(gravity) != 2 {
			return nil, "", fmt.Errorf("gravity wants two values, got %d", len(gravity))
		}
		cfg.Gravity = config.Vec{X: gravity[0], Y: gravity[1]}
	}
	if flags.Changed("margin") {
		cfg.SafetyMargin = safetyMargin
	}
	if flags.Changed("resting") {
		cfg.RestingSpeed = restingSpeed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
