package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/xpbd/internal/automation"
	"github.com/san-kum/xpbd/internal/config"
	"github.com/san-kum/xpbd/internal/experiment"
	"github.com/san-kum/xpbd/internal/metrics"
	"github.com/san-kum/xpbd/internal/optim"
	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/storage"
)

var (
	benchSteps int
	numRuns    int
	grid       []string
	objective  string
	maximize   bool
)

func toolCommands() []*cobra.Command {
	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list scenes and their variants",
		Args:  cobra.NoArgs,
		RunE:  listScenes,
	}

	presetCmd := &cobra.Command{
		Use:   "preset [scene] [variant]",
		Short: "print a preset as yaml, to be edited and passed to --config",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  dumpPreset,
	}
	presetCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "benchmark the solver across worker counts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	addSceneFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchSteps, "steps", 600, "ticks per measurement")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scene]",
		Short: "run a scene for consecutive seeds in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addSceneFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of runs")

	scriptCmd := &cobra.Command{
		Use:   "script [scenario.yaml]",
		Short: "run and store every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [scene]",
		Short: "grid search scene parameters for the best metric value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tune,
	}
	addSceneFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&objective, "metric", "max_penetration", "metric to optimise")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", false, "maximise instead of minimise")

	return []*cobra.Command{scenesCmd, presetCmd, benchCmd, ensembleCmd, scriptCmd, tuneCmd}
}

func listScenes(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tVARIANT\tBODIES\tEMITTER\tDURATION")
	for _, scene := range config.ListScenes() {
		for _, v := range config.ListPresets(scene) {
			cfg := config.GetPreset(scene, v)
			emitter := "-"
			if cfg.Emitter != nil {
				emitter = fmt.Sprintf("%.0f/s", cfg.Emitter.Rate)
			}
			name := v
			if config.DefaultVariant[scene] == v {
				name += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.1fs\n", scene, name, cfg.BodyCount(), emitter, cfg.Duration)
		}
	}
	return w.Flush()
}

func dumpPreset(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	cfg := config.GetPreset(args[0], name)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %v (scenes: %v)", args, config.ListScenes())
	}

	if outPath != "" {
		if err := config.Save(outPath, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
		return nil
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func workerCounts() []int {
	counts := []int{1}
	for n := 2; n < runtime.GOMAXPROCS(0); n *= 2 {
		counts = append(counts, n)
	}
	if runtime.GOMAXPROCS(0) > 1 {
		counts = append(counts, runtime.GOMAXPROCS(0))
	}
	return counts
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s/%s, %d ticks\n\n", cfg.Scene, name, benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKERS\tBODIES\tPAIRS\tTIME\tSTEPS/SEC")

	for _, n := range workerCounts() {
		c := cfg.Clone()
		c.Workers = n
		exp, err := experiment.New(c)
		if err != nil {
			return err
		}
		s := exp.Simulator()

		pairs := 0
		start := time.Now()
		for i := 0; i < benchSteps; i++ {
			if err := s.Step(); err != nil {
				return err
			}
			pairs += len(s.Solver().CollisionPairs())
		}
		elapsed := time.Since(start)
		log.Printf("workers=%d done in %v", n, elapsed)

		fmt.Fprintf(w, "%d\t%d\t%.1f\t%v\t%.0f\n",
			n, len(s.World().Dynamics()), float64(pairs)/float64(benchSteps),
			elapsed.Round(time.Microsecond), float64(benchSteps)/elapsed.Seconds())
	}

	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	simCfg := sim.DefaultConfig()
	simCfg.Duration = cfg.Duration
	simCfg.RecordEvery = max(1, int(0.1/cfg.Dt))

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Printf("ensemble %s/%s: %d runs from seed %d\n\n", cfg.Scene, name, numRuns, cfg.Seed)
	start := time.Now()
	results, err := sim.NewEnsemble(experiment.Factory(cfg), numRuns, cfg.Seed).
		WithMetrics(metrics.All).
		Run(ctx, simCfg)
	if err != nil {
		return err
	}
	log.Printf("ensemble finished in %v", time.Since(start))

	names := metrics.Names()
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "SEED")
	for _, n := range names {
		fmt.Fprintf(w, "\t%s", n)
	}
	fmt.Fprintln(w)

	mean := make(map[string]float64, len(names))
	for i, r := range results {
		fmt.Fprintf(w, "%d", cfg.Seed+int64(i))
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4g", r.Metrics[n])
			mean[n] += r.Metrics[n] / float64(len(results))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, "mean")
	for _, n := range names {
		fmt.Fprintf(w, "\t%.4g", mean[n])
	}
	fmt.Fprintln(w)

	return w.Flush()
}

func runScript(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", scenario.Name, len(scenario.Steps))
	if scenario.Description != "" {
		fmt.Println(scenario.Description)
	}
	_, err = automation.RunScenario(ctx, scenario, func(r automation.StepResult) error {
		label := r.Step.Variant
		switch {
		case r.Step.SaveAs != "":
			label = r.Step.SaveAs
		case r.Step.Config != "":
			label = "custom"
		case label == "":
			label = config.DefaultVariant[r.Step.Scene]
		}
		run := storage.Run{Scene: r.Config.Scene, Variant: label, Seed: r.Config.Seed, Dt: r.Config.Dt, Duration: r.Config.Duration}
		runID, err := st.Save(run, r.Result)
		if err != nil {
			return err
		}
		fmt.Printf("  %s/%s -> %s (%d steps)\n", r.Config.Scene, label, runID, r.Result.StepsTaken)
		return nil
	})
	return err
}

// parseGrid reads name=v1,v2,... entries.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, entry := range entries {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || list == "" {
			return nil, nil, fmt.Errorf("bad grid entry %q, want name=v1,v2", entry)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		return fmt.Errorf("no --grid given (parameters: %v)", config.ParamNames())
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	search := optim.NewGridSearch(names, ranges)
	search.Maximize = maximize
	best, trials, searchErr := search.Search(ctx, func(params map[string]float64) (*experiment.Experiment, error) {
		log.Printf("trial %v", params)
		c, err := cfg.With(params)
		if err != nil {
			return nil, err
		}
		return experiment.New(c, objective)
	}, objective)

	fmt.Printf("tuning %s/%s for %s\n\n", cfg.Scene, name, objective)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(objective))
	for _, t := range trials {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", t.Params[n])
		}
		if t.Err != nil {
			fmt.Fprintf(w, "error: %v\n", t.Err)
		} else {
			fmt.Fprintf(w, "%.6g\n", t.Value)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if searchErr != nil {
		return searchErr
	}

	fmt.Printf("\nbest: %v -> %.6g\n", best.Params, best.Value)
	return nil
}
