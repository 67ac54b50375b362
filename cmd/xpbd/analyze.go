package main

import (
	"fmt"
	"log"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/xpbd/internal/analysis"
	"github.com/san-kum/xpbd/internal/config"
	"github.com/san-kum/xpbd/internal/experiment"
	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/storage"
)

var (
	component    string
	xComponent   string
	yComponent   string
	crossAt      float64
	section      bool
	perturbation float64
	sweepParam   string
	sweepFrom    float64
	sweepTo      float64
	sweepN       int
	transient    float64
	record       float64
)

func analysisCommands() []*cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one body",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&body, "body", 0, "body index")
	analyzeCmd.Flags().StringVar(&component, "component", "y", "component (x, y, vx, vy)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait or crossing section of one body",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&body, "body", 0, "body index")
	phaseCmd.Flags().StringVar(&xComponent, "x-axis", "y", "component on the x axis")
	phaseCmd.Flags().StringVar(&yComponent, "y-axis", "vy", "component on the y axis")
	phaseCmd.Flags().BoolVar(&section, "section", false, "only plot upward crossings of --cross")
	phaseCmd.Flags().StringVar(&component, "cross", "vy", "component whose crossings are recorded")
	phaseCmd.Flags().Float64Var(&crossAt, "at", 0, "crossing threshold")

	divergenceCmd := &cobra.Command{
		Use:   "divergence [scene]",
		Short: "growth rate of a small perturbation of one body",
		Args:  cobra.MaximumNArgs(1),
		RunE:  divergence,
	}
	addSceneFlags(divergenceCmd)
	divergenceCmd.Flags().IntVar(&body, "body", 0, "perturbed body")
	divergenceCmd.Flags().Float64Var(&perturbation, "perturbation", 1e-6, "initial x offset")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scene]",
		Short: "local maxima of one component across a parameter range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweep,
	}
	addSceneFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "restitution", fmt.Sprintf("parameter to sweep %v", config.ParamNames()))
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 0.9, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 9, "number of values")
	sweepCmd.Flags().IntVar(&body, "body", 0, "body index")
	sweepCmd.Flags().StringVar(&component, "component", "y", "component (x, y, vx, vy)")
	sweepCmd.Flags().Float64Var(&transient, "transient", 0.5, "seconds to skip")
	sweepCmd.Flags().Float64Var(&record, "record", 5, "seconds to record")

	return []*cobra.Command{analyzeCmd, phaseCmd, divergenceCmd, sweepCmd}
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	c, err := analysis.ParseComponent(component)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	ts, data := analysis.Series(states, times, body, c)
	if len(data) < 4 {
		return fmt.Errorf("not enough samples of body %d", body)
	}
	sampleDt := ts[1] - ts[0]

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s/%s, body %d %s\n\n", meta.Scene, meta.Variant, body, c)

	ps := analysis.PowerSpectrum(data)
	plotData := ps[:max(2, len(ps)/4)]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s%d)", c, body)),
	)
	fmt.Println(graph)
	fmt.Println()

	freq, power := analysis.DominantFrequency(data, sampleDt)
	fmt.Printf("dominant frequency: %.3f hz (power %.4g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	runID := args[0]
	xc, err := analysis.ParseComponent(xComponent)
	if err != nil {
		return err
	}
	yc, err := analysis.ParseComponent(yComponent)
	if err != nil {
		return err
	}

	states, _, err := storage.New(dataDir).LoadStates(runID)
	if err != nil {
		return err
	}

	if section {
		cross, err := analysis.ParseComponent(component)
		if err != nil {
			return err
		}
		s := analysis.GenerateSection(states, body, cross, crossAt, xc, yc)
		fmt.Printf("section of body %d: %s crossing %g upward, %d points\n", body, cross, crossAt, len(s.Points))
		fmt.Printf("(%s vs %s)\n\n", yc, xc)
		fmt.Println(analysis.SectionToASCII(s, 80, 24))
		return nil
	}

	p := analysis.GeneratePhasePortrait(states, body, xc, yc)
	if len(p.Points) == 0 {
		return fmt.Errorf("body %d never appears in run %s", body, runID)
	}
	fmt.Printf("phase portrait of body %d: %s vs %s, %d points\n\n", body, yc, xc, len(p.Points))
	fmt.Println(analysis.PhasePortraitToASCII(p, 80, 24))
	return nil
}

func builderFor(cfg *config.Config) analysis.Builder {
	return func() (*sim.Simulator, error) {
		exp, err := experiment.New(cfg)
		if err != nil {
			return nil, err
		}
		return exp.Simulator(), nil
	}
}

func divergence(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	log.Printf("divergence of %s/%s body %d over %.2fs", cfg.Scene, name, body, cfg.Duration)
	lambda, err := analysis.Divergence(builderFor(cfg), body, perturbation, cfg.Duration)
	if err != nil {
		return err
	}

	fmt.Printf("scene: %s/%s\n", cfg.Scene, name)
	fmt.Printf("divergence rate: %.4f 1/s\n", lambda)
	if lambda > 0 {
		fmt.Println("perturbations grow: the scene is sensitive to initial conditions")
	} else {
		fmt.Println("perturbations do not grow")
	}
	return nil
}

func sweep(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	c, err := analysis.ParseComponent(component)
	if err != nil {
		return err
	}
	if _, err := cfg.With(map[string]float64{sweepParam: sweepFrom}); err != nil {
		return err
	}

	build := func(v float64) (*sim.Simulator, error) {
		log.Printf("%s = %g", sweepParam, v)
		swept, err := cfg.With(map[string]float64{sweepParam: v})
		if err != nil {
			return nil, err
		}
		return builderFor(swept)()
	}

	points, err := analysis.Sweep(analysis.Linspace(sweepFrom, sweepTo, sweepN), build, body, c, transient, record)
	if err != nil {
		return err
	}

	fmt.Printf("scene: %s/%s, local maxima of body %d %s over %s\n\n", cfg.Scene, name, body, c, sweepParam)
	fmt.Println(analysis.SweepToASCII(points, 80, 24))
	for _, p := range points {
		fmt.Printf("  %s=%.3f  %d maxima\n", sweepParam, p.Param, len(p.Values))
	}
	return nil
}
