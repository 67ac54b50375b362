package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/xpbd/internal/analysis"
	"github.com/san-kum/xpbd/internal/experiment"
	"github.com/san-kum/xpbd/internal/export"
	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/storage"
	"github.com/san-kum/xpbd/internal/viz"
	"github.com/san-kum/xpbd/internal/world"
)

const (
	svgWidth  = 800
	svgHeight = 600
)

var (
	outPath    string
	svgPath    string
	components []string
)

// progress logs a bar every tenth of the run.
type progress struct {
	total, next float64
}

func (p *progress) OnStep(w *world.World, t float64) {
	if p.total <= 0 || t < p.next {
		return
	}
	frac := min(1, t/p.total)
	log.Printf("%s %5.1f%%  t=%.2fs  bodies=%d", viz.ProgressBar(frac, 20), 100*frac, t, len(w.Dynamics()))
	p.next += p.total / 10
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, metricNames...)
	if err != nil {
		return err
	}
	exp.Simulator().AddObserver(&progress{total: cfg.Duration})

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Printf("running %s/%s (%d bodies)...\n", cfg.Scene, name, cfg.BodyCount())
	start := time.Now()
	result, runErr := exp.Run(ctx, recordEvery)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	run := storage.Run{Scene: cfg.Scene, Variant: name, Seed: cfg.Seed, Dt: cfg.Dt, Duration: cfg.Duration}
	runID, err := st.Save(run, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (%.0f steps/s)\n", result.StepsTaken, float64(result.StepsTaken)/elapsed.Seconds())
	if em := exp.Emitter(); em != nil {
		fmt.Printf("emitted: %d, culled: %d\n", em.Emitted(), em.Culled())
	}
	if svgPath != "" {
		if err := writeOutput(svgPath, export.SceneToSVG(exp.Simulator().World(), svgWidth, svgHeight)); err != nil {
			return err
		}
	}
	printMetrics(result.Metrics)

	if runErr != nil {
		return fmt.Errorf("run stopped early, partial result saved: %w", runErr)
	}
	return nil
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	build := func() (*sim.Simulator, error) {
		exp, err := experiment.New(cfg)
		if err != nil {
			return nil, err
		}
		return exp.Simulator(), nil
	}
	return viz.RunLive(cfg.Scene+"/"+name, build, viz.Options{Theme: theme})
}

func storageCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one body of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&body, "body", 0, "body index")
	plotCmd.Flags().StringSliceVar(&components, "components", []string{"y", "vy"}, "components to plot (x, y, vx, vy)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run as CSV, one row per body and snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the trajectories of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	return []*cobra.Command{listCmd, plotCmd, exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tVARIANT\tTIME\tDURATION\tDT\tSTEPS\tBODIES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Variant,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
			run.MaxBodies,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s/%s\n", meta.Scene, meta.Variant)
	fmt.Printf("samples: %d\n\n", len(states))

	for _, name := range components {
		c, err := analysis.ParseComponent(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		_, data := analysis.Series(states, times, body, c)
		if len(data) == 0 {
			return fmt.Errorf("body %d never appears in run %s", body, runID)
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("body %d %s vs time", body, c)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	run, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteJSON(os.Stdout, run, result)
	}
	if err := storage.ExportJSON(outPath, run, result); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.WriteCSV(os.Stdout, result)
	}
	if err := storage.ExportCSV(outPath, result); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	states, _, err := storage.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}
	svg := export.TrajectoriesToSVG(states, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("run %s has no bodies", args[0])
	}
	return writeOutput(outPath, svg)
}

// writeOutput writes s to path, or to stdout when path is empty.
func writeOutput(path, s string) error {
	if path == "" {
		_, err := fmt.Println(s)
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
