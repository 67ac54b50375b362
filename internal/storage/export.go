package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/xpbd/internal/sim"
)

type ExportData struct {
	Scene    string             `json:"scene"`
	Seed     int64              `json:"seed"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	States   [][]float64        `json:"states"`
	Metrics  map[string]float64 `json:"metrics"`
}

func exportData(run Run, result *sim.Result) ExportData {
	data := ExportData{
		Scene:    run.Scene,
		Seed:     run.Seed,
		Dt:       run.Dt,
		Duration: run.Duration,
		Steps:    result.StepsTaken,
		Times:    result.Times,
		States:   make([][]float64, len(result.States)),
		Metrics:  result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	return data
}

// WriteJSON encodes a run as indented JSON.
func WriteJSON(w io.Writer, run Run, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(run, result))
}

func ExportJSON(path string, run Run, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, run, result)
}

// WriteCSV writes one row per snapshot and body: time, body, x, y, vx, vy.
// This long format keeps a fixed width when bodies come and go.
func WriteCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "body", "x", "y", "vx", "vy"}); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for i, x := range result.States {
		for b := 0; b < x.Bodies(); b++ {
			px, py, vx, vy := x.Body(b)
			row := []string{f(result.Times[i]), strconv.Itoa(b), f(px), f(py), f(vx), f(vy)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func ExportCSV(path string, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, result)
}
