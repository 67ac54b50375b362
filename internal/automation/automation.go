// Package automation runs scripted sequences of scenes described in YAML.
package automation

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/xpbd/internal/config"
	"github.com/san-kum/xpbd/internal/experiment"
	"github.com/san-kum/xpbd/internal/sim"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep runs one preset, or a scene file when Config is set, with
// optional parameter overrides (see config.ParamNames).
type ScenarioStep struct {
	Scene       string             `yaml:"scene"`
	Variant     string             `yaml:"variant,omitempty"`
	Config      string             `yaml:"config,omitempty"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	Metrics     []string           `yaml:"metrics,omitempty"`
	RecordEvery int                `yaml:"record_every,omitempty"`
	SaveAs      string             `yaml:"save_as,omitempty"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Step   ScenarioStep
	Config *config.Config
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// Resolve returns the scene config of a step with its overrides applied.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	if s.Config != "" {
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.GetPreset(s.Scene, s.Variant)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %s/%s", s.Scene, s.Variant)
		}
	}
	return cfg.With(s.Params)
}

// RunScenario executes all steps in order. done, if not nil, is called after
// each step, e.g. to store the result. The results of completed steps are
// returned together with the first error.
func RunScenario(ctx context.Context, scenario *Scenario, done func(StepResult) error) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log.Printf("running step %d/%d: %s/%s", i+1, len(scenario.Steps), step.Scene, step.Variant)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.New(cfg, step.Metrics...)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx, step.RecordEvery)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: step, Config: cfg, Result: result}
		results = append(results, sr)
		if done != nil {
			if err := done(sr); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}

	return results, nil
}
