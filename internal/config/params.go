package config

import (
	"fmt"
	"sort"
)

var params = map[string]func(c *Config, v float64){
	"restitution": func(c *Config, v float64) {
		for i := range c.Bodies {
			c.Bodies[i].Restitution = ptr(v)
		}
		for i := range c.Stacks {
			c.Stacks[i].Restitution = ptr(v)
		}
		if c.Emitter != nil {
			c.Emitter.Restitution = ptr(v)
		}
	},
	"gravity":  func(c *Config, v float64) { c.Gravity = Vec{Y: -v} },
	"dt":       func(c *Config, v float64) { c.Dt = v },
	"duration": func(c *Config, v float64) { c.Duration = v },
	"margin":   func(c *Config, v float64) { c.SafetyMargin = v },
	"resting":  func(c *Config, v float64) { c.RestingSpeed = v },
	"seed":     func(c *Config, v float64) { c.Seed = int64(v) },
}

// ParamNames lists the scalar parameters accepted by Set.
func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set changes one scalar parameter. Restitution applies to every body,
// stack and emitter; gravity is the downward magnitude.
func (c *Config) Set(name string, v float64) error {
	fn, ok := params[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s (available: %v)", name, ParamNames())
	}
	fn(c, v)
	return nil
}

// With returns a copy with the given parameters set.
func (c *Config) With(values map[string]float64) (*Config, error) {
	out := c.Clone()
	for name, v := range values {
		if err := out.Set(name, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
