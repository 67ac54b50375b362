package config

import "sort"

func ptr(v float64) *float64 { return &v }

const stackRadius = 0.15

var Presets = map[string]map[string]*Config{
	"simple": {
		"drop": {
			Scene: "simple", Duration: 5.0,
			Bodies: []BodyConfig{{Kind: "circle", Vel: Vec{Y: -1}}},
		},
		"floor": {
			Scene: "simple", Duration: 10.0, RestingSpeed: 0.33,
			Bodies: []BodyConfig{
				{Kind: "box", Static: true, Pos: Vec{Y: -3}, Size: Vec{X: 10, Y: 2}},
				{Kind: "circle", Pos: Vec{Y: 2}},
			},
		},
	},
	"collisions": {
		"elastic": {
			Scene: "collisions", Duration: 5.0, Gravity: Vec{},
			Bodies: []BodyConfig{
				{Kind: "circle", Pos: Vec{X: -2}, Vel: Vec{X: 2}, Restitution: ptr(1)},
				{Kind: "circle", Pos: Vec{X: 2}, Vel: Vec{X: -2}, Restitution: ptr(1)},
			},
		},
		"inelastic": {
			Scene: "collisions", Duration: 5.0, Gravity: Vec{},
			Bodies: []BodyConfig{
				{Kind: "circle", Pos: Vec{X: -2}, Vel: Vec{X: 2}, Restitution: ptr(0)},
				{Kind: "circle", Pos: Vec{X: 2}, Vel: Vec{X: -2}, Restitution: ptr(0)},
			},
		},
		"heavy": {
			Scene: "collisions", Duration: 5.0, Gravity: Vec{},
			Bodies: []BodyConfig{
				{Kind: "circle", Pos: Vec{X: -2}, Vel: Vec{X: 2}, Mass: 4},
				{Kind: "circle", Pos: Vec{X: 2}, Vel: Vec{X: -2}},
			},
		},
	},
	"stacking": {
		"balls": {
			Scene: "stacking", Duration: 10.0,
			Bodies: []BodyConfig{
				{Kind: "box", Static: true, Pos: Vec{Y: -4}, Size: Vec{X: 20, Y: 2}},
			},
			Stacks: []StackConfig{{
				Origin: Vec{Y: -2}, Rows: 15, Cols: 5, Radius: stackRadius,
				ColumnSpacing: 2.5 * stackRadius, RowSpacing: 2 * stackRadius,
			}},
		},
		"tower": {
			Scene: "stacking", Duration: 10.0, RestingSpeed: 0.33,
			Bodies: []BodyConfig{
				{Kind: "box", Static: true, Pos: Vec{Y: -4}, Size: Vec{X: 20, Y: 2}},
			},
			Stacks: []StackConfig{{
				Origin: Vec{Y: -2.5}, Rows: 10, Cols: 1, Radius: 0.5,
				RowSpacing: 1.0, Restitution: ptr(0),
			}},
		},
	},
	"pour": {
		"marbles": {
			Scene: "pour", Duration: 10.0,
			Bodies: []BodyConfig{
				{Kind: "box", Static: true, Pos: Vec{Y: -3}, Size: Vec{X: 10, Y: 2}},
			},
			Emitter: &EmitterConfig{
				Rate: 20, Pos: Vec{Y: 3}, PosJitter: Vec{X: 0.5, Y: 0.5},
				VelJitter: Vec{X: 1, Y: 1}, Radius: 0.1, KillHeight: -20,
			},
		},
		"funnel": {
			Scene: "pour", Duration: 15.0,
			Bodies: []BodyConfig{
				{Kind: "box", Static: true, Pos: Vec{Y: -3}, Size: Vec{X: 10, Y: 2}},
				{Kind: "circle", Static: true, Pos: Vec{X: -1.2, Y: 0}, Radius: 0.8},
				{Kind: "circle", Static: true, Pos: Vec{X: 1.2, Y: 0}, Radius: 0.8},
			},
			Emitter: &EmitterConfig{
				Rate: 20, Pos: Vec{Y: 3}, PosJitter: Vec{X: 1, Y: 0.5},
				VelJitter: Vec{X: 1, Y: 1}, Radius: 0.1, KillHeight: -20, Max: 300,
			},
		},
	},
}

func init() {
	// fill solver defaults the preset literals leave at zero
	def := DefaultConfig()
	for _, variants := range Presets {
		for _, p := range variants {
			if p.Dt == 0 {
				p.Dt = def.Dt
			}
			if p.SafetyMargin == 0 {
				p.SafetyMargin = def.SafetyMargin
			}
		}
	}
	for _, name := range []string{"simple", "stacking", "pour"} {
		for _, p := range Presets[name] {
			p.Gravity = def.Gravity
		}
	}
}

// DefaultVariant is the variant used when only a scene name is given.
var DefaultVariant = map[string]string{
	"simple":     "drop",
	"collisions": "elastic",
	"stacking":   "balls",
	"pour":       "marbles",
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scene, variant string) *Config {
	variants, ok := Presets[scene]
	if !ok {
		return nil
	}
	if variant == "" {
		variant = DefaultVariant[scene]
	}
	cfg, ok := variants[variant]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(scene string) []string {
	variants, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListScenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BodyCount is the number of bodies Build spawns, excluding emitted ones.
func (c *Config) BodyCount() int {
	n := len(c.Bodies)
	for _, s := range c.Stacks {
		n += s.Rows * s.Cols
	}
	return n
}
