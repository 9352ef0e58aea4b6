package config

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownPreset = errors.New("config: unknown preset")

// Presets maps arity to named configurations. Each entry starts from the
// defaults; GetPreset hands out copies.
var Presets = map[int]map[string]*Config{
	2: {
		"demo": with(2, nil),
		"steep": with(2, func(c *Config) {
			c.Data.TrueSlope, c.Data.TrueIntercept, c.Data.NoiseStd = 6, 3, 2
			c.Descent.LearningRate = 0.005
		}),
		"noisy": with(2, func(c *Config) {
			c.Data.NoiseStd = 4
		}),
		"offset": with(2, func(c *Config) {
			c.Data.TrueIntercept, c.Data.XMin, c.Data.XMax = 8, 0, 10
			c.Descent.Steps = 1200
			c.Playback.HistoryStride = 25
		}),
		"slow": with(2, func(c *Config) {
			c.Descent.LearningRate, c.Descent.Steps = 0.002, 1500
			c.Playback.HistoryStride = 30
		}),
		"fast": with(2, func(c *Config) {
			c.Descent.LearningRate, c.Descent.Steps = 0.03, 200
			c.Playback.HistoryStride = 4
		}),
	},
	1: {
		"origin": with(1, nil),
		"wide": with(1, func(c *Config) {
			c.Data.XMin, c.Data.XMax = -10, 10
			c.Descent.LearningRate = 0.005
		}),
		"creep": with(1, func(c *Config) {
			c.Descent.LearningRate, c.Descent.Steps = 0.0005, 800
			c.Playback.HistoryStride = 20
		}),
	},
}

func with(arity int, fn func(*Config)) *Config {
	c := DefaultConfig()
	c.Model.Arity = arity
	if arity == 1 {
		c.Data.TrueIntercept = 0
	}
	if fn != nil {
		fn(c)
	}
	return c
}

func GetPreset(arity int, preset string) *Config {
	arityPresets, ok := Presets[arity]
	if !ok {
		return nil
	}
	cfg, ok := arityPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// FindPreset looks a preset up by name across arities.
func FindPreset(preset string) (*Config, error) {
	for _, arity := range []int{2, 1} {
		if cfg := GetPreset(arity, preset); cfg != nil {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownPreset, preset)
}

// ListPresets returns the preset names for an arity, sorted.
func ListPresets(arity int) []string {
	arityPresets, ok := Presets[arity]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(arityPresets))
	for name := range arityPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
