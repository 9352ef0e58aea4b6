package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/playback"
)

const (
	DefaultArity         = 2
	DefaultN             = 100
	DefaultTrueSlope     = 2.5
	DefaultTrueIntercept = -1.0
	DefaultNoiseStd      = 1.2
	DefaultXMin          = -5.0
	DefaultXMax          = 7.0
	DefaultLearningRate  = 0.01
	DefaultSteps         = 500
	DefaultHistoryStride = 10
	DefaultIntervalMS    = 5
	DefaultTheme         = "cyberpunk"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Seed     *int64         `yaml:"seed,omitempty"`
	Data     DataConfig     `yaml:"data"`
	Descent  DescentConfig  `yaml:"descent"`
	Playback PlaybackConfig `yaml:"playback"`
	Theme    string         `yaml:"theme"`
}

type ModelConfig struct {
	Arity int `yaml:"arity"`
}

type DataConfig struct {
	N             int     `yaml:"n"`
	TrueSlope     float64 `yaml:"true_slope"`
	TrueIntercept float64 `yaml:"true_intercept"`
	NoiseStd      float64 `yaml:"noise_std"`
	XMin          float64 `yaml:"x_min"`
	XMax          float64 `yaml:"x_max"`
}

type DescentConfig struct {
	LearningRate float64 `yaml:"learning_rate"`
	Steps        int     `yaml:"steps"`
	// Unset initial values are drawn from the seeded generator.
	InitSlope     *float64 `yaml:"init_slope,omitempty"`
	InitIntercept *float64 `yaml:"init_intercept,omitempty"`
}

type PlaybackConfig struct {
	// HistoryMax of 0 keeps every sampled line.
	HistoryMax     int  `yaml:"history_max"`
	HistoryStride  int  `yaml:"history_stride"`
	DynamicLimits  bool `yaml:"dynamic_limits"`
	PlayIntervalMS int  `yaml:"play_interval_ms"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{Arity: DefaultArity},
		Data: DataConfig{
			N:             DefaultN,
			TrueSlope:     DefaultTrueSlope,
			TrueIntercept: DefaultTrueIntercept,
			NoiseStd:      DefaultNoiseStd,
			XMin:          DefaultXMin,
			XMax:          DefaultXMax,
		},
		Descent: DescentConfig{
			LearningRate: DefaultLearningRate,
			Steps:        DefaultSteps,
		},
		Playback: PlaybackConfig{
			HistoryStride:  DefaultHistoryStride,
			PlayIntervalMS: DefaultIntervalMS,
		},
		Theme: DefaultTheme,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Seed = clonePtr(c.Seed)
	out.Descent.InitSlope = clonePtr(c.Descent.InitSlope)
	out.Descent.InitIntercept = clonePtr(c.Descent.InitIntercept)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func Load(path string) (*Config, error) {
	return LoadOnto(DefaultConfig(), path)
}

// LoadOnto decodes the file at path over base, so keys missing from the
// file keep base's values.
func LoadOnto(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve layers a preset (or the defaults), then an optional file.
// Flags are applied by the caller on top of the result.
func Resolve(preset, path string) (*Config, error) {
	cfg := DefaultConfig()
	if preset != "" {
		p, err := FindPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	if path == "" {
		return cfg, nil
	}
	return LoadOnto(cfg, path)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate fails on the first unusable value.
func (c *Config) Validate() error {
	if err := c.DescentConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	d := c.Data
	switch {
	case d.N < 1:
		return fmt.Errorf("%w: data.n must be >= 1, got %d", ErrInvalid, d.N)
	case d.XMax < d.XMin:
		return fmt.Errorf("%w: data.x_max (%g) < data.x_min (%g)", ErrInvalid, d.XMax, d.XMin)
	case d.NoiseStd < 0 || math.IsNaN(d.NoiseStd):
		return fmt.Errorf("%w: data.noise_std must be >= 0, got %g", ErrInvalid, d.NoiseStd)
	}
	p := c.Playback
	switch {
	case p.PlayIntervalMS <= 0:
		return fmt.Errorf("%w: playback.play_interval_ms must be > 0, got %d", ErrInvalid, p.PlayIntervalMS)
	case p.HistoryMax < 0:
		return fmt.Errorf("%w: playback.history_max must be >= 0, got %d", ErrInvalid, p.HistoryMax)
	case p.HistoryStride < 0:
		return fmt.Errorf("%w: playback.history_stride must be >= 0, got %d", ErrInvalid, p.HistoryStride)
	}
	return nil
}

func (c *Config) Arity() descent.Arity { return descent.Arity(c.Model.Arity) }

func (c *Config) DatasetSpec() dataset.Spec {
	return dataset.Spec{
		N:             c.Data.N,
		TrueSlope:     c.Data.TrueSlope,
		TrueIntercept: c.Data.TrueIntercept,
		NoiseStd:      c.Data.NoiseStd,
		XMin:          c.Data.XMin,
		XMax:          c.Data.XMax,
		ThroughOrigin: c.Arity() == descent.One,
	}
}

func (c *Config) DescentConfig() descent.Config {
	return descent.Config{
		Arity:        c.Arity(),
		LearningRate: c.Descent.LearningRate,
		Steps:        c.Descent.Steps,
	}
}

func (c *Config) PlaybackOptions() playback.Options {
	return playback.Options{
		HistoryMax:    c.Playback.HistoryMax,
		HistoryStride: c.Playback.HistoryStride,
		DynamicLimits: c.Playback.DynamicLimits,
	}
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.Playback.PlayIntervalMS) * time.Millisecond
}

// SeedOr returns the configured seed, or fallback when none is set.
func (c *Config) SeedOr(fallback int64) int64 {
	if c.Seed != nil {
		return *c.Seed
	}
	return fallback
}
