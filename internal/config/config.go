package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/san-kum/phaselab/internal/analysis"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 60 * time.Second
	DefaultRateLimit      = 10.0
	DefaultBurst          = 20
	DefaultDataDir        = ".phaselab"

	DefaultDt        = 0.01
	DefaultTotalTime = 50.0

	DefaultMapSteps       = 100
	DefaultCobwebSteps    = 20
	DefaultReturnMapSteps = 200

	DefaultBifurcationSteps     = 500
	DefaultBifurcationTransient = 100
	DefaultBifurcationSamples   = 50

	DefaultEnsembleCount = 1
)

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Log      LogConfig    `yaml:"log"`
	DataDir  string       `yaml:"data_dir"`
	Defaults Defaults     `yaml:"defaults"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RateLimit is in requests per second; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults fill in request knobs the caller leaves unset.
type Defaults struct {
	Dt          float64                 `yaml:"dt"`
	TotalTime   float64                 `yaml:"total_time"`
	Map         MapDefaults             `yaml:"map"`
	Lyapunov    LyapunovDefaults        `yaml:"lyapunov"`
	Bifurcation BifurcationDefaults     `yaml:"bifurcation"`
	Fractal     analysis.FractalOptions `yaml:"fractal"`
	Discrete    analysis.Search         `yaml:"discrete"`
	Ensemble    EnsembleDefaults        `yaml:"ensemble"`
}

type MapDefaults struct {
	Steps          int `yaml:"steps"`
	CobwebSteps    int `yaml:"cobweb_steps"`
	ReturnMapSteps int `yaml:"return_map_steps"`
}

type LyapunovDefaults struct {
	analysis.LyapunovOptions `yaml:",inline"`
	analysis.MapOptions      `yaml:",inline"`
}

type BifurcationDefaults struct {
	Steps     int `yaml:"steps"`
	Transient int `yaml:"transient"`
	Samples   int `yaml:"samples"`
}

type EnsembleDefaults struct {
	Count  int     `yaml:"count"`
	Offset float64 `yaml:"offset"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           DefaultAddr,
			RequestTimeout: DefaultRequestTimeout,
			RateLimit:      DefaultRateLimit,
			Burst:          DefaultBurst,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		DataDir: DefaultDataDir,
		Defaults: Defaults{
			Dt:        DefaultDt,
			TotalTime: DefaultTotalTime,
			Map: MapDefaults{
				Steps:          DefaultMapSteps,
				CobwebSteps:    DefaultCobwebSteps,
				ReturnMapSteps: DefaultReturnMapSteps,
			},
			Lyapunov: LyapunovDefaults{
				LyapunovOptions: analysis.DefaultLyapunovOptions(),
				MapOptions:      analysis.DefaultMapOptions(),
			},
			Bifurcation: BifurcationDefaults{
				Steps:     DefaultBifurcationSteps,
				Transient: DefaultBifurcationTransient,
				Samples:   DefaultBifurcationSamples,
			},
			Fractal:  analysis.DefaultFractalOptions(),
			Discrete: analysis.DefaultSearch(),
			Ensemble: EnsembleDefaults{Count: DefaultEnsembleCount, Offset: 0.01},
		},
	}
}

// Load reads a YAML file over the defaults, so a partial file only
// overrides what it names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects knobs that would make every request fail.
func (c *Config) Validate() error {
	d := c.Defaults
	checks := []struct {
		ok   bool
		name string
	}{
		{c.Server.RequestTimeout > 0, "server.request_timeout"},
		{c.Server.RateLimit >= 0, "server.rate_limit"},
		{c.Server.RateLimit == 0 || c.Server.Burst > 0, "server.burst"},
		{d.Dt > 0, "defaults.dt"},
		{d.TotalTime > 0, "defaults.total_time"},
		{d.Map.Steps > 0, "defaults.map.steps"},
		{d.Map.CobwebSteps > 0, "defaults.map.cobweb_steps"},
		{d.Map.ReturnMapSteps > 0, "defaults.map.return_map_steps"},
		{d.Lyapunov.Dt > 0, "defaults.lyapunov.dt"},
		{d.Lyapunov.Duration > 0, "defaults.lyapunov.duration"},
		{d.Lyapunov.LyapunovOptions.Transient >= 0, "defaults.lyapunov.transient"},
		{d.Lyapunov.RenormEvery > 0, "defaults.lyapunov.renorm_every"},
		{d.Lyapunov.Steps > 0, "defaults.lyapunov.map_steps"},
		{d.Lyapunov.MapOptions.Transient >= 0, "defaults.lyapunov.map_transient"},
		{d.Bifurcation.Steps > 0, "defaults.bifurcation.steps"},
		{d.Bifurcation.Transient >= 0, "defaults.bifurcation.transient"},
		{d.Bifurcation.Samples > 0, "defaults.bifurcation.samples"},
		{d.Fractal.MaxPoints > 1, "defaults.fractal.max_points"},
		{d.Fractal.CorrelationSamples > 1, "defaults.fractal.correlation_samples"},
		{d.Fractal.BoxLevels > 1, "defaults.fractal.box_levels"},
		{d.Discrete.Min < d.Discrete.Max, "defaults.discrete.search_min"},
		{d.Discrete.Points > 1, "defaults.discrete.search_points"},
		{d.Discrete.MaxPeriod > 0, "defaults.discrete.max_period"},
		{d.Ensemble.Count > 0, "defaults.ensemble.count"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("config: invalid %s", chk.name)
		}
	}
	return nil
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(lc LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
