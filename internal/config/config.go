// Package config loads pipeline settings from YAML with struct-tag defaults,
// validation and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceCSV        = "csv"
	SourceSynthetic  = "synthetic"
	SourcePostgres   = "postgres"
	SourceClickhouse = "clickhouse"
)

type Config struct {
	Environment string            `yaml:"environment" default:"development"`
	Log         LogConfig         `yaml:"log"`
	Source      SourceConfig      `yaml:"source"`
	Synthetic   SyntheticConfig   `yaml:"synthetic"`
	Features    FeatureConfig     `yaml:"features"`
	Model       ModelConfig       `yaml:"model"`
	Ranking     RankingConfig     `yaml:"ranking"`
	Sufficiency SufficiencyConfig `yaml:"sufficiency"`
	Output      OutputConfig      `yaml:"output"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stderr" validate:"required"`
}

type SourceConfig struct {
	Type          string `yaml:"type" default:"csv" validate:"oneof=csv synthetic postgres clickhouse"`
	DataPath      string `yaml:"data_path" default:"demo_data.csv" validate:"required_if=Type csv"`
	PostgresDSN   string `yaml:"postgres_dsn" validate:"required_if=Type postgres"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" validate:"required_if=Type clickhouse"`
}

type SyntheticConfig struct {
	Seed             uint64   `yaml:"seed" default:"42"`
	Assets           int      `yaml:"assets" default:"50" validate:"min=1"`
	Days             int      `yaml:"days" default:"200" validate:"min=1"`
	StartDate        string   `yaml:"start_date" default:"2024-01-01" validate:"datetime=2006-01-02"`
	EventProbability float64  `yaml:"event_probability" default:"0.02" validate:"gte=0,lte=1"`
	NoiseStdDev      float64  `yaml:"noise_stddev" default:"0.01" validate:"gte=0"`
	MinBasePrice     int      `yaml:"min_base_price" default:"800" validate:"gt=0"`
	MaxBasePrice     int      `yaml:"max_base_price" default:"50000" validate:"gtfield=MinBasePrice"`
	PriceFloor       float64  `yaml:"price_floor" default:"50" validate:"gt=0"`
	MinRating        int      `yaml:"min_rating" default:"75"`
	MaxRating        int      `yaml:"max_rating" default:"91" validate:"gtefield=MinRating"`
	Leagues          []string `yaml:"leagues" default:"[\"EPL\",\"LaLiga\",\"Bundesliga\",\"SerieA\"]" validate:"min=1,dive,required"`
	Nations          []string `yaml:"nations" default:"[\"ENG\",\"ESP\",\"GER\",\"ITA\",\"FRA\"]" validate:"min=1,dive,required"`
}

type FeatureConfig struct {
	Horizon     int `yaml:"horizon" default:"7" validate:"min=1"`
	ShortWindow int `yaml:"short_window" default:"7" validate:"min=1"`
	LongWindow  int `yaml:"long_window" default:"30" validate:"min=1"`
}

type ModelConfig struct {
	Trees             int     `yaml:"trees" default:"100" validate:"min=1"`
	Seed              uint64  `yaml:"seed" default:"42"`
	MaxDepth          int     `yaml:"max_depth" validate:"gte=0"`
	MinSamplesLeaf    int     `yaml:"min_samples_leaf" default:"1" validate:"min=1"`
	MaxFeatures       int     `yaml:"max_features" validate:"gte=0"`
	Workers           int     `yaml:"workers" validate:"gte=0"`
	MinRowsForHoldout int     `yaml:"min_rows_for_holdout" default:"50" validate:"min=1"`
	TestFraction      float64 `yaml:"test_fraction" default:"0.2" validate:"gt=0,lt=1"`
}

type RankingConfig struct {
	TopK    int     `yaml:"top_k" default:"20" validate:"min=1"`
	Damping float64 `yaml:"damping" default:"0.3" validate:"gte=0,lte=1"`
	Window  string  `yaml:"window" default:"7d"`
}

type SufficiencyConfig struct {
	MinRealRows         int  `yaml:"min_real_rows" default:"100" validate:"gte=0"`
	FallbackToSynthetic bool `yaml:"fallback_to_synthetic" default:"true"`
}

type OutputConfig struct {
	Path         string `yaml:"path" default:"output/recommendations.csv" validate:"required"`
	MarkdownPath string `yaml:"markdown_path"`
}

type MetricsConfig struct {
	Namespace    string `yaml:"namespace" default:"fc_market_lab"`
	TextfilePath string `yaml:"textfile_path"`
}

var validate = validator.New()

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// struct tags are static; a failure here is a programming error
		panic(fmt.Sprintf("apply config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
// A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads a .env file if present, then the YAML config, then
// overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FCLAB_SOURCE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("FCLAB_DATA_PATH"); v != "" {
		c.Source.DataPath = v
	}
	if v := os.Getenv("FCLAB_OUTPUT_PATH"); v != "" {
		c.Output.Path = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Source.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Source.ClickhouseDSN = v
	}
	if v := os.Getenv("FCLAB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FCLAB_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse FCLAB_SEED: %w", err)
		}
		c.Synthetic.Seed = seed
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Features.LongWindow < c.Features.ShortWindow {
		return fmt.Errorf("features.long_window (%d) must be >= features.short_window (%d)",
			c.Features.LongWindow, c.Features.ShortWindow)
	}
	return nil
}

// StartTime returns the synthetic start date as a UTC time.
func (s SyntheticConfig) StartTime() time.Time {
	t, err := time.Parse("2006-01-02", s.StartDate)
	if err != nil {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t.UTC()
}
