// Package config loads the run configuration from an optional YAML file
// and COVIDTREND_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DateLayout is the layout of dates in configuration values.
const DateLayout = time.DateOnly

// Config represents the complete application configuration
type Config struct {
	Dataset       DatasetConfig       `mapstructure:"dataset"`
	Selection     SelectionConfig     `mapstructure:"selection"`
	Growth        GrowthConfig        `mapstructure:"growth"`
	Decomposition DecompositionConfig `mapstructure:"decomposition"`
	Forecast      ForecastConfig      `mapstructure:"forecast"`
	Output        OutputConfig        `mapstructure:"output"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// DatasetConfig locates the line list and declares its typed columns
type DatasetConfig struct {
	Path           string   `mapstructure:"path"`
	DateColumns    []string `mapstructure:"date_columns"`
	NumericColumns []string `mapstructure:"numeric_columns"`
	RegionColumn   string   `mapstructure:"region_column"`
	DateColumn     string   `mapstructure:"date_column"`
}

// SelectionConfig picks the region and the metrics to extract
type SelectionConfig struct {
	Region  string   `mapstructure:"region"`
	Metrics []string `mapstructure:"metrics"`
}

// GrowthConfig bounds the growth rate window. Empty dates fall back to the
// first positive and the last observation.
type GrowthConfig struct {
	Start         string `mapstructure:"start"`
	End           string `mapstructure:"end"`
	RollingWindow int    `mapstructure:"rolling_window"`
}

// DecompositionConfig holds seasonal decomposition options. A zero period
// is inferred from the data.
type DecompositionConfig struct {
	Model  string `mapstructure:"model"`
	Period int    `mapstructure:"period"`
	Metric string `mapstructure:"metric"`
}

// ForecastConfig fixes the model search space and the forecast horizon
type ForecastConfig struct {
	Metric         string        `mapstructure:"metric"`
	Horizon        int           `mapstructure:"horizon"`
	MaxP           int           `mapstructure:"max_p"`
	MaxD           int           `mapstructure:"max_d"`
	MaxQ           int           `mapstructure:"max_q"`
	Seasonal       bool          `mapstructure:"seasonal"`
	SeasonalPeriod int           `mapstructure:"seasonal_period"`
	MaxSP          int           `mapstructure:"max_sp"`
	MaxSD          int           `mapstructure:"max_sd"`
	MaxSQ          int           `mapstructure:"max_sq"`
	Criterion      string        `mapstructure:"criterion"`
	Stepwise       bool          `mapstructure:"stepwise"`
	StationTest    string        `mapstructure:"station_test"`
	Confidence     float64       `mapstructure:"confidence"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// OutputConfig selects which artifacts are written and where
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Charts   bool   `mapstructure:"charts"`
	Workbook bool   `mapstructure:"workbook"`
	CSV      bool   `mapstructure:"csv"`
	JSON     bool   `mapstructure:"json"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. An empty
// path uses defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// COVIDTREND_FORECAST_HORIZON overrides forecast.horizon
	v.SetEnvPrefix("COVIDTREND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Dataset defaults
	v.SetDefault("dataset.path", "covid_19_data.csv")
	v.SetDefault("dataset.date_columns", []string{"ObservationDate", "Last Update"})
	v.SetDefault("dataset.numeric_columns", []string{"Confirmed", "Deaths", "Recovered"})
	v.SetDefault("dataset.region_column", "Country/Region")
	v.SetDefault("dataset.date_column", "ObservationDate")

	// Selection defaults
	v.SetDefault("selection.region", "Brazil")
	v.SetDefault("selection.metrics", []string{"confirmed", "deaths"})

	// Growth defaults
	v.SetDefault("growth.start", "")
	v.SetDefault("growth.end", "")
	v.SetDefault("growth.rolling_window", 7)

	// Decomposition defaults
	v.SetDefault("decomposition.model", "additive")
	v.SetDefault("decomposition.period", 0)
	v.SetDefault("decomposition.metric", "confirmed")

	// Forecast defaults
	v.SetDefault("forecast.metric", "confirmed")
	v.SetDefault("forecast.horizon", 15)
	v.SetDefault("forecast.max_p", 5)
	v.SetDefault("forecast.max_d", 2)
	v.SetDefault("forecast.max_q", 5)
	v.SetDefault("forecast.seasonal", false)
	v.SetDefault("forecast.seasonal_period", 7)
	v.SetDefault("forecast.max_sp", 2)
	v.SetDefault("forecast.max_sd", 1)
	v.SetDefault("forecast.max_sq", 2)
	v.SetDefault("forecast.criterion", "aic")
	v.SetDefault("forecast.stepwise", true)
	v.SetDefault("forecast.station_test", "kpss")
	v.SetDefault("forecast.confidence", 0.95)
	v.SetDefault("forecast.timeout", "2m")

	// Output defaults
	v.SetDefault("output.dir", "./out")
	v.SetDefault("output.charts", true)
	v.SetDefault("output.workbook", true)
	v.SetDefault("output.csv", false)
	v.SetDefault("output.json", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Dataset config
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if c.Dataset.RegionColumn == "" || c.Dataset.DateColumn == "" {
		return fmt.Errorf("dataset.region_column and dataset.date_column are required")
	}

	// Validate Selection config
	if c.Selection.Region == "" {
		return fmt.Errorf("selection.region is required")
	}

	// Validate Growth config
	start, end, err := c.Growth.Window()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("growth.start must not be after growth.end")
	}
	if c.Growth.RollingWindow < 1 {
		return fmt.Errorf("growth.rolling_window must be at least 1")
	}

	// Validate Decomposition config
	validModels := map[string]bool{"additive": true, "multiplicative": true}
	if !validModels[c.Decomposition.Model] {
		return fmt.Errorf("decomposition.model must be one of: additive, multiplicative")
	}
	if c.Decomposition.Period < 0 {
		return fmt.Errorf("decomposition.period must not be negative")
	}
	if c.Decomposition.Metric == "" {
		return fmt.Errorf("decomposition.metric is required")
	}

	// Validate Forecast config
	if c.Forecast.Metric == "" {
		return fmt.Errorf("forecast.metric is required")
	}
	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be at least 1")
	}
	f := c.Forecast
	if f.MaxP < 0 || f.MaxD < 0 || f.MaxQ < 0 || f.MaxSP < 0 || f.MaxSD < 0 || f.MaxSQ < 0 {
		return fmt.Errorf("forecast search bounds must not be negative")
	}
	if f.Seasonal && f.SeasonalPeriod < 2 {
		return fmt.Errorf("forecast.seasonal_period must be at least 2 when forecast.seasonal is set")
	}
	validCriteria := map[string]bool{"aic": true, "aicc": true, "bic": true}
	if !validCriteria[f.Criterion] {
		return fmt.Errorf("forecast.criterion must be one of: aic, aicc, bic")
	}
	validTests := map[string]bool{"kpss": true, "adf": true}
	if !validTests[f.StationTest] {
		return fmt.Errorf("forecast.station_test must be one of: kpss, adf")
	}
	if f.Confidence <= 0 || f.Confidence >= 1 {
		return fmt.Errorf("forecast.confidence must be between 0 and 1")
	}
	if f.Timeout < 0 {
		return fmt.Errorf("forecast.timeout must not be negative")
	}

	// Validate Output config
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Window parses the growth window dates. Unset dates are returned as the
// zero time.
func (g GrowthConfig) Window() (start, end time.Time, err error) {
	if g.Start != "" {
		if start, err = time.Parse(DateLayout, g.Start); err != nil {
			return start, end, fmt.Errorf("growth.start: %w", err)
		}
	}
	if g.End != "" {
		if end, err = time.Parse(DateLayout, g.End); err != nil {
			return start, end, fmt.Errorf("growth.end: %w", err)
		}
	}
	return start, end, nil
}
