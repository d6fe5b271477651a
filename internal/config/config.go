// YAML config loader with CUE validation integration
package config

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"cruisetrack/internal/exclusion"
	"cruisetrack/internal/flagger"
	"cruisetrack/internal/ingest"
	"cruisetrack/internal/pipeline"
	"cruisetrack/internal/prioritize"
)

// EnvPrefix prefixes environment overrides, e.g. CRUISETRACK_LOG_LEVEL.
const EnvPrefix = "CRUISETRACK"

// Instrument is one GPS receiver and where its logs live.
type Instrument struct {
	ID      string   `yaml:"id" mapstructure:"id"`
	Files   []string `yaml:"files,omitempty" mapstructure:"files"`
	Dir     string   `yaml:"dir,omitempty" mapstructure:"dir"`
	Pattern string   `yaml:"pattern,omitempty" mapstructure:"pattern"`
	Format  string   `yaml:"format,omitempty" mapstructure:"format"`
	Date    string   `yaml:"date,omitempty" mapstructure:"date"`
}

// Thresholds mirror flagger.Thresholds.
type Thresholds struct {
	TurnDegrees         float64 `yaml:"turn_degrees" mapstructure:"turn_degrees"`
	StationaryTurnKnots float64 `yaml:"stationary_turn_knots" mapstructure:"stationary_turn_knots"`
	MaxAccelerationMS2  float64 `yaml:"max_acceleration_ms2" mapstructure:"max_acceleration_ms2"`
	StationaryKnots     float64 `yaml:"stationary_knots" mapstructure:"stationary_knots"`
	GlitchKnots         float64 `yaml:"glitch_knots" mapstructure:"glitch_knots"`
	IQRFactor           float64 `yaml:"iqr_factor" mapstructure:"iqr_factor"`
}

type PrioritizeConfig struct {
	SeedFirstBucket bool `yaml:"seed_first_bucket" mapstructure:"seed_first_bucket"`
}

type OutputConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	DailyDir string `yaml:"daily_dir" mapstructure:"daily_dir"`
	JSONL    string `yaml:"jsonl" mapstructure:"jsonl"`
	GeoJSON  string `yaml:"geojson" mapstructure:"geojson"`
}

type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Database string `yaml:"database" mapstructure:"database"`
	Table    string `yaml:"table" mapstructure:"table"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker" mapstructure:"broker"`
	Topic    string `yaml:"topic" mapstructure:"topic"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
}

type PositionsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PipelineConfig is the root configuration of a processing run.
type PipelineConfig struct {
	Instruments []Instrument     `yaml:"instruments" mapstructure:"instruments"`
	Priority    []string         `yaml:"priority" mapstructure:"priority"`
	Exclusions  string           `yaml:"exclusions" mapstructure:"exclusions"`
	Workers     int              `yaml:"workers" mapstructure:"workers"`
	Thresholds  Thresholds       `yaml:"thresholds" mapstructure:"thresholds"`
	Prioritize  PrioritizeConfig `yaml:"prioritize" mapstructure:"prioritize"`
	Output      OutputConfig     `yaml:"output" mapstructure:"output"`
	Greptime    GreptimeConfig   `yaml:"greptime" mapstructure:"greptime"`
	MQTT        MQTTConfig       `yaml:"mqtt" mapstructure:"mqtt"`
	Positions   PositionsConfig  `yaml:"positions" mapstructure:"positions"`
	Log         LogConfig        `yaml:"log" mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	th := flagger.DefaultThresholds()
	v.SetDefault("workers", 0)
	v.SetDefault("exclusions", "")
	v.SetDefault("thresholds.turn_degrees", th.TurnDegrees)
	v.SetDefault("thresholds.stationary_turn_knots", th.StationaryTurnKnots)
	v.SetDefault("thresholds.max_acceleration_ms2", th.MaxAccelerationMS2)
	v.SetDefault("thresholds.stationary_knots", th.StationaryKnots)
	v.SetDefault("thresholds.glitch_knots", th.GlitchKnots)
	v.SetDefault("thresholds.iqr_factor", th.IQRFactor)
	v.SetDefault("prioritize.seed_first_bucket", false)
	v.SetDefault("output.path", "prioritized.csv")
	v.SetDefault("output.daily_dir", "")
	v.SetDefault("output.jsonl", "")
	v.SetDefault("output.geojson", "")
	v.SetDefault("greptime.endpoint", "")
	v.SetDefault("greptime.database", "public")
	v.SetDefault("greptime.table", "cruise_track")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "cruisetrack")
	v.SetDefault("mqtt.client_id", "cruisetrack")
	v.SetDefault("positions.path", "positions.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load validates configPath against the CUE schema (the built-in one when
// schemaPath is empty) and decodes it with defaults and environment
// overrides applied. An empty configPath yields defaults and environment
// only.
func Load(configPath, schemaPath string) (*PipelineConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		if err := ValidateWithCue(configPath, schemaPath); err != nil {
			return nil, err
		}
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "config: read %s", configPath)
		}
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks what the schema cannot: unique instrument ids and
// parseable dates.
func (c *PipelineConfig) Validate() error {
	seen := map[string]bool{}
	for _, in := range c.Instruments {
		if seen[in.ID] {
			return eris.Errorf("config: duplicate instrument id %q", in.ID)
		}
		seen[in.ID] = true
		if in.Date != "" {
			if _, err := time.Parse(time.DateOnly, in.Date); err != nil {
				return eris.Wrapf(err, "config: instrument %q date", in.ID)
			}
		}
		if len(in.Files) == 0 && in.Dir == "" {
			return eris.Errorf("config: instrument %q has neither files nor dir", in.ID)
		}
	}
	return nil
}

// Dump writes the effective configuration as YAML.
func Dump(cfg *PipelineConfig, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return eris.Wrap(err, "config: encode yaml")
	}
	return eris.Wrap(enc.Close(), "config: encode yaml")
}

// FlaggerThresholds converts the thresholds section.
func (c *PipelineConfig) FlaggerThresholds() flagger.Thresholds {
	return flagger.Thresholds{
		TurnDegrees:         c.Thresholds.TurnDegrees,
		StationaryTurnKnots: c.Thresholds.StationaryTurnKnots,
		MaxAccelerationMS2:  c.Thresholds.MaxAccelerationMS2,
		StationaryKnots:     c.Thresholds.StationaryKnots,
		GlitchKnots:         c.Thresholds.GlitchKnots,
		IQRFactor:           c.Thresholds.IQRFactor,
	}
}

// Policy returns the prioritization policy. Without an explicit priority
// list, instruments rank in the order they are configured.
func (c *PipelineConfig) Policy() prioritize.Policy {
	order := c.Priority
	if len(order) == 0 {
		for _, in := range c.Instruments {
			order = append(order, in.ID)
		}
	}
	return prioritize.Policy{Priority: order, SeedFirstBucket: c.Prioritize.SeedFirstBucket}
}

// PipelineInstruments resolves directory patterns into file lists.
func (c *PipelineConfig) PipelineInstruments() ([]pipeline.Instrument, error) {
	out := make([]pipeline.Instrument, 0, len(c.Instruments))
	for _, in := range c.Instruments {
		files := append([]string(nil), in.Files...)
		if in.Dir != "" {
			found, err := ingest.Discover(in.Dir, in.Pattern)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		}
		if len(files) == 0 {
			return nil, eris.Errorf("config: instrument %q: no input files", in.ID)
		}
		format := in.Format
		if format == "" {
			format = pipeline.FormatCSV
		}
		var start time.Time
		if in.Date != "" {
			start, _ = time.Parse(time.DateOnly, in.Date)
		}
		out = append(out, pipeline.Instrument{ID: in.ID, Files: files, Format: format, Start: start})
	}
	return out, nil
}

// Options builds the pipeline options, loading the exclusion windows.
func (c *PipelineConfig) Options(ctx context.Context) (pipeline.Options, error) {
	instruments, err := c.PipelineInstruments()
	if err != nil {
		return pipeline.Options{}, err
	}
	windows, err := exclusion.Load(ctx, c.Exclusions)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Instruments: instruments,
		Policy:      c.Policy(),
		Thresholds:  c.FlaggerThresholds(),
		Exclusions:  windows,
		Workers:     c.Workers,
	}, nil
}
