package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/metrics"
	"github.com/wippyai/gltf2image/render"
)

// Config is the file format read by the gltf2image command.
type Config struct {
	Renderer Renderer `yaml:"renderer"`
	Job      Job      `yaml:"job"`
	Log      Log      `yaml:"log"`
}

// Renderer configures render.New.
type Renderer struct {
	QueueName        string        `yaml:"queue_name"`
	MetricsNamespace string        `yaml:"metrics_namespace" validate:"required_with=Metrics"`
	Timeout          time.Duration `yaml:"timeout" validate:"gte=0"`
	Metrics          bool          `yaml:"metrics"`
}

// Job configures the renders the command submits.
type Job struct {
	Format string `yaml:"format" validate:"oneof=png bmp tiff"`
	Width  uint32 `yaml:"width" validate:"min=1,max=16384"`
	Height uint32 `yaml:"height" validate:"min=1,max=16384"`
	Repeat int    `yaml:"repeat" validate:"min=1,max=100000"`
	// Retain keeps every input asset loaded between repeats. When false only
	// the first input, usually the camera rig, stays loaded.
	Retain bool `yaml:"retain"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// Engine relays native engine messages into the log.
	Engine bool `yaml:"engine"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Renderer: Renderer{
			MetricsNamespace: "gltf2image",
			Timeout:          30 * time.Second,
		},
		Job: Job{
			Format: "png",
			Width:  512,
			Height: 512,
			Repeat: 1,
		},
		Log: Log{
			Level:  "info",
			Engine: true,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates the YAML file at path. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseValidate, errors.KindInvalidInput, err, "read config "+path)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.PhaseValidate, errors.KindInvalidInput, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseValidate, errors.KindInvalidInput, err, "invalid config")
	}
	return nil
}

// ZapLevel returns the configured zap level.
func (l Log) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Options builds renderer options. Metrics are registered with reg when
// enabled; a nil reg uses the default registerer.
func (r Renderer) Options(log *zap.Logger, reg prometheus.Registerer) ([]render.Option, error) {
	var opts []render.Option
	if log != nil {
		opts = append(opts, render.WithLogger(log))
	}
	if r.QueueName != "" {
		opts = append(opts, render.WithQueueName(r.QueueName))
	}
	if r.Metrics {
		m, err := metrics.New(reg, r.MetricsNamespace)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseCreate, errors.KindUnknown, err, "register metrics")
		}
		opts = append(opts, render.WithMetrics(m))
	}
	return opts, nil
}
