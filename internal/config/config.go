package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/banshee-data/phobos/internal/capture"
	"github.com/banshee-data/phobos/internal/monitoring"
	"github.com/banshee-data/phobos/internal/schema"
)

// maxFileSize bounds config files read from disk.
const maxFileSize = 1 * 1024 * 1024

// Config is the phobos configuration. Every field is optional; the Get*
// methods return the default for anything a file leaves out, so partial
// configs are safe. Files may be JSON or TOML with the same keys.
type Config struct {
	Decode   DecodeConfig   `json:"decode" toml:"decode"`
	Serial   SerialConfig   `json:"serial" toml:"serial"`
	Log      LogConfig      `json:"log" toml:"log"`
	DB       DBConfig       `json:"db" toml:"db"`
	Plot     PlotConfig     `json:"plot" toml:"plot"`
	Simulate SimulateConfig `json:"simulate" toml:"simulate"`
}

type DecodeConfig struct {
	Format  *string `json:"format,omitempty" toml:"format,omitempty"`
	Workers *int    `json:"workers,omitempty" toml:"workers,omitempty"`
}

type SerialConfig struct {
	Port        *string `json:"port,omitempty" toml:"port,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty" toml:"baud_rate,omitempty"`
	DataBits    *int    `json:"data_bits,omitempty" toml:"data_bits,omitempty"`
	StopBits    *int    `json:"stop_bits,omitempty" toml:"stop_bits,omitempty"`
	Parity      *string `json:"parity,omitempty" toml:"parity,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty" toml:"read_timeout,omitempty"` // duration string like "200ms"
}

type LogConfig struct {
	Level  *string `json:"level,omitempty" toml:"level,omitempty"`
	Format *string `json:"format,omitempty" toml:"format,omitempty"`
	Path   *string `json:"path,omitempty" toml:"path,omitempty"`
}

type DBConfig struct {
	Path *string `json:"path,omitempty" toml:"path,omitempty"`
}

// PlotConfig controls which samples are plotted and the figure size.
type PlotConfig struct {
	StartIndex *int     `json:"start_index,omitempty" toml:"start_index,omitempty"`
	Stride     *int     `json:"stride,omitempty" toml:"stride,omitempty"`
	Width      *float64 `json:"width_in,omitempty" toml:"width_in,omitempty"`
	Height     *float64 `json:"height_in,omitempty" toml:"height_in,omitempty"`
	// TickRate is the firmware system tick frequency used to turn logged
	// timestamps into seconds.
	TickRate *float64 `json:"tick_hz,omitempty" toml:"tick_hz,omitempty"`
}

type SimulateConfig struct {
	Duration *string  `json:"duration,omitempty" toml:"duration,omitempty"` // duration string like "3s"
	Speed    *float64 `json:"speed,omitempty" toml:"speed,omitempty"`       // m/s, overrides the logged model
	Dt       *float64 `json:"dt,omitempty" toml:"dt,omitempty"`             // s, overrides the logged model
}

// Load reads a config file. The extension selects the parser: .json or .toml.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".toml" {
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns an empty config when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	return Load(path)
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if f := c.Decode.Format; f != nil && !slices.Contains(schema.FormatNames(), *f) {
		return fmt.Errorf("decode.format must be one of %v, got %q", schema.FormatNames(), *f)
	}
	if w := c.Decode.Workers; w != nil && *w < 0 {
		return fmt.Errorf("decode.workers must be non-negative, got %d", *w)
	}

	if _, err := c.PortOptions().Normalize(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if s := c.Serial.ReadTimeout; s != nil && *s != "" {
		if _, err := time.ParseDuration(*s); err != nil {
			return fmt.Errorf("invalid serial.read_timeout '%s': %w", *s, err)
		}
	}

	if l := c.Log.Level; l != nil {
		if _, err := logrus.ParseLevel(*l); err != nil {
			return fmt.Errorf("invalid log.level: %w", err)
		}
	}
	if l := c.Log.Format; l != nil && *l != "text" && *l != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", *l)
	}

	if v := c.Plot.StartIndex; v != nil && *v < 0 {
		return fmt.Errorf("plot.start_index must be non-negative, got %d", *v)
	}
	if v := c.Plot.Stride; v != nil && *v < 1 {
		return fmt.Errorf("plot.stride must be at least 1, got %d", *v)
	}
	if v := c.Plot.Width; v != nil && *v <= 0 {
		return fmt.Errorf("plot.width_in must be positive, got %g", *v)
	}
	if v := c.Plot.Height; v != nil && *v <= 0 {
		return fmt.Errorf("plot.height_in must be positive, got %g", *v)
	}
	if v := c.Plot.TickRate; v != nil && *v <= 0 {
		return fmt.Errorf("plot.tick_hz must be positive, got %g", *v)
	}

	if s := c.Simulate.Duration; s != nil && *s != "" {
		d, err := time.ParseDuration(*s)
		if err != nil {
			return fmt.Errorf("invalid simulate.duration '%s': %w", *s, err)
		}
		if d <= 0 {
			return fmt.Errorf("simulate.duration must be positive, got %s", d)
		}
	}
	if v := c.Simulate.Dt; v != nil && *v <= 0 {
		return fmt.Errorf("simulate.dt must be positive, got %g", *v)
	}
	return nil
}

// GetFormat returns the log format name or the default.
func (c *Config) GetFormat() string {
	if c.Decode.Format == nil {
		return schema.FormatSimulation
	}
	return *c.Decode.Format
}

// GetWorkers returns the number of decode workers; 0 or 1 decodes sequentially.
func (c *Config) GetWorkers() int {
	if c.Decode.Workers == nil {
		return 1
	}
	return *c.Decode.Workers
}

// GetSerialPort returns the serial device path or the default.
func (c *Config) GetSerialPort() string {
	if c.Serial.Port == nil {
		return "/dev/ttyACM0"
	}
	return *c.Serial.Port
}

// PortOptions converts the serial section to capture options. Unset values
// are left zero for Normalize to default.
func (c *Config) PortOptions() capture.PortOptions {
	var o capture.PortOptions
	if c.Serial.BaudRate != nil {
		o.BaudRate = *c.Serial.BaudRate
	}
	if c.Serial.DataBits != nil {
		o.DataBits = *c.Serial.DataBits
	}
	if c.Serial.StopBits != nil {
		o.StopBits = *c.Serial.StopBits
	}
	if c.Serial.Parity != nil {
		o.Parity = *c.Serial.Parity
	}
	if c.Serial.ReadTimeout != nil {
		if d, err := time.ParseDuration(*c.Serial.ReadTimeout); err == nil {
			o.ReadTimeout = d
		}
	}
	return o
}

// LogOptions converts the log section to monitoring options.
func (c *Config) LogOptions() monitoring.LogConfig {
	var l monitoring.LogConfig
	if c.Log.Level != nil {
		l.Level = *c.Log.Level
	}
	if c.Log.Format != nil {
		l.Format = *c.Log.Format
	}
	if c.Log.Path != nil {
		l.Path = *c.Log.Path
	}
	return l
}

// GetDBPath returns the sqlite database path or the default.
func (c *Config) GetDBPath() string {
	if c.DB.Path == nil {
		return "phobos.db"
	}
	return *c.DB.Path
}

// GetStartIndex returns the number of leading samples to skip when plotting.
func (c *Config) GetStartIndex() int {
	if c.Plot.StartIndex == nil {
		return 50
	}
	return *c.Plot.StartIndex
}

// GetStride returns the plotting stride or the default.
func (c *Config) GetStride() int {
	if c.Plot.Stride == nil {
		return 10
	}
	return *c.Plot.Stride
}

// GetPlotSize returns the figure size in inches.
func (c *Config) GetPlotSize() (width, height float64) {
	width, height = 14, 6
	if c.Plot.Width != nil {
		width = *c.Plot.Width
	}
	if c.Plot.Height != nil {
		height = *c.Plot.Height
	}
	return width, height
}

// GetTickRate returns the firmware tick frequency in Hz or the default.
func (c *Config) GetTickRate() float64 {
	if c.Plot.TickRate == nil {
		return 10000
	}
	return *c.Plot.TickRate
}

// GetSimDuration returns the simulated time span or the default.
func (c *Config) GetSimDuration() time.Duration {
	if c.Simulate.Duration == nil || *c.Simulate.Duration == "" {
		return 3 * time.Second
	}
	d, err := time.ParseDuration(*c.Simulate.Duration)
	if err != nil {
		return 3 * time.Second // default on parse error
	}
	return d
}

// GetSimSpeed returns the configured forward speed, if any.
func (c *Config) GetSimSpeed() (float64, bool) {
	if c.Simulate.Speed == nil {
		return 0, false
	}
	return *c.Simulate.Speed, true
}

// GetSimDt returns the configured sample period, if any.
func (c *Config) GetSimDt() (float64, bool) {
	if c.Simulate.Dt == nil {
		return 0, false
	}
	return *c.Simulate.Dt, true
}
