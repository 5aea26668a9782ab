package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/banshee-data/motiondetector/internal/frame"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// EnvPrefix prefixes every environment override, e.g. MOTION_WIDTH.
const EnvPrefix = "MOTION"

// Topology names accepted by the command.
const (
	TopologyDisplay  = "display"
	TopologyDetector = "detector"
	TopologyAsync    = "async"
	TopologyChain    = "chain"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// PipelineConfig is the root configuration of the motion detector. Fields
// left nil fall back to the defaults returned by the Get* accessors, so
// partial files are safe.
type PipelineConfig struct {
	// Source params
	Width     *int     `json:"width,omitempty" envconfig:"WIDTH"`
	Height    *int     `json:"height,omitempty" envconfig:"HEIGHT"`
	FrameRate *float64 `json:"frame_rate,omitempty" envconfig:"FRAME_RATE"`
	Seed      *uint64  `json:"seed,omitempty" envconfig:"SEED"` // 0 seeds from the clock

	// Topology params
	QueueCapacity *int     `json:"queue_capacity,omitempty" envconfig:"QUEUE_CAPACITY"`
	Pattern       []string `json:"pattern,omitempty" envconfig:"PATTERN"`
	Topology      *string  `json:"topology,omitempty" envconfig:"TOPOLOGY"`
	Render        *bool    `json:"render,omitempty" envconfig:"RENDER"`

	// Process params
	LogLevel       *string `json:"log_level,omitempty" envconfig:"LOG_LEVEL"`
	LogDevelopment *bool   `json:"log_development,omitempty" envconfig:"LOG_DEV"`
	Listen         *string `json:"listen,omitempty" envconfig:"LISTEN"`
	DBPath         *string `json:"db_path,omitempty" envconfig:"DB_PATH"`
	RunDuration    *string `json:"run_duration,omitempty" envconfig:"RUN_DURATION"` // duration string like "30s"; empty runs until signalled
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every field populated from
// the built-in defaults.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Width:          ptrInt(defaultWidth),
		Height:         ptrInt(defaultHeight),
		FrameRate:      ptrFloat64(defaultFrameRate),
		QueueCapacity:  ptrInt(defaultQueueCapacity),
		Pattern:        frame.DefaultPattern.Strings(),
		Topology:       ptrString(TopologyAsync),
		Render:         ptrBool(true),
		LogLevel:       ptrString("info"),
		LogDevelopment: ptrBool(false),
		Listen:         ptrString(""),
		DBPath:         ptrString(""),
		RunDuration:    ptrString(""),
	}
}

const (
	defaultWidth         = 20
	defaultHeight        = 25
	defaultFrameRate     = 1.0
	defaultQueueCapacity = 1
)

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays MOTION_* environment variables onto c. Unset variables
// leave the corresponding field untouched.
func (c *PipelineConfig) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return c.Validate()
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching from the current
// directory up to the repository root. Intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the values that are set.
func (c *PipelineConfig) Validate() error {
	if c.Width != nil && *c.Width <= 0 {
		return invalid("width must be positive, got %d", *c.Width)
	}
	if c.Height != nil && *c.Height <= 0 {
		return invalid("height must be positive, got %d", *c.Height)
	}
	if c.FrameRate != nil {
		r := *c.FrameRate
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return invalid("frame_rate must be a positive finite number, got %v", r)
		}
	}
	if c.QueueCapacity != nil && *c.QueueCapacity <= 0 {
		return invalid("queue_capacity must be positive, got %d", *c.QueueCapacity)
	}
	if c.Pattern != nil {
		if _, err := frame.ParsePattern(c.Pattern...); err != nil {
			return invalid("pattern: %v", err)
		}
	}
	if c.Topology != nil {
		switch *c.Topology {
		case TopologyDisplay, TopologyDetector, TopologyAsync, TopologyChain:
		default:
			return invalid("unknown topology %q", *c.Topology)
		}
	}
	if c.RunDuration != nil && *c.RunDuration != "" {
		d, err := time.ParseDuration(*c.RunDuration)
		if err != nil {
			return invalid("run_duration %q: %v", *c.RunDuration, err)
		}
		if d < 0 {
			return invalid("run_duration must not be negative, got %s", d)
		}
	}
	return nil
}

// GetWidth returns the frame width or the default.
func (c *PipelineConfig) GetWidth() int {
	if c.Width == nil {
		return defaultWidth
	}
	return *c.Width
}

// GetHeight returns the frame height or the default.
func (c *PipelineConfig) GetHeight() int {
	if c.Height == nil {
		return defaultHeight
	}
	return *c.Height
}

// GetFrameRate returns the source rate in frames per second or the default.
func (c *PipelineConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return defaultFrameRate
	}
	return *c.FrameRate
}

// GetSeed returns the generator seed; 0 means seed from the clock.
func (c *PipelineConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetQueueCapacity returns the buffering stage capacity or the default.
func (c *PipelineConfig) GetQueueCapacity() int {
	if c.QueueCapacity == nil {
		return defaultQueueCapacity
	}
	return *c.QueueCapacity
}

// GetPattern parses the configured pattern, falling back to
// frame.DefaultPattern when unset or unparsable.
func (c *PipelineConfig) GetPattern() frame.Pattern {
	if c.Pattern == nil {
		return frame.DefaultPattern
	}
	p, err := frame.ParsePattern(c.Pattern...)
	if err != nil {
		return frame.DefaultPattern
	}
	return p
}

// GetTopology returns the topology name or the default.
func (c *PipelineConfig) GetTopology() string {
	if c.Topology == nil || *c.Topology == "" {
		return TopologyAsync
	}
	return *c.Topology
}

// GetRender reports whether frames are rendered to stdout.
func (c *PipelineConfig) GetRender() bool {
	if c.Render == nil {
		return true
	}
	return *c.Render
}

// GetLogLevel returns the log level or the default.
func (c *PipelineConfig) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return "info"
	}
	return *c.LogLevel
}

// GetLogDevelopment reports whether development logging is enabled.
func (c *PipelineConfig) GetLogDevelopment() bool {
	if c.LogDevelopment == nil {
		return false
	}
	return *c.LogDevelopment
}

// GetListen returns the HTTP listen address; empty disables the server.
func (c *PipelineConfig) GetListen() string {
	if c.Listen == nil {
		return ""
	}
	return *c.Listen
}

// GetDBPath returns the match store path; empty disables persistence.
func (c *PipelineConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetRunDuration returns how long to run before stopping; 0 runs until
// signalled.
func (c *PipelineConfig) GetRunDuration() time.Duration {
	if c.RunDuration == nil || *c.RunDuration == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.RunDuration)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
