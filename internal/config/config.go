package config

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Format selects how a task tree is emitted.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatOTLP Format = "otlp"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatText, FormatJSON, FormatOTLP}

// CustomAttribute represents a user-defined span attribute with an expression
type CustomAttribute struct {
	Name       string
	Expression string
}

// Config holds the parsed command-line configuration
type Config struct {
	// TracePath is the trace file to read; "-" or empty reads stdin
	TracePath string
	// PID and TID select the thread to analyze; zero selects the renderer main thread
	PID int
	TID int
	// GroupsPath is an optional YAML group table replacing the built-in one
	GroupsPath string
	Format     Format
	// TraceEnd closes unterminated tasks, in trace microseconds; nil uses the last event
	TraceEnd *float64
	// MinDuration hides tasks shorter than this many milliseconds in text output
	MinDuration float64
	// WallStart anchors the trace clock for span export; zero uses the system boot time
	WallStart time.Time
	// TraceID is an expression for the OpenTelemetry trace ID
	TraceID string
	// ParentID is an expression for the parent span ID of root tasks
	ParentID         string
	CustomAttributes []CustomAttribute
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatOTLP:
	default:
		return fmt.Errorf("invalid format %q (expected one of %v)", c.Format, Formats)
	}

	if (c.PID == 0) != (c.TID == 0) {
		return fmt.Errorf("--pid and --tid must be given together")
	}
	if c.TraceEnd != nil && *c.TraceEnd < 0 {
		return fmt.Errorf("--trace-end must not be negative, got %v", *c.TraceEnd)
	}
	if c.MinDuration < 0 {
		return fmt.Errorf("--min-duration must not be negative, got %v", c.MinDuration)
	}

	if c.Format != FormatOTLP {
		if c.TraceID != "" || c.ParentID != "" || len(c.CustomAttributes) > 0 || !c.WallStart.IsZero() {
			return fmt.Errorf("--trace-id, --parent-id, --attribute and --wall-start require --format %s", FormatOTLP)
		}
	}
	return nil
}

// HasThread reports whether a thread was selected explicitly.
func (c *Config) HasThread() bool {
	return c.PID != 0 && c.TID != 0
}

// TraceIDExpression returns the trace ID setting as an expression. A literal
// 32-char hex ID is quoted so it is not parsed as an identifier or number.
func (c *Config) TraceIDExpression() string {
	return quoteHexLiteral(c.TraceID, 32)
}

// ParentIDExpression returns the parent ID setting as an expression. A literal
// 16-char hex ID is quoted.
func (c *Config) ParentIDExpression() string {
	return quoteHexLiteral(c.ParentID, 16)
}

func quoteHexLiteral(s string, size int) string {
	if len(s) != size {
		return s
	}
	if _, err := hex.DecodeString(s); err != nil {
		return s
	}
	return strconv.Quote(strings.ToLower(s))
}

// ParseCustomAttribute parses a NAME=EXPR attribute flag value.
func ParseCustomAttribute(spec string) (CustomAttribute, error) {
	name, expression, ok := strings.Cut(spec, "=")
	if !ok {
		return CustomAttribute{}, fmt.Errorf("invalid attribute format %q: expected NAME=EXPR", spec)
	}

	name = strings.TrimSpace(name)
	expression = strings.TrimSpace(expression)
	if name == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: name cannot be empty", spec)
	}
	if expression == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: expression cannot be empty", spec)
	}

	return CustomAttribute{Name: name, Expression: expression}, nil
}

// ParseCustomAttributes parses every -a/--attribute value in order.
func ParseCustomAttributes(specs []string) ([]CustomAttribute, error) {
	attrs := make([]CustomAttribute, 0, len(specs))
	for _, spec := range specs {
		attr, err := ParseCustomAttribute(spec)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// ParseAttributeString parses a semicolon-separated list of NAME=EXPR pairs,
// the format of TASKTREE_ATTRIBUTES. Empty sections are ignored.
func ParseAttributeString(s string) ([]CustomAttribute, error) {
	var attrs []CustomAttribute
	for _, section := range strings.Split(s, ";") {
		if strings.TrimSpace(section) == "" {
			continue
		}
		attr, err := ParseCustomAttribute(section)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// EnvDefaults holds flag defaults taken from the environment, so CI jobs can
// configure export without changing the command line.
type EnvDefaults struct {
	Format     string `env:"TASKTREE_FORMAT" envDefault:"text"`
	TraceID    string `env:"TASKTREE_TRACE_ID"`
	ParentID   string `env:"TASKTREE_PARENT_ID"`
	Attributes string `env:"TASKTREE_ATTRIBUTES"`
}

// ParseEnvDefaults reads EnvDefaults from the environment.
func ParseEnvDefaults() (*EnvDefaults, error) {
	var defaults EnvDefaults
	if err := env.Parse(&defaults); err != nil {
		return nil, fmt.Errorf("failed to parse environment defaults: %w", err)
	}
	return &defaults, nil
}

// ParseWallStart parses the --wall-start value. Empty means unset.
func ParseWallStart(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --wall-start %q (expected RFC 3339): %w", value, err)
	}
	return t, nil
}
