package model

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Verbose *bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Input   Input   `json:"input" yaml:"input"`
	Video   Video   `json:"video" yaml:"video"`
	Encoder Encoder `json:"encoder" yaml:"encoder"`
}

// Input selects the image sequence. Pattern, StartNumber and Count
// override the values inferred from the directory.
type Input struct {
	Dir         *string  `json:"dir,omitempty" yaml:"dir,omitempty"`
	Extensions  []string `json:"extensions" yaml:"extensions"`
	TieBreak    string   `json:"tie_break" yaml:"tie_break"` // "listing" | "lexical"
	Pattern     *string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	StartNumber *int     `json:"start_number,omitempty" yaml:"start_number,omitempty"`
	Count       *int     `json:"count,omitempty" yaml:"count,omitempty"`
}

// Video describes the produced file.
type Video struct {
	Output                string `json:"output" yaml:"output"`         // relative to the image directory
	FrameRate             int    `json:"frame_rate" yaml:"frame_rate"` // images per second
	Interpolate           bool   `json:"interpolate" yaml:"interpolate"`
	InterpolatedFrameRate int    `json:"interpolated_frame_rate" yaml:"interpolated_frame_rate"`
	Width                 int    `json:"width" yaml:"width"`
	Height                int    `json:"height" yaml:"height"`
	Codec                 string `json:"codec" yaml:"codec"`
	Quality               int    `json:"quality" yaml:"quality"`
}

// Encoder configures the external encoder process.
type Encoder struct {
	Binary    string `json:"binary" yaml:"binary"`
	Timeout   string `json:"timeout" yaml:"timeout"`       // Go duration, 0s means no timeout
	WaitDelay string `json:"wait_delay" yaml:"wait_delay"` // Go duration
	// Env is added to the environment of the encoder, values starting
	// with $ are expanded
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// TimeoutDuration parses Timeout.
func (e Encoder) TimeoutDuration() (time.Duration, error) {
	return parseDuration("encoder.timeout", e.Timeout)
}

// WaitDelayDuration parses WaitDelay.
func (e Encoder) WaitDelayDuration() (time.Duration, error) {
	return parseDuration("encoder.wait_delay", e.WaitDelay)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w: %w", field, s, ErrInvalidDuration, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s %q: %w: negative", field, s, ErrInvalidDuration)
	}
	return d, nil
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
// Fields missing in r get the schema defaults.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	if _, err := out.Encoder.TimeoutDuration(); err != nil {
		return Config{}, err
	}
	if _, err := out.Encoder.WaitDelayDuration(); err != nil {
		return Config{}, err
	}

	return out, nil
}

// DefaultConfig returns the configuration with all schema defaults applied.
func DefaultConfig(_ context.Context) Config {
	cfg, err := LoadConfig(strings.NewReader("version: 0\n"))
	if err != nil {
		panic(fmt.Sprintf("default config does not validate: %v", err))
	}
	return cfg
}

var reResolution = regexp.MustCompile(`^([0-9]+)x([0-9]+)$`)

// ParseResolution parses strings like 1920x1080.
func ParseResolution(s string) (width, height int, err error) {
	m := reResolution.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("%q: %w: expected WIDTHxHEIGHT", s, ErrInvalidResolution)
	}
	width, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w: %w", s, ErrInvalidResolution, err)
	}
	height, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w: %w", s, ErrInvalidResolution, err)
	}
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("%q: %w: zero dimension", s, ErrInvalidResolution)
	}
	return width, height, nil
}
