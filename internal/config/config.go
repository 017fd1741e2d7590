package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schema string

// Config is the complete set of conversion settings. Treat it as
// immutable once built.
type Config struct {
	Program       string `json:"program"`
	Configuration string `json:"configuration"`
	Resource      string `json:"resource"`
	Instance      string `json:"instance"`
	Task          Task   `json:"task"`
	L5X           L5X    `json:"l5x"`

	// Channels maps a message connection path prefix to the controller it
	// reaches.
	Channels    map[string]string `json:"channels"`
	RIOPrefixes []string          `json:"rio_prefixes"`
	MaxSuffix   int               `json:"max_suffix"`
	MinFidelity float64           `json:"min_fidelity"`
}

// Task is the single cyclic task the merged program runs in.
type Task struct {
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Priority int    `json:"priority"`
}

// L5X holds the names used when emitting a vendor project.
type L5X struct {
	Controller  string `json:"controller"`
	MainProgram string `json:"main_program"`
	MainRoutine string `json:"main_routine"`
	MainTask    string `json:"main_task"`
}

// Error is a configuration failure with the CUE position when known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

var defaultConfig = func() *Config {
	c, err := Parse("defaults.cue", nil)
	if err != nil {
		panic("config: embedded schema: " + err.Error())
	}
	return c
}()

// Default returns the built-in settings.
func Default() *Config {
	return defaultConfig
}

// Load reads a CUE file and unifies it with the schema.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(path, data)
}

// Parse unifies CUE source with the schema and decodes the concrete
// result. Empty src yields the defaults.
func Parse(filename string, src []byte) (*Config, error) {
	ctx := cuecontext.New()
	sv := ctx.CompileString(schema, cue.Filename("schema.cue"))
	if err := sv.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := sv.LookupPath(cue.ParsePath("#Config"))
	if len(src) > 0 {
		uv := ctx.CompileBytes(src, cue.Filename(filename))
		if err := uv.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = v.Unify(uv)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	var c Config
	if err := v.Decode(&c); err != nil {
		return nil, formatCUEError(err)
	}
	if c.Channels == nil {
		c.Channels = map[string]string{}
	}
	return &c, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	if pos := errors.Positions(first); len(pos) > 0 {
		return &Error{Message: first.Error(), Pos: pos[0]}
	}
	return &Error{Message: first.Error()}
}

// Channel returns the controller a message connection path reaches. The
// longest matching prefix wins.
func (c *Config) Channel(path string) (string, bool) {
	var prefixes []string
	for p := range c.Channels {
		if strings.HasPrefix(strings.ToUpper(path), strings.ToUpper(p)) {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return "", false
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return c.Channels[prefixes[0]], true
}

// IsRIO reports whether a tag name belongs to a remote I/O channel.
func (c *Config) IsRIO(name string) bool {
	up := strings.ToUpper(name)
	for _, p := range c.RIOPrefixes {
		if p != "" && strings.HasPrefix(up, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}
