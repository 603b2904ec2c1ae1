package casefile

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed demo.toml
var demoCase []byte

// Load reads and validates a case file.
func Load(path string) (*Case, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("casefile: read %q: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("casefile: %q: %w", path, err)
	}
	return c, nil
}

func Parse(raw []byte) (*Case, error) {
	var c Case
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCase, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Demo returns a fresh copy of the built-in case.
func Demo() *Case {
	c, err := Parse(demoCase)
	if err != nil {
		panic(fmt.Sprintf("casefile: built-in demo case is invalid: %v", err))
	}
	return c
}

// LoadOrDemo loads path, or returns the demo case when path is empty.
func LoadOrDemo(path string) (*Case, error) {
	if path == "" {
		return Demo(), nil
	}
	return Load(path)
}
