package denoise

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Params controls the kernel size and the falloff of each weight term.
// Each variance is the σ² of a Gaussian: a neighbour at squared distance d²
// is weighted by exp(-d²/(2σ²)). An infinite variance disables its term.
type Params struct {
	// Radius is the half width K of the (2K+1)x(2K+1) neighbourhood.
	Radius int `yaml:"radius"`
	// SpatialVariance applies to pixel offsets.
	SpatialVariance float32 `yaml:"spatial_variance"`
	// AlbedoVariance applies to the albedo difference.
	AlbedoVariance float32 `yaml:"albedo_variance"`
	// NormalVariance applies to the decoded normal difference.
	NormalVariance float32 `yaml:"normal_variance"`
}

// DefaultParams returns a radius of 8 and variances of 16, 0.1 and 0.01.
func DefaultParams() Params {
	return Params{
		Radius:          8,
		SpatialVariance: 16,
		AlbedoVariance:  0.1,
		NormalVariance:  0.01,
	}
}

// Validate rejects a negative radius and variances that are not positive.
func (p Params) Validate() error {
	if p.Radius < 0 {
		return fmt.Errorf("radius must not be negative, got %d", p.Radius)
	}
	for _, v := range []struct {
		name string
		val  float32
	}{
		{"spatial_variance", p.SpatialVariance},
		{"albedo_variance", p.AlbedoVariance},
		{"normal_variance", p.NormalVariance},
	} {
		if math.IsNaN(float64(v.val)) || v.val <= 0 {
			return fmt.Errorf("%s must be positive, got %v", v.name, v.val)
		}
	}
	return nil
}

// LoadParams reads a YAML file on top of DefaultParams.
// Keys missing from the file keep their defaults; unknown keys are rejected.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return p, fmt.Errorf("parse %q: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("validate %q: %w", path, err)
	}
	return p, nil
}
