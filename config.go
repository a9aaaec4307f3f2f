package graphcore

import "fmt"

// Config collects the renderer core's tunables: atlas edge size,
// atlases-per-batch, instances-per-batch, the background color used by
// the arrow blend, and a per-entry padding value.
type Config struct {
	// TexSize is the square edge length, in pixels, of every atlas
	// texture.
	TexSize int

	// TexRows is the number of equal-height rows an atlas is divided into.
	TexRows int

	// MaxAtlasesPerBatch bounds how many distinct atlas textures one draw
	// call may sample.
	MaxAtlasesPerBatch int

	// MaxInstances bounds the number of instances accumulated before an
	// implicit flush.
	MaxInstances int

	// BGColor is the normalized background color the arrow fragment blend
	// composites against.
	BGColor RGBA

	// Padding is a per-entry padding value, checked by Validate. Nothing
	// in this module reads it: manager.SetTransformMatrix takes padding
	// only from a render type's Padder.
	Padding float64
}

// DefaultConfig returns the configuration used when a host does not supply
// its own: a 2048² atlas with 32 rows, up to 8 atlases per batch, 1000
// instances per batch, opaque white background, zero padding.
func DefaultConfig() *Config {
	return &Config{
		TexSize:            2048,
		TexRows:            32,
		MaxAtlasesPerBatch: 8,
		MaxInstances:       1000,
		BGColor:            RGBA{R: 1, G: 1, B: 1, A: 1},
		Padding:            0,
	}
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("graphcore: invalid config field %q: %s", e.Field, e.Reason)
}

// Validate checks that every field is within a usable range.
func (c *Config) Validate() error {
	if c.TexSize <= 0 {
		return &ConfigError{Field: "TexSize", Reason: "must be positive"}
	}
	if c.TexRows <= 0 {
		return &ConfigError{Field: "TexRows", Reason: "must be positive"}
	}
	if c.TexRows > c.TexSize {
		return &ConfigError{Field: "TexRows", Reason: "cannot exceed TexSize"}
	}
	if c.MaxAtlasesPerBatch <= 0 {
		return &ConfigError{Field: "MaxAtlasesPerBatch", Reason: "must be positive"}
	}
	if c.MaxInstances <= 0 {
		return &ConfigError{Field: "MaxInstances", Reason: "must be positive"}
	}
	if c.Padding < 0 {
		return &ConfigError{Field: "Padding", Reason: "must not be negative"}
	}
	return nil
}

// RowHeight returns floor(TexSize / TexRows), the pixel height of one
// atlas row.
func (c *Config) RowHeight() int {
	return c.TexSize / c.TexRows
}
