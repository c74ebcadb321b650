// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"github.com/pkg/errors"
)

const (
	// DefaultMaxElements is the default hard ceiling on the number of elements of a contraction operand.
	DefaultMaxElements = 1_000_000

	// DefaultTargetElements is the default size the chunks of a split operand aim to stay under.
	DefaultTargetElements = 200_000
)

// Config holds the thresholds of the splitter. It is immutable during a run.
type Config struct {
	// MaxElements is the hard ceiling: operands with more elements than this are split, and no
	// chunk is allowed to be larger than this.
	MaxElements int

	// TargetElements is the soft target: the chunk size is reduced while the elements of one chunk
	// (chunk size times the size of the other axes) exceed this.
	TargetElements int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{MaxElements: DefaultMaxElements, TargetElements: DefaultTargetElements}
}

// Validate checks that the thresholds are positive and that the target is not above the ceiling.
func (c Config) Validate() error {
	if c.MaxElements <= 0 {
		return errors.Errorf("splitter: MaxElements must be positive, got %d", c.MaxElements)
	}
	if c.TargetElements <= 0 {
		return errors.Errorf("splitter: TargetElements must be positive, got %d", c.TargetElements)
	}
	if c.TargetElements > c.MaxElements {
		return errors.Errorf("splitter: TargetElements (%d) must not be larger than MaxElements (%d)",
			c.TargetElements, c.MaxElements)
	}
	return nil
}

// Option configures a Splitter.
type Option func(c *Config)

// WithMaxElements sets Config.MaxElements.
func WithMaxElements(maxElements int) Option {
	return func(c *Config) { c.MaxElements = maxElements }
}

// WithTargetElements sets Config.TargetElements.
func WithTargetElements(targetElements int) Option {
	return func(c *Config) { c.TargetElements = targetElements }
}

// WithConfig replaces the whole configuration.
func WithConfig(config Config) Option {
	return func(c *Config) { *c = config }
}
