// Package ir provides the value types shared by every tierprobe package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - operand values use int64 for numbers
//   - Property keys are NFC-normalized at construction
//   - Shapes are derived from canonical (RFC 8785) key order
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
