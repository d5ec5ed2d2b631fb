// Package ir provides the intermediate representation of a synthesized
// deployment definition.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. Every value here is a pure
// descriptor: nothing in ir executes a build, writes a
// bucket or calls a function.
//
// Key design constraints:
//   - All JSON tags use snake_case
//   - Optional fields are omitempty so a definition never encodes null
//   - No wall-clock timestamps; execution events carry a logical seq
//   - Secrets are opaque and redact themselves in every encoding
package ir
