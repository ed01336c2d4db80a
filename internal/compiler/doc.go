// Package compiler turns CUE function specs into ir values.
//
// A specs directory declares functions, an optional tiering policy, and an
// optional engine version constraint:
//
//	engine: ">=0.1.0 <1.0.0"
//
//	policy: {
//		polymorphic_bound:   4
//		require_preparation: true
//	}
//
//	function: load: {
//		op: "load" // defaults to site.kind
//		site: { kind: "load", key: "x" }
//	}
//
// The compiler uses the CUE SDK's Go API directly, never the CLI.
package compiler
