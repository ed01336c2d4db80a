package ir

// Version constants for the IR schema and engine.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// EngineVersion is the tierprobe engine version.
	// Spec files may constrain it with an `engine` semver range.
	EngineVersion = "0.1.0"
)
