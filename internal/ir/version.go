package ir

// Version constants for the fixture schema and tool.
const (
	// FormatVersion is the canonical fixture schema version.
	FormatVersion = "1"

	// ToolVersion is the opfix release.
	ToolVersion = "0.1.0"

	// DefaultHALVersion is assumed when a fixture does not name a minimum version.
	DefaultHALVersion = "V1_0"
)
