package ir

// Version constants for the runtime contract and toolchain.
const (
	// ContractVersion is bumped whenever a descriptor or cast rule changes
	// meaning. Stored with every released emission.
	ContractVersion = "1"

	// ToolVersion is the sobootstrap toolchain version.
	ToolVersion = "0.1.0"
)
