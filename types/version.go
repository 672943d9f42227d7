package types

// Version is the canonical project version, shared by the CLI and the
// transcript record format.
const Version = "0.2.0"
