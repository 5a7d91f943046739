package ir

const (
	// FormatVersion versions the canonical encoding and the hash domains
	// built on it. Digests from different format versions never compare
	// equal.
	FormatVersion = "1"

	// EngineVersion is the civil runtime version.
	EngineVersion = "0.1.0"
)
