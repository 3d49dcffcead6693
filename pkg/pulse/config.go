package pulse

// DebugConfig controls development-time logging. All output goes through
// the standard slog logger at Debug level.
type DebugConfig struct {
	// LogEffectRuns logs every effect run with its ID and name.
	LogEffectRuns bool

	// LogFlushes logs pass and reaction counts for every drain.
	LogFlushes bool
}

// DefaultDebugConfig returns a config with all debugging disabled.
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{}
}

// Debug is the global debug configuration.
// Set it at startup; it is not synchronized for mid-run mutation.
var Debug = DefaultDebugConfig()
