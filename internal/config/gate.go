package config

// GateConfig configures the request gate (dedup/debounce).
type GateConfig struct {
	// DebounceWindowMs is the minimum time between accepted identical
	// submissions. Fingerprints live for twice this window.
	DebounceWindowMs int `yaml:"debounce_window_ms"`

	// VoiceEchoWindowMs suppresses repeated voice-origin commands
	// (acoustic echo, duplicate wake-word triggers).
	VoiceEchoWindowMs int `yaml:"voice_echo_window_ms"`
}

// DefaultGateConfig returns sensible defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		DebounceWindowMs:  300,
		VoiceEchoWindowMs: 3000,
	}
}
