package config

// LimitsConfig configures rate budgets and the circuit breaker.
type LimitsConfig struct {
	// Provider call budgets. Daily resets at local midnight, per-minute on
	// the minute boundary.
	DailyCallLimit     int `yaml:"daily_call_limit"`
	PerMinuteCallLimit int `yaml:"per_minute_call_limit"`

	// Circuit breaker tunables.
	FailureThreshold         int    `yaml:"failure_threshold"`
	HalfOpenMaxProbes        int    `yaml:"half_open_max_probes"`
	HalfOpenSuccessThreshold int    `yaml:"half_open_success_threshold"`
	CallTimeout              string `yaml:"call_timeout"`   // e.g. "30s"
	ResetTimeout             string `yaml:"reset_timeout"`  // e.g. "60s"
	ResetJitter              string `yaml:"reset_jitter"`   // max jitter, e.g. "10s"

	// Intent cache tunables.
	IntentCacheSize int    `yaml:"intent_cache_size"`
	IntentCacheTTL  string `yaml:"intent_cache_ttl"` // e.g. "5m"
}

// DefaultLimitsConfig returns sensible defaults.
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		DailyCallLimit:           200,
		PerMinuteCallLimit:       10,
		FailureThreshold:         5,
		HalfOpenMaxProbes:        1,
		HalfOpenSuccessThreshold: 2,
		CallTimeout:              "30s",
		ResetTimeout:             "60s",
		ResetJitter:              "10s",
		IntentCacheSize:          100,
		IntentCacheTTL:           "5m",
	}
}
