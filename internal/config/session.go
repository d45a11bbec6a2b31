package config

import "time"

// SessionConfig controls how long an abandoned rental form survives and
// where it is kept in Redis.
type SessionConfig struct {
	TTL    time.Duration
	Prefix string
}

// LoadSessionConfig reads SESSION_TTL and SESSION_PREFIX.
func LoadSessionConfig() SessionConfig {
	cfg := SessionConfig{
		TTL:    envDur("SESSION_TTL", 30*time.Minute),
		Prefix: envStr("SESSION_PREFIX", "rental-session"),
	}
	if cfg.TTL < time.Minute {
		cfg.TTL = time.Minute
	}
	return cfg
}
