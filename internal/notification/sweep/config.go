package sweep

import "time"

// Config controls the delinquency sweep loop.
type Config struct {
	Interval time.Duration
	Enabled  bool
}

func DefaultConfig() Config {
	return Config{
		Interval: 6 * time.Hour,
		Enabled:  true,
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultConfig().Interval
	}
	return c
}
