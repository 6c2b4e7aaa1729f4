package retry

import (
	"fmt"
	"time"
)

// Config holds restart configuration for streamer sessions
type Config struct {
	Enabled      bool          // Enable/disable restarts
	MaxRetries   int           // Maximum number of restarts after the first attempt
	InitialDelay time.Duration // Delay before the first restart
	MaxDelay     time.Duration // Maximum delay between restarts
}

// DefaultConfig returns the restart settings used when none are configured
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		MaxRetries:   10,
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive, got %s", c.InitialDelay)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max delay %s is below initial delay %s", c.MaxDelay, c.InitialDelay)
	}
	return nil
}
