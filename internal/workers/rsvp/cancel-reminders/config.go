// internal/workers/rsvp/cancel-reminders/config.go
package cancelreminders

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
