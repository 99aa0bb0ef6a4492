// internal/workers/rsvp/schedule-interested/config.go
package scheduleinterested

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
