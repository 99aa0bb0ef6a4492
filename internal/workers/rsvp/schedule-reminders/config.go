// internal/workers/rsvp/schedule-reminders/config.go
package schedulereminders

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
