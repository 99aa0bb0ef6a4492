// internal/workers/notifications/dispatch-due/config.go
package dispatchdue

import "time"

type Config struct {
	// BatchSize caps the rows handled per tick; together with the tick
	// cadence it is the subsystem's only backpressure.
	BatchSize int
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BatchSize: 50,
		Timeout:   55 * time.Second,
	}
}
