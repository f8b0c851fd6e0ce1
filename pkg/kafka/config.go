package kafka

import "time"

// Config holds broker connection and writer tuning.
type Config struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration
	// WriteTimeout bounds a single WriteMessages call.
	WriteTimeout time.Duration
}

func (c Config) batchTimeout() time.Duration {
	if c.BatchTimeout <= 0 {
		return 10 * time.Millisecond
	}
	return c.BatchTimeout
}

func (c Config) writeTimeout() time.Duration {
	if c.WriteTimeout <= 0 {
		return 10 * time.Second
	}
	return c.WriteTimeout
}
