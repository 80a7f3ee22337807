package config

import "time"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	TickIntervalChanged bool
	NewTickInterval     time.Duration

	ProducerRateChanged bool
	NewProducerRate     float64
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.TickIntervalChanged || d.ProducerRateChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; a changed
// listen address, TLS setup, storage DSN, or lesson provider requires a
// restart and is deliberately ignored here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Session.TickInterval != new.Session.TickInterval {
		d.TickIntervalChanged = true
		d.NewTickInterval = new.Session.TickInterval
	}

	if old.Session.ProducerRate != new.Session.ProducerRate {
		d.ProducerRateChanged = true
		d.NewProducerRate = new.Session.ProducerRate
	}

	return d
}
