package db

// QueryLatencyStats returns per-query latency samples, slowest first.
func (c *Database) QueryLatencyStats() []QueryLatency {
	if c == nil || c.tracker == nil {
		return nil
	}
	return c.tracker.snapshot()
}
