package conntrack

// Config is the configuration of the connection-tracking table.
type Config struct {
	// Buckets is the number of hash buckets; more buckets lessen lock
	// contention between concurrent submitters.
	Buckets int `yaml:"buckets"`
	// Timeout is the idle lifetime of a tracked connection, in seconds.
	Timeout uint32 `yaml:"timeout"`
}

// DefaultConfig returns the default table configuration.
func DefaultConfig() Config {
	return Config{
		Buckets: 1024,
		Timeout: 30,
	}
}
