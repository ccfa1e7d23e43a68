package replay

import "github.com/c2h5oh/datasize"

// Config is the configuration of the capture replay path.
type Config struct {
	// ReadBuffer is the size of the buffered reader in front of the
	// capture file.
	ReadBuffer datasize.ByteSize `yaml:"read_buffer"`
}

// DefaultConfig returns the default replay configuration.
func DefaultConfig() Config {
	return Config{
		ReadBuffer: 512 * datasize.KB,
	}
}
