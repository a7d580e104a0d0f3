package cache

import "time"

const (
	// DefaultBlockTTLFinalized keeps finalized blocks for an hour; their
	// content can no longer change.
	DefaultBlockTTLFinalized = time.Hour
	// DefaultBlockTTLRecent covers roughly two block intervals; recent blocks
	// may still be re-orged or gain finality.
	DefaultBlockTTLRecent = 12 * time.Second
	// DefaultMaxEntries bounds the number of cached blocks.
	DefaultMaxEntries = 1024
)

// Config holds the cache tuning knobs. Build it from DefaultConfig and chain
// the With methods; every option defaults sensibly when unset.
type Config struct {
	BlockTTLFinalized time.Duration
	BlockTTLRecent    time.Duration
	MaxEntries        int
}

func DefaultConfig() Config {
	return Config{
		BlockTTLFinalized: DefaultBlockTTLFinalized,
		BlockTTLRecent:    DefaultBlockTTLRecent,
		MaxEntries:        DefaultMaxEntries,
	}
}

func (c Config) WithBlockTTLFinalized(ttl time.Duration) Config {
	c.BlockTTLFinalized = ttl
	return c
}

func (c Config) WithBlockTTLRecent(ttl time.Duration) Config {
	c.BlockTTLRecent = ttl
	return c
}

func (c Config) WithMaxEntries(n int) Config {
	c.MaxEntries = n
	return c
}
