package chain

import (
	"fmt"
	"sync"
	"time"

	"github.com/money-god/mgl-governance/internal/adapters/repository"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/usecase"
)

const ChainFile = "chain.json"

// GenesisTimestamp is the timestamp of block zero on a fresh data directory
const GenesisTimestamp uint64 = 1_700_000_000

// Head is the persisted chain head
type Head struct {
	Block     uint64 `json:"block"`
	Timestamp uint64 `json:"timestamp"`
}

// Clock is a simulated chain head shared by every component of one process
type Clock struct {
	file *repository.JSONFile
	mu   sync.RWMutex
	head Head
}

// NewClock loads the chain head from dataDir
func NewClock(dataDir string) (*Clock, error) {
	c := &Clock{
		file: repository.NewJSONFile(dataDir, ChainFile),
		head: Head{Timestamp: GenesisTimestamp},
	}
	if err := c.file.Load(&c.head); err != nil {
		return nil, fmt.Errorf("failed to load chain head: %w", err)
	}
	return c, nil
}

// NewClockFromConfig loads the chain head from the configured data directory
func NewClockFromConfig(cfg *config.RuntimeConfig) (*Clock, error) {
	return NewClock(cfg.DataDir)
}

// NewMemoryClock returns a clock starting at the given head
func NewMemoryClock(block, timestamp uint64) *Clock {
	return &Clock{
		file: repository.NewJSONFile("", ChainFile),
		head: Head{Block: block, Timestamp: timestamp},
	}
}

func (c *Clock) BlockNumber() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head.Block
}

func (c *Clock) Timestamp() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head.Timestamp
}

// Head returns a copy of the current head
func (c *Clock) Head() Head {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head
}

// Advance mines blocks and moves time forward
func (c *Clock) Advance(blocks uint64, elapsed time.Duration) (Head, error) {
	if elapsed < 0 {
		return Head{}, fmt.Errorf("cannot move time backwards by %s", elapsed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.head.Block += blocks
	c.head.Timestamp += uint64(elapsed / time.Second)
	if err := c.file.Save(&c.head); err != nil {
		return Head{}, fmt.Errorf("failed to save chain head: %w", err)
	}
	return c.head, nil
}

var _ usecase.Clock = (*Clock)(nil)
