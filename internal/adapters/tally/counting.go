package tally

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters/repository"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
)

const TallyFile = "tally.json"

type record struct {
	Snapshot uint64                `json:"snapshot"`
	Deadline uint64                `json:"deadline"`
	Canceled bool                  `json:"canceled"`
	Votes    *models.ProposalVotes `json:"votes"`
}

// Counting is a simple counting tally: against, for and abstain, where for
// and abstain both count towards quorum and for must beat against
type Counting struct {
	file *repository.JSONFile

	mu      sync.RWMutex
	records map[common.Hash]*record
}

// NewCounting loads the tally from dataDir
func NewCounting(dataDir string) (*Counting, error) {
	c := &Counting{
		file:    repository.NewJSONFile(dataDir, TallyFile),
		records: make(map[common.Hash]*record),
	}
	if err := c.file.Load(&c.records); err != nil {
		return nil, fmt.Errorf("failed to load tally: %w", err)
	}
	for _, r := range c.records {
		if r.Votes == nil {
			r.Votes = models.NewProposalVotes()
		}
		if r.Votes.Voters == nil {
			r.Votes.Voters = make(map[common.Address]models.VoteType)
		}
	}
	return c, nil
}

// NewCountingFromConfig loads the tally from the configured data directory
func NewCountingFromConfig(cfg *config.RuntimeConfig) (*Counting, error) {
	return NewCounting(cfg.DataDir)
}

// NewMemoryCounting returns a tally that keeps nothing on disk
func NewMemoryCounting() *Counting {
	c, _ := NewCounting("")
	return c
}

// Register opens a voting window
func (c *Counting) Register(ctx context.Context, id common.Hash, snapshot, deadline uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[id]; exists {
		return fmt.Errorf("proposal %s: %w", id.Hex(), domain.ErrAlreadyExists)
	}
	c.records[id] = &record{
		Snapshot: snapshot,
		Deadline: deadline,
		Votes:    models.NewProposalVotes(),
	}
	return c.save()
}

// CastVote adds weight to one side. Each voter counts once per proposal.
func (c *Counting) CastVote(ctx context.Context, id common.Hash, voter common.Address, support models.VoteType, weight *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.get(id)
	if err != nil {
		return err
	}
	if _, voted := r.Votes.Voters[voter]; voted {
		return fmt.Errorf("%s on %s: %w", voter.Hex(), id.Hex(), domain.ErrAlreadyVoted)
	}

	var side *big.Int
	switch support {
	case models.VoteAgainst:
		side = r.Votes.Against
	case models.VoteFor:
		side = r.Votes.For
	case models.VoteAbstain:
		side = r.Votes.Abstain
	default:
		return fmt.Errorf("invalid vote type %d", support)
	}
	side.Add(side, weight)
	r.Votes.Voters[voter] = support

	return c.save()
}

// Votes returns a copy of the proposal's tally
func (c *Counting) Votes(ctx context.Context, id common.Hash) (*models.ProposalVotes, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, err := c.get(id)
	if err != nil {
		return nil, err
	}
	votes := &models.ProposalVotes{
		Against: new(big.Int).Set(r.Votes.Against),
		For:     new(big.Int).Set(r.Votes.For),
		Abstain: new(big.Int).Set(r.Votes.Abstain),
		Voters:  make(map[common.Address]models.VoteType, len(r.Votes.Voters)),
	}
	for voter, support := range r.Votes.Voters {
		votes.Voters[voter] = support
	}
	return votes, nil
}

// Cancel closes the voting window for good
func (c *Counting) Cancel(ctx context.Context, id common.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.get(id)
	if err != nil {
		return err
	}
	r.Canceled = true
	return c.save()
}

// BaseState classifies the proposal at block. Voting opens after the snapshot
// block and closes after the deadline block.
func (c *Counting) BaseState(ctx context.Context, id common.Hash, block uint64, quorum *big.Int) (models.ProposalStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, err := c.get(id)
	if err != nil {
		return "", err
	}

	switch {
	case r.Canceled:
		return models.ProposalStatusCanceled, nil
	case block <= r.Snapshot:
		return models.ProposalStatusPending, nil
	case block <= r.Deadline:
		return models.ProposalStatusActive, nil
	case r.Votes.Participation().Cmp(quorum) >= 0 && r.Votes.For.Cmp(r.Votes.Against) > 0:
		return models.ProposalStatusSucceeded, nil
	default:
		return models.ProposalStatusDefeated, nil
	}
}

func (c *Counting) get(id common.Hash) (*record, error) {
	r, exists := c.records[id]
	if !exists {
		return nil, fmt.Errorf("proposal %s: %w", id.Hex(), domain.ErrNotFound)
	}
	return r, nil
}

func (c *Counting) save() error {
	if err := c.file.Save(c.records); err != nil {
		return fmt.Errorf("failed to save tally: %w", err)
	}
	return nil
}

var _ usecase.VoteTally = (*Counting)(nil)
