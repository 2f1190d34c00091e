package governance

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/adapters/repository"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
)

const GovernanceFile = "proposals.json"

type governanceState struct {
	Proposals        map[common.Hash]*models.Proposal `json:"proposals"`
	QuorumPercentage *uint64                          `json:"quorumPercentage,omitempty"`
}

// FileRepository stores proposals and governed settings in a json file
type FileRepository struct {
	file  *repository.JSONFile
	mu    sync.RWMutex
	state governanceState
}

// NewFileRepository loads proposals from dataDir
func NewFileRepository(dataDir string) (*FileRepository, error) {
	r := &FileRepository{
		file: repository.NewJSONFile(dataDir, GovernanceFile),
		state: governanceState{
			Proposals: make(map[common.Hash]*models.Proposal),
		},
	}

	if err := r.file.Load(&r.state); err != nil {
		return nil, fmt.Errorf("failed to load proposals: %w", err)
	}
	if r.state.Proposals == nil {
		r.state.Proposals = make(map[common.Hash]*models.Proposal)
	}

	return r, nil
}

// NewFileRepositoryFromConfig creates a repository in the configured data directory
func NewFileRepositoryFromConfig(cfg *config.RuntimeConfig) (*FileRepository, error) {
	return NewFileRepository(cfg.DataDir)
}

// NewMemoryRepository returns a repository that keeps nothing on disk
func NewMemoryRepository() *FileRepository {
	r, _ := NewFileRepository("")
	return r
}

// GetProposal retrieves a proposal by id
func (r *FileRepository) GetProposal(ctx context.Context, id common.Hash) (*models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proposal, exists := r.state.Proposals[id]
	if !exists {
		return nil, fmt.Errorf("proposal %s: %w", id.Hex(), domain.ErrNotFound)
	}
	return cloneProposal(proposal), nil
}

// SaveProposal creates or replaces a proposal
func (r *FileRepository) SaveProposal(ctx context.Context, proposal *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Proposals[proposal.ID] = cloneProposal(proposal)
	return r.save()
}

// ListProposals returns every stored proposal
func (r *FileRepository) ListProposals(ctx context.Context) ([]*models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Proposal, 0, len(r.state.Proposals))
	for _, p := range r.state.Proposals {
		result = append(result, cloneProposal(p))
	}
	return result, nil
}

// GetQuorumPercentage returns the stored quorum fraction
func (r *FileRepository) GetQuorumPercentage(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.state.QuorumPercentage == nil {
		return 0, domain.ErrNotFound
	}
	return *r.state.QuorumPercentage, nil
}

// SetQuorumPercentage stores the quorum fraction
func (r *FileRepository) SetQuorumPercentage(ctx context.Context, percentage uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.QuorumPercentage = &percentage
	return r.save()
}

func (r *FileRepository) save() error {
	if err := r.file.Save(&r.state); err != nil {
		return fmt.Errorf("failed to save proposals: %w", err)
	}
	return nil
}

func cloneProposal(p *models.Proposal) *models.Proposal {
	clone := *p
	clone.Targets = append([]common.Address(nil), p.Targets...)
	clone.Payloads = make([]hexutil.Bytes, len(p.Payloads))
	for i, payload := range p.Payloads {
		clone.Payloads[i] = append(hexutil.Bytes(nil), payload...)
	}
	clone.CodeHashes = append([]common.Hash(nil), p.CodeHashes...)
	return &clone
}

// Ensure the repository implements the store port
var _ usecase.GovernanceStore = (*FileRepository)(nil)
