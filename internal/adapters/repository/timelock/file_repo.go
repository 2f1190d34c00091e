package timelock

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters/repository"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
)

const TimelockFile = "timelock.json"

// timelockState is the persisted form of the queue
type timelockState struct {
	// Actions is keyed by identity key
	Actions map[common.Hash]*models.ScheduledAction `json:"actions"`
	// Content is the content-key set
	Content map[common.Hash]bool `json:"content"`
	Count   uint64               `json:"count"`
	Delay   *uint64              `json:"delay,omitempty"`
}

// FileRepository stores the timelock queue in a json file
type FileRepository struct {
	file  *repository.JSONFile
	mu    sync.RWMutex
	state timelockState
}

// NewFileRepository loads the queue from dataDir
func NewFileRepository(dataDir string) (*FileRepository, error) {
	r := &FileRepository{
		file: repository.NewJSONFile(dataDir, TimelockFile),
		state: timelockState{
			Actions: make(map[common.Hash]*models.ScheduledAction),
			Content: make(map[common.Hash]bool),
		},
	}

	if err := r.file.Load(&r.state); err != nil {
		return nil, fmt.Errorf("failed to load timelock: %w", err)
	}
	if r.state.Actions == nil {
		r.state.Actions = make(map[common.Hash]*models.ScheduledAction)
	}
	if r.state.Content == nil {
		r.state.Content = make(map[common.Hash]bool)
	}
	if r.state.Count != uint64(len(r.state.Actions)) {
		return nil, fmt.Errorf("timelock file is inconsistent: count %d, %d actions", r.state.Count, len(r.state.Actions))
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

// GetAction retrieves an outstanding action by identity key
func (r *FileRepository) GetAction(ctx context.Context, key common.Hash) (*models.ScheduledAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, exists := r.state.Actions[key]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return action.Clone(), nil
}

// HasContent reports whether the content key is pending
func (r *FileRepository) HasContent(ctx context.Context, contentKey common.Hash) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.Content[contentKey], nil
}

// PutAction records an action under both keys
func (r *FileRepository) PutAction(ctx context.Context, action *models.ScheduledAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := action.Key()
	if _, exists := r.state.Actions[key]; exists {
		return fmt.Errorf("action %s: %w", key.Hex(), domain.ErrAlreadyExists)
	}

	r.state.Actions[key] = action.Clone()
	r.state.Content[action.ContentKey()] = true
	r.state.Count++

	return r.save()
}

// DeleteAction clears both keys of an action
func (r *FileRepository) DeleteAction(ctx context.Context, key common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	action, exists := r.state.Actions[key]
	if !exists {
		return domain.ErrNotFound
	}

	delete(r.state.Actions, key)
	delete(r.state.Content, action.ContentKey())
	r.state.Count--

	return r.save()
}

// FindByCall returns the outstanding actions matching target, payload and
// eta, ordered by identity key
func (r *FileRepository) FindByCall(ctx context.Context, target common.Address, payload []byte, eta uint64) ([]*models.ScheduledAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.ScheduledAction
	for _, action := range r.state.Actions {
		if action.Target == target && action.ETA == eta && bytes.Equal(action.Payload, payload) {
			result = append(result, action.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key().Hex() < result[j].Key().Hex() })
	return result, nil
}

// Count returns the number of outstanding actions
func (r *FileRepository) Count(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.Count, nil
}

// ListActions returns every outstanding action
func (r *FileRepository) ListActions(ctx context.Context) ([]*models.ScheduledAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.ScheduledAction, 0, len(r.state.Actions))
	for _, action := range r.state.Actions {
		result = append(result, action.Clone())
	}
	return result, nil
}

// GetDelay returns the stored delay
func (r *FileRepository) GetDelay(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.state.Delay == nil {
		return 0, domain.ErrNotFound
	}
	return *r.state.Delay, nil
}

// SetDelay stores the delay
func (r *FileRepository) SetDelay(ctx context.Context, delay uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Delay = &delay
	return r.save()
}

func (r *FileRepository) save() error {
	if err := r.file.Save(&r.state); err != nil {
		return fmt.Errorf("failed to save timelock: %w", err)
	}
	return nil
}

// Ensure the repository implements the store port
var _ usecase.TimelockStore = (*FileRepository)(nil)
