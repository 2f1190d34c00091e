package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
)

// TimelockParams are the queue bounds, in seconds
type TimelockParams struct {
	Delay           uint64
	MinDelay        uint64
	MaxDelay        uint64
	ExecutionWindow uint64
	MaxScheduled    uint64
}

// TimelockParamsFromConfig converts the configured durations
func TimelockParamsFromConfig(cfg config.TimelockConfig) TimelockParams {
	return TimelockParams{
		Delay:           config.Seconds(cfg.Delay),
		MinDelay:        config.Seconds(cfg.MinDelay),
		MaxDelay:        config.Seconds(cfg.MaxDelay),
		ExecutionWindow: config.Seconds(cfg.ExecutionWindow),
		MaxScheduled:    cfg.MaxScheduled,
	}
}

// TimelockQueue owns the scheduled action set and runs due actions through the executor
type TimelockQueue struct {
	address  common.Address
	params   TimelockParams
	store    TimelockStore
	auth     Authorizer
	code     CodeRegistry
	executor Executor
	clock    Clock
	log      *slog.Logger

	mu sync.Mutex
}

// NewTimelockQueue creates a new timelock queue
func NewTimelockQueue(
	cfg *config.RuntimeConfig,
	store TimelockStore,
	auth Authorizer,
	code CodeRegistry,
	executor Executor,
	clock Clock,
	log *slog.Logger,
) *TimelockQueue {
	return &TimelockQueue{
		address:  cfg.Governance.Addresses.Timelock,
		params:   TimelockParamsFromConfig(cfg.Governance.Timelock),
		store:    store,
		auth:     auth,
		code:     code,
		executor: executor,
		clock:    clock,
		log:      log.With("component", "timelock"),
	}
}

// QueueEntry is a scheduled action with its status at query time
type QueueEntry struct {
	Action    *models.ScheduledAction
	Key       common.Hash
	Status    models.ActionStatus
	ExpiresAt uint64
}

// Address is the identity the queue presents to the executor
func (q *TimelockQueue) Address() common.Address {
	return q.address
}

// Params returns the configured bounds
func (q *TimelockQueue) Params() TimelockParams {
	return q.params
}

// Delay returns the current minimum lead time in seconds
func (q *TimelockQueue) Delay(ctx context.Context) (uint64, error) {
	delay, err := q.store.GetDelay(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return q.params.Delay, nil
	}
	return delay, err
}

// Count returns the number of outstanding actions
func (q *TimelockQueue) Count(ctx context.Context) (uint64, error) {
	return q.store.Count(ctx)
}

// Schedule records an action for execution at its eta.
// A zero code hash captures the target's current fingerprint.
func (q *TimelockQueue) Schedule(ctx context.Context, caller common.Address, action *models.ScheduledAction) (*models.ScheduledAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.auth.IsAuthorized(ctx, caller, domain.OpSchedule) {
		return nil, domain.AuthorizationError{Caller: caller, Operation: domain.OpSchedule}
	}

	record := action.Clone()
	current, err := q.code.CodeHash(ctx, record.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to read code hash of %s: %w", record.Target.Hex(), err)
	}
	if record.CodeHash == (common.Hash{}) {
		record.CodeHash = current
	} else if record.CodeHash != current {
		return nil, domain.CodeIdentityMismatchError{Target: record.Target, Expected: record.CodeHash, Actual: current}
	}

	key := record.Key()
	if _, err := q.store.GetAction(ctx, key); err == nil {
		return nil, domain.AlreadyScheduledError{Key: key}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	contentKey := record.ContentKey()
	pending, err := q.store.HasContent(ctx, contentKey)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.DuplicateContentError{ContentKey: contentKey}
	}

	now := q.clock.Timestamp()
	delay, err := q.Delay(ctx)
	if err != nil {
		return nil, err
	}
	var lead uint64
	if record.ETA > now {
		lead = record.ETA - now
	}
	if record.ETA < now || lead < delay {
		return nil, domain.DelayOutOfBoundsError{Delay: lead, Min: delay, Max: q.params.MaxDelay}
	}
	if lead > q.params.MaxDelay {
		return nil, domain.DelayOutOfBoundsError{Delay: lead, Min: delay, Max: q.params.MaxDelay}
	}

	count, err := q.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count >= q.params.MaxScheduled {
		return nil, domain.CapacityExceededError{Max: q.params.MaxScheduled}
	}

	record.ScheduledAt = now
	if err := q.store.PutAction(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store action: %w", err)
	}

	q.log.Info("scheduled action",
		"key", key.Hex(),
		"target", record.Target.Hex(),
		"eta", record.ETA,
		"caller", caller.Hex(),
	)
	return record.Clone(), nil
}

// Execute runs a due action. Anyone may call it; the record check is the guard.
func (q *TimelockQueue) Execute(ctx context.Context, caller common.Address, action *models.ScheduledAction) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	record, err := q.lookup(ctx, action)
	if err != nil {
		return nil, err
	}
	key := record.Key()

	current, err := q.code.CodeHash(ctx, record.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to read code hash of %s: %w", record.Target.Hex(), err)
	}
	if current != record.CodeHash {
		return nil, domain.CodeIdentityMismatchError{Target: record.Target, Expected: record.CodeHash, Actual: current}
	}

	now := q.clock.Timestamp()
	if now < record.ETA {
		return nil, domain.PrematureExecutionError{ETA: record.ETA, Now: now}
	}
	if expires := record.ExpiresAt(q.params.ExecutionWindow); now >= expires {
		return nil, domain.ExpiredError{ETA: record.ETA, ExpiresAt: expires, Now: now}
	}

	// Removed before the call, restored if the call or the owner check fails.
	if err := q.store.DeleteAction(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to remove action: %w", err)
	}

	output, err := q.executor.Run(ctx, q.address, record.Target, record.Payload)
	if err != nil {
		if rerr := q.store.PutAction(ctx, record); rerr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to restore action: %w", rerr))
		}
		q.log.Debug("execution failed", "key", key.Hex(), "error", err)
		return nil, err
	}

	owner, err := q.executor.Owner(ctx)
	if err == nil && owner != q.address {
		err = domain.OwnershipCorruptedError{Expected: q.address, Actual: owner}
	}
	if err != nil {
		if rerr := q.executor.Revert(ctx); rerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to revert executor: %w", rerr))
		}
		if rerr := q.store.PutAction(ctx, record); rerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to restore action: %w", rerr))
		}
		q.log.Error("executor check failed", "key", key.Hex(), "error", err)
		return nil, err
	}

	q.log.Info("executed action",
		"key", key.Hex(),
		"target", record.Target.Hex(),
		"caller", caller.Hex(),
	)
	return output, nil
}

// Abandon removes an outstanding action without running it
func (q *TimelockQueue) Abandon(ctx context.Context, caller common.Address, action *models.ScheduledAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.auth.IsAuthorized(ctx, caller, domain.OpAbandon) {
		return domain.AuthorizationError{Caller: caller, Operation: domain.OpAbandon}
	}

	record, err := q.lookup(ctx, action)
	if err != nil {
		return err
	}
	key := record.Key()
	if err := q.store.DeleteAction(ctx, key); err != nil {
		return fmt.Errorf("failed to remove action: %w", err)
	}

	q.log.Info("abandoned action",
		"key", key.Hex(),
		"target", record.Target.Hex(),
		"caller", caller.Hex(),
	)
	return nil
}

// Lookup returns the outstanding record matching the action, or NotScheduledError
func (q *TimelockQueue) Lookup(ctx context.Context, action *models.ScheduledAction) (*models.ScheduledAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.lookup(ctx, action)
}

// IsScheduled reports whether the action is outstanding
func (q *TimelockQueue) IsScheduled(ctx context.Context, action *models.ScheduledAction) (bool, error) {
	_, err := q.Lookup(ctx, action)
	if errors.Is(err, domain.ErrNotScheduled) {
		return false, nil
	}
	return err == nil, err
}

// SetDelay updates the minimum lead time. It does not take the queue lock:
// it is reachable from an action the queue is executing.
func (q *TimelockQueue) SetDelay(ctx context.Context, caller common.Address, delay uint64) error {
	if !q.auth.IsAuthorized(ctx, caller, domain.OpSetDelay) {
		return domain.AuthorizationError{Caller: caller, Operation: domain.OpSetDelay}
	}
	if delay < q.params.MinDelay || delay > q.params.MaxDelay {
		return domain.DelayOutOfBoundsError{Delay: delay, Min: q.params.MinDelay, Max: q.params.MaxDelay}
	}
	if err := q.store.SetDelay(ctx, delay); err != nil {
		return fmt.Errorf("failed to store delay: %w", err)
	}

	q.log.Info("delay updated", "delay", delay, "caller", caller.Hex())
	return nil
}

// Entries lists outstanding actions ordered by eta
func (q *TimelockQueue) Entries(ctx context.Context) ([]QueueEntry, error) {
	actions, err := q.store.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].ETA != actions[j].ETA {
			return actions[i].ETA < actions[j].ETA
		}
		return actions[i].Key().Hex() < actions[j].Key().Hex()
	})

	now := q.clock.Timestamp()
	entries := make([]QueueEntry, len(actions))
	for i, action := range actions {
		entries[i] = QueueEntry{
			Action:    action,
			Key:       action.Key(),
			Status:    action.Status(now, q.params.ExecutionWindow),
			ExpiresAt: action.ExpiresAt(q.params.ExecutionWindow),
		}
	}
	return entries, nil
}

// Matching returns every outstanding record for the action's call. A zero
// code hash matches records scheduled under any fingerprint, so calls whose
// target logic was replaced after scheduling are still found.
func (q *TimelockQueue) Matching(ctx context.Context, action *models.ScheduledAction) ([]*models.ScheduledAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if action.CodeHash == (common.Hash{}) {
		records, err := q.store.FindByCall(ctx, action.Target, action.Payload, action.ETA)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			return records, nil
		}
	}

	record, err := q.lookup(ctx, action)
	if err != nil {
		return nil, err
	}
	return []*models.ScheduledAction{record}, nil
}

// lookup finds the stored record for an action. A zero code hash is filled
// with the target's current fingerprint; failing that, a single record for
// the same call under an older fingerprint is returned.
func (q *TimelockQueue) lookup(ctx context.Context, action *models.ScheduledAction) (*models.ScheduledAction, error) {
	probe := action.Clone()
	anyCode := probe.CodeHash == (common.Hash{})
	if anyCode {
		current, err := q.code.CodeHash(ctx, probe.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to read code hash of %s: %w", probe.Target.Hex(), err)
		}
		probe.CodeHash = current
	}

	key := probe.Key()
	record, err := q.store.GetAction(ctx, key)
	if errors.Is(err, domain.ErrNotFound) && anyCode {
		stale, ferr := q.store.FindByCall(ctx, probe.Target, probe.Payload, probe.ETA)
		if ferr != nil {
			return nil, ferr
		}
		if len(stale) == 1 {
			return stale[0], nil
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotScheduledError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}
