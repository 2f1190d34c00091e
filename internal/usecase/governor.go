package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/samber/lo"
)

// TimelockBackend is the part of the timelock queue the governor drives
type TimelockBackend interface {
	Delay(ctx context.Context) (uint64, error)
	Params() TimelockParams
	Schedule(ctx context.Context, caller common.Address, action *models.ScheduledAction) (*models.ScheduledAction, error)
	Execute(ctx context.Context, caller common.Address, action *models.ScheduledAction) ([]byte, error)
	Abandon(ctx context.Context, caller common.Address, action *models.ScheduledAction) error
}

// Governor is the proposal state machine. It composes the vote tally with
// the timelock queue and exposes the propose/queue/execute/cancel flow.
type Governor struct {
	address  common.Address
	executor common.Address
	voting   config.VotingConfig
	quorum   config.QuorumConfig
	store    GovernanceStore
	tally    VoteTally
	stake    StakeOracle
	timelock TimelockBackend
	clock    Clock
	progress ProgressSink
	log      *slog.Logger

	mu sync.Mutex
}

// NewGovernor creates a new governor
func NewGovernor(
	cfg *config.RuntimeConfig,
	store GovernanceStore,
	tally VoteTally,
	stake StakeOracle,
	timelock TimelockBackend,
	clock Clock,
	progress ProgressSink,
	log *slog.Logger,
) *Governor {
	gov := cfg.Governance
	return &Governor{
		address:  gov.Addresses.Governor,
		executor: gov.Addresses.Executor,
		voting:   gov.Voting,
		quorum:   gov.Quorum,
		store:    store,
		tally:    tally,
		stake:    stake,
		timelock: timelock,
		clock:    clock,
		progress: progress,
		log:      log.With("component", "governor"),
	}
}

// ActionOutcome is the result of one action inside a proposal execution
type ActionOutcome struct {
	Action *models.ScheduledAction
	Output []byte
	Err    error
}

// ExecutionReport collects per-action outcomes. A proposal is marked executed
// whatever the outcomes are; failures are reported, not raised.
type ExecutionReport struct {
	ProposalID common.Hash
	ExecutedAt uint64
	Outcomes   []ActionOutcome
}

// Succeeded counts the actions that ran
func (r *ExecutionReport) Succeeded() int {
	return lo.CountBy(r.Outcomes, func(o ActionOutcome) bool { return o.Err == nil })
}

// Failed returns the actions that did not run
func (r *ExecutionReport) Failed() []ActionOutcome {
	return lo.Filter(r.Outcomes, func(o ActionOutcome, _ int) bool { return o.Err != nil })
}

// Address is the identity the governor presents to the timelock
func (g *Governor) Address() common.Address {
	return g.address
}

// ProposalThreshold is the vote weight required to propose
func (g *Governor) ProposalThreshold() *big.Int {
	if g.voting.ProposalThreshold == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(g.voting.ProposalThreshold)
}

// Propose registers a new proposal and opens its voting window
func (g *Governor) Propose(
	ctx context.Context,
	proposer common.Address,
	targets []common.Address,
	payloads []hexutil.Bytes,
	description string,
) (*models.Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(targets) != len(payloads) {
		return nil, domain.LengthMismatchError{Targets: len(targets), Payloads: len(payloads)}
	}
	if len(targets) == 0 {
		return nil, domain.ErrEmptyProposal
	}

	block := g.clock.BlockNumber()
	votes, err := g.priorVotes(ctx, proposer, block)
	if err != nil {
		return nil, err
	}
	threshold := g.ProposalThreshold()
	if votes.Cmp(threshold) < 0 {
		return nil, domain.ProposerBelowThresholdError{
			Proposer:  proposer,
			Votes:     votes.String(),
			Threshold: threshold.String(),
		}
	}

	descriptionHash := models.HashDescription(description)
	id := models.HashProposal(targets, payloads, descriptionHash)
	if _, err := g.store.GetProposal(ctx, id); err == nil {
		return nil, fmt.Errorf("proposal %s: %w", id.Hex(), domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	pct, err := g.QuorumPercentage(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := block + g.voting.VotingDelay
	proposal := &models.Proposal{
		ID:              id,
		Proposer:        proposer,
		Targets:         append([]common.Address(nil), targets...),
		Payloads:        append([]hexutil.Bytes(nil), payloads...),
		Description:     description,
		DescriptionHash: descriptionHash,
		Snapshot:        snapshot,
		Deadline:        snapshot + g.voting.VotingPeriod,
		ProposedAt:      g.clock.Timestamp(),

		QuorumPercentage: pct,
	}

	if err := g.tally.Register(ctx, id, proposal.Snapshot, proposal.Deadline); err != nil {
		return nil, fmt.Errorf("failed to register proposal with tally: %w", err)
	}
	if err := g.store.SaveProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to save proposal: %w", err)
	}

	g.log.Info("proposal created",
		"id", id.Hex(),
		"proposer", proposer.Hex(),
		"actions", len(targets),
		"snapshot", proposal.Snapshot,
		"deadline", proposal.Deadline,
	)
	return proposal, nil
}

// State derives the externally visible state of a proposal
func (g *Governor) State(ctx context.Context, id common.Hash) (models.ProposalStatus, error) {
	proposal, err := g.store.GetProposal(ctx, id)
	if err != nil {
		return "", err
	}
	return g.state(ctx, proposal)
}

func (g *Governor) state(ctx context.Context, proposal *models.Proposal) (models.ProposalStatus, error) {
	if proposal.Executed {
		return models.ProposalStatusExecuted, nil
	}
	if proposal.Canceled {
		return models.ProposalStatusCanceled, nil
	}

	block := g.clock.BlockNumber()
	quorum := new(big.Int)
	if block > proposal.Snapshot {
		var err error
		if quorum, err = g.ProposalQuorum(ctx, proposal); err != nil {
			return "", err
		}
	}
	base, err := g.tally.BaseState(ctx, proposal.ID, block, quorum)
	if err != nil {
		return "", err
	}
	if base != models.ProposalStatusSucceeded || proposal.ETA == 0 {
		return base, nil
	}

	if g.clock.Timestamp() >= proposal.ETA+g.timelock.Params().ExecutionWindow {
		return models.ProposalStatusExpired, nil
	}
	return models.ProposalStatusQueued, nil
}

// CastVote records a vote weighted by the voter's delegated stake at the snapshot
func (g *Governor) CastVote(ctx context.Context, voter common.Address, id common.Hash, support models.VoteType) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	proposal, err := g.store.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := g.state(ctx, proposal)
	if err != nil {
		return nil, err
	}
	if state != models.ProposalStatusActive {
		return nil, g.invalidState(proposal, "vote on", state, domain.ReasonNotActive)
	}

	weight, err := g.stake.PriorVotes(ctx, voter, proposal.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to read votes of %s: %w", voter.Hex(), err)
	}
	if err := g.tally.CastVote(ctx, id, voter, support, weight); err != nil {
		return nil, err
	}

	g.log.Info("vote cast",
		"id", id.Hex(),
		"voter", voter.Hex(),
		"support", support.String(),
		"weight", weight.String(),
	)
	return weight, nil
}

// Queue schedules every action of a succeeded proposal under one eta
func (g *Governor) Queue(ctx context.Context, descriptor models.ProposalDescriptor) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	proposal, err := g.store.GetProposal(ctx, descriptor.ID())
	if err != nil {
		return 0, err
	}
	state, err := g.state(ctx, proposal)
	if err != nil {
		return 0, err
	}
	if state != models.ProposalStatusSucceeded {
		return 0, g.invalidState(proposal, "queue", state, domain.ReasonNotSuccessful)
	}

	delay, err := g.timelock.Delay(ctx)
	if err != nil {
		return 0, err
	}
	eta := g.clock.Timestamp() + delay

	scheduled := make([]*models.ScheduledAction, 0, len(proposal.Targets))
	for i, target := range proposal.Targets {
		record, err := g.timelock.Schedule(ctx, g.address, &models.ScheduledAction{
			Target:  target,
			Payload: proposal.Payloads[i],
			ETA:     eta,
		})
		if err != nil {
			g.unwind(ctx, scheduled)
			return 0, fmt.Errorf("failed to schedule action %d of %s: %w", i, proposal.ID.Hex(), err)
		}
		scheduled = append(scheduled, record)
	}

	proposal.ETA = eta
	proposal.CodeHashes = lo.Map(scheduled, func(a *models.ScheduledAction, _ int) common.Hash { return a.CodeHash })
	if err := g.store.SaveProposal(ctx, proposal); err != nil {
		g.unwind(ctx, scheduled)
		return 0, fmt.Errorf("failed to save proposal: %w", err)
	}

	g.log.Info("proposal queued", "id", proposal.ID.Hex(), "eta", eta)
	return eta, nil
}

// Execute runs every action of a queued proposal. Individual action failures
// are collected in the report and the proposal still becomes executed.
func (g *Governor) Execute(ctx context.Context, caller common.Address, descriptor models.ProposalDescriptor) (*ExecutionReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	proposal, err := g.store.GetProposal(ctx, descriptor.ID())
	if err != nil {
		return nil, err
	}
	state, err := g.state(ctx, proposal)
	if err != nil {
		return nil, err
	}
	if state.IsTerminal() {
		return nil, g.invalidState(proposal, "execute", state, domain.ReasonTerminal)
	}
	if proposal.ETA == 0 || state != models.ProposalStatusQueued {
		return nil, g.invalidState(proposal, "execute", state, domain.ReasonNotYetQueued)
	}

	now := g.clock.Timestamp()
	if now < proposal.ETA {
		return nil, domain.PrematureExecutionError{ETA: proposal.ETA, Now: now}
	}

	report := &ExecutionReport{ProposalID: proposal.ID, ExecutedAt: now}
	actions := proposal.Actions()
	for i, action := range actions {
		g.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageExecuting,
			Current:  i + 1,
			Total:    len(actions),
			Message:  fmt.Sprintf("Executing action on %s", action.Target.Hex()),
			Spinner:  true,
			Metadata: action,
		})
		output, err := g.timelock.Execute(ctx, caller, action)
		if err != nil {
			g.log.Warn("proposal action failed",
				"id", proposal.ID.Hex(),
				"target", action.Target.Hex(),
				"error", err,
			)
		}
		report.Outcomes = append(report.Outcomes, ActionOutcome{Action: action, Output: output, Err: err})
	}
	g.progress.OnProgress(ctx, ProgressEvent{Stage: StageExecuting, Current: len(actions), Total: len(actions)})

	proposal.Executed = true
	proposal.ExecutedAt = now
	if err := g.store.SaveProposal(ctx, proposal); err != nil {
		return report, fmt.Errorf("failed to save proposal: %w", err)
	}

	g.log.Info("proposal executed",
		"id", proposal.ID.Hex(),
		"succeeded", report.Succeeded(),
		"failed", len(report.Failed()),
	)
	return report, nil
}

// Cancel cancels a proposal and abandons whatever it left in the queue
func (g *Governor) Cancel(ctx context.Context, caller common.Address, descriptor models.ProposalDescriptor) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	proposal, err := g.store.GetProposal(ctx, descriptor.ID())
	if err != nil {
		return err
	}
	state, err := g.state(ctx, proposal)
	if err != nil {
		return err
	}
	if state.IsTerminal() {
		return g.invalidState(proposal, "cancel", state, domain.ReasonTerminal)
	}

	switch g.voting.CancelPolicy {
	case config.CancelPolicyPending:
		if state != models.ProposalStatusPending {
			return g.invalidState(proposal, "cancel", state, domain.ReasonNotPending)
		}
	default:
		if caller != proposal.Proposer {
			return domain.AuthorizationError{Caller: caller, Operation: domain.OpCancel}
		}
	}

	if proposal.ETA != 0 {
		for _, action := range proposal.Actions() {
			err := g.timelock.Abandon(ctx, g.address, action)
			if err != nil && !errors.Is(err, domain.ErrNotScheduled) {
				return fmt.Errorf("failed to abandon action on %s: %w", action.Target.Hex(), err)
			}
		}
	}

	if err := g.tally.Cancel(ctx, proposal.ID); err != nil {
		return fmt.Errorf("failed to cancel tally: %w", err)
	}
	proposal.Canceled = true
	if err := g.store.SaveProposal(ctx, proposal); err != nil {
		return fmt.Errorf("failed to save proposal: %w", err)
	}

	g.log.Info("proposal canceled", "id", proposal.ID.Hex(), "caller", caller.Hex(), "was", state)
	return nil
}

// QuorumPercentage returns the governed quorum fraction in thousandths
func (g *Governor) QuorumPercentage(ctx context.Context) (uint64, error) {
	pct, err := g.store.GetQuorumPercentage(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return g.quorum.Percentage, nil
	}
	return pct, err
}

// QuorumBounds returns the allowed range of the quorum fraction
func (g *Governor) QuorumBounds() (uint64, uint64) {
	return g.quorum.Min, g.quorum.Max
}

// Quorum is the participation a proposal made now would need at the current
// supply, as a fraction of circulating supply (total supply minus the
// excluded holder)
func (g *Governor) Quorum(ctx context.Context) (*big.Int, error) {
	pct, err := g.QuorumPercentage(ctx)
	if err != nil {
		return nil, err
	}
	return g.currentQuorum(ctx, pct)
}

func (g *Governor) currentQuorum(ctx context.Context, pct uint64) (*big.Int, error) {
	supply, err := g.stake.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}
	excluded := new(big.Int)
	if g.quorum.ExcludedHolder != (common.Address{}) {
		if excluded, err = g.stake.BalanceOf(ctx, g.quorum.ExcludedHolder); err != nil {
			return nil, err
		}
	}
	return quorumOf(supply, excluded, pct), nil
}

// ProposalQuorum is the participation the proposal needs: its recorded
// fraction of the circulating supply at its snapshot. Neither later minting
// nor later quorum changes move it. The snapshot must be final.
func (g *Governor) ProposalQuorum(ctx context.Context, proposal *models.Proposal) (*big.Int, error) {
	supply, err := g.stake.PastTotalSupply(ctx, proposal.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to read supply at block %d: %w", proposal.Snapshot, err)
	}
	excluded := new(big.Int)
	if g.quorum.ExcludedHolder != (common.Address{}) {
		excluded, err = g.stake.PriorBalance(ctx, g.quorum.ExcludedHolder, proposal.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to read excluded balance at block %d: %w", proposal.Snapshot, err)
		}
	}
	return quorumOf(supply, excluded, proposal.QuorumPercentage), nil
}

func quorumOf(supply, excluded *big.Int, pct uint64) *big.Int {
	circulating := new(big.Int).Sub(supply, excluded)
	if circulating.Sign() < 0 {
		circulating.SetInt64(0)
	}
	quorum := circulating.Mul(circulating, new(big.Int).SetUint64(pct))
	return quorum.Div(quorum, big.NewInt(1000))
}

// SetQuorumPercentage updates the quorum fraction. Only the executor may call
// it, so the change has to come through a passed proposal.
func (g *Governor) SetQuorumPercentage(ctx context.Context, caller common.Address, pct uint64) error {
	if caller != g.executor {
		return domain.AuthorizationError{Caller: caller, Operation: domain.OpSetQuorum}
	}
	if pct < g.quorum.Min || pct > g.quorum.Max {
		return domain.QuorumParameterOutOfRangeError{Value: pct, Min: g.quorum.Min, Max: g.quorum.Max}
	}

	old, err := g.QuorumPercentage(ctx)
	if err != nil {
		return err
	}
	if err := g.store.SetQuorumPercentage(ctx, pct); err != nil {
		return fmt.Errorf("failed to store quorum percentage: %w", err)
	}

	g.log.Info("quorum percentage updated", "old", old, "new", pct)
	return nil
}

// Proposal returns a stored proposal
func (g *Governor) Proposal(ctx context.Context, id common.Hash) (*models.Proposal, error) {
	return g.store.GetProposal(ctx, id)
}

// Votes returns the tally of a proposal
func (g *Governor) Votes(ctx context.Context, id common.Hash) (*models.ProposalVotes, error) {
	return g.tally.Votes(ctx, id)
}

// ProposalView is a proposal together with its derived state. Quorum is
// estimated from the current supply until the snapshot is final.
type ProposalView struct {
	Proposal *models.Proposal
	State    models.ProposalStatus
	Votes    *models.ProposalVotes
	Quorum   *big.Int
}

// ListProposals returns every proposal with its state, newest first
func (g *Governor) ListProposals(ctx context.Context) ([]ProposalView, error) {
	proposals, err := g.store.ListProposals(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Snapshot > proposals[j].Snapshot
	})

	views := make([]ProposalView, 0, len(proposals))
	for _, p := range proposals {
		view, err := g.view(ctx, p)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Show returns a single proposal with its state
func (g *Governor) Show(ctx context.Context, id common.Hash) (ProposalView, error) {
	proposal, err := g.store.GetProposal(ctx, id)
	if err != nil {
		return ProposalView{}, err
	}
	return g.view(ctx, proposal)
}

func (g *Governor) view(ctx context.Context, proposal *models.Proposal) (ProposalView, error) {
	state, err := g.state(ctx, proposal)
	if err != nil {
		return ProposalView{}, err
	}
	votes, err := g.tally.Votes(ctx, proposal.ID)
	if err != nil {
		return ProposalView{}, err
	}

	var quorum *big.Int
	if g.clock.BlockNumber() > proposal.Snapshot {
		quorum, err = g.ProposalQuorum(ctx, proposal)
	} else {
		quorum, err = g.currentQuorum(ctx, proposal.QuorumPercentage)
	}
	if err != nil {
		return ProposalView{}, err
	}
	return ProposalView{Proposal: proposal, State: state, Votes: votes, Quorum: quorum}, nil
}

// priorVotes reads the votes of account at the last final block
func (g *Governor) priorVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	if block == 0 {
		return new(big.Int), nil
	}
	votes, err := g.stake.PriorVotes(ctx, account, block-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read votes of %s: %w", account.Hex(), err)
	}
	return votes, nil
}

// unwind abandons actions scheduled by a queue call that failed halfway
func (g *Governor) unwind(ctx context.Context, scheduled []*models.ScheduledAction) {
	for _, action := range scheduled {
		if err := g.timelock.Abandon(ctx, g.address, action); err != nil {
			g.log.Error("failed to unwind scheduled action", "target", action.Target.Hex(), "error", err)
		}
	}
}

func (g *Governor) invalidState(proposal *models.Proposal, op string, state models.ProposalStatus, reason string) error {
	if state.IsTerminal() {
		reason = domain.ReasonTerminal
	}
	return domain.InvalidStateError{ProposalID: proposal.ID, Op: op, State: string(state), Reason: reason}
}
