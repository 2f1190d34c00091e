package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/models"
)

// TimelockStore persists the queue's record sets. It is owned by the
// TimelockQueue; nothing else writes to it.
type TimelockStore interface {
	// GetAction returns domain.ErrNotFound when the identity key is not outstanding
	GetAction(ctx context.Context, key common.Hash) (*models.ScheduledAction, error)
	HasContent(ctx context.Context, contentKey common.Hash) (bool, error)
	// PutAction records both keys and increments the count
	PutAction(ctx context.Context, action *models.ScheduledAction) error
	// DeleteAction clears both keys and decrements the count
	DeleteAction(ctx context.Context, key common.Hash) error
	// FindByCall returns the outstanding actions for target and payload at
	// eta, under whatever code hash each was scheduled
	FindByCall(ctx context.Context, target common.Address, payload []byte, eta uint64) ([]*models.ScheduledAction, error)
	Count(ctx context.Context) (uint64, error)
	ListActions(ctx context.Context) ([]*models.ScheduledAction, error)
	// GetDelay returns domain.ErrNotFound until a delay has been stored
	GetDelay(ctx context.Context) (uint64, error)
	SetDelay(ctx context.Context, delay uint64) error
}

// GovernanceStore persists proposals, their eta and the governed quorum
type GovernanceStore interface {
	GetProposal(ctx context.Context, id common.Hash) (*models.Proposal, error)
	SaveProposal(ctx context.Context, proposal *models.Proposal) error
	ListProposals(ctx context.Context) ([]*models.Proposal, error)
	// GetQuorumPercentage returns domain.ErrNotFound until a value has been stored
	GetQuorumPercentage(ctx context.Context) (uint64, error)
	SetQuorumPercentage(ctx context.Context, percentage uint64) error
}

// VoteTally counts votes and classifies proposals into their base states
type VoteTally interface {
	Register(ctx context.Context, id common.Hash, snapshot, deadline uint64) error
	CastVote(ctx context.Context, id common.Hash, voter common.Address, support models.VoteType, weight *big.Int) error
	Votes(ctx context.Context, id common.Hash) (*models.ProposalVotes, error)
	Cancel(ctx context.Context, id common.Hash) error
	// BaseState returns one of pending, active, canceled, defeated, succeeded
	BaseState(ctx context.Context, id common.Hash, block uint64, quorum *big.Int) (models.ProposalStatus, error)
}

// StakeOracle is the vote weight source
type StakeOracle interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	// PriorVotes returns the votes delegated to account at the end of block.
	// The block must already be final, as for the other historical reads.
	PriorVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error)
	PriorBalance(ctx context.Context, account common.Address, block uint64) (*big.Int, error)
	PastTotalSupply(ctx context.Context, block uint64) (*big.Int, error)
}

// StakeLedger adds the bookkeeping operations exposed on the command line
type StakeLedger interface {
	StakeOracle
	Mint(ctx context.Context, caller, to common.Address, amount *big.Int) error
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	Delegate(ctx context.Context, delegator, delegatee common.Address) error
	Delegates(ctx context.Context, account common.Address) (common.Address, error)
	CurrentVotes(ctx context.Context, account common.Address) (*big.Int, error)
}

// Authorizer gates administrative calls
type Authorizer interface {
	IsAuthorized(ctx context.Context, caller common.Address, op domain.Operation) bool
}

// CodeRegistry reports the fingerprint of the logic deployed at a target
type CodeRegistry interface {
	// CodeHash returns the zero hash for targets without logic
	CodeHash(ctx context.Context, target common.Address) (common.Hash, error)
}

// Executor runs scheduled payloads in a context isolated from the queue
type Executor interface {
	Address() common.Address
	Owner(ctx context.Context) (common.Address, error)
	// Run leaves the executor's storage untouched when it fails
	Run(ctx context.Context, caller, target common.Address, payload []byte) ([]byte, error)
	// Revert undoes the storage writes of the most recent successful Run
	Revert(ctx context.Context) error
}

// Clock exposes the two clocks of the engine
type Clock interface {
	// BlockNumber drives the voting window
	BlockNumber() uint64
	// Timestamp drives eta and expiry, in unix seconds
	Timestamp() uint64
}

// Progress tracking interfaces

// StageExecuting is reported while a proposal's actions run
const StageExecuting = "executing"

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// ProposalSelector handles interactive selection of proposals
type ProposalSelector interface {
	SelectProposal(ctx context.Context, proposals []*models.Proposal, prompt string) (*models.Proposal, error)
	Confirm(ctx context.Context, prompt string) (bool, error)
}
