package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidAddress is returned when an address is malformed
	ErrInvalidAddress = errors.New("invalid address")

	// ErrEmptyProposal is returned when a proposal carries no actions
	ErrEmptyProposal = errors.New("empty proposal")

	// ErrAlreadyVoted is returned when a voter casts a second vote
	ErrAlreadyVoted = errors.New("vote already cast")

	// ErrSingleTargetOnly is returned by the caller-weighted veto for multi-target batches
	ErrSingleTargetOnly = errors.New("only single-target actions can be vetoed in caller mode")

	// Error classes matched by the typed errors below through errors.Is.
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAlreadyScheduled       = errors.New("action already scheduled")
	ErrDuplicateContent       = errors.New("duplicate action content")
	ErrDelayOutOfBounds       = errors.New("delay out of bounds")
	ErrCapacityExceeded       = errors.New("queue capacity exceeded")
	ErrCodeIdentityMismatch   = errors.New("code identity mismatch")
	ErrPrematureExecution     = errors.New("execution before eta")
	ErrExpired                = errors.New("execution window expired")
	ErrNotScheduled           = errors.New("action not scheduled")
	ErrInsufficientSupport    = errors.New("insufficient veto support")
	ErrInvalidState           = errors.New("invalid proposal state")
	ErrLengthMismatch         = errors.New("length mismatch")
	ErrQuorumOutOfRange       = errors.New("quorum percentage out of range")
	ErrProposerBelowThreshold = errors.New("proposer votes below threshold")
	ErrCallFailed             = errors.New("call failed")
	ErrOwnershipCorrupted     = errors.New("executor ownership corrupted")
)

// Operation names an authorization-gated call.
type Operation string

const (
	OpSchedule  Operation = "schedule"
	OpAbandon   Operation = "abandon"
	OpSetDelay  Operation = "setDelay"
	OpRun       Operation = "run"
	OpSetQuorum Operation = "setQuorumPercentage"
	OpMint      Operation = "mint"
	OpGrant     Operation = "grant"
	OpSetTarget Operation = "setTarget"
	OpCancel    Operation = "cancel"
)

// AuthorizationError is returned when the caller lacks the capability for an operation
type AuthorizationError struct {
	Caller    common.Address
	Operation Operation
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("%s is not authorized to call %s", e.Caller.Hex(), e.Operation)
}

func (e AuthorizationError) Unwrap() error { return ErrUnauthorized }

// AlreadyScheduledError is returned when the identity key is already outstanding
type AlreadyScheduledError struct {
	Key common.Hash
}

func (e AlreadyScheduledError) Error() string {
	return fmt.Sprintf("action %s is already scheduled", e.Key.Hex())
}

func (e AlreadyScheduledError) Unwrap() error { return ErrAlreadyScheduled }

// DuplicateContentError is returned when the same logical action is already pending
type DuplicateContentError struct {
	ContentKey common.Hash
}

func (e DuplicateContentError) Error() string {
	return fmt.Sprintf("an action with content %s is already pending", e.ContentKey.Hex())
}

func (e DuplicateContentError) Unwrap() error { return ErrDuplicateContent }

// DelayOutOfBoundsError reports an eta or delay outside the allowed range
type DelayOutOfBoundsError struct {
	// Delay is the requested lead time in seconds
	Delay uint64
	Min   uint64
	Max   uint64
}

// TooShort reports whether the requested delay is below the minimum
func (e DelayOutOfBoundsError) TooShort() bool {
	return e.Delay < e.Min
}

func (e DelayOutOfBoundsError) Error() string {
	if e.TooShort() {
		return fmt.Sprintf("delay %ds is shorter than the minimum %ds", e.Delay, e.Min)
	}
	return fmt.Sprintf("delay %ds exceeds the maximum %ds", e.Delay, e.Max)
}

func (e DelayOutOfBoundsError) Unwrap() error { return ErrDelayOutOfBounds }

// CapacityExceededError is returned when the queue holds max-scheduled actions
type CapacityExceededError struct {
	Max uint64
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("queue is full (%d scheduled actions)", e.Max)
}

func (e CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// CodeIdentityMismatchError is returned when a target's code changed since scheduling
type CodeIdentityMismatchError struct {
	Target   common.Address
	Expected common.Hash
	Actual   common.Hash
}

func (e CodeIdentityMismatchError) Error() string {
	return fmt.Sprintf("code of %s changed: scheduled %s, found %s",
		e.Target.Hex(), e.Expected.Hex(), e.Actual.Hex())
}

func (e CodeIdentityMismatchError) Unwrap() error { return ErrCodeIdentityMismatch }

// PrematureExecutionError is returned when executing before the eta
type PrematureExecutionError struct {
	ETA uint64
	Now uint64
}

func (e PrematureExecutionError) Error() string {
	return fmt.Sprintf("too early: eta %d, now %d", e.ETA, e.Now)
}

func (e PrematureExecutionError) Unwrap() error { return ErrPrematureExecution }

// ExpiredError is returned once the execution window has closed
type ExpiredError struct {
	ETA       uint64
	ExpiresAt uint64
	Now       uint64
}

func (e ExpiredError) Error() string {
	return fmt.Sprintf("expired: window closed at %d, now %d", e.ExpiresAt, e.Now)
}

func (e ExpiredError) Unwrap() error { return ErrExpired }

// NotScheduledError is returned when no outstanding action matches the key
type NotScheduledError struct {
	Key common.Hash
}

func (e NotScheduledError) Error() string {
	return fmt.Sprintf("action %s is not scheduled", e.Key.Hex())
}

func (e NotScheduledError) Unwrap() error { return ErrNotScheduled }

// InsufficientSupportError is returned when veto support is below the threshold
type InsufficientSupportError struct {
	Identity  common.Address
	Votes     string
	Threshold string
	Block     uint64
}

func (e InsufficientSupportError) Error() string {
	return fmt.Sprintf("%s has %s votes at block %d, veto requires %s",
		e.Identity.Hex(), e.Votes, e.Block, e.Threshold)
}

func (e InsufficientSupportError) Unwrap() error { return ErrInsufficientSupport }

// InvalidStateError is returned when a proposal is in the wrong phase for a transition
type InvalidStateError struct {
	ProposalID common.Hash
	Op         string
	State      string
	Reason     string
}

func (e InvalidStateError) Error() string {
	msg := fmt.Sprintf("cannot %s proposal %s in state %s", e.Op, e.ProposalID.Hex(), e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e InvalidStateError) Unwrap() error { return ErrInvalidState }

// Reasons carried by InvalidStateError
const (
	ReasonNotSuccessful = "proposal not successful"
	ReasonNotYetQueued  = "proposal not yet queued"
	ReasonTerminal      = "proposal is final"
	ReasonNotPending    = "voting has started"
	ReasonNotActive     = "voting is closed"
)

// LengthMismatchError is returned when targets and payloads differ in length
type LengthMismatchError struct {
	Targets  int
	Payloads int
}

func (e LengthMismatchError) Error() string {
	return fmt.Sprintf("%d targets but %d payloads", e.Targets, e.Payloads)
}

func (e LengthMismatchError) Unwrap() error { return ErrLengthMismatch }

// QuorumParameterOutOfRangeError is returned for quorum updates outside the configured bounds
type QuorumParameterOutOfRangeError struct {
	Value uint64
	Min   uint64
	Max   uint64
}

func (e QuorumParameterOutOfRangeError) Error() string {
	return fmt.Sprintf("quorum percentage %d outside [%d, %d]", e.Value, e.Min, e.Max)
}

func (e QuorumParameterOutOfRangeError) Unwrap() error { return ErrQuorumOutOfRange }

// ProposerBelowThresholdError is returned when the proposer lacks the votes to propose
type ProposerBelowThresholdError struct {
	Proposer  common.Address
	Votes     string
	Threshold string
}

func (e ProposerBelowThresholdError) Error() string {
	return fmt.Sprintf("proposer %s has %s votes, threshold is %s",
		e.Proposer.Hex(), e.Votes, e.Threshold)
}

func (e ProposerBelowThresholdError) Unwrap() error { return ErrProposerBelowThreshold }

// CallFailedError wraps a failure raised by target logic inside the executor
type CallFailedError struct {
	Target common.Address
	Err    error
}

func (e CallFailedError) Error() string {
	return fmt.Sprintf("call to %s failed: %v", e.Target.Hex(), e.Err)
}

func (e CallFailedError) Unwrap() []error { return []error{ErrCallFailed, e.Err} }

// OwnershipCorruptedError is returned when an action rewrote the executor's owner
type OwnershipCorruptedError struct {
	Expected common.Address
	Actual   common.Address
}

func (e OwnershipCorruptedError) Error() string {
	return fmt.Sprintf("executor owner changed from %s to %s", e.Expected.Hex(), e.Actual.Hex())
}

func (e OwnershipCorruptedError) Unwrap() error { return ErrOwnershipCorrupted }
