package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProposalStatus represents the externally visible lifecycle state of a proposal
type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusActive    ProposalStatus = "active"
	ProposalStatusCanceled  ProposalStatus = "canceled"
	ProposalStatusDefeated  ProposalStatus = "defeated"
	ProposalStatusSucceeded ProposalStatus = "succeeded"
	ProposalStatusQueued    ProposalStatus = "queued"
	ProposalStatusExpired   ProposalStatus = "expired"
	ProposalStatusExecuted  ProposalStatus = "executed"
)

// IsTerminal reports whether no further transition is possible
func (s ProposalStatus) IsTerminal() bool {
	switch s {
	case ProposalStatusCanceled, ProposalStatusDefeated, ProposalStatusExpired, ProposalStatusExecuted:
		return true
	}
	return false
}

// ProposalDescriptor identifies a proposal by its content
type ProposalDescriptor struct {
	Targets         []common.Address `json:"targets" yaml:"targets"`
	Payloads        []hexutil.Bytes  `json:"payloads" yaml:"payloads"`
	DescriptionHash common.Hash      `json:"descriptionHash" yaml:"descriptionHash"`
}

// ID derives the proposal id
func (d ProposalDescriptor) ID() common.Hash {
	return HashProposal(d.Targets, d.Payloads, d.DescriptionHash)
}

// Proposal represents a governance proposal record for persistence
type Proposal struct {
	// Identification
	ID       common.Hash    `json:"id"`
	Proposer common.Address `json:"proposer"`

	// Actions, executed together under one eta
	Targets  []common.Address `json:"targets"`
	Payloads []hexutil.Bytes  `json:"payloads"`

	// CodeHashes are the target fingerprints captured when the proposal was queued
	CodeHashes []common.Hash `json:"codeHashes,omitempty"`

	Description     string      `json:"description"`
	DescriptionHash common.Hash `json:"descriptionHash"`

	// Voting window in blocks
	Snapshot uint64 `json:"snapshot"`
	Deadline uint64 `json:"deadline"`

	// QuorumPercentage is the quorum fraction in force when the proposal was made
	QuorumPercentage uint64 `json:"quorumPercentage"`

	// ETA is zero until the proposal is queued
	ETA uint64 `json:"eta,omitempty"`

	Executed   bool   `json:"executed,omitempty"`
	Canceled   bool   `json:"canceled,omitempty"`
	ProposedAt uint64 `json:"proposedAt"`
	ExecutedAt uint64 `json:"executedAt,omitempty"`
}

// Descriptor returns the content descriptor of the proposal
func (p *Proposal) Descriptor() ProposalDescriptor {
	return ProposalDescriptor{
		Targets:         p.Targets,
		Payloads:        p.Payloads,
		DescriptionHash: p.DescriptionHash,
	}
}

// Actions expands the proposal into the scheduled actions sharing its eta
func (p *Proposal) Actions() []*ScheduledAction {
	actions := make([]*ScheduledAction, len(p.Targets))
	for i, target := range p.Targets {
		action := &ScheduledAction{
			Target:  target,
			Payload: p.Payloads[i],
			ETA:     p.ETA,
		}
		if i < len(p.CodeHashes) {
			action.CodeHash = p.CodeHashes[i]
		}
		actions[i] = action
	}
	return actions
}
