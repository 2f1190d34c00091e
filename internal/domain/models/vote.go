package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// VoteType is the choice a voter casts
type VoteType uint8

const (
	VoteAgainst VoteType = 0
	VoteFor     VoteType = 1
	VoteAbstain VoteType = 2
)

func (v VoteType) String() string {
	switch v {
	case VoteAgainst:
		return "against"
	case VoteFor:
		return "for"
	case VoteAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// ParseVoteType accepts the names used on the command line
func ParseVoteType(s string) (VoteType, error) {
	switch strings.ToLower(s) {
	case "against", "no", "0":
		return VoteAgainst, nil
	case "for", "yes", "support", "1":
		return VoteFor, nil
	case "abstain", "2":
		return VoteAbstain, nil
	}
	return 0, fmt.Errorf("unknown vote type %q", s)
}

// ProposalVotes holds the running tally of one proposal
type ProposalVotes struct {
	Against *big.Int                    `json:"against"`
	For     *big.Int                    `json:"for"`
	Abstain *big.Int                    `json:"abstain"`
	Voters  map[common.Address]VoteType `json:"voters"`
}

// NewProposalVotes returns an empty tally
func NewProposalVotes() *ProposalVotes {
	return &ProposalVotes{
		Against: new(big.Int),
		For:     new(big.Int),
		Abstain: new(big.Int),
		Voters:  make(map[common.Address]VoteType),
	}
}

// Participation is the weight counted towards quorum
func (v *ProposalVotes) Participation() *big.Int {
	return new(big.Int).Add(v.For, v.Abstain)
}
