package render

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters/chain"
)

// AccountSummary is the stake position of one account
type AccountSummary struct {
	Account   common.Address `json:"account"`
	Balance   *big.Int       `json:"balance"`
	Delegate  common.Address `json:"delegate"`
	Votes     *big.Int       `json:"votes"`
	Supply    *big.Int       `json:"totalSupply"`
	Threshold *big.Int       `json:"proposalThreshold"`
}

// RenderAccount renders a stake position
func RenderAccount(out io.Writer, s AccountSummary) error {
	sectionHeaderStyle.Fprintf(out, "Account %s\n", s.Account.Hex())
	field(out, "Balance", FormatAmount(s.Balance))
	delegate := "none"
	if s.Delegate != (common.Address{}) {
		delegate = addressStyle.Sprint(s.Delegate.Hex())
	}
	field(out, "Delegate", delegate)
	field(out, "Votes", FormatAmount(s.Votes))
	field(out, "Supply", FormatAmount(s.Supply))
	if s.Votes.Cmp(s.Threshold) >= 0 {
		field(out, "Proposer", readyStyle.Sprint("eligible"))
	} else {
		field(out, "Proposer", pendingStyle.Sprintf("needs %s votes", FormatAmount(s.Threshold)))
	}
	return nil
}

// RenderHead renders the simulated chain head
func RenderHead(out io.Writer, head chain.Head) error {
	field(out, "Block", fmt.Sprint(head.Block))
	field(out, "Timestamp", fmt.Sprintf("%d (%s)", head.Timestamp, FormatTimestamp(head.Timestamp)))
	return nil
}
