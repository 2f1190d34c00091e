package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/samber/lo"
)

// VetoBackend is the part of the timelock queue the veto authority uses
type VetoBackend interface {
	Matching(ctx context.Context, action *models.ScheduledAction) ([]*models.ScheduledAction, error)
	Abandon(ctx context.Context, caller common.Address, action *models.ScheduledAction) error
}

// VetoAuthority abandons scheduled actions once enough stake backs the veto
type VetoAuthority struct {
	address  common.Address
	cfg      config.VetoConfig
	stake    StakeOracle
	timelock VetoBackend
	clock    Clock
	log      *slog.Logger
}

// NewVetoAuthority creates a new veto authority
func NewVetoAuthority(
	cfg *config.RuntimeConfig,
	stake StakeOracle,
	timelock VetoBackend,
	clock Clock,
	log *slog.Logger,
) *VetoAuthority {
	return &VetoAuthority{
		address:  cfg.Governance.Addresses.Veto,
		cfg:      cfg.Governance.Veto,
		stake:    stake,
		timelock: timelock,
		clock:    clock,
		log:      log.With("component", "veto"),
	}
}

// VetoResult describes a successful veto
type VetoResult struct {
	Identity  common.Address
	Votes     *big.Int
	Threshold *big.Int
	Block     uint64
	Abandoned []*models.ScheduledAction
}

// Mode returns the configured support measurement
func (v *VetoAuthority) Mode() config.VetoMode {
	if v.cfg.Mode == "" {
		return config.VetoModeIdentity
	}
	return v.cfg.Mode
}

// VetoThreshold is total supply × supply percentage / 1000
func (v *VetoAuthority) VetoThreshold(ctx context.Context) (*big.Int, error) {
	supply, err := v.stake.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}
	threshold := new(big.Int).Mul(supply, new(big.Int).SetUint64(v.cfg.SupplyPercentage))
	return threshold.Div(threshold, big.NewInt(1000)), nil
}

// ProposalIdentity derives the delegation key of an ordered batch and its eta
func (v *VetoAuthority) ProposalIdentity(targets []common.Address, payloads []hexutil.Bytes, eta uint64) (common.Address, error) {
	if len(targets) != len(payloads) {
		return common.Address{}, domain.LengthMismatchError{Targets: len(targets), Payloads: len(payloads)}
	}
	return models.ProposalIdentity(targets, payloads, eta), nil
}

// SupportBlock is the block whose delegations a veto issued now is measured at
func (v *VetoAuthority) SupportBlock() (uint64, bool) {
	block := v.clock.BlockNumber()
	if block < v.cfg.Lag {
		return 0, false
	}
	return block - v.cfg.Lag, true
}

// VetoProposal abandons every listed action when the stake behind the veto
// reaches the threshold. Either all actions are abandoned or none.
func (v *VetoAuthority) VetoProposal(
	ctx context.Context,
	caller common.Address,
	targets []common.Address,
	payloads []hexutil.Bytes,
	eta uint64,
) (*VetoResult, error) {
	if len(targets) != len(payloads) {
		return nil, domain.LengthMismatchError{Targets: len(targets), Payloads: len(payloads)}
	}
	if len(targets) == 0 {
		return nil, domain.ErrEmptyProposal
	}

	identity := models.ProposalIdentity(targets, payloads, eta)
	if v.Mode() == config.VetoModeCaller {
		if len(targets) != 1 {
			return nil, domain.ErrSingleTargetOnly
		}
		identity = caller
	}

	threshold, err := v.VetoThreshold(ctx)
	if err != nil {
		return nil, err
	}

	votes := new(big.Int)
	block, ok := v.SupportBlock()
	if ok {
		votes, err = v.stake.PriorVotes(ctx, identity, block)
		if err != nil {
			return nil, fmt.Errorf("failed to read votes of %s: %w", identity.Hex(), err)
		}
	}
	if votes.Cmp(threshold) < 0 {
		return nil, domain.InsufficientSupportError{
			Identity:  identity,
			Votes:     votes.String(),
			Threshold: threshold.String(),
			Block:     block,
		}
	}

	// Every scheduled version of each call goes, whatever logic now sits at
	// the target; nothing is abandoned unless all calls are found.
	var records []*models.ScheduledAction
	for i, target := range targets {
		matches, err := v.timelock.Matching(ctx, &models.ScheduledAction{Target: target, Payload: payloads[i], ETA: eta})
		if err != nil {
			return nil, err
		}
		records = append(records, matches...)
	}
	records = lo.UniqBy(records, func(r *models.ScheduledAction) common.Hash { return r.Key() })
	for _, record := range records {
		if err := v.timelock.Abandon(ctx, v.address, record); err != nil {
			return nil, fmt.Errorf("failed to abandon action on %s: %w", record.Target.Hex(), err)
		}
	}

	v.log.Info("veto applied",
		"identity", identity.Hex(),
		"votes", votes.String(),
		"threshold", threshold.String(),
		"actions", len(records),
		"caller", caller.Hex(),
	)
	return &VetoResult{
		Identity:  identity,
		Votes:     votes,
		Threshold: threshold,
		Block:     block,
		Abandoned: records,
	}, nil
}
