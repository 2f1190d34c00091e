package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/app"
	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ActionSpec is one action of a batch file
type ActionSpec struct {
	// Target is an installed target alias or a hex address
	Target string `yaml:"target"`
	// Call and Args are encoded against the target's ABI
	Call string   `yaml:"call,omitempty"`
	Args []string `yaml:"args,omitempty"`
	// Payload is used verbatim when Call is empty
	Payload string `yaml:"payload,omitempty"`
}

// BatchFile is the YAML document accepted by --batch
type BatchFile struct {
	Description string       `yaml:"description"`
	ETA         uint64       `yaml:"eta,omitempty"`
	Actions     []ActionSpec `yaml:"actions"`
}

// Batch is an ordered list of resolved actions
type Batch struct {
	Description string
	ETA         uint64
	Targets     []common.Address
	Payloads    []hexutil.Bytes
}

// loadBatchFile reads a YAML batch file
func loadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var file BatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	if len(file.Actions) == 0 {
		return nil, fmt.Errorf("batch file %s: %w", path, domain.ErrEmptyProposal)
	}
	return &file, nil
}

// resolveBatch turns action specs into targets and payloads
func resolveBatch(a *app.App, specs []ActionSpec) ([]common.Address, []hexutil.Bytes, error) {
	addrs := make([]common.Address, len(specs))
	payloads := make([]hexutil.Bytes, len(specs))
	for i, spec := range specs {
		target, payload, err := resolveAction(a, spec)
		if err != nil {
			return nil, nil, fmt.Errorf("action %d: %w", i, err)
		}
		addrs[i] = target
		payloads[i] = payload
	}
	return addrs, payloads, nil
}

func resolveAction(a *app.App, spec ActionSpec) (common.Address, hexutil.Bytes, error) {
	target, err := a.Targets.Resolve(spec.Target)
	if err != nil {
		return common.Address{}, nil, err
	}

	if spec.Call == "" {
		payload, err := hexutil.Decode(ensureHexPrefix(spec.Payload))
		if err != nil {
			return common.Address{}, nil, fmt.Errorf("invalid payload %q: %w", spec.Payload, err)
		}
		return target, payload, nil
	}

	logic, ok := a.Targets.Logic(target)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("cannot encode %s for %s: %w", spec.Call, target.Hex(), targets.ErrUnknownLogic)
	}
	payload, err := targets.EncodeCall(logic.ABI(), spec.Call, spec.Args)
	if err != nil {
		return common.Address{}, nil, err
	}
	return target, payload, nil
}

// batchFromFlags builds a batch from --batch or from the single-action flags
func batchFromFlags(cmd *cobra.Command, a *app.App) (*Batch, error) {
	batchPath, _ := cmd.Flags().GetString("batch")
	description, _ := cmd.Flags().GetString("description")

	var specs []ActionSpec
	batch := &Batch{Description: description}
	if batchPath != "" {
		file, err := loadBatchFile(batchPath)
		if err != nil {
			return nil, err
		}
		specs = file.Actions
		batch.ETA = file.ETA
		if batch.Description == "" {
			batch.Description = file.Description
		}
	} else {
		target, _ := cmd.Flags().GetString("target")
		if target == "" {
			return nil, fmt.Errorf("either --batch or --target is required")
		}
		call, _ := cmd.Flags().GetString("call")
		args, _ := cmd.Flags().GetStringArray("arg")
		payload, _ := cmd.Flags().GetString("payload")
		if call == "" && payload == "" {
			return nil, fmt.Errorf("either --call or --payload is required with --target")
		}
		specs = []ActionSpec{{Target: target, Call: call, Args: args, Payload: payload}}
	}

	if f := cmd.Flags().Lookup("eta"); f != nil && f.Changed {
		batch.ETA, _ = cmd.Flags().GetUint64("eta")
	}

	var err error
	batch.Targets, batch.Payloads, err = resolveBatch(a, specs)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// addBatchFlags registers the flags read by batchFromFlags
func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("batch", "", "YAML file listing the actions")
	cmd.Flags().String("target", "", "Target alias or address of a single action")
	cmd.Flags().String("call", "", "Method to call on the target")
	cmd.Flags().StringArray("arg", nil, "Method argument (repeatable)")
	cmd.Flags().String("payload", "", "Raw payload, hex encoded, used instead of --call")
}

func ensureHexPrefix(s string) string {
	if s == "" || strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// caller resolves the --from account
func caller(cmd *cobra.Command, a *app.App) (common.Address, error) {
	from, _ := cmd.Flags().GetString("from")
	return a.Account(from)
}

// describer renders payloads through the ABI of the logic at the target
func describer(a *app.App) render.CallDescriber {
	return func(target common.Address, payload []byte) string {
		if logic, ok := a.Targets.Logic(target); ok {
			return targets.DescribeCall(logic.ABI(), payload)
		}
		return hexutil.Encode(payload)
	}
}

// resolveProposal finds a proposal by full id or id prefix. Without a
// reference the user picks among the proposals in the given states.
func resolveProposal(ctx context.Context, a *app.App, ref string, states ...models.ProposalStatus) (*models.Proposal, error) {
	views, err := a.Governor.ListProposals(ctx)
	if err != nil {
		return nil, err
	}

	if ref != "" {
		ref = strings.ToLower(ensureHexPrefix(ref))
		matches := lo.Filter(views, func(v usecase.ProposalView, _ int) bool {
			return strings.HasPrefix(strings.ToLower(v.Proposal.ID.Hex()), ref)
		})
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("proposal %s: %w", ref, domain.ErrNotFound)
		case 1:
			return matches[0].Proposal, nil
		}
		if a.Config.NonInteractive {
			return nil, fmt.Errorf("proposal prefix %s is ambiguous (%d matches)", ref, len(matches))
		}
		views = matches
	} else if len(states) > 0 {
		views = lo.Filter(views, func(v usecase.ProposalView, _ int) bool {
			return lo.Contains(states, v.State)
		})
	}

	if len(views) == 0 {
		return nil, fmt.Errorf("no matching proposals: %w", domain.ErrNotFound)
	}
	if len(views) > 1 && a.Config.NonInteractive {
		return nil, fmt.Errorf("a proposal id is required in non-interactive mode")
	}

	proposals := lo.Map(views, func(v usecase.ProposalView, _ int) *models.Proposal { return v.Proposal })
	return a.Selector.SelectProposal(ctx, proposals, "Select a proposal")
}
