package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/bindings"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// AdvanceTargets are the states the harness can drive a proposal into
var AdvanceTargets = []models.ProposalState{
	models.ProposalStateActive,
	models.ProposalStateSucceeded,
	models.ProposalStateQueued,
	models.ProposalStateExecuted,
}

// AdvanceStep records one mutation made by the harness
type AdvanceStep struct {
	From   models.ProposalState
	To     models.ProposalState
	Action string
}

// AdvanceResult is the structured outcome of an advancement run
type AdvanceResult struct {
	ProposalID models.ProposalID
	Success    bool
	FromState  models.ProposalState
	ToState    models.ProposalState
	Message    string
	Steps      []AdvanceStep
	Reverted   bool
}

// AdvanceProposalParams contains parameters for advancing a proposal
type AdvanceProposalParams struct {
	Proposal *models.ProposalRecord
	Target   models.ProposalState
}

// AdvanceProposal drives a proposal through its lifecycle on a test ledger
// with the smallest synthetic progression: mining heights across the
// snapshot or deadline, advancing time past the eta, and submitting the
// queue and execute calls.
type AdvanceProposal struct {
	cfg      *config.RuntimeConfig
	chain    ChainReader
	governor GovernorReader
	ledger   TestLedger
	progress ProgressSink
	binding  *bindings.Governor
	log      *slog.Logger
}

// NewAdvanceProposal creates a new AdvanceProposal use case
func NewAdvanceProposal(
	cfg *config.RuntimeConfig,
	chain ChainReader,
	governor GovernorReader,
	ledger TestLedger,
	progress ProgressSink,
	log *slog.Logger,
) *AdvanceProposal {
	return &AdvanceProposal{
		cfg:      cfg,
		chain:    chain,
		governor: governor,
		ledger:   ledger,
		progress: progress,
		binding:  bindings.NewGovernor(),
		log:      log.With("component", "AdvanceProposal"),
	}
}

// Run advances the proposal towards params.Target. Failures are reported in
// the result, never returned. When a run fails after mutating the ledger the
// ledger is reverted to where it started.
func (uc *AdvanceProposal) Run(ctx context.Context, params AdvanceProposalParams) *AdvanceResult {
	result := &AdvanceResult{}
	if params.Proposal == nil {
		result.Message = "no proposal given"
		return result
	}
	id := params.Proposal.ID
	result.ProposalID = id

	if !slices.Contains(AdvanceTargets, params.Target) {
		result.Message = fmt.Sprintf("cannot advance to %s", params.Target)
		return result
	}
	if err := uc.checkLedger(ctx); err != nil {
		result.Message = err.Error()
		return result
	}

	state, err := uc.governor.State(ctx, id)
	if err != nil {
		result.Message = fmt.Sprintf("failed to read state: %v", err)
		return result
	}
	result.FromState = state
	result.ToState = state

	snapshotID, err := uc.ledger.Snapshot(ctx)
	if err != nil {
		uc.log.Warn("failed to snapshot ledger, failures will not be reverted", "error", err)
	}

	mutated := false
	for range len(AdvanceTargets) + 1 {
		if reached(state, params.Target) {
			result.Success = true
			result.Message = uc.successMessage(result, params.Target)
			return result
		}
		if !isOpen(state) {
			return uc.fail(ctx, result, snapshotID, mutated, fmt.Sprintf("proposal is %s and cannot reach %s", state, params.Target))
		}

		uc.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "advance",
			Message: fmt.Sprintf("Advancing %s from %s", id.Short(), state),
			Spinner: true,
		})
		mutated = true
		action, err := uc.step(ctx, params.Proposal, state)
		if err != nil {
			return uc.fail(ctx, result, snapshotID, mutated, fmt.Sprintf("%s: %v", action, err))
		}

		next, err := uc.governor.State(ctx, id)
		if err != nil {
			return uc.fail(ctx, result, snapshotID, mutated, fmt.Sprintf("failed to re-read state: %v", err))
		}
		result.Steps = append(result.Steps, AdvanceStep{From: state, To: next, Action: action})
		result.ToState = next
		if next == state {
			return uc.fail(ctx, result, snapshotID, mutated, fmt.Sprintf("%s did not move the proposal out of %s", action, state))
		}
		uc.log.Debug("advanced proposal", "proposal", id.Short(), "from", state, "to", next, "action", action)
		state = next
	}
	return uc.fail(ctx, result, snapshotID, mutated, "too many steps")
}

func (uc *AdvanceProposal) checkLedger(ctx context.Context) error {
	network := uc.cfg.Network
	if network == nil {
		return domain.ErrNetworkNotConfigured
	}
	if !network.TestControl {
		return fmt.Errorf("%w: network %s does not enable test_control", domain.ErrNotTestLedger, network.Name)
	}
	chainID, err := uc.ledger.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chain id: %w", err)
	}
	if !slices.Contains(uc.cfg.Harness.AllowedChainIDs, chainID) {
		return fmt.Errorf("%w: chain id %d is not in %v", domain.ErrNotTestLedger, chainID, uc.cfg.Harness.AllowedChainIDs)
	}
	return nil
}

// step performs the single mutation that moves state forward and names it
func (uc *AdvanceProposal) step(ctx context.Context, rec *models.ProposalRecord, state models.ProposalState) (string, error) {
	switch state {
	case models.ProposalStatePending:
		target, err := uc.governor.ProposalSnapshot(ctx, rec.ID)
		if err != nil {
			return "read snapshot", err
		}
		return uc.mineAcross(ctx, target)

	case models.ProposalStateActive:
		target, err := uc.governor.ProposalDeadline(ctx, rec.ID)
		if err != nil {
			return "read deadline", err
		}
		return uc.mineAcross(ctx, target)

	case models.ProposalStateSucceeded:
		data := uc.binding.PackQueue(rec.Targets, rec.CallValues, callData(rec), rec.DescriptionHash)
		return uc.submit(ctx, "queue", data)

	case models.ProposalStateQueued:
		eta, err := uc.governor.ProposalEta(ctx, rec.ID)
		if err != nil {
			return "read eta", err
		}
		header, err := uc.chain.HeaderByNumber(ctx, nil)
		if err != nil {
			return "read ledger time", err
		}
		if eta > header.Time {
			if err := uc.ledger.IncreaseTime(ctx, eta-header.Time); err != nil {
				return fmt.Sprintf("increase time by %ds", eta-header.Time), err
			}
		}
		if err := uc.ledger.Mine(ctx, 1); err != nil {
			return "mine 1 block", err
		}
		data := uc.binding.PackExecute(rec.Targets, rec.CallValues, callData(rec), rec.DescriptionHash)
		return uc.submit(ctx, "execute", data)
	}
	return "", fmt.Errorf("no step from %s", state)
}

// mineAcross mines until the head is strictly past height
func (uc *AdvanceProposal) mineAcross(ctx context.Context, height uint64) (string, error) {
	head, err := uc.chain.BlockNumber(ctx)
	if err != nil {
		return "read height", err
	}
	blocks := uint64(1)
	if height >= head {
		blocks = height - head + 1
	}
	action := fmt.Sprintf("mine %d blocks", blocks)
	return action, uc.ledger.Mine(ctx, blocks)
}

func (uc *AdvanceProposal) submit(ctx context.Context, method string, data []byte) (string, error) {
	if uc.cfg.Harness.From == (common.Address{}) {
		return method, errors.New("harness.from is not configured")
	}
	hash, err := uc.ledger.SendTransaction(ctx, uc.cfg.Harness.From, uc.cfg.Network.Governor, data)
	if err != nil {
		return method, err
	}
	return fmt.Sprintf("%s (tx %s)", method, hash.Hex()), nil
}

func (uc *AdvanceProposal) fail(ctx context.Context, result *AdvanceResult, snapshotID string, mutated bool, message string) *AdvanceResult {
	result.Success = false
	result.Message = message
	if snapshotID == "" || !mutated {
		return result
	}
	ok, err := uc.ledger.Revert(ctx, snapshotID)
	if err != nil || !ok {
		uc.log.Warn("failed to revert ledger", "snapshot", snapshotID, "error", err)
		return result
	}
	result.Reverted = true
	result.ToState = result.FromState
	return result
}

func (uc *AdvanceProposal) successMessage(result *AdvanceResult, target models.ProposalState) string {
	if len(result.Steps) == 0 {
		return fmt.Sprintf("already %s, nothing to do for %s", result.ToState, target)
	}
	return fmt.Sprintf("advanced from %s to %s in %d step(s)", result.FromState, result.ToState, len(result.Steps))
}

// reached reports whether state is at or past target. An outcome at a later
// stage counts even when it is off the success path; Canceled never does.
func reached(state, target models.ProposalState) bool {
	return state == target || state.Stage() > target.Stage()
}

func callData(rec *models.ProposalRecord) [][]byte {
	return lo.Map(rec.CallData, func(d hexutil.Bytes, _ int) []byte { return d })
}
