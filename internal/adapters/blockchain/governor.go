package blockchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/bindings"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// GovernorReader reads proposal state from a Governor contract with eth_call
type GovernorReader struct {
	client   *Client
	address  common.Address
	governor *bindings.Governor
	erc20    *bindings.ERC20
	log      *slog.Logger
}

// NewGovernorReader creates a reader for the configured Governor
func NewGovernorReader(client *Client, cfg *config.RuntimeConfig, log *slog.Logger) (*GovernorReader, error) {
	if cfg.Network == nil {
		return nil, domain.ErrNetworkNotConfigured
	}
	return &GovernorReader{
		client:   client,
		address:  cfg.Network.Governor,
		governor: bindings.NewGovernor(),
		erc20:    bindings.NewERC20(),
		log:      log.With("component", "GovernorReader"),
	}, nil
}

func proposalArg(id models.ProposalID) (*big.Int, error) {
	v, ok := id.BigInt()
	if !ok {
		return nil, fmt.Errorf("invalid proposal id %q", id)
	}
	return v, nil
}

func (g *GovernorReader) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return g.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// State reads state(proposalId)
func (g *GovernorReader) State(ctx context.Context, id models.ProposalID) (models.ProposalState, error) {
	arg, err := proposalArg(id)
	if err != nil {
		return 0, err
	}
	out, err := g.call(ctx, g.address, g.governor.PackState(arg))
	if err != nil {
		return 0, err
	}
	state, err := g.governor.UnpackState(out)
	if err != nil {
		return 0, err
	}
	return toState(state)
}

// ProposalSnapshot reads proposalSnapshot(proposalId)
func (g *GovernorReader) ProposalSnapshot(ctx context.Context, id models.ProposalID) (uint64, error) {
	arg, err := proposalArg(id)
	if err != nil {
		return 0, err
	}
	out, err := g.call(ctx, g.address, g.governor.PackProposalSnapshot(arg))
	if err != nil {
		return 0, err
	}
	v, err := g.governor.UnpackProposalSnapshot(out)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// ProposalDeadline reads proposalDeadline(proposalId)
func (g *GovernorReader) ProposalDeadline(ctx context.Context, id models.ProposalID) (uint64, error) {
	arg, err := proposalArg(id)
	if err != nil {
		return 0, err
	}
	out, err := g.call(ctx, g.address, g.governor.PackProposalDeadline(arg))
	if err != nil {
		return 0, err
	}
	v, err := g.governor.UnpackProposalDeadline(out)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// ProposalVotes reads proposalVotes(proposalId)
func (g *GovernorReader) ProposalVotes(ctx context.Context, id models.ProposalID) (models.RawVotes, error) {
	arg, err := proposalArg(id)
	if err != nil {
		return models.RawVotes{}, err
	}
	out, err := g.call(ctx, g.address, g.governor.PackProposalVotes(arg))
	if err != nil {
		return models.RawVotes{}, err
	}
	v, err := g.governor.UnpackProposalVotes(out)
	if err != nil {
		return models.RawVotes{}, err
	}
	return models.RawVotes{Against: v.AgainstVotes, For: v.ForVotes, Abstain: v.AbstainVotes}, nil
}

// ProposalEta reads proposalEta(proposalId)
func (g *GovernorReader) ProposalEta(ctx context.Context, id models.ProposalID) (uint64, error) {
	arg, err := proposalArg(id)
	if err != nil {
		return 0, err
	}
	out, err := g.call(ctx, g.address, g.governor.PackProposalEta(arg))
	if err != nil {
		return 0, err
	}
	v, err := g.governor.UnpackProposalEta(out)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// HasVoted reads hasVoted(proposalId, viewer)
func (g *GovernorReader) HasVoted(ctx context.Context, id models.ProposalID, viewer common.Address) (bool, error) {
	arg, err := proposalArg(id)
	if err != nil {
		return false, err
	}
	out, err := g.call(ctx, g.address, g.governor.PackHasVoted(arg, viewer))
	if err != nil {
		return false, err
	}
	return g.governor.UnpackHasVoted(out)
}

// VoteDecimals reads decimals() of the Governor's voting token
func (g *GovernorReader) VoteDecimals(ctx context.Context) (int32, error) {
	out, err := g.call(ctx, g.address, g.governor.PackToken())
	if err != nil {
		return 0, fmt.Errorf("token: %w", err)
	}
	token, err := g.governor.UnpackToken(out)
	if err != nil {
		return 0, fmt.Errorf("token: %w", err)
	}
	out, err = g.call(ctx, token, g.erc20.PackDecimals())
	if err != nil {
		return 0, fmt.Errorf("decimals of %s: %w", token.Hex(), err)
	}
	decimals, err := g.erc20.UnpackDecimals(out)
	if err != nil {
		return 0, fmt.Errorf("decimals of %s: %w", token.Hex(), err)
	}
	return int32(decimals), nil
}

// callArgs is the eth_call transaction object
type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// ReadProposal reads every proposal field in one JSON-RPC batch
func (g *GovernorReader) ReadProposal(ctx context.Context, id models.ProposalID, viewer *common.Address) (*models.ProposalSnapshot, error) {
	arg, err := proposalArg(id)
	if err != nil {
		return nil, err
	}

	calls := [][]byte{
		g.governor.PackState(arg),
		g.governor.PackProposalSnapshot(arg),
		g.governor.PackProposalDeadline(arg),
		g.governor.PackProposalVotes(arg),
		g.governor.PackProposalEta(arg),
	}
	if viewer != nil {
		calls = append(calls, g.governor.PackHasVoted(arg, *viewer))
	}

	results := make([]hexutil.Bytes, len(calls))
	batch := make([]rpc.BatchElem, len(calls))
	for i, data := range calls {
		batch[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{callArgs{To: g.address, Data: data}, "latest"},
			Result: &results[i],
		}
	}
	if err := g.client.RPC().BatchCallContext(ctx, batch); err != nil {
		return nil, fmt.Errorf("batch call: %w", err)
	}
	for i, elem := range batch {
		if elem.Error != nil {
			return nil, fmt.Errorf("batch element %d: %w", i, elem.Error)
		}
	}

	snap := &models.ProposalSnapshot{}
	rawState, err := g.governor.UnpackState(results[0])
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if snap.State, err = toState(rawState); err != nil {
		return nil, err
	}
	start, err := g.governor.UnpackProposalSnapshot(results[1])
	if err != nil {
		return nil, fmt.Errorf("proposalSnapshot: %w", err)
	}
	snap.SnapshotHeight = start.Uint64()
	end, err := g.governor.UnpackProposalDeadline(results[2])
	if err != nil {
		return nil, fmt.Errorf("proposalDeadline: %w", err)
	}
	snap.DeadlineHeight = end.Uint64()
	votes, err := g.governor.UnpackProposalVotes(results[3])
	if err != nil {
		return nil, fmt.Errorf("proposalVotes: %w", err)
	}
	snap.Votes = models.RawVotes{Against: votes.AgainstVotes, For: votes.ForVotes, Abstain: votes.AbstainVotes}
	eta, err := g.governor.UnpackProposalEta(results[4])
	if err != nil {
		return nil, fmt.Errorf("proposalEta: %w", err)
	}
	snap.ETA = eta.Uint64()
	if viewer != nil {
		voted, err := g.governor.UnpackHasVoted(results[5])
		if err != nil {
			return nil, fmt.Errorf("hasVoted: %w", err)
		}
		snap.HasVoted = &voted
	}
	return snap, nil
}

func toState(v uint8) (models.ProposalState, error) {
	s := models.ProposalState(v)
	if !s.Valid() {
		return 0, fmt.Errorf("unknown proposal state %d", v)
	}
	return s, nil
}

// Ensure the adapter implements the interface
var _ usecase.BatchGovernorReader = (*GovernorReader)(nil)
