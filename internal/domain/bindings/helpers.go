package bindings

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// GetEventID returns the event signature hash for a given event name
// This is a helper method that works alongside the generated ABI bindings
func (governor *Governor) GetEventID(eventName string) (common.Hash, error) {
	event, exists := governor.abi.Events[eventName]
	if !exists {
		return common.Hash{}, fmt.Errorf("event %s not found", eventName)
	}
	return event.ID, nil
}

// EventIDs returns the signature hashes of the named events, failing on the
// first unknown name
func (governor *Governor) EventIDs(eventNames ...string) ([]common.Hash, error) {
	ids := make([]common.Hash, 0, len(eventNames))
	for _, name := range eventNames {
		id, err := governor.GetEventID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EventName resolves a topic0 back to the event name
func (governor *Governor) EventName(topic common.Hash) (string, bool) {
	for name, ev := range governor.abi.Events {
		if ev.ID == topic {
			return name, true
		}
	}
	return "", false
}

func (e *GovernorProposalCreated) String() string {
	return fmt.Sprintf(
		"%s: proposalId=%s proposer=%s targets=%v voteStart=%s voteEnd=%s",
		e.ContractEventName(),
		e.ProposalId.String(),
		e.Proposer.String(),
		lo.Map(e.Targets, func(v common.Address, _ int) string {
			return v.Hex()
		}),
		e.VoteStart.String(),
		e.VoteEnd.String(),
	)
}

func (e *GovernorVoteCast) String() string {
	return fmt.Sprintf(
		"%s: proposalId=%s voter=%s support=%d weight=%s",
		e.ContractEventName(),
		e.ProposalId.String(),
		e.Voter.String(),
		e.Support,
		e.Weight.String(),
	)
}

func (e *GovernorProposalQueued) String() string {
	return fmt.Sprintf(
		"%s: proposalId=%s eta=%s",
		e.ContractEventName(),
		e.ProposalId.String(),
		e.EtaSeconds.String(),
	)
}

func (e *GovernorProposalExecuted) String() string {
	return fmt.Sprintf("%s: proposalId=%s", e.ContractEventName(), e.ProposalId.String())
}

func (e *GovernorProposalCanceled) String() string {
	return fmt.Sprintf("%s: proposalId=%s", e.ContractEventName(), e.ProposalId.String())
}
