package abi

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/bindings"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

var errEmptyData = errors.New("log carries no data")

// EventDecoder decodes Governor logs into domain events
type EventDecoder struct {
	governor *bindings.Governor
	parsers  map[common.Hash]eventParser
	topics   map[domain.EventKind]common.Hash
	log      *slog.Logger
}

type eventParser struct {
	kind  domain.EventKind
	parse func(*types.Log) (*domain.ProposalEvent, error)
}

// NewEventDecoder creates a new Governor event decoder
func NewEventDecoder(log *slog.Logger) *EventDecoder {
	d := &EventDecoder{
		governor: bindings.NewGovernor(),
		parsers:  make(map[common.Hash]eventParser),
		topics:   make(map[domain.EventKind]common.Hash),
		log:      log.With("component", "EventDecoder"),
	}

	must := func(hash common.Hash, err error) common.Hash {
		if err != nil {
			panic(err)
		}
		return hash
	}
	register := func(kind domain.EventKind, parse func(*types.Log) (*domain.ProposalEvent, error)) {
		id := must(d.governor.GetEventID(string(kind)))
		d.parsers[id] = eventParser{kind: kind, parse: parse}
		d.topics[kind] = id
	}

	register(domain.EventProposalCreated, d.parseCreated)
	register(domain.EventVoteCast, d.parseVoteCast)
	register(domain.EventProposalQueued, d.parseQueued)
	register(domain.EventProposalExecuted, d.parseExecuted)
	register(domain.EventProposalCanceled, d.parseCanceled)
	return d
}

// Topics returns the topic0 values of the given kinds, or of every kind
func (d *EventDecoder) Topics(kinds ...domain.EventKind) []common.Hash {
	if len(kinds) == 0 {
		kinds = domain.AllEventKinds
	}
	out := make([]common.Hash, 0, len(kinds))
	for _, k := range kinds {
		if id, ok := d.topics[k]; ok {
			out = append(out, id)
		}
	}
	return out
}

// DecodeLogs decodes every usable log. Logs removed by a reorg, logs with
// unknown signatures and logs that fail to decode are skipped.
func (d *EventDecoder) DecodeLogs(logs []types.Log) []domain.ProposalEvent {
	events := make([]domain.ProposalEvent, 0, len(logs))
	for i := range logs {
		lg := &logs[i]
		if lg.Removed {
			d.log.Debug("skipping removed log", "tx", lg.TxHash.Hex(), "index", lg.Index)
			continue
		}
		ev, err := d.DecodeLog(lg)
		if err != nil {
			d.log.Warn("failed to decode governor log", "tx", lg.TxHash.Hex(), "index", lg.Index, "error", err)
			continue
		}
		events = append(events, *ev)
	}
	return events
}

// DecodeLog decodes a single log
func (d *EventDecoder) DecodeLog(lg *types.Log) (*domain.ProposalEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, fmt.Errorf("%w: log has no topics", domain.ErrMalformedEvent)
	}
	parser, ok := d.parsers[lg.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event signature %s", domain.ErrMalformedEvent, lg.Topics[0].Hex())
	}
	ev, err := parser.parse(lg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedEvent, parser.kind, err)
	}
	ev.Kind = parser.kind
	ev.Height = lg.BlockNumber
	ev.LogIndex = lg.Index
	ev.TxHash = lg.TxHash
	return ev, nil
}

func (d *EventDecoder) parseCreated(lg *types.Log) (*domain.ProposalEvent, error) {
	e, err := d.governor.UnpackProposalCreatedEvent(lg)
	if err != nil {
		return nil, err
	}
	if e.ProposalId == nil || e.VoteStart == nil || e.VoteEnd == nil {
		return nil, errEmptyData
	}
	d.log.Debug("Parsed event", "event", e.String())
	return &domain.ProposalEvent{
		ProposalID:  models.ProposalIDFromBig(e.ProposalId),
		Proposer:    e.Proposer,
		Targets:     e.Targets,
		Values:      e.Values,
		Calldatas:   e.Calldatas,
		Description: e.Description,
		VoteStart:   e.VoteStart.Uint64(),
		VoteEnd:     e.VoteEnd.Uint64(),
	}, nil
}

func (d *EventDecoder) parseVoteCast(lg *types.Log) (*domain.ProposalEvent, error) {
	e, err := d.governor.UnpackVoteCastEvent(lg)
	if err != nil {
		return nil, err
	}
	return &domain.ProposalEvent{
		ProposalID: models.ProposalIDFromBig(e.ProposalId),
		Voter:      e.Voter,
	}, nil
}

func (d *EventDecoder) parseQueued(lg *types.Log) (*domain.ProposalEvent, error) {
	e, err := d.governor.UnpackProposalQueuedEvent(lg)
	if err != nil {
		return nil, err
	}
	if e.EtaSeconds == nil {
		return nil, errEmptyData
	}
	return &domain.ProposalEvent{
		ProposalID: models.ProposalIDFromBig(e.ProposalId),
		ETA:        e.EtaSeconds.Uint64(),
	}, nil
}

func (d *EventDecoder) parseExecuted(lg *types.Log) (*domain.ProposalEvent, error) {
	e, err := d.governor.UnpackProposalExecutedEvent(lg)
	if err != nil {
		return nil, err
	}
	return &domain.ProposalEvent{ProposalID: models.ProposalIDFromBig(e.ProposalId)}, nil
}

func (d *EventDecoder) parseCanceled(lg *types.Log) (*domain.ProposalEvent, error) {
	e, err := d.governor.UnpackProposalCanceledEvent(lg)
	if err != nil {
		return nil, err
	}
	return &domain.ProposalEvent{ProposalID: models.ProposalIDFromBig(e.ProposalId)}, nil
}
