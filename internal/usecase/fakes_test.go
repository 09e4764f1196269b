package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/config"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

var (
	governorAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	proposerAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	viewerAddr   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	targetAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testSettings() config.SyncSettings {
	return config.SyncSettings{
		HeightDebounce:       10 * time.Millisecond,
		TimeRefresh:          20 * time.Millisecond,
		BlockTimeResample:    time.Minute,
		PollInterval:         10 * time.Millisecond,
		ReconcileConcurrency: 4,
	}
}

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Network: &config.Network{
			Name:      "local",
			ChainID:   31337,
			Governor:  governorAddr,
			BlockTime: time.Second,
		},
		NonInteractive: true,
		Sync:           testSettings(),
		Harness: config.HarnessSettings{
			From:            proposerAddr,
			AllowedChainIDs: []uint64{31337, 1337},
		},
	}
}

// fakeChain is an in-memory ledger whose heights are spaced blockTime apart
type fakeChain struct {
	mu          sync.Mutex
	head        uint64
	genesisTime uint64
	blockTime   uint64
	extraTime   uint64
	headerErr   error
	numberErr   error
}

func newFakeChain(head uint64) *fakeChain {
	return &fakeChain{head: head, genesisTime: 1_700_000_000, blockTime: 12}
}

func (c *fakeChain) timeAt(h uint64) uint64 {
	return c.genesisTime + h*c.blockTime + c.extraTime
}

func (c *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.numberErr != nil {
		return 0, c.numberErr
	}
	return c.head, nil
}

func (c *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headerErr != nil {
		return nil, c.headerErr
	}
	h := c.head
	if number != nil {
		h = number.Uint64()
	}
	if h > c.head {
		return nil, ethereum.NotFound
	}
	return &types.Header{Number: new(big.Int).SetUint64(h), Time: c.timeAt(h)}, nil
}

func (c *fakeChain) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	return nil, errors.New("notifications not supported")
}

func (c *fakeChain) mine(n uint64) {
	c.mu.Lock()
	c.head += n
	c.mu.Unlock()
}

func (c *fakeChain) now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeAt(c.head)
}

// fakeProposal is the Governor-side state of one proposal
type fakeProposal struct {
	state    models.ProposalState
	snapshot uint64
	deadline uint64
	votes    models.RawVotes
	eta      uint64
	voted    map[common.Address]bool
}

// fakeGovernor answers view calls from an in-memory proposal table
type fakeGovernor struct {
	mu        sync.Mutex
	proposals map[models.ProposalID]*fakeProposal
	decimals  int32
	failReads bool

	// stateFn, when set, computes state instead of the stored value
	stateFn func(p *fakeProposal) models.ProposalState
	// stateHook runs at the start of every State call
	stateHook func()

	stateCalls int
}

func newFakeGovernor() *fakeGovernor {
	return &fakeGovernor{proposals: make(map[models.ProposalID]*fakeProposal), decimals: 18}
}

func (g *fakeGovernor) set(id models.ProposalID, p *fakeProposal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.proposals[id] = p
}

func (g *fakeGovernor) setState(id models.ProposalID, s models.ProposalState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.proposals[id].state = s
}

func (g *fakeGovernor) setFail(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failReads = fail
}

func (g *fakeGovernor) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateCalls
}

func (g *fakeGovernor) get(id models.ProposalID) (*fakeProposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failReads {
		return nil, errors.New("connection refused")
	}
	p, ok := g.proposals[id]
	if !ok {
		return nil, fmt.Errorf("execution reverted: GovernorNonexistentProposal(%s)", id)
	}
	cp := *p
	return &cp, nil
}

func (g *fakeGovernor) State(ctx context.Context, id models.ProposalID) (models.ProposalState, error) {
	g.mu.Lock()
	g.stateCalls++
	hook := g.stateHook
	fn := g.stateFn
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	p, err := g.get(id)
	if err != nil {
		return 0, err
	}
	if fn != nil {
		return fn(p), nil
	}
	return p.state, nil
}

func (g *fakeGovernor) ProposalSnapshot(ctx context.Context, id models.ProposalID) (uint64, error) {
	p, err := g.get(id)
	if err != nil {
		return 0, err
	}
	return p.snapshot, nil
}

func (g *fakeGovernor) ProposalDeadline(ctx context.Context, id models.ProposalID) (uint64, error) {
	p, err := g.get(id)
	if err != nil {
		return 0, err
	}
	return p.deadline, nil
}

func (g *fakeGovernor) ProposalVotes(ctx context.Context, id models.ProposalID) (models.RawVotes, error) {
	p, err := g.get(id)
	if err != nil {
		return models.RawVotes{}, err
	}
	return p.votes, nil
}

func (g *fakeGovernor) ProposalEta(ctx context.Context, id models.ProposalID) (uint64, error) {
	p, err := g.get(id)
	if err != nil {
		return 0, err
	}
	return p.eta, nil
}

func (g *fakeGovernor) HasVoted(ctx context.Context, id models.ProposalID, viewer common.Address) (bool, error) {
	p, err := g.get(id)
	if err != nil {
		return false, err
	}
	return p.voted[viewer], nil
}

func (g *fakeGovernor) VoteDecimals(ctx context.Context) (int32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decimals, nil
}

// fakeEventSource serves a fixed history and hands out live sinks
type fakeEventSource struct {
	mu      sync.Mutex
	history []domain.ProposalEvent
	fetches [][2]uint64
	sinks   []chan<- []domain.ProposalEvent
	fromSub []uint64
}

func (s *fakeEventSource) FetchEvents(ctx context.Context, from, to uint64, kinds ...domain.EventKind) ([]domain.ProposalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, [2]uint64{from, to})

	var out []domain.ProposalEvent
	for _, ev := range s.history {
		if ev.Height < from || ev.Height > to {
			continue
		}
		if len(kinds) > 0 && !containsKind(kinds, ev.Kind) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *fakeEventSource) SubscribeEvents(ctx context.Context, from uint64, sink chan<- []domain.ProposalEvent) (ethereum.Subscription, error) {
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.fromSub = append(s.fromSub, from)
	s.mu.Unlock()
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

func (s *fakeEventSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sinks)
}

func (s *fakeEventSource) push(batch ...domain.ProposalEvent) {
	s.mu.Lock()
	sinks := append([]chan<- []domain.ProposalEvent(nil), s.sinks...)
	s.mu.Unlock()
	for _, sink := range sinks {
		sink <- batch
	}
}

func containsKind(kinds []domain.EventKind, k domain.EventKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// fakeLedger is a test-controlled ledger on top of fakeChain
type fakeLedger struct {
	mu       sync.Mutex
	chain    *fakeChain
	chainID  uint64
	onSend   func(data []byte) error
	mined    []uint64
	warps    []uint64
	sent     [][]byte
	reverted []string
	snapshot int
}

func (l *fakeLedger) ChainID(ctx context.Context) (uint64, error) {
	return l.chainID, nil
}

func (l *fakeLedger) Mine(ctx context.Context, blocks uint64) error {
	l.mu.Lock()
	l.mined = append(l.mined, blocks)
	l.mu.Unlock()
	l.chain.mine(blocks)
	return nil
}

func (l *fakeLedger) IncreaseTime(ctx context.Context, seconds uint64) error {
	l.mu.Lock()
	l.warps = append(l.warps, seconds)
	l.mu.Unlock()
	l.chain.mu.Lock()
	l.chain.extraTime += seconds
	l.chain.mu.Unlock()
	return nil
}

func (l *fakeLedger) Snapshot(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshot++
	return fmt.Sprintf("0x%x", l.snapshot), nil
}

func (l *fakeLedger) Revert(ctx context.Context, snapshotID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reverted = append(l.reverted, snapshotID)
	return true, nil
}

func (l *fakeLedger) SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error) {
	l.mu.Lock()
	l.sent = append(l.sent, data)
	onSend := l.onSend
	l.mu.Unlock()
	if onSend != nil {
		if err := onSend(data); err != nil {
			return common.Hash{}, err
		}
	}
	return common.HexToHash("0xabc"), nil
}

// MockProposalSelector is a mock implementation of ProposalSelector
type MockProposalSelector struct {
	mock.Mock
}

func (m *MockProposalSelector) SelectProposal(ctx context.Context, proposals []*models.ProposalRecord, prompt string) (*models.ProposalRecord, error) {
	args := m.Called(ctx, proposals, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProposalRecord), args.Error(1)
}

// MockProgressSink records progress events
type MockProgressSink struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
}

func (m *MockProgressSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(message string)  {}
func (m *MockProgressSink) Error(message string) {}

func (m *MockProgressSink) stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Stage
	}
	return out
}

func createdEvent(id models.ProposalID, height uint64, description string) domain.ProposalEvent {
	return domain.ProposalEvent{
		Kind:        domain.EventProposalCreated,
		ProposalID:  id,
		Height:      height,
		Proposer:    proposerAddr,
		Targets:     []common.Address{targetAddr},
		Values:      []*big.Int{big.NewInt(0)},
		Calldatas:   [][]byte{{0x6e, 0xd7, 0x6b, 0x46}},
		Description: description,
		VoteStart:   height + 1,
		VoteEnd:     height + 51,
	}
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}
