package models

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// ProposalID identifies a Governor proposal. It is the decimal form of the
// uint256 the Governor derives from the proposal's actions and description.
// It is only ever compared for equality.
type ProposalID string

// BigInt converts the identifier for ABI encoding.
func (id ProposalID) BigInt() (*big.Int, bool) {
	return new(big.Int).SetString(string(id), 10)
}

// Short returns an abbreviated identifier for display
func (id ProposalID) Short() string {
	s := string(id)
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// ProposalIDFromBig converts an on-chain proposal id into its key form
func ProposalIDFromBig(v *big.Int) ProposalID {
	if v == nil {
		return ""
	}
	return ProposalID(v.String())
}

// ProposalState mirrors the Governor's IGovernor.ProposalState enum. The
// numeric values match the contract so they can be decoded directly.
type ProposalState uint8

const (
	ProposalStatePending ProposalState = iota
	ProposalStateActive
	ProposalStateCanceled
	ProposalStateDefeated
	ProposalStateSucceeded
	ProposalStateQueued
	ProposalStateExpired
	ProposalStateExecuted
)

var proposalStateNames = [...]string{
	"Pending",
	"Active",
	"Canceled",
	"Defeated",
	"Succeeded",
	"Queued",
	"Expired",
	"Executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

// Valid reports whether s is one of the known Governor states
func (s ProposalState) Valid() bool {
	return int(s) < len(proposalStateNames)
}

// ParseProposalState parses a state name, case-insensitively
func ParseProposalState(name string) (ProposalState, error) {
	for i, n := range proposalStateNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return ProposalState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown proposal state %q", name)
}

func (s ProposalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ProposalState) UnmarshalText(text []byte) error {
	parsed, err := ParseProposalState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTerminal reports whether no further transition can happen without
// an explicit action that is not possible anymore.
func (s ProposalState) IsTerminal() bool {
	switch s {
	case ProposalStateCanceled, ProposalStateDefeated, ProposalStateExpired, ProposalStateExecuted:
		return true
	}
	return false
}

// Stage is the position of the state along the lifecycle. Outcome states
// sharing a stage (Succeeded/Defeated, Executed/Expired) are alternatives.
func (s ProposalState) Stage() int {
	switch s {
	case ProposalStatePending:
		return 0
	case ProposalStateActive:
		return 1
	case ProposalStateSucceeded, ProposalStateDefeated:
		return 2
	case ProposalStateQueued:
		return 3
	case ProposalStateExecuted, ProposalStateExpired:
		return 4
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// monotonic. Canceled is only reachable from Pending or Active.
func (s ProposalState) CanTransitionTo(next ProposalState) bool {
	if s == next {
		return true
	}
	if next == ProposalStateCanceled {
		return s == ProposalStatePending || s == ProposalStateActive
	}
	if s.IsTerminal() || s == ProposalStateCanceled {
		return false
	}
	return next.Stage() > s.Stage()
}

// VoteTally holds the scaled vote totals of a proposal
type VoteTally struct {
	For     decimal.Decimal `json:"for"`
	Against decimal.Decimal `json:"against"`
	Abstain decimal.Decimal `json:"abstain"`
}

func (v VoteTally) Equal(o VoteTally) bool {
	return v.For.Equal(o.For) && v.Against.Equal(o.Against) && v.Abstain.Equal(o.Abstain)
}

// ProposalActions is the encoded action set executed if the proposal passes.
// The three slices are parallel.
type ProposalActions struct {
	Targets    []common.Address `json:"targets"`
	CallValues []*big.Int       `json:"callValues"`
	CallData   []hexutil.Bytes  `json:"callData"`
}

// Validate checks that the parallel arrays line up
func (a ProposalActions) Validate() error {
	if len(a.Targets) != len(a.CallValues) || len(a.Targets) != len(a.CallData) {
		return fmt.Errorf("action arrays differ in length: targets=%d values=%d calldata=%d",
			len(a.Targets), len(a.CallValues), len(a.CallData))
	}
	return nil
}

func (a ProposalActions) Equal(o ProposalActions) bool {
	if len(a.Targets) != len(o.Targets) || len(a.CallValues) != len(o.CallValues) || len(a.CallData) != len(o.CallData) {
		return false
	}
	for i := range a.Targets {
		if a.Targets[i] != o.Targets[i] {
			return false
		}
	}
	for i := range a.CallValues {
		if bigCmp(a.CallValues[i], o.CallValues[i]) != 0 {
			return false
		}
	}
	for i := range a.CallData {
		if !bytes.Equal(a.CallData[i], o.CallData[i]) {
			return false
		}
	}
	return true
}

func (a ProposalActions) clone() ProposalActions {
	out := ProposalActions{
		Targets:    append([]common.Address(nil), a.Targets...),
		CallValues: make([]*big.Int, len(a.CallValues)),
		CallData:   make([]hexutil.Bytes, len(a.CallData)),
	}
	for i, v := range a.CallValues {
		if v != nil {
			out.CallValues[i] = new(big.Int).Set(v)
		}
	}
	for i, d := range a.CallData {
		out.CallData[i] = append(hexutil.Bytes(nil), d...)
	}
	return out
}

// ViewerVote records whether a specific account has voted
type ViewerVote struct {
	Viewer   common.Address `json:"viewer"`
	HasVoted bool           `json:"hasVoted"`
}

// ProposalRecord is the cached view of a single Governor proposal
type ProposalRecord struct {
	// Identification
	ID       ProposalID     `json:"id"`
	Proposer common.Address `json:"proposer"`

	// Description
	Title           string      `json:"title"`
	Body            string      `json:"body"`
	DescriptionHash common.Hash `json:"descriptionHash"`

	// Encoded actions
	ProposalActions

	// Lifecycle
	State          ProposalState `json:"state"`
	SnapshotHeight uint64        `json:"snapshotHeight"`
	DeadlineHeight uint64        `json:"deadlineHeight"`
	Votes          VoteTally     `json:"votes"`
	ETA            uint64        `json:"eta,omitempty"`
	ExecutedAt     uint64        `json:"executedAt,omitempty"`

	// Viewer-relative; nil until fetched for the current viewer
	ViewerVote *ViewerVote `json:"viewerVote,omitempty"`

	// Creation position, fixed when the record is first stored
	CreatedHeight   uint64 `json:"createdHeight"`
	CreatedLogIndex uint   `json:"createdLogIndex"`
}

// HasVoted returns the vote flag for viewer and whether it is known
func (r *ProposalRecord) HasVoted(viewer common.Address) (voted bool, known bool) {
	if r.ViewerVote == nil || r.ViewerVote.Viewer != viewer {
		return false, false
	}
	return r.ViewerVote.HasVoted, true
}

// Clone returns a deep copy
func (r *ProposalRecord) Clone() *ProposalRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.ProposalActions = r.ProposalActions.clone()
	if r.ViewerVote != nil {
		vv := *r.ViewerVote
		c.ViewerVote = &vv
	}
	return &c
}

// Equal compares every field of two records
func (r *ProposalRecord) Equal(o *ProposalRecord) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.ID != o.ID || r.Proposer != o.Proposer || r.Title != o.Title || r.Body != o.Body ||
		r.DescriptionHash != o.DescriptionHash || r.State != o.State ||
		r.SnapshotHeight != o.SnapshotHeight || r.DeadlineHeight != o.DeadlineHeight ||
		r.ETA != o.ETA || r.ExecutedAt != o.ExecutedAt ||
		r.CreatedHeight != o.CreatedHeight || r.CreatedLogIndex != o.CreatedLogIndex {
		return false
	}
	if !r.Votes.Equal(o.Votes) || !r.ProposalActions.Equal(o.ProposalActions) {
		return false
	}
	if (r.ViewerVote == nil) != (o.ViewerVote == nil) {
		return false
	}
	return r.ViewerVote == nil || *r.ViewerVote == *o.ViewerVote
}

// ProposalPatch is a partial ProposalRecord. Nil fields are absent and
// leave the stored value untouched.
type ProposalPatch struct {
	Proposer        *common.Address
	Title           *string
	Body            *string
	DescriptionHash *common.Hash
	Actions         *ProposalActions

	State          *ProposalState
	SnapshotHeight *uint64
	DeadlineHeight *uint64
	Votes          *VoteTally
	ETA            *uint64
	ExecutedAt     *uint64
	ViewerVote     *ViewerVote

	CreatedHeight   *uint64
	CreatedLogIndex *uint
}

// Merge overlays other onto p, other's present fields win
func (p *ProposalPatch) Merge(other *ProposalPatch) *ProposalPatch {
	if other == nil {
		return p
	}
	out := *p
	if other.Proposer != nil {
		out.Proposer = other.Proposer
	}
	if other.Title != nil {
		out.Title = other.Title
	}
	if other.Body != nil {
		out.Body = other.Body
	}
	if other.DescriptionHash != nil {
		out.DescriptionHash = other.DescriptionHash
	}
	if other.Actions != nil {
		out.Actions = other.Actions
	}
	if other.State != nil {
		out.State = other.State
	}
	if other.SnapshotHeight != nil {
		out.SnapshotHeight = other.SnapshotHeight
	}
	if other.DeadlineHeight != nil {
		out.DeadlineHeight = other.DeadlineHeight
	}
	if other.Votes != nil {
		out.Votes = other.Votes
	}
	if other.ETA != nil {
		out.ETA = other.ETA
	}
	if other.ExecutedAt != nil {
		out.ExecutedAt = other.ExecutedAt
	}
	if other.ViewerVote != nil {
		out.ViewerVote = other.ViewerVote
	}
	if other.CreatedHeight != nil {
		out.CreatedHeight = other.CreatedHeight
	}
	if other.CreatedLogIndex != nil {
		out.CreatedLogIndex = other.CreatedLogIndex
	}
	return &out
}

// RawVotes are the unscaled tallies as returned by proposalVotes
type RawVotes struct {
	Against *big.Int
	For     *big.Int
	Abstain *big.Int
}

// Scale converts raw fixed-point tallies using the token's decimals
func (v RawVotes) Scale(decimals int32) VoteTally {
	return VoteTally{
		For:     scaleAmount(v.For, decimals),
		Against: scaleAmount(v.Against, decimals),
		Abstain: scaleAmount(v.Abstain, decimals),
	}
}

func scaleAmount(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// ProposalSnapshot is the full set of ledger-resident fields read in one go
type ProposalSnapshot struct {
	State          ProposalState
	SnapshotHeight uint64
	DeadlineHeight uint64
	Votes          RawVotes
	ETA            uint64
	// HasVoted is nil when no viewer was requested
	HasVoted *bool
}

func bigCmp(a, b *big.Int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return new(big.Int).Cmp(b)
	case b == nil:
		return a.Cmp(new(big.Int))
	}
	return a.Cmp(b)
}
