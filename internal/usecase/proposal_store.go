package usecase

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/trebuchet-org/govsync/internal/domain"
	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// ChangeListener is notified with a copy of a record after it changed
type ChangeListener func(record *models.ProposalRecord)

// ProposalStore is the single owner of the cached proposal records.
// Upserts are serialized; readers always receive copies.
type ProposalStore struct {
	log *slog.Logger

	mu      sync.RWMutex
	records map[models.ProposalID]*models.ProposalRecord

	listenersMu  sync.RWMutex
	listeners    map[int]ChangeListener
	nextListener int
}

// NewProposalStore creates an empty store
func NewProposalStore(log *slog.Logger) *ProposalStore {
	return &ProposalStore{
		log:       log.With("component", "ProposalStore"),
		records:   make(map[models.ProposalID]*models.ProposalRecord),
		listeners: make(map[int]ChangeListener),
	}
}

// Upsert merges patch into the record for id, creating it if needed.
// It reports whether any field changed. A patch that would move the state
// backwards is rejected as a whole with a TransitionErr.
func (s *ProposalStore) Upsert(id models.ProposalID, patch *models.ProposalPatch) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: empty proposal id", domain.ErrMalformedEvent)
	}
	if patch == nil {
		patch = &models.ProposalPatch{}
	}
	if patch.Actions != nil {
		if err := patch.Actions.Validate(); err != nil {
			return false, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
		}
	}

	s.mu.Lock()
	existing := s.records[id]
	creating := existing == nil

	var next *models.ProposalRecord
	if creating {
		next = &models.ProposalRecord{ID: id}
	} else {
		next = existing.Clone()
	}

	if patch.State != nil {
		if !creating && !existing.State.CanTransitionTo(*patch.State) {
			s.mu.Unlock()
			return false, domain.TransitionErr{ID: id, From: existing.State, To: *patch.State}
		}
		next.State = *patch.State
	}
	applyPatch(next, patch, creating)

	if !creating && existing.Equal(next) {
		s.mu.Unlock()
		return false, nil
	}
	s.records[id] = next
	out := next.Clone()
	s.mu.Unlock()

	s.notify(out)
	return true, nil
}

func applyPatch(r *models.ProposalRecord, p *models.ProposalPatch, creating bool) {
	if p.Proposer != nil {
		r.Proposer = *p.Proposer
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Body != nil {
		r.Body = *p.Body
	}
	if p.DescriptionHash != nil {
		r.DescriptionHash = *p.DescriptionHash
	}
	if p.Actions != nil {
		r.ProposalActions = *p.Actions
	}
	if p.SnapshotHeight != nil {
		r.SnapshotHeight = *p.SnapshotHeight
	}
	if p.DeadlineHeight != nil {
		r.DeadlineHeight = *p.DeadlineHeight
	}
	if p.Votes != nil {
		r.Votes = *p.Votes
	}
	if p.ViewerVote != nil {
		vv := *p.ViewerVote
		r.ViewerVote = &vv
	}
	if p.ETA != nil {
		r.ETA = *p.ETA
	}
	if r.State != models.ProposalStateQueued {
		r.ETA = 0
	}
	// executedAt is written once, and only for an executed proposal
	if p.ExecutedAt != nil && *p.ExecutedAt > 0 && r.ExecutedAt == 0 && r.State == models.ProposalStateExecuted {
		r.ExecutedAt = *p.ExecutedAt
	}
	if creating {
		if p.CreatedHeight != nil {
			r.CreatedHeight = *p.CreatedHeight
		}
		if p.CreatedLogIndex != nil {
			r.CreatedLogIndex = *p.CreatedLogIndex
		}
	}
}

func (s *ProposalStore) notify(record *models.ProposalRecord) {
	s.listenersMu.RLock()
	listeners := make([]ChangeListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(record.Clone())
	}
}

// Get returns a copy of the record for id
func (s *ProposalStore) Get(id models.ProposalID) (*models.ProposalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("proposal %s: %w", id, domain.ErrNotFound)
	}
	return r.Clone(), nil
}

// Has reports whether a record exists for id
func (s *ProposalStore) Has(id models.ProposalID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Len returns the number of known proposals
func (s *ProposalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns copies of every record, newest creation first
func (s *ProposalStore) All() []*models.ProposalRecord {
	s.mu.RLock()
	out := make([]*models.ProposalRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedHeight != out[j].CreatedHeight {
			return out[i].CreatedHeight > out[j].CreatedHeight
		}
		if out[i].CreatedLogIndex != out[j].CreatedLogIndex {
			return out[i].CreatedLogIndex > out[j].CreatedLogIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ResetViewer forgets every viewer-relative field
func (s *ProposalStore) ResetViewer() {
	s.mu.Lock()
	var changed []*models.ProposalRecord
	for _, r := range s.records {
		if r.ViewerVote == nil {
			continue
		}
		r.ViewerVote = nil
		changed = append(changed, r.Clone())
	}
	s.mu.Unlock()

	for _, r := range changed {
		s.notify(r)
	}
}

// OnChange registers fn and returns a function that removes it
func (s *ProposalStore) OnChange(fn ChangeListener) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}
