package domain

import (
	"strings"

	"github.com/trebuchet-org/govsync/internal/domain/models"
)

// ProposalFilter defines filtering options for proposal listings
type ProposalFilter struct {
	States   []models.ProposalState
	Proposer string
}

// Matches reports whether the record passes the filter
func (f ProposalFilter) Matches(r *models.ProposalRecord) bool {
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if r.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Proposer != "" && !strings.EqualFold(f.Proposer, r.Proposer.Hex()) {
		return false
	}
	return true
}
