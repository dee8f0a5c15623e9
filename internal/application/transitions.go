// Package application owns the Application entity and its status lifecycle.
//
// Status graph (recruiter-driven, deliberately permissive):
//
//	unseen ──► seen ──► accepted ──► interview ──► contract ──► hired
//	    │        │          │            │             │
//	    └────────┴──────────┴────────────┴─────────────┴──► rejected
//
// Any non-initial status may be set from any other — the marketplace lets
// recruiters correct mistakes. rejected and hired are soft-terminal: leaving
// them is allowed but audited as a reopen, since it is a correction rather
// than normal flow.
package application

import (
	"fmt"

	"hospimatch/matching-service/internal/notify"
)

// Status values mirror the application_status enum in PostgreSQL.
type Status string

const (
	StatusUnseen    Status = "unseen"
	StatusSeen      Status = "seen"
	StatusFavorite  Status = "favorite"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusInterview Status = "interview"
	StatusContract  Status = "contract"
	StatusHired     Status = "hired"
)

var allStatuses = []Status{
	StatusUnseen, StatusSeen, StatusFavorite, StatusAccepted,
	StatusRejected, StatusInterview, StatusContract, StatusHired,
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	for _, known := range allStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// AllStatuses returns every valid status value.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsInitial reports whether s is the creation-only status. unseen is
// assigned by the system at creation and can never be re-entered.
func IsInitial(s Status) bool { return s == StatusUnseen }

// IsSoftTerminal reports whether s normally ends the lifecycle. Transitions
// out of a soft-terminal status are permitted but audited as reopens.
func IsSoftTerminal(s Status) bool {
	return s == StatusRejected || s == StatusHired
}

// IsReopen reports whether moving from → to corrects a previously closed
// application.
func IsReopen(from, to Status) bool {
	return IsSoftTerminal(from) && from != to
}

// notificationByStatus maps each recruiter-set status to the template the
// candidate receives. unseen is absent: creation notifies the recruiter
// instead (KindApplicationReceived).
var notificationByStatus = map[Status]notify.Kind{
	StatusSeen:      notify.KindApplicationSeen,
	StatusFavorite:  notify.KindApplicationFavorite,
	StatusAccepted:  notify.KindApplicationAccepted,
	StatusRejected:  notify.KindApplicationRejected,
	StatusInterview: notify.KindInterviewRequested,
	StatusContract:  notify.KindContractProposed,
	StatusHired:     notify.KindCandidateHired,
}

// NotificationFor returns the candidate-facing notification kind triggered
// by entering status s.
func NotificationFor(s Status) (notify.Kind, bool) {
	kind, ok := notificationByStatus[s]
	return kind, ok
}
