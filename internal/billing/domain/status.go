package domain

// DocumentStatus represents the document lifecycle.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusApproved  DocumentStatus = "approved"
	DocumentStatusPaid      DocumentStatus = "paid"
	DocumentStatusClosed    DocumentStatus = "closed"
	DocumentStatusCancelled DocumentStatus = "cancelled"
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusDraft:    {DocumentStatusApproved, DocumentStatusCancelled},
	DocumentStatusApproved: {DocumentStatusPaid, DocumentStatusClosed},
}

// BilledStatuses are the statuses whose lines count toward billed-to-date.
// Paid and closed documents were approved first and keep counting.
var BilledStatuses = []DocumentStatus{DocumentStatusApproved, DocumentStatusPaid, DocumentStatusClosed}

// CountsAsBilled reports whether a document in status s contributes to billed-to-date.
func (s DocumentStatus) CountsAsBilled() bool {
	for _, billed := range BilledStatuses {
		if s == billed {
			return true
		}
	}
	return false
}

// Editable reports whether lines may still be mutated.
func (s DocumentStatus) Editable() bool {
	return s == DocumentStatusDraft
}

// Terminal reports whether no further transition is possible.
func (s DocumentStatus) Terminal() bool {
	switch s {
	case DocumentStatusPaid, DocumentStatusClosed, DocumentStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
