package domain

import (
	"sort"
)

// MergeLines orders base lines by position, then appends lines of approved
// change orders in approval order. Lines of draft or void change orders are
// dropped.
func MergeLines(lines []CommitmentLine, orders []ChangeOrder) []CommitmentLine {
	approved := make(map[int64]ChangeOrder, len(orders))
	for _, co := range orders {
		if co.Status == ChangeOrderStatusApproved {
			approved[co.ID.Int64()] = co
		}
	}

	base := make([]CommitmentLine, 0, len(lines))
	added := make([]CommitmentLine, 0)
	for _, line := range lines {
		if line.ChangeOrderID == nil {
			base = append(base, line)
			continue
		}
		if _, ok := approved[line.ChangeOrderID.Int64()]; ok {
			added = append(added, line)
		}
	}

	sort.SliceStable(base, func(i, j int) bool {
		return base[i].Position < base[j].Position
	})
	sort.SliceStable(added, func(i, j int) bool {
		a := approved[added[i].ChangeOrderID.Int64()]
		b := approved[added[j].ChangeOrderID.Int64()]
		if a.ID != b.ID {
			return approvedBefore(a, b)
		}
		return added[i].Position < added[j].Position
	})

	return append(base, added...)
}

func approvedBefore(a, b ChangeOrder) bool {
	switch {
	case a.ApprovedAt != nil && b.ApprovedAt != nil && !a.ApprovedAt.Equal(*b.ApprovedAt):
		return a.ApprovedAt.Before(*b.ApprovedAt)
	default:
		return a.ID < b.ID
	}
}
