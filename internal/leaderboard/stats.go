// Package leaderboard aggregates completed issues into a per-contributor
// ranking for the weekly leaderboard post.
package leaderboard

import (
	"sort"
	"strings"

	"bugwatch/internal/config"
	"bugwatch/internal/jira"
)

// Bucket keys. Mapped contributors and unmapped assignees deliberately live
// under different key schemes; see DESIGN.md for the product-review flag.
const (
	unassignedID   = "unassigned"
	unassignedName = "Unassigned"

	mappedPrefix   = "mapped:"
	originalPrefix = "original:"
)

type Stat struct {
	ID    string
	Name  string
	Total int
	Types map[string]int // per issue-type counts, epics never included
	Tasks []jira.Issue
}

// Board is the aggregation result in ranked order (descending totals,
// insertion order breaking ties).
type Board struct {
	Stats []*Stat
}

// Build groups completed issues by resolved assignee.
//
//   - Epics are skipped entirely (case-insensitive type match).
//   - Unassigned issues land in a dedicated bucket that is counted but never
//     rendered in the ranking.
//   - Every contributor in the mapping gets a zero-initialized bucket, so the
//     whole team shows up even with nothing done.
//   - Assignees absent from the mapping keep their original display name.
func Build(issues []jira.Issue, mapping *config.Mapping) *Board {
	byID := map[string]*Stat{}
	var order []*Stat

	add := func(id, name string) *Stat {
		st, ok := byID[id]
		if !ok {
			st = &Stat{ID: id, Name: name, Types: map[string]int{}}
			byID[id] = st
			order = append(order, st)
		}
		return st
	}

	add(unassignedID, unassignedName)
	mapping.Each(func(full, short string) {
		add(mappedPrefix+full, short)
	})

	for _, is := range issues {
		if strings.EqualFold(is.Type, "epic") {
			continue
		}
		var st *Stat
		switch {
		case is.Assignee == "":
			st = byID[unassignedID]
		case mapping.Has(is.Assignee):
			st = add(mappedPrefix+is.Assignee, mapping.Display(is.Assignee))
		default:
			st = add(originalPrefix+is.Assignee, is.Assignee)
		}
		st.Total++
		st.Types[is.Type]++
		st.Tasks = append(st.Tasks, is)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].Total > order[j].Total })
	return &Board{Stats: order}
}

// Active returns ranked contributors with at least one task, excluding the
// unassigned bucket.
func (b *Board) Active() []*Stat {
	var out []*Stat
	for _, st := range b.Stats {
		if st.ID == unassignedID || st.Total == 0 {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Inactive returns contributors listed in the mapping who completed nothing:
// the wall of shame.
func (b *Board) Inactive() []*Stat {
	var out []*Stat
	for _, st := range b.Stats {
		if st.Total == 0 && strings.HasPrefix(st.ID, mappedPrefix) {
			out = append(out, st)
		}
	}
	return out
}

// Unassigned returns the count of completed tasks with no assignee.
func (b *Board) Unassigned() int {
	for _, st := range b.Stats {
		if st.ID == unassignedID {
			return st.Total
		}
	}
	return 0
}
