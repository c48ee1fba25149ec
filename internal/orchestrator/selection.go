package orchestrator

import (
	"fwdctl/internal/config"
	"fwdctl/internal/registry"
)

// SelectionState is the tri-state of a select-all control.
type SelectionState int

const (
	SelectionNone SelectionState = iota
	SelectionPartial
	SelectionAll
)

func (s SelectionState) String() string {
	switch s {
	case SelectionNone:
		return "none"
	case SelectionPartial:
		return "partial"
	case SelectionAll:
		return "all"
	default:
		return "unknown"
	}
}

// Selection tracks which configurations the user has marked for a bulk
// operation. The tri-state summaries are always derived from a registry
// snapshot on read; they are never stored, so they cannot drift.
//
// Running sessions are never implicitly selectable for bulk start and are
// always implicitly included in bulk stop scope.
type Selection struct {
	selected map[int64]bool
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{selected: make(map[int64]bool)}
}

// Toggle flips one configuration's selection.
func (s *Selection) Toggle(id int64) {
	if s.selected[id] {
		delete(s.selected, id)
	} else {
		s.selected[id] = true
	}
}

// Selected reports whether one configuration is selected.
func (s *Selection) Selected(id int64) bool {
	return s.selected[id]
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.selected = make(map[int64]bool)
}

// selectable reports whether a configuration participates in select-all for
// bulk start: only sessions that are not already running qualify.
func selectable(snap registry.Snapshot, c config.Config) bool {
	return !snap.Running[c.ID]
}

func (s *Selection) stateOver(snap registry.Snapshot, filter func(config.Config) bool) SelectionState {
	total, chosen := 0, 0
	for _, c := range snap.Configs {
		if filter != nil && !filter(c) {
			continue
		}
		if !selectable(snap, c) {
			continue
		}
		total++
		if s.selected[c.ID] {
			chosen++
		}
	}
	switch {
	case total == 0 || chosen == 0:
		return SelectionNone
	case chosen == total:
		return SelectionAll
	default:
		return SelectionPartial
	}
}

// GlobalState derives the tri-state of the global select-all control.
func (s *Selection) GlobalState(snap registry.Snapshot) SelectionState {
	return s.stateOver(snap, nil)
}

// GroupState derives the tri-state of one context group's select-all control.
func (s *Selection) GroupState(snap registry.Snapshot, clusterContext string) SelectionState {
	return s.stateOver(snap, func(c config.Config) bool { return c.Context == clusterContext })
}

// ToggleGroup toggles one context group: if every selectable configuration
// in the group is already selected the group is deselected, otherwise every
// selectable configuration in the group becomes selected. Running sessions
// are skipped either way.
func (s *Selection) ToggleGroup(snap registry.Snapshot, clusterContext string) {
	state := s.GroupState(snap, clusterContext)
	for _, c := range snap.Configs {
		if c.Context != clusterContext || !selectable(snap, c) {
			continue
		}
		if state == SelectionAll {
			delete(s.selected, c.ID)
		} else {
			s.selected[c.ID] = true
		}
	}
}

// ToggleAll toggles the global select-all control with the same rule as
// ToggleGroup.
func (s *Selection) ToggleAll(snap registry.Snapshot) {
	state := s.GlobalState(snap)
	for _, c := range snap.Configs {
		if !selectable(snap, c) {
			continue
		}
		if state == SelectionAll {
			delete(s.selected, c.ID)
		} else {
			s.selected[c.ID] = true
		}
	}
}

// StartTargets returns the configurations a bulk start applies to: selected
// and not currently running.
func (s *Selection) StartTargets(snap registry.Snapshot) []config.Config {
	var targets []config.Config
	for _, c := range snap.Configs {
		if s.selected[c.ID] && !snap.Running[c.ID] {
			targets = append(targets, c)
		}
	}
	return targets
}

// StopTargets returns the configurations a bulk stop applies to: every
// running session, plus anything explicitly selected.
func (s *Selection) StopTargets(snap registry.Snapshot) []config.Config {
	var targets []config.Config
	for _, c := range snap.Configs {
		if snap.Running[c.ID] || s.selected[c.ID] {
			targets = append(targets, c)
		}
	}
	return targets
}
