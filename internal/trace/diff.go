package trace

import "sort"

// ValueChange records a modified key's transition.
type ValueChange struct {
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// ClaimsDiff is the semantic difference between two flat snapshots. Keys
// present in both with an identical value are implicitly unchanged and
// not listed.
type ClaimsDiff struct {
	Added    map[string]string      `json:"added"`
	Modified map[string]ValueChange `json:"modified"`
	Removed  []string               `json:"removed"`
}

// Empty reports whether the diff carries no changes.
func (d ClaimsDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// ComputeClaimsDiff computes the difference between two snapshots. Pure
// function: neither input is mutated, and the output is deterministic
// (removed keys are sorted). Callable between any two arbitrary steps,
// not just adjacent ones, for "time travel" inspection.
func ComputeClaimsDiff(oldSnapshot, newSnapshot map[string]string) ClaimsDiff {
	diff := ClaimsDiff{
		Added:    make(map[string]string),
		Modified: make(map[string]ValueChange),
		Removed:  []string{},
	}

	for key, newValue := range newSnapshot {
		oldValue, existed := oldSnapshot[key]
		switch {
		case !existed:
			diff.Added[key] = newValue
		case oldValue != newValue:
			diff.Modified[key] = ValueChange{OldValue: oldValue, NewValue: newValue}
		}
	}

	for key := range oldSnapshot {
		if _, present := newSnapshot[key]; !present {
			diff.Removed = append(diff.Removed, key)
		}
	}
	sort.Strings(diff.Removed)

	return diff
}
