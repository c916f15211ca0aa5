// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feedback

import (
	"fmt"
	"sort"

	"github.com/DelevoXDG/scarb/core"
)

// StringDiff represents a modified string value.
// * Added: Previous = "", Current != ""
// * Deleted: Previous != "", Current = ""
// * Modified: Previous != "", Current != ""
// * No Change: Previous = Current
type StringDiff struct {
	Previous string
	Current  string
}

func (diff StringDiff) String() string {
	if diff.Previous == "" && diff.Current != "" {
		return fmt.Sprintf("+ %s", diff.Current)
	}

	if diff.Previous != "" && diff.Current == "" {
		return fmt.Sprintf("- %s", diff.Previous)
	}

	if diff.Previous != diff.Current {
		return fmt.Sprintf("%s -> %s", diff.Previous, diff.Current)
	}

	return diff.Current
}

type lockKey struct {
	name core.PackageName
	src  core.SourceID
}

// DiffLocks lists what changes when next replaces prev: added and updated
// packages first, then removed ones, each sorted by name. members names the
// workspace members; a package they depend on is a direct dep. prev may be
// nil.
func DiffLocks(prev, next *core.Lockfile, members []core.PackageName) []LockFeedback {
	isMember := make(map[core.PackageName]bool, len(members))
	for _, m := range members {
		isMember[m] = true
	}
	direct := make(map[core.PackageName]bool)
	for _, p := range next.Packages {
		if isMember[p.Name] {
			for _, d := range p.Dependencies {
				direct[d] = true
			}
		}
	}
	depType := func(name core.PackageName) string {
		switch {
		case isMember[name]:
			return DepTypeMember
		case direct[name]:
			return DepTypeDirect
		}
		return DepTypeTransitive
	}

	old := make(map[lockKey]string)
	if prev != nil {
		for _, p := range prev.Packages {
			old[lockKey{p.Name, p.Source}] = p.Version.String()
		}
	}

	var changed, removed []LockFeedback
	kept := make(map[lockKey]bool)
	for _, p := range next.Packages {
		k := lockKey{p.Name, p.Source}
		kept[k] = true
		cur := p.Version.String()
		if old[k] == cur {
			continue
		}
		changed = append(changed, LockFeedback{
			Name:           string(p.Name),
			DependencyType: depType(p.Name),
			Version:        StringDiff{Previous: old[k], Current: cur},
		})
	}
	if prev != nil {
		for _, p := range prev.Packages {
			if kept[lockKey{p.Name, p.Source}] {
				continue
			}
			removed = append(removed, LockFeedback{
				Name:    string(p.Name),
				Version: StringDiff{Previous: p.Version.String()},
			})
		}
	}

	byName := func(lfs []LockFeedback) {
		sort.SliceStable(lfs, func(i, j int) bool { return lfs[i].Name < lfs[j].Name })
	}
	byName(changed)
	byName(removed)
	return append(changed, removed...)
}
