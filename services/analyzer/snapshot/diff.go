// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/fxzscan/services/analyzer/extract"
	"github.com/AleutianAI/fxzscan/services/analyzer/report"
)

// Component change kinds.
const (
	ChangeMoved       = "moved"
	ChangeTypeChanged = "type_changed"
)

// ReportDiff lists what changed between two reports.
//
// Components and stores are matched by name. Routes and API calls have no
// identity beyond their content, so they are compared as multisets of
// rendered keys.
type ReportDiff struct {
	BaseSnapshotID   string `json:"base_snapshot_id,omitempty"`
	TargetSnapshotID string `json:"target_snapshot_id,omitempty"`

	ComponentsAdded    []string          `json:"components_added"`
	ComponentsRemoved  []string          `json:"components_removed"`
	ComponentsModified []ComponentChange `json:"components_modified"`

	RoutesAdded   []string `json:"routes_added"`
	RoutesRemoved []string `json:"routes_removed"`

	APICallsAdded   []string `json:"api_calls_added"`
	APICallsRemoved []string `json:"api_calls_removed"`

	StoresAdded    []string      `json:"stores_added"`
	StoresRemoved  []string      `json:"stores_removed"`
	StoresModified []StoreChange `json:"stores_modified"`

	// FormsDelta is target form count minus base form count.
	FormsDelta int `json:"forms_delta"`

	ParseFailuresAdded   []string `json:"parse_failures_added"`
	ParseFailuresRemoved []string `json:"parse_failures_removed"`

	Summary DiffSummary `json:"summary"`
}

// ComponentChange describes a component present in both reports that changed.
type ComponentChange struct {
	Name       string `json:"name"`
	ChangeType string `json:"change_type"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// StoreChange describes a store present in both reports whose members changed.
type StoreChange struct {
	Name           string   `json:"name"`
	StateAdded     []string `json:"state_added"`
	StateRemoved   []string `json:"state_removed"`
	ActionsAdded   []string `json:"actions_added"`
	ActionsRemoved []string `json:"actions_removed"`
}

// DiffSummary aggregates a diff.
type DiffSummary struct {
	// TotalChanges counts every added, removed and modified entry plus one
	// when the form count changed.
	TotalChanges int `json:"total_changes"`

	// FilesAffected is the number of distinct files with a changed fact.
	FilesAffected int `json:"files_affected"`

	// Unchanged is true when the reports carry identical facts.
	Unchanged bool `json:"unchanged"`
}

// Diff compares two reports. Every list in the result is sorted.
func Diff(base, target *report.AnalysisOutput) (*ReportDiff, error) {
	if base == nil {
		return nil, fmt.Errorf("base report must not be nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target report must not be nil")
	}

	d := &ReportDiff{
		ComponentsModified: []ComponentChange{},
		StoresModified:     []StoreChange{},
	}
	files := make(map[string]struct{})
	touch := func(path string) { files[path] = struct{}{} }

	// Components by name.
	baseComps := make(map[string]extract.ComponentInfo, len(base.Components))
	for _, c := range base.Components {
		baseComps[c.Name] = c
	}
	targetComps := make(map[string]extract.ComponentInfo, len(target.Components))
	for _, c := range target.Components {
		targetComps[c.Name] = c
		b, ok := baseComps[c.Name]
		switch {
		case !ok:
			d.ComponentsAdded = append(d.ComponentsAdded, c.Name)
			touch(c.FilePath)
		case b.FilePath != c.FilePath:
			d.ComponentsModified = append(d.ComponentsModified, ComponentChange{
				Name: c.Name, ChangeType: ChangeMoved, From: b.FilePath, To: c.FilePath,
			})
			touch(b.FilePath)
			touch(c.FilePath)
		case b.Type != c.Type:
			d.ComponentsModified = append(d.ComponentsModified, ComponentChange{
				Name: c.Name, ChangeType: ChangeTypeChanged, From: string(b.Type), To: string(c.Type),
			})
			touch(c.FilePath)
		}
	}
	for _, c := range base.Components {
		if _, ok := targetComps[c.Name]; !ok {
			d.ComponentsRemoved = append(d.ComponentsRemoved, c.Name)
			touch(c.FilePath)
		}
	}

	// Routes and API calls as multisets.
	d.RoutesAdded, d.RoutesRemoved = multisetDiff(routeKeys(base.Routes), routeKeys(target.Routes), touch)
	d.APICallsAdded, d.APICallsRemoved = multisetDiff(apiCallKeys(base.APICalls), apiCallKeys(target.APICalls), touch)

	// Stores by name and file.
	baseStores := make(map[string]extract.StoreInfo, len(base.ZustandStores))
	for _, s := range base.ZustandStores {
		baseStores[storeKey(s)] = s
	}
	targetStores := make(map[string]struct{}, len(target.ZustandStores))
	for _, s := range target.ZustandStores {
		key := storeKey(s)
		targetStores[key] = struct{}{}
		b, ok := baseStores[key]
		if !ok {
			d.StoresAdded = append(d.StoresAdded, key)
			touch(s.FilePath)
			continue
		}
		change := StoreChange{Name: key}
		change.StateAdded, change.StateRemoved = setDiff(b.State, s.State)
		change.ActionsAdded, change.ActionsRemoved = setDiff(b.Actions, s.Actions)
		if len(change.StateAdded)+len(change.StateRemoved)+len(change.ActionsAdded)+len(change.ActionsRemoved) > 0 {
			d.StoresModified = append(d.StoresModified, change)
			touch(s.FilePath)
		}
	}
	for _, s := range base.ZustandStores {
		key := storeKey(s)
		if _, ok := targetStores[key]; !ok {
			d.StoresRemoved = append(d.StoresRemoved, key)
			touch(s.FilePath)
		}
	}

	d.FormsDelta = len(target.Forms) - len(base.Forms)

	d.ParseFailuresAdded, d.ParseFailuresRemoved = setDiff(base.ParseFailures(), target.ParseFailures())

	d.sortAndFill()

	total := len(d.ComponentsAdded) + len(d.ComponentsRemoved) + len(d.ComponentsModified) +
		len(d.RoutesAdded) + len(d.RoutesRemoved) +
		len(d.APICallsAdded) + len(d.APICallsRemoved) +
		len(d.StoresAdded) + len(d.StoresRemoved) + len(d.StoresModified) +
		len(d.ParseFailuresAdded) + len(d.ParseFailuresRemoved)
	if d.FormsDelta != 0 {
		total++
	}
	d.Summary = DiffSummary{
		TotalChanges:  total,
		FilesAffected: len(files),
		Unchanged:     total == 0,
	}
	return d, nil
}

// keyed is a rendered fact key and the file it came from.
type keyed struct {
	key  string
	file string
}

func routeKeys(routes []extract.RouteInfo) []keyed {
	keys := make([]keyed, 0, len(routes))
	for _, r := range routes {
		keys = append(keys, keyed{
			key:  fmt.Sprintf("%s %s -> %s", r.FilePath, orNull(r.Path), orNull(r.Element)),
			file: r.FilePath,
		})
	}
	return keys
}

func apiCallKeys(calls []extract.APICallInfo) []keyed {
	keys := make([]keyed, 0, len(calls))
	for _, c := range calls {
		parts := []string{c.FilePath, c.Type}
		if c.Method != "" {
			parts = append(parts, c.Method)
		}
		parts = append(parts, c.URL)
		keys = append(keys, keyed{key: strings.Join(parts, " "), file: c.FilePath})
	}
	return keys
}

func storeKey(s extract.StoreInfo) string {
	return s.FilePath + "#" + s.Name
}

func orNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}

// multisetDiff returns keys occurring more often in target (added) or in
// base (removed), repeated once per extra occurrence.
func multisetDiff(base, target []keyed, touch func(string)) (added, removed []string) {
	counts := make(map[string]int)
	fileOf := make(map[string]string)
	for _, k := range base {
		counts[k.key]--
		fileOf[k.key] = k.file
	}
	for _, k := range target {
		counts[k.key]++
		fileOf[k.key] = k.file
	}
	for key, n := range counts {
		for ; n > 0; n-- {
			added = append(added, key)
		}
		for ; n < 0; n++ {
			removed = append(removed, key)
		}
		if counts[key] != 0 {
			touch(fileOf[key])
		}
	}
	return added, removed
}

// setDiff returns the members only in target (added) and only in base (removed).
func setDiff(base, target []string) (added, removed []string) {
	inBase := make(map[string]struct{}, len(base))
	for _, s := range base {
		inBase[s] = struct{}{}
	}
	inTarget := make(map[string]struct{}, len(target))
	for _, s := range target {
		inTarget[s] = struct{}{}
		if _, ok := inBase[s]; !ok {
			added = append(added, s)
		}
	}
	for _, s := range base {
		if _, ok := inTarget[s]; !ok {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return nonNil(added), nonNil(removed)
}

func (d *ReportDiff) sortAndFill() {
	for _, list := range []*[]string{
		&d.ComponentsAdded, &d.ComponentsRemoved,
		&d.RoutesAdded, &d.RoutesRemoved,
		&d.APICallsAdded, &d.APICallsRemoved,
		&d.StoresAdded, &d.StoresRemoved,
		&d.ParseFailuresAdded, &d.ParseFailuresRemoved,
	} {
		*list = nonNil(*list)
		sort.Strings(*list)
	}
	sort.Slice(d.ComponentsModified, func(i, j int) bool {
		return d.ComponentsModified[i].Name < d.ComponentsModified[j].Name
	})
	sort.Slice(d.StoresModified, func(i, j int) bool {
		return d.StoresModified[i].Name < d.StoresModified[j].Name
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
