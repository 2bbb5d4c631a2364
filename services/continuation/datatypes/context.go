// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// TaskContext carries the contextual signals available to the scorer,
// discoverer, and decision engine for one session.
//
// Retrieval is optional; an empty Snippets list simply degrades scoring
// and discovery to the immediate task content.
type TaskContext struct {
	// Query is the original user request that produced the initial result.
	Query string `json:"query,omitempty"`

	// Snippets holds ranked context retrieved from the memory store,
	// best match first. May be empty.
	Snippets []string `json:"snippets,omitempty"`

	// Preferences maps opportunity categories to observed user or
	// session preference weights in [0,1]. Missing categories default
	// to a neutral 0.5.
	Preferences map[OpportunityCategory]float64 `json:"preferences,omitempty"`
}

// PreferenceFor returns the preference weight for a category, defaulting
// to 0.5 when no signal has been observed.
func (c TaskContext) PreferenceFor(cat OpportunityCategory) float64 {
	if v, ok := c.Preferences[cat]; ok {
		return v
	}
	return 0.5
}
