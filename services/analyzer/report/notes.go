// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

// DefaultAdvisoryNotes are the fixed notes appended to every report. They are
// static commentary and not derived from the scanned source.
var DefaultAdvisoryNotes = []string{
	"Component Structure: Some components are defined directly inside page files. It's better to separate reusable components.",
	"API Call Redundancy: Some API calls are repeated across components. Consider centralizing them in custom hooks.",
	"Testability: Most interactive elements lack 'data-testid' attributes, which will make E2E testing harder.",
	"Large Components: Pages like CreateInvoicePage and NewRepairPage are very large and handle a lot of logic. They should be broken down into smaller components.",
}
