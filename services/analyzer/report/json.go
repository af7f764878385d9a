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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Write encodes out as 2-space indented JSON followed by a newline. HTML
// characters are written as-is.
func Write(w io.Writer, out *AnalysisOutput) error {
	if out == nil {
		return fmt.Errorf("report must not be nil")
	}
	out.normalize()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// Marshal returns the bytes Write would produce.
func Marshal(out *AnalysisOutput) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load decodes a report written by Write.
func Load(r io.Reader) (*AnalysisOutput, error) {
	var out AnalysisOutput
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	out.normalize()
	return &out, nil
}
