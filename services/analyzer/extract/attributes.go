// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attributes is an insertion-ordered mapping of attribute name to literal
// value. Setting an existing name keeps its original position and replaces
// the value, matching how JavaScript objects behave.
//
// The zero value is an empty, usable mapping.
type Attributes struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewAttributes returns an empty mapping.
func NewAttributes() Attributes {
	return Attributes{m: orderedmap.New[string, string]()}
}

// Set records value under name.
func (a *Attributes) Set(name, value string) {
	if a.m == nil {
		a.m = orderedmap.New[string, string]()
	}
	a.m.Set(name, value)
}

// Get returns the value stored under name.
func (a Attributes) Get(name string) (string, bool) {
	if a.m == nil {
		return "", false
	}
	return a.m.Get(name)
}

// Len returns the number of attributes.
func (a Attributes) Len() int {
	if a.m == nil {
		return 0
	}
	return a.m.Len()
}

// Keys returns attribute names in insertion order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, a.Len())
	if a.m == nil {
		return keys
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON writes the mapping as a JSON object in insertion order without
// HTML-escaping keys or values.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if a.m != nil {
		first := true
		for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeJSONString(&buf, pair.Key); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := writeJSONString(&buf, pair.Value); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, string]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	a.m = m
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
