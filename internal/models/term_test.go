// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"testing"
)

func TestTermIsRoot(t *testing.T) {
	tests := []struct {
		name   string
		parent int64
		want   bool
	}{
		{"root", 0, true},
		{"child", 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Term{ID: 1, Parent: tt.parent}).IsRoot(); got != tt.want {
				t.Errorf("IsRoot() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTermFormIsNew(t *testing.T) {
	if !(TermForm{}).IsNew() {
		t.Error("zero TermID should be a new term")
	}
	if (TermForm{TermID: 4}).IsNew() {
		t.Error("non-zero TermID should not be a new term")
	}
}

// TestTermJSONFieldNames pins the wire names the admin AJAX endpoint uses.
func TestTermJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Term{ID: 3, Name: "Veg", Slug: "veg", Parent: 1, Count: 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "name", "slug", "description", "parent", "count"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing JSON field %q in %s", key, data)
		}
	}
	if _, ok := fields["taxonomy"]; ok {
		t.Errorf("empty taxonomy should be omitted, got %s", data)
	}
}
