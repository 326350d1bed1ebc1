package reconcile

import (
	"sort"
	"testing"
)

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	a, b = sorted(a), sorted(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestToAdd(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		requested []string
		expected  []string
	}{
		{
			name:      "all_new",
			existing:  nil,
			requested: []string{"iqn.a", "iqn.b"},
			expected:  []string{"iqn.a", "iqn.b"},
		},
		{
			name:      "all_present",
			existing:  []string{"iqn.a", "iqn.b"},
			requested: []string{"iqn.a", "iqn.b"},
			expected:  nil,
		},
		{
			name:      "partial_overlap",
			existing:  []string{"iqn.a"},
			requested: []string{"iqn.a", "iqn.b"},
			expected:  []string{"iqn.b"},
		},
		{
			name:      "empty_request",
			existing:  []string{"iqn.a"},
			requested: nil,
			expected:  nil,
		},
		{
			name:      "duplicates_collapse",
			existing:  nil,
			requested: []string{"iqn.a", "iqn.a"},
			expected:  []string{"iqn.a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToAdd(tt.existing, tt.requested)
			if !equalSets(got, tt.expected) {
				t.Errorf("ToAdd() = %v, want %v", got, tt.expected)
			}
			// ToAdd never returns an existing member
			for _, id := range got {
				for _, e := range tt.existing {
					if id == e {
						t.Errorf("ToAdd() returned existing member %q", id)
					}
				}
			}
		})
	}
}

func TestToRemove(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		requested []string
		expected  []string
	}{
		{
			name:      "remove_member",
			existing:  []string{"iqn.a", "iqn.b"},
			requested: []string{"iqn.b"},
			expected:  []string{"iqn.b"},
		},
		{
			name:      "remove_non_member_is_noop",
			existing:  []string{"iqn.a"},
			requested: []string{"iqn.z"},
			expected:  nil,
		},
		{
			name:      "empty_existing",
			existing:  nil,
			requested: []string{"iqn.a"},
			expected:  nil,
		},
		{
			name:      "empty_request",
			existing:  []string{"iqn.a"},
			requested: nil,
			expected:  nil,
		},
		{
			name:      "mixed",
			existing:  []string{"iqn.a", "iqn.b"},
			requested: []string{"iqn.b", "iqn.c"},
			expected:  []string{"iqn.b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToRemove(tt.existing, tt.requested)
			if !equalSets(got, tt.expected) {
				t.Errorf("ToRemove() = %v, want %v", got, tt.expected)
			}
			// ToRemove is a subset of existing ∩ requested
			for _, id := range got {
				if !isSubset([]string{id}, tt.existing) || !isSubset([]string{id}, tt.requested) {
					t.Errorf("ToRemove() returned %q outside existing ∩ requested", id)
				}
			}
		})
	}
}

func TestIsSubset(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		set      []string
		expected bool
	}{
		{"empty_is_subset", nil, []string{"a"}, true},
		{"subset", []string{"a"}, []string{"a", "b"}, true},
		{"equal", []string{"a", "b"}, []string{"a", "b"}, true},
		{"not_subset", []string{"a", "c"}, []string{"a", "b"}, false},
		{"empty_set", []string{"a"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSubset(tt.ids, tt.set); got != tt.expected {
				t.Errorf("isSubset(%v, %v) = %v, want %v", tt.ids, tt.set, got, tt.expected)
			}
		})
	}
}
