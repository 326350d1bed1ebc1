package reconcile

// ToAdd returns the requested initiators that are not already members of the
// host. Duplicates in either input collapse; order does not matter.
func ToAdd(existing, requested []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		have[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(requested))
	var add []string
	for _, id := range requested {
		if _, ok := have[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		add = append(add, id)
	}
	return add
}

// ToRemove returns the intersection of existing and requested: only
// initiators that are currently members can be removed. Requesting removal
// of a non-member is a silent no-op.
func ToRemove(existing, requested []string) []string {
	want := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		want[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(existing))
	var remove []string
	for _, id := range existing {
		if _, ok := want[id]; !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		remove = append(remove, id)
	}
	return remove
}

// isSubset reports whether every id in ids is a member of set.
func isSubset(ids, set []string) bool {
	have := make(map[string]struct{}, len(set))
	for _, id := range set {
		have[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}
