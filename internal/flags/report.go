package flags

import (
	"regexp"
	"strings"
)

// Unisphere annotates reported flag names, e.g. "SCSI_3(Ovrd)". The suffix
// has to go before the name can be matched against the canonical set.
var annotation = regexp.MustCompile(`\(.*?\)`)

// ParseReport rebuilds the canonical Set from the flag report of a host as
// returned by Unisphere: two comma-separated lists of overridden flag names
// (enabled and disabled) plus the consistent_lun bool. Every flag named in
// neither list is Default. Names that do not match the canonical set after
// annotation stripping are ignored.
func ParseReport(enabledText, disabledText string, consistentLUN bool) Set {
	s := NewSet()
	for _, raw := range strings.Split(enabledText, ",") {
		if n, ok := reportedName(raw); ok {
			s.States[n] = Enabled
		}
	}
	for _, raw := range strings.Split(disabledText, ",") {
		if n, ok := reportedName(raw); ok {
			s.States[n] = Disabled
		}
	}
	s.ConsistentLUN = consistentLUN
	return s
}

func reportedName(raw string) (Name, bool) {
	cleaned := annotation.ReplaceAllString(raw, "")
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))
	if cleaned == "" {
		return "", false
	}
	n := Name(cleaned)
	for _, known := range names {
		if n == known {
			return n, true
		}
	}
	return "", false
}
