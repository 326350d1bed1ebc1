// Package flags models the tri-valued host port flags of a PowerMax host
// (initiator group) and the normalization rules between operator input,
// the canonical form, and the flag report returned by Unisphere.
package flags

import "strings"

// State is the canonical value of a single host flag.
type State int

// Flag states
const (
	// Default means no override; the host inherits the port/array default.
	Default State = iota
	Enabled
	Disabled
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Default:
		return "default"
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Name identifies one of the overridable host flags.
type Name string

// The closed set of overridable host flags. consistent_lun is not part of
// this set: it has no default/unset tri-state, only on or off.
const (
	VolumeSetAddressing Name = "volume_set_addressing"
	EnvironSet          Name = "environ_set"
	DisableQResetOnUA   Name = "disable_q_reset_on_ua"
	OpenVMS             Name = "openvms"
	AvoidResetBroadcast Name = "avoid_reset_broadcast"
	SCSI3               Name = "scsi_3"
	SPC2ProtocolVersion Name = "spc2_protocol_version"
	SCSISupport1        Name = "scsi_support1"
)

var names = []Name{
	VolumeSetAddressing,
	EnvironSet,
	DisableQResetOnUA,
	OpenVMS,
	AvoidResetBroadcast,
	SCSI3,
	SPC2ProtocolVersion,
	SCSISupport1,
}

// Names returns the full flag name set in a stable order.
func Names() []Name {
	out := make([]Name, len(names))
	copy(out, names)
	return out
}

// Set is the canonical flag set of a host. After normalization States always
// contains every name in Names(); there is no "absent" entry.
type Set struct {
	States        map[Name]State
	ConsistentLUN bool
}

// NewSet returns a Set with every flag at Default and consistent_lun off.
func NewSet() Set {
	s := Set{States: make(map[Name]State, len(names))}
	for _, n := range names {
		s.States[n] = Default
	}
	return s
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := Set{
		States:        make(map[Name]State, len(s.States)),
		ConsistentLUN: s.ConsistentLUN,
	}
	for n, st := range s.States {
		out.States[n] = st
	}
	return out
}

// State returns the state of a flag, Default if the set is incomplete.
func (s Set) State(n Name) State {
	return s.States[n]
}

// Equal reports whether two sets match exactly. This is the sole
// change-detection signal for the flag reconciliation step.
func (s Set) Equal(o Set) bool {
	if s.ConsistentLUN != o.ConsistentLUN {
		return false
	}
	for _, n := range names {
		if s.States[n] != o.States[n] {
			return false
		}
	}
	return true
}

// Normalize converts a loosely-typed flag map (booleans, string synonyms,
// the "unset" sentinel) into a canonical Set. It is total: every recognized
// flag name gets exactly one state, absent names resolve to Default, and
// unrecognized values resolve to Enabled rather than erroring. That leniency
// is deliberate and must not be tightened.
func Normalize(raw map[string]any) Set {
	s := NewSet()
	for _, n := range names {
		v, ok := raw[string(n)]
		if !ok {
			continue
		}
		s.States[n] = stateOf(v)
	}
	if v, ok := raw[string(consistentLUNKey)]; ok {
		s.ConsistentLUN = consistentLUNOf(v)
	}
	return s
}

// Overlay applies the names present in raw on top of base and leaves every
// other flag at its baseline value. Used by the modify path so that flags
// the operator did not mention keep their current remote value.
func Overlay(base Set, raw map[string]any) Set {
	s := base.Clone()
	for _, n := range names {
		v, ok := raw[string(n)]
		if !ok {
			continue
		}
		s.States[n] = stateOf(v)
	}
	if v, ok := raw[string(consistentLUNKey)]; ok {
		s.ConsistentLUN = consistentLUNOf(v)
	}
	return s
}

const consistentLUNKey = Name("consistent_lun")

// stateOf maps one raw flag value to its canonical state. Anything that is
// not an explicit false/unset synonym counts as enabled.
func stateOf(v any) State {
	switch val := v.(type) {
	case bool:
		if !val {
			return Disabled
		}
		return Enabled
	case string:
		if strings.EqualFold(val, "unset") {
			return Default
		}
		if strings.EqualFold(val, "false") {
			return Disabled
		}
		return Enabled
	default:
		return Enabled
	}
}

// consistentLUNOf maps a raw consistent_lun value to on/off. There is no
// tri-state here: both "false" and "unset" mean off.
func consistentLUNOf(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if strings.EqualFold(val, "false") || strings.EqualFold(val, "unset") {
			return false
		}
		return true
	default:
		return true
	}
}
