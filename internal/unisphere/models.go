package unisphere

import "github.com/avolkov/unihost/internal/flags"

// Host represents a host (initiator group) as reported by Unisphere.
// The association fields (masking views, host groups, counts) are
// pass-through output only; the reconciler never diffs on them.
type Host struct {
	HostID             string   `json:"hostId"`
	Initiators         []string `json:"initiator,omitempty"`
	NumOfInitiators    int      `json:"num_of_initiators"`
	EnabledFlags       string   `json:"enabled_flags,omitempty"`
	DisabledFlags      string   `json:"disabled_flags,omitempty"`
	ConsistentLUN      bool     `json:"consistent_lun"`
	PortFlagsOverride  bool     `json:"port_flags_override"`
	Type               string   `json:"type,omitempty"`
	MaskingViews       []string `json:"maskingview,omitempty"`
	HostGroups         []string `json:"hostgroup,omitempty"`
	NumOfMaskingViews  int      `json:"num_of_masking_views"`
	NumOfHostGroups    int      `json:"num_of_hostgroups"`
	NumOfPowerPathHost int      `json:"num_of_powerpath_hosts"`
}

// FlagReport returns the canonical flag set rebuilt from the host's
// reported flag lists.
func (h *Host) FlagReport() flags.Set {
	return flags.ParseReport(h.EnabledFlags, h.DisabledFlags, h.ConsistentLUN)
}

// createHostParam is the POST body for host creation.
type createHostParam struct {
	HostID      string         `json:"hostId"`
	InitiatorID []string       `json:"initiatorId,omitempty"`
	HostFlags   map[string]any `json:"host_flags,omitempty"`
}

// editHostParam wraps one host mutation. Unisphere accepts a single action
// per PUT, nested under editHostActionParam.
type editHostParam struct {
	EditHostAction editHostAction `json:"editHostActionParam"`
}

type editHostAction struct {
	AddInitiator    *initiatorParam `json:"addInitiatorParam,omitempty"`
	RemoveInitiator *initiatorParam `json:"removeInitiatorParam,omitempty"`
	SetHostFlags    *hostFlagsParam `json:"setHostFlagsParam,omitempty"`
	Rename          *renameParam    `json:"renameHostParam,omitempty"`
}

type initiatorParam struct {
	Initiator []string `json:"initiator"`
}

type hostFlagsParam struct {
	HostFlags map[string]any `json:"host_flags"`
}

type renameParam struct {
	NewHostName string `json:"new_host_name"`
}

// apiError is the error body Unisphere returns on non-2xx responses.
type apiError struct {
	Message string `json:"message"`
}

// flagsPayload converts a canonical flag set into the wire form: one
// {enabled, override} pair per flag plus the consistent_lun bool. Default
// means override=false, so the port default applies.
func flagsPayload(s flags.Set) map[string]any {
	payload := make(map[string]any, len(flags.Names())+1)
	for _, n := range flags.Names() {
		st := s.State(n)
		payload[string(n)] = map[string]bool{
			"enabled":  st == flags.Enabled,
			"override": st != flags.Default,
		}
	}
	payload["consistent_lun"] = s.ConsistentLUN
	return payload
}
