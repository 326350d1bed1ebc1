// Package reconcile makes a host (initiator group) on the array match its
// declared state: existence, initiator membership, port flags, and name.
package reconcile

import (
	"context"

	"github.com/avolkov/unihost/internal/flags"
	"github.com/avolkov/unihost/internal/unisphere"
)

// Existence declares whether a host should exist on the array.
type Existence string

// Existence values
const (
	Present Existence = "present"
	Absent  Existence = "absent"
)

// InitiatorState declares what the initiator list means: ensure the listed
// initiators are members of the host, or ensure they are not. Empty means
// the list is ignored.
type InitiatorState string

// InitiatorState values
const (
	InitiatorsUnset InitiatorState = ""
	PresentInHost   InitiatorState = "present-in-host"
	AbsentInHost    InitiatorState = "absent-in-host"
)

// DesiredState is one declared host, as collected from the caller.
// Flags stays a raw map: the normalizer owns the interpretation of booleans,
// string synonyms, and the "unset" sentinel.
type DesiredState struct {
	Name           string
	NewName        string
	Initiators     []string
	InitiatorState InitiatorState
	Flags          map[string]any
	State          Existence
}

// Result reports one reconciliation run. Host is the final state re-fetched
// from the array, nil exactly when the desired existence is Absent.
type Result struct {
	Changed bool
	Host    *unisphere.Host
}

// Gateway is the remote management boundary the reconciler drives. GetHost
// returns unisphere.ErrNotFound for a missing host; every mutation error is
// fatal for the run.
type Gateway interface {
	GetHost(ctx context.Context, name string) (*unisphere.Host, error)
	CreateHost(ctx context.Context, name string, initiators []string, hostFlags *flags.Set) error
	AddInitiators(ctx context.Context, name string, ids []string) error
	RemoveInitiators(ctx context.Context, name string, ids []string) error
	SetHostFlags(ctx context.Context, name string, hostFlags flags.Set) error
	RenameHost(ctx context.Context, name, newName string) error
	DeleteHost(ctx context.Context, name string) error
}
