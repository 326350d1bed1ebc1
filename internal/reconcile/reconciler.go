package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/unihost/internal/flags"
	"github.com/avolkov/unihost/internal/unisphere"
)

// Reconciler drives one host towards its declared state through the gateway.
// It holds no state between runs: the array is the single source of truth
// and every run re-fetches before deciding. There is no protection against
// two concurrent runs targeting the same host name; the read-check-write
// sequence is not atomic on the array side.
type Reconciler struct {
	gw Gateway
}

// New creates a Reconciler on top of a gateway.
func New(gw Gateway) *Reconciler {
	return &Reconciler{gw: gw}
}

// Reconcile runs the full decision sequence for one declared host: create,
// add initiators, remove initiators, modify flags, rename, delete. Steps
// are gated independently and share the changed accumulator. The first
// failed remote call aborts the run; the reported changed state is then not
// guaranteed consistent and callers must re-fetch to learn the true state.
func (r *Reconciler) Reconcile(ctx context.Context, desired DesiredState) (Result, error) {
	host, err := r.fetch(ctx, desired.Name)
	if err != nil {
		return Result{}, err
	}

	changed := false

	if desired.State == Present && host == nil && desired.Name != "" {
		log.Info().Str("host", desired.Name).Msg("Creating host")
		if err := r.createHost(ctx, desired); err != nil {
			return Result{Changed: changed}, err
		}
		changed = true
	}

	if desired.State == Present && host != nil &&
		desired.InitiatorState == PresentInHost && len(desired.Initiators) > 0 {
		did, err := r.addInitiators(ctx, desired.Name, desired.Initiators)
		if err != nil {
			return Result{Changed: changed}, err
		}
		changed = did || changed
	}

	if desired.State == Present && host != nil &&
		desired.InitiatorState == AbsentInHost && len(desired.Initiators) > 0 {
		did, err := r.removeInitiators(ctx, desired.Name, desired.Initiators)
		if err != nil {
			return Result{Changed: changed}, err
		}
		changed = did || changed
	}

	if desired.State == Present && host != nil && desired.Flags != nil {
		did, err := r.modifyFlags(ctx, desired.Name, desired.Flags)
		if err != nil {
			return Result{Changed: changed}, err
		}
		changed = did || changed
	}

	if desired.State == Present && host != nil && desired.NewName != "" {
		if host.HostID != desired.NewName {
			log.Info().Str("host", desired.Name).Str("new_name", desired.NewName).Msg("Renaming host")
			if err := r.gw.RenameHost(ctx, desired.Name, desired.NewName); err != nil {
				return Result{Changed: changed}, fmt.Errorf("rename host %q failed: %w", desired.Name, err)
			}
			changed = true
		}
	}

	if desired.State == Absent && host != nil {
		log.Info().Str("host", desired.Name).Msg("Deleting host")
		if err := r.gw.DeleteHost(ctx, desired.Name); err != nil {
			return Result{Changed: changed}, fmt.Errorf("delete host %q failed: %w", desired.Name, err)
		}
		changed = true
	}

	return r.finalResult(ctx, desired, changed)
}

// fetch returns the host, or nil when the array has no host by that name.
// Any other fetch failure aborts the run: treating a transport fault as
// "absent" could turn it into a spurious create.
func (r *Reconciler) fetch(ctx context.Context, name string) (*unisphere.Host, error) {
	host, err := r.gw.GetHost(ctx, name)
	if err != nil {
		if errors.Is(err, unisphere.ErrNotFound) {
			log.Debug().Str("host", name).Msg("Host not found on array")
			return nil, nil
		}
		return nil, fmt.Errorf("get host %q failed: %w", name, err)
	}
	return host, nil
}

// createHost creates the host with the resolved initiator list and flag
// set. Initiators are discarded unless they are declared present-in-host:
// a host is never created with initiators it is meant to shed.
func (r *Reconciler) createHost(ctx context.Context, desired DesiredState) error {
	initiators := desired.Initiators
	if desired.InitiatorState != PresentInHost {
		initiators = nil
	}

	var hostFlags *flags.Set
	if desired.Flags != nil {
		normalized := flags.Normalize(desired.Flags)
		hostFlags = &normalized
	}

	if err := r.gw.CreateHost(ctx, desired.Name, initiators, hostFlags); err != nil {
		return fmt.Errorf("create host %q failed: %w", desired.Name, err)
	}
	return nil
}

func (r *Reconciler) addInitiators(ctx context.Context, name string, requested []string) (bool, error) {
	host, err := r.fetch(ctx, name)
	if err != nil {
		return false, err
	}
	var existing []string
	if host != nil {
		existing = host.Initiators
	}

	if isSubset(requested, existing) {
		log.Info().Str("host", name).Msg("Initiators are already present in host")
		return false, nil
	}

	add := ToAdd(existing, requested)
	if len(add) == 0 {
		log.Info().Str("host", name).Msg("No initiators to add to host")
		return false, nil
	}

	log.Info().Str("host", name).Strs("initiators", add).Msg("Adding initiators to host")
	if err := r.gw.AddInitiators(ctx, name, add); err != nil {
		return false, fmt.Errorf("add initiators to host %q failed: %w", name, err)
	}
	return true, nil
}

func (r *Reconciler) removeInitiators(ctx context.Context, name string, requested []string) (bool, error) {
	host, err := r.fetch(ctx, name)
	if err != nil {
		return false, err
	}
	var existing []string
	if host != nil {
		existing = host.Initiators
	}

	if len(existing) == 0 {
		log.Info().Str("host", name).Msg("No initiators are present in host, nothing to remove")
		return false, nil
	}

	remove := ToRemove(existing, requested)
	if len(remove) == 0 {
		log.Info().Str("host", name).Msg("No initiators to remove from host")
		return false, nil
	}

	log.Info().Str("host", name).Strs("initiators", remove).Msg("Removing initiators from host")
	if err := r.gw.RemoveInitiators(ctx, name, remove); err != nil {
		return false, fmt.Errorf("remove initiators from host %q failed: %w", name, err)
	}
	return true, nil
}

// modifyFlags overlays the raw flag input on the host's current flag set.
// The baseline is rebuilt from the array's report, never assumed
// all-default: flags the input does not mention keep their current value.
func (r *Reconciler) modifyFlags(ctx context.Context, name string, raw map[string]any) (bool, error) {
	host, err := r.fetch(ctx, name)
	if err != nil {
		return false, err
	}
	if host == nil {
		return false, fmt.Errorf("modify flags of host %q failed: %w", name, unisphere.ErrNotFound)
	}

	current := host.FlagReport()
	next := flags.Overlay(current, raw)

	if next.Equal(current) {
		log.Info().Str("host", name).Msg("No host flag change detected")
		return false, nil
	}

	log.Info().Str("host", name).Msg("Modifying host flags")
	if err := r.gw.SetHostFlags(ctx, name, next); err != nil {
		return false, fmt.Errorf("modify flags of host %q failed: %w", name, err)
	}
	return true, nil
}

// finalResult re-fetches the host for the report, by the post-rename name
// when a rename was requested. An absent desired state reports no details.
func (r *Reconciler) finalResult(ctx context.Context, desired DesiredState, changed bool) (Result, error) {
	if desired.State == Absent {
		return Result{Changed: changed}, nil
	}

	name := desired.Name
	if desired.NewName != "" {
		name = desired.NewName
	}
	host, err := r.fetch(ctx, name)
	if err != nil {
		return Result{Changed: changed}, err
	}
	return Result{Changed: changed, Host: host}, nil
}
