package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avolkov/unihost/internal/app"
	"github.com/avolkov/unihost/internal/reconcile"
)

var deleteCmd = &cobra.Command{
	Use:   "delete HOST",
	Short: "Delete a host from the array",
	Long: `Delete a host. Deleting a host that does not exist is a no-op. The
array rejects deletion while the host is referenced by a masking view; fix
the masking view first.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	return withApp(func(ctx context.Context, a *app.App) error {
		res, err := a.Reconcile(ctx, reconcile.DesiredState{
			Name:  name,
			State: reconcile.Absent,
		})
		if err != nil {
			return err
		}

		if res.Changed {
			fmt.Printf("%s\tdeleted\n", name)
		} else {
			fmt.Printf("%s\tnot present\n", name)
		}
		return nil
	})
}
