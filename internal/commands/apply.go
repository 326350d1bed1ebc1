package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avolkov/unihost/internal/app"
	"github.com/avolkov/unihost/internal/plan"
)

var applyFile string

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile every host declared in a plan file",
	Long: `Reconcile the array against a plan file. For each declared host the
minimal set of mutations is computed and applied; hosts already in their
declared state are left alone. The first failed remote operation aborts the
remaining plan entries.

Example plan:

  hosts:
    - name: esxi-cluster-01
      state: present
      initiator_state: present-in-host
      initiators:
        - 10000090fa7b4e85
      flags:
        spc2_protocol_version: true
        consistent_lun: true
        volume_set_addressing: unset`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "plan file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(applyFile)
	if err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		results, err := a.Apply(ctx, p)

		changedCount := 0
		for i, res := range results {
			state := "unchanged"
			if res.Changed {
				state = "changed"
				changedCount++
			}
			fmt.Printf("%s\t%s\n", p.Hosts[i].Name, state)
		}
		if err != nil {
			return err
		}

		fmt.Printf("%d host(s) reconciled, %d changed\n", len(results), changedCount)
		return nil
	})
}
