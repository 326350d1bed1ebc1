package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avolkov/unihost/internal/app"
)

var getCmd = &cobra.Command{
	Use:   "get HOST",
	Short: "Show current details of a host",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	name := args[0]

	return withApp(func(ctx context.Context, a *app.App) error {
		host, err := a.GetHost(ctx, name)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(host, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	})
}
