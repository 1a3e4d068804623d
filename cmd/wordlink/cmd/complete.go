package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var completeLimit int

var completeCmd = &cobra.Command{
	Use:   "complete <prefix>",
	Short: "List note names and aliases starting with a prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

func init() {
	completeCmd.Flags().IntVarP(&completeLimit, "limit", "l", 0, "Number of names to return (default cli.default_limit)")
}

func runComplete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	limit := completeLimit
	if limit <= 0 {
		limit = cfg.CLI.DefaultLimit
	}
	out := cmd.OutOrStdout()
	for _, sg := range s.index.Complete(args[0], limit) {
		if sg.IsAlias {
			fmt.Fprintf(out, "%s\t%s\talias\n", sg.Name, sg.ID)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", sg.Name, sg.ID)
	}
	return nil
}
