package cmd

import (
	"context"
	"os"

	"github.com/bastiangx/wordlink/internal/cli"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	cliLimit int
	cliSelf  string
)

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Try the linker interactively",
	Long:  "Reads lines from stdin and prints the mentions found in each. Useful for testing and debugging.",
	RunE:  runCli,
}

func init() {
	cliCmd.Flags().IntVarP(&cliLimit, "limit", "l", 0, "Number of names listed by ?prefix (default cli.default_limit)")
	cliCmd.Flags().StringVar(&cliSelf, "as", "", "Link as if the text belonged to this note ID")
}

func runCli(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	limit := cliLimit
	if limit <= 0 {
		limit = cfg.CLI.DefaultLimit
	}
	log.SetReportTimestamp(false)
	log.Debug("Input info:", "entities", s.index.Len(), "limit", limit, "as", cliSelf)

	h := cli.NewInputHandler(s.index, cliSelf, limit, cfg.CLI.Color, cmd.OutOrStdout())
	return h.Start(os.Stdin)
}
