package cmd

import (
	"context"
	"os"
	"time"

	"github.com/bastiangx/wordlink/internal/logger"
	"github.com/bastiangx/wordlink/pkg/server"
	"github.com/bastiangx/wordlink/pkg/vault"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var noWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the msgpack IPC server on stdin/stdout",
	Long: "Indexes the vault, then answers link, complete, refresh and health requests " +
		"read from stdin. Note changes are picked up by a file watcher unless --no-watch is set.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the vault for changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := server.New(s.index, s.store, cfg.Server, logger.New("server"))

	if !noWatch {
		delay := time.Duration(cfg.Vault.DebounceMS) * time.Millisecond
		w, err := vault.NewWatcher(s.store, delay)
		if err != nil {
			return err
		}
		defer w.Stop()
		err = w.Watch(func(ids []string) {
			if _, err := srv.Refresh(ctx, ids...); err != nil {
				log.Errorf("Refresh failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	showStartupInfo(s.store.Root(), s.index.Len())
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(root string, entities int) {
	l := logger.NewWithConfig(os.Stderr, "", log.DebugLevel, false, false, log.TextFormatter)
	if log.GetLevel() > log.DebugLevel {
		return
	}
	l.Print("===========")
	l.Print(" WordLink ")
	l.Print("===========")
	l.Infof("Version: %s", Version)
	l.Infof("Process ID: [ %d ]", os.Getpid())
	l.Infof("vault: ( %s )", root)
	l.Infof("entities: %d", entities)
	l.Info("status: ready")
	l.Print("===========")
}
