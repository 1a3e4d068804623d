package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bastiangx/wordlink/internal/logger"
	"github.com/bastiangx/wordlink/pkg/config"
	"github.com/bastiangx/wordlink/pkg/linker"
	"github.com/bastiangx/wordlink/pkg/vault"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0-beta"
	AppName = "wordlink"
	gh      = "https://github.com/bastiangx/wordlink"
)

var (
	configFlag string
	vaultFlag  string
	debugFlag  bool

	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           AppName,
	Short:         "WordLink finds the notes your text mentions",
	Long:          "Scans markdown text for the names and aliases of the notes in a vault and turns the mentions into links.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetDebug(debugFlag)
		var err error
		cfg, configPath, err = config.LoadConfigWithPriority(configFlag)
		if err != nil {
			return err
		}
		if vaultFlag != "" {
			cfg.Vault.Root = vaultFlag
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log.Error(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a config.toml (default ~/.config/wordlink/config.toml)")
	rootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "Vault root directory (overrides vault.root)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Toggle debug mode")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(cliCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// session is an opened vault with its index built.
type session struct {
	store *vault.Store
	index *linker.Index
	cache *vault.Cache
}

func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Warnf("Failed to close cache: %v", err)
		}
	}
}

// openVault opens the configured vault and indexes every note in it.
func openVault(ctx context.Context) (*session, error) {
	root := cfg.VaultRoot()
	s := &session{}

	if path := cfg.CachePath(root); path != "" {
		c, err := vault.OpenCache(path)
		if err != nil {
			log.Warnf("Metadata cache unavailable, parsing every note: %v", err)
		} else {
			log.Debugf("Using metadata cache at: %s", path)
			s.cache = c
		}
	}

	store, err := vault.New(root, s.cache, logger.New("vault"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}
	s.store = store
	s.index = linker.NewIndex(cfg.Settings(), logger.New("linker"))

	start := time.Now()
	stats, err := s.index.Refresh(ctx, store)
	if err != nil {
		s.Close()
		return nil, err
	}
	log.Debug("Indexed vault", "root", store.Root(), "entities", s.index.Len(),
		"failed", stats.Failed, "took", time.Since(start))
	if s.cache != nil {
		if n, err := s.cache.Len(); err != nil {
			log.Warnf("Failed to read cache size: %v", err)
		} else {
			log.Debug("Metadata cache", "entries", n)
		}
	}
	return s, nil
}
