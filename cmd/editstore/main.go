package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ByteMirror/editstore/config"
	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const version = "0.1.0"

var (
	configFlag  string
	rootFlag    string
	sessionFlag string
	cwdFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "editstore",
	Short: "Snapshot-backed file edits with rollback",
	Long: `editstore applies batches of edits to a directory and an in-memory
scratch store. Every batch is snapshotted first, so any batch can be
reverted later. Paths starting with "::" live in memory.

Pass --session to keep memory and snapshots between invocations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: $EDITSTORE_DIR/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Directory to attach (default: config root, then the working directory)")
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "State file to load and save")
	rootCmd.PersistentFlags().StringVar(&cwdFlag, "cwd", "", "Directory relative patterns resolve against (default: the root)")
	rootCmd.Version = version
}

// loadConfig merges the config file with the command-line overrides.
func loadConfig() (*config.Config, error) {
	path := configFlag
	if path == "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, config.ConfigFileName)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if rootFlag != "" {
		cfg.Root = rootFlag
	}
	if sessionFlag != "" {
		cfg.SessionFile = sessionFlag
	}
	return cfg, nil
}

// openSession loads config, starts file logging and opens the session.
func openSession(tag string) (*config.Config, *session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := log.Initialize(cfg.LogFile, tag); err != nil {
		fmt.Fprintf(os.Stderr, "editstore: logging disabled: %v\n", err)
	}
	s, err := session.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
