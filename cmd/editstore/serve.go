package main

import (
	"fmt"
	"os"

	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/mcp"
	"github.com/spf13/cobra"
)

var watchFlag bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the store as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := openSession("mcp")
		if err != nil {
			return err
		}
		defer s.Close()

		opts := mcp.Options{SessionFile: s.File()}
		if cwdFlag != "" {
			if opts.Cwd, err = resolveCwd(s); err != nil {
				return err
			}
		}
		srv := mcp.NewEditServer(s.State, version, opts)
		if watchFlag || cfg.Watch {
			stop, err := srv.Watch()
			if err != nil {
				log.WarningLog.Printf("watcher failed: %v", err)
			} else {
				defer stop()
			}
		}

		log.InfoLog.Printf("serving: root=%s session=%q", cfg.Root, s.File())
		if err := srv.Serve(); err != nil {
			log.ErrorLog.Printf("fatal: %v", err)
			fmt.Fprintf(os.Stderr, "editstore: %v\n", err)
			return err
		}
		log.InfoLog.Printf("shutdown cleanly")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&watchFlag, "watch", false, "Report edits made outside the server in patch results")
	rootCmd.AddCommand(serveCmd)
}
