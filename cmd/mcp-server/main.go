package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ByteMirror/editstore/config"
	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/mcp"
	"github.com/ByteMirror/editstore/session"
)

const version = "0.1.0"

func main() {
	configDir, err := config.GetConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "editstore-mcp: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(filepath.Join(configDir, config.ConfigFileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "editstore-mcp: %v\n", err)
		os.Exit(1)
	}
	if root := os.Getenv("EDITSTORE_ROOT"); root != "" {
		cfg.Root = root
	}
	if file := os.Getenv("EDITSTORE_SESSION"); file != "" {
		cfg.SessionFile = file
	}

	// stdout is the MCP protocol, so logs always go to a file.
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(configDir, "mcp-server.log")
	}
	if err := log.Initialize(logPath, "mcp"); err != nil {
		fmt.Fprintf(os.Stderr, "editstore-mcp: logging disabled: %v\n", err)
	}
	defer log.Close()

	s, err := session.Open(cfg)
	if err != nil {
		log.ErrorLog.Printf("open session: %v", err)
		fmt.Fprintf(os.Stderr, "editstore-mcp: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	srv := mcp.NewEditServer(s.State, version, mcp.Options{SessionFile: s.File()})
	if cfg.Watch {
		stop, err := srv.Watch()
		if err != nil {
			log.WarningLog.Printf("watcher failed: %v", err)
		} else {
			defer stop()
		}
	}

	log.InfoLog.Printf("starting: root=%s session=%q", cfg.Root, s.File())
	if err := srv.Serve(); err != nil {
		log.ErrorLog.Printf("fatal: %v", err)
		fmt.Fprintf(os.Stderr, "editstore-mcp: %v\n", err)
		os.Exit(1)
	}
	log.InfoLog.Printf("shutdown cleanly")
}
