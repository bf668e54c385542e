package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/ByteMirror/editstore/change"
	"github.com/ByteMirror/editstore/session"
	"github.com/ByteMirror/editstore/store"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	showStart  int
	showEnd    int
	showCopy   bool
	detailFlag string
	jsonFlag   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List memory entries and files under the root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session.Session) error {
			paths, err := s.State.List()
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		})
	},
}

var findCmd = &cobra.Command{
	Use:   "find PATTERN...",
	Short: "Find paths matching glob patterns",
	Long: `Find paths matching glob patterns. Patterns starting with "*" match
anywhere under the root; others resolve against --cwd. Patterns starting
with "::" match memory entries.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session.Session) error {
			cwd, err := resolveCwd(s)
			if err != nil {
				return err
			}
			matches, err := s.State.Find(cwd, args)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show PATH",
	Short: "Print a file or memory entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session.Session) error {
			var (
				text string
				err  error
			)
			if showStart > 0 {
				text, err = s.State.Excerpt(change.ViewRange(args[0], showStart, showEnd))
			} else {
				text, err = s.State.Read(args[0])
			}
			if err != nil {
				return err
			}
			if showCopy {
				if err := clipboard.WriteAll(text); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Copied %d bytes of %s.\n", len(text), args[0])
				return nil
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		})
	},
}

var patchCmd = &cobra.Command{
	Use:   "patch [FILE]",
	Short: "Apply a JSON array of changes",
	Long: `Apply a JSON array of changes read from FILE, or from stdin when FILE
is omitted or "-". Each change has "kind" and "path" plus its payload:

  write          {content}
  replace        {old, new}
  replace_fuzzy  {old, new}
  insert         {line, new}
  view           {}
  view_range     {start, end}
  undo           {}

The rollback id printed first can be passed to "editstore revert".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := parseDetail(detailFlag)
		if err != nil {
			return err
		}
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		var p change.Patch
		if err := json.NewDecoder(in).Decode(&p); err != nil {
			return fmt.Errorf("decode changes: %w", err)
		}

		return withSession(func(s *session.Session) error {
			info, err := s.State.Patch(p)
			if err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonFlag {
				return writeJSON(out, info)
			}
			fmt.Fprintf(out, "rollback id %d: %d succeeded, %d failed\n", info.RollbackID, info.Succeeded, len(info.Failures))
			if err := p.Render(out, detail); err != nil {
				return err
			}
			for _, f := range info.Failures {
				retry := ""
				if f.Retryable() {
					retry = " (retryable)"
				}
				fmt.Fprintf(out, "%s %s: %s%s\n", change.DeletionStyle.Render("failed"), f.Change, f.Message, retry)
			}
			for _, c := range p {
				if !c.IsView() {
					continue
				}
				text, err := s.State.Excerpt(c)
				if err != nil {
					continue
				}
				fmt.Fprintf(out, "%s\n%s", change.HunkStyle.Render("== "+c.String()), text)
			}
			return nil
		})
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert ID",
	Short: "Roll back a snapshot and every earlier one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot id %q", args[0])
		}
		return withSession(func(s *session.Session) error {
			info, revertErr := s.State.Revert(id)
			if len(info.Reverted) > 0 {
				if err := s.Save(); err != nil {
					return err
				}
			}
			if revertErr != nil {
				return revertErr
			}
			if jsonFlag {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "reverted snapshots %v\n", info.Reverted)
			for _, p := range info.Restored {
				fmt.Fprintf(out, "  %s %s\n", change.AdditionStyle.Render("restored"), p)
			}
			for _, p := range info.Removed {
				fmt.Fprintf(out, "  %s %s\n", change.DeletionStyle.Render("removed"), p)
			}
			return nil
		})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff PATH",
	Short: "Show the net edit made to a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := parseDetail(detailFlag)
		if err != nil {
			return err
		}
		return withSession(func(s *session.Session) error {
			p, tracked, err := s.State.DiffPath(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonFlag {
				if p == nil {
					p = change.Patch{}
				}
				return writeJSON(out, p)
			}
			if !tracked {
				fmt.Fprintf(out, "%s has not been touched in this session\n", args[0])
				return nil
			}
			return p.Render(out, detail)
		})
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the snapshot stack, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session.Session) error {
			snaps := s.State.Snapshots()
			if jsonFlag {
				return writeJSON(cmd.OutOrStdout(), snaps)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPATHS\tCREATED")
			for _, snap := range snaps {
				fmt.Fprintf(tw, "%d\t%d\t%d\n", snap.ID, len(snap.Paths), len(snap.Created))
			}
			return tw.Flush()
		})
	},
}

func init() {
	showCmd.Flags().IntVar(&showStart, "start", 0, "First line to show, 1-indexed")
	showCmd.Flags().IntVar(&showEnd, "end", 0, "Last line to show (default: end of file)")
	showCmd.Flags().BoolVar(&showCopy, "copy", false, "Copy to the clipboard instead of printing")

	for _, c := range []*cobra.Command{patchCmd, diffCmd} {
		c.Flags().StringVar(&detailFlag, "detail", "files", "Rendering detail: summary, files or full")
	}
	for _, c := range []*cobra.Command{patchCmd, revertCmd, diffCmd, snapshotsCmd} {
		c.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of text")
	}

	rootCmd.AddCommand(listCmd, findCmd, showCmd, patchCmd, revertCmd, diffCmd, snapshotsCmd)
}

func withSession(fn func(*session.Session) error) error {
	_, s, err := openSession("cli")
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func resolveCwd(s *session.Session) (store.AbsPath, error) {
	if cwdFlag != "" {
		return store.NewAbsPath(cwdFlag)
	}
	if dir := s.State.Directory(); dir != nil {
		return dir.Root(), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return store.AbsPath{}, err
	}
	return store.NewAbsPath(filepath.Clean(wd))
}

func parseDetail(s string) (change.Detail, error) {
	switch s {
	case "summary":
		return change.DetailSummary, nil
	case "files", "":
		return change.DetailFiles, nil
	case "full":
		return change.DetailFull, nil
	}
	return 0, fmt.Errorf("unknown detail %q: want summary, files or full", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
