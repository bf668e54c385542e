package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ByteMirror/editstore/change"
	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/store"
	gomcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerReadTools registers the tools that never change content or the
// snapshot stack.
func (e *EditServer) registerReadTools() {
	list := gomcp.NewTool("store_list",
		gomcp.WithDescription("List every path in the store: memory entries first, then files under the root."),
		gomcp.WithReadOnlyHintAnnotation(true),
	)
	e.server.AddTool(list, handleList(e.sess))

	find := gomcp.NewTool("store_find",
		gomcp.WithDescription(
			"Find paths matching glob patterns. Patterns starting with \"*\" match anywhere under the root, "+
				"other patterns resolve against cwd, and \"::\" patterns match memory entries.",
		),
		gomcp.WithReadOnlyHintAnnotation(true),
		gomcp.WithString("patterns",
			gomcp.Required(),
			gomcp.Description("Comma-separated glob patterns, e.g. \"*.go,::*.md\"."),
		),
		gomcp.WithString("cwd",
			gomcp.Description("Directory relative patterns resolve against. Defaults to the root."),
		),
	)
	e.server.AddTool(find, handleFind(e.sess))

	read := gomcp.NewTool("store_read",
		gomcp.WithDescription(
			"Read a file or memory entry. Pass start (and optionally end) to get a numbered line range instead.",
		),
		gomcp.WithReadOnlyHintAnnotation(true),
		gomcp.WithString("path",
			gomcp.Required(),
			gomcp.Description("Root-relative path, or \"::name\" for a memory entry."),
		),
		gomcp.WithNumber("start",
			gomcp.Description("First line to show, 1-indexed."),
		),
		gomcp.WithNumber("end",
			gomcp.Description("Last line to show, inclusive (default: end of file)."),
		),
	)
	e.server.AddTool(read, handleRead(e.sess))

	diff := gomcp.NewTool("store_diff",
		gomcp.WithDescription(
			"Show the net edit made to a path since the oldest snapshot that touched it, "+
				"as a list of changes that store_patch would accept.",
		),
		gomcp.WithReadOnlyHintAnnotation(true),
		gomcp.WithString("path",
			gomcp.Required(),
			gomcp.Description("Path to diff."),
		),
	)
	e.server.AddTool(diff, handleDiff(e.sess))

	snapshots := gomcp.NewTool("store_snapshots",
		gomcp.WithDescription("List the snapshot stack, oldest first. Each id can be passed to store_revert."),
		gomcp.WithReadOnlyHintAnnotation(true),
	)
	e.server.AddTool(snapshots, handleSnapshots(e.sess))
}

// registerWriteTools registers the tools that push or pop snapshots.
func (e *EditServer) registerWriteTools() {
	patch := gomcp.NewTool("store_patch",
		gomcp.WithDescription(
			"Apply an ordered list of changes. Every touched path is snapshotted first; "+
				"store_revert(rollback_id) undoes it along with every earlier patch. Failed changes are reported "+
				"and do not stop the rest. View changes return their text in \"views\".",
		),
		gomcp.WithString("changes_json",
			gomcp.Required(),
			gomcp.Description(
				"JSON array of changes. Each has \"kind\" and \"path\" plus: "+
					"write {content}; replace {old, new}; replace_fuzzy {old, new}; "+
					"insert {line (0-based), new}; view {}; view_range {start, end}; undo {}. "+
					"Example: [{\"kind\":\"replace\",\"path\":\"main.go\",\"old\":\"foo()\",\"new\":\"bar()\"}]",
			),
		),
	)
	e.server.AddTool(patch, handlePatch(e.sess))

	view := gomcp.NewTool("store_view",
		gomcp.WithDescription("Record that the files matching patterns were viewed. Returns a rollback_id and the match count."),
		gomcp.WithString("patterns",
			gomcp.Required(),
			gomcp.Description("Comma-separated glob patterns, as for store_find."),
		),
		gomcp.WithString("cwd",
			gomcp.Description("Directory relative patterns resolve against. Defaults to the root."),
		),
	)
	e.server.AddTool(view, handleView(e.sess))

	revert := gomcp.NewTool("store_revert",
		gomcp.WithDescription(
			"Roll back snapshot id and every earlier snapshot, newest first, restoring the content they captured. "+
				"Files they created are removed. Later snapshots are kept.",
		),
		gomcp.WithDestructiveHintAnnotation(true),
		gomcp.WithNumber("id",
			gomcp.Required(),
			gomcp.Description("A rollback_id from store_patch or an id from store_snapshots."),
		),
	)
	e.server.AddTool(revert, handleRevert(e.sess))
}

func handleList(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_list")
		sess.mu.Lock()
		defer sess.mu.Unlock()

		paths, err := sess.st.List()
		if err != nil {
			return storeErr("failed to list store", err), nil
		}
		return jsonResult(paths), nil
	}
}

func handleFind(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_find")
		patterns := splitPatterns(req.GetString("patterns", ""))
		if len(patterns) == 0 {
			return missingParamErr("patterns", `store_find(patterns="*.go")`), nil
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()

		cwd, err := sess.resolveCwd(req.GetString("cwd", ""))
		if err != nil {
			return storeErr("invalid cwd", err), nil
		}
		matches, err := sess.st.Find(cwd, patterns)
		if err != nil {
			return storeErr("find failed", err), nil
		}
		return jsonResult(matches), nil
	}
}

func handleRead(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_read")
		path := req.GetString("path", "")
		if path == "" {
			return missingParamErr("path", `store_read(path="main.go")`), nil
		}
		start := parseOptionalIntArg(req, "start", 0)
		end := parseOptionalIntArg(req, "end", 0)

		sess.mu.Lock()
		defer sess.mu.Unlock()

		if start > 0 {
			text, err := sess.st.Excerpt(change.ViewRange(path, start, end))
			if err != nil {
				return storeErr("failed to read "+path, err), nil
			}
			return gomcp.NewToolResultText(text), nil
		}
		content, err := sess.st.Read(path)
		if err != nil {
			return storeErr("failed to read "+path, err), nil
		}
		return gomcp.NewToolResultText(content), nil
	}
}

type diffResult struct {
	Path     string       `json:"path"`
	Tracked  bool         `json:"tracked"`
	Changes  change.Patch `json:"changes"`
	Rendered string       `json:"rendered,omitempty"`
}

func handleDiff(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_diff")
		path := req.GetString("path", "")
		if path == "" {
			return missingParamErr("path", `store_diff(path="main.go")`), nil
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()

		p, tracked, err := sess.st.DiffPath(path)
		if err != nil {
			return storeErr("diff failed", err), nil
		}
		res := diffResult{Path: path, Tracked: tracked, Changes: p}
		if res.Changes == nil {
			res.Changes = change.Patch{}
		}
		if len(p) > 0 {
			var b strings.Builder
			_ = p.Render(&b, change.DetailFull)
			res.Rendered = b.String()
		}
		return jsonResult(res), nil
	}
}

func handleSnapshots(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_snapshots")
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return jsonResult(sess.st.Snapshots()), nil
	}
}

type failureResult struct {
	Change    change.Change `json:"change"`
	Kind      store.Kind    `json:"kind"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
}

type viewResult struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

type patchResult struct {
	RollbackID      uint64          `json:"rollback_id"`
	Succeeded       int             `json:"succeeded"`
	ShouldContinue  bool            `json:"should_continue"`
	Summary         string          `json:"summary"`
	Failures        []failureResult `json:"failures,omitempty"`
	Views           []viewResult    `json:"views,omitempty"`
	ExternalChanges []string        `json:"external_changes,omitempty"`
}

func handlePatch(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_patch")
		raw := req.GetString("changes_json", "")
		if strings.TrimSpace(raw) == "" {
			return missingParamErr("changes_json", `store_patch(changes_json="[{\"kind\":\"write\",\"path\":\"::notes.md\",\"content\":\"hi\"}]")`), nil
		}
		var p change.Patch
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return toolErrWithHint("invalid changes_json", err, "Pass a JSON array of change objects."), nil
		}
		if len(p) == 0 {
			return gomcp.NewToolResultError("changes_json is empty; pass at least one change"), nil
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()

		info, err := sess.st.Patch(p)
		if err != nil {
			return storeErr("patch not applied", err), nil
		}
		sess.persist()

		res := patchResult{
			RollbackID:      info.RollbackID,
			Succeeded:       info.Succeeded,
			ShouldContinue:  info.ShouldContinue,
			Summary:         summarize(p),
			ExternalChanges: sess.drainExternal(),
		}
		for _, f := range info.Failures {
			res.Failures = append(res.Failures, failureResult{
				Change:    f.Change,
				Kind:      f.Kind,
				Message:   f.Message,
				Retryable: f.Retryable(),
			})
		}
		for _, c := range p {
			if !c.IsView() {
				continue
			}
			text, err := sess.st.Excerpt(c)
			if err != nil {
				continue
			}
			res.Views = append(res.Views, viewResult{Path: c.Path, Text: text})
		}
		log.InfoLog.Printf("store_patch: rollback_id=%d succeeded=%d failed=%d", res.RollbackID, res.Succeeded, len(res.Failures))
		return jsonResult(res), nil
	}
}

func handleView(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_view")
		patterns := splitPatterns(req.GetString("patterns", ""))
		if len(patterns) == 0 {
			return missingParamErr("patterns", `store_view(patterns="cmd/*.go")`), nil
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()

		cwd, err := sess.resolveCwd(req.GetString("cwd", ""))
		if err != nil {
			return storeErr("invalid cwd", err), nil
		}
		id, matched, err := sess.st.View(cwd, patterns)
		if err != nil {
			return storeErr("view failed", err), nil
		}
		sess.persist()
		return jsonResult(map[string]any{"rollback_id": id, "matched": matched}), nil
	}
}

func handleRevert(sess *session) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		log.InfoLog.Printf("tool call: store_revert")
		id := parseOptionalIntArg(req, "id", -1)
		if id < 0 {
			return missingParamErr("id", `store_revert(id=3)`), nil
		}

		sess.mu.Lock()
		defer sess.mu.Unlock()

		info, err := sess.st.Revert(uint64(id))
		if err != nil && len(info.Reverted) == 0 {
			return storeErr(fmt.Sprintf("failed to revert snapshot %d", id), err), nil
		}
		sess.persist()
		if err != nil {
			return toolErrWithHint(fmt.Sprintf("snapshot %d partially reverted", id), err, "Check the listed paths by hand."), nil
		}
		return jsonResult(info), nil
	}
}

// resolveCwd returns the session cwd, or dir resolved against it. Callers
// hold s.mu.
func (s *session) resolveCwd(dir string) (store.AbsPath, error) {
	if strings.TrimSpace(dir) == "" {
		return s.cwd, nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.cwd.String(), dir)
	}
	return store.NewAbsPath(dir)
}

func summarize(p change.Patch) string {
	var b strings.Builder
	_ = p.Render(&b, change.DetailFiles)
	return strings.TrimRight(b.String(), "\n")
}

func splitPatterns(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOptionalIntArg(req gomcp.CallToolRequest, key string, fallback int) int {
	if args := req.GetArguments(); args != nil {
		if v, ok := args[key].(float64); ok {
			return int(v)
		}
	}
	return fallback
}

func jsonResult(v any) *gomcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return gomcp.NewToolResultError("failed to encode result: " + err.Error())
	}
	return gomcp.NewToolResultText(string(data))
}

func missingParamErr(param, example string) *gomcp.CallToolResult {
	msg := "missing required parameter: " + param
	if strings.TrimSpace(example) != "" {
		msg += ". Example: " + example
	}
	return gomcp.NewToolResultError(msg)
}

func toolErrWithHint(prefix string, err error, hint string) *gomcp.CallToolResult {
	msg := prefix
	if err != nil {
		msg += ": " + err.Error()
	}
	if strings.TrimSpace(hint) != "" {
		msg += " Hint: " + hint
	}
	return gomcp.NewToolResultError(msg)
}

// storeErr turns an engine error into a tool error with a hint chosen by
// its kind.
func storeErr(prefix string, err error) *gomcp.CallToolResult {
	log.WarningLog.Printf("%s: %v", prefix, err)
	var hint string
	switch {
	case errors.Is(err, store.ErrPath):
		hint = `Paths must stay inside the root. Use "::name" for scratch entries.`
	case errors.Is(err, store.ErrNotFound):
		hint = `Use store_find or store_list to discover paths, and store_snapshots for valid ids.`
	case errors.Is(err, store.ErrPatch):
		hint = "Revise the change and retry."
	}
	return toolErrWithHint(prefix, err, hint)
}
