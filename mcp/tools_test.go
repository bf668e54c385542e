package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByteMirror/editstore/state"
	"github.com/ByteMirror/editstore/store"
	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, files map[string]string) *session {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	root, err := store.NewAbsPath(dir)
	require.NoError(t, err)
	d, err := store.NewDirectory(root, store.ListOptions{})
	require.NoError(t, err)
	st := state.New(state.DefaultOptions())
	require.NoError(t, st.AttachDirectory(d))

	srv := NewEditServer(st, "test", Options{})
	return srv.sess
}

func call(t *testing.T, handler func(context.Context, gomcp.CallToolRequest) (*gomcp.CallToolResult, error), args map[string]interface{}) *gomcp.CallToolResult {
	t.Helper()
	req := gomcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	return result
}

func resultText(t *testing.T, result *gomcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := gomcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestHandlePatch_AppliesAndReports(t *testing.T) {
	sess := newTestSession(t, map[string]string{"main.go": "package main\n\nfunc foo() {}\n"})

	result := call(t, handlePatch(sess), map[string]interface{}{
		"changes_json": `[
			{"kind":"replace","path":"main.go","old":"foo","new":"bar"},
			{"kind":"replace","path":"main.go","old":"missing","new":"x"},
			{"kind":"write","path":"::notes.md","content":"todo"},
			{"kind":"view_range","path":"main.go","start":3,"end":3}
		]`,
	})
	require.False(t, result.IsError, resultText(t, result))

	var res patchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	assert.Equal(t, uint64(0), res.RollbackID)
	assert.Equal(t, 3, res.Succeeded)
	assert.True(t, res.ShouldContinue)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, store.KindPatch, res.Failures[0].Kind)
	assert.True(t, res.Failures[0].Retryable)
	require.Len(t, res.Views, 1)
	assert.Equal(t, "3  func bar() {}\n", res.Views[0].Text)
	assert.Contains(t, res.Summary, "4 changes to 2 files")

	content, err := sess.st.Read("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc bar() {}\n", content)
}

func TestHandlePatch_RejectsBadInput(t *testing.T) {
	sess := newTestSession(t, nil)

	result := call(t, handlePatch(sess), map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing required parameter: changes_json")

	result = call(t, handlePatch(sess), map[string]interface{}{"changes_json": "{not json"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid changes_json")

	result = call(t, handlePatch(sess), map[string]interface{}{"changes_json": "[]"})
	assert.True(t, result.IsError)
	assert.Empty(t, sess.st.Snapshots())
}

func TestHandlePatch_ReportsExternalChanges(t *testing.T) {
	sess := newTestSession(t, map[string]string{"a.txt": "a"})
	sess.noteExternal([]string{"b.txt", "a.txt"})

	result := call(t, handlePatch(sess), map[string]interface{}{
		"changes_json": `[{"kind":"view","path":"a.txt"}]`,
	})
	var res patchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	assert.Equal(t, []string{"a.txt", "b.txt"}, res.ExternalChanges)

	result = call(t, handlePatch(sess), map[string]interface{}{
		"changes_json": `[{"kind":"view","path":"a.txt"}]`,
	})
	res = patchResult{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	assert.Empty(t, res.ExternalChanges)
}

func TestHandleRevert(t *testing.T) {
	sess := newTestSession(t, map[string]string{"a.txt": "A0"})
	result := call(t, handleRevert(sess), map[string]interface{}{"id": 7.0})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "store_snapshots")

	for _, content := range []string{"A1", "A2"} {
		result := call(t, handlePatch(sess), map[string]interface{}{
			"changes_json": `[{"kind":"write","path":"a.txt","content":"` + content + `"}]`,
		})
		require.False(t, result.IsError)
	}

	result = call(t, handleRevert(sess), map[string]interface{}{"id": 0.0})
	require.False(t, result.IsError, resultText(t, result))
	var info state.RevertInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &info))
	assert.Equal(t, []uint64{0}, info.Reverted)
	assert.Equal(t, []string{"a.txt"}, info.Restored)
	require.Len(t, sess.st.Snapshots(), 1, "later snapshots stay")

	content, err := sess.st.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "A0", content)

	result = call(t, handleRevert(sess), map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing required parameter: id")
}

func TestHandleFindAndList(t *testing.T) {
	sess := newTestSession(t, map[string]string{
		"cmd/main.go": "package main",
		"lib/lib.go":  "package lib",
		"README.md":   "readme",
	})
	sess.st.SeedMemory(map[string]string{"::plan.md": "plan"})

	result := call(t, handleFind(sess), map[string]interface{}{"patterns": "*.go, ::*.md"})
	require.False(t, result.IsError, resultText(t, result))
	var matches []string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &matches))
	assert.Equal(t, []string{"::plan.md", "cmd/main.go", "lib/lib.go"}, matches)

	result = call(t, handleFind(sess), map[string]interface{}{"patterns": "main.go", "cwd": "cmd"})
	require.False(t, result.IsError, resultText(t, result))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &matches))
	assert.Equal(t, []string{"cmd/main.go"}, matches)

	result = call(t, handleFind(sess), map[string]interface{}{"patterns": "../*"})
	assert.True(t, result.IsError)

	result = call(t, handleList(sess), nil)
	var all []string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &all))
	assert.Equal(t, []string{"::plan.md", "README.md", "cmd/main.go", "lib/lib.go"}, all)
}

func TestHandleRead(t *testing.T) {
	sess := newTestSession(t, map[string]string{"a.txt": "one\ntwo\nthree\n"})

	result := call(t, handleRead(sess), map[string]interface{}{"path": "a.txt"})
	assert.Equal(t, "one\ntwo\nthree\n", resultText(t, result))

	result = call(t, handleRead(sess), map[string]interface{}{"path": "a.txt", "start": 2.0})
	assert.Equal(t, "2  two\n3  three\n", resultText(t, result))

	result = call(t, handleRead(sess), map[string]interface{}{"path": "../etc/passwd"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Paths must stay inside the root")

	assert.Empty(t, sess.st.Snapshots())
}

func TestHandleDiffAndSnapshots(t *testing.T) {
	sess := newTestSession(t, nil)
	sess.st.SeedMemory(map[string]string{"::a": "x\n"})

	result := call(t, handleDiff(sess), map[string]interface{}{"path": "::a"})
	var res diffResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	assert.False(t, res.Tracked)
	assert.Empty(t, res.Changes)

	call(t, handlePatch(sess), map[string]interface{}{
		"changes_json": `[{"kind":"write","path":"::a","content":"y\n"}]`,
	})
	result = call(t, handleDiff(sess), map[string]interface{}{"path": "::a"})
	res = diffResult{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	assert.True(t, res.Tracked)
	require.Len(t, res.Changes, 1)
	assert.NotEmpty(t, res.Rendered)

	result = call(t, handleSnapshots(sess), nil)
	var snaps []state.SnapshotInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, []string{"::a"}, snaps[0].Paths)
}

func TestHandleView_PersistsSession(t *testing.T) {
	sess := newTestSession(t, map[string]string{"a.go": "a", "b.go": "b"})
	sess.sessionFile = filepath.Join(t.TempDir(), "session.json")

	result := call(t, handleView(sess), map[string]interface{}{"patterns": "*.go"})
	require.False(t, result.IsError, resultText(t, result))
	assert.JSONEq(t, `{"rollback_id":0,"matched":2}`, resultText(t, result))

	loaded, err := state.Load(sess.sessionFile, state.DefaultOptions(), sess.st.Directory())
	require.NoError(t, err)
	require.Len(t, loaded.Snapshots(), 1)
	assert.Equal(t, []string{"a.go", "b.go"}, loaded.Snapshots()[0].Paths)
}
