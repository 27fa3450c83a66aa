package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/errsolve/errsolve/internal/config"
	"github.com/errsolve/errsolve/internal/db"
	"github.com/errsolve/errsolve/internal/embed"
	"github.com/errsolve/errsolve/internal/ops"
)

// testHandlers creates handlers over a temporary database with a
// deterministic in-process embedder.
func testHandlers(t *testing.T) *Handlers {
	t.Helper()

	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewHandlers(&ops.Env{
		DB:       database,
		Cfg:      config.DefaultConfig(),
		Embedder: embed.Fake{},
		BaseDir:  baseDir,
	})
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func saveArgs() map[string]any {
	return map[string]any{
		"title":        "Null pointer in event handler",
		"errorMessage": "TypeError: cannot read properties of null",
		"errorType":    "runtime",
		"context":      "form submit fired before ref assignment",
		"rootCause":    "ref accessed before mount",
		"solution":     "guard the ref access",
		"tags":         []any{"javascript", "react"},
	}
}

func TestHandleSaveAndGet(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()

	res, err := h.HandleSave(ctx, makeRequest(saveArgs()))
	if err != nil {
		t.Fatalf("HandleSave returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleSave reported tool error: %s", resultText(t, res))
	}

	var saved struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &saved); err != nil {
		t.Fatalf("failed to parse save result: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("save result missing id")
	}

	res, err = h.HandleGet(ctx, makeRequest(map[string]any{"id": saved.ID}))
	if err != nil {
		t.Fatalf("HandleGet returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleGet reported tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "Null pointer in event handler") {
		t.Errorf("get result missing title: %s", resultText(t, res))
	}
}

func TestHandleSaveValidationError(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleSave(context.Background(), makeRequest(map[string]any{
		"title": "only a title",
	}))
	if err != nil {
		t.Fatalf("HandleSave returned transport error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for missing fields")
	}
	if !strings.Contains(resultText(t, res), "INVALID_REQUEST") {
		t.Errorf("expected INVALID_REQUEST code, got: %s", resultText(t, res))
	}
}

func TestHandleSearch(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()

	if _, err := h.HandleSave(ctx, makeRequest(saveArgs())); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	res, err := h.HandleSearch(ctx, makeRequest(map[string]any{
		"query": "null pointer",
	}))
	if err != nil {
		t.Fatalf("HandleSearch returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleSearch reported tool error: %s", resultText(t, res))
	}

	var out struct {
		Results []struct {
			Title string `json:"title"`
		} `json:"results"`
		Strategy string `json:"strategy"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("failed to parse search result: %v", err)
	}
	if len(out.Results) == 0 {
		t.Fatal("search returned no results")
	}
	if out.Results[0].Title != "Null pointer in event handler" {
		t.Errorf("unexpected top result: %q", out.Results[0].Title)
	}
	if out.Strategy != "hybrid" {
		t.Errorf("unexpected strategy: %q", out.Strategy)
	}
}

func TestHandleGetNotFound(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleGet(context.Background(), makeRequest(map[string]any{"id": "01MISSING"}))
	if err != nil {
		t.Fatalf("HandleGet returned transport error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for missing id")
	}
	if !strings.Contains(resultText(t, res), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND code, got: %s", resultText(t, res))
	}
}

func TestHandleGetMany(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()

	res, _ := h.HandleSave(ctx, makeRequest(saveArgs()))
	var saved struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(resultText(t, res)), &saved)

	res, err := h.HandleGetMany(ctx, makeRequest(map[string]any{
		"ids": []any{saved.ID, "01MISSING"},
	}))
	if err != nil {
		t.Fatalf("HandleGetMany returned error: %v", err)
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("expected 1 found record, got %d", out.Count)
	}
}

func TestHandleListAndDelete(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()

	res, _ := h.HandleSave(ctx, makeRequest(saveArgs()))
	var saved struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(resultText(t, res)), &saved)

	res, err := h.HandleList(ctx, makeRequest(map[string]any{}))
	if err != nil || res.IsError {
		t.Fatalf("HandleList failed: %v %s", err, resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), saved.ID) {
		t.Error("list does not contain the saved record")
	}

	res, err = h.HandleDelete(ctx, makeRequest(map[string]any{"id": saved.ID}))
	if err != nil || res.IsError {
		t.Fatalf("HandleDelete failed: %v", err)
	}
	if !strings.Contains(resultText(t, res), `"deleted":true`) {
		t.Errorf("expected deleted:true, got: %s", resultText(t, res))
	}

	// Idempotent: second delete reports false, not an error.
	res, err = h.HandleDelete(ctx, makeRequest(map[string]any{"id": saved.ID}))
	if err != nil || res.IsError {
		t.Fatalf("second HandleDelete failed: %v", err)
	}
	if !strings.Contains(resultText(t, res), `"deleted":false`) {
		t.Errorf("expected deleted:false, got: %s", resultText(t, res))
	}
}

func TestHandleHealth(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleHealth(context.Background(), makeRequest(map[string]any{}))
	if err != nil || res.IsError {
		t.Fatalf("HandleHealth failed: %v", err)
	}
	var out struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("failed to parse health result: %v", err)
	}
	if !out.OK {
		t.Error("expected healthy store")
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"solution_save", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("expected [bogus_tool], got %v", unknown)
	}
}

func TestDisabledToolCount(t *testing.T) {
	if len(AllToolNames()) != 8 {
		t.Errorf("expected 8 registered tools, got %d", len(AllToolNames()))
	}
}
