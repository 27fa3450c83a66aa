package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var saveToolDef = mcp.NewTool("solution_save",
	mcp.WithDescription("Save an error and its resolution to the knowledge base. The record is immutable once saved; id, timestamp, and embedding are assigned server-side."),
	mcp.WithString("title", mcp.Required(),
		mcp.Description("Short descriptive title of the error")),
	mcp.WithString("errorMessage", mcp.Required(),
		mcp.Description("The error message or symptom as observed")),
	mcp.WithString("errorType", mcp.Required(),
		mcp.Description("Category of the error"),
		mcp.Enum("compile", "runtime", "configuration", "dependency", "network", "logic", "performance", "security", "other")),
	mcp.WithString("context",
		mcp.Description("What was happening when the error occurred")),
	mcp.WithString("rootCause", mcp.Required(),
		mcp.Description("The underlying cause of the error")),
	mcp.WithString("solution", mcp.Required(),
		mcp.Description("How the error was resolved")),
	mcp.WithString("codeChanges",
		mcp.Description("Code diff or snippet showing the fix")),
	mcp.WithArray("tags",
		mcp.Description("Keywords for lexical matching, e.g. language or framework names"),
		mcp.Items(map[string]any{"type": "string"})),
	mcp.WithArray("labels",
		mcp.Description("Optional classification labels"),
		mcp.Items(map[string]any{"type": "string"})),
	mcp.WithString("cliLibraryId",
		mcp.Description("Versioned library reference, if the error is library-specific")),
	mcp.WithObject("environment",
		mcp.Description("Runtime and dependency versions as key/value pairs")),
	mcp.WithString("projectPath",
		mcp.Description("Project identifier or path the error occurred in")),
)

var searchToolDef = mcp.NewTool("solution_search",
	mcp.WithDescription("Search saved solutions. Hybrid mode fuses semantic and keyword ranking; sparse is keyword-only; semantic is embedding-only. Degrades to a substring match when an index is unavailable."),
	mcp.WithString("query", mcp.Required(),
		mcp.Description("Free-text query, typically the error message")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default 5, max 50)")),
	mcp.WithString("mode",
		mcp.Description("Ranking mode (default hybrid)"),
		mcp.Enum("hybrid", "sparse", "semantic")),
)

var getToolDef = mcp.NewTool("solution_get",
	mcp.WithDescription("Fetch a single solution by id."),
	mcp.WithString("id", mcp.Required(),
		mcp.Description("The solution id")),
)

var getManyToolDef = mcp.NewTool("solution_get_many",
	mcp.WithDescription("Fetch multiple solutions in one call. Unknown ids are silently omitted."),
	mcp.WithArray("ids", mcp.Required(),
		mcp.Description("Solution ids to fetch (max 50)"),
		mcp.Items(map[string]any{"type": "string"})),
)

var listToolDef = mcp.NewTool("solution_list",
	mcp.WithDescription("List saved solutions, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset",
		mcp.Description("Number of records to skip")),
)

var deleteToolDef = mcp.NewTool("solution_delete",
	mcp.WithDescription("Delete a solution and its index entries. Deleting an unknown id is a no-op."),
	mcp.WithString("id", mcp.Required(),
		mcp.Description("The solution id")),
)

var pushToolDef = mcp.NewTool("solution_push",
	mcp.WithDescription("Upload local solutions to the configured remote knowledge base. Records already pushed with identical content are skipped."),
	mcp.WithBoolean("force",
		mcp.Description("Re-upload records even if their content is already synced")),
	mcp.WithBoolean("dryRun",
		mcp.Description("Report what would be pushed without uploading")),
	mcp.WithBoolean("continueOnError",
		mcp.Description("Keep uploading after a failure instead of stopping at the first one")),
)

var healthToolDef = mcp.NewTool("kb_health",
	mcp.WithDescription("Check knowledge-base integrity: schema, record count, and index state."),
)
