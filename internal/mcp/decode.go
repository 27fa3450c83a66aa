package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode converts the loosely typed argument map of a tool call into the
// handler's input struct by a marshal round trip.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var input T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return input, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &input); err != nil {
		return input, fmt.Errorf("unmarshal args: %w", err)
	}
	return input, nil
}
