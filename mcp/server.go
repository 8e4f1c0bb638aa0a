// Package mcp provides the MCP (Model Context Protocol) server for wordgraph.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/wordgraph/internal/engine"
	"github.com/Benny93/wordgraph/internal/query"
)

const (
	serverName    = "wordgraph"
	serverVersion = "0.1.0"

	// maxWalkDelay caps the per-step pause a client may request.
	maxWalkDelay = 2 * time.Second
)

// Server represents the MCP server.
type Server struct {
	engine *engine.Engine
	server *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over e.
func NewServer(e *engine.Engine) *Server {
	s := &Server{engine: e}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "wordgraph_bridge",
			Description: "Find the bridge words between two words: every word B such that from -> B -> to exists in the graph.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"from": {Type: "string", Description: "First word"},
					"to":   {Type: "string", Description: "Second word"},
				},
				Required: []string{"from", "to"},
			},
		},
		{
			Name:        "wordgraph_generate",
			Description: "Rewrite text by inserting a random bridge word between every adjacent word pair that has one.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"text": {Type: "string", Description: "Input text"},
				},
				Required: []string{"text"},
			},
		},
		{
			Name:        "wordgraph_path",
			Description: "List every minimum-weight path between two words.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"from": {Type: "string", Description: "Start word"},
					"to":   {Type: "string", Description: "End word"},
				},
				Required: []string{"from", "to"},
			},
		},
		{
			Name:        "wordgraph_walk",
			Description: "Run a random walk from a random word until it hits a dead end or repeats an edge.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"delay_ms": {Type: "integer", Description: "Pause between steps in milliseconds"},
				},
			},
		},
		{
			Name:        "wordgraph_stats",
			Description: "Show node and edge counts of the word graph.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "wordgraph://overview",
			Name:        "Graph Overview",
			Description: "Statistics about the loaded word graph",
			MimeType:    "text/markdown",
		},
		{
			URI:         "wordgraph://dot",
			Name:        "Graph DOT",
			Description: "The whole word graph in Graphviz DOT format",
			MimeType:    "text/vnd.graphviz",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "wordgraph_bridge":
		from, _ := args["from"].(string)
		to, _ := args["to"].(string)
		return s.handleBridge(from, to)
	case "wordgraph_generate":
		text, _ := args["text"].(string)
		return s.handleGenerate(text), nil
	case "wordgraph_path":
		from, _ := args["from"].(string)
		to, _ := args["to"].(string)
		return s.handlePath(from, to)
	case "wordgraph_walk":
		delay, _ := args["delay_ms"].(float64)
		return s.handleWalk(ctx, int(delay))
	case "wordgraph_stats":
		return s.getOverview(), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "wordgraph://overview":
		return s.getOverview(), nil
	case "wordgraph://dot":
		var sb strings.Builder
		if err := s.engine.WriteDOT(&sb); err != nil {
			return "", err
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// RunStdio serves the protocol over stdin/stdout through the SDK transport.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Run serves line-delimited JSON-RPC requests from stdin until EOF.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// MCP requires compact JSON, one message per line.

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		// Notifications carry no id and get no response.
		if _, ok := req["id"]; !ok {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "ping":
		return result(id, map[string]any{})
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return result(id, map[string]any{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{
				"listChanged": false,
			},
			"resources": map[string]any{
				"listChanged": false,
			},
		},
	})
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return result(id, map[string]any{"tools": toolList})
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	text, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return result(id, map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": text,
			},
		},
	})
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return result(id, map[string]any{"resources": resourceList})
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return result(id, map[string]any{
		"contents": []map[string]any{
			{
				"uri":      uri,
				"mimeType": s.mimeType(uri),
				"text":     content,
			},
		},
	})
}

func (s *Server) mimeType(uri string) string {
	for _, r := range s.ListResources() {
		if r.URI == uri {
			return r.MimeType
		}
	}
	return "text/plain"
}

// Tool Handlers

// Query misses are answered as text so the client sees the same message a
// CLI user would.

func (s *Server) handleBridge(from, to string) (string, error) {
	if from == "" || to == "" {
		return "Both from and to are required", nil
	}
	return s.engine.DescribeBridgeWords(from, to), nil
}

func (s *Server) handleGenerate(text string) string {
	return s.engine.Augment(text)
}

func (s *Server) handlePath(from, to string) (string, error) {
	if from == "" || to == "" {
		return "Both from and to are required", nil
	}

	res, err := s.engine.ShortestPaths(from, to)
	if err != nil {
		if engine.IsQueryMiss(err) {
			return err.Error(), nil
		}
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Shortest paths from %q to %q\n\n", res.Start, res.End)
	fmt.Fprintf(&sb, "Distance: %d\n\n", res.Distance)
	for i, p := range res.Paths {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
	}
	return sb.String(), nil
}

func (s *Server) handleWalk(ctx context.Context, delayMS int) (string, error) {
	delay := min(max(time.Duration(delayMS)*time.Millisecond, 0), maxWalkDelay)

	res, err := s.engine.Walk(ctx, nil, query.WithStepDelay(delay))
	if res == nil {
		if engine.IsQueryMiss(err) {
			return err.Error(), nil
		}
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Random walk\n\n")
	fmt.Fprintf(&sb, "%s\n\n", res)
	fmt.Fprintf(&sb, "Steps: %d\n", res.Steps)
	fmt.Fprintf(&sb, "Stopped: %s\n", res.Reason)
	fmt.Fprintf(&sb, "ID: %s\n", res.ID)
	if err != nil {
		fmt.Fprintf(&sb, "\nNot saved: %v\n", err)
	}
	return sb.String(), nil
}

// Resource Handlers

func (s *Server) getOverview() string {
	stats := s.engine.Stats()

	var sb strings.Builder
	sb.WriteString("# Word Graph Overview\n\n")
	fmt.Fprintf(&sb, "**Words:** %d\n", stats.Nodes)
	fmt.Fprintf(&sb, "**Edges:** %d\n", stats.Edges)
	fmt.Fprintf(&sb, "**Adjacencies:** %d\n", stats.Adjacencies)
	fmt.Fprintf(&sb, "**Sources:** %d\n", stats.Sources)
	if stats.Root != "" {
		fmt.Fprintf(&sb, "**Root:** %s\n", stats.Root)
	}
	return sb.String()
}

// Helper functions

func result(id any, body map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  body,
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
