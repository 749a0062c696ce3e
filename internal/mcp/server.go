package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/solid-auto/app-blocks/internal/manifest"
	"github.com/solid-auto/app-blocks/internal/registry"
)

// JSON-RPC types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// MCP types
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

const (
	blockToolPrefix    = "block_"
	workflowToolPrefix = "workflow_"
	dryRunArgument     = "dry_run"
)

// Server is the MCP server
type Server struct {
	registry *registry.Registry
	executor ToolExecutor
	version  string
	in       io.Reader
	out      io.Writer
}

// ToolExecutor runs blocks and workflows for tool calls
type ToolExecutor interface {
	ExecuteBlock(ctx context.Context, name string, args map[string]any, dryRun bool) (string, error)
	ExecuteWorkflow(ctx context.Context, name string, args map[string]any, dryRun bool) (string, error)
}

// NewServer creates a new MCP server speaking JSON-RPC over in and out
func NewServer(reg *registry.Registry, executor ToolExecutor, version string, in io.Reader, out io.Writer) *Server {
	return &Server{
		registry: reg,
		executor: executor,
		version:  version,
		in:       in,
		out:      out,
	}
}

// Run serves requests until in is exhausted or ctx is done
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line != "" {
			var req Request
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				s.sendError(nil, -32700, "Parse error", err.Error())
			} else if resp := s.handleRequest(ctx, &req); resp != nil {
				s.sendResponse(resp)
			}
		}

		if eof {
			return nil
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		// Notification, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{},
		}
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    -32601,
				Message: "Method not found",
			},
		}
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: "2024-11-05",
			Capabilities: Capabilities{
				Tools: &ToolsCapability{},
			},
			ServerInfo: ServerInfo{
				Name:    "app-blocks",
				Version: s.version,
			},
		},
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolsListResult{
			Tools: s.buildTools(),
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    -32602,
				Message: "Invalid params",
				Data:    err.Error(),
			},
		}
	}

	args := make(map[string]any, len(params.Arguments))
	for key, value := range params.Arguments {
		args[key] = value
	}
	dryRun, err := dryRunFlag(args)
	if err != nil {
		return toolError(req.ID, err.Error())
	}
	delete(args, dryRunArgument)

	var result string
	switch {
	case strings.HasPrefix(params.Name, blockToolPrefix):
		result, err = s.executor.ExecuteBlock(ctx, strings.TrimPrefix(params.Name, blockToolPrefix), args, dryRun)
	case strings.HasPrefix(params.Name, workflowToolPrefix):
		result, err = s.executor.ExecuteWorkflow(ctx, strings.TrimPrefix(params.Name, workflowToolPrefix), args, dryRun)
	default:
		err = fmt.Errorf("unknown tool: %s", params.Name)
	}

	if err != nil {
		text := err.Error()
		if result != "" {
			text = result + "\n" + text
		}
		return toolError(req.ID, text)
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
		},
	}
}

// dryRunFlag reads the dry_run argument. Anything but a JSON boolean is
// rejected so a loosely typed value never turns into a real run.
func dryRunFlag(args map[string]any) (bool, error) {
	raw, ok := args[dryRunArgument]
	if !ok {
		return false, nil
	}
	dryRun, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", dryRunArgument)
	}
	return dryRun, nil
}

func toolError(id any, text string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result: CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: text}},
			IsError: true,
		},
	}
}

func (s *Server) buildTools() []Tool {
	var tools []Tool

	for _, b := range s.registry.Blocks() {
		tool := Tool{
			Name:        blockToolPrefix + b.Name,
			Description: b.Description,
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{dryRunArgument: dryRunProperty()},
			},
		}
		for _, opt := range b.Options {
			name := strings.TrimPrefix(opt.Flag, "--")
			tool.InputSchema.Properties[name] = Property{
				Type:        mapType(opt.Type),
				Description: opt.Description,
			}
			if opt.Required {
				tool.InputSchema.Required = append(tool.InputSchema.Required, name)
			}
		}
		tools = append(tools, tool)
	}

	for _, wf := range s.registry.Workflows() {
		tool := Tool{
			Name:        workflowToolPrefix + wf.Name,
			Description: wf.Description,
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{dryRunArgument: dryRunProperty()},
			},
		}
		keys := make([]string, 0, len(wf.Variables))
		for key := range wf.Variables {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			tool.InputSchema.Properties[key] = Property{
				Type:        valueType(wf.Variables[key]),
				Description: fmt.Sprintf("Workflow variable %s", key),
				Default:     wf.Variables[key],
			}
		}
		tools = append(tools, tool)
	}

	return tools
}

func dryRunProperty() Property {
	return Property{
		Type:        "boolean",
		Description: "Print the resolved command lines without running any generator",
	}
}

func mapType(t manifest.OptionType) string {
	switch t {
	case manifest.TypeNumber:
		return "number"
	case manifest.TypeBoolean:
		return "boolean"
	default:
		return "string"
	}
}

func valueType(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	default:
		return "number"
	}
}

func (s *Server) sendResponse(resp *Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintln(s.out, string(data))
}

func (s *Server) sendError(id any, code int, message, data string) {
	resp := &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	s.sendResponse(resp)
}
