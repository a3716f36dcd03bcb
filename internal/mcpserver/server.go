// Package mcpserver exposes the action registry as MCP tools over stdio,
// so other agents can call the same gmail, calendar and search actions the
// voice assistant uses.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/soyeahso/matrix/internal/action"
	"github.com/soyeahso/matrix/internal/logging"
	"github.com/soyeahso/matrix/internal/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "matrix-actions"

// DefaultCallTimeout bounds a single tool call.
const DefaultCallTimeout = 60 * time.Second

// Server bridges MCP tool calls to the action registry.
type Server struct {
	mcp     *server.MCPServer
	actions *action.Registry
	tools   []mcp.Tool
	ctx     context.Context
	timeout time.Duration
	log     *logging.Logger
}

// New registers one MCP tool per action. Tool calls run under ctx, each
// bounded by timeout (DefaultCallTimeout when zero).
func New(ctx context.Context, actions *action.Registry, timeout time.Duration, log *logging.Logger) *Server {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			version.Version,
			server.WithToolCapabilities(true),
			server.WithLogging(),
		),
		actions: actions,
		ctx:     ctx,
		timeout: timeout,
		log:     log.Sub("mcp"),
	}

	for _, d := range actions.List() {
		tool := toolFor(d)
		s.tools = append(s.tools, tool)
		s.mcp.AddTool(tool, s.handler(d.Name))
	}
	s.log.Debug().Int("tools", len(s.tools)).Msg("mcp tools registered")
	return s
}

// Tools returns the advertised tool definitions in registration order.
func (s *Server) Tools() []mcp.Tool {
	return s.tools
}

// Serve speaks MCP on stdin/stdout until the client disconnects.
func (s *Server) Serve() error {
	s.log.Info().Int("tools", len(s.tools)).Msg("serving MCP on stdio")
	if err := server.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// Call binds JSON arguments to the named action and runs it. Binding and
// execution failures come back as error results, not Go errors, so the
// calling model can read them.
func (s *Server) Call(name string, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	log := s.log.With("tool", name)

	call, err := s.actions.Bind(name, arguments)
	if err != nil {
		log.Warn().Err(err).Msg("rejected tool arguments")
		return errorResult(err), nil
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	obs, err := s.actions.Invoke(ctx, call)
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("tool failed")
		return errorResult(err), nil
	}
	log.Info().Dur("duration", time.Since(start)).Msg("tool call")

	text, err := render(obs)
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", name, err)
	}
	return textResult(text, false), nil
}

func (s *Server) handler(name string) func(map[string]interface{}) (*mcp.CallToolResult, error) {
	return func(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
		return s.Call(name, arguments)
	}
}

// toolFor derives the MCP schema from an action descriptor. Parameters
// without a default are required.
func toolFor(d action.Descriptor) mcp.Tool {
	props := make(map[string]interface{}, len(d.Params))
	var required []string
	for _, p := range d.Params {
		prop := schemaType(p.Type)
		if p.Default != nil {
			prop["description"] = "default " + *p.Default
		} else {
			required = append(required, p.Name)
		}
		props[p.Name] = prop
	}

	desc := d.Description
	if desc == "" {
		desc = action.Signature(d)
	}
	return mcp.Tool{
		Name:        d.Name,
		Description: desc,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

func schemaType(t action.Type) map[string]interface{} {
	switch t {
	case action.TypeInt:
		return map[string]interface{}{"type": "integer"}
	case action.TypeBool:
		return map[string]interface{}{"type": "boolean"}
	case action.TypeStringList:
		return map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}}
	default:
		return map[string]interface{}{"type": "string"}
	}
}

// render formats an observation for the client: strings as-is, anything
// else as indented JSON.
func render(obs any) (string, error) {
	if s, ok := obs.(string); ok {
		return s, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(obs); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func errorResult(err error) *mcp.CallToolResult {
	return textResult("error: "+err.Error(), true)
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []interface{}{
			mcp.TextContent{Type: "text", Text: text},
		},
		IsError: isError,
	}
}
