package mcpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/soyeahso/matrix/internal/action"
	"github.com/soyeahso/matrix/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *action.Registry {
	t.Helper()
	reg := action.NewRegistry()
	require.NoError(t, reg.Register(action.Descriptor{
		Name:        "get_unread_emails",
		Description: "List unread emails.",
		Params:      []action.Param{action.WithDefault("n", action.TypeInt, "5")},
	}, func(_ context.Context, args action.Args) (any, error) {
		return []map[string]any{{"subject": "Invoice <42>", "n": args.Int("n")}}, nil
	}))
	require.NoError(t, reg.Register(action.Descriptor{
		Name: "gcal_add_event",
		Params: []action.Param{
			action.Required("summary", action.TypeString),
			action.Required("start_time", action.TypeString),
			action.WithDefault("attendee_emails", action.TypeStringList, "None"),
		},
	}, func(_ context.Context, args action.Args) (any, error) {
		return "created " + args.String("summary") + " with " + args.Strings("attendee_emails")[0], nil
	}))
	require.NoError(t, reg.Register(action.Descriptor{
		Name:   "send_email",
		Params: []action.Param{action.Required("to_email", action.TypeString)},
	}, func(context.Context, action.Args) (any, error) {
		return nil, errors.New("smtp unavailable")
	}))
	require.NoError(t, reg.Register(action.Descriptor{
		Name: "slow",
	}, func(ctx context.Context, _ action.Args) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	return reg
}

func newServer(t *testing.T) *Server {
	return New(context.Background(), testRegistry(t), 50*time.Millisecond, logging.New(nil, "silent"))
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "text", tc.Type)
	return tc.Text
}

func TestToolsMirrorRegistry(t *testing.T) {
	tools := newServer(t).Tools()
	require.Len(t, tools, 4)

	assert.Equal(t, "get_unread_emails", tools[0].Name)
	assert.Equal(t, "List unread emails.", tools[0].Description)
	assert.Equal(t, "object", tools[0].InputSchema.Type)
	assert.Empty(t, tools[0].InputSchema.Required)
	assert.Equal(t, map[string]interface{}{"type": "integer", "description": "default 5"}, tools[0].InputSchema.Properties["n"])

	add := tools[1]
	assert.Equal(t, "gcal_add_event(summary: str, start_time: str, attendee_emails: list[str]=None)", add.Description)
	assert.Equal(t, []string{"summary", "start_time"}, add.InputSchema.Required)
	assert.Equal(t, "array", add.InputSchema.Properties["attendee_emails"].(map[string]interface{})["type"])
}

func TestCall_JSONObservation(t *testing.T) {
	res, err := newServer(t).Call("get_unread_emails", map[string]interface{}{"n": float64(2)})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `[{"subject":"Invoice <42>","n":2}]`, text(t, res))
	assert.Contains(t, text(t, res), "Invoice <42>", "no HTML escaping")
}

func TestCall_DefaultsApplied(t *testing.T) {
	res, err := newServer(t).Call("get_unread_emails", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"subject":"Invoice <42>","n":5}]`, text(t, res))
}

func TestCall_StringObservation(t *testing.T) {
	res, err := newServer(t).Call("gcal_add_event", map[string]interface{}{
		"summary":         "Standup",
		"start_time":      "2026-03-02 10:00:00",
		"attendee_emails": []interface{}{"asha@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "created Standup with asha@example.com", text(t, res))
}

func TestCall_Errors(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"missing required", "gcal_add_event", map[string]interface{}{"summary": "x"}, "start_time"},
		{"wrong type", "get_unread_emails", map[string]interface{}{"n": "five"}, "expects int"},
		{"unknown parameter", "send_email", map[string]interface{}{"to_email": "a@b.c", "cc": "d@e.f"}, `no parameter "cc"`},
		{"unknown tool", "book_flight", nil, "unknown action"},
		{"handler failure", "send_email", map[string]interface{}{"to_email": "a@b.c"}, "smtp unavailable"},
		{"timeout", "slow", nil, "deadline exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Call(tt.tool, tt.args)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, text(t, res), tt.want)
		})
	}
}

func TestRender(t *testing.T) {
	out, err := render(map[string]any{"a": []int{1}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1\n  ]\n}", out)

	out, err = render(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", out)

	_, err = render(make(chan int))
	assert.Error(t, err)
}
