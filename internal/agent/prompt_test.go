package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/matrix/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promptNow = time.Date(2023, 8, 10, 9, 30, 0, 0, time.UTC)

func allActions() []action.Descriptor {
	return []action.Descriptor{
		{Name: "get_unread_emails", Params: []action.Param{action.WithDefault("n", action.TypeInt, "5")}},
		{Name: "send_email", Params: []action.Param{
			action.Required("to_email", action.TypeString),
			action.Required("subject", action.TypeString),
			action.Required("body", action.TypeString),
		}},
		{Name: "google_search", Params: []action.Param{
			action.Required("query", action.TypeString),
			action.WithDefault("location", action.TypeString, "'in'"),
		}},
		{Name: "gcal_get_upcoming_events", Params: []action.Param{
			action.Required("start_time", action.TypeString),
			action.Required("end_time", action.TypeString),
		}},
	}
}

func TestBuildContext(t *testing.T) {
	out := BuildContext(PromptConfig{
		Now:           promptNow,
		Location:      "Bengaluru",
		AssistantName: "Matrix",
		Contacts:      []Contact{{Name: "Boss", Email: "boss@example.com"}},
		Actions:       allActions(),
	})

	assert.True(t, strings.HasPrefix(out, "You are a helpful personal assistant. Your name is Matrix."))
	assert.Contains(t, out, "The Current Date and Time is: 2023-08-10T09:30:00")
	assert.Contains(t, out, "The Current Location is: Bengaluru")
	assert.Contains(t, out, "- Boss <boss@example.com>")

	// signatures in registration order, one per line
	sigs := []string{
		"get_unread_emails(n: int=5)",
		"send_email(to_email: str, subject: str, body: str)",
		"google_search(query: str, location: str='in')",
		"gcal_get_upcoming_events(start_time: str, end_time: str)",
	}
	last := -1
	for _, s := range sigs {
		i := strings.Index(out, "\n"+s+"\n")
		require.GreaterOrEqual(t, i, 0, s)
		assert.Greater(t, i, last, s)
		last = i
	}

	// worked examples use the live markers and the first contact
	assert.Contains(t, out, "Action: gcal_get_upcoming_events(start_time='2023-08-11T00:00:00', end_time='2023-08-12T00:00:00')")
	assert.Contains(t, out, "send_email(to_email='boss@example.com'")
	assert.Contains(t, out, "Action: google_search(query='world cup champions 2023')\n<< PAUSE >>\nObservation: {")
}

func TestBuildContext_ExamplesFollowRegistry(t *testing.T) {
	out := BuildContext(PromptConfig{Now: promptNow})
	assert.Contains(t, out, "Your name is Matrix")
	assert.NotContains(t, out, "gcal_get_upcoming_events")
	assert.NotContains(t, out, "Contacts:")
	assert.NotContains(t, out, "Current Location")
	assert.Contains(t, out, "Answer:\nI'm your personal assistant.")

	onlySearch := BuildContext(PromptConfig{Now: promptNow, Actions: allActions()[2:3]})
	assert.Contains(t, onlySearch, "world cup")
	assert.NotContains(t, onlySearch, "send_email")
	assert.NotContains(t, onlySearch, "I'm your personal assistant.")
}

func TestBuildContext_GenericExampleForOtherActions(t *testing.T) {
	unread := allActions()[0:1]
	out := BuildContext(PromptConfig{Now: promptNow, Actions: unread})

	assert.Contains(t, out, "Action: get_unread_emails()\n<< PAUSE >>\nObservation: {\"ok\":true}\nAnswer:\n")
	assert.NotContains(t, out, "I'm your personal assistant.")

	calendarOnly := []action.Descriptor{{Name: "gcal_delete_event", Params: []action.Param{
		action.Required("event_id", action.TypeString),
		action.WithDefault("notify", action.TypeBool, "False"),
	}}}
	out = BuildContext(PromptConfig{Now: promptNow, Actions: calendarOnly})
	assert.Contains(t, out, "Action: gcal_delete_event(event_id='example')\n<< PAUSE >>\n")
}

func TestGenericExampleCallParses(t *testing.T) {
	reg := action.NewRegistry()
	d := action.Descriptor{Name: "tag", Params: []action.Param{
		action.Required("label", action.TypeString),
		action.Required("count", action.TypeInt),
		action.Required("urgent", action.TypeBool),
		action.Required("people", action.TypeStringList),
	}}
	require.NoError(t, reg.Register(d, func(context.Context, action.Args) (any, error) { return nil, nil }))

	call, ok := ExtractAction(genericExample(d))
	require.True(t, ok)
	parsed, err := reg.Parse(call)
	require.NoError(t, err)
	assert.Equal(t, action.Args{"label": "example", "count": 1, "urgent": true, "people": []string{"example"}}, parsed.Args)
}

func TestBuildContext_Deterministic(t *testing.T) {
	cfg := PromptConfig{Now: promptNow, Location: "Bengaluru", Actions: allActions()}
	assert.Equal(t, BuildContext(cfg), BuildContext(cfg))
}
