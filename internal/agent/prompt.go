package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/matrix/internal/action"
	"github.com/soyeahso/matrix/internal/domain"
)

// Markers shared by the prompt examples and the response parser. They must
// stay byte-identical between the two.
const (
	MarkerThought     = "Thought: "
	MarkerAction      = "Action: "
	MarkerPause       = "<< PAUSE >>"
	MarkerObservation = "Observation: "
	MarkerAnswer      = domain.AnswerPrompt
)

// timeLayout is the local timestamp format used in prompts and expected back
// in calendar action arguments.
const timeLayout = "2006-01-02T15:04:05"

// Contact is a named address the assistant may act on.
type Contact struct {
	Name  string
	Email string
}

// PromptConfig holds everything the instructional context depends on.
type PromptConfig struct {
	Now           time.Time
	Location      string
	AssistantName string
	Contacts      []Contact
	Actions       []action.Descriptor
}

// BuildContext renders the instructional context for one turn: persona,
// loop rules, contacts, current time and place, every action signature in
// registry order, and worked examples of the marker format.
func BuildContext(cfg PromptConfig) string {
	name := cfg.AssistantName
	if name == "" {
		name = "Matrix"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful personal assistant. Your name is %s.\n\n", name)

	b.WriteString("You run in a loop of Thought, Action, " + MarkerPause + ", Observation.\n")
	b.WriteString("At the end of the loop you output an Answer.\n")
	b.WriteString("Use Thought to describe your thoughts about the question you have been asked.\n")
	b.WriteString("Use Action to run one of the actions available to you, then return " + MarkerPause + ".\n")
	b.WriteString("Observation will be the result of running those actions.\n")
	b.WriteString("If no action is needed, reply with the Answer directly.\n\n")

	if len(cfg.Contacts) > 0 {
		b.WriteString("Contacts:\n")
		for _, c := range cfg.Contacts {
			fmt.Fprintf(&b, "- %s <%s>\n", c.Name, c.Email)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "The Current Date and Time is: %s\n", cfg.Now.Format(timeLayout))
	if cfg.Location != "" {
		fmt.Fprintf(&b, "The Current Location is: %s\n", cfg.Location)
	}

	b.WriteString("\nYour available actions are:\n\n")
	for _, d := range cfg.Actions {
		b.WriteString(action.Signature(d))
		b.WriteString("\n")
	}

	b.WriteString("\nExamples:\n")
	for _, ex := range workedExamples(cfg) {
		b.WriteString("\n")
		b.WriteString(ex)
	}

	return strings.TrimSpace(b.String())
}

type example struct {
	action string // shown only when this action is registered
	render func(cfg PromptConfig) string
}

var examples = []example{
	{action: "gcal_get_upcoming_events", render: calendarExample},
	{action: "send_email", render: emailExample},
	{action: "google_search", render: searchExample},
}

// workedExamples returns the examples whose actions are registered. When
// none of them is, a generic trace for the first registered action keeps
// the marker format in front of the model; only an empty registry gets the
// direct-answer example.
func workedExamples(cfg PromptConfig) []string {
	registered := make(map[string]bool, len(cfg.Actions))
	for _, d := range cfg.Actions {
		registered[d.Name] = true
	}

	var out []string
	for _, ex := range examples {
		if registered[ex.action] {
			out = append(out, ex.render(cfg))
		}
	}
	switch {
	case len(out) > 0:
	case len(cfg.Actions) > 0:
		out = append(out, genericExample(cfg.Actions[0]))
	default:
		out = append(out, directExample(cfg))
	}
	return out
}

func trace(question, thought, call string, observation any, answer string) string {
	obs, _ := json.Marshal(observation)
	var b strings.Builder
	b.WriteString(question + "\n")
	b.WriteString(MarkerThought + thought + "\n")
	b.WriteString(MarkerAction + call + "\n")
	b.WriteString(MarkerPause + "\n")
	b.WriteString(MarkerObservation + string(obs) + "\n")
	b.WriteString(MarkerAnswer + "\n")
	b.WriteString(answer + "\n")
	return b.String()
}

func calendarExample(cfg PromptConfig) string {
	now := cfg.Now
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, 1).Format(timeLayout)
	end := today.AddDate(0, 0, 2).Format(timeLayout)

	return trace(
		"What does my calendar look like tomorrow?",
		fmt.Sprintf("I should check the upcoming events on the calendar between %s and %s", start, end),
		fmt.Sprintf("gcal_get_upcoming_events(start_time='%s', end_time='%s')", start, end),
		[]map[string]string{
			{"time": now.AddDate(0, 0, 1).Format(timeLayout), "summary": "fishing"},
			{"time": now.AddDate(0, 0, 8).Format(timeLayout), "summary": "football"},
		},
		"You have 1 event tomorrow: fishing.",
	)
}

func emailExample(cfg PromptConfig) string {
	who := Contact{Name: "Myself", Email: "me@example.com"}
	if len(cfg.Contacts) > 0 {
		who = cfg.Contacts[0]
	}
	return trace(
		"Send an email about my resignation to "+who.Name,
		"I should send an email to "+who.Name+" about my resignation",
		fmt.Sprintf("send_email(to_email='%s', subject='Resignation', body='I am writing to inform you of my resignation from my position. My last day of employment will be August 31.')", who.Email),
		map[string]any{"id": "18a10f37c6918d1f", "threadId": "18a10f37c6918d1f", "labelIds": []string{"SENT"}},
		"The email has been sent to "+who.Name+".",
	)
}

func searchExample(PromptConfig) string {
	return trace(
		"Who are the current world cup champions?",
		"I should search the web for the world cup champions in 2023",
		"google_search(query='world cup champions 2023')",
		map[string]any{
			"results": []map[string]string{
				{
					"title":   "FIFA World Cup - Wikipedia",
					"link":    "https://en.wikipedia.org/wiki/FIFA_World_Cup",
					"snippet": "The reigning champions are Argentina, who won their third title at the 2022 tournament.",
				},
				{
					"title":   "List of FIFA World Cup finals - Wikipedia",
					"link":    "https://en.wikipedia.org/wiki/List_of_FIFA_World_Cup_finals",
					"snippet": "Current champion Argentina has three titles, Uruguay and France have two each.",
				},
			},
			"peopleAlsoAsk": []string{},
		},
		"The current world cup champions are Argentina.",
	)
}

func directExample(PromptConfig) string {
	return "Hi, who am I speaking with?\n" +
		MarkerThought + "No action is needed to answer this.\n" +
		MarkerAnswer + "\nI'm your personal assistant. How can I help you today?\n"
}

// genericExample shows a call to d with its required parameters filled by
// placeholder literals; parameters with defaults are left out.
func genericExample(d action.Descriptor) string {
	var args []string
	for _, p := range d.Params {
		if p.Optional() {
			continue
		}
		args = append(args, p.Name+"="+placeholder(p.Type))
	}
	name := strings.ReplaceAll(d.Name, "_", " ")
	return trace(
		"Can you "+name+" for me?",
		"I should use "+d.Name+" to do this",
		d.Name+"("+strings.Join(args, ", ")+")",
		map[string]any{"ok": true},
		"Done. I used "+d.Name+" and it worked.",
	)
}

func placeholder(t action.Type) string {
	switch t {
	case action.TypeInt:
		return "1"
	case action.TypeBool:
		return "True"
	case action.TypeStringList:
		return "['example']"
	default:
		return "'example'"
	}
}
