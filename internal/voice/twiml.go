package voice

import (
	"encoding/xml"
	"time"
)

// TwiML verbs used by the assistant.
type (
	twimlResponse struct {
		XMLName xml.Name `xml:"Response"`
		Verbs   []any
	}

	say struct {
		XMLName  xml.Name `xml:"Say"`
		Voice    string   `xml:"voice,attr,omitempty"`
		Language string   `xml:"language,attr,omitempty"`
		Text     string   `xml:",chardata"`
	}

	gather struct {
		XMLName     xml.Name `xml:"Gather"`
		Input       string   `xml:"input,attr"`
		SpeechModel string   `xml:"speechModel,attr,omitempty"`
		Enhanced    bool     `xml:"enhanced,attr,omitempty"`
		Language    string   `xml:"language,attr,omitempty"`
		Timeout     int      `xml:"timeout,attr,omitempty"`
		Action      string   `xml:"action,attr"`
		Method      string   `xml:"method,attr,omitempty"`
		Say         *say
	}

	hangup struct {
		XMLName xml.Name `xml:"Hangup"`
	}

	reject struct {
		XMLName xml.Name `xml:"Reject"`
	}
)

// TwiML renders the assistant's call-control documents.
type TwiML struct {
	Voice    string
	Language string
	Timeout  time.Duration
}

func (t TwiML) say(text string) *say {
	return &say{Voice: t.Voice, Language: t.Language, Text: text}
}

// Gather speaks prompt and listens for speech, posting the result to
// action. If nothing is heard, fallback is spoken and the call ends.
func (t TwiML) Gather(prompt, fallback, action string) []byte {
	return render(
		gather{
			Input:       "speech",
			SpeechModel: "phone_call",
			Enhanced:    true,
			Language:    t.Language,
			Timeout:     int(t.Timeout / time.Second),
			Action:      action,
			Method:      "POST",
			Say:         t.say(prompt),
		},
		t.say(fallback),
	)
}

// Goodbye speaks text and hangs up.
func (t TwiML) Goodbye(text string) []byte {
	return render(t.say(text), hangup{})
}

// Reject declines an incoming call.
func (t TwiML) Reject() []byte {
	return render(reject{})
}

func render(verbs ...any) []byte {
	out, err := xml.Marshal(twimlResponse{Verbs: verbs})
	if err != nil {
		// Only fixed structs of strings are marshalled.
		panic(err)
	}
	return append([]byte(xml.Header), out...)
}
