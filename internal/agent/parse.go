package agent

import "strings"

// ExtractAction returns the call text of the action a response asks for:
// the text after the last "Action: " that precedes the first "<< PAUSE >>",
// trimmed of surrounding whitespace and quote characters. ok is false when
// either marker is missing.
func ExtractAction(response string) (call string, ok bool) {
	pause := strings.Index(response, MarkerPause)
	if pause < 0 {
		return "", false
	}
	head := response[:pause]
	i := strings.LastIndex(head, MarkerAction)
	if i < 0 {
		return "", false
	}
	call = strings.TrimSpace(head[i+len(MarkerAction):])
	call = strings.Trim(call, "\"'`")
	return strings.TrimSpace(call), true
}

// requestsAction reports whether a response names an action at all, even
// one that cannot be extracted.
func requestsAction(response string) bool {
	return strings.Contains(response, MarkerAction)
}

// answerAfter returns the trimmed text following the last "Answer:".
func answerAfter(response string) (string, bool) {
	i := strings.LastIndex(response, MarkerAnswer)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(response[i+len(MarkerAnswer):]), true
}

// thoughtAndAction returns the part of a response before the first pause
// marker, which is what the model decided before seeing an observation.
func thoughtAndAction(response string) string {
	if i := strings.Index(response, MarkerPause); i >= 0 {
		response = response[:i]
	}
	return strings.TrimSpace(response)
}
