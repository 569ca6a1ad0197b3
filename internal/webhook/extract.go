package webhook

import "strings"

// customerID resolves the correlation ID for an event.
// metadata.customer_id wins; metadata.dynamicVariables.customer_id is
// the fallback for calls initiated with per-session variables.
func customerID(ev *Event) string {
	if ev.Metadata == nil {
		return ""
	}
	if ev.Metadata.CustomerID != "" {
		return ev.Metadata.CustomerID
	}
	if ev.Metadata.DynamicVariables != nil {
		return ev.Metadata.DynamicVariables.CustomerID
	}
	return ""
}

// flattenTranscript renders the transcript as one speaker-labelled line
// per turn, in original order. Any role other than "agent" is the
// customer side. An empty transcript flattens to "".
func flattenTranscript(turns []TranscriptTurn) string {
	if len(turns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		speaker := "Customer"
		if turn.Role == "agent" {
			speaker = "Agent"
		}
		lines = append(lines, speaker+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}
