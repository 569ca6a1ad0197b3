package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/relayworks/talkrelay/internal/events"
)

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= 10 {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		eventsText,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	// Color the event type based on outcome
	var typeStyle lipgloss.Style
	switch e.Type {
	case events.DeliveryCompleted:
		typeStyle = theme.StatusOK
	case events.DeliveryFailed, events.DeliveryRejected:
		typeStyle = theme.StatusFailed
	case events.DeliveryReceived:
		typeStyle = theme.StatusRunning
	default:
		typeStyle = theme.Dim
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-18s", e.Type))

	desc := extractEventDesc(e)

	return fmt.Sprintf("%s %s %s", ts, typeName, desc)
}

func extractEventDesc(e events.Event) string {
	var payload events.DeliveryEvent
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	var parts []string

	if payload.DeliveryID != "" {
		id := payload.DeliveryID
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, fmt.Sprintf("[%s]", id))
	}

	if payload.CustomerID != "" {
		parts = append(parts, payload.CustomerID)
	}

	if payload.ConversationID != "" {
		parts = append(parts, shorten(payload.ConversationID, 16))
	}

	if payload.Reason != "" {
		parts = append(parts, payload.Reason)
	}

	if payload.EventType != "" {
		parts = append(parts, payload.EventType)
	}

	if payload.Status != 0 {
		parts = append(parts, fmt.Sprintf("%d", payload.Status))
	}

	if payload.DurationMS > 0 {
		parts = append(parts, fmt.Sprintf("%dms", payload.DurationMS))
	}

	if len(parts) == 0 {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	return strings.Join(parts, " ")
}
