package watch

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/relayworks/talkrelay/internal/events"
)

// maxDeliveries bounds the table backlog.
const maxDeliveries = 100

// DeliveryState tracks one webhook delivery assembled from its
// lifecycle events.
type DeliveryState struct {
	ID             string
	CustomerID     string
	ConversationID string
	Status         string // received, completed, failed, rejected, skipped
	Reason         string
	DurationMS     int64
	FirstSeen      time.Time
	LastSeen       time.Time
}

// newDeliveryTable builds the bubbles table for the deliveries pane.
func newDeliveryTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Customer", Width: 20},
			{Title: "Conversation", Width: 16},
			{Title: "Status", Width: 10},
			{Title: "Info", Width: 30},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// updateDeliveryState folds a lifecycle event into the delivery map.
// order holds delivery IDs newest-first.
func updateDeliveryState(deliveries map[string]*DeliveryState, order []string, e events.Event) []string {
	var payload events.DeliveryEvent
	if err := json.Unmarshal(e.Data, &payload); err != nil || payload.DeliveryID == "" {
		return order
	}

	d, ok := deliveries[payload.DeliveryID]
	if !ok {
		d = &DeliveryState{ID: payload.DeliveryID, FirstSeen: time.Now()}
		deliveries[payload.DeliveryID] = d
		order = append([]string{payload.DeliveryID}, order...)
		if len(order) > maxDeliveries {
			for _, id := range order[maxDeliveries:] {
				delete(deliveries, id)
			}
			order = order[:maxDeliveries]
		}
	}
	d.LastSeen = time.Now()

	if payload.CustomerID != "" {
		d.CustomerID = payload.CustomerID
	}
	if payload.ConversationID != "" {
		d.ConversationID = payload.ConversationID
	}
	if payload.Reason != "" {
		d.Reason = payload.Reason
	}
	if payload.DurationMS > 0 {
		d.DurationMS = payload.DurationMS
	}

	switch e.Type {
	case events.DeliveryReceived:
		if d.Status == "" {
			d.Status = "received"
		}
	case events.DeliveryCompleted:
		d.Status = "completed"
	case events.DeliveryFailed:
		d.Status = "failed"
	case events.DeliveryRejected:
		d.Status = "rejected"
	case events.DeliverySkipped:
		d.Status = "skipped"
	}

	return order
}

// deliveryRows renders the tracked deliveries as table rows, newest first.
func deliveryRows(deliveries map[string]*DeliveryState, order []string, theme Theme) []table.Row {
	rows := make([]table.Row, 0, len(order))
	for _, id := range order {
		d, ok := deliveries[id]
		if !ok {
			continue
		}

		var statusSym string
		switch d.Status {
		case "received":
			statusSym = theme.StatusRunning.Render("◉")
		case "completed":
			statusSym = theme.StatusOK.Render("●")
		case "failed":
			statusSym = theme.StatusFailed.Render("∅")
		case "rejected":
			statusSym = theme.StatusFailed.Render("◑")
		case "skipped":
			statusSym = theme.StatusQueued.Render("○")
		default:
			statusSym = "○"
		}

		info := d.Reason
		if info == "" && d.DurationMS > 0 {
			info = (time.Duration(d.DurationMS) * time.Millisecond).String()
		}

		customer := d.CustomerID
		if customer == "" {
			customer = "-"
		}
		conversation := d.ConversationID
		if conversation == "" {
			conversation = "-"
		}

		rows = append(rows, table.Row{
			statusSym,
			customer,
			shorten(conversation, 16),
			d.Status,
			shorten(info, 30),
		})
	}
	return rows
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func renderDeliveries(t table.Model, count int, theme Theme, width int) string {
	innerWidth := width - 4

	if count == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("DELIVERIES"),
			theme.Dim.Render("  No deliveries yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("DELIVERIES"),
		t.View(),
	)
	return theme.Border.Width(innerWidth).Render(content)
}
