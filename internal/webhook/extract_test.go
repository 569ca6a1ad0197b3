package webhook

import "testing"

func TestCustomerID(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "no metadata",
			ev:   Event{},
			want: "",
		},
		{
			name: "top-level customer_id",
			ev: Event{
				Metadata: &Metadata{CustomerID: "A"},
			},
			want: "A",
		},
		{
			name: "dynamic variables fallback",
			ev: Event{
				Metadata: &Metadata{
					DynamicVariables: &DynamicVariables{CustomerID: "B"},
				},
			},
			want: "B",
		},
		{
			name: "top-level wins over dynamic variables",
			ev: Event{
				Metadata: &Metadata{
					CustomerID:       "A",
					DynamicVariables: &DynamicVariables{CustomerID: "B"},
				},
			},
			want: "A",
		},
		{
			name: "empty top-level falls through",
			ev: Event{
				Metadata: &Metadata{
					CustomerID:       "",
					DynamicVariables: &DynamicVariables{CustomerID: "B"},
				},
			},
			want: "B",
		},
		{
			name: "both empty",
			ev: Event{
				Metadata: &Metadata{
					DynamicVariables: &DynamicVariables{},
				},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := customerID(&tt.ev); got != tt.want {
				t.Errorf("customerID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlattenTranscript(t *testing.T) {
	tests := []struct {
		name  string
		turns []TranscriptTurn
		want  string
	}{
		{
			name: "agent and customer",
			turns: []TranscriptTurn{
				{Role: "agent", Content: "Hi"},
				{Role: "user", Content: "Hello"},
			},
			want: "Agent: Hi\nCustomer: Hello",
		},
		{
			name:  "empty transcript",
			turns: nil,
			want:  "",
		},
		{
			name: "unknown role is the customer side",
			turns: []TranscriptTurn{
				{Role: "caller", Content: "Can you hear me?"},
			},
			want: "Customer: Can you hear me?",
		},
		{
			name: "order preserved",
			turns: []TranscriptTurn{
				{Role: "user", Content: "One"},
				{Role: "agent", Content: "Two"},
				{Role: "user", Content: "Three"},
			},
			want: "Customer: One\nAgent: Two\nCustomer: Three",
		},
		{
			name: "empty content keeps the label",
			turns: []TranscriptTurn{
				{Role: "agent", Content: ""},
			},
			want: "Agent: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenTranscript(tt.turns); got != tt.want {
				t.Errorf("flattenTranscript() = %q, want %q", got, tt.want)
			}
		})
	}
}
