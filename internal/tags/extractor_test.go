package tags

import (
	"context"
	"testing"
	"time"
)

func TestExtractTags_Offline(t *testing.T) {
	extractor := New("", "gpt-3.5-turbo", 10*time.Second)
	ctx := context.Background()

	tests := []struct {
		name string
		note string
		want []string
	}{
		{
			name: "empty note yields nothing",
			note: "   ",
			want: nil,
		},
		{
			name: "short note becomes a single tag",
			note: "Rent",
			want: []string{"rent"},
		},
		{
			name: "longer note falls back to first three words",
			note: "Monthly Rent for the downtown apartment",
			want: []string{"monthly", "rent", "for"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.ExtractTags(ctx, tt.note)
			if err != nil {
				t.Fatalf("ExtractTags() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractTags() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("tag[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseTagList(t *testing.T) {
	tests := []struct {
		name    string
		note    string
		content string
		want    []string
	}{
		{
			name:    "comma separated output",
			note:    "monthly rent downtown",
			content: "Rent, Housing, Fixed Costs",
			want:    []string{"rent", "housing", "fixed costs"},
		},
		{
			name:    "duplicates and blanks dropped",
			note:    "monthly rent downtown",
			content: "rent, Rent, , housing",
			want:    []string{"rent", "housing"},
		},
		{
			name:    "at most five tags kept",
			note:    "monthly rent downtown",
			content: "a, b, c, d, e, f, g",
			want:    []string{"a", "b", "c", "d", "e"},
		},
		{
			name:    "comma-less output falls back to note words",
			note:    "groceries at the market",
			content: "I could not extract tags",
			want:    []string{"groceries", "at", "the"},
		},
		{
			name:    "over-long tags dropped",
			note:    "groceries at the market",
			content: "groceries, aaaaaaaaaaaaaaaaaaaaaaaaa",
			want:    []string{"groceries"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTagList(tt.note, tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseTagList() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("tag[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
