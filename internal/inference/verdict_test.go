package inference

import "testing"

func TestSanitizeVerdict(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"single topic number", "2", "2"},
		{"multiple topic numbers", "1 3 5", "1 3 5"},
		{"no topics marker", "!", "!"},
		{"empty response", "", "!"},
		{"prose response", "Topics 1 and 2 are covered", "!"},
		{"number with trailing prose", "2 (explicit reference)", "!"},
		{"comma separated", "1,2", "!"},
		{"marker with whitespace", " ! ", " ! "},
		{"multi digit", "10 12", "10 12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeVerdict(tt.raw); got != tt.expected {
				t.Errorf("SanitizeVerdict(%q) = %q, expected %q", tt.raw, got, tt.expected)
			}
		})
	}
}
