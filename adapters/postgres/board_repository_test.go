package postgres

import "testing"

// TestEscapeLike tests that search input matches literally under ILIKE
func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "election fraud", "election fraud"},
		{"percent wildcard", "100% certain", `100\% certain`},
		{"underscore wildcard", "covert_op", `covert\_op`},
		{"backslash", `C:\evidence`, `C:\\evidence`},
		{"escaped wildcard stays literal", `\%`, `\\\%`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeLike(tt.input); got != tt.want {
				t.Errorf("escapeLike(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
