package client

import "testing"

func TestSanitizeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"comments", "{\n// note\n\"a\":1 /* x */\n}", "{\n\n\"a\":1 \n}"},
		{"prose around", `Sure! {"a":1} hope this helps`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeJSON(tt.in); got != tt.want {
				t.Errorf("SanitizeJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
