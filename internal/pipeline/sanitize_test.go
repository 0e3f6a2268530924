package pipeline

import "testing"

func TestSanitizePrompt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips field labels",
			in:   "HEADLINE: Strong spine CONTEXT: clinic setting",
			want: "Strong spine clinic setting",
		},
		{
			name: "strips font names and sizes",
			in:   "Bold text in Inter 24px over photo",
			want: "Bold text in over photo",
		},
		{
			name: "collapses whitespace",
			in:   "a    lot\n\nof   space",
			want: "a lot of space",
		},
		{
			name: "mixed case labels",
			in:   "Visual: warm light Body: patient smiling",
			want: "warm light patient smiling",
		},
		{
			name: "clean input untouched",
			in:   "A physiotherapist guiding a patient through stretches",
			want: "A physiotherapist guiding a patient through stretches",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizePrompt(tc.in); got != tc.want {
				t.Fatalf("SanitizePrompt() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSanitizePromptIdempotent(t *testing.T) {
	inputs := []string{
		"HEADLINE: Strong spine CONTEXT: clinic, Inter 24px",
		"already clean prompt",
		"Visual: Body: Headline: nested labels",
		"",
	}
	for _, in := range inputs {
		once := SanitizePrompt(in)
		twice := SanitizePrompt(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
