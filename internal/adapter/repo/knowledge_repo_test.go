package repo

import "testing"

func TestVectorLiteral(t *testing.T) {
	tests := []struct {
		name      string
		embedding []float32
		want      string
	}{
		{name: "empty", embedding: []float32{}, want: "[]"},
		{name: "single", embedding: []float32{1}, want: "[1]"},
		{name: "multiple", embedding: []float32{0.5, -2, 3.25}, want: "[0.5,-2,3.25]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := vectorLiteral(tc.embedding); got != tc.want {
				t.Fatalf("vectorLiteral() = %q, want %q", got, tc.want)
			}
		})
	}
}
