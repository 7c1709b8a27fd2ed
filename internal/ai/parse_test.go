package ai

import "testing"

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"strict int", "$7$", 7, false},
		{"strict decimal", "score is $2.5$", 2.5, false},
		{"fallback plain", "severity: 8", 8, false},
		{"fallback ratio", "I would rate this 6/10", 6, false},
		{"clamped high", "$42$", 10, false},
		{"no match", "nothing here", 0, true},
		{"strict wins", "maybe 3 but $9$", 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}
}
