package etl

import "testing"

func TestParseRunType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RunType
		wantErr bool
	}{
		{name: "empty defaults to full", input: "", want: RunFull},
		{name: "completo", input: "completo", want: RunFull},
		{name: "english alias", input: "FULL", want: RunFull},
		{name: "incremental", input: " incremental ", want: RunIncremental},
		{name: "unknown", input: "parcial", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRunType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRunType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRunType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
