package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReplicaURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "single",
			input: "postgres://replica1/mspbill",
			want:  []string{"postgres://replica1/mspbill"},
		},
		{
			name:  "multiple with whitespace",
			input: " postgres://replica1/mspbill , postgres://replica2/mspbill ",
			want:  []string{"postgres://replica1/mspbill", "postgres://replica2/mspbill"},
		},
		{
			name:  "trailing comma",
			input: "postgres://replica1/mspbill,",
			want:  []string{"postgres://replica1/mspbill"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReplicaURLs(tt.input))
		})
	}
}
