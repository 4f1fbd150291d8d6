package dominos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Address
		line1 string
		line2 string
	}{
		{
			name:  "full address",
			input: "1234 Main St, Carmichael, CA 95608",
			want:  Address{Street: "1234 Main St", City: "Carmichael", Region: "CA", PostalCode: "95608"},
			line1: "1234 Main St",
			line2: "Carmichael, CA 95608",
		},
		{
			name:  "city and region",
			input: "New York, NY",
			want:  Address{City: "New York", Region: "NY"},
			line2: "New York, NY",
		},
		{
			name:  "zip only",
			input: " 90210 ",
			want:  Address{PostalCode: "90210"},
			line2: "90210",
		},
		{
			name:  "city only",
			input: "Sacramento",
			want:  Address{City: "Sacramento"},
			line2: "Sacramento",
		},
		{
			name:  "zip plus four after region",
			input: "1 Elm St, Austin, TX 78701-1234",
			want:  Address{Street: "1 Elm St", City: "Austin", Region: "TX", PostalCode: "78701-1234"},
			line1: "1 Elm St",
			line2: "Austin, TX 78701-1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAddress(tt.input)
			assert.Equal(t, tt.want, got)
			line1, line2 := got.LocatorLines()
			assert.Equal(t, tt.line1, line1)
			assert.Equal(t, tt.line2, line2)
		})
	}
}
