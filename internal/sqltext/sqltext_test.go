package sqltext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripLineComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no comments",
			in:   "SELECT id FROM orders",
			want: "SELECT id FROM orders",
		},
		{
			name: "trailing and whole-line comments",
			in:   "-- header\nSELECT id -- key\nFROM orders",
			want: "SELECT id\nFROM orders",
		},
		{
			name: "final newline kept",
			in:   "SELECT id FROM orders -- all\n",
			want: "SELECT id FROM orders\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripLineComments(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripLineComments_KeepsMarkersInStrings(t *testing.T) {
	got, err := StripLineComments(context.Background(), "SELECT id FROM orders WHERE note = 'a--b'")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM orders WHERE note = 'a--b'", got)
}
