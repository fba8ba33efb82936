package strutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "4", want: []int{4}},
		{in: "0-3,7", want: []int{0, 1, 2, 3, 7}},
		{in: " 9-10 , 2 ", want: []int{9, 10, 2}},
		{in: "1,1", want: []int{1, 1}},
		{in: "3-1", wantErr: true},
		{in: "a-2", wantErr: true},
		{in: "1-", wantErr: true},
		{in: "+2", want: []int{2}},
		{in: "-1", wantErr: true},
		{in: "0-2000000000", wantErr: true},
		{in: "9223372036854775806-9223372036854775807", want: []int{math.MaxInt - 1, math.MaxInt}},
		{in: "0-1023", want: seq(0, 1023)},
		{in: "0-1023,5", wantErr: true},
		{in: "0-1024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func seq(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
