package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhysicalToBCM(t *testing.T) {
	tests := []struct {
		physical uint32
		want     uint32
	}{
		{37, 26},
		{38, 20},
		{22, 25},
		{23, 24},
		{17, 17},
		{27, 27},
		{0, 0},
		{40, 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhysicalToBCM(tt.physical), "pin %d", tt.physical)
	}
}
