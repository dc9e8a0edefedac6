package vercmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal simple", "1.0", "1.0", 0},
		{"numeric not lexical", "1.9", "1.10", -1},
		{"numeric not lexical reversed", "1.10", "1.9", 1},
		{"patch level", "2.1.0", "2.1.9", -1},
		{"major", "2.0", "3.0", -1},
		{"extra segment is newer", "1.2", "1.2.1", -1},
		{"leading zeros", "1.09", "1.9", 0},
		{"separator style ignored", "1.2-3", "1.2.3", 0},
		{"alpha segments lexical", "1.0a", "1.0b", -1},
		{"release candidate older than release", "1.0.rc1", "1.0.1", -1},
		{"rc ordering", "1.0.rc1", "1.0.rc2", -1},
		{"identical long", "2.31_glibc", "2.31_glibc", 0},
		{"both empty", "", "", 0},
		{"empty older", "", "1.0", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%q, %q)", tt.a, tt.b)
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a), "Compare(%q, %q)", tt.b, tt.a)
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("1.0", "1.00"))
	assert.False(t, Equal("1.0", "1.0.1"))
}
