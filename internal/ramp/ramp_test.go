package ramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyLimitReferenceRamp(t *testing.T) {
	l := New(nil)

	cases := []struct {
		days int
		want int
	}{
		{0, 5}, {6, 5},
		{7, 10}, {13, 10},
		{14, 15}, {20, 15},
		{21, 20}, {27, 20},
		{28, 25}, {100, 25},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, l.DailyLimit(c.days), "day %d", c.days)
	}
}

func TestDailyLimitClampsNegative(t *testing.T) {
	l := New(nil)
	assert.Equal(t, 5, l.DailyLimit(-3))
}

func TestDailyLimitMonotonic(t *testing.T) {
	l := New([]int{3, 6, 9})
	prev := 0
	for d := 0; d <= 60; d++ {
		cur := l.DailyLimit(d)
		assert.GreaterOrEqual(t, cur, prev, "day %d", d)
		prev = cur
	}
	assert.Equal(t, 9, l.DailyLimit(1000))
}
