package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireReusesReleased(t *testing.T) {
	p := NewSlices[*int]()

	s := p.Acquire(8)
	assert.Empty(t, s)
	assert.GreaterOrEqual(t, cap(s), 8)
	v := 1
	s = append(s, &v, &v)
	assert.Equal(t, 1, p.Outstanding())

	p.Release(s)
	assert.Zero(t, p.Outstanding())

	again := p.Acquire(4)
	assert.Empty(t, again)
	assert.Equal(t, cap(s), cap(again))
	assert.Nil(t, again[:2][0])
}

func TestAcquireAllocatesWhenTooSmall(t *testing.T) {
	p := NewSlices[int]()
	p.Release(p.Acquire(2))

	s := p.Acquire(16)
	assert.GreaterOrEqual(t, cap(s), 16)
}
