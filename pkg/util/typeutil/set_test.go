package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewSet(1, 2, 2, 3)
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contain(1, 3))
	assert.False(t, set.Contain(1, 4))

	set.Insert(4, 4)
	assert.Equal(t, 4, set.Len())
	assert.True(t, set.Contain(4))

	empty := NewSet[string]()
	assert.Equal(t, 0, empty.Len())
	assert.True(t, empty.Contain())
}
