package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	testWaitFor = 2 * time.Second
	testTick    = 10 * time.Millisecond
)

func TestRegistry_GetCreatesOnce(t *testing.T) {
	factoryCalls := 0
	r := NewRegistry(func(ownerID string) LocalBackend {
		factoryCalls++
		return &memLocal{}
	}, &memRemote{})

	a := r.Get("device-1")
	b := r.Get("device-1")
	c := r.Get("device-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, factoryCalls)
}
