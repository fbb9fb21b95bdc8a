package trinity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinDrains(t *testing.T) {
	t.Parallel()

	var drains int
	j := newJoin(3, func() { drains++ })

	j.end()
	j.end()
	assert.Equal(t, 0, drains)
	j.end()
	assert.Equal(t, 1, drains)
}

func TestJoinReopens(t *testing.T) {
	t.Parallel()

	var drains int
	var j *join
	j = newJoin(1, func() {
		drains++
		if drains == 1 {
			// keep the join open for one more operation, the way a
			// script run does
			j.begin()
			j.begin()
			j.end()
			j.end()
		}
	})
	j.end()
	assert.Equal(t, 2, drains)
}

func TestJoinConcurrentEnds(t *testing.T) {
	t.Parallel()

	const ops = 100
	var drains sync.WaitGroup
	drains.Add(1)
	j := newJoin(ops, drains.Done)

	var wg sync.WaitGroup
	for range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.end()
		}()
	}
	wg.Wait()
	drains.Wait()
}

func TestJoinUnbalanced(t *testing.T) {
	t.Parallel()

	j := newJoin(1, func() {})
	j.end()
	require.Panics(t, j.end)
}
