package trinity

import "sync/atomic"

// join counts the operations a composition is still waiting on: resource
// fetches, the running script, and nested compositions. Every begin must be
// matched by exactly one end, whether the operation succeeded or failed.
//
// Each time the count drains to zero, onDrain is called from the goroutine
// that made the final end call. onDrain may begin more work, which is how a
// composition keeps itself open while its script runs.
type join struct {
	count   atomic.Int64
	onDrain func()
}

func newJoin(pending int64, onDrain func()) *join {
	j := &join{onDrain: onDrain}
	j.count.Store(pending)
	return j
}

func (j *join) begin() {
	j.count.Add(1)
}

func (j *join) end() {
	n := j.count.Add(-1)
	if n < 0 {
		panic("trinity: join ended more times than it was begun")
	}
	if n == 0 {
		j.onDrain()
	}
}
