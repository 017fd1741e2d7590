package engine

import "fmt"

// loopQuota bounds the iterations of one loop statement. Each FOR or WHILE
// execution gets its own quota.
type loopQuota struct {
	limit   int
	current int
}

func newLoopQuota(limit int) *loopQuota {
	return &loopQuota{limit: limit}
}

// check counts one iteration and fails once the limit is passed.
func (q *loopQuota) check(loop string, scan int64) error {
	q.current++
	if q.current > q.limit {
		return &RuntimeError{
			Code:    ErrCodeLoopLimit,
			Message: fmt.Sprintf("%s loop exceeded %d iterations", loop, q.limit),
			Scan:    scan,
		}
	}
	return nil
}
