package engine

// quota bounds the number of events one run may execute. A simulation
// whose algorithms keep rescheduling themselves never drains; the quota
// turns that into a QUOTA_EXCEEDED error instead of an endless loop.
//
// A limit of 0 disables the check.
type quota struct {
	limit   int64
	current int64
}

// check counts one event and fails once the limit is passed.
func (q *quota) check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return newQuotaError(q.current, q.limit)
	}
	return nil
}
