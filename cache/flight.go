package cache

import "golang.org/x/sync/singleflight"

// Flight coalesces concurrent producer calls that share a key.
type Flight struct {
	group singleflight.Group
}

// NewFlight returns a ready Flight.
func NewFlight() *Flight {
	return &Flight{}
}

// Do runs fn once for all callers that arrive with the same key while it is
// in flight. A nil Flight simply calls fn.
func (f *Flight) Do(key string, fn func() (any, error)) (any, error) {
	if f == nil {
		return fn()
	}
	v, err, _ := f.group.Do(key, fn)
	return v, err
}
