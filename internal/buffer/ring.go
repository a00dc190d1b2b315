package buffer

// Transform is an operation acting on a ring element and returning another one.
type Transform func(v interface{}) interface{}

// Ring is a ring buffer keeping the last x elements.
// The trainer uses it to keep a bounded history of epoch reports.
type Ring struct {
	index  int
	count  int
	values []interface{}
}

// NewRing creates a new ring with the given buffer size.
func NewRing(size int) *Ring {
	return &Ring{
		values: make([]interface{}, size),
	}
}

// Size returns the number of elements within the ring.
func (r *Ring) Size() int {
	if r.count < len(r.values) {
		return r.count
	}
	return len(r.values)
}

// Push adds an element to the ring.
func (r *Ring) Push(v interface{}) {
	r.values[r.index] = v
	r.index = r.next(r.index)
	r.count++
}

func (r *Ring) next(index int) int {
	return (index + 1) % len(r.values)
}

// Get returns an ordered slice of the ring elements.
func (r *Ring) Get(transform Transform) []interface{} {

	l := len(r.values)
	if r.count < l {
		l = r.count
	}

	v := make([]interface{}, l)
	for i := 0; i < l; i++ {
		idx := i
		if r.count > l {
			idx = (r.index + i) % len(r.values)
		}
		v[i] = transform(r.values[idx])
	}
	return v
}
