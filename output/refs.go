package output

import "sync"

// deviceRefs counts the open outputs sharing one device context. The first
// acquire resumes the context and the last release suspends it.
type deviceRefs struct {
	mu      sync.Mutex
	n       int
	resume  func() error
	suspend func() error
}

func (r *deviceRefs) acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		if err := r.resume(); err != nil {
			return err
		}
	}
	r.n++
	return nil
}

func (r *deviceRefs) release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		return nil
	}
	r.n--
	if r.n == 0 {
		return r.suspend()
	}
	return nil
}

func (r *deviceRefs) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
