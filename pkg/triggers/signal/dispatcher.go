// Package signal provides named in-process update signals and the trigger
// that reconciles an entity when its update signal is emitted.
package signal

import (
	"sync"
	"sync/atomic"
)

type listener struct {
	fn     func()
	active atomic.Bool
}

// Dispatcher delivers named signals without payload to their listeners.
// Emit runs listeners on the caller's goroutine in registration order.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[string][]*listener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]*listener)}
}

// Listen registers fn for name. The returned function removes it and is safe
// to call more than once.
func (d *Dispatcher) Listen(name string, fn func()) func() {
	l := &listener{fn: fn}
	l.active.Store(true)

	d.mu.Lock()
	d.listeners[name] = append(d.listeners[name], l)
	d.mu.Unlock()

	return func() {
		if !l.active.Swap(false) {
			return
		}

		d.mu.Lock()
		defer d.mu.Unlock()

		ls := d.listeners[name]
		for i, candidate := range ls {
			if candidate == l {
				d.listeners[name] = append(ls[:i:i], ls[i+1:]...)

				break
			}
		}

		if len(d.listeners[name]) == 0 {
			delete(d.listeners, name)
		}
	}
}

// Emit delivers name to its listeners and returns how many ran.
func (d *Dispatcher) Emit(name string) int {
	d.mu.Lock()
	snapshot := append([]*listener(nil), d.listeners[name]...)
	d.mu.Unlock()

	delivered := 0

	for _, l := range snapshot {
		if !l.active.Load() {
			continue
		}

		l.fn()
		delivered++
	}

	return delivered
}

// Listeners returns the number of listeners registered for name.
func (d *Dispatcher) Listeners(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.listeners[name])
}
