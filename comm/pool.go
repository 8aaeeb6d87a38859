package comm

import (
	"io"
	"sync"
	"time"
)

// Pool is a communication pool which holds one or more connections to a device
// that will be closed if they are not in use, and re-opened as needed.
// it is concurrent safe.  Pools must be created with NewPool.
type Pool struct {
	// can assume chan and timer are created by New in all methods.
	maxSize int                     // maximum number of connections, == cap(conns)
	onLease int                     // number of connections given out, <= cap(conns)
	timeout time.Duration           // time after len(conns) == maxSize to free all connections
	conns   chan io.ReadWriteCloser // the circular buffer of connections
	timer   *time.Timer             // timer used to destroy connections after all are returned
	maker   CreationFunc

	reclaiming bool // whether startReclaim's goroutine is running
	mu         *sync.Mutex
}

// NewPool creates a new pool of up to maxSize connections made by maker,
// freed after timeout of disuse
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	p := &Pool{
		maxSize: maxSize,
		timeout: timeout,
		conns:   make(chan io.ReadWriteCloser, maxSize),
		timer:   time.NewTimer(timeout),
		maker:   maker,
		mu:      &sync.Mutex{},
	}
	p.timer.Stop() // nothing to close initially
	return p
}

// Get retrieves a communicator from the pool, blocking until one is
// available if all are in use.  It is guaranteed that there is no contention
// for the ReadWriter.  The consumer should not attempt to cast it to its
// concrete type and use it outside this interface.
//
// When done with the communicator, return it with Put, or discard it with
// Destroy if it has become no good (e.g., all calls error).
// ReturnWithError does the right thing in one line.
//
// If the error from Get is not nil, you must not return the communicator
// to the pool.
func (p *Pool) Get() (io.ReadWriter, error) {
	// stopping the timer can fail as documented at
	// https://golang.org/pkg/time/#Timer.Stop but the reclaim drain
	// handles an already-fired timer, so we can ignore that.
	p.timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	// short circuit: if a connection is available, immediately return it
	if len(p.conns) > 0 {
		ret := <-p.conns
		p.onLease++
		return ret, nil
	}
	// check if they're all given out
	if p.onLease == p.maxSize {
		// wait for one to come back
		ret := <-p.conns
		p.onLease++
		return ret, nil
	}
	// no connection available and they aren't all out; make one.
	// only increment the lease count if we are giving out something
	// other than garbage
	c, err := p.maker()
	if err == nil {
		p.onLease++
	}
	return c, err
}

// Put restores a communicator to the pool.  It may be reused, or will be
// automatically freed after all connections are returned and the timeout
// has elapsed.  Junk communicators (ones that always error) should be
// Destroy'd and not returned with Put.
func (p *Pool) Put(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	// send before taking the lock; Get may be blocked on the channel with
	// the lock held, and the buffer always has room for every lease
	p.conns <- rwc
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLease--
	if len(p.conns) == p.maxSize {
		p.startReclaim()
	}
}

// Destroy immediately frees a communicator from the pool.  This should be
// used instead of Put if the communicator has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	rwc.Close()
	p.mu.Lock()
	p.onLease--
	p.mu.Unlock()
}

// ReturnWithError routes the communicator back to the pool with Put if err
// is nil, or Destroy otherwise.  A nil communicator is ignored, so it is
// safe to defer this call immediately after Get.
func (p *Pool) ReturnWithError(rw io.ReadWriter, err error) {
	if rw == nil {
		return
	}
	if err != nil {
		p.Destroy(rw)
		return
	}
	p.Put(rw)
}

// Size returns the number of connections in the pool, or given out from it
func (p *Pool) Size() int {
	return len(p.conns) + p.onLease
}

// Active returns the number of connections owned by the pool that are
// currently given out
func (p *Pool) Active() int {
	return p.onLease
}

// startReclaim spawns another goroutine which will be used to close all
// connections in the pool once the disuse timer fires.  The caller must
// hold p.mu.
func (p *Pool) startReclaim() {
	if p.reclaiming {
		return
	}
	p.reclaiming = true
	p.timer.Reset(p.timeout)
	go func() {
		<-p.timer.C
		p.mu.Lock()
		defer p.mu.Unlock()
		for {
			select {
			case closer := <-p.conns:
				closer.Close()
			default:
				p.reclaiming = false
				return
			}
		}
	}()
}
