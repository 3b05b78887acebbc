package comm

import (
	"io"
	"sync"
	"time"
)

// CreationFunc is a function which returns a new "connection" to something
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// Pool is a communication pool which holds one or more connections to a device
// that will be closed if they are not in use, and re-opened as needed.
// it is concurrent safe.  Pools must be created with NewPool.
type Pool struct {
	maxSize int                     // maximum number of connections, == cap(conns)
	onLease int                     // number of connections given out, <= maxSize
	timeout time.Duration           // time after all are returned to free every connection
	conns   chan io.ReadWriteCloser // idle connections
	timer   *time.Timer             // fires reclaim once the pool has been idle for timeout
	maker   CreationFunc

	mu sync.Mutex
}

// NewPool creates a pool of at most maxSize connections made by maker, which
// are closed once none has been in use for timeout
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	p := &Pool{
		maxSize: maxSize,
		timeout: timeout,
		conns:   make(chan io.ReadWriteCloser, maxSize),
		maker:   maker,
	}
	p.timer = time.AfterFunc(timeout, p.reclaim)
	p.timer.Stop() // nothing to close initially
	return p
}

// Get retrieves a communicator from the pool, blocking until one is
// available if all are in use.  It is guaranteed that there is no contention
// for the ReadWriter.  The consumer should not attempt to cast it to its
// concrete type and use it outside this interface.
//
// When done with the communicator, return it with Put(), or discard it with
// Destroy() if it has become no good (e.g., all calls error).
//
// If the error from Get is not nil, you must not return it
// to the pool.
func (p *Pool) Get() (io.ReadWriter, error) {
	p.timer.Stop()

	p.mu.Lock()
	select {
	case c := <-p.conns:
		p.onLease++
		p.mu.Unlock()
		return c, nil
	default:
	}
	if p.onLease < p.maxSize {
		// reserve the slot before dialing, which may take a while
		p.onLease++
		p.mu.Unlock()
		c, err := p.maker()
		if err != nil {
			p.mu.Lock()
			p.onLease--
			p.mu.Unlock()
			return nil, err
		}
		return c, nil
	}
	p.mu.Unlock()

	// they are all given out; wait for one to come back
	c := <-p.conns
	p.mu.Lock()
	p.onLease++
	p.mu.Unlock()
	return c, nil
}

// Put restores a communicator to the pool.  It may be reused, or will be
// automatically freed after all connections are returned and the timeout
// has elapsed.  Junk communicators (ones that always error) should be
// Destroy()'d and not returned with Put.
func (p *Pool) Put(rw io.ReadWriter) {
	rwc := rw.(io.ReadWriteCloser)
	p.mu.Lock()
	p.onLease--
	idle := p.onLease == 0
	p.mu.Unlock()
	p.conns <- rwc
	if idle {
		p.timer.Reset(p.timeout)
	}
}

// Destroy immediately frees a communicator from the pool.  This should be used
// instead of Put if the communicator has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	if rwc, ok := rw.(io.Closer); ok {
		rwc.Close()
	}
	p.mu.Lock()
	p.onLease--
	p.mu.Unlock()
}

// Size returns the number of connections in the pool, or given out from it
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns) + p.onLease
}

// Active returns the number of connections owned by the pool that are currently
// given out
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onLease
}

// Close frees every idle connection now.  Connections on lease are unaffected.
func (p *Pool) Close() error {
	p.timer.Stop()
	p.drain()
	return nil
}

// reclaim closes all idle connections if none are on lease
func (p *Pool) reclaim() {
	p.mu.Lock()
	busy := p.onLease > 0
	p.mu.Unlock()
	if !busy {
		p.drain()
	}
}

func (p *Pool) drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		select {
		case c := <-p.conns:
			c.Close()
		default:
			return
		}
	}
}
