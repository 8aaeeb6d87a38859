package comm

import (
	"io"
	"time"
)

// deadliner is the piece of net.Conn used to arm timeouts
type deadliner interface {
	SetDeadline(t time.Time) error
}

type terminator struct {
	rw io.ReadWriter
	rx byte
	tx byte
}

// NewTerminator wraps rw so that writes have the Tx terminator appended and
// reads consume up to and strip the Rx terminator.  If the wrapped
// ReadWriter supports deadlines, the wrapper passes them through, so the
// order of NewTerminator and NewTimeout does not matter.
func NewTerminator(rw io.ReadWriter, rx, tx byte) io.ReadWriter {
	return &terminator{rw: rw, rx: rx, tx: tx}
}

func (t *terminator) Write(p []byte) (int, error) {
	buf := make([]byte, len(p)+1)
	copy(buf, p)
	buf[len(p)] = t.tx
	n, err := t.rw.Write(buf)
	if n == len(buf) {
		n--
	}
	return n, err
}

// Read scans for the Rx terminator one byte at a time.  Chatter on these
// links is tens of bytes per exchange, so the syscall count does not matter.
func (t *terminator) Read(p []byte) (int, error) {
	n := 0
	one := make([]byte, 1)
	for n < len(p) {
		nn, err := t.rw.Read(one)
		if err != nil {
			return n, err
		}
		if nn == 0 {
			continue
		}
		if one[0] == t.rx {
			return n, nil
		}
		p[n] = one[0]
		n++
	}
	return n, ErrTerminatorNotFound
}

func (t *terminator) SetDeadline(d time.Time) error {
	if dl, ok := t.rw.(deadliner); ok {
		return dl.SetDeadline(d)
	}
	return nil
}

type timeoutWrapper struct {
	rw io.ReadWriter
	dl deadliner
	t  time.Duration
}

// NewTimeout wraps rw so that every Read and Write arms a fresh deadline.
// Transports without deadline support (serial ports configure their own
// read timeout) are returned unchanged.
func NewTimeout(rw io.ReadWriter, timeout time.Duration) (io.ReadWriter, error) {
	if dl, ok := rw.(deadliner); ok {
		return timeoutWrapper{rw: rw, dl: dl, t: timeout}, nil
	}
	return rw, nil
}

func (tw timeoutWrapper) Read(p []byte) (int, error) {
	err := tw.dl.SetDeadline(time.Now().Add(tw.t))
	if err != nil {
		return 0, err
	}
	return tw.rw.Read(p)
}

func (tw timeoutWrapper) Write(p []byte) (int, error) {
	err := tw.dl.SetDeadline(time.Now().Add(tw.t))
	if err != nil {
		return 0, err
	}
	return tw.rw.Write(p)
}
