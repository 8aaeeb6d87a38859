/*Package comm provides connection plumbing for lab hardware that speaks
line-oriented protocols over TCP sockets or RS232.

Usage boils down to:
 1. make a CreationFunc for your transport (BackingOffTCPConnMaker for
    ethernet devices, SerialConnMaker for serial ones)
 2. wrap it in a Pool, which keeps connections warm while they are in use
    and frees them after a quiet period
 3. in each driver call, Get a connection, dress it with NewTerminator
    and NewTimeout, do one write/read exchange, and give the connection
    back with ReturnWithError.
*/
package comm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNotConnected is generated when an exchange is attempted on a nil
	// connection
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not
	// found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// CreationFunc is a function which returns a new "connection" to something.
// a closure should be used to encapsulate the variables and functions needed.
type CreationFunc func() (io.ReadWriteCloser, error)

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// BackingOffTCPConnMaker returns a CreationFunc which dials addr with an
// exponential backoff.  Some instrument ethernet bridges do not like being
// connection thrashed, so the first retry waits 25ms and the policy tops
// out after three seconds.  Connection refused is surfaced immediately,
// it will not resolve on its own.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var (
			conn       net.Conn
			wasTimeout bool
		)
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") {
					return err
				}
				wasTimeout = true
				return nil
			}
			wasTimeout = false
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err != nil {
			return nil, err
		}
		if wasTimeout {
			return nil, fmt.Errorf("connection timeout to %s", addr)
		}
		return conn, nil
	}
}

// SerialConnMaker returns a CreationFunc which opens the serial port
// described by conf
func SerialConnMaker(conf *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(conf)
	}
}
