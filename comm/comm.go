/*Package comm provides the byte transport used to talk to a camera bridge.

A bridge is a small device or daemon that accepts line oriented commands over
TCP or a serial port (RS232 or USB-CDC) and drives the camera on our behalf.
Most usages of this package will boil down to:
	1.  fill in a RemoteDevice with the address and whether it is serial
	2.  Open it, which retries with an exponential backoff
	3.  SendRecv lines terminated by a carriage return

or, for long lived programs, build a Pool around Dialer so idle connections
are closed and re-opened on demand.

	rd := comm.NewRemoteDevice("192.168.1.20:5025", false)
	if err := rd.Open(); err != nil {
		return err
	}
	defer rd.Close()
	resp, err := rd.SendRecv([]byte("COUNT"))
*/
package comm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

const (
	// Terminator ends every line sent to or received from a bridge
	Terminator = byte('\r')

	// DefaultBaud is used for serial bridges when no baud rate is given
	DefaultBaud = 115200

	// DefaultTimeout bounds connect and each read/write exchange
	DefaultTimeout = 3 * time.Second
)

var (
	// ErrNotConnected is generated when .Conn is nil and Send or Recv is called.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

/*RemoteDevice has an address and can Open, Send, Recv and Close.

If IsSerial is true, Addr is the name of the serial port (e.g. /dev/ttyACM0)
and Baud is used; otherwise Addr is a host:port for TCP.

A RemoteDevice is not safe for concurrent use; guard it or use a Pool.
*/
type RemoteDevice struct {
	Addr     string
	IsSerial bool
	Baud     int
	Timeout  time.Duration
	Conn     io.ReadWriteCloser
}

// NewRemoteDevice creates a new RemoteDevice instance with default baud and timeout
func NewRemoteDevice(addr string, serial bool) RemoteDevice {
	return RemoteDevice{
		Addr:     addr,
		IsSerial: serial,
		Baud:     DefaultBaud,
		Timeout:  DefaultTimeout}
}

// SerialConf yields a pointer to a serial config object for use with serial.OpenPort
func (rd *RemoteDevice) SerialConf() *serial.Config {
	baud := rd.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	return &serial.Config{Name: rd.Addr, Baud: baud, ReadTimeout: rd.timeout()}
}

func (rd *RemoteDevice) timeout() time.Duration {
	if rd.Timeout <= 0 {
		return DefaultTimeout
	}
	return rd.Timeout
}

// Open the connection, setting the Conn variable
func (rd *RemoteDevice) Open() error {
	conn, err := Dialer(rd)()
	if err != nil {
		return err
	}
	rd.Conn = conn
	return nil
}

// Dialer returns a CreationFunc that opens a new connection with the
// parameters of rd.  Connection attempts are retried with an exponential
// backoff; bridges running on microcontrollers do not like being
// connection thrashed.
func Dialer(rd *RemoteDevice) CreationFunc {
	addr, isSerial, conf, timeout := rd.Addr, rd.IsSerial, rd.SerialConf(), rd.timeout()
	return func() (io.ReadWriteCloser, error) {
		var conn io.ReadWriteCloser
		wasTimeout := false
		op := func() error {
			var err error
			if isSerial {
				conn, err = serial.OpenPort(conf)
			} else {
				conn, err = TCPSetup(addr, timeout)
			}
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") || strings.Contains(errS, "busy") {
					return err
				}
				wasTimeout = true
				return backoff.Permanent(err)
			}
			return nil
		}

		// backoff will cease on a timeout so we don't wait forever
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err == nil {
			return conn, nil
		}
		if wasTimeout {
			return nil, fmt.Errorf("connection timeout to %s: %w", addr, err)
		}
		return nil, err
	}
}

// Close the connection, nil-ing the Conn variable
func (rd *RemoteDevice) Close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	if err == nil {
		rd.Conn = nil
	}
	return err
}

// Send writes data to the remote, appending the terminator
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	return send(rd.Conn, b, rd.timeout())
}

// Recv recieves data from the remote and strips the terminator
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	return recv(rd.Conn, rd.timeout())
}

// SendRecv sends a buffer after appending the terminator,
// then returns the response with the terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	if rd.Conn == nil {
		return []byte{}, ErrNotConnected
	}
	return Exchange(rd.Conn, b, rd.timeout())
}

// Exchange writes one terminated line to rw and reads one line back.  If rw
// is a net.Conn, timeout is applied as a deadline to the exchange.
func Exchange(rw io.ReadWriter, b []byte, timeout time.Duration) ([]byte, error) {
	if err := send(rw, b, timeout); err != nil {
		return []byte{}, err
	}
	return recv(rw, timeout)
}

func send(w io.Writer, b []byte, timeout time.Duration) error {
	if conn, ok := w.(net.Conn); ok && timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, b...)
	buf = append(buf, Terminator)
	_, err := w.Write(buf)
	return err
}

func recv(r io.Reader, timeout time.Duration) ([]byte, error) {
	if conn, ok := r.(net.Conn); ok && timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
	}
	buf, err := bufio.NewReader(r).ReadBytes(Terminator)
	if err != nil {
		if len(buf) > 0 && err == io.EOF {
			return buf, ErrTerminatorNotFound
		}
		return []byte{}, err
	}
	return bytes.TrimSuffix(buf, []byte{Terminator}), nil
}

// TCPSetup opens a new TCP connection with a timeout on connect
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}
