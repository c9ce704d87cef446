/*
@Description: Concrete datagram port over net.PacketConn, batching reads
and writes with golang.org/x/net/ipv4 where the underlying conn supports
it. This is glue, not core: spec.md §1 places the concrete socket
adapter outside the tested surface.
*/

package netudp

import (
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"

	"fragmentos"
)

// Conn adapts a net.PacketConn into fragmentos.DatagramSource and
// fragmentos.DatagramSink. Reads happen on a background goroutine —
// unlike the core, which never spawns one (spec.md §5) — because
// net.PacketConn.ReadFrom has no non-blocking poll mode; this mirrors
// how the teacher's UDPSession isolates blocking socket I/O from its
// single-threaded KCP state machine.
type Conn struct {
	pc    net.PacketConn
	batch *ipv4.PacketConn // non-nil when pc wraps a *net.UDPConn
	d     int

	recvCh chan fragmentos.Datagram
	errCh  chan error

	closed atomic.Bool
}

// NewConn wraps pc, shaping datagrams to at most d bytes. If pc is
// backed by *net.UDPConn, reads use golang.org/x/net/ipv4's batch API
// (the teacher's batchconn.go/tx.go idiom) to amortize syscalls.
func NewConn(pc net.PacketConn, d int) *Conn {
	c := &Conn{
		pc:     pc,
		d:      d,
		recvCh: make(chan fragmentos.Datagram, 64),
		errCh:  make(chan error, 1),
	}
	if udpConn, ok := pc.(*net.UDPConn); ok {
		c.batch = ipv4.NewPacketConn(udpConn)
	}
	go c.readLoop()
	return c
}

// Listen opens a server-side Conn bound to laddr.
func Listen(laddr string, d int) (*Conn, error) {
	pc, err := net.ListenPacket("udp", laddr)
	if err != nil {
		return nil, errors.Wrap(err, "netudp: listen")
	}
	return NewConn(pc, d), nil
}

// Dial opens a client-side Conn with an ephemeral local address.
func Dial(d int) (*Conn, error) {
	pc, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, errors.Wrap(err, "netudp: dial")
	}
	return NewConn(pc, d), nil
}

func (c *Conn) readLoop() {
	const batchSize = 16

	if c.batch != nil {
		msgs := make([]ipv4.Message, batchSize)
		for i := range msgs {
			msgs[i].Buffers = [][]byte{make([]byte, c.d)}
		}
		for {
			n, err := c.batch.ReadBatch(msgs, 0)
			if err != nil {
				c.onReadError(err)
				return
			}
			for i := 0; i < n; i++ {
				payload := append([]byte(nil), msgs[i].Buffers[0][:msgs[i].N]...)
				c.recvCh <- fragmentos.Datagram{Payload: payload, Addr: msgs[i].Addr}
			}
		}
	}

	buf := make([]byte, c.d)
	for {
		n, addr, err := c.pc.ReadFrom(buf)
		if err != nil {
			c.onReadError(err)
			return
		}
		payload := append([]byte(nil), buf[:n]...)
		c.recvCh <- fragmentos.Datagram{Payload: payload, Addr: addr}
	}
}

func (c *Conn) onReadError(err error) {
	if c.closed.Load() {
		close(c.recvCh)
		return
	}
	logrus.WithError(err).Warn("netudp: read loop terminated")
	c.errCh <- err
}

// Recv implements fragmentos.DatagramSource.
func (c *Conn) Recv() (dgram fragmentos.Datagram, ready bool, closed bool, err error) {
	select {
	case d, ok := <-c.recvCh:
		if !ok {
			return fragmentos.Datagram{}, false, true, nil
		}
		return d, true, false, nil
	case e := <-c.errCh:
		return fragmentos.Datagram{}, false, false, e
	default:
		return fragmentos.Datagram{}, false, false, nil
	}
}

// TrySend implements fragmentos.DatagramSink. It tries the batch path
// first (matching the teacher's tx.go fallback order: batch, then
// default) and falls back to a plain WriteTo on any batch failure.
func (c *Conn) TrySend(item fragmentos.Length) (accepted bool, err error) {
	dgram, ok := item.(fragmentos.Datagram)
	if !ok {
		return false, errors.Errorf("netudp: unsupported item type %T", item)
	}
	addr, ok := dgram.Addr.(net.Addr)
	if !ok {
		return false, errors.Errorf("netudp: unsupported address type %T", dgram.Addr)
	}

	if c.batch != nil {
		msgs := []ipv4.Message{{Buffers: [][]byte{dgram.Payload}, Addr: addr}}
		if _, err := c.batch.WriteBatch(msgs, 0); err == nil {
			return true, nil
		}
		logrus.Debug("netudp: batch write failed, falling back to WriteTo")
	}

	if _, err := c.pc.WriteTo(dgram.Payload, addr); err != nil {
		return false, err
	}
	return true, nil
}

// Close shuts down the underlying socket and stops the read loop.
func (c *Conn) Close() error {
	c.closed.Store(true)
	return c.pc.Close()
}

// LocalAddr returns the local address the Conn is bound to.
func (c *Conn) LocalAddr() net.Addr {
	return c.pc.LocalAddr()
}
