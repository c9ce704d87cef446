package main

import (
	"io"
	"time"

	"fragmentos"
	"fragmentos/netudp"
)

// outbound is the queue standing between a Sender (which pushes whole
// fragmented messages) and a Shaper (which pulls them one datagram at a
// time). It implements both fragmentos.DatagramSink and fragmentos.Source.
type outbound struct {
	items []fragmentos.Datagram
}

func (q *outbound) TrySend(item fragmentos.Length) (accepted bool, err error) {
	q.items = append(q.items, item.(fragmentos.Datagram))
	return true, nil
}

func (q *outbound) Recv() (item fragmentos.Length, ready bool, closed bool, err error) {
	if len(q.items) == 0 {
		return nil, false, false, nil
	}
	d := q.items[0]
	q.items = q.items[1:]
	return d, true, false, nil
}

// noTicks is a TimeSource that never fires; pipeline drives the
// reassembly state machine's TimeTick itself, on its own ttlTicker, so
// the Receiver it hands to the core need not tick on its own.
type noTicks struct{}

func (noTicks) Tick() (ready bool, closed bool) { return false, false }

// pipeline bundles the sending and receiving halves of one fragmentos
// endpoint over a single netudp.Conn, along with the tickers that drive
// the shaper (1ms) and the reassembly state machine (1s per TTL unit).
type pipeline struct {
	conn     *netudp.Conn
	sender   *fragmentos.Sender
	shaper   *fragmentos.Shaper
	outQueue *outbound
	receiver *fragmentos.Receiver
	sm       *fragmentos.StateMachine

	shaperTicker *netudp.Ticker
	ttlTicker    *netudp.Ticker
}

func newPipeline(conn *netudp.Conn, rng io.Reader) (*pipeline, error) {
	sm, err := fragmentos.NewStateMachine(cfg.TTL)
	if err != nil {
		return nil, err
	}
	shaper, err := fragmentos.NewShaper(cfg.Queue, cfg.MinRate, cfg.MaxRate)
	if err != nil {
		return nil, err
	}
	q := &outbound{}
	sender, err := fragmentos.NewSender(q, cfg.DatagramD, rng)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		conn:         conn,
		sender:       sender,
		shaper:       shaper,
		outQueue:     q,
		receiver:     fragmentos.NewReceiver(sm, conn, noTicks{}),
		sm:           sm,
		shaperTicker: netudp.NewTicker(time.Millisecond),
		ttlTicker:    netudp.NewTicker(time.Second),
	}, nil
}

// pumpOut drains one shaper tick's worth of pacing whenever the 1ms
// ticker fires; call this frequently from the owning loop.
func (p *pipeline) pumpOut() error {
	if ready, _ := p.shaperTicker.Tick(); ready {
		if _, err := p.shaper.Tick(p.outQueue, p.conn); err != nil {
			return err
		}
		p.shaper.AdaptRate()
	}
	return nil
}

// send enqueues msg for addr, retrying TrySend until accepted. It keeps
// pumping the shaper while it waits so the fragments it just queued
// actually leave the queue.
func (p *pipeline) send(msg []byte, addr any) error {
	for {
		accepted, err := p.sender.TrySend(msg, addr)
		if err != nil {
			return err
		}
		if accepted {
			return nil
		}
		if err := p.pumpOut(); err != nil {
			return err
		}
	}
}

// poll services the TTL ticker and returns the next reassembled message,
// if any is ready yet.
func (p *pipeline) poll() (msg []byte, addr any, ready bool, closed bool, err error) {
	if ready, _ := p.ttlTicker.Tick(); ready {
		p.sm.TimeTick()
	}
	return p.receiver.Poll()
}

func (p *pipeline) close() {
	p.shaperTicker.Stop()
	p.ttlTicker.Stop()
	p.conn.Close()
}
