package listener

import (
	"errors"
	"fmt"
	"net"

	"github.com/locatr/trackd/cli/trackd/track"
	log "github.com/sirupsen/logrus"
)

// maxDatagramSize is generous for the tracker's JSON payloads, which
// are well under 200 bytes.
const maxDatagramSize = 2048

// Sink receives every accepted fix, typically the async storage
// repository. A nil sink disables export.
type Sink interface {
	Save(fix track.Fix) error
}

// Listener reads fix datagrams from a UDP socket and writes them into
// the store. Ingestion is fire-and-forget: nothing is ever sent back to
// the device, and a bad datagram never stops the loop.
type Listener struct {
	addr  string
	store *track.Store
	sink  Sink
	conn  *net.UDPConn
}

func New(addr string, store *track.Store, sink Sink) *Listener {
	return &Listener{addr: addr, store: store, sink: sink}
}

// Bind opens the UDP socket. A bind failure is fatal to the component
// and is returned to the supervisor.
func (l *Listener) Bind() error {
	udpAddr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", l.addr, err)
	}
	l.conn, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", l.addr, err)
	}
	log.Infof("Listening for fixes on udp://%s", l.conn.LocalAddr())
	return nil
}

// LocalAddr reports the bound address, nil before Bind.
func (l *Listener) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Serve reads datagrams until the socket is closed.
func (l *Listener) Serve() error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.WithField("err", err).Warn("Read timeout")
				continue
			}
			return fmt.Errorf("socket failure: %w", err)
		}
		l.handle(buf[:n], addr)
	}
}

// Run binds and serves.
func (l *Listener) Run() error {
	if err := l.Bind(); err != nil {
		return err
	}
	return l.Serve()
}

func (l *Listener) Stop() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

func (l *Listener) handle(raw []byte, addr *net.UDPAddr) {
	fix, err := track.Decode(raw)
	if err != nil {
		if errors.Is(err, track.ErrOutOfRange) {
			l.store.Counters.IncOutOfRange()
		} else {
			l.store.Counters.IncMalformed()
		}
		log.WithFields(log.Fields{"addr": addr, "err": err}).Debug("Dropped datagram")
		return
	}

	if res := l.store.Upsert(fix); res != track.Accepted {
		log.WithFields(log.Fields{
			"device": fix.DeviceID,
			"reason": res.String(),
		}).Debug("Fix rejected")
		return
	}

	log.WithFields(log.Fields{
		"device": fix.DeviceID,
		"lat":    fix.Latitude,
		"lon":    fix.Longitude,
		"ts":     fix.Timestamp,
	}).Debug("Fix accepted")

	if l.sink != nil {
		if err := l.sink.Save(fix); err != nil {
			log.WithField("err", err).Error("Failed to export fix")
		}
	}
}
