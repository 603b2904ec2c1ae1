package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/caseroom/internal/observability"
	"github.com/rs/zerolog/log"
)

// Broadcaster periodically sends the current presence snapshot to the discovery port.
type Broadcaster struct {
	cfg      Config
	snapshot func() Presence
}

func NewBroadcaster(cfg Config, snapshot func() Presence) *Broadcaster {
	return &Broadcaster{cfg: cfg.WithDefaults(), snapshot: snapshot}
}

// Run sends one packet immediately and then every BroadcastInterval until ctx ends.
// Individual send failures are logged; only socket setup errors are returned.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.snapshot == nil {
		return fmt.Errorf("discovery: broadcaster has no presence source")
	}
	target, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(b.cfg.BroadcastAddr, strconv.Itoa(b.cfg.Port)))
	if err != nil {
		return fmt.Errorf("discovery: resolve broadcast target: %w", err)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return fmt.Errorf("discovery: open broadcast socket: %w", err)
	}
	defer conn.Close()

	log.Info().
		Str("target", target.String()).
		Dur("interval", b.cfg.BroadcastInterval).
		Msg("discovery.Broadcaster.Run started")

	ticker := time.NewTicker(b.cfg.BroadcastInterval)
	defer ticker.Stop()
	for {
		b.send(conn, target)
		select {
		case <-ctx.Done():
			log.Debug().Msg("discovery.Broadcaster.Run stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Broadcaster) send(conn *net.UDPConn, target *net.UDPAddr) {
	pkt, err := EncodePresence(b.snapshot())
	if err != nil {
		observability.RecordDiscoveryPacket("tx", "invalid")
		log.Warn().Err(err).Msg("discovery.Broadcaster encode failed")
		return
	}
	if _, err := conn.WriteToUDP(pkt, target); err != nil {
		observability.RecordDiscoveryPacket("tx", "failed")
		log.Debug().Err(err).Str("target", target.String()).Msg("discovery.Broadcaster send failed")
		return
	}
	observability.RecordDiscoveryPacket("tx", "sent")
}
