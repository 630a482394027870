package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// Announcement is what a peer broadcasts on the LAN to advertise itself.
type Announcement struct {
	PeerID     PeerId `json:"peer_id"`
	ListenAddr string `json:"listen_addr"`
	Name       string `json:"name"`
	Version    string `json:"version"`
}

// DiscoveredPeer is emitted whenever an Announcement from another node
// arrives.
type DiscoveredPeer struct {
	Announcement Announcement
	SourceAddr   *net.UDPAddr
}

// DiscoveryConfig configures the broadcaster and listener.
type DiscoveryConfig struct {
	Port         int
	Interval     time.Duration
	Announcement Announcement
}

// recvBufferSize is the UDP datagram buffer: generous relative to a
// serialized Announcement, which stays well under a kilobyte.
const recvBufferSize = 4096

// StartDiscovery launches the broadcaster and listener goroutines. Both
// exit when ctx is cancelled. Discovered peers are sent to discoveredCh;
// the caller is expected to keep draining it for the service's lifetime.
//
// Two sockets are used deliberately: the listener binds the well-known
// discovery port so it can receive announcements from any peer, while the
// broadcaster uses an ephemeral port — binding the well-known port twice
// for send and receive isn't portable, and nothing reads the broadcaster's
// replies anyway. Firewalls that only open the well-known port inbound
// will still see the broadcaster's outbound packets pass, but a peer on
// the other side replying directly to the ephemeral source port may be
// dropped — a known limitation of broadcast-based discovery.
func StartDiscovery(ctx context.Context, log *zap.Logger, cfg DiscoveryConfig, discoveredCh chan<- DiscoveredPeer) error {
	listenAddr := &net.UDPAddr{IP: net.IPv4zero, Port: cfg.Port}
	listenerConn, err := net.ListenUDP("udp4", listenAddr)
	if err != nil {
		return fmt.Errorf("discovery listener bind: %w", err)
	}

	log.Info("discovery service listening", zap.Int("port", cfg.Port))

	ourPeerID := cfg.Announcement.PeerID
	announcementBytes, err := json.Marshal(cfg.Announcement)
	if err != nil {
		listenerConn.Close()
		return fmt.Errorf("marshaling announcement: %w", err)
	}

	broadcastAddr := &net.UDPAddr{IP: net.IPv4bcast, Port: cfg.Port}
	senderConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		listenerConn.Close()
		return fmt.Errorf("discovery sender bind: %w", err)
	}

	go runBroadcaster(ctx, log, senderConn, broadcastAddr, announcementBytes, cfg.Interval)
	go runListener(ctx, log, listenerConn, ourPeerID, discoveredCh)

	return nil
}

func runBroadcaster(ctx context.Context, log *zap.Logger, conn *net.UDPConn, broadcastAddr *net.UDPAddr, payload []byte, interval time.Duration) {
	defer conn.Close()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := conn.WriteToUDP(payload, broadcastAddr); err != nil {
				log.Debug("broadcast send failed", zap.Error(err))
			}
		case <-ctx.Done():
			log.Debug("discovery broadcaster shutting down")
			return
		}
	}
}

func runListener(ctx context.Context, log *zap.Logger, conn *net.UDPConn, ourPeerID PeerId, discoveredCh chan<- DiscoveredPeer) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, recvBufferSize)
	for {
		n, srcAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("discovery listener shutting down")
				return
			}
			log.Warn("discovery recv error", zap.Error(err))
			continue
		}

		var announcement Announcement
		if err := json.Unmarshal(buf[:n], &announcement); err != nil {
			continue
		}

		if announcement.PeerID == ourPeerID {
			continue
		}

		log.Debug("discovered peer", zap.String("name", announcement.Name), zap.Stringer("addr", srcAddr))

		select {
		case discoveredCh <- DiscoveredPeer{Announcement: announcement, SourceAddr: srcAddr}:
		case <-ctx.Done():
			return
		}
	}
}
