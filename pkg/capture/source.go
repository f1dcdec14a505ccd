package capture

import (
	"fmt"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/pcap"

	"netwarden/pkg/config"
)

// PacketSource yields one decoded packet at a time. Close must unblock a
// pending NextPacket call so the capture loop can be joined promptly.
type PacketSource interface {
	NextPacket() (gopacket.Packet, error)
	Close()
}

// LiveSource reads packets from a network interface through libpcap. It
// is the only place in the repository that touches pcap.
type LiveSource struct {
	handle *pcap.Handle
	src    *gopacket.PacketSource
}

// OpenLive opens the configured interface for capture.
func OpenLive(cfg *config.Config) (*LiveSource, error) {
	handle, err := pcap.OpenLive(
		cfg.Capture.Interface,
		int32(cfg.Capture.SnapLen),
		cfg.Capture.Promiscuous,
		pcap.BlockForever,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open interface %s: %w", cfg.Capture.Interface, err)
	}

	return &LiveSource{
		handle: handle,
		src:    gopacket.NewPacketSource(handle, handle.LinkType()),
	}, nil
}

// NextPacket blocks until the next packet arrives or the handle is closed.
func (s *LiveSource) NextPacket() (gopacket.Packet, error) {
	return s.src.NextPacket()
}

// Close releases the pcap handle, unblocking any pending NextPacket.
func (s *LiveSource) Close() {
	s.handle.Close()
}
