package models

import (
	"fmt"
	"time"
)

// Protocol is the transport-layer classification tag for a captured packet.
type Protocol string

const (
	ProtocolTCP   Protocol = "TCP"
	ProtocolUDP   Protocol = "UDP"
	ProtocolICMP  Protocol = "ICMP"
	ProtocolARP   Protocol = "ARP"
	ProtocolOther Protocol = "Other"
)

// Protocols lists every classification tag, in display order.
var Protocols = []Protocol{ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolARP, ProtocolOther}

// TCP flag names, the subset of header bits we report.
const (
	FlagSYN = "SYN"
	FlagACK = "ACK"
	FlagFIN = "FIN"
	FlagRST = "RST"
	FlagPSH = "PSH"
	FlagURG = "URG"
)

// PacketEvent is one classified packet. Immutable once built.
type PacketEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Protocol  Protocol  `json:"protocol"`
	Length    int       `json:"length"`
	SrcIP     string    `json:"src"`
	DstIP     string    `json:"dst"`
	SrcPort   uint16    `json:"src_port,omitempty"`
	DstPort   uint16    `json:"dst_port,omitempty"`
	Flags     []string  `json:"flags,omitempty"`
	Info      string    `json:"info"`
}

// Endpoint renders "ip:port", or just the IP when no port applies (ICMP, ARP).
func Endpoint(ip string, port uint16) string {
	if port == 0 {
		return ip
	}
	return fmt.Sprintf("%s:%d", ip, port)
}

// CaptureStats is the aggregate view over everything captured since the
// last clear: per-protocol counts plus the busiest ports and addresses.
type CaptureStats struct {
	Protocols map[Protocol]uint64 `json:"protocols"`
	TopPorts  map[uint16]uint64   `json:"top_ports"`
	TopIPs    map[string]uint64   `json:"top_ips"`
}

// ThresholdSnapshot mirrors the admission thresholds in the wire shape the
// settings API speaks: flat keys, window sizes in whole seconds.
type ThresholdSnapshot struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	BurstLimit        int `json:"burst_limit"`
	BurstTime         int `json:"burst_time"`
	BlockDuration     int `json:"block_duration"`
}

// BlockInfo describes one active block entry.
type BlockInfo struct {
	BlockedUntil     string `json:"blocked_until"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// TopIP is one row of the most-active-sources ranking.
type TopIP struct {
	IP           string    `json:"ip"`
	RequestCount uint64    `json:"request_count"`
	FirstRequest time.Time `json:"first_request"`
	LastRequest  time.Time `json:"last_request"`
}

// ProtectionStatus is a point-in-time snapshot of the admission controller.
type ProtectionStatus struct {
	ActiveConnections int                  `json:"active_connections"`
	TrackedIPs        int                  `json:"tracked_ips"`
	BlockedIPs        map[string]BlockInfo `json:"blocked_ips"`
	Thresholds        ThresholdSnapshot    `json:"thresholds"`
	TopIPs            []TopIP              `json:"top_ips"`
}

// StreamFrame is the per-packet message pushed over the websocket feed.
type StreamFrame struct {
	Time        time.Time `json:"time"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Protocol    Protocol  `json:"protocol"`
	Length      int       `json:"length"`
	Info        string    `json:"info"`
}

// FrameFor converts a captured event into its websocket representation.
func FrameFor(e *PacketEvent) StreamFrame {
	return StreamFrame{
		Time:        e.Timestamp,
		Source:      Endpoint(e.SrcIP, e.SrcPort),
		Destination: Endpoint(e.DstIP, e.DstPort),
		Protocol:    e.Protocol,
		Length:      e.Length,
		Info:        e.Info,
	}
}
