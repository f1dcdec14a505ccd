package capture

import (
	"fmt"
	"net"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"netwarden/internal/models"
)

// Classify maps a decoded packet to its event record. Precedence follows
// the transport stack: TCP, then UDP, then ICMP, then ARP; anything else
// is tagged Other. The second return is false when the packet is too
// malformed to report and should be dropped.
func Classify(pkt gopacket.Packet, ts time.Time) (models.PacketEvent, bool) {
	event := models.PacketEvent{
		Timestamp: ts,
		Protocol:  models.ProtocolOther,
		Length:    len(pkt.Data()),
	}

	netLayer := pkt.NetworkLayer()
	if netLayer != nil {
		flow := netLayer.NetworkFlow()
		event.SrcIP = flow.Src().String()
		event.DstIP = flow.Dst().String()

		if tcpLayer := pkt.Layer(layers.LayerTypeTCP); tcpLayer != nil {
			tcp := tcpLayer.(*layers.TCP)
			event.Protocol = models.ProtocolTCP
			event.SrcPort = uint16(tcp.SrcPort)
			event.DstPort = uint16(tcp.DstPort)
			event.Flags = tcpFlags(tcp)
			event.Info = fmt.Sprintf("TCP %d → %d", event.SrcPort, event.DstPort)
		} else if udpLayer := pkt.Layer(layers.LayerTypeUDP); udpLayer != nil {
			udp := udpLayer.(*layers.UDP)
			event.Protocol = models.ProtocolUDP
			event.SrcPort = uint16(udp.SrcPort)
			event.DstPort = uint16(udp.DstPort)
			event.Info = fmt.Sprintf("UDP %d → %d", event.SrcPort, event.DstPort)
		} else if icmpLayer := pkt.Layer(layers.LayerTypeICMPv4); icmpLayer != nil {
			icmp := icmpLayer.(*layers.ICMPv4)
			event.Protocol = models.ProtocolICMP
			event.Info = fmt.Sprintf("ICMP %d", icmp.TypeCode.Type())
		} else if icmpLayer := pkt.Layer(layers.LayerTypeICMPv6); icmpLayer != nil {
			icmp := icmpLayer.(*layers.ICMPv6)
			event.Protocol = models.ProtocolICMP
			event.Info = fmt.Sprintf("ICMP %d", icmp.TypeCode.Type())
		}
		return event, true
	}

	if arpLayer := pkt.Layer(layers.LayerTypeARP); arpLayer != nil {
		arp := arpLayer.(*layers.ARP)
		event.Protocol = models.ProtocolARP
		event.SrcIP = net.IP(arp.SourceProtAddress).String()
		event.DstIP = net.IP(arp.DstProtAddress).String()
		event.Info = fmt.Sprintf("Who has %s? Tell %s", event.DstIP, event.SrcIP)
		return event, true
	}

	// Undecodable with no reportable layer at all: drop it.
	if pkt.ErrorLayer() != nil {
		return models.PacketEvent{}, false
	}

	return event, true
}

// tcpFlags decodes the set bits of a TCP header into flag names.
func tcpFlags(tcp *layers.TCP) []string {
	var flags []string
	if tcp.SYN {
		flags = append(flags, models.FlagSYN)
	}
	if tcp.ACK {
		flags = append(flags, models.FlagACK)
	}
	if tcp.FIN {
		flags = append(flags, models.FlagFIN)
	}
	if tcp.RST {
		flags = append(flags, models.FlagRST)
	}
	if tcp.PSH {
		flags = append(flags, models.FlagPSH)
	}
	if tcp.URG {
		flags = append(flags, models.FlagURG)
	}
	return flags
}
