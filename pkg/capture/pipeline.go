package capture

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopacket/gopacket"

	"netwarden/internal/models"
	"netwarden/pkg/config"
)

const topStatsLimit = 10

// Pipeline ingests raw packets from a source, classifies them, and keeps
// a bounded rolling history plus aggregate counters. Two workers run
// while capturing: a reader feeding the bounded queue and an analyzer
// draining it. One mutex guards history and counters.
type Pipeline struct {
	source PacketSource
	queue  chan gopacket.Packet

	mu        sync.Mutex
	history   *History
	protocols map[models.Protocol]uint64
	ports     map[uint16]uint64
	ips       map[string]uint64

	pollTimeout time.Duration
	now         func() time.Time

	started atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a capture pipeline reading from source. Call StartCapture
// to begin ingesting.
func New(cfg *config.Config, source PacketSource) *Pipeline {
	return &Pipeline{
		source:      source,
		queue:       make(chan gopacket.Packet, cfg.Capture.QueueSize),
		history:     NewHistory(cfg.Capture.HistorySize),
		protocols:   zeroProtocols(),
		ports:       make(map[uint16]uint64),
		ips:         make(map[string]uint64),
		pollTimeout: cfg.Capture.PollTimeout,
		now:         time.Now,
	}
}

func zeroProtocols() map[models.Protocol]uint64 {
	m := make(map[models.Protocol]uint64, len(models.Protocols))
	for _, p := range models.Protocols {
		m[p] = 0
	}
	return m
}

// StartCapture launches the reader and analyzer workers. Calling it while
// already capturing is a no-op.
func (p *Pipeline) StartCapture() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.running.Store(true)

	p.wg.Add(2)
	go p.readLoop()
	go p.analyzeLoop()

	log.Println("Packet capture started")
}

// StopCapture clears the running flag and waits for both workers to exit.
// After it returns no further state mutation occurs. Calling it when
// already stopped is a no-op.
func (p *Pipeline) StopCapture() {
	if !p.started.CompareAndSwap(true, false) {
		return
	}
	p.running.Store(false)
	p.source.Close() // unblocks a pending NextPacket
	p.wg.Wait()

	log.Println("Packet capture stopped")
}

// Running reports whether the pipeline is currently capturing.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// readLoop pulls packets from the source onto the queue. A source error
// ends the capture run rather than crashing: the flag is cleared and the
// analyzer winds down on its next poll.
func (p *Pipeline) readLoop() {
	defer p.wg.Done()

	for p.running.Load() {
		pkt, err := p.source.NextPacket()
		if err != nil {
			if p.running.Load() {
				log.Printf("Packet capture error: %v", err)
				p.running.Store(false)
			}
			return
		}

		select {
		case p.queue <- pkt:
		default:
			// Queue full, drop the packet.
		}
	}
}

// analyzeLoop drains the queue and applies each packet to shared state.
// The poll ticker bounds how long an empty queue can delay shutdown.
func (p *Pipeline) analyzeLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollTimeout)
	defer ticker.Stop()

	for {
		select {
		case pkt := <-p.queue:
			p.handlePacket(pkt)
		case <-ticker.C:
			if p.running.Load() {
				continue
			}
			// Stopping: consume whatever is left, then exit.
			for {
				select {
				case pkt := <-p.queue:
					p.handlePacket(pkt)
				default:
					return
				}
			}
		}
	}
}

// handlePacket classifies one packet and folds it into history and
// counters. Malformed packets are dropped without affecting others.
func (p *Pipeline) handlePacket(pkt gopacket.Packet) {
	event, ok := Classify(pkt, p.now())
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.history.Push(event)
	p.protocols[event.Protocol]++

	if event.SrcPort != 0 {
		p.ports[event.SrcPort]++
	}
	if event.DstPort != 0 {
		p.ports[event.DstPort]++
	}
	if event.SrcIP != "" {
		p.ips[event.SrcIP]++
	}
	if event.DstIP != "" {
		p.ips[event.DstIP]++
	}
}

// GetRecentPackets returns the most recent limit events in chronological
// order.
func (p *Pipeline) GetRecentPackets(limit int) []models.PacketEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.Snapshot(limit)
}

// GetStatistics returns protocol counts plus the busiest ports and
// addresses by frequency.
func (p *Pipeline) GetStatistics() models.CaptureStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	protocols := make(map[models.Protocol]uint64, len(p.protocols))
	for proto, count := range p.protocols {
		protocols[proto] = count
	}

	return models.CaptureStats{
		Protocols: protocols,
		TopPorts:  topPorts(p.ports, topStatsLimit),
		TopIPs:    topIPs(p.ips, topStatsLimit),
	}
}

// Clear atomically empties history and resets all counters. Protocol
// counter keys stay present at zero.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history.Clear()
	p.protocols = zeroProtocols()
	p.ports = make(map[uint16]uint64)
	p.ips = make(map[string]uint64)
}

// topPorts selects the limit highest port counters, ties broken by port
// number for determinism.
func topPorts(counts map[uint16]uint64, limit int) map[uint16]uint64 {
	type entry struct {
		port  uint16
		count uint64
	}
	entries := make([]entry, 0, len(counts))
	for port, count := range counts {
		entries = append(entries, entry{port, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].port < entries[j].port
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	top := make(map[uint16]uint64, len(entries))
	for _, e := range entries {
		top[e.port] = e.count
	}
	return top
}

// topIPs selects the limit highest address counters, ties broken by
// address value.
func topIPs(counts map[string]uint64, limit int) map[string]uint64 {
	type entry struct {
		ip    string
		count uint64
	}
	entries := make([]entry, 0, len(counts))
	for ip, count := range counts {
		entries = append(entries, entry{ip, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].ip < entries[j].ip
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	top := make(map[string]uint64, len(entries))
	for _, e := range entries {
		top[e.ip] = e.count
	}
	return top
}
