package fabric

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// DeliveryHandler observes data packets consumed at their destination.
type DeliveryHandler func(node state.NodeId, pkt *state.Packet)

type end struct {
	node state.NodeId
	port state.Port
}

// Link is one bidirectional link between two nodes. Loss and latency
// are applied per traversal, independently in each direction.
type Link struct {
	a, b    end
	cost    state.Metric
	latency time.Duration
	jitter  time.Duration
	loss    float64
}

func (l *Link) WithLatency(lat, jitter time.Duration) *Link {
	l.latency = lat
	l.jitter = jitter
	return l
}

func (l *Link) WithLoss(loss float64) *Link {
	l.loss = loss
	return l
}

type node struct {
	engine   *core.Engine
	nextPort state.Port
}

// Network is the in-memory packet-switched fabric: it owns the node
// engines, delivers packets between them, drives link lifecycle events
// and the heartbeat clock. Delivery is fire-and-forget and, with loss
// or latency configured, neither reliable nor ordered.
type Network struct {
	mu    sync.Mutex
	level slog.Level

	nodes map[state.NodeId]*node
	links []*Link

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	start   time.Time
	tickMs  int64
	changes []state.ChangeCfg
	timers  []*time.Timer

	// Delivered, if set before Start, observes data packets that
	// reached their destination.
	Delivered DeliveryHandler
}

func NewNetwork(level slog.Level, tickMs int64) *Network {
	ctx, cancel := context.WithCancel(context.Background())
	if tickMs <= 0 {
		tickMs = state.DefaultTickMs
	}
	return &Network{
		level:  level,
		nodes:  make(map[state.NodeId]*node),
		ctx:    ctx,
		cancel: cancel,
		tickMs: tickMs,
	}
}

// AddNode spawns a node engine attached to this fabric.
func (n *Network) AddNode(ncfg state.LocalCfg) (*core.Engine, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.nodes[ncfg.Id]; ok {
		return nil, fmt.Errorf("node %s already exists", ncfg.Id)
	}
	engine, err := core.Start(ncfg, n, n.level)
	if err != nil {
		return nil, err
	}
	n.nodes[ncfg.Id] = &node{engine: engine}
	return engine, nil
}

// Node returns the engine handle for a node, or nil.
func (n *Network) Node(id state.NodeId) *core.Engine {
	n.mu.Lock()
	defer n.mu.Unlock()
	nd := n.nodes[id]
	if nd == nil {
		return nil
	}
	return nd.engine
}

func (n *Network) findLink(a, b state.NodeId) *Link {
	idx := slices.IndexFunc(n.links, func(l *Link) bool {
		return (l.a.node == a && l.b.node == b) || (l.a.node == b && l.b.node == a)
	})
	if idx == -1 {
		return nil
	}
	return n.links[idx]
}

// AddLink connects two nodes and fires link-up at both engines. Adding
// a link that already exists overwrites its cost and re-fires link-up,
// matching the engine's insert-or-overwrite semantics.
func (n *Network) AddLink(a, b state.NodeId, cost state.Metric) (*Link, error) {
	n.mu.Lock()
	if a == b {
		n.mu.Unlock()
		return nil, fmt.Errorf("link endpoints must differ: %s", a)
	}
	na, nb := n.nodes[a], n.nodes[b]
	if na == nil || nb == nil {
		n.mu.Unlock()
		return nil, fmt.Errorf("link %s, %s references an unknown node", a, b)
	}
	link := n.findLink(a, b)
	if link == nil {
		link = &Link{
			a: end{a, na.nextPort},
			b: end{b, nb.nextPort},
		}
		na.nextPort++
		nb.nextPort++
		n.links = append(n.links, link)
	}
	link.cost = cost
	ea, pa := na.engine, link.a.port
	eb, pb := nb.engine, link.b.port
	if link.a.node != a {
		pa, pb = pb, pa
	}
	n.mu.Unlock()

	ea.OnLinkUp(pa, b, cost)
	eb.OnLinkUp(pb, a, cost)
	return link, nil
}

// RemoveLink tears down the link between two nodes and fires link-down
// at both engines.
func (n *Network) RemoveLink(a, b state.NodeId) error {
	n.mu.Lock()
	link := n.findLink(a, b)
	if link == nil {
		n.mu.Unlock()
		return fmt.Errorf("no link between %s and %s", a, b)
	}
	n.links = slices.DeleteFunc(n.links, func(l *Link) bool {
		return l == link
	})
	ea := n.nodes[link.a.node].engine
	eb := n.nodes[link.b.node].engine
	n.mu.Unlock()

	ea.OnLinkDown(link.a.port)
	eb.OnLinkDown(link.b.port)
	return nil
}

// Send implements state.Fabric: deliver a packet handed off by a node
// toward the far end of one of its ports.
func (n *Network) Send(from state.NodeId, port state.Port, pkt *state.Packet) {
	n.mu.Lock()
	var to end
	var found bool
	var latency, jitter time.Duration
	var loss float64
	for _, l := range n.links {
		if l.a.node == from && l.a.port == port {
			to, found = l.b, true
		} else if l.b.node == from && l.b.port == port {
			to, found = l.a, true
		}
		if found {
			latency, jitter, loss = l.latency, l.jitter, l.loss
			break
		}
	}
	n.mu.Unlock()
	if !found {
		// the link was torn down after the handler picked it
		perf.DroppedPacketPerSecond.Add(1)
		return
	}
	perf.SentPacketPerSecond.Add(1)
	if loss > 0 && rand.Float64() < loss {
		perf.DroppedPacketPerSecond.Add(1)
		return
	}
	if latency > 0 {
		simLat := latency + time.Duration(rand.Float64()*float64(jitter.Nanoseconds()))
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			select {
			case <-n.ctx.Done():
			case <-time.After(simLat):
				n.deliver(to, pkt)
			}
		}()
	} else {
		n.deliver(to, pkt)
	}
}

func (n *Network) deliver(to end, pkt *state.Packet) {
	n.mu.Lock()
	nd := n.nodes[to.node]
	n.mu.Unlock()
	if nd == nil {
		return
	}
	if pkt.IsData() {
		if pkt.Dst == to.node {
			perf.DeliveredPacketPerSecond.Add(1)
			if n.Delivered != nil {
				n.Delivered(to.node, pkt)
			}
			return
		}
		nd.engine.OnDataPacket(to.port, pkt)
		return
	}
	nd.engine.OnRoutingPacket(to.port, pkt)
}

// SendData injects a data packet at its source node, as a host attached
// to that node would.
func (n *Network) SendData(src, dst state.NodeId, content []byte) {
	n.mu.Lock()
	nd := n.nodes[src]
	n.mu.Unlock()
	if nd == nil {
		return
	}
	nd.engine.OnDataPacket(0, &state.Packet{
		Kind:    state.PacketData,
		Src:     src,
		Dst:     dst,
		Content: content,
	})
}

// Start begins the heartbeat clock and arms any scheduled topology
// changes.
func (n *Network) Start() {
	n.start = time.Now()
	for _, change := range n.changes {
		c := change
		n.timers = append(n.timers, time.AfterFunc(time.Duration(c.AtMs)*time.Millisecond, func() {
			n.applyChange(c)
		}))
	}
	n.wg.Add(1)
	go n.tickLoop()
}

func (n *Network) tickLoop() {
	defer n.wg.Done()
	ticker := time.NewTicker(time.Duration(n.tickMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			now := time.Since(n.start).Milliseconds()
			n.mu.Lock()
			engines := make([]*core.Engine, 0, len(n.nodes))
			for _, nd := range n.nodes {
				engines = append(engines, nd.engine)
			}
			n.mu.Unlock()
			for _, e := range engines {
				e.OnTimerTick(now)
			}
		}
	}
}

func (n *Network) applyChange(c state.ChangeCfg) {
	if n.ctx.Err() != nil {
		return
	}
	var err error
	switch c.Op {
	case state.ChangeLinkUp:
		_, err = n.AddLink(c.A, c.B, c.Cost)
	case state.ChangeLinkDown:
		err = n.RemoveLink(c.A, c.B)
	}
	if err != nil {
		slog.Warn("failed to apply topology change", "op", c.Op, "a", c.A, "b", c.B, "err", err)
	}
}

// Stop tears the whole network down and waits for every node goroutine
// to exit.
func (n *Network) Stop() {
	n.cancel()
	for _, t := range n.timers {
		t.Stop()
	}
	n.mu.Lock()
	engines := make([]*core.Engine, 0, len(n.nodes))
	for _, nd := range n.nodes {
		engines = append(engines, nd.engine)
	}
	n.mu.Unlock()
	for _, e := range engines {
		e.Stop()
	}
	for _, e := range engines {
		e.Wait()
	}
	n.wg.Wait()
}
