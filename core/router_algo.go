package core

import (
	"maps"
	"slices"

	"github.com/encodeous/dvsim/state"
)

type RouterEvent int

// trace events

const (
	TableRecomputed RouterEvent = iota
	NeighbourAdded
	NeighbourRemoved
	UnreachableDrop
)

// warn events

const (
	StaleNeighbour RouterEvent = iota + 1000
)

func (e RouterEvent) String() string {
	switch e {
	case TableRecomputed:
		return "TABLE_RECOMPUTED"
	case NeighbourAdded:
		return "NEIGHBOUR_ADDED"
	case NeighbourRemoved:
		return "NEIGHBOUR_REMOVED"
	case UnreachableDrop:
		return "UNREACHABLE_DROP"
	case StaleNeighbour:
		return "STALE_NEIGHBOUR"
	}
	return "UNKNOWN"
}

// Router is an interface that defines the side effects the routing
// algorithm can produce
type Router interface {
	SendVector(neigh state.NodeId, port state.Port, vector map[state.NodeId]state.Metric)
	ForwardData(port state.Port, pkt *state.Packet)
	Log(event RouterEvent, desc string, args ...any)
}

// HandleData forwards a data packet out the port of the next hop for
// its destination. Packets for destinations that are absent, at
// Infinity, or whose next hop is no longer a neighbour are silently
// dropped; an unreachable destination is a steady-state condition, not
// an error. Routing state is never mutated.
func HandleData(s *state.RouterState, r Router, pkt *state.Packet) {
	entry, ok := s.Routes[pkt.Dst]
	if !ok || entry.Cost >= state.Infinity {
		r.Log(UnreachableDrop, "no route to destination", "dst", pkt.Dst)
		return
	}
	neigh := s.GetNeighbour(entry.Nh)
	if neigh == nil {
		r.Log(UnreachableDrop, "next hop is not a neighbour", "dst", pkt.Dst, "nh", entry.Nh)
		return
	}
	r.ForwardData(neigh.Port, pkt)
}

// HandleAdvertisement replaces the distance vector previously received
// from a neighbour wholesale and recomputes the table. Advertisements
// from unknown neighbours are discarded: the link may have been torn
// down after the packet was sent but before delivery.
func HandleAdvertisement(s *state.RouterState, r Router, from state.NodeId, vector map[state.NodeId]state.Metric) {
	neigh := s.GetNeighbour(from)
	if neigh == nil {
		r.Log(StaleNeighbour, "advertisement from unknown neighbour", "from", from)
		return
	}
	neigh.Adv = vector
	ComputeRoutes(s, r)
}

// HandleLinkUp attaches a neighbour with an empty advertisement. The
// vector is always broadcast afterwards, even when the table did not
// change: the far end has no advertisement from us yet.
func HandleLinkUp(s *state.RouterState, r Router, port state.Port, neighId state.NodeId, cost state.Metric) {
	if neigh := s.GetNeighbour(neighId); neigh != nil {
		neigh.Port = port
		neigh.Cost = cost
		neigh.Adv = make(map[state.NodeId]state.Metric)
	} else {
		s.Neighbours = append(s.Neighbours, &state.Neighbour{
			Id:   neighId,
			Port: port,
			Cost: cost,
			Adv:  make(map[state.NodeId]state.Metric),
		})
	}
	r.Log(NeighbourAdded, "link up", "neigh", neighId, "port", port, "cost", cost)
	if !ComputeRoutes(s, r) {
		Broadcast(s, r)
	}
}

// HandleLinkDown detaches the neighbour bound to the given port, if
// any. Every route through the dead neighbour is withdrawn before
// recomputing, so a stale next hop can never be used even transiently.
func HandleLinkDown(s *state.RouterState, r Router, port state.Port) {
	neigh := s.NeighbourByPort(port)
	if neigh == nil {
		return
	}
	s.Neighbours = slices.DeleteFunc(s.Neighbours, func(n *state.Neighbour) bool {
		return n == neigh
	})
	for dst, entry := range s.Routes {
		if entry.Nh == neigh.Id {
			s.Routes[dst] = state.RouteEntry{Cost: state.Infinity}
		}
	}
	r.Log(NeighbourRemoved, "link down", "neigh", neigh.Id, "port", port)
	ComputeRoutes(s, r)
}

// ComputeRoutes rebuilds the routing table from the current neighbour
// set and their advertisements: one distributed Bellman-Ford step. The
// table is always derived from scratch so stale partial state cannot
// survive a recomputation. If the table changed in any way it is
// broadcast; returns whether that happened.
func ComputeRoutes(s *state.RouterState, r Router) bool {
	dests := make(map[state.NodeId]struct{})
	for _, neigh := range s.Neighbours {
		dests[neigh.Id] = struct{}{}
		for dst := range neigh.Adv {
			dests[dst] = struct{}{}
		}
	}

	newTable := make(map[state.NodeId]state.RouteEntry, len(dests)+1)
	newTable[s.Id] = state.RouteEntry{Cost: 0, Nh: s.Id}

	for dst := range dests {
		if dst == s.Id {
			continue
		}
		best := state.Infinity
		var nh state.NodeId
		for _, v := range s.Neighbours {
			adv := state.Infinity
			if dst == v.Id {
				// a neighbour reaches itself at no cost, whether or
				// not it has advertised anything yet
				adv = 0
			} else if m, ok := v.Adv[dst]; ok {
				adv = m
			}
			est := state.AddMetric(v.Cost, adv)
			if est < best {
				best = est
				nh = v.Id
			}
		}
		// destinations at Infinity are omitted rather than stored
		if best < state.Infinity {
			newTable[dst] = state.RouteEntry{Cost: best, Nh: nh}
		}
	}

	changed := !maps.Equal(newTable, s.Routes)
	s.Routes = newTable
	if changed {
		r.Log(TableRecomputed, "table changed", "routes", len(newTable))
		Broadcast(s, r)
	}
	return changed
}

// Broadcast sends the current vector to every neighbour, each with its
// own poisoned view: a route is never advertised back to the neighbour
// it is reached through.
func Broadcast(s *state.RouterState, r Router) {
	for _, v := range s.Neighbours {
		vector := make(map[state.NodeId]state.Metric, len(s.Routes))
		for dst, entry := range s.Routes {
			if dst != v.Id && entry.Nh == v.Id {
				vector[dst] = state.Infinity
			} else {
				vector[dst] = entry.Cost
			}
		}
		r.SendVector(v.Id, v.Port, vector)
	}
}

// HandleTick issues the periodic heartbeat broadcast. The heartbeat is
// unconditional: it refreshes peers that missed earlier updates, so
// convergence does not depend on reliable delivery.
func HandleTick(s *state.RouterState, r Router, nowMs int64) {
	if nowMs-s.LastBroadcastMs >= s.HeartbeatMs {
		s.LastBroadcastMs = nowMs
		Broadcast(s, r)
	}
}
