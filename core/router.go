package core

import (
	"fmt"

	"github.com/encodeous/dvsim/state"
)

// DvRouter is the distance-vector engine module of one node. It
// implements the Router side-effect interface against the fabric the
// node is attached to.
type DvRouter struct {
	*state.State
}

func (r *DvRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	heartbeat := s.LocalCfg.HeartbeatMs
	if heartbeat <= 0 {
		heartbeat = state.DefaultHeartbeatMs
	}
	s.RouterState = &state.RouterState{
		Id: s.LocalCfg.Id,
		Routes: map[state.NodeId]state.RouteEntry{
			s.LocalCfg.Id: {Cost: 0, Nh: s.LocalCfg.Id},
		},
		Neighbours:  make([]*state.Neighbour, 0),
		HeartbeatMs: heartbeat,
	}
	return nil
}

func (r *DvRouter) Cleanup(s *state.State) error {
	r.State = nil
	return nil
}

func (r *DvRouter) Log(event RouterEvent, desc string, args ...any) {
	r.Env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}

func (r *DvRouter) SendVector(neigh state.NodeId, port state.Port, vector map[state.NodeId]state.Metric) {
	r.Fabric.Send(r.Id, port, &state.Packet{
		Kind:    state.PacketRouting,
		Src:     r.Id,
		Dst:     neigh,
		Content: state.EncodeVector(vector),
	})
}

func (r *DvRouter) ForwardData(port state.Port, pkt *state.Packet) {
	r.Fabric.Send(r.Id, port, pkt)
}

// packet handlers

func routerHandleRoutingPacket(s *state.State, pkt *state.Packet) error {
	r := Get[*DvRouter](s)
	vector, err := state.DecodeVector(pkt.Content)
	if err != nil {
		s.Log.Warn("received malformed routing payload", "from", pkt.Src, "err", err)
		return nil
	}
	HandleAdvertisement(s.RouterState, r, pkt.Src, vector)
	return nil
}

func routerHandleDataPacket(s *state.State, pkt *state.Packet) error {
	HandleData(s.RouterState, Get[*DvRouter](s), pkt)
	return nil
}
