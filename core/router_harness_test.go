package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records the side effects the algorithm produces so
// tests can assert on them.
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) SendVector(neigh state.NodeId, port state.Port, vector map[state.NodeId]state.Metric) {
	h.actions = append(h.actions, MakeEvent("SEND_VECTOR", neigh, vector))
}

func (h *RouterHarness) ForwardData(port state.Port, pkt *state.Packet) {
	h.actions = append(h.actions, MakeEvent("FORWARD_DATA", port, pkt.Dst))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}

	h.actions = make([]HarnessEvent, 0)
	return x
}

// LastVectorTo returns the most recently recorded vector sent to a
// neighbour, or nil.
func (h HarnessEvents) LastVectorTo(neigh state.NodeId) map[state.NodeId]state.Metric {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Message == "SEND_VECTOR" && h[i].Args[0] == neigh {
			return h[i].Args[1].(map[state.NodeId]state.Metric)
		}
	}
	return nil
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func NewRouterState(id state.NodeId) *state.RouterState {
	return &state.RouterState{
		Id: id,
		Routes: map[state.NodeId]state.RouteEntry{
			id: {Cost: 0, Nh: id},
		},
		Neighbours:  make([]*state.Neighbour, 0),
		HeartbeatMs: state.DefaultHeartbeatMs,
	}
}

func dataPacket(src, dst state.NodeId) *state.Packet {
	return &state.Packet{
		Kind: state.PacketData,
		Src:  src,
		Dst:  dst,
	}
}
