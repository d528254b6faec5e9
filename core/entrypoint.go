package core

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"os"
	"path"
	"reflect"
	"runtime"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Engine is the externally visible handle of one running node: the
// event entry points invoked by the fabric and the timer driver. Every
// entry point dispatches onto the node's main loop, so handlers always
// run one at a time and the routing state needs no locking.
type Engine struct {
	env  *state.Env
	done chan struct{}
}

// Start initializes a node, spawns its main loop, and returns the
// engine handle. The node runs until Stop is called or a dispatched
// handler fails.
func Start(ncfg state.LocalCfg, fabric state.Fabric, logLevel slog.Level) (*Engine, error) {
	ctx, cancel := context.WithCancelCause(context.Background())

	dispatch := make(chan func(env *state.State) error, state.DispatchQueueSize)

	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: string(ncfg.Id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if ncfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(ncfg.LogPath), 0700)
		if err != nil {
			cancel(err)
			return nil, err
		}
		f, err := os.OpenFile(ncfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			cancel(err)
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	logger := slog.New(slogmulti.Fanout(handlers...))

	s := &state.State{
		Modules: make(map[string]state.Module),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			LocalCfg:        ncfg,
			Fabric:          fabric,
			Log:             logger,
		},
	}

	err := initModules(s)
	if err != nil {
		return nil, err
	}

	engine := &Engine{env: s.Env, done: make(chan struct{})}
	go func() {
		defer close(engine.done)
		MainLoop(s, dispatch)
	}()
	return engine, nil
}

func initModules(s *state.State) error {
	var modules []state.Module
	modules = append(modules, &DvRouter{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatchThreshold {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Debug("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	if s.DispatchChannel != nil {
		close(s.DispatchChannel)
		s.DispatchChannel = nil
	}
	s.Log.Debug("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Debug("stopped")
}

func (e *Engine) Id() state.NodeId {
	return e.env.LocalCfg.Id
}

func (e *Engine) OnDataPacket(port state.Port, pkt *state.Packet) {
	e.env.Dispatch(func(s *state.State) error {
		return routerHandleDataPacket(s, pkt)
	})
}

func (e *Engine) OnRoutingPacket(port state.Port, pkt *state.Packet) {
	e.env.Dispatch(func(s *state.State) error {
		return routerHandleRoutingPacket(s, pkt)
	})
}

func (e *Engine) OnLinkUp(port state.Port, neigh state.NodeId, cost state.Metric) {
	e.env.Dispatch(func(s *state.State) error {
		HandleLinkUp(s.RouterState, Get[*DvRouter](s), port, neigh, cost)
		return nil
	})
}

func (e *Engine) OnLinkDown(port state.Port) {
	e.env.Dispatch(func(s *state.State) error {
		HandleLinkDown(s.RouterState, Get[*DvRouter](s), port)
		return nil
	})
}

func (e *Engine) OnTimerTick(nowMs int64) {
	e.env.Dispatch(func(s *state.State) error {
		HandleTick(s.RouterState, Get[*DvRouter](s), nowMs)
		return nil
	})
}

// Routes returns a snapshot of the node's routing table, taken on the
// node's own goroutine.
func (e *Engine) Routes() map[state.NodeId]state.RouteEntry {
	res, err := e.env.DispatchWait(func(s *state.State) (any, error) {
		return maps.Clone(s.RouterState.Routes), nil
	})
	if err != nil {
		return nil
	}
	return res.(map[state.NodeId]state.RouteEntry)
}

func (e *Engine) Stop() {
	e.env.Cancel(errors.New("node stopped"))
}

// Wait blocks until the node's main loop has exited.
func (e *Engine) Wait() {
	<-e.done
}
