package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makeTestEnv() (*State, chan func(*State) error, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	dispatchChan := make(chan func(*State) error, 10)
	env := &Env{
		DispatchChannel: dispatchChan,
		Context:         ctx,
		Cancel: func(err error) {
			cancel()
		},
	}
	return &State{Env: env}, dispatchChan, cancel
}

func TestDispatch(t *testing.T) {
	state, dispatchChan, cancel := makeTestEnv()
	defer cancel()

	var called bool

	go func() {
		select {
		case f := <-dispatchChan:
			if err := f(state); err != nil {
				t.Errorf("Dispatch error: %v", err)
			}
		case <-time.After(100 * time.Millisecond):
			t.Error("Timed out waiting for dispatched function")
		}
	}()

	state.Dispatch(func(s *State) error {
		called = true
		return nil
	})

	time.Sleep(150 * time.Millisecond)

	if !called {
		t.Fatal("Dispatch function was not executed")
	}
}

func TestDispatchWait(t *testing.T) {
	state, dispatchChan, cancel := makeTestEnv()
	defer cancel()

	go func() {
		for f := range dispatchChan {
			_ = f(state)
		}
	}()

	res, err := state.DispatchWait(func(s *State) (any, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, res)

	sentinel := errors.New("boom")
	_, err = state.DispatchWait(func(s *State) (any, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestDispatchWaitCancelled(t *testing.T) {
	state, _, cancel := makeTestEnv()

	// nothing consumes the channel, but a cancelled context must still
	// unblock the caller
	cancel()
	_, err := state.DispatchWait(func(s *State) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
