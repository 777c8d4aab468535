package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	calls []EventContext
}

func (r *eventRecorder) consume(handled bool) FnOnEvent {
	return func(code SystemEventCode, sender, listenerInst interface{}, data EventContext) bool {
		r.calls = append(r.calls, data)
		return handled
	}
}

func TestEventRegisterAndFire(t *testing.T) {
	EventInitialize()
	code := SystemEventCode(0x101)

	recorder := &eventRecorder{}
	callback := recorder.consume(false)
	require.True(t, EventRegister(code, recorder, callback))
	defer EventUnregister(code, recorder, callback)

	handled := EventFire(code, nil, EventContext{AssetID: "mat_rock", BytesLoaded: 42})
	assert.False(t, handled)
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, "mat_rock", recorder.calls[0].AssetID)
	assert.Equal(t, uint64(42), recorder.calls[0].BytesLoaded)
}

func TestEventFireWithoutListeners(t *testing.T) {
	EventInitialize()
	assert.False(t, EventFire(SystemEventCode(0x102), nil, EventContext{}))
}

func TestEventDuplicateListenerRejected(t *testing.T) {
	EventInitialize()
	code := SystemEventCode(0x103)

	recorder := &eventRecorder{}
	callback := recorder.consume(false)
	require.True(t, EventRegister(code, recorder, callback))
	defer EventUnregister(code, recorder, callback)

	assert.False(t, EventRegister(code, recorder, callback))

	// The same listener may watch a different code.
	other := SystemEventCode(0x104)
	require.True(t, EventRegister(other, recorder, callback))
	EventUnregister(other, recorder, callback)
}

func TestEventUnregisterStopsDelivery(t *testing.T) {
	EventInitialize()
	code := SystemEventCode(0x105)

	recorder := &eventRecorder{}
	callback := recorder.consume(false)
	require.True(t, EventRegister(code, recorder, callback))
	require.True(t, EventUnregister(code, recorder, callback))

	assert.False(t, EventFire(code, nil, EventContext{}))
	assert.Empty(t, recorder.calls)

	// Nothing left to unregister.
	assert.False(t, EventUnregister(code, recorder, callback))
}

func TestEventHandledStopsPropagation(t *testing.T) {
	EventInitialize()
	code := SystemEventCode(0x106)

	first := &eventRecorder{}
	second := &eventRecorder{}
	firstCallback := first.consume(true)
	secondCallback := second.consume(false)
	require.True(t, EventRegister(code, first, firstCallback))
	require.True(t, EventRegister(code, second, secondCallback))
	defer EventUnregister(code, first, firstCallback)
	defer EventUnregister(code, second, secondCallback)

	assert.True(t, EventFire(code, nil, EventContext{AssetID: "ps_once"}))
	assert.Len(t, first.calls, 1)
	assert.Empty(t, second.calls)
}

func TestEventShutdownClearsRegistrations(t *testing.T) {
	EventInitialize()
	code := SystemEventCode(0x107)

	recorder := &eventRecorder{}
	callback := recorder.consume(false)
	require.True(t, EventRegister(code, recorder, callback))

	require.NoError(t, EventShutdown())
	assert.False(t, EventFire(code, nil, EventContext{}))
	assert.Empty(t, recorder.calls)

	// The system stays usable after a shutdown.
	require.True(t, EventRegister(code, recorder, callback))
	assert.False(t, EventFire(code, nil, EventContext{AssetID: "again"}))
	assert.Len(t, recorder.calls, 1)
	EventUnregister(code, recorder, callback)
}
