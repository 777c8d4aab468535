package core

import "sync"

// EventContext carries the payload of a fired event. Only the fields that
// make sense for the code are populated.
type EventContext struct {
	// Asset identifier the event refers to, if any.
	AssetID string
	// Path of the file that changed on disk, if any.
	Path string
	// BytesLoaded reported by the reload that triggered the event.
	BytesLoaded uint64
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// An asset file changed on disk. The watcher fires this before any
	// reload has happened.
	/* Context usage:
	 * asset_id = data.AssetID
	 * path     = data.Path
	 */
	EVENT_CODE_ASSET_CHANGED SystemEventCode = 0x01

	// An asset finished (re)loading and holders will observe a newer
	// last-loaded time.
	/* Context usage:
	 * asset_id     = data.AssetID
	 * bytes_loaded = data.BytesLoaded
	 */
	EVENT_CODE_ASSET_RELOADED SystemEventCode = 0x02

	// A pipeline pass became invalid and will be skipped until its
	// dependencies change.
	/* Context usage:
	 * asset_id = data.AssetID (the material anchoring the pass)
	 */
	EVENT_CODE_PIPELINE_INVALIDATED SystemEventCode = 0x03

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 4096

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventCodeEntry struct {
	events []*registeredEvent
}

// State structure.
type eventSystemState struct {
	mu sync.Mutex
	// Lookup table for event codes.
	registered [MAX_MESSAGE_CODES]eventCodeEntry
}

/**
 * Event system internal state.
 */
var onceEvent sync.Once
var isInitialized bool = false
var eventState *eventSystemState = nil

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener_inst interface{}, data EventContext) bool

func EventInitialize() bool {
	if isInitialized {
		return false
	}
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
	isInitialized = true
	return true
}

func EventShutdown() error {
	if !isInitialized {
		return nil
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	// Free the events arrays. Any objects pointed to should be destroyed on
	// their own.
	for i := 0; i < MAX_MESSAGE_CODES; i++ {
		if len(eventState.registered[i].events) != 0 {
			eventState.registered[i].events = nil
		}
	}
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listener/callback combos will not be registered again and will cause this to return FALSE.
 * @param code The event code to listen for.
 * @param listener A pointer to a listener instance. Can be 0/NULL.
 * @param on_event The callback function pointer to be invoked when the event code is fired.
 * @returns TRUE if the event is successfully registered; otherwise false.
 */
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if !isInitialized {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	for _, e := range eventState.registered[code].events {
		if e.listener == listener {
			return false
		}
	}
	// If at this point, no duplicate was found. Proceed with registration.
	event := &registeredEvent{
		listener: listener,
		callback: onEvent,
	}
	eventState.registered[code].events = append(eventState.registered[code].events, event)
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns FALSE.
 * @param code The event code to stop listening for.
 * @param listener A pointer to a listener instance. Can be 0/NULL.
 * @param on_event The callback function pointer to be unregistered.
 * @returns TRUE if the event is successfully unregistered; otherwise false.
 */
func EventUnregister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if !isInitialized {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	events := eventState.registered[code].events
	if len(events) == 0 {
		return false
	}
	for i, e := range events {
		if e.listener == listener && e.callback != nil {
			// Found one, remove it
			eventState.registered[code].events = append(events[:i], events[i+1:]...)
			return true
		}
	}
	// Not found.
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * TRUE, the event is considered handled and is not passed on to any more listeners.
 * @param code The event code to fire.
 * @param sender A pointer to the sender. Can be 0/NULL.
 * @param data The event data.
 * @returns TRUE if handled, otherwise FALSE.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if !isInitialized {
		return false
	}
	eventState.mu.Lock()
	events := make([]*registeredEvent, len(eventState.registered[code].events))
	copy(events, eventState.registered[code].events)
	eventState.mu.Unlock()
	// If nothing is registered for the code, boot out.
	if len(events) == 0 {
		return false
	}
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	// Not found.
	return false
}
