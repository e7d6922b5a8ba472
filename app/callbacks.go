package app

import "github.com/tve/blehost/ll"

// Handler receives upcalls from the FSM. Implementations must return
// quickly: they may be invoked from either the caller's Process goroutine
// or the Link Layer's own tick goroutine (see the package doc in fsm.go),
// and the FSM holds its mutex across the call.
type Handler interface {
	// OnStateChange reports every FSM transition.
	OnStateChange(from, to State)
	// OnConnected reports a live connection to peer, on entering Connected;
	// peer classification is requested afterwards, while Connected.
	OnConnected(peer ll.Address)
	// OnDisconnected reports the connection has ended.
	OnDisconnected(reason ll.DisconnectReason)
	// OnSendComplete reports the outcome of the most recent Send, nil on
	// success.
	OnSendComplete(err error)
	// OnError reports any error that drove the FSM into the Error state.
	OnError(err error)
}

// NopHandler implements Handler with no-op methods, for callers that only
// care about polling State().
type NopHandler struct{}

func (NopHandler) OnStateChange(from, to State)               {}
func (NopHandler) OnConnected(peer ll.Address)                {}
func (NopHandler) OnDisconnected(reason ll.DisconnectReason) {}
func (NopHandler) OnSendComplete(err error)                   {}
func (NopHandler) OnError(err error)                          {}
