// Package atomicflag provides the single-producer/single-consumer
// "radio-attention" signal described in spec §5 and §9: the radio ISR sets
// it, the link layer's task-context loop polls it non-blockingly on its
// next iteration, and no other state crosses the ISR/task boundary.
package atomicflag

import "sync/atomic"

// Flag is a sticky, non-blocking boolean signal.
type Flag struct {
	set atomic.Bool
}

// Signal marks the flag as set. Safe to call from an interrupt handler.
func (f *Flag) Signal() {
	f.set.Store(true)
}

// Poll reports and clears whether the flag was set since the last Poll.
func (f *Flag) Poll() bool {
	return f.set.Swap(false)
}
