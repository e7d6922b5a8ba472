package ll

// SeqNum implements BLE's stop-and-wait reliability (spec §4.2/§8) as two
// independent single-bit finite states, never as a free-running integer
// (spec §9's Design Note).
type SeqNum struct {
	txSN    bool // sequence number of our next/last transmission
	rxNESN  bool // next expected sequence number from the peer
}

// TxSN returns the sequence number to stamp on the next outbound PDU.
func (s *SeqNum) TxSN() bool { return s.txSN }

// RxNESN returns the NESN to stamp on the next outbound PDU (our
// acknowledgement of the peer's last accepted transmission).
func (s *SeqNum) RxNESN() bool { return s.rxNESN }

// OnReceive processes the (sn, nesn) fields of a received data PDU against
// our state.
//
// accepted reports whether the PDU's payload is new and should be delivered
// upward (peerSN matches our rxNESN; rxNESN is toggled). acked reports
// whether the peer has acknowledged our last transmission (peerNESN differs
// from our txSN; txSN is toggled and the caller should clear tx_pending).
func (s *SeqNum) OnReceive(peerSN, peerNESN bool) (accepted, acked bool) {
	if peerSN == s.rxNESN {
		accepted = true
		s.rxNESN = !s.rxNESN
	}
	if peerNESN != s.txSN {
		acked = true
		s.txSN = !s.txSN
	}
	return accepted, acked
}

// Reset returns both sequence numbers to their connection-establishment
// value of false/false, per spec §3 (event_counter = 0 at the first anchor
// implies sn/nesn also start at 0).
func (s *SeqNum) Reset() {
	s.txSN = false
	s.rxNESN = false
}
