package ll

// handleControlPDU dispatches an LLID=Control payload received during a
// connection event (spec §4.2). Unrecognized opcodes draw an UNKNOWN_RSP,
// matching the behavior required by the Bluetooth core spec this module
// targets a useful subset of.
func (ll *LinkLayer) handleControlPDU(payload []byte) {
	if len(payload) == 0 {
		return
	}
	opcode := payload[0]
	data := payload[1:]

	switch opcode {
	case OpcodeTerminateInd:
		reason := ReasonRemoteTerminated
		if len(data) >= 1 {
			reason = DisconnectReason(data[0])
		}
		ll.teardown(reason)

	case OpcodeFeatureReq:
		ll.queueControlTx(BuildFeatureRsp())

	case OpcodeFeatureRsp:
		// No extended features are claimed on either side; nothing to act on.

	case OpcodeVersionInd:
		ll.versionReceived = true

	default:
		ll.queueControlTx(BuildUnknownRsp(opcode))
	}
}

// queueControlTx stages a control PDU as the next outbound payload,
// displacing any pending data PDU (control traffic has priority, per
// spec §4.2).
func (ll *LinkLayer) queueControlTx(payload []byte) {
	ll.conn.TxBuf = payload
	ll.conn.TxLLID = LLIDControl
	ll.conn.TxPending = true
}

// Disconnect sends TERMINATE_IND and tears the connection down locally.
// Per spec §4.2 the local side does not wait for an acknowledgement.
func (ll *LinkLayer) disconnect(reason DisconnectReason) error {
	if ll.conn.State != StateConnected && ll.conn.State != StateConnection {
		return ErrNotConnected
	}
	ll.queueControlTx(BuildTerminateInd(reason))
	ll.conn.State = StateDisconnecting
	return nil
}

// teardown moves the connection back to Idle and notifies the handler.
func (ll *LinkLayer) teardown(reason DisconnectReason) error {
	ll.eventArmed = false
	ll.versionReceived = false
	wasConnected := ll.conn.State == StateConnected || ll.conn.State == StateConnection || ll.conn.State == StateDisconnecting
	ll.conn.reset()
	if wasConnected && ll.handler != nil {
		ll.handler.OnDisconnected(reason)
	}
	return nil
}
