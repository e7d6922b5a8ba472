package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tve/blehost/ll"
	"github.com/tve/blehost/radio"
)

// fakeRadio is a no-op radio.Radio: every register write succeeds and no
// packet is ever sent or received. It exists to drive the FSM's own
// timeout/retry bookkeeping deterministically, without any real RF timing
// (see Process's doc comment in fsm.go on its single time-domain design).
type fakeRadio struct{}

func (fakeRadio) SetFreqHz(hz uint32) error                                      { return nil }
func (fakeRadio) SetBitrate(rate radio.Bitrate, mod radio.ModulationIndex) error { return nil }
func (fakeRadio) SetSyncWord32(aa uint32) error                                  { return nil }
func (fakeRadio) SetWhiteningSeed(seed byte) error                               { return nil }
func (fakeRadio) SetCRCInit(init uint32) error                                   { return nil }
func (fakeRadio) SetMode(mode radio.Mode, rxTimeout time.Duration) error         { return nil }
func (fakeRadio) SubmitTX(pdu []byte) error                                      { return nil }
func (fakeRadio) PollIRQ() radio.IRQFlags                                        { return radio.IRQFlags{} }
func (fakeRadio) ReadRX(buf []byte) (int, int, error)                            { return 0, 0, ll.ErrTimeout }
func (fakeRadio) Reset() error                                                   { return nil }

// recordingHandler implements Handler and just remembers what it was told.
type recordingHandler struct {
	transitions []string
	errs        []error
}

func (h *recordingHandler) OnStateChange(from, to State) {
	h.transitions = append(h.transitions, from.String()+"->"+to.String())
}
func (h *recordingHandler) OnConnected(peer ll.Address)               {}
func (h *recordingHandler) OnDisconnected(reason ll.DisconnectReason) {}
func (h *recordingHandler) OnSendComplete(err error)                  {}
func (h *recordingHandler) OnError(err error)                         { h.errs = append(h.errs, err) }

func newTestFSM(t *testing.T) (*FSM, *recordingHandler) {
	t.Helper()
	local := ll.NewPublicAddress([6]byte{1, 2, 3, 4, 5, 6})
	cfg := DefaultConfig()
	cfg.Scan.TimeoutMS = 100
	cfg.Connect.TimeoutMS = 100
	cfg.Connect.Retries = 2
	h := &recordingHandler{}
	f := New(fakeRadio{}, local, cfg)
	f.SetHandler(h)
	return f, h
}

func TestInitSettlesToIdle(t *testing.T) {
	f, _ := newTestFSM(t)
	f.Process(0)
	require.Equal(t, StateIdle, f.State())
}

func TestScanTimeoutReturnsToIdle(t *testing.T) {
	f, _ := newTestFSM(t)
	peer := ll.NewPublicAddress([6]byte{9, 9, 9, 9, 9, 9})

	f.Process(0)
	require.NoError(t, f.Connect(peer))
	f.Process(0)
	require.Equal(t, StateScanning, f.State())

	f.Process(50 * time.Millisecond)
	require.Equal(t, StateScanning, f.State(), "scan timeout has not elapsed yet")

	f.Process(150 * time.Millisecond)
	require.Equal(t, StateIdle, f.State(), "scan timeout should return to Idle")
}

func TestConnectingTimeoutRetriesViaScanning(t *testing.T) {
	f, _ := newTestFSM(t)
	peer := ll.NewPublicAddress([6]byte{9, 9, 9, 9, 9, 9})

	now := time.Duration(0)
	f.Process(now)
	require.NoError(t, f.Connect(peer))
	f.Process(now)
	require.Equal(t, StateScanning, f.State())

	// Simulate a matching advertisement arriving from the Link Layer's own
	// goroutine: OnScanMatch only flags the match, Process drains it.
	f.OnScanMatch(peer, -50, nil)
	f.Process(now)
	require.Equal(t, StateConnecting, f.State())

	// Let the connect timeout elapse without OnConnected firing.
	// cancelConnectAttempt() calls into the Link Layer, which is still in
	// StateScanning (no CONNECT_IND was ever actually sent by this fake
	// radio), so StopScan succeeds and the next tick sees Idle and re-arms
	// a fresh scan rather than erroring out immediately.
	now += 150 * time.Millisecond
	f.Process(now)
	require.Equal(t, ll.StateIdle, f.LinkLayer().State())
	f.Process(now)
	require.Equal(t, StateScanning, f.State(), "a retry re-arms the scan instead of failing outright")

	f.mu.Lock()
	retries := f.retryCount
	f.mu.Unlock()
	require.Equal(t, 1, retries)
}

func TestConnectingRetriesExhaustedGoesToError(t *testing.T) {
	f, h := newTestFSM(t)
	peer := ll.NewPublicAddress([6]byte{9, 9, 9, 9, 9, 9})

	now := time.Duration(0)
	f.Process(now)
	require.NoError(t, f.Connect(peer))
	f.Process(now)
	f.OnScanMatch(peer, -50, nil)
	f.Process(now)
	require.Equal(t, StateConnecting, f.State())

	// Fast-forward to just short of exhausting the configured retry budget,
	// then let one more timeout push it over: this pokes the private
	// retryCount field directly rather than re-driving every intervening
	// scan/match cycle, since that churn is already covered above.
	f.mu.Lock()
	f.retryCount = f.cfg.Connect.Retries
	f.mu.Unlock()

	now += 150 * time.Millisecond
	f.Process(now)
	require.Equal(t, StateError, f.State(), "retries exhausted should land in Error")
	require.NotEmpty(t, h.errs)
}

func TestErrorStateSelfClearsAfterBackoff(t *testing.T) {
	f, _ := newTestFSM(t)
	f.Process(0)
	f.mu.Lock()
	f.lastErr = errors.New("injected test error")
	f.transition(StateError, 0)
	f.mu.Unlock()

	f.Process(1 * time.Second)
	require.Equal(t, StateError, f.State(), "backoff has not elapsed yet")

	f.Process(4 * time.Second)
	require.Equal(t, StateIdle, f.State(), "backoff elapsed should return to Idle")
}

func TestSendRejectedWhenNotConnected(t *testing.T) {
	f, _ := newTestFSM(t)
	f.Process(0)
	err := f.Send([]byte("hello"), false)
	require.ErrorIs(t, err, ll.ErrBusy)
}

func TestDisconnectNoopWhenIdle(t *testing.T) {
	f, _ := newTestFSM(t)
	f.Process(0)
	require.Equal(t, StateIdle, f.State())
	require.Error(t, f.Disconnect())
}

func TestScanAcceptsAnyAdvertiser(t *testing.T) {
	f, _ := newTestFSM(t)
	f.Process(0)
	require.NoError(t, f.Scan())
	f.Process(0)
	require.Equal(t, StateScanning, f.State())

	unexpected := ll.NewPublicAddress([6]byte{1, 1, 1, 1, 1, 1})
	f.OnScanMatch(unexpected, -60, nil)
	f.Process(0)
	require.Equal(t, StateConnecting, f.State(), "an unfiltered scan matches any advertiser")
}

func TestConnectRejectedWhenNotIdle(t *testing.T) {
	f, _ := newTestFSM(t)
	peer := ll.NewPublicAddress([6]byte{9, 9, 9, 9, 9, 9})
	f.Process(0)
	require.NoError(t, f.Connect(peer))
	f.Process(0)
	require.Equal(t, StateScanning, f.State())
	require.ErrorIs(t, f.Connect(peer), ll.ErrBusy)
}
