package att

import "github.com/tve/blehost/l2cap"

// writeFragmentSpacingUS is the mandatory inter-fragment gap of spec §4.3's
// "Text sending": 20ms between successive WriteReq fragments.
const writeFragmentSpacingUS = 20_000

// TextSender drives a multi-fragment WriteReq sequence one fragment per
// tick, never blocking: Start stages the fragments, Process advances the
// state machine against the supplied clock reading. This is the same
// deadline-field pattern used throughout this module in place of a sleep
// (spec §9's Design Note on the concurrency model).
type TextSender struct {
	client *Client
	handle uint16

	fragments         [][]byte
	next              int
	lastSentUS        uint64
	active            bool
	awaitingResponse  bool
	firstFragmentSent bool
}

// NewTextSender returns a sender bound to client.
func NewTextSender(client *Client) *TextSender {
	return &TextSender{client: client}
}

// Active reports whether a send sequence is in progress.
func (s *TextSender) Active() bool { return s.active }

// Start fragments text at the client's current MTU-3 and begins sending to
// handle. Returns ErrBusy if a sequence (or an unrelated ATT transaction)
// is already in progress.
func (s *TextSender) Start(handle uint16, text []byte) error {
	if s.active {
		return ErrBusy
	}
	if s.client.Busy() {
		return ErrBusy
	}
	s.handle = handle
	s.fragments = l2cap.Fragment(text, s.client.MTU()-3)
	s.next = 0
	s.active = true
	s.awaitingResponse = false
	s.firstFragmentSent = false
	return nil
}

// Process advances the send sequence by at most one fragment. done is true
// once the whole text has been written (successfully or with err set).
func (s *TextSender) Process(nowUS uint64) (done bool, err error) {
	if !s.active {
		return true, nil
	}

	if s.awaitingResponse {
		if resp, ok := s.client.TakeResponse(); ok {
			if pe, isErr := IsErrorResponse(resp); isErr {
				s.active = false
				return true, pe
			}
			s.next++
			s.awaitingResponse = false
			if s.next >= len(s.fragments) {
				s.active = false
				return true, nil
			}
			return false, nil
		}
		if s.client.Process(nowUS) {
			s.active = false
			return true, ErrTimeout
		}
		return false, nil
	}

	if s.firstFragmentSent && nowUS-s.lastSentUS < writeFragmentSpacingUS {
		return false, nil
	}
	if err := s.client.WriteReq(s.handle, s.fragments[s.next]); err != nil {
		s.active = false
		return true, err
	}
	s.firstFragmentSent = true
	s.lastSentUS = nowUS
	s.awaitingResponse = true
	return false, nil
}
