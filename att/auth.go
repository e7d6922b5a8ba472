package att

// AuthHandler answers an authentication challenge. The wire format is
// intentionally left to the caller: spec §9 warns against inferring
// cryptographic intent from the placeholder byte sequences in the source
// this module was built from, so this hook is an inert byte exchange, not
// a cipher.
type AuthHandler func(challenge []byte) (response []byte, err error)

// SetAuthHandler installs h as the authentication responder. With no
// handler installed, Authenticate always fails with ErrAuthUnavailable,
// matching spec §4.3's "authentication placeholder" being a non-fatal stub.
func (c *Client) SetAuthHandler(h AuthHandler) { c.authHandler = h }

// Authenticate runs the installed AuthHandler against challenge, or
// returns ErrAuthUnavailable if none is installed.
func (c *Client) Authenticate(challenge []byte) ([]byte, error) {
	if c.authHandler == nil {
		return nil, ErrAuthUnavailable
	}
	return c.authHandler(challenge)
}
