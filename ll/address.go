package ll

import "fmt"

// AddrType is a Bluetooth device address type.
type AddrType byte

const (
	AddrPublic AddrType = iota
	AddrRandom
)

func (t AddrType) String() string {
	if t == AddrRandom {
		return "random"
	}
	return "public"
}

// Address is a 6-byte Bluetooth device address, stored least-significant
// byte first: Bytes[0] is the byte transmitted first over the air and
// Bytes[5] is the most significant byte, so the PDU encode/decode in pdu.go
// copies the bytes in order.
type Address struct {
	Bytes [6]byte
	Type  AddrType
}

// NewRandomStaticAddress validates that addr has the top two bits of its
// most significant byte set to 0b11, as required for a random-static
// address (spec §3), and returns an Address of type AddrRandom.
func NewRandomStaticAddress(addr [6]byte) (Address, error) {
	if addr[5]&0xC0 != 0xC0 {
		return Address{}, fmt.Errorf("%w: random-static address must have top two bits of MSB set", ErrInvalidParams)
	}
	return Address{Bytes: addr, Type: AddrRandom}, nil
}

// NewPublicAddress wraps addr as a public address with no further validation
// (public addresses are IEEE-assigned and carry no bit-pattern constraint).
func NewPublicAddress(addr [6]byte) Address {
	return Address{Bytes: addr, Type: AddrPublic}
}

// Equal reports whether two addresses are bitwise-equal on all 6 bytes,
// matching spec §4.2's "Address match is bitwise-equal on 6 bytes" (address
// type is not part of that match — only the raw bytes are compared, as is
// the case for the scan-filter address check).
func (a Address) Equal(b Address) bool {
	return a.Bytes == b.Bytes
}

func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X(%s)",
		a.Bytes[5], a.Bytes[4], a.Bytes[3], a.Bytes[2], a.Bytes[1], a.Bytes[0], a.Type)
}
