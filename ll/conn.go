package ll

// State is the Link Layer state machine's current state (spec §3). It is
// monotonic except for Connected -> Idle on disconnect/supervision timeout.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateInitiating
	StateConnection
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	case StateInitiating:
		return "Initiating"
	case StateConnection:
		return "Connection"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// Role is always Master in this single-role implementation (spec §3).
const Role = "master"

// Conn is the single, process-wide connection context of spec §3. Exactly
// one instance lives for the process, owned by LinkLayer; it is reset to
// its zero frame-parameter fields every time the state returns to Idle.
type Conn struct {
	State State

	LocalAddr Address
	PeerAddr  Address

	AccessAddress uint32
	CRCInit       uint32 // 24-bit
	Params        ConnParams
	ChannelMap    ChannelMap
	HopIncrement  HopIncrement
	SCA           byte

	EventCounter     uint16
	AnchorPointUS    uint64
	LastGoodAnchorUS uint64
	WindowWideningUS uint32
	LastUnmapped     int

	Seq SeqNum

	TxBuf     []byte
	TxLLID    byte
	TxPending bool
	RxBuf     []byte

	ConsecutiveCRCErrors int
	TotalCRCErrors       int
	TotalTimeouts        int

	LastRSSIDBm int
}

// reset returns the connection context to its Idle defaults, ready for a
// fresh scan/connect cycle. Address fields are not cleared so the last-known
// peer remains visible to a status query after disconnection.
func (c *Conn) reset() {
	peer, local := c.PeerAddr, c.LocalAddr
	*c = Conn{State: StateIdle, PeerAddr: peer, LocalAddr: local}
}

// hopper builds a Hopper from the connection's current channel-map/hop
// state, continuing from LastUnmapped.
func (c *Conn) hopper() *Hopper {
	return NewHopper(c.ChannelMap, c.HopIncrement, c.LastUnmapped)
}
