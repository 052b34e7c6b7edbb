package room

import "github.com/Fullann/Slither.io/internal/protocol"

// Conn is the room's view of a client connection.
type Conn interface {
	ID() string
	Format() protocol.Format
	// Send queues a frame without blocking. It reports false when the frame
	// was dropped because the client is slow or gone.
	Send(frame []byte) bool
	Close()
}

// Attach registers a connection. It receives tick snapshots as a spectator
// until it joins. UserID is 0 for guests.
type Attach struct {
	Conn     Conn
	UserID   int64
	Username string
}

// Join spawns a snake for an attached connection.
type Join struct {
	ConnID string
	Req    protocol.JoinReq
}

// Steer updates a snake's desired heading.
type Steer struct {
	ConnID string
	Dir    protocol.DirReq
}

// Boost starts or stops a snake's boost intent.
type Boost struct {
	ConnID string
	On     bool
}

// Eat is a client-reported meal, checked against the server's positions.
type Eat struct {
	ConnID string
	FoodID string
}

// Died is a client-reported death.
type Died struct {
	ConnID   string
	KilledBy string
}

// Ping asks for a pong carrying N and the server clock.
type Ping struct {
	ConnID string
	N      int64
}

// Leave is issued on disconnect.
type Leave struct {
	ConnID string
}
