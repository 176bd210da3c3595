// Package domain contains entity without logic, just meta-data
package domain

type (
	RoomID string
	UserID string
	// ConnID is the transport-assigned identity of one client socket.
	ConnID string
)

// Room groups currently-connected participants. The id is opaque and
// supplied by the caller; rooms are created lazily on first join.
type Room struct {
	ID     RoomID `json:"id"`
	HostID UserID `json:"hostId,omitempty"`
}
