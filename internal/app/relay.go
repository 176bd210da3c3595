package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"classroom-signaling/internal/core"
	"classroom-signaling/internal/domain"
)

// member binds a participant record to its transport endpoint.
// Rooms and the connection index point at the same member, so the two
// maps cannot disagree about who is attached.
type member struct {
	p    *domain.Participant
	conn core.SignalConnection
}

type room struct {
	meta    domain.Room
	members map[domain.UserID]*member
}

// Client is a recipient handle returned in emit plans. The adapter sends
// to Conn; UserID is there for logging and directed payloads.
type Client struct {
	UserID domain.UserID
	Conn   core.SignalConnection
}

// Relay is the single owner of all signaling state: the room registry and
// the connection->participant index. Every event handler is one lock-held
// method call, so map mutation is serialized exactly as a single-threaded
// event loop would be. Methods never send; they return recipient handles
// and snapshots for the adapter to fan out.
type Relay struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*room
	conns map[domain.ConnID]*member
}

func NewRelay() *Relay {
	return &Relay{
		rooms: make(map[domain.RoomID]*room),
		conns: make(map[domain.ConnID]*member),
	}
}

type JoinResult struct {
	Self         domain.Participant
	Participants []domain.Participant
	Peers        []Client

	// PriorLeave is set when the connection already owned a participant
	// elsewhere: that participant leaves first, under the normal rules,
	// and the adapter must emit the resulting user-left before the join
	// events.
	PriorLeave *LeaveResult
}

// Join attaches a connection to a room, creating the room lazily. A join
// for a user id already present in the room replaces the old participant
// and drops the stale connection's index entry. A connection owns at most
// one participant: joining while attached somewhere else (a different
// room, or a different user id) is an implicit leave of the old spot
// first, so both maps always agree.
func (r *Relay) Join(conn core.SignalConnection, connID domain.ConnID, roomID domain.RoomID, userID domain.UserID, userName string, isHost bool) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prior *LeaveResult
	if old, ok := r.conns[connID]; ok && (old.p.RoomID != roomID || old.p.UserID != userID) {
		if oldRoom, ok := r.rooms[old.p.RoomID]; ok {
			if lv, left := r.removeLocked(oldRoom, old.p.UserID); left {
				prior = &lv
			}
		} else {
			delete(r.conns, connID)
		}
		log.Info().Str("module", "app.relay").Str("conn", string(connID)).Str("old_room", string(old.p.RoomID)).Str("room", string(roomID)).Msg("implicit leave before join")
	}

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{meta: domain.Room{ID: roomID}, members: make(map[domain.UserID]*member)}
		r.rooms[roomID] = rm
		log.Info().Str("module", "app.relay").Str("room", string(roomID)).Msg("room created")
	}
	if isHost && rm.meta.HostID == "" {
		rm.meta.HostID = userID
	}

	if old, ok := rm.members[userID]; ok {
		delete(r.conns, old.p.ConnectionID)
		log.Info().Str("module", "app.relay").Str("room", string(roomID)).Str("user", string(userID)).Msg("rejoin, replacing stale participant")
	}

	m := &member{p: domain.NewParticipant(connID, roomID, userID, userName, isHost), conn: conn}
	rm.members[userID] = m
	r.conns[connID] = m
	log.Info().Str("module", "app.relay").Str("room", string(roomID)).Str("user", string(userID)).Bool("host", isHost).Msg("participant joined")

	return JoinResult{
		Self:         *m.p,
		Participants: participantsLocked(rm),
		Peers:        clientsLocked(rm, connID),
		PriorLeave:   prior,
	}
}

type LeaveResult struct {
	UserID     domain.UserID
	Remaining  []domain.Participant
	Peers      []Client
	RoomClosed bool
}

// Leave removes a participant from both maps. The room is deleted when it
// becomes empty or when the departing user is the designated host; in the
// host case every remaining participant is purged as well and Remaining is
// empty.
func (r *Relay) Leave(roomID domain.RoomID, userID domain.UserID) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return LeaveResult{}, false
	}
	return r.removeLocked(rm, userID)
}

// Disconnect handles a transport-level close: identical to Leave, with the
// participant resolved through the connection index. A connection that
// never joined a room is a no-op.
func (r *Relay) Disconnect(connID domain.ConnID) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok {
		return LeaveResult{}, false
	}
	rm, ok := r.rooms[m.p.RoomID]
	if !ok {
		// Should not happen: the index and the registry move together.
		delete(r.conns, connID)
		return LeaveResult{}, false
	}
	return r.removeLocked(rm, m.p.UserID)
}

func (r *Relay) removeLocked(rm *room, userID domain.UserID) (LeaveResult, bool) {
	m, ok := rm.members[userID]
	if !ok {
		return LeaveResult{}, false
	}
	delete(rm.members, userID)
	delete(r.conns, m.p.ConnectionID)

	res := LeaveResult{UserID: userID, Peers: clientsLocked(rm, "")}
	if userID == rm.meta.HostID || len(rm.members) == 0 {
		r.closeRoomLocked(rm)
		res.RoomClosed = true
	} else {
		res.Remaining = participantsLocked(rm)
	}
	log.Info().Str("module", "app.relay").Str("room", string(rm.meta.ID)).Str("user", string(userID)).Bool("room_closed", res.RoomClosed).Msg("participant left")
	return res, true
}

// closeRoomLocked purges every remaining participant from the connection
// index and drops the room.
func (r *Relay) closeRoomLocked(rm *room) {
	for _, m := range rm.members {
		delete(r.conns, m.p.ConnectionID)
	}
	delete(r.rooms, rm.meta.ID)
	log.Info().Str("module", "app.relay").Str("room", string(rm.meta.ID)).Msg("room closed")
}

// Sender returns a copy of the participant owned by a connection.
func (r *Relay) Sender(connID domain.ConnID) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.conns[connID]
	if !ok {
		return domain.Participant{}, false
	}
	return *m.p, true
}

// Target resolves a directed send inside a room.
func (r *Relay) Target(roomID domain.RoomID, userID domain.UserID) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return Client{}, false
	}
	m, ok := rm.members[userID]
	if !ok {
		return Client{}, false
	}
	return Client{UserID: userID, Conn: m.conn}, true
}

// Peers returns every connection in the room except the given one, for
// broadcast fan-out. A nonexistent room yields nothing.
func (r *Relay) Peers(roomID domain.RoomID, except domain.ConnID) []Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return clientsLocked(rm, except)
}

// RoomParticipants returns a snapshot of the room's participant list.
func (r *Relay) RoomParticipants(roomID domain.RoomID) ([]domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return participantsLocked(rm), true
}

func participantsLocked(rm *room) []domain.Participant {
	out := make([]domain.Participant, 0, len(rm.members))
	for _, m := range rm.members {
		out = append(out, *m.p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func clientsLocked(rm *room, except domain.ConnID) []Client {
	out := make([]Client, 0, len(rm.members))
	for uid, m := range rm.members {
		if except != "" && m.p.ConnectionID == except {
			continue
		}
		out = append(out, Client{UserID: uid, Conn: m.conn})
	}
	return out
}
