package app

import (
	"github.com/rs/zerolog/log"

	"classroom-signaling/internal/domain"
)

// hostOKLocked is the uniform authorization check: the claimed host user id
// must currently sit in this room's participant map with the host flag set.
// The flag a client sends alongside a command is never trusted on its own.
func hostOKLocked(rm *room, hostID domain.UserID) bool {
	h, ok := rm.members[hostID]
	return ok && h.p.IsHost
}

// EndRoom tears the room down on behalf of its host. The sending
// connection's own participant record must carry the host flag; otherwise
// nothing changes and ok is false.
func (r *Relay) EndRoom(connID domain.ConnID, roomID domain.RoomID) ([]Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.conns[connID]
	if !ok || m.p.RoomID != roomID || !m.p.IsHost {
		log.Warn().Str("module", "app.relay").Str("room", string(roomID)).Msg("end-room denied")
		return nil, false
	}
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	peers := clientsLocked(rm, connID)
	r.closeRoomLocked(rm)
	log.Info().Str("module", "app.relay").Str("room", string(roomID)).Str("host", string(m.p.UserID)).Msg("room ended by host")
	return peers, true
}

type KickResult struct {
	Target     Client
	TargetOK   bool
	Others     []Client
	RoomClosed bool
}

// Kick removes a participant on behalf of the host. The target gets a
// directed event, the rest of the room a broadcast copy, and the removal
// follows the same teardown rules as a leave.
func (r *Relay) Kick(roomID domain.RoomID, targetID, hostID domain.UserID) (KickResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok || !hostOKLocked(rm, hostID) {
		log.Warn().Str("module", "app.relay").Str("room", string(roomID)).Str("claimed_host", string(hostID)).Msg("kick denied")
		return KickResult{}, false
	}

	res := KickResult{Others: clientsExceptUserLocked(rm, targetID)}
	if t, ok := rm.members[targetID]; ok {
		res.Target = Client{UserID: targetID, Conn: t.conn}
		res.TargetOK = true
		if lv, ok := r.removeLocked(rm, targetID); ok {
			res.RoomClosed = lv.RoomClosed
		}
		log.Info().Str("module", "app.relay").Str("room", string(roomID)).Str("target", string(targetID)).Str("host", string(hostID)).Msg("participant kicked")
	}
	return res, true
}

type PermissionEvent struct {
	Target      Client
	TargetOK    bool
	Others      []Client
	Permissions domain.Permissions
}

// ForceMute flips the target's force-mute flag on behalf of the host.
func (r *Relay) ForceMute(roomID domain.RoomID, targetID domain.UserID, mute bool, hostID domain.UserID) (PermissionEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok || !hostOKLocked(rm, hostID) {
		log.Warn().Str("module", "app.relay").Str("room", string(roomID)).Str("claimed_host", string(hostID)).Msg("force-mute denied")
		return PermissionEvent{}, false
	}

	res := PermissionEvent{Others: clientsExceptUserLocked(rm, targetID)}
	if t, ok := rm.members[targetID]; ok {
		t.p.Permissions.IsForceMuted = mute
		res.Target = Client{UserID: targetID, Conn: t.conn}
		res.TargetOK = true
		res.Permissions = t.p.Permissions
		log.Info().Str("module", "app.relay").Str("room", string(roomID)).Str("target", string(targetID)).Bool("mute", mute).Msg("force-mute applied")
	}
	return res, true
}

// UpdatePermissions merges a partial permission set into the target's
// permissions on behalf of the host; absent fields are untouched.
func (r *Relay) UpdatePermissions(roomID domain.RoomID, targetID domain.UserID, patch domain.PermissionPatch, hostID domain.UserID) (PermissionEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok || !hostOKLocked(rm, hostID) {
		log.Warn().Str("module", "app.relay").Str("room", string(roomID)).Str("claimed_host", string(hostID)).Msg("permission update denied")
		return PermissionEvent{}, false
	}

	res := PermissionEvent{Others: clientsExceptUserLocked(rm, targetID)}
	if t, ok := rm.members[targetID]; ok {
		t.p.Permissions.Merge(patch)
		res.Target = Client{UserID: targetID, Conn: t.conn}
		res.TargetOK = true
		res.Permissions = t.p.Permissions
		log.Info().Str("module", "app.relay").Str("room", string(roomID)).Str("target", string(targetID)).Msg("permissions updated")
	}
	return res, true
}

// clientsExceptUserLocked is broadcast fan-out relative to the target of a
// directed host event: everyone in the room but the named user.
func clientsExceptUserLocked(rm *room, except domain.UserID) []Client {
	out := make([]Client, 0, len(rm.members))
	for uid, m := range rm.members {
		if uid == except {
			continue
		}
		out = append(out, Client{UserID: uid, Conn: m.conn})
	}
	return out
}
