package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"classroom-signaling/internal/app"
	"classroom-signaling/internal/domain"
)

func (ctl *Controller) handleJoin(connID domain.ConnID, conn *wsSignalConn, data json.RawMessage) {
	var p joinRoomPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join-room payload")
		return
	}

	res := ctl.relay.Join(conn, connID, domain.RoomID(p.RoomID), domain.UserID(p.UserID), p.UserName, p.IsHost)

	if res.PriorLeave != nil {
		ctl.emitUserLeft(*res.PriorLeave)
	}
	ctl.sendEvent(conn, EventRoomParticipants, roomParticipantsPayload{
		RoomID:       p.RoomID,
		Participants: res.Participants,
	})
	ctl.broadcast(res.Peers, EventUserJoined, userJoinedPayload{
		Participant:  res.Self,
		Participants: res.Participants,
	})
}

func (ctl *Controller) handleLeave(data json.RawMessage) {
	var p leaveRoomPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad leave-room payload")
		return
	}

	res, ok := ctl.relay.Leave(domain.RoomID(p.RoomID), domain.UserID(p.UserID))
	if !ok {
		return
	}
	ctl.emitUserLeft(res)
}

// handleDisconnect is the implicit leave on transport close. A connection
// that never joined a room has no index entry and nothing happens.
func (ctl *Controller) handleDisconnect(connID domain.ConnID) {
	res, ok := ctl.relay.Disconnect(connID)
	if !ok {
		return
	}
	ctl.emitUserLeft(res)
}

func (ctl *Controller) handleEndRoom(connID domain.ConnID, data json.RawMessage) {
	var p endRoomPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad end-room payload")
		return
	}

	peers, ok := ctl.relay.EndRoom(connID, domain.RoomID(p.RoomID))
	if !ok {
		return
	}
	ctl.broadcast(peers, EventRoomEnded, roomEndedPayload{RoomID: p.RoomID})
}

func (ctl *Controller) emitUserLeft(res app.LeaveResult) {
	parts := res.Remaining
	if parts == nil {
		// Room torn down: the stragglers get an empty list, never null.
		parts = []domain.Participant{}
	}
	ctl.broadcast(res.Peers, EventUserLeft, userLeftPayload{
		UserID:       string(res.UserID),
		Participants: parts,
	})
}
