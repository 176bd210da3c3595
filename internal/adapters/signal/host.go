package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"classroom-signaling/internal/domain"
)

const kickReason = "removed by host"

// Host-authorized commands. Authorization happens inside the relay state;
// a denied command produces no state change and no reply, only a log line.

func (ctl *Controller) handleKick(data json.RawMessage) {
	var p kickPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad kick-participant payload")
		return
	}

	res, ok := ctl.relay.Kick(domain.RoomID(p.RoomID), domain.UserID(p.ParticipantID), domain.UserID(p.HostID))
	if !ok {
		return
	}
	if res.TargetOK {
		ctl.sendEvent(res.Target.Conn, EventParticipantKicked, participantKickedPayload{
			ParticipantID: p.ParticipantID,
			Reason:        kickReason,
		})
	}
	ctl.broadcast(res.Others, EventParticipantKicked, participantKickedPayload{
		ParticipantID: p.ParticipantID,
	})
}

func (ctl *Controller) handleForceMute(data json.RawMessage) {
	var p forceMutePayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad force-mute payload")
		return
	}

	res, ok := ctl.relay.ForceMute(domain.RoomID(p.RoomID), domain.UserID(p.ParticipantID), p.Mute, domain.UserID(p.HostID))
	if !ok {
		return
	}
	payload := forceMutedPayload{ParticipantID: p.ParticipantID, Mute: p.Mute}
	if res.TargetOK {
		ctl.sendEvent(res.Target.Conn, EventForceMuted, payload)
	}
	ctl.broadcast(res.Others, EventForceMuted, payload)
}

func (ctl *Controller) handleUpdatePermissions(data json.RawMessage) {
	var p updatePermissionsPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad permission update payload")
		return
	}

	res, ok := ctl.relay.UpdatePermissions(domain.RoomID(p.RoomID), domain.UserID(p.ParticipantID), p.Permissions, domain.UserID(p.HostID))
	if !ok {
		return
	}
	payload := permissionsUpdatedPayload{ParticipantID: p.ParticipantID, Permissions: res.Permissions}
	if res.TargetOK {
		ctl.sendEvent(res.Target.Conn, EventPermissionsUpdated, payload)
	}
	ctl.broadcast(res.Others, EventPermissionsUpdated, payload)
}
