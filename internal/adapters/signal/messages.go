package signal

import (
	"encoding/json"

	"classroom-signaling/internal/domain"
)

// Event names multiplexed over the socket. The names and the field names
// inside data are the wire contract; existing clients depend on them.
const (
	// client -> relay
	EventJoinRoom           = "join-room"
	EventLeaveRoom          = "leave-room"
	EventSignal             = "signal"
	EventChatMessage        = "chat-message"
	EventMediaChanged       = "media-changed"
	EventEndRoom            = "end-room"
	EventScreenShareStarted = "screen-share-started"
	EventScreenShareStopped = "screen-share-stopped"
	EventKickParticipant    = "kick-participant"
	EventForceMute          = "force-mute-participant"
	EventUpdatePermissions  = "update-participant-permissions"

	// relay -> client
	EventRoomParticipants       = "room-participants"
	EventUserJoined             = "user-joined"
	EventUserLeft               = "user-left"
	EventReceiveSignal          = "receive-signal"
	EventUserMediaChanged       = "user-media-changed"
	EventRoomEnded              = "room-ended"
	EventUserScreenShareStarted = "user-screen-share-started"
	EventUserScreenShareStopped = "user-screen-share-stopped"
	EventParticipantKicked      = "participant-kicked"
	EventForceMuted             = "force-muted"
	EventPermissionsUpdated     = "permissions-updated"
)

// Message is the envelope: one JSON object per websocket text message.
// The signal payload carries its own "type" field (offer/answer/candidate),
// so the event name lives in a separate field.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// --- inbound payloads ---

type joinRoomPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName"`
	IsHost   bool   `json:"isHost"`
}

type leaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type signalPayload struct {
	RoomID       string          `json:"roomId" validate:"required"`
	TargetUserID string          `json:"targetUserId" validate:"required"`
	Signal       json.RawMessage `json:"signal" validate:"required"`
	Type         string          `json:"type"`
}

type chatPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type mediaChangedPayload struct {
	RoomID       string `json:"roomId" validate:"required"`
	UserID       string `json:"userId" validate:"required"`
	IsAudioMuted bool   `json:"isAudioMuted"`
	IsVideoOff   bool   `json:"isVideoOff"`
}

type endRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type screenSharePayload struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type kickPayload struct {
	RoomID        string `json:"roomId" validate:"required"`
	ParticipantID string `json:"participantId" validate:"required"`
	HostID        string `json:"hostId" validate:"required"`
}

type forceMutePayload struct {
	RoomID        string `json:"roomId" validate:"required"`
	ParticipantID string `json:"participantId" validate:"required"`
	Mute          bool   `json:"mute"`
	HostID        string `json:"hostId" validate:"required"`
}

type updatePermissionsPayload struct {
	RoomID        string                 `json:"roomId" validate:"required"`
	ParticipantID string                 `json:"participantId" validate:"required"`
	Permissions   domain.PermissionPatch `json:"permissions"`
	HostID        string                 `json:"hostId" validate:"required"`
}

// --- outbound payloads ---

type roomParticipantsPayload struct {
	RoomID       string               `json:"roomId"`
	Participants []domain.Participant `json:"participants"`
}

type userJoinedPayload struct {
	Participant  domain.Participant   `json:"participant"`
	Participants []domain.Participant `json:"participants"`
}

type userLeftPayload struct {
	UserID       string               `json:"userId"`
	Participants []domain.Participant `json:"participants"`
}

type receiveSignalPayload struct {
	FromUserID string          `json:"fromUserId"`
	Signal     json.RawMessage `json:"signal"`
	Type       string          `json:"type"`
}

type userMediaChangedPayload struct {
	UserID       string `json:"userId"`
	IsAudioMuted bool   `json:"isAudioMuted"`
	IsVideoOff   bool   `json:"isVideoOff"`
}

type roomEndedPayload struct {
	RoomID string `json:"roomId"`
}

type screenShareEventPayload struct {
	UserID string `json:"userId"`
}

type participantKickedPayload struct {
	ParticipantID string `json:"participantId"`
	Reason        string `json:"reason,omitempty"`
}

type forceMutedPayload struct {
	ParticipantID string `json:"participantId"`
	Mute          bool   `json:"mute"`
}

type permissionsUpdatedPayload struct {
	ParticipantID string             `json:"participantId"`
	Permissions   domain.Permissions `json:"permissions"`
}
