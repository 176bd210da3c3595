package domain

import (
	"time"
	"unicode/utf8"
)

const MaxUserNameLen = 64

// Permissions is what the host can grant or revoke for a participant.
type Permissions struct {
	CanSpeak       bool `json:"canSpeak"`
	CanShareScreen bool `json:"canShareScreen"`
	IsForceMuted   bool `json:"isForceMuted"`
}

// DefaultPermissions is what every participant gets on join.
func DefaultPermissions() Permissions {
	return Permissions{CanSpeak: true}
}

// PermissionPatch is a partial permission update; nil fields are left
// unchanged on merge.
type PermissionPatch struct {
	CanSpeak       *bool `json:"canSpeak,omitempty"`
	CanShareScreen *bool `json:"canShareScreen,omitempty"`
	IsForceMuted   *bool `json:"isForceMuted,omitempty"`
}

func (p *Permissions) Merge(patch PermissionPatch) {
	if patch.CanSpeak != nil {
		p.CanSpeak = *patch.CanSpeak
	}
	if patch.CanShareScreen != nil {
		p.CanShareScreen = *patch.CanShareScreen
	}
	if patch.IsForceMuted != nil {
		p.IsForceMuted = *patch.IsForceMuted
	}
}

// Participant is one user's membership in one room. It exists only while
// the owning connection is attached; the relay never persists it.
type Participant struct {
	UserID       UserID      `json:"userId"`
	UserName     string      `json:"userName"`
	RoomID       RoomID      `json:"roomId"`
	IsHost       bool        `json:"isHost"`
	ConnectionID ConnID      `json:"connectionId"`
	JoinedAt     time.Time   `json:"joinedAt"`
	Permissions  Permissions `json:"permissions"`
}

func NewParticipant(connID ConnID, roomID RoomID, userID UserID, userName string, isHost bool) *Participant {
	if len(userName) > MaxUserNameLen {
		// Back off to a rune boundary so the cut never leaves invalid UTF-8.
		cut := MaxUserNameLen
		for cut > 0 && !utf8.RuneStart(userName[cut]) {
			cut--
		}
		userName = userName[:cut]
	}
	return &Participant{
		UserID:       userID,
		UserName:     userName,
		RoomID:       roomID,
		IsHost:       isHost,
		ConnectionID: connID,
		JoinedAt:     time.Now(),
		Permissions:  DefaultPermissions(),
	}
}
