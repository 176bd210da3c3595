package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"classroom-signaling/internal/domain"
)

// handleChat rebroadcasts the message payload verbatim to everyone else in
// the room. Nothing is persisted and no fields beyond roomId are
// interpreted.
func (ctl *Controller) handleChat(connID domain.ConnID, data json.RawMessage) {
	var p chatPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad chat-message payload")
		return
	}

	ctl.broadcast(ctl.relay.Peers(domain.RoomID(p.RoomID), connID), EventChatMessage, data)
}
