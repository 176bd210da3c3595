package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"classroom-signaling/internal/app"
	"classroom-signaling/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:         "test",
		ReadLimit:    32768,
		PingPeriod:   time.Minute,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   64,
	}
	ctl := NewController(app.NewRelay(), cfg)

	r := gin.New()
	r.GET("/api/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(context.Background(), c)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()
	if err := c.conn.WriteJSON(outMessage{Event: event, Data: data}); err != nil {
		c.t.Fatalf("send %s: %v", event, err)
	}
}

// expect reads the next event and fails unless it matches. Events on one
// connection arrive in order, so tests assert exact sequences.
func (c *wsClient) expect(event string) json.RawMessage {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("waiting for %s: %v", event, err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.t.Fatalf("bad envelope while waiting for %s: %v", event, err)
	}
	if msg.Event != event {
		c.t.Fatalf("want event %s, got %s (%s)", event, msg.Event, msg.Data)
	}
	return msg.Data
}

// expectNone asserts silence. The read deadline poisons the connection, so
// this must be the last read a test performs on it.
func (c *wsClient) expectNone() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, raw, err := c.conn.ReadMessage(); err == nil {
		c.t.Fatalf("expected no event, got %s", raw)
	}
}

func (c *wsClient) join(roomID, userID, name string, host bool) roomParticipantsPayload {
	c.t.Helper()
	c.send(EventJoinRoom, joinRoomPayload{RoomID: roomID, UserID: userID, UserName: name, IsHost: host})
	var p roomParticipantsPayload
	mustUnmarshal(c.t, c.expect(EventRoomParticipants), &p)
	return p
}

func mustUnmarshal(t *testing.T, data json.RawMessage, dst any) {
	t.Helper()
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
}

func TestJoinFlow(t *testing.T) {
	srv := newTestServer(t)
	host := dial(t, srv)

	state := host.join("R1", "H", "Host", true)
	if state.RoomID != "R1" || len(state.Participants) != 1 {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	if p := state.Participants[0]; p.UserID != "H" || !p.IsHost || !p.Permissions.CanSpeak {
		t.Fatalf("unexpected host participant: %+v", p)
	}

	p1 := dial(t, srv)
	state = p1.join("R1", "P1", "Pat", false)
	if len(state.Participants) != 2 {
		t.Fatalf("joiner must see both participants, got %d", len(state.Participants))
	}

	var joined userJoinedPayload
	mustUnmarshal(t, host.expect(EventUserJoined), &joined)
	if joined.Participant.UserID != "P1" || len(joined.Participants) != 2 {
		t.Fatalf("unexpected user-joined: %+v", joined)
	}
}

func TestSignalIsDeliveredToTargetOnly(t *testing.T) {
	srv := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	a.join("R1", "A", "Ann", true)
	b.join("R1", "B", "Bob", false)
	a.expect(EventUserJoined)

	offer := json.RawMessage(`{"sdp":"v=0 fake","kind":"offer"}`)
	a.send(EventSignal, signalPayload{RoomID: "R1", TargetUserID: "B", Signal: offer, Type: "offer"})

	var got receiveSignalPayload
	mustUnmarshal(t, b.expect(EventReceiveSignal), &got)
	if got.FromUserID != "A" || got.Type != "offer" {
		t.Fatalf("unexpected receive-signal: %+v", got)
	}
	if !reflect.DeepEqual(jsonValue(t, got.Signal), jsonValue(t, offer)) {
		t.Fatalf("signal payload not opaque-forwarded: %s", got.Signal)
	}

	// Signals to departed users vanish without error.
	a.send(EventSignal, signalPayload{RoomID: "R1", TargetUserID: "gone", Signal: offer, Type: "offer"})
	a.expectNone()
}

func TestSignalOutsideSenderRoomIsDropped(t *testing.T) {
	srv := newTestServer(t)
	a := dial(t, srv)
	c := dial(t, srv)
	a.join("R1", "A", "Ann", true)
	c.join("R2", "C", "Cleo", true)

	// A sits in R1 and may not route into R2.
	a.send(EventSignal, signalPayload{RoomID: "R2", TargetUserID: "C", Signal: json.RawMessage(`{"sdp":"x"}`), Type: "offer"})
	c.expectNone()
}

func TestJoinAnotherRoomLeavesTheFirst(t *testing.T) {
	srv := newTestServer(t)
	h := dial(t, srv)
	p1 := dial(t, srv)
	h.join("R1", "H", "Host", true)
	p1.join("R1", "P1", "Pat", false)
	h.expect(EventUserJoined)

	// P1's connection moves to R2; R1 sees a normal departure first.
	p1.join("R2", "P1", "Pat", false)

	var left userLeftPayload
	mustUnmarshal(t, h.expect(EventUserLeft), &left)
	if left.UserID != "P1" || len(left.Participants) != 1 {
		t.Fatalf("unexpected user-left in old room: %+v", left)
	}
}

func TestChatBroadcastIsVerbatim(t *testing.T) {
	srv := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	a.join("R1", "A", "Ann", true)
	b.join("R1", "B", "Bob", false)
	a.expect(EventUserJoined)

	msg := json.RawMessage(`{"roomId":"R1","text":"hi there","senderName":"Ann","ts":12345}`)
	a.send(EventChatMessage, msg)

	got := b.expect(EventChatMessage)
	if !reflect.DeepEqual(jsonValue(t, got), jsonValue(t, msg)) {
		t.Fatalf("chat not verbatim: got %s want %s", got, msg)
	}
	// The sender gets no echo.
	a.expectNone()
}

func TestMediaAndScreenShareBroadcasts(t *testing.T) {
	srv := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	a.join("R1", "A", "Ann", true)
	b.join("R1", "B", "Bob", false)
	a.expect(EventUserJoined)

	b.send(EventMediaChanged, mediaChangedPayload{RoomID: "R1", UserID: "B", IsAudioMuted: true})
	var media userMediaChangedPayload
	mustUnmarshal(t, a.expect(EventUserMediaChanged), &media)
	if media.UserID != "B" || !media.IsAudioMuted || media.IsVideoOff {
		t.Fatalf("unexpected user-media-changed: %+v", media)
	}

	b.send(EventScreenShareStarted, screenSharePayload{RoomID: "R1", UserID: "B"})
	var share screenShareEventPayload
	mustUnmarshal(t, a.expect(EventUserScreenShareStarted), &share)
	if share.UserID != "B" {
		t.Fatalf("unexpected screen-share event: %+v", share)
	}

	b.send(EventScreenShareStopped, screenSharePayload{RoomID: "R1", UserID: "B"})
	a.expect(EventUserScreenShareStopped)
	b.expectNone()
}

func TestKickFlow(t *testing.T) {
	srv := newTestServer(t)
	h := dial(t, srv)
	p1 := dial(t, srv)
	p2 := dial(t, srv)
	h.join("R1", "H", "Host", true)
	p1.join("R1", "P1", "Pat", false)
	p2.join("R1", "P2", "Quinn", false)
	h.expect(EventUserJoined)
	h.expect(EventUserJoined)
	p1.expect(EventUserJoined)

	h.send(EventKickParticipant, kickPayload{RoomID: "R1", ParticipantID: "P1", HostID: "H"})

	var direct participantKickedPayload
	mustUnmarshal(t, p1.expect(EventParticipantKicked), &direct)
	if direct.ParticipantID != "P1" || direct.Reason == "" {
		t.Fatalf("directed kick must carry a reason: %+v", direct)
	}

	var bcast participantKickedPayload
	mustUnmarshal(t, p2.expect(EventParticipantKicked), &bcast)
	if bcast.ParticipantID != "P1" || bcast.Reason != "" {
		t.Fatalf("broadcast kick must not carry a reason: %+v", bcast)
	}
	// The issuing host observes its own broadcast copy.
	mustUnmarshal(t, h.expect(EventParticipantKicked), &bcast)
	if bcast.ParticipantID != "P1" {
		t.Fatalf("host broadcast copy wrong: %+v", bcast)
	}
}

func TestEndRoom(t *testing.T) {
	srv := newTestServer(t)
	h := dial(t, srv)
	p1 := dial(t, srv)
	h.join("R1", "H", "Host", true)
	p1.join("R1", "P1", "Pat", false)
	h.expect(EventUserJoined)

	// Non-host end-room is silently dropped.
	p1.send(EventEndRoom, endRoomPayload{RoomID: "R1"})

	h.send(EventEndRoom, endRoomPayload{RoomID: "R1"})
	var ended roomEndedPayload
	mustUnmarshal(t, p1.expect(EventRoomEnded), &ended)
	if ended.RoomID != "R1" {
		t.Fatalf("unexpected room-ended: %+v", ended)
	}
	h.expectNone()
}

func TestMalformedAndUnknownEventsAreIgnored(t *testing.T) {
	srv := newTestServer(t)
	c := dial(t, srv)

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.send("no-such-event", map[string]any{"x": 1})
	// join-room without a room id fails validation and is dropped.
	c.send(EventJoinRoom, map[string]any{"userId": "A"})

	// The connection is still healthy and a proper join works.
	state := c.join("R1", "A", "Ann", true)
	if len(state.Participants) != 1 {
		t.Fatalf("join after garbage failed: %+v", state)
	}
}

// The full hosted-session scenario over the wire: unauthorized mute is
// silent, authorized mute reaches target and host, host disconnect tears
// the room down.
func TestHostedSessionOverWire(t *testing.T) {
	srv := newTestServer(t)
	h := dial(t, srv)
	p1 := dial(t, srv)
	h.join("R1", "H", "Host", true)
	p1.join("R1", "P1", "Pat", false)
	h.expect(EventUserJoined)

	// P1 is not the host; nothing may happen.
	p1.send(EventForceMute, forceMutePayload{RoomID: "R1", ParticipantID: "H", Mute: true, HostID: "P1"})

	h.send(EventForceMute, forceMutePayload{RoomID: "R1", ParticipantID: "P1", Mute: true, HostID: "H"})

	var muted forceMutedPayload
	mustUnmarshal(t, p1.expect(EventForceMuted), &muted)
	if muted.ParticipantID != "P1" || !muted.Mute {
		t.Fatalf("unexpected force-muted at target: %+v", muted)
	}
	mustUnmarshal(t, h.expect(EventForceMuted), &muted)
	if muted.ParticipantID != "P1" || !muted.Mute {
		t.Fatalf("unexpected force-muted at host: %+v", muted)
	}

	// Host drops the transport; the room dies with it.
	_ = h.conn.Close()

	var left userLeftPayload
	mustUnmarshal(t, p1.expect(EventUserLeft), &left)
	if left.UserID != "H" {
		t.Fatalf("unexpected user-left: %+v", left)
	}
	if left.Participants == nil || len(left.Participants) != 0 {
		t.Fatalf("remaining list must be empty, got %+v", left.Participants)
	}
}

func jsonValue(t *testing.T, raw json.RawMessage) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return v
}
