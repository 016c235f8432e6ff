// Package ws pushes session changes to subscribers over WebSocket.
//
// Every session is a topic. A subscriber connects with ?session_id=N,
// receives "ready" with the full detail view, then one event per committed
// write to that session. "session_end" is the last event of a topic; the hub
// closes its connections after sending it. HTTP polling stays available as
// the fallback read path.
package ws

import "github.com/akinalp/emocircle/models"

// Event is the wire frame. Seq increases per topic so a subscriber can spot
// a gap and refetch.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client -> server.
const (
	OpHeartbeat = "heartbeat"
)

// Server -> client.
const (
	OpReady           = "ready"
	OpHeartbeatAck    = "heartbeat_ack"
	OpParticipantJoin = "participant_join"
	OpEmotionUpdate   = "emotion_update"
	OpMessageCreate   = "message_create"
	OpReplyCreate     = "reply_create"
	OpSessionEnd      = "session_end"
)

// ParticipantEventData accompanies participant_join and emotion_update. The
// recomputed summary rides along so subscribers need not aggregate.
type ParticipantEventData struct {
	Participant models.Participant      `json:"participant"`
	Emotions    []models.EmotionSummary `json:"emotions"`
}

// ReplyEventData accompanies reply_create.
type ReplyEventData struct {
	SessionID int64        `json:"session_id"`
	Reply     models.Reply `json:"reply"`
}
