package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello           = "hello"
	InboundTypeCreateRoom      = "create-room"
	InboundTypeJoin            = "join"
	InboundTypeLeave           = "leave"
	InboundTypeEnqueue         = "enqueue"
	InboundTypeSkip            = "skip"
	InboundTypeShuffle         = "shuffle"
	InboundTypeClearQueue      = "clear-queue"
	InboundTypePlayback        = "playback"
	InboundTypeSetTrack        = "set-track"
	InboundTypeChat            = "chat"
	InboundTypeCheckVisibility = "check-visibility"
	InboundTypeListRooms       = "list-rooms"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventRoomFullInfo   = "room-full-info"
	EventAvailableRooms = "available-rooms"
	EventCheckPrivate   = "check-private"
	EventChat           = "chat"
	EventRoomCreated    = "room"
)

// HelloData is sent by the client to introduce itself. The token wins
// over the display name when both are present.
type HelloData struct {
	User     string `json:"user"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// CreateRoomData requests a new room.
type CreateRoomData struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility,omitempty"`
	Secret     string `json:"secret,omitempty"`
}

// JoinData requests to join a specific room. Secret is required for
// private rooms only.
type JoinData struct {
	Room   string `json:"room"`
	Secret string `json:"secret,omitempty"`
}

// LeaveData leaves a room.
type LeaveData struct {
	Room string `json:"room"`
}

// EnqueueData appends a track to a room's queue.
type EnqueueData struct {
	Room   string `json:"room"`
	URI    string `json:"uri"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// RoomOnlyData addresses operations that need nothing but the room:
// skip, clear-queue, check-visibility.
type RoomOnlyData struct {
	Room string `json:"room"`
}

// ShuffleData toggles the shuffled play order.
type ShuffleData struct {
	Room    string `json:"room"`
	Enabled bool   `json:"enabled"`
}

// PlaybackData pauses or resumes the current track.
type PlaybackData struct {
	Room   string `json:"room"`
	Paused bool   `json:"paused"`
}

// SetTrackData overrides the current track wholesale.
type SetTrackData struct {
	Room       string `json:"room"`
	URI        string `json:"uri"`
	PositionMs int64  `json:"position_ms"`
	Paused     bool   `json:"paused"`
}

// ChatData is a chat message from the client.
type ChatData struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// CurrentTrack mirrors the persisted playback head on the wire.
type CurrentTrack struct {
	URI        string `json:"uri"`
	PositionMs int64  `json:"position_ms"`
	Paused     bool   `json:"paused"`
	Timestamp  int64  `json:"timestamp"`
}

// Track is one queue entry on the wire.
type Track struct {
	URI     string `json:"uri"`
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	AddedBy string `json:"added_by,omitempty"`
}

// EventRoomFullInfoData is the complete room snapshot sent after every
// state change. The access secret is never part of it.
type EventRoomFullInfoData struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Visibility     string        `json:"visibility"`
	Members        []string      `json:"members"`
	Queue          []Track       `json:"queue"`
	ShuffledQueue  []Track       `json:"shuffled_queue"`
	ShuffleEnabled bool          `json:"shuffle_enabled"`
	CurrentTrack   *CurrentTrack `json:"current_track"`
}

// RoomSummary is one entry of the available-rooms listing.
type RoomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Visibility  string `json:"visibility"`
	MemberCount int    `json:"member_count"`
}

// EventAvailableRoomsData lists every room.
type EventAvailableRoomsData struct {
	Rooms []RoomSummary `json:"rooms"`
}

// EventCheckPrivateData answers a visibility probe before a join
// attempt, so clients know whether to ask for a secret.
type EventCheckPrivateData struct {
	Room    string `json:"room"`
	Private bool   `json:"private"`
}

// EventChatData relays a chat message to room members.
type EventChatData struct {
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// EventRoomCreatedData tells the requester the id of its new room.
type EventRoomCreatedData struct {
	Room string `json:"room"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
