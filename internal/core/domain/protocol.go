package domain

const (
	TypeHandshake = "handshake"
	TypeJoin      = "join"
	TypeJoined    = "joined"
	TypeChange    = "change"
	TypeMembers   = "members"
	TypeContent   = "content"
	TypeError     = "error"
)

// HandshakeResponse is sent once on connect
type HandshakeResponse struct {
	Type         string `json:"type"` // "handshake"
	ConnectionID string `json:"connection_id"`
}

// ClientEnvelope is the single inbound frame shape; Type selects the
// operation and unused fields stay empty.
type ClientEnvelope struct {
	Type    string `json:"type"` // "join" or "change"
	RoomID  string `json:"room_id"`
	Payload string `json:"payload,omitempty"`
}

// JoinedResponse answers a join with the current member count and the
// hydrated document.
type JoinedResponse struct {
	Type     string `json:"type"` // "joined"
	RoomID   string `json:"room_id"`
	Members  int    `json:"members"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	Title    string `json:"title,omitempty"`
}

// MembersEvent is pushed to the whole room whenever the member count
// changes.
type MembersEvent struct {
	Type  string `json:"type"` // "members"
	Count int    `json:"count"`
}

// ContentEvent carries a peer's edit to every other room member.
type ContentEvent struct {
	Type    string `json:"type"` // "content"
	Payload string `json:"payload"`
}

// ErrorMessage is WS-safe error
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
