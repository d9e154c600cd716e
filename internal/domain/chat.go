package domain

import "time"

type EventType string

const (
	// Client -> server
	EventJoinRoom    EventType = "join_room"
	EventLeaveRoom   EventType = "leave_room"
	EventSendMessage EventType = "send_message"
	EventListUsers   EventType = "list_users"

	// Server -> client
	EventRoomJoined EventType = "room_joined"
	EventNewMessage EventType = "new_message"
	EventSystem     EventType = "system_message"
	EventUsers      EventType = "active_users"
	EventError      EventType = "error"
)

// Identity is an authenticated user as resolved by the identity gate.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// ChatMessage is a persisted room message. ID and Timestamp are assigned
// by the history store on insert and are canonical afterwards.
type ChatMessage struct {
	ID        uint      `json:"id,omitempty"`
	Room      string    `json:"room"`
	SenderID  string    `json:"sender_id"`
	Sender    string    `json:"sender"`
	Bot       bool      `json:"bot,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is the wire envelope exchanged with clients over the WebSocket.
// Fields are populated depending on Type.
type Event struct {
	Type    EventType     `json:"type"`
	Room    string        `json:"room,omitempty"`
	Content string        `json:"content,omitempty"`
	Message *ChatMessage  `json:"message,omitempty"`
	History []ChatMessage `json:"history,omitempty"`
	Users   []string      `json:"users,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ErrorEvent builds an error envelope delivered only to the offending session.
func ErrorEvent(reason string) Event {
	return Event{Type: EventError, Error: reason}
}
