package chatbot

import (
	"time"

	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/state"
)

// Message is one exchange: the user's text and the assistant's reply.
type Message struct {
	ID          int64     `json:"id"`
	Session     int64     `json:"session"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	MessageType string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"is_read"`
}

func (m Message) EntityID() int64 { return m.ID }

type Session struct {
	ID           int64     `json:"id"`
	User         int64     `json:"user"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

func (s Session) EntityID() int64 { return s.ID }

// Knowledge is a help article the assistant can cite.
type Knowledge struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (k Knowledge) EntityID() int64 { return k.ID }

func (k Knowledge) Clone() Knowledge {
	k.Tags = state.Clone(k.Tags)
	return k
}

type newSession struct {
	Title string `json:"title"`
}

type newMessage struct {
	UserMessage string `json:"user_message"`
}

type readPatch struct {
	IsRead bool `json:"is_read"`
}

// State is the chatbot slice. Typing is set while a message is awaiting the
// assistant's reply and is independent of the slice's loading flag.
type State struct {
	Sessions  []Session
	Messages  []Message
	Current   *Session
	Knowledge []Knowledge
	Typing    bool
}

func (s State) Clone() State {
	return State{
		Sessions:  state.Clone(s.Sessions),
		Messages:  state.Clone(s.Messages),
		Current:   utils.ClonePtr(s.Current),
		Knowledge: state.Clone(s.Knowledge),
		Typing:    s.Typing,
	}
}
