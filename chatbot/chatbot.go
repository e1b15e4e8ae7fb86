// Package chatbot is the assistant slice: chat sessions, the messages of the
// open session, and the knowledge base.
package chatbot

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/state"
)

const SliceName = "chatbot"

const (
	sessionsPath        = "/api/chatbot/sessions/"
	knowledgePath       = "/api/chatbot/knowledge/"
	knowledgeSearchPath = "/api/chatbot/knowledge/search/"
	messagesPath        = "/api/chatbot/messages/"
)

func sessionPath(id int64) string {
	return fmt.Sprintf("%s%d/", sessionsPath, id)
}

func sessionMessagesPath(id int64) string {
	return sessionPath(id) + "messages/"
}

func messagePath(id int64) string {
	return fmt.Sprintf("%s%d/", messagesPath, id)
}

type Service struct {
	client *api.Client
	slice  *state.Slice[State]
}

func New(client *api.Client, opts ...state.Option) *Service {
	return &Service{
		client: client,
		slice:  state.NewSlice(SliceName, State{}, opts...),
	}
}

func (s *Service) Read() (State, state.Status) {
	return s.slice.Read()
}

func (s *Service) FetchSessions(ctx context.Context) ([]Session, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "chatbot/fetchSessions",
		Collection: "sessions",
		Fallback:   "Failed to fetch chat sessions",
		Replace:    true,
	}, func(ctx context.Context) ([]Session, error) {
		var list []Session
		if err := s.client.Get(ctx, sessionsPath, &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Session) {
		st.Sessions = state.Clone(list)
	})
}

// CreateSession appends the new session and makes it current.
func (s *Service) CreateSession(ctx context.Context, title string) (*Session, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "chatbot/createSession",
		Collection: "sessions",
		Fallback:   "Failed to create chat session",
	}, func(ctx context.Context) (*Session, error) {
		var created Session
		if err := s.client.Post(ctx, sessionsPath, newSession{Title: title}, &created); err != nil {
			return nil, err
		}
		return &created, nil
	}, func(st *State, created *Session) {
		st.Sessions = state.Append(st.Sessions, *created)
		st.Current = utils.ClonePtr(created)
	})
}

func (s *Service) FetchMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "chatbot/fetchMessages",
		Collection: "messages",
		Fallback:   "Failed to fetch chat messages",
		Replace:    true,
	}, func(ctx context.Context) ([]Message, error) {
		var list []Message
		if err := s.client.Get(ctx, sessionMessagesPath(sessionID), &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Message) {
		st.Messages = state.Clone(list)
	})
}

// SendMessage posts the user's text and appends the returned exchange.
// Typing is raised while the reply is awaited; the loading flag is not.
func (s *Service) SendMessage(ctx context.Context, sessionID int64, text string) (*Message, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "chatbot/sendMessage",
		Collection: "messages",
		Fallback:   "Failed to send message",
		Quiet:      true,
		Pending:    func(st *State) { st.Typing = true },
		Settle:     func(st *State) { st.Typing = false },
	}, func(ctx context.Context) (*Message, error) {
		var reply Message
		if err := s.client.Post(ctx, sessionMessagesPath(sessionID), newMessage{UserMessage: text}, &reply); err != nil {
			return nil, err
		}
		return &reply, nil
	}, func(st *State, reply *Message) {
		st.Messages = state.Append(st.Messages, *reply)
	})
}

// DeleteSession removes a session. Deleting the current session also clears
// Current and the message list.
func (s *Service) DeleteSession(ctx context.Context, sessionID int64) error {
	_, err := state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "chatbot/deleteSession",
		Collection: "sessions",
		Fallback:   "Failed to delete chat session",
		Quiet:      true,
	}, func(ctx context.Context) (int64, error) {
		return sessionID, s.client.Delete(ctx, sessionPath(sessionID))
	}, func(st *State, id int64) {
		st.Sessions = state.RemoveByID(st.Sessions, id)
		if st.Current != nil && st.Current.ID == id {
			st.Current = nil
			st.Messages = nil
		}
	})
	return err
}

func (s *Service) FetchKnowledge(ctx context.Context) ([]Knowledge, error) {
	return s.fetchKnowledge(ctx, "chatbot/fetchKnowledge", knowledgePath, "Failed to fetch chatbot knowledge")
}

// SearchKnowledge replaces the knowledge list with the articles matching q.
func (s *Service) SearchKnowledge(ctx context.Context, q string) ([]Knowledge, error) {
	path := utils.NewQuery().String("q", &q).Apply(knowledgeSearchPath)
	return s.fetchKnowledge(ctx, "chatbot/searchKnowledge", path, "Failed to search knowledge")
}

func (s *Service) fetchKnowledge(ctx context.Context, name, path, fallback string) ([]Knowledge, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       name,
		Collection: "knowledge",
		Fallback:   fallback,
		Replace:    true,
	}, func(ctx context.Context) ([]Knowledge, error) {
		var list []Knowledge
		if err := s.client.Get(ctx, path, &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Knowledge) {
		st.Knowledge = state.Clone(list)
	})
}

func (s *Service) MarkRead(ctx context.Context, messageID int64) (*Message, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "chatbot/markRead",
		Collection: "messages",
		Fallback:   "Failed to mark message as read",
		Quiet:      true,
	}, func(ctx context.Context) (*Message, error) {
		var updated Message
		if err := s.client.Patch(ctx, messagePath(messageID), readPatch{IsRead: true}, &updated); err != nil {
			return nil, err
		}
		return &updated, nil
	}, func(st *State, updated *Message) {
		var found bool
		if st.Messages, found = state.ReplaceByID(st.Messages, *updated); !found {
			s.slice.Logger().Debug().Int64("id", updated.ID).Msg("Read message not in list")
		}
	})
}

// SetCurrent selects the open session; nil clears it.
func (s *Service) SetCurrent(session *Session) {
	s.slice.Update(func(st *State) {
		st.Current = utils.ClonePtr(session)
	})
}

func (s *Service) SetTyping(typing bool) {
	s.slice.Update(func(st *State) {
		st.Typing = typing
	})
}

// AddMessage appends a message without a server call, e.g. an optimistic echo.
func (s *Service) AddMessage(m Message) {
	s.slice.Update(func(st *State) {
		st.Messages = state.Append(st.Messages, m)
	})
}

func (s *Service) ClearMessages() {
	s.slice.Update(func(st *State) {
		st.Messages = nil
	})
}

func (s *Service) ClearError() {
	s.slice.ClearError()
}
