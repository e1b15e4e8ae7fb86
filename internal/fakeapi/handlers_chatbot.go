package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jrsteele09/go-budget-client/chatbot"
)

const fallbackReply = "I can help with budgets, expenses and categories. Try asking about one of those."

func setSessionID(s *chatbot.Session, id int64) { s.ID = id }

func setMessageID(m *chatbot.Message, id int64) { m.ID = id }

func setKnowledgeID(k *chatbot.Knowledge, id int64) { k.ID = id }

func (s *Server) listChatSessionsHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	userID := s.currentAccount(c).user.ID
	c.JSON(http.StatusOK, s.sessions.filter(func(cs chatbot.Session) bool { return cs.User == userID }))
}

type sessionRequest struct {
	Title string `json:"title"`
}

func (s *Server) createChatSessionHandler(c *gin.Context) {
	var req sessionRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New chat"
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now().UTC()
	created := s.sessions.insert(chatbot.Session{
		User:      s.currentAccount(c).user.ID,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}, setSessionID)
	c.JSON(http.StatusCreated, created)
}

// ownedSession returns the caller's session or answers 404. Caller holds s.lock.
func (s *Server) ownedSession(c *gin.Context, id int64) (chatbot.Session, bool) {
	cs, found := s.sessions.get(id)
	if !found || cs.User != s.currentAccount(c).user.ID {
		c.JSON(http.StatusNotFound, notFound)
		return cs, false
	}
	return cs, true
}

func (s *Server) deleteChatSessionHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.ownedSession(c, id); !ok {
		return
	}
	s.sessions.remove(id)
	s.messages.rows = s.messages.filter(func(m chatbot.Message) bool { return m.Session != id })
	c.Status(http.StatusNoContent)
}

func (s *Server) listMessagesHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.ownedSession(c, id); !ok {
		return
	}
	c.JSON(http.StatusOK, s.messages.filter(func(m chatbot.Message) bool { return m.Session == id }))
}

type messageRequest struct {
	UserMessage string `json:"user_message"`
}

// sendMessageHandler stores the exchange and answers from the knowledge base.
func (s *Server) sendMessageHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req messageRequest
	if !bind(c, &req) {
		return
	}
	fields := fieldErrors{}
	if !fields.required("user_message", req.UserMessage) {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	cs, ok := s.ownedSession(c, id)
	if !ok {
		return
	}

	reply := fallbackReply
	if hits := s.searchKnowledge(req.UserMessage); len(hits) > 0 {
		reply = hits[0].Title + ": " + hits[0].Content
	}

	now := s.now().UTC()
	created := s.messages.insert(chatbot.Message{
		Session:     id,
		UserMessage: req.UserMessage,
		BotResponse: reply,
		MessageType: "text",
		Timestamp:   now,
	}, setMessageID)

	cs.MessageCount++
	cs.UpdatedAt = now
	s.sessions.put(cs)

	c.JSON(http.StatusCreated, created)
}

type readRequest struct {
	IsRead *bool `json:"is_read"`
}

func (s *Server) patchMessageHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req readRequest
	if !bind(c, &req) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	m, found := s.messages.get(id)
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if _, ok := s.ownedSession(c, m.Session); !ok {
		return
	}
	setIf(&m.IsRead, req.IsRead)
	s.messages.put(m)
	c.JSON(http.StatusOK, m)
}

func (s *Server) listKnowledgeHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c.JSON(http.StatusOK, s.knowledge.filter(nil))
}

func (s *Server) searchKnowledgeHandler(c *gin.Context) {
	q := c.Query("q")

	s.lock.Lock()
	defer s.lock.Unlock()
	c.JSON(http.StatusOK, s.searchKnowledge(q))
}

// searchKnowledge matches any word of text against titles, content and
// tags. Caller holds s.lock.
func (s *Server) searchKnowledge(text string) []chatbot.Knowledge {
	words := strings.Fields(strings.ToLower(text))
	return s.knowledge.filter(func(k chatbot.Knowledge) bool {
		haystack := strings.ToLower(k.Title + " " + k.Content + " " + strings.Join(k.Tags, " "))
		for _, w := range words {
			if len(w) > 2 && strings.Contains(haystack, w) {
				return true
			}
		}
		return false
	})
}
