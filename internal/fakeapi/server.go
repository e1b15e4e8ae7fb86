// Package fakeapi is an in-memory stand-in for the budget REST API. It
// issues real HS256 JWTs, enforces bearer authentication on resource routes
// and stores everything in memory. Tests use its fault hooks (Hold, FailNext)
// to script slow or failing responses; budgetctl can serve it for demos.
package fakeapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/jrsteele09/go-budget-client/auth"
	"github.com/jrsteele09/go-budget-client/categories"
	"github.com/jrsteele09/go-budget-client/chatbot"
	"github.com/jrsteele09/go-budget-client/expenses"
	"github.com/jrsteele09/go-budget-client/templates"
)

const (
	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

type account struct {
	password string
	user     auth.User
	profile  auth.Profile
}

type Server struct {
	engine     *gin.Engine
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     zerolog.Logger
	now        func() time.Time
	metrics    bool

	lock        sync.Mutex
	accounts    map[string]*account // by username
	nextUserID  int64
	epoch       int                 // tokens issued in an earlier epoch are rejected
	revoked     map[string]struct{} // refresh token ids
	calls       map[string]int      // "METHOD path" -> count
	holds       []*Hold
	failures    []*failure
	expenses    table[expenses.Expense]
	categories  table[categories.Category]
	groups      table[categories.Group]
	templates   table[templates.Template]
	allocations table[templates.TemplateCategory]
	reviews     table[templates.Review]
	sessions    table[chatbot.Session]
	messages    table[chatbot.Message]
	knowledge   table[chatbot.Knowledge]
}

type Option func(*Server)

// WithSecret sets the HMAC key used to sign tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithTokenTTL sets access and refresh token lifetimes.
func WithTokenTTL(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithUser seeds an account.
func WithUser(username, password string) Option {
	return func(s *Server) {
		s.addAccount(auth.RegisterRequest{
			Username:      username,
			Password:      password,
			Email:         username + "@example.com",
			FirstName:     username,
			LastName:      "Tester",
			MonthlyIncome: decimal.NewFromInt(3000),
			Currency:      "USD",
		})
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsEndpoint serves the default Prometheus registry on /metrics.
func WithMetricsEndpoint() Option {
	return func(s *Server) {
		s.metrics = true
	}
}

// WithClock replaces time.Now, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(options ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		secret:     []byte("fakeapi-secret"),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		logger:     log.Logger,
		now:        time.Now,
		accounts:   make(map[string]*account),
		revoked:    make(map[string]struct{}),
		calls:      make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}
	s.seedKnowledge()

	s.engine = gin.New()
	s.engine.RedirectTrailingSlash = false
	s.engine.Use(s.recoverMiddleware(), s.loggingMiddleware(), s.faultMiddleware())
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	r := s.engine

	r.POST(RouteToken, s.tokenHandler)
	r.POST(RouteRegister, s.registerHandler)

	api := r.Group("/", s.requireAuth())
	api.GET(RouteProfile, s.getUserHandler)
	api.PATCH(RouteProfile, s.patchUserHandler)
	api.GET(RouteProfileDetails, s.getProfileHandler)
	api.PATCH(RouteProfileDetails, s.patchProfileHandler)
	api.POST(RouteLogout, s.logoutHandler)

	api.GET(RouteExpenses, s.listExpensesHandler)
	api.POST(RouteExpenses, s.createExpenseHandler)
	api.GET(RouteExpenseStats, s.expenseStatsHandler)
	api.PATCH(RouteExpense, s.patchExpenseHandler)
	api.DELETE(RouteExpense, s.deleteExpenseHandler)

	api.GET(RouteCategories, s.listCategoriesHandler)
	api.POST(RouteCategories, s.createCategoryHandler)
	api.GET(RouteCategoryGroups, s.listGroupsHandler)
	api.POST(RouteCategoryGroups, s.createGroupHandler)
	api.GET(RouteCategoryStats, s.categoryStatsHandler)
	api.POST(RouteCategoryBulkUpdate, s.bulkUpdateCategoriesHandler)
	api.PATCH(RouteCategory, s.patchCategoryHandler)
	api.DELETE(RouteCategory, s.deleteCategoryHandler)

	api.GET(RouteTemplates, s.listTemplatesHandler)
	api.POST(RouteTemplates, s.createTemplateHandler)
	api.GET(RouteTemplateSearch, s.searchTemplatesHandler)
	api.GET(RouteTemplate, s.getTemplateHandler)
	api.PATCH(RouteTemplate, s.patchTemplateHandler)
	api.DELETE(RouteTemplate, s.deleteTemplateHandler)
	api.GET(RouteTemplateCategories, s.listTemplateCategoriesHandler)
	api.GET(RouteTemplateReviews, s.listReviewsHandler)
	api.POST(RouteTemplateReviews, s.createReviewHandler)

	api.GET(RouteChatSessions, s.listChatSessionsHandler)
	api.POST(RouteChatSessions, s.createChatSessionHandler)
	api.DELETE(RouteChatSession, s.deleteChatSessionHandler)
	api.GET(RouteChatMessages, s.listMessagesHandler)
	api.POST(RouteChatMessages, s.sendMessageHandler)
	api.PATCH(RouteChatMessage, s.patchMessageHandler)
	api.GET(RouteKnowledge, s.listKnowledgeHandler)
	api.GET(RouteKnowledgeSearch, s.searchKnowledgeHandler)

	if s.metrics {
		r.GET(RouteMetrics, gin.WrapH(promhttp.Handler()))
	}

	for _, route := range r.Routes() {
		s.logger.Debug().Str("method", route.Method).Str("path", route.Path).Msg("Registered route")
	}
}

// Calls returns how many requests for method and path (without query) have
// been received.
func (s *Server) Calls(method, path string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[method+" "+path]
}

// InvalidateTokens makes every token issued so far fail authentication, as
// if they had expired.
func (s *Server) InvalidateTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.epoch++
}

// IssueToken signs an access token for an existing account without going
// through the token endpoint.
func (s *Server) IssueToken(username string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.accounts[username]; !ok {
		return "", fmt.Errorf("[fakeapi.IssueToken] unknown user %q", username)
	}
	return s.sign(username, tokenTypeAccess, s.now(), s.accessTTL)
}
