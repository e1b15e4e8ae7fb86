package fakeapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) recoverMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("Handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			}
		}()
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Fake API request")
	}
}

// Hold captures the next request for one method and path. The handler runs
// as soon as the request arrives, so the response reflects the data at that
// moment, but it is not sent until Release is called.
type Hold struct {
	method, path string
	arrived      chan struct{}
	release      chan struct{}
}

// Arrived is closed once the held request has been handled.
func (h *Hold) Arrived() <-chan struct{} {
	return h.arrived
}

// Release sends the held response.
func (h *Hold) Release() {
	close(h.release)
}

// Hold arms a hold for the next request to method and path.
func (s *Server) Hold(method, path string) *Hold {
	h := &Hold{
		method:  method,
		path:    path,
		arrived: make(chan struct{}),
		release: make(chan struct{}),
	}
	s.lock.Lock()
	s.holds = append(s.holds, h)
	s.lock.Unlock()
	return h
}

type failure struct {
	method, path string
	status       int
	body         any
}

// FailNext answers the next request to method and path with status and body
// instead of running the handler. A nil body sends an empty response.
func (s *Server) FailNext(method, path string, status int, body any) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures = append(s.failures, &failure{method: method, path: path, status: status, body: body})
}

// faultMiddleware counts calls and applies armed holds and failures.
func (s *Server) faultMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		method, path := c.Request.Method, c.Request.URL.Path

		s.lock.Lock()
		s.calls[method+" "+path]++
		fail := takeMatch(&s.failures, func(f *failure) bool { return f.method == method && f.path == path })
		hold := takeMatch(&s.holds, func(h *Hold) bool { return h.method == method && h.path == path })
		s.lock.Unlock()

		var buffered *bufferedWriter
		if hold != nil {
			buffered = &bufferedWriter{ResponseWriter: c.Writer, status: http.StatusOK}
			c.Writer = buffered
		}

		switch {
		case fail != nil && fail.body == nil:
			c.AbortWithStatus(fail.status)
		case fail != nil:
			c.AbortWithStatusJSON(fail.status, fail.body)
		default:
			c.Next()
		}

		if hold == nil {
			return
		}
		close(hold.arrived)
		select {
		case <-hold.release:
		case <-c.Request.Context().Done():
		}
		c.Writer = buffered.ResponseWriter
		buffered.flush()
	}
}

func takeMatch[T any](list *[]T, match func(T) bool) T {
	var zero T
	for i, item := range *list {
		if match(item) {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return item
		}
	}
	return zero
}

// bufferedWriter keeps the status and body until flush.
type bufferedWriter struct {
	gin.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(code int) {
	w.status = code
}

func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	return w.body.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Written() bool {
	return false
}

func (w *bufferedWriter) flush() {
	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.WriteHeaderNow()
	_, _ = w.ResponseWriter.Write(w.body.Bytes())
}
