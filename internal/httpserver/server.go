// Package httpserver exposes the REST surface for the post publishing
// service and maps domain errors to HTTP status codes.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blackmichael/bluesky-longpost/internal/config"
	"github.com/blackmichael/bluesky-longpost/internal/domain"
)

// Server is the HTTP server that serves the post publishing endpoints.
type Server struct {
	cfg        *config.Config
	posts      *domain.PostService
	auth       domain.Authenticator
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server with the given post service and
// authenticator.
func NewServer(cfg *config.Config, posts *domain.PostService, auth domain.Authenticator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		posts:  posts,
		auth:   auth,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", s.handleLogin)
	mux.HandleFunc("GET /posts", s.handleListRecent)
	mux.HandleFunc("POST /posts", s.handleCreatePost)
	mux.HandleFunc("GET /posts/mine", s.handleListMine)
	mux.HandleFunc("GET /posts/{shortUrl}", s.handleGetPost)
	mux.HandleFunc("PUT /posts/{shortUrl}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /posts/{shortUrl}", s.handleDeletePost)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed request body")
		return
	}
	if body.Identifier == "" || body.Password == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "identifier and password are required")
		return
	}

	session, err := s.auth.CreateSession(r.Context(), body.Identifier, body.Password)
	if err != nil {
		s.logger.Warn("login failed", "identifier", body.Identifier, "error", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"did":        session.DID,
		"handle":     session.Handle,
		"accessJwt":  session.AccessJwt,
		"refreshJwt": session.RefreshJwt,
	})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content   string `json:"content"`
		AuthorDID string `json:"authorDid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed request body")
		return
	}

	post, err := s.posts.CreatePost(r.Context(), clientKey(r), body.AuthorDID, bearerToken(r), body.Content)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.RateLimitWindow.Seconds())))
		}
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": toPostResponse(post)})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed request body")
		return
	}

	if err := s.posts.UpdatePost(r.Context(), r.PathValue("shortUrl"), bearerToken(r), body.Content); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.DeletePost(r.Context(), r.PathValue("shortUrl"), bearerToken(r)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, profile, err := s.posts.GetPost(r.Context(), r.PathValue("shortUrl"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := toPostResponse(post)
	if profile != nil {
		resp["author"] = map[string]string{
			"did":    profile.DID,
			"handle": profile.Handle,
			"name":   profile.DisplayName,
			"avatar": profile.Avatar,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": resp})
}

func (s *Server) handleListRecent(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListRecent(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": toPostsResponse(posts)})
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request) {
	claimedDID := r.Header.Get("X-User-Did")

	posts, err := s.posts.ListMine(r.Context(), claimedDID, bearerToken(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": toPostsResponse(posts)})
}

// writeDomainError maps a domain error to its HTTP response. Internal detail
// is logged, never returned to the client.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, errType, message := errorStatus(err)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, errType, message)
}

func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidContent):
		return http.StatusBadRequest, "InvalidContent", "content must be a non-empty string"
	case errors.Is(err, domain.ErrContentTooShort):
		return http.StatusBadRequest, "ContentTooShort", "content is below the minimum length"
	case errors.Is(err, domain.ErrContentTooLong):
		return http.StatusBadRequest, "ContentTooLong", "content exceeds the maximum length"
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, "TokenExpired", "session expired, log in again"
	case errors.Is(err, domain.ErrDIDMismatch):
		return http.StatusUnauthorized, "Unauthorized", "credential does not match the claimed identity"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized", "not authorized"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NotFound", "post not found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RateLimited", "too many requests"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusInternalServerError, "UpstreamFailure", "upstream service unavailable"
	default:
		return http.StatusInternalServerError, "InternalError", "something went wrong"
	}
}

func toPostResponse(p *domain.Post) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"content":   p.Content,
		"shortUrl":  p.ShortURL,
		"authorDid": p.AuthorDID,
		"createdAt": p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toPostsResponse(posts []domain.Post) []map[string]any {
	result := make([]map[string]any, len(posts))
	for i := range posts {
		result[i] = toPostResponse(&posts[i])
	}
	return result
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header,
// returning "" when absent or malformed.
func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// clientKey identifies the client for rate limiting: the first
// X-Forwarded-For entry when running behind a proxy, else the remote address
// without the port.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
