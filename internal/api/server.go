package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/service"
)

// maxBodyBytes caps request bodies; the public registration form is
// reachable without authentication.
const maxBodyBytes = 1 << 20

// Server provides the JSON HTTP API.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Groups
	s.mux.HandleFunc("GET /api/groups", s.handleListGroups)
	s.mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	s.mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	s.mux.HandleFunc("PATCH /api/groups/{id}", s.handleUpdateGroup)
	s.mux.HandleFunc("DELETE /api/groups/{id}", s.handleDeleteGroup)

	// API – Group roster
	s.mux.HandleFunc("GET /api/groups/{id}/members", s.handleListGroupMembers)
	s.mux.HandleFunc("POST /api/groups/{id}/members", s.handleAddGroupMembers)
	s.mux.HandleFunc("DELETE /api/groups/{id}/members/{memberID}", s.handleRemoveGroupMember)

	// API – Sessions and attendance
	s.mux.HandleFunc("GET /api/groups/{id}/sessions", s.handleListSessions)
	s.mux.HandleFunc("POST /api/groups/{id}/sessions", s.handleCreateSession)
	s.mux.HandleFunc("PUT /api/groups/{id}/sessions/{sessionID}", s.handleUpdateSession)

	// API – Messages
	s.mux.HandleFunc("POST /api/groups/{id}/messages", s.handleSendGroupMessage)
	s.mux.HandleFunc("POST /api/messages", s.handleBroadcast)

	// API – Member registry
	s.mux.HandleFunc("GET /api/members", s.handleListMembers)
	s.mux.HandleFunc("POST /api/members", s.handleCreateMember)
	s.mux.HandleFunc("GET /api/members/{id}", s.handleGetMember)

	// API – New member classes
	s.mux.HandleFunc("GET /api/classes", s.handleListClasses)
	s.mux.HandleFunc("POST /api/classes", s.handleCreateClass)
	s.mux.HandleFunc("GET /api/classes/{id}", s.handleGetClass)
	s.mux.HandleFunc("PATCH /api/classes/{id}", s.handleUpdateClass)
	s.mux.HandleFunc("GET /api/classes/{id}/invite", s.handleClassInvite)
	s.mux.HandleFunc("POST /api/classes/{id}/students", s.handleAddStudents)
	s.mux.HandleFunc("DELETE /api/classes/{id}/students/{memberID}", s.handleRemoveStudent)
	s.mux.HandleFunc("PATCH /api/lessons/{id}", s.handleUpdateLesson)
	s.mux.HandleFunc("GET /api/lessons/{id}/attendance", s.handleGetLessonAttendance)
	s.mux.HandleFunc("PUT /api/lessons/{id}/attendance", s.handleSaveLessonAttendance)

	// Public self-registration
	s.mux.HandleFunc("GET /api/public/classes/{token}", s.handlePublicClass)
	s.mux.HandleFunc("POST /api/public/classes/{token}/register", s.handleRegister)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses. Unexpected
// errors are logged and reported with a generic message built from action.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Errors,
		})
	case errors.Is(err, models.ErrValidation):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrAlreadyExists), errors.Is(err, models.ErrClassClosed):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoSender):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.WithError(err).Errorf("failed to %s", action)
		s.respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, "request body is empty"
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	return pathInt64(r, "id")
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s in path", name)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

type idsRequest struct {
	MemberIDs []int64 `json:"member_ids"`
}

type textRequest struct {
	Text string `json:"text"`
}

// ---------------------------------------------------------------------------
// Middleware & health
// ---------------------------------------------------------------------------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
