package api

import (
	"errors"
	"net/http"

	"github.com/hashicorp/go-multierror"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

type createGroupRequest struct {
	Name           string `json:"name"`
	Leader         string `json:"leader"`
	MeetingDay     string `json:"meeting_day"`
	MeetingTime    string `json:"meeting_time"`
	Location       string `json:"location"`
	TargetAudience string `json:"target_audience"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.ListGroups(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "list groups")
		return
	}
	s.respondJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	group, err := s.svc.CreateGroup(r.Context(), models.Group{
		Name:           req.Name,
		Leader:         req.Leader,
		MeetingDay:     req.MeetingDay,
		MeetingTime:    req.MeetingTime,
		Location:       req.Location,
		TargetAudience: req.TargetAudience,
	})
	if err != nil {
		s.respondServiceError(w, err, "create group")
		return
	}
	s.respondJSON(w, http.StatusCreated, group)
}

// handleGetGroup returns the full detail snapshot: group, roster, history
// and next meeting date.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	snapshot, err := s.svc.GroupSnapshot(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "get group")
		return
	}
	s.respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var patch models.GroupPatch
	if ok, msg := s.decodeJSON(w, r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	group, err := s.svc.UpdateGroup(r.Context(), id, patch)
	if err != nil {
		s.respondServiceError(w, err, "update group")
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	if err := s.svc.DeleteGroup(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "delete group")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Roster
// ---------------------------------------------------------------------------

func (s *Server) handleListGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	roster, err := s.svc.ListMembers(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "list group members")
		return
	}
	s.respondJSON(w, http.StatusOK, roster)
}

func (s *Server) handleAddGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req idsRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.svc.AddMembers(r.Context(), id, req.MemberIDs)
	if err != nil {
		s.respondServiceError(w, err, "add group members")
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	memberID, err := pathInt64(r, "memberID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := s.svc.RemoveMember(r.Context(), id, memberID); err != nil {
		s.respondServiceError(w, err, "remove group member")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	history, err := s.svc.ListSessions(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "list sessions")
		return
	}
	s.respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var in models.SessionInput
	if ok, msg := s.decodeJSON(w, r, &in); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	in.ID = nil

	sessionID, err := s.svc.SaveSession(r.Context(), id, in)
	if err != nil {
		s.respondServiceError(w, err, "save session")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]int64{"id": sessionID})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	sessionID, err := pathInt64(r, "sessionID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var in models.SessionInput
	if ok, msg := s.decodeJSON(w, r, &in); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	in.ID = &sessionID

	saved, err := s.svc.SaveSession(r.Context(), id, in)
	if err != nil {
		s.respondServiceError(w, err, "save session")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int64{"id": saved})
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func (s *Server) handleSendGroupMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req textRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.SendGroupMessage(r.Context(), id, req.Text); err != nil {
		s.respondServiceError(w, err, "send group message")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"sent": 1})
}

type broadcastResponse struct {
	Sent   int      `json:"sent"`
	Errors []string `json:"errors,omitempty"`
}

// handleBroadcast reports partial delivery in the body; only a failure
// before the fan-out is an error status.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	sent, err := s.svc.BroadcastMessage(r.Context(), req.Text)
	var merr *multierror.Error
	if err != nil && !errors.As(err, &merr) {
		s.respondServiceError(w, err, "broadcast message")
		return
	}

	resp := broadcastResponse{Sent: sent}
	if merr != nil {
		for _, e := range merr.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
		s.logger.WithError(err).Warn("Broadcast partially failed")
	}
	s.respondJSON(w, http.StatusOK, resp)
}
