package api

import (
	"net/http"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

// ---------------------------------------------------------------------------
// Member registry
// ---------------------------------------------------------------------------

type createMemberRequest struct {
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Phone    string              `json:"phone"`
	Avatar   string              `json:"avatar"`
	Groups   []string            `json:"groups"`
	JoinDate string              `json:"join_date"`
	Status   models.MemberStatus `json:"status"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.MemberFilters{Search: q.Get("search")}

	if raw := q.Get("status"); raw != "" {
		status := models.MemberStatus(raw)
		if status != models.MemberStatusActive && status != models.MemberStatusInactive {
			s.respondError(w, http.StatusBadRequest, "status must be Active or Inactive")
			return
		}
		filters.Status = &status
	}

	var err error
	if filters.Limit, err = queryInt(r, "limit"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.Offset, err = queryInt(r, "offset"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	members, err := s.svc.SearchMembers(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, err, "list members")
		return
	}
	s.respondJSON(w, http.StatusOK, members)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := s.svc.CreateMember(r.Context(), models.Member{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Avatar:   req.Avatar,
		Groups:   req.Groups,
		JoinDate: req.JoinDate,
		Status:   req.Status,
	})
	if err != nil {
		s.respondServiceError(w, err, "create member")
		return
	}
	s.respondJSON(w, http.StatusCreated, member)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := s.svc.GetMember(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "get member")
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}
