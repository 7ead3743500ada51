package api

import (
	"net/http"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// ---------------------------------------------------------------------------
// New member classes
// ---------------------------------------------------------------------------

type createClassRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
}

type lessonAttendanceRequest struct {
	PresentMemberIDs     []int64 `json:"present_member_ids"`
	SummaryDoneMemberIDs []int64 `json:"summary_done_member_ids"`
}

// publicClass is what an anonymous visitor may see of a class.
type publicClass struct {
	Name      string             `json:"name"`
	StartDate string             `json:"start_date"`
	Status    models.ClassStatus `json:"status"`
	Open      bool               `json:"open"`
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := s.svc.ListClasses(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "list classes")
		return
	}
	s.respondJSON(w, http.StatusOK, classes)
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	class, err := s.svc.CreateClass(r.Context(), req.Name, req.StartDate)
	if err != nil {
		s.respondServiceError(w, err, "create class")
		return
	}
	s.respondJSON(w, http.StatusCreated, class)
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	class, err := s.svc.GetClass(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "get class")
		return
	}
	s.respondJSON(w, http.StatusOK, class)
}

func (s *Server) handleUpdateClass(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	var patch models.ClassPatch
	if ok, msg := s.decodeJSON(w, r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	class, err := s.svc.UpdateClass(r.Context(), id, patch)
	if err != nil {
		s.respondServiceError(w, err, "update class")
		return
	}
	s.respondJSON(w, http.StatusOK, class)
}

func (s *Server) handleClassInvite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	link, err := s.svc.ClassInvite(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "build invite link")
		return
	}
	s.respondJSON(w, http.StatusOK, link)
}

func (s *Server) handleAddStudents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	var req idsRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.svc.AddStudents(r.Context(), id, req.MemberIDs)
	if err != nil {
		s.respondServiceError(w, err, "add students")
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}
	memberID, err := pathInt64(r, "memberID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := s.svc.RemoveStudent(r.Context(), id, memberID); err != nil {
		s.respondServiceError(w, err, "remove student")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Lessons
// ---------------------------------------------------------------------------

func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	var patch models.LessonPatch
	if ok, msg := s.decodeJSON(w, r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	lesson, err := s.svc.UpdateLesson(r.Context(), id, patch)
	if err != nil {
		s.respondServiceError(w, err, "update lesson")
		return
	}
	s.respondJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleGetLessonAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	records, err := s.svc.LessonAttendance(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "get lesson attendance")
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleSaveLessonAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	var req lessonAttendanceRequest
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.SaveLessonAttendance(r.Context(), id, req.PresentMemberIDs, req.SummaryDoneMemberIDs); err != nil {
		s.respondServiceError(w, err, "save lesson attendance")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Public registration
// ---------------------------------------------------------------------------

func (s *Server) handlePublicClass(w http.ResponseWriter, r *http.Request) {
	class, err := s.svc.GetClassByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		s.respondServiceError(w, err, "get class")
		return
	}

	s.respondJSON(w, http.StatusOK, publicClass{
		Name:      class.Name,
		StartDate: class.StartDate,
		Status:    class.Status,
		Open:      class.IsOpen(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if ok, msg := s.decodeJSON(w, r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := s.svc.RegisterForClass(r.Context(), r.PathValue("token"), req)
	if err != nil {
		s.respondServiceError(w, err, "register")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"id":   member.ID,
		"name": member.Name,
	})
}
