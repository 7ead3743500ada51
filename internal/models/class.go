package models

import (
	"time"

	"github.com/google/uuid"
)

// ClassStatus is the lifecycle status of a new member class
type ClassStatus string

const (
	ClassStatusOpen     ClassStatus = "Em Andamento"
	ClassStatusFinished ClassStatus = "Concluída"
)

// DefaultLessonCount is the number of weekly lessons seeded for a new class.
const DefaultLessonCount = 8

// NewMemberClass represents an integration class for new members.
type NewMemberClass struct {
	ID                int64         `json:"id" db:"id"`
	Name              string        `json:"name" db:"name"`
	StartDate         string        `json:"start_date" db:"start_date"`
	Status            ClassStatus   `json:"status" db:"status"`
	RegistrationToken uuid.UUID     `json:"registration_token" db:"registration_token"`
	Lessons           []ClassLesson `json:"lessons"`
	Students          []Member      `json:"students"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// IsOpen returns true if the class accepts public registrations
func (c *NewMemberClass) IsOpen() bool {
	return c.Status == ClassStatusOpen
}

// StudentIDs returns the ids of the enrolled students.
func (c *NewMemberClass) StudentIDs() []int64 {
	ids := make([]int64, 0, len(c.Students))
	for _, s := range c.Students {
		ids = append(ids, s.ID)
	}
	return ids
}

// ClassLesson is one lesson of a class.
type ClassLesson struct {
	ID              int64  `json:"id" db:"id"`
	ClassID         int64  `json:"class_id" db:"class_id"`
	Title           string `json:"title" db:"title"`
	Date            string `json:"date" db:"date"`
	Completed       bool   `json:"completed" db:"completed"`
	AttendanceCount int    `json:"attendance_count"`
}

// LessonAttendance is the per-student record of a lesson.
type LessonAttendance struct {
	LessonID    int64 `json:"lesson_id" db:"lesson_id"`
	MemberID    int64 `json:"member_id" db:"member_id"`
	Present     bool  `json:"present" db:"present"`
	SummaryDone bool  `json:"summary_done" db:"summary_done"`
}

// ClassPatch carries a sparse class update.
type ClassPatch struct {
	Name      *string      `json:"name"`
	StartDate *string      `json:"start_date"`
	Status    *ClassStatus `json:"status"`
}

// IsEmpty reports whether the patch would not change anything.
func (p ClassPatch) IsEmpty() bool {
	return p.Name == nil && p.StartDate == nil && p.Status == nil
}

// LessonPatch carries a sparse lesson update.
type LessonPatch struct {
	Title     *string `json:"title"`
	Date      *string `json:"date"`
	Completed *bool   `json:"completed"`
}

// IsEmpty reports whether the patch would not change anything.
func (p LessonPatch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Completed == nil
}

// Registration is what an unauthenticated visitor submits through the
// public invite link.
type Registration struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// InviteLink is the shareable registration link of a class and its QR image.
type InviteLink struct {
	URL       string `json:"url"`
	QRCodeURL string `json:"qr_code_url"`
}
