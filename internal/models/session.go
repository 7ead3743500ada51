package models

import "time"

// DateLayout is the calendar date format used for sessions, lessons and join dates.
const DateLayout = "2006-01-02"

// Session is one dated meeting of a group with its attendance record.
type Session struct {
	ID               int64     `json:"id" db:"id"`
	GroupID          int64     `json:"group_id" db:"group_id"`
	Date             string    `json:"date" db:"date"`
	LessonName       string    `json:"lesson_name" db:"lesson_name"`
	PresentMemberIDs []int64   `json:"present_member_ids"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// SessionInput is the payload of a save: without ID a session is created,
// with ID the session is rewritten and its attendance fully replaced.
type SessionInput struct {
	ID               *int64  `json:"id,omitempty"`
	Date             string  `json:"date"`
	LessonName       string  `json:"lesson_name"`
	PresentMemberIDs []int64 `json:"present_member_ids"`
}

// HistoryEntry is a session decorated with the current roster size.
// TotalMembers is the size at read time, not at the time of the session.
type HistoryEntry struct {
	Session
	TotalMembers   int     `json:"total_members"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// GroupSnapshot is the read model behind the group detail view.
type GroupSnapshot struct {
	Group       *Group          `json:"group"`
	Members     []*RosterMember `json:"members"`
	History     []HistoryEntry  `json:"history"`
	NextMeeting string          `json:"next_meeting"`
}
