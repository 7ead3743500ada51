package models

import "time"

// Group represents a discipleship small group. It is the aggregate root for
// memberships and sessions.
type Group struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Leader         string    `json:"leader" db:"leader"`
	MeetingDay     string    `json:"meeting_day" db:"meeting_day"`
	MeetingTime    string    `json:"meeting_time" db:"meeting_time"`
	Location       string    `json:"location" db:"location"`
	TargetAudience string    `json:"target_audience" db:"target_audience"`
	MembersCount   int       `json:"members_count" db:"members_count"` // counted on read, display only
	ChatID         *int64    `json:"chat_id,omitempty" db:"chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// GroupPatch carries a sparse update: nil fields are left untouched.
type GroupPatch struct {
	Name           *string `json:"name"`
	Leader         *string `json:"leader"`
	MeetingDay     *string `json:"meeting_day"`
	MeetingTime    *string `json:"meeting_time"`
	Location       *string `json:"location"`
	TargetAudience *string `json:"target_audience"`
}

// IsEmpty reports whether the patch would not change anything.
func (p GroupPatch) IsEmpty() bool {
	return p.Name == nil && p.Leader == nil && p.MeetingDay == nil &&
		p.MeetingTime == nil && p.Location == nil && p.TargetAudience == nil
}

// IsLinked returns true if the group has a Telegram chat bound to it
func (g *Group) IsLinked() bool {
	return g.ChatID != nil
}
