package models

import (
	"net/url"
	"time"
)

// MemberStatus is the membership status of a person in the church registry
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "Active"
	MemberStatusInactive MemberStatus = "Inactive"
)

// DefaultRole is the role given to members added to a group or class roster.
const DefaultRole = "Participant"

// Member represents a person in the church registry.
type Member struct {
	ID        int64        `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Email     string       `json:"email" db:"email"`
	Phone     string       `json:"phone" db:"phone"`
	Avatar    string       `json:"avatar" db:"avatar_url"`
	Groups    []string     `json:"groups" db:"groups"` // informational labels only
	JoinDate  string       `json:"join_date" db:"join_date"`
	Status    MemberStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// IsActive returns true if the member is active
func (m *Member) IsActive() bool {
	return m.Status == MemberStatusActive
}

// DefaultAvatar returns the generated avatar URL used when a member has none.
func DefaultAvatar(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

// Membership is the join row between a group and a member.
type Membership struct {
	GroupID  int64     `json:"group_id" db:"group_id"`
	MemberID int64     `json:"member_id" db:"member_id"`
	Role     string    `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// RosterMember is a member decorated with the role held in one group.
type RosterMember struct {
	Member
	Role string `json:"role"`
}

// AddResult reports the outcome of a bulk roster add. Pairs that were already
// present are counted, not treated as failures.
type AddResult struct {
	Added          int `json:"added"`
	AlreadyMembers int `json:"already_members"`
}
