package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// TxManager runs a function inside a single database transaction. Repository
// calls made with the context passed to fn join that transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MemberRepository defines the interface for the member registry
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) (*models.Member, error)
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	List(ctx context.Context, filters MemberFilters) ([]*models.Member, error)
}

// GroupRepository defines the interface for discipleship group operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) (*models.Group, error)
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.Group, error)
	List(ctx context.Context) ([]*models.Group, error)
	ListLinked(ctx context.Context) ([]*models.Group, error)
	Update(ctx context.Context, id int64, patch models.GroupPatch) error
	SetChatID(ctx context.Context, id int64, chatID *int64) error
	Delete(ctx context.Context, id int64) error
}

// MembershipRepository defines the interface for the group roster
type MembershipRepository interface {
	// Add inserts one row per member id and returns how many were new.
	Add(ctx context.Context, groupID int64, memberIDs []int64, role string) (int, error)
	// Remove deletes the row of the pair and returns how many rows went away.
	Remove(ctx context.Context, groupID, memberID int64) (int, error)
	ListMembers(ctx context.Context, groupID int64) ([]*models.RosterMember, error)
	Count(ctx context.Context, groupID int64) (int, error)
}

// SessionRepository defines the interface for the session/attendance ledger
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	ReplaceAttendance(ctx context.Context, sessionID int64, memberIDs []int64) error
	ListByGroup(ctx context.Context, groupID int64) ([]*models.Session, error)
}

// ClassRepository defines the interface for new member classes
type ClassRepository interface {
	Create(ctx context.Context, class *models.NewMemberClass) (*models.NewMemberClass, error)
	CreateLessons(ctx context.Context, lessons []*models.ClassLesson) error
	GetByID(ctx context.Context, id int64) (*models.NewMemberClass, error)
	GetByToken(ctx context.Context, token uuid.UUID) (*models.NewMemberClass, error)
	List(ctx context.Context) ([]*models.NewMemberClass, error)
	Update(ctx context.Context, id int64, patch models.ClassPatch) error
	GetLesson(ctx context.Context, id int64) (*models.ClassLesson, error)
	UpdateLesson(ctx context.Context, id int64, patch models.LessonPatch) error
	AddStudents(ctx context.Context, classID int64, memberIDs []int64) (int, error)
	RemoveStudent(ctx context.Context, classID, memberID int64) error
	ReplaceLessonAttendance(ctx context.Context, lessonID int64, records []models.LessonAttendance) error
	LessonAttendance(ctx context.Context, lessonID int64) ([]models.LessonAttendance, error)
}

// MemberFilters represents filters for querying the member registry
type MemberFilters struct {
	Search string
	Status *models.MemberStatus
	IDs    []int64
	Limit  int
	Offset int
}
