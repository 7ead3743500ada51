// Package testutil provides in-memory fakes of the persistence layer for
// service, API and handler tests.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

type rosterRow struct {
	groupID, memberID int64
	role              string
	seq               int64
	joinedAt          time.Time
}

type studentRow struct {
	classID, memberID int64
	seq               int64
}

type memState struct {
	seq              int64
	members          map[int64]models.Member
	groups           map[int64]models.Group
	roster           []rosterRow
	sessions         map[int64]models.Session
	attendance       map[int64][]int64
	classes          map[int64]models.NewMemberClass
	lessons          map[int64]models.ClassLesson
	students         []studentRow
	lessonAttendance map[int64][]models.LessonAttendance
}

func newMemState() *memState {
	return &memState{
		members:          map[int64]models.Member{},
		groups:           map[int64]models.Group{},
		sessions:         map[int64]models.Session{},
		attendance:       map[int64][]int64{},
		classes:          map[int64]models.NewMemberClass{},
		lessons:          map[int64]models.ClassLesson{},
		lessonAttendance: map[int64][]models.LessonAttendance{},
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	c.seq = st.seq
	for k, v := range st.members {
		v.Groups = slices.Clone(v.Groups)
		c.members[k] = v
	}
	for k, v := range st.groups {
		c.groups[k] = v
	}
	c.roster = slices.Clone(st.roster)
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.attendance {
		c.attendance[k] = slices.Clone(v)
	}
	for k, v := range st.classes {
		c.classes[k] = v
	}
	for k, v := range st.lessons {
		c.lessons[k] = v
	}
	c.students = slices.Clone(st.students)
	for k, v := range st.lessonAttendance {
		c.lessonAttendance[k] = slices.Clone(v)
	}
	return c
}

func (st *memState) next() int64 {
	st.seq++
	return st.seq
}

// MemStore keeps every table in memory and mimics the PostgreSQL schema:
// ids are generated, foreign keys are checked (reported as models.ErrNotFound),
// composite keys are deduplicated and deletes cascade.
type MemStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{state: newMemState(), now: time.Now}
}

// Members returns the member registry backed by the store.
func (s *MemStore) Members() repository.MemberRepository { return &memberRepo{s} }

// Groups returns the group repository backed by the store.
func (s *MemStore) Groups() repository.GroupRepository { return &groupRepo{s} }

// Memberships returns the roster repository backed by the store.
func (s *MemStore) Memberships() repository.MembershipRepository { return &membershipRepo{s} }

// Sessions returns the session repository backed by the store.
func (s *MemStore) Sessions() repository.SessionRepository { return &sessionRepo{s} }

// Classes returns the class repository backed by the store.
func (s *MemStore) Classes() repository.ClassRepository { return &classRepo{s} }

// TxManager returns a transaction manager that restores the previous state
// when fn fails.
func (s *MemStore) TxManager() repository.TxManager { return &memTx{s} }

type txKey struct{}

type memTx struct{ s *MemStore }

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.s.mu.Lock()
	snapshot := t.s.state.clone()
	t.s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.mu.Lock()
		t.s.state = snapshot
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// SessionCount returns the number of stored sessions of a group.
func (s *MemStore) SessionCount(groupID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.state.sessions {
		if sess.GroupID == groupID {
			n++
		}
	}
	return n
}

// MemberCount returns the number of members in the registry.
func (s *MemStore) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.members)
}

// DeleteClass drops a class with its lessons and students, the way the
// database cascades a DELETE on new_member_classes.
func (s *MemStore) DeleteClass(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	delete(st.classes, id)
	for lessonID, l := range st.lessons {
		if l.ClassID == id {
			delete(st.lessons, lessonID)
			delete(st.lessonAttendance, lessonID)
		}
	}
	st.students = slices.DeleteFunc(st.students, func(row studentRow) bool {
		return row.classID == id
	})
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, models.ErrNotFound)
}

// ---- members ----

type memberRepo struct{ s *MemStore }

func (r *memberRepo) Create(_ context.Context, member *models.Member) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if member.Status == "" {
		member.Status = models.MemberStatusActive
	}
	if member.Status != models.MemberStatusActive && member.Status != models.MemberStatusInactive {
		return nil, fmt.Errorf("status %q: %w", member.Status, models.ErrValidation)
	}
	if member.Groups == nil {
		member.Groups = []string{}
	}
	now := r.s.now()
	if member.JoinDate == "" {
		member.JoinDate = now.Format(models.DateLayout)
	}
	member.ID = r.s.state.next()
	member.CreatedAt = now
	member.UpdatedAt = now

	stored := *member
	stored.Groups = slices.Clone(member.Groups)
	r.s.state.members[member.ID] = stored
	return member, nil
}

func (r *memberRepo) GetByID(_ context.Context, id int64) (*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.state.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *memberRepo) List(_ context.Context, f repository.MemberFilters) ([]*models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(f.Search)
	out := []*models.Member{}
	for _, m := range r.s.state.members {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.Email), search) &&
			!strings.Contains(strings.ToLower(m.Phone), search) {
			continue
		}
		if f.Status != nil && m.Status != *f.Status {
			continue
		}
		if f.IDs != nil && !slices.Contains(f.IDs, m.ID) {
			continue
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*models.Member{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

// ---- groups ----

type groupRepo struct{ s *MemStore }

func (r *groupRepo) withCount(g models.Group) *models.Group {
	g.MembersCount = 0
	for _, row := range r.s.state.roster {
		if row.groupID == g.ID {
			g.MembersCount++
		}
	}
	return &g
}

func (r *groupRepo) Create(_ context.Context, group *models.Group) (*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if group.ChatID != nil {
		for _, g := range r.s.state.groups {
			if g.ChatID != nil && *g.ChatID == *group.ChatID {
				return nil, fmt.Errorf("chat %d: %w", *group.ChatID, models.ErrAlreadyExists)
			}
		}
	}
	now := r.s.now()
	group.ID = r.s.state.next()
	group.CreatedAt = now
	group.UpdatedAt = now
	group.MembersCount = 0
	r.s.state.groups[group.ID] = *group
	return group, nil
}

func (r *groupRepo) GetByID(_ context.Context, id int64) (*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return nil, nil
	}
	return r.withCount(g), nil
}

func (r *groupRepo) GetByChatID(_ context.Context, chatID int64) (*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, g := range r.s.state.groups {
		if g.ChatID != nil && *g.ChatID == chatID {
			return r.withCount(g), nil
		}
	}
	return nil, nil
}

func (r *groupRepo) List(_ context.Context) ([]*models.Group, error) {
	return r.list(false), nil
}

func (r *groupRepo) ListLinked(_ context.Context) ([]*models.Group, error) {
	return r.list(true), nil
}

func (r *groupRepo) list(linkedOnly bool) []*models.Group {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.Group{}
	for _, g := range r.s.state.groups {
		if linkedOnly && g.ChatID == nil {
			continue
		}
		out = append(out, r.withCount(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *groupRepo) Update(_ context.Context, id int64, p models.GroupPatch) error {
	if p.IsEmpty() {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return notFound("group", id)
	}
	setIf(&g.Name, p.Name)
	setIf(&g.Leader, p.Leader)
	setIf(&g.MeetingDay, p.MeetingDay)
	setIf(&g.MeetingTime, p.MeetingTime)
	setIf(&g.Location, p.Location)
	setIf(&g.TargetAudience, p.TargetAudience)
	g.UpdatedAt = r.s.now()
	r.s.state.groups[id] = g
	return nil
}

func (r *groupRepo) SetChatID(_ context.Context, id int64, chatID *int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.state.groups[id]
	if !ok {
		return notFound("group", id)
	}
	if chatID != nil {
		for _, other := range r.s.state.groups {
			if other.ID != id && other.ChatID != nil && *other.ChatID == *chatID {
				return fmt.Errorf("chat %d: %w", *chatID, models.ErrAlreadyExists)
			}
		}
		v := *chatID
		chatID = &v
	}
	g.ChatID = chatID
	g.UpdatedAt = r.s.now()
	r.s.state.groups[id] = g
	return nil
}

func (r *groupRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	delete(st.groups, id)
	st.roster = slices.DeleteFunc(st.roster, func(row rosterRow) bool { return row.groupID == id })
	for sid, sess := range st.sessions {
		if sess.GroupID == id {
			delete(st.sessions, sid)
			delete(st.attendance, sid)
		}
	}
	return nil
}

// ---- memberships ----

type membershipRepo struct{ s *MemStore }

func (r *membershipRepo) Add(_ context.Context, groupID int64, memberIDs []int64, role string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.groups[groupID]; !ok {
		return 0, notFound("group", groupID)
	}
	for _, id := range memberIDs {
		if _, ok := st.members[id]; !ok {
			return 0, notFound("member", id)
		}
	}

	added := 0
	for _, id := range memberIDs {
		exists := slices.ContainsFunc(st.roster, func(row rosterRow) bool {
			return row.groupID == groupID && row.memberID == id
		})
		if exists {
			continue
		}
		st.roster = append(st.roster, rosterRow{
			groupID: groupID, memberID: id, role: role, seq: st.next(), joinedAt: r.s.now(),
		})
		added++
	}
	return added, nil
}

func (r *membershipRepo) Remove(_ context.Context, groupID, memberID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	before := len(r.s.state.roster)
	r.s.state.roster = slices.DeleteFunc(r.s.state.roster, func(row rosterRow) bool {
		return row.groupID == groupID && row.memberID == memberID
	})
	return before - len(r.s.state.roster), nil
}

func (r *membershipRepo) ListMembers(_ context.Context, groupID int64) ([]*models.RosterMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := []rosterRow{}
	for _, row := range r.s.state.roster {
		if row.groupID == groupID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := []*models.RosterMember{}
	for _, row := range rows {
		m := r.s.state.members[row.memberID]
		m.Groups = slices.Clone(m.Groups)
		out = append(out, &models.RosterMember{Member: m, Role: row.role})
	}
	return out, nil
}

func (r *membershipRepo) Count(_ context.Context, groupID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, row := range r.s.state.roster {
		if row.groupID == groupID {
			n++
		}
	}
	return n, nil
}

// ---- sessions ----

type sessionRepo struct{ s *MemStore }

func validDate(s string) error {
	if _, err := time.Parse(models.DateLayout, s); err != nil {
		return fmt.Errorf("date %q: %w", s, models.ErrValidation)
	}
	return nil
}

func (r *sessionRepo) Create(_ context.Context, session *models.Session) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.state.groups[session.GroupID]; !ok {
		return nil, notFound("group", session.GroupID)
	}
	if err := validDate(session.Date); err != nil {
		return nil, err
	}
	now := r.s.now()
	session.ID = r.s.state.next()
	session.CreatedAt = now
	session.UpdatedAt = now

	stored := *session
	stored.PresentMemberIDs = nil
	r.s.state.sessions[session.ID] = stored
	return session, nil
}

func (r *sessionRepo) Update(_ context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.state.sessions[session.ID]
	if !ok || stored.GroupID != session.GroupID {
		return notFound("session", session.ID)
	}
	if err := validDate(session.Date); err != nil {
		return err
	}
	stored.Date = session.Date
	stored.LessonName = session.LessonName
	stored.UpdatedAt = r.s.now()
	r.s.state.sessions[session.ID] = stored

	session.CreatedAt = stored.CreatedAt
	session.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *sessionRepo) ReplaceAttendance(_ context.Context, sessionID int64, memberIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.sessions[sessionID]; !ok {
		return notFound("session", sessionID)
	}
	ids := []int64{}
	for _, id := range memberIDs {
		if _, ok := st.members[id]; !ok {
			return notFound("member", id)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	st.attendance[sessionID] = ids
	return nil
}

func (r *sessionRepo) ListByGroup(_ context.Context, groupID int64) ([]*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.Session{}
	for _, sess := range r.s.state.sessions {
		if sess.GroupID != groupID {
			continue
		}
		sess.PresentMemberIDs = slices.Clone(r.s.state.attendance[sess.ID])
		if sess.PresentMemberIDs == nil {
			sess.PresentMemberIDs = []int64{}
		}
		slices.Sort(sess.PresentMemberIDs)
		out = append(out, &sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ---- classes ----

type classRepo struct{ s *MemStore }

func (r *classRepo) Create(_ context.Context, class *models.NewMemberClass) (*models.NewMemberClass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := validDate(class.StartDate); err != nil {
		return nil, err
	}
	if class.RegistrationToken == uuid.Nil {
		class.RegistrationToken = uuid.New()
	}
	now := r.s.now()
	class.ID = r.s.state.next()
	class.CreatedAt = now
	class.UpdatedAt = now
	class.Lessons = []models.ClassLesson{}
	class.Students = []models.Member{}

	stored := *class
	stored.Lessons = nil
	stored.Students = nil
	r.s.state.classes[class.ID] = stored
	return class, nil
}

func (r *classRepo) CreateLessons(_ context.Context, lessons []*models.ClassLesson) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, l := range lessons {
		if _, ok := r.s.state.classes[l.ClassID]; !ok {
			return notFound("class", l.ClassID)
		}
		if err := validDate(l.Date); err != nil {
			return err
		}
	}
	for _, l := range lessons {
		l.ID = r.s.state.next()
		stored := *l
		stored.AttendanceCount = 0
		r.s.state.lessons[l.ID] = stored
	}
	return nil
}

func (r *classRepo) detailed(c models.NewMemberClass) *models.NewMemberClass {
	st := r.s.state

	c.Lessons = []models.ClassLesson{}
	for _, l := range st.lessons {
		if l.ClassID == c.ID {
			c.Lessons = append(c.Lessons, r.lessonWithCount(l))
		}
	}
	sort.Slice(c.Lessons, func(i, j int) bool {
		if c.Lessons[i].Date != c.Lessons[j].Date {
			return c.Lessons[i].Date < c.Lessons[j].Date
		}
		return c.Lessons[i].ID < c.Lessons[j].ID
	})

	rows := []studentRow{}
	for _, row := range st.students {
		if row.classID == c.ID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	c.Students = []models.Member{}
	for _, row := range rows {
		m := st.members[row.memberID]
		m.Groups = slices.Clone(m.Groups)
		c.Students = append(c.Students, m)
	}
	return &c
}

func (r *classRepo) lessonWithCount(l models.ClassLesson) models.ClassLesson {
	l.AttendanceCount = 0
	for _, rec := range r.s.state.lessonAttendance[l.ID] {
		if rec.Present {
			l.AttendanceCount++
		}
	}
	return l
}

func (r *classRepo) GetByID(_ context.Context, id int64) (*models.NewMemberClass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.state.classes[id]
	if !ok {
		return nil, nil
	}
	return r.detailed(c), nil
}

func (r *classRepo) GetByToken(_ context.Context, token uuid.UUID) (*models.NewMemberClass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.state.classes {
		if c.RegistrationToken == token {
			return r.detailed(c), nil
		}
	}
	return nil, nil
}

func (r *classRepo) List(_ context.Context) ([]*models.NewMemberClass, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*models.NewMemberClass{}
	for _, c := range r.s.state.classes {
		out = append(out, r.detailed(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate > out[j].StartDate
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *classRepo) Update(_ context.Context, id int64, p models.ClassPatch) error {
	if p.IsEmpty() {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.state.classes[id]
	if !ok {
		return notFound("class", id)
	}
	if p.StartDate != nil {
		if err := validDate(*p.StartDate); err != nil {
			return err
		}
		c.StartDate = *p.StartDate
	}
	setIf(&c.Name, p.Name)
	if p.Status != nil {
		c.Status = *p.Status
	}
	c.UpdatedAt = r.s.now()
	r.s.state.classes[id] = c
	return nil
}

func (r *classRepo) GetLesson(_ context.Context, id int64) (*models.ClassLesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.state.lessons[id]
	if !ok {
		return nil, nil
	}
	l = r.lessonWithCount(l)
	return &l, nil
}

func (r *classRepo) UpdateLesson(_ context.Context, id int64, p models.LessonPatch) error {
	if p.IsEmpty() {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.state.lessons[id]
	if !ok {
		return notFound("lesson", id)
	}
	if p.Date != nil {
		if err := validDate(*p.Date); err != nil {
			return err
		}
		l.Date = *p.Date
	}
	setIf(&l.Title, p.Title)
	if p.Completed != nil {
		l.Completed = *p.Completed
	}
	r.s.state.lessons[id] = l
	return nil
}

func (r *classRepo) AddStudents(_ context.Context, classID int64, memberIDs []int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.classes[classID]; !ok {
		return 0, notFound("class", classID)
	}
	for _, id := range memberIDs {
		if _, ok := st.members[id]; !ok {
			return 0, notFound("member", id)
		}
	}
	added := 0
	for _, id := range memberIDs {
		exists := slices.ContainsFunc(st.students, func(row studentRow) bool {
			return row.classID == classID && row.memberID == id
		})
		if exists {
			continue
		}
		st.students = append(st.students, studentRow{classID: classID, memberID: id, seq: st.next()})
		added++
	}
	return added, nil
}

func (r *classRepo) RemoveStudent(_ context.Context, classID, memberID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.state.students = slices.DeleteFunc(r.s.state.students, func(row studentRow) bool {
		return row.classID == classID && row.memberID == memberID
	})
	return nil
}

func (r *classRepo) ReplaceLessonAttendance(_ context.Context, lessonID int64, records []models.LessonAttendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.lessons[lessonID]; !ok {
		return notFound("lesson", lessonID)
	}
	byMember := map[int64]models.LessonAttendance{}
	for _, rec := range records {
		if _, ok := st.members[rec.MemberID]; !ok {
			return notFound("member", rec.MemberID)
		}
		rec.LessonID = lessonID
		byMember[rec.MemberID] = rec
	}
	out := make([]models.LessonAttendance, 0, len(byMember))
	for _, rec := range byMember {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	st.lessonAttendance[lessonID] = out
	return nil
}

func (r *classRepo) LessonAttendance(_ context.Context, lessonID int64) ([]models.LessonAttendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := slices.Clone(r.s.state.lessonAttendance[lessonID])
	if out == nil {
		out = []models.LessonAttendance{}
	}
	return out, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
