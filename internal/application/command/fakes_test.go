package command

import (
	"context"
	"sort"

	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/progress"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/title"
	"github.com/trailroom/trailroom-hub/internal/domain/track"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

// In-memory repositories for handler tests. They mirror the persistence
// contracts closely enough that the handlers cannot tell the difference:
// the same sentinel errors, the same idempotency rules, the same counts.

// ─────────────────────────────────────────────────────────────────────────────
// Room repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeRoomRepo struct {
	rooms       map[string]*room.Room
	memberships []*room.Membership

	// createFails makes the next N Create calls report a join code
	// collision, for exercising the regeneration loop.
	createFails int
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*room.Room)}
}

func (f *fakeRoomRepo) Create(_ context.Context, r *room.Room) error {
	if f.createFails > 0 {
		f.createFails--
		return room.ErrRoomAlreadyExists
	}
	for _, existing := range f.rooms {
		if existing.Code == r.Code {
			return room.ErrRoomAlreadyExists
		}
	}
	f.rooms[r.ID] = r
	return nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, id string) (*room.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return r, nil
}

func (f *fakeRoomRepo) GetByCode(_ context.Context, code room.JoinCode) (*room.Room, error) {
	for _, r := range f.rooms {
		if r.Code == code {
			return r, nil
		}
	}
	return nil, room.ErrRoomNotFound
}

func (f *fakeRoomRepo) AddMembership(_ context.Context, m *room.Membership) error {
	for _, existing := range f.memberships {
		if existing.UserID == m.UserID && existing.RoomID == m.RoomID {
			return room.ErrMembershipExists
		}
	}
	f.memberships = append(f.memberships, m)
	return nil
}

func (f *fakeRoomRepo) GetMembership(_ context.Context, userID, roomID string) (*room.Membership, error) {
	for _, m := range f.memberships {
		if m.UserID == userID && m.RoomID == roomID {
			return m, nil
		}
	}
	return nil, room.ErrMembershipNotFound
}

func (f *fakeRoomRepo) GetMembershipByID(_ context.Context, id string) (*room.Membership, error) {
	for _, m := range f.memberships {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, room.ErrMembershipNotFound
}

func (f *fakeRoomRepo) ListStudentMemberships(_ context.Context, roomID string) ([]*room.Membership, error) {
	var out []*room.Membership
	for _, m := range f.memberships {
		if m.RoomID == roomID && m.IsStudent() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) RoleOf(_ context.Context, userID, roomID string) (room.Role, error) {
	for _, m := range f.memberships {
		if m.UserID == userID && m.RoomID == roomID {
			return m.Role, nil
		}
	}
	return room.RoleNone, nil
}

// addMember seeds a membership directly, bypassing duplicate checks.
func (f *fakeRoomRepo) addMember(id, userID, roomID string, role room.Role) *room.Membership {
	m := &room.Membership{ID: id, UserID: userID, RoomID: roomID, Role: role}
	f.memberships = append(f.memberships, m)
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Mission repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeMissionRepo struct {
	missions    map[string]*mission.Mission
	submissions map[string]map[string]*mission.Submission
	grades      map[string]*mission.Grade
}

func newFakeMissionRepo() *fakeMissionRepo {
	return &fakeMissionRepo{
		missions:    make(map[string]*mission.Mission),
		submissions: make(map[string]map[string]*mission.Submission),
		grades:      make(map[string]*mission.Grade),
	}
}

func gradeKey(missionID, studentID string) string {
	return missionID + "|" + studentID
}

func (f *fakeMissionRepo) CreateMission(_ context.Context, m *mission.Mission) error {
	f.missions[m.ID] = m
	return nil
}

func (f *fakeMissionRepo) GetMission(_ context.Context, id string) (*mission.Mission, error) {
	m, ok := f.missions[id]
	if !ok {
		return nil, mission.ErrMissionNotFound
	}
	return m, nil
}

func (f *fakeMissionRepo) UpdateMissionStatus(_ context.Context, id string, status mission.Status) error {
	m, ok := f.missions[id]
	if !ok {
		return mission.ErrMissionNotFound
	}
	m.Status = status
	return nil
}

func (f *fakeMissionRepo) AddSubmission(_ context.Context, s *mission.Submission) error {
	if _, ok := f.missions[s.MissionID]; !ok {
		return mission.ErrMissionNotFound
	}
	byStudent := f.submissions[s.MissionID]
	if byStudent == nil {
		byStudent = make(map[string]*mission.Submission)
		f.submissions[s.MissionID] = byStudent
	}
	if _, ok := byStudent[s.StudentID]; ok {
		return mission.ErrAlreadySubmitted
	}
	byStudent[s.StudentID] = s
	return nil
}

func (f *fakeMissionRepo) CountSubmissions(_ context.Context, missionID string) (int, error) {
	return len(f.submissions[missionID]), nil
}

func (f *fakeMissionRepo) GetGrade(_ context.Context, missionID, studentID string) (*mission.Grade, error) {
	g, ok := f.grades[gradeKey(missionID, studentID)]
	if !ok {
		return nil, mission.ErrGradeNotFound
	}
	copied := *g
	return &copied, nil
}

func (f *fakeMissionRepo) SaveGrade(_ context.Context, g *mission.Grade) error {
	copied := *g
	f.grades[gradeKey(g.MissionID, g.StudentID)] = &copied
	return nil
}

func (f *fakeMissionRepo) CountGradedSubmitters(_ context.Context, missionID string) (int, error) {
	n := 0
	for _, g := range f.grades {
		if g.MissionID != missionID {
			continue
		}
		if _, ok := f.submissions[missionID][g.StudentID]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeMissionRepo) SumPointsForUser(_ context.Context, userID string) (int, error) {
	sum := 0
	for _, g := range f.grades {
		if g.StudentID == userID {
			sum += g.PointsAwarded
		}
	}
	return sum, nil
}

func (f *fakeMissionRepo) SumPointsForUserInRoom(_ context.Context, userID, roomID string) (int, error) {
	sum := 0
	for _, g := range f.grades {
		if g.StudentID != userID {
			continue
		}
		if m, ok := f.missions[g.MissionID]; ok && m.RoomID == roomID {
			sum += g.PointsAwarded
		}
	}
	return sum, nil
}

func (f *fakeMissionRepo) CountCompletedForUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, g := range f.grades {
		if g.StudentID == userID && g.CountsAsCompleted() {
			n++
		}
	}
	return n, nil
}

func (f *fakeMissionRepo) CountCompletedForUserInRoom(_ context.Context, userID, roomID string) (int, error) {
	n := 0
	for _, g := range f.grades {
		if g.StudentID != userID || !g.CountsAsCompleted() {
			continue
		}
		if m, ok := f.missions[g.MissionID]; ok && m.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// User repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeUserRepo struct {
	users map[string]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := f.users[u.ID]; ok {
		return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "user already exists")
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeUserRepo) ApplyPointsDelta(_ context.Context, userID string, delta int) error {
	u, ok := f.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	u.TotalPoints += delta
	return nil
}

func (f *fakeUserRepo) SetTotalPoints(_ context.Context, userID string, total int) error {
	u, ok := f.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	u.TotalPoints = total
	return nil
}

func (f *fakeUserRepo) add(id string, points int) *user.User {
	u := &user.User{ID: id, DisplayName: id, TotalPoints: points}
	f.users[id] = u
	return u
}

// ─────────────────────────────────────────────────────────────────────────────
// Track repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeTrackRepo struct {
	tracks   map[string]*track.Track
	modules  map[string]*track.Module
	contents map[string]*track.ContentItem
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{
		tracks:   make(map[string]*track.Track),
		modules:  make(map[string]*track.Module),
		contents: make(map[string]*track.ContentItem),
	}
}

func (f *fakeTrackRepo) GetTrack(_ context.Context, id string) (*track.Track, error) {
	t, ok := f.tracks[id]
	if !ok {
		return nil, track.ErrTrackNotFound
	}
	return t, nil
}

func (f *fakeTrackRepo) ListTracks(_ context.Context, roomID string) ([]*track.Track, error) {
	var out []*track.Track
	for _, t := range f.tracks {
		if t.RoomID == roomID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (f *fakeTrackRepo) ListModules(_ context.Context, trackID string) ([]*track.Module, error) {
	var out []*track.Module
	for _, m := range f.modules {
		if m.TrackID == trackID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (f *fakeTrackRepo) GetModule(_ context.Context, id string) (*track.Module, error) {
	m, ok := f.modules[id]
	if !ok {
		return nil, track.ErrModuleNotFound
	}
	return m, nil
}

func (f *fakeTrackRepo) ListContents(_ context.Context, moduleID string) ([]*track.ContentItem, error) {
	var out []*track.ContentItem
	for _, c := range f.contents {
		if c.ModuleID == moduleID {
			out = append(out, c)
		}
	}
	track.SortContents(out)
	return out, nil
}

func (f *fakeTrackRepo) GetContent(_ context.Context, id string) (*track.ContentItem, error) {
	c, ok := f.contents[id]
	if !ok {
		return nil, track.ErrContentNotFound
	}
	return c, nil
}

func (f *fakeTrackRepo) CountTrackContents(_ context.Context, trackID string) (int, error) {
	n := 0
	for _, c := range f.contents {
		if m, ok := f.modules[c.ModuleID]; ok && m.TrackID == trackID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTrackRepo) CreateTrack(_ context.Context, t *track.Track) error {
	f.tracks[t.ID] = t
	return nil
}

func (f *fakeTrackRepo) CreateModule(_ context.Context, m *track.Module) error {
	f.modules[m.ID] = m
	return nil
}

func (f *fakeTrackRepo) CreateContent(_ context.Context, c *track.ContentItem) error {
	f.contents[c.ID] = c
	return nil
}

func (f *fakeTrackRepo) CountRoomTracks(_ context.Context, roomID string) (int, error) {
	n := 0
	for _, t := range f.tracks {
		if t.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

// trackOf resolves which track a content item belongs to.
func (f *fakeTrackRepo) trackOf(contentID string) string {
	c, ok := f.contents[contentID]
	if !ok {
		return ""
	}
	m, ok := f.modules[c.ModuleID]
	if !ok {
		return ""
	}
	return m.TrackID
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	records map[string]*progress.ViewRecord

	// graph resolves content to track for the aggregate counts.
	graph *fakeTrackRepo
}

func newFakeProgressRepo(graph *fakeTrackRepo) *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]*progress.ViewRecord), graph: graph}
}

func viewKey(userID, contentID string) string {
	return userID + "|" + contentID
}

func (f *fakeProgressRepo) Get(_ context.Context, userID, contentID string) (*progress.ViewRecord, error) {
	v, ok := f.records[viewKey(userID, contentID)]
	if !ok {
		return nil, progress.ErrViewNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeProgressRepo) Upsert(_ context.Context, v *progress.ViewRecord) error {
	copied := *v
	f.records[viewKey(v.UserID, v.ContentID)] = &copied
	return nil
}

func (f *fakeProgressRepo) CountCompletedInModule(_ context.Context, userID, moduleID string) (int, error) {
	n := 0
	for _, v := range f.records {
		if v.UserID != userID || !v.Completed {
			continue
		}
		if c, ok := f.graph.contents[v.ContentID]; ok && c.ModuleID == moduleID {
			n++
		}
	}
	return n, nil
}

func (f *fakeProgressRepo) CountCompletedInTrack(_ context.Context, userID, trackID string) (int, error) {
	n := 0
	for _, v := range f.records {
		if v.UserID == userID && v.Completed && f.graph.trackOf(v.ContentID) == trackID {
			n++
		}
	}
	return n, nil
}

// fakeProgressCache records cache traffic for assertion.
type fakeProgressCache struct {
	values        map[string]float64
	invalidations []string
}

func newFakeProgressCache() *fakeProgressCache {
	return &fakeProgressCache{values: make(map[string]float64)}
}

func (f *fakeProgressCache) GetTrackPercent(_ context.Context, userID, trackID string) (float64, bool, error) {
	v, ok := f.values[userID+"|"+trackID]
	return v, ok, nil
}

func (f *fakeProgressCache) SetTrackPercent(_ context.Context, userID, trackID string, percent float64) error {
	f.values[userID+"|"+trackID] = percent
	return nil
}

func (f *fakeProgressCache) InvalidateTrack(_ context.Context, userID, trackID string) error {
	key := userID + "|" + trackID
	delete(f.values, key)
	f.invalidations = append(f.invalidations, key)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Title repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeTitleRepo struct {
	titles map[string]*title.Title
	grants []*title.Grant
}

func newFakeTitleRepo() *fakeTitleRepo {
	return &fakeTitleRepo{titles: make(map[string]*title.Title)}
}

func (f *fakeTitleRepo) Create(_ context.Context, t *title.Title) error {
	f.titles[t.ID] = t
	return nil
}

func (f *fakeTitleRepo) GetByID(_ context.Context, id string) (*title.Title, error) {
	t, ok := f.titles[id]
	if !ok {
		return nil, title.ErrTitleNotFound
	}
	return t, nil
}

func (f *fakeTitleRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.titles[id]; !ok {
		return title.ErrTitleNotFound
	}
	delete(f.titles, id)
	return nil
}

func (f *fakeTitleRepo) ListGlobal(_ context.Context) ([]*title.Title, error) {
	var out []*title.Title
	for _, t := range f.titles {
		if t.Scope == title.ScopeGlobal {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTitleRepo) ListForRoom(_ context.Context, roomID string) ([]*title.Title, error) {
	var out []*title.Title
	for _, t := range f.titles {
		if t.Scope == title.ScopeRoom && t.RoomID == roomID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTitleRepo) SaveGrant(_ context.Context, g *title.Grant) (bool, error) {
	for _, existing := range f.grants {
		if existing.TitleID != g.TitleID {
			continue
		}
		if g.UserID != "" && existing.UserID == g.UserID {
			return false, nil
		}
		if g.MembershipID != "" && existing.MembershipID == g.MembershipID {
			return false, nil
		}
	}
	f.grants = append(f.grants, g)
	return true, nil
}

func (f *fakeTitleRepo) HasGlobalGrant(_ context.Context, titleID, userID string) (bool, error) {
	for _, g := range f.grants {
		if g.TitleID == titleID && g.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTitleRepo) HasRoomGrant(_ context.Context, titleID, membershipID string) (bool, error) {
	for _, g := range f.grants {
		if g.TitleID == titleID && g.MembershipID == membershipID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTitleRepo) ListGrantsForUser(_ context.Context, userID string) ([]*title.Grant, error) {
	var out []*title.Grant
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeTitleRepo) ListGrantsForMembership(_ context.Context, membershipID string) ([]*title.Grant, error) {
	var out []*title.Grant
	for _, g := range f.grants {
		if g.MembershipID == membershipID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeTitleRepo) CountGrantsInRoom(_ context.Context, titleID, roomID string) (int, error) {
	n := 0
	for _, g := range f.grants {
		if g.TitleID != titleID || g.MembershipID == "" {
			continue
		}
		for _, t := range f.titles {
			if t.ID == titleID && t.RoomID == roomID {
				n++
			}
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event capture
// ─────────────────────────────────────────────────────────────────────────────

type capturingBus struct {
	events []shared.Event
}

func (b *capturingBus) Publish(event shared.Event) error {
	b.events = append(b.events, event)
	return nil
}

func (b *capturingBus) typesSeen() []shared.EventType {
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}
