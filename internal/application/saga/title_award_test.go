package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/title"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

// The stubs embed the repository interfaces and implement only what the
// award flow touches; an unexpected call panics and fails the test loudly.

type stubTitleRepo struct {
	title.Repository
	global []*title.Title
	byRoom map[string][]*title.Title
	grants []*title.Grant
}

func (s *stubTitleRepo) ListGlobal(_ context.Context) ([]*title.Title, error) {
	return s.global, nil
}

func (s *stubTitleRepo) ListForRoom(_ context.Context, roomID string) ([]*title.Title, error) {
	return s.byRoom[roomID], nil
}

func (s *stubTitleRepo) SaveGrant(_ context.Context, g *title.Grant) (bool, error) {
	for _, existing := range s.grants {
		if existing.TitleID == g.TitleID &&
			existing.UserID == g.UserID &&
			existing.MembershipID == g.MembershipID {
			return false, nil
		}
	}
	s.grants = append(s.grants, g)
	return true, nil
}

type stubUserRepo struct {
	user.Repository
	users map[string]*user.User
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUserRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	return ids, nil
}

type stubMissionRepo struct {
	mission.Repository
	completedGlobal map[string]int
	roomPoints      map[string]int
	roomCompleted   map[string]int
}

func roomSumKey(userID, roomID string) string { return userID + "|" + roomID }

func (s *stubMissionRepo) CountCompletedForUser(_ context.Context, userID string) (int, error) {
	return s.completedGlobal[userID], nil
}

func (s *stubMissionRepo) SumPointsForUserInRoom(_ context.Context, userID, roomID string) (int, error) {
	return s.roomPoints[roomSumKey(userID, roomID)], nil
}

func (s *stubMissionRepo) CountCompletedForUserInRoom(_ context.Context, userID, roomID string) (int, error) {
	return s.roomCompleted[roomSumKey(userID, roomID)], nil
}

type stubRoomRepo struct {
	room.Repository
	memberships map[string]*room.Membership
}

func (s *stubRoomRepo) GetMembershipByID(_ context.Context, id string) (*room.Membership, error) {
	m, ok := s.memberships[id]
	if !ok {
		return nil, room.ErrMembershipNotFound
	}
	return m, nil
}

func (s *stubRoomRepo) ListStudentMemberships(_ context.Context, roomID string) ([]*room.Membership, error) {
	var out []*room.Membership
	for _, m := range s.memberships {
		if m.RoomID == roomID && m.IsStudent() {
			out = append(out, m)
		}
	}
	return out, nil
}

type recordingBus struct {
	events []shared.Event
}

func (b *recordingBus) Publish(event shared.Event) error {
	b.events = append(b.events, event)
	return nil
}

func mustTitle(t *testing.T, id, name string, scope title.Scope, roomID string, minPoints, minCompleted int) *title.Title {
	t.Helper()
	created, err := title.NewTitle(id, name, "", scope, roomID, minPoints, minCompleted, "admin-1")
	assert.NoError(t, err)
	return created
}

func TestEvaluateForUserGrantsQualifiedGlobalTitles(t *testing.T) {
	titles := &stubTitleRepo{
		global: []*title.Title{
			mustTitle(t, "title-low", "Starter", title.ScopeGlobal, "", 100, 0),
			mustTitle(t, "title-high", "Legend", title.ScopeGlobal, "", 10000, 0),
		},
	}
	users := &stubUserRepo{users: map[string]*user.User{
		"student-1": {ID: "student-1", TotalPoints: 350},
	}}
	missions := &stubMissionRepo{completedGlobal: map[string]int{"student-1": 3}}
	bus := &recordingBus{}

	flow := NewTitleAwardFlow(titles, users, missions, &stubRoomRepo{}, bus)

	result, err := flow.EvaluateForUser(context.Background(), "student-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Evaluated)
	assert.Len(t, result.Granted, 1)
	assert.Equal(t, "title-low", result.Granted[0].TitleID)
	assert.Equal(t, "student-1", result.Granted[0].UserID)
	assert.Len(t, bus.events, 1)

	// The second pass finds the grant already written.
	result, err = flow.EvaluateForUser(context.Background(), "student-1")
	assert.NoError(t, err)
	assert.False(t, result.HasGrants())
	assert.Len(t, titles.grants, 1)
}

func TestEvaluateForMembershipUsesRoomSums(t *testing.T) {
	titles := &stubTitleRepo{byRoom: map[string][]*title.Title{
		"room-1": {mustTitle(t, "title-room", "Room Star", title.ScopeRoom, "room-1", 50, 1)},
	}}
	rooms := &stubRoomRepo{memberships: map[string]*room.Membership{
		"mem-1": {ID: "mem-1", UserID: "student-1", RoomID: "room-1", Role: room.RoleStudent},
	}}
	missions := &stubMissionRepo{
		roomPoints:    map[string]int{roomSumKey("student-1", "room-1"): 80},
		roomCompleted: map[string]int{roomSumKey("student-1", "room-1"): 1},
	}

	// The cached global total plays no part in room titles; the user
	// repository is never consulted on this path.
	flow := NewTitleAwardFlow(titles, &stubUserRepo{}, missions, rooms, &recordingBus{})

	result, err := flow.EvaluateForMembership(context.Background(), "mem-1")
	assert.NoError(t, err)
	assert.Len(t, result.Granted, 1)
	assert.Equal(t, "mem-1", result.Granted[0].MembershipID)
	assert.Empty(t, result.Granted[0].UserID)
}

func TestEvaluateForMembershipBelowThreshold(t *testing.T) {
	titles := &stubTitleRepo{byRoom: map[string][]*title.Title{
		"room-1": {mustTitle(t, "title-room", "Room Star", title.ScopeRoom, "room-1", 50, 0)},
	}}
	rooms := &stubRoomRepo{memberships: map[string]*room.Membership{
		"mem-1": {ID: "mem-1", UserID: "student-1", RoomID: "room-1", Role: room.RoleStudent},
	}}
	missions := &stubMissionRepo{
		roomPoints: map[string]int{roomSumKey("student-1", "room-1"): 49},
	}

	flow := NewTitleAwardFlow(titles, &stubUserRepo{}, missions, rooms, &recordingBus{})

	result, err := flow.EvaluateForMembership(context.Background(), "mem-1")
	assert.NoError(t, err)
	assert.False(t, result.HasGrants())
	assert.Equal(t, 1, result.Evaluated)
}

func TestGrantsSurviveLaterPointDrops(t *testing.T) {
	titles := &stubTitleRepo{
		global: []*title.Title{mustTitle(t, "title-1", "Veteran", title.ScopeGlobal, "", 100, 0)},
	}
	users := &stubUserRepo{users: map[string]*user.User{
		"student-1": {ID: "student-1", TotalPoints: 150},
	}}
	missions := &stubMissionRepo{}
	flow := NewTitleAwardFlow(titles, users, missions, &stubRoomRepo{}, &recordingBus{})

	_, err := flow.EvaluateForUser(context.Background(), "student-1")
	assert.NoError(t, err)
	assert.Len(t, titles.grants, 1)

	// A regrade drops the user below the threshold. The grant stays; the
	// flow only ever writes new grants.
	users.users["student-1"].TotalPoints = 40
	result, err := flow.EvaluateForUser(context.Background(), "student-1")
	assert.NoError(t, err)
	assert.False(t, result.HasGrants())
	assert.Len(t, titles.grants, 1)
}

func TestEvaluateAllForNewTitleRejectsBadInput(t *testing.T) {
	flow := NewTitleAwardFlow(&stubTitleRepo{}, &stubUserRepo{}, &stubMissionRepo{}, &stubRoomRepo{}, &recordingBus{})

	_, err := flow.EvaluateAllForNewTitle(context.Background(), nil)
	assert.Error(t, err)

	bad := &title.Title{ID: "t1", Scope: title.Scope("cohort")}
	_, err = flow.EvaluateAllForNewTitle(context.Background(), bad)
	assert.ErrorIs(t, err, title.ErrInvalidScope)
}
