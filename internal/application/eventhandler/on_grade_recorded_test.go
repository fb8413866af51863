package eventhandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailroom/trailroom-hub/internal/application/saga"
	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/title"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

type stubTitleRepo struct {
	title.Repository
	global   []*title.Title
	roomOnes []*title.Title
	grants   []*title.Grant
}

func (s *stubTitleRepo) ListGlobal(_ context.Context) ([]*title.Title, error) { return s.global, nil }

func (s *stubTitleRepo) ListForRoom(_ context.Context, _ string) ([]*title.Title, error) {
	return s.roomOnes, nil
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
	totals map[string]int
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	points, ok := s.totals[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &user.User{ID: id, TotalPoints: points}, nil
}

type stubMissionRepo struct {
	mission.Repository
	completedGlobal int
	roomPoints      int
	roomCompleted   int
}

func (s *stubMissionRepo) CountCompletedForUser(_ context.Context, _ string) (int, error) {
	return s.completedGlobal, nil
}

func (s *stubMissionRepo) SumPointsForUserInRoom(_ context.Context, _, _ string) (int, error) {
	return s.roomPoints, nil
}

func (s *stubMissionRepo) CountCompletedForUserInRoom(_ context.Context, _, _ string) (int, error) {
	return s.roomCompleted, nil
}

type stubRoomRepo struct {
	room.Repository
	membership *room.Membership
}

func (s *stubRoomRepo) GetMembership(_ context.Context, userID, roomID string) (*room.Membership, error) {
	if s.membership != nil && s.membership.UserID == userID && s.membership.RoomID == roomID {
		return s.membership, nil
	}
	return nil, room.ErrMembershipNotFound
}

func (s *stubRoomRepo) GetMembershipByID(_ context.Context, id string) (*room.Membership, error) {
	if s.membership != nil && s.membership.ID == id {
		return s.membership, nil
	}
	return nil, room.ErrMembershipNotFound
}

type stubPointsCache struct {
	roomID string
	userID string
	points int
	calls  int
}

func (s *stubPointsCache) SetMemberPoints(_ context.Context, roomID, userID string, points int) error {
	s.roomID, s.userID, s.points = roomID, userID, points
	s.calls++
	return nil
}

func (s *stubPointsCache) GetTop(_ context.Context, _ string, _ int) ([]room.MemberScore, error) {
	return nil, nil
}

func (s *stubPointsCache) Invalidate(_ context.Context, _ string) error { return nil }

func mustTitle(t *testing.T, id string, scope title.Scope, roomID string, minPoints int) *title.Title {
	t.Helper()
	created, err := title.NewTitle(id, id, "", scope, roomID, minPoints, 0, "admin-1")
	assert.NoError(t, err)
	return created
}

func TestOnGradeRecordedGrantsTitlesAndRefreshesLeaderboard(t *testing.T) {
	titles := &stubTitleRepo{
		global:   []*title.Title{mustTitle(t, "global-title", title.ScopeGlobal, "", 100)},
		roomOnes: []*title.Title{mustTitle(t, "room-title", title.ScopeRoom, "room-1", 50)},
	}
	users := &stubUserRepo{totals: map[string]int{"student-1": 120}}
	missions := &stubMissionRepo{roomPoints: 75}
	rooms := &stubRoomRepo{membership: &room.Membership{
		ID: "mem-1", UserID: "student-1", RoomID: "room-1", Role: room.RoleStudent,
	}}
	cache := &stubPointsCache{}

	flow := saga.NewTitleAwardFlow(titles, users, missions, rooms, nil)
	handler := NewOnGradeRecordedHandler(flow, rooms, missions, cache, nil)

	event := shared.NewGradeRecordedEvent("mission-1", "room-1", "student-1", "teacher-1", 80, 80, false)
	assert.NoError(t, handler.Handle(event))

	// One global and one room grant were written.
	assert.Len(t, titles.grants, 2)
	assert.Equal(t, "student-1", titles.grants[0].UserID)
	assert.Equal(t, "mem-1", titles.grants[1].MembershipID)

	// The leaderboard entry was refreshed with the live room sum.
	assert.Equal(t, 1, cache.calls)
	assert.Equal(t, "room-1", cache.roomID)
	assert.Equal(t, "student-1", cache.userID)
	assert.Equal(t, 75, cache.points)
}

func TestOnGradeRecordedIsIdempotent(t *testing.T) {
	titles := &stubTitleRepo{
		global: []*title.Title{mustTitle(t, "global-title", title.ScopeGlobal, "", 100)},
	}
	users := &stubUserRepo{totals: map[string]int{"student-1": 120}}
	missions := &stubMissionRepo{}
	rooms := &stubRoomRepo{membership: &room.Membership{
		ID: "mem-1", UserID: "student-1", RoomID: "room-1", Role: room.RoleStudent,
	}}

	flow := saga.NewTitleAwardFlow(titles, users, missions, rooms, nil)
	handler := NewOnGradeRecordedHandler(flow, rooms, missions, nil, nil)

	event := shared.NewGradeRecordedEvent("mission-1", "room-1", "student-1", "teacher-1", 80, 0, true)
	assert.NoError(t, handler.Handle(event))
	assert.NoError(t, handler.Handle(event))
	assert.Len(t, titles.grants, 1)
}

func TestOnGradeRecordedIgnoresOtherEventTypes(t *testing.T) {
	handler := NewOnGradeRecordedHandler(nil, nil, nil, nil, nil)

	// A foreign event type is logged and dropped, never an error.
	assert.NoError(t, handler.Handle(shared.NewMissionGradedEvent("mission-1", "room-1")))
}

func TestOnGradeRecordedSubscribesToGradeRecorded(t *testing.T) {
	handler := NewOnGradeRecordedHandler(nil, nil, nil, nil, nil)
	assert.Equal(t, shared.EventGradeRecorded, handler.EventType())
}
