package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailroom/trailroom-hub/internal/application/authz"
	"github.com/trailroom/trailroom-hub/internal/application/saga"
	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/title"
)

type titleWorld struct {
	titles   *fakeTitleRepo
	users    *fakeUserRepo
	missions *fakeMissionRepo
	rooms    *fakeRoomRepo
	bus      *capturingBus
	flow     *saga.TitleAwardFlow
	handler  *CreateTitleHandler
}

func newTitleWorld(t *testing.T) *titleWorld {
	t.Helper()

	rooms := newFakeRoomRepo()
	rooms.addMember("mem-t", "teacher-1", "room-1", room.RoleTeacher)
	rooms.addMember("mem-s1", "student-1", "room-1", room.RoleStudent)
	rooms.addMember("mem-s2", "student-2", "room-1", room.RoleStudent)

	users := newFakeUserRepo()
	users.add("student-1", 500)
	users.add("student-2", 100)

	missions := newFakeMissionRepo()
	m, err := mission.NewMission("mission-1", "room-1", "Project", "", 100, "teacher-1")
	assert.NoError(t, err)
	missions.missions[m.ID] = m

	// student-1 already has one completed, graded mission in the room.
	g, err := mission.NewGrade("mission-1", "student-1", "teacher-1", 80)
	assert.NoError(t, err)
	assert.NoError(t, missions.SaveGrade(context.Background(), g))

	titles := newFakeTitleRepo()
	bus := &capturingBus{}
	flow := saga.NewTitleAwardFlow(titles, users, missions, rooms, bus)

	return &titleWorld{
		titles:   titles,
		users:    users,
		missions: missions,
		rooms:    rooms,
		bus:      bus,
		flow:     flow,
		handler:  NewCreateTitleHandler(titles, authz.NewPolicy(rooms), flow, bus),
	}
}

func TestCreateGlobalTitleSweepsExistingUsers(t *testing.T) {
	w := newTitleWorld(t)

	result, err := w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "Veteran", Scope: title.ScopeGlobal, MinPoints: 200, CreatorID: "admin-1",
	})
	assert.NoError(t, err)

	// Only student-1 crosses the 200-point line.
	assert.Equal(t, 1, result.RetroactiveGrants)
	assert.Len(t, w.titles.grants, 1)
	assert.Equal(t, "student-1", w.titles.grants[0].UserID)

	assert.Equal(t, []shared.EventType{
		shared.EventTitleCreated,
		shared.EventTitleGranted,
	}, w.bus.typesSeen())

	granted, ok := w.bus.events[1].(shared.TitleGrantedEvent)
	assert.True(t, ok)
	assert.True(t, granted.Retroactive)
}

func TestCreateRoomTitleSweepsMemberships(t *testing.T) {
	w := newTitleWorld(t)

	result, err := w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "Room Star", Scope: title.ScopeRoom, RoomID: "room-1",
		MinPoints: 50, MinCompletedMissions: 1, CreatorID: "teacher-1",
	})
	assert.NoError(t, err)

	assert.Equal(t, 1, result.RetroactiveGrants)
	assert.Equal(t, "mem-s1", w.titles.grants[0].MembershipID)
	assert.Empty(t, w.titles.grants[0].UserID)
}

func TestCreateRoomTitleRequiresTeacher(t *testing.T) {
	w := newTitleWorld(t)

	_, err := w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "Sneaky", Scope: title.ScopeRoom, RoomID: "room-1", CreatorID: "student-1",
	})
	assert.True(t, shared.IsAuthorization(err))
	assert.Empty(t, w.titles.titles)

	// Global titles have no room role to check.
	_, err = w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "Open", Scope: title.ScopeGlobal, CreatorID: "student-1",
	})
	assert.NoError(t, err)
}

func TestRetroactiveSweepIsIdempotent(t *testing.T) {
	w := newTitleWorld(t)

	created, err := w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "Veteran", Scope: title.ScopeGlobal, MinPoints: 200, CreatorID: "admin-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, created.RetroactiveGrants)

	// Re-running the sweep grants nothing new.
	again, err := w.flow.EvaluateAllForNewTitle(context.Background(), created.Title)
	assert.NoError(t, err)
	assert.False(t, again.HasGrants())
	assert.Len(t, w.titles.grants, 1)
}

func TestCreateTitleValidation(t *testing.T) {
	w := newTitleWorld(t)

	_, err := w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "", Scope: title.ScopeGlobal, CreatorID: "admin-1",
	})
	assert.True(t, shared.IsValidation(err))

	_, err = w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "Roomless", Scope: title.ScopeRoom, CreatorID: "admin-1",
	})
	assert.True(t, shared.IsValidation(err))

	_, err = w.handler.Handle(context.Background(), CreateTitleCommand{
		Name: "Negative", Scope: title.ScopeGlobal, MinPoints: -1, CreatorID: "admin-1",
	})
	assert.True(t, shared.IsValidation(err))
}
