package command

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
)

func TestCreateRoomMakesCreatorTeacher(t *testing.T) {
	rooms := newFakeRoomRepo()
	handler := NewCreateRoomHandler(rooms, shared.NopTxManager{})

	result, err := handler.Handle(context.Background(), CreateRoomCommand{
		Name: "Algorithms 101", Description: "intro", CreatorID: "teacher-1",
	})
	assert.NoError(t, err)
	assert.True(t, result.Room.Code.IsValid())
	assert.Equal(t, "teacher-1", result.Membership.UserID)
	assert.True(t, result.Membership.IsTeacher())

	role, err := rooms.RoleOf(context.Background(), "teacher-1", result.Room.ID)
	assert.NoError(t, err)
	assert.Equal(t, room.RoleTeacher, role)
}

func TestCreateRoomRetriesOnCodeCollision(t *testing.T) {
	rooms := newFakeRoomRepo()
	rooms.createFails = 2
	handler := NewCreateRoomHandler(rooms, shared.NopTxManager{})

	result, err := handler.Handle(context.Background(), CreateRoomCommand{
		Name: "Retry Room", CreatorID: "teacher-1",
	})
	assert.NoError(t, err)
	assert.Len(t, rooms.rooms, 1)
	assert.True(t, result.Room.Code.IsValid())
}

func TestCreateRoomGivesUpAfterRepeatedCollisions(t *testing.T) {
	rooms := newFakeRoomRepo()
	rooms.createFails = 99
	handler := NewCreateRoomHandler(rooms, shared.NopTxManager{})

	_, err := handler.Handle(context.Background(), CreateRoomCommand{
		Name: "Unlucky Room", CreatorID: "teacher-1",
	})
	assert.True(t, shared.IsAlreadyExists(err))
	assert.Empty(t, rooms.rooms)
}

func TestJoinRoomByCode(t *testing.T) {
	rooms := newFakeRoomRepo()
	create := NewCreateRoomHandler(rooms, shared.NopTxManager{})
	created, err := create.Handle(context.Background(), CreateRoomCommand{
		Name: "Joinable", CreatorID: "teacher-1",
	})
	assert.NoError(t, err)

	join := NewJoinRoomHandler(rooms)

	// The code is case-insensitive on input.
	result, err := join.Handle(context.Background(), JoinRoomCommand{
		UserID: "student-1", Code: strings.ToLower(string(created.Room.Code)),
	})
	assert.NoError(t, err)
	assert.Equal(t, created.Room.ID, result.Room.ID)
	assert.True(t, result.Membership.IsStudent())

	// Joining twice is rejected and the first role is preserved.
	_, err = join.Handle(context.Background(), JoinRoomCommand{
		UserID: "student-1", Code: string(created.Room.Code),
	})
	assert.ErrorIs(t, err, room.ErrMembershipExists)

	role, _ := rooms.RoleOf(context.Background(), "student-1", created.Room.ID)
	assert.Equal(t, room.RoleStudent, role)
}

func TestJoinRoomUnknownCode(t *testing.T) {
	join := NewJoinRoomHandler(newFakeRoomRepo())

	_, err := join.Handle(context.Background(), JoinRoomCommand{
		UserID: "student-1", Code: "ZZZZ9999",
	})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	_, err = join.Handle(context.Background(), JoinRoomCommand{
		UserID: "student-1", Code: "bad",
	})
	assert.True(t, shared.IsValidation(err))
}

func TestJoinRoomAsCoTeacher(t *testing.T) {
	rooms := newFakeRoomRepo()
	create := NewCreateRoomHandler(rooms, shared.NopTxManager{})
	created, err := create.Handle(context.Background(), CreateRoomCommand{
		Name: "Shared Room", CreatorID: "teacher-1",
	})
	assert.NoError(t, err)

	join := NewJoinRoomHandler(rooms)
	result, err := join.Handle(context.Background(), JoinRoomCommand{
		UserID: "teacher-2", Code: string(created.Room.Code), Role: room.RoleTeacher,
	})
	assert.NoError(t, err)
	assert.True(t, result.Membership.IsTeacher())
}
