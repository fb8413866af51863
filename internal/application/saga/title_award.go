// Package saga contains multi-step business processes that orchestrate
// several domain operations in a coordinated manner.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/title"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// TITLE AWARD FLOW
// Flow: Load Totals → Filter Qualified Titles → Insert Grants (idempotent) →
// Publish Events
//
// Grants are one-directional. A later re-grade that drops a user below a
// threshold never removes a grant; only new grants are ever written.
// ══════════════════════════════════════════════════════════════════════════════

// TitleAwardFlow evaluates title thresholds and persists the resulting grants.
// It is invoked synchronously from the GradeRecorded event handler and from
// title creation (retroactive sweep). Every path is idempotent: duplicate
// grant inserts are absorbed by the storage layer's do-nothing semantics.
type TitleAwardFlow struct {
	titleRepo   title.Repository
	userRepo    user.Repository
	missionRepo mission.Repository
	roomRepo    room.Repository
	eventBus    shared.EventPublisher
}

// NewTitleAwardFlow creates a new TitleAwardFlow.
func NewTitleAwardFlow(
	titleRepo title.Repository,
	userRepo user.Repository,
	missionRepo mission.Repository,
	roomRepo room.Repository,
	eventBus shared.EventPublisher,
) *TitleAwardFlow {
	return &TitleAwardFlow{
		titleRepo:   titleRepo,
		userRepo:    userRepo,
		missionRepo: missionRepo,
		roomRepo:    roomRepo,
		eventBus:    eventBus,
	}
}

// AwardResult reports what one evaluation pass granted.
type AwardResult struct {
	// Granted lists the titles granted during this pass, in evaluation order.
	Granted []*title.Grant

	// Evaluated is the number of titles checked.
	Evaluated int

	ProcessedAt time.Time
}

// HasGrants returns true if any title was granted.
func (r *AwardResult) HasGrants() bool { return len(r.Granted) > 0 }

// EvaluateForUser checks every global title against the user's cached point
// total and global completed-mission count, granting those that qualify and
// are not yet held.
func (f *TitleAwardFlow) EvaluateForUser(ctx context.Context, userID string) (*AwardResult, error) {
	if userID == "" {
		return nil, errors.New("title_award: user id is required")
	}

	u, err := f.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("title_award: load user: %w", err)
	}

	completed, err := f.missionRepo.CountCompletedForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("title_award: count completed missions: %w", err)
	}

	titles, err := f.titleRepo.ListGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("title_award: list global titles: %w", err)
	}

	result := &AwardResult{Evaluated: len(titles), ProcessedAt: time.Now().UTC()}
	for _, t := range titles {
		if !t.QualifiedBy(u.TotalPoints, completed) {
			continue
		}
		grant, created, err := f.grantGlobal(ctx, t, userID)
		if err != nil {
			return nil, err
		}
		if created {
			result.Granted = append(result.Granted, grant)
			f.publishGranted(t.ID, userID, "", "", false)
		}
	}
	return result, nil
}

// EvaluateForMembership checks every room-scoped title of the membership's
// room against live room sums. Room totals are never cached; both sums are
// computed from grade rows joined to the room's missions.
func (f *TitleAwardFlow) EvaluateForMembership(ctx context.Context, membershipID string) (*AwardResult, error) {
	if membershipID == "" {
		return nil, errors.New("title_award: membership id is required")
	}

	m, err := f.roomRepo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("title_award: load membership: %w", err)
	}

	points, err := f.missionRepo.SumPointsForUserInRoom(ctx, m.UserID, m.RoomID)
	if err != nil {
		return nil, fmt.Errorf("title_award: sum room points: %w", err)
	}
	completed, err := f.missionRepo.CountCompletedForUserInRoom(ctx, m.UserID, m.RoomID)
	if err != nil {
		return nil, fmt.Errorf("title_award: count room missions: %w", err)
	}

	titles, err := f.titleRepo.ListForRoom(ctx, m.RoomID)
	if err != nil {
		return nil, fmt.Errorf("title_award: list room titles: %w", err)
	}

	result := &AwardResult{Evaluated: len(titles), ProcessedAt: time.Now().UTC()}
	for _, t := range titles {
		if !t.QualifiedBy(points, completed) {
			continue
		}
		grant, created, err := f.grantRoom(ctx, t, m)
		if err != nil {
			return nil, err
		}
		if created {
			result.Granted = append(result.Granted, grant)
			f.publishGranted(t.ID, m.UserID, m.RoomID, m.ID, false)
		}
	}
	return result, nil
}

// EvaluateAllForNewTitle sweeps every candidate holder of a freshly created
// title: all users for a global title, all student memberships of the room
// for a room-scoped one. Safe to re-run; grants that already exist are
// skipped silently.
func (f *TitleAwardFlow) EvaluateAllForNewTitle(ctx context.Context, t *title.Title) (*AwardResult, error) {
	if t == nil {
		return nil, errors.New("title_award: title is required")
	}

	switch t.Scope {
	case title.ScopeGlobal:
		return f.sweepGlobal(ctx, t)
	case title.ScopeRoom:
		return f.sweepRoom(ctx, t)
	default:
		return nil, title.ErrInvalidScope
	}
}

func (f *TitleAwardFlow) sweepGlobal(ctx context.Context, t *title.Title) (*AwardResult, error) {
	userIDs, err := f.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("title_award: list users: %w", err)
	}

	result := &AwardResult{Evaluated: len(userIDs), ProcessedAt: time.Now().UTC()}
	for _, uid := range userIDs {
		u, err := f.userRepo.GetByID(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("title_award: load user %s: %w", uid, err)
		}
		completed, err := f.missionRepo.CountCompletedForUser(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("title_award: count completed missions: %w", err)
		}
		if !t.QualifiedBy(u.TotalPoints, completed) {
			continue
		}
		grant, created, err := f.grantGlobal(ctx, t, uid)
		if err != nil {
			return nil, err
		}
		if created {
			result.Granted = append(result.Granted, grant)
			f.publishGranted(t.ID, uid, "", "", true)
		}
	}
	return result, nil
}

func (f *TitleAwardFlow) sweepRoom(ctx context.Context, t *title.Title) (*AwardResult, error) {
	memberships, err := f.roomRepo.ListStudentMemberships(ctx, t.RoomID)
	if err != nil {
		return nil, fmt.Errorf("title_award: list memberships: %w", err)
	}

	result := &AwardResult{Evaluated: len(memberships), ProcessedAt: time.Now().UTC()}
	for _, m := range memberships {
		points, err := f.missionRepo.SumPointsForUserInRoom(ctx, m.UserID, m.RoomID)
		if err != nil {
			return nil, fmt.Errorf("title_award: sum room points: %w", err)
		}
		completed, err := f.missionRepo.CountCompletedForUserInRoom(ctx, m.UserID, m.RoomID)
		if err != nil {
			return nil, fmt.Errorf("title_award: count room missions: %w", err)
		}
		if !t.QualifiedBy(points, completed) {
			continue
		}
		grant, created, err := f.grantRoom(ctx, t, m)
		if err != nil {
			return nil, err
		}
		if created {
			result.Granted = append(result.Granted, grant)
			f.publishGranted(t.ID, m.UserID, m.RoomID, m.ID, true)
		}
	}
	return result, nil
}

func (f *TitleAwardFlow) grantGlobal(ctx context.Context, t *title.Title, userID string) (*title.Grant, bool, error) {
	grant, err := title.NewGlobalGrant(t.ID, userID)
	if err != nil {
		return nil, false, err
	}
	created, err := f.titleRepo.SaveGrant(ctx, grant)
	if err != nil {
		return nil, false, fmt.Errorf("title_award: save grant: %w", err)
	}
	return grant, created, nil
}

func (f *TitleAwardFlow) grantRoom(ctx context.Context, t *title.Title, m *room.Membership) (*title.Grant, bool, error) {
	grant, err := title.NewRoomGrant(t.ID, m.ID)
	if err != nil {
		return nil, false, err
	}
	created, err := f.titleRepo.SaveGrant(ctx, grant)
	if err != nil {
		return nil, false, fmt.Errorf("title_award: save grant: %w", err)
	}
	return grant, created, nil
}

func (f *TitleAwardFlow) publishGranted(titleID, userID, roomID, membershipID string, retroactive bool) {
	if f.eventBus == nil {
		return
	}
	// Event delivery is best-effort; the grant row is already durable.
	_ = f.eventBus.Publish(shared.NewTitleGrantedEvent(titleID, userID, roomID, membershipID, retroactive))
}
