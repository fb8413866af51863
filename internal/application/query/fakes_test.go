package query

import (
	"context"
	"sort"

	"github.com/trailroom/trailroom-hub/internal/domain/mission"
	"github.com/trailroom/trailroom-hub/internal/domain/progress"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/domain/track"
	"github.com/trailroom/trailroom-hub/internal/domain/user"
)

// Read-side fakes. Where a handler only touches a couple of repository
// methods, the stub embeds the interface and leaves the rest to panic.

// fakeGraph implements track.Reader over plain maps.
type fakeGraph struct {
	tracks   map[string]*track.Track
	modules  map[string]*track.Module
	contents map[string]*track.ContentItem
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		tracks:   make(map[string]*track.Track),
		modules:  make(map[string]*track.Module),
		contents: make(map[string]*track.ContentItem),
	}
}

func (f *fakeGraph) GetTrack(_ context.Context, id string) (*track.Track, error) {
	t, ok := f.tracks[id]
	if !ok {
		return nil, track.ErrTrackNotFound
	}
	return t, nil
}

func (f *fakeGraph) ListTracks(_ context.Context, roomID string) ([]*track.Track, error) {
	var out []*track.Track
	for _, t := range f.tracks {
		if t.RoomID == roomID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (f *fakeGraph) ListModules(_ context.Context, trackID string) ([]*track.Module, error) {
	var out []*track.Module
	for _, m := range f.modules {
		if m.TrackID == trackID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (f *fakeGraph) GetModule(_ context.Context, id string) (*track.Module, error) {
	m, ok := f.modules[id]
	if !ok {
		return nil, track.ErrModuleNotFound
	}
	return m, nil
}

func (f *fakeGraph) ListContents(_ context.Context, moduleID string) ([]*track.ContentItem, error) {
	var out []*track.ContentItem
	for _, c := range f.contents {
		if c.ModuleID == moduleID {
			out = append(out, c)
		}
	}
	track.SortContents(out)
	return out, nil
}

func (f *fakeGraph) GetContent(_ context.Context, id string) (*track.ContentItem, error) {
	c, ok := f.contents[id]
	if !ok {
		return nil, track.ErrContentNotFound
	}
	return c, nil
}

func (f *fakeGraph) CountTrackContents(_ context.Context, trackID string) (int, error) {
	n := 0
	for _, c := range f.contents {
		if m, ok := f.modules[c.ModuleID]; ok && m.TrackID == trackID {
			n++
		}
	}
	return n, nil
}

// addTrack seeds a track with one module holding n content items and
// returns the content IDs in order.
func (f *fakeGraph) addTrack(trackID, roomID string, pointsRequired int, prereqID string, n int) []string {
	f.tracks[trackID] = &track.Track{
		ID: trackID, RoomID: roomID, Name: trackID,
		PointsRequired: pointsRequired, PrerequisiteID: prereqID,
	}
	moduleID := trackID + "-m0"
	f.modules[moduleID] = &track.Module{ID: moduleID, TrackID: trackID, Title: moduleID}

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := moduleID + "-c" + string(rune('a'+i))
		f.contents[id] = &track.ContentItem{
			ID: id, ModuleID: moduleID, Title: id, Type: track.ContentText, OrderIndex: i,
		}
		ids = append(ids, id)
	}
	return ids
}

// stubProgressRepo serves the aggregate counts from a literal map.
type stubProgressRepo struct {
	progress.Repository
	completedInTrack  map[string]int
	completedInModule map[string]int
}

func progressKey(userID, scopeID string) string { return userID + "|" + scopeID }

func (s *stubProgressRepo) CountCompletedInTrack(_ context.Context, userID, trackID string) (int, error) {
	return s.completedInTrack[progressKey(userID, trackID)], nil
}

func (s *stubProgressRepo) CountCompletedInModule(_ context.Context, userID, moduleID string) (int, error) {
	return s.completedInModule[progressKey(userID, moduleID)], nil
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

type stubMissionRepo struct {
	mission.Repository
	roomPoints    map[string]int
	roomCompleted map[string]int
}

func (s *stubMissionRepo) SumPointsForUserInRoom(_ context.Context, userID, roomID string) (int, error) {
	return s.roomPoints[progressKey(userID, roomID)], nil
}

func (s *stubMissionRepo) CountCompletedForUserInRoom(_ context.Context, userID, roomID string) (int, error) {
	return s.roomCompleted[progressKey(userID, roomID)], nil
}

type stubRoomRepo struct {
	room.Repository
	memberships []*room.Membership
}

func (s *stubRoomRepo) GetMembership(_ context.Context, userID, roomID string) (*room.Membership, error) {
	for _, m := range s.memberships {
		if m.UserID == userID && m.RoomID == roomID {
			return m, nil
		}
	}
	return nil, room.ErrMembershipNotFound
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

// fakeProgressCache counts hits so tests can tell cache reads from live ones.
type fakeProgressCache struct {
	values map[string]float64
	sets   int
}

func newFakeProgressCache() *fakeProgressCache {
	return &fakeProgressCache{values: make(map[string]float64)}
}

func (f *fakeProgressCache) GetTrackPercent(_ context.Context, userID, trackID string) (float64, bool, error) {
	v, ok := f.values[progressKey(userID, trackID)]
	return v, ok, nil
}

func (f *fakeProgressCache) SetTrackPercent(_ context.Context, userID, trackID string, percent float64) error {
	f.values[progressKey(userID, trackID)] = percent
	f.sets++
	return nil
}

func (f *fakeProgressCache) InvalidateTrack(_ context.Context, userID, trackID string) error {
	delete(f.values, progressKey(userID, trackID))
	return nil
}

// fakePointsCache is an in-memory stand-in for the sorted-set leaderboard.
type fakePointsCache struct {
	points map[string]map[string]int
	sets   int
}

func newFakePointsCache() *fakePointsCache {
	return &fakePointsCache{points: make(map[string]map[string]int)}
}

func (f *fakePointsCache) SetMemberPoints(_ context.Context, roomID, userID string, points int) error {
	byUser := f.points[roomID]
	if byUser == nil {
		byUser = make(map[string]int)
		f.points[roomID] = byUser
	}
	byUser[userID] = points
	f.sets++
	return nil
}

func (f *fakePointsCache) GetTop(_ context.Context, roomID string, limit int) ([]room.MemberScore, error) {
	byUser := f.points[roomID]
	entries := make([]room.MemberScore, 0, len(byUser))
	for userID, points := range byUser {
		entries = append(entries, room.MemberScore{UserID: userID, Points: points})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (f *fakePointsCache) Invalidate(_ context.Context, roomID string) error {
	delete(f.points, roomID)
	return nil
}
