// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the scoring/progress/title engine.
const (
	// Scoring events
	EventGradeRecorded EventType = "scoring.grade_recorded"
	EventMissionGraded EventType = "scoring.mission_graded"

	// Progress events
	EventContentViewed    EventType = "progress.content_viewed"
	EventContentCompleted EventType = "progress.content_completed"
	EventTrackCompleted   EventType = "progress.track_completed"

	// Title events
	EventTitleGranted EventType = "title.granted"
	EventTitleCreated EventType = "title.created"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Scoring Events
// ═══════════════════════════════════════════════════════════════════════════

// GradeRecordedEvent is emitted after a grade is persisted for a student.
// The title award engine re-evaluates thresholds when it sees this event.
type GradeRecordedEvent struct {
	BaseEvent
	MissionID   string `json:"mission_id"`
	RoomID      string `json:"room_id"`
	StudentID   string `json:"student_id"`
	TeacherID   string `json:"teacher_id"`
	Points      int    `json:"points"`
	PointsDelta int    `json:"points_delta"`
	Regrade     bool   `json:"regrade"`
}

// Payload implements Event interface.
func (e GradeRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"mission_id":   e.MissionID,
		"room_id":      e.RoomID,
		"student_id":   e.StudentID,
		"teacher_id":   e.TeacherID,
		"points":       e.Points,
		"points_delta": e.PointsDelta,
		"regrade":      e.Regrade,
	}
}

// NewGradeRecordedEvent creates a new GradeRecordedEvent.
func NewGradeRecordedEvent(missionID, roomID, studentID, teacherID string, points, delta int, regrade bool) GradeRecordedEvent {
	return GradeRecordedEvent{
		BaseEvent:   NewBaseEvent(EventGradeRecorded, missionID),
		MissionID:   missionID,
		RoomID:      roomID,
		StudentID:   studentID,
		TeacherID:   teacherID,
		Points:      points,
		PointsDelta: delta,
		Regrade:     regrade,
	}
}

// MissionGradedEvent is emitted when every submitter of a mission has a grade
// and the mission status flips to graded.
type MissionGradedEvent struct {
	BaseEvent
	MissionID string `json:"mission_id"`
	RoomID    string `json:"room_id"`
}

// Payload implements Event interface.
func (e MissionGradedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"mission_id": e.MissionID,
		"room_id":    e.RoomID,
	}
}

// NewMissionGradedEvent creates a new MissionGradedEvent.
func NewMissionGradedEvent(missionID, roomID string) MissionGradedEvent {
	return MissionGradedEvent{
		BaseEvent: NewBaseEvent(EventMissionGraded, missionID),
		MissionID: missionID,
		RoomID:    roomID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ContentViewedEvent is emitted on every view upsert.
type ContentViewedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
	ModuleID  string `json:"module_id"`
	TrackID   string `json:"track_id"`
}

// Payload implements Event interface.
func (e ContentViewedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"content_id": e.ContentID,
		"module_id":  e.ModuleID,
		"track_id":   e.TrackID,
	}
}

// NewContentViewedEvent creates a new ContentViewedEvent.
func NewContentViewedEvent(userID, contentID, moduleID, trackID string) ContentViewedEvent {
	return ContentViewedEvent{
		BaseEvent: NewBaseEvent(EventContentViewed, contentID),
		UserID:    userID,
		ContentID: contentID,
		ModuleID:  moduleID,
		TrackID:   trackID,
	}
}

// ContentCompletedEvent is emitted when a student marks a content item complete.
type ContentCompletedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
	ModuleID  string `json:"module_id"`
	TrackID   string `json:"track_id"`
}

// Payload implements Event interface.
func (e ContentCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"content_id": e.ContentID,
		"module_id":  e.ModuleID,
		"track_id":   e.TrackID,
	}
}

// NewContentCompletedEvent creates a new ContentCompletedEvent.
func NewContentCompletedEvent(userID, contentID, moduleID, trackID string) ContentCompletedEvent {
	return ContentCompletedEvent{
		BaseEvent: NewBaseEvent(EventContentCompleted, contentID),
		UserID:    userID,
		ContentID: contentID,
		ModuleID:  moduleID,
		TrackID:   trackID,
	}
}

// TrackCompletedEvent is emitted when the last content item of a track is
// completed by a student.
type TrackCompletedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	TrackID string `json:"track_id"`
	RoomID  string `json:"room_id"`
}

// Payload implements Event interface.
func (e TrackCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"track_id": e.TrackID,
		"room_id":  e.RoomID,
	}
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(userID, trackID, roomID string) TrackCompletedEvent {
	return TrackCompletedEvent{
		BaseEvent: NewBaseEvent(EventTrackCompleted, trackID),
		UserID:    userID,
		TrackID:   trackID,
		RoomID:    roomID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Title Events
// ═══════════════════════════════════════════════════════════════════════════

// TitleGrantedEvent is emitted when the award engine grants a title.
// RoomID is empty for global titles.
type TitleGrantedEvent struct {
	BaseEvent
	TitleID      string `json:"title_id"`
	UserID       string `json:"user_id"`
	RoomID       string `json:"room_id,omitempty"`
	MembershipID string `json:"membership_id,omitempty"`
	Retroactive  bool   `json:"retroactive"`
}

// Payload implements Event interface.
func (e TitleGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title_id":      e.TitleID,
		"user_id":       e.UserID,
		"room_id":       e.RoomID,
		"membership_id": e.MembershipID,
		"retroactive":   e.Retroactive,
	}
}

// NewTitleGrantedEvent creates a new TitleGrantedEvent.
func NewTitleGrantedEvent(titleID, userID, roomID, membershipID string, retroactive bool) TitleGrantedEvent {
	return TitleGrantedEvent{
		BaseEvent:    NewBaseEvent(EventTitleGranted, titleID),
		TitleID:      titleID,
		UserID:       userID,
		RoomID:       roomID,
		MembershipID: membershipID,
		Retroactive:  retroactive,
	}
}

// TitleCreatedEvent is emitted when a title definition is created, before
// the retroactive sweep runs.
type TitleCreatedEvent struct {
	BaseEvent
	TitleID string `json:"title_id"`
	Scope   string `json:"scope"`
	RoomID  string `json:"room_id,omitempty"`
}

// Payload implements Event interface.
func (e TitleCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title_id": e.TitleID,
		"scope":    e.Scope,
		"room_id":  e.RoomID,
	}
}

// NewTitleCreatedEvent creates a new TitleCreatedEvent.
func NewTitleCreatedEvent(titleID, scope, roomID string) TitleCreatedEvent {
	return TitleCreatedEvent{
		BaseEvent: NewBaseEvent(EventTitleCreated, titleID),
		TitleID:   titleID,
		Scope:     scope,
		RoomID:    roomID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
