package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trailroom/trailroom-hub/internal/application/authz"
	"github.com/trailroom/trailroom-hub/internal/domain/progress"
	"github.com/trailroom/trailroom-hub/internal/domain/shared"
	"github.com/trailroom/trailroom-hub/internal/domain/track"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD VIEW / SET COMPLETION COMMANDS
// RecordView is the idempotent "user opened this content" upsert; viewing
// never completes anything. SetCompletion flips the completion flag in either
// direction by explicit user action.
// ══════════════════════════════════════════════════════════════════════════════

// RecordViewCommand contains the data to record that a user viewed content.
type RecordViewCommand struct {
	UserID    string
	ContentID string

	// SecondsSpent is optional analytics data; zero means unreported.
	SecondsSpent int
}

// Validate validates the command.
func (c RecordViewCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("record_view: user_id is required")
	}
	if c.ContentID == "" {
		return errors.New("record_view: content_id is required")
	}
	if c.SecondsSpent < 0 {
		return errors.New("record_view: seconds_spent cannot be negative")
	}
	return nil
}

// RecordViewResult contains the result of recording a view.
type RecordViewResult struct {
	// FirstView is true when this call created the record.
	FirstView bool

	// Completed reflects the completion flag after the call; RecordView
	// never changes it.
	Completed bool

	ViewedAt time.Time
}

// contentChain resolves the content → module → track path once per command.
type contentChain struct {
	content *track.ContentItem
	module  *track.Module
	track   *track.Track
}

func resolveChain(ctx context.Context, graph track.Reader, contentID string) (*contentChain, error) {
	c, err := graph.GetContent(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("resolve content: %w", err)
	}
	m, err := graph.GetModule(ctx, c.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("resolve module: %w", err)
	}
	t, err := graph.GetTrack(ctx, m.TrackID)
	if err != nil {
		return nil, fmt.Errorf("resolve track: %w", err)
	}
	return &contentChain{content: c, module: m, track: t}, nil
}

// RecordViewHandler handles the RecordViewCommand.
type RecordViewHandler struct {
	progressRepo progress.Repository
	graph        track.Reader
	policy       *authz.Policy
	eventBus     shared.EventPublisher
}

// NewRecordViewHandler creates a new RecordViewHandler.
func NewRecordViewHandler(
	progressRepo progress.Repository,
	graph track.Reader,
	policy *authz.Policy,
	eventBus shared.EventPublisher,
) *RecordViewHandler {
	return &RecordViewHandler{
		progressRepo: progressRepo,
		graph:        graph,
		policy:       policy,
		eventBus:     eventBus,
	}
}

// Handle executes the record view command. Re-running it for the same
// (user, content) pair only refreshes timestamps.
func (h *RecordViewHandler) Handle(ctx context.Context, cmd RecordViewCommand) (*RecordViewResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("progress", "RecordView", shared.ErrValidation, "invalid command", err)
	}

	chain, err := resolveChain(ctx, h.graph, cmd.ContentID)
	if err != nil {
		return nil, err
	}
	if _, err := h.policy.RequireMember(ctx, cmd.UserID, chain.track.RoomID); err != nil {
		return nil, err
	}

	record, err := h.progressRepo.Get(ctx, cmd.UserID, cmd.ContentID)
	firstView := false
	switch {
	case err == nil:
		record.ViewedAt = time.Now().UTC()
		record.UpdatedAt = record.ViewedAt
	case shared.IsNotFound(err):
		record, err = progress.NewViewRecord(cmd.UserID, cmd.ContentID)
		if err != nil {
			return nil, err
		}
		firstView = true
	default:
		return nil, fmt.Errorf("record_view: load record: %w", err)
	}

	if cmd.SecondsSpent > 0 {
		record.SecondsSpent += cmd.SecondsSpent
	}

	if err := h.progressRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("record_view: upsert: %w", err)
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewContentViewedEvent(cmd.UserID, cmd.ContentID, chain.module.ID, chain.track.ID))
	}

	return &RecordViewResult{
		FirstView: firstView,
		Completed: record.Completed,
		ViewedAt:  record.ViewedAt,
	}, nil
}

// SetCompletionCommand contains the data to flip a completion flag.
type SetCompletionCommand struct {
	UserID    string
	ContentID string

	// Completed is the target state. False is the explicit un-complete
	// action; nothing else ever reverts the flag.
	Completed bool
}

// Validate validates the command.
func (c SetCompletionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("set_completion: user_id is required")
	}
	if c.ContentID == "" {
		return errors.New("set_completion: content_id is required")
	}
	return nil
}

// SetCompletionResult contains the result of a completion flip.
type SetCompletionResult struct {
	// Changed is false when the flag already had the target value.
	Changed bool

	// TrackCompleted is true when this flip completed the last remaining
	// content item of the track.
	TrackCompleted bool

	// TrackPercent is the track progress after the flip.
	TrackPercent float64

	Events []shared.Event
}

// SetCompletionHandler handles the SetCompletionCommand.
type SetCompletionHandler struct {
	progressRepo progress.Repository
	graph        track.Reader
	policy       *authz.Policy
	cache        progress.Cache
	tx           shared.TxManager
	eventBus     shared.EventPublisher
}

// NewSetCompletionHandler creates a new SetCompletionHandler.
func NewSetCompletionHandler(
	progressRepo progress.Repository,
	graph track.Reader,
	policy *authz.Policy,
	cache progress.Cache,
	tx shared.TxManager,
	eventBus shared.EventPublisher,
) *SetCompletionHandler {
	return &SetCompletionHandler{
		progressRepo: progressRepo,
		graph:        graph,
		policy:       policy,
		cache:        cache,
		tx:           tx,
		eventBus:     eventBus,
	}
}

// Handle executes the set completion command. The flag write and the
// track-completion check share one transaction so the "last item completed"
// observation cannot race a concurrent flip.
func (h *SetCompletionHandler) Handle(ctx context.Context, cmd SetCompletionCommand) (*SetCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("progress", "SetCompletion", shared.ErrValidation, "invalid command", err)
	}

	chain, err := resolveChain(ctx, h.graph, cmd.ContentID)
	if err != nil {
		return nil, err
	}
	if _, err := h.policy.RequireMember(ctx, cmd.UserID, chain.track.RoomID); err != nil {
		return nil, err
	}

	result := &SetCompletionResult{}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := h.progressRepo.Get(ctx, cmd.UserID, cmd.ContentID)
		switch {
		case err == nil:
		case shared.IsNotFound(err):
			// Completing without a prior view still creates the record.
			record, err = progress.NewViewRecord(cmd.UserID, cmd.ContentID)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("set_completion: load record: %w", err)
		}

		result.Changed = record.SetCompleted(cmd.Completed)
		if err := h.progressRepo.Upsert(ctx, record); err != nil {
			return fmt.Errorf("set_completion: upsert: %w", err)
		}

		completed, err := h.progressRepo.CountCompletedInTrack(ctx, cmd.UserID, chain.track.ID)
		if err != nil {
			return fmt.Errorf("set_completion: count completed: %w", err)
		}
		total, err := h.graph.CountTrackContents(ctx, chain.track.ID)
		if err != nil {
			return fmt.Errorf("set_completion: count contents: %w", err)
		}

		result.TrackPercent = progress.Percentage(completed, total)
		result.TrackCompleted = result.Changed && cmd.Completed && total > 0 && completed == total
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		_ = h.cache.InvalidateTrack(ctx, cmd.UserID, chain.track.ID)
	}

	if result.Changed && cmd.Completed {
		result.Events = append(result.Events,
			shared.NewContentCompletedEvent(cmd.UserID, cmd.ContentID, chain.module.ID, chain.track.ID))
	}
	if result.TrackCompleted {
		result.Events = append(result.Events,
			shared.NewTrackCompletedEvent(cmd.UserID, chain.track.ID, chain.track.RoomID))
	}
	for _, event := range result.Events {
		_ = h.eventBus.Publish(event)
	}

	return result, nil
}
