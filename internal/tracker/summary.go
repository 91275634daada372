// internal/tracker/summary.go
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calorie-bot/internal/models"
	"calorie-bot/internal/storage"
)

// endOfDay is the inclusive upper bound of a day window.
const endOfDay = 24*time.Hour - time.Microsecond

type DaySummary struct {
	Day       time.Time
	Total     int
	Budget    int
	Remaining int // negative when over budget
	Top       *models.FoodEntry
	Entries   []models.FoodEntry // newest first
}

// DayWindow returns [00:00:00.000000, 23:59:59.999999] of at's UTC date.
func DayWindow(at time.Time) (time.Time, time.Time) {
	at = at.UTC()
	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(endOfDay)
}

func (s *Service) Today(ctx context.Context, userID int64) (*DaySummary, error) {
	return s.Summary(ctx, userID, s.now())
}

// Summary aggregates the user's entries for the UTC day containing at. It
// returns ErrNoEntries for an empty day and ErrNoProfile when there is
// something to compare but no budget to compare it against.
func (s *Service) Summary(ctx context.Context, userID int64, at time.Time) (*DaySummary, error) {
	start, end := DayWindow(at)

	entries, err := s.store.EntriesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	profile, err := s.store.GetUserProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	total, err := s.store.SumCaloriesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum calories: %w", err)
	}

	top, err := s.store.TopEntryInRange(ctx, userID, start, end)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load top entry: %w", err)
	}

	return &DaySummary{
		Day:       start,
		Total:     total,
		Budget:    profile.DailyCalories,
		Remaining: profile.DailyCalories - total,
		Top:       top,
		Entries:   entries,
	}, nil
}
