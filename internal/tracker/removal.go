// internal/tracker/removal.go
package tracker

import (
	"context"
	"errors"
	"fmt"

	"calorie-bot/internal/storage"
)

type RemoveResult struct {
	EntryID int64
	Product string
}

// RemoveEntry deletes the entry if userID owns it. Removing an unknown,
// already removed or foreign entry yields ErrEntryNotFound.
func (s *Service) RemoveEntry(ctx context.Context, userID, entryID int64) (*RemoveResult, error) {
	entry, err := s.store.GetFoodEntry(ctx, entryID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}

	deleted, err := s.store.DeleteFoodEntry(ctx, entryID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete entry: %w", err)
	}
	if !deleted {
		// removed concurrently between lookup and delete
		return nil, ErrEntryNotFound
	}

	return &RemoveResult{EntryID: entryID, Product: entry.Product}, nil
}
