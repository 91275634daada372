// internal/tracker/service.go
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calorie-bot/internal/estimator"
	"calorie-bot/internal/models"
)

var (
	// ErrNoEntries means the user has logged nothing in the requested day.
	ErrNoEntries = errors.New("no entries for the day")
	// ErrNoProfile means the user never set a daily calorie budget.
	ErrNoProfile = errors.New("user has no profile")
	// ErrEntryNotFound covers both a missing entry and one owned by someone
	// else, so callers cannot probe other users' ids.
	ErrEntryNotFound = errors.New("entry not found or not owned")
)

// Store is the record store the workflows need.
type Store interface {
	GetUserProfile(ctx context.Context, userID int64) (*models.Profile, error)
	SaveUserProfile(ctx context.Context, userID int64, dailyCalories int) error
	InsertFoodEntry(ctx context.Context, userID int64, product string, calories int, ts time.Time) (int64, error)
	GetFoodEntry(ctx context.Context, entryID, userID int64) (*models.FoodEntry, error)
	DeleteFoodEntry(ctx context.Context, entryID, userID int64) (bool, error)
	EntriesInRange(ctx context.Context, userID int64, start, end time.Time) ([]models.FoodEntry, error)
	TopEntryInRange(ctx context.Context, userID int64, start, end time.Time) (*models.FoodEntry, error)
	SumCaloriesInRange(ctx context.Context, userID int64, start, end time.Time) (int, error)
	InsertCustomFood(ctx context.Context, userID int64, name string, calories int, aliases string) (int64, error)
	ListCustomFoods(ctx context.Context, userID int64) ([]models.CustomFood, error)
}

// Estimator produces calorie estimates. Failures are *estimator.Failure.
type Estimator interface {
	Estimate(ctx context.Context, description, customContext string) (*models.Estimate, error)
	EstimateCustomFood(ctx context.Context, description string) (*models.Estimate, error)
}

type Service struct {
	store     Store
	estimator Estimator
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, est Estimator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		estimator: est,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogResult confirms a logged entry. EntryID doubles as the removal handle.
type LogResult struct {
	EntryID  int64
	Product  string
	Calories int
}

// LogFood estimates text with the user's custom foods as context and stores
// the result stamped with the current UTC time.
func (s *Service) LogFood(ctx context.Context, userID int64, text string) (*LogResult, error) {
	foods, err := s.store.ListCustomFoods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom foods: %w", err)
	}

	est, err := s.estimator.Estimate(ctx, text, estimator.CustomFoodsContext(foods))
	if err != nil {
		return nil, err
	}
	if est.Calories <= 0 {
		return nil, &estimator.Failure{Cause: fmt.Errorf("non-positive calories %d", est.Calories)}
	}

	id, err := s.store.InsertFoodEntry(ctx, userID, est.Product, est.Calories, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to save food entry: %w", err)
	}

	return &LogResult{
		EntryID:  id,
		Product:  est.Product,
		Calories: est.Calories,
	}, nil
}

// AddCustomFood estimates text as a user-defined food and stores it for use as
// context in later estimates.
func (s *Service) AddCustomFood(ctx context.Context, userID int64, text string) (*models.CustomFood, error) {
	est, err := s.estimator.EstimateCustomFood(ctx, text)
	if err != nil {
		return nil, err
	}
	if est.Calories <= 0 {
		return nil, &estimator.Failure{Cause: fmt.Errorf("non-positive calories %d", est.Calories)}
	}

	id, err := s.store.InsertCustomFood(ctx, userID, est.Product, est.Calories, est.Aliases)
	if err != nil {
		return nil, fmt.Errorf("failed to save custom food: %w", err)
	}

	return &models.CustomFood{
		ID:       id,
		UserID:   userID,
		Name:     est.Product,
		Calories: est.Calories,
		Aliases:  est.Aliases,
	}, nil
}
