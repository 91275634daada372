package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calorie-bot/internal/estimator"
	"calorie-bot/internal/models"
	"calorie-bot/internal/storage"
)

// stubEstimator decodes canned estimator output the same way the real gateway does.
type stubEstimator struct {
	output  string
	context string
	calls   int
}

func (s *stubEstimator) Estimate(_ context.Context, _ string, customContext string) (*models.Estimate, error) {
	s.calls++
	s.context = customContext
	return estimator.Decode(s.output)
}

func (s *stubEstimator) EstimateCustomFood(_ context.Context, _ string) (*models.Estimate, error) {
	s.calls++
	return estimator.Decode(s.output)
}

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	s, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var noon = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestLogFoodThenRemove(t *testing.T) {
	store := newTestStore(t)
	est := &stubEstimator{output: `{"food":"Eggs","calories":140}`}
	svc := NewService(store, est, WithClock(fixedClock(noon)))
	ctx := context.Background()

	res, err := svc.LogFood(ctx, 42, "two eggs")
	if err != nil {
		t.Fatalf("log food: %v", err)
	}
	if res.Product != "Eggs" || res.Calories != 140 || res.EntryID == 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	start, end := DayWindow(noon)
	entries, err := store.EntriesInRange(ctx, 42, start, end)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != res.EntryID || entries[0].UserID != 42 {
		t.Fatalf("expected exactly one entry owned by 42, got %+v", entries)
	}
	if !entries[0].Timestamp.Equal(noon) {
		t.Fatalf("expected timestamp %v, got %v", noon, entries[0].Timestamp)
	}

	removed, err := svc.RemoveEntry(ctx, 42, res.EntryID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Product != "Eggs" {
		t.Fatalf("expected Eggs removed, got %+v", removed)
	}

	if _, err := svc.RemoveEntry(ctx, 42, res.EntryID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("second removal: expected ErrEntryNotFound, got %v", err)
	}
	if _, err := svc.RemoveEntry(ctx, 42, 9999); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("unknown id: expected ErrEntryNotFound, got %v", err)
	}
}

func TestLogFoodEstimatorError(t *testing.T) {
	store := newTestStore(t)
	est := &stubEstimator{output: `{"error":"not a food item"}`}
	svc := NewService(store, est, WithClock(fixedClock(noon)))
	ctx := context.Background()

	_, err := svc.LogFood(ctx, 42, "a chair")
	var failure *estimator.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected estimator failure, got %v", err)
	}
	if !strings.Contains(failure.Reason, "not a food item") {
		t.Fatalf("unexpected reason %q", failure.Reason)
	}

	start, end := DayWindow(noon)
	entries, err := store.EntriesInRange(ctx, 42, start, end)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestLogFoodUsesCustomFoods(t *testing.T) {
	store := newTestStore(t)
	est := &stubEstimator{output: `{"food":"Protein bar","calories":210,"aliases":"bar"}`}
	svc := NewService(store, est, WithClock(fixedClock(noon)))
	ctx := context.Background()

	food, err := svc.AddCustomFood(ctx, 42, "my protein bar")
	if err != nil {
		t.Fatalf("add custom: %v", err)
	}
	if food.Name != "Protein bar" || food.Aliases != "bar" {
		t.Fatalf("unexpected custom food: %+v", food)
	}

	if _, err := svc.LogFood(ctx, 42, "bar"); err != nil {
		t.Fatalf("log food: %v", err)
	}
	if !strings.Contains(est.context, "- Protein bar: 210 kcal (aliases: bar)") {
		t.Fatalf("custom food not passed as context: %q", est.context)
	}

	if _, err := svc.LogFood(ctx, 7, "bar"); err != nil {
		t.Fatalf("log food for other user: %v", err)
	}
	if est.context != "" {
		t.Fatalf("other user's context must be empty, got %q", est.context)
	}
}

func TestRemoveEntryRespectsOwnership(t *testing.T) {
	store := newTestStore(t)
	est := &stubEstimator{output: `{"food":"Pizza","calories":800}`}
	svc := NewService(store, est, WithClock(fixedClock(noon)))
	ctx := context.Background()

	res, err := svc.LogFood(ctx, 1, "pizza")
	if err != nil {
		t.Fatalf("log food: %v", err)
	}

	if _, err := svc.RemoveEntry(ctx, 2, res.EntryID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound for non-owner, got %v", err)
	}
	if _, err := store.GetFoodEntry(ctx, res.EntryID, 1); err != nil {
		t.Fatalf("entry must survive a foreign removal: %v", err)
	}
}

func TestSummary(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, &stubEstimator{}, WithClock(fixedClock(noon)))
	ctx := context.Background()

	start, end := DayWindow(noon)
	seed := []struct {
		product  string
		calories int
		ts       time.Time
	}{
		{"Yesterday cake", 900, start.Add(-time.Second)},
		{"Oatmeal", 250, start.Add(8 * time.Hour)},
		{"Pizza", 800, start.Add(13 * time.Hour)},
		{"Tea", 5, end},
		{"Tomorrow toast", 300, end.Add(time.Second)},
	}
	for _, s := range seed {
		if _, err := store.InsertFoodEntry(ctx, 42, s.product, s.calories, s.ts); err != nil {
			t.Fatalf("seed %s: %v", s.product, err)
		}
	}
	if _, err := store.InsertFoodEntry(ctx, 43, "Not mine", 5000, noon); err != nil {
		t.Fatalf("seed other user: %v", err)
	}

	if _, err := svc.Today(ctx, 42); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}

	if err := store.SaveUserProfile(ctx, 42, 1000); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	sum, err := svc.Today(ctx, 42)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if sum.Total != 1055 {
		t.Fatalf("expected total 1055, got %d", sum.Total)
	}
	if sum.Budget != 1000 || sum.Remaining != -55 {
		t.Fatalf("unexpected budget math: budget=%d remaining=%d", sum.Budget, sum.Remaining)
	}
	if sum.Top == nil || sum.Top.Product != "Pizza" {
		t.Fatalf("expected Pizza on top, got %+v", sum.Top)
	}
	if len(sum.Entries) != 3 || sum.Entries[0].Product != "Tea" || sum.Entries[2].Product != "Oatmeal" {
		t.Fatalf("unexpected entries: %+v", sum.Entries)
	}
	if !sum.Day.Equal(start) {
		t.Fatalf("expected day %v, got %v", start, sum.Day)
	}
}

func TestSummaryNoEntries(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, &stubEstimator{}, WithClock(fixedClock(noon)))
	ctx := context.Background()

	if _, err := svc.Today(ctx, 42); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries without profile, got %v", err)
	}
	if err := store.SaveUserProfile(ctx, 42, 2000); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if _, err := svc.Summary(ctx, 42, noon.Add(-48*time.Hour)); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
}

func TestDayWindow(t *testing.T) {
	local := time.FixedZone("UTC+3", 3*60*60)
	at := time.Date(2024, 5, 11, 1, 30, 0, 0, local) // 2024-05-10 22:30 UTC

	start, end := DayWindow(at)
	if got := start.Format(models.TimestampLayout); got != "2024-05-10T00:00:00.000000" {
		t.Fatalf("unexpected start %s", got)
	}
	if got := end.Format(models.TimestampLayout); got != "2024-05-10T23:59:59.999999" {
		t.Fatalf("unexpected end %s", got)
	}
}

func TestImportCustomFoods(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, &stubEstimator{})
	ctx := context.Background()

	doc := `
foods:
  - name: Protein bar
    calories: 210
    aliases: [bar, " protein bar "]
  - name: Mom's soup
    calories: 320
`
	n, err := svc.ImportCustomFoods(ctx, 42, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}

	foods, err := store.ListCustomFoods(ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(foods) != 2 || foods[0].Aliases != "bar,protein bar" || foods[1].Aliases != "" {
		t.Fatalf("unexpected foods: %+v", foods)
	}

	bad := "foods:\n  - name: Ghost\n    calories: 0\n"
	if _, err := svc.ImportCustomFoods(ctx, 42, strings.NewReader(bad)); err == nil {
		t.Fatalf("expected validation error")
	}
	foods, _ = store.ListCustomFoods(ctx, 42)
	if len(foods) != 2 {
		t.Fatalf("invalid file must not insert anything, got %d foods", len(foods))
	}
}
