// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"calorie-bot/internal/models"
)

// ErrNotFound is returned when a lookup scoped to a user matches no row.
var ErrNotFound = errors.New("record not found")

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is still reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS food_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        userid INTEGER,
        product TEXT,
        calories INTEGER,
        datetime TEXT
    );

    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        userid INTEGER,
        daily_calories INTEGER
    );

    CREATE TABLE IF NOT EXISTS custom (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        userid INTEGER,
        name TEXT,
        calories INTEGER,
        aliases TEXT
    );

    CREATE INDEX IF NOT EXISTS idx_food_log_user_datetime ON food_log(userid, datetime);
    CREATE INDEX IF NOT EXISTS idx_users_userid ON users(userid);
    CREATE INDEX IF NOT EXISTS idx_custom_userid ON custom(userid);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(models.TimestampLayout)
}

// formatRangeStart drops a zero fraction so rows written without one at that
// exact second ("...T00:00:00") still sort inside the range.
func formatRangeStart(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format(models.TimestampLayout)
}

// parseTimestamp also accepts rows written without a fractional part.
func parseTimestamp(v string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02T15:04:05.999999", v, time.UTC)
}

// GetUserProfile returns the newest profile row for the user.
func (s *SQLiteStorage) GetUserProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `
        SELECT userid, daily_calories FROM users
        WHERE userid = ?
        ORDER BY id DESC LIMIT 1
    `

	profile := &models.Profile{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&profile.UserID, &profile.DailyCalories)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return profile, nil
}

// SaveUserProfile updates the user's budget, inserting a profile row if the
// user has none yet.
func (s *SQLiteStorage) SaveUserProfile(ctx context.Context, userID int64, dailyCalories int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET daily_calories = ? WHERE userid = ?`, dailyCalories, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if n == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO users (userid, daily_calories) VALUES (?, ?)`, userID, dailyCalories)
		if err != nil {
			return fmt.Errorf("failed to insert profile: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) InsertFoodEntry(ctx context.Context, userID int64, product string, calories int, ts time.Time) (int64, error) {
	query := `
        INSERT INTO food_log (userid, product, calories, datetime)
        VALUES (?, ?, ?, ?)
    `
	res, err := s.db.ExecContext(ctx, query, userID, product, calories, formatTimestamp(ts))
	if err != nil {
		return 0, fmt.Errorf("failed to insert food entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read entry id: %w", err)
	}
	return id, nil
}

// GetFoodEntry returns the entry only when it belongs to userID.
func (s *SQLiteStorage) GetFoodEntry(ctx context.Context, entryID, userID int64) (*models.FoodEntry, error) {
	query := `
        SELECT id, userid, product, calories, datetime FROM food_log
        WHERE id = ? AND userid = ?
    `
	rows, err := s.db.QueryContext(ctx, query, entryID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query food entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}

// DeleteFoodEntry removes the entry if it belongs to userID and reports whether
// a row was deleted.
func (s *SQLiteStorage) DeleteFoodEntry(ctx context.Context, entryID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM food_log WHERE id = ? AND userid = ?`, entryID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete food entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// EntriesInRange returns the user's entries with start <= datetime <= end,
// newest first.
func (s *SQLiteStorage) EntriesInRange(ctx context.Context, userID int64, start, end time.Time) ([]models.FoodEntry, error) {
	query := `
        SELECT id, userid, product, calories, datetime FROM food_log
        WHERE userid = ? AND datetime BETWEEN ? AND ?
        ORDER BY datetime DESC, id DESC
    `
	rows, err := s.db.QueryContext(ctx, query, userID, formatRangeStart(start), formatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query food entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// TopEntryInRange returns the highest-calorie entry in the range. Ties go to
// the earliest inserted entry.
func (s *SQLiteStorage) TopEntryInRange(ctx context.Context, userID int64, start, end time.Time) (*models.FoodEntry, error) {
	query := `
        SELECT id, userid, product, calories, datetime FROM food_log
        WHERE userid = ? AND datetime BETWEEN ? AND ?
        ORDER BY calories DESC, id ASC LIMIT 1
    `
	rows, err := s.db.QueryContext(ctx, query, userID, formatRangeStart(start), formatTimestamp(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query top entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}

func (s *SQLiteStorage) SumCaloriesInRange(ctx context.Context, userID int64, start, end time.Time) (int, error) {
	query := `
        SELECT COALESCE(SUM(calories), 0) FROM food_log
        WHERE userid = ? AND datetime BETWEEN ? AND ?
    `
	var total int
	err := s.db.QueryRowContext(ctx, query, userID, formatRangeStart(start), formatTimestamp(end)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum calories: %w", err)
	}
	return total, nil
}

func (s *SQLiteStorage) InsertCustomFood(ctx context.Context, userID int64, name string, calories int, aliases string) (int64, error) {
	query := `
        INSERT INTO custom (userid, name, calories, aliases)
        VALUES (?, ?, ?, ?)
    `
	res, err := s.db.ExecContext(ctx, query, userID, name, calories, aliases)
	if err != nil {
		return 0, fmt.Errorf("failed to insert custom food: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read custom food id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStorage) ListCustomFoods(ctx context.Context, userID int64) ([]models.CustomFood, error) {
	query := `
        SELECT id, userid, name, calories, aliases FROM custom
        WHERE userid = ?
        ORDER BY id
    `
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom foods: %w", err)
	}
	defer rows.Close()

	var foods []models.CustomFood
	for rows.Next() {
		food := models.CustomFood{}
		var aliases sql.NullString

		if err := rows.Scan(&food.ID, &food.UserID, &food.Name, &food.Calories, &aliases); err != nil {
			return nil, fmt.Errorf("failed to scan custom food: %w", err)
		}

		food.Aliases = aliases.String
		foods = append(foods, food)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom foods: %w", err)
	}

	return foods, nil
}

func scanEntries(rows *sql.Rows) ([]models.FoodEntry, error) {
	var entries []models.FoodEntry
	for rows.Next() {
		entry := models.FoodEntry{}
		var timestampStr string

		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Product, &entry.Calories, &timestampStr); err != nil {
			return nil, fmt.Errorf("failed to scan food entry: %w", err)
		}

		ts, err := parseTimestamp(timestampStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		entry.Timestamp = ts

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate food entries: %w", err)
	}

	return entries, nil
}
