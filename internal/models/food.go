// internal/models/food.go
package models

import (
	"time"
)

// TimestampLayout is how entry timestamps are persisted: naive UTC with a fixed
// microsecond fraction, so string order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000000"

type Profile struct {
	UserID        int64 `json:"user_id"`
	DailyCalories int   `json:"daily_calories"`
}

type FoodEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Product   string    `json:"product"`
	Calories  int       `json:"calories"`
	Timestamp time.Time `json:"timestamp"`
}

type CustomFood struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Calories int    `json:"calories"`
	Aliases  string `json:"aliases,omitempty"` // comma separated
}

// Estimate is a successful calorie estimation.
type Estimate struct {
	Product  string `json:"food"`
	Calories int    `json:"calories"`
	Aliases  string `json:"aliases,omitempty"`
}
