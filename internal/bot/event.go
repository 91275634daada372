// internal/bot/event.go
package bot

import (
	"fmt"
	"strconv"
	"strings"

	"calorie-bot/internal/tracker"
)

type EventKind string

const (
	OnboardingStart EventKind = "onboarding_start"
	OnboardingReply EventKind = "onboarding_reply"
	FoodText        EventKind = "food_text"
	TodayQuery      EventKind = "today"
	AddCustomText   EventKind = "add_custom"
	RemoveCallback  EventKind = "remove"
	// Text is free text whose intent depends on the conversation: a budget
	// answer while onboarding, a food description otherwise.
	Text EventKind = "text"
)

// Event is one inbound trigger from a messaging connector.
type Event struct {
	ID             string
	Kind           EventKind
	UserID         int64
	ConversationID int64
	Text           string
	EntryID        int64
}

// conversationKey scopes onboarding state to the sender within the chat.
func (ev Event) conversationKey() tracker.ConversationKey {
	return tracker.ConversationKey{ChatID: ev.ConversationID, UserID: ev.UserID}
}

// Reply is the outbound answer to an Event.
type Reply struct {
	Text string `json:"text"`
	HTML bool   `json:"html,omitempty"`
	// CancelEntryID, when non-zero, attaches a single Cancel button that
	// triggers RemoveCallback for that entry.
	CancelEntryID int64 `json:"cancel_entry_id,omitempty"`
	// Edit asks the connector to replace the message the event came from.
	Edit bool `json:"edit,omitempty"`
}

const removePrefix = "remove:"

// RemoveCallbackData is the button payload for cancelling an entry.
func RemoveCallbackData(entryID int64) string {
	return removePrefix + strconv.FormatInt(entryID, 10)
}

// ParseRemoveCallback parses "remove:<id>".
func ParseRemoveCallback(data string) (int64, error) {
	if !strings.HasPrefix(data, removePrefix) {
		return 0, fmt.Errorf("unexpected callback data %q", data)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, removePrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id in callback data %q", data)
	}
	return id, nil
}
