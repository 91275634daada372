// internal/tracker/onboarding.go
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// OnboardingState is the step a conversation is at.
type OnboardingState string

const (
	StateIdle           OnboardingState = ""
	StateAwaitingBudget OnboardingState = "awaiting_budget"
)

// ConversationKey identifies one user's conversation within a chat. In a group
// chat every member has their own onboarding state.
type ConversationKey struct {
	ChatID int64
	UserID int64
}

func (k ConversationKey) String() string {
	return strconv.FormatInt(k.ChatID, 10) + ":" + strconv.FormatInt(k.UserID, 10)
}

// StateStore keeps onboarding state per conversation.
type StateStore interface {
	Get(ctx context.Context, key ConversationKey) (OnboardingState, error)
	Set(ctx context.Context, key ConversationKey, state OnboardingState) error
	Clear(ctx context.Context, key ConversationKey) error
}

type OnboardingOutcome int

const (
	// OutcomeNotActive: the conversation is not waiting for a budget.
	OutcomeNotActive OnboardingOutcome = iota
	// OutcomeInvalid: the reply was not a positive integer; still waiting.
	OutcomeInvalid
	// OutcomeSaved: the budget was stored and onboarding finished.
	OutcomeSaved
)

// Onboarding asks for a daily calorie budget and stores it as the profile.
type Onboarding struct {
	store  Store
	states StateStore
}

func NewOnboarding(store Store, states StateStore) *Onboarding {
	return &Onboarding{store: store, states: states}
}

// Start (re)enters the budget question for the conversation.
func (o *Onboarding) Start(ctx context.Context, key ConversationKey) error {
	if err := o.states.Set(ctx, key, StateAwaitingBudget); err != nil {
		return fmt.Errorf("failed to start onboarding: %w", err)
	}
	return nil
}

func (o *Onboarding) Awaiting(ctx context.Context, key ConversationKey) (bool, error) {
	state, err := o.states.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read onboarding state: %w", err)
	}
	return state == StateAwaitingBudget, nil
}

// Reply consumes an answer to the budget question and saves it as the profile
// of key.UserID. The returned budget is only meaningful for OutcomeSaved.
func (o *Onboarding) Reply(ctx context.Context, key ConversationKey, text string) (OnboardingOutcome, int, error) {
	awaiting, err := o.Awaiting(ctx, key)
	if err != nil {
		return OutcomeNotActive, 0, err
	}
	if !awaiting {
		return OutcomeNotActive, 0, nil
	}

	budget, ok := ParseBudget(text)
	if !ok {
		return OutcomeInvalid, 0, nil
	}

	if err := o.store.SaveUserProfile(ctx, key.UserID, budget); err != nil {
		return OutcomeNotActive, 0, fmt.Errorf("failed to save profile: %w", err)
	}
	if err := o.states.Clear(ctx, key); err != nil {
		return OutcomeSaved, budget, fmt.Errorf("failed to finish onboarding: %w", err)
	}
	return OutcomeSaved, budget, nil
}

// ParseBudget accepts a positive whole number of kcal.
func ParseBudget(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
