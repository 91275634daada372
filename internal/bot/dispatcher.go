// internal/bot/dispatcher.go
package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"calorie-bot/internal/estimator"
	"calorie-bot/internal/tracker"
)

// Dispatcher routes inbound events to the workflows. Handle always produces a
// reply; faults are logged and rendered as a generic error message.
type Dispatcher struct {
	service    *tracker.Service
	onboarding *tracker.Onboarding
	log        logrus.FieldLogger
}

func NewDispatcher(service *tracker.Service, onboarding *tracker.Onboarding, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{service: service, onboarding: onboarding, log: log}
}

func (d *Dispatcher) Handle(ctx context.Context, ev Event) Reply {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ConversationID == 0 {
		ev.ConversationID = ev.UserID
	}
	log := d.log.WithFields(logrus.Fields{
		"event_id": ev.ID,
		"kind":     ev.Kind,
		"user_id":  ev.UserID,
	})

	if ev.Kind == Text {
		ev.Kind = d.resolveText(ctx, ev, log)
	}
	log.WithField("intent", ev.Kind).Debug("handling event")

	switch ev.Kind {
	case OnboardingStart:
		return d.startOnboarding(ctx, ev, log)
	case OnboardingReply:
		return d.onboardingReply(ctx, ev, log)
	case FoodText:
		return d.logFood(ctx, ev, log)
	case TodayQuery:
		return d.today(ctx, ev, log)
	case AddCustomText:
		return d.addCustom(ctx, ev, log)
	case RemoveCallback:
		return d.remove(ctx, ev, log)
	default:
		log.Warn("unknown event kind")
		return Reply{Text: msgGenericFailure}
	}
}

// resolveText decides whether free text answers the onboarding question. A
// failing state lookup falls back to treating the text as food.
func (d *Dispatcher) resolveText(ctx context.Context, ev Event, log logrus.FieldLogger) EventKind {
	awaiting, err := d.onboarding.Awaiting(ctx, ev.conversationKey())
	if err != nil {
		log.WithError(err).Error("onboarding state lookup failed")
		return FoodText
	}
	if awaiting {
		return OnboardingReply
	}
	return FoodText
}

func (d *Dispatcher) startOnboarding(ctx context.Context, ev Event, log logrus.FieldLogger) Reply {
	if err := d.onboarding.Start(ctx, ev.conversationKey()); err != nil {
		log.WithError(err).Error("start onboarding failed")
		return Reply{Text: msgGenericFailure}
	}
	return Reply{Text: msgWelcome}
}

func (d *Dispatcher) onboardingReply(ctx context.Context, ev Event, log logrus.FieldLogger) Reply {
	outcome, budget, err := d.onboarding.Reply(ctx, ev.conversationKey(), ev.Text)
	if err != nil {
		log.WithError(err).Error("onboarding reply failed")
		return Reply{Text: msgGenericFailure}
	}

	switch outcome {
	case tracker.OutcomeSaved:
		log.WithField("budget", budget).Info("daily limit set")
		return Reply{Text: budgetSaved(budget)}
	case tracker.OutcomeInvalid:
		return Reply{Text: msgInvalidBudget}
	default:
		return Reply{Text: msgOnboardingInactive}
	}
}

func (d *Dispatcher) logFood(ctx context.Context, ev Event, log logrus.FieldLogger) Reply {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Reply{Text: msgEmptyFood}
	}

	res, err := d.service.LogFood(ctx, ev.UserID, text)
	if err != nil {
		return d.estimationError(err, log, "log food failed")
	}

	log.WithFields(logrus.Fields{
		"entry_id": res.EntryID,
		"product":  res.Product,
		"calories": res.Calories,
	}).Info("food logged")
	return Reply{Text: foodLogged(res), CancelEntryID: res.EntryID}
}

func (d *Dispatcher) addCustom(ctx context.Context, ev Event, log logrus.FieldLogger) Reply {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Reply{Text: msgEmptyFood}
	}

	food, err := d.service.AddCustomFood(ctx, ev.UserID, text)
	if err != nil {
		return d.estimationError(err, log, "add custom food failed")
	}

	log.WithFields(logrus.Fields{
		"custom_id": food.ID,
		"name":      food.Name,
		"calories":  food.Calories,
	}).Info("custom food added")
	return Reply{Text: customFoodAdded(food)}
}

// estimationError shows the estimator's own reason when it gave one and a
// generic message for everything else.
func (d *Dispatcher) estimationError(err error, log logrus.FieldLogger, msg string) Reply {
	var failure *estimator.Failure
	if errors.As(err, &failure) && failure.Reason != "" {
		log.WithField("reason", failure.Reason).Info("estimation rejected")
		return Reply{Text: estimationRejected(failure.Reason)}
	}
	log.WithError(err).Error(msg)
	return Reply{Text: msgGenericFailure}
}

func (d *Dispatcher) today(ctx context.Context, ev Event, log logrus.FieldLogger) Reply {
	sum, err := d.service.Today(ctx, ev.UserID)
	switch {
	case errors.Is(err, tracker.ErrNoEntries):
		return Reply{Text: msgNoEntries, HTML: true}
	case errors.Is(err, tracker.ErrNoProfile):
		return Reply{Text: msgNoProfile}
	case err != nil:
		log.WithError(err).Error("daily summary failed")
		return Reply{Text: msgGenericFailure}
	}
	return Reply{Text: daySummary(sum), HTML: true}
}

func (d *Dispatcher) remove(ctx context.Context, ev Event, log logrus.FieldLogger) Reply {
	res, err := d.service.RemoveEntry(ctx, ev.UserID, ev.EntryID)
	switch {
	case errors.Is(err, tracker.ErrEntryNotFound):
		return Reply{Text: msgNotFound, Edit: true}
	case err != nil:
		log.WithError(err).WithField("entry_id", ev.EntryID).Error("remove entry failed")
		return Reply{Text: msgRemoveFailure, Edit: true}
	}

	log.WithField("entry_id", res.EntryID).Info("entry removed")
	return Reply{Text: entryRemoved(res.Product), Edit: true}
}
