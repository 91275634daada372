// internal/bot/format.go
package bot

import (
	"fmt"
	"html"
	"strings"

	"calorie-bot/internal/models"
	"calorie-bot/internal/tracker"
)

const (
	msgWelcome        = "👋 Welcome! Please enter your daily calorie limit (in kcal):"
	msgInvalidBudget  = "⚠️ Please enter a valid number."
	msgNoEntries      = "No entries for today yet. 🍏"
	msgNoProfile      = "⚠️ Your daily calorie limit is not set yet. Send /start to set it."
	msgNotFound       = "Entry not found or doesn't belong to you."
	msgGenericFailure = "☠️ Error"
	msgRemoveFailure  = "⚠️ Error while removing entry."
	msgEmptyFood      = "⚠️ Please describe what you ate."

	msgOnboardingInactive = "Send /start to set your daily calorie limit."
)

func budgetSaved(budget int) string {
	return fmt.Sprintf("✅ Daily limit set to %d kcal.", budget)
}

func estimationRejected(reason string) string {
	return "⚠️ Error: " + reason
}

func foodLogged(res *tracker.LogResult) string {
	return fmt.Sprintf("Item: %s\nCalories: %d kcal\n👌 Saved", res.Product, res.Calories)
}

func customFoodAdded(food *models.CustomFood) string {
	return fmt.Sprintf("Item: %s\nCalories: %d kcal\nAliases: %s\n➕ Added", food.Name, food.Calories, food.Aliases)
}

func entryRemoved(product string) string {
	return "🗑️ Removed entry: " + product
}

// daySummary renders the HTML summary shown for /today.
func daySummary(sum *tracker.DaySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🍽️ Total calories today: <b>%d/%d</b> kcal\n", sum.Total, sum.Budget)
	if sum.Remaining > 0 {
		b.WriteString("👍")
	} else {
		b.WriteString("👎")
	}
	fmt.Fprintf(&b, " Diff: <b>%d</b> kcal\n", sum.Remaining)
	if sum.Top != nil {
		fmt.Fprintf(&b, "🔥 Highest: <b>%s</b> with <b>%d</b> kcal\n", html.EscapeString(sum.Top.Product), sum.Top.Calories)
	}

	b.WriteString("\n📋 Today's log:\n")
	for i, e := range sum.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• <b>%s</b> – %d kcal", html.EscapeString(e.Product), e.Calories)
	}
	return b.String()
}
