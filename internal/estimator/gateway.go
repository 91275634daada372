// internal/estimator/gateway.go
package estimator

import (
	"context"
	"fmt"
	"strings"

	"calorie-bot/internal/models"
)

const (
	logSystemPrompt    = "You are a calories calculator."
	customSystemPrompt = "You are a calories calculator. Help to add custom food type for personal context."
)

// Gateway turns free-text food descriptions into calorie estimates.
type Gateway struct {
	generator TextGenerator
}

func NewGateway(generator TextGenerator) *Gateway {
	return &Gateway{generator: generator}
}

// Estimate asks for the calories in description. customContext, when not
// empty, lists the user's own foods so the estimator reuses their numbers.
func (g *Gateway) Estimate(ctx context.Context, description, customContext string) (*models.Estimate, error) {
	systemPrompt := logSystemPrompt
	if strings.TrimSpace(customContext) != "" {
		systemPrompt += "\n\n" + customContext
	}

	userPrompt := fmt.Sprintf(`How many calories are there in '%s'? `+
		`Respond with a JSON like: {"food": "food name", "calories": 123, "error": "reason if error"}. `+
		`Summarize 'food name' in answer to couple words in english starting with capital letter.`, description)

	return g.estimate(ctx, systemPrompt, userPrompt)
}

// EstimateCustomFood is Estimate for defining a custom food; the estimator is
// also asked for aliases.
func (g *Gateway) EstimateCustomFood(ctx context.Context, description string) (*models.Estimate, error) {
	userPrompt := fmt.Sprintf(`How many calories are there in '%s'? `+
		`Respond with a JSON like: {"food": "food name", "calories": 123, "aliases": "aliases,over,comma", "error": "reason if error"}. `+
		`Summarize 'food name' in answer to couple words in english starting with capital letter.`, description)

	return g.estimate(ctx, customSystemPrompt, userPrompt)
}

func (g *Gateway) estimate(ctx context.Context, systemPrompt, userPrompt string) (*models.Estimate, error) {
	raw, err := g.generator.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, &Failure{Cause: fmt.Errorf("failed to get completion: %w", err)}
	}
	return Decode(raw)
}

// CustomFoodsContext renders the user's custom foods as estimator context.
// It returns "" when there are none.
func CustomFoodsContext(foods []models.CustomFood) string {
	if len(foods) == 0 {
		return ""
	}

	lines := make([]string, 0, len(foods))
	for _, f := range foods {
		line := fmt.Sprintf("- %s: %d kcal", f.Name, f.Calories)
		if f.Aliases != "" {
			line += fmt.Sprintf(" (aliases: %s)", f.Aliases)
		}
		lines = append(lines, line)
	}
	return "The user has defined these custom products:\n" + strings.Join(lines, "\n")
}
