// internal/estimator/decode.go
package estimator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"calorie-bot/internal/models"
)

// maxCalories bounds a single estimate; anything above is treated as garbage.
const maxCalories = 100000

// Failure is returned when no usable estimate could be produced. Reason is set
// only when the estimator itself explained the refusal; otherwise Cause holds
// the transport or decoding error.
type Failure struct {
	Reason string
	Cause  error
}

func (f *Failure) Error() string {
	if f.Reason != "" {
		return "estimation rejected: " + f.Reason
	}
	if f.Cause != nil {
		return "estimation failed: " + f.Cause.Error()
	}
	return "estimation failed"
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

var errNoJSON = errors.New("no JSON object in estimator output")

type wireEstimate struct {
	Food     json.RawMessage `json:"food"`
	Calories json.RawMessage `json:"calories"`
	Aliases  json.RawMessage `json:"aliases"`
	Error    json.RawMessage `json:"error"`
}

// Decode turns raw estimator output into an Estimate or a *Failure. The
// estimator's "error" field takes precedence over every other field.
func Decode(raw string) (*models.Estimate, error) {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return nil, &Failure{Cause: err}
	}

	var wire wireEstimate
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, &Failure{Cause: fmt.Errorf("failed to parse estimator output: %w", err)}
	}

	if reason, set, err := optionalString(wire.Error); err != nil {
		return nil, &Failure{Cause: fmt.Errorf("invalid error field: %w", err)}
	} else if set && strings.TrimSpace(reason) != "" {
		return nil, &Failure{Reason: strings.TrimSpace(reason)}
	}

	food, _, err := optionalString(wire.Food)
	if err != nil {
		return nil, &Failure{Cause: fmt.Errorf("invalid food field: %w", err)}
	}
	food = strings.TrimSpace(food)
	if food == "" {
		return nil, &Failure{Cause: errors.New("missing food field")}
	}

	calories, err := decodeCalories(wire.Calories)
	if err != nil {
		return nil, &Failure{Cause: err}
	}

	aliases, err := decodeAliases(wire.Aliases)
	if err != nil {
		return nil, &Failure{Cause: err}
	}

	return &models.Estimate{
		Product:  food,
		Calories: calories,
		Aliases:  aliases,
	}, nil
}

// extractJSON cuts the outermost object out of the output so that code
// fences or a leading sentence do not break parsing.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", errNoJSON
	}
	end := strings.LastIndex(raw, "}")
	if end == -1 || end <= start {
		return "", errNoJSON
	}
	return raw[start : end+1], nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func optionalString(raw json.RawMessage) (string, bool, error) {
	if isNull(raw) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", true, fmt.Errorf("expected string, got %s", string(raw))
	}
	return s, true, nil
}

// decodeCalories accepts a JSON number or a numeric string and truncates
// fractions. The result must be positive.
func decodeCalories(raw json.RawMessage) (int, error) {
	if isNull(raw) {
		return 0, errors.New("missing calories field")
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("invalid calories value %s", string(raw))
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid calories value %q", s)
		}
		value = parsed
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid calories value %s", string(raw))
	}
	calories := int(math.Trunc(value))
	if calories <= 0 || calories > maxCalories {
		return 0, fmt.Errorf("calories out of range: %d", calories)
	}
	return calories, nil
}

// decodeAliases accepts either the documented comma separated string or a
// list of strings, normalised to "a,b,c".
func decodeAliases(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalizeAliases(strings.Split(s, ",")), nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("invalid aliases value %s", string(raw))
	}
	return normalizeAliases(list), nil
}

func normalizeAliases(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
