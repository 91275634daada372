// internal/tracker/import.go
package tracker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// CustomFoodFile is the YAML layout accepted by ImportCustomFoods:
//
//	foods:
//	  - name: Protein bar
//	    calories: 210
//	    aliases: [bar, protein bar]
type CustomFoodFile struct {
	Foods []CustomFoodSpec `yaml:"foods"`
}

type CustomFoodSpec struct {
	Name     string   `yaml:"name"`
	Calories int      `yaml:"calories"`
	Aliases  []string `yaml:"aliases"`
}

// ImportCustomFoods validates the whole file before inserting anything and
// returns the number of definitions stored.
func (s *Service) ImportCustomFoods(ctx context.Context, userID int64, r io.Reader) (int, error) {
	var file CustomFoodFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("parse custom foods: %w", err)
	}

	for i, f := range file.Foods {
		if strings.TrimSpace(f.Name) == "" {
			return 0, fmt.Errorf("custom food %d: name is required", i+1)
		}
		if f.Calories <= 0 {
			return 0, fmt.Errorf("custom food %q: calories must be positive", f.Name)
		}
	}

	for i, f := range file.Foods {
		aliases := make([]string, 0, len(f.Aliases))
		for _, a := range f.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		if _, err := s.store.InsertCustomFood(ctx, userID, strings.TrimSpace(f.Name), f.Calories, strings.Join(aliases, ",")); err != nil {
			return i, fmt.Errorf("custom food %q: %w", f.Name, err)
		}
	}
	return len(file.Foods), nil
}
