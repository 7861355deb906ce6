package project

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// catalogRules are the constraints on a project accepted into the catalog.
type catalogRules struct {
	Title          string  `validate:"required,max=200"`
	Description    string  `validate:"required,max=5000"`
	EstimatedHours float64 `validate:"gte=0"`
	URL            string  `validate:"omitempty,url"`
}

// Validate checks that p can be stored in the catalog.
func (p *Project) Validate() error {
	rules := catalogRules{
		Title:          strings.TrimSpace(p.Title),
		Description:    strings.TrimSpace(p.Description),
		EstimatedHours: p.EstimatedHours,
		URL:            p.URL,
	}
	if err := getValidator().Struct(rules); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation", strings.ToLower(fe.Field()), fe.Tag())
		}
		return err
	}
	if IsSynthetic(p.ID) {
		return fmt.Errorf("id %q uses the reserved %q prefix", p.ID, SyntheticPrefix)
	}
	return nil
}
