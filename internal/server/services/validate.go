package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/webapp/internal/common"
)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError reports the first failed field wrapped in common.ErrorValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s failed %s", common.ErrorValidation, verrs[0].Field(), verrs[0].Tag())
	}
	return fmt.Errorf("%w: %v", common.ErrorValidation, err)
}
