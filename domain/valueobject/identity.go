package valueobject

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arw/arw-api/domain/apperror"
)

var validate = validator.New()

// IdentityAssertion is the verified profile handed back by the identity
// provider after a successful federated login. The provider is trusted, so
// only the presence of the email is checked; name and picture are stored as given.
type IdentityAssertion struct {
	Email   string `validate:"required"`
	Name    string
	Picture string
}

func NewIdentityAssertion(email, name, picture string) IdentityAssertion {
	return IdentityAssertion{
		Email:   strings.TrimSpace(email),
		Name:    strings.TrimSpace(name),
		Picture: strings.TrimSpace(picture),
	}
}

// Validate fails with an IdentityAssertionIncomplete error naming the first
// offending attribute.
func (a IdentityAssertion) Validate() error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return apperror.ErrIdentityAssertionIncomplete(strings.ToLower(fieldErrs[0].Field()))
	}
	return apperror.ErrIdentityAssertionIncomplete("unknown")
}
