package course

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core"
)

var (
	courseTypeTag        = "coursetype"
	errInvalidType       = errors.New("type must be one of: " + strings.Join(Types, ", "))
	difficultyTag        = "difficulty"
	errInvalidDifficulty = errors.New("difficulty must be one of: " + strings.Join(Difficulties, ", "))
)

// InitValidators registers the course validation tags and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, courseTypeTag, errInvalidType.Error(), Types...)
	core.RegisterEnumValidation(validate, translator, difficultyTag, errInvalidDifficulty.Error(), Difficulties...)
}

func oneOf(val string, values []string) bool {
	for _, v := range values {
		if v == val {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
