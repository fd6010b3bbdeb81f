package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/academia-labs/academia/core"
)

var (
	skillLevelTag  = "skilllevel"
	skillLevelText = "skill level must be one of: " + strings.Join(SkillLevels, ", ")

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdPolicyTexts = map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	}
)

// InitValidators registers the user validation tags and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, skillLevelTag, skillLevelText, SkillLevels...)

	validate.RegisterStructValidation(userStructValidation, NewStudent{}, NewInstructor{}, NewAnalyst{})
	for tag, text := range pwdPolicyTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// userStructValidation applies the password policy on the new user structs.
func userStructValidation(sl validator.StructLevel) {
	var pwd string
	var attrs []string
	switch usr := sl.Current().Interface().(type) {
	case NewStudent:
		pwd, attrs = usr.Password, []string{usr.Name, usr.Email}
	case NewInstructor:
		pwd, attrs = usr.Password, []string{usr.Name, usr.Email}
	case NewAnalyst:
		pwd, attrs = usr.Password, []string{usr.Name, usr.Email}
	default:
		return
	}
	if pwd == "" {
		return // reported by `required`
	}
	if tag := passwordPolicyViolation(pwd, attrs...); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// CheckPasswordPolicy returns a validation error when pwd breaks the password policy.
func CheckPasswordPolicy(pwd string, attrs ...string) error {
	if tag := passwordPolicyViolation(pwd, attrs...); tag != "" {
		msg := pwdPolicyTexts[tag]
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "password", Error: msg})
	}
	return nil
}

// passwordPolicyViolation returns the tag of the first rule pwd breaks:
// - minLen: 8
// - no whitespace
// - not all numeric
// - no user attrs similarity
func passwordPolicyViolation(pwd string, attrs ...string) string {
	// - minLen: 8
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		// - no whitespace
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}

	// - not all numeric
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	// - no user attrs similarity
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		lpwd, lattr := strings.ToLower(pwd), strings.ToLower(attr)
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(lattr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
