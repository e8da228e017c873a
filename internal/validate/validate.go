package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/MrEthical07/goReset/password"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// Loose client-side shape check only; deliverability is the backend's problem.
var reLooseEmail = regexp.MustCompile(`\S+@\S+\.\S+`)

// ErrTranslatorNotFound indicates the English translator could not be loaded.
var ErrTranslatorNotFound = errors.New("translator not found")

// ResetRequestForm is the input of the request step.
type ResetRequestForm struct {
	Email string `json:"email" validate:"required,looseemail"`
}

// NewPasswordForm is the input of the reset step.
type NewPasswordForm struct {
	Password string `json:"password" validate:"required,strongpassword"`
	Confirm  string `json:"confirm" validate:"required,eqfield=Password"`
}

// FieldErrors maps json field names to translated messages.
type FieldErrors map[string]string

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(fe)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Has reports whether field failed validation.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Validator wraps go-playground/validator with the reset-flow rules.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator whose strongpassword rule delegates to policy.
func New(policy *password.Policy) (*Validator, error) {
	if policy == nil {
		return nil, errors.New("password policy required")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerRules(validate, enTrans, policy); err != nil {
		return nil, err
	}

	return &Validator{validate: validate, translator: enTrans}, nil
}

// Struct validates data and returns FieldErrors on failure.
func (v *Validator) Struct(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	out := make(FieldErrors, len(validateErrs))
	for _, fe := range validateErrs {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

// LooksLikeEmail applies the loose email shape check without building a Validator.
func LooksLikeEmail(s string) bool {
	return reLooseEmail.MatchString(s)
}

func registerRules(validate *validator.Validate, trans ut.Translator, policy *password.Policy) error {
	if err := validate.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return LooksLikeEmail(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return policy.Check(fl.Field().String()) == nil
	}); err != nil {
		return err
	}

	messages := map[string]string{
		"looseemail":     "{0} must be a valid email address",
		"strongpassword": "{0} does not meet security requirements",
		"eqfield":        "passwords do not match",
	}
	for tag, text := range messages {
		text := text
		tag := tag
		err := validate.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, text, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}
