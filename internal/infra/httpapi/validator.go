package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"health_notification_service/internal/domain/notification"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// ValidationError is a field-to-message map returned when validation fails.
type ValidationError map[string]string

func (vs ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}
	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Validator validates request DTOs with English messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go ones.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
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
	if err := registerCustom(validate, enTrans); err != nil {
		return nil, err
	}
	return &Validator{validate: validate, translator: enTrans}, nil
}

// Validate returns a ValidationError when data fails its struct tags.
func (v *Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}
		out := make(ValidationError)
		for _, fe := range validateErrs {
			out[fe.Field()] = fe.Translate(v.translator)
		}
		return out
	}
	return nil
}

func registerCustom(validate *validator.Validate, enTrans ut.Translator) error {
	labels := make(map[string]struct{})
	for _, l := range notification.AllSlots() {
		labels[l] = struct{}{}
	}
	if err := validate.RegisterValidation("slotlabel", func(fl validator.FieldLevel) bool {
		_, ok := labels[fl.Field().String()]
		return ok
	}); err != nil {
		return err
	}
	if err := validate.RegisterValidation("notifkind", func(fl validator.FieldLevel) bool {
		_, err := notification.ParseKind(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}

	for tag, msg := range map[string]string{
		"slotlabel": "{0} must be a known slot label",
		"notifkind": "{0} must be a known notification type",
	} {
		tag, msg := tag, msg
		err := validate.RegisterTranslation(tag, enTrans,
			func(ut ut.Translator) error {
				return ut.Add(tag, msg, false)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, err := ut.T(fe.Tag(), fe.Field())
				if err != nil {
					return fe.Error()
				}
				return t
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}
