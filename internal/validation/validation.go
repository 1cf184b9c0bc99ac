package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/ncecere/attendance/backend/internal/db"
)

// custom validation tags
const (
	notBlankTag         = "notblank"
	clockTag            = "hhmm"
	roleTag             = "role"
	attendanceStatusTag = "attendance_status"
)

var customMessages = map[string]string{
	notBlankTag:         "this field cannot be blank",
	clockTag:            "must be a time of day formatted HH:MM",
	roleTag:             "must be one of admin, manager, employee",
	attendanceStatusTag: "must be one of present, late, absent, leave",
}

// Errors maps JSON field names to human readable messages.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator wraps a configured validator.Validate with English translations.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a validator that reports JSON tag names and registers the custom tags.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(clockTag, clock)
	_ = v.RegisterValidation(roleTag, role)
	_ = v.RegisterValidation(attendanceStatusTag, attendanceStatus)

	// The default translation is registered already, so a noop register func is enough.
	noop := func(ut.Translator) error { return nil }
	for tag := range customMessages {
		_ = v.RegisterTranslation(tag, translator, noop, translateCustom)
	}

	return &Validator{validate: v, translator: translator}
}

// Struct validates s and returns Errors when any field fails.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	return customMessages[fe.Tag()]
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func clock(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := time.Parse("15:04", str)
	return err == nil
}

func role(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	return ok && db.UserRole(strings.ToLower(str)).Valid()
}

func attendanceStatus(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	return ok && db.AttendanceStatus(strings.ToLower(str)).Valid()
}
