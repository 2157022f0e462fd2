// Package validate checks quiz settings before any network call is made.
// Validation errors are local and field-level; they never mutate session
// state and never reach the Tutoring Service.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/doctutor/doctutor/internal/model"
)

var (
	setupOnce sync.Once
	validate  *govalidator.Validate
	trans     ut.Translator
)

// setup builds the validator with English translations, using JSON tag
// names for field names in error messages.
func setup() {
	validate = govalidator.New(govalidator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
}

// FieldErrors maps a field name to a human-readable message.
// It reports every failing field at once, not just the first.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var sb strings.Builder
	sb.WriteString("invalid quiz settings:")
	for _, f := range fields {
		sb.WriteString(" " + f + ": " + fe[f] + ";")
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// QuizSettings validates the submitted quiz configuration: quizType must be
// one of the recognized values, numQuestions an integer in [1,20]
// (out-of-range values are rejected, not clamped), difficulty one of the
// three levels. Returns nil when all fields are valid.
func QuizSettings(s model.QuizSettings) FieldErrors {
	setupOnce.Do(setup)

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fields := make(FieldErrors)
	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a field-level validation error (should not happen for a plain struct).
	fields["detail"] = err.Error()
	return fields
}
