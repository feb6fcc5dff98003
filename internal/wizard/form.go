package wizard

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// Languages and Genders are the values the audio endpoint accepts.
var (
	Languages = []string{"English", "Hindi"}
	Genders   = []string{"boy", "girl"}
)

// AudioForm is the input of the audio step.
type AudioForm struct {
	KidName  string `json:"kid_name" validate:"required"`
	Language string `json:"language" validate:"required,oneof=English Hindi"`
	Gender   string `json:"gender" validate:"required,oneof=boy girl"`
	StoryID  string `json:"story_id" validate:"required"`
}

// DefaultAudioForm mirrors the initial form values.
func DefaultAudioForm() AudioForm {
	return AudioForm{Language: "English", Gender: "boy"}
}

// Request converts the form to the backend payload.
func (f AudioForm) Request() backend.AudioRequest {
	return backend.AudioRequest{
		KidName:  strings.TrimSpace(f.KidName),
		Language: f.Language,
		StoryID:  f.StoryID,
		Gender:   f.Gender,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the form and reports every invalid field.
func (f AudioForm) Validate() error {
	f.KidName = strings.TrimSpace(f.KidName)
	err := formValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeWizardInvalidForm, "invalid audio form", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(errors.ErrCodeWizardInvalidForm, "invalid audio form: "+strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
