// Package forms turns submitted HTML forms and API payloads into validated post input.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/cppla/photoblog/media"
)

// Messages shown to users for each failure.
const (
	MsgRequired     = "This field is required."
	MsgBlank        = "This field may not be blank."
	MsgNull         = "This field may not be null."
	MsgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	MsgEmptyFile    = "The submitted file is empty."
	MsgNotAFile     = "The submitted data was not a file. Check the encoding type on the form."
	MsgInvalidPK    = "Incorrect type. Expected pk value, received %s."
	MsgInvalidDate  = "Datetime has wrong format. Use RFC 3339, e.g. 2006-01-02T15:04:05Z."
	MsgNotAString   = "Not a valid string."
)

// Errors maps field names to their messages. NonFieldErrors uses key "__all__".
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Any reports whether at least one error was recorded.
func (e Errors) Any() bool {
	return len(e) > 0
}

// Get returns the messages for field.
func (e Errors) Get(field string) []string {
	return e[field]
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// collect runs struct validation and records human readable messages in errs.
func collect(s interface{}, errs Errors) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("__all__", err.Error())
		return
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "notblank":
		return MsgBlank
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

// imageMessage maps media errors onto field messages.
func imageMessage(err error) string {
	var tooLarge *media.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("Image file too large (max %dMB).", tooLarge.LimitMB)
	case errors.Is(err, media.ErrEmptyFile):
		return MsgEmptyFile
	default:
		return MsgInvalidImage
	}
}
