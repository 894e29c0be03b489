// Package forms проверяет пользовательский ввод и собирает ошибки по полям.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// В ошибках поле называется так же, как в HTML-форме.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// messages - тексты ошибок по тегам валидатора.
var messages = map[string]string{
	"required": "This field is required.",
	"numeric":  "Select a valid choice.",
	"max":      "Ensure this value has at most %s characters.",
	"min":      "Ensure this value has at least %s characters.",
}

// Errors - ошибки по полям формы. Ошибки, не относящиеся к полю, лежат под ключом NonField.
type Errors map[string][]string

// NonField - ключ для ошибок формы целиком.
const NonField = "__all__"

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First возвращает первую ошибку поля или пустую строку.
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e Errors) Any() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("Field is invalid: %s", fe.Tag())
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}

// Validate проверяет структуру по тегам validate и возвращает ошибки по полям.
// Для валидной структуры возвращается пустой (не nil) Errors.
func Validate(s any) Errors {
	errs := Errors{}
	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errs.Add(NonField, err.Error())
		return errs
	}
	for _, fe := range validationErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}
