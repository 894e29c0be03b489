package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Text  string `form:"text" validate:"required,max=10"`
	Group string `form:"group" validate:"omitempty,numeric"`
	Note  string `validate:"omitempty,min=3"`
}

func TestValidate(t *testing.T) {
	errs := Validate(&sample{Text: "ok"})
	assert.NotNil(t, errs)
	assert.False(t, errs.Any())

	errs = Validate(&sample{Group: "abc", Note: "x"})
	assert.True(t, errs.Any())
	assert.Equal(t, "This field is required.", errs.First("text"))
	assert.Equal(t, "Select a valid choice.", errs.First("group"))
	assert.Equal(t, "Ensure this value has at least 3 characters.", errs.First("Note"))

	errs = Validate(&sample{Text: "слишком длинный текст"})
	assert.Equal(t, "Ensure this value has at most 10 characters.", errs.First("text"))
}

func TestErrors(t *testing.T) {
	errs := Errors{}
	assert.False(t, errs.Any())
	assert.Empty(t, errs.First("text"))

	errs.Add("text", "one")
	errs.Add("text", "two")
	assert.True(t, errs.Has("text"))
	assert.False(t, errs.Has("group"))
	assert.Equal(t, "one", errs.First("text"))
	assert.Equal(t, []string{"one", "two"}, errs["text"])
}

func TestValidate_NotAStruct(t *testing.T) {
	errs := Validate(42)
	assert.True(t, errs.Has(NonField))
}
