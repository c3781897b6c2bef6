package validation

import (
	"errors"
	"strings"
	"testing"

	pollbox_errors "pollbox/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Question string   `json:"question" validate:"required,min=8,max=20"`
	Flag     *bool    `json:"flag" validate:"required"`
	Items    []string `json:"items,omitempty" validate:"omitempty,dive,required,max=3"`
}

func TestStruct_Valid(t *testing.T) {
	flag := true
	errs := New().Struct(sample{Question: "long enough", Flag: &flag, Items: []string{"a", "abc"}})
	assert.True(t, errs.Empty())
}

func TestStruct_FieldErrors(t *testing.T) {
	errs := New().Struct(sample{Question: "short", Items: []string{"a", "toolong"}})
	require.False(t, errs.Empty())

	assert.Equal(t, []string{"The question must be at least 8 characters."}, errs.Fields["question"])
	assert.Equal(t, []string{"The flag field is required."}, errs.Fields["flag"])
	assert.Equal(t, []string{"The items[1] may not be greater than 3 characters."}, errs.Fields["items[1]"])
	assert.True(t, errors.Is(errs, pollbox_errors.ErrInvalidInput))
}

func TestStruct_MaxCountsCharacters(t *testing.T) {
	flag := false
	errs := New().Struct(sample{Question: strings.Repeat("é", 20), Flag: &flag})
	assert.True(t, errs.Empty())
}
