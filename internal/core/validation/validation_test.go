package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/core/apperror"
)

type sample struct {
	Name    string   `json:"name" validate:"required"`
	Kind    string   `json:"kind" validate:"oneof=a b"`
	Amount  int64    `json:"amount" validate:"ne=0"`
	Serials []string `json:"serials" validate:"unique"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(sample{Name: "x", Kind: "a", Amount: 3, Serials: []string{"s1", "s2"}})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Kind: "c", Amount: 0, Serials: []string{"s1", "s1"}})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)

	fields, ok := appErr.Details["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "required", fields["name"])
	assert.Contains(t, fields["kind"], "one of")
	assert.Contains(t, fields, "amount")
	assert.Equal(t, "must not contain duplicates", fields["serials"])
}
