package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type membersRequest struct {
	Name    string   `json:"name" validate:"required"`
	Members []string `json:"members" validate:"required,min=1,dive,uuid"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		errs := Struct(&membersRequest{Name: "Team", Members: []string{"6f1c1f5e-3d7a-4b8e-9a61-2f0c3b1d9e11"}})
		require.False(t, errs.HasErrors())
	})

	t.Run("reports fields by json name", func(t *testing.T) {
		req := require.New(t)
		errs := Struct(&membersRequest{Members: []string{"nope"}})
		req.Equal(ValidationErrors{
			{Field: "name", Message: "is required"},
			{Field: "members[0]", Message: "must be a valid UUID"},
		}, errs)
		req.Equal("name: is required; members[0]: must be a valid UUID", errs.Error())
	})

	t.Run("empty slice", func(t *testing.T) {
		errs := Struct(&membersRequest{Name: "Team", Members: []string{}})
		require.Equal(t, ValidationErrors{{Field: "members", Message: "must contain at least 1 items"}}, errs)
	})
}
