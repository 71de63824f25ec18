package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type profilePayload struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Locale   string `json:"locale" validate:"omitempty,locale"`
	Role     string `json:"role,omitempty" validate:"omitempty,role"`
}

func TestValidateStructSuccess(t *testing.T) {
	require.NoError(t, ValidateStruct(profilePayload{FullName: "Asha", Locale: "ta", Role: "farmer"}))
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(profilePayload{Email: "nope", Locale: "fr", Role: "seller"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)

	fields := map[string]string{}
	for _, failure := range failures {
		fields[failure.Field] = failure.Tag
	}
	require.Equal(t, "required", fields["full_name"])
	require.Equal(t, "email", fields["email"])
	require.Equal(t, "locale", fields["locale"])
	require.Equal(t, "role", fields["role"])
	require.Contains(t, err.Error(), "full_name failed on required")
}

func TestLocaleRuleIsExactMatch(t *testing.T) {
	require.Error(t, ValidateStruct(profilePayload{FullName: "Asha", Locale: "HI"}))
	require.Error(t, ValidateStruct(profilePayload{FullName: "Asha", Locale: " hi"}))
	require.NoError(t, ValidateStruct(profilePayload{FullName: "Asha", Locale: "hi"}))
}

func TestNotificationTypeRule(t *testing.T) {
	type payload struct {
		Type string `json:"type" validate:"required,notification_type"`
	}

	require.NoError(t, ValidateStruct(payload{Type: "subscription_expiry"}))
	require.Error(t, ValidateStruct(payload{Type: "carrier_pigeon"}))
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("farm_plan", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "harvest"
	}))

	type planPayload struct {
		Plan string `json:"plan" validate:"farm_plan"`
	}

	require.NoError(t, ValidateStruct(planPayload{Plan: "harvest"}))
	require.Error(t, ValidateStruct(planPayload{Plan: "seed"}))
}

func TestValidationErrorsMessage(t *testing.T) {
	require.Equal(t, "validation failed", ValidationErrors{}.Error())
	require.Equal(t, "days failed on gt=0", ValidationErrors{{Field: "days", Tag: "gt", Param: "0"}}.Error())
}
