package validator

import (
	"testing"

	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestLoginRules(t *testing.T) {
	fields := Struct(model.StudentLoginRequest{Email: "not-an-email", Password: "short"})
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	assert.Nil(t, Struct(model.StudentLoginRequest{Email: "student@example.com", Password: "password123"}))
}

func TestCreateProfileRules(t *testing.T) {
	bad := model.CreateProfileRequest{
		Username:  "a",
		Phone:     "12345",
		Batch:     "2020/2024",
		StudentID: "abc",
	}
	fields := Struct(bad)
	assert.Equal(t, "Invalid phone number format", fields["phone"])
	assert.Equal(t, "Batch must be in format YYYY-YYYY", fields["batch"])
	for _, key := range []string{"username", "department", "preferred_role", "student_id", "skills"} {
		assert.Contains(t, fields, key)
	}

	cg := 8.4
	good := model.CreateProfileRequest{
		Username:      "Asha",
		Phone:         "+911234567890",
		Department:    "Computer Science",
		PreferredRole: "data_scientist",
		Batch:         "2021-2025",
		StudentID:     "CS2021001",
		CurrentCGPA:   &cg,
		Skills:        "Python, SQL",
	}
	assert.Nil(t, Struct(good))

	cg = 10.5
	assert.Contains(t, Struct(good), "current_cgpa")
}

func TestPhonePattern(t *testing.T) {
	valid := []string{"1234567890", "+1234567890", "123456789012345"}
	invalid := []string{"123456789", "1234567890123456", "+12-345-678", "phone"}
	for _, v := range valid {
		assert.Empty(t, Var("phone", v, "phone"), v)
	}
	for _, v := range invalid {
		assert.Equal(t, "Invalid phone number format", Var("phone", v, "phone"), v)
	}
}

func TestVarPrefixesFieldName(t *testing.T) {
	assert.Equal(t, "phone is a required field", Var("phone", "", "required"))
}

func TestTrimmedMin(t *testing.T) {
	msg := Var("reason", "   four   ", "trimmed_min=10")
	assert.Equal(t, "Please provide a more detailed reason (at least 10 characters).", msg)
	assert.Empty(t, Var("reason", "  ten chars!  ", "trimmed_min=10"))
}

func TestTranslateErrorsNonValidation(t *testing.T) {
	fields := TranslateErrors(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), fields["detail"])
}
