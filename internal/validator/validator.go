package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once     sync.Once
	validate *govalidator.Validate
	// trans is the singleton English translator for validation errors.
	trans ut.Translator
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	batchPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)
)

// customRule is a portal-specific validation tag with its English message.
type customRule struct {
	tag     string
	fn      govalidator.Func
	message string
}

var customRules = []customRule{
	{tag: "phone", fn: isPhone, message: "Invalid phone number format"},
	{tag: "batch", fn: isBatch, message: "Batch must be in format YYYY-YYYY"},
	{tag: "trimmed_min", fn: hasTrimmedMin, message: "Please provide a more detailed reason (at least {1} characters)."},
}

// Setup registers the validator with English translations on Gin's binding engine.
// Safe to call more than once; the package helpers call it lazily.
func Setup() {
	once.Do(setup)
}

func setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		v = govalidator.New()
	}
	// Request DTOs share one tag for gin binding and standalone checks.
	v.SetTagName("validate")

	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	for _, rule := range customRules {
		_ = v.RegisterValidation(rule.tag, rule.fn)
		registerMessage(v, rule.tag, rule.message)
	}

	validate = v
}

func registerMessage(v *govalidator.Validate, tag, message string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, message, true)
		},
		func(t ut.Translator, fe govalidator.FieldError) string {
			msg, err := t.T(tag, fe.Field(), fe.Param())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

func isPhone(fl govalidator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func isBatch(fl govalidator.FieldLevel) bool {
	return batchPattern.MatchString(fl.Field().String())
}

// hasTrimmedMin checks the length of a string after surrounding whitespace is removed.
func hasTrimmedMin(fl govalidator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len([]rune(strings.TrimSpace(fl.Field().String()))) >= n
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	Setup()
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Struct validates dst outside of a request, returning nil when it is valid.
func Struct(dst interface{}) map[string]string {
	Setup()
	if err := validate.Struct(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Var validates a single value against a tag expression such as "phone".
// The returned message uses field as the field name.
func Var(field string, value interface{}, tag string) string {
	Setup()
	err := validate.Var(value, tag)
	if err == nil {
		return ""
	}
	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		msg := ve[0].Translate(trans)
		if strings.HasPrefix(msg, " ") {
			msg = field + msg
		}
		return msg
	}
	return err.Error()
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	Setup()
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
