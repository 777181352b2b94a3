package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/dto"
)

// Date layouts accepted by the datetime tag, named the way the UI shows them
var layoutNames = map[string]string{
	"2006-01":    "yyyy-MM",
	"2006-01-02": "yyyy-MM-dd",
}

// SetupValidator teaches gin's validator the billing tags (platform,
// aggregator, brand) and makes errors report JSON field names.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		_, err := franchise.ParsePlatform(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("aggregator", func(fl validator.FieldLevel) bool {
		p, err := franchise.ParsePlatform(fl.Field().String())
		return err == nil && p.IsAggregator()
	})
	_ = v.RegisterValidation("brand", func(fl validator.FieldLevel) bool {
		return franchise.Brand(fl.Field().String()).Normalize().IsKnown()
	})
}

// fieldName prefers the json name, then the form name used by query binding
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return ""
}

// HandleValidationError writes a 400 listing each field that failed
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// FormatValidationErrors builds the error envelope for a binding failure.
// Errors that are not per-field, such as malformed JSON, carry no details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	var details []dto.ValidationDetail
	if errors.As(err, &fieldErrs) {
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: getValidationMessage(fe)})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

func getValidationMessage(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + param
	case "min", "max":
		bound := "at least "
		if fe.Tag() == "max" {
			bound = "at most "
		}
		if fe.Kind() == reflect.String {
			return "Must be " + bound + param + " characters"
		}
		return "Must be " + bound + param
	case "gte":
		return "Must be greater than or equal to " + param
	case "datetime":
		if name, ok := layoutNames[param]; ok {
			param = name
		}
		return "Must be a date in " + param + " format"
	case "platform":
		return "Must be one of: " + platformList(franchise.AllPlatforms())
	case "aggregator":
		return "Must be one of: " + platformList(franchise.AggregatorPlatforms())
	case "brand":
		return "Unknown brand"
	default:
		return "Invalid value"
	}
}

func platformList(ps []franchise.Platform) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, " ")
}
