package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/maisgenetica/backend/internal/domain/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
)

// ValidationMessage is the top-level message of a validation failure
const ValidationMessage = "Dados inválidos. Verifique os campos destacados."

var setupOnce sync.Once

// SetupValidator names fields after their form or json tag and registers
// the Brazilian document tags "cpf" and "phone_br". Safe to call repeatedly.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
			return registration.IsValidCPF(fl.Field().String())
		})
		_ = v.RegisterValidation("phone_br", func(fl validator.FieldLevel) bool {
			return registration.IsValidPhone(fl.Field().String())
		})
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// ValidationDetails flattens binding and domain validation failures into
// response details. It returns nil for other errors.
func ValidationDetails(err error) []dto.ValidationDetail {
	var details []dto.ValidationDetail

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
		}
	}

	var derr *shared.ValidationError
	if errors.As(err, &derr) {
		for _, f := range derr.Fields {
			details = append(details, dto.ValidationDetail{Field: f.Field, Message: f.Message})
		}
	}
	return details
}

// HandleValidationError writes a 400 response listing every invalid field
func HandleValidationError(c *gin.Context, err error) {
	c.Set(ErrorCodeKey, dto.ErrCodeValidation)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(ValidationMessage, GetRequestID(c), ValidationDetails(err)))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "campo obrigatório"
	case "email":
		return "email inválido"
	case "cpf":
		return "CPF inválido"
	case "phone_br":
		return "telefone deve ter DDD e 8 ou 9 dígitos"
	case "max":
		if e.Kind() == reflect.String {
			return "deve ter no máximo " + e.Param() + " caracteres"
		}
		return "deve ser no máximo " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return "deve ter no mínimo " + e.Param() + " caracteres"
		}
		return "deve ser no mínimo " + e.Param()
	case "oneof":
		return "deve ser um de: " + e.Param()
	case "uuid":
		return "identificador inválido"
	default:
		return "valor inválido"
	}
}
