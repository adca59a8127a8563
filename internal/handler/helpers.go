package handler

import (
	"net/http"
	"reflect"

	"vestipos/internal/apierror"
	"vestipos/internal/bizerr"
	"vestipos/internal/middleware"
	"vestipos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		respondValidation(c, err)
		return false
	}
	return true
}

// respondValidation writes a 422 with the failing field/tag pairs.
func respondValidation(c *gin.Context, err error) {
	fields := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
}

// actorDe builds the acting user from the validated JWT claims.
func actorDe(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	id, _ := uuid.Parse(claims.UserID)
	return service.Actor{ID: id, Rol: claims.Rol}
}

// respondError maps a business rejection to its HTTP status; anything that is
// not a *bizerr.Error is an infrastructure fault and surfaces as a plain 500.
func respondError(c *gin.Context, err error) {
	kind := bizerr.KindOf(err)
	if kind == "" {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
		return
	}

	var status int
	switch kind {
	case bizerr.NotFound:
		status = http.StatusNotFound
	case bizerr.InvalidArgument:
		status = http.StatusBadRequest
	case bizerr.Unauthorized:
		status = http.StatusForbidden
	case bizerr.ExceedsBalance:
		status = http.StatusUnprocessableEntity
	case bizerr.InvalidTransition, bizerr.PreconditionFailed,
		bizerr.OutstandingBalance, bizerr.AlreadyTerminal, bizerr.Canceled:
		status = http.StatusConflict
	default:
		status = http.StatusBadRequest
	}
	c.JSON(status, apierror.NewWithCode(string(kind), err.Error()))
}
