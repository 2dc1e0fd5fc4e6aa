package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"oficinapro/internal/apierror"
	"oficinapro/internal/domainerr"
	"oficinapro/internal/middleware"
	"oficinapro/internal/service"

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

	// Report fields by their wire name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeJSONInvalido, "JSON inválido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string parameters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidacao, "Parâmetros inválidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	fields := make(map[string]string)
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		for _, fe := range ves {
			fields[fe.Field()] = fe.Tag()
		}
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// identidade extracts the caller from the JWT claims and returns the
// request context carrying the tenant zone.
func identidade(c *gin.Context) (ctx context.Context, empresaID, usuarioID uuid.UUID) {
	ctx = c.Request.Context()
	claims := middleware.GetClaims(c)
	if claims == nil {
		return ctx, uuid.Nil, uuid.Nil
	}
	// JWTAuth already rejected tokens with malformed ids
	empresaID, _ = uuid.Parse(claims.EmpresaID)
	usuarioID, _ = uuid.Parse(claims.UserID)
	return service.WithLocation(ctx, claims.Location(nil)), empresaID, usuarioID
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(string(domainerr.KindEntradaInvalida), "ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// statusFor maps a domain kind to its HTTP status; 0 means "not a domain error".
func statusFor(kind domainerr.Kind) int {
	switch kind {
	case domainerr.KindTurnoJaAberto,
		domainerr.KindSemTurnoAberto,
		domainerr.KindEstadoInvalido,
		domainerr.KindViolacaoRestricao,
		domainerr.KindRequisicaoDuplicada:
		return http.StatusConflict
	case domainerr.KindNaoEncontrado:
		return http.StatusNotFound
	case domainerr.KindEntradaInvalida:
		return http.StatusBadRequest
	case domainerr.KindFalhaTransitoria:
		return http.StatusServiceUnavailable
	}
	return 0
}

// respondError writes the envelope for domain errors. Anything else goes to
// the ErrorHandler middleware, which logs it and answers 500.
func respondError(c *gin.Context, err error) {
	kind := domainerr.KindOf(err)
	status := statusFor(kind)
	if status == 0 {
		_ = c.Error(err)
		return
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "5")
		_ = c.Error(err)
	}
	c.JSON(status, apierror.New(string(kind), domainerr.MessageOf(err, "erro")))
}
