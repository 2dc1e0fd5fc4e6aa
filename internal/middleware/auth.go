package middleware

import (
	"net/http"
	"strings"
	"time"
	_ "time/tzdata" // tenant zones come from tokens, not the host

	"oficinapro/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"
)

// Roles issued by the identity provider.
const (
	RolAdmin    = "admin"
	RolGerente  = "gerente"
	RolOperador = "operador"
)

// JWTClaims are the custom claims embedded in every access token.
// Tokens are minted by the identity provider; this service only verifies them.
type JWTClaims struct {
	UserID      string `json:"user_id"`
	EmpresaID   string `json:"empresa_id"`
	Rol         string `json:"rol"`
	FusoHorario string `json:"fuso_horario,omitempty"` // IANA zone, e.g. America/Sao_Paulo
	jwt.RegisteredClaims
}

// Location returns the tenant zone named by the token, or fallback when the
// claim is absent or unknown.
func (c *JWTClaims) Location(fallback *time.Location) *time.Location {
	if c.FusoHorario == "" {
		return fallback
	}
	loc, err := time.LoadLocation(c.FusoHorario)
	if err != nil {
		return fallback
	}
	return loc
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeNaoAutorizado, "Autenticação requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeNaoAutorizado, "Token inválido ou expirado"))
			return
		}
		if _, err := uuid.Parse(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeNaoAutorizado, "Token sem usuário válido"))
			return
		}
		if _, err := uuid.Parse(claims.EmpresaID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeNaoAutorizado, "Token sem empresa válida"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New(apierror.CodeProibido, "Permissões insuficientes"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
// Returns nil on routes not behind JWTAuth.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}
