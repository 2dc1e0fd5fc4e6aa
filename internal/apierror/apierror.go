// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Codes that are not domain kinds.
const (
	CodeValidacao     = "VALIDACAO"
	CodeJSONInvalido  = "JSON_INVALIDO"
	CodeNaoAutorizado = "NAO_AUTORIZADO"
	CodeProibido      = "PROIBIDO"
	CodeLimite        = "LIMITE_REQUISICOES"
	CodeInterno       = "ERRO_INTERNO"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func New(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Erro de validação", Code: CodeValidacao, Fields: fields}
}
