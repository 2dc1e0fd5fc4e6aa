// Package domainerr defines the error kinds raised by the caixa ledger.
// Handlers map a Kind to an HTTP status; everything else treats errors as opaque.
package domainerr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. The string value is also the public
// error code sent to API clients.
type Kind string

const (
	KindTurnoJaAberto       Kind = "TURNO_JA_ABERTO"
	KindSemTurnoAberto      Kind = "SEM_TURNO_ABERTO"
	KindEstadoInvalido      Kind = "ESTADO_INVALIDO"
	KindViolacaoRestricao   Kind = "VIOLACAO_RESTRICAO"
	KindFalhaTransitoria    Kind = "FALHA_TRANSITORIA"
	KindEntradaInvalida     Kind = "ENTRADA_INVALIDA"
	KindNaoEncontrado       Kind = "NAO_ENCONTRADO"
	KindRequisicaoDuplicada Kind = "REQUISICAO_DUPLICADA"
)

// Error is a classified failure carrying a user-facing message and an
// optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so callers can write
// errors.Is(err, domainerr.ErrTurnoJaAberto) regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels, one per kind.
var (
	ErrTurnoJaAberto       = &Error{Kind: KindTurnoJaAberto, Message: "já existe um turno aberto neste caixa"}
	ErrSemTurnoAberto      = &Error{Kind: KindSemTurnoAberto, Message: "nenhum turno aberto neste caixa"}
	ErrEstadoInvalido      = &Error{Kind: KindEstadoInvalido, Message: "operação inválida para o estado atual do turno"}
	ErrViolacaoRestricao   = &Error{Kind: KindViolacaoRestricao, Message: "registro viola uma restrição de unicidade"}
	ErrFalhaTransitoria    = &Error{Kind: KindFalhaTransitoria, Message: "armazenamento temporariamente indisponível"}
	ErrEntradaInvalida     = &Error{Kind: KindEntradaInvalida, Message: "entrada inválida"}
	ErrNaoEncontrado       = &Error{Kind: KindNaoEncontrado, Message: "registro não encontrado"}
	ErrRequisicaoDuplicada = &Error{Kind: KindRequisicaoDuplicada, Message: "requisição já está em processamento"}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when
// err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of a domain error, or fallback.
func MessageOf(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
