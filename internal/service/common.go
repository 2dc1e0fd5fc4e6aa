package service

import (
	"context"
	"time"

	"oficinapro/internal/domainerr"
	"oficinapro/internal/dto"
	"oficinapro/internal/model"
	"oficinapro/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const timeLayout = time.RFC3339

type ctxKey int

const locationKey ctxKey = iota

// WithLocation attaches the tenant's time zone to ctx. Services render
// timestamps and compute calendar windows in it; storage stays UTC.
func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	if loc == nil {
		return ctx
	}
	return context.WithValue(ctx, locationKey, loc)
}

func locationFrom(ctx context.Context, fallback *time.Location) *time.Location {
	if loc, ok := ctx.Value(locationKey).(*time.Location); ok {
		return loc
	}
	if fallback != nil {
		return fallback
	}
	return time.UTC
}

func parseOptionalUUID(raw, campo string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domainerr.Newf(domainerr.KindEntradaInvalida, "%s inválido", campo)
	}
	return &id, nil
}

// limiteValor is the first amount a decimal(12,2) column cannot hold.
var limiteValor = decimal.New(1, 10)

// validarValor rejects amounts the ledger cannot store exactly: more than
// two decimal places or beyond the column range.
func validarValor(campo string, v decimal.Decimal) error {
	if !v.Equal(v.Truncate(2)) {
		return domainerr.Newf(domainerr.KindEntradaInvalida, "%s deve ter no máximo duas casas decimais", campo)
	}
	if v.Abs().GreaterThanOrEqual(limiteValor) {
		return domainerr.Newf(domainerr.KindEntradaInvalida, "%s excede o limite permitido", campo)
	}
	return nil
}

// resolverCaixa picks the caixa a request targets. An explicit id must
// belong to the empresa. Without one the default caixa is used; criar
// makes it on first use, otherwise nil means "none yet". Either way the
// caixa must be active.
func resolverCaixa(ctx context.Context, repo repository.CaixaRepository, empresaID uuid.UUID, caixaID, nomePadrao string, criar bool) (*model.Caixa, error) {
	id, err := parseOptionalUUID(caixaID, "caixa_id")
	if err != nil {
		return nil, err
	}
	var caixa *model.Caixa
	switch {
	case id != nil:
		caixa, err = repo.FindCaixaByID(ctx, empresaID, *id)
	case criar:
		caixa, err = repo.FindOrCreateCaixa(ctx, empresaID, nomePadrao)
	default:
		caixa, err = repo.FindCaixaPorNome(ctx, empresaID, nomePadrao)
	}
	if err != nil || caixa == nil {
		return nil, err
	}
	if !caixa.Ativo {
		return nil, domainerr.New(domainerr.KindEstadoInvalido, "caixa inativo")
	}
	return caixa, nil
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout)
}

func toTurnoResponse(t *model.TurnoCaixa, loc *time.Location) dto.TurnoResponse {
	resp := dto.TurnoResponse{
		ID:               t.ID.String(),
		CaixaID:          t.CaixaID.String(),
		UsuarioID:        t.UsuarioID.String(),
		Status:           t.Status,
		DataAbertura:     formatTime(t.AbertoEm, loc),
		ValorAbertura:    t.ValorAbertura,
		ValorVendas:      t.ValorVendas,
		ValorSuprimentos: t.ValorSuprimentos,
		ValorSangrias:    t.ValorSangrias,
		SaldoEsperado:    t.SaldoEsperado(),
		Observacoes:      t.Observacoes,
		ValorFechamento:  t.ValorFechamento,
		ValorTroco:       t.ValorTroco,
		ValorDiferenca:   t.ValorDiferenca,
	}
	if t.FechadoEm != nil {
		s := formatTime(*t.FechadoEm, loc)
		resp.DataFechamento = &s
	}
	if t.ValorDiferenca != nil {
		s := model.SituacaoFechamento(*t.ValorDiferenca)
		resp.SituacaoFechamento = &s
	}
	if t.UsuarioFechamentoID != nil {
		s := t.UsuarioFechamentoID.String()
		resp.UsuarioFechamentoID = &s
	}
	return resp
}

func toMovimentacaoResponse(m *model.MovimentacaoCaixa, loc *time.Location) dto.MovimentacaoResponse {
	resp := dto.MovimentacaoResponse{
		ID:               m.ID.String(),
		TurnoID:          m.TurnoID.String(),
		Tipo:             m.Tipo,
		Valor:            m.Valor,
		Descricao:        m.Descricao,
		UsuarioID:        m.UsuarioID.String(),
		DataMovimentacao: formatTime(m.DataMovimentacao, loc),
	}
	if m.VendaID != nil {
		s := m.VendaID.String()
		resp.VendaID = &s
	}
	return resp
}
