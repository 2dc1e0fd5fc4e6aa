package service

import (
	"context"
	"time"

	"oficinapro/internal/dto"
	"oficinapro/internal/model"
	"oficinapro/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RelatorioService is the read-only reporting view over shifts.
type RelatorioService interface {
	Resumo(ctx context.Context, empresaID uuid.UUID, q dto.ResumoQuery) (*dto.ResumoCaixaResponse, error)
	Resumir(ctx context.Context, empresaID uuid.UUID, caixaID *uuid.UUID, inicio, fim time.Time) (ResumoTurnos, error)
}

// ResumoTurnos aggregates the shifts opened inside a window.
type ResumoTurnos struct {
	TotalTurnos      int
	TurnosFechados   int
	FaturamentoTotal decimal.Decimal // Σ valor_vendas
	TicketMedio      decimal.Decimal // faturamento / turnos, 0 without shifts
	DiferencaTotal   decimal.Decimal // Σ valor_diferenca of closed shifts
	TotalSangrias    decimal.Decimal
	TotalSuprimentos decimal.Decimal
}

type relatorioService struct {
	repo repository.CaixaRepository
	cfg  TurnoConfig
}

func NewRelatorioService(repo repository.CaixaRepository, cfg TurnoConfig) RelatorioService {
	return &relatorioService{repo: repo, cfg: cfg}
}

func (s *relatorioService) Resumo(ctx context.Context, empresaID uuid.UUID, q dto.ResumoQuery) (*dto.ResumoCaixaResponse, error) {
	loc := locationFrom(ctx, s.cfg.Location)
	inicio, fim, err := JanelaPeriodo(q.Periodo, s.cfg.now(), loc, q.Inicio, q.Fim)
	if err != nil {
		return nil, err
	}
	caixaID, err := parseOptionalUUID(q.CaixaID, "caixa_id")
	if err != nil {
		return nil, err
	}

	r, err := s.Resumir(ctx, empresaID, caixaID, inicio, fim)
	if err != nil {
		return nil, err
	}

	periodo := q.Periodo
	if periodo == "" {
		periodo = PeriodoHoje
	}
	return &dto.ResumoCaixaResponse{
		Periodo:          periodo,
		Inicio:           formatTime(inicio, loc),
		Fim:              formatTime(fim, loc),
		TotalTurnos:      r.TotalTurnos,
		TurnosFechados:   r.TurnosFechados,
		FaturamentoTotal: r.FaturamentoTotal,
		TicketMedio:      r.TicketMedio,
		DiferencaTotal:   r.DiferencaTotal,
		TotalSangrias:    r.TotalSangrias,
		TotalSuprimentos: r.TotalSuprimentos,
	}, nil
}

func (s *relatorioService) Resumir(ctx context.Context, empresaID uuid.UUID, caixaID *uuid.UUID, inicio, fim time.Time) (ResumoTurnos, error) {
	turnos, err := s.repo.QueryTurnos(ctx, repository.TurnoFilter{
		EmpresaID: empresaID,
		CaixaID:   caixaID,
		Inicio:    &inicio,
		Fim:       &fim,
	})
	if err != nil {
		return ResumoTurnos{}, err
	}
	return ResumirTurnos(turnos), nil
}

// ResumirTurnos folds a set of shifts into summary metrics.
func ResumirTurnos(turnos []model.TurnoCaixa) ResumoTurnos {
	r := ResumoTurnos{
		FaturamentoTotal: decimal.Zero,
		TicketMedio:      decimal.Zero,
		DiferencaTotal:   decimal.Zero,
		TotalSangrias:    decimal.Zero,
		TotalSuprimentos: decimal.Zero,
	}
	for i := range turnos {
		t := &turnos[i]
		r.TotalTurnos++
		r.FaturamentoTotal = r.FaturamentoTotal.Add(t.ValorVendas)
		r.TotalSangrias = r.TotalSangrias.Add(t.ValorSangrias)
		r.TotalSuprimentos = r.TotalSuprimentos.Add(t.ValorSuprimentos)
		if t.Status == model.StatusFechado {
			r.TurnosFechados++
			if t.ValorDiferenca != nil {
				r.DiferencaTotal = r.DiferencaTotal.Add(*t.ValorDiferenca)
			}
		}
	}
	if r.TotalTurnos > 0 {
		r.TicketMedio = r.FaturamentoTotal.Div(decimal.NewFromInt(int64(r.TotalTurnos)))
	}
	return r
}
