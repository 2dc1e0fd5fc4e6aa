package service_test

import (
	"context"
	"testing"
	"time"

	"oficinapro/internal/domainerr"
	"oficinapro/internal/dto"
	"oficinapro/internal/model"
	"oficinapro/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Resumo ────────────────────────────────────────────────────────────────────

func TestResumo_OpenShiftExcludedFromDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hoje := f.agora

	f.agora = hoje.AddDate(0, 0, -1)
	ontem := f.abrir(t, "0")
	f.venda(t, "100")
	f.fechar(t, ontem.ID, "100", "0")

	f.agora = hoje
	fechado := f.abrir(t, "100")
	f.venda(t, "50")
	f.movimentar(t, model.TipoSangria, "30")
	f.fechar(t, fechado.ID, "115", "0")
	f.abrir(t, "0")
	f.venda(t, "20")

	r, err := f.relatorio.Resumo(ctx, f.empresa, dto.ResumoQuery{Periodo: service.PeriodoHoje})
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalTurnos)
	assert.Equal(t, 1, r.TurnosFechados)
	assertDec(t, "70", r.FaturamentoTotal)
	assertDec(t, "35", r.TicketMedio)
	assertDec(t, "-5", r.DiferencaTotal)
	assertDec(t, "30", r.TotalSangrias)
	assert.Equal(t, "2026-03-11T00:00:00-03:00", r.Inicio)
	assert.Equal(t, "2026-03-11T23:59:59-03:00", r.Fim)

	r, err = f.relatorio.Resumo(ctx, f.empresa, dto.ResumoQuery{Periodo: service.PeriodoSemana})
	require.NoError(t, err)
	assert.Equal(t, 3, r.TotalTurnos)
	assertDec(t, "170", r.FaturamentoTotal)
	assert.True(t, dec("170").Div(dec("3")).Equal(r.TicketMedio), r.TicketMedio.String())
	assert.Equal(t, "56.67", r.TicketMedio.StringFixed(2))
	assertDec(t, "-5", r.DiferencaTotal)
}

func TestResumo_NoShifts(t *testing.T) {
	f := newFixture(t)

	r, err := f.relatorio.Resumo(context.Background(), f.empresa, dto.ResumoQuery{})
	require.NoError(t, err)
	assert.Equal(t, service.PeriodoHoje, r.Periodo)
	assert.Equal(t, 0, r.TotalTurnos)
	assertDec(t, "0", r.TicketMedio)
	assertDec(t, "0", r.DiferencaTotal)
}

func TestResumo_TenantScoped(t *testing.T) {
	f := newFixture(t)
	f.abrir(t, "0")
	f.venda(t, "10")

	r, err := f.relatorio.Resumo(context.Background(), uuid.New(), dto.ResumoQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, r.TotalTurnos)
}

func TestResumo_InvalidPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.relatorio.Resumo(context.Background(), f.empresa, dto.ResumoQuery{Periodo: service.PeriodoPersonalizado, Inicio: "2026-03-10"})
	assert.Equal(t, domainerr.KindEntradaInvalida, domainerr.KindOf(err))
}

func TestResumirTurnos(t *testing.T) {
	diff := dec("2.50")
	turnos := []model.TurnoCaixa{
		{Status: model.StatusFechado, ValorVendas: dec("10"), ValorSangrias: dec("1"), ValorSuprimentos: dec("0"), ValorDiferenca: &diff},
		{Status: model.StatusAberto, ValorVendas: dec("10"), ValorSangrias: dec("0"), ValorSuprimentos: dec("3")},
		{Status: model.StatusAberto, ValorVendas: dec("0"), ValorSangrias: dec("0"), ValorSuprimentos: dec("0")},
	}

	r := service.ResumirTurnos(turnos)
	assert.Equal(t, 3, r.TotalTurnos)
	assert.Equal(t, 1, r.TurnosFechados)
	assertDec(t, "20", r.FaturamentoTotal)
	assert.True(t, dec("20").Div(dec("3")).Equal(r.TicketMedio), r.TicketMedio.String())
	assertDec(t, "2.50", r.DiferencaTotal)
	assertDec(t, "1", r.TotalSangrias)
	assertDec(t, "3", r.TotalSuprimentos)

	vazio := service.ResumirTurnos(nil)
	assert.True(t, vazio.TicketMedio.Equal(decimal.Zero))
}

// ── JanelaPeriodo ─────────────────────────────────────────────────────────────

func TestJanelaPeriodo(t *testing.T) {
	quarta := time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC) // 12:00 BRT
	utc := func(s string) time.Time {
		v, err := time.Parse("2006-01-02T15:04:05.000Z", s)
		require.NoError(t, err)
		return v
	}

	cases := []struct {
		name          string
		periodo       string
		agora         time.Time
		inicio, fim   string
		wantDe, wantA string
	}{
		{"hoje", service.PeriodoHoje, quarta, "", "", "2026-03-11T03:00:00.000Z", "2026-03-12T02:59:59.999Z"},
		{"empty means hoje", "", quarta, "", "", "2026-03-11T03:00:00.000Z", "2026-03-12T02:59:59.999Z"},
		{"semana starts on Sunday", service.PeriodoSemana, quarta, "", "", "2026-03-08T03:00:00.000Z", "2026-03-12T02:59:59.999Z"},
		{"semana on a Sunday", service.PeriodoSemana, time.Date(2026, 3, 8, 13, 0, 0, 0, time.UTC), "", "", "2026-03-08T03:00:00.000Z", "2026-03-09T02:59:59.999Z"},
		{"mes", service.PeriodoMes, quarta, "", "", "2026-03-01T03:00:00.000Z", "2026-04-01T02:59:59.999Z"},
		{"mes in February", service.PeriodoMes, time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC), "", "", "2026-02-01T03:00:00.000Z", "2026-03-01T02:59:59.999Z"},
		{"personalizado", service.PeriodoPersonalizado, quarta, "2026-01-05", "2026-01-07", "2026-01-05T03:00:00.000Z", "2026-01-08T02:59:59.999Z"},
		{"personalizado single day", service.PeriodoPersonalizado, quarta, "2026-01-05", "2026-01-05", "2026-01-05T03:00:00.000Z", "2026-01-06T02:59:59.999Z"},
		// 01:00 UTC is still the previous day in BRT
		{"hoje near midnight", service.PeriodoHoje, time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC), "", "", "2026-03-11T03:00:00.000Z", "2026-03-12T02:59:59.999Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de, ate, err := service.JanelaPeriodo(tc.periodo, tc.agora, brt, tc.inicio, tc.fim)
			require.NoError(t, err)
			assert.True(t, utc(tc.wantDe).Equal(de), "inicio: %s", de)
			assert.True(t, utc(tc.wantA).Equal(ate), "fim: %s", ate)
			assert.Equal(t, time.UTC, de.Location())
		})
	}
}

func TestJanelaPeriodo_Errors(t *testing.T) {
	agora := time.Now()
	cases := []struct {
		name, periodo, inicio, fim string
	}{
		{"unknown", "trimestre", "", ""},
		{"personalizado without fim", service.PeriodoPersonalizado, "2026-01-01", ""},
		{"personalizado without inicio", service.PeriodoPersonalizado, "", "2026-01-01"},
		{"bad date", service.PeriodoPersonalizado, "2026-13-01", "2026-12-01"},
		{"inicio after fim", service.PeriodoPersonalizado, "2026-02-01", "2026-01-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := service.JanelaPeriodo(tc.periodo, agora, brt, tc.inicio, tc.fim)
			assert.Equal(t, domainerr.KindEntradaInvalida, domainerr.KindOf(err))
		})
	}
}
