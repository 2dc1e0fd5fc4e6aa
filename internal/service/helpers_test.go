package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"oficinapro/internal/dto"
	"oficinapro/internal/repository"
	"oficinapro/internal/service"
	"oficinapro/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var brt = time.FixedZone("BRT", -3*60*60)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeNotifier struct {
	mu      sync.Mutex
	eventos []dto.TurnoFechadoEvento
	err     error
}

func (n *fakeNotifier) NotificarTurnoFechado(_ context.Context, e dto.TurnoFechadoEvento) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.eventos = append(n.eventos, e)
	return n.err
}

type fakeVendas struct {
	mu       sync.Mutex
	err      error
	vinculos map[uuid.UUID]uuid.UUID
}

func (v *fakeVendas) VincularTurno(_ context.Context, _, vendaID, turnoID uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return v.err
	}
	if v.vinculos == nil {
		v.vinculos = map[uuid.UUID]uuid.UUID{}
	}
	v.vinculos[vendaID] = turnoID
	return nil
}

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

const pendente = "pending"

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]string{}}
}

func (f *fakeIdempotency) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = pendente
	return true, nil
}

func (f *fakeIdempotency) Resolve(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[key]
	if !ok || v == pendente {
		return "", false, nil
	}
	return v, true, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key, result string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = result
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

var errRedisDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	db        *gorm.DB
	repo      repository.CaixaRepository
	notifier  *fakeNotifier
	vendas    *fakeVendas
	idem      *fakeIdempotency
	turnos    service.TurnoService
	movs      service.MovimentacaoService
	relatorio service.RelatorioService
	empresa   uuid.UUID
	operador  uuid.UUID
	agora     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       testutil.NewSQLiteDB(t),
		notifier: &fakeNotifier{},
		vendas:   &fakeVendas{},
		idem:     newFakeIdempotency(),
		empresa:  uuid.New(),
		operador: uuid.New(),
		agora:    time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC), // Wednesday, 12:00 BRT
	}
	f.repo = repository.NewCaixaRepository(f.db, testutil.FastStoreOptions())
	cfg := service.TurnoConfig{
		NomeCaixaPadrao: "Caixa Principal",
		Location:        brt,
		Now:             func() time.Time { return f.agora },
	}
	f.turnos = service.NewTurnoService(f.repo, f.notifier, cfg)
	f.movs = service.NewMovimentacaoService(f.repo, f.vendas, f.idem, time.Hour, cfg)
	f.relatorio = service.NewRelatorioService(f.repo, cfg)
	return f
}

func (f *fixture) abrir(t *testing.T, abertura string) *dto.TurnoResponse {
	t.Helper()
	turno, err := f.turnos.Abrir(context.Background(), f.empresa, f.operador, dto.AbrirTurnoRequest{ValorAbertura: dec(abertura)})
	require.NoError(t, err)
	return turno
}

func (f *fixture) venda(t *testing.T, valor string) *dto.RegistroMovimentacaoResponse {
	t.Helper()
	resp, err := f.movs.RegistrarVenda(context.Background(), f.empresa, f.operador, dto.RegistrarVendaRequest{
		VendaID: uuid.NewString(),
		Valor:   dec(valor),
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) movimentar(t *testing.T, tipo, valor string) *dto.RegistroMovimentacaoResponse {
	t.Helper()
	resp, err := f.movs.Registrar(context.Background(), f.empresa, f.operador, dto.MovimentacaoRequest{
		Tipo:      tipo,
		Valor:     dec(valor),
		Descricao: "movimentação de teste",
	}, "")
	require.NoError(t, err)
	return resp
}

func (f *fixture) fechar(t *testing.T, turnoID, fechamento, troco string) *dto.TurnoResponse {
	t.Helper()
	fechado, err := f.turnos.Fechar(context.Background(), f.empresa, f.operador, uuid.MustParse(turnoID), dto.FecharTurnoRequest{
		ValorFechamento: decPtr(fechamento),
		ValorTroco:      dec(troco),
	})
	require.NoError(t, err)
	return fechado
}
