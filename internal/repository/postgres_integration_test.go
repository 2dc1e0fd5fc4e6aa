//go:build integration

package repository_test

// Ledger store against a real PostgreSQL: partial unique indexes, row locks
// and concurrent increments behave as they do in production.
// Run with: go test -tags integration ./internal/repository/... -v

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"oficinapro/internal/domainerr"
	"oficinapro/internal/infra"
	"oficinapro/internal/model"
	"oficinapro/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

var pgDB *gorm.DB

// vendas is owned by the sales schema; the test creates a minimal one
// before the migrations so the turno_id column gets added.
const vendasDDL = `CREATE TABLE vendas (
	id          UUID PRIMARY KEY,
	empresa_id  UUID NOT NULL,
	valor_total DECIMAL(12,2) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()
	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("oficinapro_test"),
		tcPostgres.WithUsername("oficinapro"),
		tcPostgres.WithPassword("oficinapro"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres container: %v\n", err)
		return 1
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		return 1
	}

	pgDB, err = infra.NewDatabase(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	if err := pgDB.Exec(vendasDDL).Error; err != nil {
		fmt.Fprintf(os.Stderr, "vendas table: %v\n", err)
		return 1
	}
	if err := infra.RunMigrations(url); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	return m.Run()
}

func newPGFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewCaixaRepository(pgDB, repository.DefaultStoreOptions())
	empresa := uuid.New()
	caixa, err := repo.FindOrCreateCaixa(context.Background(), empresa, "Caixa Principal")
	require.NoError(t, err)
	return &fixture{db: pgDB, repo: repo, empresa: empresa, caixa: caixa}
}

func TestPG_ConcurrentOpens(t *testing.T) {
	f := newPGFixture(t)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.repo.InsertTurno(context.Background(), &model.TurnoCaixa{
				CaixaID: f.caixa.ID, UsuarioID: uuid.New(), EmpresaID: f.empresa,
				AbertoEm: time.Now().UTC(), ValorAbertura: dec("10"), Status: model.StatusAberto,
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domainerr.ErrViolacaoRestricao)
	}
	assert.Equal(t, 1, ok)
}

func TestPG_ConcurrentMovementsKeepTotalsDerivable(t *testing.T) {
	f := newPGFixture(t)
	turno := f.abrir(t, "0", time.Now())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.repo.Transaction(ctx, func(tx repository.CaixaRepository) error {
				mov := f.movimentacao(turno.ID, model.TipoVenda, "1.00")
				if err := tx.AppendMovimentacao(ctx, mov); err != nil {
					return err
				}
				return tx.UpdateTotaisTurno(ctx, f.empresa, turno.ID, model.DeltaPara(mov.Tipo, mov.Valor))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.repo.FindTurnoByID(ctx, f.empresa, turno.ID)
	require.NoError(t, err)
	assert.True(t, got.ValorVendas.Equal(dec("100")), "got %s", got.ValorVendas)

	sums, err := f.repo.SumMovimentacoesPorTipo(ctx, f.empresa, turno.ID)
	require.NoError(t, err)
	assert.True(t, sums[model.TipoVenda].Equal(got.ValorVendas))
}

// The close holds the row lock: a movement either commits before the locked
// read or finds the shift closed.
func TestPG_CloseSerializesWithMovements(t *testing.T) {
	f := newPGFixture(t)
	turno := f.abrir(t, "100", time.Now())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		aceitas int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.repo.Transaction(ctx, func(tx repository.CaixaRepository) error {
				mov := f.movimentacao(turno.ID, model.TipoSuprimento, "1")
				if err := tx.AppendMovimentacao(ctx, mov); err != nil {
					return err
				}
				return tx.UpdateTotaisTurno(ctx, f.empresa, turno.ID, model.DeltaPara(mov.Tipo, mov.Valor))
			})
			if err == nil {
				mu.Lock()
				aceitas++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domainerr.ErrEstadoInvalido)
		}()
	}

	var fechado *model.TurnoCaixa
	err := f.repo.Transaction(ctx, func(tx repository.CaixaRepository) error {
		locked, err := tx.LockTurno(ctx, f.empresa, turno.ID)
		if err != nil {
			return err
		}
		fechado, err = tx.FecharTurno(ctx, f.empresa, turno.ID, model.FechamentoTurno{
			FechadoEm:       time.Now(),
			FechadoPor:      uuid.New(),
			ValorFechamento: dec("100"),
			ValorTroco:      dec("0"),
			Diferenca:       dec("100").Sub(locked.SaldoEsperado()),
		})
		return err
	})
	require.NoError(t, err)
	wg.Wait()

	final, err := f.repo.FindTurnoByID(ctx, f.empresa, turno.ID)
	require.NoError(t, err)
	assert.True(t, final.ValorSuprimentos.Equal(fechado.ValorSuprimentos),
		"no movement may land after the close: closed with %s, now %s", fechado.ValorSuprimentos, final.ValorSuprimentos)
	assert.True(t, final.ValorSuprimentos.Equal(decimal.NewFromInt(int64(aceitas))))
	require.NotNil(t, fechado.ValorDiferenca)
	assert.True(t, fechado.ValorDiferenca.Equal(decimal.NewFromInt(int64(-aceitas))))
}

func TestPG_DuplicateVendaRejected(t *testing.T) {
	f := newPGFixture(t)
	turno := f.abrir(t, "0", time.Now())
	ctx := context.Background()
	vendaID := uuid.New()

	first := f.movimentacao(turno.ID, model.TipoVenda, "5")
	first.VendaID = &vendaID
	require.NoError(t, f.repo.AppendMovimentacao(ctx, first))

	dup := f.movimentacao(turno.ID, model.TipoVenda, "5")
	dup.VendaID = &vendaID
	assert.ErrorIs(t, f.repo.AppendMovimentacao(ctx, dup), domainerr.ErrViolacaoRestricao)
}

func TestPG_VincularTurno(t *testing.T) {
	f := newPGFixture(t)
	turno := f.abrir(t, "0", time.Now())
	ctx := context.Background()
	vendas := repository.NewVendaRepository(pgDB, repository.DefaultStoreOptions())

	venda := model.Venda{ID: uuid.New(), EmpresaID: f.empresa, ValorTotal: dec("42")}
	require.NoError(t, pgDB.Create(&venda).Error)

	require.NoError(t, vendas.VincularTurno(ctx, f.empresa, venda.ID, turno.ID))
	var got model.Venda
	require.NoError(t, pgDB.Where("id = ?", venda.ID).Take(&got).Error)
	require.NotNil(t, got.TurnoID)
	assert.Equal(t, turno.ID, *got.TurnoID)

	err := vendas.VincularTurno(ctx, uuid.New(), venda.ID, turno.ID)
	assert.ErrorIs(t, err, domainerr.ErrNaoEncontrado)
}

func TestPG_CheckConstraintRejectsNonPositiveMovement(t *testing.T) {
	f := newPGFixture(t)
	turno := f.abrir(t, "0", time.Now())

	err := f.repo.AppendMovimentacao(context.Background(), f.movimentacao(turno.ID, model.TipoSangria, "0"))
	assert.ErrorIs(t, err, domainerr.ErrEntradaInvalida)
}
