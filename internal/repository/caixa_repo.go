package repository

import (
	"context"
	"errors"
	"time"

	"oficinapro/internal/domainerr"
	"oficinapro/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TurnoFilter narrows QueryTurnos. Zero values mean "any".
// Inicio/Fim bound data_abertura inclusively.
type TurnoFilter struct {
	EmpresaID uuid.UUID
	CaixaID   *uuid.UUID
	Status    string
	Inicio    *time.Time
	Fim       *time.Time
	Limit     int
	Offset    int
}

// MovimentacaoFilter narrows ListMovimentacoes.
type MovimentacaoFilter struct {
	EmpresaID uuid.UUID
	TurnoID   *uuid.UUID
	Tipo      string
	Inicio    *time.Time
	Fim       *time.Time
	Limit     int
}

// CaixaRepository is the ledger store for caixas, shifts and movements.
// Every method is scoped to one empresa. Movements can only be appended.
type CaixaRepository interface {
	// Transaction runs fn with a repository bound to one database
	// transaction. The whole unit is retried on transient faults, so fn
	// must not have side effects outside the store.
	Transaction(ctx context.Context, fn func(tx CaixaRepository) error) error

	FindCaixaByID(ctx context.Context, empresaID, id uuid.UUID) (*model.Caixa, error)
	FindCaixaPorNome(ctx context.Context, empresaID uuid.UUID, nome string) (*model.Caixa, error)
	FindOrCreateCaixa(ctx context.Context, empresaID uuid.UUID, nome string) (*model.Caixa, error)

	FindTurnoAberto(ctx context.Context, empresaID, caixaID uuid.UUID) (*model.TurnoCaixa, error)
	FindTurnoByID(ctx context.Context, empresaID, id uuid.UUID) (*model.TurnoCaixa, error)
	LockTurno(ctx context.Context, empresaID, id uuid.UUID) (*model.TurnoCaixa, error)
	InsertTurno(ctx context.Context, t *model.TurnoCaixa) error
	UpdateTotaisTurno(ctx context.Context, empresaID, turnoID uuid.UUID, delta model.DeltaTotais) error
	FecharTurno(ctx context.Context, empresaID, turnoID uuid.UUID, f model.FechamentoTurno) (*model.TurnoCaixa, error)
	QueryTurnos(ctx context.Context, filter TurnoFilter) ([]model.TurnoCaixa, error)
	CountTurnos(ctx context.Context, filter TurnoFilter) (int64, error)
	UltimoTroco(ctx context.Context, empresaID, caixaID uuid.UUID) (decimal.Decimal, error)

	AppendMovimentacao(ctx context.Context, m *model.MovimentacaoCaixa) error
	FindMovimentacaoByID(ctx context.Context, empresaID, id uuid.UUID) (*model.MovimentacaoCaixa, error)
	ListMovimentacoes(ctx context.Context, filter MovimentacaoFilter) ([]model.MovimentacaoCaixa, error)
	SumMovimentacoesPorTipo(ctx context.Context, empresaID, turnoID uuid.UUID) (map[string]decimal.Decimal, error)
}

type caixaRepo struct {
	db *gorm.DB
	runner
}

func NewCaixaRepository(db *gorm.DB, opts StoreOptions) CaixaRepository {
	return &caixaRepo{db: db, runner: runner{opts: opts}}
}

func (r *caixaRepo) Transaction(ctx context.Context, fn func(tx CaixaRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&caixaRepo{db: tx, runner: runner{opts: r.opts, inTx: true}})
		})
	})
}

// atomic runs fn in the current transaction, or in a fresh one when the
// repository is not transaction-bound.
func (r *caixaRepo) atomic(ctx context.Context, fn func(db *gorm.DB) error) error {
	return r.run(ctx, func(ctx context.Context) error {
		if r.inTx {
			return fn(r.db.WithContext(ctx))
		}
		return r.db.WithContext(ctx).Transaction(fn)
	})
}

// ── Caixas ────────────────────────────────────────────────────────────────────

func (r *caixaRepo) FindCaixaByID(ctx context.Context, empresaID, id uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	err := r.run(ctx, func(ctx context.Context) error {
		err := r.db.WithContext(ctx).Scopes(empresaScope(empresaID)).Where("id = ?", id).Take(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerr.New(domainerr.KindNaoEncontrado, "caixa não encontrado")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCaixaPorNome returns nil, nil when the empresa has no caixa with that name.
func (r *caixaRepo) FindCaixaPorNome(ctx context.Context, empresaID uuid.UUID, nome string) (*model.Caixa, error) {
	var (
		c     model.Caixa
		found bool
	)
	err := r.run(ctx, func(ctx context.Context) error {
		err := r.db.WithContext(ctx).Scopes(empresaScope(empresaID)).Where("nome = ?", nome).Take(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// FindOrCreateCaixa returns the named caixa, creating it on first use.
// Concurrent creators race on idx_caixas_empresa_nome; the loser re-reads.
func (r *caixaRepo) FindOrCreateCaixa(ctx context.Context, empresaID uuid.UUID, nome string) (*model.Caixa, error) {
	c, err := r.FindCaixaPorNome(ctx, empresaID, nome)
	if err != nil || c != nil {
		return c, err
	}

	novo := &model.Caixa{EmpresaID: empresaID, Nome: nome, Ativo: true}
	err = r.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Create(novo).Error
	})
	if err == nil {
		return novo, nil
	}
	if !domainerr.IsKind(err, domainerr.KindViolacaoRestricao) || r.inTx {
		return nil, err
	}
	c, err = r.FindCaixaPorNome(ctx, empresaID, nome)
	if err == nil && c == nil {
		err = domainerr.New(domainerr.KindNaoEncontrado, "caixa não encontrado")
	}
	return c, err
}

// ── Turnos ────────────────────────────────────────────────────────────────────

// FindTurnoAberto returns nil, nil when the caixa has no open shift.
func (r *caixaRepo) FindTurnoAberto(ctx context.Context, empresaID, caixaID uuid.UUID) (*model.TurnoCaixa, error) {
	var (
		t     model.TurnoCaixa
		found bool
	)
	err := r.run(ctx, func(ctx context.Context) error {
		err := r.db.WithContext(ctx).Scopes(empresaScope(empresaID)).
			Where("caixa_id = ? AND status = ?", caixaID, model.StatusAberto).
			Take(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

func (r *caixaRepo) FindTurnoByID(ctx context.Context, empresaID, id uuid.UUID) (*model.TurnoCaixa, error) {
	return r.findTurno(ctx, empresaID, id, false)
}

// LockTurno reads the shift with SELECT ... FOR UPDATE. Only meaningful
// inside Transaction: the row stays locked until commit.
func (r *caixaRepo) LockTurno(ctx context.Context, empresaID, id uuid.UUID) (*model.TurnoCaixa, error) {
	return r.findTurno(ctx, empresaID, id, true)
}

func (r *caixaRepo) findTurno(ctx context.Context, empresaID, id uuid.UUID, lock bool) (*model.TurnoCaixa, error) {
	var t model.TurnoCaixa
	err := r.run(ctx, func(ctx context.Context) error {
		q := r.db.WithContext(ctx)
		if lock {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := q.Scopes(empresaScope(empresaID)).Where("id = ?", id).Take(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerr.New(domainerr.KindNaoEncontrado, "turno não encontrado")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTurno fails with KindViolacaoRestricao when the caixa already has
// an open shift (idx_turnos_caixa_um_aberto).
func (r *caixaRepo) InsertTurno(ctx context.Context, t *model.TurnoCaixa) error {
	return r.run(ctx, func(ctx context.Context) error {
		err := r.db.WithContext(ctx).Create(t).Error
		if err != nil && isUniqueViolation(err) {
			return domainerr.Wrap(domainerr.KindViolacaoRestricao, "caixa já possui turno aberto", err)
		}
		return err
	})
}

// UpdateTotaisTurno increments the cached totals in a single statement,
// conditional on the shift still being open.
func (r *caixaRepo) UpdateTotaisTurno(ctx context.Context, empresaID, turnoID uuid.UUID, delta model.DeltaTotais) error {
	return r.run(ctx, func(ctx context.Context) error {
		db := r.db.WithContext(ctx)
		res := db.Model(&model.TurnoCaixa{}).Scopes(empresaScope(empresaID)).
			Where("id = ? AND status = ?", turnoID, model.StatusAberto).
			UpdateColumns(map[string]interface{}{
				"valor_vendas":      gorm.Expr("valor_vendas + ?", delta.Vendas),
				"valor_suprimentos": gorm.Expr("valor_suprimentos + ?", delta.Suprimentos),
				"valor_sangrias":    gorm.Expr("valor_sangrias + ?", delta.Sangrias),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		return turnoNaoAberto(db, empresaID, turnoID)
	})
}

// FecharTurno transitions aberto → fechado. A shift that is already closed
// is left untouched and KindEstadoInvalido is returned.
func (r *caixaRepo) FecharTurno(ctx context.Context, empresaID, turnoID uuid.UUID, f model.FechamentoTurno) (*model.TurnoCaixa, error) {
	var fechado model.TurnoCaixa
	err := r.atomic(ctx, func(db *gorm.DB) error {
		res := db.Model(&model.TurnoCaixa{}).Scopes(empresaScope(empresaID)).
			Where("id = ? AND status = ?", turnoID, model.StatusAberto).
			UpdateColumns(map[string]interface{}{
				"status":                model.StatusFechado,
				"data_fechamento":       f.FechadoEm.UTC(),
				"valor_fechamento":      f.ValorFechamento,
				"valor_troco":           f.ValorTroco,
				"valor_diferenca":       f.Diferenca,
				"usuario_fechamento_id": f.FechadoPor,
				"observacoes":           f.Observacoes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return turnoNaoAberto(db, empresaID, turnoID)
		}
		return db.Scopes(empresaScope(empresaID)).Where("id = ?", turnoID).Take(&fechado).Error
	})
	if err != nil {
		return nil, err
	}
	return &fechado, nil
}

// turnoNaoAberto explains why a conditional update touched no rows.
func turnoNaoAberto(db *gorm.DB, empresaID, turnoID uuid.UUID) error {
	var t model.TurnoCaixa
	err := db.Scopes(empresaScope(empresaID)).Select("id", "status").Where("id = ?", turnoID).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainerr.New(domainerr.KindNaoEncontrado, "turno não encontrado")
	}
	if err != nil {
		return err
	}
	return domainerr.New(domainerr.KindEstadoInvalido, "turno já está fechado")
}

func (r *caixaRepo) turnoQuery(db *gorm.DB, f TurnoFilter) *gorm.DB {
	q := db.Model(&model.TurnoCaixa{}).Scopes(empresaScope(f.EmpresaID))
	if f.CaixaID != nil {
		q = q.Where("caixa_id = ?", *f.CaixaID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Inicio != nil {
		q = q.Where("data_abertura >= ?", *utcPtr(f.Inicio))
	}
	if f.Fim != nil {
		q = q.Where("data_abertura <= ?", *utcPtr(f.Fim))
	}
	return q
}

func (r *caixaRepo) QueryTurnos(ctx context.Context, f TurnoFilter) ([]model.TurnoCaixa, error) {
	var turnos []model.TurnoCaixa
	err := r.run(ctx, func(ctx context.Context) error {
		q := r.turnoQuery(r.db.WithContext(ctx), f).Order("data_abertura DESC")
		if f.Limit > 0 {
			q = q.Limit(f.Limit).Offset(f.Offset)
		}
		return q.Find(&turnos).Error
	})
	return turnos, err
}

func (r *caixaRepo) CountTurnos(ctx context.Context, f TurnoFilter) (int64, error) {
	var total int64
	err := r.run(ctx, func(ctx context.Context) error {
		return r.turnoQuery(r.db.WithContext(ctx), f).Count(&total).Error
	})
	return total, err
}

// UltimoTroco returns the change fund left by the most recently closed shift
// of the caixa, or zero when there is none.
func (r *caixaRepo) UltimoTroco(ctx context.Context, empresaID, caixaID uuid.UUID) (decimal.Decimal, error) {
	var t model.TurnoCaixa
	err := r.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Scopes(empresaScope(empresaID)).
			Where("caixa_id = ? AND status = ?", caixaID, model.StatusFechado).
			Order("data_fechamento DESC").
			Take(&t).Error
	})
	if domainerr.IsKind(err, domainerr.KindNaoEncontrado) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if t.ValorTroco == nil {
		return decimal.Zero, nil
	}
	return *t.ValorTroco, nil
}

// ── Movimentações ─────────────────────────────────────────────────────────────

// AppendMovimentacao locks the owning shift row, checks it is open and
// inserts the movement. A second movement for the same venda_id fails with
// KindViolacaoRestricao.
func (r *caixaRepo) AppendMovimentacao(ctx context.Context, m *model.MovimentacaoCaixa) error {
	return r.atomic(ctx, func(db *gorm.DB) error {
		var t model.TurnoCaixa
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(empresaScope(m.EmpresaID)).
			Select("id", "status").Where("id = ?", m.TurnoID).Take(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerr.New(domainerr.KindNaoEncontrado, "turno não encontrado")
		}
		if err != nil {
			return err
		}
		if !t.Aberto() {
			return domainerr.New(domainerr.KindEstadoInvalido, "turno já está fechado")
		}

		m.DataMovimentacao = m.DataMovimentacao.UTC()
		if err := db.Create(m).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerr.Wrap(domainerr.KindViolacaoRestricao, "venda já registrada no caixa", err)
			}
			return err
		}
		return nil
	})
}

func (r *caixaRepo) FindMovimentacaoByID(ctx context.Context, empresaID, id uuid.UUID) (*model.MovimentacaoCaixa, error) {
	var m model.MovimentacaoCaixa
	err := r.run(ctx, func(ctx context.Context) error {
		err := r.db.WithContext(ctx).Scopes(empresaScope(empresaID)).Where("id = ?", id).Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerr.New(domainerr.KindNaoEncontrado, "movimentação não encontrada")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *caixaRepo) ListMovimentacoes(ctx context.Context, f MovimentacaoFilter) ([]model.MovimentacaoCaixa, error) {
	var movs []model.MovimentacaoCaixa
	err := r.run(ctx, func(ctx context.Context) error {
		q := r.db.WithContext(ctx).Scopes(empresaScope(f.EmpresaID))
		if f.TurnoID != nil {
			q = q.Where("turno_id = ?", *f.TurnoID)
		}
		if f.Tipo != "" {
			q = q.Where("tipo = ?", f.Tipo)
		}
		if f.Inicio != nil {
			q = q.Where("data_movimentacao >= ?", *utcPtr(f.Inicio))
		}
		if f.Fim != nil {
			q = q.Where("data_movimentacao <= ?", *utcPtr(f.Fim))
		}
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		return q.Order("data_movimentacao DESC").Find(&movs).Error
	})
	return movs, err
}

// SumMovimentacoesPorTipo returns SUM(valor) GROUP BY tipo for one shift.
// Types without movements are absent from the map.
func (r *caixaRepo) SumMovimentacoesPorTipo(ctx context.Context, empresaID, turnoID uuid.UUID) (map[string]decimal.Decimal, error) {
	type row struct {
		Tipo  string
		Total decimal.Decimal
	}
	var rows []row
	err := r.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Model(&model.MovimentacaoCaixa{}).
			Scopes(empresaScope(empresaID)).
			Select("tipo, SUM(valor) AS total").
			Where("turno_id = ?", turnoID).
			Group("tipo").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, rw := range rows {
		out[rw.Tipo] = rw.Total
	}
	return out, nil
}
