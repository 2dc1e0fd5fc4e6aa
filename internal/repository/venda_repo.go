package repository

import (
	"context"

	"oficinapro/internal/domainerr"
	"oficinapro/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VentaRepository touches the sales table only to stamp the shift a sale
// was counted in. Sales own every other column.
type VentaRepository interface {
	VincularTurno(ctx context.Context, empresaID, vendaID, turnoID uuid.UUID) error
}

type vendaRepo struct {
	db *gorm.DB
	runner
}

func NewVendaRepository(db *gorm.DB, opts StoreOptions) VentaRepository {
	return &vendaRepo{db: db, runner: runner{opts: opts}}
}

func (r *vendaRepo) VincularTurno(ctx context.Context, empresaID, vendaID, turnoID uuid.UUID) error {
	return r.run(ctx, func(ctx context.Context) error {
		res := r.db.WithContext(ctx).Model(&model.Venda{}).Scopes(empresaScope(empresaID)).
			Where("id = ?", vendaID).
			UpdateColumn("turno_id", turnoID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domainerr.New(domainerr.KindNaoEncontrado, "venda não encontrada")
		}
		return nil
	})
}
