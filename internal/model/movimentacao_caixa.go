package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement types.
const (
	TipoVenda      = "venda"
	TipoSangria    = "sangria"
	TipoSuprimento = "suprimento"
)

// TipoValido reports whether tipo is one of the three movement types.
func TipoValido(tipo string) bool {
	switch tipo {
	case TipoVenda, TipoSangria, TipoSuprimento:
		return true
	}
	return false
}

// MovimentacaoCaixa is an immutable ledger entry of a TurnoCaixa.
// Rows are never updated or deleted. VendaID is only set for tipo "venda"
// and is unique per empresa (idx_movimentacoes_caixa_venda).
type MovimentacaoCaixa struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TurnoID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmpresaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	UsuarioID        uuid.UUID       `gorm:"type:uuid;not null"`
	Tipo             string          `gorm:"type:varchar(20);not null"`
	Valor            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descricao        string          `gorm:"type:varchar(255);not null"`
	VendaID          *uuid.UUID      `gorm:"type:uuid"`
	DataMovimentacao time.Time       `gorm:"not null;index"`
}

func (MovimentacaoCaixa) TableName() string { return "movimentacoes_caixa" }

func (m *MovimentacaoCaixa) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// DeltaTotais is the increment applied to a shift's cached totals.
type DeltaTotais struct {
	Vendas      decimal.Decimal
	Suprimentos decimal.Decimal
	Sangrias    decimal.Decimal
}

// DeltaPara returns the increment that a movement of tipo/valor causes.
func DeltaPara(tipo string, valor decimal.Decimal) DeltaTotais {
	var d DeltaTotais
	switch tipo {
	case TipoVenda:
		d.Vendas = valor
	case TipoSuprimento:
		d.Suprimentos = valor
	case TipoSangria:
		d.Sangrias = valor
	}
	return d
}

// Venda is the slice of the Sales subsystem's row this module touches:
// the shift stamp. Sales own every other column.
type Venda struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EmpresaID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	TurnoID    *uuid.UUID      `gorm:"type:uuid;index"`
	ValorTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time
}

func (Venda) TableName() string { return "vendas" }
