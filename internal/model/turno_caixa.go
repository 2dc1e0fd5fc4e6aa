package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shift status.
const (
	StatusAberto  = "aberto"
	StatusFechado = "fechado"
)

// Closing situation derived from the difference.
const (
	SituacaoConfere = "confere"
	SituacaoSobra   = "sobra"
	SituacaoFalta   = "falta"
)

// Caixa is a tenant's physical or logical till. Created lazily, never deleted.
type Caixa struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmpresaID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_caixas_empresa_nome"`
	Nome      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_caixas_empresa_nome"`
	Ativo     bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (Caixa) TableName() string { return "caixas" }

func (c *Caixa) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TurnoCaixa is one open→closed session of a Caixa.
// At most one row per (empresa_id, caixa_id) may have status "aberto";
// the partial unique index idx_turnos_caixa_um_aberto enforces it.
// Totals only grow while open and are frozen after close.
type TurnoCaixa struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CaixaID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	UsuarioID        uuid.UUID       `gorm:"type:uuid;not null"`
	EmpresaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	AbertoEm         time.Time       `gorm:"column:data_abertura;not null;index"`
	ValorAbertura    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ValorVendas      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ValorSuprimentos decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ValorSangrias    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status           string          `gorm:"type:varchar(20);not null"`
	Observacoes      *string         `gorm:"type:text"`

	FechadoEm           *time.Time       `gorm:"column:data_fechamento;index"`
	ValorFechamento     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ValorTroco          *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ValorDiferenca      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	UsuarioFechamentoID *uuid.UUID       `gorm:"type:uuid"`
}

func (TurnoCaixa) TableName() string { return "turnos_caixa" }

func (t *TurnoCaixa) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Aberto reports whether the shift still accepts movements.
func (t *TurnoCaixa) Aberto() bool { return t.Status == StatusAberto }

// SaldoEsperado is the balance the drawer should hold:
// abertura + vendas + suprimentos − sangrias.
// It is the only place this formula lives.
func (t *TurnoCaixa) SaldoEsperado() decimal.Decimal {
	return t.ValorAbertura.
		Add(t.ValorVendas).
		Add(t.ValorSuprimentos).
		Sub(t.ValorSangrias)
}

// FechamentoTurno carries the values persisted when a shift is closed.
type FechamentoTurno struct {
	FechadoEm       time.Time
	FechadoPor      uuid.UUID
	ValorFechamento decimal.Decimal
	ValorTroco      decimal.Decimal
	Diferenca       decimal.Decimal
	Observacoes     *string
}

// SituacaoFechamento labels a closing difference: zero confere, positive
// sobra (more cash than expected), negative falta.
func SituacaoFechamento(diferenca decimal.Decimal) string {
	switch diferenca.Sign() {
	case 0:
		return SituacaoConfere
	case 1:
		return SituacaoSobra
	default:
		return SituacaoFalta
	}
}
