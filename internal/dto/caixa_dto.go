package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AbrirTurnoRequest opens a shift. Without caixa_id the tenant's default
// caixa is used (and created on first use).
type AbrirTurnoRequest struct {
	CaixaID       string          `json:"caixa_id"       validate:"omitempty,uuid"`
	ValorAbertura decimal.Decimal `json:"valor_abertura" validate:"min=0"`
	Observacoes   *string         `json:"observacoes"    validate:"omitempty,max=1000"`
}

// FecharTurnoRequest closes a shift with the counted cash. valor_troco is
// the change fund left in the drawer for the next shift and defaults to 0.
type FecharTurnoRequest struct {
	ValorFechamento *decimal.Decimal `json:"valor_fechamento" validate:"required,min=0"`
	ValorTroco      decimal.Decimal  `json:"valor_troco"      validate:"min=0"`
	Observacoes     *string          `json:"observacoes"      validate:"omitempty,max=1000"`
}

// MovimentacaoRequest records a manual cash movement.
type MovimentacaoRequest struct {
	CaixaID   string          `json:"caixa_id"  validate:"omitempty,uuid"`
	TurnoID   string          `json:"turno_id"  validate:"omitempty,uuid"`
	Tipo      string          `json:"tipo"      validate:"required,oneof=sangria suprimento"`
	Valor     decimal.Decimal `json:"valor"     validate:"required,gt=0"`
	Descricao string          `json:"descricao" validate:"required,min=3,max=255"`
}

// RegistrarVendaRequest is sent by the sales subsystem after a sale is saved.
type RegistrarVendaRequest struct {
	CaixaID string          `json:"caixa_id" validate:"omitempty,uuid"`
	TurnoID string          `json:"turno_id" validate:"omitempty,uuid"`
	VendaID string          `json:"venda_id" validate:"required,uuid"`
	Valor   decimal.Decimal `json:"valor"    validate:"required,gt=0"`
}

// ─── Query DTOs ──────────────────────────────────────────────────────────────

// HistorialTurnosQuery is bound from the query string of GET /v1/caixa/turnos.
type HistorialTurnosQuery struct {
	CaixaID string `form:"caixa_id" validate:"omitempty,uuid"`
	Status  string `form:"status"   validate:"omitempty,oneof=aberto fechado"`
	Inicio  string `form:"inicio"   validate:"omitempty,datetime=2006-01-02"` // YYYY-MM-DD, tenant zone
	Fim     string `form:"fim"      validate:"omitempty,datetime=2006-01-02"`
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// MovimentacoesQuery filters the movement log of one shift.
type MovimentacoesQuery struct {
	Tipo string `form:"tipo" validate:"omitempty,oneof=venda sangria suprimento"`
}

// ResumoQuery is bound from the query string of GET /v1/caixa/relatorio.
type ResumoQuery struct {
	Periodo string `form:"periodo,default=hoje" validate:"oneof=hoje semana mes personalizado"`
	Inicio  string `form:"inicio" validate:"omitempty,datetime=2006-01-02"`
	Fim     string `form:"fim"    validate:"omitempty,datetime=2006-01-02"`
	CaixaID string `form:"caixa_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TurnoResponse struct {
	ID                  string           `json:"id"`
	CaixaID             string           `json:"caixa_id"`
	UsuarioID           string           `json:"usuario_id"`
	Status              string           `json:"status"` // aberto | fechado
	DataAbertura        string           `json:"data_abertura"`
	ValorAbertura       decimal.Decimal  `json:"valor_abertura"`
	ValorVendas         decimal.Decimal  `json:"valor_vendas"`
	ValorSuprimentos    decimal.Decimal  `json:"valor_suprimentos"`
	ValorSangrias       decimal.Decimal  `json:"valor_sangrias"`
	SaldoEsperado       decimal.Decimal  `json:"saldo_esperado"`
	Observacoes         *string          `json:"observacoes"`
	DataFechamento      *string          `json:"data_fechamento"`
	ValorFechamento     *decimal.Decimal `json:"valor_fechamento"`
	ValorTroco          *decimal.Decimal `json:"valor_troco"`
	ValorDiferenca      *decimal.Decimal `json:"valor_diferenca"`
	SituacaoFechamento  *string          `json:"situacao_fechamento"` // confere | sobra | falta
	UsuarioFechamentoID *string          `json:"usuario_fechamento_id"`
}

type TurnoListResponse struct {
	Data  []TurnoResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type MovimentacaoResponse struct {
	ID               string          `json:"id"`
	TurnoID          string          `json:"turno_id"`
	Tipo             string          `json:"tipo"`
	Valor            decimal.Decimal `json:"valor"`
	Descricao        string          `json:"descricao"`
	UsuarioID        string          `json:"usuario_id"`
	VendaID          *string         `json:"venda_id"`
	DataMovimentacao string          `json:"data_movimentacao"`
}

// VinculoVendaResponse reports whether the sale row got its shift stamp.
// The movement stands either way.
type VinculoVendaResponse struct {
	Vinculada bool    `json:"vinculada"`
	Erro      *string `json:"erro,omitempty"`
}

type RegistroMovimentacaoResponse struct {
	Movimentacao  MovimentacaoResponse  `json:"movimentacao"`
	SaldoEsperado decimal.Decimal       `json:"saldo_esperado"`
	Turno         TurnoResponse         `json:"turno"`
	Reprocessada  bool                  `json:"reprocessada"`
	VinculoVenda  *VinculoVendaResponse `json:"vinculo_venda,omitempty"`
}

type TotaisMovimentacao struct {
	Vendas      decimal.Decimal `json:"vendas"`
	Sangrias    decimal.Decimal `json:"sangrias"`
	Suprimentos decimal.Decimal `json:"suprimentos"`
}

type MovimentacaoListResponse struct {
	Data   []MovimentacaoResponse `json:"data"`
	Totais TotaisMovimentacao     `json:"totais"`
}

// AuditoriaTurnoResponse compares the cached totals of a shift with the sums
// of its movement log.
type AuditoriaTurnoResponse struct {
	TurnoID     string             `json:"turno_id"`
	Registrado  TotaisMovimentacao `json:"registrado"`
	Calculado   TotaisMovimentacao `json:"calculado"`
	Consistente bool               `json:"consistente"`
}

type SaldoResponse struct {
	TurnoID       string          `json:"turno_id"`
	SaldoEsperado decimal.Decimal `json:"saldo_esperado"`
}

type UltimoTrocoResponse struct {
	ValorTroco decimal.Decimal `json:"valor_troco"`
}

type ResumoCaixaResponse struct {
	Periodo          string          `json:"periodo"`
	Inicio           string          `json:"inicio"`
	Fim              string          `json:"fim"`
	TotalTurnos      int             `json:"total_turnos"`
	TurnosFechados   int             `json:"turnos_fechados"`
	FaturamentoTotal decimal.Decimal `json:"faturamento_total"`
	TicketMedio      decimal.Decimal `json:"ticket_medio"`
	DiferencaTotal   decimal.Decimal `json:"diferenca_total"`
	TotalSangrias    decimal.Decimal `json:"total_sangrias"`
	TotalSuprimentos decimal.Decimal `json:"total_suprimentos"`
}

// TurnoFechadoEvento is the payload of the "turno_fechado" notification job.
type TurnoFechadoEvento struct {
	EmpresaID          string          `json:"empresa_id"`
	TurnoID            string          `json:"turno_id"`
	CaixaID            string          `json:"caixa_id"`
	UsuarioID          string          `json:"usuario_id"`
	FechadoEm          string          `json:"fechado_em"`
	SaldoEsperado      decimal.Decimal `json:"saldo_esperado"`
	ValorFechamento    decimal.Decimal `json:"valor_fechamento"`
	ValorDiferenca     decimal.Decimal `json:"valor_diferenca"`
	SituacaoFechamento string          `json:"situacao_fechamento"`
}
