package handler

import (
	"net/http"

	"oficinapro/internal/apierror"
	"oficinapro/internal/domainerr"
	"oficinapro/internal/dto"
	"oficinapro/internal/service"

	"github.com/gin-gonic/gin"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CaixaHandler struct {
	turnos    service.TurnoService
	movs      service.MovimentacaoService
	relatorio service.RelatorioService
}

func NewCaixaHandler(turnos service.TurnoService, movs service.MovimentacaoService, relatorio service.RelatorioService) *CaixaHandler {
	return &CaixaHandler{turnos: turnos, movs: movs, relatorio: relatorio}
}

// ── Turnos ────────────────────────────────────────────────────────────────────

// Abrir godoc
// @Summary Abre um turno de caixa
// @Tags caixa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirTurnoRequest true "Dados de abertura"
// @Success 201 {object} dto.TurnoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/caixa/turnos/abrir [post]
func (h *CaixaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirTurnoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, empresaID, usuarioID := identidade(c)

	resp, err := h.turnos.Abrir(ctx, empresaID, usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Fechar godoc
// @Summary Fecha o turno com a contagem cega do operador
// @Tags caixa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do turno"
// @Param body body dto.FecharTurnoRequest true "Valores contados"
// @Success 200 {object} dto.TurnoResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixa/turnos/{id}/fechar [post]
func (h *CaixaHandler) Fechar(c *gin.Context) {
	turnoID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req dto.FecharTurnoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, empresaID, usuarioID := identidade(c)

	resp, err := h.turnos.Fechar(ctx, empresaID, usuarioID, turnoID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TurnoAtual godoc
// @Summary Retorna o turno aberto do caixa
// @Tags caixa
// @Produce json
// @Security BearerAuth
// @Param caixa_id query string false "ID do caixa (padrão: caixa principal)"
// @Success 200 {object} dto.TurnoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caixa/turno-atual [get]
func (h *CaixaHandler) TurnoAtual(c *gin.Context) {
	ctx, empresaID, _ := identidade(c)

	resp, err := h.turnos.TurnoAtual(ctx, empresaID, c.Query("caixa_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New(string(domainerr.KindSemTurnoAberto), "Nenhum turno aberto"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Saldo returns the running expected balance of the open shift.
func (h *CaixaHandler) Saldo(c *gin.Context) {
	ctx, empresaID, _ := identidade(c)

	resp, err := h.turnos.Saldo(ctx, empresaID, c.Query("caixa_id"))
	if domainerr.IsKind(err, domainerr.KindSemTurnoAberto) {
		c.JSON(http.StatusNotFound, apierror.New(string(domainerr.KindSemTurnoAberto), "Nenhum turno aberto"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UltimoTroco suggests the opening value from the last closed shift.
func (h *CaixaHandler) UltimoTroco(c *gin.Context) {
	ctx, empresaID, _ := identidade(c)

	resp, err := h.turnos.UltimoTroco(ctx, empresaID, c.Query("caixa_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CaixaHandler) ObterTurno(c *gin.Context) {
	turnoID, ok := parseIDParam(c)
	if !ok {
		return
	}
	ctx, empresaID, _ := identidade(c)

	resp, err := h.turnos.Obter(ctx, empresaID, turnoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial godoc
// @Summary Lista os turnos com filtros de período e status
// @Tags caixa
// @Produce json
// @Security BearerAuth
// @Param caixa_id query string false "ID do caixa"
// @Param status query string false "aberto | fechado"
// @Param inicio query string false "YYYY-MM-DD"
// @Param fim query string false "YYYY-MM-DD"
// @Param page query int false "Página"
// @Param limit query int false "Itens por página"
// @Success 200 {object} dto.TurnoListResponse
// @Router /v1/caixa/turnos [get]
func (h *CaixaHandler) Historial(c *gin.Context) {
	var q dto.HistorialTurnosQuery
	if !bindQuery(c, &q) {
		return
	}
	ctx, empresaID, _ := identidade(c)

	resp, err := h.turnos.Historial(ctx, empresaID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Auditoria compares a shift's cached totals with its movement log.
func (h *CaixaHandler) Auditoria(c *gin.Context) {
	turnoID, ok := parseIDParam(c)
	if !ok {
		return
	}
	ctx, empresaID, _ := identidade(c)

	resp, err := h.turnos.Auditar(ctx, empresaID, turnoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Movimentações ─────────────────────────────────────────────────────────────

// RegistrarMovimentacao godoc
// @Summary Registra sangria ou suprimento no turno aberto
// @Tags caixa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Chave de idempotência"
// @Param body body dto.MovimentacaoRequest true "Movimentação"
// @Success 201 {object} dto.RegistroMovimentacaoResponse
// @Success 200 {object} dto.RegistroMovimentacaoResponse "Requisição repetida"
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixa/movimentacoes [post]
func (h *CaixaHandler) RegistrarMovimentacao(c *gin.Context) {
	var req dto.MovimentacaoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, empresaID, usuarioID := identidade(c)

	resp, err := h.movs.Registrar(ctx, empresaID, usuarioID, req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Reprocessada {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// RegistrarVenda godoc
// @Summary Contabiliza uma venda concluída no turno aberto
// @Tags caixa
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RegistrarVendaRequest true "Venda"
// @Success 201 {object} dto.RegistroMovimentacaoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixa/vendas [post]
func (h *CaixaHandler) RegistrarVenda(c *gin.Context) {
	var req dto.RegistrarVendaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, empresaID, usuarioID := identidade(c)

	resp, err := h.movs.RegistrarVenda(ctx, empresaID, usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CaixaHandler) ListarMovimentacoes(c *gin.Context) {
	turnoID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var q dto.MovimentacoesQuery
	if !bindQuery(c, &q) {
		return
	}
	ctx, empresaID, _ := identidade(c)

	resp, err := h.movs.Listar(ctx, empresaID, turnoID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Relatório ─────────────────────────────────────────────────────────────────

// Relatorio godoc
// @Summary Resumo de turnos por período
// @Tags caixa
// @Produce json
// @Security BearerAuth
// @Param periodo query string false "hoje | semana | mes | personalizado"
// @Param inicio query string false "YYYY-MM-DD (personalizado)"
// @Param fim query string false "YYYY-MM-DD (personalizado)"
// @Param caixa_id query string false "ID do caixa"
// @Success 200 {object} dto.ResumoCaixaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/caixa/relatorio [get]
func (h *CaixaHandler) Relatorio(c *gin.Context) {
	var q dto.ResumoQuery
	if !bindQuery(c, &q) {
		return
	}
	ctx, empresaID, _ := identidade(c)

	resp, err := h.relatorio.Resumo(ctx, empresaID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
