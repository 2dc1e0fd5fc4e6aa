package service

import (
	"context"
	"time"

	"oficinapro/internal/domainerr"
	"oficinapro/internal/dto"
	"oficinapro/internal/model"
	"oficinapro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TurnoNotifier receives closed shifts for the notification subsystem.
// Delivery is best-effort: a failure never undoes the close.
type TurnoNotifier interface {
	NotificarTurnoFechado(ctx context.Context, evento dto.TurnoFechadoEvento) error
}

// TurnoConfig carries the settings shared by the caixa services.
type TurnoConfig struct {
	NomeCaixaPadrao string
	Location        *time.Location   // default tenant zone
	Now             func() time.Time // nil = time.Now
}

func (c TurnoConfig) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c TurnoConfig) nomeCaixa() string {
	if c.NomeCaixaPadrao == "" {
		return "Caixa Principal"
	}
	return c.NomeCaixaPadrao
}

type TurnoService interface {
	Abrir(ctx context.Context, empresaID, usuarioID uuid.UUID, req dto.AbrirTurnoRequest) (*dto.TurnoResponse, error)
	// TurnoAtual returns nil, nil when the caixa has no open shift.
	TurnoAtual(ctx context.Context, empresaID uuid.UUID, caixaID string) (*dto.TurnoResponse, error)
	Saldo(ctx context.Context, empresaID uuid.UUID, caixaID string) (*dto.SaldoResponse, error)
	Fechar(ctx context.Context, empresaID, usuarioID, turnoID uuid.UUID, req dto.FecharTurnoRequest) (*dto.TurnoResponse, error)
	UltimoTroco(ctx context.Context, empresaID uuid.UUID, caixaID string) (*dto.UltimoTrocoResponse, error)
	Obter(ctx context.Context, empresaID, turnoID uuid.UUID) (*dto.TurnoResponse, error)
	Historial(ctx context.Context, empresaID uuid.UUID, q dto.HistorialTurnosQuery) (*dto.TurnoListResponse, error)
	Auditar(ctx context.Context, empresaID, turnoID uuid.UUID) (*dto.AuditoriaTurnoResponse, error)
}

type turnoService struct {
	repo     repository.CaixaRepository
	notifier TurnoNotifier
	cfg      TurnoConfig
}

func NewTurnoService(repo repository.CaixaRepository, notifier TurnoNotifier, cfg TurnoConfig) TurnoService {
	return &turnoService{repo: repo, notifier: notifier, cfg: cfg}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// The open-shift uniqueness lives in the database; a rejected insert is the
// only signal that another shift is already open.

func (s *turnoService) Abrir(ctx context.Context, empresaID, usuarioID uuid.UUID, req dto.AbrirTurnoRequest) (*dto.TurnoResponse, error) {
	if req.ValorAbertura.IsNegative() {
		return nil, domainerr.New(domainerr.KindEntradaInvalida, "valor de abertura não pode ser negativo")
	}
	if err := validarValor("valor_abertura", req.ValorAbertura); err != nil {
		return nil, err
	}

	caixa, err := resolverCaixa(ctx, s.repo, empresaID, req.CaixaID, s.cfg.nomeCaixa(), true)
	if err != nil {
		return nil, err
	}

	turno := &model.TurnoCaixa{
		CaixaID:       caixa.ID,
		UsuarioID:     usuarioID,
		EmpresaID:     empresaID,
		AbertoEm:      s.cfg.now(),
		ValorAbertura: req.ValorAbertura,
		Status:        model.StatusAberto,
		Observacoes:   req.Observacoes,
	}
	if err := s.repo.InsertTurno(ctx, turno); err != nil {
		if domainerr.IsKind(err, domainerr.KindViolacaoRestricao) {
			return nil, domainerr.Wrap(domainerr.KindTurnoJaAberto, "já existe um turno aberto neste caixa", err)
		}
		return nil, err
	}

	log.Info().
		Str("empresa_id", empresaID.String()).
		Str("caixa_id", caixa.ID.String()).
		Str("turno_id", turno.ID.String()).
		Str("valor_abertura", turno.ValorAbertura.StringFixed(2)).
		Msg("shift opened")

	resp := toTurnoResponse(turno, locationFrom(ctx, s.cfg.Location))
	return &resp, nil
}

// ── TurnoAtual / Saldo ────────────────────────────────────────────────────────
// Always a fresh read: the current shift is never cached.

func (s *turnoService) turnoAberto(ctx context.Context, empresaID uuid.UUID, caixaID string) (*model.TurnoCaixa, error) {
	caixa, err := resolverCaixa(ctx, s.repo, empresaID, caixaID, s.cfg.nomeCaixa(), false)
	if err != nil || caixa == nil {
		return nil, err
	}
	return s.repo.FindTurnoAberto(ctx, empresaID, caixa.ID)
}

func (s *turnoService) TurnoAtual(ctx context.Context, empresaID uuid.UUID, caixaID string) (*dto.TurnoResponse, error) {
	turno, err := s.turnoAberto(ctx, empresaID, caixaID)
	if err != nil || turno == nil {
		return nil, err
	}
	resp := toTurnoResponse(turno, locationFrom(ctx, s.cfg.Location))
	return &resp, nil
}

func (s *turnoService) Saldo(ctx context.Context, empresaID uuid.UUID, caixaID string) (*dto.SaldoResponse, error) {
	turno, err := s.turnoAberto(ctx, empresaID, caixaID)
	if err != nil {
		return nil, err
	}
	if turno == nil {
		return nil, domainerr.ErrSemTurnoAberto
	}
	return &dto.SaldoResponse{TurnoID: turno.ID.String(), SaldoEsperado: turno.SaldoEsperado()}, nil
}

// ── Fechar ────────────────────────────────────────────────────────────────────
// Blind count: the operator declares the counted cash, the difference is
// computed from the totals read under the row lock, so a movement cannot
// slip in between the read and the close.

func (s *turnoService) Fechar(ctx context.Context, empresaID, usuarioID, turnoID uuid.UUID, req dto.FecharTurnoRequest) (*dto.TurnoResponse, error) {
	// The count is required; troco defaults to 0.
	if req.ValorFechamento == nil {
		return nil, domainerr.New(domainerr.KindEntradaInvalida, "valor de fechamento é obrigatório")
	}
	valorFechamento := *req.ValorFechamento
	if valorFechamento.IsNegative() {
		return nil, domainerr.New(domainerr.KindEntradaInvalida, "valor de fechamento não pode ser negativo")
	}
	if req.ValorTroco.IsNegative() {
		return nil, domainerr.New(domainerr.KindEntradaInvalida, "valor do troco não pode ser negativo")
	}
	if err := validarValor("valor_fechamento", valorFechamento); err != nil {
		return nil, err
	}
	if err := validarValor("valor_troco", req.ValorTroco); err != nil {
		return nil, err
	}
	if req.ValorTroco.GreaterThan(valorFechamento) {
		return nil, domainerr.New(domainerr.KindEntradaInvalida, "o troco não pode ser maior que o valor de fechamento")
	}

	var (
		fechado  *model.TurnoCaixa
		esperado decimal.Decimal
	)
	err := s.repo.Transaction(ctx, func(tx repository.CaixaRepository) error {
		turno, err := tx.LockTurno(ctx, empresaID, turnoID)
		if err != nil {
			return err
		}
		if !turno.Aberto() {
			return domainerr.New(domainerr.KindEstadoInvalido, "turno já está fechado")
		}

		esperado = turno.SaldoEsperado()
		observacoes := turno.Observacoes
		if req.Observacoes != nil {
			observacoes = req.Observacoes
		}

		fechado, err = tx.FecharTurno(ctx, empresaID, turnoID, model.FechamentoTurno{
			FechadoEm:       s.cfg.now(),
			FechadoPor:      usuarioID,
			ValorFechamento: valorFechamento,
			ValorTroco:      req.ValorTroco,
			Diferenca:       valorFechamento.Sub(esperado),
			Observacoes:     observacoes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	diferenca := valorFechamento.Sub(esperado)
	log.Info().
		Str("empresa_id", empresaID.String()).
		Str("turno_id", turnoID.String()).
		Str("saldo_esperado", esperado.StringFixed(2)).
		Str("valor_fechamento", valorFechamento.StringFixed(2)).
		Str("diferenca", diferenca.StringFixed(2)).
		Msg("shift closed")

	s.notificarFechamento(ctx, fechado, esperado, diferenca)

	resp := toTurnoResponse(fechado, locationFrom(ctx, s.cfg.Location))
	return &resp, nil
}

func (s *turnoService) notificarFechamento(ctx context.Context, t *model.TurnoCaixa, esperado, diferenca decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	evento := dto.TurnoFechadoEvento{
		EmpresaID:          t.EmpresaID.String(),
		TurnoID:            t.ID.String(),
		CaixaID:            t.CaixaID.String(),
		UsuarioID:          t.UsuarioID.String(),
		SaldoEsperado:      esperado,
		ValorDiferenca:     diferenca,
		SituacaoFechamento: model.SituacaoFechamento(diferenca),
	}
	if t.FechadoEm != nil {
		evento.FechadoEm = t.FechadoEm.UTC().Format(timeLayout)
	}
	if t.ValorFechamento != nil {
		evento.ValorFechamento = *t.ValorFechamento
	}
	if err := s.notifier.NotificarTurnoFechado(ctx, evento); err != nil {
		log.Warn().Err(err).Str("turno_id", t.ID.String()).Msg("shift close notification not enqueued")
	}
}

// ── Consultas ─────────────────────────────────────────────────────────────────

// UltimoTroco suggests the opening value for the next shift.
func (s *turnoService) UltimoTroco(ctx context.Context, empresaID uuid.UUID, caixaID string) (*dto.UltimoTrocoResponse, error) {
	caixa, err := resolverCaixa(ctx, s.repo, empresaID, caixaID, s.cfg.nomeCaixa(), false)
	if err != nil {
		return nil, err
	}
	if caixa == nil {
		return &dto.UltimoTrocoResponse{ValorTroco: decimal.Zero}, nil
	}
	troco, err := s.repo.UltimoTroco(ctx, empresaID, caixa.ID)
	if err != nil {
		return nil, err
	}
	return &dto.UltimoTrocoResponse{ValorTroco: troco}, nil
}

func (s *turnoService) Obter(ctx context.Context, empresaID, turnoID uuid.UUID) (*dto.TurnoResponse, error) {
	turno, err := s.repo.FindTurnoByID(ctx, empresaID, turnoID)
	if err != nil {
		return nil, err
	}
	resp := toTurnoResponse(turno, locationFrom(ctx, s.cfg.Location))
	return &resp, nil
}

func (s *turnoService) Historial(ctx context.Context, empresaID uuid.UUID, q dto.HistorialTurnosQuery) (*dto.TurnoListResponse, error) {
	loc := locationFrom(ctx, s.cfg.Location)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}

	filter := repository.TurnoFilter{
		EmpresaID: empresaID,
		Status:    q.Status,
		Limit:     q.Limit,
		Offset:    (q.Page - 1) * q.Limit,
	}
	caixaID, err := parseOptionalUUID(q.CaixaID, "caixa_id")
	if err != nil {
		return nil, err
	}
	filter.CaixaID = caixaID

	if q.Inicio != "" {
		dia, err := parseDia(q.Inicio, loc)
		if err != nil {
			return nil, err
		}
		inicio := inicioDoDia(dia).UTC()
		filter.Inicio = &inicio
	}
	if q.Fim != "" {
		dia, err := parseDia(q.Fim, loc)
		if err != nil {
			return nil, err
		}
		fim := fimDoDia(dia).UTC()
		filter.Fim = &fim
	}

	turnos, err := s.repo.QueryTurnos(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountTurnos(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.TurnoResponse, 0, len(turnos))
	for i := range turnos {
		data = append(data, toTurnoResponse(&turnos[i], loc))
	}
	return &dto.TurnoListResponse{Data: data, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Auditar recomputes the totals of a shift from its movement log and
// compares them with the cached columns.
func (s *turnoService) Auditar(ctx context.Context, empresaID, turnoID uuid.UUID) (*dto.AuditoriaTurnoResponse, error) {
	turno, err := s.repo.FindTurnoByID(ctx, empresaID, turnoID)
	if err != nil {
		return nil, err
	}
	sums, err := s.repo.SumMovimentacoesPorTipo(ctx, empresaID, turnoID)
	if err != nil {
		return nil, err
	}

	registrado := dto.TotaisMovimentacao{
		Vendas:      turno.ValorVendas,
		Sangrias:    turno.ValorSangrias,
		Suprimentos: turno.ValorSuprimentos,
	}
	calculado := dto.TotaisMovimentacao{
		Vendas:      sums[model.TipoVenda],
		Sangrias:    sums[model.TipoSangria],
		Suprimentos: sums[model.TipoSuprimento],
	}
	consistente := registrado.Vendas.Equal(calculado.Vendas) &&
		registrado.Sangrias.Equal(calculado.Sangrias) &&
		registrado.Suprimentos.Equal(calculado.Suprimentos)
	if !consistente {
		log.Error().Str("turno_id", turnoID.String()).Msg("shift totals diverge from movement log")
	}

	return &dto.AuditoriaTurnoResponse{
		TurnoID:     turnoID.String(),
		Registrado:  registrado,
		Calculado:   calculado,
		Consistente: consistente,
	}, nil
}
