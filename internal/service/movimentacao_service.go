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

// IdempotencyStore remembers Idempotency-Key headers of movement requests.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Resolve(ctx context.Context, key string) (string, bool, error)
	Complete(ctx context.Context, key, result string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type MovimentacaoService interface {
	// Registrar records a sangria or suprimento on the open shift.
	Registrar(ctx context.Context, empresaID, usuarioID uuid.UUID, req dto.MovimentacaoRequest, idempotencyKey string) (*dto.RegistroMovimentacaoResponse, error)
	// RegistrarVenda counts a sale in the open shift and stamps the sale
	// with the shift id. A failed stamp is reported, the movement stands.
	RegistrarVenda(ctx context.Context, empresaID, usuarioID uuid.UUID, req dto.RegistrarVendaRequest) (*dto.RegistroMovimentacaoResponse, error)
	Listar(ctx context.Context, empresaID, turnoID uuid.UUID, q dto.MovimentacoesQuery) (*dto.MovimentacaoListResponse, error)
}

type movimentacaoService struct {
	repo           repository.CaixaRepository
	vendas         repository.VentaRepository
	idem           IdempotencyStore
	idempotencyTTL time.Duration
	cfg            TurnoConfig
}

func NewMovimentacaoService(repo repository.CaixaRepository, vendas repository.VentaRepository, idem IdempotencyStore, idempotencyTTL time.Duration, cfg TurnoConfig) MovimentacaoService {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &movimentacaoService{repo: repo, vendas: vendas, idem: idem, idempotencyTTL: idempotencyTTL, cfg: cfg}
}

// novaMovimentacao is the validated input of registrar.
type novaMovimentacao struct {
	empresaID uuid.UUID
	usuarioID uuid.UUID
	caixaID   string
	turnoID   *uuid.UUID
	tipo      string
	valor     decimal.Decimal
	descricao string
	vendaID   *uuid.UUID
}

// ── Registrar (core) ──────────────────────────────────────────────────────────
// The movement insert and the total increment commit together, which keeps
// the cached totals equal to the sums of the log. This is the only place
// totals are incremented.

func (s *movimentacaoService) registrar(ctx context.Context, n novaMovimentacao) (*model.MovimentacaoCaixa, *model.TurnoCaixa, error) {
	if !model.TipoValido(n.tipo) {
		return nil, nil, domainerr.Newf(domainerr.KindEntradaInvalida, "tipo de movimentação inválido: %s", n.tipo)
	}
	if !n.valor.IsPositive() {
		return nil, nil, domainerr.New(domainerr.KindEntradaInvalida, "valor deve ser maior que zero")
	}
	if err := validarValor("valor", n.valor); err != nil {
		return nil, nil, err
	}

	var (
		mov   *model.MovimentacaoCaixa
		turno *model.TurnoCaixa
	)
	err := s.repo.Transaction(ctx, func(tx repository.CaixaRepository) error {
		aberto, err := s.turnoAlvo(ctx, tx, n)
		if err != nil {
			return err
		}

		mov = &model.MovimentacaoCaixa{
			TurnoID:          aberto.ID,
			EmpresaID:        n.empresaID,
			UsuarioID:        n.usuarioID,
			Tipo:             n.tipo,
			Valor:            n.valor,
			Descricao:        n.descricao,
			VendaID:          n.vendaID,
			DataMovimentacao: s.cfg.now(),
		}
		if err := tx.AppendMovimentacao(ctx, mov); err != nil {
			return semTurnoSeFechado(err)
		}
		if err := tx.UpdateTotaisTurno(ctx, n.empresaID, aberto.ID, model.DeltaPara(n.tipo, n.valor)); err != nil {
			return semTurnoSeFechado(err)
		}

		turno, err = tx.FindTurnoByID(ctx, n.empresaID, aberto.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("empresa_id", n.empresaID.String()).
		Str("turno_id", turno.ID.String()).
		Str("tipo", mov.Tipo).
		Str("valor", mov.Valor.StringFixed(2)).
		Msg("cash movement recorded")
	return mov, turno, nil
}

// turnoAlvo finds the open shift the movement goes to. A caller naming a
// shift that is no longer the open one gets KindSemTurnoAberto.
func (s *movimentacaoService) turnoAlvo(ctx context.Context, tx repository.CaixaRepository, n novaMovimentacao) (*model.TurnoCaixa, error) {
	caixaID := n.caixaID
	if caixaID == "" && n.turnoID != nil {
		informado, err := tx.FindTurnoByID(ctx, n.empresaID, *n.turnoID)
		if err != nil {
			return nil, err
		}
		caixaID = informado.CaixaID.String()
	}

	caixa, err := resolverCaixa(ctx, tx, n.empresaID, caixaID, s.cfg.nomeCaixa(), false)
	if err != nil {
		return nil, err
	}
	if caixa == nil {
		return nil, domainerr.ErrSemTurnoAberto
	}
	aberto, err := tx.FindTurnoAberto(ctx, n.empresaID, caixa.ID)
	if err != nil {
		return nil, err
	}
	if aberto == nil {
		return nil, domainerr.ErrSemTurnoAberto
	}
	if n.turnoID != nil && *n.turnoID != aberto.ID {
		return nil, domainerr.New(domainerr.KindSemTurnoAberto, "o turno informado não está aberto")
	}
	return aberto, nil
}

// semTurnoSeFechado reports a shift closed between lookup and write as
// "no open shift".
func semTurnoSeFechado(err error) error {
	if domainerr.IsKind(err, domainerr.KindEstadoInvalido) {
		return domainerr.Wrap(domainerr.KindSemTurnoAberto, "o turno foi fechado", err)
	}
	return err
}

func (s *movimentacaoService) resposta(ctx context.Context, mov *model.MovimentacaoCaixa, turno *model.TurnoCaixa) *dto.RegistroMovimentacaoResponse {
	loc := locationFrom(ctx, s.cfg.Location)
	return &dto.RegistroMovimentacaoResponse{
		Movimentacao:  toMovimentacaoResponse(mov, loc),
		SaldoEsperado: turno.SaldoEsperado(),
		Turno:         toTurnoResponse(turno, loc),
	}
}

// ── Registrar (sangria / suprimento) ──────────────────────────────────────────

func (s *movimentacaoService) Registrar(ctx context.Context, empresaID, usuarioID uuid.UUID, req dto.MovimentacaoRequest, idempotencyKey string) (*dto.RegistroMovimentacaoResponse, error) {
	if req.Tipo != model.TipoSangria && req.Tipo != model.TipoSuprimento {
		return nil, domainerr.New(domainerr.KindEntradaInvalida, "tipo deve ser sangria ou suprimento")
	}
	turnoID, err := parseOptionalUUID(req.TurnoID, "turno_id")
	if err != nil {
		return nil, err
	}

	key := s.reservar(ctx, empresaID, idempotencyKey)
	if key.replay != nil || key.err != nil {
		return key.replay, key.err
	}

	mov, turno, err := s.registrar(ctx, novaMovimentacao{
		empresaID: empresaID,
		usuarioID: usuarioID,
		caixaID:   req.CaixaID,
		turnoID:   turnoID,
		tipo:      req.Tipo,
		valor:     req.Valor,
		descricao: req.Descricao,
	})
	if err != nil {
		s.liberar(ctx, key.name)
		return nil, err
	}
	s.concluir(ctx, key.name, mov.ID)
	return s.resposta(ctx, mov, turno), nil
}

// ── Idempotency ───────────────────────────────────────────────────────────────
// Redis trouble never blocks a movement: the request proceeds without the
// guard and a warning is logged.

type reserva struct {
	name   string // "" when no key is held
	replay *dto.RegistroMovimentacaoResponse
	err    error
}

func (s *movimentacaoService) reservar(ctx context.Context, empresaID uuid.UUID, idempotencyKey string) reserva {
	if idempotencyKey == "" || s.idem == nil {
		return reserva{}
	}
	name := empresaID.String() + ":" + idempotencyKey

	ok, err := s.idem.Reserve(ctx, name, s.idempotencyTTL)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency store unavailable, proceeding without it")
		return reserva{}
	}
	if ok {
		return reserva{name: name}
	}

	result, done, err := s.idem.Resolve(ctx, name)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency store unavailable, proceeding without it")
		return reserva{}
	}
	if !done {
		return reserva{err: domainerr.ErrRequisicaoDuplicada}
	}
	movID, err := uuid.Parse(result)
	if err != nil {
		return reserva{err: domainerr.ErrRequisicaoDuplicada}
	}
	replay, err := s.reproduzir(ctx, empresaID, movID)
	return reserva{replay: replay, err: err}
}

func (s *movimentacaoService) reproduzir(ctx context.Context, empresaID, movID uuid.UUID) (*dto.RegistroMovimentacaoResponse, error) {
	mov, err := s.repo.FindMovimentacaoByID(ctx, empresaID, movID)
	if err != nil {
		return nil, err
	}
	turno, err := s.repo.FindTurnoByID(ctx, empresaID, mov.TurnoID)
	if err != nil {
		return nil, err
	}
	resp := s.resposta(ctx, mov, turno)
	resp.Reprocessada = true
	return resp, nil
}

func (s *movimentacaoService) concluir(ctx context.Context, name string, movID uuid.UUID) {
	if name == "" {
		return
	}
	if err := s.idem.Complete(ctx, name, movID.String(), s.idempotencyTTL); err != nil {
		log.Warn().Err(err).Str("movimentacao_id", movID.String()).Msg("idempotency key not completed")
	}
}

func (s *movimentacaoService) liberar(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.idem.Release(ctx, name); err != nil {
		log.Warn().Err(err).Msg("idempotency key not released")
	}
}

// ── RegistrarVenda ────────────────────────────────────────────────────────────
// Called by the sales subsystem once the sale is saved. Stamping
// vendas.turno_id happens after the movement committed and is best-effort.

func (s *movimentacaoService) RegistrarVenda(ctx context.Context, empresaID, usuarioID uuid.UUID, req dto.RegistrarVendaRequest) (*dto.RegistroMovimentacaoResponse, error) {
	vendaID, err := uuid.Parse(req.VendaID)
	if err != nil {
		return nil, domainerr.New(domainerr.KindEntradaInvalida, "venda_id inválido")
	}
	turnoID, err := parseOptionalUUID(req.TurnoID, "turno_id")
	if err != nil {
		return nil, err
	}

	mov, turno, err := s.registrar(ctx, novaMovimentacao{
		empresaID: empresaID,
		usuarioID: usuarioID,
		caixaID:   req.CaixaID,
		turnoID:   turnoID,
		tipo:      model.TipoVenda,
		valor:     req.Valor,
		descricao: "Venda #" + vendaID.String(),
		vendaID:   &vendaID,
	})
	if err != nil {
		return nil, err
	}

	resp := s.resposta(ctx, mov, turno)
	resp.VinculoVenda = &dto.VinculoVendaResponse{Vinculada: true}
	if err := s.vendas.VincularTurno(ctx, empresaID, vendaID, turno.ID); err != nil {
		log.Warn().Err(err).
			Str("venda_id", vendaID.String()).
			Str("turno_id", turno.ID.String()).
			Msg("sale recorded but not stamped with shift")
		msg := domainerr.MessageOf(err, "falha ao vincular a venda ao turno")
		resp.VinculoVenda = &dto.VinculoVendaResponse{Vinculada: false, Erro: &msg}
	}
	return resp, nil
}

// ── Listar ────────────────────────────────────────────────────────────────────

func (s *movimentacaoService) Listar(ctx context.Context, empresaID, turnoID uuid.UUID, q dto.MovimentacoesQuery) (*dto.MovimentacaoListResponse, error) {
	if q.Tipo != "" && !model.TipoValido(q.Tipo) {
		return nil, domainerr.Newf(domainerr.KindEntradaInvalida, "tipo de movimentação inválido: %s", q.Tipo)
	}
	if _, err := s.repo.FindTurnoByID(ctx, empresaID, turnoID); err != nil {
		return nil, err
	}

	movs, err := s.repo.ListMovimentacoes(ctx, repository.MovimentacaoFilter{
		EmpresaID: empresaID,
		TurnoID:   &turnoID,
		Tipo:      q.Tipo,
	})
	if err != nil {
		return nil, err
	}

	loc := locationFrom(ctx, s.cfg.Location)
	resp := &dto.MovimentacaoListResponse{
		Data: make([]dto.MovimentacaoResponse, 0, len(movs)),
		Totais: dto.TotaisMovimentacao{
			Vendas:      decimal.Zero,
			Sangrias:    decimal.Zero,
			Suprimentos: decimal.Zero,
		},
	}
	for i := range movs {
		m := &movs[i]
		resp.Data = append(resp.Data, toMovimentacaoResponse(m, loc))
		switch m.Tipo {
		case model.TipoVenda:
			resp.Totais.Vendas = resp.Totais.Vendas.Add(m.Valor)
		case model.TipoSangria:
			resp.Totais.Sangrias = resp.Totais.Sangrias.Add(m.Valor)
		case model.TipoSuprimento:
			resp.Totais.Suprimentos = resp.Totais.Suprimentos.Add(m.Valor)
		}
	}
	return resp, nil
}
