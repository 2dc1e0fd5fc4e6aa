package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSaldoEsperado(t *testing.T) {
	turno := TurnoCaixa{
		ValorAbertura:    d("100.00"),
		ValorVendas:      d("50.00"),
		ValorSuprimentos: d("20.00"),
		ValorSangrias:    d("30.00"),
	}
	assert.True(t, turno.SaldoEsperado().Equal(d("140.00")), "got %s", turno.SaldoEsperado())
}

func TestSaldoEsperado_NoFloatDrift(t *testing.T) {
	turno := TurnoCaixa{ValorAbertura: decimal.Zero}
	for i := 0; i < 10; i++ {
		turno.ValorVendas = turno.ValorVendas.Add(d("0.10"))
	}
	assert.True(t, turno.SaldoEsperado().Equal(d("1.00")))
}

func TestSituacaoFechamento(t *testing.T) {
	assert.Equal(t, SituacaoConfere, SituacaoFechamento(decimal.Zero))
	assert.Equal(t, SituacaoSobra, SituacaoFechamento(d("0.01")))
	assert.Equal(t, SituacaoFalta, SituacaoFechamento(d("-10.00")))
}

func TestDeltaPara(t *testing.T) {
	v := DeltaPara(TipoVenda, d("12.50"))
	assert.True(t, v.Vendas.Equal(d("12.50")))
	assert.True(t, v.Sangrias.IsZero())
	assert.True(t, v.Suprimentos.IsZero())

	s := DeltaPara(TipoSangria, d("5"))
	assert.True(t, s.Sangrias.Equal(d("5")))
	assert.True(t, s.Vendas.IsZero())

	assert.True(t, DeltaPara(TipoSuprimento, d("7")).Suprimentos.Equal(d("7")))
}

func TestTipoValido(t *testing.T) {
	assert.True(t, TipoValido("sangria"))
	assert.False(t, TipoValido("estorno"))
}
