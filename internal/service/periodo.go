package service

import (
	"time"

	"oficinapro/internal/domainerr"
)

// Reporting windows.
const (
	PeriodoHoje          = "hoje"
	PeriodoSemana        = "semana"
	PeriodoMes           = "mes"
	PeriodoPersonalizado = "personalizado"
)

const diaLayout = "2006-01-02"

func inicioDoDia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func fimDoDia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func parseDia(raw string, loc *time.Location) (time.Time, error) {
	dia, err := time.ParseInLocation(diaLayout, raw, loc)
	if err != nil {
		return time.Time{}, domainerr.Newf(domainerr.KindEntradaInvalida, "data inválida: %s", raw)
	}
	return dia, nil
}

// JanelaPeriodo returns the inclusive [inicio, fim] bounds of a reporting
// window, computed on the calendar of loc and returned in UTC.
//
//	hoje          today 00:00:00.000 – 23:59:59.999
//	semana        last Sunday 00:00 – today 23:59:59.999
//	mes           1st of the month 00:00 – last day 23:59:59.999
//	personalizado inicio 00:00 – fim 23:59:59.999 (YYYY-MM-DD, inicio <= fim)
func JanelaPeriodo(periodo string, agora time.Time, loc *time.Location, inicio, fim string) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := agora.In(loc)

	var de, ate time.Time
	switch periodo {
	case PeriodoHoje, "":
		de, ate = inicioDoDia(local), fimDoDia(local)
	case PeriodoSemana:
		domingo := local.AddDate(0, 0, -int(local.Weekday()))
		de, ate = inicioDoDia(domingo), fimDoDia(local)
	case PeriodoMes:
		primeiro := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		de, ate = primeiro, fimDoDia(primeiro.AddDate(0, 1, -1))
	case PeriodoPersonalizado:
		if inicio == "" || fim == "" {
			return time.Time{}, time.Time{}, domainerr.New(domainerr.KindEntradaInvalida, "período personalizado exige início e fim")
		}
		di, err := parseDia(inicio, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		df, err := parseDia(fim, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if df.Before(di) {
			return time.Time{}, time.Time{}, domainerr.New(domainerr.KindEntradaInvalida, "data inicial posterior à data final")
		}
		de, ate = inicioDoDia(di), fimDoDia(df)
	default:
		return time.Time{}, time.Time{}, domainerr.Newf(domainerr.KindEntradaInvalida, "período desconhecido: %s", periodo)
	}
	return de.UTC(), ate.UTC(), nil
}
