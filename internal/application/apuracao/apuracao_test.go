package apuracao

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"auditorfiscal/datalake/internal/core/fiscal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func doc(number string, movement fiscal.Movement, lines ...fiscal.TaxLine) fiscal.Document {
	return fiscal.Document{
		Kind:     fiscal.KindNFe,
		Number:   number,
		Movement: movement,
		Items:    []fiscal.Item{{Number: 1, Code: "P" + number, CFOP: "5101", Taxes: lines}},
	}
}

func line(t fiscal.TaxType, value string) fiscal.TaxLine {
	return fiscal.TaxLine{Type: t, Value: d(value)}
}

func fixedApurador() *Apurador {
	a := New()
	a.now = func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC) }
	return a
}

func TestApurar_DebitsMinusCredits(t *testing.T) {
	a := fixedApurador()
	a.Add(
		doc("1", fiscal.MovementExit, line(fiscal.TaxICMS, "180.00")),
		doc("2", fiscal.MovementEntry, line(fiscal.TaxICMS, "90.00")),
	)

	m := a.Apurar("01/2024")

	assert.Equal(t, "01/2024", m.Period)
	require.Len(t, m.Settlements, 1)
	s := m.Settlements[0]
	assert.Equal(t, fiscal.TaxICMS, s.Type)
	assert.Equal(t, "180.00", s.Debits.StringFixed(2))
	assert.Equal(t, "90.00", s.Credits.StringFixed(2))
	assert.Equal(t, "90.00", s.Balance.StringFixed(2))

	assert.Equal(t, "Apuração de ICMS", s.Trace.Description)
	assert.Equal(t, Formula, s.Trace.Formula)
	assert.True(t, s.Balance.Equal(s.Trace.Result))
	assert.Equal(t, 1, s.Trace.Values.DebitCount)
	assert.Equal(t, 1, s.Trace.Values.CreditCount)
	assert.Equal(t, []Contribution{{Document: "1", Item: "P1", Value: d("180.00")}}, s.Trace.Values.DebitSample)
}

func TestApurar_FixedOrderAndOmission(t *testing.T) {
	a := fixedApurador()
	a.Add(
		doc("1", fiscal.MovementExit, line(fiscal.TaxCOFINS, "7.60"), line(fiscal.TaxICMS, "18")),
		doc("2", fiscal.MovementEntry, line(fiscal.TaxCBS, "0.90"), line(fiscal.TaxPIS, "1.65")),
	)

	m := a.Apurar("02/2024")

	var order []fiscal.TaxType
	for _, s := range m.Settlements {
		order = append(order, s.Type)
	}
	assert.Equal(t, []fiscal.TaxType{fiscal.TaxICMS, fiscal.TaxPIS, fiscal.TaxCOFINS, fiscal.TaxCBS}, order)

	_, ok := m.Find(fiscal.TaxIPI)
	assert.False(t, ok)
	pis, ok := m.Find(fiscal.TaxPIS)
	require.True(t, ok)
	assert.Equal(t, "-1.65", pis.Balance.String())
}

func TestApurar_ZeroValuedLineStillCounts(t *testing.T) {
	a := fixedApurador()
	a.Add(doc("1", fiscal.MovementExit, line(fiscal.TaxIPI, "0")))

	_, ok := a.Apurar("03/2024").Find(fiscal.TaxIPI)
	assert.True(t, ok)
}

func TestApurar_Empty(t *testing.T) {
	m := fixedApurador().Apurar("01/2024")
	assert.Empty(t, m.Settlements)
	assert.NotNil(t, m.Settlements)
}

func TestApurar_SampleIsCappedButTotalsAreExact(t *testing.T) {
	a := fixedApurador()
	for i := 1; i <= 25; i++ {
		a.Add(doc(fmt.Sprint(i), fiscal.MovementExit, line(fiscal.TaxICMS, "1.10")))
	}

	s, ok := a.Apurar("01/2024").Find(fiscal.TaxICMS)
	require.True(t, ok)

	assert.Len(t, s.Trace.Values.DebitSample, SampleSize)
	assert.Equal(t, 25, s.Trace.Values.DebitCount)
	assert.Equal(t, "27.50", s.Debits.StringFixed(2))
	assert.Equal(t, "1", s.Trace.Values.DebitSample[0].Document)
	assert.Equal(t, "10", s.Trace.Values.DebitSample[9].Document)
	assert.Empty(t, s.Trace.Values.CreditSample)
}

func TestHelpers(t *testing.T) {
	a := fixedApurador()
	a.Add(
		doc("1", fiscal.MovementExit, line(fiscal.TaxICMS, "100"), line(fiscal.TaxICMS, "20")),
		doc("2", fiscal.MovementEntry, line(fiscal.TaxICMS, "150")),
		doc("3", fiscal.MovementEntry, line(fiscal.TaxIPI, "5")),
	)

	assert.True(t, d("120").Equal(a.TotalDebits(fiscal.TaxICMS)))
	assert.True(t, d("150").Equal(a.TotalCredits(fiscal.TaxICMS)))
	assert.True(t, a.TotalDebits(fiscal.TaxPIS).IsZero())

	b := a.PeriodBalance(fiscal.TaxICMS)
	assert.Equal(t, "-30", b.Balance.String())

	assert.Len(t, a.DocumentsByMovement(fiscal.MovementEntry), 2)
	assert.Len(t, a.DocumentsByMovement(fiscal.MovementExit), 1)
	assert.Equal(t, 3, a.Len())

	a.Reset()
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Apurar("01/2024").Settlements)
}

func TestMap_JSONKeepsDecimalsAsStrings(t *testing.T) {
	a := fixedApurador()
	a.Add(
		doc("1", fiscal.MovementExit, line(fiscal.TaxICMS, "180.00")),
		doc("2", fiscal.MovementEntry, line(fiscal.TaxICMS, "90.00")),
	)

	raw, err := json.Marshal(a.Apurar("01/2024"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "01/2024", decoded["periodo"])
	assert.Equal(t, "2024-02-01T10:00:00Z", decoded["data_geracao"])

	settlements := decoded["apuracoes"].([]any)
	require.Len(t, settlements, 1)
	icms := settlements[0].(map[string]any)
	assert.Equal(t, "ICMS", icms["tipo"])
	assert.Equal(t, "180", icms["debitos"])
	assert.Equal(t, "90", icms["creditos"])
	assert.Equal(t, "90", icms["saldo"])

	trace := icms["memoria_calculo"].(map[string]any)
	values := trace["valores"].(map[string]any)
	assert.Equal(t, "180", values["debitos_saida"])
	assert.Equal(t, float64(1), values["num_documentos_credito"])
}

func TestApurador_ConcurrentAdd(t *testing.T) {
	a := fixedApurador()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Add(doc("1", fiscal.MovementExit, line(fiscal.TaxICMS, "2")))
			_ = a.Apurar("01/2024")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, a.Len())
	assert.True(t, d("100").Equal(a.TotalDebits(fiscal.TaxICMS)))
}
