// Package apuracao settles the taxes of a period: debits from exit documents are
// offset by credits from entry documents, tax by tax, with a calculation trace.
package apuracao

import (
	"sync"
	"time"

	"auditorfiscal/datalake/internal/core/fiscal"

	"github.com/shopspring/decimal"
)

// Formula is the settlement rule recorded in every trace.
const Formula = "Saldo = Débitos de Saída - Créditos de Entrada"

// SampleSize caps the contributions listed per side in a trace. Totals always
// include every contribution.
const SampleSize = 10

// Contribution is one tax line that entered a total.
type Contribution struct {
	Document string          `json:"documento"`
	Item     string          `json:"item"`
	Value    decimal.Decimal `json:"valor"`
}

// TraceValues are the inputs of a settlement.
type TraceValues struct {
	Debits       decimal.Decimal `json:"debitos_saida"`
	Credits      decimal.Decimal `json:"creditos_entrada"`
	DebitCount   int             `json:"num_documentos_debito"`
	CreditCount  int             `json:"num_documentos_credito"`
	DebitSample  []Contribution  `json:"documentos_debito"`
	CreditSample []Contribution  `json:"documentos_credito"`
}

// Trace documents how a balance was reached.
type Trace struct {
	Description string          `json:"descricao"`
	Values      TraceValues     `json:"valores"`
	Formula     string          `json:"formula"`
	Result      decimal.Decimal `json:"resultado"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Settlement is the period result of one tax type. A negative balance is a
// credit carried forward.
type Settlement struct {
	Type    fiscal.TaxType  `json:"tipo"`
	Debits  decimal.Decimal `json:"debitos"`
	Credits decimal.Decimal `json:"creditos"`
	Balance decimal.Decimal `json:"saldo"`
	Trace   Trace           `json:"memoria_calculo"`
}

// Map is the settlement report of a period.
type Map struct {
	Period      string       `json:"periodo"`
	Settlements []Settlement `json:"apuracoes"`
	GeneratedAt time.Time    `json:"data_geracao"`
}

// Find returns the settlement of a tax type, if it had any activity.
func (m Map) Find(t fiscal.TaxType) (Settlement, bool) {
	for _, s := range m.Settlements {
		if s.Type == t {
			return s, true
		}
	}
	return Settlement{}, false
}

// Balance is the debit, credit and net position of one tax type.
type Balance struct {
	Debits  decimal.Decimal `json:"debitos"`
	Credits decimal.Decimal `json:"creditos"`
	Balance decimal.Decimal `json:"saldo"`
}

// Apurador accumulates documents and settles them. It is safe for concurrent use.
type Apurador struct {
	mu   sync.RWMutex
	docs []fiscal.Document
	now  func() time.Time
}

// New creates an empty Apurador.
func New() *Apurador {
	return &Apurador{now: time.Now}
}

// Add accumulates documents for the next settlement.
func (a *Apurador) Add(docs ...fiscal.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = append(a.docs, docs...)
}

// Len returns the number of accumulated documents.
func (a *Apurador) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.docs)
}

// Reset discards every accumulated document.
func (a *Apurador) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = nil
}

// Apurar settles every tax type in fixed order. Tax types without any
// contributing line are left out of the map.
func (a *Apurador) Apurar(period string) Map {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()
	m := Map{Period: period, Settlements: []Settlement{}, GeneratedAt: now}
	for _, t := range fiscal.AllTaxTypes() {
		if s, ok := a.settle(t, now); ok {
			m.Settlements = append(m.Settlements, s)
		}
	}
	return m
}

func (a *Apurador) settle(t fiscal.TaxType, now time.Time) (Settlement, bool) {
	values := TraceValues{
		Debits:       decimal.Zero,
		Credits:      decimal.Zero,
		DebitSample:  []Contribution{},
		CreditSample: []Contribution{},
	}

	for _, doc := range a.docs {
		for _, item := range doc.Items {
			for _, line := range item.TaxesOf(t) {
				c := Contribution{Document: doc.Number, Item: item.Code, Value: line.Value}
				switch doc.Movement {
				case fiscal.MovementExit:
					values.Debits = values.Debits.Add(line.Value)
					values.DebitCount++
					if len(values.DebitSample) < SampleSize {
						values.DebitSample = append(values.DebitSample, c)
					}
				case fiscal.MovementEntry:
					values.Credits = values.Credits.Add(line.Value)
					values.CreditCount++
					if len(values.CreditSample) < SampleSize {
						values.CreditSample = append(values.CreditSample, c)
					}
				}
			}
		}
	}

	if values.DebitCount == 0 && values.CreditCount == 0 {
		return Settlement{}, false
	}

	balance := values.Debits.Sub(values.Credits)
	return Settlement{
		Type:    t,
		Debits:  values.Debits,
		Credits: values.Credits,
		Balance: balance,
		Trace: Trace{
			Description: "Apuração de " + string(t),
			Values:      values,
			Formula:     Formula,
			Result:      balance,
			Timestamp:   now,
		},
	}, true
}

// TotalDebits sums the lines of t on exit documents.
func (a *Apurador) TotalDebits(t fiscal.TaxType) decimal.Decimal {
	return a.total(t, fiscal.MovementExit)
}

// TotalCredits sums the lines of t on entry documents.
func (a *Apurador) TotalCredits(t fiscal.TaxType) decimal.Decimal {
	return a.total(t, fiscal.MovementEntry)
}

func (a *Apurador) total(t fiscal.TaxType, m fiscal.Movement) decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := decimal.Zero
	for _, doc := range a.docs {
		if doc.Movement != m {
			continue
		}
		for _, item := range doc.Items {
			for _, line := range item.TaxesOf(t) {
				total = total.Add(line.Value)
			}
		}
	}
	return total
}

// DocumentsByMovement returns the accumulated documents of one direction.
func (a *Apurador) DocumentsByMovement(m fiscal.Movement) []fiscal.Document {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var docs []fiscal.Document
	for _, doc := range a.docs {
		if doc.Movement == m {
			docs = append(docs, doc)
		}
	}
	return docs
}

// PeriodBalance returns the totals and net position of t.
func (a *Apurador) PeriodBalance(t fiscal.TaxType) Balance {
	debits := a.TotalDebits(t)
	credits := a.TotalCredits(t)
	return Balance{Debits: debits, Credits: credits, Balance: debits.Sub(credits)}
}
