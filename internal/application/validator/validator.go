// Package validator checks the structural consistency of fiscal documents and
// classifies the credits of entry documents.
package validator

import (
	"fmt"

	"auditorfiscal/datalake/internal/core/fiscal"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the accepted difference between a declared tax value and
// base × rate.
var DefaultTolerance = decimal.RequireFromString("0.02")

var hundred = decimal.NewFromInt(100)

// Options configures the value cross-check.
type Options struct {
	// DefaultTolerance applies to tax types without an override. When not valid,
	// the package DefaultTolerance is used; a valid zero demands exact values.
	DefaultTolerance decimal.NullDecimal
	Tolerances       map[fiscal.TaxType]decimal.Decimal
}

// ClassifiedTax is a tax line of an entry item with its credit classification.
type ClassifiedTax struct {
	ItemCode string `json:"item"`
	CFOP     string `json:"cfop"`
	fiscal.TaxLine
	Class fiscal.CreditClass `json:"classificacao"`
}

// Result is the validation outcome of one document. Findings never block
// persistence; Valid only reports whether a finding invalidated the document.
type Result struct {
	Valid         bool            `json:"valido"`
	AccessKey     string          `json:"chave_acesso"`
	Messages      []string        `json:"mensagens"`
	Creditable    []ClassifiedTax `json:"creditos_aproveitaveis"`
	NonCreditable []ClassifiedTax `json:"creditos_indevidos"`
	Review        []ClassifiedTax `json:"creditos_glosaveis"`
}

func (r *Result) invalidate(format string, args ...any) {
	r.Valid = false
	r.note(format, args...)
}

func (r *Result) note(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Validator holds no per-document state and is safe for concurrent use.
type Validator struct {
	defaultTolerance decimal.Decimal
	tolerances       map[fiscal.TaxType]decimal.Decimal
}

// New creates a Validator.
func New(opts Options) *Validator {
	v := &Validator{
		defaultTolerance: DefaultTolerance,
		tolerances:       make(map[fiscal.TaxType]decimal.Decimal, len(opts.Tolerances)),
	}
	if opts.DefaultTolerance.Valid {
		v.defaultTolerance = opts.DefaultTolerance.Decimal
	}
	for t, tol := range opts.Tolerances {
		v.tolerances[t] = tol
	}
	return v
}

// Tolerance returns the cross-check tolerance of a tax type.
func (v *Validator) Tolerance(t fiscal.TaxType) decimal.Decimal {
	if tol, ok := v.tolerances[t]; ok {
		return tol
	}
	return v.defaultTolerance
}

// Validate checks every item and tax line of doc.
func (v *Validator) Validate(doc fiscal.Document) Result {
	res := Result{
		Valid:         true,
		AccessKey:     doc.AccessKey,
		Messages:      []string{},
		Creditable:    []ClassifiedTax{},
		NonCreditable: []ClassifiedTax{},
		Review:        []ClassifiedTax{},
	}
	for _, item := range doc.Items {
		v.validateItem(doc.Movement, item, &res)
	}
	return res
}

func (v *Validator) validateItem(movement fiscal.Movement, item fiscal.Item, res *Result) {
	if n := len(item.NCM); n != 8 && n != 10 {
		res.invalidate("Item %s: NCM inválido (%s)", item.Code, item.NCM)
	}
	if len(item.CFOP) != 4 {
		res.invalidate("Item %s: CFOP inválido (%s)", item.Code, item.CFOP)
	}

	var first byte
	if item.CFOP != "" {
		first = item.CFOP[0]
	}
	switch movement {
	case fiscal.MovementEntry:
		if first != '1' && first != '2' && first != '3' {
			res.invalidate("Item %s: CFOP %s inconsistente com movimento de ENTRADA", item.Code, item.CFOP)
		}
	case fiscal.MovementExit:
		if first != '5' && first != '6' && first != '7' {
			res.invalidate("Item %s: CFOP %s inconsistente com movimento de SAÍDA", item.Code, item.CFOP)
		}
	}

	for _, line := range item.Taxes {
		v.validateTax(movement, item, line, res)
	}
}

func (v *Validator) validateTax(movement fiscal.Movement, item fiscal.Item, line fiscal.TaxLine, res *Result) {
	if line.CST != "" {
		switch line.Type {
		case fiscal.TaxICMS:
			if !ValidCST(line.CST, line.Type) {
				res.note("Item %s: CST/CSOSN de ICMS inválido (%s)", item.Code, line.CST)
			}
		case fiscal.TaxPIS, fiscal.TaxCOFINS:
			if !ValidCST(line.CST, line.Type) {
				res.note("Item %s: CST de %s inválido (%s)", item.Code, line.Type, line.CST)
			}
		}
	}

	if line.Base.IsNegative() {
		res.invalidate("Item %s: Base de cálculo negativa para %s", item.Code, line.Type)
	}

	if line.Rate.IsNegative() || line.Rate.GreaterThan(hundred) {
		res.note("Item %s: Alíquota suspeita para %s: %s%%", item.Code, line.Type, line.Rate)
	}

	if line.Base.IsPositive() && line.Rate.IsPositive() {
		expected := line.Base.Mul(line.Rate).Div(hundred).RoundBank(2)
		if line.Value.Sub(expected).Abs().GreaterThan(v.Tolerance(line.Type)) {
			res.note("Item %s: Valor de %s inconsistente. Calculado: %s, Informado: %s",
				item.Code, line.Type, expected.StringFixed(2), line.Value.StringFixed(2))
		}
	}

	if movement != fiscal.MovementEntry {
		return
	}
	class, ok := classify(item.CFOP, line)
	if !ok {
		return
	}
	ct := ClassifiedTax{ItemCode: item.Code, CFOP: item.CFOP, TaxLine: line, Class: class}
	switch class {
	case fiscal.CreditCreditable:
		res.Creditable = append(res.Creditable, ct)
	case fiscal.CreditNonCreditable:
		res.NonCreditable = append(res.NonCreditable, ct)
	case fiscal.CreditReview:
		res.Review = append(res.Review, ct)
	}
}
