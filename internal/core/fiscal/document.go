package fiscal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxLine is one tax computed on an item: situation code, base, rate and value.
type TaxLine struct {
	Type  TaxType         `json:"tipo"`
	CST   string          `json:"cst,omitempty"`
	Base  decimal.Decimal `json:"base_calculo"`
	Rate  decimal.Decimal `json:"aliquota"`
	Value decimal.Decimal `json:"valor"`
}

// Item is an audited document line.
type Item struct {
	Number      int             `json:"numero_item"`
	Code        string          `json:"codigo"`
	Description string          `json:"descricao"`
	NCM         string          `json:"ncm"`
	CFOP        string          `json:"cfop"`
	Quantity    decimal.Decimal `json:"quantidade"`
	UnitValue   decimal.Decimal `json:"valor_unitario"`
	Total       decimal.Decimal `json:"valor_total"`
	Taxes       []TaxLine       `json:"tributos"`
}

// Document is the audit view of a fiscal document consumed by validation and settlement.
type Document struct {
	Kind          Kind            `json:"tipo"`
	AccessKey     string          `json:"chave"`
	Number        string          `json:"numero"`
	Series        string          `json:"serie"`
	IssuedAt      time.Time       `json:"data_emissao"`
	IssuerCNPJ    string          `json:"cnpj_emitente"`
	RecipientCNPJ string          `json:"cnpj_destinatario"`
	Movement      Movement        `json:"tipo_movimento"`
	Total         decimal.Decimal `json:"valor_total"`
	OperationType string          `json:"tp_nf,omitempty"`
	Items         []Item          `json:"items"`
}

// TaxesOf returns the item's lines of the given type.
func (i Item) TaxesOf(t TaxType) []TaxLine {
	var lines []TaxLine
	for _, line := range i.Taxes {
		if line.Type == t {
			lines = append(lines, line)
		}
	}
	return lines
}
