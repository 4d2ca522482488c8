package fiscal

import (
	"fmt"
	"strings"
)

// TaxType identifies a tax levied on a document item.
type TaxType string

const (
	TaxICMS   TaxType = "ICMS"
	TaxIPI    TaxType = "IPI"
	TaxPIS    TaxType = "PIS"
	TaxCOFINS TaxType = "COFINS"
	// TaxIBS and TaxCBS come from the consumption tax reform (EC 132/2023).
	TaxIBS TaxType = "IBS"
	TaxCBS TaxType = "CBS"
)

// AllTaxTypes returns every tax type in settlement order.
func AllTaxTypes() []TaxType {
	return []TaxType{TaxICMS, TaxIPI, TaxPIS, TaxCOFINS, TaxIBS, TaxCBS}
}

// ParseTaxType resolves a tax type name, ignoring case and surrounding spaces.
func ParseTaxType(value string) (TaxType, error) {
	t := TaxType(strings.ToUpper(strings.TrimSpace(value)))
	if !ValidateTaxType(t) {
		return "", fmt.Errorf("invalid tax type: %s", value)
	}
	return t, nil
}

// ValidateTaxType checks if the tax type is known.
func ValidateTaxType(t TaxType) bool {
	switch t {
	case TaxICMS, TaxIPI, TaxPIS, TaxCOFINS, TaxIBS, TaxCBS:
		return true
	default:
		return false
	}
}

// Movement is the direction of a document from the audited company's point of view.
type Movement string

const (
	MovementEntry Movement = "ENTRADA"
	MovementExit  Movement = "SAIDA"
)

// Status is the authorization situation derived from the protocol status code.
type Status string

const (
	StatusAuthorized Status = "Autorizada"
	StatusCancelled  Status = "Cancelada"
	StatusDenied     Status = "Denegada"
	StatusVoid       Status = "Inutilizada"
	StatusRejected   Status = "Rejeitada"
)

// Kind is the electronic document model.
type Kind string

const (
	KindNFe  Kind = "NF-e"
	KindNFCe Kind = "NFC-e"
	KindCTe  Kind = "CT-e"
)

// Model numbers as printed in the ide/mod field.
const (
	ModelNFe  = "55"
	ModelNFCe = "65"
	ModelCTe  = "57"
)

// CreditClass is the outcome of credit eligibility classification for one tax line.
type CreditClass string

const (
	// CreditCreditable means the credit may be taken.
	CreditCreditable CreditClass = "APROVEITAVEL"
	// CreditNonCreditable means the operation nature never grants credit.
	CreditNonCreditable CreditClass = "INDEVIDO"
	// CreditReview means the operation could grant credit but the situation code does not.
	CreditReview CreditClass = "GLOSAVEL"
)
