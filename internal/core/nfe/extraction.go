// Package nfe holds the nested structure extracted from NF-e, NFC-e and CT-e XML.
//
// Every XML group becomes an explicit value object. Optional groups are pointers
// and absent leaves are empty strings; numeric leaves stay as the raw text found
// in the document so coercion can be done, and reported, in one place.
package nfe

import "auditorfiscal/datalake/internal/core/fiscal"

// Extraction is the full nested content of one fiscal document.
type Extraction struct {
	Kind           fiscal.Kind
	AccessKey      string
	Version        string
	Identification Identification
	Issuer         Party
	Recipient      *Party
	Items          []Item
	Totals         Totals
	Transport      *Transport
	Billing        *Billing
	Payment        *Payment
	Intermediary   *Intermediary
	AdditionalInfo *AdditionalInfo
	Protocol       *Protocol

	// DocumentICMS carries the document level ICMS of a CT-e, which has no items.
	DocumentICMS *ICMS

	// Movement is resolved against the audited company CNPJ when one is configured.
	Movement fiscal.Movement

	SourcePath string
	RawXML     []byte
}

// Installments returns the billing installments, if any.
func (e *Extraction) Installments() []Installment {
	if e == nil || e.Billing == nil {
		return nil
	}
	return e.Billing.Installments
}

// StatusCode returns the protocol status code, or "" when the document has no protocol.
func (e *Extraction) StatusCode() string {
	if e == nil || e.Protocol == nil {
		return ""
	}
	return e.Protocol.StatusCode
}
