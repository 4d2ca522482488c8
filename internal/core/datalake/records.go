// Package datalake defines the persistence-ready records of the fiscal datalake.
//
// Text columns use the empty string for "absent"; adapters store it as NULL.
// Numeric and date columns are nullable so a malformed source value never turns
// into a fabricated zero.
package datalake

import (
	"time"

	"auditorfiscal/datalake/internal/core/fiscal"

	"github.com/shopspring/decimal"
)

// Address holds the flattened address columns of a party.
type Address struct {
	Street           string
	Number           string
	Complement       string
	District         string
	MunicipalityCode string
	Municipality     string
	State            string
	PostalCode       string
	Phone            string
}

// Party holds the issuer or recipient columns.
type Party struct {
	CNPJ                string
	CPF                 string
	Name                string
	TradeName           string
	StateRegistration   string
	CityRegistration    string
	CNAE                string
	TaxRegime           string
	Email               string
	StateRegistrationID string
	Address             Address
}

// Totals holds the document totals.
type Totals struct {
	Products         decimal.NullDecimal
	Freight          decimal.NullDecimal
	Insurance        decimal.NullDecimal
	Discount         decimal.NullDecimal
	OtherExpenses    decimal.NullDecimal
	IPI              decimal.NullDecimal
	Document         decimal.NullDecimal
	ICMSBase         decimal.NullDecimal
	ICMS             decimal.NullDecimal
	ICMSExempted     decimal.NullDecimal
	ICMSSTBase       decimal.NullDecimal
	ICMSST           decimal.NullDecimal
	FCP              decimal.NullDecimal
	FCPST            decimal.NullDecimal
	FCPSTWithheld    decimal.NullDecimal
	PIS              decimal.NullDecimal
	COFINS           decimal.NullDecimal
	IBSCBSBase       decimal.NullDecimal
	IBS              decimal.NullDecimal
	CBS              decimal.NullDecimal
	ICMSMonoQuantity decimal.NullDecimal
	ICMSMono         decimal.NullDecimal
	ApproximateTaxes decimal.NullDecimal
}

// Transport holds the carrier, vehicle and first volume columns.
type Transport struct {
	FreightMode         string
	CarrierCNPJ         string
	CarrierCPF          string
	CarrierName         string
	CarrierRegistration string
	CarrierAddress      string
	CarrierMunicipality string
	CarrierState        string
	VehiclePlate        string
	VehicleState        string
	VehicleRNTC         string
	VolumeQuantity      *int
	VolumeKind          string
	VolumeBrand         string
	VolumeNumbering     string
	NetWeight           decimal.NullDecimal
	GrossWeight         decimal.NullDecimal
}

// Payment holds the payment, intermediary and invoice (fatura) columns.
type Payment struct {
	Indicator        string
	Method           string
	Value            decimal.NullDecimal
	IntegrationType  string
	InstitutionCNPJ  string
	IntermediaryCNPJ string
	IntermediaryID   string
	InvoiceNumber    string
	InvoiceOriginal  decimal.NullDecimal
	InvoiceDiscount  decimal.NullDecimal
	InvoiceNet       decimal.NullDecimal
}

// Document is one row of the nfe table.
type Document struct {
	ID                    int64
	AccessKey             string
	Kind                  fiscal.Kind
	Number                string
	Series                string
	Model                 string
	EmissionType          string
	OperationType         string
	Movement              fiscal.Movement
	Purpose               string
	OperationNature       string
	FinalConsumer         string
	Presence              string
	IntermediaryIndicator string
	EmissionProcess       string
	ProcessVersion        string
	MunicipalityCodeIBS   string

	IssuedAt     *time.Time
	MovedAt      *time.Time
	AuthorizedAt *time.Time
	ProcessedAt  time.Time

	Status         *fiscal.Status
	StatusCode     string
	StatusReason   string
	ProtocolNumber string

	Issuer    Party
	Recipient Party
	Totals    Totals
	Transport Transport
	Payment   Payment

	TaxAuthorityInfo  string
	ComplementaryInfo string

	// RawXML is the original body kept for reprocessing.
	RawXML string
}

// ICMS holds the ICMS, ICMS-ST and FCP columns of an item.
type ICMS struct {
	Origin          string
	CST             string
	BaseModality    string
	Base            decimal.NullDecimal
	Rate            decimal.NullDecimal
	Value           decimal.NullDecimal
	BaseReduction   decimal.NullDecimal
	Exempted        decimal.NullDecimal
	ExemptionReason string
	STBaseModality  string
	STMarkup        decimal.NullDecimal
	STBaseReduction decimal.NullDecimal
	STBase          decimal.NullDecimal
	STRate          decimal.NullDecimal
	STValue         decimal.NullDecimal
	FCPBase         decimal.NullDecimal
	FCPRate         decimal.NullDecimal
	FCPValue        decimal.NullDecimal
	FCPSTBase       decimal.NullDecimal
	FCPSTRate       decimal.NullDecimal
	FCPSTValue      decimal.NullDecimal
	MonoQuantity    decimal.NullDecimal
	MonoValue       decimal.NullDecimal
}

// IPI holds the IPI columns of an item.
type IPI struct {
	CST            string
	FrameworkClass string
	FrameworkCode  string
	ProducerCNPJ   string
	SealCode       string
	SealQuantity   *int
	Base           decimal.NullDecimal
	Rate           decimal.NullDecimal
	Value          decimal.NullDecimal
}

// Contribution holds the PIS or COFINS columns of an item.
type Contribution struct {
	CST          string
	Base         decimal.NullDecimal
	Rate         decimal.NullDecimal
	Value        decimal.NullDecimal
	QuantitySold decimal.NullDecimal
	RateInReais  decimal.NullDecimal
}

// ReformTaxes holds the IBS and CBS columns of an item.
type ReformTaxes struct {
	CST            string
	Classification string
	Base           decimal.NullDecimal
	StateRate      decimal.NullDecimal
	StateValue     decimal.NullDecimal
	CityRate       decimal.NullDecimal
	CityValue      decimal.NullDecimal
	IBSValue       decimal.NullDecimal
	CBSRate        decimal.NullDecimal
	CBSValue       decimal.NullDecimal
}

// Import holds the first import declaration (DI) of an item.
type Import struct {
	Number             string
	Date               *time.Time
	ClearancePlace     string
	ClearanceState     string
	ClearanceDate      *time.Time
	TransportRoute     string
	AFRMM              decimal.NullDecimal
	IntermediationForm string
}

// Item is one row of the nfe_item table. Number is unique within a document.
type Item struct {
	ID                  int64
	DocumentID          int64
	Number              *int
	Code                string
	EAN                 string
	TaxableEAN          string
	Description         string
	NCM                 string
	NVE                 string
	CEST                string
	ExTIPI              string
	CFOP                string
	BenefitCode         string
	RelevantScale       string
	ManufacturerCNPJ    string
	CommercialUnit      string
	CommercialQuantity  decimal.NullDecimal
	CommercialUnitValue decimal.NullDecimal
	TaxableUnit         string
	TaxableQuantity     decimal.NullDecimal
	TaxableUnitValue    decimal.NullDecimal
	Freight             decimal.NullDecimal
	Insurance           decimal.NullDecimal
	Discount            decimal.NullDecimal
	OtherExpenses       decimal.NullDecimal
	Total               decimal.NullDecimal
	TotalIndicator      string
	ApproximateTaxes    decimal.NullDecimal

	ICMS   ICMS
	IPI    IPI
	PIS    Contribution
	COFINS Contribution
	Reform ReformTaxes
	Import Import

	AdditionalInfo string
}

// Installment is one row of the nfe_duplicata table.
type Installment struct {
	ID         int64
	DocumentID int64
	Number     string
	DueDate    *time.Time
	Value      decimal.NullDecimal
}

// Record is everything persisted for one source document.
type Record struct {
	Document     Document
	Items        []Item
	Installments []Installment
}

// RawDocument is a stored document body, used for reprocessing.
type RawDocument struct {
	ID        int64
	AccessKey string
	RawXML    string
}
