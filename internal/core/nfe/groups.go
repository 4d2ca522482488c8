package nfe

import "encoding/xml"

// Identification mirrors the ide group.
type Identification struct {
	StateCode             string `xml:"cUF"`
	NumericCode           string `xml:"cNF"`
	OperationNature       string `xml:"natOp"`
	Model                 string `xml:"mod"`
	Series                string `xml:"serie"`
	Number                string `xml:"nNF"`
	IssuedAt              string `xml:"dhEmi"`
	MovedAt               string `xml:"dhSaiEnt"`
	OperationType         string `xml:"tpNF"`
	Destination           string `xml:"idDest"`
	MunicipalityCode      string `xml:"cMunFG"`
	MunicipalityCodeIBS   string `xml:"cMunFGIBS"`
	PrintType             string `xml:"tpImp"`
	EmissionType          string `xml:"tpEmis"`
	CheckDigit            string `xml:"cDV"`
	Environment           string `xml:"tpAmb"`
	Purpose               string `xml:"finNFe"`
	FinalConsumer         string `xml:"indFinal"`
	Presence              string `xml:"indPres"`
	IntermediaryIndicator string `xml:"indIntermed"`
	EmissionProcess       string `xml:"procEmi"`
	ProcessVersion        string `xml:"verProc"`
	PaymentIndicator      string `xml:"indPag"`
}

// Address is shared by the issuer (enderEmit) and recipient (enderDest) groups.
type Address struct {
	Street           string `xml:"xLgr"`
	Number           string `xml:"nro"`
	Complement       string `xml:"xCpl"`
	District         string `xml:"xBairro"`
	MunicipalityCode string `xml:"cMun"`
	Municipality     string `xml:"xMun"`
	State            string `xml:"UF"`
	PostalCode       string `xml:"CEP"`
	Phone            string `xml:"fone"`
}

// Party is an issuer (emit) or recipient (dest).
type Party struct {
	CNPJ                string   `xml:"CNPJ"`
	CPF                 string   `xml:"CPF"`
	ForeignID           string   `xml:"idEstrangeiro"`
	Name                string   `xml:"xNome"`
	TradeName           string   `xml:"xFant"`
	StateRegistration   string   `xml:"IE"`
	CityRegistration    string   `xml:"IM"`
	CNAE                string   `xml:"CNAE"`
	TaxRegime           string   `xml:"CRT"`
	StateRegistrationID string   `xml:"indIEDest"`
	Email               string   `xml:"email"`
	IssuerAddress       *Address `xml:"enderEmit"`
	RecipientAddress    *Address `xml:"enderDest"`
}

// Address returns whichever address group the party carries.
func (p *Party) Address() *Address {
	if p == nil {
		return nil
	}
	if p.IssuerAddress != nil {
		return p.IssuerAddress
	}
	return p.RecipientAddress
}

// TaxID returns the CNPJ, or the CPF for individuals.
func (p *Party) TaxID() string {
	if p == nil {
		return ""
	}
	if p.CNPJ != "" {
		return p.CNPJ
	}
	return p.CPF
}

// ImportDeclaration mirrors prod/DI.
type ImportDeclaration struct {
	Number             string `xml:"nDI"`
	Date               string `xml:"dDI"`
	ClearancePlace     string `xml:"xLocDesemb"`
	ClearanceState     string `xml:"UFDesemb"`
	ClearanceDate      string `xml:"dDesemb"`
	TransportRoute     string `xml:"tpViaTransp"`
	AFRMM              string `xml:"vAFRMM"`
	IntermediationForm string `xml:"tpIntermedio"`
}

// Product mirrors det/prod.
type Product struct {
	Code                string              `xml:"cProd"`
	EAN                 string              `xml:"cEAN"`
	Description         string              `xml:"xProd"`
	NCM                 string              `xml:"NCM"`
	NVE                 string              `xml:"NVE"`
	CEST                string              `xml:"CEST"`
	RelevantScale       string              `xml:"indEscala"`
	ManufacturerCNPJ    string              `xml:"CNPJFab"`
	BenefitCode         string              `xml:"cBenef"`
	ExTIPI              string              `xml:"EXTIPI"`
	CFOP                string              `xml:"CFOP"`
	CommercialUnit      string              `xml:"uCom"`
	CommercialQuantity  string              `xml:"qCom"`
	CommercialUnitValue string              `xml:"vUnCom"`
	Total               string              `xml:"vProd"`
	TaxableEAN          string              `xml:"cEANTrib"`
	TaxableUnit         string              `xml:"uTrib"`
	TaxableQuantity     string              `xml:"qTrib"`
	TaxableUnitValue    string              `xml:"vUnTrib"`
	Freight             string              `xml:"vFrete"`
	Insurance           string              `xml:"vSeg"`
	Discount            string              `xml:"vDesc"`
	OtherExpenses       string              `xml:"vOutro"`
	TotalIndicator      string              `xml:"indTot"`
	ImportDeclarations  []ImportDeclaration `xml:"DI"`
}

// ICMSGroup is one of the mutually exclusive ICMS00..ICMS90 / ICMSSN101..ICMSSN900 groups.
type ICMSGroup struct {
	XMLName         xml.Name
	Origin          string `xml:"orig"`
	CST             string `xml:"CST"`
	CSOSN           string `xml:"CSOSN"`
	BaseModality    string `xml:"modBC"`
	Base            string `xml:"vBC"`
	BaseReduction   string `xml:"pRedBC"`
	Rate            string `xml:"pICMS"`
	Value           string `xml:"vICMS"`
	Exempted        string `xml:"vICMSDeson"`
	ExemptionReason string `xml:"motDesICMS"`
	STBaseModality  string `xml:"modBCST"`
	STMarkup        string `xml:"pMVAST"`
	STBaseReduction string `xml:"pRedBCST"`
	STBase          string `xml:"vBCST"`
	STRate          string `xml:"pICMSST"`
	STValue         string `xml:"vICMSST"`
	FCPBase         string `xml:"vBCFCP"`
	FCPRate         string `xml:"pFCP"`
	FCPValue        string `xml:"vFCP"`
	FCPSTBase       string `xml:"vBCFCPST"`
	FCPSTRate       string `xml:"pFCPST"`
	FCPSTValue      string `xml:"vFCPST"`
	MonoQuantity    string `xml:"qBCMono"`
	MonoValue       string `xml:"vICMSMono"`
}

// SituationCode returns the CST, or the CSOSN for Simples Nacional issuers.
func (g *ICMSGroup) SituationCode() string {
	if g == nil {
		return ""
	}
	if g.CST != "" {
		return g.CST
	}
	return g.CSOSN
}

// ICMS holds whatever ICMS group the item declares.
type ICMS struct {
	Groups []ICMSGroup `xml:",any"`
}

// Active returns the declared ICMS group, or nil.
func (i *ICMS) Active() *ICMSGroup {
	if i == nil || len(i.Groups) == 0 {
		return nil
	}
	return &i.Groups[0]
}

// IPITaxed mirrors IPI/IPITrib.
type IPITaxed struct {
	CST   string `xml:"CST"`
	Base  string `xml:"vBC"`
	Rate  string `xml:"pIPI"`
	Value string `xml:"vIPI"`
}

// IPI mirrors the IPI group.
type IPI struct {
	FrameworkClass string    `xml:"clEnq"`
	ProducerCNPJ   string    `xml:"CNPJProd"`
	SealCode       string    `xml:"cSelo"`
	SealQuantity   string    `xml:"qSelo"`
	FrameworkCode  string    `xml:"cEnq"`
	Taxed          *IPITaxed `xml:"IPITrib"`
	NotTaxedCST    string    `xml:"IPINT>CST"`
}

// CST returns the situation code of whichever IPI subgroup is present.
func (i *IPI) CST() string {
	if i == nil {
		return ""
	}
	if i.Taxed != nil {
		return i.Taxed.CST
	}
	return i.NotTaxedCST
}

// PISGroup is one of PISAliq, PISQtde, PISNT or PISOutr.
type PISGroup struct {
	XMLName      xml.Name
	CST          string `xml:"CST"`
	Base         string `xml:"vBC"`
	Rate         string `xml:"pPIS"`
	Value        string `xml:"vPIS"`
	QuantitySold string `xml:"qBCProd"`
	RateInReais  string `xml:"vAliqProd"`
}

// PIS holds whatever PIS group the item declares.
type PIS struct {
	Groups []PISGroup `xml:",any"`
}

// Active returns the declared PIS group, or nil.
func (p *PIS) Active() *PISGroup {
	if p == nil || len(p.Groups) == 0 {
		return nil
	}
	return &p.Groups[0]
}

// COFINSGroup is one of COFINSAliq, COFINSQtde, COFINSNT or COFINSOutr.
type COFINSGroup struct {
	XMLName      xml.Name
	CST          string `xml:"CST"`
	Base         string `xml:"vBC"`
	Rate         string `xml:"pCOFINS"`
	Value        string `xml:"vCOFINS"`
	QuantitySold string `xml:"qBCProd"`
	RateInReais  string `xml:"vAliqProd"`
}

// COFINS holds whatever COFINS group the item declares.
type COFINS struct {
	Groups []COFINSGroup `xml:",any"`
}

// Active returns the declared COFINS group, or nil.
func (c *COFINS) Active() *COFINSGroup {
	if c == nil || len(c.Groups) == 0 {
		return nil
	}
	return &c.Groups[0]
}

// IBSCBSValues mirrors IBSCBS/gIBSCBS.
type IBSCBSValues struct {
	Base       string `xml:"vBC"`
	StateRate  string `xml:"gIBSUF>pIBSUF"`
	StateValue string `xml:"gIBSUF>vIBSUF"`
	CityRate   string `xml:"gIBSMun>pIBSMun"`
	CityValue  string `xml:"gIBSMun>vIBSMun"`
	IBSValue   string `xml:"vIBS"`
	CBSRate    string `xml:"gCBS>pCBS"`
	CBSValue   string `xml:"gCBS>vCBS"`
}

// IBSCBS mirrors the reform tax group.
type IBSCBS struct {
	CST            string        `xml:"CST"`
	Classification string        `xml:"cClassTrib"`
	Values         *IBSCBSValues `xml:"gIBSCBS"`
}

// Taxes mirrors det/imposto.
type Taxes struct {
	ApproximateTotal string  `xml:"vTotTrib"`
	ICMS             *ICMS   `xml:"ICMS"`
	IPI              *IPI    `xml:"IPI"`
	PIS              *PIS    `xml:"PIS"`
	COFINS           *COFINS `xml:"COFINS"`
	IBSCBS           *IBSCBS `xml:"IBSCBS"`
}

// Item mirrors one det group.
type Item struct {
	Number         string  `xml:"nItem,attr"`
	Product        Product `xml:"prod"`
	Taxes          Taxes   `xml:"imposto"`
	AdditionalInfo string  `xml:"infAdProd"`
}

// ICMSTotals mirrors total/ICMSTot.
type ICMSTotals struct {
	ICMSBase       string `xml:"vBC"`
	ICMSValue      string `xml:"vICMS"`
	ICMSExempted   string `xml:"vICMSDeson"`
	FCPValue       string `xml:"vFCP"`
	STBase         string `xml:"vBCST"`
	STValue        string `xml:"vST"`
	FCPSTValue     string `xml:"vFCPST"`
	FCPSTWithheld  string `xml:"vFCPSTRet"`
	MonoQuantity   string `xml:"qBCMono"`
	MonoValue      string `xml:"vICMSMono"`
	Products       string `xml:"vProd"`
	Freight        string `xml:"vFrete"`
	Insurance      string `xml:"vSeg"`
	Discount       string `xml:"vDesc"`
	ImportTax      string `xml:"vII"`
	IPIValue       string `xml:"vIPI"`
	IPIReturned    string `xml:"vIPIDevol"`
	PISValue       string `xml:"vPIS"`
	COFINSValue    string `xml:"vCOFINS"`
	OtherExpenses  string `xml:"vOutro"`
	DocumentTotal  string `xml:"vNF"`
	ApproximateTax string `xml:"vTotTrib"`
}

// IBSCBSTotals mirrors total/IBSCBSTot.
type IBSCBSTotals struct {
	Base     string `xml:"vBCIBSCBS"`
	IBSValue string `xml:"gIBS>vIBS"`
	CBSValue string `xml:"gCBS>vCBS"`
}

// Totals mirrors the total group.
type Totals struct {
	ICMS   ICMSTotals    `xml:"ICMSTot"`
	IBSCBS *IBSCBSTotals `xml:"IBSCBSTot"`
}

// Carrier mirrors transp/transporta.
type Carrier struct {
	CNPJ              string `xml:"CNPJ"`
	CPF               string `xml:"CPF"`
	Name              string `xml:"xNome"`
	StateRegistration string `xml:"IE"`
	Address           string `xml:"xEnder"`
	Municipality      string `xml:"xMun"`
	State             string `xml:"UF"`
}

// Vehicle mirrors transp/veicTransp.
type Vehicle struct {
	Plate string `xml:"placa"`
	State string `xml:"UF"`
	RNTC  string `xml:"RNTC"`
}

// Volume mirrors transp/vol.
type Volume struct {
	Quantity    string `xml:"qVol"`
	Kind        string `xml:"esp"`
	Brand       string `xml:"marca"`
	Numbering   string `xml:"nVol"`
	NetWeight   string `xml:"pesoL"`
	GrossWeight string `xml:"pesoB"`
}

// Transport mirrors the transp group.
type Transport struct {
	FreightMode string   `xml:"modFrete"`
	Carrier     *Carrier `xml:"transporta"`
	Vehicle     *Vehicle `xml:"veicTransp"`
	Volumes     []Volume `xml:"vol"`
}

// Invoice mirrors cobr/fat.
type Invoice struct {
	Number   string `xml:"nFat"`
	Original string `xml:"vOrig"`
	Discount string `xml:"vDesc"`
	Net      string `xml:"vLiq"`
}

// Installment mirrors cobr/dup.
type Installment struct {
	Number  string `xml:"nDup"`
	DueDate string `xml:"dVenc"`
	Value   string `xml:"vDup"`
}

// Billing mirrors the cobr group.
type Billing struct {
	Invoice      *Invoice      `xml:"fat"`
	Installments []Installment `xml:"dup"`
}

// Card mirrors pag/detPag/card.
type Card struct {
	IntegrationType string `xml:"tpIntegra"`
	AcquirerCNPJ    string `xml:"CNPJ"`
	Brand           string `xml:"tBand"`
	Authorization   string `xml:"cAut"`
}

// PaymentDetail mirrors pag/detPag.
type PaymentDetail struct {
	Indicator string `xml:"indPag"`
	Method    string `xml:"tPag"`
	Value     string `xml:"vPag"`
	Card      *Card  `xml:"card"`
}

// Payment mirrors the pag group.
type Payment struct {
	Details []PaymentDetail `xml:"detPag"`
	Change  string          `xml:"vTroco"`
}

// First returns the first payment detail, or nil.
func (p *Payment) First() *PaymentDetail {
	if p == nil || len(p.Details) == 0 {
		return nil
	}
	return &p.Details[0]
}

// Intermediary mirrors infIntermed.
type Intermediary struct {
	CNPJ         string `xml:"CNPJ"`
	RegisteredID string `xml:"idCadIntTran"`
}

// AdditionalInfo mirrors infAdic.
type AdditionalInfo struct {
	TaxAuthority  string `xml:"infAdFisco"`
	Complementary string `xml:"infCpl"`
}

// Protocol mirrors protNFe/infProt (or protCTe/infProt).
type Protocol struct {
	Environment string `xml:"tpAmb"`
	AppVersion  string `xml:"verAplic"`
	NFeKey      string `xml:"chNFe"`
	CTeKey      string `xml:"chCTe"`
	ReceivedAt  string `xml:"dhRecbto"`
	Number      string `xml:"nProt"`
	DigestValue string `xml:"digVal"`
	StatusCode  string `xml:"cStat"`
	Reason      string `xml:"xMotivo"`
}
