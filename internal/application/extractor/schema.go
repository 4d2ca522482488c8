package extractor

import "auditorfiscal/datalake/internal/core/nfe"

// Document envelopes. Field tags carry no namespace so both the
// http://www.portalfiscal.inf.br/nfe and .../cte namespaces (or none) decode.

type nfeProc struct {
	NFe      nfeDocument   `xml:"NFe"`
	Protocol *nfe.Protocol `xml:"protNFe>infProt"`
}

type nfeDocument struct {
	Inf *infNFe `xml:"infNFe"`
}

// nfeBatch covers roots such as enviNFe that wrap one or more NFe elements.
type nfeBatch struct {
	Documents []nfeDocument `xml:"NFe"`
	Protocol  *nfe.Protocol `xml:"protNFe>infProt"`
}

type infNFe struct {
	ID             string              `xml:"Id,attr"`
	Version        string              `xml:"versao,attr"`
	Identification nfe.Identification  `xml:"ide"`
	Issuer         nfe.Party           `xml:"emit"`
	Recipient      *nfe.Party          `xml:"dest"`
	Items          []nfe.Item          `xml:"det"`
	Totals         nfe.Totals          `xml:"total"`
	Transport      *nfe.Transport      `xml:"transp"`
	Billing        *nfe.Billing        `xml:"cobr"`
	Payment        *nfe.Payment        `xml:"pag"`
	Intermediary   *nfe.Intermediary   `xml:"infIntermed"`
	AdditionalInfo *nfe.AdditionalInfo `xml:"infAdic"`
}

type cteProc struct {
	CTe      cteDocument   `xml:"CTe"`
	Protocol *nfe.Protocol `xml:"protCTe>infProt"`
}

type cteDocument struct {
	Inf *infCTe `xml:"infCte"`
}

type infCTe struct {
	ID             string     `xml:"Id,attr"`
	Version        string     `xml:"versao,attr"`
	Identification cteIde     `xml:"ide"`
	Issuer         nfe.Party  `xml:"emit"`
	Recipient      *nfe.Party `xml:"dest"`
	Values         cteValues  `xml:"vPrest"`
	ICMS           *nfe.ICMS  `xml:"imp>ICMS"`
	Observations   string     `xml:"compl>xObs"`
}

type cteIde struct {
	StateCode       string `xml:"cUF"`
	NumericCode     string `xml:"cCT"`
	CFOP            string `xml:"CFOP"`
	OperationNature string `xml:"natOp"`
	Model           string `xml:"mod"`
	Series          string `xml:"serie"`
	Number          string `xml:"nCT"`
	IssuedAt        string `xml:"dhEmi"`
	PrintType       string `xml:"tpImp"`
	EmissionType    string `xml:"tpEmis"`
	CheckDigit      string `xml:"cDV"`
	Environment     string `xml:"tpAmb"`
	ServiceType     string `xml:"tpCTe"`
	EmissionProcess string `xml:"procEmi"`
	ProcessVersion  string `xml:"verProc"`
}

type cteValues struct {
	Total    string `xml:"vTPrest"`
	Received string `xml:"vRec"`
}
