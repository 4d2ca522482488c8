package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

const (
	SupplierCNPJ = "11222333000181"
	CustomerCNPJ = "44555666000199"
	CarrierCNPJ  = "77888999000155"
)

// AccessKey builds a deterministic 44 digit NF-e access key.
func AccessKey(n int) string {
	return fmt.Sprintf("3524011122233300018155001%019d", n)
}

// NFeFixture describes a two-item NF-e authorized by SEFAZ.
// Item 1 carries ICMS00 (1000.00 x 18% = 180.00), IPI, PIS and COFINS;
// item 2 carries ICMS20 (9.00) and non-taxed PIS/COFINS.
type NFeFixture struct {
	AccessKey     string
	OperationType string
	CFOP          string
	StatusCode    string
	IssuerCNPJ    string
	RecipientCNPJ string
	Model         string
	Encoding      string
}

// DefaultNFe returns an outbound sale from SupplierCNPJ to CustomerCNPJ.
func DefaultNFe(n int) NFeFixture {
	return NFeFixture{
		AccessKey:     AccessKey(n),
		OperationType: "1",
		CFOP:          "5102",
		StatusCode:    "100",
		IssuerCNPJ:    SupplierCNPJ,
		RecipientCNPJ: CustomerCNPJ,
		Model:         "55",
		Encoding:      "UTF-8",
	}
}

// InboundNFe returns a purchase of raw material received by CustomerCNPJ.
func InboundNFe(n int) NFeFixture {
	f := DefaultNFe(n)
	f.OperationType = "0"
	f.CFOP = "1101"
	return f
}

// XML renders the fixture. Latin-1 fixtures are returned encoded as ISO-8859-1.
func (f NFeFixture) XML() []byte {
	doc := fmt.Sprintf(nfeTemplate,
		f.AccessKey,
		f.OperationType,
		f.CFOP,
		f.StatusCode,
		f.IssuerCNPJ,
		f.RecipientCNPJ,
		f.Model,
		f.Encoding,
	)
	if f.Encoding == "ISO-8859-1" {
		encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(doc))
		if err != nil {
			panic(err)
		}
		return encoded
	}
	return []byte(doc)
}

// CTeXML renders a transport document issued by CarrierCNPJ to CustomerCNPJ.
func CTeXML(key, cfop string) []byte {
	return []byte(fmt.Sprintf(cteTemplate, key, cfop))
}

// WriteFile writes content under dir and returns the full path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const nfeTemplate = `<?xml version="1.0" encoding="%[8]s"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe%[1]s" versao="4.00">
      <ide>
        <cUF>35</cUF><cNF>12345678</cNF><natOp>Venda de produção</natOp><mod>%[7]s</mod><serie>1</serie><nNF>1001</nNF>
        <dhEmi>2024-01-15T10:30:00-03:00</dhEmi><dhSaiEnt>2024-01-16T08:00:00-03:00</dhSaiEnt>
        <tpNF>%[2]s</tpNF><idDest>1</idDest><cMunFG>3550308</cMunFG><tpImp>1</tpImp><tpEmis>1</tpEmis><cDV>0</cDV>
        <tpAmb>1</tpAmb><finNFe>1</finNFe><indFinal>0</indFinal><indPres>1</indPres><indIntermed>0</indIntermed>
        <procEmi>0</procEmi><verProc>ERP 1.0</verProc>
      </ide>
      <emit>
        <CNPJ>%[5]s</CNPJ><xNome>Fornecedor Industrial Ltda</xNome><xFant>Fornecedor</xFant>
        <enderEmit><xLgr>Rua das Indústrias</xLgr><nro>100</nro><xBairro>Centro</xBairro><cMun>3550308</cMun><xMun>São Paulo</xMun><UF>SP</UF><CEP>01001000</CEP><fone>1133334444</fone></enderEmit>
        <IE>111222333444</IE><CRT>3</CRT>
      </emit>
      <dest>
        <CNPJ>%[6]s</CNPJ><xNome>Cliente Comércio SA</xNome>
        <enderDest><xLgr>Av. Paulista</xLgr><nro>2000</nro><xBairro>Bela Vista</xBairro><cMun>3550308</cMun><xMun>São Paulo</xMun><UF>SP</UF><CEP>01310200</CEP></enderDest>
        <indIEDest>1</indIEDest><IE>555666777888</IE><email>fiscal@cliente.com.br</email>
      </dest>
      <det nItem="1">
        <prod>
          <cProd>P001</cProd><cEAN>SEM GTIN</cEAN><xProd>Chapa de aço</xProd><NCM>72085100</NCM><CFOP>%[3]s</CFOP>
          <uCom>UN</uCom><qCom>10.0000</qCom><vUnCom>100.0000000000</vUnCom><vProd>1000.00</vProd>
          <cEANTrib>SEM GTIN</cEANTrib><uTrib>UN</uTrib><qTrib>10.0000</qTrib><vUnTrib>100.0000000000</vUnTrib><indTot>1</indTot>
        </prod>
        <imposto>
          <vTotTrib>250.00</vTotTrib>
          <ICMS><ICMS00><orig>0</orig><CST>00</CST><modBC>3</modBC><vBC>1000.00</vBC><pICMS>18.00</pICMS><vICMS>180.00</vICMS></ICMS00></ICMS>
          <IPI><cEnq>999</cEnq><IPITrib><CST>50</CST><vBC>1000.00</vBC><pIPI>5.00</pIPI><vIPI>50.00</vIPI></IPITrib></IPI>
          <PIS><PISAliq><CST>50</CST><vBC>1000.00</vBC><pPIS>1.65</pPIS><vPIS>16.50</vPIS></PISAliq></PIS>
          <COFINS><COFINSAliq><CST>50</CST><vBC>1000.00</vBC><pCOFINS>7.60</pCOFINS><vCOFINS>76.00</vCOFINS></COFINSAliq></COFINS>
        </imposto>
      </det>
      <det nItem="2">
        <prod>
          <cProd>P002</cProd><cEAN>SEM GTIN</cEAN><xProd>Parafuso sextavado</xProd><NCM>73181500</NCM><CFOP>%[3]s</CFOP>
          <uCom>CX</uCom><qCom>5.0000</qCom><vUnCom>20.0000000000</vUnCom><vProd>100.00</vProd><indTot>1</indTot>
        </prod>
        <imposto>
          <ICMS><ICMS20><orig>0</orig><CST>20</CST><modBC>3</modBC><pRedBC>50.00</pRedBC><vBC>50.00</vBC><pICMS>18.00</pICMS><vICMS>9.00</vICMS></ICMS20></ICMS>
          <PIS><PISNT><CST>07</CST></PISNT></PIS>
          <COFINS><COFINSNT><CST>07</CST></COFINSNT></COFINS>
        </imposto>
        <infAdProd>Lote 42</infAdProd>
      </det>
      <total>
        <ICMSTot>
          <vBC>1050.00</vBC><vICMS>189.00</vICMS><vICMSDeson>0.00</vICMSDeson><vFCP>0.00</vFCP><vBCST>0.00</vBCST><vST>0.00</vST>
          <vFCPST>0.00</vFCPST><vFCPSTRet>0.00</vFCPSTRet><vProd>1100.00</vProd><vFrete>0.00</vFrete><vSeg>0.00</vSeg>
          <vDesc>0.00</vDesc><vII>0.00</vII><vIPI>50.00</vIPI><vIPIDevol>0.00</vIPIDevol><vPIS>16.50</vPIS><vCOFINS>76.00</vCOFINS>
          <vOutro>0.00</vOutro><vNF>1150.00</vNF><vTotTrib>250.00</vTotTrib>
        </ICMSTot>
      </total>
      <transp>
        <modFrete>0</modFrete>
        <transporta><CNPJ>77888999000155</CNPJ><xNome>Transportadora Rápida</xNome><UF>SP</UF></transporta>
        <veicTransp><placa>ABC1D23</placa><UF>SP</UF></veicTransp>
        <vol><qVol>3</qVol><esp>CAIXA</esp><pesoL>120.500</pesoL><pesoB>125.000</pesoB></vol>
      </transp>
      <cobr>
        <fat><nFat>1001</nFat><vOrig>1150.00</vOrig><vDesc>0.00</vDesc><vLiq>1150.00</vLiq></fat>
        <dup><nDup>001</nDup><dVenc>2024-02-15</dVenc><vDup>575.00</vDup></dup>
        <dup><nDup>002</nDup><dVenc>2024-03-15</dVenc><vDup>575.00</vDup></dup>
      </cobr>
      <pag><detPag><indPag>1</indPag><tPag>15</tPag><vPag>1150.00</vPag></detPag></pag>
      <infAdic><infCpl>Pedido 7781</infCpl></infAdic>
    </infNFe>
  </NFe>
  <protNFe versao="4.00">
    <infProt>
      <tpAmb>1</tpAmb><verAplic>SP_NFE_PL009</verAplic><chNFe>%[1]s</chNFe><dhRecbto>2024-01-15T10:31:10-03:00</dhRecbto>
      <nProt>135240000000001</nProt><digVal>abc=</digVal><cStat>%[4]s</cStat><xMotivo>Autorizado o uso da NF-e</xMotivo>
    </infProt>
  </protNFe>
</nfeProc>
`

const cteTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<cteProc xmlns="http://www.portalfiscal.inf.br/cte" versao="4.00">
  <CTe>
    <infCte Id="CTe%[1]s" versao="4.00">
      <ide>
        <cUF>35</cUF><cCT>00000001</cCT><CFOP>%[2]s</CFOP><natOp>Prestação de serviço de transporte</natOp><mod>57</mod>
        <serie>1</serie><nCT>55</nCT><dhEmi>2024-01-20T09:00:00-03:00</dhEmi><tpImp>1</tpImp><tpEmis>1</tpEmis>
        <cDV>9</cDV><tpAmb>1</tpAmb><tpCTe>0</tpCTe><procEmi>0</procEmi><verProc>TMS 2.1</verProc>
      </ide>
      <emit><CNPJ>77888999000155</CNPJ><IE>777888999000</IE><xNome>Transportadora Rápida</xNome></emit>
      <dest><CNPJ>44555666000199</CNPJ><xNome>Cliente Comércio SA</xNome></dest>
      <vPrest><vTPrest>350.00</vTPrest><vRec>350.00</vRec></vPrest>
      <imp><ICMS><ICMS00><CST>00</CST><vBC>350.00</vBC><pICMS>12.00</pICMS><vICMS>42.00</vICMS></ICMS00></ICMS></imp>
      <compl><xObs>Frete referente NF 1001</xObs></compl>
    </infCte>
  </CTe>
  <protCTe versao="4.00">
    <infProt><tpAmb>1</tpAmb><chCTe>%[1]s</chCTe><dhRecbto>2024-01-20T09:01:00-03:00</dhRecbto><nProt>135240000000777</nProt><cStat>100</cStat><xMotivo>Autorizado o uso do CT-e</xMotivo></infProt>
  </protCTe>
</cteProc>
`
