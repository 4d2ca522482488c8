package transformer

import (
	"bytes"
	"log/slog"
	"testing"

	"auditorfiscal/datalake/internal/application/extractor"
	"auditorfiscal/datalake/internal/core/fiscal"
	"auditorfiscal/datalake/internal/core/nfe"
	"auditorfiscal/datalake/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, raw []byte, company string) *nfe.Extraction {
	t.Helper()
	ext, err := extractor.New(testutil.NewNullLogger(), extractor.Options{CompanyCNPJ: company}).Extract(raw)
	require.NoError(t, err)
	return ext
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		code string
		want fiscal.Status
	}{
		{"100", fiscal.StatusAuthorized},
		{"101", fiscal.StatusCancelled},
		{"151", fiscal.StatusCancelled},
		{"155", fiscal.StatusCancelled},
		{"110", fiscal.StatusDenied},
		{"205", fiscal.StatusDenied},
		{"301", fiscal.StatusDenied},
		{"302", fiscal.StatusDenied},
		{"303", fiscal.StatusDenied},
		{"217", fiscal.StatusVoid},
		{"218", fiscal.StatusVoid},
		{"539", fiscal.StatusRejected},
		{" 100 ", fiscal.StatusAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := deriveStatus(tt.code)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, deriveStatus(""))
}

func TestTransform_NilExtraction(t *testing.T) {
	_, err := New(nil).Transform(nil)
	assert.ErrorIs(t, err, ErrNilExtraction)
}

func TestTransform_Document(t *testing.T) {
	ext := extract(t, testutil.DefaultNFe(1).XML(), testutil.SupplierCNPJ)

	rec, err := New(testutil.NewNullLogger()).Transform(ext)
	require.NoError(t, err)

	doc := rec.Document
	assert.Equal(t, testutil.AccessKey(1), doc.AccessKey)
	assert.Equal(t, fiscal.KindNFe, doc.Kind)
	assert.Equal(t, "1001", doc.Number)
	assert.Equal(t, fiscal.MovementExit, doc.Movement)
	require.NotNil(t, doc.Status)
	assert.Equal(t, fiscal.StatusAuthorized, *doc.Status)
	assert.Equal(t, "100", doc.StatusCode)
	assert.Equal(t, "135240000000001", doc.ProtocolNumber)
	require.NotNil(t, doc.IssuedAt)
	assert.Equal(t, 2024, doc.IssuedAt.Year())
	require.NotNil(t, doc.AuthorizedAt)
	assert.True(t, doc.ProcessedAt.IsZero())

	assert.Equal(t, testutil.SupplierCNPJ, doc.Issuer.CNPJ)
	assert.Equal(t, "São Paulo", doc.Issuer.Address.Municipality)
	assert.Equal(t, "fiscal@cliente.com.br", doc.Recipient.Email)

	require.True(t, doc.Totals.Document.Valid)
	assert.True(t, decimal.RequireFromString("1150.00").Equal(doc.Totals.Document.Decimal))
	assert.False(t, doc.Totals.IBS.Valid)

	assert.Equal(t, "0", doc.Transport.FreightMode)
	require.NotNil(t, doc.Transport.VolumeQuantity)
	assert.Equal(t, 3, *doc.Transport.VolumeQuantity)
	assert.Equal(t, "15", doc.Payment.Method)
	assert.Equal(t, "1", doc.Payment.Indicator)
	assert.Equal(t, "1001", doc.Payment.InvoiceNumber)
	assert.Equal(t, "Pedido 7781", doc.ComplementaryInfo)

	assert.Equal(t, string(ext.RawXML), doc.RawXML)
}

func TestTransform_ItemsAndInstallments(t *testing.T) {
	ext := extract(t, testutil.DefaultNFe(2).XML(), "")

	rec, err := New(testutil.NewNullLogger()).Transform(ext)
	require.NoError(t, err)

	require.Len(t, rec.Items, 2)
	first := rec.Items[0]
	require.NotNil(t, first.Number)
	assert.Equal(t, 1, *first.Number)
	assert.Equal(t, "P001", first.Code)
	assert.Equal(t, "00", first.ICMS.CST)
	assert.True(t, decimal.NewFromInt(180).Equal(first.ICMS.Value.Decimal))
	assert.Equal(t, "50", first.IPI.CST)
	assert.True(t, decimal.NewFromInt(50).Equal(first.IPI.Value.Decimal))
	assert.Equal(t, "50", first.PIS.CST)
	assert.True(t, decimal.RequireFromString("7.60").Equal(first.COFINS.Rate.Decimal))

	second := rec.Items[1]
	assert.Equal(t, "20", second.ICMS.CST)
	assert.True(t, decimal.NewFromInt(50).Equal(second.ICMS.BaseReduction.Decimal))
	assert.Equal(t, "", second.IPI.CST)
	assert.Equal(t, "07", second.PIS.CST)
	assert.False(t, second.PIS.Value.Valid)
	assert.Equal(t, "Lote 42", second.AdditionalInfo)

	require.Len(t, rec.Installments, 2)
	assert.Equal(t, "001", rec.Installments[0].Number)
	require.NotNil(t, rec.Installments[1].DueDate)
	assert.Equal(t, "2024-03-15", rec.Installments[1].DueDate.Format("2006-01-02"))
	assert.True(t, decimal.NewFromInt(575).Equal(rec.Installments[1].Value.Decimal))
}

func TestTransform_MalformedValuesBecomeNull(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	ext := extract(t, testutil.DefaultNFe(3).XML(), "")
	ext.Items[0].Product.Total = "1.000,00"
	ext.Transport.Volumes[0].Quantity = "três"
	ext.Identification.IssuedAt = "15/01/2024"

	rec, err := New(log).Transform(ext)
	require.NoError(t, err)

	assert.False(t, rec.Items[0].Total.Valid)
	assert.Nil(t, rec.Document.Transport.VolumeQuantity)
	assert.Nil(t, rec.Document.IssuedAt)

	out := buf.String()
	assert.Contains(t, out, "Value coercion failed")
	assert.Contains(t, out, "field=prod.vProd")
	assert.Contains(t, out, "field=vol.qVol")
	assert.Contains(t, out, "field=ide.dhEmi")
}

func TestTransform_IntegerTruncatesDecimalText(t *testing.T) {
	ext := extract(t, testutil.DefaultNFe(4).XML(), "")
	ext.Transport.Volumes[0].Quantity = "3.9000"

	rec, err := New(testutil.NewNullLogger()).Transform(ext)
	require.NoError(t, err)

	require.NotNil(t, rec.Document.Transport.VolumeQuantity)
	assert.Equal(t, 3, *rec.Document.Transport.VolumeQuantity)
}

func TestTransform_StatusAbsentWithoutProtocol(t *testing.T) {
	ext := extract(t, testutil.DefaultNFe(5).XML(), "")
	ext.Protocol = nil

	rec, err := New(testutil.NewNullLogger()).Transform(ext)
	require.NoError(t, err)

	assert.Nil(t, rec.Document.Status)
	assert.Nil(t, rec.Document.AuthorizedAt)
}

func TestTransform_CTe(t *testing.T) {
	key := "35240177888999000155570010000000551000000019"
	ext := extract(t, testutil.CTeXML(key, "5353"), testutil.CustomerCNPJ)

	rec, err := New(testutil.NewNullLogger()).Transform(ext)
	require.NoError(t, err)

	assert.Equal(t, fiscal.KindCTe, rec.Document.Kind)
	assert.Empty(t, rec.Items)
	assert.True(t, decimal.NewFromInt(350).Equal(rec.Document.Totals.Document.Decimal))
	assert.True(t, decimal.NewFromInt(42).Equal(rec.Document.Totals.ICMS.Decimal))
	assert.Equal(t, fiscal.MovementEntry, rec.Document.Movement)
}

func TestAudit(t *testing.T) {
	ext := extract(t, testutil.InboundNFe(6).XML(), testutil.CustomerCNPJ)

	doc := New(testutil.NewNullLogger()).Audit(ext)

	assert.Equal(t, testutil.AccessKey(6), doc.AccessKey)
	assert.Equal(t, fiscal.MovementEntry, doc.Movement)
	assert.Equal(t, testutil.SupplierCNPJ, doc.IssuerCNPJ)
	assert.Equal(t, testutil.CustomerCNPJ, doc.RecipientCNPJ)
	assert.True(t, decimal.RequireFromString("1150").Equal(doc.Total))
	assert.Equal(t, 2024, doc.IssuedAt.Year())

	require.Len(t, doc.Items, 2)
	first := doc.Items[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "1101", first.CFOP)
	require.Len(t, first.Taxes, 4)
	icms := first.TaxesOf(fiscal.TaxICMS)
	require.Len(t, icms, 1)
	assert.Equal(t, "00", icms[0].CST)
	assert.True(t, decimal.NewFromInt(1000).Equal(icms[0].Base))
	assert.True(t, decimal.NewFromInt(18).Equal(icms[0].Rate))
	assert.True(t, decimal.NewFromInt(180).Equal(icms[0].Value))

	// Non-taxed PIS/COFINS carry no value and are left out.
	second := doc.Items[1]
	require.Len(t, second.Taxes, 1)
	assert.Equal(t, fiscal.TaxICMS, second.Taxes[0].Type)
	assert.True(t, decimal.NewFromInt(9).Equal(second.Taxes[0].Value))
}

func TestAudit_ReformTaxes(t *testing.T) {
	ext := extract(t, testutil.DefaultNFe(7).XML(), "")
	ext.Items[0].Taxes.IBSCBS = &nfe.IBSCBS{
		CST: "000",
		Values: &nfe.IBSCBSValues{
			Base:       "1000.00",
			StateRate:  "0.10",
			StateValue: "1.00",
			CityRate:   "0.00",
			CityValue:  "0.00",
			IBSValue:   "1.00",
			CBSRate:    "0.90",
			CBSValue:   "9.00",
		},
	}

	doc := New(testutil.NewNullLogger()).Audit(ext)

	ibs := doc.Items[0].TaxesOf(fiscal.TaxIBS)
	require.Len(t, ibs, 1)
	assert.True(t, decimal.RequireFromString("0.10").Equal(ibs[0].Rate))
	assert.True(t, decimal.NewFromInt(1).Equal(ibs[0].Value))
	cbs := doc.Items[0].TaxesOf(fiscal.TaxCBS)
	require.Len(t, cbs, 1)
	assert.True(t, decimal.NewFromInt(9).Equal(cbs[0].Value))
}

func TestAudit_NilExtraction(t *testing.T) {
	doc := New(nil).Audit(nil)
	assert.Empty(t, doc.AccessKey)
	assert.Empty(t, doc.Items)
}
