package transformer

import (
	"errors"
	"io"
	"log/slog"

	"auditorfiscal/datalake/internal/core/datalake"
	"auditorfiscal/datalake/internal/core/fiscal"
	"auditorfiscal/datalake/internal/core/nfe"
)

// ErrNilExtraction is returned when there is nothing to transform.
var ErrNilExtraction = errors.New("transform: nil extraction")

// Transformer maps extracted documents into datalake records. It performs no I/O;
// the logger only reports values that could not be coerced.
type Transformer struct {
	log *slog.Logger
}

// New creates a Transformer.
func New(log *slog.Logger) *Transformer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Transformer{log: log}
}

// Transform builds one document record, its items and its installments.
func (t *Transformer) Transform(ext *nfe.Extraction) (datalake.Record, error) {
	if ext == nil {
		return datalake.Record{}, ErrNilExtraction
	}
	c := coercer{log: t.log, accessKey: ext.AccessKey}

	rec := datalake.Record{
		Document: t.document(c, ext),
		Items:    make([]datalake.Item, 0, len(ext.Items)),
	}
	for _, it := range ext.Items {
		rec.Items = append(rec.Items, item(c, it))
	}
	for _, inst := range ext.Installments() {
		rec.Installments = append(rec.Installments, datalake.Installment{
			Number:  inst.Number,
			DueDate: c.date("dup.dVenc", inst.DueDate),
			Value:   c.decimal("dup.vDup", inst.Value),
		})
	}
	return rec, nil
}

func (t *Transformer) document(c coercer, ext *nfe.Extraction) datalake.Document {
	ide := ext.Identification
	doc := datalake.Document{
		AccessKey:             ext.AccessKey,
		Kind:                  ext.Kind,
		Number:                ide.Number,
		Series:                ide.Series,
		Model:                 ide.Model,
		EmissionType:          ide.EmissionType,
		OperationType:         ide.OperationType,
		Movement:              ext.Movement,
		Purpose:               ide.Purpose,
		OperationNature:       ide.OperationNature,
		FinalConsumer:         ide.FinalConsumer,
		Presence:              ide.Presence,
		IntermediaryIndicator: ide.IntermediaryIndicator,
		EmissionProcess:       ide.EmissionProcess,
		ProcessVersion:        ide.ProcessVersion,
		MunicipalityCodeIBS:   ide.MunicipalityCodeIBS,
		IssuedAt:              c.timestamp("ide.dhEmi", ide.IssuedAt),
		MovedAt:               c.timestamp("ide.dhSaiEnt", ide.MovedAt),
		Status:                deriveStatus(ext.StatusCode()),
		Issuer:                party(&ext.Issuer),
		Recipient:             party(ext.Recipient),
		Totals:                totals(c, ext.Totals),
		Transport:             transport(c, ext.Transport),
		Payment:               payment(c, ext),
		RawXML:                string(ext.RawXML),
	}

	if p := ext.Protocol; p != nil {
		doc.AuthorizedAt = c.timestamp("infProt.dhRecbto", p.ReceivedAt)
		doc.StatusCode = p.StatusCode
		doc.StatusReason = p.Reason
		doc.ProtocolNumber = p.Number
	}
	if info := ext.AdditionalInfo; info != nil {
		doc.TaxAuthorityInfo = info.TaxAuthority
		doc.ComplementaryInfo = info.Complementary
	}
	return doc
}

func party(p *nfe.Party) datalake.Party {
	if p == nil {
		return datalake.Party{}
	}
	out := datalake.Party{
		CNPJ:                p.CNPJ,
		CPF:                 p.CPF,
		Name:                p.Name,
		TradeName:           p.TradeName,
		StateRegistration:   p.StateRegistration,
		CityRegistration:    p.CityRegistration,
		CNAE:                p.CNAE,
		TaxRegime:           p.TaxRegime,
		Email:               p.Email,
		StateRegistrationID: p.StateRegistrationID,
	}
	if a := p.Address(); a != nil {
		out.Address = datalake.Address{
			Street:           a.Street,
			Number:           a.Number,
			Complement:       a.Complement,
			District:         a.District,
			MunicipalityCode: a.MunicipalityCode,
			Municipality:     a.Municipality,
			State:            a.State,
			PostalCode:       a.PostalCode,
			Phone:            a.Phone,
		}
	}
	return out
}

func totals(c coercer, t nfe.Totals) datalake.Totals {
	icms := t.ICMS
	out := datalake.Totals{
		Products:         c.decimal("ICMSTot.vProd", icms.Products),
		Freight:          c.decimal("ICMSTot.vFrete", icms.Freight),
		Insurance:        c.decimal("ICMSTot.vSeg", icms.Insurance),
		Discount:         c.decimal("ICMSTot.vDesc", icms.Discount),
		OtherExpenses:    c.decimal("ICMSTot.vOutro", icms.OtherExpenses),
		IPI:              c.decimal("ICMSTot.vIPI", icms.IPIValue),
		Document:         c.decimal("ICMSTot.vNF", icms.DocumentTotal),
		ICMSBase:         c.decimal("ICMSTot.vBC", icms.ICMSBase),
		ICMS:             c.decimal("ICMSTot.vICMS", icms.ICMSValue),
		ICMSExempted:     c.decimal("ICMSTot.vICMSDeson", icms.ICMSExempted),
		ICMSSTBase:       c.decimal("ICMSTot.vBCST", icms.STBase),
		ICMSST:           c.decimal("ICMSTot.vST", icms.STValue),
		FCP:              c.decimal("ICMSTot.vFCP", icms.FCPValue),
		FCPST:            c.decimal("ICMSTot.vFCPST", icms.FCPSTValue),
		FCPSTWithheld:    c.decimal("ICMSTot.vFCPSTRet", icms.FCPSTWithheld),
		PIS:              c.decimal("ICMSTot.vPIS", icms.PISValue),
		COFINS:           c.decimal("ICMSTot.vCOFINS", icms.COFINSValue),
		ICMSMonoQuantity: c.decimal("ICMSTot.qBCMono", icms.MonoQuantity),
		ICMSMono:         c.decimal("ICMSTot.vICMSMono", icms.MonoValue),
		ApproximateTaxes: c.decimal("ICMSTot.vTotTrib", icms.ApproximateTax),
	}
	if r := t.IBSCBS; r != nil {
		out.IBSCBSBase = c.decimal("IBSCBSTot.vBCIBSCBS", r.Base)
		out.IBS = c.decimal("IBSCBSTot.vIBS", r.IBSValue)
		out.CBS = c.decimal("IBSCBSTot.vCBS", r.CBSValue)
	}
	return out
}

func transport(c coercer, t *nfe.Transport) datalake.Transport {
	if t == nil {
		return datalake.Transport{}
	}
	out := datalake.Transport{FreightMode: t.FreightMode}
	if carrier := t.Carrier; carrier != nil {
		out.CarrierCNPJ = carrier.CNPJ
		out.CarrierCPF = carrier.CPF
		out.CarrierName = carrier.Name
		out.CarrierRegistration = carrier.StateRegistration
		out.CarrierAddress = carrier.Address
		out.CarrierMunicipality = carrier.Municipality
		out.CarrierState = carrier.State
	}
	if v := t.Vehicle; v != nil {
		out.VehiclePlate = v.Plate
		out.VehicleState = v.State
		out.VehicleRNTC = v.RNTC
	}
	if len(t.Volumes) > 0 {
		vol := t.Volumes[0]
		out.VolumeQuantity = c.integer("vol.qVol", vol.Quantity)
		out.VolumeKind = vol.Kind
		out.VolumeBrand = vol.Brand
		out.VolumeNumbering = vol.Numbering
		out.NetWeight = c.decimal("vol.pesoL", vol.NetWeight)
		out.GrossWeight = c.decimal("vol.pesoB", vol.GrossWeight)
	}
	return out
}

func payment(c coercer, ext *nfe.Extraction) datalake.Payment {
	out := datalake.Payment{Indicator: ext.Identification.PaymentIndicator}
	if detail := ext.Payment.First(); detail != nil {
		if detail.Indicator != "" {
			out.Indicator = detail.Indicator
		}
		out.Method = detail.Method
		out.Value = c.decimal("detPag.vPag", detail.Value)
		if card := detail.Card; card != nil {
			out.IntegrationType = card.IntegrationType
			out.InstitutionCNPJ = card.AcquirerCNPJ
		}
	}
	if im := ext.Intermediary; im != nil {
		out.IntermediaryCNPJ = im.CNPJ
		out.IntermediaryID = im.RegisteredID
	}
	if ext.Billing != nil && ext.Billing.Invoice != nil {
		inv := ext.Billing.Invoice
		out.InvoiceNumber = inv.Number
		out.InvoiceOriginal = c.decimal("fat.vOrig", inv.Original)
		out.InvoiceDiscount = c.decimal("fat.vDesc", inv.Discount)
		out.InvoiceNet = c.decimal("fat.vLiq", inv.Net)
	}
	return out
}

func item(c coercer, it nfe.Item) datalake.Item {
	p := it.Product
	out := datalake.Item{
		Number:              c.integer("det.nItem", it.Number),
		Code:                p.Code,
		EAN:                 p.EAN,
		TaxableEAN:          p.TaxableEAN,
		Description:         p.Description,
		NCM:                 p.NCM,
		NVE:                 p.NVE,
		CEST:                p.CEST,
		ExTIPI:              p.ExTIPI,
		CFOP:                p.CFOP,
		BenefitCode:         p.BenefitCode,
		RelevantScale:       p.RelevantScale,
		ManufacturerCNPJ:    p.ManufacturerCNPJ,
		CommercialUnit:      p.CommercialUnit,
		CommercialQuantity:  c.decimal("prod.qCom", p.CommercialQuantity),
		CommercialUnitValue: c.decimal("prod.vUnCom", p.CommercialUnitValue),
		TaxableUnit:         p.TaxableUnit,
		TaxableQuantity:     c.decimal("prod.qTrib", p.TaxableQuantity),
		TaxableUnitValue:    c.decimal("prod.vUnTrib", p.TaxableUnitValue),
		Freight:             c.decimal("prod.vFrete", p.Freight),
		Insurance:           c.decimal("prod.vSeg", p.Insurance),
		Discount:            c.decimal("prod.vDesc", p.Discount),
		OtherExpenses:       c.decimal("prod.vOutro", p.OtherExpenses),
		Total:               c.decimal("prod.vProd", p.Total),
		TotalIndicator:      p.TotalIndicator,
		ApproximateTaxes:    c.decimal("imposto.vTotTrib", it.Taxes.ApproximateTotal),
		AdditionalInfo:      it.AdditionalInfo,
	}

	if g := it.Taxes.ICMS.Active(); g != nil {
		out.ICMS = datalake.ICMS{
			Origin:          g.Origin,
			CST:             g.SituationCode(),
			BaseModality:    g.BaseModality,
			Base:            c.decimal("ICMS.vBC", g.Base),
			Rate:            c.decimal("ICMS.pICMS", g.Rate),
			Value:           c.decimal("ICMS.vICMS", g.Value),
			BaseReduction:   c.decimal("ICMS.pRedBC", g.BaseReduction),
			Exempted:        c.decimal("ICMS.vICMSDeson", g.Exempted),
			ExemptionReason: g.ExemptionReason,
			STBaseModality:  g.STBaseModality,
			STMarkup:        c.decimal("ICMS.pMVAST", g.STMarkup),
			STBaseReduction: c.decimal("ICMS.pRedBCST", g.STBaseReduction),
			STBase:          c.decimal("ICMS.vBCST", g.STBase),
			STRate:          c.decimal("ICMS.pICMSST", g.STRate),
			STValue:         c.decimal("ICMS.vICMSST", g.STValue),
			FCPBase:         c.decimal("ICMS.vBCFCP", g.FCPBase),
			FCPRate:         c.decimal("ICMS.pFCP", g.FCPRate),
			FCPValue:        c.decimal("ICMS.vFCP", g.FCPValue),
			FCPSTBase:       c.decimal("ICMS.vBCFCPST", g.FCPSTBase),
			FCPSTRate:       c.decimal("ICMS.pFCPST", g.FCPSTRate),
			FCPSTValue:      c.decimal("ICMS.vFCPST", g.FCPSTValue),
			MonoQuantity:    c.decimal("ICMS.qBCMono", g.MonoQuantity),
			MonoValue:       c.decimal("ICMS.vICMSMono", g.MonoValue),
		}
	}

	if ipi := it.Taxes.IPI; ipi != nil {
		out.IPI = datalake.IPI{
			CST:            ipi.CST(),
			FrameworkClass: ipi.FrameworkClass,
			FrameworkCode:  ipi.FrameworkCode,
			ProducerCNPJ:   ipi.ProducerCNPJ,
			SealCode:       ipi.SealCode,
			SealQuantity:   c.integer("IPI.qSelo", ipi.SealQuantity),
		}
		if taxed := ipi.Taxed; taxed != nil {
			out.IPI.Base = c.decimal("IPITrib.vBC", taxed.Base)
			out.IPI.Rate = c.decimal("IPITrib.pIPI", taxed.Rate)
			out.IPI.Value = c.decimal("IPITrib.vIPI", taxed.Value)
		}
	}

	if g := it.Taxes.PIS.Active(); g != nil {
		out.PIS = datalake.Contribution{
			CST:          g.CST,
			Base:         c.decimal("PIS.vBC", g.Base),
			Rate:         c.decimal("PIS.pPIS", g.Rate),
			Value:        c.decimal("PIS.vPIS", g.Value),
			QuantitySold: c.decimal("PIS.qBCProd", g.QuantitySold),
			RateInReais:  c.decimal("PIS.vAliqProd", g.RateInReais),
		}
	}

	if g := it.Taxes.COFINS.Active(); g != nil {
		out.COFINS = datalake.Contribution{
			CST:          g.CST,
			Base:         c.decimal("COFINS.vBC", g.Base),
			Rate:         c.decimal("COFINS.pCOFINS", g.Rate),
			Value:        c.decimal("COFINS.vCOFINS", g.Value),
			QuantitySold: c.decimal("COFINS.qBCProd", g.QuantitySold),
			RateInReais:  c.decimal("COFINS.vAliqProd", g.RateInReais),
		}
	}

	if r := it.Taxes.IBSCBS; r != nil {
		out.Reform = datalake.ReformTaxes{CST: r.CST, Classification: r.Classification}
		if v := r.Values; v != nil {
			out.Reform.Base = c.decimal("gIBSCBS.vBC", v.Base)
			out.Reform.StateRate = c.decimal("gIBSUF.pIBSUF", v.StateRate)
			out.Reform.StateValue = c.decimal("gIBSUF.vIBSUF", v.StateValue)
			out.Reform.CityRate = c.decimal("gIBSMun.pIBSMun", v.CityRate)
			out.Reform.CityValue = c.decimal("gIBSMun.vIBSMun", v.CityValue)
			out.Reform.IBSValue = c.decimal("gIBSCBS.vIBS", v.IBSValue)
			out.Reform.CBSRate = c.decimal("gCBS.pCBS", v.CBSRate)
			out.Reform.CBSValue = c.decimal("gCBS.vCBS", v.CBSValue)
		}
	}

	if len(p.ImportDeclarations) > 0 {
		di := p.ImportDeclarations[0]
		out.Import = datalake.Import{
			Number:             di.Number,
			Date:               c.date("DI.dDI", di.Date),
			ClearancePlace:     di.ClearancePlace,
			ClearanceState:     di.ClearanceState,
			ClearanceDate:      c.date("DI.dDesemb", di.ClearanceDate),
			TransportRoute:     di.TransportRoute,
			AFRMM:              c.decimal("DI.vAFRMM", di.AFRMM),
			IntermediationForm: di.IntermediationForm,
		}
	}
	return out
}

// Audit builds the audit view consumed by validation and settlement. Tax lines are
// kept only when their value is positive. CT-e documents yield no items.
func (t *Transformer) Audit(ext *nfe.Extraction) fiscal.Document {
	if ext == nil {
		return fiscal.Document{}
	}
	c := coercer{log: t.log, accessKey: ext.AccessKey}
	ide := ext.Identification

	doc := fiscal.Document{
		Kind:          ext.Kind,
		AccessKey:     ext.AccessKey,
		Number:        ide.Number,
		Series:        ide.Series,
		IssuerCNPJ:    ext.Issuer.TaxID(),
		RecipientCNPJ: ext.Recipient.TaxID(),
		Movement:      ext.Movement,
		Total:         c.amount("ICMSTot.vNF", ext.Totals.ICMS.DocumentTotal),
		OperationType: ide.OperationType,
		Items:         make([]fiscal.Item, 0, len(ext.Items)),
	}
	if issued := c.timestamp("ide.dhEmi", ide.IssuedAt); issued != nil {
		doc.IssuedAt = *issued
	}

	for i, it := range ext.Items {
		number := i + 1
		if n := c.integer("det.nItem", it.Number); n != nil {
			number = *n
		}
		p := it.Product
		doc.Items = append(doc.Items, fiscal.Item{
			Number:      number,
			Code:        p.Code,
			Description: p.Description,
			NCM:         p.NCM,
			CFOP:        p.CFOP,
			Quantity:    c.amount("prod.qCom", p.CommercialQuantity),
			UnitValue:   c.amount("prod.vUnCom", p.CommercialUnitValue),
			Total:       c.amount("prod.vProd", p.Total),
			Taxes:       taxLines(c, it.Taxes),
		})
	}
	return doc
}

func taxLines(c coercer, taxes nfe.Taxes) []fiscal.TaxLine {
	var lines []fiscal.TaxLine
	add := func(line fiscal.TaxLine) {
		if line.Value.IsPositive() {
			lines = append(lines, line)
		}
	}

	if g := taxes.ICMS.Active(); g != nil {
		add(fiscal.TaxLine{
			Type:  fiscal.TaxICMS,
			CST:   g.SituationCode(),
			Base:  c.amount("ICMS.vBC", g.Base),
			Rate:  c.amount("ICMS.pICMS", g.Rate),
			Value: c.amount("ICMS.vICMS", g.Value),
		})
	}
	if ipi := taxes.IPI; ipi != nil && ipi.Taxed != nil {
		add(fiscal.TaxLine{
			Type:  fiscal.TaxIPI,
			CST:   ipi.Taxed.CST,
			Base:  c.amount("IPITrib.vBC", ipi.Taxed.Base),
			Rate:  c.amount("IPITrib.pIPI", ipi.Taxed.Rate),
			Value: c.amount("IPITrib.vIPI", ipi.Taxed.Value),
		})
	}
	if g := taxes.PIS.Active(); g != nil {
		add(fiscal.TaxLine{
			Type:  fiscal.TaxPIS,
			CST:   g.CST,
			Base:  c.amount("PIS.vBC", g.Base),
			Rate:  c.amount("PIS.pPIS", g.Rate),
			Value: c.amount("PIS.vPIS", g.Value),
		})
	}
	if g := taxes.COFINS.Active(); g != nil {
		add(fiscal.TaxLine{
			Type:  fiscal.TaxCOFINS,
			CST:   g.CST,
			Base:  c.amount("COFINS.vBC", g.Base),
			Rate:  c.amount("COFINS.pCOFINS", g.Rate),
			Value: c.amount("COFINS.vCOFINS", g.Value),
		})
	}
	if r := taxes.IBSCBS; r != nil && r.Values != nil {
		v := r.Values
		base := c.amount("gIBSCBS.vBC", v.Base)
		add(fiscal.TaxLine{
			Type:  fiscal.TaxIBS,
			CST:   r.CST,
			Base:  base,
			Rate:  c.amount("gIBSUF.pIBSUF", v.StateRate).Add(c.amount("gIBSMun.pIBSMun", v.CityRate)),
			Value: c.amount("gIBSCBS.vIBS", v.IBSValue),
		})
		add(fiscal.TaxLine{
			Type:  fiscal.TaxCBS,
			CST:   r.CST,
			Base:  base,
			Rate:  c.amount("gCBS.pCBS", v.CBSRate),
			Value: c.amount("gCBS.vCBS", v.CBSValue),
		})
	}
	return lines
}
