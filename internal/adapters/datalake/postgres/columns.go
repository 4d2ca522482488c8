package postgres

import (
	"fmt"
	"strings"
	"time"

	"auditorfiscal/datalake/internal/core/datalake"
	"auditorfiscal/datalake/internal/core/fiscal"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// column is one persisted field and its bound value. Absent values are bound as
// NULL so that PatchMissing can tell them apart.
type column struct {
	name  string
	value any
}

func text(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func numeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: d.Decimal.Coefficient(), Exp: d.Decimal.Exponent(), Valid: true}
}

func timestamp(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func integer(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func status(s *fiscal.Status) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func partyColumns(prefix string, p datalake.Party) []column {
	return []column{
		{prefix + "_cnpj", text(p.CNPJ)},
		{prefix + "_cpf", text(p.CPF)},
		{prefix + "_razao_social", text(p.Name)},
		{prefix + "_nome_fantasia", text(p.TradeName)},
		{prefix + "_ie", text(p.StateRegistration)},
		{prefix + "_im", text(p.CityRegistration)},
		{prefix + "_cnae", text(p.CNAE)},
		{prefix + "_crt", text(p.TaxRegime)},
		{prefix + "_indicador_ie", text(p.StateRegistrationID)},
		{prefix + "_email", text(p.Email)},
		{prefix + "_logradouro", text(p.Address.Street)},
		{prefix + "_numero", text(p.Address.Number)},
		{prefix + "_complemento", text(p.Address.Complement)},
		{prefix + "_bairro", text(p.Address.District)},
		{prefix + "_codigo_municipio", text(p.Address.MunicipalityCode)},
		{prefix + "_municipio", text(p.Address.Municipality)},
		{prefix + "_uf", text(p.Address.State)},
		{prefix + "_cep", text(p.Address.PostalCode)},
		{prefix + "_telefone", text(p.Address.Phone)},
	}
}

// documentColumns maps a document onto the nfe table, chave_acesso first.
func documentColumns(d datalake.Document) []column {
	cols := []column{
		{"chave_acesso", d.AccessKey},
		{"tipo_documento", text(string(d.Kind))},
		{"numero_nota", text(d.Number)},
		{"serie", text(d.Series)},
		{"modelo", text(d.Model)},
		{"tipo_emissao", text(d.EmissionType)},
		{"tipo_operacao", text(d.OperationType)},
		{"tipo_movimento", text(string(d.Movement))},
		{"finalidade_emissao", text(d.Purpose)},
		{"natureza_operacao", text(d.OperationNature)},
		{"indicador_final", text(d.FinalConsumer)},
		{"indicador_presenca", text(d.Presence)},
		{"indicador_intermediador", text(d.IntermediaryIndicator)},
		{"processo_emissao", text(d.EmissionProcess)},
		{"versao_processo", text(d.ProcessVersion)},
		{"codigo_municipio_fg_ibs", text(d.MunicipalityCodeIBS)},
		{"data_emissao", timestamp(d.IssuedAt)},
		{"data_saida_entrada", timestamp(d.MovedAt)},
		{"data_autorizacao", timestamp(d.AuthorizedAt)},
		{"data_processamento_etl", timestamp(&d.ProcessedAt)},
		{"situacao", status(d.Status)},
		{"codigo_status", text(d.StatusCode)},
		{"motivo_status", text(d.StatusReason)},
		{"protocolo_autorizacao", text(d.ProtocolNumber)},
	}
	cols = append(cols, partyColumns("emitente", d.Issuer)...)
	cols = append(cols, partyColumns("destinatario", d.Recipient)...)

	t := d.Totals
	cols = append(cols,
		column{"valor_produtos", numeric(t.Products)},
		column{"valor_frete", numeric(t.Freight)},
		column{"valor_seguro", numeric(t.Insurance)},
		column{"valor_desconto", numeric(t.Discount)},
		column{"valor_outras_despesas", numeric(t.OtherExpenses)},
		column{"valor_ipi", numeric(t.IPI)},
		column{"valor_total_nota", numeric(t.Document)},
		column{"base_calculo_icms", numeric(t.ICMSBase)},
		column{"valor_icms", numeric(t.ICMS)},
		column{"valor_icms_desonerado", numeric(t.ICMSExempted)},
		column{"base_calculo_icms_st", numeric(t.ICMSSTBase)},
		column{"valor_icms_st", numeric(t.ICMSST)},
		column{"valor_fcp", numeric(t.FCP)},
		column{"valor_fcp_st", numeric(t.FCPST)},
		column{"valor_fcp_st_retido", numeric(t.FCPSTWithheld)},
		column{"valor_pis", numeric(t.PIS)},
		column{"valor_cofins", numeric(t.COFINS)},
		column{"base_calculo_ibscbs", numeric(t.IBSCBSBase)},
		column{"valor_ibs", numeric(t.IBS)},
		column{"valor_cbs", numeric(t.CBS)},
		column{"quantidade_bc_mono", numeric(t.ICMSMonoQuantity)},
		column{"valor_icms_mono", numeric(t.ICMSMono)},
		column{"valor_aproximado_tributos", numeric(t.ApproximateTaxes)},
	)

	tr := d.Transport
	cols = append(cols,
		column{"modalidade_frete", text(tr.FreightMode)},
		column{"transportadora_cnpj", text(tr.CarrierCNPJ)},
		column{"transportadora_cpf", text(tr.CarrierCPF)},
		column{"transportadora_razao_social", text(tr.CarrierName)},
		column{"transportadora_ie", text(tr.CarrierRegistration)},
		column{"transportadora_endereco", text(tr.CarrierAddress)},
		column{"transportadora_municipio", text(tr.CarrierMunicipality)},
		column{"transportadora_uf", text(tr.CarrierState)},
		column{"veiculo_placa", text(tr.VehiclePlate)},
		column{"veiculo_uf", text(tr.VehicleState)},
		column{"veiculo_rntc", text(tr.VehicleRNTC)},
		column{"quantidade_volumes", integer(tr.VolumeQuantity)},
		column{"especie_volumes", text(tr.VolumeKind)},
		column{"marca_volumes", text(tr.VolumeBrand)},
		column{"numeracao_volumes", text(tr.VolumeNumbering)},
		column{"peso_liquido", numeric(tr.NetWeight)},
		column{"peso_bruto", numeric(tr.GrossWeight)},
	)

	p := d.Payment
	cols = append(cols,
		column{"forma_pagamento", text(p.Indicator)},
		column{"meio_pagamento", text(p.Method)},
		column{"valor_pagamento", numeric(p.Value)},
		column{"tipo_integracao_pagamento", text(p.IntegrationType)},
		column{"cnpj_instituicao_pagamento", text(p.InstitutionCNPJ)},
		column{"cnpj_intermediador", text(p.IntermediaryCNPJ)},
		column{"identificador_intermediador", text(p.IntermediaryID)},
		column{"numero_fatura", text(p.InvoiceNumber)},
		column{"valor_original_fatura", numeric(p.InvoiceOriginal)},
		column{"valor_desconto_fatura", numeric(p.InvoiceDiscount)},
		column{"valor_liquido_fatura", numeric(p.InvoiceNet)},
	)

	return append(cols,
		column{"informacoes_adicionais_fisco", text(d.TaxAuthorityInfo)},
		column{"informacoes_complementares", text(d.ComplementaryInfo)},
		column{"xml_completo", text(d.RawXML)},
	)
}

// itemColumns maps an item onto nfe_item, excluding nfe_id.
func itemColumns(it datalake.Item) []column {
	cols := []column{
		{"numero_item", integer(it.Number)},
		{"codigo_produto", text(it.Code)},
		{"codigo_ean", text(it.EAN)},
		{"codigo_ean_tributavel", text(it.TaxableEAN)},
		{"descricao", text(it.Description)},
		{"ncm", text(it.NCM)},
		{"nve", text(it.NVE)},
		{"cest", text(it.CEST)},
		{"ex_tipi", text(it.ExTIPI)},
		{"cfop", text(it.CFOP)},
		{"codigo_beneficio_fiscal", text(it.BenefitCode)},
		{"indicador_escala_relevante", text(it.RelevantScale)},
		{"cnpj_fabricante", text(it.ManufacturerCNPJ)},
		{"unidade_comercial", text(it.CommercialUnit)},
		{"quantidade_comercial", numeric(it.CommercialQuantity)},
		{"valor_unitario_comercial", numeric(it.CommercialUnitValue)},
		{"unidade_tributavel", text(it.TaxableUnit)},
		{"quantidade_tributavel", numeric(it.TaxableQuantity)},
		{"valor_unitario_tributavel", numeric(it.TaxableUnitValue)},
		{"valor_frete", numeric(it.Freight)},
		{"valor_seguro", numeric(it.Insurance)},
		{"valor_desconto", numeric(it.Discount)},
		{"valor_outras_despesas", numeric(it.OtherExpenses)},
		{"valor_total_item", numeric(it.Total)},
		{"indicador_total", text(it.TotalIndicator)},
		{"valor_aproximado_tributos", numeric(it.ApproximateTaxes)},
	}

	icms := it.ICMS
	cols = append(cols,
		column{"origem_mercadoria", text(icms.Origin)},
		column{"situacao_tributaria_icms", text(icms.CST)},
		column{"modalidade_bc_icms", text(icms.BaseModality)},
		column{"base_calculo_icms", numeric(icms.Base)},
		column{"aliquota_icms", numeric(icms.Rate)},
		column{"valor_icms", numeric(icms.Value)},
		column{"percentual_reducao_bc_icms", numeric(icms.BaseReduction)},
		column{"valor_icms_desonerado", numeric(icms.Exempted)},
		column{"motivo_desoneracao_icms", text(icms.ExemptionReason)},
		column{"modalidade_bc_icms_st", text(icms.STBaseModality)},
		column{"percentual_mva_st", numeric(icms.STMarkup)},
		column{"percentual_reducao_bc_icms_st", numeric(icms.STBaseReduction)},
		column{"base_calculo_icms_st", numeric(icms.STBase)},
		column{"aliquota_icms_st", numeric(icms.STRate)},
		column{"valor_icms_st", numeric(icms.STValue)},
		column{"base_calculo_fcp", numeric(icms.FCPBase)},
		column{"percentual_fcp", numeric(icms.FCPRate)},
		column{"valor_fcp", numeric(icms.FCPValue)},
		column{"base_calculo_fcp_st", numeric(icms.FCPSTBase)},
		column{"percentual_fcp_st", numeric(icms.FCPSTRate)},
		column{"valor_fcp_st", numeric(icms.FCPSTValue)},
		column{"quantidade_bc_mono", numeric(icms.MonoQuantity)},
		column{"valor_icms_mono", numeric(icms.MonoValue)},
	)

	ipi := it.IPI
	cols = append(cols,
		column{"situacao_tributaria_ipi", text(ipi.CST)},
		column{"classe_enquadramento_ipi", text(ipi.FrameworkClass)},
		column{"codigo_enquadramento_ipi", text(ipi.FrameworkCode)},
		column{"cnpj_produtor", text(ipi.ProducerCNPJ)},
		column{"codigo_selo_ipi", text(ipi.SealCode)},
		column{"quantidade_selo_ipi", integer(ipi.SealQuantity)},
		column{"base_calculo_ipi", numeric(ipi.Base)},
		column{"aliquota_ipi", numeric(ipi.Rate)},
		column{"valor_ipi", numeric(ipi.Value)},
	)

	cols = append(cols, contributionColumns("pis", it.PIS)...)
	cols = append(cols, contributionColumns("cofins", it.COFINS)...)

	rf := it.Reform
	cols = append(cols,
		column{"situacao_tributaria_ibscbs", text(rf.CST)},
		column{"classificacao_tributaria_ibscbs", text(rf.Classification)},
		column{"base_calculo_ibscbs", numeric(rf.Base)},
		column{"aliquota_ibs_uf", numeric(rf.StateRate)},
		column{"valor_ibs_uf", numeric(rf.StateValue)},
		column{"aliquota_ibs_mun", numeric(rf.CityRate)},
		column{"valor_ibs_mun", numeric(rf.CityValue)},
		column{"valor_ibs", numeric(rf.IBSValue)},
		column{"aliquota_cbs", numeric(rf.CBSRate)},
		column{"valor_cbs", numeric(rf.CBSValue)},
	)

	di := it.Import
	return append(cols,
		column{"numero_di", text(di.Number)},
		column{"data_di", timestamp(di.Date)},
		column{"local_desembaraco", text(di.ClearancePlace)},
		column{"uf_desembaraco", text(di.ClearanceState)},
		column{"data_desembaraco", timestamp(di.ClearanceDate)},
		column{"via_transporte", text(di.TransportRoute)},
		column{"valor_afrmm", numeric(di.AFRMM)},
		column{"forma_intermediacao", text(di.IntermediationForm)},
		column{"informacoes_adicionais", text(it.AdditionalInfo)},
	)
}

func contributionColumns(tax string, c datalake.Contribution) []column {
	return []column{
		{"situacao_tributaria_" + tax, text(c.CST)},
		{"base_calculo_" + tax, numeric(c.Base)},
		{"aliquota_" + tax, numeric(c.Rate)},
		{"valor_" + tax, numeric(c.Value)},
		{"quantidade_vendida_" + tax, numeric(c.QuantitySold)},
		{"aliquota_" + tax + "_reais", numeric(c.RateInReais)},
	}
}

func installmentColumns(in datalake.Installment) []column {
	return []column{
		{"numero_duplicata", text(in.Number)},
		{"data_vencimento", timestamp(in.DueDate)},
		{"valor_duplicata", numeric(in.Value)},
	}
}

// insertSQL builds an INSERT for cols after the leading fixed columns, returning
// the generated id.
func insertSQL(table string, fixed []string, cols []column) (string, []any) {
	names := make([]string, 0, len(fixed)+len(cols))
	names = append(names, fixed...)
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.name)
		args = append(args, c.value)
	}
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	return query, args
}

// patchSQL builds an UPDATE that only fills NULL columns. The first len(keys)
// placeholders are reserved for the WHERE clause, which also skips rows with
// nothing left to fill so the affected count reflects real patches.
func patchSQL(table string, keys []string, cols []column) (string, []any) {
	sets := make([]string, 0, len(cols))
	nulls := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	n := len(keys)
	for _, c := range cols {
		if c.value == nil {
			continue
		}
		if num, ok := c.value.(pgtype.Numeric); ok && !num.Valid {
			continue
		}
		n++
		sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, $%d)", c.name, c.name, n))
		nulls = append(nulls, c.name+" IS NULL")
		args = append(args, c.value)
	}
	if len(sets) == 0 {
		return "", nil
	}
	where := make([]string, len(keys))
	for i, k := range keys {
		where[i] = fmt.Sprintf("%s = $%d", k, i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s AND (%s)",
		table, strings.Join(sets, ", "), strings.Join(where, " AND "), strings.Join(nulls, " OR "))
	return query, args
}
