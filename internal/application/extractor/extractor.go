package extractor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"auditorfiscal/datalake/internal/core/fiscal"
	"auditorfiscal/datalake/internal/core/nfe"
)

// Options configures an Extractor.
type Options struct {
	// CompanyCNPJ is the audited company. When set, it decides the movement
	// direction before the declared operation type does.
	CompanyCNPJ string
}

// Extractor parses fiscal XML into the nested nfe.Extraction structure.
type Extractor struct {
	log         *slog.Logger
	companyCNPJ string
}

// New creates an Extractor.
func New(log *slog.Logger, opts Options) *Extractor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{
		log:         log,
		companyCNPJ: fiscal.NormalizeCNPJ(opts.CompanyCNPJ),
	}
}

// ExtractFile reads and parses the document at path.
func (e *Extractor) ExtractFile(path string) (*nfe.Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	ext, err := e.Extract(raw)
	if err != nil {
		var pe *fiscal.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	ext.SourcePath = path
	return ext, nil
}

// Extract parses a fiscal XML body. It fails with a *fiscal.ParseError when the
// body is not well formed or its root is not an NF-e, NFC-e or CT-e schema.
func (e *Extractor) Extract(raw []byte) (*nfe.Extraction, error) {
	body, err := normalizeEncoding(raw)
	if err != nil {
		return nil, &fiscal.ParseError{Reason: "codificação inválida", Err: err}
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charsetReader

	root, err := firstElement(dec)
	if err != nil {
		return nil, &fiscal.ParseError{Reason: "xml malformado", Err: err}
	}

	var ext *nfe.Extraction
	switch kindOf(root.Name) {
	case fiscal.KindNFe:
		ext, err = e.decodeNFe(dec, root)
	case fiscal.KindCTe:
		ext, err = e.decodeCTe(dec, root)
	default:
		return nil, &fiscal.ParseError{Reason: fmt.Sprintf("raiz <%s> não reconhecida", root.Name.Local), Err: fiscal.ErrUnknownDocument}
	}
	if err != nil {
		return nil, err
	}

	ext.RawXML = body
	e.log.Debug("Document extracted",
		"access_key", ext.AccessKey,
		"kind", ext.Kind,
		"items", len(ext.Items),
		"movement", ext.Movement,
	)
	return ext, nil
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, errors.New("documento vazio")
			}
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

// kindOf classifies a root element. NFC-e shares the NF-e schema and is told
// apart later by its model number.
func kindOf(name xml.Name) fiscal.Kind {
	switch name.Local {
	case "nfeProc", "NFe":
		return fiscal.KindNFe
	case "cteProc", "CTe":
		return fiscal.KindCTe
	}
	ns := strings.ToLower(name.Space)
	switch {
	case strings.Contains(ns, "/nfe"):
		return fiscal.KindNFe
	case strings.Contains(ns, "/cte"):
		return fiscal.KindCTe
	}
	return ""
}

func (e *Extractor) decodeNFe(dec *xml.Decoder, root xml.StartElement) (*nfe.Extraction, error) {
	var (
		inf      *infNFe
		protocol *nfe.Protocol
	)

	switch root.Name.Local {
	case "nfeProc":
		var proc nfeProc
		if err := dec.DecodeElement(&proc, &root); err != nil {
			return nil, &fiscal.ParseError{Reason: "xml malformado", Err: err}
		}
		inf, protocol = proc.NFe.Inf, proc.Protocol
	case "NFe":
		var doc nfeDocument
		if err := dec.DecodeElement(&doc, &root); err != nil {
			return nil, &fiscal.ParseError{Reason: "xml malformado", Err: err}
		}
		inf = doc.Inf
	default:
		var batch nfeBatch
		if err := dec.DecodeElement(&batch, &root); err != nil {
			return nil, &fiscal.ParseError{Reason: "xml malformado", Err: err}
		}
		if len(batch.Documents) > 0 {
			inf = batch.Documents[0].Inf
		}
		protocol = batch.Protocol
	}

	if inf == nil {
		return nil, &fiscal.ParseError{Reason: "estrutura de NF-e inválida: infNFe ausente"}
	}

	key := strings.TrimPrefix(strings.TrimSpace(inf.ID), "NFe")
	if key == "" && protocol != nil {
		key = strings.TrimSpace(protocol.NFeKey)
	}
	if key == "" {
		return nil, &fiscal.ParseError{Reason: "chave de acesso ausente"}
	}

	kind := fiscal.KindNFe
	if strings.TrimSpace(inf.Identification.Model) == fiscal.ModelNFCe {
		kind = fiscal.KindNFCe
	}

	ext := &nfe.Extraction{
		Kind:           kind,
		AccessKey:      key,
		Version:        inf.Version,
		Identification: inf.Identification,
		Issuer:         inf.Issuer,
		Recipient:      inf.Recipient,
		Items:          inf.Items,
		Totals:         inf.Totals,
		Transport:      inf.Transport,
		Billing:        inf.Billing,
		Payment:        inf.Payment,
		Intermediary:   inf.Intermediary,
		AdditionalInfo: inf.AdditionalInfo,
		Protocol:       protocol,
	}
	ext.Movement = fiscal.ClassifyMovement(
		e.companyCNPJ,
		ext.Issuer.CNPJ,
		ext.Recipient.TaxID(),
		ext.Identification.OperationType,
	)
	return ext, nil
}

func (e *Extractor) decodeCTe(dec *xml.Decoder, root xml.StartElement) (*nfe.Extraction, error) {
	var (
		inf      *infCTe
		protocol *nfe.Protocol
	)

	if root.Name.Local == "CTe" {
		var doc cteDocument
		if err := dec.DecodeElement(&doc, &root); err != nil {
			return nil, &fiscal.ParseError{Reason: "xml malformado", Err: err}
		}
		inf = doc.Inf
	} else {
		var proc cteProc
		if err := dec.DecodeElement(&proc, &root); err != nil {
			return nil, &fiscal.ParseError{Reason: "xml malformado", Err: err}
		}
		inf, protocol = proc.CTe.Inf, proc.Protocol
	}

	if inf == nil {
		return nil, &fiscal.ParseError{Reason: "estrutura de CT-e inválida: infCte ausente"}
	}

	key := strings.TrimPrefix(strings.TrimSpace(inf.ID), "CTe")
	if key == "" && protocol != nil {
		key = strings.TrimSpace(protocol.CTeKey)
	}
	if key == "" {
		return nil, &fiscal.ParseError{Reason: "chave de acesso ausente"}
	}

	ide := inf.Identification
	operationType := fiscal.OperationTypeFromCFOP(ide.CFOP)

	ext := &nfe.Extraction{
		Kind:      fiscal.KindCTe,
		AccessKey: key,
		Version:   inf.Version,
		Identification: nfe.Identification{
			StateCode:       ide.StateCode,
			NumericCode:     ide.NumericCode,
			OperationNature: ide.OperationNature,
			Model:           ide.Model,
			Series:          ide.Series,
			Number:          ide.Number,
			IssuedAt:        ide.IssuedAt,
			OperationType:   operationType,
			PrintType:       ide.PrintType,
			EmissionType:    ide.EmissionType,
			CheckDigit:      ide.CheckDigit,
			Environment:     ide.Environment,
			EmissionProcess: ide.EmissionProcess,
			ProcessVersion:  ide.ProcessVersion,
		},
		Issuer:       inf.Issuer,
		Recipient:    inf.Recipient,
		DocumentICMS: inf.ICMS,
		Protocol:     protocol,
	}
	ext.Totals.ICMS.DocumentTotal = inf.Values.Total
	if g := inf.ICMS.Active(); g != nil {
		ext.Totals.ICMS.ICMSBase = g.Base
		ext.Totals.ICMS.ICMSValue = g.Value
	}
	if inf.Observations != "" {
		ext.AdditionalInfo = &nfe.AdditionalInfo{Complementary: inf.Observations}
	}

	ext.Movement = fiscal.ClassifyMovement(
		e.companyCNPJ,
		ext.Issuer.CNPJ,
		ext.Recipient.TaxID(),
		operationType,
	)
	return ext, nil
}
