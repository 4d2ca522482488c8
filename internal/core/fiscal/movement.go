package fiscal

import "strings"

var cnpjPunctuation = strings.NewReplacer(".", "", "/", "", "-", "")

// NormalizeCNPJ strips the punctuation of a formatted CNPJ.
func NormalizeCNPJ(cnpj string) string {
	return cnpjPunctuation.Replace(strings.TrimSpace(cnpj))
}

// ClassifyMovement decides whether a document enters or leaves the audited company.
//
// The company CNPJ wins when it matches the recipient (entry) or the issuer (exit).
// Otherwise the declared operation type is used ("0" entry, "1" exit), and documents
// that still cannot be placed are treated as entries.
func ClassifyMovement(companyCNPJ, issuerCNPJ, recipientCNPJ, operationType string) Movement {
	company := NormalizeCNPJ(companyCNPJ)
	if company != "" {
		if NormalizeCNPJ(recipientCNPJ) == company {
			return MovementEntry
		}
		if NormalizeCNPJ(issuerCNPJ) == company {
			return MovementExit
		}
	}

	switch strings.TrimSpace(operationType) {
	case "0":
		return MovementEntry
	case "1":
		return MovementExit
	}
	return MovementEntry
}

// OperationTypeFromCFOP maps a CFOP to an operation type code: CFOPs starting with
// 1, 2 or 3 are inbound ("0"), anything else outbound ("1").
func OperationTypeFromCFOP(cfop string) string {
	if cfop != "" && strings.ContainsRune("123", rune(cfop[0])) {
		return "0"
	}
	return "1"
}
