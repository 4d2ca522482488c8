package validator

import (
	"strings"

	"auditorfiscal/datalake/internal/core/fiscal"
)

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Entry CFOPs that grant ICMS credit.
var icmsCreditCFOPs = set(
	"1101", "1102", "1111", "1113", "1116", "1117", "1118", "1120", "1121", "1122",
	"1126", "1128", "1131", "1132", "1135", "1401", "1403", "1551", "1552", "1553",
	"2101", "2102", "2111", "2113", "2116", "2117", "2118", "2120", "2121", "2122",
	"2126", "2128", "2131", "2132", "2135", "2401", "2403", "2551", "2552", "2553",
	"3101", "3102", "3126", "3127", "3128", "3551", "3553",
)

// Entry CFOPs of industrial inputs, the only ones that grant IPI credit.
var ipiCreditCFOPs = set(
	"1101", "1102", "1111", "1113", "1116", "1117", "1118", "1120", "1121", "1122",
	"1126", "2101", "2102", "2111", "2113", "2116", "2117", "2118", "2120", "2121",
	"2122", "2126", "3101", "3102", "3126", "3127",
)

// pisCofinsCreditPrefixes are the CFOP prefixes of goods and inputs acquired for
// resale or production.
var pisCofinsCreditPrefixes = []string{"110", "111", "120", "121", "210", "211", "220", "221"}

var (
	icmsCreditCST      = set("00", "10", "20", "51", "70", "90")
	ipiCreditCST       = set("00", "01", "02", "03", "04", "05", "49", "50", "51", "52", "53", "54", "55")
	pisCofinsCreditCST = set("50", "51", "52", "53", "54", "55", "56", "60", "61", "62", "63", "64", "65", "66")
)

// lastTwo drops the origin digit of a three digit ICMS code.
func lastTwo(cst string) string {
	if len(cst) < 2 {
		return cst
	}
	return cst[len(cst)-2:]
}

// classify applies the credit decision table to one tax line of an entry item. A
// CFOP outside the creditable set makes the credit undue; a creditable CFOP with a
// situation code outside the creditable set leaves it subject to review. The bool
// is false for tax types without credit rules.
func classify(cfop string, line fiscal.TaxLine) (fiscal.CreditClass, bool) {
	var cfopOK, cstOK bool

	switch line.Type {
	case fiscal.TaxICMS:
		cfopOK = icmsCreditCFOPs[cfop]
		cstOK = icmsCreditCST[lastTwo(line.CST)]
	case fiscal.TaxIPI:
		cfopOK = ipiCreditCFOPs[cfop]
		cstOK = ipiCreditCST[lastTwo(line.CST)]
	case fiscal.TaxPIS, fiscal.TaxCOFINS:
		for _, prefix := range pisCofinsCreditPrefixes {
			if strings.HasPrefix(cfop, prefix) {
				cfopOK = true
				break
			}
		}
		cstOK = pisCofinsCreditCST[line.CST]
	default:
		return "", false
	}

	switch {
	case !cfopOK:
		return fiscal.CreditNonCreditable, true
	case !cstOK:
		return fiscal.CreditReview, true
	default:
		return fiscal.CreditCreditable, true
	}
}

// ValidCFOPNCM reports whether a CFOP and an NCM are well formed.
func ValidCFOPNCM(cfop, ncm string) bool {
	return len(cfop) == 4 && (len(ncm) == 8 || len(ncm) == 10)
}

// ValidCST reports whether a situation code has the length its tax expects: two or
// three digits for ICMS (CST or CSOSN), two for IPI, PIS and COFINS.
func ValidCST(cst string, t fiscal.TaxType) bool {
	if cst == "" {
		return false
	}
	switch t {
	case fiscal.TaxICMS:
		return len(cst) == 2 || len(cst) == 3
	case fiscal.TaxIPI, fiscal.TaxPIS, fiscal.TaxCOFINS:
		return len(cst) == 2
	default:
		return true
	}
}
