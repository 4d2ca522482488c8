package transformer

import (
	"strings"

	"auditorfiscal/datalake/internal/core/fiscal"
)

// deriveStatus maps a SEFAZ protocol status code (cStat) to the document status.
// It returns nil when the document carries no code.
func deriveStatus(code string) *fiscal.Status {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	var s fiscal.Status
	switch code {
	case "100":
		s = fiscal.StatusAuthorized
	case "101", "151", "155":
		s = fiscal.StatusCancelled
	case "110", "205", "301", "302", "303":
		s = fiscal.StatusDenied
	case "217", "218":
		s = fiscal.StatusVoid
	default:
		s = fiscal.StatusRejected
	}
	return &s
}
