package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are audit metadata fields holding external receipt or bank
// references that must not appear in clear text.
var sensitiveKeys = map[string]struct{}{
	"reference":  {},
	"receipt_no": {},
	"bank_ref":   {},
}

// MaskReference redacts a payment reference while keeping a minimal suffix
// for reconciliation.
func MaskReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskMetadata returns a copy of the input with sensitive references masked.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, sensitive := sensitiveKeys[trimmedKey]; sensitive {
			if s, ok := value.(string); ok {
				masked[trimmedKey] = MaskReference(s)
				continue
			}
		}
		masked[trimmedKey] = value
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}
