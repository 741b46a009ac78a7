package messaging

import "strings"

// sanitizePhone strips everything except digits.
func sanitizePhone(value string) string {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// NormalizeE164 ensures the value begins with + and only contains digits afterward.
// Bare 10-digit US numbers get a leading +1.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		return "+1" + digits
	}
	return "+" + digits
}

// ConversationPhone converts a webhook sender number into the conversation key:
// strip the +1 country prefix (or a bare +) and keep the remaining digits.
func ConversationPhone(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "+1") {
		value = value[2:]
	} else if strings.HasPrefix(value, "+") {
		value = value[1:]
	}
	return sanitizePhone(value)
}

// ExtractDigits pulls a 10-digit US number out of free text. An 11-digit
// sequence with a leading 1 is reduced to its trailing 10 digits. Any other
// digit count is rejected.
func ExtractDigits(value string) (string, bool) {
	digits := sanitizePhone(value)
	switch {
	case len(digits) == 10:
		return digits, true
	case len(digits) == 11 && digits[0] == '1':
		return digits[1:], true
	default:
		return "", false
	}
}

// ExtractCallbackDigits pulls a callback number out of free text. Anything
// with at least ten digits counts, and the last ten win, so country prefixes
// and leading chatter ("call me at 1-317-555-0147") don't reject the message.
func ExtractCallbackDigits(value string) (string, bool) {
	digits := sanitizePhone(value)
	if len(digits) < 10 {
		return "", false
	}
	return digits[len(digits)-10:], true
}

// FormatDisplay renders a phone number for customer-facing text: (317) 661-1188.
func FormatDisplay(value string) string {
	digits, ok := ExtractDigits(value)
	if !ok {
		return value
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

// FormatStorage renders a phone number in the persisted convention: 317-661-1188.
func FormatStorage(value string) string {
	digits, ok := ExtractDigits(value)
	if !ok {
		return value
	}
	return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
}
