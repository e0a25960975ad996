package dialogue

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nameWithPhoneRe = regexp.MustCompile(`^\s*([a-zA-Z][a-zA-Z\s]+),\s*(\+?\d[\d\s-]{6,})`)
	nameIntroRe     = regexp.MustCompile(`(?:my name is|i am)\s+([a-zA-Z\s]+)`)
	phoneRe         = regexp.MustCompile(`\+?\d[\d\s-]{7,}`)
	emailRe         = regexp.MustCompile(`[\w.%-]+@[\w.-]+`)
	bareNameRe      = regexp.MustCompile(`^[A-Za-z][A-Za-z\s]{2,40}$`)
	isoDateRe       = regexp.MustCompile(`20\d{2}-\d{2}-\d{2}`)
	nonDigitRe      = regexp.MustCompile(`\D`)
)

// extractEntities performs the pattern-based entity extraction used by the
// deterministic policy. Only fields actually found in the utterance appear
// in the returned map.
func extractEntities(messageText string) map[string]any {
	if messageText == "" {
		return map[string]any{}
	}

	extracted := map[string]any{}
	lowered := strings.ToLower(messageText)

	if m := nameWithPhoneRe.FindStringSubmatch(messageText); m != nil {
		extracted["patient_name"] = titleCase(strings.TrimSpace(m[1]))
		extracted["patient_phone"] = nonDigitRe.ReplaceAllString(m[2], "")
	}

	if m := nameIntroRe.FindStringSubmatch(lowered); m != nil {
		extracted["patient_name"] = titleCase(strings.TrimSpace(m[1]))
	}

	if m := phoneRe.FindString(messageText); m != "" {
		extracted["patient_phone"] = nonDigitRe.ReplaceAllString(m, "")
	}

	if m := emailRe.FindString(messageText); m != "" {
		extracted["patient_email"] = m
	}

	if _, ok := extracted["patient_name"]; !ok {
		if trimmed := strings.TrimSpace(messageText); bareNameRe.MatchString(trimmed) {
			extracted["patient_name"] = titleCase(trimmed)
		}
	}

	if m := isoDateRe.FindString(messageText); m != "" {
		extracted["preferred_date"] = m
	}

	switch {
	case strings.Contains(lowered, "morning"):
		extracted["preferred_time_window"] = "morning"
	case strings.Contains(lowered, "afternoon"):
		extracted["preferred_time_window"] = "afternoon"
	case strings.Contains(lowered, "evening"):
		extracted["preferred_time_window"] = "evening"
	}

	return extracted
}

// extractSlotSelection translates a bare numeric reply into a zero-based
// slot index. Returns -1 when the utterance is not a plain number.
func extractSlotSelection(messageText string) int {
	trimmed := strings.TrimSpace(messageText)
	if trimmed == "" {
		return -1
	}
	choice, err := strconv.Atoi(trimmed)
	if err != nil || choice < 0 {
		return -1
	}
	if choice == 0 {
		return 0
	}
	return choice - 1
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
