package service

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"alcyxob/program-generator/internal/domain"
)

// RiskLevel classifies how likely a free-text field is to carry prompt injection.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskFinding is one entry of a sanitization risk report.
type RiskFinding struct {
	Field           string    `json:"field"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	FlaggedPatterns []string  `json:"flaggedPatterns"`
}

const (
	filteredMarker = "[FILTERED]"
	maxFieldLength = 500
)

type injectionPattern struct {
	family string
	re     *regexp.Regexp
}

var injectionPatterns = []injectionPattern{
	{"instruction_override", regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|directions?)`)},
	{"instruction_override", regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|your|the)\s+\w+`)},
	{"instruction_override", regexp.MustCompile(`(?i)forget\s+(everything|all\s+(previous|prior)|your\s+(instructions|rules))`)},
	{"instruction_override", regexp.MustCompile(`(?i)new\s+instructions?\s*:`)},
	{"instruction_override", regexp.MustCompile(`(?i)override\s+(your\s+|the\s+)?(rules|instructions|system|settings)`)},

	{"role_hijack", regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the|my)\b`)},
	{"role_hijack", regexp.MustCompile(`(?i)\bact\s+as\s+(a|an|if|my)\b`)},
	{"role_hijack", regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`)},
	{"role_hijack", regexp.MustCompile(`(?i)\brole\s*:\s*(system|assistant)`)},
	{"role_hijack", regexp.MustCompile(`(?i)\[(system|assistant)\]`)},

	{"output_manipulation", regexp.MustCompile(`(?i)respond\s+(only\s+)?with\s+(json|the\s+following|exactly)`)},
	{"output_manipulation", regexp.MustCompile(`(?i)output\s+(the\s+following|raw\s+text|only|exactly)`)},
	{"output_manipulation", regexp.MustCompile(`(?i)say\s+exactly`)},

	{"prompt_extraction", regexp.MustCompile(`(?i)(print|show|reveal|repeat|display)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions)`)},
	{"prompt_extraction", regexp.MustCompile(`(?i)what\s+(is|are)\s+your\s+(system\s+)?(prompt|instructions)`)},

	{"delimiter_injection", regexp.MustCompile("(?i)```\\s*system")},
	{"delimiter_injection", regexp.MustCompile(`<\|im_(start|end)\|>`)},
	{"delimiter_injection", regexp.MustCompile(`\[\[[^\]]*\]\]`)},
	{"delimiter_injection", regexp.MustCompile(`(?i)"role"\s*:\s*"(system|assistant)"`)},
}

// Residual tokens that could break the prompt's own structure.
var (
	fenceRolePattern = regexp.MustCompile("```(\\w)")
	roleTagPattern   = regexp.MustCompile(`(?i)<(/?)(system|assistant|user)`)
	roleKeyPattern   = regexp.MustCompile(`(?i)"role"\s*:`)
)

// suspiciousWords raise a field to medium risk when two or more appear.
var suspiciousWords = []string{
	"ignore", "disregard", "forget", "override", "bypass", "jailbreak",
	"dan mode", "developer mode", "sudo", "admin", "root access",
}

// SanitizeText neutralizes one free-text value and classifies it. It never
// rejects input.
func SanitizeText(s string) (string, RiskLevel, []string) {
	s = stripControl(s)
	if utf8.RuneCountInString(s) > maxFieldLength {
		s = string([]rune(s)[:maxFieldLength])
	}

	var flagged []string
	seen := make(map[string]bool)
	out := s
	for _, p := range injectionPatterns {
		if !p.re.MatchString(out) {
			continue
		}
		if !seen[p.family] {
			seen[p.family] = true
			flagged = append(flagged, p.family)
		}
		out = p.re.ReplaceAllString(out, filteredMarker)
	}

	out = fenceRolePattern.ReplaceAllString(out, "``` $1")
	out = roleTagPattern.ReplaceAllString(out, "&lt;$1$2")
	out = roleKeyPattern.ReplaceAllString(out, `"role" :`)

	risk := RiskLow
	switch {
	case len(flagged) > 0:
		risk = RiskHigh
	case countSuspicious(s) >= 2:
		risk = RiskMedium
		flagged = append(flagged, "suspicious_keywords")
	}
	return strings.TrimSpace(out), risk, flagged
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func countSuspicious(s string) int {
	lower := strings.ToLower(s)
	n := 0
	for _, w := range suspiciousWords {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// SanitizeProfile returns a copy of the profile with every free-text field
// neutralized, plus a report entry for each non-empty field inspected.
func SanitizeProfile(p domain.UserProfile) (domain.UserProfile, []RiskFinding) {
	var report []RiskFinding
	clean := func(field, v string) string {
		if strings.TrimSpace(v) == "" {
			return v
		}
		out, risk, patterns := SanitizeText(v)
		report = append(report, RiskFinding{Field: field, RiskLevel: risk, FlaggedPatterns: patterns})
		return out
	}
	cleanAll := func(field string, vs []string) []string {
		if len(vs) == 0 {
			return vs
		}
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = clean(fmt.Sprintf("%s[%d]", field, i), v)
		}
		return out
	}

	p.TrainingGoal = clean("trainingGoal", p.TrainingGoal)
	p.AdditionalInfo = clean("additionalInfo", p.AdditionalInfo)
	p.Injuries = cleanAll("injuries", p.Injuries)
	p.Preferences = cleanAll("preferences", p.Preferences)
	p.Environment.Primary = clean("environment.primary", p.Environment.Primary)
	p.Environment.Secondary = clean("environment.secondary", p.Environment.Secondary)
	p.Environment.Limitations = cleanAll("environment.limitations", p.Environment.Limitations)
	p.Equipment.Type = clean("equipment.type", p.Equipment.Type)
	p.Equipment.Available = cleanAll("equipment.available", p.Equipment.Available)
	if p.Style != nil {
		p.Style = &domain.Style{
			Primary:   clean("style.primary", p.Style.Primary),
			Secondary: clean("style.secondary", p.Style.Secondary),
		}
	}
	return p, report
}

// HighestRisk returns the most severe level in a report.
func HighestRisk(report []RiskFinding) RiskLevel {
	highest := RiskLow
	for _, f := range report {
		switch {
		case f.RiskLevel == RiskHigh:
			return RiskHigh
		case f.RiskLevel == RiskMedium:
			highest = RiskMedium
		}
	}
	return highest
}

// logSuspiciousInput writes an audit line for every medium or high finding.
func logSuspiciousInput(logger *slog.Logger, userID string, report []RiskFinding) {
	for _, f := range report {
		if f.RiskLevel == RiskLow {
			continue
		}
		logger.Warn("[SECURITY] suspicious profile input",
			"userId", userID,
			"field", f.Field,
			"riskLevel", f.RiskLevel,
			"patterns", f.FlaggedPatterns)
	}
}
