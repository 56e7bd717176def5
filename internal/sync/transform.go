package sync

import "strings"

// NormalizeProbability converts a CRM probability to the ERP's 0-100
// scale. Fractions (0 < p <= 1) are treated as ratios and scaled up;
// everything is clamped to [0, 100]. A nil input yields ok=false and the
// field is left unset on the ERP side.
func NormalizeProbability(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v := *p
	if v > 0 && v <= 1 {
		v *= 100
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return v, true
}

// NormalizeLocale maps a CRM language value to an ERP locale code.
// Unknown values yield ok=false so the ERP default applies.
func NormalizeLocale(lang string) (string, bool) {
	s := strings.TrimSpace(lang)
	if s == "" {
		return "", false
	}

	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "de", "german", "deutsch", "de_de", "de_at", "de_ch":
		return "de_DE", true
	case "en", "english", "en_us", "en_gb":
		return "en_US", true
	}

	// Already a locale code such as fr_FR: pass through.
	if len(s) == 5 && s[2] == '_' {
		return s[:2] + "_" + strings.ToUpper(s[3:]), true
	}

	return "", false
}
