package services

import (
	"regexp"
	"strings"

	"sunny-backend/internal/models"
)

// Deterministic fallback extraction for fields the model's structured output
// missed. Every heuristic here is an explicit ordered list: earlier entries
// win, and evaluation stops at the first acceptable match.

// Phone patterns in priority order. The bare digit run is a last resort.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:\+?62|0)[\s.\-]?8\d(?:[\s.\-]?\d){7,11}`),
	regexp.MustCompile(`\d{10,13}`),
}

var nonDigit = regexp.MustCompile(`\D`)

// normalizePhone strips separators and rewrites a leading 62/+62 country code
// to a single leading 0. Returns "" when the result is not 10-14 digits.
func normalizePhone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "62") {
		digits = "0" + digits[2:]
	}
	if len(digits) < 10 || len(digits) > 14 {
		return ""
	}
	return digits
}

func extractPhone(text string) string {
	for _, p := range phonePatterns {
		if m := p.FindString(text); m != "" {
			if norm := normalizePhone(m); norm != "" {
				return norm
			}
		}
	}
	return ""
}

// Greetings, confirmations and product nouns that must never be mistaken for
// a customer name.
var nameStopwords = map[string]bool{
	"halo": true, "hai": true, "hallo": true, "pagi": true, "siang": true,
	"sore": true, "malam": true, "selamat": true, "kak": true, "pak": true,
	"bu": true, "mas": true, "mbak": true, "gan": true, "min": true,
	"ok": true, "oke": true, "iya": true, "ya": true, "siap": true,
	"sudah": true, "belum": true,
	"mau": true, "ingin": true, "minta": true, "tolong": true, "bisa": true,
	"mobil": true, "motor": true, "unit": true, "promo": true, "harga": true,
	"service": true, "servis": true, "booking": true, "test": true,
	"drive": true, "sparepart": true, "info": true, "terima": true,
	"kasih": true, "makasih": true, "customer": true,
}

// Name patterns in priority order.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)nama\s+saya\s+([A-Za-z]+(?:\s+[A-Za-z]+)?)`),
	regexp.MustCompile(`(?i)\bsaya\s+([A-Za-z]+)`),
	regexp.MustCompile(`(?i)\bpanggil\s+(?:saja\s+)?([A-Za-z]+)`),
	regexp.MustCompile(`^\s*([A-Z][a-z]+)\s*(?:,|(?:\+?62|0)\d{8,12})`),
	regexp.MustCompile(`(?i)nama\s*:\s*([A-Za-z]+(?:\s+[A-Za-z]+)?)`),
}

// cleanName strips stopword tokens from a candidate and validates what is
// left: at least two characters, not numeric, not itself a stopword.
func cleanName(candidate string) string {
	var kept []string
	for _, f := range strings.Fields(candidate) {
		f = strings.Trim(f, ",.!?")
		if f == "" || nameStopwords[strings.ToLower(f)] {
			continue
		}
		kept = append(kept, f)
	}

	name := strings.TrimSpace(strings.Join(kept, " "))
	if len(name) < 2 || nameStopwords[strings.ToLower(name)] {
		return ""
	}
	if nonDigit.ReplaceAllString(name, "") == name {
		return "" // purely numeric
	}
	return name
}

func extractName(text string) string {
	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if name := cleanName(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

// Request-type keyword buckets, checked in this fixed priority order.
var requestTypeBuckets = []struct {
	label    string
	keywords []string
}{
	{models.TypeServiceBooking, []string{"servis", "service", "ganti oli", "tune up", "perbaikan"}},
	{models.TypeTestDrive, []string{"test drive", "tes drive", "test-drive", "coba mobil"}},
	{models.TypeSparepartInfo, []string{"sparepart", "spare part", "suku cadang", "part"}},
	{models.TypeSalesInquiry, []string{"beli", "harga", "kredit", "cicilan", "dp"}},
}

func inferRequestType(text string) string {
	lower := strings.ToLower(text)
	for _, bucket := range requestTypeBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.label
			}
		}
	}
	return ""
}

// Model names in match-priority order; longer names come before their
// prefixes so "Pajero Sport" is not reported as "Pajero".
var vehicleModels = []string{
	"Pajero Sport",
	"Pajero",
	"Xpander Cross",
	"Xpander",
	"Xforce",
	"Triton",
	"Outlander",
	"Mirage",
	"L300",
	"Colt",
}

func extractVehicle(text string) string {
	lower := strings.ToLower(text)
	for _, model := range vehicleModels {
		if strings.Contains(lower, strings.ToLower(model)) {
			return model
		}
	}
	return ""
}

// Indonesian plate format: 1-2 letters, 1-4 digits, 1-3 letters.
var platePattern = regexp.MustCompile(`(?i)\b([A-Z]{1,2})\s?(\d{1,4})\s?([A-Z]{1,3})\b`)

func extractPlate(text string) string {
	m := platePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1] + " " + m[2] + " " + m[3])
}

// extractHonorificName recovers a name from the assistant's own reply
// ("Kak Budi"). Lowest-confidence source, used only when nothing else found
// a name.
var honorificPattern = regexp.MustCompile(`\b(?:Kak|Pak|Bu|Bapak|Ibu|Mas|Mbak)\s+([A-Z][a-z]+)`)

func extractHonorificName(reply string) string {
	m := honorificPattern.FindStringSubmatch(reply)
	if m == nil {
		return ""
	}
	if nameStopwords[strings.ToLower(m[1])] {
		return ""
	}
	return m[1]
}

// fallbackExtract fills in fields the accumulated record is still missing
// from the raw user message. Known fields are never touched.
func fallbackExtract(text string, data models.CollectedData) models.CollectedData {
	if !hasText(data.Phone) {
		if phone := extractPhone(text); phone != "" {
			data.Phone = &phone
		}
	}
	if !hasText(data.Name) {
		if name := extractName(text); name != "" {
			data.Name = &name
		}
	}
	if !hasText(data.RequestType) {
		if rt := inferRequestType(text); rt != "" {
			data.RequestType = &rt
		}
	}
	if !hasText(data.Vehicle) {
		if vehicle := extractVehicle(text); vehicle != "" {
			data.Vehicle = &vehicle
		}
	}
	if !hasText(data.Plat) {
		if plate := extractPlate(text); plate != "" {
			data.Plat = &plate
		}
	}
	return data
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
