package ingest

import "strings"

// lowQualityThreshold marks extraction output whose printable-quality score
// falls below it as low confidence. The ingestion-acceptance decision stays
// with the caller.
const lowQualityThreshold = 0.3

// scoreTextQuality assesses extracted text on a 0..1 scale based on the mix
// of alphanumeric, printable and corrupted characters.
func scoreTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0.0
	}
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted int
	total := 0
	for _, r := range text {
		total++
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == ' ' || r == '\n' || r == '\t':
			printable++
		case r == '�':
			corrupted++
		case r >= 32 && r <= 126:
			printable++
		case r > 127 && !isCommonUnicodeChar(r):
			corrupted++
		default:
			printable++
		}
	}

	alphanumericRatio := float64(alphanumeric) / float64(total)
	printableRatio := float64(printable) / float64(total)
	corruptedRatio := float64(corrupted) / float64(total)

	score := printableRatio * 0.5
	if alphanumericRatio >= 0.3 {
		score += 0.4
	} else {
		score += alphanumericRatio
	}
	score -= corruptedRatio * 2.0
	if len(text) > 100 {
		score += 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func isCommonUnicodeChar(r rune) bool {
	common := []rune{'—', '“', '”', '‘', '’', '…', '€', '£', '¥', '©', '®', '™', '–', '•'}
	for _, c := range common {
		if r == c {
			return true
		}
	}
	// Letters outside ASCII are normal in non-English documents.
	return r >= 0x00C0 && r <= 0x2AFF
}
