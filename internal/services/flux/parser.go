package flux

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

// Line markers of the package listing.
const (
	MarkerDomestic = "🇨🇳"
	MarkerSpecial  = "📺"
	MarkerOther    = "🌎"
	MarkerEntry    = "🔹"

	unlimitedToken = "无限"
)

var categoryMarkers = []string{MarkerDomestic, MarkerSpecial, MarkerOther}

var (
	entryRe = regexp.MustCompile(`\[([^\]]+)\](.+)`)
	usedRe  = regexp.MustCompile(`已用([\d.]+)([KMGT]?B)`)
	totalRe = regexp.MustCompile(`/共([\d.]+)([KMGT]?B)`)
)

// Parse turns the package listing into entries, in input order.
// Unrecognized lines are skipped; Parse never fails.
func Parse(text string) []models.PackageEntry {
	var entries []models.PackageEntry
	category := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isCategory(line) {
			category = line
			continue
		}

		if !strings.HasPrefix(line, MarkerEntry) {
			continue
		}

		if entry, ok := parseEntry(line); ok {
			entry.Category = category
			entries = append(entries, entry)
		}
	}

	return entries
}

func isCategory(line string) bool {
	for _, m := range categoryMarkers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}

func parseEntry(line string) (models.PackageEntry, bool) {
	match := entryRe.FindStringSubmatch(line)
	if match == nil {
		return models.PackageEntry{}, false
	}
	name, desc := match[1], match[2]

	if entry, ok := parseMetered(name, desc); ok {
		return entry, true
	}

	if strings.Contains(desc, unlimitedToken) {
		return models.PackageEntry{
			Name:  name,
			Kind:  models.PackageUnlimited,
			Label: desc,
		}, true
	}

	return models.PackageEntry{}, false
}

func parseMetered(name, desc string) (models.PackageEntry, bool) {
	used := usedRe.FindStringSubmatch(desc)
	total := totalRe.FindStringSubmatch(desc)
	if used == nil || total == nil {
		return models.PackageEntry{}, false
	}

	usedValue, err := strconv.ParseFloat(used[1], 64)
	if err != nil {
		return models.PackageEntry{}, false
	}
	totalValue, err := strconv.ParseFloat(total[1], 64)
	if err != nil {
		return models.PackageEntry{}, false
	}

	usedKB := ToKB(usedValue, used[2])
	totalKB := ToKB(totalValue, total[2])

	percent := 0.0
	if totalKB > 0 {
		percent = usedKB / totalKB * 100
	}

	return models.PackageEntry{
		Name:       name,
		Kind:       models.PackageMetered,
		UsedValue:  usedValue,
		UsedUnit:   used[2],
		TotalValue: totalValue,
		TotalUnit:  total[2],
		Percent:    percent,
		Remaining:  totalValue - FromKB(usedKB, total[2]),
	}, true
}
