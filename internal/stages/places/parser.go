package places

import (
	"math"
	"strconv"
	"strings"

	"github.com/pribylovaa/myoutfood/internal/models"
)

// Parse разбирает свободный текст LLM в список ресторанов.
//
// Правила (best effort):
//   - блоки разделены пустыми строками;
//   - строка блока делится по первому ':' на ключ и значение;
//   - ключ сравнивается без учёта регистра после удаления markdown-маркеров
//     ("-", "*", "•", "1.", "**");
//   - неизвестные ключи игнорируются;
//   - блок без "Restaurant Name" отбрасывается.
func Parse(text string) []models.PlaceSuggestion {
	out := make([]models.PlaceSuggestion, 0, 3)

	for _, block := range splitBlocks(text) {
		var (
			p    models.PlaceSuggestion
			seen bool
		)

		for _, line := range block {
			rawKey, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}

			value = cleanValue(value)

			switch normalizeKey(rawKey) {
			case "restaurant name", "name":
				p.Name = value
				seen = p.Name != ""
			case "cuisine type", "cuisine":
				p.CuisineType = value
			case "location":
				p.LocationText = value
				p.Coordinates = parseCoordinates(value)
			case "proximity":
				p.Proximity = value
			case "rating":
				p.Rating = value
			case "brief description", "description":
				p.Description = value
			}
		}

		if seen {
			out = append(out, p)
		}
	}

	return out
}

func splitBlocks(text string) [][]string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		blocks [][]string
		cur    []string
	)

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}

		cur = append(cur, line)
	}

	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}

	return blocks
}

func normalizeKey(k string) string {
	k = strings.ReplaceAll(k, "**", "")
	k = strings.ReplaceAll(k, "__", "")
	k = strings.TrimSpace(k)
	k = strings.TrimLeft(k, "-*•# ")

	// Нумерация вида "1." / "2)".
	if i := strings.IndexAny(k, ".)"); i > 0 && i <= 3 {
		if _, err := strconv.Atoi(k[:i]); err == nil {
			k = k[i+1:]
		}
	}

	return strings.ToLower(strings.TrimSpace(k))
}

func cleanValue(v string) string {
	v = strings.ReplaceAll(v, "**", "")
	return strings.TrimSpace(v)
}

// parseCoordinates разбирает "lat, lng" (в т.ч. в скобках). nil при любой ошибке.
func parseCoordinates(v string) *models.Coordinates {
	v = strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "()[]"))

	latS, lngS, ok := strings.Cut(v, ",")
	if !ok {
		return nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil || !finite(lat) || lat < -90 || lat > 90 {
		return nil
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err != nil || !finite(lng) || lng < -180 || lng > 180 {
		return nil
	}

	return &models.Coordinates{Lat: lat, Lng: lng}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
