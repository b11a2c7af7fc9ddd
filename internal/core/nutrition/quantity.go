package nutrition

import (
	"regexp"
	"strconv"
	"strings"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/pkg/common"
)

const (
	ounceGrams = 28.35
	poundGrams = 453.6
)

// 輸入先經 NormalizeText，因此單位只需 ASCII 形式
var quantityPattern = regexp.MustCompile(`(\d+\s*/\s*\d+|\d+(?:[.,]\d+)?)\s*(kg|quilos?|gramas?|grs?|g|ml|litros?|lbs?|l|colheres|colher|c\.\s*sopa|chavenas|chavena|xicaras|xicara|cups?|tablespoons?|tbsp|tbs|teaspoons?|tsp|dentes|dente|cloves?|fatias|fatia|slices?|unidades|unidade|un|ovos|ovo|eggs?|oz)?\b`)

var unitAliases = map[string]Unit{
	"kg": UnitKilogram, "quilo": UnitKilogram, "quilos": UnitKilogram,
	"g": UnitGram, "gr": UnitGram, "grs": UnitGram, "grama": UnitGram, "gramas": UnitGram,
	"ml": UnitMilliliter,
	"l": UnitLiter, "litro": UnitLiter, "litros": UnitLiter,
	"lb": UnitPound, "lbs": UnitPound,
	"oz": UnitOunce,
	"colher": UnitTablespoon, "colheres": UnitTablespoon, "tablespoon": UnitTablespoon,
	"tablespoons": UnitTablespoon, "tbsp": UnitTablespoon, "tbs": UnitTablespoon,
	"teaspoon": UnitTeaspoon, "teaspoons": UnitTeaspoon, "tsp": UnitTeaspoon,
	"chavena": UnitCup, "chavenas": UnitCup, "xicara": UnitCup, "xicaras": UnitCup,
	"cup": UnitCup, "cups": UnitCup,
	"dente": UnitClove, "dentes": UnitClove, "clove": UnitClove, "cloves": UnitClove,
	"fatia": UnitSlice, "fatias": UnitSlice, "slice": UnitSlice, "slices": UnitSlice,
	"unidade": UnitPiece, "unidades": UnitPiece, "un": UnitPiece,
	"ovo": UnitEgg, "ovos": UnitEgg, "egg": UnitEgg, "eggs": UnitEgg,
}

// 名稱中需丟棄的介系詞、形容詞與份量描述
var nameStopwords = map[string]bool{
	"de": true, "do": true, "da": true, "dos": true, "das": true, "of": true, "the": true,
	"a": true, "o": true, "e": true, "com": true, "sem": true, "em": true, "and": true,
	"fresco": true, "fresca": true, "frescos": true, "frescas": true, "fresh": true,
	"natural": true, "integral": true, "magro": true, "magra": true, "magros": true,
	"picado": true, "picada": true, "picados": true, "picadas": true, "chopped": true,
	"cortado": true, "cortada": true, "ralado": true, "ralada": true, "sliced": true, "diced": true,
	"grande": true, "grandes": true, "pequeno": true, "pequena": true, "medio": true, "media": true,
	"large": true, "small": true, "medium": true,
	"cozido": true, "cozida": true, "cru": true, "crua": true,
	"sopa": true, "cha": true, "q": true, "b": true, "qb": true, "gosto": true, "aprox": true,
	"extra": true, "virgem": true, "light": true,
}

// ParseLine 解析 "200g frango grelhado" 為數量、單位、名稱與 100g 倍率
func ParseLine(raw string, h config.HeuristicConfig) IngredientLine {
	line := IngredientLine{Raw: raw, Unit: UnitNone, Multiplier: 1.0}
	normalized := common.NormalizeText(raw)

	rest := normalized
	if loc := quantityPattern.FindStringSubmatchIndex(normalized); loc != nil {
		line.Quantity = parseQuantity(normalized[loc[2]:loc[3]])
		line.Unit = UnitCount
		if loc[4] >= 0 {
			line.Unit = canonicalUnit(normalized[loc[4]:loc[5]])
		}
		rest = normalized[:loc[0]] + " " + normalized[loc[1]:]

		// "1 colher de cha de acucar" 是茶匙
		if line.Unit == UnitTablespoon && strings.HasPrefix(strings.TrimSpace(rest), "de cha") {
			line.Unit = UnitTeaspoon
		}
		line.Multiplier = multiplierFor(line.Quantity, line.Unit, h)
	}

	line.Name = bareName(rest)
	// "2 ovos mexidos" 的單位本身就是食材
	if line.Unit == UnitEgg && !strings.HasPrefix(line.Name, "ovo") {
		line.Name = strings.TrimSpace("ovo " + line.Name)
	}
	line.SearchKey = searchKey(line.Name)
	return line
}

func canonicalUnit(token string) Unit {
	token = strings.Join(strings.Fields(token), "")
	if token == "c.sopa" {
		return UnitTablespoon
	}
	if u, ok := unitAliases[token]; ok {
		return u
	}
	return UnitCount
}

// parseQuantity 接受 "1,5"、"1.5" 與 "1/2"
func parseQuantity(s string) float64 {
	s = strings.ReplaceAll(s, " ", "")
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// multiplierFor 轉換成相對 100g 的倍率
func multiplierFor(qty float64, unit Unit, h config.HeuristicConfig) float64 {
	switch unit {
	case UnitGram, UnitMilliliter:
		return qty / 100
	case UnitKilogram, UnitLiter:
		return qty * 10
	case UnitTablespoon:
		return qty * h.TablespoonGrams / 100
	case UnitTeaspoon:
		return qty * h.TeaspoonGrams / 100
	case UnitCup:
		return qty * h.CupGrams / 100
	case UnitClove:
		return qty * h.CloveGrams / 100
	case UnitOunce:
		return qty * ounceGrams / 100
	case UnitPound:
		return qty * poundGrams / 100
	case UnitNone:
		return 1.0
	default:
		// fatia / unidade / ovo / 純數字都用固定單位重量
		return qty * h.UnitGrams / 100
	}
}

// bareName 去除標點與停用詞後的名稱
func bareName(rest string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, rest)

	words := make([]string, 0, 4)
	for _, w := range strings.Fields(cleaned) {
		if nameStopwords[w] || isNumeric(w) {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

// searchKey 只保留前兩個字
func searchKey(name string) string {
	words := strings.Fields(name)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}

func isNumeric(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return w != ""
}
