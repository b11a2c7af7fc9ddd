package recipe

import (
	"regexp"

	"nutrition-api/internal/pkg/common"
)

// MaxTerms 從渴望中擷取的詞數上限
const MaxTerms = 8

var termPattern = regexp.MustCompile(`[a-z0-9]{3,}`)

// 正規化後比對，因此只需 ASCII 形式
var ptStopwords = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "com": true, "sem": true,
	"para": true, "uma": true, "um": true, "ao": true, "aos": true, "as": true, "os": true,
	"na": true, "no": true, "nas": true, "nos": true, "e": true, "ou": true, "quero": true,
	"fazer": true, "receita": true, "prato": true, "algo": true, "coisa": true, "tipo": true,
	"hoje": true, "jantar": true, "almoco": true, "lanche": true,
}

var ptToEN = map[string]string{
	"frango":  "chicken",
	"carne":   "beef",
	"porco":   "pork",
	"peixe":   "fish",
	"atum":    "tuna",
	"camarao": "shrimp",
	"arroz":   "rice",
	"massa":   "pasta",
	"batata":  "potato",
	"ovo":     "egg",
	"ovos":    "egg",
	"queijo":  "cheese",
	"cebola":  "onion",
	"alho":    "garlic",
	"tomate":  "tomato",
	"limao":   "lemon",
	"coentro": "coriander",
	"salsa":   "parsley",
	"pimento": "pepper",

	// 過敏原
	"amendoim":     "peanut",
	"amendoins":    "peanut",
	"leite":        "milk",
	"manteiga":     "butter",
	"natas":        "cream",
	"iogurte":      "yogurt",
	"trigo":        "wheat",
	"farinha":      "flour",
	"gluten":       "flour",
	"marisco":      "shellfish",
	"mariscos":     "shellfish",
	"crustaceos":   "shrimp",
	"lagosta":      "lobster",
	"caranguejo":   "crab",
	"mexilhao":     "mussel",
	"ameijoa":      "clam",
	"lula":         "squid",
	"polvo":        "octopus",
	"noz":          "walnut",
	"nozes":        "walnut",
	"amendoa":      "almond",
	"amendoas":     "almond",
	"avela":        "hazelnut",
	"caju":         "cashew",
	"frutos secos": "nut",
	"soja":         "soy",
	"sesamo":       "sesame",
	"mostarda":     "mustard",
	"aipo":         "celery",
	"tremoco":      "lupin",
}

// ExtractTerms 去除重音、停用詞並去重，保留出現順序
func ExtractTerms(text string) []string {
	normalized := common.NormalizeText(text)
	terms := make([]string, 0, MaxTerms)
	seen := make(map[string]bool)
	for _, tok := range termPattern.FindAllString(normalized, -1) {
		if ptStopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
		if len(terms) == MaxTerms {
			break
		}
	}
	return terms
}

// TranslateTerm 葡萄牙文食材名詞轉英文，未知的詞原樣回傳（正規化後）
func TranslateTerm(term string) string {
	normalized := common.NormalizeText(term)
	if en, ok := ptToEN[normalized]; ok {
		return en
	}
	return normalized
}

// ExpandTerms 每個詞後面接著它的英文翻譯（若不同）
func ExpandTerms(terms []string) []string {
	expanded := make([]string, 0, len(terms)*2)
	seen := make(map[string]bool)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			expanded = append(expanded, t)
		}
	}
	for _, term := range terms {
		add(common.NormalizeText(term))
		add(TranslateTerm(term))
	}
	return expanded
}
