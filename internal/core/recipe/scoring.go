package recipe

import (
	"regexp"
	"strings"

	"nutrition-api/internal/pkg/common"
)

var (
	lineSplitPattern = regexp.MustCompile(`[\r\n]+`)
	// 句點、驚嘆號、問號之後的空白
	sentenceEndPattern = regexp.MustCompile(`[.!?]\s+`)
)

// SemanticScore 食材命中一詞 10 分，標題命中一詞 3 分
func SemanticScore(title string, ingredients, terms []string) int {
	if len(terms) == 0 {
		return 0
	}

	name := common.NormalizeText(title)
	normalized := make([]string, len(ingredients))
	for i, ing := range ingredients {
		normalized[i] = common.NormalizeText(ing)
	}

	ingredientMatches, nameMatches := 0, 0
	for _, term := range terms {
		for _, ing := range normalized {
			if strings.Contains(ing, term) {
				ingredientMatches++
				break
			}
		}
		if strings.Contains(name, term) {
			nameMatches++
		}
	}
	return ingredientMatches*10 + nameMatches*3
}

// CalorieAlignment max(0, 50 - |diff|/12)，再依目標 ±10
func CalorieAlignment(calories, target int, goal string) int {
	if calories <= 0 || target <= 0 {
		return 0
	}

	diff := calories - target
	if diff < 0 {
		diff = -diff
	}
	score := 50 - diff/12
	if score < 0 {
		score = 0
	}

	switch common.NormalizeText(goal) {
	case GoalLose:
		if calories <= target {
			score += 10
		} else if calories > int(float64(target)*1.12) {
			score -= 10
		}
	case GoalGain:
		if calories >= target {
			score += 10
		} else if calories < int(float64(target)*0.88) {
			score -= 10
		}
	}
	return score
}

// SplitSteps 至少兩行時按行切，否則按句切，最多 maxSteps 步
func SplitSteps(instructions string, maxSteps int) []string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return nil
	}

	steps := nonEmpty(lineSplitPattern.Split(instructions, -1))
	if len(steps) < 2 {
		steps = nonEmpty(splitSentences(instructions))
		if len(steps) == 0 {
			steps = []string{instructions}
		}
	}
	if maxSteps > 0 && len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}
	return steps
}

// splitSentences 保留句尾標點
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEndPattern.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	return append(out, text[start:])
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
