package recipe

import (
	"fmt"
	"math/rand"
	"strings"
)

var (
	cuisineFocus   = []string{"mediterrânica", "asiática leve", "mexicana equilibrada", "portuguesa moderna", "levantina"}
	techniqueFocus = []string{"forno", "grelhar", "saltear rápido", "estufar leve", "air fryer"}
	formatFocus    = []string{"bowl", "wrap", "prato no prato", "salada morna", "tosta aberta"}
)

const chefSystemPrompt = "És um Chef Michelin e Nutricionista PT-PT que adora variedade alta, pouca repetição " +
	"e quantidades realistas por ingrediente. Quinoa/qinoa é proibida."

const strictJSONRules = "\nREGRAS JSON ESTRITAS: " +
	"Retorna APENAS JSON válido, sem markdown e sem texto fora do objeto. " +
	"Em 'ingredients' e 'steps', cada item deve ser APENAS uma string simples. " +
	"NÃO uses quinoa/qinoa."

// styleHints 每次生成隨機挑選的風格，避免重複
type styleHints struct {
	cuisine   string
	technique string
	format    string
	favorites []string
}

// randomStyle 最多取兩道最愛料理作為風格參考
func randomStyle(favorites []string) styleHints {
	h := styleHints{
		cuisine:   cuisineFocus[rand.Intn(len(cuisineFocus))],
		technique: techniqueFocus[rand.Intn(len(techniqueFocus))],
		format:    formatFocus[rand.Intn(len(formatFocus))],
	}

	clean := make([]string, 0, len(favorites))
	for _, f := range favorites {
		if s := strings.TrimSpace(f); s != "" {
			clean = append(clean, s)
		}
	}
	for _, i := range rand.Perm(len(clean)) {
		h.favorites = append(h.favorites, clean[i])
		if len(h.favorites) == 2 {
			break
		}
	}
	return h
}

// calorieBand 可接受範圍 ±15%，下限至少 200
func calorieBand(target int) (int, int) {
	lower := target * 85 / 100
	if lower < 200 {
		lower = 200
	}
	return lower, target * 115 / 100
}

func goalInstruction(goal string) string {
	switch strings.ToLower(strings.TrimSpace(goal)) {
	case GoalLose:
		return "Objetivo do utilizador: PERDER PESO. Prioriza receita mais leve e fica preferencialmente na metade inferior da faixa calórica."
	case GoalGain:
		return "Objetivo do utilizador: GANHAR MASSA/PESO. Prioriza receita mais energética e fica preferencialmente na metade superior da faixa calórica."
	default:
		return "Objetivo do utilizador: MANUTENÇÃO. Prioriza equilíbrio nutricional e aproximação ao alvo calórico."
	}
}

// buildNegotiationPrompt 組出生成提示；渴望本身是不可更改的要求
func buildNegotiationPrompt(req NegotiateRequest, style styleHints) string {
	lower, upper := calorieBand(req.TargetCalories)
	mood := strings.TrimSpace(req.Mood)
	if mood == "" {
		mood = "Normal"
	}

	var b strings.Builder
	b.WriteString("OBJETIVO: Criar uma receita saudável que cumpra OBRIGATORIAMENTE o desejo do utilizador.\n")
	fmt.Fprintf(&b, "DESEJO MANDATÓRIO DO UTILIZADOR: '%s'\n", req.Craving)
	fmt.Fprintf(&b, "ESTADO EMOCIONAL: %s\n", mood)
	fmt.Fprintf(&b, "META CALÓRICA DESTA REFEIÇÃO: %d kcal (faixa aceitável: %d-%d kcal).\n", req.TargetCalories, lower, upper)
	if req.DailyTargetCalories > 0 {
		fmt.Fprintf(&b, "Meta diária estimada: %d kcal.\n", req.DailyTargetCalories)
	}
	b.WriteString(goalInstruction(req.Goal) + "\n")
	if len(req.Allergens) > 0 {
		fmt.Fprintf(&b, "AVISO DE ALERGIA: O utilizador é alérgico a: %s. PROIBIDO usar estes ingredientes.\n", strings.Join(req.Allergens, ", "))
	}

	b.WriteString("\nFILTRO DE SEGURANÇA E VALIDAÇÃO:\n")
	b.WriteString("0. ANTES DE TUDO: Se o pedido do utilizador NÃO for um alimento (ex: objetos, químicos, pedras, eletrónicos, " +
		"partes do corpo, ou qualquer coisa não comestível), ou se for um pedido perigoso, ofensivo ou sem sentido, deves " +
		"OBRIGATORIAMENTE definir 'recipe' como null e explicar na 'message' de forma educada mas firme que apenas geras " +
		"receitas de comida real e saudável. Não tentes adivinhar um alimento parecido pela escrita ou pelo som da palavra.\n")

	b.WriteString("\nINSTRUÇÕES DE CUMPRIMENTO ESTRITO (apenas para comida):\n")
	b.WriteString("1. Se passar o filtro acima, é PROIBIDO alterar o prato base. Se o utilizador pediu Sushi, a receita TEM de ser de Sushi. Se pediu Pizza, TEM de ser Pizza.\n")
	b.WriteString("2. A criatividade deve ser aplicada APENAS para tornar o prato pedido mais saudável, MAS NUNCA para mudar o tipo de comida.\n")
	b.WriteString("3. Ignora sugestões de 'Estilo' ou 'Inspiração' se estas entrarem em conflito com o prato mandatório.\n")
	b.WriteString("4. Responde sempre em PORTUGUÊS DE PORTUGAL (PT-PT).\n")
	b.WriteString("5. PROIBIDO usar quinoa/qinoa.\n")
	b.WriteString("6. A receita final deve ficar o mais perto possível da meta calórica indicada.\n")
	b.WriteString("7. Indica quantidades concretas em cada ingrediente (ex: '150g peito de frango').\n")

	b.WriteString("\nNOTAS ADICIONAIS (Secundárias):\n")
	fmt.Fprintf(&b, "- Estilo: %s, técnica %s, formato %s.\n", style.cuisine, style.technique, style.format)
	if len(style.favorites) > 0 {
		fmt.Fprintf(&b, "- Se possível, podes inspirar-te levemente no perfil de sabor destes pratos: %s. MAS PRIORIZA TOTALMENTE O PEDIDO DO USER.\n",
			strings.Join(style.favorites, ", "))
	}

	b.WriteString("\nRetorna JSON:\n")
	b.WriteString(`{"message": "...", "recipe": {"title": "...", "calories": 0, "time_minutes": 30, "ingredients": ["..."], "steps": ["..."]} ou null, "restaurant_search_term": "..."}`)
	return b.String()
}

// allergenReminder 第二次嘗試時加強過敏原提醒
func allergenReminder(allergens []string) string {
	if len(allergens) == 0 {
		return ""
	}
	return fmt.Sprintf("\nATENÇÃO: a resposta anterior incluía ingredientes proibidos. NUNCA incluas: %s.", strings.Join(allergens, ", "))
}
