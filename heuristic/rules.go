package heuristic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lorihq/lori/internal/wire"
	"github.com/lorihq/lori/tools"
)

// Rule is one entry of the ordered shortcut table. A rule fires when its
// pattern (if any) matches and every keyword predicate holds; the handler
// then produces the forced calls, or nil to decline after all.
type Rule struct {
	Tool string

	Pattern *regexp.Regexp
	// Keywords requires, for each group, at least one member in the prompt.
	Keywords [][]string
	// AnyKeywords requires at least one member in the prompt.
	AnyKeywords []string
	// NotKeywords vetoes the rule when every member of some group is present.
	NotKeywords [][]string

	Handler func(e *Engine, p string, m []string) []wire.ToolCall
}

var (
	timeDiffRe   = regexp.MustCompile(`diferen\p{L}*\s+de\s+(?:hor(a|ario|ário)|fuso)\s+entre\s+([^,.;!?]+?)\s+e\s+([^,.;!?]+)`)
	timeLocRe    = regexp.MustCompile(`\b(data|hora|horas|horario|horário|horários)\b[\s\S]*?(?:\sem|\sno|\sna|\sde|\sdo|\sda)\s+([^\n,.;!?]+?)(?:\?|$)`)
	fxConvertRe  = regexp.MustCompile(`(?:quanto\s+custa|qual\s+é\s+o\s+valor|valor\s+(?:do|de)|cotação\s+(?:do|de)|cotacao\s+(?:do|de)|preço\s+(?:do|de)|preco\s+(?:do|de))[\s\S]*?(d[oó]lar|usd|real|brl|euro|eur|libra|gbp|iene|yen|jpy)`)
	priceRe      = regexp.MustCompile(`(?:qual\s+é\s+o\s+valor|valor|preço|cotação)\s+(?:do|da|de)\s+([^\n,.;!?]+?)(?:\?|$)`)
	correctionRe = regexp.MustCompile(`(verifi\w+|confir\w+|corrig\w+|atualiz\w+|errad\w+|diferent\w+|não\s+está\s+certo|nao\s+esta\s+certo)`)
	toolWordRe   = regexp.MustCompile(`ferrament`)
	fsListRe     = regexp.MustCompile(`(?:fs\.list|listar\s+arquivos|lista\s+arquivos|list\s+arquivos)\s+(?:em|de|do|da)\s+(/[^\s]+)`)
	fsReadRe     = regexp.MustCompile(`(?:ler|leia|abrir)\s+(/[^\s]+)`)

	domainRe      = regexp.MustCompile(`(?:https?://)?([a-z0-9.-]+\.[a-z]{2,})(?:/[^\s]*)?`)
	amountRe      = regexp.MustCompile(`(\d+[\d.,]*)`)
	leadFillerRe  = regexp.MustCompile(`^(sobre|a respeito de|de|do|da|o|a)\s+`)
	verifyWords   = []string{"verificar", "conferir", "checar", "online"}
	regionPrompts = []string{"américa", "america", "caribe", "europa", "áfrica", "africa", "ásia", "asia", "oceania", "antártica", "antartica"}
)

// regionMentions orders region display names by their prompt aliases. Display
// names feed straight into geo.countries / sys.time.bulk, which normalize.
var regionMentions = []struct {
	name    string
	aliases []string
}{
	{"América do Norte", []string{"américa do norte", "america do norte", "north america"}},
	{"América Central", []string{"américa central", "america central", "central america"}},
	{"América do Sul", []string{"américa do sul", "america do sul", "south america"}},
	{"Caribe", []string{"caribe", "caribbean"}},
	{"Europa", []string{"europa", "europe"}},
	{"África", []string{"áfrica", "africa"}},
	{"Ásia", []string{"ásia", "asia"}},
	{"Oceania", []string{"oceania"}},
	{"Antártica", []string{"antártica", "antartica", "antarctica"}},
}

func regionsInPrompt(p string) []string {
	var regions []string
	for _, region := range regionMentions {
		for _, alias := range region.aliases {
			if strings.Contains(p, alias) {
				regions = append(regions, region.name)
				break
			}
		}
	}
	return regions
}

func wantsOnlineCheck(p string) bool {
	for _, w := range verifyWords {
		if strings.Contains(p, w) {
			return true
		}
	}
	return false
}

var currencyAliases = map[string]string{
	"usd": "USD", "dolar": "USD", "dolares": "USD", "dolaramericano": "USD",
	"dolaresamericanos": "USD", "dollar": "USD", "dollars": "USD",
	"real": "BRL", "reais": "BRL", "realbrasileiro": "BRL", "realbrasil": "BRL", "brl": "BRL",
	"euro": "EUR", "euros": "EUR", "eur": "EUR",
	"libra": "GBP", "libras": "GBP", "libraesterlina": "GBP", "gbp": "GBP",
	"iene": "JPY", "ienes": "JPY", "yen": "JPY", "jpy": "JPY",
	"pesoargentino": "ARS", "ars": "ARS",
	"cad": "CAD", "dolarcanadense": "CAD",
	"aud": "AUD", "dolaraustraliano": "AUD",
}

// asciiFold lowers the string and folds accented Latin letters to ASCII,
// keeping digits and punctuation intact.
func asciiFold(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'á', 'à', 'â', 'ã', 'ä':
			sb.WriteRune('a')
		case 'é', 'è', 'ê', 'ë':
			sb.WriteRune('e')
		case 'í', 'ì', 'î', 'ï':
			sb.WriteRune('i')
		case 'ó', 'ò', 'ô', 'õ', 'ö':
			sb.WriteRune('o')
		case 'ú', 'ù', 'û', 'ü':
			sb.WriteRune('u')
		case 'ç':
			sb.WriteRune('c')
		case 'ñ':
			sb.WriteRune('n')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func normalizeCurrency(token string) string {
	folded := asciiFold(token)
	var sb strings.Builder
	for _, r := range folded {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return currencyAliases[sb.String()]
}

// prepareSearchQuery builds web.search args from a core query, folding any
// domains mentioned in the prompt into site: filters, and records the search
// in the session for later corrections.
func (e *Engine) prepareSearchQuery(originalPrompt, coreQuery string, limit int, siteFilters []string) map[string]any {
	filters := append([]string(nil), siteFilters...)
	for _, m := range domainRe.FindAllStringSubmatch(originalPrompt, -1) {
		domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(m[1])), "www.")
		seen := false
		for _, f := range filters {
			if f == domain {
				seen = true
				break
			}
		}
		if !seen {
			filters = append(filters, domain)
		}
	}

	baseQuery := strings.Join(strings.Fields(coreQuery), " ")
	if baseQuery == "" {
		baseQuery = strings.Join(strings.Fields(originalPrompt), " ")
	}

	finalQuery := baseQuery
	if len(filters) > 0 {
		parts := make([]string, len(filters))
		for i, d := range filters {
			parts[i] = "site:" + d
		}
		finalQuery = strings.TrimSpace(baseQuery + " " + strings.Join(parts, " "))
	}

	e.session.LastSearchFilters = filters
	e.session.LastSearchBase = baseQuery
	e.session.LastSearchQuery = finalQuery
	e.session.LastSearchURLs = nil
	e.session.LastSearchLimit = limit

	return map[string]any{"query": finalQuery, "limit": limit}
}

func call(tool string, args map[string]any) wire.ToolCall {
	return wire.ToolCall{Tool: tool, Args: args}
}

func handleTimeDiff(e *Engine, p string, m []string) []wire.ToolCall {
	return []wire.ToolCall{call("sys.time.diff", map[string]any{
		"loc1": strings.TrimSpace(m[2]),
		"loc2": strings.TrimSpace(m[3]),
	})}
}

func handleTimeLoc(e *Engine, p string, m []string) []wire.ToolCall {
	return []wire.ToolCall{call("sys.time", map[string]any{
		"location":      m[2],
		"verify_online": wantsOnlineCheck(p),
	})}
}

func handleTimeBulk(e *Engine, p string, m []string) []wire.ToolCall {
	regions := regionsInPrompt(p)
	if len(regions) == 0 {
		return nil
	}
	return []wire.ToolCall{call("sys.time.bulk", map[string]any{
		"region":        regions,
		"verify_online": wantsOnlineCheck(p),
	})}
}

func handleGeoCountries(e *Engine, p string, m []string) []wire.ToolCall {
	regions := regionsInPrompt(p)
	if len(regions) == 0 {
		return nil
	}
	return []wire.ToolCall{call("geo.countries", map[string]any{
		"region":        regions,
		"verify_online": wantsOnlineCheck(p),
	})}
}

func handleFxConvert(e *Engine, p string, m []string) []wire.ToolCall {
	folded := asciiFold(p)

	amount := 1.0
	if am := amountRe.FindStringSubmatch(folded); am != nil {
		txt := strings.ReplaceAll(am[1], ".", "")
		txt = strings.ReplaceAll(txt, ",", ".")
		if v, err := strconv.ParseFloat(txt, 64); err == nil {
			amount = v
		} else if v, err := strconv.ParseFloat(am[1], 64); err == nil {
			amount = v
		}
	}

	var base, target string
	for _, tok := range strings.Fields(folded) {
		code := normalizeCurrency(tok)
		if code == "" {
			continue
		}
		if base == "" {
			base = code
		} else if target == "" && code != base {
			target = code
		}
	}
	if base == "" {
		base = "USD"
	}
	if target == "" {
		if base != "BRL" {
			target = "BRL"
		} else {
			target = "USD"
		}
	}

	e.session.LastFx = &FxRequest{Base: base, Target: target, Amount: amount}
	searchArgs := e.prepareSearchQuery(p, "cotação "+base+" "+target, 3, nil)
	return []wire.ToolCall{
		call("fx.rate", map[string]any{"base": base, "target": target, "amount": amount}),
		call("web.search", searchArgs),
	}
}

func handlePriceSearch(e *Engine, p string, m []string) []wire.ToolCall {
	asset := strings.TrimSpace(m[1])
	if _, known := tools.ResolveAssetID(asset); !known {
		return nil
	}
	e.session.LastAsset = asset
	e.session.LastPriceVs = []string{"brl", "usd"}
	searchArgs := e.prepareSearchQuery(p, "preço atual "+asset, 3, nil)
	return []wire.ToolCall{
		call("crypto.price", map[string]any{"asset": asset, "vs_currencies": []string{"brl", "usd"}}),
		call("web.search", searchArgs),
	}
}

var correctionTokens = []string{
	"verifique", "verificar", "confira", "corrija", "corrigir", "diferente",
	"errado", "desatual", "atualize", "atualizar",
	"não está certo", "nao está certo", "nao esta certo", "não esta certo",
}

func handleCorrection(e *Engine, p string, m []string) []wire.ToolCall {
	confirmed := false
	for _, tok := range correctionTokens {
		if strings.Contains(p, tok) {
			confirmed = true
			break
		}
	}
	if !confirmed {
		return nil
	}

	var calls []wire.ToolCall
	if e.session.LastAsset != "" {
		calls = append(calls, call("crypto.price", map[string]any{
			"asset":         e.session.LastAsset,
			"vs_currencies": append([]string(nil), e.session.LastPriceVs...),
		}))
	}
	if fx := e.session.LastFx; fx != nil {
		calls = append(calls, call("fx.rate", map[string]any{
			"base": fx.Base, "target": fx.Target, "amount": fx.Amount,
		}))
	}

	baseQuery := e.session.LastSearchBase
	if baseQuery == "" {
		baseQuery = e.session.LastSearchQuery
	}
	if baseQuery != "" {
		queryExtra := baseQuery
		fresh := false
		for _, kw := range []string{"atualizado", "atualização", "atualizacao", "hoje"} {
			if strings.Contains(queryExtra, kw) {
				fresh = true
				break
			}
		}
		if !fresh {
			queryExtra += " atualizado hoje"
		}
		searchArgs := e.prepareSearchQuery(p, queryExtra, 4, e.session.LastSearchFilters)
		calls = append(calls, call("web.search", searchArgs))
	}
	return calls
}

var searchTriggers = []string{
	"pesquisar na internet", "pesquise na internet", "pesquisa na internet",
	"busca na internet", "pesquisar", "pesquise", "buscar", "busque",
}

func handleWebSearch(e *Engine, p string, m []string) []wire.ToolCall {
	q := p
	for _, prefix := range []string{"lori ", "lori, ", "hey lori ", "ei lori ", "ola lori "} {
		if strings.HasPrefix(q, prefix) {
			q = q[len(prefix):]
			break
		}
	}
	for _, trigger := range searchTriggers {
		if strings.HasPrefix(q, trigger+" ") {
			q = q[len(trigger)+1:]
			break
		}
	}
	q = strings.TrimSpace(leadFillerRe.ReplaceAllString(q, ""))

	args := e.prepareSearchQuery(p, strings.Join(strings.Fields(q), " "), 3, nil)
	return []wire.ToolCall{call("web.search", args)}
}

var usageWords = []string{
	"usar", "utilizar", "usaria", "ensinar", "ensine", "ensina", "explicar",
	"explica", "funciona", "funcionar", "ajuda", "ajudar", "mostrar", "mostra",
	"como", "aprende", "aprender",
}

func handleHelpPrompt(e *Engine, p string, m []string) []wire.ToolCall {
	e.session.HelpUsage = false
	for _, w := range usageWords {
		if strings.Contains(p, w) {
			e.session.HelpUsage = true
			break
		}
	}
	e.session.HelpExamples = strings.Contains(p, "exemplo") || strings.Contains(p, "demonstra")
	return []wire.ToolCall{call("help.tools", map[string]any{})}
}

func handleHelpList(e *Engine, p string, m []string) []wire.ToolCall {
	return []wire.ToolCall{call("help.tools", map[string]any{})}
}

func handleContinents(e *Engine, p string, m []string) []wire.ToolCall {
	return []wire.ToolCall{call("geo.continents", map[string]any{
		"verify_online": strings.Contains(p, "verificar"),
	})}
}

func handleFsList(e *Engine, p string, m []string) []wire.ToolCall {
	return []wire.ToolCall{call("fs.list", map[string]any{"directory": m[1]})}
}

func handleFsRead(e *Engine, p string, m []string) []wire.ToolCall {
	return []wire.ToolCall{call("fs.read", map[string]any{"path": m[1]})}
}

// defaultRules is the shortcut table, scanned in order; the first rule whose
// handler produces calls wins.
func defaultRules() []Rule {
	return []Rule{
		{Tool: "sys.time.diff", Pattern: timeDiffRe, Handler: handleTimeDiff},
		{
			Tool:    "sys.time",
			Pattern: timeLocRe,
			// Country-list prompts ("data e hora nos países da Europa")
			// also match this pattern; let the bulk rule take them.
			NotKeywords: [][]string{{"países"}, {"paises"}},
			Handler:     handleTimeLoc,
		},
		{
			Tool:        "sys.time.bulk",
			Keywords:    [][]string{{"data", "hora"}, {"países", "paises"}},
			AnyKeywords: regionPrompts,
			Handler:     handleTimeBulk,
		},
		{
			Tool:        "geo.countries",
			Keywords:    [][]string{{"países", "paises"}},
			AnyKeywords: regionPrompts,
			NotKeywords: [][]string{{"data", "hora"}},
			Handler:     handleGeoCountries,
		},
		{Tool: "fx.rate", Pattern: fxConvertRe, Handler: handleFxConvert},
		{Tool: "web.search", Pattern: priceRe, Handler: handlePriceSearch},
		{Tool: "web.search", Pattern: correctionRe, Handler: handleCorrection},
		{
			Tool:     "web.search",
			Keywords: [][]string{{"pesquisa", "pesquise", "pesquisar", "buscar"}, {"internet", "web"}},
			Handler:  handleWebSearch,
		},
		{
			Tool:        "help.tools",
			Pattern:     toolWordRe,
			AnyKeywords: usageWords,
			Handler:     handleHelpPrompt,
		},
		{
			Tool:     "help.tools",
			Keywords: [][]string{{"ferramentas"}, {"listar", "liste", "quais"}},
			Handler:  handleHelpList,
		},
		{
			Tool:     "geo.continents",
			Keywords: [][]string{{"continentes"}, {"quais", "nomes", "lista", "listar", "quantos"}},
			Handler:  handleContinents,
		},
		{Tool: "fs.list", Pattern: fsListRe, Handler: handleFsList},
		{Tool: "fs.read", Pattern: fsReadRe, Handler: handleFsRead},
	}
}
