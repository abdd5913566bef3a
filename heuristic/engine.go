// Package heuristic short-circuits well-known prompt shapes straight into
// tool calls, skipping model inference for queries the tools answer alone.
package heuristic

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lorihq/lori/internal/wire"
	"github.com/lorihq/lori/tools"
)

// Continue signals that shortcut tool calls ran and appended their context,
// but the model still needs to produce the final prose answer.
const Continue = "continue"

// Invoker executes a tool call. *tools.Dispatcher satisfies it.
type Invoker interface {
	Dispatch(ctx context.Context, name string, args map[string]any) tools.Result
}

// Transcript receives the conversation turns the shortcuts generate, in the
// same marker format the model-driven loop uses.
type Transcript interface {
	AddAssistant(text string)
	AddUser(text string)
}

// Engine matches prompts against the rule table and runs the winning calls.
type Engine struct {
	invoke  Invoker
	session *Session
	rules   []Rule
	logger  *zap.Logger
}

// New creates an engine over the given invoker and session memory.
func New(invoke Invoker, session *Session, logger *zap.Logger) *Engine {
	if session == nil {
		session = &Session{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		invoke:  invoke,
		session: session,
		rules:   defaultRules(),
		logger:  logger,
	}
}

// Session exposes the engine's memory, shared with the owning conversation.
func (e *Engine) Session() *Session {
	return e.session
}

// FindToolCalls scans the rule table and returns the forced calls of the
// first rule that fires, or nil when no shortcut applies.
func (e *Engine) FindToolCalls(prompt string) []wire.ToolCall {
	p := strings.ToLower(strings.TrimSpace(prompt))

	for _, rule := range e.rules {
		var m []string
		if rule.Pattern != nil {
			if m = rule.Pattern.FindStringSubmatch(p); m == nil {
				continue
			}
		}
		if !keywordGroupsMatch(p, rule.Keywords) {
			continue
		}
		if len(rule.AnyKeywords) > 0 && !anyPresent(p, rule.AnyKeywords) {
			continue
		}
		if vetoed(p, rule.NotKeywords) {
			continue
		}

		calls := e.runHandler(rule, p, m)
		if len(calls) == 0 {
			continue
		}
		return calls
	}
	return nil
}

// runHandler shields the scan from a misbehaving handler: a panic skips the
// rule instead of aborting the turn.
func (e *Engine) runHandler(rule Rule, p string, m []string) (calls []wire.ToolCall) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("heuristic handler recovered",
				zap.String("tool", rule.Tool),
				zap.Any("panic", r))
			calls = nil
		}
	}()
	return rule.Handler(e, p, m)
}

func keywordGroupsMatch(p string, groups [][]string) bool {
	for _, group := range groups {
		if !anyPresent(p, group) {
			return false
		}
	}
	return true
}

func anyPresent(p string, words []string) bool {
	for _, w := range words {
		if strings.Contains(p, w) {
			return true
		}
	}
	return false
}

func vetoed(p string, groups [][]string) bool {
	for _, group := range groups {
		all := true
		for _, w := range group {
			if !strings.Contains(p, w) {
				all = false
				break
			}
		}
		if all && len(group) > 0 {
			return true
		}
	}
	return false
}

// RunShortcuts executes the forced calls for a prompt. It returns the final
// answer and true when a shortcut resolved the turn; Continue and true when
// the calls ran but the model should summarize; "" and false when no
// shortcut applies.
func (e *Engine) RunShortcuts(ctx context.Context, prompt string, tr Transcript) (string, bool) {
	calls := e.FindToolCalls(prompt)
	if len(calls) == 0 {
		return "", false
	}

	for _, c := range calls {
		if final, done := e.runCall(ctx, c, tr); done {
			return final, true
		}
	}
	// Calls ran without a terminal summarizer: the model takes over with
	// the context turns appended above.
	return Continue, true
}

// runCall dispatches one forced call and applies its summarizer. A panic
// anywhere below (tool body, summarizer) skips to the next call instead of
// aborting the turn.
func (e *Engine) runCall(ctx context.Context, c wire.ToolCall, tr Transcript) (final string, done bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("heuristic call recovered",
				zap.String("tool", c.Tool),
				zap.Any("panic", r))
			final, done = "", false
		}
	}()

	e.logger.Debug("heuristic tool call",
		zap.String("tool", c.Tool),
		zap.Any("args", c.Args))

	tr.AddAssistant(wire.FormatToolCall(c))
	result := e.invoke.Dispatch(ctx, c.Tool, c.Args)
	tr.AddUser(wire.FormatToolResult(result))

	switch c.Tool {
	case "sys.time":
		return summarizeSysTime(c, result)
	case "sys.time.bulk":
		return summarizeSysTimeBulk(result, tr)
	case "geo.countries":
		return summarizeGeoCountries(result, tr)
	case "geo.continents":
		return summarizeGeoContinents(result, tr)
	case "help.tools":
		return e.summarizeHelpTools(result)
	case "fs.list":
		return summarizeFsList(result)
	case "web.search":
		return e.chainWebSearch(ctx, c, result, tr)
	case "crypto.price":
		e.appendCryptoContext(c, result, tr)
	case "fx.rate":
		e.appendFxContext(c, result, tr)
	}
	return "", false
}

func summarizeSysTime(c wire.ToolCall, result tools.Result) (string, bool) {
	if !result.Ok {
		return "", false
	}
	prefixo := "atual"
	if loc, _ := c.Args["location"].(string); loc != "" {
		prefixo = "em " + loc
	} else if tz, _ := c.Args["tz"].(string); tz != "" {
		prefixo = "em " + tz
	}
	texto := result.GetString("texto")
	if texto == "" {
		texto = result.GetString("iso")
	}
	return fmt.Sprintf("Data e hora %s: %s (%s).", prefixo, texto, result.GetString("tz")), true
}

func summarizeSysTimeBulk(result tools.Result, tr Transcript) (string, bool) {
	if !result.Ok {
		return "", false
	}
	var lines []string
	for _, item := range toMapSlice(result.Extra["items"]) {
		country := asString(item["country"])
		if ok, _ := item["ok"].(bool); !ok {
			lines = append(lines, fmt.Sprintf("- %s: erro (%s)", country, asString(item["error"])))
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", country, asString(item["texto"]), asString(item["tz"])))
	}
	header := "Data e hora por país:"
	if len(lines) == 0 {
		header = "Nenhum país processado."
	}
	final := header + "\n" + strings.Join(lines, "\n")
	tr.AddAssistant(final)
	return final, true
}

func summarizeGeoCountries(result tools.Result, tr Transcript) (string, bool) {
	if !result.Ok {
		return "", false
	}
	var parts []string
	for _, region := range toMapSlice(result.Extra["regions"]) {
		if ok, _ := region["ok"].(bool); !ok {
			continue
		}
		countries := toStringSlice(region["countries"])
		parts = append(parts, fmt.Sprintf("%s: %d países\n- %s",
			asString(region["region"]), len(countries), strings.Join(countries, "\n- ")))
	}
	final := strings.Join(parts, "\n\n")
	if len(parts) == 0 {
		final = "Não encontrei países para as regiões especificadas."
	}
	tr.AddAssistant(final)
	return final, true
}

func summarizeGeoContinents(result tools.Result, tr Transcript) (string, bool) {
	if !result.Ok {
		return "", false
	}
	nomes := toStringSlice(result.Extra["continents"])
	final := fmt.Sprintf("Os continentes são (%s):\n- %s",
		asString(result.Extra["count"]), strings.Join(nomes, "\n- "))
	tr.AddAssistant(final)
	return final, true
}

func (e *Engine) summarizeHelpTools(result tools.Result) (string, bool) {
	if !result.Ok {
		return "", false
	}
	entries := toMapSlice(result.Extra["tools"])
	if len(entries) == 0 {
		return "Nenhuma ferramenta encontrada.", true
	}

	lines := []string{"Ferramentas disponíveis:"}
	for _, entry := range entries {
		var params []string
		switch pm := entry["params"].(type) {
		case map[string]string:
			for name := range pm {
				params = append(params, name)
			}
		case map[string]any:
			for name := range pm {
				params = append(params, name)
			}
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s `{%s}`",
			asString(entry["name"]), asString(entry["description"]), strings.Join(params, ", ")))
	}
	if e.session.HelpUsage {
		lines = append(lines, "",
			"Dica rápida: no terminal você pode listar com `lori tools --list`.",
			"Para chamar diretamente, use `lori tools nome --args-json '{\"path\":\"arquivo\"}'`.")
	}
	if e.session.HelpExamples {
		lines = append(lines, "",
			"Peça também algo como `Lori, use fs.read para mostrar README.md` e veja a sequência completa.")
	}
	e.session.HelpUsage = false
	e.session.HelpExamples = false
	return strings.Join(lines, "\n"), true
}

const fsListPreviewLimit = 200

func summarizeFsList(result tools.Result) (string, bool) {
	if !result.Ok {
		return "", false
	}
	directory := result.GetString("directory")
	if directory == "" {
		directory = "o diretório solicitado"
	}
	items := toStringSlice(result.Extra["items"])
	if len(items) == 0 {
		return "Nenhum arquivo encontrado em " + directory + ".", true
	}
	shown := items
	if len(shown) > fsListPreviewLimit {
		shown = shown[:fsListPreviewLimit]
	}
	final := fmt.Sprintf("Arquivos em %s:\n- %s", directory, strings.Join(shown, "\n- "))
	if len(items) > fsListPreviewLimit {
		final += fmt.Sprintf("\n\n(e mais %d outros...)", len(items)-fsListPreviewLimit)
	}
	return final, true
}

// chainWebSearch follows a search result with web.get_many over the top
// URLs, appends a source digest and summarization guidance, and hands the
// turn back to the model.
func (e *Engine) chainWebSearch(ctx context.Context, c wire.ToolCall, result tools.Result, tr Transcript) (string, bool) {
	if !result.Ok {
		return "", false
	}
	results := toMapSlice(result.Extra["results"])
	if len(results) == 0 {
		final := "Não encontrei resultados relevantes na busca."
		tr.AddAssistant(final)
		return final, true
	}

	limit := 3
	if v, ok := c.Args["limit"]; ok {
		if n := asInt(v); n > 0 {
			limit = n
		}
	}

	seen := map[string]bool{}
	var urls []string
	var picked []map[string]any
	for _, item := range results {
		u := asString(item["url"])
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		picked = append(picked, item)
		if len(urls) >= limit {
			break
		}
	}
	if len(urls) == 0 {
		final := "Não encontrei URLs acessíveis nos resultados da busca."
		tr.AddAssistant(final)
		return final, true
	}

	follow := wire.ToolCall{Tool: "web.get_many", Args: map[string]any{"urls": urls}}
	e.logger.Debug("heuristic tool call", zap.String("tool", follow.Tool), zap.Any("args", follow.Args))
	tr.AddAssistant(wire.FormatToolCall(follow))
	pages := e.invoke.Dispatch(ctx, follow.Tool, follow.Args)
	tr.AddUser(wire.FormatToolResult(pages))

	e.session.LastSearchURLs = urls
	e.session.LastSearchLimit = limit

	var fontes []string
	for i, item := range picked {
		u := asString(item["url"])
		title := strings.TrimSpace(asString(item["title"]))
		if title == "" {
			title = u
		}
		snippet := strings.TrimSpace(asString(item["snippet"]))
		if len(snippet) > 280 {
			snippet = snippet[:277] + "…"
		}
		if snippet == "" {
			snippet = "—"
		}
		fontes = append(fontes, fmt.Sprintf("%d. %s\n   URL: %s\n   Snippet: %s", i+1, title, u, snippet))
	}
	tr.AddUser("Fontes pesquisadas:\n" + strings.Join(fontes, "\n"))
	tr.AddUser("Com base nas páginas coletadas acima, produza uma resposta em Português do Brasil, " +
		"resumindo as informações principais e citando explicitamente as fontes relevantes " +
		"pelo respectivo URL. Se as páginas não tiverem dados suficientes, explique o que falta.")
	return Continue, true
}

func (e *Engine) appendCryptoContext(c wire.ToolCall, result tools.Result, tr Transcript) {
	if !result.Ok {
		tr.AddUser("Falha ao consultar a CoinGecko; tentando fontes alternativas.")
		return
	}

	asset := result.GetString("asset")
	if asset == "" {
		asset = asString(c.Args["asset"])
	}
	if asset == "" {
		asset = "criptoativo"
	}
	if vs := toStringSlice(result.Extra["vs_currencies"]); len(vs) > 0 {
		for i, v := range vs {
			vs[i] = strings.ToLower(v)
		}
		e.session.LastPriceVs = vs
	}
	e.session.LastAsset = asset

	prices := toFloatMap(result.Extra["prices"])
	changes := toFloatMap(result.Extra["changes_24h"])
	summary := []string{"Dados em tempo real via CoinGecko para " + asset + ":"}
	priceLines := 0
	for _, fiat := range sortedKeys(prices) {
		line := fmt.Sprintf("- %s: %s", strings.ToUpper(fiat), formatBR(prices[fiat], 2))
		if change, ok := changes[fiat]; ok {
			line += fmt.Sprintf(" (%+.2f%% em 24h)", change)
		}
		summary = append(summary, line)
		priceLines++
	}
	if priceLines == 0 {
		summary = append(summary, "- Nenhum preço disponível nesta consulta.")
	}
	if updated := result.GetString("last_updated_iso"); updated != "" {
		line := "Última atualização (UTC): " + updated
		if hours, ok := asFloat(result.Extra["last_updated_hours_ago"]); ok {
			line += fmt.Sprintf(" (~%.1fh atrás)", hours)
			if hours >= 3 {
				line += " [verifique fontes adicionais]"
			}
		}
		summary = append(summary, line)
	}
	summary = append(summary, "Fonte: https://www.coingecko.com")
	tr.AddUser(strings.Join(summary, "\n"))
}

func (e *Engine) appendFxContext(c wire.ToolCall, result tools.Result, tr Transcript) {
	if !result.Ok {
		tr.AddUser("Não foi possível obter a cotação em tempo real; confira outras fontes.")
		return
	}

	base := result.GetString("base")
	target := result.GetString("target")
	amount, _ := asFloat(result.Extra["amount"])
	if amount == 0 {
		amount = 1
	}
	e.session.LastFx = &FxRequest{Base: base, Target: target, Amount: amount}

	summary := []string{"Conversão em tempo real (exchangerate.host):"}
	if converted, ok := asFloat(result.Extra["converted"]); ok {
		summary = append(summary, fmt.Sprintf("- %s %s = %s %s",
			formatBR(amount, 2), base, formatBR(converted, 2), target))
	}
	if rate, ok := asFloat(result.Extra["rate"]); ok {
		summary = append(summary, fmt.Sprintf("- 1 %s = %s %s", base, formatBR(rate, 4), target))
	}
	updated := result.GetString("last_updated_iso")
	if updated == "" {
		updated = result.GetString("date")
	}
	if updated != "" {
		line := "Dados de " + updated
		if hours, ok := asFloat(result.Extra["last_updated_hours_ago"]); ok {
			line += fmt.Sprintf(" (~%.1fh atrás)", hours)
			if hours >= 3 {
				line += " [recomendo confirmar novamente]"
			}
		}
		summary = append(summary, line)
	}
	summary = append(summary, "Fonte: https://api.exchangerate.host/convert")
	tr.AddUser(strings.Join(summary, "\n"))
}

// formatBR renders a number with Brazilian separators (1.234,56).
func formatBR(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)

	out := strings.Join(grouped, ".")
	if frac != "" {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Payload helpers: shortcut results come either fresh from a tool body
// (typed Go values) or decoded from JSON (generic values); both shapes are
// accepted.

func toMapSlice(v any) []map[string]any {
	switch items := v.(type) {
	case []map[string]any:
		return items
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func toStringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return append([]string(nil), items...)
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toFloatMap(v any) map[string]float64 {
	switch m := v.(type) {
	case map[string]float64:
		return m
	case map[string]any:
		out := make(map[string]float64, len(m))
		for k, val := range m {
			if f, ok := asFloat(val); ok {
				out[k] = f
			}
		}
		return out
	default:
		return nil
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
