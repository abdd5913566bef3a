package heuristic

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorihq/lori/internal/wire"
	"github.com/lorihq/lori/tools"
)

// fakeInvoker returns canned results per tool name and records calls.
type fakeInvoker struct {
	results map[string]tools.Result
	calls   []string
}

func (f *fakeInvoker) Dispatch(ctx context.Context, name string, args map[string]any) tools.Result {
	f.calls = append(f.calls, name)
	if r, ok := f.results[name]; ok {
		return r
	}
	return tools.Fail("unknown tool: %s", name)
}

type fakeTranscript struct {
	assistant []string
	user      []string
}

func (f *fakeTranscript) AddAssistant(text string) { f.assistant = append(f.assistant, text) }
func (f *fakeTranscript) AddUser(text string)      { f.user = append(f.user, text) }

func TestRunShortcutsNoMatch(t *testing.T) {
	inv := &fakeInvoker{}
	e := New(inv, &Session{}, nil)
	final, matched := e.RunShortcuts(context.Background(), "bom dia!", &fakeTranscript{})
	assert.False(t, matched)
	assert.Empty(t, final)
	assert.Empty(t, inv.calls)
}

func TestRunShortcutsSysTimeTerminal(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"sys.time": tools.OK(map[string]any{
			"iso": "2026-08-31T12:00:00Z", "texto": "31/08/2026 12:00:00 GMT", "tz": "Europe/Lisbon",
		}),
	}}
	e := New(inv, &Session{}, nil)
	tr := &fakeTranscript{}

	final, matched := e.RunShortcuts(context.Background(), "que horas são em Lisboa?", tr)
	require.True(t, matched)
	assert.Equal(t, "Data e hora em lisboa: 31/08/2026 12:00:00 GMT (Europe/Lisbon).", final)
	require.Len(t, tr.assistant, 1)
	assert.Contains(t, tr.assistant[0], "<tool_call>")
	require.Len(t, tr.user, 1)
	assert.Contains(t, tr.user[0], "<tool_result>")
}

func TestRunShortcutsHelpTools(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"help.tools": tools.OK(map[string]any{
			"tools": []map[string]any{
				{"name": "fs.read", "description": "Ler arquivo", "params": map[string]string{"path": "str"}},
			},
		}),
	}}
	e := New(inv, &Session{}, nil)

	final, matched := e.RunShortcuts(context.Background(), "liste as ferramentas", &fakeTranscript{})
	require.True(t, matched)
	assert.Contains(t, final, "Ferramentas disponíveis:")
	assert.Contains(t, final, "**fs.read**")
}

func TestRunShortcutsGeoCountriesFormatsList(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"geo.countries": tools.OK(map[string]any{
			"regions": []map[string]any{
				{"region": "norte", "ok": true, "countries": []string{"Canadá", "Estados Unidos", "México"}},
			},
		}),
	}}
	e := New(inv, &Session{}, nil)
	tr := &fakeTranscript{}

	final, matched := e.RunShortcuts(context.Background(), "quais os países da américa do norte?", tr)
	require.True(t, matched)
	assert.Contains(t, final, "norte: 3 países")
	assert.Contains(t, final, "- Canadá")
	// The terminal answer is also recorded as an assistant turn.
	assert.Equal(t, final, tr.assistant[len(tr.assistant)-1])
}

func TestRunShortcutsWebSearchChainsGetMany(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"web.search": tools.OK(map[string]any{
			"results": []map[string]any{
				{"url": "https://a.example/1", "title": "Primeiro", "snippet": "resumo a"},
				{"url": "https://a.example/1", "title": "Duplicado", "snippet": ""},
				{"url": "https://b.example/2", "title": "Segundo", "snippet": "resumo b"},
			},
		}),
		"web.get_many": tools.OK(map[string]any{"pages": []map[string]any{}}),
	}}
	session := &Session{}
	e := New(inv, session, nil)
	tr := &fakeTranscript{}

	final, matched := e.RunShortcuts(context.Background(), "pesquise na internet sobre marés", tr)
	require.True(t, matched)
	assert.Equal(t, Continue, final)
	assert.Equal(t, []string{"web.search", "web.get_many"}, inv.calls)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, session.LastSearchURLs)

	var digest string
	for _, turn := range tr.user {
		if strings.HasPrefix(turn, "Fontes pesquisadas:") {
			digest = turn
		}
	}
	require.NotEmpty(t, digest)
	assert.Contains(t, digest, "1. Primeiro")
	assert.Contains(t, digest, "URL: https://b.example/2")
}

func TestRunShortcutsEmptySearchIsTerminal(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"web.search": tools.OK(map[string]any{"results": []map[string]any{}}),
	}}
	e := New(inv, &Session{}, nil)

	final, matched := e.RunShortcuts(context.Background(), "pesquise na internet sobre nada", &fakeTranscript{})
	require.True(t, matched)
	assert.Equal(t, "Não encontrei resultados relevantes na busca.", final)
}

func TestRunShortcutsCryptoAppendsContextThenContinues(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"crypto.price": tools.OK(map[string]any{
			"asset":  "btc",
			"prices": map[string]float64{"brl": 350000.25, "usd": 65000.5},
			"changes_24h": map[string]float64{
				"brl": 1.2, "usd": -0.8,
			},
			"vs_currencies": []string{"brl", "usd"},
		}),
		"web.search": tools.OK(map[string]any{
			"results": []map[string]any{{"url": "https://c.example", "title": "Cotação", "snippet": "btc"}},
		}),
		"web.get_many": tools.OK(map[string]any{"pages": []map[string]any{}}),
	}}
	session := &Session{}
	e := New(inv, session, nil)
	tr := &fakeTranscript{}

	final, matched := e.RunShortcuts(context.Background(), "qual é o valor do btc?", tr)
	require.True(t, matched)
	assert.Equal(t, Continue, final)
	assert.Equal(t, []string{"crypto.price", "web.search", "web.get_many"}, inv.calls)
	assert.Equal(t, "btc", session.LastAsset)

	var cryptoTurn string
	for _, turn := range tr.user {
		if strings.HasPrefix(turn, "Dados em tempo real via CoinGecko") {
			cryptoTurn = turn
		}
	}
	require.NotEmpty(t, cryptoTurn)
	assert.Contains(t, cryptoTurn, "BRL: 350.000,25 (+1.20% em 24h)")
	assert.Contains(t, cryptoTurn, "USD: 65.000,50 (-0.80% em 24h)")
}

func TestRunShortcutsFxFailureAppendsFallbackNote(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"fx.rate": tools.Fail("falha_exchangerate: status 502"),
		"web.search": tools.OK(map[string]any{
			"results": []map[string]any{{"url": "https://d.example", "title": "Câmbio", "snippet": "usd"}},
		}),
		"web.get_many": tools.OK(map[string]any{"pages": []map[string]any{}}),
	}}
	e := New(inv, &Session{}, nil)
	tr := &fakeTranscript{}

	final, matched := e.RunShortcuts(context.Background(), "qual a cotação do dólar?", tr)
	require.True(t, matched)
	assert.Equal(t, Continue, final)

	joined := strings.Join(tr.user, "\n")
	assert.Contains(t, joined, "Não foi possível obter a cotação em tempo real")
}

// panicInvoker blows up on every dispatch, standing in for a tool body that
// hits corrupt input.
type panicInvoker struct{ calls int }

func (p *panicInvoker) Dispatch(ctx context.Context, name string, args map[string]any) tools.Result {
	p.calls++
	panic("corrupt input")
}

func TestRunShortcutsSurvivesPanickingTool(t *testing.T) {
	inv := &panicInvoker{}
	e := New(inv, &Session{}, nil)
	tr := &fakeTranscript{}

	final, matched := e.RunShortcuts(context.Background(), "que horas são em Lisboa?", tr)
	require.True(t, matched)
	assert.Equal(t, Continue, final)
	assert.Equal(t, 1, inv.calls)
}

func TestFindToolCallsSkipsPanickingHandler(t *testing.T) {
	inv := &fakeInvoker{}
	e := New(inv, &Session{}, nil)
	e.rules = append([]Rule{{
		Tool:        "boom",
		AnyKeywords: []string{"horas"},
		Handler: func(e *Engine, p string, m []string) []wire.ToolCall {
			panic("bad rule")
		},
	}}, e.rules...)

	calls := e.FindToolCalls("que horas são em Lisboa?")
	require.NotEmpty(t, calls)
	assert.Equal(t, "sys.time", calls[0].Tool)
}

func TestRunShortcutsFxStaleDataAddsNote(t *testing.T) {
	inv := &fakeInvoker{results: map[string]tools.Result{
		"fx.rate": tools.OK(map[string]any{
			"base": "USD", "target": "BRL", "amount": 1.0,
			"rate": 5.43, "converted": 5.43,
			"date":                   "2026-08-30",
			"last_updated_iso":       "2026-08-30T00:00:00Z",
			"last_updated_hours_ago": 30.0,
		}),
	}}
	e := New(inv, &Session{}, nil)
	tr := &fakeTranscript{}

	final, matched := e.RunShortcuts(context.Background(), "qual a cotação do dólar?", tr)
	require.True(t, matched)
	assert.Equal(t, Continue, final)

	joined := strings.Join(tr.user, "\n")
	assert.Contains(t, joined, "Dados de 2026-08-30T00:00:00Z (~30.0h atrás) [recomendo confirmar novamente]")
}
