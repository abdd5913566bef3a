package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return New(nil, &Session{}, nil)
}

func TestNoShortcutForPlainChat(t *testing.T) {
	e := newTestEngine()
	for _, prompt := range []string{"oi", "bom dia, tudo bem?", "me conte uma piada"} {
		assert.Nil(t, e.FindToolCalls(prompt), "prompt %q", prompt)
	}
}

func TestTimeDiffRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("Qual a diferença de horário entre São Paulo e Tóquio?")
	require.Len(t, calls, 1)
	assert.Equal(t, "sys.time.diff", calls[0].Tool)
	assert.Equal(t, "são paulo", calls[0].Args["loc1"])
	assert.Equal(t, "tóquio", calls[0].Args["loc2"])
}

func TestTimeLocationRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("Que horas são em Lisboa?")
	require.Len(t, calls, 1)
	assert.Equal(t, "sys.time", calls[0].Tool)
	assert.Equal(t, "lisboa", calls[0].Args["location"])
	assert.Equal(t, false, calls[0].Args["verify_online"])
}

func TestTimeBulkBeatsGeoCountriesWhenTimeAsked(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("me dê a data e hora nos países da América do Sul")
	require.Len(t, calls, 1)
	assert.Equal(t, "sys.time.bulk", calls[0].Tool)
	assert.Equal(t, []string{"América do Sul"}, calls[0].Args["region"])
}

func TestGeoCountriesRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("quais são os países da Europa e da Oceania?")
	require.Len(t, calls, 1)
	assert.Equal(t, "geo.countries", calls[0].Tool)
	assert.Equal(t, []string{"Europa", "Oceania"}, calls[0].Args["region"])
}

func TestFxConvertRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("quanto custa 250 dólares em reais?")
	require.Len(t, calls, 2)
	assert.Equal(t, "fx.rate", calls[0].Tool)
	assert.Equal(t, "USD", calls[0].Args["base"])
	assert.Equal(t, "BRL", calls[0].Args["target"])
	assert.Equal(t, 250.0, calls[0].Args["amount"])
	assert.Equal(t, "web.search", calls[1].Tool)

	fx := e.Session().LastFx
	require.NotNil(t, fx)
	assert.Equal(t, "USD", fx.Base)
	assert.Equal(t, "BRL", fx.Target)
}

func TestFxConvertBrazilianAmount(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("qual é o valor de 1.234,56 euros em dólar?")
	require.NotEmpty(t, calls)
	assert.Equal(t, 1234.56, calls[0].Args["amount"])
	assert.Equal(t, "EUR", calls[0].Args["base"])
	assert.Equal(t, "USD", calls[0].Args["target"])
}

func TestFxDefaultsToUsdBrl(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("qual a cotação do dólar hoje?")
	require.NotEmpty(t, calls)
	assert.Equal(t, "fx.rate", calls[0].Tool)
	assert.Equal(t, "USD", calls[0].Args["base"])
	assert.Equal(t, "BRL", calls[0].Args["target"])
}

func TestPriceSearchRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("qual é o valor do btc?")
	require.Len(t, calls, 2)
	assert.Equal(t, "crypto.price", calls[0].Tool)
	assert.Equal(t, "btc", calls[0].Args["asset"])
	assert.Equal(t, []string{"brl", "usd"}, calls[0].Args["vs_currencies"])
	assert.Equal(t, "web.search", calls[1].Tool)
	assert.Equal(t, "btc", e.Session().LastAsset)
}

func TestPriceSearchDeclinesUnknownAsset(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("qual é o valor do pão francês?")
	assert.Nil(t, calls)
	assert.Empty(t, e.Session().LastAsset)
}

func TestCorrectionReplaysSessionMemory(t *testing.T) {
	e := newTestEngine()
	e.session.LastAsset = "btc"
	e.session.LastPriceVs = []string{"brl", "usd"}
	e.session.LastFx = &FxRequest{Base: "USD", Target: "BRL", Amount: 10}
	e.session.LastSearchBase = "preço atual btc"

	calls := e.FindToolCalls("esse valor parece errado, verifique por favor")
	require.Len(t, calls, 3)
	assert.Equal(t, "crypto.price", calls[0].Tool)
	assert.Equal(t, "btc", calls[0].Args["asset"])
	assert.Equal(t, "fx.rate", calls[1].Tool)
	assert.Equal(t, "web.search", calls[2].Tool)
	assert.Contains(t, calls[2].Args["query"], "atualizado hoje")
}

func TestCorrectionWithoutMemoryDeclines(t *testing.T) {
	e := newTestEngine()
	assert.Nil(t, e.FindToolCalls("isso está errado, corrija"))
}

func TestWebSearchRuleStripsTriggers(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("Lori, pesquise na internet sobre energia solar")
	require.Len(t, calls, 1)
	assert.Equal(t, "web.search", calls[0].Tool)
	assert.Equal(t, "energia solar", calls[0].Args["query"])
	assert.Equal(t, 3, calls[0].Args["limit"])
}

func TestWebSearchAddsSiteFilters(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("pesquise na internet notícias em www.example.com.br sobre chuvas")
	require.Len(t, calls, 1)
	query := calls[0].Args["query"].(string)
	assert.Contains(t, query, "site:example.com.br")
	assert.Equal(t, []string{"example.com.br"}, e.Session().LastSearchFilters)
}

func TestHelpUsageRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("como usar as ferramentas? me dê exemplos")
	require.Len(t, calls, 1)
	assert.Equal(t, "help.tools", calls[0].Tool)
	assert.True(t, e.Session().HelpUsage)
	assert.True(t, e.Session().HelpExamples)
}

func TestHelpListRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("liste as ferramentas disponíveis")
	require.Len(t, calls, 1)
	assert.Equal(t, "help.tools", calls[0].Tool)
}

func TestContinentsRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("quais são os continentes do mundo?")
	require.Len(t, calls, 1)
	assert.Equal(t, "geo.continents", calls[0].Tool)
}

func TestFsListRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("listar arquivos em /tmp/projeto")
	require.Len(t, calls, 1)
	assert.Equal(t, "fs.list", calls[0].Tool)
	assert.Equal(t, "/tmp/projeto", calls[0].Args["directory"])
}

func TestFsReadRule(t *testing.T) {
	e := newTestEngine()
	calls := e.FindToolCalls("leia /etc/hostname por favor")
	require.Len(t, calls, 1)
	assert.Equal(t, "fs.read", calls[0].Tool)
	assert.Equal(t, "/etc/hostname", calls[0].Args["path"])
}

func TestNormalizeCurrency(t *testing.T) {
	cases := map[string]string{
		"dólar": "USD", "dolares": "USD", "reais": "BRL", "Euro": "EUR",
		"libra": "GBP", "iene": "JPY", "xyz": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeCurrency(in), "token %q", in)
	}
}

func TestFormatBR(t *testing.T) {
	assert.Equal(t, "1.234,56", formatBR(1234.56, 2))
	assert.Equal(t, "0,50", formatBR(0.5, 2))
	assert.Equal(t, "-12.345.678,00", formatBR(-12345678, 2))
	assert.Equal(t, "5,1234", formatBR(5.1234, 4))
}
