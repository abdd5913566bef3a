// Web tools: page fetch with text extraction, parallel multi-fetch, and
// DuckDuckGo HTML search.

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func (tb *Toolbox) webSpecs() []Spec {
	return []Spec{
		{
			Name:        "web.get",
			Description: "Baixar uma página e extrair o texto principal",
			Params:      map[string]string{"url": "str"},
			Func:        tb.webGet,
		},
		{
			Name:        "web.get_many",
			Description: "Baixar várias páginas em paralelo e extrair o texto",
			Params:      map[string]string{"urls": "list[str]", "max_workers": "int?"},
			Func:        tb.webGetMany,
		},
		{
			Name:        "web.search",
			Description: "Pesquisar na web (DuckDuckGo) e listar resultados",
			Params:      map[string]string{"query": "str", "limit": "int?"},
			Func:        tb.webSearch,
		},
		{
			Name:        "web.open",
			Description: "Abrir a primeira URL de uma lista e extrair o texto",
			Params:      map[string]string{"urls": "list[str]"},
			Func:        tb.webOpen,
		},
	}
}

func (tb *Toolbox) webGet(ctx context.Context, args map[string]any) Result {
	var a struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.URL == "" {
		return Fail("URL não fornecida")
	}
	title, text, err := tb.fetchPage(ctx, a.URL)
	if err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"title": title, "text": text})
}

// webGetMany fans fetches out concurrently but merges results in original
// request order, so repeated runs are deterministic.
func (tb *Toolbox) webGetMany(ctx context.Context, args map[string]any) Result {
	var a struct {
		URLs       []string `json:"urls"`
		MaxWorkers int      `json:"max_workers"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if len(a.URLs) == 0 {
		return Fail("uma lista de 'urls' é necessária")
	}
	workers := a.MaxWorkers
	if workers <= 0 || workers > 5 {
		workers = 5
	}

	pages := make([]map[string]any, len(a.URLs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pageURL := range a.URLs {
		g.Go(func() error {
			title, text, err := tb.fetchPage(gctx, pageURL)
			if err != nil {
				pages[i] = map[string]any{"ok": false, "url": pageURL, "error": err.Error()}
				return nil
			}
			pages[i] = map[string]any{"ok": true, "url": pageURL, "title": title, "text": text}
			return nil
		})
	}
	_ = g.Wait()
	return OK(map[string]any{"pages": pages})
}

func (tb *Toolbox) webOpen(ctx context.Context, args map[string]any) Result {
	var a struct {
		URLs []string `json:"urls"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if len(a.URLs) == 0 {
		return Fail("urls list required")
	}
	first := a.URLs[0]
	if strings.HasPrefix(first, "//") {
		first = "https:" + first
	}
	return tb.webGet(ctx, map[string]any{"url": first})
}

func (tb *Toolbox) webSearch(ctx context.Context, args map[string]any) Result {
	var a struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if strings.TrimSpace(a.Query) == "" {
		return Fail("parâmetro 'query' obrigatório")
	}
	if a.Limit <= 0 {
		a.Limit = 5
	}

	results, err := tb.duckSearch(ctx, a.Query, a.Limit)
	if err != nil {
		return Fail("falha_na_busca: %v", err)
	}
	return OK(map[string]any{"results": results})
}

// duckSearch queries DuckDuckGo's HTML endpoint and parses the result list.
func (tb *Toolbox) duckSearch(ctx context.Context, query string, limit int) ([]map[string]any, error) {
	searchURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(strings.Join(strings.Fields(query), " "))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := tb.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGo(doc, limit), nil
}

// searchSources runs a quick search and keeps only the result URLs. Callers
// attach these as optional references, so errors collapse to an empty list.
func (tb *Toolbox) searchSources(ctx context.Context, query string) []string {
	results, err := tb.duckSearch(ctx, query, 5)
	if err != nil {
		return []string{}
	}
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if u, _ := r["url"].(string); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// fetchPage downloads a URL and extracts title plus readable text, bounded
// by the configured web character limit.
func (tb *Toolbox) fetchPage(ctx context.Context, pageURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := tb.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", "", err
	}
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", "", err
	}

	title := findTitle(doc)
	text := extractText(doc)
	if len(text) > tb.limits.MaxWebChars {
		text = text[:tb.limits.MaxWebChars]
	}
	return title, text, nil
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "footer": true, "aside": true, "head": true,
}

var spaceRun = regexp.MustCompile(`\s{2,}`)

func extractText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var lines []string
	for _, line := range strings.Split(spaceRun.ReplaceAllString(sb.String(), " "), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// parseDuckDuckGo walks the html.duckduckgo.com result markup: anchors with
// class result__a carry title and link, result__snippet spans the snippet.
func parseDuckDuckGo(doc *html.Node, limit int) []map[string]any {
	results := make([]map[string]any, 0, limit)
	seen := make(map[string]bool)

	var current map[string]any
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			link := normalizeDuckURL(attr(n, "href"))
			if link != "" && !seen[link] {
				seen[link] = true
				current = map[string]any{"title": nodeText(n), "url": link, "snippet": ""}
				results = append(results, current)
			}
		}
		if n.Type == html.ElementNode && hasClass(n, "result__snippet") && current != nil {
			current["snippet"] = strings.TrimSpace(nodeText(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

// normalizeDuckURL unwraps DuckDuckGo's redirect links (/l/?uddg=<target>).
func normalizeDuckURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			if decoded, err := url.QueryUnescape(target); err == nil {
				return decoded
			}
			return target
		}
	}
	if u.Scheme == "" {
		return ""
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
