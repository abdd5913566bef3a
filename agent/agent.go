// Package agent implements the conversation loop: model turns, tool-call
// extraction, the confirmation handshake and the bounded retry protocol.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lorihq/lori/heuristic"
	"github.com/lorihq/lori/internal/wire"
	"github.com/lorihq/lori/llm"
	"github.com/lorihq/lori/storage"
	"github.com/lorihq/lori/tools"
)

const (
	// maxRounds bounds the inference rounds per user turn.
	maxRounds = 12
	// maxRetries bounds nudges and tool-failure retries per user turn.
	maxRetries = 2
)

const systemPrompt = "Você é a Lori, uma assistente de IA para o terminal, programada para ser proativa, inteligente e amigável, respondendo em Português do Brasil. " +
	"Sua principal função é executar tarefas usando um conjunto de ferramentas. " +
	"Para executar uma ação, sua resposta DEVE conter um único bloco <tool_call> com o JSON da chamada. Exemplo: <tool_call>{\"tool\":\"fs.read\",\"args\":{\"path\":\"arquivo.txt\"}}</tool_call>. " +
	"Após o resultado da ferramenta (<tool_result>), você pode usar outra ferramenta ou fornecer a resposta final. " +
	"Se a pergunta for uma conversa ou não precisar de ferramentas (ex: 'olá'), responda diretamente. " +
	"Pense passo a passo. Se um caminho de arquivo não for fornecido, use 'fs.list' para encontrá-lo. Não invente caminhos. " +
	"Todas as operações de arquivo são restritas ao diretório raiz configurado (atualmente em '%s'). " +
	"Prefira reutilizar e atualizar arquivos existentes em vez de criar novos. " +
	"Quando o usuário apontar erros ou pedir para verificar, execute novamente as ferramentas relevantes para obter dados atualizados. " +
	"Para cotações de criptoativos, use a ferramenta 'crypto.price'. " +
	"Para apresentar dados tabulares, use a sintaxe de tabelas do Markdown. " +
	"Para visualizações simples, como gráficos de barra, use arte ASCII (ex: 'BTC: ██████░░░░ 70%%')."

const finalFallback = "Não consegui processar a resposta após várias tentativas."

// envRestrictionAdvisory is appended instead of a retry when a command is
// blocked by the environment allowlist: the block is permanent, so retrying
// the same call can never succeed.
const envRestrictionAdvisory = "Este comando está permanentemente bloqueado neste ambiente. " +
	"Não tente executá-lo novamente; use outra ferramenta ou explique a restrição ao usuário."

// Options configures an Agent.
type Options struct {
	// Root is the sandbox root shown in the system prompt.
	Root string
	// History receives the full turn sequence at every terminal path.
	// Nil means storage.Discard.
	History storage.History
	// Confirm decides non-streaming confirmation requests (the chat REPL
	// prompts on stdin). Nil denies.
	Confirm func(res tools.Result) bool
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Agent drives one conversation. Not safe for concurrent use; one user turn
// runs at a time, since every round reads and appends the same turn history.
type Agent struct {
	client     *llm.Client
	dispatcher *tools.Dispatcher
	heuristics *heuristic.Engine
	history    storage.History
	confirm    func(res tools.Result) bool
	logger     *zap.Logger

	messages      []llm.ChatMessage
	approvedPaths map[string]struct{}
}

// New creates an agent over the given model client and tool dispatcher.
func New(client *llm.Client, dispatcher *tools.Dispatcher, opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	history := opts.History
	if history == nil {
		history = storage.Discard{}
	}

	a := &Agent{
		client:        client,
		dispatcher:    dispatcher,
		history:       history,
		confirm:       opts.Confirm,
		logger:        logger,
		approvedPaths: make(map[string]struct{}),
	}
	a.heuristics = heuristic.New(dispatcher, &heuristic.Session{}, logger)

	prompt := fmt.Sprintf(systemPrompt, opts.Root) + "\n" + dispatcher.Registry().Describe()
	a.messages = []llm.ChatMessage{llm.SystemMessage(prompt)}
	return a
}

// Messages exposes the conversation turns accumulated so far.
func (a *Agent) Messages() []llm.ChatMessage {
	return a.messages
}

// AddUser appends a user turn.
func (a *Agent) AddUser(content string) {
	a.messages = append(a.messages, llm.UserMessage(content))
}

// AddAssistant appends an assistant turn.
func (a *Agent) AddAssistant(content string) {
	a.messages = append(a.messages, llm.AssistantMessage(content))
}

// Run executes one user turn and returns the final answer. Confirmation
// requests go through Options.Confirm; without one they are denied.
func (a *Agent) Run(ctx context.Context, prompt string) string {
	decide := func(res tools.Result) bool {
		if a.confirm == nil {
			return false
		}
		return a.confirm(res)
	}
	return a.run(ctx, prompt, nil, decide)
}

// RunStream executes one user turn in agent mode: events stream on the
// returned channel (closed when the turn ends) and every confirm_required
// event suspends the loop until a Decision is sent on the decision channel.
func (a *Agent) RunStream(ctx context.Context, prompt string) (<-chan Event, chan<- Decision) {
	events := make(chan Event)
	decisions := make(chan Decision)

	go func() {
		defer close(events)
		emit := func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		decide := func(res tools.Result) bool {
			emit(Event{Type: EventConfirmRequired, Data: res})
			select {
			case d := <-decisions:
				return d.Approved
			case <-ctx.Done():
				return false
			}
		}
		a.run(ctx, prompt, emit, decide)
	}()

	return events, decisions
}

// run is the loop shared by Run and RunStream. emit is nil in non-streaming
// mode; decide resolves confirmation requests in both modes.
func (a *Agent) run(ctx context.Context, prompt string, emit func(Event), decide func(tools.Result) bool) string {
	if n := len(a.messages); n == 0 || a.messages[n-1].Content != prompt {
		a.AddUser(prompt)
	}

	toolSuccess := false
	if answer, matched := a.heuristics.RunShortcuts(ctx, prompt, a); matched {
		if answer != heuristic.Continue {
			a.saveHistory(ctx)
			if emit != nil {
				emit(Event{Type: EventContent, Content: answer})
			}
			return answer
		}
		// Shortcut calls already ran and enriched the context; the model
		// summarizes, and the nudge protocol stands down.
		toolSuccess = true
	}

	expectingTools := expectsToolUse(prompt)
	retries := 0

	for round := 0; round < maxRounds; round++ {
		content := a.step(ctx, emit)

		call := wire.ExtractToolCall(content)
		var name string
		var args map[string]any
		if call != nil {
			// An unregistered tool name counts as no tool call.
			name, args = tools.NormalizeAlias(call.Tool, call.Args)
			if !a.dispatcher.Registry().Has(name) {
				call = nil
			}
		}

		if call == nil {
			a.AddAssistant(content)
			if expectingTools && !toolSuccess && retries < maxRetries {
				retries++
				a.AddUser(nudgeFor(prompt))
				if emit != nil {
					emit(Event{Type: EventThought, Content: "O modelo não usou uma ferramenta. Tentando novamente com uma instrução mais clara."})
				}
				continue
			}
			a.saveHistory(ctx)
			return wire.StripMarkers(content)
		}

		// Only the canonical rendering enters history while a tool is
		// expected; the model's surrounding prose is discarded.
		if expectingTools {
			a.AddAssistant(wire.FormatToolCall(wire.ToolCall{Tool: name, Args: args}))
		} else {
			a.AddAssistant(content)
		}

		if emit != nil {
			emit(Event{Type: EventToolCall, Data: map[string]any{"name": name, "args": args}})
		}
		result := a.dispatcher.Dispatch(ctx, name, args)

		if result.ConfirmRequired {
			if a.pathApproved(result.Path) {
				result = a.redispatch(ctx, name, args)
			} else if decide(result) {
				a.rememberApproval(result.Path)
				result = a.redispatch(ctx, name, args)
			} else {
				result = tools.Fail("user_denied")
			}
		}

		if emit != nil {
			emit(Event{Type: EventToolResult, Data: result})
		}

		if !result.Ok {
			// Permanently blocked operations do not consume retries;
			// the advisory stops the model from looping on them.
			if tools.IsEnvRestriction(result) {
				a.AddUser(wire.FormatToolResult(result))
				a.AddUser(envRestrictionAdvisory)
				continue
			}
			if result.Error != "user_denied" && retries < maxRetries {
				retries++
				a.AddUser(wire.FormatToolResult(result))
				continue
			}
			a.AddUser(wire.FormatToolResult(result))
			if result.Error == "user_denied" {
				expectingTools = false
			}
			continue
		}

		a.AddUser(wire.FormatToolResult(simplifyForHistory(result)))
		toolSuccess = true
	}

	a.saveHistory(ctx)
	if emit != nil {
		emit(Event{Type: EventContent, Content: finalFallback})
	}
	return finalFallback
}

// step requests one completion over the full conversation. In streaming mode
// the chunks are forwarded as content events while they arrive.
func (a *Agent) step(ctx context.Context, emit func(Event)) string {
	if emit == nil {
		return a.client.Complete(ctx, a.messages)
	}

	emit(Event{Type: EventThought, Content: "O modelo está gerando a resposta..."})

	chunks := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for piece := range chunks {
			emit(Event{Type: EventContent, Content: piece})
		}
	}()
	content := a.client.StreamComplete(ctx, a.messages, chunks)
	close(chunks)
	<-done
	return content
}

func (a *Agent) redispatch(ctx context.Context, name string, args map[string]any) tools.Result {
	rerun := make(map[string]any, len(args)+1)
	for k, v := range args {
		rerun[k] = v
	}
	rerun[tools.AllowOutsideRootKey] = true
	return a.dispatcher.Dispatch(ctx, name, rerun)
}

func (a *Agent) pathApproved(raw string) bool {
	if raw == "" {
		return false
	}
	target, err := filepath.Abs(raw)
	if err != nil {
		return false
	}
	target = filepath.Clean(target)
	for dir := range a.approvedPaths {
		if target == dir || strings.HasPrefix(target, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// rememberApproval records the approved directory: the path itself when it is
// a directory, its parent otherwise. Approvals last for the session.
func (a *Agent) rememberApproval(raw string) {
	if raw == "" {
		return
	}
	target, err := filepath.Abs(raw)
	if err != nil {
		return
	}
	target = filepath.Clean(target)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		a.approvedPaths[target] = struct{}{}
		return
	}
	a.approvedPaths[filepath.Dir(target)] = struct{}{}
}

func (a *Agent) saveHistory(ctx context.Context) {
	turns := make([]llm.ChatMessage, len(a.messages))
	copy(turns, a.messages)
	rec := storage.Record{
		Model: a.client.Provider().Model(),
		Turns: turns,
	}
	if err := a.history.Append(ctx, rec); err != nil {
		a.logger.Debug("failed to persist history", zap.Error(err))
	}
}

// expectsToolUse is the lexical gate for the nudge protocol: tool-name
// prefixes and imperative verbs in the original prompt bias the loop toward
// retrying when the model answers without a tool call. It never forces or
// prevents a call.
func expectsToolUse(text string) bool {
	pl := strings.ToLower(text)
	keywords := []string{
		"<tool_call>", "fs.", "web.", "edit.", "shell.", "git.", "sys.", "geo.",
		"leia", "ler ", "abrir ", "liste", "listar", "busque", "pesquise", "pesquisa", "executar", "rodar", "use ",
	}
	for _, k := range keywords {
		if strings.Contains(pl, k) {
			return true
		}
	}
	return false
}

func nudgeFor(prompt string) string {
	short := prompt
	if runes := []rune(short); len(runes) > 50 {
		short = string(runes[:50])
	}
	return fmt.Sprintf("Lembre-se: para a tarefa '%s...', você deve usar uma das ferramentas disponíveis. "+
		"Use a sintaxe <tool_call>{\"tool\":\"nome.da.ferramenta\", ...}</tool_call> para executar a ação.", short)
}

// maxEchoChars bounds how much of a bulky field is echoed back to the model.
const maxEchoChars = 4096

// simplifyForHistory truncates oversized payload fields of successful results
// before they re-enter the conversation. The model already has reason to
// trust the data; re-feeding hundreds of kilobytes only burns context.
func simplifyForHistory(r tools.Result) tools.Result {
	if !r.Ok || r.Extra == nil {
		return r
	}
	for _, key := range []string{"content", "stdout"} {
		s, ok := r.Extra[key].(string)
		if !ok || len(s) <= maxEchoChars {
			continue
		}
		cut := maxEchoChars
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		extra := make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		extra[key] = s[:cut] + fmt.Sprintf("\n... [truncado; %d bytes no total]", len(s))
		r.Extra = extra
	}
	return r
}
