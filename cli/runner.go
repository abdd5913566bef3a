// Command execution for CLI commands.
//
// Information Hiding:
// - Agent and tool-stack setup hidden
// - Confirmation prompting hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lorihq/lori/agent"
	"github.com/lorihq/lori/config"
	"github.com/lorihq/lori/internal/wire"
	"github.com/lorihq/lori/llm"
	"github.com/lorihq/lori/sandbox"
	"github.com/lorihq/lori/storage"
	"github.com/lorihq/lori/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	Model    string
	Verbose  bool
}

// stack is the wired application: settings, dispatcher, model client, history.
type stack struct {
	settings   config.Settings
	dispatcher *tools.Dispatcher
	client     *llm.Client
	history    storage.History
	logger     *zap.Logger
}

func (s *stack) close() {
	s.history.Close()
	s.logger.Sync()
}

func buildStack(opts Options, withModel bool) (*stack, error) {
	settings, err := config.New()
	if err != nil {
		return nil, err
	}
	if opts.Provider != "" {
		settings.LLM.Provider = opts.Provider
	}
	if opts.Model != "" {
		settings.LLM.Model = opts.Model
	}

	logger := zap.NewNop()
	if opts.Verbose || settings.Verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	dispatcher, err := buildDispatcher(settings, logger)
	if err != nil {
		return nil, err
	}

	var client *llm.Client
	if withModel {
		provider, err := buildProvider(settings)
		if err != nil {
			return nil, err
		}
		client = llm.NewClient(provider)
	}

	var history storage.History = storage.Discard{}
	if withModel {
		history, err = storage.OpenSqlite(filepath.Join(settings.StateDir, "history.db"))
		if err != nil {
			// History is best-effort; conversations work without it.
			logger.Warn("failed to open history database", zap.Error(err))
			history = storage.Discard{}
		}
	}

	return &stack{
		settings:   settings,
		dispatcher: dispatcher,
		client:     client,
		history:    history,
		logger:     logger,
	}, nil
}

func buildDispatcher(settings config.Settings, logger *zap.Logger) (*tools.Dispatcher, error) {
	policy, err := sandbox.NewPolicy(
		settings.Sandbox.Root,
		settings.Sandbox.Denylist,
		settings.Sandbox.ReadOnlyDirs,
		settings.Sandbox.GlobalRead,
		settings.Sandbox.GlobalWrite,
	)
	if err != nil {
		return nil, err
	}
	tb := tools.NewToolbox(policy, tools.Limits{
		MaxReadBytes: settings.Limits.MaxReadBytes,
		MaxWebChars:  settings.Limits.MaxWebChars,
		Timeout:      settings.Limits.Timeout,
	}, settings.Sandbox.ShellAllow, logger)
	return tools.NewDispatcher(tools.NewRegistry(tb), logger), nil
}

func buildProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	builder := llm.NewProviderBuilder(providerType).Model(settings.LLM.Model)
	if providerType == llm.ProviderOllama {
		builder = builder.BaseURL(settings.LLM.OllamaBaseURL)
	}
	return builder.FromEnv()
}

func buildAgent(s *stack, confirm func(res tools.Result) bool) *agent.Agent {
	return agent.New(s.client, s.dispatcher, agent.Options{
		Root:    s.settings.Sandbox.Root,
		History: s.history,
		Confirm: confirm,
		Logger:  s.logger,
	})
}

// Chat starts the interactive REPL. Confirmation requests prompt on stdin;
// model output streams as it arrives.
func Chat(ctx context.Context, opts Options) error {
	s, err := buildStack(opts, true)
	if err != nil {
		return err
	}
	defer s.close()

	stdin := bufio.NewReader(os.Stdin)
	a := buildAgent(s, nil) // streaming mode handles confirmations itself

	fmt.Println("Lori — digite Ctrl+D para sair")
	for {
		fmt.Print("you> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		prompt := strings.TrimSpace(line)
		if prompt == "" {
			continue
		}

		fmt.Print("assistant> ")
		events, decisions := a.RunStream(ctx, prompt)
		for ev := range events {
			switch ev.Type {
			case agent.EventContent:
				fmt.Print(ev.Content)
			case agent.EventConfirmRequired:
				decisions <- promptDecision(stdin, ev)
			}
		}
		fmt.Print("\n\n")
	}
}

// promptDecision asks the operator for a confirmation decision on stdin.
func promptDecision(stdin *bufio.Reader, ev agent.Event) agent.Decision {
	reason := ""
	if res, ok := ev.Data.(tools.Result); ok {
		reason = res.Reason
	}
	fmt.Printf("\n[confirm] Ação requer aprovação: %q\n", reason)
	fmt.Print("Permitir? [s/N]: ")

	line, err := stdin.ReadString('\n')
	if err != nil {
		return agent.Decision{Approved: false}
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "sim", "y", "yes":
		return agent.Decision{Approved: true}
	}
	return agent.Decision{Approved: false}
}

// Ask runs a single prompt non-interactively. Confirmation requests are
// denied, since there is nobody to ask.
func Ask(ctx context.Context, prompt string, opts Options) error {
	s, err := buildStack(opts, true)
	if err != nil {
		return err
	}
	defer s.close()

	a := buildAgent(s, nil)
	fmt.Println(a.Run(ctx, prompt))
	return nil
}

// ListTools prints the registered tool names, sorted.
func ListTools(opts Options) error {
	s, err := buildStack(opts, false)
	if err != nil {
		return err
	}
	defer s.close()

	names := s.dispatcher.Registry().Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// CallTool dispatches one tool directly, bypassing the model, and prints the
// result as indented JSON.
func CallTool(ctx context.Context, name, argsJSON string, opts Options) error {
	s, err := buildStack(opts, false)
	if err != nil {
		return err
	}
	defer s.close()

	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return fmt.Errorf("invalid JSON for --args-json: %w", err)
	}

	result := s.dispatcher.Dispatch(ctx, name, args)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// History prints the most recent conversation records.
func History(ctx context.Context, limit int, opts Options) error {
	if limit <= 0 {
		limit = 5
	}
	s, err := buildStack(opts, false)
	if err != nil {
		return err
	}
	defer s.close()

	history, err := storage.OpenSqlite(filepath.Join(s.settings.StateDir, "history.db"))
	if err != nil {
		fmt.Println("Nenhum histórico encontrado.")
		return nil
	}
	defer history.Close()

	records, err := history.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("erro ao ler o histórico: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("Nenhum histórico registrado ainda.")
		return nil
	}

	fmt.Printf("Histórico recente (mostrando %d):\n", len(records))
	for _, rec := range records {
		firstUser, lastAssistant := "", ""
		for _, msg := range rec.Turns {
			switch msg.Role {
			case "user":
				if firstUser == "" {
					firstUser = msg.Content
				}
			case "assistant":
				lastAssistant = msg.Content
			}
		}
		fmt.Printf("- [%s] modelo: %s\n", rec.TS.Format(time.RFC3339), rec.Model)
		if firstUser = trimSample(wire.StripMarkers(firstUser)); firstUser != "" {
			fmt.Printf("  usuário: %s\n", firstUser)
		}
		if lastAssistant = trimSample(wire.StripMarkers(lastAssistant)); lastAssistant != "" {
			fmt.Printf("  assistente: %s\n", lastAssistant)
		}
		fmt.Println()
	}
	return nil
}

func trimSample(sample string) string {
	normalized := strings.TrimSpace(strings.ReplaceAll(sample, "\n", " "))
	if runes := []rune(normalized); len(runes) > 180 {
		return string(runes[:177]) + "..."
	}
	return normalized
}
