// Package main provides the lori CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/lorihq/lori/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider string
	model    string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "lori",
		Short: "Assistente de terminal com ferramentas locais",
		Long: `Lori é uma assistente de terminal que conversa em português e executa
ferramentas locais (arquivos, shell, git, web) dentro de um sandbox de caminhos.

O modelo invoca ferramentas via blocos <tool_call> no próprio texto; ações fora
do diretório raiz exigem confirmação do usuário.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (ollama, openai, anthropic, gemini)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Model name (default from ASSISTANT_MODEL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		Model:    model,
		Verbose:  verbose,
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), options())
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Run a single prompt and print the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], options())
		},
	}
}

func toolsCmd() *cobra.Command {
	var list bool
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "tools [name]",
		Short: "List registered tools or call one directly",
		Long: `List registered tools or dispatch one directly, bypassing the model.

Examples:
  lori tools --list
  lori tools fs.list --args-json '{"directory":"."}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || len(args) == 0 {
				return cli.ListTools(options())
			}
			return cli.CallTool(context.Background(), args[0], argsJSON, options())
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List registered tool names")
	cmd.Flags().StringVar(&argsJSON, "args-json", "{}", "Tool arguments as a JSON object")

	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.History(context.Background(), limit, options())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Number of conversations to show")

	return cmd
}
