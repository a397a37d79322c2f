package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/diogo/shopchat/internal/history"
	"github.com/diogo/shopchat/internal/models"
	"github.com/diogo/shopchat/internal/render"
)

var exportFormatFlag string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect chat history",
	Long:  `Show or clear the message history of a chat session.`,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's conversation log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryShow(args[0])
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Clear a session's history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryClear(args[0])
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Long:  `Export a session's conversation log as Markdown or JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryExport(args[0])
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search <session-id> <query>",
	Short: "Search a session's messages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistorySearch(args[0], args[1])
	},
}

func init() {
	historyExportCmd.Flags().StringVar(&exportFormatFlag, "format", "markdown", "Export format: markdown or json")
	historyExportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the transcript to a file instead of stdout")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historySearchCmd)
}

func runHistoryShow(sessionID string) error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	messages, err := client.GetHistory(sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to load history"))
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("No messages in this session.")
		return nil
	}

	if rawFlag || !isStdoutTTY() {
		for _, msg := range messages {
			fmt.Printf("[%s] %s\n", msg.Sender, msg.Text)
		}
		return nil
	}

	userStyle := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	width := getTerminalWidth() - 4
	if width > 120 {
		width = 120
	}

	for _, msg := range messages {
		if msg.Sender == models.SenderUser {
			fmt.Println(userStyle.Render("› You"))
			fmt.Println(msg.Text)
		} else {
			fmt.Println(agentLabelStyle.Render("✦ Shop Agent"))
			rendered, err := render.MarkdownWithWidth(msg.Text, width)
			if err != nil {
				rendered = msg.Text
			}
			fmt.Print(rendered)
			if len(msg.Products) > 0 {
				fmt.Println(render.ProductCards(msg.Products, width))
			}
		}
		fmt.Println()
	}

	return nil
}

func runHistoryClear(sessionID string) error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ClearHistory(sessionID); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to clear history"))
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Printf("Cleared history for session %s\n", sessionID)
	return nil
}

func runHistoryExport(sessionID string) error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	messages, err := client.GetHistory(sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to load history"))
		return fmt.Errorf("failed to load history: %w", err)
	}

	var content []byte
	switch history.ExportFormat(exportFormatFlag) {
	case history.ExportFormatMarkdown:
		content = []byte(history.ExportToMarkdown(sessionID, messages))
	case history.ExportFormatJSON:
		content, err = history.ExportToJSON(sessionID, messages)
		if err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
	default:
		return fmt.Errorf("unknown export format: %s", exportFormatFlag)
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, content, 0o644); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
		fmt.Printf("Transcript saved to %s\n", outputFlag)
		return nil
	}

	fmt.Print(string(content))
	return nil
}

func runHistorySearch(sessionID, query string) error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	messages, err := client.GetHistory(sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to load history"))
		return fmt.Errorf("failed to load history: %w", err)
	}

	results := history.SearchMessages(messages, query)
	if len(results) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	for _, result := range results {
		msg := messages[result.MessageIndex]
		fmt.Printf("[%s] %s\n", msg.Sender, result.Snippet)
	}
	return nil
}
