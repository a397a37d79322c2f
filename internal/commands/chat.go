package commands

import (
	"github.com/spf13/cobra"

	"github.com/diogo/shopchat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive shopping chat",
	Long: `Start an interactive chat with the storefront shopping agent.

The chat keeps its context inside a session. Use --session to resume an
earlier conversation, Ctrl+T to toggle the cart panel, Ctrl+L to pick a
different session, and Ctrl+C or 'exit' to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	return tui.RunChat(client, sessionFlag)
}
