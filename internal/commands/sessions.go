package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
	Long:  `List, create, and delete chat sessions on the storefront backend.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsList()
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsNew()
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a chat session and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsDelete(args[0])
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func runSessionsList() error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	sessions, err := client.ListSessions(client.UserID())
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to list sessions"))
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Start one with 'shopchat chat' or 'shopchat sessions new'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION ID\tCREATED\tMESSAGES\tTITLE")
	for _, s := range sessions {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.SessionID, created, s.MessageCount, truncate(s.Title, 48))
	}
	return w.Flush()
}

func runSessionsNew() error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	sessionID, err := client.CreateSession(client.UserID())
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to create session"))
		return fmt.Errorf("failed to create session: %w", err)
	}

	fmt.Println(sessionID)
	return nil
}

func runSessionsDelete(sessionID string) error {
	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeleteSession(sessionID); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Failed to delete session"))
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("Deleted session %s\n", sessionID)
	return nil
}

// truncate shortens a string to maxLen runes, appending "..." when cut
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
