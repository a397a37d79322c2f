package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/shopchat/internal/api"
	"github.com/diogo/shopchat/internal/config"
	apierrors "github.com/diogo/shopchat/internal/errors"
	"github.com/diogo/shopchat/internal/models"
	"github.com/diogo/shopchat/internal/render"
)

var (
	colorText    = lipgloss.Color("#c0caf5")
	colorTextDim = lipgloss.Color("#565f89")
	colorSuccess = lipgloss.Color("#9ece6a")
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorError   = lipgloss.Color("#f7768e")
)

var (
	agentLabelStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	agentBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)
)

// spinner handles the animated loading indicator
type spinner struct {
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

// newSpinner creates a new animated spinner
func newSpinner(message string) *spinner {
	return &spinner{
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(os.Stderr, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(os.Stderr, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinnerChar := lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Render(chars[s.frame%len(chars)])
	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)

	fmt.Fprintf(os.Stderr, "\r\033[K%s %s", spinnerChar, msg)
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows a success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(os.Stderr, "%s %s\n", checkmark, msg)
}

// stopWithError stops the spinner silently
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// queryResult is what the stream produced, handed from the callbacks to the
// command goroutine.
type queryResult struct {
	text     string
	products []models.ProductCard
	cart     *models.CartSummary
	err      error
}

// runQuery sends a single message and prints the agent's reply.
//
// In raw mode (piped output or --raw) chunks are printed as they arrive. In
// decorated mode the reply is accumulated and rendered as markdown once the
// stream completes.
func runQuery(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	cfg, _ := config.LoadConfig()
	rawOutput := rawFlag || !isStdoutTTY()

	client, err := newStoreClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var spin *spinner
	if !rawOutput {
		spin = newSpinner("Asking the shop agent")
		spin.start()
	}

	// Bridge the callback transport to this synchronous command
	var text strings.Builder
	results := make(chan queryResult, 1)

	client.Stream(context.Background(), client.UserID(), message, sessionFlag, api.StreamCallbacks{
		OnChunk: func(content string) {
			if rawOutput {
				fmt.Print(content)
			}
			text.WriteString(content)
		},
		OnComplete: func(finalText string, products []models.ProductCard, cart *models.CartSummary) {
			if text.Len() == 0 {
				text.WriteString(finalText)
				if rawOutput {
					fmt.Print(finalText)
				}
			}
			results <- queryResult{text: text.String(), products: products, cart: cart}
		},
		OnError: func(err error) {
			results <- queryResult{text: text.String(), err: err}
		},
	})

	result := <-results

	if result.err != nil {
		if !rawOutput {
			spin.stopWithError()
			fmt.Fprintln(os.Stderr, formatErrorMessage(result.err, "Query failed"))
		}
		return fmt.Errorf("query failed: %w", result.err)
	}

	if rawOutput {
		fmt.Println()
		if outputFlag != "" {
			if err := os.WriteFile(outputFlag, []byte(result.text), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
		}
		return nil
	}

	spin.stopWithSuccess("Done")
	fmt.Fprintln(os.Stderr)

	if cfg.CopyToClipboard {
		if err := clipboard.WriteAll(result.text); err != nil {
			warnMsg := lipgloss.NewStyle().Foreground(colorError).Render(
				fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
			)
			fmt.Fprintln(os.Stderr, warnMsg)
		} else {
			clipMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard")
			fmt.Fprintln(os.Stderr, clipMsg)
		}
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(result.text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
			fmt.Sprintf("✓ Reply saved to %s", outputFlag),
		)
		fmt.Fprintln(os.Stderr, successMsg)
		return nil
	}

	termWidth := getTerminalWidth()
	bubbleWidth := termWidth - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	label := agentLabelStyle.Render("✦ Shop Agent")
	fmt.Println(label)

	renderOpts := render.LoadOptionsFromConfigWithWidth(contentWidth)
	rendered, err := render.Markdown(result.text, renderOpts)
	if err != nil {
		rendered = result.text
	}
	rendered = strings.TrimRight(rendered, "\n")

	bubble := agentBubbleStyle.Width(bubbleWidth).Render(rendered)
	fmt.Println(bubble)

	if len(result.products) > 0 {
		fmt.Println(render.ProductCards(result.products, bubbleWidth))
	}

	if result.cart != nil {
		fmt.Println(agentLabelStyle.Render("✦ Cart"))
		fmt.Println(render.CartLines(result.cart.Items, bubbleWidth))
		fmt.Println(render.CartTotals(*result.cart, bubbleWidth))
	}

	return nil
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}
	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	switch {
	case apierrors.IsTransportError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check that the storefront backend is reachable and try again"))
	case apierrors.IsApplicationError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The agent backend reported a failure. Try again in a moment"))
	case apierrors.IsProtocolError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The backend sent a malformed response. A client/backend version mismatch?"))
	}

	return sb.String()
}
