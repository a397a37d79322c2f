package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/shopchat/internal/models"
)

var (
	cardBorderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#565f89")).
			Padding(0, 1)

	cardNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0caf5")).
			Bold(true)

	cardPriceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a"))

	cardMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))
)

// ProductCards renders the product suggestions attached to an agent message
// as a vertical list of bordered cards.
func ProductCards(cards []models.ProductCard, width int) string {
	if len(cards) == 0 {
		return ""
	}
	if width < 24 {
		width = 24
	}

	var rendered []string
	for _, card := range cards {
		var lines []string
		lines = append(lines, cardNameStyle.Render(card.Name))
		lines = append(lines, cardPriceStyle.Render(fmt.Sprintf("₹%.2f", card.Price)))
		if card.Category != "" {
			lines = append(lines, cardMetaStyle.Render(card.Category))
		}
		if card.Description != "" {
			desc := card.Description
			// Truncate on runes so multibyte text is never cut mid-character
			if runes := []rune(desc); len(runes) > width-6 {
				desc = string(runes[:width-9]) + "..."
			}
			lines = append(lines, cardMetaStyle.Render(desc))
		}

		rendered = append(rendered, cardBorderStyle.Width(width-2).Render(strings.Join(lines, "\n")))
	}

	return strings.Join(rendered, "\n")
}

// CartLines renders the cart item list with one line per product.
func CartLines(items []models.CartItem, width int) string {
	if len(items) == 0 {
		return cardMetaStyle.Render("Cart is empty")
	}

	var lines []string
	for _, item := range items {
		name := item.Name
		if item.SelectedSize != "" {
			name = fmt.Sprintf("%s (%s)", name, item.SelectedSize)
		}
		line := fmt.Sprintf("%dx %s", item.Quantity, name)
		price := fmt.Sprintf("₹%.2f", item.Price*float64(item.Quantity))

		pad := width - lipgloss.Width(line) - lipgloss.Width(price)
		if pad < 1 {
			pad = 1
		}
		lines = append(lines, line+strings.Repeat(" ", pad)+cardPriceStyle.Render(price))
	}

	return strings.Join(lines, "\n")
}

// CartTotals renders the authoritative totals block pushed by the agent.
func CartTotals(summary models.CartSummary, width int) string {
	row := func(label, value string) string {
		pad := width - lipgloss.Width(label) - lipgloss.Width(value)
		if pad < 1 {
			pad = 1
		}
		return label + strings.Repeat(" ", pad) + value
	}

	var lines []string
	lines = append(lines, row("Subtotal", fmt.Sprintf("₹%.2f", summary.Subtotal)))
	lines = append(lines, row("Shipping", fmt.Sprintf("₹%.2f", summary.Shipping)))
	if summary.Discount > 0 {
		label := "Discount"
		if summary.DiscountCode != "" {
			label = fmt.Sprintf("Discount (%s)", summary.DiscountCode)
		}
		lines = append(lines, row(label, fmt.Sprintf("-₹%.2f", summary.Discount)))
	}
	lines = append(lines, row(cardNameStyle.Render("Total"), cardPriceStyle.Render(fmt.Sprintf("₹%.2f", summary.Total))))

	return strings.Join(lines, "\n")
}
