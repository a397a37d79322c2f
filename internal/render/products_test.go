package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/diogo/shopchat/internal/models"
)

func TestProductCards(t *testing.T) {
	cards := []models.ProductCard{
		{ID: "p1", Name: "Red Runner", Price: 2999, Category: "Shoes", Description: "Lightweight running shoe"},
		{ID: "p2", Name: "Blue Loafer", Price: 1999.5},
	}

	out := ProductCards(cards, 60)

	for _, want := range []string{"Red Runner", "₹2999.00", "Shoes", "Blue Loafer", "₹1999.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestProductCardsEmpty(t *testing.T) {
	if out := ProductCards(nil, 60); out != "" {
		t.Errorf("empty input should render nothing, got %q", out)
	}
}

func TestProductCardsTruncatesDescription(t *testing.T) {
	cards := []models.ProductCard{
		{ID: "p1", Name: "X", Price: 1, Description: strings.Repeat("very long description ", 10)},
	}

	out := ProductCards(cards, 40)
	if !strings.Contains(out, "...") {
		t.Error("long description should be truncated with ellipsis")
	}
}

func TestProductCardsTruncatesMultibyteDescription(t *testing.T) {
	cards := []models.ProductCard{
		{ID: "p1", Name: "X", Price: 1, Description: strings.Repeat("sapatos confortáveis ₹", 8)},
	}

	out := ProductCards(cards, 40)
	if !utf8.ValidString(out) {
		t.Error("truncated description produced invalid UTF-8")
	}
	if !strings.Contains(out, "...") {
		t.Error("long description should be truncated with ellipsis")
	}
}

func TestCartLines(t *testing.T) {
	items := []models.CartItem{
		{ProductID: "p1", Name: "Red Runner", Price: 2999, Quantity: 2, SelectedSize: "M"},
		{ProductID: "p2", Name: "Blue Loafer", Price: 1999, Quantity: 1},
	}

	out := CartLines(items, 60)

	if !strings.Contains(out, "2x Red Runner (M)") {
		t.Errorf("output missing quantity/size line: %q", out)
	}
	// Line price is quantity * unit price
	if !strings.Contains(out, "₹5998.00") {
		t.Errorf("output missing extended price: %q", out)
	}
	if !strings.Contains(out, "1x Blue Loafer") {
		t.Errorf("output missing second line: %q", out)
	}
}

func TestCartLinesEmpty(t *testing.T) {
	out := CartLines(nil, 60)
	if !strings.Contains(out, "Cart is empty") {
		t.Errorf("empty cart message missing: %q", out)
	}
}

func TestCartTotals(t *testing.T) {
	summary := models.CartSummary{
		Subtotal:     5998,
		Shipping:     99,
		Discount:     500,
		DiscountCode: "SAVE500",
		Total:        5597,
	}

	out := CartTotals(summary, 60)

	for _, want := range []string{"Subtotal", "₹5998.00", "Shipping", "₹99.00", "Discount (SAVE500)", "-₹500.00", "Total", "₹5597.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("totals missing %q", want)
		}
	}
}

func TestCartTotalsNoDiscount(t *testing.T) {
	out := CartTotals(models.CartSummary{Subtotal: 100, Total: 100}, 60)
	if strings.Contains(out, "Discount") {
		t.Error("zero discount should not render a discount row")
	}
}
