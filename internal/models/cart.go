package models

// CartItem is one line of the cart as reported by the agent backend.
type CartItem struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	ImageURL     string  `json:"image_url,omitempty"`
	SelectedSize string  `json:"selected_size,omitempty"`
}

// CartSummary is the authoritative cart snapshot pushed inside a completed
// agent turn. The backend maintains the invariant
// Total == Subtotal + Shipping - Discount; the client never re-derives it.
type CartSummary struct {
	Items        []CartItem `json:"items"`
	Subtotal     float64    `json:"subtotal"`
	Shipping     float64    `json:"shipping"`
	Discount     float64    `json:"discount"`
	DiscountCode string     `json:"discount_code,omitempty"`
	Total        float64    `json:"total"`
}
