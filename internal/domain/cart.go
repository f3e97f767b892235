package domain

import "github.com/google/uuid"

// CartLine is one distinct product held in the cart together with the
// quantity being bought. It carries a copy of the product fields so the
// cart stays renderable even if the catalog row changes later.
type CartLine struct {
	ProductID   uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	Description string    `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
}

// LineFromProduct builds a cart line for the given product and quantity.
func LineFromProduct(p *Product, quantity int) CartLine {
	return CartLine{
		ProductID:   p.ID,
		Title:       p.Title,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Quantity:    quantity,
	}
}
