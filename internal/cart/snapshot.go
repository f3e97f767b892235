package cart

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// lineRecord is the persisted wire shape of one cart line: the product
// fields plus a quantity. Price is kept raw on the way in because some
// backends serialize NUMERIC columns as strings.
type lineRecord struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Price       json.RawMessage `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
}

// encodeSnapshot serializes the cart as a JSON array of line records
func encodeSnapshot(lines []domain.CartLine) (string, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeSnapshot parses a persisted snapshot back into cart lines,
// coercing prices through parsePrice and treating a missing quantity as
// one unit. Any parse error means the whole snapshot is discarded.
func decodeSnapshot(raw string) ([]domain.CartLine, error) {
	var records []lineRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(records))
	for _, rec := range records {
		quantity := rec.Quantity
		if quantity < 1 {
			quantity = 1
		}
		lines = append(lines, domain.CartLine{
			ProductID:   rec.ID,
			Title:       rec.Title,
			Price:       parsePrice(rec.Price),
			ImageURL:    rec.ImageURL,
			Description: rec.Description,
			Quantity:    quantity,
		})
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return lines, nil
}

// parsePrice reads a JSON number or a numeric string, falling back to
// zero for anything unparseable
func parsePrice(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if number, err := strconv.ParseFloat(text, 64); err == nil {
			return number
		}
	}

	return 0
}
