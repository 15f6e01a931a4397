package registry

import (
	"errors"
	"math/big"

	"golang.org/x/text/message"
)

type setItemRequest struct {
	// Empty name, zero price and zero stock are all legal; only the
	// representational widths are enforced.
	Name  string `json:"name"`
	Price string `json:"price" validate:"omitempty,number"`
	Stock int    `json:"stock" validate:"gte=0,lte=255"`
}

type grantRequest struct {
	Principal string `json:"principal" validate:"required"`
}

type transferRequest struct {
	NewOwner string `json:"new_owner" validate:"required"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

type itemResponse struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	PriceDisplay string `json:"price_display"`
	Stock        uint8  `json:"stock"`
}

var errBadPrice = errors.New("price must be a base-10 non-negative integer")

func (r setItemRequest) toItem() (Item, error) {
	price := new(big.Int)
	if r.Price != "" {
		if _, ok := price.SetString(r.Price, 10); !ok {
			return Item{}, errBadPrice
		}
		if price.Sign() < 0 {
			return Item{}, errBadPrice
		}
	}
	return Item{Name: r.Name, Price: price, Stock: uint8(r.Stock)}, nil
}

func toItemResponse(printer *message.Printer, key string, item Item) itemResponse {
	return itemResponse{
		Key:          key,
		Name:         item.Name,
		Price:        item.Price.String(),
		PriceDisplay: formatPrice(printer, item.Price),
		Stock:        item.Stock,
	}
}

// formatPrice renders the price with locale digit grouping when it fits in
// a uint64, falling back to the plain decimal form for wider values.
func formatPrice(printer *message.Printer, price *big.Int) string {
	if price == nil {
		return "0"
	}
	if price.IsUint64() {
		return printer.Sprintf("%d", price.Uint64())
	}
	return price.String()
}
