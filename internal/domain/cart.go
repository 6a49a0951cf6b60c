package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Cart struct {
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartLine struct {
	ProductRef string `json:"product_ref"`
	Quantity   int    `json:"quantity"`
}

func validRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("%w: product reference is required", ErrInvalidRequest)
	}
	return nil
}

// AddLine merges quantity into an existing line or appends a new one.
func AddLine(lines []CartLine, ref string, quantity int) ([]CartLine, error) {
	if err := validRef(ref); err != nil {
		return lines, err
	}
	if quantity < 1 {
		return lines, ErrInvalidQuantity
	}
	out := slices.Clone(lines)
	for i := range out {
		if out[i].ProductRef == ref {
			out[i].Quantity += quantity
			return out, nil
		}
	}
	return append(out, CartLine{ProductRef: ref, Quantity: quantity}), nil
}

// SetLineQuantity overwrites the quantity of an existing line; zero removes it.
// Lines not in the cart are left alone.
func SetLineQuantity(lines []CartLine, ref string, quantity int) ([]CartLine, error) {
	if err := validRef(ref); err != nil {
		return lines, err
	}
	if quantity < 0 {
		return lines, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return RemoveLine(lines, ref), nil
	}
	out := slices.Clone(lines)
	for i := range out {
		if out[i].ProductRef == ref {
			out[i].Quantity = quantity
		}
	}
	return out, nil
}

// RemoveLine drops ref from lines. Removing an absent line is not an error.
func RemoveLine(lines []CartLine, ref string) []CartLine {
	return slices.DeleteFunc(slices.Clone(lines), func(l CartLine) bool {
		return l.ProductRef == ref
	})
}
