package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrVariantNotFound   = errors.New("inventory: no variant matches size and color")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Variant is a size/color stock-keeping unit with its own counter.
type Variant struct {
	Size  string
	Color string
	Stock int
}

// Product is the inventory view of a catalog product. When Variants is
// non-empty, Stock is the aggregate counter and must equal the sum of the
// variant counters after every mutation; Deduct and Restore move both
// together so the invariant cannot drift.
type Product struct {
	ID        string
	Stock     int
	Variants  []Variant
	UpdatedAt time.Time
}

func NewProduct(id string, stock int, variants []Variant) (*Product, error) {
	if stock < 0 {
		return nil, ErrInvalidQuantity
	}
	p := &Product{
		ID:        id,
		Stock:     stock,
		Variants:  append([]Variant(nil), variants...),
		UpdatedAt: time.Now().UTC(),
	}
	if len(p.Variants) > 0 {
		p.Stock = p.variantSum()
	}
	return p, nil
}

// Deduct subtracts quantity from the matching variant and the aggregate in
// one step, only when the variant holds enough stock. Products without
// variants deduct the aggregate directly under the same guard. A product
// with variants always deducts through a variant; mutating only the
// aggregate would break the aggregate-equals-sum invariant.
func (p *Product) Deduct(quantity int, size, color string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if len(p.Variants) > 0 {
		v := p.findVariant(size, color)
		if v == nil {
			return ErrVariantNotFound
		}
		if v.Stock < quantity {
			return ErrInsufficientStock
		}
		v.Stock -= quantity
		p.Stock -= quantity
		p.touch()
		return nil
	}

	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.touch()
	return nil
}

// Restore is the inverse of Deduct, used when an order is cancelled or a
// creation saga is compensated.
func (p *Product) Restore(quantity int, size, color string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if len(p.Variants) > 0 {
		v := p.findVariant(size, color)
		if v == nil {
			return ErrVariantNotFound
		}
		v.Stock += quantity
		p.Stock += quantity
		p.touch()
		return nil
	}

	p.Stock += quantity
	p.touch()
	return nil
}

func (p *Product) findVariant(size, color string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Size != size {
			continue
		}
		if color != "" && p.Variants[i].Color != color {
			continue
		}
		return &p.Variants[i]
	}
	return nil
}

func (p *Product) variantSum() int {
	sum := 0
	for _, v := range p.Variants {
		sum += v.Stock
	}
	return sum
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Variants = append([]Variant(nil), p.Variants...)
	return &clone
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
