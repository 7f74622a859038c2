package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variantProduct(t *testing.T) *Product {
	t.Helper()
	p, err := NewProduct("p-1", 0, []Variant{
		{Size: "S", Color: "black", Stock: 3},
		{Size: "M", Color: "black", Stock: 5},
		{Size: "M", Color: "ivory", Stock: 2},
	})
	require.NoError(t, err)
	return p
}

func variantSum(p *Product) int {
	sum := 0
	for _, v := range p.Variants {
		sum += v.Stock
	}
	return sum
}

func TestNewProductDerivesAggregateFromVariants(t *testing.T) {
	p := variantProduct(t)
	assert.Equal(t, 10, p.Stock)
}

func TestDeductVariantKeepsAggregateInSync(t *testing.T) {
	p := variantProduct(t)

	require.NoError(t, p.Deduct(2, "M", "black"))
	assert.Equal(t, 8, p.Stock)
	assert.Equal(t, variantSum(p), p.Stock)

	require.NoError(t, p.Restore(2, "M", "black"))
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, variantSum(p), p.Stock)
}

func TestDeductInsufficientVariantStock(t *testing.T) {
	p := variantProduct(t)

	err := p.Deduct(3, "M", "ivory")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, p.Stock, "failed deduct must not touch either counter")
	assert.Equal(t, variantSum(p), p.Stock)
}

func TestDeductUnknownVariant(t *testing.T) {
	p := variantProduct(t)

	assert.ErrorIs(t, p.Deduct(1, "XL", ""), ErrVariantNotFound)
	assert.ErrorIs(t, p.Deduct(1, "M", "crimson"), ErrVariantNotFound)
}

func TestDeductWithoutSizeRejectedWhenVariantsExist(t *testing.T) {
	p := variantProduct(t)

	assert.ErrorIs(t, p.Deduct(3, "", ""), ErrVariantNotFound)
	assert.Equal(t, 10, p.Stock, "sizeless deduct must not move the aggregate alone")
	assert.Equal(t, variantSum(p), p.Stock)

	assert.ErrorIs(t, p.Restore(3, "", ""), ErrVariantNotFound)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, variantSum(p), p.Stock)
}

func TestDeductColorOptional(t *testing.T) {
	p := variantProduct(t)

	// Size-only lookup matches the first variant with that size.
	require.NoError(t, p.Deduct(1, "S", ""))
	assert.Equal(t, 2, p.Variants[0].Stock)
}

func TestDeductPlainProduct(t *testing.T) {
	p, err := NewProduct("p-2", 5, nil)
	require.NoError(t, err)

	require.NoError(t, p.Deduct(5, "", ""))
	assert.Equal(t, 0, p.Stock)

	assert.ErrorIs(t, p.Deduct(1, "", ""), ErrInsufficientStock)
	require.NoError(t, p.Restore(2, "", ""))
	assert.Equal(t, 2, p.Stock)
}

func TestDeductRejectsNonPositiveQuantity(t *testing.T) {
	p, _ := NewProduct("p-2", 5, nil)
	assert.ErrorIs(t, p.Deduct(0, "", ""), ErrInvalidQuantity)
	assert.ErrorIs(t, p.Restore(-1, "", ""), ErrInvalidQuantity)
}
