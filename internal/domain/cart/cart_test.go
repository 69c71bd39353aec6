package cart_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Item Normalization Tests
// ============================================

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative clamps to one", -5, 1},
		{"zero clamps to one", 0, 1},
		{"one stays", 1, 1},
		{"mid-range stays", 42, 42},
		{"cap stays", cart.MaxItemQuantity, cart.MaxItemQuantity},
		{"over cap clamps", cart.MaxItemQuantity + 1, cart.MaxItemQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cart.ClampQuantity(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []cart.Item
		want []cart.Item
	}{
		{
			name: "empty input",
			in:   nil,
			want: []cart.Item{},
		},
		{
			name: "duplicates add quantities",
			in: []cart.Item{
				{ProductRef: "a", Quantity: 2},
				{ProductRef: "b", Quantity: 1},
				{ProductRef: "a", Quantity: 3},
			},
			want: []cart.Item{
				{ProductRef: "a", Quantity: 5},
				{ProductRef: "b", Quantity: 1},
			},
		},
		{
			name: "blank refs dropped",
			in: []cart.Item{
				{ProductRef: "", Quantity: 4},
				{ProductRef: "a", Quantity: 1},
			},
			want: []cart.Item{
				{ProductRef: "a", Quantity: 1},
			},
		},
		{
			name: "non-positive quantities clamp to one",
			in: []cart.Item{
				{ProductRef: "a", Quantity: 0},
				{ProductRef: "b", Quantity: -7},
			},
			want: []cart.Item{
				{ProductRef: "a", Quantity: 1},
				{ProductRef: "b", Quantity: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cart.Normalize(tt.in))
		})
	}
}

func TestMergeItems(t *testing.T) {
	existing := []cart.Item{{ProductRef: "a", Quantity: 2}}
	incoming := []cart.Item{
		{ProductRef: "a", Quantity: 3},
		{ProductRef: "b", Quantity: 1},
	}

	merged := cart.MergeItems(existing, incoming)

	// Shared refs add, one-sided refs carry over, existing order first
	assert.Equal(t, []cart.Item{
		{ProductRef: "a", Quantity: 5},
		{ProductRef: "b", Quantity: 1},
	}, merged)
}

func TestMergeItems_EmptySides(t *testing.T) {
	items := []cart.Item{{ProductRef: "a", Quantity: 2}}

	assert.Equal(t, items, cart.MergeItems(nil, items))
	assert.Equal(t, items, cart.MergeItems(items, nil))
	assert.Empty(t, cart.MergeItems(nil, nil))
}

func TestMergeItems_ClampsSum(t *testing.T) {
	existing := []cart.Item{{ProductRef: "a", Quantity: 80}}
	incoming := []cart.Item{{ProductRef: "a", Quantity: 80}}

	merged := cart.MergeItems(existing, incoming)

	require.Len(t, merged, 1)
	assert.Equal(t, cart.MaxItemQuantity, merged[0].Quantity)
}

func TestSubtotal(t *testing.T) {
	prices := map[string]int64{"a": 1000, "b": 250}
	price := func(ref string) int64 { return prices[ref] }

	items := []cart.Item{
		{ProductRef: "a", Quantity: 2},
		{ProductRef: "b", Quantity: 3},
		{ProductRef: "unknown", Quantity: 5},
	}

	// Unknown refs contribute zero
	assert.Equal(t, int64(2750), cart.Subtotal(items, price))
	assert.Equal(t, int64(0), cart.Subtotal(nil, price))
}

// ============================================
// Service Tests
// ============================================

func TestService_Get_EmptyOwner(t *testing.T) {
	svc := cart.NewService(mocks.NewMockCartRepo())

	_, err := svc.Get(context.Background(), "")

	assert.ErrorIs(t, err, cart.ErrUnauthorized)
}

func TestService_Get_AbsentCartIsEmpty(t *testing.T) {
	svc := cart.NewService(mocks.NewMockCartRepo())

	c, err := svc.Get(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", c.OwnerID)
	assert.Empty(t, c.Items)
}

func TestService_Replace(t *testing.T) {
	repo := mocks.NewMockCartRepo()
	svc := cart.NewService(repo)

	c, err := svc.Replace(context.Background(), "user-1", []cart.Item{
		{ProductRef: "a", Quantity: 2},
		{ProductRef: "a", Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, []cart.Item{{ProductRef: "a", Quantity: 3}}, c.Items)
	require.Len(t, repo.SaveCalls, 1)

	// Replace fully overwrites
	c, err = svc.Replace(context.Background(), "user-1", []cart.Item{
		{ProductRef: "b", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []cart.Item{{ProductRef: "b", Quantity: 1}}, c.Items)

	stored, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, c.Items, stored.Items)
}

func TestService_Replace_TooManyItems(t *testing.T) {
	svc := cart.NewService(mocks.NewMockCartRepo())

	items := make([]cart.Item, cart.MaxDistinctItems+1)
	for i := range items {
		items[i] = cart.Item{ProductRef: fmt.Sprintf("p-%d", i), Quantity: 1}
	}

	_, err := svc.Replace(context.Background(), "user-1", items)

	assert.ErrorIs(t, err, cart.ErrTooManyItems)
}

func TestService_Merge(t *testing.T) {
	repo := mocks.NewMockCartRepo()
	svc := cart.NewService(repo)

	_, err := svc.Replace(context.Background(), "user-1", []cart.Item{
		{ProductRef: "a", Quantity: 2},
	})
	require.NoError(t, err)

	c, err := svc.Merge(context.Background(), "user-1", []cart.Item{
		{ProductRef: "a", Quantity: 3},
		{ProductRef: "b", Quantity: 1},
	}, "")

	require.NoError(t, err)
	assert.Equal(t, []cart.Item{
		{ProductRef: "a", Quantity: 5},
		{ProductRef: "b", Quantity: 1},
	}, c.Items)
}

func TestService_Merge_TokenDedupesRetry(t *testing.T) {
	repo := mocks.NewMockCartRepo()
	svc := cart.NewService(repo)

	incoming := []cart.Item{{ProductRef: "a", Quantity: 2}}

	first, err := svc.Merge(context.Background(), "user-1", incoming, "op-123")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Items[0].Quantity)

	// Retried delivery with the same token must not double-count
	second, err := svc.Merge(context.Background(), "user-1", incoming, "op-123")
	require.NoError(t, err)
	assert.Equal(t, first.Items, second.Items)

	// A fresh token applies normally
	third, err := svc.Merge(context.Background(), "user-1", incoming, "op-456")
	require.NoError(t, err)
	assert.Equal(t, 4, third.Items[0].Quantity)
}

func TestService_Merge_EmptyOwner(t *testing.T) {
	repo := mocks.NewMockCartRepo()
	svc := cart.NewService(repo)

	_, err := svc.Merge(context.Background(), "", []cart.Item{{ProductRef: "a", Quantity: 1}}, "")

	assert.ErrorIs(t, err, cart.ErrUnauthorized)
	assert.Empty(t, repo.SaveCalls)
}

func TestService_Merge_RepoError(t *testing.T) {
	repo := mocks.NewMockCartRepo()
	repo.GetErr = errors.New("backend down")
	svc := cart.NewService(repo)

	_, err := svc.Merge(context.Background(), "user-1", []cart.Item{{ProductRef: "a", Quantity: 1}}, "")

	assert.Error(t, err)
}

func TestService_Clear(t *testing.T) {
	repo := mocks.NewMockCartRepo()
	svc := cart.NewService(repo)

	_, err := svc.Replace(context.Background(), "user-1", []cart.Item{{ProductRef: "a", Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), "user-1"))

	c, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}
