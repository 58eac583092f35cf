package cart_test

import (
	"context"
	"errors"
	"testing"

	"campusmart/client/internal/cart"
	"campusmart/client/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCheckoutAPI struct {
	mock.Mock
}

func (m *MockCheckoutAPI) Shop(ctx context.Context, shopID string) (models.Shop, error) {
	args := m.Called(shopID)
	return args.Get(0).(models.Shop), args.Error(1)
}

func (m *MockCheckoutAPI) PlaceOrder(ctx context.Context, order models.Order) (models.Order, error) {
	args := m.Called(order)
	return args.Get(0).(models.Order), args.Error(1)
}

var delivery = models.DeliveryDetails{Name: "Asha", Phone: "9999999999", Address: "Block A, Room 204"}

func TestSmallOrderFee(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		minValue float64
		want     float64
	}{
		{"below minimum", 150, 200, 50},
		{"empty cart", 0, 200, 0},
		{"above minimum", 250, 200, 0},
		{"exactly minimum", 200, 200, 0},
		{"no minimum", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cart.SmallOrderFee(tt.total, tt.minValue))
		})
	}
}

func TestNewBill(t *testing.T) {
	bill := cart.NewBill(150, 200)

	assert.Equal(t, 5.0, bill.PlatformFee)
	assert.Equal(t, 50.0, bill.SmallOrderFee)
	assert.Equal(t, 205.0, bill.GrandTotal)
}

func TestQuote(t *testing.T) {
	api := new(MockCheckoutAPI)
	c := cart.New(nil)
	require.NoError(t, c.AddItem(pizza, "shop-1"))
	api.On("Shop", "shop-1").Return(models.Shop{ShopName: "Campus Cafe", MinOrderValue: 200}, nil)

	bill, err := cart.NewCheckout(c, api).Quote(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Campus Cafe", bill.ShopName)
	assert.Equal(t, 120.0, bill.ItemTotal)
	assert.Equal(t, 175.0, bill.GrandTotal)
}

func TestQuote_EmptyCart(t *testing.T) {
	_, err := cart.NewCheckout(cart.New(nil), new(MockCheckoutAPI)).Quote(context.Background())

	assert.ErrorIs(t, err, cart.ErrEmptyCart)
}

func TestPlaceOrder_ClearsCartOnSuccess(t *testing.T) {
	api := new(MockCheckoutAPI)
	c := cart.New(nil)
	require.NoError(t, c.AddItem(pizza, "shop-1"))
	require.NoError(t, c.AddItem(pizza, "shop-1"))
	api.On("Shop", "shop-1").Return(models.Shop{MinOrderValue: 200}, nil)
	api.On("PlaceOrder", mock.MatchedBy(func(o models.Order) bool {
		return o.SellerID == "shop-1" &&
			len(o.Items) == 1 && o.Items[0].Quantity == 2 && o.Items[0].Name == "Pizza" &&
			o.ItemTotal == 240 && o.SmallOrderFee == 0 && o.GrandTotal == 245 &&
			o.DeliveryDetails == delivery
	})).Return(models.Order{ID: "o1", Status: models.OrderPending}, nil).Once()

	placed, err := cart.NewCheckout(c, api).PlaceOrder(context.Background(), delivery)

	require.NoError(t, err)
	assert.Equal(t, "o1", placed.ID)
	assert.True(t, c.Snapshot().Empty())
	api.AssertExpectations(t)
}

func TestPlaceOrder_KeepsItemsAddedWhileSubmitting(t *testing.T) {
	api := new(MockCheckoutAPI)
	c := cart.New(nil)
	require.NoError(t, c.AddItem(pizza, "shop-1"))
	api.On("Shop", "shop-1").Return(models.Shop{MinOrderValue: 100}, nil)
	api.On("PlaceOrder", mock.Anything).Run(func(mock.Arguments) {
		require.NoError(t, c.AddItem(pizza, "shop-1"))
		require.NoError(t, c.AddItem(chai, "shop-1"))
	}).Return(models.Order{ID: "o1"}, nil).Once()

	_, err := cart.NewCheckout(c, api).PlaceOrder(context.Background(), delivery)

	require.NoError(t, err)
	snap := c.Snapshot()
	assert.Equal(t, "shop-1", snap.ShopID)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, 1, snap.Items[0].Quantity)
	assert.Equal(t, chai.ID, snap.Items[1].ProductID)
}

func TestPlaceOrder_FailureKeepsCart(t *testing.T) {
	api := new(MockCheckoutAPI)
	c := cart.New(nil)
	require.NoError(t, c.AddItem(chai, "shop-1"))
	api.On("Shop", "shop-1").Return(models.Shop{MinOrderValue: 200}, nil)
	api.On("PlaceOrder", mock.Anything).Return(models.Order{}, errors.New("shop is closed"))

	_, err := cart.NewCheckout(c, api).PlaceOrder(context.Background(), delivery)

	assert.Error(t, err)
	assert.Equal(t, 1, c.Snapshot().Count())
}

func TestPlaceOrder_Validation(t *testing.T) {
	api := new(MockCheckoutAPI)
	c := cart.New(nil)
	co := cart.NewCheckout(c, api)

	_, err := co.PlaceOrder(context.Background(), delivery)
	assert.ErrorIs(t, err, cart.ErrEmptyCart)

	require.NoError(t, c.AddItem(chai, "shop-1"))
	_, err = co.PlaceOrder(context.Background(), models.DeliveryDetails{Name: "Asha", Phone: " ", Address: "Hostel"})
	assert.ErrorIs(t, err, cart.ErrMissingDelivery)

	api.AssertNotCalled(t, "PlaceOrder", mock.Anything)
	assert.False(t, c.Snapshot().Empty())
}
