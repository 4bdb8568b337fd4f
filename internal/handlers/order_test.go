package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/restaurant_api/internal/models"
)

func TestPlaceOrderFromCart(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createUser("customer")
	ck := env.loginCookie(customer)
	item := env.createMenuItem("Moussaka", "10.00", true)

	rec := env.do(http.MethodPost, "/api/v1/cart", map[string]any{
		"menu_item_id": item.ID, "quantity": 2,
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(http.MethodPost, "/api/v1/cart", map[string]any{
		"menu_item_id": item.ID, "quantity": 3,
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/orders", nil, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Equal(t, customer.ID, order.UserID)
	require.False(t, order.Status)
	require.Equal(t, "50.00", order.Total.String())
	require.Len(t, order.Items, 1)
	require.Equal(t, uint(5), order.Items[0].Quantity)
	require.Equal(t, "10.00", order.Items[0].UnitPrice.String())
	require.Equal(t, "50.00", order.Items[0].TotalPrice.String())

	var cartCount int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", customer.ID).Count(&cartCount).Error)
	require.Equal(t, int64(0), cartCount)
}

func TestPlaceOrderSnapshotsSurvivePriceChange(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createUser("customer")
	ck := env.loginCookie(customer)
	item := env.createMenuItem("Baklava", "4.00", true)

	rec := env.do(http.MethodPost, "/api/v1/cart", map[string]any{
		"menu_item_id": item.ID, "quantity": 2,
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/orders", nil, ck)
	require.Equal(t, http.StatusCreated, rec.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	require.NoError(t, env.DB.Model(&item).Update("price", "9.99").Error)

	var stored models.OrderItem
	require.NoError(t, env.DB.Where("order_id = ?", order.ID).First(&stored).Error)
	require.Equal(t, "4.00", stored.UnitPrice.String())
	require.Equal(t, "8.00", stored.TotalPrice.String())
}

func TestPlaceOrderConsumesCart(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createUser("customer")
	ck := env.loginCookie(customer)
	item := env.createMenuItem("Gyros", "7.50", true)

	rec := env.do(http.MethodPost, "/api/v1/cart", map[string]any{
		"menu_item_id": item.ID, "quantity": 2,
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/orders", nil, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	// the first checkout emptied the cart, so repeating it cannot bill twice
	rec = env.do(http.MethodPost, "/api/v1/orders", nil, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Order{}).Where("user_id = ?", customer.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createUser("customer")

	rec := env.do(http.MethodPost, "/api/v1/orders", nil, env.loginCookie(customer))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func placeOrderFor(t *testing.T, env *testEnv, user models.User) models.Order {
	t.Helper()
	item := env.createMenuItem("Falafel", "6.00", true)
	ck := env.loginCookie(user)

	rec := env.do(http.MethodPost, "/api/v1/cart", map[string]any{
		"menu_item_id": item.ID, "quantity": 1,
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/orders", nil, ck)
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	return order
}

func TestListOrdersRoleFiltered(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser("alice")
	bob := env.createUser("bob")
	manager := env.createUser("manager", models.GroupManager)
	crew := env.createUser("crew", models.GroupDeliveryCrew)

	aliceOrder := placeOrderFor(t, env, alice)
	placeOrderFor(t, env, bob)

	require.NoError(t, env.DB.Model(&models.Order{}).
		Where("id = ?", aliceOrder.ID).
		Update("delivery_crew_id", crew.ID).Error)

	var orders []models.Order

	rec := env.do(http.MethodGet, "/api/v1/orders", nil, env.loginCookie(alice))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, alice.ID, orders[0].UserID)
	require.Equal(t, "6.00", orders[0].Total.String())

	rec = env.do(http.MethodGet, "/api/v1/orders", nil, env.loginCookie(manager))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 2)

	rec = env.do(http.MethodGet, "/api/v1/orders", nil, env.loginCookie(crew))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, aliceOrder.ID, orders[0].ID)
}

func TestAssignDeliveryCrew(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createUser("customer")
	manager := env.createUser("manager", models.GroupManager)
	crew := env.createUser("crew", models.GroupDeliveryCrew)

	order := placeOrderFor(t, env, customer)
	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	rec := env.do(http.MethodPatch, path, map[string]any{
		"delivery_crew_id": crew.ID,
	}, env.loginCookie(customer))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPatch, path, map[string]any{
		"delivery_crew_id": customer.ID,
	}, env.loginCookie(manager))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPatch, path, map[string]any{
		"delivery_crew_id": crew.ID,
	}, env.loginCookie(manager))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.NotNil(t, updated.DeliveryCrewID)
	require.Equal(t, crew.ID, *updated.DeliveryCrewID)
	require.False(t, updated.Status)

	rec = env.do(http.MethodPatch, "/api/v1/orders/9999", map[string]any{
		"delivery_crew_id": crew.ID,
	}, env.loginCookie(manager))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkDeliveredIdempotent(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createUser("customer")
	manager := env.createUser("manager", models.GroupManager)
	crew := env.createUser("crew", models.GroupDeliveryCrew)
	other := env.createUser("other_crew", models.GroupDeliveryCrew)

	order := placeOrderFor(t, env, customer)
	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	rec := env.do(http.MethodPatch, path, map[string]any{
		"delivery_crew_id": crew.ID,
	}, env.loginCookie(manager))
	require.Equal(t, http.StatusOK, rec.Code)

	deliverPath := path + "/deliver"

	rec = env.do(http.MethodPatch, deliverPath, nil, env.loginCookie(other))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPatch, deliverPath, nil, env.loginCookie(customer))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPatch, deliverPath, nil, env.loginCookie(crew))
	require.Equal(t, http.StatusOK, rec.Code)
	var delivered models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &delivered))
	require.True(t, delivered.Status)

	rec = env.do(http.MethodPatch, deliverPath, nil, env.loginCookie(crew))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &delivered))
	require.True(t, delivered.Status)
}

func TestDeleteOrderCascades(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createUser("customer")
	manager := env.createUser("manager", models.GroupManager)

	order := placeOrderFor(t, env, customer)
	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	rec := env.do(http.MethodDelete, path, nil, env.loginCookie(customer))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, path, nil, env.loginCookie(manager))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var orderCount, itemCount int64
	require.NoError(t, env.DB.Model(&models.Order{}).Where("id = ?", order.ID).Count(&orderCount).Error)
	require.NoError(t, env.DB.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&itemCount).Error)
	require.Equal(t, int64(0), orderCount)
	require.Equal(t, int64(0), itemCount)

	rec = env.do(http.MethodDelete, path, nil, env.loginCookie(manager))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
