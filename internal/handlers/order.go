package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/restaurant_api/internal/logging"
	authmw "github.com/Skotchmaster/restaurant_api/internal/middleware/auth"
	"github.com/Skotchmaster/restaurant_api/internal/models"
	"github.com/Skotchmaster/restaurant_api/internal/mykafka"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// PlaceOrder converts the caller's whole cart into one order plus frozen
// item snapshots and clears the cart, all inside a single transaction. The
// cart rows are locked for the duration so two concurrent checkouts cannot
// both consume the same snapshot.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	id, err := authmw.Identity(c)
	if err != nil {
		return err
	}
	l := logging.FromContext(c.Request().Context()).With("handler", "place_order", "userID", id.UserID)

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var lines []models.CartItem
		if err := lockForUpdate(tx).Where("user_id = ?", id.UserID).Order("id ASC").Find(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		var total models.Money
		for _, line := range lines {
			total = total.Add(line.TotalPrice)
		}

		order = models.Order{
			UserID:    id.UserID,
			Status:    false,
			Total:     total,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: line.MenuItemID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
				TotalPrice: line.TotalPrice,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items

		return tx.Where("user_id = ?", id.UserID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		l.Error("place_order_failed", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, map[string]any{
		"type":    "order_created",
		"userID":  id.UserID,
		"orderID": order.ID,
		"total":   order.Total,
	})

	l.Info("order_placed", "orderID", order.ID)
	return c.JSON(http.StatusCreated, order)
}

// ListOrders is role-filtered: managers see every order, delivery crew the
// orders assigned to them, customers only their own.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	id, err := authmw.Identity(c)
	if err != nil {
		return err
	}

	q := h.DB.Model(&models.Order{}).Preload("Items").Order("id ASC")
	switch {
	case id.Manager:
	case id.DeliveryCrew:
		q = q.Where("delivery_crew_id = ?", id.UserID)
	default:
		q = q.Where("user_id = ?", id.UserID)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, orders)
}

// AssignDeliveryCrew sets the order's delivery crew. The target user must be
// a member of the Delivery Crew group. Status is untouched.
func (h *OrderHandler) AssignDeliveryCrew(c echo.Context) error {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		DeliveryCrewID uint `json:"delivery_crew_id" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var crew models.User
	if err := h.DB.Preload("Groups").First(&crew, req.DeliveryCrewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	isCrew := false
	for _, g := range crew.Groups {
		if g.Name == models.GroupDeliveryCrew {
			isCrew = true
		}
	}
	if !isCrew {
		return echo.NewHTTPError(http.StatusBadRequest, "user is not a delivery crew member")
	}

	order.DeliveryCrewID = &crew.ID
	if err := h.DB.Save(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, map[string]any{
		"type":    "order_assigned",
		"userID":  order.UserID,
		"orderID": order.ID,
		"crewID":  crew.ID,
	})

	return c.JSON(http.StatusOK, order)
}

// MarkDelivered is the single one-way status transition. Only the crew
// member assigned to the order may perform it; repeating it on a delivered
// order is a no-op success.
func (h *OrderHandler) MarkDelivered(c echo.Context) error {
	id, err := authmw.Identity(c)
	if err != nil {
		return err
	}
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if order.DeliveryCrewID == nil || *order.DeliveryCrewID != id.UserID {
		return echo.NewHTTPError(http.StatusForbidden, "order is not assigned to you")
	}

	if !order.Status {
		order.Status = true
		if err := h.DB.Save(&order).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		publish(c, h.Producer, mykafka.TopicOrderEvents, map[string]any{
			"type":    "order_delivered",
			"userID":  order.UserID,
			"orderID": order.ID,
		})
	}

	return c.JSON(http.StatusOK, order)
}

// DeleteOrder removes the order and its item snapshots.
func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "order not found")
			}
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, map[string]any{
		"type":    "order_deleted",
		"orderID": orderID,
	})

	return c.NoContent(http.StatusNoContent)
}
