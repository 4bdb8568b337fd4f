package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	authmw "github.com/Skotchmaster/restaurant_api/internal/middleware/auth"
	"github.com/Skotchmaster/restaurant_api/internal/models"
	"github.com/Skotchmaster/restaurant_api/internal/mykafka"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer

	// RefreshPriceOnMerge re-reads the current menu price when a repeated
	// add merges into an existing line. Default keeps the price snapshotted
	// at first add.
	RefreshPriceOnMerge bool
}

// lockForUpdate serializes read-modify-write on cart rows. sqlite (tests)
// has no FOR UPDATE and serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (h *CartHandler) GetCart(c echo.Context) error {
	id, err := authmw.Identity(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", id.UserID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// AddToCart creates a line for (user, menu item) or merges into the existing
// one by incrementing its quantity. At most one line per pair ever exists.
func (h *CartHandler) AddToCart(c echo.Context) error {
	id, err := authmw.Identity(c)
	if err != nil {
		return err
	}

	var req struct {
		MenuItemID uint `json:"menu_item_id" validate:"required"`
		Quantity   uint `json:"quantity"     validate:"required,gt=0"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var line models.CartItem
	addOnce := func() error {
		return h.DB.Transaction(func(tx *gorm.DB) error {
			var item models.MenuItem
			if err := tx.First(&item, req.MenuItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusNotFound, "menu item not found")
				}
				return err
			}

			err := lockForUpdate(tx).
				Where("user_id = ? AND menu_item_id = ?", id.UserID, req.MenuItemID).
				First(&line).Error
			switch {
			case err == nil:
				line.Quantity += req.Quantity
				if h.RefreshPriceOnMerge {
					line.UnitPrice = item.Price
				}
				line.TotalPrice = line.UnitPrice.Times(line.Quantity)
				return tx.Save(&line).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				line = models.CartItem{
					UserID:     id.UserID,
					MenuItemID: req.MenuItemID,
					Quantity:   req.Quantity,
					UnitPrice:  item.Price,
					TotalPrice: item.Price.Times(req.Quantity),
				}
				return tx.Create(&line).Error
			}
			return err
		})
	}
	txErr := addOnce()
	// two concurrent first adds both miss the existing line; the loser of the
	// insert re-runs and takes the merge branch
	if errors.Is(txErr, gorm.ErrDuplicatedKey) {
		txErr = addOnce()
	}
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Producer, mykafka.TopicCartEvents, map[string]any{
		"type":       "cart_item_added",
		"userID":     id.UserID,
		"menuItemID": req.MenuItemID,
		"quantity":   line.Quantity,
	})

	return c.JSON(http.StatusCreated, line)
}

// ClearCart deletes every line the caller owns. Clearing an empty cart is a
// no-op success.
func (h *CartHandler) ClearCart(c echo.Context) error {
	id, err := authmw.Identity(c)
	if err != nil {
		return err
	}

	if err := h.DB.Where("user_id = ?", id.UserID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, mykafka.TopicCartEvents, map[string]any{
		"type":   "cart_cleared",
		"userID": id.UserID,
	})

	return c.NoContent(http.StatusNoContent)
}
