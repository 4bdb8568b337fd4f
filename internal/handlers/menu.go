package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	authmw "github.com/Skotchmaster/restaurant_api/internal/middleware/auth"
	"github.com/Skotchmaster/restaurant_api/internal/models"
	"github.com/Skotchmaster/restaurant_api/internal/mykafka"
	"github.com/Skotchmaster/restaurant_api/internal/util"
)

type MenuHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *MenuHandler) ListCategories(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Order("id ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *MenuHandler) CreateCategory(c echo.Context) error {
	var req struct {
		Slug  string `json:"slug"  validate:"required"`
		Title string `json:"title" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var existing models.Category
	if err := h.DB.Where("slug = ?", req.Slug).First(&existing).Error; err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slug already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	category := models.Category{Slug: req.Slug, Title: req.Title}
	if err := h.DB.Create(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, category)
}

// ListMenuItems returns the full menu for staff; customers only see items
// marked as featured.
func (h *MenuHandler) ListMenuItems(c echo.Context) error {
	id, err := authmw.Identity(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.MenuItem{})
	if !id.IsStaff() {
		q = q.Where("featured = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.MenuItem
	if err := q.Preload("Category").Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *MenuHandler) GetMenuItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var item models.MenuItem
	if err := h.DB.Preload("Category").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "menu item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

type menuItemRequest struct {
	Title      *string          `json:"title"`
	Price      *decimal.Decimal `json:"price"`
	Featured   *bool            `json:"featured"`
	CategoryID *uint            `json:"category_id"`
}

func (h *MenuHandler) CreateMenuItem(c echo.Context) error {
	var req menuItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Title == nil || *req.Title == "" || req.Price == nil || req.CategoryID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "title, price and category_id are required")
	}
	if req.Price.Sign() <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be positive")
	}

	var category models.Category
	if err := h.DB.First(&category, *req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	item := models.MenuItem{
		Title:      *req.Title,
		Price:      models.NewMoney(*req.Price),
		CategoryID: *req.CategoryID,
	}
	if req.Featured != nil {
		item.Featured = *req.Featured
	}
	if err := h.DB.Create(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, mykafka.TopicMenuEvents, map[string]any{
		"type":       "menu_item_created",
		"menuItemID": item.ID,
		"title":      item.Title,
	})

	return c.JSON(http.StatusCreated, item)
}

func (h *MenuHandler) UpdateMenuItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var item models.MenuItem
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "menu item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var req menuItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Price != nil {
		if req.Price.Sign() <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be positive")
		}
		item.Price = models.NewMoney(*req.Price)
	}
	if req.Featured != nil {
		item.Featured = *req.Featured
	}
	if req.CategoryID != nil {
		var category models.Category
		if err := h.DB.First(&category, *req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		item.CategoryID = *req.CategoryID
	}

	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, mykafka.TopicMenuEvents, map[string]any{
		"type":       "menu_item_updated",
		"menuItemID": item.ID,
		"title":      item.Title,
	})

	return c.JSON(http.StatusOK, item)
}

// DeleteMenuItem removes the item together with dependent cart lines and
// order item snapshots in one transaction.
func (h *MenuHandler) DeleteMenuItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "menu item not found")
			}
			return err
		}
		if err := tx.Where("menu_item_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_item_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Producer, mykafka.TopicMenuEvents, map[string]any{
		"type":       "menu_item_deleted",
		"menuItemID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
