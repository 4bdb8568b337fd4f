package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/restaurant_api/internal/models"
	"github.com/Skotchmaster/restaurant_api/internal/mykafka"
)

type GroupHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// Only the two role groups exist as domain concepts; anything else in the
// path is a validation error.
var groupNames = map[string]string{
	"manager":       models.GroupManager,
	"delivery-crew": models.GroupDeliveryCrew,
}

func resolveGroup(c echo.Context) (string, error) {
	name, ok := groupNames[c.Param("group")]
	if !ok {
		return "", echo.NewHTTPError(http.StatusBadRequest, "unsupported group")
	}
	return name, nil
}

func (h *GroupHandler) ListMembers(c echo.Context) error {
	name, err := resolveGroup(c)
	if err != nil {
		return err
	}

	users := make([]models.User, 0)
	err = h.DB.
		Joins("JOIN user_groups ON user_groups.user_id = users.id").
		Joins("JOIN groups ON groups.id = user_groups.group_id").
		Where("groups.name = ?", name).
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}

// AddMember is idempotent: adding an existing member succeeds without a
// duplicate row, and the group row is created on first use.
func (h *GroupHandler) AddMember(c echo.Context) error {
	name, err := resolveGroup(c)
	if err != nil {
		return err
	}

	var req struct {
		Username string `json:"username" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	group := models.Group{Name: name}
	if err := h.DB.Where("name = ?", name).FirstOrCreate(&group).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.Model(&user).Association("Groups").Append(&group); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, mykafka.TopicUserEvents, map[string]any{
		"type":   "group_member_added",
		"userID": user.ID,
		"group":  name,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"username": user.Username, "group": name,
	})
}

// RemoveMember is idempotent: removing a non-member (or an unknown user id)
// is a silent success.
func (h *GroupHandler) RemoveMember(c echo.Context) error {
	name, err := resolveGroup(c)
	if err != nil {
		return err
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.NoContent(http.StatusNoContent)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var group models.Group
	if err := h.DB.Where("name = ?", name).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.NoContent(http.StatusNoContent)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Model(&user).Association("Groups").Delete(&group); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, mykafka.TopicUserEvents, map[string]any{
		"type":   "group_member_removed",
		"userID": user.ID,
		"group":  name,
	})

	return c.NoContent(http.StatusNoContent)
}
