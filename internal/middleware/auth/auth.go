package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/restaurant_api/internal/models"
	"github.com/Skotchmaster/restaurant_api/internal/roles"
)

const identityKey = "identity"

const AccessTokenTTL = 15 * time.Minute

type Middleware struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// RequireLogin resolves the access cookie to a user and loads their group
// memberships, so role changes take effect on the very next request.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie("accessToken")
		if err != nil || cookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
		}

		token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.JWTSecret, nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
		}
		subRaw, ok := claims["sub"].(float64)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
		}

		var user models.User
		if err := m.DB.Preload("Groups").First(&user, uint(subRaw)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		names := make([]string, 0, len(user.Groups))
		for _, g := range user.Groups {
			names = append(names, g.Name)
		}
		c.Set(identityKey, roles.FromGroups(user.ID, user.Username, names))
		return next(c)
	}
}

// Identity returns the caller resolved by RequireLogin.
func Identity(c echo.Context) (roles.Identity, error) {
	id, ok := c.Get(identityKey).(roles.Identity)
	if !ok {
		return roles.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return id, nil
}

func ManagerOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := Identity(c)
		if err != nil {
			return err
		}
		if !id.Manager {
			return echo.NewHTTPError(http.StatusForbidden, "manager role required")
		}
		return next(c)
	}
}

func DeliveryCrewOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := Identity(c)
		if err != nil {
			return err
		}
		if !id.DeliveryCrew {
			return echo.NewHTTPError(http.StatusForbidden, "delivery crew role required")
		}
		return next(c)
	}
}

func CustomerOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := Identity(c)
		if err != nil {
			return err
		}
		if !id.IsCustomer() {
			return echo.NewHTTPError(http.StatusForbidden, "customers only")
		}
		return next(c)
	}
}

func SignAccessToken(userID uint, username string, secret []byte) (string, time.Time, error) {
	exp := time.Now().Add(AccessTokenTTL)
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"exp":      exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	return signed, exp, err
}
