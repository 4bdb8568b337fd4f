package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Skotchmaster/restaurant_api/internal/handlers"
	authmw "github.com/Skotchmaster/restaurant_api/internal/middleware/auth"
)

type Deps struct {
	DB           *gorm.DB
	Auth         *authmw.Middleware
	AuthHandler  *handlers.AuthHandler
	MenuHandler  *handlers.MenuHandler
	CartHandler  *handlers.CartHandler
	OrderHandler *handlers.OrderHandler
	GroupHandler *handlers.GroupHandler

	// RateLimit caps requests per second per client IP across every route,
	// anonymous and authenticated alike. Zero disables the limiter.
	RateLimit rate.Limit
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()

	if d.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      d.RateLimit,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	api := v1.Group("", d.Auth.RequireLogin)

	api.GET("/categories", d.MenuHandler.ListCategories)
	api.POST("/categories", d.MenuHandler.CreateCategory, authmw.ManagerOnly)

	api.GET("/menu-items", d.MenuHandler.ListMenuItems)
	api.POST("/menu-items", d.MenuHandler.CreateMenuItem, authmw.ManagerOnly)
	api.GET("/menu-items/:id", d.MenuHandler.GetMenuItem)
	api.PUT("/menu-items/:id", d.MenuHandler.UpdateMenuItem, authmw.ManagerOnly)
	api.PATCH("/menu-items/:id", d.MenuHandler.UpdateMenuItem, authmw.ManagerOnly)
	api.DELETE("/menu-items/:id", d.MenuHandler.DeleteMenuItem, authmw.ManagerOnly)

	api.GET("/cart", d.CartHandler.GetCart, authmw.CustomerOnly)
	api.POST("/cart", d.CartHandler.AddToCart, authmw.CustomerOnly)
	api.DELETE("/cart", d.CartHandler.ClearCart, authmw.CustomerOnly)

	api.GET("/orders", d.OrderHandler.ListOrders)
	api.POST("/orders", d.OrderHandler.PlaceOrder, authmw.CustomerOnly)
	api.PATCH("/orders/:id", d.OrderHandler.AssignDeliveryCrew, authmw.ManagerOnly)
	api.DELETE("/orders/:id", d.OrderHandler.DeleteOrder, authmw.ManagerOnly)
	api.PATCH("/orders/:id/deliver", d.OrderHandler.MarkDelivered, authmw.DeliveryCrewOnly)

	api.GET("/groups/:group/users", d.GroupHandler.ListMembers, authmw.ManagerOnly)
	api.POST("/groups/:group/users", d.GroupHandler.AddMember, authmw.ManagerOnly)
	api.DELETE("/groups/:group/users/:userId", d.GroupHandler.RemoveMember, authmw.ManagerOnly)
}
