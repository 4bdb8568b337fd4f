package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/restaurant_api/internal/config"
	"github.com/Skotchmaster/restaurant_api/internal/handlers"
	"github.com/Skotchmaster/restaurant_api/internal/hash"
	authmw "github.com/Skotchmaster/restaurant_api/internal/middleware/auth"
	"github.com/Skotchmaster/restaurant_api/internal/models"
	"github.com/Skotchmaster/restaurant_api/internal/mykafka"
	httpserver "github.com/Skotchmaster/restaurant_api/internal/transport/http"
)

var jwtSecret = []byte("test_jwt_secret")

type testEnv struct {
	T    *testing.T
	E    *echo.Echo
	DB   *gorm.DB
	Cart *handlers.CartHandler
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	// a pooled :memory: connection would be a fresh empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())

	cart := &handlers.CartHandler{DB: db, Producer: &mykafka.Producer{}}
	deps := httpserver.Deps{
		DB:           db,
		Auth:         &authmw.Middleware{DB: db, JWTSecret: jwtSecret},
		AuthHandler:  &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: &mykafka.Producer{}},
		MenuHandler:  &handlers.MenuHandler{DB: db, Producer: &mykafka.Producer{}},
		CartHandler:  cart,
		OrderHandler: &handlers.OrderHandler{DB: db, Producer: &mykafka.Producer{}},
		GroupHandler: &handlers.GroupHandler{DB: db, Producer: &mykafka.Producer{}},
	}
	httpserver.Register(e, &deps)

	return &testEnv{T: t, E: e, DB: db, Cart: cart}
}

func (env *testEnv) createUser(username string, groups ...string) models.User {
	pwHash, err := hash.HashPassword("password123")
	require.NoError(env.T, err)

	user := models.User{Username: username, PasswordHash: pwHash}
	require.NoError(env.T, env.DB.Create(&user).Error)

	for _, name := range groups {
		group := models.Group{Name: name}
		require.NoError(env.T, env.DB.Where("name = ?", name).FirstOrCreate(&group).Error)
		require.NoError(env.T, env.DB.Model(&user).Association("Groups").Append(&group))
	}
	return user
}

func (env *testEnv) loginCookie(user models.User) *http.Cookie {
	token, _, err := authmw.SignAccessToken(user.ID, user.Username, jwtSecret)
	require.NoError(env.T, err)
	return &http.Cookie{Name: "accessToken", Value: token, Path: "/"}
}

func (env *testEnv) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createCategory(slug, title string) models.Category {
	category := models.Category{Slug: slug, Title: title}
	require.NoError(env.T, env.DB.Where("slug = ?", slug).FirstOrCreate(&category).Error)
	return category
}

func (env *testEnv) createMenuItem(title, price string, featured bool) models.MenuItem {
	category := env.createCategory("mains", "Mains")
	item := models.MenuItem{
		Title:      title,
		Price:      models.NewMoney(decimal.RequireFromString(price)),
		Featured:   featured,
		CategoryID: category.ID,
	}
	require.NoError(env.T, env.DB.Create(&item).Error)
	return item
}
