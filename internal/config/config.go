package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/restaurant_api/internal/hash"
	"github.com/Skotchmaster/restaurant_api/internal/models"
)

type Config struct {
	DB_HOST            string
	DB_PORT            string
	DB_USER            string
	DB_PASSWORD        string
	DB_NAME            string
	JWT_SECRET         string
	KAFKA_ADDRESS      string
	ADMIN_USERNAME     string
	ADMIN_PASSWORD     string
	LOG_LEVEL          string
	CART_PRICE_REFRESH string
	RATE_LIMIT         string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:            os.Getenv("DB_HOST"),
		DB_PORT:            os.Getenv("DB_PORT"),
		DB_USER:            os.Getenv("DB_USER"),
		DB_PASSWORD:        os.Getenv("DB_PASSWORD"),
		DB_NAME:            os.Getenv("DB_NAME"),
		JWT_SECRET:         os.Getenv("JWT_SECRET"),
		KAFKA_ADDRESS:      os.Getenv("KAFKA_ADDRESS"),
		ADMIN_USERNAME:     os.Getenv("ADMIN_USERNAME"),
		ADMIN_PASSWORD:     os.Getenv("ADMIN_PASSWORD"),
		LOG_LEVEL:          os.Getenv("LOG_LEVEL"),
		CART_PRICE_REFRESH: os.Getenv("CART_PRICE_REFRESH"),
		RATE_LIMIT:         os.Getenv("RATE_LIMIT"),
	}

	return config, nil
}

// RefreshCartPrices reports whether a repeated add-to-cart should re-read the
// current menu price instead of keeping the price snapshotted at first add.
func (c *Config) RefreshCartPrices() bool {
	return c.CART_PRICE_REFRESH == "1" || c.CART_PRICE_REFRESH == "true"
}

// RequestsPerSecond is the per-client rate limit, 10 rps unless RATE_LIMIT
// overrides it.
func (c *Config) RequestsPerSecond() float64 {
	v, err := strconv.ParseFloat(c.RATE_LIMIT, 64)
	if err != nil || v <= 0 {
		return 10
	}
	return v
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER, configuration.DB_PASSWORD,
		configuration.DB_HOST, configuration.DB_PORT, configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("cannot run migrations: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Category{},
		&models.MenuItem{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

// Bootstrap seeds the initial Manager account from ADMIN_USERNAME and
// ADMIN_PASSWORD so a fresh deployment has somebody who can manage groups.
func Bootstrap(db *gorm.DB, cfg *Config) error {
	if cfg.ADMIN_USERNAME == "" {
		return nil
	}
	if cfg.ADMIN_PASSWORD == "" {
		return errors.New("ADMIN_USERNAME set without ADMIN_PASSWORD")
	}

	var user models.User
	err := db.Where("username = ?", cfg.ADMIN_USERNAME).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pwHash, hashErr := hash.HashPassword(cfg.ADMIN_PASSWORD)
		if hashErr != nil {
			return hashErr
		}
		user = models.User{Username: cfg.ADMIN_USERNAME, PasswordHash: pwHash}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	group := models.Group{Name: models.GroupManager}
	if err := db.Where("name = ?", models.GroupManager).FirstOrCreate(&group).Error; err != nil {
		return err
	}
	return db.Model(&user).Association("Groups").Append(&group)
}
