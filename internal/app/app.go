package app

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/phenrril/tiendamx/internal/adapters/httpserver"
	"github.com/phenrril/tiendamx/internal/adapters/payments/stripe"
	"github.com/phenrril/tiendamx/internal/adapters/postal/zippopotam"
	"github.com/phenrril/tiendamx/internal/adapters/repo/postgres"
	"github.com/phenrril/tiendamx/internal/adapters/shipping/skydropx"
	"github.com/phenrril/tiendamx/internal/config"
	"github.com/phenrril/tiendamx/internal/domain"
	"github.com/phenrril/tiendamx/internal/usecase"
)

type App struct {
	DB         *gorm.DB
	Cfg        *config.Config
	ProductUC  *usecase.ProductUC
	StockUC    *usecase.StockUC
	CartUC     *usecase.CartUC
	ShippingUC *usecase.ShippingUC
	CheckoutUC *usecase.CheckoutUC
}

func NewApp(db *gorm.DB, cfg *config.Config) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	stockRepo := postgres.NewStockRepo(db)
	cartRepo := postgres.NewCartRepo(db)
	orderRepo := postgres.NewOrderRepo(db)

	carrier := skydropx.New(skydropx.Config{
		BaseURL:      cfg.Shipping.BaseURL,
		ClientID:     cfg.Shipping.ClientID,
		ClientSecret: cfg.Shipping.ClientSecret,
		Timeout:      cfg.Shipping.Timeout,
	})
	postal := zippopotam.NewResolver(zippopotam.NewClient(cfg.Postal.BaseURL, cfg.Postal.Timeout), cfg.Postal.CountryOrder)
	payments := stripe.NewGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	o := cfg.Shipping.Origin
	app := &App{DB: db, Cfg: cfg}
	app.StockUC = &usecase.StockUC{Stock: stockRepo}
	app.ProductUC = &usecase.ProductUC{Products: prodRepo, Stock: app.StockUC}
	app.CartUC = &usecase.CartUC{Carts: cartRepo, Stock: stockRepo}
	app.ShippingUC = &usecase.ShippingUC{
		Carts:    cartRepo,
		Provider: carrier,
		Postal:   postal,
		Origin: domain.Address{
			Name:         o.Name,
			Company:      o.Company,
			Street:       o.Street,
			Neighborhood: o.Neighborhood,
			City:         o.City,
			State:        o.State,
			PostalCode:   o.PostalCode,
			CountryCode:  o.CountryCode,
			Phone:        o.Phone,
			Email:        o.Email,
		},
		Defaults: domain.ParcelDefaults{
			UnitWeightKg: cfg.Shipping.DefaultWeight,
			LengthCm:     cfg.Shipping.DefaultLength,
			WidthCm:      cfg.Shipping.DefaultWidth,
			HeightCm:     cfg.Shipping.DefaultHeight,
		},
		ShipmentType: cfg.Shipping.ShipmentType,
		Now:          time.Now,
	}
	app.CheckoutUC = &usecase.CheckoutUC{
		Carts:    cartRepo,
		Orders:   orderRepo,
		Shipping: app.ShippingUC,
		Payments: payments,
		Currency: cfg.Stripe.Currency,
	}
	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Deps{
		Catalog:  a.ProductUC,
		Stock:    a.StockUC,
		Carts:    a.CartUC,
		Shipping: a.ShippingUC,
		Checkout: a.CheckoutUC,
		AdminKey: a.Cfg.Admin.APIKey,
	})
}

// MigrateAndSeed aplica el esquema y, en una base vacía, carga los sistemas
// de tallas básicos.
func (a *App) MigrateAndSeed() error {
	if err := Migrate(a.DB); err != nil {
		return err
	}
	var n int64
	if err := a.DB.Model(&domain.SizeSystem{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return seedSizeSystems(a.DB)
}

func seedSizeSystems(db *gorm.DB) error {
	systems := map[string][]string{
		"Ropa":    {"XS", "S", "M", "L", "XL", "XXL"},
		"Calzado": {"22", "23", "24", "25", "26", "27", "28", "29", "30"},
		"Único":   {"Única"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, name := range []string{"Ropa", "Calzado", "Único"} {
			ss := domain.SizeSystem{Name: name}
			if err := tx.Create(&ss).Error; err != nil {
				return err
			}
			for i, label := range systems[name] {
				if err := tx.Create(&domain.Size{SizeSystemID: ss.ID, Label: label, SortOrder: i + 1}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
