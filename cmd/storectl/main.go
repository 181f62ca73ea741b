package main

import (
	"fmt"
	"log"
	"os"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/orders"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

type env struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *database.Database
	publisher events.Publisher
}

func (e *env) Close() {
	e.publisher.Close()
	e.db.Close()
	e.logger.Sync()
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := database.New(cfg.DatabaseURL, false, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.OrderEventsTopic, logger)
	}
	return &env{cfg: cfg, logger: logger, db: db, publisher: publisher}, nil
}

func main() {
	app := &cli.App{
		Name:  "storectl",
		Usage: "administer the storefront catalog and orders",
		Commands: []*cli.Command{
			seedCommand(),
			setPriceCommand(),
			setStockCommand(),
			ordersCommand(),
			orderStatusCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "insert the sample catalog",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "stock", Usage: "track inventory with this quantity per product (0 leaves stock untracked)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			store := catalog.NewStore(e.db.DB)
			for _, p := range sampleProducts() {
				if err := store.CreateProduct(c.Context, &p); err != nil {
					return err
				}
				if n := c.Int("stock"); n > 0 {
					if err := store.SetStock(c.Context, p.ID, n); err != nil {
						return err
					}
				}
				e.logger.Info("Seeded product %s (%d variants)", p.Handle, len(p.Variants))
			}
			return nil
		},
	}
}

func setPriceCommand() *cli.Command {
	return &cli.Command{
		Name:  "set-price",
		Usage: "change the price of a variant",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "variant", Required: true},
			&cli.StringFlag{Name: "price", Required: true},
		},
		Action: func(c *cli.Context) error {
			price, err := decimal.NewFromString(c.String("price"))
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", c.String("price"), err)
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := catalog.NewStore(e.db.DB).SetVariantPrice(c.Context, c.String("variant"), price); err != nil {
				return err
			}
			e.logger.Info("Variant %s now costs %s", c.String("variant"), price.StringFixed(2))
			return nil
		},
	}
}

func setStockCommand() *cli.Command {
	return &cli.Command{
		Name:  "set-stock",
		Usage: "set the tracked inventory of a product",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "product", Required: true},
			&cli.IntFlag{Name: "quantity", Required: true},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := catalog.NewStore(e.db.DB).SetStock(c.Context, c.String("product"), c.Int("quantity")); err != nil {
				return err
			}
			e.logger.Info("Product %s stock set to %d", c.String("product"), c.Int("quantity"))
			return nil
		},
	}
}

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "list recent orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status"},
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := orders.NewService(orders.NewStore(e.db.DB), e.publisher, e.logger)
			list, err := svc.List(c.Context, orders.ListFilter{
				Status: models.OrderStatus(c.String("status")),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return err
			}
			for _, o := range list {
				fmt.Fprintf(c.App.Writer, "%s\t%s\t%-9s\t%s\t%s\n",
					o.ID, o.OrderNumber, o.Status, o.Total.StringFixed(2), o.CustomerEmail)
			}
			return nil
		},
	}
}

func orderStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "order-status",
		Usage: "move an order to a new status",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "order", Required: true},
			&cli.StringFlag{Name: "status", Required: true},
		},
		Action: func(c *cli.Context) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := orders.NewService(orders.NewStore(e.db.DB), e.publisher, e.logger)
			order, err := svc.Transition(c.Context, c.String("order"), models.OrderStatus(c.String("status")))
			if err != nil {
				return err
			}
			e.logger.Info("Order %s is now %s", order.OrderNumber, order.Status)
			return nil
		},
	}
}

func sampleProducts() []models.Product {
	price := decimal.RequireFromString
	return []models.Product{
		{
			Handle: "classic-tee",
			Title:  "Classic Tee",
			Vendor: "Storefront",
			Images: []string{"/static/classic-tee.jpg"},
			Variants: []models.Variant{
				{Title: "Small", Price: price("19.99")},
				{Title: "Medium", Price: price("19.99")},
				{Title: "Large", Price: price("21.99")},
			},
		},
		{
			Handle: "canvas-tote",
			Title:  "Canvas Tote",
			Vendor: "Storefront",
			Images: []string{"/static/canvas-tote.jpg"},
			Variants: []models.Variant{
				{Title: "Default Title", Price: price("24.00")},
			},
		},
		{
			Handle: "ceramic-mug",
			Title:  "Ceramic Mug",
			Vendor: "Storefront",
			Variants: []models.Variant{
				{Title: "White", Price: price("12.50")},
				{Title: "Black", Price: price("12.50")},
			},
		},
	}
}
