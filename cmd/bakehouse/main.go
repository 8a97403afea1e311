// bakehouse is the terminal front end for the bakery storefront: it
// drives the client stores (catalog, cart, orders, session, profile)
// against the REST backend configured via API_BASE.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"bakehouse/internal/api"
	"bakehouse/internal/config"
	"bakehouse/internal/device"
	"bakehouse/internal/domain"
	"bakehouse/internal/store"
	"bakehouse/internal/stream"
	"bakehouse/internal/validate"
)

type appCtx struct {
	client   *api.Client
	session  *store.SessionStore
	products *store.ProductStore
	cart     *store.CartStore
	orders   *store.OrderStore
	profile  *store.ProfileStore
}

func build() (*appCtx, error) {
	cfg := config.Load()
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			log.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	}

	db, err := device.OpenDB(cfg.DeviceDB)
	if err != nil {
		return nil, err
	}

	session := store.NewSessionStore(device.NewSessionRepo(db))
	client := api.NewClient(cfg.APIBase, cfg.HTTPTimeout, session.Token)
	client.OnUnauthorized = session.Clear

	products := store.NewProductStore(client)
	app := &appCtx{
		client:   client,
		session:  session,
		products: products,
		cart:     store.NewCartStore(device.NewCartRepo(db), products),
		orders:   store.NewOrderStore(client, session, device.NewGuestRepo(db), products),
		profile:  store.NewProfileStore(client, device.NewProfileRepo(db)),
	}
	return app, nil
}

func main() {
	var app *appCtx

	cliApp := &cli.App{
		Name:  "bakehouse",
		Usage: "bakery storefront client",
		Before: func(*cli.Context) error {
			var err error
			app, err = build()
			return err
		},
		Commands: []*cli.Command{
			{
				Name:  "products",
				Usage: "list the catalog",
				Action: func(c *cli.Context) error {
					products, err := app.products.Fetch(c.Context)
					if err != nil {
						return err
					}
					for _, p := range products {
						flag := " "
						if p.Featured {
							flag = "*"
						}
						fmt.Printf("%s %-16s %-28s %7.2f  stock %d\n", flag, p.ID, p.Name, p.Price, p.Stock)
					}
					return nil
				},
			},
			{
				Name:      "login",
				Usage:     "authenticate: login <email> <password>",
				ArgsUsage: "<email> <password>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: login <email> <password>", 2)
					}
					u, err := app.session.Login(c.Context, app.client, api.Credentials{
						Email: c.Args().Get(0), Password: c.Args().Get(1),
					})
					if err != nil {
						return err
					}
					fmt.Printf("logged in as %s (%s)\n", u.Name, u.Role)
					return nil
				},
			},
			{
				Name:      "register",
				Usage:     "create an account: register <name> <email> <password>",
				ArgsUsage: "<name> <email> <password>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return cli.Exit("usage: register <name> <email> <password>", 2)
					}
					email, ok := validate.Email(c.Args().Get(1))
					if !ok {
						return cli.Exit("invalid email address", 2)
					}
					u, err := app.session.Register(c.Context, app.client, api.Registration{
						Name: c.Args().Get(0), Email: email, Password: c.Args().Get(2),
					})
					if err != nil {
						return err
					}
					fmt.Printf("registered %s\n", u.Email)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "clear the stored session",
				Action: func(c *cli.Context) error {
					app.session.Clear()
					fmt.Println("logged out")
					return nil
				},
			},
			{
				Name:  "cart",
				Usage: "manage the cart",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						ArgsUsage: "<product-id> [qty]",
						Action: func(c *cli.Context) error {
							if c.NArg() < 1 {
								return cli.Exit("usage: cart add <product-id> [qty]", 2)
							}
							if _, err := app.products.Fetch(c.Context); err != nil {
								return err
							}
							id := c.Args().Get(0)
							var prod *domain.Product
							for _, p := range app.products.Products() {
								if p.ID == id {
									prod = &p
									break
								}
							}
							if prod == nil {
								return cli.Exit("unknown product "+id, 1)
							}
							if err := app.cart.Add(*prod, validate.Qty(c.Args().Get(1))); err != nil {
								return err
							}
							return showCart(app)
						},
					},
					{
						Name:      "set",
						ArgsUsage: "<product-id> <qty>",
						Action: func(c *cli.Context) error {
							if c.NArg() != 2 {
								return cli.Exit("usage: cart set <product-id> <qty>", 2)
							}
							qty := 0
							fmt.Sscanf(c.Args().Get(1), "%d", &qty)
							if err := app.cart.UpdateQuantity(c.Args().Get(0), qty); err != nil {
								return err
							}
							return showCart(app)
						},
					},
					{
						Name:      "rm",
						ArgsUsage: "<product-id>",
						Action: func(c *cli.Context) error {
							if err := app.cart.Remove(c.Args().Get(0)); err != nil {
								return err
							}
							return showCart(app)
						},
					},
					{
						Name: "clear",
						Action: func(c *cli.Context) error {
							return app.cart.Clear()
						},
					},
					{
						Name: "show",
						Action: func(c *cli.Context) error {
							return showCart(app)
						},
					},
				},
			},
			{
				Name:  "checkout",
				Usage: "place the order from the current cart",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "payment", Value: "cash", Usage: "cash or card"},
					&cli.Float64Flag{Name: "cash", Usage: "tendered amount for cash payment"},
					&cli.BoolFlag{Name: "delivery", Usage: "deliver instead of pickup"},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "phone"},
					&cli.StringFlag{Name: "address"},
				},
				Action: func(c *cli.Context) error {
					items := app.cart.CheckoutItems()
					if len(items) == 0 {
						return cli.Exit("cart is empty", 1)
					}
					// Client-side validation happens before any network call.
					if c.String("payment") == "cash" && !validate.Cash(c.Float64("cash"), app.cart.Total()) {
						return cli.Exit(fmt.Sprintf("insufficient cash amount: total is %.2f", app.cart.Total()), 2)
					}
					if e := c.String("email"); e != "" {
						if _, ok := validate.Email(e); !ok {
							return cli.Exit("invalid email address", 2)
						}
					}
					if p := c.String("phone"); p != "" {
						if _, ok := validate.Phone(p); !ok {
							return cli.Exit("invalid phone number", 2)
						}
					}
					o, err := app.orders.Create(c.Context, domain.CheckoutPayload{
						Items:         items,
						PaymentMethod: c.String("payment"),
						CashAmount:    c.Float64("cash"),
						Delivery:      c.Bool("delivery"),
						Name:          c.String("name"),
						Email:         c.String("email"),
						Phone:         c.String("phone"),
						Address:       c.String("address"),
					})
					if err != nil {
						return err
					}
					if err := app.cart.Clear(); err != nil {
						return err
					}
					fmt.Printf("order %s placed, total %.2f\n", o.ID, o.Total)
					return nil
				},
			},
			{
				Name:  "orders",
				Usage: "list orders (guests see the device history)",
				Action: func(c *cli.Context) error {
					orders, err := app.orders.Fetch(c.Context)
					if err != nil {
						return err
					}
					printOrders(orders)
					return nil
				},
			},
			{
				Name:      "advance",
				Usage:     "admin: move an order one step along the chain",
				ArgsUsage: "<order-id>",
				Action: func(c *cli.Context) error {
					id := c.Args().Get(0)
					if _, err := app.orders.Fetch(c.Context); err != nil {
						return err
					}
					if !app.orders.CanAdvance(id) {
						return cli.Exit("order is in a terminal status", 1)
					}
					return app.orders.Advance(c.Context, id)
				},
			},
			{
				Name:      "set-status",
				Usage:     "admin: set any status (unrestricted selector)",
				ArgsUsage: "<order-id> <status>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: set-status <order-id> <status>", 2)
					}
					if _, err := app.orders.Fetch(c.Context); err != nil {
						return err
					}
					return app.orders.SetStatus(c.Context, c.Args().Get(0), domain.Status(c.Args().Get(1)))
				},
			},
			{
				Name:      "reject",
				Usage:     "admin: reject a pending order with a reason",
				ArgsUsage: "<order-id> <reason>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return cli.Exit("usage: reject <order-id> <reason>", 2)
					}
					if _, err := app.orders.Fetch(c.Context); err != nil {
						return err
					}
					return app.orders.Reject(c.Context, c.Args().Get(0), strings.Join(c.Args().Slice()[1:], " "))
				},
			},
			{
				Name:      "cancel",
				Usage:     "cancel an order that has not entered preparation",
				ArgsUsage: "<order-id>",
				Action: func(c *cli.Context) error {
					if _, err := app.orders.Fetch(c.Context); err != nil {
						return err
					}
					return app.orders.Cancel(c.Context, c.Args().Get(0))
				},
			},
			{
				Name:      "delete-order",
				ArgsUsage: "<order-id>",
				Action: func(c *cli.Context) error {
					if _, err := app.orders.Fetch(c.Context); err != nil {
						return err
					}
					return app.orders.Delete(c.Context, c.Args().Get(0))
				},
			},
			{
				Name:  "profile",
				Usage: "show the profile (cached copy on failure)",
				Action: func(c *cli.Context) error {
					cu, err := app.profile.Fetch(c.Context)
					if err != nil {
						if cached, ok := app.profile.Cached(); ok {
							fmt.Println("(offline, showing cached profile)")
							printCustomer(cached)
							return nil
						}
						return err
					}
					printCustomer(cu)
					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "follow live order updates until interrupted",
				Action: func(c *cli.Context) error {
					if !app.session.Authenticated() {
						return cli.Exit("watch requires a logged-in session", 1)
					}
					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					watcher := stream.NewStatusWatcher(stream.LogNotifier{})
					refetch := func() {
						if orders, err := app.orders.Fetch(context.Background()); err == nil {
							watcher.Observe(orders)
							printOrders(orders)
						}
					}
					refetch()

					ch, err := stream.Open(ctx, app.client, refetch)
					if err != nil {
						return err
					}
					fmt.Println("watching for order updates (ctrl-c to stop)...")
					<-ch.Done()
					// No reconnect: a dropped stream ends the watch.
					return ch.Err()
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func showCart(app *appCtx) error {
	for _, it := range app.cart.Items() {
		fmt.Printf("%-16s %-28s x%-3d %7.2f\n", it.ProductID, it.Name, it.Quantity, it.Subtotal())
	}
	fmt.Printf("%d items, total %.2f\n", app.cart.ItemCount(), app.cart.Total())
	return nil
}

func printOrders(orders []domain.Order) {
	for _, o := range orders {
		line := fmt.Sprintf("%-36s %-10s %7.2f  %s", o.ID, o.Status, o.Total, o.CreatedAt)
		if o.Reason != "" {
			line += "  (" + o.Reason + ")"
		}
		fmt.Println(line)
	}
}

func printCustomer(cu domain.Customer) {
	fmt.Printf("%s <%s> %s\n%s\n", cu.Name, cu.Email, cu.Phone, cu.Address)
}
