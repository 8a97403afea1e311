package devapi

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"bakehouse/internal/domain"
	applog "bakehouse/internal/log"
)

type App struct {
	Fiber  *fiber.App
	db     *sqlx.DB
	secret []byte
	hub    *hub
}

func New(db *sqlx.DB, secret []byte) *App {
	a := &App{db: db, secret: secret, hub: newHub()}

	a.Fiber = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error("devapi.error", err, map[string]any{"path": c.Path()})
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	a.Fiber.Use(requestid.New())

	a.Fiber.Post("/auth/login", a.login)
	a.Fiber.Post("/auth/register", a.register)

	a.Fiber.Get("/products", a.listProducts)
	a.Fiber.Get("/products/:id", a.getProduct)
	a.Fiber.Put("/products/:id", a.requireAuth, a.requireAdmin, a.updateProduct)
	a.Fiber.Delete("/products/:id", a.requireAuth, a.requireAdmin, a.deleteProduct)

	a.Fiber.Get("/orders", a.requireAuth, a.myOrders)
	a.Fiber.Get("/orders/all", a.requireAuth, a.requireAdmin, a.allOrders)
	a.Fiber.Get("/orders/stream", a.requireAuth, a.streamOrders)
	a.Fiber.Post("/orders", a.optionalAuth, a.createOrder)
	a.Fiber.Patch("/orders/:id/status", a.requireAuth, a.requireAdmin, a.patchStatus)
	a.Fiber.Delete("/orders/:id", a.requireAuth, a.deleteOrder)

	a.Fiber.Get("/users/profile", a.requireAuth, a.getProfile)
	a.Fiber.Put("/users/profile", a.requireAuth, a.updateProfile)

	return a
}

// ---------- auth ----------

type userRow struct {
	ID      string `db:"id"`
	Email   string `db:"email"`
	Name    string `db:"name"`
	Hash    string `db:"password_hash"`
	Phone   string `db:"phone"`
	Address string `db:"address"`
	Role    string `db:"role"`
}

func (a *App) login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
	}
	var u userRow
	if err := a.db.Get(&u, `SELECT id,email,name,password_hash,COALESCE(phone,'') phone,COALESCE(address,'') address,role FROM users WHERE LOWER(email)=LOWER(?)`, body.Email); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(body.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}
	tok, err := a.generateToken(u.ID, u.Email, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": tok, "user": userJSON(u)})
}

func (a *App) register(c *fiber.Ctx) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" || body.Password == "" || body.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, email and password are required"})
	}
	var exists int
	if err := a.db.Get(&exists, `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`, body.Email); err != nil {
		return err
	}
	if exists > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		return err
	}
	u := userRow{ID: "u-" + uuid.NewString()[:8], Email: body.Email, Name: body.Name, Phone: body.Phone, Address: body.Address, Role: "customer"}
	if _, err := a.db.Exec(`INSERT INTO users(id,email,name,password_hash,phone,address,role) VALUES(?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.Name, string(hash), u.Phone, u.Address, u.Role); err != nil {
		return err
	}
	tok, err := a.generateToken(u.ID, u.Email, u.Role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": tok, "user": userJSON(u)})
}

func userJSON(u userRow) fiber.Map {
	return fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role}
}

// ---------- products ----------

type productRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	Price       float64 `db:"price"`
	Category    string  `db:"category"`
	Image       string  `db:"image"`
	Stock       int     `db:"stock"`
	Featured    int     `db:"featured"`
	Ingredients string  `db:"ingredients_json"`
	Allergens   string  `db:"allergens_json"`
}

const productCols = `id,name,COALESCE(description,'') description,price,category,COALESCE(image,'') image,stock,featured,COALESCE(ingredients_json,'[]') ingredients_json,COALESCE(allergens_json,'[]') allergens_json`

func productJSON(p productRow) fiber.Map {
	var ing, all []string
	_ = json.Unmarshal([]byte(p.Ingredients), &ing)
	_ = json.Unmarshal([]byte(p.Allergens), &all)
	return fiber.Map{
		"id": p.ID, "name": p.Name, "description": p.Description,
		"price": p.Price, "category": p.Category, "image": p.Image,
		"stock": p.Stock, "featured": p.Featured == 1,
		"ingredients": ing, "allergens": all,
	}
}

func (a *App) listProducts(c *fiber.Ctx) error {
	var rows []productRow
	if err := a.db.Select(&rows, `SELECT `+productCols+` FROM products ORDER BY category, name`); err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(rows))
	for _, p := range rows {
		out = append(out, productJSON(p))
	}
	return c.JSON(out)
}

func (a *App) getProduct(c *fiber.Ctx) error {
	var p productRow
	err := a.db.Get(&p, `SELECT `+productCols+` FROM products WHERE id=?`, c.Params("id"))
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	if err != nil {
		return err
	}
	return c.JSON(productJSON(p))
}

func (a *App) updateProduct(c *fiber.Ctx) error {
	var body struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Category    string  `json:"category"`
		Image       string  `json:"image"`
		Stock       int     `json:"stock"`
		Featured    bool    `json:"featured"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
	}
	if body.Stock < 0 || body.Price < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stock and price must be non-negative"})
	}
	res, err := a.db.Exec(`UPDATE products SET name=?,description=?,price=?,category=?,image=?,stock=?,featured=? WHERE id=?`,
		body.Name, body.Description, body.Price, body.Category, body.Image, body.Stock, boolInt(body.Featured), c.Params("id"))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	return a.getProduct(c)
}

func (a *App) deleteProduct(c *fiber.Ctx) error {
	if _, err := a.db.Exec(`DELETE FROM products WHERE id=?`, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "deleted"})
}

// ---------- orders ----------

type orderRow struct {
	ID            string  `db:"id"`
	CustomerID    string  `db:"customer_id"`
	CustomerName  string  `db:"customer_name"`
	CustomerEmail string  `db:"customer_email"`
	CustomerPhone string  `db:"customer_phone"`
	CustomerAddr  string  `db:"customer_address"`
	Status        string  `db:"status"`
	PaymentMethod string  `db:"payment_method"`
	CashAmount    float64 `db:"cash_amount"`
	Reason        string  `db:"reason"`
	Delivery      int     `db:"delivery"`
	Total         float64 `db:"total"`
	CreatedAt     string  `db:"created_at"`
}

type orderItemRow struct {
	OrderID   string  `db:"order_id"`
	ProductID string  `db:"product_id"`
	Name      string  `db:"name"`
	Qty       int     `db:"qty"`
	Price     float64 `db:"price"`
}

const orderCols = `id,COALESCE(customer_id,'') customer_id,COALESCE(customer_name,'') customer_name,
  COALESCE(customer_email,'') customer_email,COALESCE(customer_phone,'') customer_phone,
  COALESCE(customer_address,'') customer_address,status,COALESCE(payment_method,'') payment_method,
  COALESCE(cash_amount,0) cash_amount,COALESCE(reason,'') reason,delivery,total,created_at`

// orderJSON keeps the legacy camelCase wire shape with the customer
// nested, the shape the client's normalization layer is built for.
func orderJSON(o orderRow, items []orderItemRow) fiber.Map {
	lines := make([]fiber.Map, 0, len(items))
	for _, it := range items {
		lines = append(lines, fiber.Map{
			"productId": it.ProductID,
			"name":      it.Name,
			"quantity":  it.Qty,
			"unitPrice": it.Price,
			"subtotal":  it.Price * float64(it.Qty),
		})
	}
	return fiber.Map{
		"orderId":         o.ID,
		"status":          o.Status,
		"paymentMethod":   o.PaymentMethod,
		"cashAmount":      o.CashAmount,
		"rejectionReason": o.Reason,
		"isDelivery":      o.Delivery == 1,
		"totalAmount":     o.Total,
		"createdAt":       o.CreatedAt,
		"customer": fiber.Map{
			"id":    o.CustomerID,
			"name":  o.CustomerName,
			"email": o.CustomerEmail,
			"phone": o.CustomerPhone,
			"address": o.CustomerAddr,
		},
		"items": lines,
	}
}

func (a *App) renderOrders(c *fiber.Ctx, rows []orderRow) error {
	out := make([]fiber.Map, 0, len(rows))
	for _, o := range rows {
		var items []orderItemRow
		if err := a.db.Select(&items, `SELECT order_id,product_id,name,qty,price FROM order_items WHERE order_id=?`, o.ID); err != nil {
			return err
		}
		out = append(out, orderJSON(o, items))
	}
	return c.JSON(out)
}

func (a *App) myOrders(c *fiber.Ctx) error {
	var rows []orderRow
	if err := a.db.Select(&rows, `SELECT `+orderCols+` FROM orders WHERE customer_id=? ORDER BY datetime(created_at) DESC`, callerID(c)); err != nil {
		return err
	}
	return a.renderOrders(c, rows)
}

func (a *App) allOrders(c *fiber.Ctx) error {
	var rows []orderRow
	if err := a.db.Select(&rows, `SELECT `+orderCols+` FROM orders ORDER BY datetime(created_at) DESC`); err != nil {
		return err
	}
	return a.renderOrders(c, rows)
}

func (a *App) createOrder(c *fiber.Ctx) error {
	var body domain.CheckoutPayload
	if err := c.BodyParser(&body); err != nil || len(body.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order needs at least one item"})
	}

	customerID := callerID(c)
	if customerID == "" {
		// Guest checkout: mint a synthetic customer id the device can
		// remember for later correlation.
		customerID = "g-" + uuid.NewString()[:8]
	} else {
		var u userRow
		if err := a.db.Get(&u, `SELECT id,email,name,password_hash,COALESCE(phone,'') phone,COALESCE(address,'') address,role FROM users WHERE id=?`, customerID); err == nil {
			if body.Name == "" {
				body.Name = u.Name
			}
			if body.Email == "" {
				body.Email = u.Email
			}
		}
	}

	tx, err := a.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	total := 0.0
	type line struct {
		p   productRow
		qty int
	}
	var lines []line
	for _, it := range body.Items {
		if it.Quantity < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quantity must be positive"})
		}
		var p productRow
		err := tx.Get(&p, `SELECT `+productCols+` FROM products WHERE id=?`, it.ProductID)
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown product " + it.ProductID})
		}
		if err != nil {
			return err
		}
		if p.Stock < it.Quantity {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "insufficient stock for " + p.Name})
		}
		total += p.Price * float64(it.Quantity)
		lines = append(lines, line{p: p, qty: it.Quantity})
	}
	if body.PaymentMethod == "cash" && body.CashAmount < total {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient cash amount"})
	}

	orderID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`
	  INSERT INTO orders(id,customer_id,customer_name,customer_email,customer_phone,customer_address,
	    status,payment_method,cash_amount,reason,delivery,total,created_at)
	  VALUES(?,?,?,?,?,?,'pending',?,?,'',?,?,?)`,
		orderID, customerID, body.Name, body.Email, body.Phone, body.Address,
		body.PaymentMethod, body.CashAmount, boolInt(body.Delivery), total, now); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := tx.Exec(`INSERT INTO order_items(order_id,product_id,name,qty,price) VALUES(?,?,?,?,?)`,
			orderID, l.p.ID, l.p.Name, l.qty, l.p.Price); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE products SET stock = stock - ? WHERE id=?`, l.qty, l.p.ID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	a.hub.broadcast()
	applog.Audit("devapi.order.create", map[string]any{"order": orderID, "total": total})
	return a.respondOrder(c, orderID, fiber.StatusCreated)
}

func (a *App) patchStatus(c *fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
	}
	// Vocabulary membership only: the chain is not enforced server-side,
	// matching the production API's behavior.
	if !domain.Status(body.Status).Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status " + body.Status})
	}
	res, err := a.db.Exec(`UPDATE orders SET status=?, reason=? WHERE id=?`, body.Status, body.Reason, c.Params("id"))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	}
	a.hub.broadcast()
	return a.respondOrder(c, c.Params("id"), fiber.StatusOK)
}

func (a *App) deleteOrder(c *fiber.Ctx) error {
	id := c.Params("id")
	role, _ := c.Locals("role").(string)
	var owner string
	err := a.db.Get(&owner, `SELECT COALESCE(customer_id,'') FROM orders WHERE id=?`, id)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	}
	if err != nil {
		return err
	}
	if role != "admin" && owner != callerID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not your order"})
	}
	if _, err := a.db.Exec(`DELETE FROM orders WHERE id=?`, id); err != nil {
		return err
	}
	a.hub.broadcast()
	return c.JSON(fiber.Map{"message": "deleted"})
}

func (a *App) respondOrder(c *fiber.Ctx, id string, status int) error {
	var o orderRow
	if err := a.db.Get(&o, `SELECT `+orderCols+` FROM orders WHERE id=?`, id); err != nil {
		return err
	}
	var items []orderItemRow
	if err := a.db.Select(&items, `SELECT order_id,product_id,name,qty,price FROM order_items WHERE order_id=?`, id); err != nil {
		return err
	}
	return c.Status(status).JSON(orderJSON(o, items))
}

// ---------- profile ----------

func (a *App) getProfile(c *fiber.Ctx) error {
	var u userRow
	if err := a.db.Get(&u, `SELECT id,email,name,password_hash,COALESCE(phone,'') phone,COALESCE(address,'') address,role FROM users WHERE id=?`, callerID(c)); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(profileJSON(u))
}

func (a *App) updateProfile(c *fiber.Ctx) error {
	var body struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
	}
	if _, err := a.db.Exec(`UPDATE users SET name=?, phone=?, address=? WHERE id=?`,
		body.Name, body.Phone, body.Address, callerID(c)); err != nil {
		return err
	}
	return a.getProfile(c)
}

// profileJSON uses the older snake_case shape this endpoint always had.
func profileJSON(u userRow) fiber.Map {
	return fiber.Map{
		"user_id":      u.ID,
		"full_name":    u.Name,
		"email":        u.Email,
		"phone_number": u.Phone,
		"address":      u.Address,
		"role":         u.Role,
	}
}

// ---------- stream ----------

func (a *App) streamOrders(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	subID := uuid.NewString()
	signals := a.hub.subscribe(subID)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer a.hub.unsubscribe(subID)
		ping := time.NewTicker(15 * time.Second)
		defer ping.Stop()
		for {
			select {
			case _, ok := <-signals:
				if !ok {
					return
				}
				if err := sse.Encode(w, sse.Event{Event: EventOrdersChanged, Data: "changed"}); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-ping.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

// EventOrdersChanged mirrors the event name the client listens for.
const EventOrdersChanged = "orders"

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
