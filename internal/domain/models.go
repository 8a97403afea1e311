package domain

// Product is the canonical catalog record after normalization.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Stock       int      `json:"stock"`
	Ingredients []string `json:"ingredients,omitempty"`
	Allergens   []string `json:"allergens,omitempty"`
	Featured    bool     `json:"featured"`
}

// CartItem carries denormalized display fields so the cart renders
// without a catalog round trip. Price is the price at time of adding.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func (it CartItem) Subtotal() float64 { return it.Price * float64(it.Quantity) }

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Subtotal  float64 `json:"subtotal"`
}

type Order struct {
	ID            string      `json:"id"`
	Items         []OrderItem `json:"items"`
	Customer      Customer    `json:"customer"`
	Status        Status      `json:"status"`
	PaymentMethod string      `json:"payment_method"`
	CashAmount    float64     `json:"cash_amount,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Delivery      bool        `json:"delivery"`
	Total         float64     `json:"total"`
	CreatedAt     string      `json:"created_at"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Role    string `json:"role"`
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is the authenticated identity held by the session store.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// CheckoutPayload is what the client posts to create an order.
type CheckoutPayload struct {
	Items         []CheckoutItem `json:"items"`
	PaymentMethod string         `json:"payment_method"`
	CashAmount    float64        `json:"cash_amount,omitempty"`
	Delivery      bool           `json:"delivery"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Address       string         `json:"address"`
}

type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
