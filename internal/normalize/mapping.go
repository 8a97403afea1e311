package normalize

import (
	"strings"

	"bakehouse/internal/domain"
)

// Product maps a raw catalog record onto the canonical shape.
func Product(m Raw) domain.Product {
	return domain.Product{
		ID:          str(m, "id", "Id", "ID", "_id", "product_id", "productId"),
		Name:        str(m, "name", "Name", "title", "Title"),
		Description: str(m, "description", "Description", "desc"),
		Price:       num(m, "price", "Price", "unit_price", "unitPrice"),
		Category:    str(m, "category", "Category", "category_name", "categoryName"),
		Image:       str(m, "image", "Image", "image_url", "imageUrl", "img"),
		Stock:       int(num(m, "stock", "Stock", "stock_count", "stockCount", "qty", "quantity")),
		Ingredients: stringList(m, "ingredients", "Ingredients"),
		Allergens:   stringList(m, "allergens", "Allergens"),
		Featured:    boolean(m, "featured", "Featured", "is_featured", "isFeatured"),
	}
}

// Customer maps contact info which the backend sometimes nests under a
// "customer" object and sometimes flattens onto the parent record.
func Customer(m Raw) domain.Customer {
	if sub := object(m, "customer", "Customer", "customer_info", "customerInfo", "user", "User"); sub != nil {
		m = merged(m, sub)
	}
	return domain.Customer{
		ID:      str(m, "customer_id", "customerId", "CustomerId", "id", "Id", "_id", "user_id", "userId"),
		Name:    str(m, "name", "Name", "customer_name", "customerName", "full_name", "fullName"),
		Email:   str(m, "email", "Email", "customer_email", "customerEmail"),
		Phone:   str(m, "phone", "Phone", "phone_number", "phoneNumber", "tel"),
		Address: address(m),
		Role:    role(m),
	}
}

// Order maps a raw order record, including its line items.
func Order(m Raw) domain.Order {
	o := domain.Order{
		ID:            str(m, "id", "Id", "ID", "_id", "order_id", "orderId"),
		Customer:      orderCustomer(m),
		Status:        status(m),
		PaymentMethod: str(m, "payment_method", "paymentMethod", "PaymentMethod", "payment"),
		CashAmount:    num(m, "cash_amount", "cashAmount", "CashAmount", "tendered"),
		Reason:        str(m, "reason", "Reason", "rejection_reason", "rejectionReason"),
		Delivery:      boolean(m, "delivery", "Delivery", "is_delivery", "isDelivery", "for_delivery"),
		Total:         num(m, "total", "Total", "total_amount", "totalAmount", "amount"),
		CreatedAt:     str(m, "created_at", "createdAt", "CreatedAt", "date", "placed_at"),
	}
	for _, v := range list(m, "items", "Items", "order_items", "orderItems", "products") {
		if im, ok := v.(map[string]any); ok {
			o.Items = append(o.Items, OrderItem(im))
		}
	}
	return o
}

func OrderItem(m Raw) domain.OrderItem {
	it := domain.OrderItem{
		ProductID: str(m, "product_id", "productId", "ProductId", "id", "Id"),
		Name:      str(m, "name", "Name", "title", "product_name", "productName"),
		Quantity:  int(num(m, "quantity", "Quantity", "qty", "Qty", "count")),
		Price:     num(m, "price", "Price", "unit_price", "unitPrice"),
		Subtotal:  num(m, "subtotal", "Subtotal", "sub_total", "line_total", "lineTotal"),
	}
	if it.Subtotal == 0 && it.Quantity > 0 {
		it.Subtotal = it.Price * float64(it.Quantity)
	}
	return it
}

// Orders maps a raw list wholesale, skipping anything that is not an object.
func Orders(arr []any) []domain.Order {
	out := make([]domain.Order, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, Order(m))
		}
	}
	return out
}

func Products(arr []any) []domain.Product {
	out := make([]domain.Product, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, Product(m))
		}
	}
	return out
}

func User(m Raw) domain.User {
	if sub := object(m, "user", "User"); sub != nil {
		m = merged(m, sub)
	}
	return domain.User{
		ID:    str(m, "id", "Id", "ID", "_id", "user_id", "userId"),
		Email: str(m, "email", "Email"),
		Name:  str(m, "name", "Name", "full_name", "fullName"),
		Role:  role(m),
	}
}

// orderCustomer guards against a flat order record's own "id" bleeding
// into the customer id when the backend sends no customer identifier.
func orderCustomer(m Raw) domain.Customer {
	cu := Customer(m)
	if cu.ID != "" && cu.ID == str(m, "id", "Id", "ID", "_id", "order_id", "orderId") {
		cu.ID = str(m, "customer_id", "customerId", "CustomerId", "user_id", "userId")
	}
	return cu
}

func status(m Raw) domain.Status {
	s := domain.Status(strings.ToLower(str(m, "status", "Status", "order_status", "orderStatus", "state")))
	if !s.Valid() {
		return domain.StatusPending
	}
	return s
}

// address handles both a flat string and a nested object with street/city.
func address(m Raw) string {
	if s := str(m, "address", "Address", "delivery_address", "deliveryAddress"); s != "" {
		return s
	}
	sub := object(m, "address", "Address", "delivery_address", "deliveryAddress")
	if sub == nil {
		return ""
	}
	parts := []string{}
	for _, k := range [][]string{
		{"street", "Street", "line1"},
		{"city", "City"},
		{"zip", "Zip", "postal_code", "postalCode"},
	} {
		if p := str(sub, k...); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func role(m Raw) string {
	r := strings.ToLower(str(m, "role", "Role", "user_role", "userRole"))
	switch r {
	case "admin", "administrator":
		return domain.RoleAdmin
	case "":
		return ""
	default:
		return domain.RoleCustomer
	}
}

// merged overlays sub on top of parent without mutating either. Sub wins
// because nested shapes are the more specific source.
func merged(parent, sub Raw) Raw {
	out := make(Raw, len(parent)+len(sub))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range sub {
		out[k] = v
	}
	return out
}
