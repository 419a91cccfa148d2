package httpx

import "github.com/subfusion/checkout/internal/checkout/core/domain/entity"

type CustomerDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type ItemDTO struct {
	ProductID string            `json:"pid"`
	Plan      string            `json:"plan"`
	Price     int64             `json:"price"`
	Quantity  int64             `json:"qty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

type CreatePaymentRequest struct {
	Items    []ItemDTO   `json:"items"`
	Customer CustomerDTO `json:"customer"`
}

type DemoPaymentResponse struct {
	Demo    bool   `json:"demo"`
	DemoURL string `json:"demoUrl"`
	TranID  string `json:"tranId"`
}

type CreateOrderRequest struct {
	Customer  CustomerDTO `json:"customer"`
	Items     []ItemDTO   `json:"items"`
	PayMethod string      `json:"payMethod"`
	TxID      string      `json:"txid"`
}

type OrderResponse struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"orderId"`
	Total   int64  `json:"total"`
	Emailed bool   `json:"emailed"`
}

type AckResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (c CustomerDTO) toEntity() entity.Customer {
	return entity.Customer{Name: c.Name, Phone: c.Phone, Email: c.Email}
}

func mapItems(items []ItemDTO) []entity.LineItem {
	out := make([]entity.LineItem, len(items))
	for i, it := range items {
		out[i] = entity.LineItem{
			ProductID: it.ProductID,
			Plan:      it.Plan,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
			Meta:      it.Meta,
		}
	}
	return out
}
