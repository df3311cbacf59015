package models

import "github.com/shopspring/decimal"

// Session is the identity context supplied by the identity provider. The
// engine only needs to know whether a credential is present.
type Session struct {
	Token  string
	UserID string
}

// Authenticated reports whether the session resolves to a user.
func (s Session) Authenticated() bool {
	switch s.UserID {
	case "", "undefined", "null":
		return false
	}
	return true
}

// Order is the purchase intent created by the order service.
type Order struct {
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// PaymentReceipt is produced by the payment capture flow.
type PaymentReceipt struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// DemandRequest asks for a product to be restocked at a machine.
type DemandRequest struct {
	MachineID   int64  `json:"machine_id"`
	ProductName string `json:"product_name"`
}

// PurchaseRecord is one entry of the user's purchase history.
type PurchaseRecord struct {
	ProductName string          `json:"product_name"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
}

// PurchaseHistory is the profile payload returned by the order service.
type PurchaseHistory struct {
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
	TotalSpent decimal.Decimal  `json:"total_spent"`
	History    []PurchaseRecord `json:"history"`
}
