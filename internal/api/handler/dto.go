package handler

// CreatePaymentRequest represents a request to create a new payment intent
type CreatePaymentRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// UpdatePaymentRequest represents a request to change the amount of a payment intent
type UpdatePaymentRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// PaymentIntentResponse represents the gateway's view of an intent in API responses
type PaymentIntentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	ClientSecret string `json:"client_secret,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// PaymentRecordResponse represents a ledger record in API responses
type PaymentRecordResponse struct {
	ID              string `json:"id"`
	GatewayIntentID string `json:"gateway_intent_id"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	OwnerID         string `json:"owner_id"`
	CreatedAt       string `json:"created_at"`
}

// PaymentListResponse represents a list of ledger records in API responses
type PaymentListResponse struct {
	Payments []PaymentRecordResponse `json:"payments"`
}
