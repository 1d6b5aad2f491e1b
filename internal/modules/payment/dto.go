package payment

const (
	CallbackPaid   = "PAID"
	CallbackFailed = "FAILED"
)

// CallbackRequest is what the payment gateway posts once a charge settles.
type CallbackRequest struct {
	OrderID   int64  `json:"order_id" binding:"required,gt=0"`
	Status    string `json:"status" binding:"required,oneof=PAID FAILED"`
	Reference string `json:"reference" binding:"max=128"`
}
