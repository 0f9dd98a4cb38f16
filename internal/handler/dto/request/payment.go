package request

// PaymentCallbackRequest is the shape the gateway posts back after the
// user finishes (or abandons) an online payment.
type PaymentCallbackRequest struct {
	Status string `json:"status" binding:"required,oneof=paid failed"`
	TxnRef string `json:"txn_ref"`
}
