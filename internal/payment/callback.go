package payment

const (
	callbackValid     = "VALID"
	callbackValidated = "VALIDATED"
)

// Callback is the form the gateway posts to the success URL.
type Callback struct {
	TranID string
	Status string
	ValID  string
}

// Paid reports whether the gateway marked the transaction as paid. VALIDATED
// is sent when the same payment was already confirmed once.
func (c Callback) Paid() bool {
	if c.ValID == "" {
		return false
	}
	return c.Status == callbackValid || c.Status == callbackValidated
}
