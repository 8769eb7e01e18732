package domain

// PaymentMethod represents how the rider settles the fare.
type PaymentMethod string

const (
	PaymentMethodNone           PaymentMethod = ""
	PaymentMethodCash           PaymentMethod = "CASH"
	PaymentMethodMobileTransfer PaymentMethod = "MOBILE_TRANSFER"
)

// Valid reports whether m is one of the selectable methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodMobileTransfer
}

// TransferInstructions holds the data a rider needs to send a mobile transfer.
type TransferInstructions struct {
	BankCode    string
	Phone       string
	RecipientID string
}

// Field returns the value of a copyable instruction field by name.
func (t TransferInstructions) Field(name string) (string, bool) {
	switch name {
	case "bank_code":
		return t.BankCode, true
	case "phone":
		return t.Phone, true
	case "recipient_id":
		return t.RecipientID, true
	default:
		return "", false
	}
}
