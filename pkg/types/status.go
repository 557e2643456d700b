package types

// Status is the lifecycle state of a payment transaction.
type Status string

const (
	StatusSuccessful                   Status = "successful"
	StatusWaitingForPayment            Status = "waiting_for_payment"
	StatusWaitingForBank               Status = "waiting_for_bank"
	StatusCanceled                     Status = "canceled"
	StatusCanceledByUser               Status = "canceled_by_user"
	StatusFailed                       Status = "failed"
	StatusRefunded                     Status = "refunded"
	StatusRefundFailed                 Status = "refund_failed"
	StatusRefundFailedInsufficientFund Status = "refund_failed_insufficient_funds"
	StatusInvalidAPIKey                Status = "invalid_api_key"
)

var statusLabels = map[Status]string{
	StatusSuccessful:                   "Successful",
	StatusWaitingForPayment:            "Waiting for payment",
	StatusWaitingForBank:               "Waiting for bank",
	StatusCanceled:                     "Canceled",
	StatusCanceledByUser:               "Canceled by user",
	StatusFailed:                       "Failed",
	StatusRefunded:                     "Refunded",
	StatusRefundFailed:                 "Refund failed",
	StatusRefundFailedInsufficientFund: "Refund failed by lack of funds",
	StatusInvalidAPIKey:                "Invalid API key",
}

// failMessages holds the user-facing message of every hard failure.
var failMessages = map[Status]string{
	StatusFailed:                       "The payment failed at the gateway.",
	StatusRefundFailed:                 "The refund request was rejected by the gateway.",
	StatusRefundFailedInsufficientFund: "The refund failed because the merchant balance is insufficient.",
	StatusInvalidAPIKey:                "The payment portal is misconfigured: the gateway rejected its API key.",
}

// AllStatuses lists every status in display order.
func AllStatuses() []Status {
	return []Status{
		StatusSuccessful,
		StatusWaitingForPayment,
		StatusWaitingForBank,
		StatusCanceled,
		StatusCanceledByUser,
		StatusFailed,
		StatusRefunded,
		StatusRefundFailed,
		StatusRefundFailedInsufficientFund,
		StatusInvalidAPIKey,
	}
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsHardFailure reports whether s is terminal and non-retryable.
func (s Status) IsHardFailure() bool {
	_, ok := failMessages[s]
	return ok
}

// IsTerminal reports whether the gateway can no longer change s through verification.
func (s Status) IsTerminal() bool {
	return s == StatusSuccessful || s == StatusRefunded || s.IsHardFailure()
}

// FailMessage returns the canonical message for a hard failure, or "" otherwise.
func (s Status) FailMessage() string {
	return failMessages[s]
}
