package transaction

import "errors"

var (
	// ErrTransactionNotFound is returned for unknown ids, foreign transactions and
	// callbacks whose gateway id matches nothing.
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPortalNotFound      = errors.New("portal not found")
	// ErrValidation wraps every create-time input error raised before the gateway is contacted.
	ErrValidation = errors.New("invalid transaction request")
	// ErrNoGatewayID is returned when a redirect is requested for a transaction the gateway never accepted.
	ErrNoGatewayID = errors.New("transaction has no gateway id")
)
