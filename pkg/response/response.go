package response

// APIResponseCode is carried in the envelope; the HTTP status stays 200.
type APIResponseCode int

const (
	APIResponseCodeOK             APIResponseCode = 0
	APIResponseCodeBadRequest     APIResponseCode = 40000
	APIResponseCodeUnauthorized   APIResponseCode = 40100
	APIResponseCodePaymentFailed  APIResponseCode = 40200
	APIResponseCodeNotFound       APIResponseCode = 40400
	APIResponseCodeConflict       APIResponseCode = 40900
	APIResponseCodeError          APIResponseCode = 50000
	APIResponseCodeNotImplemented APIResponseCode = 50100
	APIResponseCodeGatewayError   APIResponseCode = 50200
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:             "ok",
	APIResponseCodeBadRequest:     "bad request",
	APIResponseCodeUnauthorized:   "unauthorized",
	APIResponseCodePaymentFailed:  "payment failed",
	APIResponseCodeNotFound:       "not found",
	APIResponseCodeConflict:       "conflict",
	APIResponseCodeError:          "unexpected error",
	APIResponseCodeNotImplemented: "not implemented",
	APIResponseCodeGatewayError:   "gateway unavailable",
}

// Message returns the fixed message of code.
func (c APIResponseCode) Message() string {
	if m, ok := codeToMsg[c]; ok {
		return m
	}
	return codeToMsg[APIResponseCodeError]
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: APIResponseCodeOK.Message(), Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: code.Message(), Data: data}
}
