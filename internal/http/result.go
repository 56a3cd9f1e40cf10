package httpapi

// Result is the JSON envelope of every API response. Code is ResultSuccess
// or one of the failure codes below; Type is "success" or "error".
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

// Failure codes let clients tell a bad filter from a missing discrepancy or
// an unreachable store without parsing Message.
const (
	ResultSuccess          = 2000
	ResultInvalidFilter    = 4000
	ResultNotFound         = 4040
	ResultMethodNotAllowed = 4050
	ResultUnavailable      = 5030
	ResultError            = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(code int, message string) Result[any] {
	return Result[any]{Code: code, Type: "error", Message: message}
}
