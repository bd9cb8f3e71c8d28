package libol

import "fmt"

// Err is a simple coded error: most call sites only ever set Message,
// Code is left for callers that want to classify errors numerically.
type Err struct {
	Code    int
	Message string
}

func (e *Err) Error() string {
	return e.Message
}

func NewErr(format string, v ...interface{}) *Err {
	return &Err{Message: fmt.Sprintf(format, v...)}
}

func NewErrCode(code int, format string, v ...interface{}) *Err {
	return &Err{Code: code, Message: fmt.Sprintf(format, v...)}
}
