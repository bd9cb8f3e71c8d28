package shadow

import "github.com/arkap/netifd/internal/libol"

// logInvocationError is the single funnel every failed dispatch's
// completion callback reports through, naming the operation (the
// shadow's sync kind when the reply arrives) and the device/member it
// was issued for, instead of logging ad hoc at each
// call site.
func logInvocationError(out *libol.SubLogger, method, name string, status int) {
	out.Error("logInvocationError: %s(%s) failed: status %d", method, name, status)
}
