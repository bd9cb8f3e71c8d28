package shadow

import (
	"github.com/arkap/netifd/internal/bus"
	"github.com/arkap/netifd/internal/config"
)

// Class is the runtime counterpart of config.Class: immutable metadata
// plus the live Link to its external handler. A class whose handler
// endpoint is unresolved is unsubscribed and has a pending
// ubus-object-add watch armed -- that invariant belongs to Link itself
// (internal/bus.Link), referenced here rather than re-implemented.
type Class struct {
	*config.Class
	Link *bus.Link
}

func NewClass(c *config.Class, link *bus.Link) *Class {
	return &Class{Class: c, Link: link}
}

// Subscribed reports the class's handler link subscription status.
func (c *Class) Subscribed() bool {
	return c.Link.State() == bus.Subscribed
}
