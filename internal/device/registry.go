package device

import "sync"

// Registry is the daemon-wide table of local devices, keyed by name --
// the Go stand-in for netifd's global avl_tree of struct device. Shadows
// never construct a *Device directly; they go through Get so that two
// classes referring to the same device name share one instance.
type Registry struct {
	lock    sync.Mutex
	devices map[string]*Device
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Get returns the named device, creating it if absent.
func (r *Registry) Get(name string) *Device {
	r.lock.Lock()
	defer r.lock.Unlock()
	d, ok := r.devices[name]
	if !ok {
		d = newDevice(name)
		r.devices[name] = d
	}
	return d
}

// Lookup returns the named device without creating it.
func (r *Registry) Lookup(name string) (*Device, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	d, ok := r.devices[name]
	return d, ok
}

// Remove drops a device that is no longer present and has no
// outstanding claims or locks, mirroring device_free_unused.
func (r *Registry) Remove(name string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	d, ok := r.devices[name]
	if !ok {
		return
	}
	if d.Present() || d.Locked() {
		return
	}
	d.teardownLink()
	delete(r.devices, name)
}
