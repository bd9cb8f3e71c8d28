package shadow

import "github.com/arkap/netifd/internal/schema"

// Argument blob builders for the create/reload/free/hotplug RPCs. Kept
// tiny and free-standing rather than methods so Sync's Args field can be
// built identically whether this is the first attempt or a retry.

func createArgs(name string, config schema.Blob) schema.Blob {
	return schema.Blob{"name": name, "config": config}
}

func reloadArgs(name string, config schema.Blob) schema.Blob {
	return schema.Blob{"name": name, "config": config}
}

func freeArgs(name string) schema.Blob {
	return schema.Blob{"name": name}
}

// prepareArgs is the bridge-level pre-activation payload: {bridge}
// only, no member -- prepare happens once per bridge, before its first
// member is ever added.
func prepareArgs(bridge string) schema.Blob {
	return schema.Blob{"bridge": bridge}
}

func addArgs(bridge, member string, config schema.Blob) schema.Blob {
	return schema.Blob{"bridge": bridge, "member": member, "config": config}
}

func removeArgs(bridge, member string) schema.Blob {
	return schema.Blob{"bridge": bridge, "member": member}
}
