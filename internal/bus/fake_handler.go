package bus

import "github.com/arkap/netifd/internal/schema"

// ServeJSONRPC runs a minimal stand-in external handler over conn: every
// inbound Call is answered with exactly one Reply built from handle.
// Exported so other packages' tests can exercise a real Link/Invoker
// pair against a fake handler without duplicating the wire protocol.
func ServeJSONRPC(conn Conn, handle func(method string, args schema.Blob) (schema.Blob, int)) {
	for {
		raw, err := readFrame(conn)
		if err != nil {
			return
		}
		var env envelope
		if err := decode(raw, &env); err != nil {
			return
		}
		if env.Kind != "call" {
			continue
		}
		data, status := handle(env.Call.Method, env.Call.Args)
		reply := Reply{Cookie: env.Call.Cookie, Status: status, Data: data}
		renv := envelope{Kind: "reply", Reply: &reply}
		payload, err := encode(renv)
		if err != nil {
			return
		}
		if err := writeFrame(conn, payload); err != nil {
			return
		}
	}
}

// ServeAutoNotify is ServeJSONRPC plus an auto-generated notification
// following every successful reply, keyed by method name: create/
// reload/free carry the device-list shape ({name} -> Devices), prepare
// carries the bridge-level shape, and add/remove carry the hotplug-pair
// shape. Real handlers only ever settle a shadow by notification, never
// by reply status, so tests exercising that settlement need a fake
// handler that actually notifies rather than one that only replies.
func ServeAutoNotify(conn Conn, handle func(method string, args schema.Blob) (schema.Blob, int)) {
	for {
		raw, err := readFrame(conn)
		if err != nil {
			return
		}
		var env envelope
		if err := decode(raw, &env); err != nil {
			return
		}
		if env.Kind != "call" {
			continue
		}
		data, status := handle(env.Call.Method, env.Call.Args)
		reply := Reply{Cookie: env.Call.Cookie, Status: status, Data: data}
		renv := envelope{Kind: "reply", Reply: &reply}
		payload, err := encode(renv)
		if err != nil {
			return
		}
		if err := writeFrame(conn, payload); err != nil {
			return
		}
		if status != 0 {
			continue
		}
		if n := autoNotification(env.Call.Method, env.Call.Args); n != nil {
			nenv := envelope{Kind: "notification", Notification: n}
			npayload, err := encode(nenv)
			if err != nil {
				return
			}
			if err := writeFrame(conn, npayload); err != nil {
				return
			}
		}
	}
}

func autoNotification(method string, args schema.Blob) *Notification {
	switch method {
	case "create", "reload", "free":
		name, _ := args["name"].(string)
		if name == "" {
			return nil
		}
		return &Notification{Type: method, Devices: []string{name}}
	case "prepare":
		bridge, _ := args["bridge"].(string)
		if bridge == "" {
			return nil
		}
		return &Notification{Type: method, Bridge: bridge}
	case "add", "remove":
		bridge, _ := args["bridge"].(string)
		member, _ := args["member"].(string)
		if bridge == "" || member == "" {
			return nil
		}
		return &Notification{Type: method, Bridge: bridge, Member: member}
	default:
		return nil
	}
}
