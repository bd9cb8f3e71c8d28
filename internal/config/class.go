package config

import (
	"path/filepath"

	"github.com/arkap/netifd/internal/libol"
	"github.com/arkap/netifd/internal/schema"
)

// Class is one class-registration record: class name,
// external handler endpoint name, bridge-capability, member-name prefix
// (bridge-capable classes only), and the three schemas.
type Class struct {
	Name           string        `json:"name"`
	Handler        string        `json:"handler"`
	BridgeCapable  bool          `json:"bridge"`
	MemberPrefix   string        `json:"member_prefix,omitempty"`
	ConfigSchema   schema.Fields `json:"config"`
	InfoSchema     schema.Fields `json:"info,omitempty"`
	StatsSchema    schema.Fields `json:"stats,omitempty"`
	sourceFile     string
}

// Validate enforces the minimal shape a class registration needs: a
// class name, a handler endpoint, and a config schema are mandatory; a
// bridge class must declare a member prefix. Absent info/stats schemas
// only suppress the corresponding dump capability, they are not errors.
func (c *Class) Validate() error {
	if c.Name == "" {
		return libol.NewErr("%s: missing class name", c.sourceFile)
	}
	if c.Handler == "" {
		return libol.NewErr("%s: missing handler endpoint", c.sourceFile)
	}
	if len(c.ConfigSchema) == 0 {
		return libol.NewErr("%s: missing config schema", c.sourceFile)
	}
	if c.BridgeCapable && c.MemberPrefix == "" {
		return libol.NewErr("%s: bridge class missing member prefix", c.sourceFile)
	}
	return nil
}

// HandlerObject is the ubus object name the class subscribes to:
// "network.device.ubus.<endpoint>".
func (c *Class) HandlerObject() string {
	return "network.device.ubus." + c.Handler
}

// LoadClasses globs <confdir>/ubusdev-config/*.json and loads each file
// with UnmarshalLoad. A missing directory is non-fatal: it returns an
// empty slice and no error.
func LoadClasses(confDir string) ([]*Class, error) {
	dir := filepath.Join(confDir, ClassConfigDirName)
	if err := libol.FileExist(dir); err != nil {
		libol.Info("LoadClasses: %s absent, ubusdev plug-in disabled", dir)
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, libol.NewErr("LoadClasses: %s", err)
	}
	out := make([]*Class, 0, len(files))
	for _, f := range files {
		c := &Class{sourceFile: f}
		if err := libol.UnmarshalLoad(c, f); err != nil {
			libol.Error("LoadClasses: %s: %s", f, err)
			continue
		}
		if err := c.Validate(); err != nil {
			libol.Error("LoadClasses: %s", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
