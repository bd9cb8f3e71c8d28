package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkap/netifd/internal/schema"
)

func writeClassFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	confDir := filepath.Join(dir, ClassConfigDirName)
	assert.NoError(t, os.MkdirAll(confDir, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(confDir, name), []byte(contents), 0644))
}

func TestLoadClassesMissingDirNotFatal(t *testing.T) {
	dir := t.TempDir()
	classes, err := LoadClasses(dir)
	assert.NoError(t, err)
	assert.Empty(t, classes)
}

func TestLoadClassesParsesValidFile(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir, "veth.json", `{
		"name": "veth",
		"handler": "veth",
		"config": [{"name": "mtu", "type": 0}]
	}`)
	classes, err := LoadClasses(dir)
	assert.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.Equal(t, "veth", classes[0].Name)
	assert.Equal(t, "network.device.ubus.veth", classes[0].HandlerObject())
}

func TestLoadClassesSkipsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir, "broken.json", `{"handler": "x", "config": [{"name":"a","type":0}]}`) // missing name
	writeClassFile(t, dir, "ok.json", `{"name": "ok", "handler": "ok", "config": [{"name":"a","type":0}]}`)
	classes, err := LoadClasses(dir)
	assert.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.Equal(t, "ok", classes[0].Name)
}

func TestClassValidateRequiresMemberPrefixWhenBridgeCapable(t *testing.T) {
	c := &Class{Name: "br", Handler: "br", BridgeCapable: true, ConfigSchema: schema.Fields{{Name: "a"}}}
	assert.Error(t, c.Validate())
	c.MemberPrefix = "br-"
	assert.NoError(t, c.Validate())
}
