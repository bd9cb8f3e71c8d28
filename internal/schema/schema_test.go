package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffDeclaredFieldsOnly(t *testing.T) {
	fields := Fields{{Name: "mtu", Type: TypeString}}
	a := Blob{"mtu": "1500", "ignored": "x"}
	b := Blob{"mtu": "1500", "ignored": "y"}
	assert.False(t, Diff(fields, a, b), "undeclared field must not trigger a diff")

	c := Blob{"mtu": "1400"}
	assert.True(t, Diff(fields, a, c), "declared field change must trigger a diff")
}

func TestDiffPresenceMismatch(t *testing.T) {
	fields := Fields{{Name: "mtu", Type: TypeString}}
	assert.True(t, Diff(fields, Blob{"mtu": "1500"}, Blob{}))
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Blob{"a": 1}
	dup := Clone(orig)
	dup["a"] = 2
	assert.Equal(t, 1, orig["a"])
	assert.Equal(t, 2, dup["a"])
}

func TestProjectOnlyDeclaredFields(t *testing.T) {
	fields := Fields{{Name: "rx_bytes", Type: TypeString}}
	src := Blob{"rx_bytes": "10", "tx_bytes": "20"}
	out := Project(fields, src)
	assert.Equal(t, Blob{"rx_bytes": "10"}, out)
}

func TestProjectMissingFieldOmitted(t *testing.T) {
	fields := Fields{{Name: "missing", Type: TypeString}}
	out := Project(fields, Blob{})
	assert.Empty(t, out)
}
