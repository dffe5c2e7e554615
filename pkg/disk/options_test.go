package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDeviceTypeFunc(t *testing.T) {
	assert.True(t, DefaultDeviceTypeFunc("disk"))
	assert.True(t, DefaultDeviceTypeFunc("part"))
	assert.True(t, DefaultDeviceTypeFunc("lvm"))
	assert.True(t, DefaultDeviceTypeFunc("raid0"))
	assert.False(t, DefaultDeviceTypeFunc("loop"))
	assert.False(t, DefaultDeviceTypeFunc(""))
}

func TestDefaultFsTypeFunc(t *testing.T) {
	assert.True(t, DefaultFsTypeFunc("ext4"))
	assert.True(t, DefaultFsTypeFunc("LVM2_member"))
	assert.True(t, DefaultFsTypeFunc("linux_raid_member"))
	assert.True(t, DefaultFsTypeFunc(""))
	assert.False(t, DefaultFsTypeFunc("wekafs"))
	assert.False(t, DefaultFsTypeFunc("fuse.juicefs"))
}

func TestDefaultNFSFsTypeFunc(t *testing.T) {
	assert.True(t, DefaultNFSFsTypeFunc("wekafs"))
	assert.True(t, DefaultNFSFsTypeFunc("lustre"))
	assert.False(t, DefaultNFSFsTypeFunc("ext4"))
}

func TestOpApplyOptsDefaults(t *testing.T) {
	op := &Op{}
	err := op.applyOpts(nil)
	assert.NoError(t, err)
	assert.True(t, op.deviceTypeFunc("disk"))
	assert.True(t, op.fsTypeFunc(""))
}
