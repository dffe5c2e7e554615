package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanSSDRAID(t *testing.T) {
	assert.Equal(t, RAIDNone, planSSDRAID(1, ModeFast).Level)

	assert.Equal(t, RAID0, planSSDRAID(2, ModeFast).Level)
	assert.Equal(t, RAID1, planSSDRAID(2, ModeCareful).Level)

	fast3 := planSSDRAID(3, ModeFast)
	assert.Equal(t, RAID0, fast3.Level)
	assert.Equal(t, 3, fast3.MembersUsed)

	careful3 := planSSDRAID(3, ModeCareful)
	assert.Equal(t, RAID1, careful3.Level)
	assert.Equal(t, 2, careful3.MembersUsed)
	assert.Equal(t, 1, careful3.SpareUnused)

	assert.Equal(t, RAID10, planSSDRAID(4, ModeCareful).Level)
	assert.Equal(t, RAID0, planSSDRAID(4, ModeFast).Level)
	assert.Equal(t, RAID0, planSSDRAID(5, ModeCareful).Level, "odd disk count can't mirror evenly, falls back to RAID0")
}

func TestHDDDataRAIDPlan(t *testing.T) {
	assert.Equal(t, RAIDNone, hddDataRAIDPlan(1).Level)
	assert.Equal(t, RAID1, hddDataRAIDPlan(2).Level)
	assert.Equal(t, RAID5, hddDataRAIDPlan(3).Level)
	assert.Equal(t, RAID6, hddDataRAIDPlan(4).Level, "four-disk HDD data arrays use RAID6, matching the worked four-HDD scenario")
	assert.Equal(t, RAID6, hddDataRAIDPlan(5).Level)
	assert.Equal(t, RAID6, hddDataRAIDPlan(6).Level)
}
