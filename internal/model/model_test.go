package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleStaff))
	assert.True(t, RoleStaff.AtLeast(RoleStaff))
	assert.True(t, RoleCustomer.AtLeast(RoleCustomer))
	assert.False(t, RoleCustomer.AtLeast(RoleStaff))
	assert.False(t, Role("guest").AtLeast(RoleCustomer))
}

func TestPushSubscription_BeforeCreate(t *testing.T) {
	sub := &PushSubscription{}
	assert.NoError(t, sub.BeforeCreate(nil))
	assert.Len(t, sub.ID, 36)

	kept := &PushSubscription{ID: "fixed"}
	assert.NoError(t, kept.BeforeCreate(nil))
	assert.Equal(t, "fixed", kept.ID)
}
