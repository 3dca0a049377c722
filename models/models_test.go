package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalLabels(t *testing.T) {
	assert.Nil(t, ApprovalFromLabel(""))
	assert.Nil(t, ApprovalFromLabel("garbage"))

	approved := ApprovalFromLabel(ApprovalApproved)
	require.NotNil(t, approved)
	assert.True(t, *approved)

	rejected := ApprovalFromLabel(ApprovalRejected)
	require.NotNil(t, rejected)
	assert.False(t, *rejected)

	assert.Equal(t, ApprovalPending, ApprovalToLabel(nil))
	assert.Equal(t, ApprovalApproved, ApprovalToLabel(approved))
	assert.Equal(t, ApprovalRejected, ApprovalToLabel(rejected))

	// Pending is persisted as the empty select value.
	assert.Equal(t, "", StoredApprovalValue(nil))
	assert.Equal(t, ApprovalApproved, StoredApprovalValue(approved))
}

func TestRegistration_ApprovalState(t *testing.T) {
	reg := Registration{}
	assert.Equal(t, ApprovalPending, reg.ApprovalState())
	assert.False(t, reg.IsApproved())

	v := true
	reg.Approved = &v
	assert.Equal(t, ApprovalApproved, reg.ApprovalState())
	assert.True(t, reg.IsApproved())

	v = false
	assert.Equal(t, ApprovalRejected, reg.ApprovalState())
	assert.False(t, reg.IsApproved())
}

func TestRegistration_JSONTriState(t *testing.T) {
	reg := Registration{ID: "reg-1", UserID: "user-1", EventID: "event-1"}

	data, err := json.Marshal(reg)
	require.NoError(t, err)

	// Pending serializes as an explicit null, and an absent check-in
	// time is omitted entirely.
	assert.Contains(t, string(data), `"approved":null`)
	assert.NotContains(t, string(data), "checked_in_at")

	v := true
	now := time.Now()
	reg.Approved = &v
	reg.CheckedIn = true
	reg.CheckedInAt = &now

	data, err = json.Marshal(reg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"approved":true`)
	assert.Contains(t, string(data), "checked_in_at")
}

func TestEvent_HasSecret(t *testing.T) {
	event := Event{}
	assert.False(t, event.HasSecret())

	event.SecretHash = "$2a$10$something"
	assert.True(t, event.HasSecret())
}
