package service

import (
	"testing"

	"account-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanListAccounts(t *testing.T) {
	assert.True(t, CanListAccounts(models.RoleAdmin))
	assert.False(t, CanListAccounts(models.RoleUnderwriter))
	assert.False(t, CanListAccounts(models.RoleUser))
}

func TestCanUnderwrite(t *testing.T) {
	assert.True(t, CanUnderwrite(models.RoleAdmin))
	assert.True(t, CanUnderwrite(models.RoleUnderwriter))
	assert.False(t, CanUnderwrite(models.RoleUser))
}

func TestCanModifyAccount(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	cases := []struct {
		name    string
		actor   models.Role
		actorID uuid.UUID
		want    bool
	}{
		{"admin on any account", models.RoleAdmin, other, true},
		{"owner on own account", models.RoleUser, owner, true},
		{"user on someone else's account", models.RoleUser, other, false},
		{"underwriter on someone else's account", models.RoleUnderwriter, other, false},
		{"underwriter on own account", models.RoleUnderwriter, owner, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanModifyAccount(tc.actor, tc.actorID, owner))
		})
	}
}
