package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusPacked},
		{StatusShipped, StatusDelivered},
		{StatusPending, StatusCancelled},
		{StatusProcessing, StatusCancelled},
		{StatusPacked, StatusCancelled},
		{StatusShipped, StatusCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]Status{
		{StatusPending, StatusDelivered},
		{StatusPending, StatusPacked},
		{StatusPacked, StatusShipped},
		{StatusDelivered, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusProcessing},
		{StatusProcessing, StatusPending},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestCanShip(t *testing.T) {
	assert.True(t, CanShip(StatusPending))
	assert.True(t, CanShip(StatusPacked))
	assert.False(t, CanShip(StatusShipped))
	assert.False(t, CanShip(StatusCancelled))
	assert.False(t, CanShip(StatusDelivered))
}

func TestParseStatusAndTerminal(t *testing.T) {
	s, ok := ParseStatus("packed")
	assert.True(t, ok)
	assert.Equal(t, StatusPacked, s)

	_, ok = ParseStatus("lost")
	assert.False(t, ok)

	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestAuthContextIsAdmin(t *testing.T) {
	assert.True(t, AuthContext{UserID: "u1", Roles: []Role{"customer", RoleAdmin}}.IsAdmin())
	assert.False(t, AuthContext{UserID: "u1"}.IsAdmin())
	assert.False(t, AuthContext{Roles: []Role{RoleAdmin}}.IsAdmin())
}
