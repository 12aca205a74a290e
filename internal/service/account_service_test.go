package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/repository/memory"
)

func TestRegisterApproveAuthenticate(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	svc := NewAccountService(memory.New().Users(), 4, n, nil)

	u, err := svc.Register(ctx, RegisterInput{Email: " Dana@Campus.edu ", Password: "longenough", FirstName: "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "dana@campus.edu", u.Email)
	assert.Equal(t, []string{"Registration Received - Awaiting Approval"}, n.subjects(u.Email))

	_, err = svc.Register(ctx, RegisterInput{Email: "dana@campus.edu", Password: "longenough"})
	assert.Equal(t, booking.KindConflict, booking.KindOf(err))

	_, err = svc.Authenticate(ctx, "dana@campus.edu", "longenough")
	assert.ErrorIs(t, err, ErrNotApproved)

	_, err = svc.Approve(ctx, alice, u.Email)
	assert.Equal(t, booking.KindForbidden, booking.KindOf(err))

	_, err = svc.Approve(ctx, admin, u.Email)
	require.NoError(t, err)
	assert.Contains(t, n.subjects(u.Email), "Account Verified")

	got, err := svc.Authenticate(ctx, "DANA@campus.edu", "longenough")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	_, err = svc.Authenticate(ctx, "dana@campus.edu", "wrong-password")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate(ctx, "nobody@campus.edu", "whatever1")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAccountService(memory.New().Users(), 4, nil, nil)
	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "longenough"})
	assert.Equal(t, booking.KindValidation, booking.KindOf(err))
	_, err = svc.Register(context.Background(), RegisterInput{Email: "e@campus.edu", Password: "short"})
	assert.Equal(t, booking.KindValidation, booking.KindOf(err))
}

func TestAuthenticateBlockedAccount(t *testing.T) {
	ctx := context.Background()
	users := memory.New().Users()
	svc := NewAccountService(users, 4, nil, nil)
	u, err := svc.Register(ctx, RegisterInput{Email: "eve@campus.edu", Password: "longenough"})
	require.NoError(t, err)
	require.NoError(t, users.SetVerified(ctx, u.Email, true))
	require.NoError(t, users.SetActive(ctx, u.Email, false))
	_, err = svc.Authenticate(ctx, u.Email, "longenough")
	assert.ErrorIs(t, err, ErrAccountBlocked)
}
