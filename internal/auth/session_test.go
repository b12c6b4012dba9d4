package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/store/memory"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newSessionFixture(t *testing.T) (*auth.Sessions, *memory.Store, *clock) {
	t.Helper()
	store := memory.New()
	store.AddCompany(auth.Company{ID: "c1", Name: "Acme"})
	store.AddUser(auth.User{ID: "u1", TenantID: "c1", Email: "u1@acme.test", Status: auth.UserStatusActive})
	clk := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	sessions := auth.NewSessions(store.Sessions(context.Background()),
		auth.WithSessionClock(clk.Now), auth.WithSessionTTL(time.Hour))
	return sessions, store, clk
}

func TestSessionCreateAndValidate(t *testing.T) {
	sessions, _, clk := newSessionFixture(t)
	ctx := context.Background()

	issued, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(issued.Token), 43)
	assert.Equal(t, auth.HashToken(issued.Token), issued.TokenHash)
	assert.NotEqual(t, issued.Token, issued.TokenHash)
	assert.Equal(t, clk.t.Add(time.Hour), issued.ExpiresAt)

	sess, err := sessions.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)

	_, err = sessions.Validate(ctx, "unknown")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = sessions.Validate(ctx, "")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestSessionExpiry(t *testing.T) {
	sessions, _, clk := newSessionFixture(t)
	ctx := context.Background()
	issued, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)

	clk.t = issued.ExpiresAt
	_, err = sessions.Validate(ctx, issued.Token)
	require.NoError(t, err)

	clk.t = issued.ExpiresAt.Add(time.Nanosecond)
	_, err = sessions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
}

func TestSessionCreateInvalidatesPrevious(t *testing.T) {
	sessions, store, _ := newSessionFixture(t)
	ctx := context.Background()

	first, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)
	second, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)

	_, err = sessions.Validate(ctx, first.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = sessions.Validate(ctx, second.Token)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.SessionCount("u1"))
}

func TestSessionRotateIsSingleUse(t *testing.T) {
	sessions, store, _ := newSessionFixture(t)
	ctx := context.Background()

	issued, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)
	sess, err := sessions.Validate(ctx, issued.Token)
	require.NoError(t, err)

	next, err := sessions.Rotate(ctx, sess)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Token, next.Token)

	_, err = sessions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = sessions.Rotate(ctx, sess)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	_, err = sessions.Validate(ctx, next.Token)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.SessionCount("u1"))
}

func TestSessionConcurrentRotationHasOneWinner(t *testing.T) {
	sessions, store, _ := newSessionFixture(t)
	ctx := context.Background()
	issued, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)
	sess, err := sessions.Validate(ctx, issued.Token)
	require.NoError(t, err)

	const workers = 8
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := sessions.Rotate(ctx, sess)
			results <- err
		}()
	}
	wins := 0
	for i := 0; i < workers; i++ {
		if err := <-results; err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, auth.ErrSessionNotFound)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, store.SessionCount("u1"))
}

func TestSessionRevokeAndSweep(t *testing.T) {
	sessions, store, clk := newSessionFixture(t)
	ctx := context.Background()

	issued, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, sessions.Revoke(ctx, issued.Token))
	require.NoError(t, sessions.Revoke(ctx, issued.Token))
	_, err = sessions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	_, err = sessions.Create(ctx, "u1")
	require.NoError(t, err)
	n, err := sessions.SweepExpired(ctx, clk.t)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = sessions.SweepExpired(ctx, clk.t.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, store.SessionCount("u1"))
}

func TestJanitorSweep(t *testing.T) {
	sessions, store, _ := newSessionFixture(t)
	ctx := context.Background()
	_, err := sessions.Create(ctx, "u1")
	require.NoError(t, err)

	// Sessions live for an hour from 2025-03-01; the janitor runs on the wall clock.
	janitor := auth.NewJanitor(sessions, time.Millisecond, nil)
	assert.Equal(t, int64(1), janitor.Sweep(ctx))
	assert.Zero(t, store.SessionCount("u1"))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		janitor.Run(runCtx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
