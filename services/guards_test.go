package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emailInput struct{ Email string }

func TestGuardRunsChecksInOrder(t *testing.T) {
	var seen []string
	check := func(name string, err error) EmailCheck {
		return func(_ context.Context, addr string) error {
			seen = append(seen, name+":"+addr)
			return err
		}
	}
	calls := 0
	next := func(_ context.Context, p emailInput) (int, error) {
		calls++
		return 42, nil
	}

	guarded := Guard(next, func(p emailInput) string { return p.Email }, check("a", nil), check("b", nil))
	got, err := guarded(context.Background(), emailInput{Email: " Ada@Example.COM "})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a:ada@example.com", "b:ada@example.com"}, seen)
}

func TestGuardStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("refused")
	ran := false
	later := func(context.Context, string) error {
		ran = true
		return nil
	}
	next := func(context.Context, emailInput) (string, error) {
		t.Fatal("next must not run")
		return "", nil
	}

	guarded := Guard(next, func(p emailInput) string { return p.Email },
		func(context.Context, string) error { return boom }, later)
	got, err := guarded(context.Background(), emailInput{Email: "ada@example.com"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, got)
	assert.False(t, ran)
}

func TestGuardWithoutChecks(t *testing.T) {
	guarded := Guard(func(_ context.Context, p emailInput) (string, error) { return p.Email, nil },
		func(p emailInput) string { return p.Email })
	got, err := guarded(context.Background(), emailInput{Email: "x@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", got)
}

func TestChecksIgnoreUnknownEmails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	assert.NoError(t, h.auth.CheckLoginLock(ctx, "ghost@example.com"))
	assert.NoError(t, h.auth.CheckResetCooldown(ctx, "ghost@example.com"))
	assert.NoError(t, h.auth.CheckLoginLock(ctx, ""))
}
