package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	wantErr := errors.New("still broken")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})

	assert.Equal(t, wantErr, err)
	// Initial attempt plus MaxRetries.
	assert.Equal(t, 4, calls)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_NilConfigUsesDefaults(t *testing.T) {
	calls := 0
	err := Do(context.Background(), nil, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestDoWithResult_KeepsLastResultOnFailure(t *testing.T) {
	wantErr := errors.New("still broken")
	got, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		return "partial", wantErr
	})

	assert.Equal(t, wantErr, err)
	assert.Equal(t, "partial", got)
}

func TestDo_DelaysGrowAndStayUnderCap(t *testing.T) {
	cfg := &Config{
		MaxRetries:   3,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     30 * time.Millisecond,
		Multiplier:   2.0,
	}

	var callTimes []time.Time
	_ = Do(context.Background(), cfg, func() error {
		callTimes = append(callTimes, time.Now())
		return errors.New("transient")
	})

	require.Len(t, callTimes, 4)
	first := callTimes[1].Sub(callTimes[0])
	assert.GreaterOrEqual(t, first, 15*time.Millisecond)
	for i := 2; i < len(callTimes); i++ {
		// Doubling is capped at MaxDelay; allow scheduler slack.
		assert.Less(t, callTimes[i].Sub(callTimes[i-1]), 80*time.Millisecond)
	}
}

type declaredError struct {
	retryable bool
}

func (e *declaredError) Error() string     { return "provider error" }
func (e *declaredError) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"uppercase match", errors.New("Connection Refused"), true},
		{"i/o timeout", errors.New("read tcp: i/o timeout"), true},
		{"deadlock", errors.New("deadlock detected"), true},
		{"rate limited", errors.New("429 too many requests"), true},
		{"service unavailable", errors.New("503 service unavailable"), true},
		{"bad credentials", errors.New("authentication failed"), false},
		{"bad sql", errors.New("syntax error at position 10"), false},
		{"missing table", errors.New("table not found"), false},
		{"declares retryable", &declaredError{retryable: true}, true},
		{"declares permanent", &declaredError{retryable: false}, false},
		{"wrapped declaration wins", fmt.Errorf("embed: %w", &declaredError{retryable: false}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable_PermanentErrorReturnsImmediately(t *testing.T) {
	wantErr := errors.New("authentication failed")
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})

	assert.Equal(t, wantErr, err)
	assert.Equal(t, 1, calls)
}

func TestDoIfRetryable_TransientErrorRetries(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection timeout")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoIfRetryable_SameCategoryStreakCutsShort(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 10
	cfg.MaxSameErrorType = 2

	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return errors.New("503 service unavailable")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 2 503 errors")
	assert.Equal(t, 2, calls)
}

func TestDoIfRetryable_ExhaustsBudgetOnVaryingErrors(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxSameErrorType = 2

	errs := []error{
		errors.New("connection refused"),
		errors.New("request timed out"),
		errors.New("connection refused"),
		errors.New("request timed out"),
	}
	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		err := errs[calls]
		calls++
		return err
	})

	assert.Equal(t, errs[3], err)
	assert.Equal(t, 4, calls)
}
