// internal/driver/context_test.go
package driver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCombineContext(t *testing.T) {
	type ctxKey string
	const key ctxKey = "conn"

	t.Run("InheritsSessionValues", func(t *testing.T) {
		session := context.WithValue(context.Background(), key, "target-1")
		combined, cancel := CombineContext(session, context.Background())
		defer cancel()

		assert.Equal(t, "target-1", combined.Value(key))
		assert.NoError(t, combined.Err())
	})

	t.Run("CanceledBySession", func(t *testing.T) {
		session, cancelSession := context.WithCancel(context.Background())
		combined, cancel := CombineContext(session, context.Background())
		defer cancel()

		cancelSession()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("CanceledByOperation", func(t *testing.T) {
		op, cancelOp := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		cancelOp()
		assert.Eventually(t, func() bool { return combined.Err() != nil }, time.Second, 5*time.Millisecond)
	})

	t.Run("AdoptsOperationDeadline", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelOp()
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		deadline, ok := combined.Deadline()
		require.True(t, ok)
		opDeadline, _ := op.Deadline()
		assert.Equal(t, opDeadline, deadline)

		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.DeadlineExceeded)
	})

	t.Run("ShortDeadlineIsNeverReportedAsCanceled", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			op, cancelOp := context.WithTimeout(context.Background(), time.Millisecond)
			combined, cancel := CombineContext(context.Background(), op)
			<-combined.Done()
			err := combined.Err()
			cancel()
			cancelOp()
			require.ErrorIs(t, err, context.DeadlineExceeded, "run %d", i)
		}
	})
}

func TestDetach(t *testing.T) {
	type ctxKey string
	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), ctxKey("k"), "v"), time.Millisecond)
	cancel()

	d := Detach(parent)
	assert.Equal(t, "v", d.Value(ctxKey("k")))
	assert.NoError(t, d.Err())
	assert.Nil(t, d.Done())
	_, ok := d.Deadline()
	assert.False(t, ok)
}

func TestErrorClasses(t *testing.T) {
	wrapped := fmt.Errorf("click: %w", ErrStale)
	assert.True(t, IsStale(wrapped))
	assert.False(t, IsNotInteractable(wrapped))
	assert.True(t, IsNotInteractable(fmt.Errorf("box model: %w", ErrNotInteractable)))
	assert.False(t, IsStale(errors.New("other")))
}

func TestByString(t *testing.T) {
	assert.Equal(t, "CSS_SELECTOR", ByCSS.String())
	assert.Equal(t, "XPATH", ByXPath.String())
	assert.Equal(t, "UNKNOWN", By(9).String())
}
