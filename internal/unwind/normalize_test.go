package unwind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loop is a manual dispatcher: continuations wait until drain is called.
type loop struct {
	pending []func()
}

func (l *loop) Dispatch(fn func()) {
	l.pending = append(l.pending, fn)
}

func (l *loop) drain() int {
	n := 0
	for len(l.pending) > 0 {
		fn := l.pending[0]
		l.pending = l.pending[1:]
		fn()
		n++
	}
	return n
}

func TestNormalize_PlainValueSettlesSynchronously(t *testing.T) {
	f := Normalize(Value(42), &loop{})
	require.True(t, f.Settled())
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestNormalize_NilResult(t *testing.T) {
	f := Normalize(nil, nil)
	v, err := f.Result()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNormalize_SynchronousYieldsAreFedBack(t *testing.T) {
	seq := Steps(
		func(_ any, _ error) (Result, error) { return Value(1), nil },
		func(in any, _ error) (Result, error) { return Value(in.(int) + 1), nil },
		func(in any, _ error) (Result, error) { return Value(in.(int) * 10), nil },
	)

	f := Normalize(Sequence(seq), &loop{})
	require.True(t, f.Settled())
	v, _ := f.Result()
	assert.Equal(t, 20, v)
}

func TestNormalize_DeferredYieldThenSecondValue(t *testing.T) {
	l := &loop{}
	pending := NewFuture()
	var resumedWith any
	seq := Steps(
		func(_ any, _ error) (Result, error) { return Defer(pending), nil },
		func(in any, _ error) (Result, error) {
			resumedWith = in
			return Value("second"), nil
		},
	)

	f := Normalize(Sequence(seq), l)
	assert.False(t, f.Settled(), "no result before the deferred value settles")
	assert.Equal(t, 0, l.drain())

	pending.Resolve("first")
	assert.False(t, f.Settled(), "continuation waits for a loop turn")

	l.drain()
	require.True(t, f.Settled())
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, "first", resumedWith)
}

func TestNormalize_AlreadySettledDeferredStillHops(t *testing.T) {
	l := &loop{}
	f := Normalize(Defer(Settled("ready")), l)
	assert.False(t, f.Settled())
	assert.Equal(t, 1, l.drain())
	v, _ := f.Result()
	assert.Equal(t, "ready", v)
}

func TestNormalize_RejectionIsThrownIntoSequence(t *testing.T) {
	l := &loop{}
	boom := errors.New("boom")
	pending := NewFuture()
	var caught error
	seq := Steps(
		func(_ any, _ error) (Result, error) { return Defer(pending), nil },
		func(_ any, err error) (Result, error) {
			caught = err
			return Value("recovered"), nil
		},
	)

	f := Normalize(Sequence(seq), l)
	pending.Reject(boom)
	l.drain()

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.ErrorIs(t, caught, boom)
}

func TestNormalize_UnhandledRejectionRejectsResult(t *testing.T) {
	l := &loop{}
	boom := errors.New("boom")
	seq := Steps(
		func(_ any, _ error) (Result, error) { return Defer(Failed(boom)), nil },
		func(_ any, err error) (Result, error) { return nil, err },
	)

	f := Normalize(Sequence(seq), l)
	l.drain()
	_, err := f.Result()
	assert.ErrorIs(t, err, boom)
}

func TestNormalize_FinalValueIsRenormalized(t *testing.T) {
	l := &loop{}
	inner := NewFuture()
	seq := Steps(
		func(_ any, _ error) (Result, error) { return Defer(inner), nil },
	)

	f := Normalize(Sequence(seq), l)
	assert.False(t, f.Settled())
	inner.Resolve(Sequence(Steps(func(_ any, _ error) (Result, error) { return Value("nested"), nil })))
	l.drain()

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "nested", v)
}

func TestNormalize_StepErrorRejectsSynchronously(t *testing.T) {
	boom := errors.New("step failed")
	seq := Steps(func(_ any, _ error) (Result, error) { return nil, boom })

	f := Normalize(Sequence(seq), nil)
	require.True(t, f.Settled())
	_, err := f.Result()
	assert.ErrorIs(t, err, boom)
}

func TestFuture_SettlesOnce(t *testing.T) {
	f := NewFuture()
	_, err := f.Result()
	assert.ErrorIs(t, err, ErrPending)

	var calls int
	f.Then(func(any, error) { calls++ })
	assert.True(t, f.Resolve(1))
	assert.False(t, f.Resolve(2))
	assert.False(t, f.Reject(errors.New("late")))

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, calls)

	f.Then(func(any, error) { calls++ })
	assert.Equal(t, 2, calls, "Then on a settled future runs immediately")

	select {
	case <-f.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestLiftAndKind(t *testing.T) {
	assert.Equal(t, "value", Kind(Lift(3)))
	assert.Equal(t, "deferred", Kind(Lift(NewFuture())))
	assert.Equal(t, "resumable", Kind(Lift(Steps())))
	assert.Equal(t, "value", Kind(Lift(nil)))

	v, ok := Now(Value("x"))
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = Now(Defer(NewFuture()))
	assert.False(t, ok)
}
