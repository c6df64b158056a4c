package unwind

// Resumable is a suspended computation stepped by the normalizer.
//
// Resume feeds the previous yield's value back in; Throw feeds an error
// instead (a deferred yield that rejected). Each call returns the next yielded
// Result, or the final Result with done set.
type Resumable interface {
	Resume(input any) (out Result, done bool, err error)
	Throw(err error) (out Result, done bool, rerr error)
}

// StepFunc is one step of a Steps sequence. It receives the value the previous
// yield resolved to, or the error it rejected with.
type StepFunc func(input any, err error) (Result, error)

// Steps builds a Resumable from a fixed list of steps. Every step but the last
// yields; the last step's result is the sequence's final value.
//
// A step receiving a non-nil err may recover by returning a Result, or end the
// sequence by returning an error. Nil steps pass their input through.
func Steps(steps ...StepFunc) Resumable {
	return &stepSequence{steps: steps}
}

type stepSequence struct {
	steps []StepFunc
	next  int
}

func (s *stepSequence) Resume(input any) (Result, bool, error) {
	return s.advance(input, nil)
}

func (s *stepSequence) Throw(err error) (Result, bool, error) {
	return s.advance(nil, err)
}

func (s *stepSequence) advance(input any, err error) (Result, bool, error) {
	if s.next >= len(s.steps) {
		if err != nil {
			return nil, true, err
		}
		return Value(input), true, nil
	}
	step := s.steps[s.next]
	s.next++
	done := s.next == len(s.steps)
	if step == nil {
		if err != nil {
			return nil, true, err
		}
		return Value(input), done, nil
	}
	out, stepErr := step(input, err)
	if stepErr != nil {
		s.next = len(s.steps)
		return nil, true, stepErr
	}
	return out, done, nil
}
