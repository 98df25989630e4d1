package errors

// StageResult wraps the outcome of one pipeline stage so that
// "continue with a default on failure" is an explicit branch rather
// than a side effect of a broad catch.
type StageResult[T any] struct {
	Value T
	Err   *PipelineError
}

// Ok wraps a successful stage value.
func Ok[T any](value T) StageResult[T] {
	return StageResult[T]{Value: value}
}

// Fail wraps a stage failure.
func Fail[T any](err *PipelineError) StageResult[T] {
	return StageResult[T]{Err: err}
}

// Failed reports whether the stage produced an error.
func (r StageResult[T]) Failed() bool {
	return r.Err != nil
}

// OrDefault returns the stage value, or the given default when the
// stage failed.
func (r StageResult[T]) OrDefault(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}
