package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPipelineError(t *testing.T) {
	err := New(KindDiscoveryTimeout, "discovery", "tagged strategy timed out")

	assert.Equal(t, KindDiscoveryTimeout, err.Kind)
	assert.Equal(t, "discovery", err.Stage)
	assert.Contains(t, err.Error(), "discovery_timeout")
	assert.False(t, err.IsFatal())
	assert.False(t, err.Timestamp.IsZero())
}

func TestWrapNilCause(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindCheckerError, "security", "lookup failed"))
}

func TestWrapCarriesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, KindGenerationFailure, "codegen", "tool invocation failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, KindGenerationFailure, KindOf(err))
}

func TestOnlyNoResourcesIsFatal(t *testing.T) {
	for _, kind := range []Kind{
		KindDiscoveryTimeout, KindDiscoveryError, KindGenerationFailure,
		KindCheckerError, KindClassificationError, KindInternal,
	} {
		assert.False(t, New(kind, "s", "m").IsFatal(), "kind %s must not be fatal", kind)
	}
	assert.True(t, New(KindNoResourcesFound, "discovery", "empty union").IsFatal())
}

func TestIsKind(t *testing.T) {
	err := New(KindClassificationError, "gaps", "bad finding")

	assert.True(t, IsKind(err, KindClassificationError))
	assert.False(t, IsKind(err, KindCheckerError))
	assert.False(t, IsKind(fmt.Errorf("plain"), KindCheckerError))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))
}

func TestStageResult(t *testing.T) {
	ok := Ok([]string{"a", "b"})
	assert.False(t, ok.Failed())
	assert.Equal(t, []string{"a", "b"}, ok.OrDefault(nil))

	failed := Fail[[]string](New(KindCheckerError, "security", "boom"))
	assert.True(t, failed.Failed())
	assert.Empty(t, failed.OrDefault([]string{}))
}

func TestWithDetail(t *testing.T) {
	err := New(KindDiscoveryError, "discovery", "strategy failed").
		WithDetail("strategy", "tagged").
		WithDetail("region", "us-east-1")

	assert.Equal(t, "tagged", err.Details["strategy"])
	assert.Equal(t, "us-east-1", err.Details["region"])
}
