package tracing

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"example.com/foodbank/services/donations/config"
)

func TestNewTracerWithoutLicenseKeyIsDisabled(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	require.NotNil(t, tracer)
}

// A disabled tracer must be safe to call end to end, it stands in whenever
// New Relic is unavailable.
func TestDisabledTracerNeverPanics(t *testing.T) {
	tracer := DisabledTracer()

	txn := tracer.StartTransaction("op")
	require.Nil(t, txn)

	span := tracer.StartSpan("step", txn)
	require.NotNil(t, span)
	span.End()

	tracer.AddAttribute(txn, "key", "value")
	tracer.RecordError(txn, errors.New("boom"))
	tracer.EndTransaction(txn)
	tracer.Close()
}
