package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestProcessorObserve(t *testing.T) {
	m := Processor()
	before := testutil.ToFloat64(m.instructions.WithLabelValues("Drip", "ok"))
	m.Observe("Drip", "", time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.instructions.WithLabelValues("Drip", "ok")))

	m.Observe("", "InvalidInstructionData", time.Millisecond)
	require.GreaterOrEqual(t, testutil.ToFloat64(m.instructions.WithLabelValues(InvalidInstruction, "InvalidInstructionData")), float64(1))
}

func TestAPIObserveAndThrottle(t *testing.T) {
	m := API()
	before := testutil.ToFloat64(m.requests.WithLabelValues("/v1/vaults/{address}", "404"))
	m.Observe("/v1/vaults/{address}", 404, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.requests.WithLabelValues("/v1/vaults/{address}", "404")))

	m.RecordThrottle("")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.throttles.WithLabelValues("unspecified")), float64(1))
}

func TestRecordEventNormalizes(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.emitted.WithLabelValues("faucet.dripped"))
	m.RecordEvent(" FAUCET.DRIPPED ")
	require.Equal(t, before+1, testutil.ToFloat64(m.emitted.WithLabelValues("faucet.dripped")))
}
