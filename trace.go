package trinity

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "impractical.co/trinity"

// tracer is looked up on every use so a TracerProvider installed after the
// Engine was created still takes effect.
func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
