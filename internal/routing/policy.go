package routing

import "payment-proxy/internal/messages"

type Processor string

const (
	Default  Processor = "default"
	Fallback Processor = "fallback"
	None     Processor = "none"
)

// fallbackLatencyFactor is how much slower the default processor must be
// before traffic moves to the fallback. The margin avoids flapping
// between processors on marginal latency differences and keeps default
// as the stable choice when performance is comparable.
const fallbackLatencyFactor = 1.30

// Choose maps a composite health snapshot to the processor that should
// receive the next batch. It is deterministic and side-effect-free.
func Choose(h messages.CompositeHealth) Processor {
	switch {
	case h.Default.Failing && h.Fallback.Failing:
		return None
	case h.Default.Failing:
		return Fallback
	case h.Fallback.Failing:
		return Default
	}

	if float64(h.Default.MinResponseTime) > float64(h.Fallback.MinResponseTime)*fallbackLatencyFactor {
		return Fallback
	}

	return Default
}
