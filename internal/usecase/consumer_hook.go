package usecase

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	drepo "EnergyPulse/internal/domain/repository"
	pkgkafka "EnergyPulse/pkg/kafka"
)

// NewConsumerTimingHook returns a hook that times every consumed message and
// counts handler failures.
func NewConsumerTimingHook(m drepo.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return pkgkafka.WithStartTime(ctx, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, _ string, _ kafka.Message, _ []byte, err error) {
			if m == nil {
				return
			}
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("consumer_handle", time.Since(start).Seconds())
			}
			if err != nil {
				m.RecordError("consumer_handle")
			}
		},
	}
}
