package globals

import (
	"context"

	"certsync/internal/components/chrono"
	"certsync/internal/components/telemetry"
	"certsync/internal/runner"
)

type keyType struct{}

var key keyType

type Value struct {
	Config runner.Config
	Tel    telemetry.API
	Clock  chrono.API
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key).(*Value)
}
