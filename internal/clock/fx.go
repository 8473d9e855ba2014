package clock

import "go.uber.org/fx"

// Module provides the wall clock. Tests build services with a fixed
// clock instead of going through fx.
var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
