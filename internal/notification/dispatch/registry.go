package dispatch

import (
	"go.uber.org/fx"

	"github.com/telandes/recaudo/internal/config"
	"github.com/telandes/recaudo/internal/notification/domain"
)

// Registry resolves a channel to its dispatcher implementation.
type Registry struct {
	dispatchers map[domain.Channel]domain.Dispatcher
}

func NewRegistry(cfg config.Config) *Registry {
	return &Registry{
		dispatchers: map[domain.Channel]domain.Dispatcher{
			domain.ChannelTelegram: NewTelegram(cfg),
		},
	}
}

// For returns the dispatcher for a channel, or an error when the
// channel has no configured implementation.
func (r *Registry) For(ch domain.Channel) (domain.Dispatcher, error) {
	d, ok := r.dispatchers[ch]
	if !ok {
		return nil, domain.ErrUnsupportedChannel
	}
	return d, nil
}

// Register swaps in a dispatcher for a channel. Tests use it to plug
// fakes; future channels (email, sms) hook in here.
func (r *Registry) Register(ch domain.Channel, d domain.Dispatcher) {
	r.dispatchers[ch] = d
}

var Module = fx.Module("dispatch",
	fx.Provide(NewRegistry),
)
