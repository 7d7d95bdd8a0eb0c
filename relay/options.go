package relay

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bitfsorg/libtxverify-go/peers"
	"github.com/bitfsorg/libtxverify-go/verification"
)

// Config holds the processor limits.
type Config struct {
	// Workers is the number of concurrent verification goroutines.
	Workers int
	// MaxBlockBytes is the size ceiling used by the default rule set.
	MaxBlockBytes uint64
	// BanDuration is how long a peer relaying a malformed transaction is refused.
	BanDuration time.Duration
	// MaxDeferred bounds the deferred pool. Zero disables deferral.
	MaxDeferred int
}

func (c Config) validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	case c.MaxBlockBytes == 0:
		return fmt.Errorf("%w: max block bytes is zero", ErrInvalidConfig)
	case c.BanDuration <= 0:
		return fmt.Errorf("%w: ban duration %s", ErrInvalidConfig, c.BanDuration)
	case c.MaxDeferred < 0:
		return fmt.Errorf("%w: max deferred %d", ErrInvalidConfig, c.MaxDeferred)
	}
	return nil
}

// Option customizes a Processor.
type Option func(*Processor)

// WithRules replaces the default non-contextual rule set.
func WithRules(rules ...verification.Rule) Option {
	return func(p *Processor) { p.rules = rules }
}

// WithBanList sets where peer bans are kept. Defaults to an in-memory list.
func WithBanList(bans peers.BanList) Option {
	return func(p *Processor) { p.bans = bans }
}

// WithLogger sets the processor logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// WithRegisterer registers the processor metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Processor) { p.registerer = reg }
}

// WithClock overrides the time source used for bans.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}
