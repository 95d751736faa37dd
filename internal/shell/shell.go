// Package shell runs an fx application until the host asks it to
// stop, translating the outcome into a process exit code.
package shell

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type Shell struct {
	log     *zap.Logger
	options []fx.Option
}

func New(log *zap.Logger, options ...fx.Option) *Shell {
	return &Shell{
		log:     log,
		options: options,
	}
}

// Run starts the fx app, waits for a shutdown signal (host-level or
// raised by the app via fx.Shutdowner) and stops the app. The
// returned error is always an ExitError carrying the exit code.
func (s *Shell) Run(ctx context.Context, options ...fx.Option) error {
	defer s.log.Sync()

	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fxApp := s.createFxApp(appCtx, options...)

	startCtx, cancelStart := context.WithTimeout(ctx, fxApp.StartTimeout())
	defer cancelStart()

	if err := fxApp.Start(startCtx); err != nil {
		return NewExitError(1)
	}

	// block until the host signals shutdown or the app raises it
	sig := <-fxApp.Wait()

	stopCtx, cancelStop := context.WithTimeout(ctx, fxApp.StopTimeout())
	defer cancelStop()

	if err := fxApp.Stop(stopCtx); err != nil {
		return NewExitError(1)
	}

	return NewExitError(sig.ExitCode)
}

func (s *Shell) createFxApp(ctx context.Context, options ...fx.Option) *fx.App {
	return fx.New(
		// inject global execution context
		fx.Supply(fx.Annotate(ctx, fx.As(new(context.Context)))),

		// inject the logger
		fx.Supply(s.log),

		// use the logger also for fx' logs
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: s.log.Named("fx")}
		}),

		fx.Options(s.options...),
		fx.Options(options...),
	)
}
