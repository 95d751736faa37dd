package app

import (
	"context"
	"fmt"
	"os"

	"github.com/lambda-feedback/warden/config"
	"github.com/lambda-feedback/warden/supervisor"
	"github.com/lambda-feedback/warden/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the supervisor and runs it for the lifetime of the
// fx app. Host-level signals are handled by fx and arrive as the app
// shutdown, which stops the supervisor via its OnStop hook; the
// supervisor itself never installs process-wide hooks.
func Module() fx.Option {
	return fx.Module(
		"supervise",
		logging.DecorateLogger("warden"),
		fx.Provide(newSupervisorConfig),
		fx.Provide(newSupervisor),
		fx.Invoke(runSupervisor),
	)
}

func newSupervisorConfig(cfg config.WorkerConfig) supervisor.Config {
	return supervisor.Config{
		Label:           cfg.Label,
		Path:            cfg.Path,
		Args:            cfg.Args,
		Cwd:             cfg.Cwd,
		Env:             cfg.Env,
		Background:      cfg.Background,
		MonitorParent:   cfg.MonitorParent,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

func newSupervisor(cfg supervisor.Config, log *zap.Logger) (*supervisor.Supervisor, error) {
	return supervisor.New(cfg, log)
}

func runSupervisor(
	lc fx.Lifecycle,
	sup *supervisor.Supervisor,
	shutdowner fx.Shutdowner,
	log *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// mirror the worker's streams and log its transitions
			sup.Subscribe(supervisor.ObserverFuncs{
				OnOutput: func(e supervisor.OutputEvent) {
					fmt.Fprintln(os.Stdout, e.Data)
				},
				OnError: func(e supervisor.ErrorEvent) {
					fmt.Fprintln(os.Stderr, e.Data)
				},
				OnState: func(e supervisor.StateEvent) {
					log.Info("worker state changed",
						zap.Stringer("previous", e.Previous),
						zap.Stringer("current", e.Current),
					)
				},
			})

			if err := sup.Start(ctx); err != nil {
				return err
			}

			// mirror the worker's exit code once it is gone
			go func() {
				<-sup.Done()

				code := 0
				if status, ok := sup.ExitStatus(); ok {
					if status.Code != nil {
						code = int(*status.Code)
					} else if status.Signal != nil {
						code = 128 + int(*status.Signal)
					}
				}

				shutdowner.Shutdown(fx.ExitCode(code))
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := sup.Stop(ctx); err != nil {
				log.Error("stopping worker failed", zap.Error(err))
			}

			return sup.Dispose(ctx)
		},
	})
}
