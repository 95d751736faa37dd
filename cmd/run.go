package cmd

import (
	"fmt"
	"strings"

	"github.com/lambda-feedback/warden/app"
	"github.com/lambda-feedback/warden/config"
	"github.com/lambda-feedback/warden/util/conf"
	"github.com/lambda-feedback/warden/util/logging"
	"github.com/urfave/cli/v2"
)

var (
	runCmdDescription = `The run command spawns the given worker command and supervises
it until it exits or the host asks warden to shut down. The
worker runs in its own terminable group, so stopping it also
stops everything it spawned. Warden's exit code mirrors the
worker's.

The worker command and its arguments follow the flags:

    warden run --label db -- postgres -D /data
	`
	runCmd = &cli.Command{
		Name:        "run",
		Usage:       "Spawn and supervise a worker process.",
		Description: runCmdDescription,
		Action:      runAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "label",
				Usage:    "name of the supervised process, unique per host.",
				Aliases:  []string{"l"},
				Category: "worker",
				EnvVars:  []string{"WARDEN_WORKER_LABEL"},
			},
			&cli.StringFlag{
				Name:     "cwd",
				Usage:    "working directory for the worker process.",
				Category: "worker",
				EnvVars:  []string{"WARDEN_WORKER_CWD"},
			},
			&cli.StringSliceFlag{
				Name:     "env",
				Usage:    "extra KEY=VALUE environment entries for the worker.",
				Aliases:  []string{"e"},
				Category: "worker",
				EnvVars:  []string{"WARDEN_WORKER_ENV"},
			},
			&cli.BoolFlag{
				Name:     "background",
				Usage:    "hide the worker's window (Windows only).",
				Value:    true,
				Category: "worker",
				EnvVars:  []string{"WARDEN_WORKER_BACKGROUND"},
			},
			&cli.BoolFlag{
				Name:     "monitor-parent",
				Usage:    "stop the worker when warden's own supervisor disappears.",
				Value:    true,
				Category: "worker",
				EnvVars:  []string{"WARDEN_WORKER_MONITOR_PARENT"},
			},
			&cli.DurationFlag{
				Name:     "shutdown-timeout",
				Usage:    "how long to wait for a graceful exit before killing the group.",
				Aliases:  []string{"t"},
				Category: "worker",
				EnvVars:  []string{"WARDEN_WORKER_SHUTDOWN_TIMEOUT"},
			},
		},
	}
)

func init() {
	rootApp.Commands = append(rootApp.Commands, runCmd)
}

func runAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := conf.Parse[config.Config](conf.ParseOptions{
		Cli: ctx,
		CliMap: map[string]string{
			"label":            "worker.label",
			"cwd":              "worker.cwd",
			"background":       "worker.background",
			"monitor-parent":   "worker.monitor_parent",
			"shutdown-timeout": "worker.shutdown_timeout",
		},
		Defaults:  config.DefaultConfig,
		EnvPrefix: "WARDEN",
		FileName:  ctx.String("config"),
		Log:       log,
	})
	if err != nil {
		return err
	}

	// the worker command is positional, after the flags
	if ctx.Args().Present() {
		cfg.Worker.Path = ctx.Args().First()
		cfg.Worker.Args = ctx.Args().Tail()
	}

	if cfg.Worker.Path == "" {
		return fmt.Errorf("no worker command given")
	}

	if env := ctx.StringSlice("env"); len(env) > 0 {
		if cfg.Worker.Env == nil {
			cfg.Worker.Env = make(map[string]string, len(env))
		}
		for _, kv := range env {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid env entry %q, want KEY=VALUE", kv)
			}
			cfg.Worker.Env[key] = value
		}
	}

	ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

	shellApp, err := app.New(ctx)
	if err != nil {
		return err
	}

	return shellApp.Run(ctx.Context)
}
