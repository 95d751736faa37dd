// Package app wires config, logger and supervisor into a runnable
// fx application.
package app

import (
	"github.com/lambda-feedback/warden/config"
	"github.com/lambda-feedback/warden/internal/shell"
	"github.com/lambda-feedback/warden/util/conf"
	"github.com/lambda-feedback/warden/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(cfg),
		// provide worker config
		fx.Supply(cfg.Worker),
	)

	return shell.New(log, sharedModule, Module()), nil
}
