package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"adsconsole/internal/config"
	"adsconsole/internal/secret"
)

// initializeAppContext prepares application context before command execution
// but after command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := envFromContext(ctx)

	env.configFile = cmd.String("config")
	if env.cfg, err = config.LoadConfiguration(env.configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	// the console speaks MCP on stdout, keep logs off it
	stdoutFree := cmd.Args().First() != "console"
	if env.log, err = env.cfg.Logging.Prepare(stdoutFree); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.secrets = secret.Default(secretsDir(cmd.String("secrets")))

	env.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version()), zap.String("runtime", runtime.Version()))
	if len(env.configFile) == 0 {
		env.log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	if env.log == nil {
		return nil
	}
	env.log.Debug("Program ended", zap.Duration("elapsed", env.uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	// stderr sync fails with EINVAL on terminals, nothing to report
	_ = env.log.Sync()
	return nil
}

// Errors from subcommands are regular errors, cli.Exit is not used.
var errWasHandled bool

// exitErrHandler runs before the context is destroyed, so the error still
// reaches the log.
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := envFromContext(ctx)
	if env.log != nil {
		env.log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	if log := envFromContext(ctx).log; log != nil {
		log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

func version() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

func main() {

	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            config.AppName,
		Usage:           "edit and serve site ad placements",
		Version:         version() + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.StringFlag{Name: "secrets", DefaultText: "user config directory", Usage: "keep file based secrets under `DIR`"},
		},
		Commands: []*cli.Command{
			{
				Name:         "serve",
				Usage:        "Runs the ads persistence API over the configured database",
				OnUsageError: usageErrorHandler,
				Action:       runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "listen on `ADDRESS` instead of server.listen"},
				},
			},
			{
				Name:         "console",
				Usage:        "Runs the ad editor as an MCP server on stdin/stdout",
				OnUsageError: usageErrorHandler,
				Action:       runConsole,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "site", Aliases: []string{"s"}, Usage: "open `SITE` instead of the first configured one"},
					&cli.StringFlag{Name: "api", Usage: "talk to the ads API at `URL` instead of console.api_url"},
				},
			},
			{
				Name:  "token",
				Usage: "Manages the bearer token the console presents to the ads API",
				Commands: []*cli.Command{
					{
						Name:         "set",
						Usage:        "Stores the token, read from the argument or STDIN",
						ArgsUsage:    "[TOKEN]",
						OnUsageError: usageErrorHandler,
						Action:       secretSetter(func(cfg *config.Config) string { return cfg.Console.TokenKey }),
					},
					{
						Name:         "clear",
						Usage:        "Removes the stored token",
						OnUsageError: usageErrorHandler,
						Action:       secretClearer(func(cfg *config.Config) string { return cfg.Console.TokenKey }),
					},
				},
			},
			{
				Name:  "password",
				Usage: "Manages the database password used by serve",
				Commands: []*cli.Command{
					{
						Name:         "set",
						Usage:        "Stores the password, read from the argument or STDIN",
						ArgsUsage:    "[PASSWORD]",
						OnUsageError: usageErrorHandler,
						Action:       secretSetter(func(cfg *config.Config) string { return cfg.Server.PasswordKey }),
					},
					{
						Name:         "clear",
						Usage:        "Removes the stored password",
						OnUsageError: usageErrorHandler,
						Action:       secretClearer(func(cfg *config.Config) string { return cfg.Server.PasswordKey }),
					},
				},
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. Secrets are masked.
To see default configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// os.Exit is called at the end of main to set exit code, there must be no
	// other deferred functions after this one
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}
