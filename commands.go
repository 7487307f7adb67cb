package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adsconsole/internal/api"
	"adsconsole/internal/app"
	"adsconsole/internal/config"
	"adsconsole/internal/dbclient"
	"adsconsole/internal/domain"
	mcpserver "adsconsole/internal/mcp"
	"adsconsole/internal/remote"
	"adsconsole/internal/secret"
	"adsconsole/internal/service"
	"adsconsole/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// ── serve ──────────────────────────────────────────────────

func runServe(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFromContext(ctx)
	cfg := env.cfg.Server

	password, err := readSecret(env, cfg.PasswordKey)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg.Storage.Conn(), password)
	if err != nil {
		return err
	}
	defer func() {
		if er := closeRepo(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close storage: %w", er))
		}
	}()

	listen := cfg.Listen
	if l := cmd.String("listen"); l != "" {
		listen = l
	}
	tokens := cfg.TokenRoles()
	if len(tokens) == 0 {
		env.log.Warn("No API tokens configured, every request will be rejected")
	}
	env.log.Info("Serving ads API", zap.String("listen", listen), zap.String("driver", cfg.Storage.Driver))
	return api.NewServer(repo, tokens, cfg.WriteRoles, env.log).Serve(ctx, listen)
}

// openRepository connects to the configured engine. The returned closer is
// always safe to call.
func openRepository(ctx context.Context, conn dbclient.Conn, password string) (domain.AdsRepository, func() error, error) {
	if conn.Driver == dbclient.DriverMongoDB {
		m, err := dbclient.ConnectMongo(ctx, conn, password)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to mongodb: %w", err)
		}
		closer := func() error {
			cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return m.Close(cctx)
		}
		store := storage.NewMongoAdStore(m)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("unable to prepare ads collection: %w", err), closer())
		}
		return store, closer, nil
	}
	db, err := storage.Open(ctx, conn, password)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open %s storage: %w", conn.Driver, err)
	}
	return storage.NewAdStore(db), db.Close, nil
}

// ── console ────────────────────────────────────────────────

func runConsole(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	cfg := env.cfg.Console

	token, err := readSecret(env, cfg.TokenKey)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("no API token stored under %q, use 'token set' or set %s", cfg.TokenKey, secret.EnvName(secret.EnvPrefix, cfg.TokenKey))
	}

	apiURL := cfg.APIURL
	if u := cmd.String("api"); u != "" {
		apiURL = u
	}
	client := remote.NewClient(apiURL,
		remote.WithTimeout(cfg.RequestTimeout),
		remote.WithToken(func() string { return token }),
	)

	notifier := mcpserver.NewNotifier(env.log)
	console := app.New(app.Deps{
		Repo:    client,
		Emitter: notifier,
		Gate:    service.AuthGate{AllowedRoles: cfg.AllowedRoles},
		Sites:   siteOptions(env.cfg),
		Refresh: cfg.Refresh,
		Logger:  env.log,
	})

	principal := domain.Principal{Authenticated: true, Role: cfg.Role}
	if err := console.Open(ctx, principal, domain.Site(cmd.String("site"))); err != nil {
		// an unreachable API still leaves an open console, reload retries
		if domain.KindOf(err) != domain.KindTransport {
			return err
		}
		env.log.Warn("Initial load failed", zap.Error(err))
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		console.Close(cctx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	srvCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	srv := mcpserver.New(srvCtx, mcpserver.Deps{Console: console, Notifier: notifier, Logger: env.log})
	g.Go(func() error {
		// stdin closing ends the session
		defer cancel()
		if err := srv.Serve(srvCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if env.configFile != "" {
		g.Go(func() error {
			return config.Watch(srvCtx, env.configFile, env.log, func(c *config.Config) {
				console.SetSites(siteOptions(c))
			})
		})
	}
	return g.Wait()
}

func siteOptions(cfg *config.Config) []app.SiteOption {
	out := make([]app.SiteOption, 0, len(cfg.Console.Sites))
	for _, s := range cfg.Console.Sites {
		out = append(out, app.SiteOption{Label: s.Label, Value: domain.Site(s.Value)})
	}
	return out
}

// ── secrets ────────────────────────────────────────────────

func readSecret(env *env, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	v, err := env.secrets.Get(key)
	if err != nil {
		return "", fmt.Errorf("unable to read secret %q: %w", key, err)
	}
	return string(v), nil
}

func secretSetter(keyOf func(*config.Config) string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		env := envFromContext(ctx)
		key := keyOf(env.cfg)
		if key == "" {
			return fmt.Errorf("no secret key configured")
		}
		value := cmd.Args().First()
		if value == "" {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("unable to read secret from STDIN: %w", err)
			}
			value = strings.TrimSpace(line)
		}
		if value == "" {
			return fmt.Errorf("empty secret for %q", key)
		}
		if err := env.secrets.Set(key, []byte(value)); err != nil {
			return fmt.Errorf("unable to store secret %q: %w", key, err)
		}
		env.log.Info("Secret stored", zap.String("key", key))
		return nil
	}
}

func secretClearer(keyOf func(*config.Config) string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		env := envFromContext(ctx)
		key := keyOf(env.cfg)
		if key == "" {
			return fmt.Errorf("no secret key configured")
		}
		if err := env.secrets.Delete(key); err != nil {
			return fmt.Errorf("unable to remove secret %q: %w", key, err)
		}
		env.log.Info("Secret removed", zap.String("key", key))
		return nil
	}
}

// ── dumpconfig ─────────────────────────────────────────────

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := envFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.log.Info("Outputting configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
