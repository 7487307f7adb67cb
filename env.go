package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"adsconsole/internal/config"
	"adsconsole/internal/secret"
)

// env is the program state shared by all commands.
type env struct {
	cfg        *config.Config
	configFile string
	log        *zap.Logger
	secrets    secret.SecretStore
	start      time.Time
}

type envKey struct{}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &env{start: time.Now()})
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	return &env{start: time.Now()}
}

func (e *env) uptime() time.Duration { return time.Since(e.start) }

// secretsDir picks where file based secrets live when no keychain exists.
func secretsDir(flag string) string {
	if flag != "" {
		return flag
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, config.AppName)
	}
	return filepath.Join(os.TempDir(), config.AppName)
}
