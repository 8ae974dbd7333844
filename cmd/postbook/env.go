package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/postbook"
)

type envKey struct{}

// localEnv keeps everything a command needs in a single place.
type localEnv struct {
	Cfg *postbook.Config
	Log *zap.Logger

	closeLog func() error
	start    time.Time
}

func envFromContext(ctx context.Context) *localEnv {
	if env, ok := ctx.Value(envKey{}).(*localEnv); ok {
		return env
	}
	panic("localEnv not found in context")
}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &localEnv{Log: zap.NewNop(), start: time.Now()})
}

func (e *localEnv) uptime() time.Duration {
	return time.Since(e.start)
}

// app creates a postbook App that has its store open.
func (e *localEnv) app() (*postbook.App, error) {
	a, err := postbook.New(e.Cfg, postbook.WithLogger(e.Log))
	if err != nil {
		return nil, err
	}
	if err := a.Open(); err != nil {
		return nil, err
	}
	return a, nil
}
