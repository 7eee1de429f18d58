package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
)

func TestWithAppReportsStopError(t *testing.T) {
	errCleanup := errors.New("cleanup failed")
	errRun := errors.New("run failed")

	newApp := func() *fx.App {
		return fx.New(
			fx.NopLogger,
			fx.Invoke(func(lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error { return errCleanup },
				})
			}),
		)
	}

	err := withApp(context.Background(), newApp(), func() error { return nil })
	assert.ErrorIs(t, err, errCleanup)

	err = withApp(context.Background(), newApp(), func() error { return errRun })
	assert.ErrorIs(t, err, errRun)
	assert.ErrorIs(t, err, errCleanup)
}

func TestWithAppSkipsBrokenApp(t *testing.T) {
	app := fx.New(fx.NopLogger, fx.Invoke(func(string) {}))

	called := false
	err := withApp(context.Background(), app, func() error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
