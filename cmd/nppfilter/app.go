package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/multierr"
)

// withApp starts app, runs fn and stops app again. An error from stopping,
// such as a failed backend cleanup, is joined to the error from fn.
func withApp(ctx context.Context, app *fx.App, fn func() error) (err error) {
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, app.Stop(ctx)) }()

	return fn()
}
