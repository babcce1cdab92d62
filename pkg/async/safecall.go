package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeCall runs fn synchronously with a timeout and panic recovery. A
// panicking update handler must not take down the polling loop, and a
// handler stuck on an upstream call must not stall it forever.
func SafeCall(parentCtx context.Context, timeout time.Duration, taskName string, log *logrus.Logger, fn func(context.Context)) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"task":  taskName,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("recovered panic")
		}
	}()

	fn(ctx)
}

// SafeGo is SafeCall in a new goroutine, for fire-and-forget work.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, log *logrus.Logger, fn func(context.Context)) {
	go SafeCall(parentCtx, timeout, taskName, log, fn)
}
