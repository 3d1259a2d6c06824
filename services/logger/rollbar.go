package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/user"
)

// RollbarLogger reports to Rollbar and writes the same entries to a local logrus sink.
type RollbarLogger struct {
	local *logrus.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(local *logrus.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{local: local}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

// entry turns args into logrus fields.
func (l RollbarLogger) entry(args []interface{}) *logrus.Entry {
	e := logrus.NewEntry(l.local)
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			e = e.WithError(v).WithField("trace", fmt.Sprintf("%+v", v))
		case map[string]interface{}:
			e = e.WithFields(v)
		case user.User:
			e = e.WithField("user", v.Username)
		default:
			e = e.WithField(fmt.Sprintf("arg%d", i), v)
		}
	}
	return e
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.entry(args).Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.entry(args).Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.entry(args).Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.entry(args).Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.entry(args).Fatal(msg)
}
