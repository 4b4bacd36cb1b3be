package logsvc

import (
	"fmt"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/importer"
	"github.com/trezcool/simcatalog/core/user"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetCustom(map[string]interface{}{"app": conf.AppName})
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry is a log call shaped for rollbar: the message, its errors, then one extras map.
type entry struct {
	args   []interface{}
	person *user.User
}

// newEntry sorts the args of a log call:
//   - error: reported as is (the first one carries the stack trace)
//   - user.User: the requester, reported as the rollbar person; its role goes to the extras
//   - importer.CommitFailure / []importer.RowError: summarized under "import" in the extras
//   - map[string]interface{}: merged into the extras
//   - anything else: added to the extras under its position
func newEntry(msg string, args []interface{}) entry {
	e := entry{args: []interface{}{msg}}
	extras := make(map[string]interface{})
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			e.args = append(e.args, v)
		case user.User:
			if e.person == nil && v.ID != "" { // only report one requester
				usr := v
				e.person = &usr
				extras["requester_role"] = string(v.Role)
			}
		case importer.CommitFailure:
			extras["import"] = importExtras(v.File, v.Rows, v.Errors)
		case []importer.RowError:
			extras["import"] = importExtras("", 0, v)
		case map[string]interface{}:
			for k, val := range v {
				extras[k] = val
			}
		default:
			extras[fmt.Sprintf("arg%d", i)] = v
		}
	}
	if len(extras) > 0 {
		e.args = append(e.args, extras)
	}
	return e
}

func importExtras(file string, rows int, errs []importer.RowError) map[string]interface{} {
	m := map[string]interface{}{"errors": len(errs)}
	if file != "" {
		m["file"] = file
	}
	if rows > 0 {
		m["rows"] = rows
	}
	if len(errs) > 0 {
		first := errs[0]
		m["first_error"] = fmt.Sprintf("linha %d: %s", first.Row, first.Message)
	}
	return m
}

func (l RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) {
	e := newEntry(msg, args)
	if e.person != nil {
		rollbar.SetPerson(e.person.ID, e.person.Name, e.person.Email)
	} else {
		rollbar.ClearPerson()
	}
	send(e.args...)
	l.print(msg, args)
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			l.std.Printf("requester: %s <%s> (%s)\n", v.Name, v.Email, v.Role)
		case importer.CommitFailure:
			l.std.Printf("import %q (%d rows): %+v\n", v.File, v.Rows, v.Errors)
		default:
			l.std.Printf("%+v\n", arg)
		}
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.Debug, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.Info, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.Warning, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.Error, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	l.std.Fatal(msg)
}
