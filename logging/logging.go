// Package logging configures the structured logger shared by the server,
// the session store and the command line tools.
//
// Records are written in logfmt to a single writer (stderr by default) so
// that stdout stays free for the MCP stdio transport and the console.
//
//	logging.Configure(os.Stderr, debug)
//	log := logging.New("api")
//	log.Info("session created", "id", id, "config", name)
package logging

import (
	"io"
	"os"

	"github.com/inconshreveable/log15/v3"
)

// Configure routes the root logger to w. Debug records are dropped unless debug is set.
func Configure(w io.Writer, debug bool) {
	if w == nil {
		w = os.Stderr
	}

	level := log15.LvlInfo
	if debug {
		level = log15.LvlDebug
	}

	log15.Root().SetHandler(log15.LvlFilterHandler(level, log15.StreamHandler(w, log15.LogfmtFormat())))
}

// Discard silences the root logger. Used by tests and by the interactive console.
func Discard() {
	log15.Root().SetHandler(log15.DiscardHandler())
}

// New returns a logger tagged with the given module name
func New(module string, ctx ...interface{}) log15.Logger {
	return log15.New(append([]interface{}{"module", module}, ctx...)...)
}
