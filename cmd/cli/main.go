// Command fc is the terminal client for FastCite: upload PDFs and ask
// questions about them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/router"
	"github.com/and161185/fastcite/internal/service"
	"github.com/and161185/fastcite/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// command is one subcommand. path is the client route it renders; the
// route guard runs before the command does.
type command struct {
	path  func(args []string) string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

func fixed(p string) func([]string) string { return func([]string) string { return p } }

var commands = map[string]command{
	"version":        {fixed(""), "", cmdVersion},
	"signup":         {fixed(router.PathSignup), "[-name N -username U -email E -dob YYYY-MM-DD]", cmdSignup},
	"login":          {fixed(router.PathLogin), "[-u username] [-p password]", cmdLogin},
	"google-login":   {fixed(router.PathLogin), "[-open]", cmdGoogleLogin},
	"oauth-callback": {fixed(router.PathCallback), "<redirect url>", cmdOAuthCallback},
	"logout":         {fixed(router.PathLogin), "", cmdLogout},
	"dashboard":      {fixed(router.PathDash), "", cmdDashboard},
	"books":          {fixed(router.PathManage), "[-q text] [-status all|processing|complete] [-watch]", cmdBooks},
	"upload":         {fixed(router.PathUpload), "[-wait] <file.pdf>...", cmdUpload},
	"rm-book":        {fixed(router.PathManage), "-id <book id> [-y]", cmdRmBook},
	"chats":          {fixed(router.PathNewChat), "[-q text] [-watch]", cmdChats},
	"rm-chat":        {chatPath, "-id <chat id> [-y]", cmdRmChat},
	"chat":           {chatPath, "[-id chat id] [-book book id]", cmdChat},
	"ask":            {chatPath, "-book <book id> -q <question> [-chat chat id]", cmdAsk},
	"profile":        {fixed(router.PathSettings), "", cmdProfile},
	"profile-edit":   {fixed(router.PathSettings), "[-username U] [-name N] [-dob YYYY-MM-DD]", cmdProfileEdit},
	"passwd":         {fixed(router.PathSettings), "", cmdPasswd},
	"prefs":          {fixed(router.PathSettings), "[-theme dark|light] [-language code] [-toggle email|push|updates]", cmdPrefs},
}

// chatPath picks /chat/{id} when -id (or -chat for ask) is given, else
// /new-chat.
func chatPath(args []string) string {
	for i, a := range args {
		a = strings.TrimLeft(a, "-")
		for _, key := range []string{"id", "chat"} {
			if v, ok := strings.CutPrefix(a, key+"="); ok && v != "" {
				return router.ChatPath(v)
			}
			if a == key && i+1 < len(args) && args[i+1] != "" {
				return router.ChatPath(args[i+1])
			}
		}
	}
	return router.PathNewChat
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// exitError ends the process with code after the command already reported.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func usage(w io.Writer) {
	fmt.Fprintf(w, "fc %s\nUsage:\n  fc [-api URL] [-v] [-json] <cmd> [args]\n\nCommands:\n", version)
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-15s %s\n", n, commands[n].usage)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	fs := flag.NewFlagSet("fc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", "", "API base URL (overrides config)")
	verbose := fs.Bool("v", false, "debug logging")
	asJSON := fs.Bool("json", false, "JSON output")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := newApp(appOptions{
		apiURL:  *apiURL,
		verbose: *verbose,
		json:    *asJSON,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = a.log.Sync() }()
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("panic", zap.Any("reason", r), zap.ByteString("stack", debug.Stack()))
			fmt.Fprintln(stderr, "internal error")
			code = 1
		}
	}()

	name := fs.Arg(0)
	rest := []string{}
	if fs.NArg() > 1 {
		rest = fs.Args()[1:]
	}
	if name == "" {
		d, _ := router.Resolve(router.PathRoot, session.HasToken(a.store))
		if !d.Redirected() || d.Redirect != router.PathDash {
			usage(stderr)
			return 2
		}
		name = "dashboard"
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr)
		return 2
	}

	if p := cmd.path(rest); p != "" {
		d, err := router.Resolve(p, session.HasToken(a.store))
		if err != nil {
			return a.fail(err)
		}
		// protected views only ever redirect to the login page
		if d.Redirected() {
			return a.fail(errs.ErrNoSession)
		}
		a.route = d
		a.log.Debug("route", zap.String("cmd", name), zap.String("path", p), zap.Any("params", d.Params))
	}
	return a.fail(cmd.run(ctx, a, rest))
}

// fail reports err and maps it to an exit code. nil is success.
func (a *app) fail(err error) int {
	if err == nil {
		return 0
	}
	var ue usageError
	var ee exitError
	switch {
	case errors.As(err, &ee):
		return ee.code
	case errors.As(err, &ue):
		fmt.Fprintln(a.stderr, ue.msg)
		return 2
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(a.stderr, "interrupted")
		return 130
	}
	fmt.Fprintln(a.stderr, errorText(err))
	return 1
}

// errorText is the message shown for a failed command.
func errorText(err error) string {
	switch api.KindOf(err) {
	case api.KindUnauthorized:
		if errors.Is(err, errs.ErrNoSession) {
			return "not logged in: run `fc login` first"
		}
		return "session expired: run `fc login` to sign in again"
	case api.KindNetwork:
		return "cannot reach the FastCite server: " + err.Error()
	case api.KindOverloaded:
		return "the service is overloaded, try again in a moment"
	}
	switch {
	case errors.Is(err, errs.ErrNotDeletable):
		return "cannot delete: " + strings.TrimPrefix(err.Error(), errs.ErrNotDeletable.Error()+": ")
	case errors.Is(err, service.ErrNotPDF):
		return "please select a valid PDF file"
	case errors.Is(err, errs.ErrValidation):
		return "error: " + strings.Replace(err.Error(), errs.ErrValidation.Error()+": ", "", 1)
	}
	return "error: " + err.Error()
}

func newLogger(w io.Writer, level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core)
}
