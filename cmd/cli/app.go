package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/config"
	"github.com/and161185/fastcite/internal/router"
	"github.com/and161185/fastcite/internal/service"
	"github.com/and161185/fastcite/internal/session"
	"github.com/and161185/fastcite/internal/ui"
)

type appOptions struct {
	apiURL  string
	verbose bool
	json    bool
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// app holds everything a command needs for one run.
type app struct {
	cfg     config.Config
	cfgPath string
	log     *zap.Logger
	store   session.Store
	client  *api.Client
	theme   ui.Theme
	out     *ui.Printer
	in      *prompter
	stdout  io.Writer
	stderr  io.Writer
	tty     bool
	// route is the resolved view of the running command
	route router.Decision

	auth    service.AuthService
	books   *service.BookServiceImpl
	uploads service.UploadService
	chats   service.ChatService
	sidebar service.SidebarService
	profile service.ProfileService
	dash    service.DashboardService
}

func newApp(o appOptions) (*app, error) {
	dir := config.Dir()
	path := config.Path(dir)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.apiURL != "" {
		cfg.APIURL = o.apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	log := newLogger(o.stderr, cfg.LogLevel)

	store := session.NewFileStore(dir)
	client := api.New(cfg.APIURL, store,
		api.WithTimeout(cfg.RequestTimeout.Duration),
		api.WithLogger(log),
		api.WithUnauthorizedHandler(func() { log.Info("session expired, token cleared") }),
	)

	th := ui.NewTheme(cfg.Preferences.Theme)
	a := &app{
		cfg:     cfg,
		cfgPath: path,
		log:     log,
		store:   store,
		client:  client,
		theme:   th,
		out:     ui.NewPrinter(o.stdout, th, o.json, !isTerminal(o.stdout)),
		in:      newPrompter(o.stdin, o.stderr),
		stdout:  o.stdout,
		stderr:  o.stderr,
		tty:     isTerminal(o.stdin) && isTerminal(o.stdout),

		auth:    service.NewAuthService(client, store, log),
		books:   service.NewBookService(client, log),
		uploads: service.NewUploadService(client, log),
		chats:   service.NewChatService(client, log),
		sidebar: service.NewSidebarService(client),
		profile: service.NewProfileService(client),
		dash:    service.NewDashboardService(client),
	}
	return a, nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// prompter reads answers from stdin and writes questions to stderr so
// stdout stays clean for -json.
type prompter struct {
	in   *bufio.Reader
	file *os.File
	out  io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.file = f
	}
	return p
}

// Line asks for one line of input.
func (p *prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label+": ")
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// next reads one line without a prompt; io.EOF ends the input.
func (p *prompter) next() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && (s == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// Secret asks for input without echo when stdin is a terminal.
func (p *prompter) Secret(label string) (string, error) {
	if p.file == nil {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label+": ")
	b, err := term.ReadPassword(int(p.file.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (p *prompter) Confirm(question string) (bool, error) {
	s, err := p.Line(question + " [y/N]")
	if err != nil {
		return false, err
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes", nil
}

// valueOr prompts for label when v is empty.
func (p *prompter) valueOr(v, label string, secret bool) (string, error) {
	if v != "" {
		return v, nil
	}
	if secret {
		return p.Secret(label)
	}
	return p.Line(label)
}
