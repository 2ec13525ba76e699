package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/config"
	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/filter"
	"github.com/and161185/fastcite/internal/model"
	"github.com/and161185/fastcite/internal/poller"
	"github.com/and161185/fastcite/internal/service"
	"github.com/and161185/fastcite/internal/ui"
)

func newFlags(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parse reports flag errors itself, so only the exit code is left.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return exitError{code: 2}
	}
	return nil
}

func cmdVersion(_ context.Context, a *app, _ []string) error {
	if a.out.JSON {
		return a.out.PrintJSON(map[string]string{"version": version, "build_date": buildDate})
	}
	fmt.Fprintf(a.stdout, "fc %s (%s)\n", version, buildDate)
	return nil
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "signup")
	name := fs.String("name", "", "full name")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email")
	dob := fs.String("dob", "", "date of birth YYYY-MM-DD (optional)")
	if err := parse(fs, args); err != nil {
		return err
	}
	var err error
	if *name, err = a.in.valueOr(*name, "Name", false); err != nil {
		return err
	}
	if *username, err = a.in.valueOr(*username, "Username", false); err != nil {
		return err
	}
	if *email, err = a.in.valueOr(*email, "Email", false); err != nil {
		return err
	}
	pass, err := a.in.Secret("Password")
	if err != nil {
		return err
	}
	req := api.SignupRequest{Name: *name, Username: *username, Email: *email, Password: pass}
	if *dob != "" {
		req.DOB = dob
	}
	if err := a.auth.Signup(ctx, req); err != nil {
		return err
	}
	a.out.Success("Account created. Log in with `fc login`.")
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "login")
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	var err error
	if *user, err = a.in.valueOr(*user, "Username", false); err != nil {
		return err
	}
	if *pass, err = a.in.valueOr(*pass, "Password", true); err != nil {
		return err
	}
	if err := a.auth.Login(ctx, *user, *pass); err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			// a rejected login is not an expired session
			return fmt.Errorf("login failed: %s", err.Error())
		}
		return err
	}
	a.out.Success("Logged in as " + *user)
	return nil
}

func cmdGoogleLogin(_ context.Context, a *app, args []string) error {
	fs := newFlags(a, "google-login")
	open := fs.Bool("open", false, "open the page in a browser")
	if err := parse(fs, args); err != nil {
		return err
	}
	u := a.auth.GoogleLoginURL()
	if a.out.JSON {
		return a.out.PrintJSON(map[string]string{"url": u})
	}
	fmt.Fprintln(a.stdout, u)
	fmt.Fprintln(a.stderr, "After signing in, pass the final redirect URL to `fc oauth-callback <url>`.")
	if *open {
		if err := ui.OpenURL(u); err != nil {
			a.log.Warn("open browser", zap.Error(err))
		}
	}
	return nil
}

func cmdOAuthCallback(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usageError{"usage: fc oauth-callback <redirect url>"}
	}
	if err := a.auth.CompleteOAuth(args[0]); err != nil {
		return err
	}
	a.out.Success("Logged in with Google")
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	if err := a.auth.Logout(); err != nil {
		return err
	}
	a.out.Success("Logged out")
	return nil
}

func cmdDashboard(ctx context.Context, a *app, _ []string) error {
	d, err := a.dash.Load(ctx)
	if err != nil {
		return err
	}
	return a.out.Dashboard(d)
}

func cmdBooks(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "books")
	q := fs.String("q", "", "filter by title or author")
	status := fs.String("status", filter.StatusAll, "all, processing or complete")
	watch := fs.Bool("watch", false, "read filter queries from stdin, one per line")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !filter.ValidStatus(*status) {
		return usageError{fmt.Sprintf("unknown status %q (all, processing, complete)", *status)}
	}
	books, err := a.books.List(ctx)
	if err != nil {
		return err
	}
	if !*watch {
		return a.out.Books(filter.Books(books, *q, *status))
	}

	render := func(query string) error {
		a.out.Println(fmt.Sprintf("Filter: %q (status %s)", query, *status))
		return a.out.Books(filter.Books(books, query, *status))
	}
	// ":status <s>" switches the status tab and applies at once
	setStatus := func(line, query string) (bool, error) {
		v, ok := strings.CutPrefix(strings.TrimSpace(line), statusCommand)
		if !ok {
			return false, nil
		}
		v = strings.TrimSpace(v)
		if !filter.ValidStatus(v) {
			fmt.Fprintf(a.stderr, "unknown status %q (all, processing, complete)\n", v)
			return true, nil
		}
		*status = v
		return true, render(query)
	}
	return watchQueries(ctx, a, *q, setStatus, render)
}

type uploadResult struct {
	Tasks []model.UploadTask `json:"tasks"`
	Books []model.Book       `json:"books,omitempty"`
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "upload")
	wait := fs.Bool("wait", false, "poll until processing finishes")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError{"usage: fc upload [-wait] <file.pdf>..."}
	}

	seen := map[string]model.TaskStatus{}
	report := func(tasks []model.UploadTask) {
		for _, t := range tasks {
			if seen[t.TaskID] == t.Status {
				continue
			}
			seen[t.TaskID] = t.Status
			line := fmt.Sprintf("%s: %s", t.Filename, t.Status)
			if t.Note != "" {
				line += " (" + t.Note + ")"
			}
			a.out.Println(line)
		}
	}
	// a finished task changes the library, so the list is refetched
	var refreshed []model.Book
	refresh := func(t model.UploadTask) {
		books, err := a.books.List(ctx)
		if err != nil {
			a.log.Warn("refresh books", zap.String("task", t.TaskID), zap.Error(err))
			return
		}
		refreshed = books
	}
	p := poller.New(a.client, poller.Options{
		Interval:     a.cfg.PollInterval.Duration,
		MaxInterval:  a.cfg.PollMaxInterval.Duration,
		MaxAttempts:  a.cfg.PollMaxAttempts,
		StopWhenIdle: true,
		OnSuccess:    refresh,
		OnChange:     report,
		Logger:       a.log,
	})

	for _, path := range fs.Args() {
		task, err := a.uploads.Upload(ctx, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		p.Track(task)
	}
	if !*wait {
		if a.out.JSON {
			return a.out.PrintJSON(p.Snapshot())
		}
		a.out.Println("Processing in the background; check with `fc books`.")
		return nil
	}
	if err := p.Run(ctx); err != nil {
		return err
	}

	tasks := p.Snapshot()
	if a.out.JSON {
		if err := a.out.PrintJSON(uploadResult{Tasks: tasks, Books: refreshed}); err != nil {
			return err
		}
	} else if refreshed != nil {
		if err := a.out.Books(refreshed); err != nil {
			return err
		}
	}
	failed := 0
	for _, t := range tasks {
		if t.Status == model.TaskFailure {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(tasks))
	}
	a.out.Success("All uploads processed.")
	return nil
}

func cmdRmBook(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "rm-book")
	id := fs.String("id", "", "book id")
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return usageError{"usage: fc rm-book -id <book id> [-y]"}
	}
	books, err := a.books.List(ctx)
	if err != nil {
		return err
	}
	book, ok := findBook(books, *id)
	if !ok {
		return fmt.Errorf("book %s: %w", *id, errs.ErrNotFound)
	}
	if !book.Deletable() {
		return fmt.Errorf("%w: %q is still processing", errs.ErrNotDeletable, book.Title)
	}
	if !*yes {
		ok, err := a.in.Confirm(fmt.Sprintf("Delete %q? This cannot be undone.", book.Title))
		if err != nil {
			return err
		}
		if !ok {
			a.out.Println("Cancelled.")
			return nil
		}
	}
	if err := a.books.Delete(ctx, book); err != nil {
		return err
	}
	a.out.Success(fmt.Sprintf("Deleted %q", book.Title))
	return nil
}

func findBook(books []model.Book, id string) (model.Book, bool) {
	for _, b := range books {
		if b.ID == id {
			return b, true
		}
	}
	return model.Book{}, false
}

func cmdChats(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "chats")
	q := fs.String("q", "", "filter by title")
	watch := fs.Bool("watch", false, "read filter queries from stdin, one per line")
	if err := parse(fs, args); err != nil {
		return err
	}
	chats, err := a.sidebar.Chats(ctx)
	if err != nil {
		return err
	}
	if !*watch {
		return a.out.Chats(filter.Chats(chats, *q))
	}
	return watchQueries(ctx, a, *q, nil, func(query string) error {
		a.out.Println(fmt.Sprintf("Filter: %q", query))
		return a.out.Chats(filter.Chats(chats, query))
	})
}

func cmdRmChat(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "rm-chat")
	id := fs.String("id", "", "chat id")
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return usageError{"usage: fc rm-chat -id <chat id> [-y]"}
	}
	if !*yes {
		ok, err := a.in.Confirm("Delete chat " + *id + "?")
		if err != nil {
			return err
		}
		if !ok {
			a.out.Println("Cancelled.")
			return nil
		}
	}
	if _, err := a.sidebar.Delete(ctx, *id, ""); err != nil {
		return err
	}
	a.out.Success("Deleted chat " + *id)
	return nil
}

func cmdChat(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "chat")
	fs.String("id", "", "continue a stored chat")
	bookID := fs.String("book", "", "preselect a book")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !a.tty {
		return usageError{"chat needs a terminal; use `fc ask` for one-shot questions"}
	}
	// -id already resolved the view to /chat/{id}; /new-chat has no params
	conv := &service.Conversation{}
	if id := a.route.Params["id"]; id != "" {
		var err error
		if conv, err = a.chats.Load(ctx, id); err != nil {
			return err
		}
	}
	m := ui.NewChatModel(ctx, conv, ui.ChatOptions{
		Chat:     a.chats,
		Books:    a.books,
		Sidebar:  a.sidebar,
		Theme:    a.theme,
		Typing:   a.cfg.TypingSpeed.Duration,
		Debounce: a.cfg.Debounce.Duration,
		BookID:   *bookID,
	})
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	fm, ok := final.(ui.ChatModel)
	if !ok {
		return nil
	}
	if fm.Expired() {
		return errs.ErrUnauthorized
	}
	if sid := fm.Conversation().SessionID; sid != "" {
		fmt.Fprintf(a.stderr, "chat saved: fc chat -id %s\n", sid)
	}
	return nil
}

func cmdAsk(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "ask")
	bookID := fs.String("book", "", "book id")
	q := fs.String("q", "", "question")
	id := fs.String("chat", "", "continue a stored chat")
	if err := parse(fs, args); err != nil {
		return err
	}
	question := strings.TrimSpace(*q)
	if question == "" && fs.NArg() > 0 {
		question = strings.Join(fs.Args(), " ")
	}
	if *bookID == "" || question == "" {
		return usageError{"usage: fc ask -book <book id> -q <question> [-chat chat id]"}
	}

	books, err := a.books.List(ctx)
	if err != nil {
		return err
	}
	book, ok := findBook(books, *bookID)
	if !ok {
		return fmt.Errorf("book %s: %w", *bookID, errs.ErrNotFound)
	}
	if book.Status != model.BookComplete {
		return fmt.Errorf("%w: %q is still processing", errs.ErrValidation, book.Title)
	}

	conv := &service.Conversation{}
	if *id != "" {
		if conv, err = a.chats.Load(ctx, *id); err != nil {
			return err
		}
	}
	conv.Book = &book

	msg, err := a.chats.Send(ctx, conv, question)
	if err != nil {
		return err
	}
	if err := a.out.Answer(conv.SessionID, msg); err != nil {
		return err
	}
	if msg.IsError {
		return exitError{code: 1}
	}
	return nil
}

func cmdProfile(ctx context.Context, a *app, _ []string) error {
	p, err := a.profile.Get(ctx)
	if err != nil {
		return err
	}
	return a.out.Profile(p)
}

func cmdProfileEdit(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "profile-edit")
	username := fs.String("username", "", "new username")
	name := fs.String("name", "", "new full name")
	dob := fs.String("dob", "", "new date of birth YYYY-MM-DD")
	if err := parse(fs, args); err != nil {
		return err
	}
	var edit service.ProfileEdit
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			edit.Username = username
		case "name":
			edit.Name = name
		case "dob":
			edit.DOB = dob
		}
	})

	cur, err := a.profile.Get(ctx)
	if err != nil {
		return err
	}
	p, changed, err := a.profile.Update(ctx, cur, edit)
	if err != nil {
		return err
	}
	if !changed {
		a.out.Println("Nothing to update.")
		return nil
	}
	if a.out.JSON {
		return a.out.Profile(p)
	}
	a.out.Success("Profile updated")
	return a.out.Profile(p)
}

func cmdPasswd(ctx context.Context, a *app, _ []string) error {
	old, err := a.in.Secret("Current password")
	if err != nil {
		return err
	}
	nw, err := a.in.Secret("New password")
	if err != nil {
		return err
	}
	confirm, err := a.in.Secret("Confirm new password")
	if err != nil {
		return err
	}
	if err := a.profile.ChangePassword(ctx, old, nw, confirm); err != nil {
		return err
	}
	a.out.Success("Password changed")
	return nil
}

func cmdPrefs(_ context.Context, a *app, args []string) error {
	fs := newFlags(a, "prefs")
	theme := fs.String("theme", "", "dark or light")
	lang := fs.String("language", "", "one of "+strings.Join(config.Languages, ", "))
	toggle := fs.String("toggle", "", "flip a notification: email, push or updates")
	if err := parse(fs, args); err != nil {
		return err
	}
	prefs := a.cfg.Preferences
	dirty := false
	if *theme != "" {
		if err := prefs.SetTheme(*theme); err != nil {
			return usageError{err.Error()}
		}
		dirty = true
	}
	if *lang != "" {
		if err := prefs.SetLanguage(*lang); err != nil {
			return usageError{err.Error()}
		}
		dirty = true
	}
	if *toggle != "" {
		if _, err := prefs.ToggleNotification(*toggle); err != nil {
			return usageError{err.Error()}
		}
		dirty = true
	}
	if dirty {
		a.cfg.Preferences = prefs
		// -api, -v and env overrides stay out of the file
		stored, err := config.LoadFile(a.cfgPath)
		if err != nil {
			return err
		}
		stored.Preferences = prefs
		if err := config.Save(a.cfgPath, stored); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		a.log.Debug("preferences saved", zap.String("path", a.cfgPath))
	}
	return a.out.Preferences(prefs)
}
