package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/harrisonrobin/tracka/pkg/advisory"
	"github.com/harrisonrobin/tracka/pkg/auth"
	"github.com/harrisonrobin/tracka/pkg/config"
	"github.com/harrisonrobin/tracka/pkg/dateutil"
	"github.com/harrisonrobin/tracka/pkg/gcal"
	"github.com/harrisonrobin/tracka/pkg/logging"
	"github.com/harrisonrobin/tracka/pkg/model"
	"github.com/harrisonrobin/tracka/pkg/session"
	"github.com/harrisonrobin/tracka/pkg/store"
	"github.com/harrisonrobin/tracka/pkg/taxonomy"
	"github.com/harrisonrobin/tracka/pkg/view"
)

// app wires the session, store, bridge and derived view together and turns
// typed commands into calls on them. It holds only a transient selected-task
// id; task state itself always comes from the store snapshot.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	board  *advisory.Board
	sess   *session.Session

	mu     sync.Mutex
	st     store.Store
	bridge *gcal.Bridge
	tasks  []model.Task

	filter        string
	archiveFilter string
	selected      string
}

func main() {
	// 1. Parse flags
	backend := flag.String("backend", "", "task store backend: local or firestore (overrides config)")
	project := flag.String("project", "", "GCP project for the firestore backend (overrides config)")
	calendarID := flag.String("calendar", "", "target calendar id (overrides config)")
	setCalendar := flag.String("set-calendar", "", "set the default calendar id and exit")
	doAuth := flag.Bool("auth", false, "force a fresh Google sign-in at startup")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logger := logging.New(*verbose)

	// 2. Handle set-calendar
	if *setCalendar != "" {
		cfg, err := config.Load()
		if err != nil {
			logger.Error("could not load config", logging.Err(err))
			os.Exit(1)
		}
		cfg.Calendar = *setCalendar
		if err := config.Save(cfg); err != nil {
			logger.Error("could not save config", logging.Err(err))
			os.Exit(1)
		}
		fmt.Printf("Default calendar set to: %s\n", *setCalendar)
		return
	}

	// 3. Load config (priority: flag > config > default)
	cfg, err := config.Load()
	if err != nil {
		logger.Error("could not load config", logging.Err(err))
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *project != "" {
		cfg.FirestoreProject = *project
	}
	if *calendarID != "" {
		cfg.Calendar = *calendarID
	}

	ctx := context.Background()
	a := &app{
		cfg:           cfg,
		logger:        logger,
		board:         advisory.NewBoard(advisory.DefaultTTL),
		sess:          session.New(logger),
		filter:        taxonomy.FilterAll,
		archiveFilter: taxonomy.FilterAll,
	}
	a.sess.OnSignOut(a.onSignOut)

	// 4. Optional forced re-auth
	if *doAuth {
		if err := auth.RemoveToken(); err != nil {
			logger.Warn("could not remove cached token", logging.Err(err))
		}
		if err := a.signIn(ctx); err != nil {
			logger.Error("authentication failed", logging.Err(err))
			os.Exit(1)
		}
	}

	// 5. Open the store. The firestore backend needs a signed-in owner.
	if cfg.Backend == config.BackendFirestore && !a.sess.SignedIn() {
		if err := a.signIn(ctx); err != nil {
			logger.Error("the firestore backend requires sign-in", logging.Err(err))
			os.Exit(1)
		}
	}
	if err := a.openStore(ctx); err != nil {
		logger.Error("could not open task store", logging.Err(err), slog.String(logging.KeyBackend, cfg.Backend))
		os.Exit(1)
	}
	defer a.closeStore()

	// 6. Command loop
	fmt.Println("tracka — type 'help' for commands")
	a.render()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		a.dispatch(ctx, line)
		a.flushAdvisories()
	}
}

func (a *app) signIn(ctx context.Context) error {
	id, err := a.sess.SignIn(ctx)
	if err != nil {
		a.board.Warn("Ошибка авторизации")
		return err
	}
	a.board.Success(fmt.Sprintf("Привет, %s! 👋", id.Name))

	api, err := gcal.NewAPI(ctx, a.sess, a.cfg.Calendar)
	if err != nil {
		return err
	}
	a.mu.Lock()
	if a.st != nil {
		a.bridge = gcal.New(api, a.st, a.sess, a.board, a.logger)
	}
	a.mu.Unlock()
	return nil
}

// onSignOut cascades the signed-out transition: the calendar bridge is
// dropped and a remote store loses its subscription.
func (a *app) onSignOut() {
	a.mu.Lock()
	a.bridge = nil
	st := a.st
	remote := a.cfg.Backend == config.BackendFirestore
	if remote {
		a.st = nil
	}
	a.mu.Unlock()
	if remote && st != nil {
		st.Close()
		a.logger.Info("remote task subscription torn down; sign in to resume")
	}
}

func (a *app) openStore(ctx context.Context) error {
	var st store.Store
	var err error
	switch a.cfg.Backend {
	case config.BackendFirestore:
		id := a.sess.Current()
		if id == nil {
			return session.ErrSignedOut
		}
		st, err = store.OpenFirestore(ctx, a.cfg.FirestoreProject, id.Email, a.logger)
	default:
		dir, derr := auth.ConfigDir()
		if derr != nil {
			return derr
		}
		st, err = store.NewMemoryStore(filepath.Join(dir, "tasks.json"), a.logger)
	}
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.st = st
	a.tasks = st.Tasks()
	a.mu.Unlock()

	// Each delivery is the complete current list and replaces prior state.
	sub := st.Subscribe()
	go func() {
		for snap := range sub {
			a.mu.Lock()
			a.tasks = snap
			a.mu.Unlock()
		}
	}()

	if a.sess.SignedIn() {
		api, aerr := gcal.NewAPI(ctx, a.sess, a.cfg.Calendar)
		if aerr != nil {
			return aerr
		}
		a.mu.Lock()
		a.bridge = gcal.New(api, st, a.sess, a.board, a.logger)
		a.mu.Unlock()
	}
	return nil
}

func (a *app) closeStore() {
	a.mu.Lock()
	st := a.st
	a.st = nil
	a.mu.Unlock()
	if st != nil {
		st.Close()
	}
}

func (a *app) snapshot() []model.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.CloneTasks(a.tasks)
}

func (a *app) currentStore() store.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.st
}

func (a *app) currentBridge() *gcal.Bridge {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bridge
}

func (a *app) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		printHelp()
	case "login":
		if err := a.signIn(ctx); err != nil {
			a.logger.Error("sign-in failed", logging.Err(err))
			return
		}
		// Sign-in re-establishes the remote subscription for the new
		// identity if sign-out tore it down.
		if a.currentStore() == nil {
			if err := a.openStore(ctx); err != nil {
				a.logger.Error("could not reopen task store", logging.Err(err))
			}
		}
	case "logout":
		a.sess.SignOut()
		a.board.Success("Вышли из аккаунта")
	case "add":
		a.cmdAdd(ctx, args)
	case "list":
		if len(args) > 0 {
			a.filter = args[0]
		}
		a.render()
	case "archive":
		if len(args) > 0 {
			a.archiveFilter = args[0]
		}
		a.renderArchive()
	case "stats":
		a.renderStats()
	case "show":
		a.cmdShow(args)
	case "done":
		a.cmdDone(ctx, args)
	case "rm":
		a.cmdDelete(ctx, args)
	case "push":
		a.cmdPush(ctx, args)
	case "unpush":
		a.cmdUnpush(ctx, args)
	case "sweep":
		a.cmdSweep(ctx)
	default:
		fmt.Printf("unknown command %q, try 'help'\n", cmd)
	}
}

func (a *app) cmdAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	category := fs.String("c", "", "category id")
	priority := fs.String("p", "", "priority: low, medium or high")
	deadline := fs.String("d", "", "deadline date, YYYY-MM-DD")
	note := fs.String("n", "", "description")
	if err := fs.Parse(args); err != nil {
		return
	}

	draft := model.Draft{
		Text:        strings.Join(fs.Args(), " "),
		Description: *note,
		Category:    *category,
		Priority:    *priority,
	}
	if *deadline != "" {
		d, err := dateutil.Parse(*deadline)
		if err != nil {
			fmt.Println(err)
			return
		}
		draft.Deadline = &d
	}

	st := a.currentStore()
	if st == nil {
		a.board.Warn("Сначала войди в Google")
		return
	}
	task, err := st.Create(ctx, draft)
	if err != nil {
		a.board.Warn("Задача не добавлена: " + err.Error())
		return
	}
	fmt.Printf("added %s\n", shortID(task.ID))
}

func (a *app) cmdShow(args []string) {
	if len(args) > 0 {
		if t, ok := a.findTask(args[0]); ok {
			a.selected = t.ID
		} else {
			fmt.Println("no such task")
			return
		}
	}
	// Resolve the selection against the live snapshot, never a stale copy.
	t, ok := a.findTask(a.selected)
	if !ok {
		fmt.Println("nothing selected")
		return
	}
	today := dateutil.Today()
	c, _ := taxonomy.CategoryByID(t.Category)
	p, _ := taxonomy.PriorityByID(t.Priority)
	fmt.Printf("%s %s\n", c.Emoji, t.Text)
	if t.Description != "" {
		fmt.Printf("  %s\n", t.Description)
	}
	fmt.Printf("  Категория: %s  Приоритет: %s\n", c.Label, p.Label)
	if t.Deadline != nil {
		mark := ""
		if view.IsOverdue(t, today) {
			mark = "⚠ "
		}
		fmt.Printf("  Дедлайн: %s%s\n", mark, dateutil.Format(*t.Deadline))
	}
	if t.Done && t.CompletedAt != nil {
		fmt.Printf("  Выполнено: ✓ %s\n", dateutil.Format(*t.CompletedAt))
	}
	if t.Synced() {
		fmt.Println("  Google Calendar: ✓")
	}
}

func (a *app) cmdDone(ctx context.Context, args []string) {
	t, ok := a.requireTask(args)
	if !ok {
		return
	}
	st := a.currentStore()
	if st == nil {
		return
	}
	if err := st.ToggleDone(ctx, t.ID); err != nil {
		a.logger.Error("toggle failed", logging.TaskID(t.ID), logging.Err(err))
	}
}

func (a *app) cmdDelete(ctx context.Context, args []string) {
	t, ok := a.requireTask(args)
	if !ok {
		return
	}
	st := a.currentStore()
	if st == nil {
		return
	}
	if err := st.Delete(ctx, t.ID); err != nil {
		a.logger.Error("delete failed", logging.TaskID(t.ID), logging.Err(err))
		return
	}
	if a.selected == t.ID {
		a.selected = ""
	}
}

func (a *app) cmdPush(ctx context.Context, args []string) {
	t, ok := a.requireTask(args)
	if !ok {
		return
	}
	b := a.currentBridge()
	if b == nil {
		a.board.Warn("Сначала войди в Google")
		return
	}
	if err := b.Push(ctx, t); err != nil {
		a.logger.Debug("push failed", logging.TaskID(t.ID), logging.Err(err))
	}
}

func (a *app) cmdUnpush(ctx context.Context, args []string) {
	t, ok := a.requireTask(args)
	if !ok {
		return
	}
	b := a.currentBridge()
	if b == nil {
		return
	}
	if err := b.Remove(ctx, t); err != nil {
		a.logger.Debug("removal failed", logging.TaskID(t.ID), logging.Err(err))
	}
}

func (a *app) cmdSweep(ctx context.Context) {
	b := a.currentBridge()
	if b == nil {
		a.board.Warn("Сначала войди в Google")
		return
	}
	n := b.SweepOverdue(ctx, a.snapshot(), dateutil.Today())
	fmt.Printf("patched %d overdue event(s)\n", n)
}

func (a *app) requireTask(args []string) (model.Task, bool) {
	if len(args) == 0 {
		fmt.Println("task id required")
		return model.Task{}, false
	}
	t, ok := a.findTask(args[0])
	if !ok {
		fmt.Println("no such task")
	}
	return t, ok
}

// findTask resolves a full id or unique short prefix against the snapshot.
func (a *app) findTask(prefix string) (model.Task, bool) {
	if prefix == "" {
		return model.Task{}, false
	}
	var match model.Task
	found := 0
	for _, t := range a.snapshot() {
		if strings.HasPrefix(t.ID, prefix) {
			match = t
			found++
		}
	}
	if found != 1 {
		return model.Task{}, false
	}
	return match, true
}

func (a *app) derive() view.Model {
	return view.Derive(a.snapshot(), a.filter, a.archiveFilter, view.Metric(a.cfg.ArchiveMetric))
}

func (a *app) render() {
	m := a.derive()
	today := dateutil.Today()
	if len(m.Active) == 0 {
		fmt.Println("✅ Нет задач в этой категории")
		return
	}
	for _, t := range m.Active {
		c, _ := taxonomy.CategoryByID(t.Category)
		p, _ := taxonomy.PriorityByID(t.Priority)
		line := fmt.Sprintf("[%s] %s %s  (%s, %s)", shortID(t.ID), c.Emoji, t.Text, c.Label, p.Label)
		if t.Deadline != nil {
			if view.IsOverdue(t, today) {
				line += "  ⚠ " + dateutil.Format(*t.Deadline)
			} else {
				line += "  📅 " + dateutil.Format(*t.Deadline)
			}
		}
		if t.Synced() {
			line += "  ✓ Cal"
		}
		fmt.Println(line)
	}
}

func (a *app) renderArchive() {
	m := a.derive()
	today := dateutil.Today()
	if len(m.Archive) == 0 {
		fmt.Println("🗂 Архив пуст")
		return
	}
	for _, g := range m.Archive {
		header := "Без даты"
		if g.Date != nil {
			header = dateutil.FormatLong(*g.Date, today)
		}
		fmt.Printf("— %s —\n", header)
		for _, t := range g.Tasks {
			c, _ := taxonomy.CategoryByID(t.Category)
			fmt.Printf("[%s] ✓ %s %s\n", shortID(t.ID), c.Emoji, t.Text)
		}
	}
}

func (a *app) renderStats() {
	m := a.derive()
	label := "В Calendar"
	if view.Metric(a.cfg.ArchiveMetric) == view.MetricCompleted {
		label = "Выполнено"
	}
	fmt.Printf("Активных: %d  Срочных: %d  %s: %d\n", m.Stats.Active, m.Stats.Urgent, label, m.Stats.Tracked)
	if id := a.sess.Current(); id != nil {
		fmt.Printf("Вошли как %s (%s)\n", id.Name, id.Email)
	} else {
		fmt.Println("📅 Войди в Google, чтобы синхронизировать с Calendar")
	}
}

func (a *app) flushAdvisories() {
	for _, msg := range a.board.Active() {
		prefix := "✔"
		if msg.Kind == advisory.Error {
			prefix = "✖"
		}
		fmt.Printf("%s %s\n", prefix, msg.Text)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printHelp() {
	fmt.Print(`commands:
  add [-c category] [-p priority] [-d YYYY-MM-DD] [-n note] <text>
  list [category|all]      show active tasks
  archive [category|all]   show completed tasks grouped by date
  stats                    summary counters
  show <id>                select and show a task
  done <id>                toggle completion
  rm <id>                  delete a task
  push <id>                add the task to Google Calendar
  unpush <id>              remove the task from Google Calendar
  sweep                    flag overdue synced events in the calendar
  login / logout           manage the Google session
  quit
`)
}
