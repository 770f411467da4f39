// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/invoicely/internal/activity"
	"github.com/jeranaias/invoicely/internal/api"
	"github.com/jeranaias/invoicely/internal/config"
	"github.com/jeranaias/invoicely/internal/credentials"
	"github.com/jeranaias/invoicely/internal/logger"
	"github.com/jeranaias/invoicely/internal/server"
	"github.com/jeranaias/invoicely/internal/session"
	"github.com/jeranaias/invoicely/internal/signin"
	"github.com/jeranaias/invoicely/internal/telemetry"
	"github.com/jeranaias/invoicely/internal/ui/status"
	"github.com/jeranaias/invoicely/internal/ui/styles"
)

// ErrNotSignedIn is returned by keep when no session cookie is stored.
var ErrNotSignedIn = errors.New("no stored session; run 'invoicely login' first")

// shutdownTimeout bounds the telemetry flush on exit.
const shutdownTimeout = 5 * time.Second

// HandleKeep runs the session keeper until the session ends or the process
// is interrupted.
func HandleKeep(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.NoBrowser {
		cfg.UI.OpenBrowser = false
	}
	if args.Listen != "" {
		cfg.Server.Enabled = true
		cfg.Server.Listen = args.Listen
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	panel := !args.Headless && interactive()
	log, closeLog, err := setupLogger(cfg, args, panel)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	k := &keeper{cfg: cfg, log: log}
	defer k.close()

	if panel {
		if err := k.start(ctx, status.ProgramNavigator{Program: &k.sender}); err != nil {
			return err
		}
		return k.runPanel(ctx)
	}

	if err := k.start(ctx, signin.WriterNavigator{W: stdout}); err != nil {
		return err
	}
	return k.runHeadless(ctx, os.Stdin)
}

// programSender forwards messages to the panel once it is running.
type programSender struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *programSender) set(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

// Send implements status.Sender. Messages sent while no program runs are
// dropped.
func (s *programSender) Send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// keeper owns everything one keep run wires together.
type keeper struct {
	cfg *config.Config
	log logger.Logger

	providers  *telemetry.Providers
	history    *telemetry.History
	store      *credentials.Store
	client     *api.Client
	bus        *activity.Bus
	redirector *signin.Redirector
	sched      *session.Scheduler
	watcher    *credentials.Watcher
	bridge     *server.Server
	sender     programSender
}

// start wires the collaborators and starts the scheduler. announce is told
// about expiry before the browser is opened.
func (k *keeper) start(ctx context.Context, announce signin.Navigator) error {
	k.startTelemetry(ctx)

	store, err := openStore(k.cfg)
	if err != nil {
		return err
	}
	k.store = store

	client, err := newClient(k.cfg, store, k.log)
	if err != nil {
		return err
	}
	if !client.HasCredentials() {
		return ErrNotSignedIn
	}
	k.client = client

	navs := []signin.Navigator{announce}
	if k.cfg.UI.OpenBrowser {
		navs = append(navs, signin.BrowserNavigator{})
	}
	k.redirector = signin.NewRedirector(client.SignInURL, store, signin.All(navs...), k.log)
	k.bus = activity.NewBus()

	sched, err := session.Init(k.cfg.SessionSettings(), session.Deps{
		Refresher:      client,
		Expiry:         k.redirector,
		Source:         k.bus,
		Logger:         k.log,
		RefreshTimeout: k.cfg.RefreshTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to start session keeper: %w", err)
	}
	k.sched = sched

	if k.cfg.Server.Enabled {
		if err := k.startBridge(); err != nil {
			return fmt.Errorf("failed to start activity bridge on %s: %w", k.cfg.Server.Listen, err)
		}
	}
	if k.cfg.Credentials.Watch {
		k.startWatcher(ctx)
	}
	return nil
}

func (k *keeper) startTelemetry(ctx context.Context) {
	if dir, err := historyDir(); err == nil {
		if h, err := telemetry.NewHistory(dir); err == nil {
			h.OnError(func(err error) {
				k.log.Warn("failed to save session history", logger.Err(err))
			})
			k.history = h
			telemetry.SetSink(h)
		} else {
			k.log.Warn("session history disabled", logger.Err(err))
		}
	}

	if !k.cfg.Telemetry.Enabled {
		return
	}
	p, err := telemetry.Setup(ctx, telemetry.ProviderConfig{
		ServiceName:    "invoicely",
		ServiceVersion: Version,
		Endpoint:       k.cfg.Telemetry.Endpoint,
		ExportInterval: k.cfg.TelemetryExportInterval(),
	})
	if err != nil {
		k.log.Warn("telemetry export disabled", logger.Err(err))
		return
	}
	k.providers = p
}

func (k *keeper) startBridge() error {
	b := server.New(server.Config{
		Addr:          k.cfg.Server.Listen,
		Token:         k.cfg.Server.Token,
		AllowedOrigin: k.cfg.BridgeOrigin(),
		RateLimit:     k.cfg.Server.RateLimit,
		RateBurst:     k.cfg.Server.RateBurst,
		Version:       Version,
	}, k.bus, k.sched, k.log.With(logger.String("component", "bridge")))
	if err := b.Start(); err != nil {
		return err
	}
	k.bridge = b
	return nil
}

func (k *keeper) startWatcher(ctx context.Context) {
	w, err := credentials.NewWatcher(k.store.Path(), credentials.DefaultDebounce, k.onCredentialsChanged, k.log)
	if err != nil {
		k.log.Warn("credentials watcher disabled", logger.Err(err))
		return
	}
	if err := w.Watch(ctx); err != nil {
		k.log.Warn("credentials watcher disabled", logger.Err(err))
		_ = w.Close()
		return
	}
	k.watcher = w
}

func (k *keeper) onCredentialsChanged() {
	var sched sessionResetter
	if s := session.Current(); s != nil {
		sched = s
	}
	reloadCredentials(k.store, k.client, sched, k.log)
}

type credentialReloader interface {
	ReloadIfChanged() ([]*http.Cookie, bool, error)
}

type cookieSetter interface {
	SetCookies(cookies []*http.Cookie)
}

type sessionResetter interface {
	ResetSession()
}

// reloadCredentials picks up a sign-in made by another process. A fresh
// credential restarts the session clock. It reports whether anything changed.
func reloadCredentials(store credentialReloader, client cookieSetter, sched sessionResetter, log logger.Logger) bool {
	cookies, changed, err := store.ReloadIfChanged()
	if err != nil {
		log.Warn("failed to reload credentials", logger.Err(err))
		return false
	}
	if !changed || len(cookies) == 0 {
		return false
	}
	client.SetCookies(cookies)
	if sched != nil {
		sched.ResetSession()
	}
	log.Info("credentials changed on disk; session clock reset")
	return true
}

// runPanel shows the status panel until the user quits or the session ends.
func (k *keeper) runPanel(ctx context.Context) error {
	model := status.New(styles.NewTheme(), k.bus, k.sched, k.sched.Config()).
		WithRefreshRate(k.cfg.UIRefreshRate())

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	k.sender.set(p)
	final, err := p.Run()
	k.sender.set(nil)

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("panel failed: %w", err)
	}
	if m, ok := final.(status.Model); ok && m.Expired() {
		fmt.Fprintf(stdout, "Session ended. Sign in again at: %s\n", m.SignInURL())
	}
	return nil
}

// runHeadless waits for expiry or interruption. Each line read from in
// counts as keyboard activity.
func (k *keeper) runHeadless(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(stdout, "Keeping session alive against %s (Ctrl+C to stop)\n", k.client.BaseURL())
	if in != nil {
		go pumpActivity(in, k.bus)
	}

	select {
	case <-ctx.Done():
	case <-k.redirector.Done():
	}
	return nil
}

func pumpActivity(in io.Reader, bus *activity.Bus) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		bus.Publish(activity.KeyPress)
	}
}

// close stops the scheduler first so its final lifecycle event still
// reaches the history sink.
func (k *keeper) close() {
	if k.bridge != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := k.bridge.Shutdown(ctx); err != nil {
			k.log.Warn("activity bridge shutdown failed", logger.Err(err))
		}
		cancel()
		k.bridge = nil
	}
	session.Cleanup()
	if k.watcher != nil {
		_ = k.watcher.Close()
	}
	telemetry.SetSink(nil)
	if k.providers != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := k.providers.Shutdown(ctx); err != nil {
			k.log.Warn("telemetry shutdown failed", logger.Err(err))
		}
	}
}
