package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"pkt.systems/gitguide/internal/appconfig"
	"pkt.systems/gitguide/schema"
	gterm "pkt.systems/gitguide/term"
	"pkt.systems/pslog"
)

func newAttachCmd() *cobra.Command {
	var cfgPath string
	var workspaceID string
	var reconnect bool
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach the local terminal to a workspace shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			emu, err := newTTYEmulator()
			if err != nil {
				return err
			}
			defer func() { _ = emu.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			done := make(chan struct{})
			var once sync.Once

			manager, err := gterm.NewManager(ctx, gterm.ManagerConfig{
				BaseURL:     cfg.Workspace.BaseURL,
				WorkspaceID: schema.WorkspaceID(workspaceID),
				FetchToken: func(_ context.Context) (string, error) {
					return cfg.Workspace.ResolveToken()
				},
				ReconnectDelay:    time.Duration(cfg.Bridge.ReconnectDelayMS) * time.Millisecond,
				KeepaliveInterval: time.Duration(cfg.Bridge.KeepaliveIntervalSeconds) * time.Second,
				AutoReconnect:     reconnect,
				Logger:            logger,
				NewEmulator:       func() gterm.Emulator { return emu },
			}, func(_ schema.TabID, ev schema.BridgeEvent) {
				switch ev.Kind {
				case schema.EventConnected:
					printStatus(emu, "connected", termenv.ANSIGreen)
				case schema.EventStatus:
					if ev.Status == schema.StatusConnecting {
						printStatus(emu, "connecting", termenv.ANSIYellow)
					}
					if ev.Status == schema.StatusDisconnected {
						printStatus(emu, "disconnected", termenv.ANSIRed)
						once.Do(func() { close(done) })
					}
				case schema.EventError:
					printStatus(emu, "error: "+ev.Message, termenv.ANSIRed)
				}
			})
			if err != nil {
				return err
			}
			defer func() { _ = manager.Close() }()

			select {
			case <-ctx.Done():
				return nil
			case <-done:
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "workspace id")
	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "reconnect automatically when the session drops")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

// printStatus writes a colored status word into the terminal stream,
// CR-LF terminated so it renders correctly in raw mode.
func printStatus(emu gterm.Emulator, word string, color termenv.ANSIColor) {
	styled := termenv.String("[" + word + "]").Foreground(color).String()
	_, _ = emu.Write([]byte("\r\n" + styled + "\r\n"))
}

// ttyEmulator adapts the local TTY to the bridge's emulator interface:
// stdin bytes become input events, SIGWINCH becomes resize events, and
// remote output goes straight to stdout.
type ttyEmulator struct {
	in  *os.File
	out *os.File
	fd  int

	mu         sync.Mutex
	oldState   *term.State
	inputSubs  map[int]func(data []byte)
	resizeSubs map[int]func(cols, rows int)
	nextSub    int
	closed     bool
	stop       chan struct{}
}

func newTTYEmulator() (*ttyEmulator, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	e := &ttyEmulator{
		in:         os.Stdin,
		out:        os.Stdout,
		fd:         fd,
		oldState:   oldState,
		inputSubs:  map[int]func([]byte){},
		resizeSubs: map[int]func(int, int){},
		stop:       make(chan struct{}),
	}
	go e.readLoop()
	go e.watchResize()
	return e, nil
}

func (e *ttyEmulator) Write(p []byte) (int, error) {
	return e.out.Write(p)
}

func (e *ttyEmulator) Size() (cols, rows int, ok bool) {
	cols, rows, err := term.GetSize(e.fd)
	return cols, rows, err == nil && cols > 0 && rows > 0
}

func (e *ttyEmulator) OnInput(fn func(data []byte)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.inputSubs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.inputSubs, id)
	}
}

func (e *ttyEmulator) OnResize(fn func(cols, rows int)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.resizeSubs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.resizeSubs, id)
	}
}

func (e *ttyEmulator) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := e.in.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			e.mu.Lock()
			subs := make([]func([]byte), 0, len(e.inputSubs))
			for _, fn := range e.inputSubs {
				subs = append(subs, fn)
			}
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			for _, fn := range subs {
				fn(data)
			}
		}
		if err != nil {
			return
		}
	}
}

func (e *ttyEmulator) watchResize() {
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, unix.SIGWINCH)
	defer signal.Stop(winch)
	for {
		select {
		case <-e.stop:
			return
		case <-winch:
			cols, rows, ok := e.Size()
			if !ok {
				continue
			}
			e.mu.Lock()
			subs := make([]func(int, int), 0, len(e.resizeSubs))
			for _, fn := range e.resizeSubs {
				subs = append(subs, fn)
			}
			e.mu.Unlock()
			for _, fn := range subs {
				fn(cols, rows)
			}
		}
	}
}

// Close restores the terminal state. Idempotent.
func (e *ttyEmulator) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.inputSubs = map[int]func([]byte){}
	e.resizeSubs = map[int]func(int, int){}
	oldState := e.oldState
	e.oldState = nil
	e.mu.Unlock()
	close(e.stop)
	if oldState != nil {
		return term.Restore(e.fd, oldState)
	}
	return nil
}

var _ gterm.Emulator = (*ttyEmulator)(nil)
