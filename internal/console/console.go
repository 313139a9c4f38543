// Package console implements the operator command loop: it reads lines,
// handles the !list, !switch and !all administrative commands and forwards
// everything else to the dispatcher as a directive.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/standardbeagle/tether/internal/server"
)

// Console is the operator's command loop.
type Console struct {
	in         io.Reader
	out        *printer
	registry   *server.SessionRegistry
	selector   *server.TargetSelector
	dispatcher *server.Dispatcher
	logger     *zap.Logger

	showPrompt bool
}

// Option configures a Console.
type Option func(*consoleOptions)

type consoleOptions struct {
	prompt  bool
	colored bool
	logger  *zap.Logger
}

// WithPrompt prints a prompt before every read.
func WithPrompt(enabled bool) Option {
	return func(o *consoleOptions) { o.prompt = enabled }
}

// WithColor enables ANSI colours on status lines.
func WithColor(enabled bool) Option {
	return func(o *consoleOptions) { o.colored = enabled }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *consoleOptions) { o.logger = logger }
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// New creates a console reading from in and printing to out. The target
// starts as broadcast.
func New(in io.Reader, out io.Writer, registry *server.SessionRegistry, dispatcher *server.Dispatcher, opts ...Option) *Console {
	o := consoleOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return &Console{
		in:         in,
		out:        newPrinter(out, o.colored),
		registry:   registry,
		selector:   server.NewTargetSelector(registry),
		dispatcher: dispatcher,
		logger:     o.logger,
		showPrompt: o.prompt,
	}
}

// Target returns the current target.
func (c *Console) Target() server.Target {
	return c.selector.Current()
}

// Run reads lines until the input is exhausted or ctx is cancelled. EOF is
// a normal return.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		c.prompt()

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-scanErr:
				default:
				}
				if err != nil {
					return err
				}
				c.logger.Debug("console input closed")
				return nil
			}
			c.Execute(line)
		}
	}
}

func (c *Console) prompt() {
	if !c.showPrompt {
		return
	}
	t := c.selector.Current()
	if t.IsBroadcast() {
		c.out.prompt("tether[all]> ")
		return
	}
	c.out.prompt(fmt.Sprintf("tether[%d]> ", t.ID()))
}

// Execute handles a single operator line.
func (c *Console) Execute(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	if cmd, ok := parseCommand(line); ok {
		c.runCommand(cmd)
		return
	}

	c.forward(line)
}

func (c *Console) forward(directive string) {
	report := c.dispatcher.Send(c.selector.Current(), directive)
	c.printReport(report)
}

func (c *Console) printReport(report server.Report) {
	if report.Err != nil {
		if errors.Is(report.Err, server.ErrUnknownTarget) {
			c.out.errorf("target invalid: %s is not connected", report.Target)
		} else {
			c.out.errorf("send failed: %v", report.Err)
		}
		return
	}

	for _, f := range report.Failures {
		c.out.errorf("delivery to client %d failed: %v", f.SessionID, f.Err)
	}

	switch {
	case report.Target.IsBroadcast() && len(report.Delivered) == 0 && len(report.Failures) == 0:
		c.out.errorf("no active clients")
	case report.Target.IsBroadcast():
		c.out.info("sent to %d of %d clients", len(report.Delivered), len(report.Delivered)+len(report.Failures))
	case len(report.Delivered) == 1:
		c.out.info("sent to %s", report.Target)
	}
}

// Observer returns an observer printing connection and inbound events.
// Delivery outcomes are printed from the dispatch report instead.
func (c *Console) Observer() server.Observer {
	return server.ObserverFunc(func(ev server.Event) {
		switch ev.Kind {
		case server.EventConnected:
			c.out.connected("client %d connected from %s", ev.SessionID, ev.RemoteAddr)
		case server.EventDisconnected:
			if ev.Err != nil {
				c.out.disconnected("client %d disconnected: %v", ev.SessionID, ev.Err)
			} else {
				c.out.disconnected("client %d disconnected", ev.SessionID)
			}
		case server.EventInbound:
			c.out.inbound(ev.SessionID, ev.Payload)
		}
	})
}
