package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Status line markers.
const (
	markConnected    = "[+]"
	markDisconnected = "[-]"
	markInfo         = "[*]"
	markError        = "[!]"
)

// printer serializes status lines from the console loop and from observer
// callbacks running on reader goroutines.
type printer struct {
	mu  sync.Mutex
	out io.Writer

	green  *color.Color
	red    *color.Color
	cyan   *color.Color
	yellow *color.Color
	faint  *color.Color
}

func newPrinter(out io.Writer, colored bool) *printer {
	p := &printer{
		out:    out,
		green:  color.New(color.FgGreen, color.Bold),
		red:    color.New(color.FgRed, color.Bold),
		cyan:   color.New(color.FgCyan),
		yellow: color.New(color.FgYellow, color.Bold),
		faint:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.green, p.red, p.cyan, p.yellow, p.faint} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) line(c *color.Color, mark, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", c.Sprint(mark), fmt.Sprintf(format, args...))
}

func (p *printer) connected(format string, args ...any) {
	p.line(p.green, markConnected, format, args...)
}

func (p *printer) disconnected(format string, args ...any) {
	p.line(p.red, markDisconnected, format, args...)
}

func (p *printer) info(format string, args ...any) {
	p.line(p.cyan, markInfo, format, args...)
}

func (p *printer) errorf(format string, args ...any) {
	p.line(p.yellow, markError, format, args...)
}

// inbound prints a payload received from a session.
func (p *printer) inbound(id int, payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tag := p.cyan.Sprintf("[client %d]", id)
	fmt.Fprintf(p.out, "%s %s", tag, payload)
	if len(payload) == 0 || payload[len(payload)-1] != '\n' {
		fmt.Fprintln(p.out)
	}
}

func (p *printer) prompt(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, p.faint.Sprint(text))
}

// raw writes pre-formatted text under the output lock.
func (p *printer) raw(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.out, text)
}
