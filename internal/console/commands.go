package console

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/standardbeagle/tether/internal/server"
)

// CommandPrefix marks an administrative console line.
const CommandPrefix = "!"

// Administrative keywords, matched case-insensitively.
const (
	cmdList   = "list"
	cmdSwitch = "switch"
	cmdAll    = "all"
)

type command struct {
	keyword string
	args    []string
}

// parseCommand recognises the administrative commands. Any other line,
// including an unrecognised !-prefixed one, is not a command and is
// forwarded as a directive.
func parseCommand(line string) (command, bool) {
	if !strings.HasPrefix(line, CommandPrefix) {
		return command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, CommandPrefix))
	if len(fields) == 0 {
		return command{}, false
	}

	keyword := strings.ToLower(fields[0])
	switch keyword {
	case cmdList, cmdSwitch, cmdAll:
		return command{keyword: keyword, args: fields[1:]}, true
	}
	return command{}, false
}

func (c *Console) runCommand(cmd command) {
	switch cmd.keyword {
	case cmdList:
		c.list()
	case cmdSwitch:
		c.switchTarget(cmd.args)
	case cmdAll:
		c.selector.SelectAll()
		c.out.info("target set to all clients")
	}
}

// parseClientID parses a !switch argument.
func parseClientID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected one client id", server.ErrMalformedDirective)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", server.ErrMalformedDirective, args[0])
	}
	return id, nil
}

func (c *Console) switchTarget(args []string) {
	id, err := parseClientID(args)
	if err == nil {
		err = c.selector.SelectSpecific(id)
	}
	if err != nil {
		c.logger.Debug("switch rejected")
		c.out.errorf("invalid client id")
		return
	}
	c.out.info("target set to client %d", id)
}

func (c *Console) list() {
	sessions := c.registry.Sessions()
	if len(sessions) == 0 {
		c.out.info("no active clients")
		return
	}

	c.out.info("%d active client(s), target: %s", len(sessions), c.selector.Current())

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "    ID\tREMOTE\tCONNECTED\tIN\tOUT")
	now := time.Now()
	for _, sess := range sessions {
		info := sess.Info()
		fmt.Fprintf(tw, "    %d\t%s\t%s ago\t%d\t%d\n",
			info.ID, info.RemoteAddr, now.Sub(info.ConnectedAt).Truncate(time.Second), info.BytesIn, info.BytesOut)
	}
	tw.Flush()
	c.out.raw(b.String())
}
