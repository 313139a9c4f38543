// Package protocol defines the plaintext directives exchanged between the
// tether server and its agents.
//
// Directives are raw UTF-8 text with no framing or length prefix:
//
//	INFO            request system information
//	ECHO|<message>  request <message> echoed back
//	EXIT            request disconnect; the server closes its side after sending
//
// Anything an agent sends back is opaque to the server.
package protocol

// Directive represents a parsed server-to-agent directive.
type Directive struct {
	Verb    string // INFO, ECHO, EXIT
	Message string // Argument after the separator (ECHO only)
	Raw     string // Directive text as received
}

// Directive verbs
const (
	VerbInfo = "INFO"
	VerbEcho = "ECHO"
	VerbExit = "EXIT"
)

// Separator divides a verb from its argument.
const Separator = "|"

// ValidVerbs lists all directive verbs an agent understands.
var ValidVerbs = []string{VerbInfo, VerbEcho, VerbExit}
