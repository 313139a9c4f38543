package server

import (
	"fmt"
	"sync"

	"github.com/standardbeagle/tether/internal/protocol"
)

// Failure records a delivery that did not succeed.
type Failure struct {
	SessionID int
	Err       error
}

// Report summarizes one Send call.
type Report struct {
	Target    Target
	Directive string
	Delivered []int
	Failures  []Failure

	// Err is set when the target could not be resolved at all.
	Err error
}

// OK reports whether every resolved session received the directive.
func (r Report) OK() bool {
	return r.Err == nil && len(r.Failures) == 0
}

// Dispatcher delivers directives to the sessions named by a Target.
type Dispatcher struct {
	registry *SessionRegistry
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *SessionRegistry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Send delivers directive to target. Broadcast deliveries run concurrently
// and are isolated from each other. Send returns after every delivery has
// finished, including the EXIT and failure side effects.
func (d *Dispatcher) Send(target Target, directive string) Report {
	report := Report{Target: target, Directive: directive}

	var sessions []*Session
	if target.IsBroadcast() {
		for _, id := range d.registry.List() {
			// Sessions that vanished since the snapshot are skipped.
			if sess, ok := d.registry.Get(id); ok {
				sessions = append(sessions, sess)
			}
		}
	} else {
		sess, ok := d.registry.Get(target.ID())
		if !ok {
			report.Err = fmt.Errorf("client %d: %w", target.ID(), ErrUnknownTarget)
			return report
		}
		sessions = append(sessions, sess)
	}

	payload := []byte(directive)
	exit := protocol.IsExit(directive)

	errs := make([]error, len(sessions))
	var wg sync.WaitGroup
	for i, sess := range sessions {
		wg.Add(1)
		go func(i int, sess *Session) {
			defer wg.Done()
			errs[i] = d.deliver(sess, payload, exit)
		}(i, sess)
	}
	wg.Wait()

	for i, sess := range sessions {
		if errs[i] != nil {
			report.Failures = append(report.Failures, Failure{SessionID: sess.ID, Err: errs[i]})
		} else {
			report.Delivered = append(report.Delivered, sess.ID)
		}
	}
	return report
}

func (d *Dispatcher) deliver(sess *Session, payload []byte, exit bool) error {
	if err := sess.Send(payload); err != nil {
		d.registry.notify(Event{
			Kind:       EventDeliveryFailed,
			SessionID:  sess.ID,
			RemoteAddr: sess.RemoteAddr,
			Payload:    string(payload),
			Err:        err,
		})
		d.registry.release(sess.ID, err)
		return err
	}

	d.registry.notify(Event{
		Kind:       EventDelivered,
		SessionID:  sess.ID,
		RemoteAddr: sess.RemoteAddr,
		Payload:    string(payload),
	})

	if exit {
		d.registry.release(sess.ID, ErrExitDirective)
	}
	return nil
}
