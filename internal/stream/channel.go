// Package stream consumes the server-push order status feed. The wire
// format is event-stream text: "event:" and "data:" prefixed lines with
// a blank line terminating each record. Only the "orders" event name
// matters to the client; its payload is ignored.
package stream

import (
	"bufio"
	"context"
	"io"
	"strings"

	applog "bakehouse/internal/log"
)

// EventOrdersChanged is the one event name the client reacts to.
const EventOrdersChanged = "orders"

// Opener abstracts api.Client.OpenStream so tests can feed canned pipes.
type Opener interface {
	OpenStream(ctx context.Context) (io.ReadCloser, error)
}

// Channel is a single long-lived subscription. It does not reconnect: a
// dropped connection stops delivering updates until the owner opens a
// new channel. Done and Err let the owner observe the termination.
type Channel struct {
	done chan struct{}
	err  error
}

// Open starts the stream and invokes onSignal once per "orders" event.
// onSignal runs on the channel's goroutine; keep it cheap (typically a
// notify to the view layer that then refetches).
func Open(ctx context.Context, opener Opener, onSignal func()) (*Channel, error) {
	body, err := opener.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	ch := &Channel{done: make(chan struct{})}
	go ch.run(ctx, body, onSignal)
	return ch, nil
}

func (c *Channel) run(ctx context.Context, body io.ReadCloser, onSignal func()) {
	defer close(c.done)
	defer body.Close()

	// Close the body when ctx is cancelled so the scanner unblocks.
	stop := ctx.Done()
	go func() {
		<-stop
		body.Close()
	}()

	var eventName string
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case line == "":
			// End of one record.
			if eventName == EventOrdersChanged {
				onSignal()
			}
			eventName = ""
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"), strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"), strings.HasPrefix(line, ":"):
			// Payload and keep-alive lines are irrelevant here.
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		c.err = err
		applog.Warn("stream.drop", map[string]any{"err": err.Error()})
	}
}

// Done closes when the stream ends, for whatever reason.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Err reports why the stream ended; nil on clean EOF or cancellation.
// Only valid after Done is closed.
func (c *Channel) Err() error { return c.err }
