// Package interactive provides the command loop of bgapi-console.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/connection"
	"github.com/bgapi-protocol/bgapi-go/pkg/event"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/session"
	"github.com/bgapi-protocol/bgapi-go/pkg/transport"
)

// pollInterval bounds how long the session goroutine waits for input
// before it picks up the next console request.
const pollInterval = 50 * time.Millisecond

// Console owns a session and runs console commands against it. All session
// calls happen on the goroutine started by Start.
type Console struct {
	sess   *session.Session
	dialer *connection.Dialer
	out    io.Writer

	requests chan func()
	quiet    atomic.Bool
	done     chan struct{}
}

// New creates a console. Incoming events are printed to out. The dialer
// is optional; without it a closed port ends the session loop.
func New(sess *session.Session, dialer *connection.Dialer, out io.Writer) (*Console, error) {
	c := &Console{
		sess:     sess,
		dialer:   dialer,
		out:      out,
		requests: make(chan func()),
		done:     make(chan struct{}),
	}

	bus := sess.Bus()
	for _, d := range sess.Schema().Messages() {
		if d.Kind != schema.KindEvent {
			continue
		}
		if _, err := bus.Subscribe(event.ChannelFor(d), c.printEvent); err != nil {
			return nil, err
		}
	}
	if _, err := bus.Subscribe(event.ChannelUnhandled, func(n event.Notification) error {
		if !c.quiet.Load() && n.Frame != nil {
			fmt.Fprintf(c.out, "<- unhandled %s %d/%d (%d bytes)\n", n.Frame.Type, n.Frame.Class, n.Frame.Index, len(n.Frame.Payload))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if _, err := bus.Subscribe(event.ChannelTimeout, func(event.Notification) error {
		fmt.Fprintln(c.out, "!! response timeout")
		return nil
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Console) printEvent(n event.Notification) error {
	if !c.quiet.Load() && n.Record != nil {
		fmt.Fprintf(c.out, "<- %s\n", FormatRecord(n.Record))
	}
	return nil
}

// Start runs the session loop until ctx is done.
func (c *Console) Start(ctx context.Context) {
	go c.loop(ctx)
}

// Done is closed when the session loop has stopped.
func (c *Console) Done() <-chan struct{} {
	return c.done
}

func (c *Console) loop(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.requests:
			req()
			continue
		default:
		}

		err := c.sess.Poll(pollInterval)
		if err == nil {
			continue
		}
		if !errors.Is(err, transport.ErrPortClosed) {
			fmt.Fprintf(c.out, "!! %v\n", err)
			continue
		}
		if c.dialer == nil {
			fmt.Fprintln(c.out, "!! connection closed")
			return
		}
		fmt.Fprintln(c.out, "!! connection lost, reconnecting")
		if err := c.dialer.Reconnect(ctx, c.sess); err != nil {
			fmt.Fprintf(c.out, "!! reconnect failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "!! reconnected\n")
	}
}

// do runs fn on the session goroutine and waits for it.
func (c *Console) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case c.requests <- func() { fn(); close(finished) }:
	case <-c.done:
		return errors.New("session stopped")
	}
	<-finished
	return nil
}

// Execute runs one console line. It returns true when the console should
// exit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList(args)
	case "describe", "desc":
		err = c.cmdDescribe(args)
	case "call", "c":
		err = c.cmdCall(args)
	case "send", "s":
		err = c.cmdSend(args)
	case "reset":
		err = c.cmdSend([]string{"system_reset"})
	case "const":
		c.cmdConst(args)
	case "status", "st":
		err = c.cmdStatus()
	case "quiet":
		c.quiet.Store(true)
	case "verbose":
		c.quiet.Store(false)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
BGAPI Console Commands:
  call <command> [args...]  - Send a command and wait for its response
  send <command> [args...]  - Send a command without waiting
  reset                     - Send system_reset
  list [prefix]             - List command names
  describe <command>        - Show a command's arguments and returns
  const [prefix]            - List enum constants
  status                    - Show session and connection status
  quiet | verbose           - Hide or show incoming events
  help                      - Show this help
  quit                      - Exit

Integers accept decimal, 0x hex, 0b binary or a constant name.
Addresses are aa:bb:cc:dd:ee:ff; arrays are hex bytes ("-" for empty).`)
}

func (c *Console) cmdList(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	for _, name := range MatchNames(c.sess.Schema().CommandNames(), prefix) {
		fmt.Fprintln(c.out, name)
	}
}

func (c *Console) cmdDescribe(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: describe <command>", ErrUsage)
	}
	s := c.sess.Schema()
	desc, err := s.Command(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s (%d/%d)\n  args:    %s\n", desc.FullName(), desc.Class, desc.Index, Signature(desc))
	if resp, ok := s.ResponseFor(desc); ok {
		fmt.Fprintf(c.out, "  returns: %s\n", Signature(resp))
	}
	return nil
}

func (c *Console) cmdConst(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	for _, k := range c.sess.Schema().Constants() {
		if strings.HasPrefix(k.Name, prefix) {
			fmt.Fprintf(c.out, "%-48s %d\n", k.Name, k.Value)
		}
	}
}

func (c *Console) command(args []string, verb string) (*schema.MessageDescriptor, []any, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("%w: %s <command> [args...]", ErrUsage, verb)
	}
	s := c.sess.Schema()
	desc, err := s.Command(args[0])
	if err != nil {
		return nil, nil, err
	}
	values, err := ParseArgs(s, desc, args[1:])
	if err != nil {
		return nil, nil, err
	}
	return desc, values, nil
}

func (c *Console) cmdCall(args []string) error {
	desc, values, err := c.command(args, "call")
	if err != nil {
		return err
	}

	var rec *codec.Record
	var callErr error
	started := time.Now()
	if err := c.do(func() { rec, callErr = c.sess.Call(desc, values...) }); err != nil {
		return err
	}
	if callErr != nil {
		return callErr
	}
	fmt.Fprintf(c.out, "-> %s\n", FormatRecord(rec))
	fmt.Fprintf(c.out, "   (%s)\n", time.Since(started).Round(time.Microsecond))
	return nil
}

func (c *Console) cmdSend(args []string) error {
	desc, values, err := c.command(args, "send")
	if err != nil {
		return err
	}
	var sendErr error
	if err := c.do(func() { sendErr = c.sess.Send(desc, values...) }); err != nil {
		return err
	}
	return sendErr
}

func (c *Console) cmdStatus() error {
	var busy bool
	var st session.Stats
	if err := c.do(func() {
		busy = c.sess.Busy()
		st = c.sess.Stats()
	}); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Session:     %s\n", c.sess.ID())
	fmt.Fprintf(c.out, "Busy:        %v\n", busy)
	if c.dialer != nil {
		fmt.Fprintf(c.out, "Connection:  %s\n", c.dialer.State())
	}
	fmt.Fprintf(c.out, "Frames:      %d out, %d in\n", st.FramesOut, st.FramesIn)
	fmt.Fprintf(c.out, "Unhandled:   %d\n", st.Unhandled)
	fmt.Fprintf(c.out, "Decode errs: %d\n", st.DecodeErrors)
	fmt.Fprintf(c.out, "Timeouts:    %d\n", st.Timeouts)
	return nil
}

// completer offers command names after the verbs that take one.
func (c *Console) completer() *readline.PrefixCompleter {
	names := func(string) []string { return c.sess.Schema().CommandNames() }
	return readline.NewPrefixCompleter(
		readline.PcItem("call", readline.PcItemDynamic(names)),
		readline.PcItem("send", readline.PcItemDynamic(names)),
		readline.PcItem("describe", readline.PcItemDynamic(names)),
		readline.PcItem("list"),
		readline.PcItem("const"),
		readline.PcItem("reset"),
		readline.PcItem("status"),
		readline.PcItem("quiet"),
		readline.PcItem("verbose"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Run reads lines from a readline prompt until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bgapi> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    c.completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	_ = c.do(func() { c.out = rl.Stdout() })

	c.printHelp()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			cancel()
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			cancel()
			return nil
		}
		if c.Execute(strings.TrimSpace(line)) {
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			cancel()
			return nil
		}
	}
}
