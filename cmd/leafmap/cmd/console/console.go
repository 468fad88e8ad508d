// Package console provides an interactive shell that drives a local
// session over a loopback transport. Outbound commands are recorded
// instead of reaching a browser; calls are answered from local state.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/cmd/output"
	"github.com/gubancs/leafmap/internal/mapdef"
	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/geo"
	"github.com/gubancs/leafmap/pkg/leaflet"
	"github.com/gubancs/leafmap/pkg/logging"
)

// ErrQuit is returned by Exec for exit and quit.
var ErrQuit = errors.New("quit")

const callTimeout = 5 * time.Second

// Console executes shell lines against one session.
type Console struct {
	sess   leafmap.Session
	rec    *bridge.Recorder
	out    *syncWriter
	logger *zerolog.Logger

	// state mirrors the map for answering calls; read and written on the
	// owner loop only.
	zoom   float64
	center geo.LatLng
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// New attaches a loopback recorder to sess and returns a console writing
// to out.
func New(ctx context.Context, sess leafmap.Session, out io.Writer, logger *zerolog.Logger) (*Console, error) {
	c := &Console{
		sess:   sess,
		rec:    bridge.NewRecorder(),
		out:    &syncWriter{w: out},
		logger: logging.OrNop(logger),
	}
	c.rec.OnSend(c.answer)

	sess.OnEventDispatched(func(_ string, e events.Event) {
		fmt.Fprintf(c.out, "event %s on %s %s\n", e.Type().Name(), e.Target().Kind(), e.Target().ID())
	})
	sess.OnEventDropped(func(_ string, msg *bridge.Message, err error) {
		fmt.Fprintf(c.out, "dropped %s for %s: %v\n", msg.EventTypeName, msg.TargetID, err)
	})

	if err := sess.Attach(ctx, c.rec); err != nil {
		return nil, err
	}
	if err := sess.Do(ctx, c.sync); err != nil {
		return nil, err
	}
	return c, nil
}

// Recorder returns the loopback transport.
func (c *Console) Recorder() *bridge.Recorder {
	return c.rec
}

// answer plays the browser for calls. It runs on the owner loop, so it
// may read the map; the reply is delivered from another goroutine.
func (c *Console) answer(msg *bridge.Message) {
	if msg.Kind != bridge.KindCall {
		return
	}
	var reply *bridge.Message
	var err error
	switch msg.Operation {
	case "getZoom":
		reply, err = bridge.ResultFor(msg, c.zoom)
	case "getCenter":
		reply, err = bridge.ResultFor(msg, c.center)
	default:
		reply = bridge.ErrorFor(msg, "not available in console: "+msg.Operation)
	}
	if err != nil {
		reply = bridge.ErrorFor(msg, err.Error())
	}
	data, err := bridge.Encode(reply)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", msg.Operation).Msg("Encoding console reply")
		return
	}
	go func() {
		if err := c.sess.Receive(data); err != nil {
			c.logger.Warn().Err(err).Msg("Delivering console reply")
		}
	}()
}

// Load applies a map definition file to the session's map.
func (c *Console) Load(ctx context.Context, path string) error {
	def, err := mapdef.Load(path)
	if err != nil {
		return err
	}
	var (
		res      mapdef.Result
		applyErr error
	)
	if err := c.sess.Do(ctx, func(m *leaflet.Map) {
		res, applyErr = def.Apply(m)
		c.sync(m)
	}); err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}
	fmt.Fprintf(c.out, "loaded %s: %d layers, %d controls\n", path, res.Layers, res.Controls)
	return nil
}

func (c *Console) sync(m *leaflet.Map) {
	c.zoom = m.Zoom()
	c.center = m.Center()
}

// Exec runs one shell line.
func (c *Console) Exec(ctx context.Context, line string) error {
	args := ParseArgs(line)
	if len(args) == 0 {
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help":
		return c.help(rest)
	case "exit", "quit":
		return ErrQuit
	case "load":
		if len(rest) != 1 {
			return usage(cmd)
		}
		return c.Load(ctx, rest[0])
	case "tree":
		return c.tree(ctx)
	case "snapshot":
		return c.snapshot(ctx, rest)
	case "view":
		return c.view(ctx, rest)
	case "marker":
		return c.marker(ctx, rest)
	case "remove":
		return c.remove(ctx, rest)
	case "fire":
		return c.fire(ctx, rest)
	case "zoom":
		return c.getZoom(ctx)
	case "center":
		return c.getCenter(ctx)
	case "sent":
		return c.sent(rest)
	case "clear":
		c.rec.Reset()
		return nil
	case "info":
		return output.NewFormatter(output.FormatTable).Format(c.out, output.SessionsTable([]leafmap.Info{c.sess.Info()}))
	default:
		return fmt.Errorf("unknown command: %s (try help)", cmd)
	}
}

func (c *Console) tree(ctx context.Context) error {
	snap, err := c.sess.Snapshot(ctx)
	if err != nil {
		return err
	}
	return output.NewFormatter(output.FormatWide).Format(c.out, output.TreeTable(snap))
}

func (c *Console) snapshot(ctx context.Context, args []string) error {
	format := output.FormatYAML
	if len(args) > 0 {
		f, err := output.ParseFormat(args[0])
		if err != nil {
			return err
		}
		format = f
	}
	snap, err := c.sess.Snapshot(ctx)
	if err != nil {
		return err
	}
	if format == output.FormatTable || format == output.FormatWide {
		return output.NewFormatter(format).Format(c.out, output.TreeTable(snap))
	}
	return output.NewFormatter(format).Format(c.out, snap)
}

func (c *Console) view(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usage("view")
	}
	nums, err := floats(args)
	if err != nil {
		return err
	}
	center := geo.NewLatLng(nums[0], nums[1])
	if !center.Valid() {
		return errors.NewValidationError("center", center, "out of range")
	}
	return c.sess.Do(ctx, func(m *leaflet.Map) {
		m.SetView(center, nums[2], leaflet.ViewOptions{})
		c.sync(m)
	})
}

func (c *Console) marker(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("marker")
	}
	nums, err := floats(args[:2])
	if err != nil {
		return err
	}
	pos := geo.NewLatLng(nums[0], nums[1])
	if !pos.Valid() {
		return errors.NewValidationError("latlng", pos, "out of range")
	}
	var id, popup string
	if len(args) > 2 {
		id = args[2]
	}
	if len(args) > 3 {
		popup = strings.Join(args[3:], " ")
	}

	var addErr error
	var added string
	if err := c.sess.Do(ctx, func(m *leaflet.Map) {
		if id != "" {
			if _, exists := m.Lookup(id); exists {
				addErr = errors.NewValidationError("id", id, "already in use")
				return
			}
		}
		mk := leaflet.NewMarker(pos, leaflet.MarkerOptions{}, leaflet.WithID(id))
		if popup != "" {
			mk.BindPopupContent(popup)
		}
		addErr = mk.AddTo(m)
		added = mk.ID()
	}); err != nil {
		return err
	}
	if addErr != nil {
		return addErr
	}
	fmt.Fprintf(c.out, "added marker %s\n", added)
	return nil
}

func (c *Console) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("remove")
	}
	var removeErr error
	if err := c.sess.Do(ctx, func(m *leaflet.Map) {
		e, ok := m.FindLayer(args[0])
		if !ok {
			removeErr = errors.NewNotFoundError("layer", args[0])
			return
		}
		layer, ok := e.(leaflet.Layer)
		if !ok {
			removeErr = errors.NewValidationError("id", args[0], "not a layer")
			return
		}
		removeErr = layer.Remove()
	}); err != nil {
		return err
	}
	return removeErr
}

// fire feeds an inbound event to the session as if the browser sent it.
func (c *Console) fire(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("fire")
	}
	payload := json.RawMessage("{}")
	if len(args) > 2 {
		raw := strings.Join(args[2:], " ")
		if !json.Valid([]byte(raw)) {
			return errors.NewValidationError("payload", raw, "not valid JSON")
		}
		payload = json.RawMessage(raw)
	}
	data, err := bridge.Encode(&bridge.Message{
		Kind:          bridge.KindEvent,
		TargetID:      args[0],
		EventTypeName: args[1],
		Payload:       payload,
	})
	if err != nil {
		return err
	}
	if err := c.sess.Receive(data); err != nil {
		return err
	}
	// Wait for the dispatch so its output precedes the next prompt.
	return c.sess.Do(ctx, func(*leaflet.Map) {})
}

func (c *Console) getZoom(ctx context.Context) error {
	var fut *bridge.Future[float64]
	if err := c.sess.Do(ctx, func(m *leaflet.Map) {
		fut = m.GetZoom(ctx)
	}); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	zoom, err := fut.Await(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "zoom %s\n", strconv.FormatFloat(zoom, 'f', -1, 64))
	return nil
}

func (c *Console) getCenter(ctx context.Context) error {
	var fut *bridge.Future[geo.LatLng]
	if err := c.sess.Do(ctx, func(m *leaflet.Map) {
		fut = m.GetCenter(ctx)
	}); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	center, err := fut.Await(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "center %s\n", center)
	return nil
}

func (c *Console) sent(args []string) error {
	msgs := c.rec.Messages()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return errors.NewValidationError("n", args[0], "must be a non-negative integer")
		}
		if n < len(msgs) {
			msgs = msgs[len(msgs)-n:]
		}
	}
	data := output.Data{Headers: []string{"Kind", "Operation", "Target", "ID"}}
	for _, m := range msgs {
		data.Rows = append(data.Rows, []string{string(m.Kind), m.Operation, m.TargetID, m.ID})
	}
	return output.NewFormatter(output.FormatTable).Format(c.out, data)
}

func (c *Console) help(args []string) error {
	if len(args) > 0 {
		h, ok := commandHelp[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintln(c.out, h)
		return nil
	}
	names := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.out, "Available commands:")
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s\n", strings.SplitN(commandHelp[name], "\n", 2)[0])
	}
	fmt.Fprintln(c.out, "\nUse 'help <command>' for details.")
	return nil
}

func usage(cmd string) error {
	return errors.NewValidationError("args", cmd, "usage: "+strings.SplitN(commandHelp[cmd], "\n", 2)[0])
}

func floats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, errors.NewValidationError("number", a, "not a number")
		}
		out[i] = f
	}
	return out, nil
}

// ParseArgs splits a line on spaces. A token starting with a double quote
// runs to the closing quote; quotes inside a token are kept, so JSON
// payloads survive.
func ParseArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes, quoted := false, false

	for _, r := range input {
		switch {
		case r == '"' && inQuotes:
			inQuotes = false
		case r == '"' && current.Len() == 0 && !quoted:
			inQuotes, quoted = true, true
		case (r == ' ' || r == '\t') && !inQuotes:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args
}

var commandHelp = map[string]string{
	"help":     "help [command]\nLists commands or describes one.",
	"exit":     "exit\nLeaves the console.",
	"quit":     "quit\nLeaves the console.",
	"load":     "load <file.yaml>\nApplies a map definition to the map.",
	"tree":     "tree\nPrints the layer tree with subscribed events.",
	"snapshot": "snapshot [yaml|json|table]\nPrints the serializable map tree.",
	"view":     "view <lat> <lng> <zoom>\nSets the map view.",
	"marker":   "marker <lat> <lng> [id] [popup text]\nAdds a marker to the map.",
	"remove":   "remove <id>\nRemoves a layer from its parent.",
	"fire":     "fire <target-id> <event> [json payload]\nDelivers an inbound event as the browser would.\nExample: fire tower click {\"lat\":51.5,\"lng\":-0.07}",
	"zoom":     "zoom\nCalls getZoom through the bridge.",
	"center":   "center\nCalls getCenter through the bridge.",
	"sent":     "sent [n]\nLists the last n outbound messages.",
	"clear":    "clear\nForgets recorded outbound messages.",
	"info":     "info\nShows session counters.",
}
