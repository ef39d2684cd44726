package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/genricoloni/adskip/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	busName                 = "org.freedesktop.DBus"
	busPath                 = "/org/freedesktop/DBus"
	propertiesInterface     = "org.freedesktop.DBus.Properties"
	propertiesChangedMember = "PropertiesChanged"
	propertiesChangedSignal = propertiesInterface + "." + propertiesChangedMember
	nameOwnerChangedMember  = "NameOwnerChanged"
	nameOwnerChangedSignal  = busName + "." + nameOwnerChangedMember

	signalBufferSize = 16
)

// Errors meaning the call never reached a live owner of the name
var unreachableErrors = map[string]bool{
	"org.freedesktop.DBus.Error.ServiceUnknown": true,
	"org.freedesktop.DBus.Error.NameHasNoOwner": true,
	"org.freedesktop.DBus.Error.NoReply":        true,
	"org.freedesktop.DBus.Error.Disconnected":   true,
	"org.freedesktop.DBus.Error.Timeout":        true,
}

// MprisMonitor talks to a single MPRIS player over the session bus: it calls
// its methods and turns its signals into ordered event streams
type MprisMonitor struct {
	logger  *zap.Logger
	conn    DBusClient // Interface for testability
	service string
	path    string

	mu     sync.Mutex
	subs   []*subscription
	closed bool
	wg     sync.WaitGroup // Tracks active pump goroutines
}

type subscription struct {
	raw    chan *dbus.Signal
	match  []dbus.MatchOption
	cancel context.CancelFunc
}

// NewMprisMonitor connects to the session bus and targets the configured player
func NewMprisMonitor(logger *zap.Logger, cfg domain.Config) (*MprisMonitor, error) {
	conn, err := NewStdDBusClient()
	if err != nil {
		logger.Error("Failed to connect to session bus", zap.Error(err))
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	m := newMprisMonitor(logger, conn, cfg.GetServiceName(), cfg.GetObjectPath())

	if owner, err := conn.GetNameOwner(m.service); err == nil {
		logger.Warn("Player already owns its bus name before supervision started",
			zap.String("service", m.service),
			zap.String("owner", owner))
	}

	logger.Info("Connected to session bus",
		zap.String("service", m.service),
		zap.String("path", m.path))
	return m, nil
}

func newMprisMonitor(logger *zap.Logger, conn DBusClient, service, path string) *MprisMonitor {
	return &MprisMonitor{
		logger:  logger,
		conn:    conn,
		service: service,
		path:    path,
	}
}

// Call invokes iface.method on the player object
func (m *MprisMonitor) Call(ctx context.Context, iface, method string) error {
	err := m.conn.CallMethod(ctx, m.service, m.path, iface+"."+method)
	if err == nil {
		return nil
	}
	return &domain.CallError{
		Interface: iface,
		Method:    method,
		Kind:      classifyCallError(err),
		Err:       err,
	}
}

// classifyCallError separates "nobody owns the name" from errors the player itself replied with
func classifyCallError(err error) domain.CallErrorKind {
	var name string
	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErr):
		name = dbusErr.Name
	case errors.As(err, &dbusErrPtr) && dbusErrPtr != nil:
		name = dbusErrPtr.Name
	default:
		// Transport failures and context deadlines never reached the player
		return domain.CallUnreachable
	}
	if unreachableErrors[name] {
		return domain.CallUnreachable
	}
	return domain.CallRemote
}

// SubscribeProperties streams PropertiesChanged notifications of the player object
func (m *MprisMonitor) SubscribeProperties(ctx context.Context) (<-chan domain.PropertiesChanged, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchSender(m.service),
		dbus.WithMatchObjectPath(dbus.ObjectPath(m.path)),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember(propertiesChangedMember),
	}

	sub, subCtx, err := m.subscribe(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to add PropertiesChanged match signal: %w", err)
	}

	out := make(chan domain.PropertiesChanged)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.conn.RemoveSignal(sub.raw)
		pump(subCtx, sub.raw, out, m.parseProperties)
		m.logger.Debug("Property change stream closed")
	}()

	m.logger.Info("Subscribed to property changes",
		zap.String("service", m.service),
		zap.String("path", m.path))
	return out, nil
}

// SubscribeOwnership streams ownership transitions of the player's well-known name
func (m *MprisMonitor) SubscribeOwnership(ctx context.Context) (<-chan domain.OwnershipEvent, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchSender(busName),
		dbus.WithMatchObjectPath(busPath),
		dbus.WithMatchInterface(busName),
		dbus.WithMatchMember(nameOwnerChangedMember),
		dbus.WithMatchArg(0, m.service),
	}

	sub, subCtx, err := m.subscribe(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to add NameOwnerChanged match signal: %w", err)
	}

	out := make(chan domain.OwnershipEvent)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.conn.RemoveSignal(sub.raw)
		pump(subCtx, sub.raw, out, m.parseOwnership)
		m.logger.Debug("Ownership change stream closed")
	}()

	m.logger.Info("Subscribed to ownership changes", zap.String("service", m.service))
	return out, nil
}

func (m *MprisMonitor) subscribe(ctx context.Context, match []dbus.MatchOption) (*subscription, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, errors.New("monitor is closed")
	}

	if err := m.conn.AddMatchSignal(match...); err != nil {
		return nil, nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		raw:    make(chan *dbus.Signal, signalBufferSize),
		match:  match,
		cancel: cancel,
	}
	m.conn.Signal(sub.raw)
	m.subs = append(m.subs, sub)
	return sub, subCtx, nil
}

// pump forwards parsed signals from raw to out without ever blocking the bus
// reader: events wait in a local queue while the consumer is busy. out is
// closed once raw is closed and the queue is drained, or when ctx ends.
func pump[T any](ctx context.Context, raw <-chan *dbus.Signal, out chan<- T, parse func(*dbus.Signal) (T, bool)) {
	defer close(out)

	var pending []T
	for {
		var send chan<- T
		var next T
		if len(pending) > 0 {
			send = out
			next = pending[0]
		} else if raw == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case sig, ok := <-raw:
			if !ok {
				raw = nil
				continue
			}
			if ev, ok := parse(sig); ok {
				pending = append(pending, ev)
			}
		case send <- next:
			var zero T
			pending[0] = zero
			pending = pending[1:]
		}
	}
}

// parseProperties decodes a PropertiesChanged signal body:
// 1. Interface name (string)
// 2. Changed properties (map[string]Variant)
// 3. Invalidated properties ([]string)
func (m *MprisMonitor) parseProperties(sig *dbus.Signal) (domain.PropertiesChanged, bool) {
	var ev domain.PropertiesChanged
	if sig == nil || sig.Name != propertiesChangedSignal || sig.Path != dbus.ObjectPath(m.path) {
		return ev, false
	}

	if len(sig.Body) < 2 {
		m.logger.Debug("PropertiesChanged body too short, dropping", zap.Int("len", len(sig.Body)))
		return ev, false
	}

	iface, ok := sig.Body[0].(string)
	if !ok {
		m.logger.Debug("PropertiesChanged interface is not a string, dropping")
		return ev, false
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		m.logger.Debug("PropertiesChanged body[1] is not map[string]Variant, dropping",
			zap.String("type", fmt.Sprintf("%T", sig.Body[1])))
		return ev, false
	}

	ev.Interface = iface
	ev.Changed = make(map[string]any, len(changed))
	for name, value := range changed {
		ev.Changed[name] = unwrap(value)
	}
	if len(sig.Body) > 2 {
		ev.Invalidated, _ = sig.Body[2].([]string)
	}
	return ev, true
}

// parseOwnership decodes a NameOwnerChanged signal body: name, old owner, new owner
func (m *MprisMonitor) parseOwnership(sig *dbus.Signal) (domain.OwnershipEvent, bool) {
	var ev domain.OwnershipEvent
	if sig == nil || sig.Name != nameOwnerChangedSignal || len(sig.Body) < 3 {
		return ev, false
	}

	name, ok := sig.Body[0].(string)
	if !ok || name != m.service {
		return ev, false
	}

	newOwner, _ := sig.Body[2].(string)
	if newOwner == "" {
		ev.Kind = domain.OwnerLost
	} else {
		ev.Kind = domain.OwnerGained
		ev.Owner = newOwner
	}
	return ev, true
}

// unwrap strips variants recursively. Object paths become plain strings so
// MPRIS-compliant players (trackid as 'o') and Spotify (trackid as 's') look alike.
func unwrap(v any) any {
	switch val := v.(type) {
	case dbus.Variant:
		return unwrap(val.Value())
	case map[string]dbus.Variant:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = unwrap(inner.Value())
		}
		return out
	case dbus.ObjectPath:
		return string(val)
	default:
		return v
	}
}

// Close ends every subscription, removes the match rules and closes the connection
func (m *MprisMonitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	// Pumps detach their signal channels on exit
	m.wg.Wait()

	var err error
	for _, sub := range subs {
		err = multierr.Append(err, m.conn.RemoveMatchSignal(sub.match...))
	}
	err = multierr.Append(err, m.conn.Close())

	if err != nil {
		m.logger.Warn("D-Bus teardown finished with errors", zap.Error(err))
	} else {
		m.logger.Info("D-Bus connection closed")
	}
	return err
}
