// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/store/audit"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Category modes.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether s is a known category mode.
func ValidMode(s string) bool {
	switch s {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Auth controls authentication events (login, logout, registration, org switch).
	Auth string
	// Admin controls organization and membership administration events.
	Admin string
	// Data controls record mutations inside an organization.
	Data string
	// QueueSize bounds the number of events waiting for the store.
	QueueSize int
}

// Sink persists audit events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events. Zap mirroring happens on the caller's
// goroutine; store writes are queued to a background writer so a slow or
// failing store never delays or fails a request.
type Logger struct {
	sink    Sink
	zapLog  *zap.Logger
	config  Config
	metrics *metrics.Metrics

	queue   chan audit.Event
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

// New creates a Logger. Call Start to begin draining the queue.
func New(sink Sink, zapLog *zap.Logger, config Config, m *metrics.Metrics) *Logger {
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	return &Logger{
		sink:    sink,
		zapLog:  zapLog,
		config:  config,
		metrics: m,
		queue:   make(chan audit.Event, config.QueueSize),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the background writer.
func (l *Logger) Start() {
	if l == nil {
		return
	}
	l.wg.Add(1)
	go l.run()
	l.zapLog.Info("audit writer started", zap.Int("queue_size", cap(l.queue)))
}

// Stop signals the writer, waits for it to flush queued events, and returns.
func (l *Logger) Stop() {
	if l == nil {
		return
	}
	l.once.Do(func() { close(l.stopCh) })
	l.wg.Wait()
	l.zapLog.Info("audit writer stopped", zap.Int64("dropped", l.dropped.Load()))
}

// Dropped returns how many events were discarded because the queue was full.
func (l *Logger) Dropped() int64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

func (l *Logger) run() {
	defer l.wg.Done()
	for {
		select {
		case ev := <-l.queue:
			l.write(ev)
		case <-l.stopCh:
			for {
				select {
				case ev := <-l.queue:
					l.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(ev audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.sink.Log(ctx, ev); err != nil {
		l.metrics.Audit("store_error")
		l.zapLog.Error("failed to store audit event",
			zap.Error(err),
			zap.String("event_type", ev.EventType))
		return
	}
	l.metrics.Audit("stored")
}

func (l *Logger) mode(category string) string {
	var m string
	switch category {
	case audit.CategoryAuth:
		m = l.config.Auth
	case audit.CategoryAdmin:
		m = l.config.Admin
	case audit.CategoryData:
		m = l.config.Data
	}
	if m == "" {
		return ModeAll
	}
	return m
}

// Log records event according to the category's mode. It never blocks:
// when the queue is full the event is dropped and counted.
// A nil Logger is a no-op so tests can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	m := l.mode(event.Category)
	if m == ModeOff {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if m == ModeAll || m == ModeLog {
		l.logToZap(event)
	}
	if m == ModeAll || m == ModeDB {
		select {
		case l.queue <- event:
		default:
			l.dropped.Add(1)
			l.metrics.Audit("dropped")
			l.zapLog.Warn("audit queue full; event dropped",
				zap.String("event_type", event.EventType))
		}
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.EntityType != "" {
		fields = append(fields, zap.String("entity_type", event.EntityType))
	}
	if event.EntityID != nil {
		fields = append(fields, zap.String("entity_id", event.EntityID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	if len(event.Diff) > 0 {
		fields = append(fields, zap.Any("diff", event.Diff))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// clientIP prefers the address chi's RealIP middleware already resolved.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

func hexPtr(s string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil
	}
	return &oid
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		ActorID:   &userID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"auth_method": authMethod},
	})
}

// LoginFailed logs a rejected login. eventType is one of the
// audit.EventLoginFailed* constants.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		ActorID:       userID,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"attempted_email": email},
	})
}

// Logout logs a user logout. IDs come from the SessionUser.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID, orgID string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAuth,
		EventType:      audit.EventLogout,
		ActorID:        hexPtr(userID),
		OrganizationID: hexPtr(orgID),
		IP:             clientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
	})
}

// Registered logs a self-service registration.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		ActorID:   &userID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"auth_method": authMethod},
	})
}

// OrgSwitched logs an explicit active-organization selection.
func (l *Logger) OrgSwitched(ctx context.Context, r *http.Request, userID string, orgID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAuth,
		EventType:      audit.EventOrgSwitched,
		ActorID:        hexPtr(userID),
		OrganizationID: &orgID,
		IP:             clientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
	})
}

// --- Admin and Data Events ---

// Admin logs an administration event against orgID.
func (l *Logger) Admin(ctx context.Context, eventType string, actorID, orgID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      eventType,
		ActorID:        actorID,
		OrganizationID: orgID,
		Success:        true,
		Details:        details,
	})
}

// Data logs a record mutation with its field-level diff.
func (l *Logger) Data(ctx context.Context, eventType string, actorID *primitive.ObjectID, orgID primitive.ObjectID, entityType string, entityID primitive.ObjectID, diff map[string]string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryData,
		EventType:      eventType,
		ActorID:        actorID,
		OrganizationID: &orgID,
		EntityType:     entityType,
		EntityID:       &entityID,
		Success:        true,
		Diff:           diff,
	})
}

// --- Diff ---

var diffIgnored = map[string]bool{
	"_id":        true,
	"created_at": true,
	"updated_at": true,
	"org_id":     true,
}

// Diff compares the BSON field maps of before and after and returns
// "old → new" for every field whose value changed. Either side may be nil
// (creation or deletion). Bookkeeping fields are ignored.
func Diff(before, after any) map[string]string {
	b := toFieldMap(before)
	a := toFieldMap(after)

	keys := map[string]struct{}{}
	for k := range b {
		keys[k] = struct{}{}
	}
	for k := range a {
		keys[k] = struct{}{}
	}

	out := map[string]string{}
	for k := range keys {
		if diffIgnored[k] {
			continue
		}
		ov, nv := render(b[k]), render(a[k])
		if ov != nv {
			out[k] = ov + " → " + nv
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DiffKeys returns the changed field names of d in sorted order.
func DiffKeys(d map[string]string) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toFieldMap(v any) bson.M {
	if v == nil {
		return bson.M{}
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return bson.M{}
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return bson.M{}
	}
	return m
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case bson.M:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+render(x[k]))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
