// Package actions holds the Mutation Actions: every create, status change
// and soft delete a page handler can trigger. Each action validates its
// input, writes through a narrow store interface, records an audit event
// with a field diff and invalidates the organization's cached views.
//
// Validation problems are reported in Result.Error and never reach the
// store. Storage failures are returned as errors for the handler's error
// page.
package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/inputval"
	"github.com/dalemusser/stratagrc/internal/app/system/invitetoken"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/app/system/seeding"
	"github.com/dalemusser/stratagrc/internal/app/system/viewcache"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Result is what a Mutation Action reports to its handler. Error is a
// message for the user; when it is set nothing was written.
type Result struct {
	ID      string
	Error   string
	Created int    // rows created by seeding, when the action seeds
	Token   string // signed invitation token, for InviteMember
}

// OK reports whether the action succeeded.
func (r Result) OK() bool { return r.Error == "" }

// Actor is who is acting and in which organization. Role is the actor's
// tenant role there; it is empty for super-admin actions outside a tenant.
type Actor struct {
	UserID primitive.ObjectID
	OrgID  primitive.ObjectID
	Role   string
}

func (a Actor) userPtr() *primitive.ObjectID {
	if a.UserID.IsZero() {
		return nil
	}
	id := a.UserID
	return &id
}

// Seeder is the subset of seeding.Seeder used here.
type Seeder interface {
	SeedControls(ctx context.Context, orgID, frameworkID primitive.ObjectID) (seeding.Result, error)
	SeedSoA(ctx context.Context, orgID, assessmentID primitive.ObjectID, frameworkCode string) (seeding.Result, error)
	SeedCertificationTasks(ctx context.Context, orgID, frameworkID primitive.ObjectID) (seeding.Result, error)
}

// Auditor records audit events. *auditlog.Logger implements it.
type Auditor interface {
	Data(ctx context.Context, eventType string, actorID *primitive.ObjectID, orgID primitive.ObjectID, entityType string, entityID primitive.ObjectID, diff map[string]string)
	Admin(ctx context.Context, eventType string, actorID, orgID *primitive.ObjectID, details map[string]string)
}

// Tokens signs invitation tokens. *invitetoken.Issuer implements it.
type Tokens interface {
	TTL() time.Duration
	Issue(invitationID, orgID, email, role string) (string, time.Time, error)
	Parse(raw string) (*invitetoken.Claims, error)
}

// Stores groups the store dependencies. Fields may be left nil when the
// caller only uses actions that do not need them.
type Stores struct {
	Frameworks    FrameworkStore
	Controls      ControlStore
	Assessments   AssessmentStore
	SoA           SoAStore
	Scorer        AssessmentScorer
	Risks         RiskStore
	Tasks         TaskStore
	CAPAs         CAPAStore
	Documents     DocumentStore
	Evidence      EvidenceStore
	Training      TrainingStore
	Users         UserStore
	Organizations OrganizationStore
	Memberships   MembershipStore
	Invitations   InvitationStore
}

// Actions runs Mutation Actions.
type Actions struct {
	Stores
	seeder Seeder
	audit  Auditor
	cache  viewcache.Cache
	tokens Tokens
	m      *metrics.Metrics
	log    *zap.Logger
	now    func() time.Time
}

// New builds Actions. cache, tokens and m may be nil.
func New(stores Stores, seeder Seeder, audit Auditor, cache viewcache.Cache, tokens Tokens, m *metrics.Metrics, logger *zap.Logger) *Actions {
	return &Actions{
		Stores: stores,
		seeder: seeder,
		audit:  audit,
		cache:  cache,
		tokens: tokens,
		m:      m,
		log:    logger,
		now:    time.Now,
	}
}

// validate runs inputval over in. ok is false when the returned Result
// carries a validation message.
func (a *Actions) validate(action string, in any) (Result, bool) {
	if v := inputval.Validate(in); v.HasErrors() {
		a.m.Mutation(action, "invalid")
		return Result{Error: v.First()}, false
	}
	return Result{}, true
}

func (a *Actions) invalid(action, msg string) (Result, error) {
	a.m.Mutation(action, "invalid")
	return Result{Error: msg}, nil
}

func (a *Actions) fail(action string, err error) (Result, error) {
	a.m.Mutation(action, "error")
	a.log.Error("mutation failed", zap.String("action", action), zap.Error(err))
	return Result{}, fmt.Errorf("%s: %w", action, err)
}

// done records a data event for an org-scoped write and schedules cache
// invalidation.
func (a *Actions) done(ctx context.Context, action string, actor Actor, entityType string, id primitive.ObjectID, diff map[string]string) (Result, error) {
	a.m.Mutation(action, "ok")
	if a.audit != nil {
		a.audit.Data(ctx, action, actor.userPtr(), actor.OrgID, entityType, id, diff)
	}
	a.invalidate(actor.OrgID)
	return Result{ID: id.Hex()}, nil
}

func (a *Actions) invalidate(orgID primitive.ObjectID) {
	viewcache.InvalidateAsync(a.cache, orgID.Hex(), a.log)
}

// parseID turns a form value into an ObjectID. ok is false for blanks and
// malformed ids.
func parseID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return id, err == nil
}

// optionalID parses an optional id field already checked by inputval.
func optionalID(s string) *primitive.ObjectID {
	id, ok := parseID(s)
	if !ok {
		return nil
	}
	return &id
}

// parseDate reads an HTML date input (YYYY-MM-DD). Blank is nil.
func parseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
