package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/invitetoken"
	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"github.com/dalemusser/stratagrc/internal/domain/models"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type harness struct {
	*Actions
	w       *writes
	audit   *fakeAudit
	cache   *fakeCache
	seeder  *fakeSeeder
	metrics *metrics.Metrics
	actor   Actor

	risks     *fakeRisks
	capas     *fakeCAPAs
	docs      *fakeDocuments
	evidence  *fakeEvidence
	controls  *fakeControls
	asmts     *fakeAssessments
	soa       *fakeSoA
	users     *fakeUsers
	orgs      *fakeOrgs
	members   *fakeMemberships
	invites   *fakeInvitations
	training  *fakeTraining
	framework models.Framework
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	w := &writes{}
	h := &harness{
		w:         w,
		audit:     &fakeAudit{},
		cache:     &fakeCache{invalidated: make(chan string, 64)},
		seeder:    &fakeSeeder{},
		metrics:   metrics.New(),
		actor:     Actor{UserID: primitive.NewObjectID(), OrgID: primitive.NewObjectID(), Role: models.RoleOwner},
		risks:     &fakeRisks{w: w, rows: map[primitive.ObjectID]models.Risk{}},
		capas:     &fakeCAPAs{w: w, rows: map[primitive.ObjectID]models.CAPA{}},
		docs:      &fakeDocuments{w: w, rows: map[primitive.ObjectID]models.Document{}},
		evidence:  &fakeEvidence{w: w, rows: map[primitive.ObjectID]models.Evidence{}},
		controls:  &fakeControls{w: w, rows: map[primitive.ObjectID]models.ControlImplementation{}},
		asmts:     &fakeAssessments{w: w, rows: map[primitive.ObjectID]models.Assessment{}},
		soa:       &fakeSoA{w: w, rows: map[primitive.ObjectID]models.SoAEntry{}},
		users:     &fakeUsers{rows: map[primitive.ObjectID]models.User{}},
		orgs:      &fakeOrgs{w: w, rows: map[primitive.ObjectID]models.Organization{}},
		members:   &fakeMemberships{w: w, rows: map[memberKey]models.Membership{}},
		invites:   &fakeInvitations{w: w, rows: map[primitive.ObjectID]models.Invitation{}},
		training:  &fakeTraining{w: w, programs: map[primitive.ObjectID]models.TrainingProgram{}},
		framework: models.Framework{ID: primitive.NewObjectID(), Code: "iso27001-2022", Name: "ISO/IEC 27001:2022"},
	}

	tokens, err := invitetoken.New("test-invite-secret-0123456789", 72*time.Hour)
	if err != nil {
		t.Fatalf("invitetoken.New: %v", err)
	}

	stores := Stores{
		Frameworks:    &fakeFrameworks{byID: map[primitive.ObjectID]models.Framework{h.framework.ID: h.framework}},
		Controls:      h.controls,
		Assessments:   h.asmts,
		SoA:           h.soa,
		Scorer:        fakeScorer{score: 80},
		Risks:         h.risks,
		Tasks:         &fakeTasks{w: w, rows: map[primitive.ObjectID]models.Task{}},
		CAPAs:         h.capas,
		Documents:     h.docs,
		Evidence:      h.evidence,
		Training:      h.training,
		Users:         h.users,
		Organizations: h.orgs,
		Memberships:   h.members,
		Invitations:   h.invites,
	}
	h.Actions = New(stores, h.seeder, h.audit, h.cache, tokens, h.metrics, zap.NewNop())
	return h
}

func (h *harness) mutations(action, result string) float64 {
	return promtest.ToFloat64(h.metrics.MutationsTotal.WithLabelValues(action, result))
}

func (h *harness) waitInvalidated(t *testing.T) string {
	t.Helper()
	select {
	case org := <-h.cache.invalidated:
		return org
	case <-time.After(2 * time.Second):
		t.Fatal("cache was not invalidated")
		return ""
	}
}

func TestInvalidInputNeverWrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() (Result, error)
		want string
	}{
		{"risk without title", func() (Result, error) {
			return h.CreateRisk(ctx, h.actor, RiskInput{Likelihood: 3, Impact: 3})
		}, "Title is required."},
		{"risk likelihood out of range", func() (Result, error) {
			return h.CreateRisk(ctx, h.actor, RiskInput{Title: "Laptop theft", Likelihood: 9, Impact: 2})
		}, "Likelihood"},
		{"capa without kind", func() (Result, error) {
			return h.CreateCAPA(ctx, h.actor, CAPAInput{Title: "Fix backups"})
		}, "Kind is required."},
		{"document whitespace title", func() (Result, error) {
			return h.CreateDocument(ctx, h.actor, DocumentInput{Title: "   ", Kind: "policy"})
		}, "Title is required."},
		{"task without title", func() (Result, error) {
			return h.CreateTask(ctx, h.actor, TaskInput{})
		}, "Title is required."},
		{"training without title", func() (Result, error) {
			return h.CreateTrainingProgram(ctx, h.actor, TrainingInput{})
		}, "Title is required."},
		{"invite bad email", func() (Result, error) {
			return h.InviteMember(ctx, h.actor, InviteInput{Email: "nope", Role: "member"})
		}, "email"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.run()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.OK() {
				t.Fatal("expected a validation message")
			}
			if !strings.Contains(res.Error, tc.want) {
				t.Errorf("Error = %q, want it to contain %q", res.Error, tc.want)
			}
		})
	}

	if h.w.n != 0 {
		t.Errorf("store writes = %d, want 0", h.w.n)
	}
	if len(h.audit.events) != 0 {
		t.Errorf("audit events = %d, want 0", len(h.audit.events))
	}
	if got := h.mutations("risk.create", "invalid"); got != 2 {
		t.Errorf("risk.create invalid = %v, want 2", got)
	}
}

func TestCreateRisk(t *testing.T) {
	h := newHarness(t)

	res, err := h.CreateRisk(context.Background(), h.actor, RiskInput{
		Title:      "  Ransomware on file server ",
		Likelihood: 4,
		Impact:     5,
	})
	if err != nil || !res.OK() {
		t.Fatalf("CreateRisk = %+v, %v", res, err)
	}

	id, _ := primitive.ObjectIDFromHex(res.ID)
	r := h.risks.rows[id]
	if r.Score != 20 {
		t.Errorf("Score = %d, want 20", r.Score)
	}
	if r.Title != "Ransomware on file server" {
		t.Errorf("Title = %q, want trimmed", r.Title)
	}
	if r.Treatment != models.TreatmentMitigate || r.Status != models.RiskIdentified {
		t.Errorf("defaults = %q/%q", r.Treatment, r.Status)
	}
	if r.OrganizationID != h.actor.OrgID {
		t.Error("risk not scoped to the actor's organization")
	}

	ev, ok := h.audit.last()
	if !ok || ev.eventType != "risk.create" || ev.entity != "risk" {
		t.Fatalf("audit = %+v", ev)
	}
	if ev.diff["score"] != " → 20" {
		t.Errorf("diff[score] = %q", ev.diff["score"])
	}
	if got := h.waitInvalidated(t); got != h.actor.OrgID.Hex() {
		t.Errorf("invalidated %q, want %q", got, h.actor.OrgID.Hex())
	}
	if got := h.mutations("risk.create", "ok"); got != 1 {
		t.Errorf("risk.create ok = %v, want 1", got)
	}
}

func TestStorageErrorIsReturned(t *testing.T) {
	h := newHarness(t)
	h.risks.err = errors.New("connection reset")

	res, err := h.CreateRisk(context.Background(), h.actor, RiskInput{Title: "x", Likelihood: 1, Impact: 1})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !res.OK() {
		t.Errorf("storage failures are not validation messages, got %q", res.Error)
	}
	if got := h.mutations("risk.create", "error"); got != 1 {
		t.Errorf("risk.create error = %v, want 1", got)
	}
}

func TestTransitionRisk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, _ := h.CreateRisk(ctx, h.actor, RiskInput{Title: "Vendor outage", Likelihood: 2, Impact: 3})
	id, _ := primitive.ObjectIDFromHex(res.ID)

	if res, err := h.TransitionRisk(ctx, h.actor, res.ID, models.RiskAccepted, ""); err != nil || !res.OK() {
		t.Fatalf("accept = %+v, %v", res, err)
	}
	if got := h.risks.rows[id].Treatment; got != models.TreatmentAccept {
		t.Errorf("Treatment = %q, want accept", got)
	}

	h.TransitionRisk(ctx, h.actor, res.ID, models.RiskClosed, "")
	bad, err := h.TransitionRisk(ctx, h.actor, res.ID, models.RiskTreated, "")
	if err != nil || bad.OK() {
		t.Fatalf("closed → treated should be refused, got %+v, %v", bad, err)
	}
	if reopened, _ := h.TransitionRisk(ctx, h.actor, res.ID, models.RiskIdentified, ""); !reopened.OK() {
		t.Errorf("reopen = %q", reopened.Error)
	}

	other := Actor{UserID: h.actor.UserID, OrgID: primitive.NewObjectID()}
	cross, err := h.TransitionRisk(ctx, other, res.ID, models.RiskAssessed, "")
	if err != nil || cross.Error != "That risk no longer exists." {
		t.Errorf("cross-tenant transition = %+v, %v", cross, err)
	}
}

func TestTransitionCAPARequiresRootCause(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, _ := h.CreateCAPA(ctx, h.actor, CAPAInput{Title: "Restore test failed", Kind: models.CAPACorrective})

	got, err := h.TransitionCAPA(ctx, h.actor, res.ID, models.CAPAClosed, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Error != "Record the root cause before closing." {
		t.Errorf("Error = %q", got.Error)
	}

	got, err = h.TransitionCAPA(ctx, h.actor, res.ID, models.CAPAClosed, "Backup job lacked monitoring")
	if err != nil || !got.OK() {
		t.Fatalf("close with root cause = %+v, %v", got, err)
	}
	id, _ := primitive.ObjectIDFromHex(res.ID)
	if c := h.capas.rows[id]; c.Status != models.CAPAClosed || c.RootCause == "" {
		t.Errorf("capa = %+v", c)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return base }

	res, err := h.CreateDocument(ctx, h.actor, DocumentInput{
		Title: "Access Control Policy",
		Kind:  "policy",
		Body:  `<p>All access is reviewed quarterly.</p><script>alert(1)</script>`,
	})
	if err != nil || !res.OK() {
		t.Fatalf("CreateDocument = %+v, %v", res, err)
	}
	id, _ := primitive.ObjectIDFromHex(res.ID)
	if strings.Contains(h.docs.rows[id].Body, "<script>") {
		t.Error("body was not sanitized")
	}

	if bad, _ := h.TransitionDocument(ctx, h.actor, res.ID, models.DocumentApproved); bad.OK() {
		t.Fatal("draft → approved should be refused")
	}

	steps := []string{models.DocumentInReview, models.DocumentApproved}
	for _, to := range steps {
		if r, err := h.TransitionDocument(ctx, h.actor, res.ID, to); err != nil || !r.OK() {
			t.Fatalf("→ %s = %+v, %v", to, r, err)
		}
	}
	d := h.docs.rows[id]
	if d.Version != 1 || d.ApprovedAt == nil || *d.ApprovedBy != h.actor.UserID {
		t.Fatalf("first approval = %+v", d)
	}

	for _, to := range []string{models.DocumentInReview, models.DocumentApproved} {
		if r, err := h.TransitionDocument(ctx, h.actor, res.ID, to); err != nil || !r.OK() {
			t.Fatalf("→ %s = %+v, %v", to, r, err)
		}
	}
	if v := h.docs.rows[id].Version; v != 2 {
		t.Errorf("Version after re-approval = %d, want 2", v)
	}
}

func TestCreateEvidenceRetriesReference(t *testing.T) {
	h := newHarness(t)
	impl := models.ControlImplementation{ID: primitive.NewObjectID(), OrganizationID: h.actor.OrgID}
	h.controls.rows[impl.ID] = impl
	h.evidence.dupsFirst = 2

	res, err := h.CreateEvidence(context.Background(), h.actor, EvidenceInput{
		Title:            "Q1 access review export",
		ImplementationID: impl.ID.Hex(),
	})
	if err != nil || !res.OK() {
		t.Fatalf("CreateEvidence = %+v, %v", res, err)
	}
	id, _ := primitive.ObjectIDFromHex(res.ID)
	if ref := h.evidence.rows[id].Reference; !strings.HasPrefix(ref, "EV-") || len(ref) != 11 {
		t.Errorf("Reference = %q", ref)
	}
}

func TestNewReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref := NewReference()
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
		if ref != strings.ToUpper(ref) {
			t.Errorf("%q is not upper case", ref)
		}
	}
}

func TestActivateFramework(t *testing.T) {
	h := newHarness(t)

	res, err := h.ActivateFramework(context.Background(), h.actor, h.framework.ID.Hex())
	if err != nil || !res.OK() {
		t.Fatalf("ActivateFramework = %+v, %v", res, err)
	}
	if res.Created != 5 {
		t.Errorf("Created = %d, want 5", res.Created)
	}
	if len(h.seeder.calls) != 2 {
		t.Errorf("seeder calls = %v", h.seeder.calls)
	}

	miss, err := h.ActivateFramework(context.Background(), h.actor, primitive.NewObjectID().Hex())
	if err != nil || miss.OK() {
		t.Errorf("unknown framework = %+v, %v", miss, err)
	}
}

func TestAssessmentCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.CreateAssessment(ctx, h.actor, AssessmentInput{FrameworkID: h.framework.ID.Hex(), Title: "2026 internal audit"})
	if err != nil || !res.OK() {
		t.Fatalf("CreateAssessment = %+v, %v", res, err)
	}
	asmtID, _ := primitive.ObjectIDFromHex(res.ID)

	entry := models.SoAEntry{
		ID:             primitive.NewObjectID(),
		OrganizationID: h.actor.OrgID,
		AssessmentID:   asmtID,
		Applicability:  models.SoAUndecided,
	}
	h.soa.rows[entry.ID] = entry

	ex, _ := h.UpdateSoAEntry(ctx, h.actor, SoAInput{EntryID: entry.ID.Hex(), Applicability: models.SoAExcluded})
	if ex.OK() {
		t.Error("exclusion without justification should be refused")
	}

	h.Scorer = fakeScorer{undecided: 3}
	if r, _ := h.CompleteAssessment(ctx, h.actor, res.ID); r.OK() {
		t.Error("completion with undecided entries should be refused")
	}

	h.Scorer = fakeScorer{score: 75}
	if r, err := h.CompleteAssessment(ctx, h.actor, res.ID); err != nil || !r.OK() {
		t.Fatalf("CompleteAssessment = %+v, %v", r, err)
	}
	if a := h.asmts.rows[asmtID]; a.Score == nil || *a.Score != 75 {
		t.Errorf("Score = %v", a.Score)
	}

	frozen, _ := h.UpdateSoAEntry(ctx, h.actor, SoAInput{
		EntryID:       entry.ID.Hex(),
		Applicability: models.SoAApplicable,
	})
	if frozen.OK() {
		t.Error("entries of a completed assessment should be frozen")
	}
}

func TestLastOwnerGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	h.members.Upsert(ctx, owner, h.actor.OrgID, models.RoleOwner)
	h.w.n = 0

	for name, run := range map[string]func() (Result, error){
		"demote":     func() (Result, error) { return h.ChangeRole(ctx, h.actor, owner.Hex(), models.RoleAdmin) },
		"deactivate": func() (Result, error) { return h.DeactivateMember(ctx, h.actor, owner.Hex()) },
	} {
		res, err := run()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if res.Error != "An organization needs at least one owner." {
			t.Errorf("%s: Error = %q", name, res.Error)
		}
	}
	if h.w.n != 0 {
		t.Errorf("store writes = %d, want 0", h.w.n)
	}

	second := primitive.NewObjectID()
	h.members.Upsert(ctx, second, h.actor.OrgID, models.RoleOwner)
	if res, err := h.ChangeRole(ctx, h.actor, owner.Hex(), models.RoleAdmin); err != nil || !res.OK() {
		t.Fatalf("demote with two owners = %+v, %v", res, err)
	}
	if ev, _ := h.audit.last(); ev.diff["role"] != "owner → admin" {
		t.Errorf("diff = %v", ev.diff)
	}
}

func TestInviteAndAccept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.orgs.rows[h.actor.OrgID] = models.Organization{ID: h.actor.OrgID, Slug: "acme", Name: "Acme"}

	invitee := models.User{ID: primitive.NewObjectID(), Email: "Dana@Example.com"}
	h.users.rows[invitee.ID] = invitee

	res, err := h.InviteMember(ctx, h.actor, InviteInput{Email: "dana@example.com", Role: models.RoleAuditor})
	if err != nil || !res.OK() {
		t.Fatalf("InviteMember = %+v, %v", res, err)
	}
	if res.Token == "" {
		t.Fatal("no token returned")
	}

	stranger := models.User{ID: primitive.NewObjectID(), Email: "someone@else.com"}
	h.users.rows[stranger.ID] = stranger
	if r, _ := h.AcceptInvitation(ctx, stranger.ID, res.Token); r.OK() {
		t.Error("a different user should not accept the invitation")
	}

	acc, err := h.AcceptInvitation(ctx, invitee.ID, res.Token)
	if err != nil || !acc.OK() {
		t.Fatalf("AcceptInvitation = %+v, %v", acc, err)
	}
	if acc.ID != h.actor.OrgID.Hex() {
		t.Errorf("ID = %q, want the organization id", acc.ID)
	}
	m, err := h.members.GetActive(ctx, invitee.ID, h.actor.OrgID)
	if err != nil || m.Role != models.RoleAuditor {
		t.Errorf("membership = %+v, %v", m, err)
	}

	again, _ := h.AcceptInvitation(ctx, invitee.ID, res.Token)
	if again.Error != "This invitation has already been used or withdrawn." {
		t.Errorf("second accept = %q", again.Error)
	}

	dup, _ := h.InviteMember(ctx, h.actor, InviteInput{Email: invitee.Email, Role: models.RoleMember})
	if !strings.Contains(dup.Error, "already a member") {
		t.Errorf("re-invite = %q", dup.Error)
	}

	if bad, _ := h.AcceptInvitation(ctx, invitee.ID, "not-a-token"); bad.OK() {
		t.Error("garbage token accepted")
	}
}

func TestAcceptInvitation_RetryAfterStoreFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.orgs.rows[h.actor.OrgID] = models.Organization{ID: h.actor.OrgID, Slug: "acme", Name: "Acme"}
	invitee := models.User{ID: primitive.NewObjectID(), Email: "dana@example.com"}
	h.users.rows[invitee.ID] = invitee

	inv, err := h.InviteMember(ctx, h.actor, InviteInput{Email: invitee.Email, Role: models.RoleMember})
	if err != nil || !inv.OK() {
		t.Fatalf("InviteMember = %+v, %v", inv, err)
	}

	h.members.upsertErr = errors.New("transient store failure")
	if _, err := h.AcceptInvitation(ctx, invitee.ID, inv.Token); err == nil {
		t.Fatal("expected the store error to be returned")
	}
	for _, row := range h.invites.rows {
		if row.Status != models.InvitePending {
			t.Fatalf("invitation status = %q after failed accept, want pending", row.Status)
		}
	}

	res, err := h.AcceptInvitation(ctx, invitee.ID, inv.Token)
	if err != nil || !res.OK() {
		t.Fatalf("retry = %+v, %v", res, err)
	}
	if _, err := h.members.GetActive(ctx, invitee.ID, h.actor.OrgID); err != nil {
		t.Errorf("membership after retry: %v", err)
	}
	for _, row := range h.invites.rows {
		if row.Status != models.InviteAccepted {
			t.Errorf("invitation status = %q, want accepted", row.Status)
		}
	}
}

func TestChangeRole_OwnerRoleNeedsOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	member := primitive.NewObjectID()
	h.members.Upsert(ctx, owner, h.actor.OrgID, models.RoleOwner)
	h.members.Upsert(ctx, h.actor.UserID, h.actor.OrgID, models.RoleOwner)
	h.members.Upsert(ctx, member, h.actor.OrgID, models.RoleMember)
	h.w.n = 0

	admin := h.actor
	admin.Role = models.RoleAdmin
	for name, run := range map[string]func() (Result, error){
		"promote": func() (Result, error) { return h.ChangeRole(ctx, admin, member.Hex(), models.RoleOwner) },
		"demote":  func() (Result, error) { return h.ChangeRole(ctx, admin, owner.Hex(), models.RoleMember) },
	} {
		res, err := run()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if res.Error != "Only an owner can grant or remove the owner role." {
			t.Errorf("%s: Error = %q", name, res.Error)
		}
	}
	if h.w.n != 0 {
		t.Errorf("store writes = %d, want 0", h.w.n)
	}

	if res, err := h.ChangeRole(ctx, admin, member.Hex(), models.RoleAuditor); err != nil || !res.OK() {
		t.Errorf("admin sets auditor = %+v, %v", res, err)
	}
	if res, err := h.ChangeRole(ctx, h.actor, member.Hex(), models.RoleOwner); err != nil || !res.OK() {
		t.Errorf("owner promotes = %+v, %v", res, err)
	}
}

func TestCreateOrganization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := primitive.NewObjectID()

	res, err := h.CreateOrganization(ctx, admin, OrganizationInput{Name: "Acme Health, Inc."})
	if err != nil || !res.OK() {
		t.Fatalf("CreateOrganization = %+v, %v", res, err)
	}
	id, _ := primitive.ObjectIDFromHex(res.ID)
	if got := h.orgs.rows[id].Slug; got != "acme-health-inc" {
		t.Errorf("slug = %q", got)
	}

	dup, _ := h.CreateOrganization(ctx, admin, OrganizationInput{Name: "Acme Health Inc"})
	if !strings.Contains(dup.Error, "already exists") {
		t.Errorf("duplicate = %q", dup.Error)
	}
	reserved, _ := h.CreateOrganization(ctx, admin, OrganizationInput{Name: "Admin"})
	if !strings.Contains(reserved.Error, "reserved") {
		t.Errorf("reserved = %q", reserved.Error)
	}

	if r, err := h.SoftDeleteOrganization(ctx, admin, res.ID); err != nil || !r.OK() {
		t.Fatalf("SoftDeleteOrganization = %+v, %v", r, err)
	}
	if !h.orgs.rows[id].IsDeleted() {
		t.Error("organization not soft-deleted")
	}
	if r, err := h.RestoreOrganization(ctx, admin, res.ID); err != nil || !r.OK() {
		t.Fatalf("RestoreOrganization = %+v, %v", r, err)
	}
}

func TestRecordCompletionRequiresMember(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, _ := h.CreateTrainingProgram(ctx, h.actor, TrainingInput{Title: "Security awareness 2026"})

	notMember, err := h.RecordCompletion(ctx, h.actor, res.ID, "")
	if err != nil || notMember.OK() {
		t.Fatalf("completion by non-member = %+v, %v", notMember, err)
	}

	h.members.Upsert(ctx, h.actor.UserID, h.actor.OrgID, models.RoleMember)
	if r, err := h.RecordCompletion(ctx, h.actor, res.ID, ""); err != nil || !r.OK() {
		t.Fatalf("RecordCompletion = %+v, %v", r, err)
	}
	if n := len(h.training.completions); n != 1 || h.training.completions[0].UserID != h.actor.UserID {
		t.Errorf("completions = %+v", h.training.completions)
	}
}
