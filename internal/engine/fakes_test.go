package engine_test

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/compliance"
	"github.com/unclebandit/salesloop-backend/internal/config"
	"github.com/unclebandit/salesloop-backend/internal/engine"
	appErrors "github.com/unclebandit/salesloop-backend/internal/errors"
	"github.com/unclebandit/salesloop-backend/internal/events"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/ramp"
	"github.com/unclebandit/salesloop-backend/internal/schedule"
	"github.com/unclebandit/salesloop-backend/internal/sender"
)

// ---- in-memory step repository ----

type memStepRepo struct {
	mu     sync.Mutex
	nextID int64
	steps  map[int64]*model.ScheduledStep

	// approvals mirrors the ON DELETE CASCADE from approval_items to
	// scheduled_steps in the real schema.
	approvals *memApprovalRepo
}

func newMemStepRepo() *memStepRepo {
	return &memStepRepo{steps: map[int64]*model.ScheduledStep{}}
}

func (m *memStepRepo) Create(_ context.Context, s *model.ScheduledStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	if s.Status == "" {
		s.Status = model.StatusPending
	}
	cp := *s
	m.steps[s.ID] = &cp
	return nil
}

func (m *memStepRepo) GetByID(_ context.Context, id int64) (*model.ScheduledStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.steps[id]
	if !ok {
		return nil, appErrors.NewStepNotFound(id)
	}
	cp := *s
	return &cp, nil
}

func (m *memStepRepo) Update(_ context.Context, s *model.ScheduledStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.steps[s.ID] = &cp
	return nil
}

func (m *memStepRepo) ListDueCampaignIDs(_ context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	ids := []int64{}
	for _, s := range m.steps {
		if (s.Status == model.StatusPending || s.Status == model.StatusApproved) &&
			!s.ScheduledAt.After(now) && !seen[s.CampaignID] {
			seen[s.CampaignID] = true
			ids = append(ids, s.CampaignID)
		}
	}
	return ids, nil
}

func (m *memStepRepo) ListDueByCampaign(_ context.Context, campaignID int64, now time.Time) ([]*model.ScheduledStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []*model.ScheduledStep{}
	for _, s := range m.steps {
		if s.CampaignID == campaignID &&
			(s.Status == model.StatusPending || s.Status == model.StatusApproved) &&
			!s.ScheduledAt.After(now) {
			cp := *s
			due = append(due, &cp)
		}
	}
	// Order by (step index, scheduled time, id) like the SQL query.
	for i := 0; i < len(due); i++ {
		for j := i + 1; j < len(due); j++ {
			a, b := due[i], due[j]
			if b.StepIndex < a.StepIndex ||
				(b.StepIndex == a.StepIndex && b.ScheduledAt.Before(a.ScheduledAt)) ||
				(b.StepIndex == a.StepIndex && b.ScheduledAt.Equal(a.ScheduledAt) && b.ID < a.ID) {
				due[i], due[j] = due[j], due[i]
			}
		}
	}
	return due, nil
}

func (m *memStepRepo) CountExecutedSince(_ context.Context, workspaceID string, ch model.Channel, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.steps {
		if s.WorkspaceID == workspaceID && s.Channel == ch && s.ExecutedAt != nil && !s.ExecutedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memStepRepo) FirstActionAt(_ context.Context, workspaceID string, ch model.Channel) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first *time.Time
	for _, s := range m.steps {
		if s.WorkspaceID == workspaceID && s.Channel == ch {
			t := s.ScheduledAt
			if first == nil || t.Before(*first) {
				first = &t
			}
		}
	}
	return first, nil
}

func (m *memStepRepo) CountScheduledBetween(_ context.Context, workspaceID string, ch model.Channel, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.steps {
		if s.WorkspaceID == workspaceID && s.Channel == ch &&
			!s.ScheduledAt.Before(from) && s.ScheduledAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (m *memStepRepo) DeletePendingByContact(_ context.Context, campaignID, contactID, exceptStepID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, s := range m.steps {
		if s.CampaignID == campaignID && s.ContactID == contactID && id != exceptStepID &&
			(s.Status == model.StatusPending || s.Status == model.StatusRequiresApproval || s.Status == model.StatusApproved) {
			delete(m.steps, id)
			if m.approvals != nil {
				m.approvals.deleteByStepID(id)
			}
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStepRepo) ExistsForContact(_ context.Context, campaignID, contactID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.steps {
		if s.CampaignID == campaignID && s.ContactID == contactID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStepRepo) ExistsForChannel(_ context.Context, campaignID int64, ch model.Channel) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.steps {
		if s.CampaignID == campaignID && s.Channel == ch {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStepRepo) GetStatusStats(_ context.Context, campaignID int64) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{}
	for _, s := range m.steps {
		if s.CampaignID == campaignID {
			stats[string(s.Status)]++
			stats["total"]++
		}
	}
	return stats, nil
}

func (m *memStepRepo) all() []*model.ScheduledStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ScheduledStep{}
	for _, s := range m.steps {
		cp := *s
		out = append(out, &cp)
	}
	return out
}

// ---- in-memory approval repository ----

type memApprovalRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.ApprovalItem
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{items: map[int64]*model.ApprovalItem{}}
}

func (m *memApprovalRepo) Create(_ context.Context, item *model.ApprovalItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item.ID = m.nextID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memApprovalRepo) GetByStepID(_ context.Context, stepID int64) (*model.ApprovalItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.ApprovalItem
	for _, a := range m.items {
		if a.StepID == stepID && (latest == nil || a.ID > latest.ID) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memApprovalRepo) Resolve(_ context.Context, stepID int64, status model.ApprovalStatus, resolvedBy string, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.StepID == stepID && a.Status == model.ApprovalPending {
			a.Status = status
			a.ResolvedBy = resolvedBy
			a.ResolvedAt = &resolvedAt
		}
	}
	return nil
}

func (m *memApprovalRepo) deleteByStepID(stepID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.items {
		if a.StepID == stepID {
			delete(m.items, id)
		}
	}
}

func (m *memApprovalRepo) ListUnresolved(_ context.Context, workspaceID string) ([]*model.ApprovalItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ApprovalItem{}
	for _, a := range m.items {
		if a.WorkspaceID == workspaceID && a.Status == model.ApprovalPending {
			cp := *a
			out = append(out, &cp)
		}
	}
	// Newest first.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID > out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// ---- in-memory run / contact / campaign / workspace repositories ----

type memRunRepo struct {
	mu   sync.Mutex
	runs map[string]*model.ExecutionRun
}

func newMemRunRepo() *memRunRepo { return &memRunRepo{runs: map[string]*model.ExecutionRun{}} }

func (m *memRunRepo) Create(_ context.Context, run *model.ExecutionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.StartedAt = time.Now()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRunRepo) Finalize(_ context.Context, run *model.ExecutionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	run.CompletedAt = &now
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRunRepo) get(id string) *model.ExecutionRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

type memContactRepo struct {
	mu       sync.Mutex
	contacts map[int64]*model.Contact
	members  map[int64]map[int64]bool // campaignID → contactID set
}

func newMemContactRepo() *memContactRepo {
	return &memContactRepo{contacts: map[int64]*model.Contact{}, members: map[int64]map[int64]bool{}}
}

func (m *memContactRepo) add(campaignID int64, c *model.Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	if m.members[campaignID] == nil {
		m.members[campaignID] = map[int64]bool{}
	}
	m.members[campaignID][c.ID] = true
}

func (m *memContactRepo) GetByID(_ context.Context, id int64) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, appErrors.NewContactNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *memContactRepo) ListByCampaign(_ context.Context, campaignID int64) ([]model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Contact{}
	for id := range m.members[campaignID] {
		if c, ok := m.contacts[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memContactRepo) RemoveFromCampaign(_ context.Context, campaignID, contactID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[campaignID], contactID)
	return nil
}

func (m *memContactRepo) isMember(campaignID, contactID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[campaignID][contactID]
}

type memCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int64]*model.Campaign
	templates map[int64][]model.StepTemplate
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{campaigns: map[int64]*model.Campaign{}, templates: map[int64][]model.StepTemplate{}}
}

func (m *memCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memCampaignRepo) GetByID(_ context.Context, id int64) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignRepo) UpdateStatus(_ context.Context, id int64, status model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (m *memCampaignRepo) ListActive(_ context.Context) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Status == model.CampaignActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCampaignRepo) ListTemplates(_ context.Context, campaignID int64) ([]model.StepTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StepTemplate{}, m.templates[campaignID]...), nil
}

type memWorkspaceRepo struct {
	configs map[string]*model.AutonomyConfig
}

func (m *memWorkspaceRepo) GetAutonomyConfig(_ context.Context, workspaceID string) (*model.AutonomyConfig, error) {
	if m.configs == nil {
		return nil, nil
	}
	return m.configs[workspaceID], nil
}

// ---- fake sender ----

type fakeSender struct {
	mu    sync.Mutex
	sends []sendCall
	fn    func(ch model.Channel, recipient string) (*sender.Result, error)
}

type sendCall struct {
	channel   model.Channel
	recipient string
	subject   string
	content   string
}

func (f *fakeSender) Send(_ context.Context, ch model.Channel, recipient, subject, content string) (*sender.Result, error) {
	f.mu.Lock()
	f.sends = append(f.sends, sendCall{channel: ch, recipient: recipient, subject: subject, content: content})
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ch, recipient)
	}
	return &sender.Result{MessageID: "msg-ok"}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

// ---- harness ----

// fixedNow is noon UTC, inside the default [9, 17) window.
var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type harness struct {
	steps      *memStepRepo
	approvals  *memApprovalRepo
	runs       *memRunRepo
	contacts   *memContactRepo
	campaigns  *memCampaignRepo
	workspaces *memWorkspaceRepo
	sender     *fakeSender

	executor *engine.Executor
	runner   *engine.Runner
	queue    *engine.Approvals
	enqueuer *engine.Enqueuer
}

func now() time.Time { return fixedNow }

func newHarness() *harness {
	h := &harness{
		steps:      newMemStepRepo(),
		approvals:  newMemApprovalRepo(),
		runs:       newMemRunRepo(),
		contacts:   newMemContactRepo(),
		campaigns:  newMemCampaignRepo(),
		workspaces: &memWorkspaceRepo{configs: map[string]*model.AutonomyConfig{}},
		sender:     &fakeSender{},
	}

	h.steps.approvals = h.approvals

	hours := config.HoursConfig{WindowStart: 9, WindowEnd: 17, LocalOffsetHours: 0}
	limiter := ramp.New(nil)
	placer := schedule.NewPlacer(now, rand.New(rand.NewSource(1)))
	gate := compliance.NewGate(h.steps, limiter, 5, hours, now, zap.NewNop())

	h.queue = &engine.Approvals{Steps: h.steps, Items: h.approvals, Log: zap.NewNop(), Now: now}
	h.executor = &engine.Executor{
		Steps:          h.steps,
		Contacts:       h.contacts,
		Approvals:      h.queue,
		Gate:           gate,
		Sender:         h.sender,
		Placer:         placer,
		Events:         events.NopEmitter{},
		Hours:          hours,
		TransientRetry: 15 * time.Minute,
		Log:            zap.NewNop(),
		Now:            now,
	}
	h.runner = &engine.Runner{
		Campaigns:  h.campaigns,
		Workspaces: h.workspaces,
		Steps:      h.steps,
		Runs:       h.runs,
		Executor:   h.executor,
		Events:     events.NopEmitter{},
		DefaultAutonomy: model.AutonomyConfig{
			Level:               model.AutonomySemiAutonomous,
			ConfidenceThreshold: 80,
		},
		Sleep: func(time.Duration) {},
		Rng:   rand.New(rand.NewSource(2)),
		Log:   zap.NewNop(),
		Now:   now,
	}
	h.enqueuer = &engine.Enqueuer{
		Campaigns: h.campaigns,
		Steps:     h.steps,
		Placer:    placer,
		Limiter:   limiter,
		Hours:     hours,
		Log:       zap.NewNop(),
		Now:       now,
	}
	return h
}

func (h *harness) addCampaign(id int64, ws string, deployed bool) *model.Campaign {
	c := &model.Campaign{ID: id, WorkspaceID: ws, Name: "test", Status: model.CampaignActive, DeployedByUser: deployed}
	_ = h.campaigns.Create(context.Background(), c)
	return c
}

func (h *harness) addContact(campaignID, id int64, ws string) *model.Contact {
	c := &model.Contact{
		ID: id, WorkspaceID: ws,
		Email: "lead@example.com", Phone: "+15550100",
		ProfileURL: "https://network.example/in/lead",
		FirstName:  "Ada", LastName: "Lovelace", Company: "Analytical Engines",
	}
	h.contacts.add(campaignID, c)
	return c
}

func (h *harness) addStep(campaignID, contactID int64, ws string, ch model.Channel, status model.StepStatus) *model.ScheduledStep {
	s := &model.ScheduledStep{
		CampaignID:  campaignID,
		ContactID:   contactID,
		WorkspaceID: ws,
		Channel:     ch,
		Content:     "Hi {first_name}, quick question about {company}.",
		ScheduledAt: fixedNow.Add(-time.Hour),
		Status:      status,
	}
	_ = h.steps.Create(context.Background(), s)
	return s
}
