package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/metrics"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
)

// memStore backs the in-memory repositories. Its mutex plays the role of the
// row lock taken by ApplyTransition.
type memStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.ViewingRequest
	releases map[uuid.UUID]*models.PaymentRelease
	paid     map[uuid.UUID]bool
	now      func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		requests: map[uuid.UUID]*models.ViewingRequest{},
		releases: map[uuid.UUID]*models.PaymentRelease{},
		paid:     map[uuid.UUID]bool{},
		now:      time.Now,
	}
}

func (st *memStore) put(vr *models.ViewingRequest) *models.ViewingRequest {
	st.mu.Lock()
	defer st.mu.Unlock()
	if vr.RowVersion == 0 {
		vr.RowVersion = 1
	}
	st.requests[vr.ID] = vr.Clone()
	return vr
}

func (st *memStore) request(id uuid.UUID) *models.ViewingRequest {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.requests[id].Clone()
}

func (st *memStore) releaseFor(vrID uuid.UUID) *models.PaymentRelease {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, pr := range st.releases {
		if pr.ViewingRequestID == vrID {
			cp := *pr
			return &cp
		}
	}
	return nil
}

func (st *memStore) putRelease(pr *models.PaymentRelease) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if pr.RowVersion == 0 {
		pr.RowVersion = 1
	}
	cp := *pr
	st.releases[pr.ID] = &cp
}

// ---------------------------------------------------------------------------

type fakeViewingRepo struct {
	st       *memStore
	applyErr error
	listErr  error

	lastPaidOnly bool
}

var _ repositories.ViewingRequestRepository = (*fakeViewingRepo)(nil)

func (r *fakeViewingRepo) Create(_ context.Context, vr *models.ViewingRequest) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	vr.RowVersion = 1
	vr.CreatedAt = r.st.now()
	vr.UpdatedAt = vr.CreatedAt
	r.st.put(vr)
	return nil
}

func (r *fakeViewingRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ViewingRequest, error) {
	return r.st.request(id), nil
}

func (r *fakeViewingRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*models.ViewingRequest, error) {
	return r.filter(func(vr *models.ViewingRequest) bool { return vr.TenantID == tenantID })
}

func (r *fakeViewingRepo) ListByLandlord(_ context.Context, landlordID uuid.UUID, paidOnly bool) ([]*models.ViewingRequest, error) {
	r.lastPaidOnly = paidOnly
	return r.filter(func(vr *models.ViewingRequest) bool {
		return vr.LandlordID == landlordID && (!paidOnly || r.st.paid[vr.ID])
	})
}

func (r *fakeViewingRepo) List(_ context.Context, f repositories.ViewingRequestFilter) ([]*models.ViewingRequest, error) {
	return r.filter(func(vr *models.ViewingRequest) bool {
		if f.PropertyID != nil && vr.PropertyID != *f.PropertyID {
			return false
		}
		if len(f.Statuses) == 0 {
			return true
		}
		for _, s := range f.Statuses {
			if vr.Status == s {
				return true
			}
		}
		return false
	})
}

func (r *fakeViewingRepo) filter(keep func(*models.ViewingRequest) bool) ([]*models.ViewingRequest, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.ViewingRequest
	for _, vr := range r.st.requests {
		if keep(vr) {
			out = append(out, vr.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeViewingRepo) ApplyTransition(
	_ context.Context,
	id uuid.UUID,
	fn repositories.TransitionFunc,
) (*models.ViewingRequest, bool, error) {
	if r.applyErr != nil {
		return nil, false, r.applyErr
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored, ok := r.st.requests[id]
	if !ok {
		return nil, false, pgx.ErrNoRows
	}
	cur := stored.Clone()
	effect, err := fn(cur)
	if err != nil {
		return nil, false, err
	}
	if effect.Unchanged {
		return stored.Clone(), false, nil
	}

	cur.RowVersion++
	cur.UpdatedAt = r.st.now()
	r.st.requests[id] = cur.Clone()

	enqueued := false
	if effect.EnqueueRelease {
		exists := false
		for _, pr := range r.st.releases {
			if pr.ViewingRequestID == id {
				exists = true
				break
			}
		}
		if !exists {
			pr := &models.PaymentRelease{
				ID:               uuid.New(),
				ViewingRequestID: id,
				Status:           models.ReleaseStatusPending,
				NextAttemptAt:    r.st.now().Add(10 * time.Minute),
				CreatedAt:        r.st.now(),
			}
			pr.RowVersion = 1
			r.st.releases[pr.ID] = pr
			enqueued = true
		}
	}
	return cur.Clone(), enqueued, nil
}

// ---------------------------------------------------------------------------

type fakeReleaseRepo struct {
	st *memStore
}

var _ repositories.PaymentReleaseRepository = (*fakeReleaseRepo)(nil)

func (r *fakeReleaseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PaymentRelease, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	pr, ok := r.st.releases[id]
	if !ok {
		return nil, nil
	}
	cp := *pr
	return &cp, nil
}

func (r *fakeReleaseRepo) GetByViewingRequestID(_ context.Context, vrID uuid.UUID) (*models.PaymentRelease, error) {
	return r.st.releaseFor(vrID), nil
}

func (r *fakeReleaseRepo) ListByStatus(_ context.Context, statuses []models.ReleaseStatusType, _ int) ([]*models.PaymentRelease, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.PaymentRelease
	for _, pr := range r.st.releases {
		for _, s := range statuses {
			if pr.Status == s {
				cp := *pr
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (r *fakeReleaseRepo) ClaimDue(_ context.Context, now, leaseUntil time.Time, limit int) ([]*models.PaymentRelease, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.PaymentRelease
	for _, pr := range r.st.releases {
		if len(out) >= limit {
			break
		}
		if pr.Status != models.ReleaseStatusPending && pr.Status != models.ReleaseStatusDeferred {
			continue
		}
		if pr.NextAttemptAt.After(now) {
			continue
		}
		pr.NextAttemptAt = leaseUntil
		pr.RowVersion++
		cp := *pr
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeReleaseRepo) UpdateIfVersion(_ context.Context, pr *models.PaymentRelease, expected int64) (pgconn.CommandTag, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.releases[pr.ID]
	if !ok || cur.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	cp := *pr
	cp.RowVersion = expected + 1
	r.st.releases[pr.ID] = &cp
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *fakeReleaseRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.PaymentRelease) error) error {
	return repositories.WithRetry(ctx, 3, id.String(),
		func(ctx context.Context, id string) (*models.PaymentRelease, error) {
			return r.GetByID(ctx, uuid.MustParse(id))
		},
		r.UpdateIfVersion,
		mutate,
	)
}

// ---------------------------------------------------------------------------

type fakePropertyRepo struct {
	mu    sync.Mutex
	props map[uuid.UUID]*models.Property
}

func newFakePropertyRepo(props ...*models.Property) *fakePropertyRepo {
	r := &fakePropertyRepo{props: map[uuid.UUID]*models.Property{}}
	for _, p := range props {
		r.props[p.ID] = p
	}
	return r
}

func (r *fakePropertyRepo) Create(_ context.Context, p *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.props[p.ID] = p
	return nil
}

func (r *fakePropertyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.props[id], nil
}

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*models.Profile
}

func (r *fakeProfileRepo) Create(_ context.Context, p *models.Profile) error {
	r.profiles[p.ID] = p
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.profiles[id], nil
}

type fakeTransactionRepo struct {
	mu       sync.Mutex
	txns     map[uuid.UUID]*models.Transaction
	released map[uuid.UUID]string
}

func (r *fakeTransactionRepo) Create(_ context.Context, t *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns[t.ViewingRequestID] = t
	return nil
}

func (r *fakeTransactionRepo) GetByViewingRequestID(_ context.Context, vrID uuid.UUID) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[vrID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTransactionRepo) MarkReleased(_ context.Context, id uuid.UUID, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.txns {
		if t.ID == id && t.EscrowStatus == models.EscrowStatusHeld {
			t.EscrowStatus = models.EscrowStatusReleased
			t.ReleaseReference = &ref
			r.released[id] = ref
		}
	}
	return nil
}

// ---------------------------------------------------------------------------

type fakeReleaser struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	err   error
}

func newFakeReleaser() *fakeReleaser {
	return &fakeReleaser{calls: map[uuid.UUID]int{}}
}

func (f *fakeReleaser) Release(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	return f.err
}

func (f *fakeReleaser) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeReleaser) count(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type notification struct {
	kind string
	vrID uuid.UUID
	by   models.ActorRole
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (f *fakeNotifier) add(n notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, n)
}

func (f *fakeNotifier) has(kind string, vrID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.kind == kind && e.vrID == vrID {
			return true
		}
	}
	return false
}

func (f *fakeNotifier) NotifyScheduled(_ context.Context, vr *models.ViewingRequest) {
	f.add(notification{kind: "scheduled", vrID: vr.ID})
}

func (f *fakeNotifier) NotifyCancelled(_ context.Context, vr *models.ViewingRequest, by models.ActorRole) {
	f.add(notification{kind: "cancelled", vrID: vr.ID, by: by})
}

func (f *fakeNotifier) NotifyConfirmed(_ context.Context, vr *models.ViewingRequest, by models.ActorRole) {
	f.add(notification{kind: "confirmed", vrID: vr.ID, by: by})
}

func (f *fakeNotifier) NotifyReleaseFailed(_ context.Context, pr *models.PaymentRelease) {
	f.add(notification{kind: "release_failed", vrID: pr.ViewingRequestID})
}

type denyLocker struct{}

func (denyLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, false, nil
}

// ---------------------------------------------------------------------------

type harness struct {
	store    *memStore
	vrRepo   *fakeViewingRepo
	relRepo  *fakeReleaseRepo
	props    *fakePropertyRepo
	releaser *fakeReleaser
	notifier *fakeNotifier
	metrics  *metrics.Metrics
	retry    *ReleaseRetryService
	svc      *ViewingService
	now      time.Time
}

func newHarness() *harness {
	h := &harness{
		store:    newMemStore(),
		props:    newFakePropertyRepo(),
		releaser: newFakeReleaser(),
		notifier: &fakeNotifier{},
		metrics:  metrics.New(),
		now:      time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	h.store.now = func() time.Time { return h.now }
	h.vrRepo = &fakeViewingRepo{st: h.store}
	h.relRepo = &fakeReleaseRepo{st: h.store}
	h.retry = NewReleaseRetryService(h.relRepo, h.releaser, h.notifier, nil, h.metrics)
	h.retry.now = func() time.Time { return h.now }
	h.svc = NewViewingService(h.vrRepo, h.props, h.retry, h.notifier, h.metrics)
	h.svc.now = func() time.Time { return h.now }
	return h
}

func (h *harness) seed(status models.ViewingStatusType) *models.ViewingRequest {
	vr := newRequest(status)
	vr.CreatedAt = h.now
	return h.store.put(vr)
}
