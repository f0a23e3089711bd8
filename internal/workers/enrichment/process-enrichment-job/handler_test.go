package processenrichmentjob

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"catalog-enrichment/internal/attributes"
	"catalog-enrichment/internal/common/genai"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/models"
	"catalog-enrichment/internal/store"
	enrichproduct "catalog-enrichment/internal/workers/enrichment/enrich-product"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// memoryJobs applies the same guards as the SQL job store.
type memoryJobs struct {
	mu       sync.Mutex
	nextID   int64
	jobs     map[int64]*models.EnrichmentJob
	progress map[int64][]float64
	failErr  error
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: map[int64]*models.EnrichmentJob{}, progress: map[int64][]float64{}}
}

func (m *memoryJobs) snapshot(job *models.EnrichmentJob) *models.EnrichmentJob {
	cp := *job
	cp.ProductIDs = append([]int64{}, job.ProductIDs...)
	return &cp
}

func (m *memoryJobs) Create(ctx context.Context, productIDs []int64) (*models.EnrichmentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job := &models.EnrichmentJob{ID: m.nextID, ProductIDs: productIDs, Status: models.JobStatusPending, CreatedAt: time.Now()}
	m.jobs[job.ID] = job
	return m.snapshot(job), nil
}

func (m *memoryJobs) Get(ctx context.Context, id int64) (*models.EnrichmentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.snapshot(job), nil
}

func (m *memoryJobs) update(id int64, allowed func(models.JobStatus) bool, apply func(*models.EnrichmentJob)) (*models.EnrichmentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || !allowed(job.Status) {
		return nil, store.ErrInvalidTransition
	}
	apply(job)
	job.UpdatedAt = time.Now()
	m.progress[id] = append(m.progress[id], job.Progress)
	return m.snapshot(job), nil
}

func raise(job *models.EnrichmentJob, p float64) {
	if p > job.Progress {
		job.Progress = p
	}
}

func (m *memoryJobs) MarkProcessing(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error) {
	return m.update(id, func(s models.JobStatus) bool { return s == models.JobStatusPending }, func(j *models.EnrichmentJob) {
		j.Status = models.JobStatusProcessing
		raise(j, progress)
	})
}

func (m *memoryJobs) UpdateProgress(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error) {
	return m.update(id, func(s models.JobStatus) bool { return s == models.JobStatusProcessing }, func(j *models.EnrichmentJob) {
		raise(j, progress)
	})
}

func (m *memoryJobs) Complete(ctx context.Context, id int64, result *models.JobResult) (*models.EnrichmentJob, error) {
	return m.update(id, func(s models.JobStatus) bool { return s == models.JobStatusProcessing }, func(j *models.EnrichmentJob) {
		j.Status = models.JobStatusCompleted
		j.Progress = 100
		j.Result = result
	})
}

func (m *memoryJobs) Fail(ctx context.Context, id int64, message string) (*models.EnrichmentJob, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	return m.update(id, func(s models.JobStatus) bool { return !s.IsTerminal() }, func(j *models.EnrichmentJob) {
		j.Status = models.JobStatusFailed
		j.Result = models.FailedResult(message)
	})
}

func (m *memoryJobs) FailUnfinished(ctx context.Context, message string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, job := range m.jobs {
		if !job.Status.IsTerminal() {
			job.Status = models.JobStatusFailed
			job.Result = models.FailedResult(message)
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryJobs) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, job := range m.jobs {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// memoryProducts merges enrichment the way the SQL store does: only into
// empty values of attributes that still exist.
type memoryProducts struct {
	mu       sync.Mutex
	products map[int64]models.Product
	known    map[string]bool
	loadErr  error
	saveErr  map[int64]error
}

func newMemoryProducts(products ...models.Product) *memoryProducts {
	m := &memoryProducts{products: map[int64]models.Product{}, known: map[string]bool{}, saveErr: map[int64]error{}}
	for _, a := range testSchema() {
		m.known[a.Name] = true
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memoryProducts) GetMany(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memoryProducts) SaveEnrichment(ctx context.Context, id int64, values models.AttributeValues) error {
	if err := m.saveErr[id]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return store.ErrNotFound
	}
	merged := p.Attributes.Clone()
	for name, v := range values {
		if m.known[name] && attributes.IsEmpty(merged[name]) {
			merged[name] = v
		}
	}
	p.Attributes = merged
	p.AIEnriched = true
	m.products[id] = p
	return nil
}

// edit stands in for a manual write that lands while a job is running.
func (m *memoryProducts) edit(id int64, name string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Attributes = p.Attributes.Clone()
	p.Attributes[name] = value
	m.products[id] = p
}

func (m *memoryProducts) dropAttribute(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.known, name)
	for id, p := range m.products {
		p.Attributes = p.Attributes.Clone()
		delete(p.Attributes, name)
		m.products[id] = p
	}
}

func (m *memoryProducts) get(id int64) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

type staticAttributes struct {
	attrs []models.Attribute
	err   error
}

func (s *staticAttributes) List(ctx context.Context) ([]models.Attribute, error) {
	return s.attrs, s.err
}

type scriptedEnricher struct {
	fail  map[int64]error
	panic bool
	seen  []enrichproduct.Input
}

func (s *scriptedEnricher) Execute(ctx context.Context, input *enrichproduct.Input) (*enrichproduct.Output, error) {
	if s.panic {
		panic("enricher exploded")
	}
	s.seen = append(s.seen, *input)
	if err := s.fail[input.Product.ID]; err != nil {
		return nil, err
	}
	values := input.Product.Attributes.Clone()
	values["Material"] = "Cotton"
	return &enrichproduct.Output{Attributes: values, Filled: []string{"Material"}}, nil
}

type syncPool struct{}

func (syncPool) Submit(task func()) error {
	task()
	return nil
}

type closedPool struct{}

func (closedPool) Submit(task func()) error {
	return ErrPoolClosed
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.EnrichmentJob
}

func (r *recordingPublisher) PublishJobEvent(ctx context.Context, job *models.EnrichmentJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, job)
	return nil
}

func testSchema() []models.Attribute {
	return []models.Attribute{
		{ID: 1, Name: "Color", Type: models.AttributeShortText, IsRequired: true},
		{ID: 2, Name: "Material", Type: models.AttributeShortText, IsRequired: true},
		{ID: 3, Name: "Notes", Type: models.AttributeLongText},
	}
}

func product(id int64, attrs models.AttributeValues) models.Product {
	return models.Product{ID: id, Name: "Product", Brand: "Brand", Attributes: attrs}
}

type fixture struct {
	handler   *Handler
	jobs      *memoryJobs
	products  *memoryProducts
	attrs     *staticAttributes
	enricher  *scriptedEnricher
	publisher *recordingPublisher
}

func newFixture(t *testing.T, pool Pool, products ...models.Product) *fixture {
	f := &fixture{
		jobs:      newMemoryJobs(),
		products:  newMemoryProducts(products...),
		attrs:     &staticAttributes{attrs: testSchema()},
		enricher:  &scriptedEnricher{fail: map[int64]error{}},
		publisher: &recordingPublisher{},
	}
	f.handler = NewHandler(LoadConfig(), Dependencies{
		Jobs:       f.jobs,
		Products:   f.products,
		Attributes: f.attrs,
		Enricher:   f.enricher,
		Pool:       pool,
		Publisher:  f.publisher,
	}, nil, logger.NewTestLogger(t))
	return f
}

type stubCompleter struct {
	response string
	during   func()
}

func (s stubCompleter) Complete(ctx context.Context, req genai.CompletionRequest) (string, error) {
	if s.during != nil {
		s.during()
	}
	return s.response, nil
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Submit_RunsJobToCompletion(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil), product(2, nil))
	f.enricher.fail[2] = errors.New("AI service returned empty response")

	job, err := f.handler.Submit(context.Background(), []int64{1, 2, 99})
	require.NoError(t, err)

	got, err := f.handler.Query(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.Progress)
	require.NotNil(t, got.Result)
	assert.Equal(t, 1, *got.Result.EnrichedCount)
	assert.Equal(t, 2, *got.Result.FailedCount)
	assert.Equal(t, 3, *got.Result.EnrichedCount+*got.Result.FailedCount)

	assert.True(t, f.products.get(1).AIEnriched)
	assert.Equal(t, "Cotton", f.products.get(1).Attributes["Material"])
	assert.False(t, f.products.get(2).AIEnriched)
}

func TestHandler_Run_ProgressIsMonotonic(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil), product(2, nil), product(3, nil))

	job, err := f.handler.Create(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.handler.Run(context.Background(), job.ID))

	history := f.jobs.progress[job.ID]
	require.Len(t, history, 5)
	expected := []float64{5, 5, 35, 65, 100}
	for i := range expected {
		assert.InDelta(t, expected[i], history[i], 0.0001)
	}
	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i], history[i-1])
	}
	for _, p := range history[:len(history)-1] {
		assert.Less(t, p, 100.0)
	}
}

func TestHandler_Run_PassesOnlyRequiredAttributes(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil))

	_, err := f.handler.Submit(context.Background(), []int64{1})
	require.NoError(t, err)

	require.Len(t, f.enricher.seen, 1)
	names := []string{}
	for _, a := range f.enricher.seen[0].Attributes {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Color", "Material"}, names)
}

func TestHandler_Run_WithEnrichProductHandler(t *testing.T) {
	jobs := newMemoryJobs()
	products := newMemoryProducts(
		product(1, models.AttributeValues{"Color": "Red"}),
		product(2, models.AttributeValues{"Color": "Green", "Material": "Wool"}),
	)
	enricher := enrichproduct.NewHandler(enrichproduct.LoadConfig(),
		stubCompleter{response: `{"Color": "Blue", "Material": "Cotton"}`}, logger.NewTestLogger(t))

	h := NewHandler(LoadConfig(), Dependencies{
		Jobs:       jobs,
		Products:   products,
		Attributes: &staticAttributes{attrs: testSchema()},
		Enricher:   enricher,
		Pool:       syncPool{},
	}, nil, logger.NewTestLogger(t))

	job, err := h.Submit(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	assert.Equal(t, models.AttributeValues{"Color": "Red", "Material": "Cotton"}, products.get(1).Attributes)
	assert.Equal(t, models.AttributeValues{"Color": "Green", "Material": "Wool"}, products.get(2).Attributes)
	assert.True(t, products.get(2).AIEnriched, "nothing to fill still counts as enriched")

	got, _ := h.Query(context.Background(), job.ID)
	assert.Equal(t, 2, *got.Result.EnrichedCount)
	assert.Equal(t, 0, *got.Result.FailedCount)
}

func newEnrichFixture(t *testing.T, products *memoryProducts, completer stubCompleter) *Handler {
	enricher := enrichproduct.NewHandler(enrichproduct.LoadConfig(), completer, logger.NewTestLogger(t))
	return NewHandler(LoadConfig(), Dependencies{
		Jobs:       newMemoryJobs(),
		Products:   products,
		Attributes: &staticAttributes{attrs: testSchema()},
		Enricher:   enricher,
		Pool:       syncPool{},
	}, nil, logger.NewTestLogger(t))
}

func TestHandler_Run_KeepsEditsMadeDuringEnrichment(t *testing.T) {
	products := newMemoryProducts(product(1, nil))
	h := newEnrichFixture(t, products, stubCompleter{
		response: `{"Color": "Red", "Material": "Cotton"}`,
		during:   func() { products.edit(1, "Color", "Blue") },
	})

	_, err := h.Submit(context.Background(), []int64{1})
	require.NoError(t, err)

	got := products.get(1)
	assert.Equal(t, "Blue", got.Attributes["Color"])
	assert.Equal(t, "Cotton", got.Attributes["Material"])
	assert.True(t, got.AIEnriched)
}

func TestHandler_Run_DoesNotRestoreDeletedAttribute(t *testing.T) {
	products := newMemoryProducts(product(1, nil))
	h := newEnrichFixture(t, products, stubCompleter{
		response: `{"Color": "Red", "Material": "Cotton"}`,
		during:   func() { products.dropAttribute("Material") },
	})

	_, err := h.Submit(context.Background(), []int64{1})
	require.NoError(t, err)

	got := products.get(1)
	assert.Equal(t, models.AttributeValues{"Color": "Red"}, got.Attributes)
}

func TestHandler_Run_AtMostOnce(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil))

	job, err := f.handler.Submit(context.Background(), []int64{1})
	require.NoError(t, err)

	err = f.handler.Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Len(t, f.enricher.seen, 1)

	got, _ := f.handler.Query(context.Background(), job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
}

func TestHandler_Run_PublishesTerminalSnapshot(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil))

	_, err := f.handler.Submit(context.Background(), []int64{1})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.JobStatusCompleted, f.publisher.events[0].Status)
}

func TestHandler_Create(t *testing.T) {
	f := newFixture(t, syncPool{})

	_, err := f.handler.Create(context.Background(), []int64{})
	assert.ErrorIs(t, err, ErrNoProducts)

	_, err = f.handler.Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoProducts)

	job, err := f.handler.Create(context.Background(), []int64{3, 1, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, job.ProductIDs)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Zero(t, job.Progress)
	assert.Nil(t, job.Result)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Run_SetupFailureFailsJob(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		wantMsg string
	}{
		{
			name:    "products query",
			setup:   func(f *fixture) { f.products.loadErr = errors.New("connection refused") },
			wantMsg: "load products: connection refused",
		},
		{
			name:    "attributes query",
			setup:   func(f *fixture) { f.attrs.err = errors.New("relation does not exist") },
			wantMsg: "load attributes: relation does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, syncPool{}, product(1, nil))
			tt.setup(f)

			job, err := f.handler.Create(context.Background(), []int64{1})
			require.NoError(t, err)
			require.Error(t, f.handler.Run(context.Background(), job.ID))

			got, _ := f.handler.Query(context.Background(), job.ID)
			assert.Equal(t, models.JobStatusFailed, got.Status)
			assert.Equal(t, tt.wantMsg, got.Result.Error)
			assert.Less(t, got.Progress, 100.0)

			require.Len(t, f.publisher.events, 1)
			assert.Equal(t, models.JobStatusFailed, f.publisher.events[0].Status)
		})
	}
}

func TestHandler_Run_SaveFailureCountsAsFailed(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil), product(2, nil))
	f.products.saveErr[1] = errors.New("deadlock detected")

	job, err := f.handler.Submit(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	got, _ := f.handler.Query(context.Background(), job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, *got.Result.EnrichedCount)
	assert.Equal(t, 1, *got.Result.FailedCount)
}

func TestHandler_Run_PanicFailsJob(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil))
	f.enricher.panic = true

	job, err := f.handler.Create(context.Background(), []int64{1})
	require.NoError(t, err)

	err = f.handler.Run(context.Background(), job.ID)
	require.Error(t, err)

	got, _ := f.handler.Query(context.Background(), job.ID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Contains(t, got.Result.Error, "enricher exploded")
}

func TestHandler_Submit_PoolClosed(t *testing.T) {
	f := newFixture(t, closedPool{}, product(1, nil))

	job, err := f.handler.Submit(context.Background(), []int64{1})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.Equal(t, ErrPoolClosed.Error(), err.Error())
	require.NotNil(t, job)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "enrichment pool closed", job.Result.Error)
}

func TestHandler_Submit_QueuesWhilePoolBusy(t *testing.T) {
	d, err := NewDispatcher(1, logger.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Release(time.Second) })

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	f := newFixture(t, d, product(1, nil))
	job, err := f.handler.Submit(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)

	got, _ := f.handler.Query(context.Background(), job.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)

	close(release)
	assert.Eventually(t, func() bool {
		got, err := f.handler.Query(context.Background(), job.ID)
		return err == nil && got.Status == models.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_Query_NotFound(t *testing.T) {
	f := newFixture(t, syncPool{})
	_, err := f.handler.Query(context.Background(), 404)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

// ==========================
// Maintenance Tests
// ==========================

func TestHandler_RecoverInterrupted(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil))
	ctx := context.Background()

	pending, _ := f.handler.Create(ctx, []int64{1})
	processing, _ := f.handler.Create(ctx, []int64{1})
	_, _ = f.jobs.MarkProcessing(ctx, processing.ID, 5)
	done, _ := f.handler.Submit(ctx, []int64{1})

	n, err := f.handler.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []int64{pending.ID, processing.ID} {
		got, _ := f.handler.Query(ctx, id)
		assert.Equal(t, models.JobStatusFailed, got.Status)
		assert.Equal(t, InterruptedMessage, got.Result.Error)
	}
	got, _ := f.handler.Query(ctx, done.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
}

func TestHandler_PurgeExpired(t *testing.T) {
	f := newFixture(t, syncPool{}, product(1, nil))
	ctx := context.Background()

	old, _ := f.handler.Submit(ctx, []int64{1})
	active, _ := f.handler.Create(ctx, []int64{1})

	n, err := f.handler.PurgeExpired(ctx, time.Now().Add(f.handler.config.RetentionPeriod+time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.handler.Query(ctx, old.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = f.handler.Query(ctx, active.ID)
	assert.NoError(t, err)
}

// ==========================
// Dispatcher and Scheduler Tests
// ==========================

func TestDispatcher_QueuesWhenFull(t *testing.T) {
	d, err := NewDispatcher(1, logger.NewTestLogger(t))
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	ran := make(chan struct{})
	require.NoError(t, d.Submit(func() { close(ran) }))
	assert.Equal(t, 1, d.Running())
	assert.Equal(t, 1, d.Capacity())
	assert.Eventually(t, func() bool { return d.Waiting() == 1 }, time.Second, 5*time.Millisecond)

	close(release)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("queued task never ran")
	}
	assert.Equal(t, 0, d.Waiting())

	require.NoError(t, d.Release(time.Second))
	assert.ErrorIs(t, d.Submit(func() {}), ErrPoolClosed)
}

func TestScheduler_Start(t *testing.T) {
	f := newFixture(t, syncPool{})

	bad := NewScheduler(f.handler, "every tuesday", logger.NewTestLogger(t))
	assert.Error(t, bad.Start())

	s := NewScheduler(f.handler, "@daily", logger.NewTestLogger(t))
	require.NoError(t, s.Start())
	s.purge()
	s.Stop()
}
