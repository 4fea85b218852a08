package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethpandaops/tactix/internal/testutil"
	"github.com/ethpandaops/tactix/pkg/delivery"
	"github.com/ethpandaops/tactix/pkg/jobs"
	"github.com/ethpandaops/tactix/pkg/oracle"
	"github.com/ethpandaops/tactix/pkg/oracle/oracletest"
	"github.com/ethpandaops/tactix/pkg/puzzle"
	"github.com/ethpandaops/tactix/pkg/queue"
	r "github.com/ethpandaops/tactix/pkg/redis"
	"github.com/ethpandaops/tactix/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		PollTimeout:     time.Second,
		RetryDelay:      10 * time.Millisecond,
		CompleteTimeout: time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

type supervisorFixture struct {
	mr     *miniredis.Miniredis
	broker *queue.RedisBroker
	cfg    *r.Config
}

func newSupervisorFixture(t *testing.T) *supervisorFixture {
	t.Helper()

	mr, client := testutil.NewMiniredisClient(t)
	cfg := &r.Config{Host: "localhost", Port: 6379, Queue: "pgn_queue"}

	return &supervisorFixture{mr: mr, broker: queue.NewRedisBroker(client, cfg), cfg: cfg}
}

func (f *supervisorFixture) pending(t *testing.T) []string {
	return testutil.ListContents(t, f.mr, f.cfg.PendingKey())
}

func (f *supervisorFixture) inFlight(t *testing.T) []string {
	return testutil.ListContents(t, f.mr, f.cfg.ProcessingKey())
}

func (f *supervisorFixture) start(t *testing.T, executor Executor) Service {
	t.Helper()

	svc, err := NewService(testutil.NewLogger(), testConfig(), f.broker, executor)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))

	t.Cleanup(func() { _ = svc.Stop() })

	return svc
}

func (f *supervisorFixture) drained(t *testing.T) func() bool {
	return func() bool {
		return len(f.pending(t)) == 0 && len(f.inFlight(t)) == 0
	}
}

func encode(t *testing.T, job jobs.Job) string {
	t.Helper()

	raw, err := job.Encode()
	require.NoError(t, err)

	return raw
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid config"},
		{name: "sub-second poll", mutate: func(c *Config) { c.PollTimeout = 500 * time.Millisecond }, wantErr: ErrInvalidPollTimeout},
		{name: "zero retry delay", mutate: func(c *Config) { c.RetryDelay = 0 }, wantErr: ErrInvalidRetryDelay},
		{name: "zero complete timeout", mutate: func(c *Config) { c.CompleteTimeout = 0 }, wantErr: ErrInvalidCompleteTimeout},
		{
			name: "bad policy",
			mutate: func(c *Config) {
				c.Policy = Policy{{MaxDepth: 1, Concurrency: Concurrency{Workers: 0, Threads: 1}}}
			},
			wantErr: ErrInvalidTier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			svc, err := NewService(testutil.NewLogger(), cfg, &queue.RedisBroker{}, &stubExecutor{})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestService_CrashRecoveryRequeuesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	fx := newSupervisorFixture(t)

	raw := encode(t, jobs.Job{PGN: quietGame, UserID: "u1", SetID: "s1"})
	require.NoError(t, fx.broker.Push(ctx, raw))

	// A previous process claimed the job and died before completing it
	claimed, err := fx.broker.Claim(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, raw, claimed)
	require.Equal(t, []string{raw}, fx.inFlight(t))

	executor := &stubExecutor{}
	svc := fx.start(t, executor)
	assert.True(t, svc.Ready())

	require.Eventually(t, fx.drained(t), 5*time.Second, 10*time.Millisecond)

	calls := executor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, raw, calls[0].Raw)
	// Idle queue: the single job gets the deep-search configuration
	assert.Equal(t, []int{6}, executor.Threads())
}

func TestService_RecoveryHappensBeforeStart(t *testing.T) {
	ctx := context.Background()
	fx := newSupervisorFixture(t)

	for _, set := range []string{"a", "b", "c"} {
		require.NoError(t, fx.broker.Push(ctx, encode(t, jobs.Job{PGN: quietGame, UserID: "u1", SetID: set})))
	}

	for range 2 {
		_, err := fx.broker.Claim(ctx, time.Second)
		require.NoError(t, err)
	}

	block := make(chan struct{})
	defer close(block)

	executor := &stubExecutor{ExecuteFunc: func(ctx context.Context, _ *jobs.Entry) error {
		select {
		case <-block:
		case <-ctx.Done():
		}

		return ctx.Err()
	}}

	cfg := testConfig()
	cfg.Policy = Policy{{MaxDepth: Unbounded, Concurrency: Concurrency{Workers: 1, Threads: 1}}}

	svc, err := NewService(testutil.NewLogger(), cfg, fx.broker, executor)
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))

	// Orphans come back first, in the order they were originally claimed
	require.Eventually(t, func() bool { return len(executor.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "a", executor.Calls()[0].Job.SetID)

	// b is claimed and waits for the single busy worker
	require.Eventually(t, func() bool { return len(fx.inFlight(t)) == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop())

	// The interrupted job and the one waiting for a worker stay in flight for the next start
	assert.Len(t, fx.inFlight(t), 2)
	assert.Len(t, append(fx.pending(t), fx.inFlight(t)...), 3)
}

func TestService_MalformedJobDropped(t *testing.T) {
	ctx := context.Background()
	fx := newSupervisorFixture(t)

	require.NoError(t, fx.broker.Push(ctx, `{"pgn":"","userId":"u1","setId":"s1"}`))
	require.NoError(t, fx.broker.Push(ctx, `not json`))

	executor := &stubExecutor{}
	fx.start(t, executor)

	require.Eventually(t, fx.drained(t), 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, executor.Calls())
}

func TestService_FailedJobIsNotRetried(t *testing.T) {
	ctx := context.Background()
	fx := newSupervisorFixture(t)

	var runs atomic.Int32

	executor := &stubExecutor{ExecuteFunc: func(_ context.Context, _ *jobs.Entry) error {
		runs.Add(1)

		return fmt.Errorf("%w: no binary", oracle.ErrOracleUnavailable)
	}}

	require.NoError(t, fx.broker.Push(ctx, encode(t, jobs.Job{PGN: quietGame, UserID: "u1", SetID: "s1"})))
	fx.start(t, executor)

	require.Eventually(t, fx.drained(t), 5*time.Second, 10*time.Millisecond)

	// Give the loop a chance to misbehave
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestService_ScalesWithBacklog(t *testing.T) {
	ctx := context.Background()
	fx := newSupervisorFixture(t)

	for i := range 10 {
		require.NoError(t, fx.broker.Push(ctx, encode(t, jobs.Job{PGN: quietGame, UserID: "u1", SetID: fmt.Sprintf("s%d", i)})))
	}

	executor := &stubExecutor{}
	fx.start(t, executor)

	require.Eventually(t, fx.drained(t), 5*time.Second, 10*time.Millisecond)
	require.Len(t, executor.Calls(), 10)

	threads := executor.Threads()
	// Claimed with 9 still pending: the throughput tier
	assert.Equal(t, 1, threads[0])
	// The last job ran once the queue was idle
	assert.Equal(t, 6, threads[len(threads)-1])
}

func TestService_EndToEndNoTactics(t *testing.T) {
	ctx := context.Background()
	fx := newSupervisorFixture(t)

	var httpCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	log := testutil.NewLogger()
	factory := &oracletest.Factory{}
	executor := NewJobExecutor(
		log,
		factory.Create,
		replay.NewEngine(log, &moveClassifier{}),
		puzzle.NewExtractor(&puzzle.Config{DefaultRating: 1500}),
		delivery.NewClient(log, &delivery.Config{Endpoint: server.URL, Timeout: time.Second}),
	)

	require.NoError(t, fx.broker.Push(ctx, encode(t, jobs.Job{PGN: quietGame, UserID: "u1", SetID: "s1"})))
	fx.start(t, executor)

	require.Eventually(t, fx.drained(t), 5*time.Second, 10*time.Millisecond)

	created := factory.Created()
	require.Len(t, created, 1)
	assert.Equal(t, []string{"e2e4", "e7e5"}, created[0].Applied())
	assert.True(t, created[0].Closed())
	assert.Zero(t, httpCalls.Load())
}

func TestService_ShutdownDuringDeliveryKeepsJobInFlight(t *testing.T) {
	ctx := context.Background()
	fx := newSupervisorFixture(t)

	delivering := make(chan struct{})

	var once sync.Once

	deliverer := &recordingDeliverer{DeliverFunc: func(ctx context.Context, _ *delivery.Request) error {
		once.Do(func() { close(delivering) })
		<-ctx.Done()

		return ctx.Err()
	}}

	log := testutil.NewLogger()
	executor := NewJobExecutor(
		log,
		(&oracletest.Factory{}).Create,
		replay.NewEngine(log, &moveClassifier{Moves: tacticMoves()}),
		puzzle.NewExtractor(&puzzle.Config{DefaultRating: 1500}),
		deliverer,
	)

	raw := encode(t, jobs.Job{PGN: quietGame, UserID: "u1", SetID: "s1"})
	require.NoError(t, fx.broker.Push(ctx, raw))

	svc, err := NewService(log, testConfig(), fx.broker, executor)
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))

	select {
	case <-delivering:
	case <-time.After(5 * time.Second):
		t.Fatal("job never reached delivery")
	}

	require.NoError(t, svc.Stop())

	// The next startup requeues the job and its puzzles are delivered then
	assert.Equal(t, []string{raw}, fx.inFlight(t))
	assert.Empty(t, fx.pending(t))
	assert.Len(t, deliverer.Requests(), 1)
}
