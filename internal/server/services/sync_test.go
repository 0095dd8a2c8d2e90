package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/archive"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskmate/internal/server/schema"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
	"github.com/dmitrijs2005/taskmate/internal/telemetry"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestUpload_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	u := createUser(t, m, "a@x.com")

	in := sampleSnapshot()
	res, err := svc.Upload(ctx, u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, &UploadResult{Tasks: 2, Conversations: 2, Messages: 2}, res)

	out, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(normalize(in), normalize(out)); diff != "" {
		t.Fatalf("round trip mismatch (-uploaded +downloaded):\n%s", diff)
	}

	for _, task := range out.Tasks {
		assert.NotEqual(t, "t1", task.ID, "client ids are replaced")
		assert.NotEqual(t, "t2", task.ID)
	}
}

func TestUpload_RemapsExtractedTaskReferences(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	u := createUser(t, m, "a@x.com")

	in := sampleSnapshot()
	in.Conversations[0].Messages[1].ExtractedTasks = []string{"t1", "external-9"}

	_, err := svc.Upload(ctx, u.ID, in)
	require.NoError(t, err)

	out, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)

	var milkID string
	for _, task := range out.Tasks {
		if task.Title == "Buy milk" {
			milkID = task.ID
		}
	}
	require.NotEmpty(t, milkID)
	assert.Equal(t, []string{milkID, "external-9"}, out.Conversations[0].Messages[1].ExtractedTasks)
}

func TestUpload_Atomicity(t *testing.T) {
	ctx := context.Background()
	mem := repomanager.NewMemoryRepositoryManager()
	u := createUser(t, mem, "a@x.com")

	good := newSyncService(t, mem, archive.Nop{})
	_, err := good.Upload(ctx, u.ID, sampleSnapshot())
	require.NoError(t, err)
	before, err := good.Download(ctx, u.ID)
	require.NoError(t, err)

	// Ten conversations, the last message insert fails.
	big := &snapshot.Snapshot{Tasks: []snapshot.Task{{Title: "new", Priority: "low", Status: "pending", CreatedAt: t0, UpdatedAt: t0}}}
	for i := 0; i < 10; i++ {
		big.Conversations = append(big.Conversations, snapshot.Conversation{
			Title: "c", CreatedAt: t0, UpdatedAt: t0,
			Messages: []snapshot.Message{{Type: "user", Content: "x", Timestamp: t0}},
		})
	}
	big.Preferences = map[string]any{"theme": "light"}

	arch := &fakeArchiver{}
	faulty := &faultyManager{MemoryRepositoryManager: mem, failAt: 10}
	bad := newSyncService(t, faulty, arch)

	_, err = bad.Upload(ctx, u.ID, big)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransaction)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, arch.calls, "nothing is archived for a rolled back upload")

	after, err := good.Download(ctx, u.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("failed upload changed state (-before +after):\n%s", diff)
	}
}

func TestUpload_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	u := createUser(t, m, "a@x.com")

	_, err := svc.Upload(ctx, u.ID, sampleSnapshot())
	require.NoError(t, err)
	once, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)

	_, err = svc.Upload(ctx, u.ID, sampleSnapshot())
	require.NoError(t, err)
	twice, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(normalize(once), normalize(twice)); diff != "" {
		t.Fatalf("second upload changed state (-once +twice):\n%s", diff)
	}
	assert.Len(t, twice.Tasks, 2, "no duplicates after re-upload")
}

func TestUpload_ReplacesEverything(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	u := createUser(t, m, "a@x.com")

	_, err := svc.Upload(ctx, u.ID, sampleSnapshot())
	require.NoError(t, err)

	_, err = svc.Upload(ctx, u.ID, &snapshot.Snapshot{Tasks: []snapshot.Task{}, Conversations: []snapshot.Conversation{}})
	require.NoError(t, err)

	out, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, out.Tasks)
	assert.Empty(t, out.Conversations)
	assert.Equal(t, models.Preferences{"theme": "dark"}, out.Preferences, "absent preferences leave the stored set alone")
}

func TestUpload_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	a := createUser(t, m, "a@x.com")
	b := createUser(t, m, "b@x.com")

	bSnap := &snapshot.Snapshot{
		Tasks:         []snapshot.Task{{Title: "b's task", Priority: "high", Status: "pending", CreatedAt: t0, UpdatedAt: t0}},
		Conversations: []snapshot.Conversation{{Title: "b's chat", CreatedAt: t0, UpdatedAt: t0, Messages: []snapshot.Message{{Type: "user", Content: "hi", Timestamp: t0}}}},
		Preferences:   map[string]any{"lang": "lv"},
	}
	_, err := svc.Upload(ctx, b.ID, bSnap)
	require.NoError(t, err)
	bBefore, err := svc.Download(ctx, b.ID)
	require.NoError(t, err)

	_, err = svc.Upload(ctx, a.ID, sampleSnapshot())
	require.NoError(t, err)
	_, err = svc.Upload(ctx, a.ID, &snapshot.Snapshot{})
	require.NoError(t, err)

	bAfter, err := svc.Download(ctx, b.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(bBefore, bAfter); diff != "" {
		t.Fatalf("user B changed by A's uploads (-before +after):\n%s", diff)
	}

	aOut, err := svc.Download(ctx, a.ID)
	require.NoError(t, err)
	for _, task := range aOut.Tasks {
		assert.NotEqual(t, "b's task", task.Title)
	}
}

func TestUpload_UnknownUser(t *testing.T) {
	svc := newSyncService(t, repomanager.NewMemoryRepositoryManager(), archive.Nop{})

	_, err := svc.Upload(context.Background(), 404, sampleSnapshot())
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.NotErrorIs(t, err, common.ErrTransaction)
}

func TestUpload_ArchivesAfterCommit(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	u := createUser(t, m, "a@x.com")

	arch := &fakeArchiver{}
	svc := newSyncService(t, m, arch)
	_, err := svc.Upload(ctx, u.ID, sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, []int64{u.ID}, arch.calls)

	arch.err = errors.New("bucket gone")
	_, err = svc.Upload(ctx, u.ID, sampleSnapshot())
	assert.NoError(t, err, "archive failures never fail a committed upload")
}

func TestUpload_ConcurrentSameUser(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	u := createUser(t, m, "a@x.com")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Upload(ctx, u.ID, sampleSnapshot())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	out, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, out.Tasks, 2, "serialized uploads never interleave")
	assert.Len(t, out.Conversations, 2)
}

func TestDownload_EmptyUser(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	u := createUser(t, m, "a@x.com")

	out, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tasks":[],"conversations":[],"preferences":{}}`, string(b))
}

func TestUpload_RecordsSpans(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	u := createUser(t, m, "a@x.com")

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	provider := &telemetry.Provider{Tracer: tp.Tracer("test"), Meter: noop.NewMeterProvider().Meter("test")}

	svc, err := NewSyncService(m, archive.Nop{}, provider, logging.Nop{})
	require.NoError(t, err)

	_, err = svc.Upload(ctx, u.ID, sampleSnapshot())
	require.NoError(t, err)
	_, err = svc.Download(ctx, u.ID)
	require.NoError(t, err)

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"sync.upload", "sync.download"}, names)
}

// End-to-end: login, upload through the validator, download.
func TestScenario_LoginUploadDownload(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()

	accounts := NewAccountService(m, &fakeVerifier{identities: map[string]*models.Identity{
		"google-cred": {Subject: "g", Email: "a@x.com", EmailVerified: true, Name: "A"},
	}}, newAuthority(t), logging.Nop{})
	syncSvc := newSyncService(t, m, archive.Nop{})

	sess, err := accounts.Login(ctx, "google-cred")
	require.NoError(t, err)
	claims, err := accounts.tokens.Verify(sess.Token.Token)
	require.NoError(t, err)

	v, err := schema.NewValidator()
	require.NoError(t, err)

	body := `{"tasks":[{"id":"t1","title":"Buy milk","priority":"low","status":"pending","tags":[],
		"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}],
		"conversations":[],"preferences":{"theme":"dark"}}`
	var snap snapshot.Snapshot
	require.NoError(t, v.Decode(schema.KindSnapshot, []byte(body), &snap))

	_, err = syncSvc.Upload(ctx, claims.UserID, &snap)
	require.NoError(t, err)

	out, err := syncSvc.Download(ctx, claims.UserID)
	require.NoError(t, err)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Buy milk", out.Tasks[0].Title)
	assert.Equal(t, "pending", out.Tasks[0].Status)
	assert.Equal(t, models.Preferences{"theme": "dark"}, out.Preferences)
}

func TestUpload_PreservesLargeIntegers(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newSyncService(t, m, archive.Nop{})
	u := createUser(t, m, "a@x.com")

	v, err := schema.NewValidator()
	require.NoError(t, err)

	body := `{"tasks":[],"conversations":[{"id":"c1","title":"Ids",
		"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z",
		"messages":[{"id":"m1","type":"assistant","content":"ok","timestamp":"2024-01-01T00:00:00Z",
		"metadata":{"msgId":9007199254740993}}]}],
		"preferences":{"lastSeq":9007199254740993}}`
	var snap snapshot.Snapshot
	require.NoError(t, v.Decode(schema.KindSnapshot, []byte(body), &snap))

	_, err = svc.Upload(ctx, u.ID, &snap)
	require.NoError(t, err)

	out, err := svc.Download(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, json.Number("9007199254740993"), out.Preferences["lastSeq"])
	require.Len(t, out.Conversations, 1)
	require.Len(t, out.Conversations[0].Messages, 1)
	assert.Equal(t, json.Number("9007199254740993"), out.Conversations[0].Messages[0].Metadata["msgId"])

	encoded, err := json.Marshal(out.Preferences)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastSeq":9007199254740993}`, string(encoded))
}
