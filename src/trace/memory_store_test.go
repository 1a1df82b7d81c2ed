package trace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdlforge/go-hdlforge/src/events"
)

func TestMemoryStoreHistoryFiltersBySession(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, ms.AppendEvent(ctx, events.Event{SessionID: "s1", Kind: events.ToolCallStarted}))
	require.NoError(t, ms.AppendEvent(ctx, events.Event{SessionID: "s2", Kind: events.ToolCallFailed}))
	require.NoError(t, ms.AppendEvent(ctx, events.Event{SessionID: "s1", Kind: events.ToolCallSucceeded}))

	got, err := ms.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events.ToolCallStarted, got[0].Kind)
	assert.Equal(t, events.ToolCallSucceeded, got[1].Kind)

	all, err := ms.History(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2, "limit keeps the most recent events")
}

func TestMemoryStoreTasks(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, ms.SaveTask(ctx, TaskRecord{ID: "t1", SessionID: "run", Status: "completed"}))
	require.NoError(t, ms.SaveTask(ctx, TaskRecord{ID: "t2", SessionID: "run", Status: "failed", Error: "boom"}))

	tasks, err := ms.Tasks(ctx, "run", 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "completed", tasks[0].Status)
	assert.Equal(t, "boom", tasks[1].Error)
}

func TestSinkSwallowsNilStore(t *testing.T) {
	var sink *Sink
	sink.Emit(events.Event{Kind: events.ModelCall}) // must not panic

	NewSink(nil).Emit(events.Event{Kind: events.ModelCall})
}

type fakeGraphDriver struct {
	writes []string
	reads  []string
	rows   []map[string]any
}

func (f *fakeGraphDriver) ExecuteWrite(_ context.Context, query string, _ map[string]any) error {
	f.writes = append(f.writes, query)
	return nil
}

func (f *fakeGraphDriver) ExecuteRead(_ context.Context, query string, _ map[string]any) ([]map[string]any, error) {
	f.reads = append(f.reads, query)
	return f.rows, nil
}

func (f *fakeGraphDriver) Close(context.Context) error { return nil }

func TestNeo4jLineageRecordsTaskAndArtifacts(t *testing.T) {
	driver := &fakeGraphDriver{}
	lineage, err := NewNeo4jLineage(driver)
	require.NoError(t, err)

	task := TaskRecord{
		ID:        "t1",
		SessionID: "run",
		AgentID:   "designer",
		Status:    "completed",
		Artifacts: []string{"rtl/alu.v", "rtl/alu_tb.v"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, lineage.RecordLineage(context.Background(), task))

	// One write for the task node plus one per artifact edge.
	assert.Len(t, driver.writes, 3)
}

func TestNeo4jLineageReads(t *testing.T) {
	driver := &fakeGraphDriver{rows: []map[string]any{
		{"path": "rtl/alu.v"},
		{"path": ""},
		{"other": 1},
	}}
	lineage, err := NewNeo4jLineage(driver)
	require.NoError(t, err)

	paths, err := lineage.Artifacts(context.Background(), "run", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"rtl/alu.v"}, paths)
}

func TestNeo4jLineageRequiresDriver(t *testing.T) {
	_, err := NewNeo4jLineage(nil)
	assert.ErrorIs(t, err, ErrGraphUnavailable)
}
