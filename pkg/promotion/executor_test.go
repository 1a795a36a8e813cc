package promotion

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dukex/stagehand/pkg/lease"
	"github.com/dukex/stagehand/pkg/mocks"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/dukex/stagehand/pkg/retry"
	"github.com/dukex/stagehand/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func stagingEnvironment() *models.Environment {
	return &models.Environment{
		ID:           "staging",
		TenantID:     "tenant-1",
		Name:         "Staging",
		BaseURL:      "https://staging.example.com",
		APIKey:       "key",
		SnapshotPath: "environments/staging",
	}
}

func productionEnvironment() *models.Environment {
	return &models.Environment{
		ID:           "production",
		TenantID:     "tenant-1",
		Name:         "Production",
		BaseURL:      "https://prod.example.com",
		APIKey:       "key",
		SnapshotPath: "environments/production",
	}
}

func promotable(id, param string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   "workflow " + id,
		Active: true,
		Nodes: []*models.Node{
			{
				ID:         "node-1",
				Name:       "Step",
				Type:       "http_request",
				Parameters: map[string]any{"url": param},
			},
		},
		Connections: map[string]any{},
	}
}

func encode(t *testing.T, workflow *models.Workflow) string {
	t.Helper()

	data, err := json.Marshal(workflow)
	require.NoError(t, err)

	return string(data)
}

// executorFixture wires an executor against mocks with the expectations
// every happy-path promotion shares.
type executorFixture struct {
	persist  *mocks.MockPersistence
	store    *mocks.MockStore
	target   *mocks.MockRuntimeClient
	leases   *mocks.MockLease
	executor *Executor
}

func newExecutorFixture(t *testing.T, sourceFiles map[string]string) *executorFixture {
	t.Helper()

	logger := slog.Default()
	persist := mocks.NewMockPersistence()
	store := &mocks.MockStore{}
	target := &mocks.MockRuntimeClient{}
	leases := &mocks.MockLease{}

	persist.Promotions.On("ActiveByTargetEnvironment", mock.Anything, "tenant-1", "production").
		Return(nil, persistence.ErrPromotionNotFound)
	persist.Promotions.On("Save", mock.Anything, mock.Anything).Return(nil)
	persist.Promotions.On("UpdateStatus", mock.Anything, "tenant-1", mock.Anything, mock.Anything).Return(nil)

	leases.On("Acquire", mock.Anything, "production", mock.Anything).Return(nil)
	leases.On("Release", mock.Anything, "production", mock.Anything).Return(nil)

	persist.Audits.On("Append", mock.Anything, mock.Anything).Return(nil)

	// Source content comes from the latest staging snapshot in the store.
	persist.Snapshots.On("LatestByEnvironment", mock.Anything, "tenant-1", "staging", models.SnapshotType("")).
		Return(&models.Snapshot{ID: "src-snap", CommitReference: "src123"}, nil)
	store.On("ListFilesUnder", mock.Anything, "environments/staging", "src123").
		Return(sourceFiles, nil)

	// No previous production snapshot: the drift check only warns.
	persist.Snapshots.On("LatestByEnvironment", mock.Anything, "tenant-1", "production", models.SnapshotType("")).
		Return(nil, persistence.ErrSnapshotNotFound)

	// Snapshot writes succeed; the re-read verification sees a consistent
	// pre-promotion record.
	store.On("WriteFiles", mock.Anything, mock.Anything, mock.Anything).Return("pre123", nil)
	persist.Snapshots.On("Save", mock.Anything, mock.Anything).Return(nil)
	persist.Snapshots.On("GetByID", mock.Anything, "tenant-1", mock.Anything).
		Return(&models.Snapshot{
			ID:              "pre-snap",
			EnvironmentID:   "production",
			TenantID:        "tenant-1",
			CommitReference: "pre123",
			Type:            models.SnapshotTypePrePromotion,
			Metadata: models.SnapshotMetadata{
				WorkflowCount:     1,
				WorkflowSummaries: []models.WorkflowSummary{{ID: "wf-existing"}},
			},
		}, nil)

	target.On("TestConnection", mock.Anything).Return(nil)

	policy := retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}
	snapshots := snapshot.NewManager(logger, store, persist.Snapshots, nil)
	rollback := NewRollbackManager(logger, store, persist.Snapshots, policy)
	audit := NewAuditRecorder(logger, persist.Audits)

	executor := NewExecutor(logger, store, persist, snapshots, rollback, audit, leases, nil, nil, nil)

	return &executorFixture{
		persist:  persist,
		store:    store,
		target:   target,
		leases:   leases,
		executor: executor,
	}
}

func (f *executorFixture) request(selections []models.WorkflowSelection) Request {
	return Request{
		TenantID:     "tenant-1",
		Source:       stagingEnvironment(),
		Target:       productionEnvironment(),
		TargetClient: f.target,
		Selections:   selections,
	}
}

func TestExecutePromotesNewWorkflow(t *testing.T) {
	incoming := promotable("wf-a", "https://v1")
	fixture := newExecutorFixture(t, map[string]string{"wf-a": encode(t, incoming)})

	existing := promotable("wf-existing", "https://other")
	fixture.target.On("ListWorkflows", mock.Anything).Return([]*models.Workflow{existing}, nil)
	fixture.target.On("CreateWorkflow", mock.Anything, mock.Anything).Return(incoming, nil)

	result, err := fixture.executor.Execute(context.Background(), fixture.request(nil))
	require.NoError(t, err)

	assert.Equal(t, models.PromotionStatusCompleted, result.Status)
	assert.Equal(t, 1, result.WorkflowsPromoted)
	assert.Zero(t, result.WorkflowsFailed)
	assert.Equal(t, "src-snap", result.SourceSnapshotID)
	assert.Equal(t, "pre-snap", result.TargetPreSnapshotID)
	assert.NotEmpty(t, result.TargetPostSnapshotID)
	assert.Nil(t, result.RollbackResult)

	fixture.target.AssertNumberOfCalls(t, "CreateWorkflow", 1)
	fixture.target.AssertNotCalled(t, "UpdateWorkflow", mock.Anything, mock.Anything, mock.Anything)
	fixture.leases.AssertCalled(t, "Release", mock.Anything, "production", mock.Anything)
}

func TestExecuteIdempotentRerun(t *testing.T) {
	workflow := promotable("wf-a", "https://v1")
	fixture := newExecutorFixture(t, map[string]string{"wf-a": encode(t, workflow)})

	// The target already carries identical content from the first run.
	fixture.target.On("ListWorkflows", mock.Anything).Return([]*models.Workflow{promotable("wf-a", "https://v1")}, nil)

	selections := []models.WorkflowSelection{
		{WorkflowID: "wf-a", WorkflowName: "workflow wf-a", ChangeType: models.ChangeTypeChanged, Selected: true},
	}

	result, err := fixture.executor.Execute(context.Background(), fixture.request(selections))
	require.NoError(t, err)

	assert.Equal(t, models.PromotionStatusCompleted, result.Status)
	assert.Zero(t, result.WorkflowsPromoted)
	assert.Equal(t, 1, result.WorkflowsSkipped)

	skipWarnings := 0
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "skipped") {
			skipWarnings++
		}
	}
	assert.Equal(t, 1, skipWarnings)

	fixture.target.AssertNotCalled(t, "CreateWorkflow", mock.Anything, mock.Anything)
	fixture.target.AssertNotCalled(t, "UpdateWorkflow", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteMixedBatchPolicyBlocks(t *testing.T) {
	hotfixed := promotable("wf-hotfix", "https://v2")
	conflicted := promotable("wf-conflict", "https://v2")
	fresh := promotable("wf-new", "https://v1")

	fixture := newExecutorFixture(t, map[string]string{
		"wf-hotfix":   encode(t, hotfixed),
		"wf-conflict": encode(t, conflicted),
		"wf-new":      encode(t, fresh),
	})

	fixture.target.On("ListWorkflows", mock.Anything).Return([]*models.Workflow{
		promotable("wf-hotfix", "https://hotfixed"),
		promotable("wf-conflict", "https://diverged"),
	}, nil)
	fixture.target.On("CreateWorkflow", mock.Anything, mock.Anything).Return(fresh, nil)

	selections := []models.WorkflowSelection{
		{WorkflowID: "wf-hotfix", WorkflowName: "workflow wf-hotfix", ChangeType: models.ChangeTypeStagingHotfix, Selected: true, RequiresOverwrite: true},
		{WorkflowID: "wf-conflict", WorkflowName: "workflow wf-conflict", ChangeType: models.ChangeTypeChanged, Selected: true, RequiresOverwrite: true},
		{WorkflowID: "wf-new", WorkflowName: "workflow wf-new", ChangeType: models.ChangeTypeNew, Selected: true},
	}

	result, err := fixture.executor.Execute(context.Background(), fixture.request(selections))
	require.NoError(t, err)

	assert.Equal(t, models.PromotionStatusFailed, result.Status)
	assert.Equal(t, 1, result.WorkflowsPromoted)
	assert.Equal(t, 2, result.WorkflowsFailed)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "hotfix")

	// Policy blocks never mutate the target, so nothing is rolled back.
	assert.Nil(t, result.RollbackResult)
}

func TestExecutePolicyFlagsAllowOverwrites(t *testing.T) {
	hotfixed := promotable("wf-hotfix", "https://v2")
	fixture := newExecutorFixture(t, map[string]string{"wf-hotfix": encode(t, hotfixed)})

	fixture.target.On("ListWorkflows", mock.Anything).Return([]*models.Workflow{promotable("wf-hotfix", "https://hotfixed")}, nil)
	fixture.target.On("UpdateWorkflow", mock.Anything, "wf-hotfix", mock.Anything).Return(hotfixed, nil)

	selections := []models.WorkflowSelection{
		{WorkflowID: "wf-hotfix", WorkflowName: "workflow wf-hotfix", ChangeType: models.ChangeTypeStagingHotfix, Selected: true, RequiresOverwrite: true},
	}

	request := fixture.request(selections)
	request.Policy = models.PromotionPolicy{AllowOverwritingHotfixes: true}

	result, err := fixture.executor.Execute(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, models.PromotionStatusCompleted, result.Status)
	assert.Equal(t, 1, result.WorkflowsPromoted)
	assert.Zero(t, result.WorkflowsFailed)
}

func TestExecuteApplyFailureTriggersRollback(t *testing.T) {
	first := promotable("wf-1", "https://v2")
	second := promotable("wf-2", "https://v2")

	fixture := newExecutorFixture(t, map[string]string{
		"wf-1": encode(t, first),
		"wf-2": encode(t, second),
	})

	previousFirst := promotable("wf-1", "https://v1")

	fixture.target.On("ListWorkflows", mock.Anything).Return([]*models.Workflow{
		previousFirst,
		promotable("wf-2", "https://v1"),
	}, nil)
	fixture.target.On("UpdateWorkflow", mock.Anything, "wf-1", mock.Anything).Return(first, nil)
	fixture.target.On("UpdateWorkflow", mock.Anything, "wf-2", mock.Anything).Return(nil, errors.New("boom"))

	// Rollback restores wf-1 from the pre-promotion commit.
	fixture.store.On("ReadFileAt", mock.Anything, "environments/production/wf-1.json", "pre123").
		Return(encode(t, previousFirst), nil)

	selections := []models.WorkflowSelection{
		{WorkflowID: "wf-1", WorkflowName: "workflow wf-1", ChangeType: models.ChangeTypeChanged, Selected: true},
		{WorkflowID: "wf-2", WorkflowName: "workflow wf-2", ChangeType: models.ChangeTypeChanged, Selected: true},
	}

	result, err := fixture.executor.Execute(context.Background(), fixture.request(selections))
	require.NoError(t, err)

	assert.Equal(t, models.PromotionStatusFailed, result.Status)
	assert.Equal(t, 1, result.WorkflowsFailed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "wf-2")

	require.NotNil(t, result.RollbackResult)
	assert.True(t, result.RollbackResult.RollbackTriggered)
	assert.Equal(t, 1, result.RollbackResult.WorkflowsRolledBack)
	assert.Empty(t, result.RollbackResult.RollbackErrors)
	assert.Equal(t, "pre-snap", result.RollbackResult.SnapshotID)

	// No post-promotion snapshot after a failed run.
	assert.Empty(t, result.TargetPostSnapshotID)
}

func TestExecuteGateFailureLeavesTargetUntouched(t *testing.T) {
	workflow := promotable("wf-1", "https://v2")
	fixture := newExecutorFixture(t, map[string]string{"wf-1": encode(t, workflow)})

	fixture.target.On("ListWorkflows", mock.Anything).Return([]*models.Workflow{promotable("wf-1", "https://v1")}, nil)

	selections := []models.WorkflowSelection{
		{WorkflowID: "wf-1", WorkflowName: "workflow wf-1", ChangeType: models.ChangeTypeChanged, Selected: true},
	}

	request := fixture.request(selections)
	request.Policy = models.PromotionPolicy{
		ScheduleWindows: []models.ScheduleWindow{
			// A window that can never contain now.
			{Cron: "0 0 31 2 *", Duration: time.Minute},
		},
	}

	result, err := fixture.executor.Execute(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, models.PromotionStatusFailed, result.Status)
	assert.NotEmpty(t, result.Errors)
	assert.Nil(t, result.RollbackResult)

	// Gate failures stop the promotion before the pre-promotion snapshot
	// and before any mutation.
	fixture.store.AssertNotCalled(t, "WriteFiles", mock.Anything, mock.Anything, mock.Anything)
	fixture.target.AssertNotCalled(t, "UpdateWorkflow", mock.Anything, mock.Anything, mock.Anything)
	fixture.target.AssertNotCalled(t, "CreateWorkflow", mock.Anything, mock.Anything)
}

func TestExecuteRejectsConcurrentPromotion(t *testing.T) {
	logger := slog.Default()
	persist := mocks.NewMockPersistence()
	persist.Promotions.On("ActiveByTargetEnvironment", mock.Anything, "tenant-1", "production").
		Return(&models.Promotion{ID: "other", Status: models.PromotionStatusRunning}, nil)

	leases := &mocks.MockLease{}
	executor := NewExecutor(logger, &mocks.MockStore{}, persist, nil, nil, nil, leases, nil, nil, nil)

	_, err := executor.Execute(context.Background(), Request{
		TenantID:     "tenant-1",
		Source:       stagingEnvironment(),
		Target:       productionEnvironment(),
		TargetClient: &mocks.MockRuntimeClient{},
	})
	require.ErrorIs(t, err, ErrPromotionActive)

	leases.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteRejectsHeldLease(t *testing.T) {
	logger := slog.Default()
	persist := mocks.NewMockPersistence()
	persist.Promotions.On("ActiveByTargetEnvironment", mock.Anything, "tenant-1", "production").
		Return(nil, persistence.ErrPromotionNotFound)

	leases := &mocks.MockLease{}
	leases.On("Acquire", mock.Anything, "production", mock.Anything).Return(lease.ErrHeld)

	executor := NewExecutor(logger, &mocks.MockStore{}, persist, nil, nil, nil, leases, nil, nil, nil)

	_, err := executor.Execute(context.Background(), Request{
		TenantID:     "tenant-1",
		Source:       stagingEnvironment(),
		Target:       productionEnvironment(),
		TargetClient: &mocks.MockRuntimeClient{},
	})
	require.ErrorIs(t, err, ErrPromotionActive)
}
