package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/event"
	"github.com/garyjia/sov-billing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/sov-billing/pkg/database"
)

var job = entity.JobKey{CompanyID: "co-1", JobID: "J100"}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.New(context.Background(), database.Config{Path: filepath.Join(t.TempDir(), "repo.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(database.Migrations()))
	return db.DB
}

func item(id string, order int, value string) *entity.SOVLineItem {
	return &entity.SOVLineItem{
		ID:             id,
		CompanyID:      job.CompanyID,
		JobID:          job.JobID,
		ItemNumber:     id,
		Description:    "desc " + id,
		ScheduledValue: decimal.RequireFromString(value),
		SortOrder:      order,
		WorkflowStatus: entity.WorkflowStatusDraft,
	}
}

func TestSOVRepository_UpsertListSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSOVRepository(setupDB(t), zap.NewNop())

	code := "cc-1"
	first := item("a", 1, "1250.50")
	first.CostCodeID = &code
	require.NoError(t, repo.UpsertMany(ctx, []*entity.SOVLineItem{first, item("b", 0, "10")}))

	items, err := repo.ListActive(ctx, job)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.True(t, items[1].ScheduledValue.Equal(decimal.RequireFromString("1250.50")))
	assert.Equal(t, "cc-1", *items[1].CostCodeID)

	at := time.Now()
	approvedBy := "u-1"
	first.WorkflowStatus = entity.WorkflowStatusApproved
	first.ApprovedAt = &at
	first.ApprovedBy = &approvedBy
	first.Description = "updated"
	require.NoError(t, repo.UpsertMany(ctx, []*entity.SOVLineItem{first}))

	n, err := repo.SoftDelete(ctx, job, []string{"b", "missing"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err = repo.ListActive(ctx, job)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "updated", items[0].Description)
	assert.True(t, items[0].IsApproved())
	require.NotNil(t, items[0].ApprovedBy)
	assert.Equal(t, "u-1", *items[0].ApprovedBy)

	n, err = repo.SoftDelete(ctx, job, nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSOVRepository_SoftDeleteIsScopedToJob(t *testing.T) {
	ctx := context.Background()
	repo := NewSOVRepository(setupDB(t), zap.NewNop())
	require.NoError(t, repo.UpsertMany(ctx, []*entity.SOVLineItem{item("a", 0, "1")}))

	other := entity.JobKey{CompanyID: job.CompanyID, JobID: "J200"}
	n, err := repo.SoftDelete(ctx, other, []string{"a"}, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSOVVersionRepository_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewSOVVersionRepository(setupDB(t), zap.NewNop())

	v, err := repo.Get(ctx, job)
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = repo.CompareAndSwap(ctx, job, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = repo.CompareAndSwap(ctx, job, 0)
	assert.ErrorIs(t, err, errs.ErrConflict)

	v, err = repo.CompareAndSwap(ctx, job, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = repo.CompareAndSwap(ctx, job, 1)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestDrawRepository_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewDrawRepository(setupDB(t), zap.NewNop())

	exists, err := repo.Exists(ctx, job)
	require.NoError(t, err)
	assert.False(t, exists)

	one, two := 1, 2
	require.NoError(t, repo.InsertIfAbsent(ctx, &entity.Draw{ID: "d1", CompanyID: job.CompanyID, JobID: job.JobID, InvoiceNumber: "J100-001", ApplicationNumber: &one, Status: entity.DrawStatusIssued}))
	require.NoError(t, repo.InsertIfAbsent(ctx, &entity.Draw{ID: "d2", CompanyID: job.CompanyID, JobID: job.JobID, InvoiceNumber: "J100-002", ApplicationNumber: &two, Status: entity.DrawStatusDraft, TotalAmount: decimal.NewFromInt(900)}))

	err = repo.InsertIfAbsent(ctx, &entity.Draw{ID: "d3", CompanyID: job.CompanyID, JobID: job.JobID, InvoiceNumber: "dup", ApplicationNumber: &two, Status: entity.DrawStatusDraft})
	assert.ErrorIs(t, err, errs.ErrConflict)

	draws, err := repo.ListByJob(ctx, job)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, 1, *draws[0].ApplicationNumber)
	assert.True(t, draws[1].Persisted)
	assert.True(t, draws[1].TotalAmount.Equal(decimal.NewFromInt(900)))

	exists, err = repo.Exists(ctx, job)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCommitmentRepository_NormalizesDistribution(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewCommitmentRepository(db, zap.NewNop())

	insert := `INSERT INTO commitments (id, company_id, vendor_id, job_id, contract_amount, retainage_percentage, cost_distribution)
		VALUES (?, 'co-1', 'v-1', 'J100', '10000', '5', ?)`
	_, err := db.Exec(insert, "sc-1", `[{"cost_code":"01-100","amount":5000}]`)
	require.NoError(t, err)
	_, err = db.Exec(insert, "sc-2", nil)
	require.NoError(t, err)
	_, err = db.Exec(insert, "sc-3", `not json`)
	require.NoError(t, err)

	c, err := repo.GetByID(ctx, "co-1", "sc-1")
	require.NoError(t, err)
	require.Len(t, c.CostDistribution, 1)
	assert.Equal(t, "01-100", c.CostDistribution[0].CostCode)
	assert.True(t, c.RetainagePercentage.Equal(decimal.NewFromInt(5)))

	for _, id := range []string{"sc-2", "sc-3"} {
		c, err = repo.GetByID(ctx, "co-1", id)
		require.NoError(t, err)
		assert.NotNil(t, c.CostDistribution)
		assert.Empty(t, c.CostDistribution)
	}

	_, err = repo.GetByID(ctx, "co-1", "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCostCodeRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO cost_codes (id, company_id, job_id, code, active) VALUES
		('cc-1', 'co-1', 'J100', '01-100', 1),
		('cc-2', 'co-1', 'J100', '02-200', 0),
		('cc-3', 'co-1', 'J200', '01-100', 1)`)
	require.NoError(t, err)

	codes, err := NewCostCodeRepository(db, zap.NewNop()).ListActive(ctx, job)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "cc-1", codes[0].ID)
	assert.True(t, codes[0].Active)
}

func TestBillRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewBillRepository(setupDB(t), zap.NewNop())
	commitmentID := "sc-1"
	jobID := "J100"

	bill := &entity.Bill{
		CompanyID:    "co-1",
		VendorID:     "v-1",
		CommitmentID: &commitmentID,
		BillNumber:   "INV-7",
		Status:       entity.BillStatusPending,
		PayNumber:    1,
		Lines:        []entity.DistributionLine{{JobID: &jobID, Amount: decimal.NewFromInt(100), Percentage: decimal.NewFromInt(100)}},
	}
	bill.SetAmount(decimal.NewFromInt(100))
	bill.SetRetainagePercentage(decimal.NewFromInt(10))
	require.NoError(t, repo.Create(ctx, bill))
	assert.NotEmpty(t, bill.ID)
	assert.NotEmpty(t, bill.Lines[0].ID)

	bills, err := repo.ListByCommitment(ctx, "co-1", "sc-1")
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.True(t, bills[0].RetainageAmount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 1, bills[0].PayNumber)
	assert.Equal(t, "sc-1", *bills[0].CommitmentID)
}

func TestEventRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(setupDB(t), zap.NewNop())

	evt := event.NewEvent(event.TypeSOVSaved, job, entity.Actor{ID: "u-1"}, map[string]any{"version": 2})
	require.NoError(t, repo.Append(ctx, evt))

	events, err := repo.ListByJob(ctx, job, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeSOVSaved, events[0].Type)
	assert.Equal(t, int64(2), events[0].GetPayloadInt("version"))
	assert.Equal(t, "u-1", events[0].ActorID)
}

func TestTransaction_RollbackDiscardsRepositoryWrites(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	txm := sqlite.NewDB(db, zap.NewNop())
	repo := NewSOVRepository(db, zap.NewNop())
	boom := errors.New("boom")

	err := txm.WithTransaction(ctx, func(ctx context.Context) error {
		require.True(t, sqlite.InTransaction(ctx))
		require.NoError(t, repo.UpsertMany(ctx, []*entity.SOVLineItem{item("a", 0, "1")}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	items, err := repo.ListActive(ctx, job)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, txm.WithTransaction(ctx, func(ctx context.Context) error {
		return repo.UpsertMany(ctx, []*entity.SOVLineItem{item("a", 0, "1")})
	}))
	items, err = repo.ListActive(ctx, job)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
