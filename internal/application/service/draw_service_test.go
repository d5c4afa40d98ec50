package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/event"
	"github.com/garyjia/sov-billing/internal/domain/sov"
)

func appNo(n int) *int { return &n }

type drawFixture struct {
	sovRepo   *mockSOVRepo
	versions  *mockVersionRepo
	draws     *mockDrawRepo
	publisher *mockPublisher
	locks     *sov.LockCache
	svc       DrawService
}

func newDrawFixture(items []*entity.SOVLineItem, version int64, draws ...*entity.Draw) *drawFixture {
	f := &drawFixture{
		sovRepo:   newMockSOVRepo(items...),
		versions:  &mockVersionRepo{version: version},
		draws:     &mockDrawRepo{draws: draws},
		publisher: &mockPublisher{},
	}
	f.locks = sov.NewLockCache(f.draws.Exists)
	f.svc = NewDrawService(f.sovRepo, f.versions, f.draws, &mockTxManager{}, f.publisher, f.locks, &mockLogger{})
	return f
}

func TestDrawService_NextDraft(t *testing.T) {
	tests := []struct {
		name    string
		items   []*entity.SOVLineItem
		draws   []*entity.Draw
		unsaved bool
		want    int
		wantErr error
	}{
		{"first draw", lineItems(entity.WorkflowStatusApproved, "10"), nil, false, 1, nil},
		{"not approved", lineItems(entity.WorkflowStatusDraft, "10"), nil, false, 0, errs.ErrSOVNotReady},
		{"unsaved edits", lineItems(entity.WorkflowStatusApproved, "10"), nil, true, 0, errs.ErrSOVNotReady},
		{"empty", nil, nil, false, 0, errs.ErrSOVNotReady},
		{"after gap", nil, []*entity.Draw{
			{ID: "d1", ApplicationNumber: appNo(1), Status: entity.DrawStatusIssued},
			{ID: "d3", ApplicationNumber: appNo(3), Status: entity.DrawStatusIssued},
		}, false, 4, nil},
		{"draft open", nil, []*entity.Draw{{ID: "d1", ApplicationNumber: appNo(1), Status: entity.DrawStatusDraft}}, false, 0, errs.ErrDraftInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDrawFixture(tt.items, 1, tt.draws...)
			next, err := f.svc.NextDraft(context.Background(), testJob, tt.unsaved)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *next.ApplicationNumber)
			assert.Equal(t, fmt.Sprintf("JOB-7-%03d", tt.want), next.InvoiceNumber)
			assert.False(t, next.Persisted)
		})
	}
}

func TestDrawService_Create_FirstDrawLocksSOV(t *testing.T) {
	f := newDrawFixture(lineItems(entity.WorkflowStatusApproved, "10"), 4)

	created, err := f.svc.Create(context.Background(), admin, testJob, CreateDrawRequest{
		SOVVersion:        4,
		ApplicationNumber: appNo(1),
		TotalAmount:       decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Persisted)
	assert.Equal(t, "JOB-7-001", created.InvoiceNumber)
	assert.Equal(t, int64(5), f.versions.version)
	assert.Len(t, f.draws.draws, 1)
	assert.Equal(t, []event.Type{event.TypeDrawCreated}, f.publisher.types())

	locked, err := f.locks.IsLocked(context.Background(), testJob)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestDrawService_Create_StaleSOVVersion(t *testing.T) {
	f := newDrawFixture(lineItems(entity.WorkflowStatusApproved, "10"), 4)

	_, err := f.svc.Create(context.Background(), admin, testJob, CreateDrawRequest{SOVVersion: 3})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Empty(t, f.draws.draws)
}

func TestDrawService_Create_ApplicationNumberTaken(t *testing.T) {
	f := newDrawFixture(nil, 2, &entity.Draw{ID: "d1", ApplicationNumber: appNo(1), Status: entity.DrawStatusIssued})

	_, err := f.svc.Create(context.Background(), admin, testJob, CreateDrawRequest{ApplicationNumber: appNo(1)})
	assert.ErrorIs(t, err, errs.ErrConflict)

	created, err := f.svc.Create(context.Background(), admin, testJob, CreateDrawRequest{
		ApplicationNumber: appNo(2),
		InvoiceNumber:     " INV-2 ",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, *created.ApplicationNumber)
	assert.Equal(t, "INV-2", created.InvoiceNumber)
	assert.Equal(t, int64(2), f.versions.version)
}

func TestDrawService_Create_InsertRace(t *testing.T) {
	f := newDrawFixture(nil, 0, &entity.Draw{ID: "d1", ApplicationNumber: appNo(1), Status: entity.DrawStatusIssued})
	f.draws.insertFunc = func(ctx context.Context, d *entity.Draw) error {
		return fmt.Errorf("draw %d exists: %w", *d.ApplicationNumber, errs.ErrConflict)
	}

	_, err := f.svc.Create(context.Background(), admin, testJob, CreateDrawRequest{})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Empty(t, f.publisher.types())
}
