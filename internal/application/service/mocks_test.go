package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/sov-billing/internal/domain/entity"
	"github.com/garyjia/sov-billing/internal/domain/errs"
	"github.com/garyjia/sov-billing/internal/domain/event"
	"github.com/garyjia/sov-billing/internal/domain/sovimport"
)

// mockSOVRepo keeps items in memory unless a func override is set
type mockSOVRepo struct {
	items          map[string]*entity.SOVLineItem
	softDeleted    []string
	listActiveFunc func(ctx context.Context, job entity.JobKey) ([]*entity.SOVLineItem, error)
	upsertFunc     func(ctx context.Context, items []*entity.SOVLineItem) error
}

func newMockSOVRepo(items ...*entity.SOVLineItem) *mockSOVRepo {
	m := &mockSOVRepo{items: map[string]*entity.SOVLineItem{}}
	for _, it := range items {
		m.items[it.ID] = it.Clone()
	}
	return m
}

func (m *mockSOVRepo) ListActive(ctx context.Context, job entity.JobKey) ([]*entity.SOVLineItem, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx, job)
	}
	out := []*entity.SOVLineItem{}
	for _, it := range m.items {
		if it.DeletedAt == nil {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *mockSOVRepo) UpsertMany(ctx context.Context, items []*entity.SOVLineItem) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, items)
	}
	for _, it := range items {
		m.items[it.ID] = it.Clone()
	}
	return nil
}

func (m *mockSOVRepo) SoftDelete(ctx context.Context, job entity.JobKey, ids []string, at time.Time) (int64, error) {
	var n int64
	for _, id := range ids {
		if it, ok := m.items[id]; ok && it.DeletedAt == nil {
			t := at
			it.DeletedAt = &t
			m.softDeleted = append(m.softDeleted, id)
			n++
		}
	}
	return n, nil
}

type mockVersionRepo struct {
	version int64
	casFunc func(ctx context.Context, job entity.JobKey, expected int64) (int64, error)
}

func (m *mockVersionRepo) Get(ctx context.Context, job entity.JobKey) (int64, error) {
	return m.version, nil
}

func (m *mockVersionRepo) CompareAndSwap(ctx context.Context, job entity.JobKey, expected int64) (int64, error) {
	if m.casFunc != nil {
		return m.casFunc(ctx, job, expected)
	}
	if expected != m.version {
		return 0, errs.ErrConflict
	}
	m.version++
	return m.version, nil
}

type mockDrawRepo struct {
	draws      []*entity.Draw
	insertFunc func(ctx context.Context, d *entity.Draw) error
}

func (m *mockDrawRepo) ListByJob(ctx context.Context, job entity.JobKey) ([]*entity.Draw, error) {
	return append([]*entity.Draw(nil), m.draws...), nil
}

func (m *mockDrawRepo) Exists(ctx context.Context, job entity.JobKey) (bool, error) {
	return len(m.draws) > 0, nil
}

func (m *mockDrawRepo) InsertIfAbsent(ctx context.Context, d *entity.Draw) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, d)
	}
	m.draws = append(m.draws, d)
	return nil
}

type mockCommitmentRepo struct {
	getByIDFunc func(ctx context.Context, companyID, id string) (*entity.Commitment, error)
}

func (m *mockCommitmentRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Commitment, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, companyID, id)
	}
	return nil, errs.ErrNotFound
}

type mockCostCodeRepo struct {
	codes []entity.CostCode
}

func (m *mockCostCodeRepo) ListActive(ctx context.Context, job entity.JobKey) ([]entity.CostCode, error) {
	return m.codes, nil
}

type mockBillRepo struct {
	bills      []*entity.Bill
	createFunc func(ctx context.Context, bill *entity.Bill) error
}

func (m *mockBillRepo) Create(ctx context.Context, bill *entity.Bill) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, bill)
	}
	bill.ID = "bill-new"
	m.bills = append(m.bills, bill)
	return nil
}

func (m *mockBillRepo) ListByCommitment(ctx context.Context, companyID, commitmentID string) ([]*entity.Bill, error) {
	return append([]*entity.Bill(nil), m.bills...), nil
}

type mockEventRepo struct {
	events     []*event.Event
	appendFunc func(ctx context.Context, evt *event.Event) error
}

func (m *mockEventRepo) Append(ctx context.Context, evt *event.Event) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, evt)
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *mockEventRepo) ListByJob(ctx context.Context, job entity.JobKey, limit int) ([]*event.Event, error) {
	return m.events, nil
}

type mockTableReader struct {
	table   *sovimport.Table
	readErr error
}

func (m *mockTableReader) Read(ctx context.Context, fileName string, data []byte) (*sovimport.Table, error) {
	return m.table, m.readErr
}

type mockTableWriter struct {
	headers []string
	rows    [][]any
}

func (m *mockTableWriter) Write(ctx context.Context, sheet string, headers []string, rows [][]any) ([]byte, error) {
	m.headers = headers
	m.rows = rows
	return []byte("xlsx"), nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) Publish(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
