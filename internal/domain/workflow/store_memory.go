package workflow

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process StoreAPI used by tests and local runs without
// a database. Records are copied on read and replaced whole on write.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]LeaveRequest
	order    map[string]int
	seq      int

	// Departments maps employee id to department for filter queries; the
	// durable store resolves this through the directory table instead.
	Departments map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:    make(map[string]LeaveRequest),
		order:       make(map[string]int),
		Departments: make(map[string]string),
	}
}

func (m *MemoryStore) InsertRequest(ctx context.Context, req LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.order[req.ID] = m.seq
	m.requests[req.ID] = req
	return nil
}

func (m *MemoryStore) RequestByID(ctx context.Context, id string) (LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return LeaveRequest{}, ErrRequestNotFound
	}
	return req, nil
}

func (m *MemoryStore) RequestsForEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	return m.ListRequests(ctx, Filter{EmployeeID: employeeID})
}

func (m *MemoryStore) ListRequests(ctx context.Context, filter Filter) ([]LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []LeaveRequest
	for _, req := range m.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Department != "" && m.Departments[req.EmployeeID] != filter.Department {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return m.order[out[i].ID] > m.order[out[j].ID]
	})
	return out, nil
}

func (m *MemoryStore) UpdateStatusIf(ctx context.Context, id string, expected Status, update StatusUpdate) (LeaveRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return LeaveRequest{}, false, ErrRequestNotFound
	}
	if req.Status != expected {
		return req, false, nil
	}

	req.Status = update.Status
	req.DecidedBy = update.DecidedBy
	decidedAt := update.DecidedAt
	req.DecidedAt = &decidedAt
	if update.ChiefApprover != "" {
		req.ChiefApprover = update.ChiefApprover
	}
	if update.RejectionReason != "" {
		req.RejectionReason = update.RejectionReason
	}
	m.requests[id] = req
	return req, true, nil
}
