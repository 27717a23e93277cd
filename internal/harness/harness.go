// Package harness implements the thin contract (C5) a multi-pass
// test-framework adapter drives to run a mutation-testing session: create a
// session, select and run mutations, and report results back. Session
// identity follows the teacher's campaign/browser-session idiom
// (google/uuid opaque handles over mutable state) rather than an
// incrementing counter, so ids are safe to hand to concurrent callers and
// to log without collision.
package harness

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/anschnapp/mutflow/internal/ir"
	"github.com/anschnapp/mutflow/internal/logger"
	"github.com/anschnapp/mutflow/internal/registry"
	"github.com/anschnapp/mutflow/internal/session"
)

// Harness is the contract spec.md §4.5 describes.
type Harness interface {
	// Checker returns the ir.Checker a test-framework adapter attaches to
	// its evaluation context via ir.WithChecker before invoking
	// instrumented code under a session.
	Checker() ir.Checker
	CreateSession(cfg session.Config) string
	SelectMutationForRun(sessionID string, run int) (registry.ActiveMutation, bool)
	StartRun(sessionID string, run int, mutation *registry.ActiveMutation)
	TrackTestExecution(sessionID string, testID string)
	MarkTestFailed(sessionID string, testName string)
	RecordMutationResult(sessionID string)
	RecordTimeout(sessionID string, testName string)
	DidMutationSurvive(sessionID string) bool
	GetActiveMutation(sessionID string) *registry.ActiveMutation
	GetDisplayName(sessionID string, mutation registry.ActiveMutation) string
	EndRun(sessionID string)
	CloseSession(sessionID string) session.Summary
}

// Manager is the default Harness implementation. It owns one Registry
// shared by every session it creates — matching spec.md's "single
// process-wide coordinator" — and a map of live sessions keyed by uuid.
type Manager struct {
	reg *registry.Registry

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewManager builds a Manager over a fresh process-wide registry.
func NewManager() *Manager {
	return &Manager{reg: registry.New(), sessions: make(map[string]*session.Session)}
}

// Checker exposes the shared registry as an ir.Checker.
func (m *Manager) Checker() ir.Checker {
	return m.reg
}

func (m *Manager) CreateSession(cfg session.Config) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = session.New(m.reg, cfg)
	m.mu.Unlock()
	logger.SessionCreated(id, cfg.MaxRuns, int(cfg.Selection))
	return id
}

func (m *Manager) get(sessionID string) *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		panic(fmt.Sprintf("harness: unknown session %s", sessionID))
	}
	return s
}

func (m *Manager) SelectMutationForRun(sessionID string, run int) (registry.ActiveMutation, bool) {
	return m.get(sessionID).SelectMutationForRun(run)
}

func (m *Manager) StartRun(sessionID string, run int, mutation *registry.ActiveMutation) {
	m.get(sessionID).StartRun(run, mutation)
}

func (m *Manager) TrackTestExecution(sessionID string, testID string) {
	m.get(sessionID).TrackTestExecution(testID)
}

func (m *Manager) MarkTestFailed(sessionID string, testName string) {
	m.get(sessionID).MarkTestFailed(testName)
}

func (m *Manager) RecordMutationResult(sessionID string) {
	m.get(sessionID).RecordMutationResult()
}

func (m *Manager) RecordTimeout(sessionID string, testName string) {
	s := m.get(sessionID)
	s.RecordTimeout(testName)
	if mutation := s.GetActiveMutation(); mutation != nil {
		logger.SessionMutation(sessionID, logger.OutcomeTimedOut, s.GetDisplayName(*mutation))
	}
}

func (m *Manager) DidMutationSurvive(sessionID string) bool {
	return m.get(sessionID).DidMutationSurvive()
}

func (m *Manager) GetActiveMutation(sessionID string) *registry.ActiveMutation {
	return m.get(sessionID).GetActiveMutation()
}

func (m *Manager) GetDisplayName(sessionID string, mutation registry.ActiveMutation) string {
	return m.get(sessionID).GetDisplayName(mutation)
}

func (m *Manager) EndRun(sessionID string) {
	m.get(sessionID).EndRun()
}

// CloseSession finalizes and removes the session, returning its summary.
func (m *Manager) CloseSession(sessionID string) session.Summary {
	s := m.get(sessionID)
	summary := s.Close()
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	logger.SessionClosed(sessionID, summary.Tested, summary.Total, summary.Killed, summary.Survived)
	return summary
}

var _ Harness = (*Manager)(nil)
