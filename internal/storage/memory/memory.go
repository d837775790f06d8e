// Package memory implements storage.UserDataStorageConnector as in-process
// RWMutex-guarded maps — no network/driver round trip, matching the
// teacher's internal/cache.MemoryCache texture rather than gorm's in-memory
// sqlite driver. Used when STORAGE_DRIVER is "memory" (the default), and by
// every unit test.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/storage"
)

// Store is an in-process UserDataStorageConnector. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	agents         map[uuid.UUID]domain.Agent
	agentsByName   map[string]uuid.UUID // "ownerID|name" -> id; owner is the empty string in this single-tenant build
	skills         map[uuid.UUID]domain.Skill
	skillsByName   map[string]uuid.UUID // "agentID|name" -> id
	configurations map[uuid.UUID]domain.SkillConfiguration
	configsByName  map[string]uuid.UUID // "skillID|name" -> id
	models         map[uuid.UUID]domain.Model
	apiKeys        map[uuid.UUID]domain.AIProviderAPIKey
	tools          map[string]domain.Tool // "agentID|hash" -> tool
	logs           []domain.Log
	evalRuns       []domain.EvaluationRun
	logOutputs     []domain.LogOutput
	feedback       []domain.Feedback
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		agents:         make(map[uuid.UUID]domain.Agent),
		agentsByName:   make(map[string]uuid.UUID),
		skills:         make(map[uuid.UUID]domain.Skill),
		skillsByName:   make(map[string]uuid.UUID),
		configurations: make(map[uuid.UUID]domain.SkillConfiguration),
		configsByName:  make(map[string]uuid.UUID),
		models:         make(map[uuid.UUID]domain.Model),
		apiKeys:        make(map[uuid.UUID]domain.AIProviderAPIKey),
		tools:          make(map[string]domain.Tool),
	}
}

func (s *Store) GetAgentByName(_ context.Context, ownerID, name string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.agentsByName[ownerID+"|"+name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	a := s.agents[id]
	return &a, nil
}

func (s *Store) CreateAgent(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.agents[a.ID] = *a
	s.agentsByName[""+"|"+a.Name] = a.ID
	return nil
}

func (s *Store) DeleteAgent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.agents, id)
	delete(s.agentsByName, ""+"|"+a.Name)
	// Cascade delete owned skills/configurations, per §3 Invariants.
	for skillID, sk := range s.skills {
		if sk.AgentID != id {
			continue
		}
		delete(s.skills, skillID)
		delete(s.skillsByName, sk.AgentID.String()+"|"+sk.Name)
		for cfgID, cfg := range s.configurations {
			if cfg.SkillID == skillID {
				delete(s.configurations, cfgID)
				delete(s.configsByName, skillID.String()+"|"+cfg.Name)
			}
		}
	}
	return nil
}

func (s *Store) GetSkillByName(_ context.Context, agentID uuid.UUID, name string) (*domain.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.skillsByName[agentID.String()+"|"+name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	sk := s.skills[id]
	return &sk, nil
}

func (s *Store) CreateSkill(_ context.Context, sk *domain.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sk.ID == uuid.Nil {
		sk.ID = uuid.New()
	}
	now := time.Now().UTC()
	sk.CreatedAt, sk.UpdatedAt = now, now
	s.skills[sk.ID] = *sk
	s.skillsByName[sk.AgentID.String()+"|"+sk.Name] = sk.ID
	return nil
}

func (s *Store) GetSkillConfiguration(_ context.Context, skillID uuid.UUID, name string) (*domain.SkillConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.configsByName[skillID.String()+"|"+name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := s.configurations[id]
	return &c, nil
}

func (s *Store) CreateSkillConfiguration(_ context.Context, c *domain.SkillConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.configurations[c.ID] = *c
	s.configsByName[c.SkillID.String()+"|"+c.Name] = c.ID
	return nil
}

func (s *Store) GetModel(_ context.Context, id uuid.UUID) (*domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &m, nil
}

func (s *Store) CreateModel(_ context.Context, m *domain.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.models[m.ID] = *m
	return nil
}

func (s *Store) GetAPIKey(_ context.Context, id uuid.UUID) (*domain.AIProviderAPIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.apiKeys[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &k, nil
}

func (s *Store) CreateAPIKey(_ context.Context, k *domain.AIProviderAPIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	s.apiKeys[k.ID] = *k
	return nil
}

func (s *Store) CaptureTool(_ context.Context, t *domain.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := t.AgentID.String() + "|" + t.Hash
	if _, exists := s.tools[key]; exists {
		return nil // idempotent — tool already captured for this agent
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now().UTC()
	s.tools[key] = *t
	return nil
}

func (s *Store) AppendLog(_ context.Context, l *domain.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.logs = append(s.logs, *l)
	return nil
}

func (s *Store) CreateEvaluationRun(_ context.Context, e *domain.EvaluationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	s.evalRuns = append(s.evalRuns, *e)
	return nil
}

func (s *Store) CreateLogOutput(_ context.Context, o *domain.LogOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now().UTC()
	s.logOutputs = append(s.logOutputs, *o)
	return nil
}

func (s *Store) CreateFeedback(_ context.Context, f *domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now().UTC()
	s.feedback = append(s.feedback, *f)
	return nil
}

// Ready always reports true: an in-process map has no external dependency
// that can be down.
func (s *Store) Ready(_ context.Context) bool { return true }

// Logs returns a snapshot copy of recorded logs, for tests.
func (s *Store) Logs() []domain.Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Log, len(s.logs))
	copy(out, s.logs)
	return out
}
