// Package storage defines the abstract persisted-state layout named in §6:
// UserDataStorageConnector (CRUD over Agent/Skill/SkillConfiguration/Model/
// AIProviderAPIKey/Tool/Log/EvaluationRun/LogOutput/Feedback) and
// CacheStorageConnector (a thin doc-comment alias over internal/cache.Cache
// — no new type is needed since Cache's Get/Set/Delete shape already
// matches getCache/setCache).
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
)

// ErrNotFound is returned by lookup methods when the requested record does
// not exist. Callers map it to the appropriate 404/422 per §7.
var ErrNotFound = errors.New("storage: not found")

// UserDataStorageConnector is the storage-layer interface the resolver,
// hook executor, and tool-capture stage depend on. Implementations must be
// safe for concurrent use (§5: "shared resources... access is via
// interfaces that must be safe for concurrent use").
type UserDataStorageConnector interface {
	GetAgentByName(ctx context.Context, ownerID, name string) (*domain.Agent, error)
	CreateAgent(ctx context.Context, a *domain.Agent) error
	DeleteAgent(ctx context.Context, id uuid.UUID) error

	GetSkillByName(ctx context.Context, agentID uuid.UUID, name string) (*domain.Skill, error)
	CreateSkill(ctx context.Context, s *domain.Skill) error

	GetSkillConfiguration(ctx context.Context, skillID uuid.UUID, name string) (*domain.SkillConfiguration, error)
	CreateSkillConfiguration(ctx context.Context, c *domain.SkillConfiguration) error

	GetModel(ctx context.Context, id uuid.UUID) (*domain.Model, error)
	CreateModel(ctx context.Context, m *domain.Model) error

	GetAPIKey(ctx context.Context, id uuid.UUID) (*domain.AIProviderAPIKey, error)
	CreateAPIKey(ctx context.Context, k *domain.AIProviderAPIKey) error

	// CaptureTool records a tool spec hash once per agent; repeated calls
	// with the same (agentID, hash) are idempotent (§4.B stage 10).
	CaptureTool(ctx context.Context, t *domain.Tool) error

	AppendLog(ctx context.Context, l *domain.Log) error

	CreateEvaluationRun(ctx context.Context, e *domain.EvaluationRun) error
	CreateLogOutput(ctx context.Context, o *domain.LogOutput) error
	CreateFeedback(ctx context.Context, f *domain.Feedback) error

	// Ready reports whether the backend is reachable. The /readiness handler
	// does not call it.
	Ready(ctx context.Context) bool
}

// CacheStorageConnector, per §6, is getCache(key)/setCache(key, value, ttl?).
// No separate type is declared for it: internal/cache.Cache's
// Get(ctx, key)/Set(ctx, key, value, ttl)/Delete(ctx, key) already has
// exactly this shape, so that interface is used directly wherever this
// spec name is referenced.
