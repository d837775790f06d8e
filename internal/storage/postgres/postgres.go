// Package postgres implements storage.UserDataStorageConnector on top of
// gorm.io/gorm + gorm.io/driver/postgres. Grounded on BaSui01-agentflow's
// go.mod and llm/db_init.go — the teacher itself carries no storage layer
// (it is a stateless proxy), so agentflow is the donor for this dependency
// pair (see DESIGN.md FULL-DOMAIN-1).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nulpointcorp/llm-gateway/internal/domain"
	"github.com/nulpointcorp/llm-gateway/internal/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// agentRow, skillRow, etc. are gorm-mapped rows. JSON-valued domain fields
// are stored as serialized text columns — this repo does not own the
// persistent store's schema/migrations beyond what it needs to run
// (Non-goal: "persistent storage semantics").
type (
	agentRow struct {
		ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
		OwnerID     string    `gorm:"index"`
		Name        string    `gorm:"index"`
		Description string
		Metadata    string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
	skillRow struct {
		ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
		AgentID           uuid.UUID `gorm:"type:uuid;index"`
		Name              string    `gorm:"index"`
		Description       string
		Metadata          string
		MaxConfigurations int
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}
	skillConfigRow struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
		SkillID   uuid.UUID `gorm:"type:uuid;index"`
		Name      string    `gorm:"index"`
		Data      string    // JSON-encoded map[string]domain.SkillConfigVersion
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	modelRow struct {
		ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
		AIProviderAPIKeyID  uuid.UUID `gorm:"type:uuid;index"`
		ModelName           string
		ModelType           string
		EmbeddingDimensions *int
	}
	apiKeyRow struct {
		ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
		AIProvider   string
		APIKey       string
		CustomFields string
	}
	toolRow struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
		AgentID   uuid.UUID `gorm:"type:uuid;index"`
		Hash      string    `gorm:"index"`
		Spec      string
		CreatedAt time.Time
	}
	logRow struct {
		ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
		AgentID      uuid.UUID `gorm:"type:uuid;index"`
		SkillID      uuid.UUID `gorm:"type:uuid;index"`
		Method       string
		Endpoint     string
		FunctionName string
		Status       int
		StartTime    time.Time
		EndTime      time.Time
		AIProvider   string
		Model        string
		CacheStatus  string
		TraceID      string
		Data         string // JSON-encoded full domain.Log, for fields not promoted to columns
	}
	evaluationRunRow struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
		AgentID   uuid.UUID `gorm:"type:uuid;index"`
		Data      string
		CreatedAt time.Time
	}
	logOutputRow struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
		LogID     uuid.UUID `gorm:"type:uuid;index"`
		Data      string
		CreatedAt time.Time
	}
	feedbackRow struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
		LogID     uuid.UUID `gorm:"type:uuid;index"`
		Data      string
		CreatedAt time.Time
	}
)

func (agentRow) TableName() string         { return "agents" }
func (skillRow) TableName() string         { return "skills" }
func (skillConfigRow) TableName() string   { return "skill_configurations" }
func (modelRow) TableName() string         { return "models" }
func (apiKeyRow) TableName() string        { return "ai_provider_api_keys" }
func (toolRow) TableName() string          { return "tools" }
func (logRow) TableName() string           { return "logs" }
func (evaluationRunRow) TableName() string { return "evaluation_runs" }
func (logOutputRow) TableName() string     { return "log_outputs" }
func (feedbackRow) TableName() string      { return "feedback" }

// Store implements storage.UserDataStorageConnector over a *gorm.DB.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and auto-migrates the row types above.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: open: %w", err)
	}
	if err := db.AutoMigrate(
		&agentRow{}, &skillRow{}, &skillConfigRow{}, &modelRow{}, &apiKeyRow{},
		&toolRow{}, &logRow{}, &evaluationRunRow{}, &logOutputRow{}, &feedbackRow{},
	); err != nil {
		return nil, fmt.Errorf("storage/postgres: automigrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) GetAgentByName(ctx context.Context, ownerID, name string) (*domain.Agent, error) {
	var row agentRow
	err := s.db.WithContext(ctx).Where("owner_id = ? AND name = ?", ownerID, name).First(&row).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return agentFromRow(row), nil
}

func (s *Store) CreateAgent(ctx context.Context, a *domain.Agent) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	row := agentRow{
		ID: a.ID, Name: a.Name, Description: a.Description,
		Metadata: toJSON(a.Metadata), CreatedAt: now, UpdatedAt: now,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) DeleteAgent(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var skillIDs []uuid.UUID
		if err := tx.Model(&skillRow{}).Where("agent_id = ?", id).Pluck("id", &skillIDs).Error; err != nil {
			return err
		}
		if len(skillIDs) > 0 {
			if err := tx.Where("skill_id IN ?", skillIDs).Delete(&skillConfigRow{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("agent_id = ?", id).Delete(&skillRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&agentRow{}).Error
	})
}

func (s *Store) GetSkillByName(ctx context.Context, agentID uuid.UUID, name string) (*domain.Skill, error) {
	var row skillRow
	err := s.db.WithContext(ctx).Where("agent_id = ? AND name = ?", agentID, name).First(&row).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &domain.Skill{
		ID: row.ID, AgentID: row.AgentID, Name: row.Name, Description: row.Description,
		Metadata: fromJSONMap(row.Metadata), MaxConfigurations: row.MaxConfigurations,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *Store) CreateSkill(ctx context.Context, sk *domain.Skill) error {
	if sk.ID == uuid.Nil {
		sk.ID = uuid.New()
	}
	now := time.Now().UTC()
	sk.CreatedAt, sk.UpdatedAt = now, now
	row := skillRow{
		ID: sk.ID, AgentID: sk.AgentID, Name: sk.Name, Description: sk.Description,
		Metadata: toJSON(sk.Metadata), MaxConfigurations: sk.MaxConfigurations,
		CreatedAt: now, UpdatedAt: now,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetSkillConfiguration(ctx context.Context, skillID uuid.UUID, name string) (*domain.SkillConfiguration, error) {
	var row skillConfigRow
	err := s.db.WithContext(ctx).Where("skill_id = ? AND name = ?", skillID, name).First(&row).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	var data map[string]domain.SkillConfigVersion
	_ = json.Unmarshal([]byte(row.Data), &data)
	return &domain.SkillConfiguration{
		ID: row.ID, SkillID: row.SkillID, Name: row.Name, Data: data,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *Store) CreateSkillConfiguration(ctx context.Context, c *domain.SkillConfiguration) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	row := skillConfigRow{
		ID: c.ID, SkillID: c.SkillID, Name: c.Name, Data: toJSON(c.Data),
		CreatedAt: now, UpdatedAt: now,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetModel(ctx context.Context, id uuid.UUID) (*domain.Model, error) {
	var row modelRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &domain.Model{
		ID: row.ID, AIProviderAPIKeyID: row.AIProviderAPIKeyID, ModelName: row.ModelName,
		ModelType: domain.ModelType(row.ModelType), EmbeddingDimensions: row.EmbeddingDimensions,
	}, nil
}

func (s *Store) CreateModel(ctx context.Context, m *domain.Model) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	row := modelRow{
		ID: m.ID, AIProviderAPIKeyID: m.AIProviderAPIKeyID, ModelName: m.ModelName,
		ModelType: string(m.ModelType), EmbeddingDimensions: m.EmbeddingDimensions,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetAPIKey(ctx context.Context, id uuid.UUID) (*domain.AIProviderAPIKey, error) {
	var row apiKeyRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	var custom map[string]any
	_ = json.Unmarshal([]byte(row.CustomFields), &custom)
	return &domain.AIProviderAPIKey{
		ID: row.ID, AIProvider: row.AIProvider, APIKey: row.APIKey, CustomFields: custom,
	}, nil
}

func (s *Store) CreateAPIKey(ctx context.Context, k *domain.AIProviderAPIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	row := apiKeyRow{
		ID: k.ID, AIProvider: k.AIProvider, APIKey: k.APIKey, CustomFields: toJSON(k.CustomFields),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) CaptureTool(ctx context.Context, t *domain.Tool) error {
	var existing toolRow
	err := s.db.WithContext(ctx).Where("agent_id = ? AND hash = ?", t.AgentID, t.Hash).First(&existing).Error
	if err == nil {
		return nil // idempotent
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now().UTC()
	row := toolRow{ID: t.ID, AgentID: t.AgentID, Hash: t.Hash, Spec: t.Spec, CreatedAt: t.CreatedAt}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) AppendLog(ctx context.Context, l *domain.Log) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	row := logRow{
		ID: l.ID, AgentID: l.AgentID, SkillID: l.SkillID, Method: l.Method, Endpoint: l.Endpoint,
		FunctionName: l.FunctionName, Status: l.Status, StartTime: l.StartTime, EndTime: l.EndTime,
		AIProvider: l.AIProvider, Model: l.Model, CacheStatus: string(l.CacheStatus),
		TraceID: l.TraceID, Data: toJSON(l),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) CreateEvaluationRun(ctx context.Context, e *domain.EvaluationRun) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	row := evaluationRunRow{ID: e.ID, AgentID: e.AgentID, Data: toJSON(e.Data), CreatedAt: e.CreatedAt}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) CreateLogOutput(ctx context.Context, o *domain.LogOutput) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now().UTC()
	row := logOutputRow{ID: o.ID, LogID: o.LogID, Data: toJSON(o.Data), CreatedAt: o.CreatedAt}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) CreateFeedback(ctx context.Context, f *domain.Feedback) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now().UTC()
	row := feedbackRow{ID: f.ID, LogID: f.LogID, Data: toJSON(f.Data), CreatedAt: f.CreatedAt}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) Ready(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func agentFromRow(row agentRow) *domain.Agent {
	return &domain.Agent{
		ID: row.ID, Name: row.Name, Description: row.Description,
		Metadata: fromJSONMap(row.Metadata), CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func mapNotFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return storage.ErrNotFound
	}
	return err
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func fromJSONMap(s string) map[string]string {
	var m map[string]string
	_ = json.Unmarshal([]byte(s), &m)
	return m
}
