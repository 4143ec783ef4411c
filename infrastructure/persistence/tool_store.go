package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/domain/store"
	"github.com/wisplabs/wisp/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToolStore persists extracted tools, resources, prompts and the
// per-server extraction bookkeeping.
type ToolStore struct {
	database.Repository[registry.Tool, ToolModel]
	db database.Database
}

// NewToolStore creates a ToolStore.
func NewToolStore(db database.Database) ToolStore {
	return ToolStore{
		Repository: database.NewRepository[registry.Tool, ToolModel](db, ToolMapper{}, "tool"),
		db:         db,
	}
}

// ExtractionResult is everything one successful live extraction produced.
type ExtractionResult struct {
	ServerName string
	Tools      []registry.Tool
	Parameters []registry.ToolParameter
	Resources  []registry.Resource
	Prompts    []registry.Prompt
}

// SaveExtraction replaces a server's extracted entities in one transaction.
func (s ToolStore) SaveExtraction(ctx context.Context, result ExtractionResult) error {
	name := result.ServerName
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for _, target := range []any{
			&ToolModel{}, &ToolParameterModel{}, &ResourceModel{}, &PromptModel{},
		} {
			if err := tx.Where("server_name = ?", name).Delete(target).Error; err != nil {
				return fmt.Errorf("clear extraction of %s: %w", name, err)
			}
		}

		for _, tool := range result.Tools {
			m := ToolMapper{}.ToModel(tool)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert tool %s/%s: %w", name, tool.Name(), err)
			}
		}
		for _, param := range result.Parameters {
			m := ToolParameterMapper{}.ToModel(param)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert parameter %s/%s: %w", name, param.Name(), err)
			}
		}
		for _, resource := range result.Resources {
			m := ResourceMapper{}.ToModel(resource)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert resource %s: %w", name, err)
			}
		}
		for _, prompt := range result.Prompts {
			m := PromptMapper{}.ToModel(prompt)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert prompt %s: %w", name, err)
			}
		}
		return nil
	})
}

// ForServer returns all tools of a server.
func (s ToolStore) ForServer(ctx context.Context, serverName string) ([]registry.Tool, error) {
	return s.Find(ctx, store.WithServerName(serverName), store.WithOrderAsc("tool_name"))
}

// Parameters returns the parameters of one tool.
func (s ToolStore) Parameters(ctx context.Context, serverName, toolName string) ([]registry.ToolParameter, error) {
	var models []ToolParameterModel
	err := s.db.Session(ctx).
		Where("server_name = ? AND tool_name = ?", serverName, toolName).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find parameters: %w", err)
	}
	params := make([]registry.ToolParameter, len(models))
	for i, m := range models {
		params[i] = ToolParameterMapper{}.ToDomain(m)
	}
	return params, nil
}

// IndexableTool is the denormalized row the index builder consumes.
type IndexableTool struct {
	ToolID            int64
	ToolName          string
	Title             string
	Description       string
	ServerName        string
	ServerDescription string
}

// AllIndexable returns every tool joined with its server description.
func (s ToolStore) AllIndexable(ctx context.Context) ([]IndexableTool, error) {
	var rows []IndexableTool
	err := s.db.Session(ctx).Raw(`
		SELECT
			t.id AS tool_id,
			t.tool_name,
			t.title,
			t.description,
			s.name AS server_name,
			s.description AS server_description
		FROM tools t
		JOIN servers s ON t.server_name = s.name
		ORDER BY t.id`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list indexable tools: %w", err)
	}
	return rows, nil
}

// ExtractionStatus returns the extraction status of a server.
func (s ToolStore) ExtractionStatus(ctx context.Context, serverName string) (signal.ExtractionStatus, error) {
	var model ExtractionStatusModel
	err := s.db.Session(ctx).Where("server_name = ?", serverName).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return signal.ExtractionStatus{}, fmt.Errorf("%w: extraction status %s", database.ErrNotFound, serverName)
		}
		return signal.ExtractionStatus{}, fmt.Errorf("find extraction status: %w", err)
	}
	return ExtractionStatusMapper{}.ToDomain(model), nil
}

// SaveExtractionStatus upserts the extraction status of a server.
func (s ToolStore) SaveExtractionStatus(ctx context.Context, status signal.ExtractionStatus) error {
	model := ExtractionStatusMapper{}.ToModel(status)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save extraction status: %w", err)
	}
	return nil
}

// ExtractionCandidates returns server names eligible for extraction:
// servers with no status row, pending, or a retryable failure.
func (s ToolStore) ExtractionCandidates(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.Session(ctx).Raw(`
		SELECT s.name
		FROM servers s
		LEFT JOIN tool_extraction_status es ON s.name = es.server_name
		WHERE es.server_name IS NULL OR es.status IN (?, ?)
		ORDER BY s.name`,
		signal.StatusPending, signal.StatusTransientFailure).Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("list extraction candidates: %w", err)
	}
	return names, nil
}

// ClearExtractionStatuses deletes every extraction status row, making all
// servers candidates again.
func (s ToolStore) ClearExtractionStatuses(ctx context.Context) error {
	err := s.db.Session(ctx).Where("1 = 1").Delete(&ExtractionStatusModel{}).Error
	if err != nil {
		return fmt.Errorf("clear extraction statuses: %w", err)
	}
	return nil
}

// ExtractionOverview summarises live-extraction progress: servers per
// status plus total extracted entity counts.
type ExtractionOverview struct {
	Statuses  map[string]int64
	Tools     int64
	Resources int64
	Prompts   int64
}

// Overview computes the extraction overview.
func (s ToolStore) Overview(ctx context.Context) (ExtractionOverview, error) {
	overview := ExtractionOverview{Statuses: map[string]int64{}}

	type statusCount struct {
		Status string
		N      int64
	}
	var rows []statusCount
	err := s.db.Session(ctx).Model(&ExtractionStatusModel{}).
		Select("status, count(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return overview, fmt.Errorf("count extraction statuses: %w", err)
	}
	for _, row := range rows {
		overview.Statuses[row.Status] = row.N
	}

	for _, c := range []struct {
		model any
		dst   *int64
	}{
		{&ToolModel{}, &overview.Tools},
		{&ResourceModel{}, &overview.Resources},
		{&PromptModel{}, &overview.Prompts},
	} {
		if err := s.db.Session(ctx).Model(c.model).Count(c.dst).Error; err != nil {
			return overview, fmt.Errorf("count extracted entities: %w", err)
		}
	}
	return overview, nil
}

// ConnectionAttempt is one appended connection-log entry.
type ConnectionAttempt struct {
	ServerName     string
	ConnectionType string
	URLOrCommand   string
	Success        bool
	ErrorMessage   string
	Counts         signal.ExtractionCounts
}

// LogConnection appends a connection attempt.
func (s ToolStore) LogConnection(ctx context.Context, attempt ConnectionAttempt) error {
	model := ConnectionLogModel{
		ServerName:     attempt.ServerName,
		ConnectionType: attempt.ConnectionType,
		URLOrCommand:   attempt.URLOrCommand,
		Success:        attempt.Success,
		ErrorMessage:   attempt.ErrorMessage,
		ToolsCount:     attempt.Counts.Tools,
		ResourcesCount: attempt.Counts.Resources,
		PromptsCount:   attempt.Counts.Prompts,
		AttemptedAt:    time.Now().UTC(),
	}
	if err := s.db.Session(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("log connection: %w", err)
	}
	return nil
}
