package persistence

import (
	"context"
	"fmt"

	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/log"
)

// Migrate creates or updates the full schema: relational tables via GORM,
// then the virtual tables and views raw SQL owns.
func Migrate(ctx context.Context, db database.Database, logger *log.Logger) error {
	if err := db.Session(ctx).AutoMigrate(
		&ServerModel{},
		&PackageModel{},
		&RemoteModel{},
		&LocalSourceModel{},
		&EnvVarModel{},
		&IconModel{},
		&ToolModel{},
		&ToolParameterModel{},
		&ResourceModel{},
		&PromptModel{},
		&ConnectionLogModel{},
		&ExtractionStatusModel{},
		&EnrichmentStatusModel{},
		&GitHubSignalModel{},
		&PackageDownloadsModel{},
		&DependencySignalModel{},
		&ConfigReferenceModel{},
		&CrossListingModel{},
		&ServiceCostModel{},
		&BacklinkEdgeModel{},
		&BacklinkScoreModel{},
		&MarketRankingModel{},
		&SearchDocModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := createVirtualTables(ctx, db, logger); err != nil {
		return err
	}

	return createViews(ctx, db, false)
}

// createVirtualTables creates the FTS5 keyword index and, when the vector
// extension is loaded, the embedding table.
func createVirtualTables(ctx context.Context, db database.Database, logger *log.Logger) error {
	err := db.Session(ctx).Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tools_fts USING fts5(
			name_text,
			desc_text,
			params_text,
			content='tools_search',
			content_rowid='tool_id'
		)`).Error
	if err != nil {
		return fmt.Errorf("create tools_fts: %w", err)
	}

	if !db.HasVector() {
		logger.Warn("vector extension not loaded, skipping tool_embeddings table; search falls back to in-memory similarity")
		return ensureFallbackEmbeddings(ctx, db)
	}

	err = db.Session(ctx).Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tool_embeddings USING vec0(
			tool_id INTEGER PRIMARY KEY,
			embedding FLOAT[768] distance_metric=cosine
		)`).Error
	if err != nil {
		return fmt.Errorf("create tool_embeddings: %w", err)
	}
	return nil
}

// ensureFallbackEmbeddings creates a plain table with the same shape as the
// vec0 virtual table so embedding rows survive a missing extension.
func ensureFallbackEmbeddings(ctx context.Context, db database.Database) error {
	err := db.Session(ctx).Exec(`
		CREATE TABLE IF NOT EXISTS tool_embeddings (
			tool_id INTEGER PRIMARY KEY,
			embedding BLOB
		)`).Error
	if err != nil {
		return fmt.Errorf("create fallback tool_embeddings: %w", err)
	}
	return nil
}

// createViews creates the reporting views. With force set the views are
// dropped and recreated, picking up definition changes.
func createViews(ctx context.Context, db database.Database, force bool) error {
	session := db.Session(ctx)

	serverSummary := `
		SELECT
			s.name,
			s.description,
			s.version,
			s.status,
			s.repository_url,
			s.updated_at,
			COALESCE(
				(SELECT GROUP_CONCAT(DISTINCT sp.registry_type)
				 FROM server_packages sp WHERE sp.server_name = s.name),
				(SELECT GROUP_CONCAT(DISTINCT sr.transport_type)
				 FROM server_remotes sr WHERE sr.server_name = s.name)
			) AS package_types,
			(SELECT COUNT(*) FROM environment_variables ev
			 WHERE ev.server_name = s.name AND ev.is_secret = 1) AS auth_vars_count,
			(SELECT COUNT(*) FROM tools t WHERE t.server_name = s.name) AS tools_count,
			(SELECT COUNT(*) FROM resources r WHERE r.server_name = s.name) AS resources_count,
			(SELECT sr.url FROM server_remotes sr
			 WHERE sr.server_name = s.name LIMIT 1) AS remote_url,
			mr.total_score AS market_rank
		FROM servers s
		LEFT JOIN market_rankings mr ON s.name = mr.server_name`

	toolsFull := `
		SELECT
			t.id AS tool_id,
			t.tool_name,
			t.title,
			t.description,
			t.input_schema,
			s.name AS server_name,
			s.description AS server_description,
			(SELECT COUNT(*) FROM environment_variables ev
			 WHERE ev.server_name = s.name AND ev.is_secret = 1) > 0 AS requires_auth
		FROM tools t
		JOIN servers s ON t.server_name = s.name`

	for _, view := range []struct {
		name string
		body string
	}{
		{"v_server_summary", serverSummary},
		{"v_tools_full", toolsFull},
	} {
		if force {
			if err := session.Exec("DROP VIEW IF EXISTS " + view.name).Error; err != nil {
				return fmt.Errorf("drop view %s: %w", view.name, err)
			}
		}
		stmt := fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS %s", view.name, view.body)
		if err := session.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create view %s: %w", view.name, err)
		}
	}
	return nil
}

// RefreshViews drops and recreates the reporting views.
func RefreshViews(ctx context.Context, db database.Database) error {
	return createViews(ctx, db, true)
}
