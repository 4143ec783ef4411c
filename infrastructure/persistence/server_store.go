package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/store"
	"github.com/wisplabs/wisp/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServerStore persists registry servers and their child records.
type ServerStore struct {
	database.Repository[registry.Server, ServerModel]
	db database.Database
}

// NewServerStore creates a ServerStore.
func NewServerStore(db database.Database) ServerStore {
	return ServerStore{
		Repository: database.NewRepository[registry.Server, ServerModel](db, ServerMapper{}, "server"),
		db:         db,
	}
}

// ServerRecord bundles a server with its registry-published children for a
// single-transaction save.
type ServerRecord struct {
	Server   registry.Server
	Packages []registry.Package
	Remotes  []registry.Remote
	EnvVars  []registry.EnvVar
	Icons    []registry.Icon
}

// Save upserts a server and replaces its child rows. Children are deleted
// and reinserted so removed packages or env vars disappear on re-ingest.
func (s ServerStore) Save(ctx context.Context, record ServerRecord) error {
	name := record.Server.Name()
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		model := ServerMapper{}.ToModel(record.Server)
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).Create(&model).Error
		if err != nil {
			return fmt.Errorf("upsert server %s: %w", name, err)
		}

		for _, target := range []any{
			&PackageModel{}, &RemoteModel{}, &EnvVarModel{}, &IconModel{},
		} {
			if err := tx.Where("server_name = ?", name).Delete(target).Error; err != nil {
				return fmt.Errorf("clear children of %s: %w", name, err)
			}
		}

		for _, pkg := range record.Packages {
			m := PackageMapper{}.ToModel(pkg)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert package for %s: %w", name, err)
			}
		}
		for _, remote := range record.Remotes {
			m := RemoteMapper{}.ToModel(remote)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert remote for %s: %w", name, err)
			}
		}
		for _, envVar := range record.EnvVars {
			m := EnvVarMapper{}.ToModel(envVar)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert env var for %s: %w", name, err)
			}
		}
		for _, icon := range record.Icons {
			m := IconMapper{}.ToModel(icon)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("insert icon for %s: %w", name, err)
			}
		}
		return nil
	})
}

// Get returns a server by name.
func (s ServerStore) Get(ctx context.Context, name string) (registry.Server, error) {
	return s.FindOne(ctx, store.WithName(name))
}

// Packages returns the packages of a server.
func (s ServerStore) Packages(ctx context.Context, serverName string) ([]registry.Package, error) {
	var models []PackageModel
	err := s.db.Session(ctx).Where("server_name = ?", serverName).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find packages: %w", err)
	}
	packages := make([]registry.Package, len(models))
	for i, m := range models {
		packages[i] = PackageMapper{}.ToDomain(m)
	}
	return packages, nil
}

// Remotes returns the remote endpoints of a server.
func (s ServerStore) Remotes(ctx context.Context, serverName string) ([]registry.Remote, error) {
	var models []RemoteModel
	err := s.db.Session(ctx).Where("server_name = ?", serverName).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find remotes: %w", err)
	}
	remotes := make([]registry.Remote, len(models))
	for i, m := range models {
		remotes[i] = RemoteMapper{}.ToDomain(m)
	}
	return remotes, nil
}

// EnvVars returns the declared environment variables of a server.
func (s ServerStore) EnvVars(ctx context.Context, serverName string) ([]registry.EnvVar, error) {
	var models []EnvVarModel
	err := s.db.Session(ctx).Where("server_name = ?", serverName).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find env vars: %w", err)
	}
	vars := make([]registry.EnvVar, len(models))
	for i, m := range models {
		vars[i] = EnvVarMapper{}.ToDomain(m)
	}
	return vars, nil
}

// LocalSource returns the local-run configuration of a server, if any.
func (s ServerStore) LocalSource(ctx context.Context, serverName string) (registry.LocalSource, error) {
	var model LocalSourceModel
	err := s.db.Session(ctx).Where("server_name = ?", serverName).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return registry.LocalSource{}, fmt.Errorf("%w: local source %s", database.ErrNotFound, serverName)
		}
		return registry.LocalSource{}, fmt.Errorf("find local source: %w", err)
	}
	return LocalSourceMapper{}.ToDomain(model), nil
}

// SaveLocalSource upserts the local-run configuration of a server.
func (s ServerStore) SaveLocalSource(ctx context.Context, source registry.LocalSource) error {
	model := LocalSourceMapper{}.ToModel(source)
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save local source: %w", err)
	}
	return nil
}

// ServerRepo pairs a server name with its repository URL.
type ServerRepo struct {
	Name          string
	RepositoryURL string
}

// NamesAndRepos returns every server name with its repository URL, for
// matching against external directory listings.
func (s ServerStore) NamesAndRepos(ctx context.Context) ([]ServerRepo, error) {
	var rows []ServerRepo
	err := s.db.Session(ctx).Model(&ServerModel{}).
		Select("name", "repository_url").
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list server repos: %w", err)
	}
	return rows, nil
}

// SecretVars maps each server name to the names of its secret environment
// variables. Servers without secrets map to an empty slice.
func (s ServerStore) SecretVars(ctx context.Context) (map[string][]string, error) {
	type row struct {
		ServerName string
		VarName    string
	}
	var names []string
	if err := s.db.Session(ctx).Model(&ServerModel{}).Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("list server names: %w", err)
	}

	out := make(map[string][]string, len(names))
	for _, name := range names {
		out[name] = nil
	}

	var rows []row
	err := s.db.Session(ctx).Model(&EnvVarModel{}).
		Select("server_name", "var_name").
		Where("is_secret = ?", true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list secret vars: %w", err)
	}
	for _, r := range rows {
		out[r.ServerName] = append(out[r.ServerName], r.VarName)
	}
	return out, nil
}
