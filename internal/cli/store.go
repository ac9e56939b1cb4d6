package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/atinyakov/pwkeeper/internal/config"
	"github.com/atinyakov/pwkeeper/internal/db"
	"github.com/atinyakov/pwkeeper/internal/filestore"
	"github.com/atinyakov/pwkeeper/internal/repository"
	"github.com/atinyakov/pwkeeper/internal/service"
)

// Store is a record store that holds resources until closed.
type Store interface {
	service.RecordStore
	io.Closer
}

// OpenStore opens the backend named by opts.Store.
func OpenStore(opts *config.Options) (Store, error) {
	switch opts.Store {
	case config.StoreSQLite:
		conn, err := db.InitSQLite(filepath.Join(opts.Path, db.SQLiteFile))
		if err != nil {
			return nil, err
		}
		return repository.NewSQLRecordStore(conn, repository.SQLite), nil
	case config.StorePostgres:
		conn, err := db.InitPostgres(opts.DSN)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLRecordStore(conn, repository.Postgres), nil
	case config.StoreBolt:
		return repository.OpenBolt(filepath.Join(opts.Path, repository.BoltFile))
	case config.StoreFile:
		return filestore.New(filepath.Join(opts.Path, filestore.File)), nil
	default:
		return nil, fmt.Errorf("unknown store %q", opts.Store)
	}
}
