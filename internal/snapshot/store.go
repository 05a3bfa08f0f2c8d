package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/postgres"
	"github.com/lib/pq"
)

// Schema creates the snapshot tables. Symbols are keyed by their stored kind
// code and keep their import order within a kind.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         BIGSERIAL PRIMARY KEY,
	project    TEXT NOT NULL,
	revision   TEXT NOT NULL,
	is_default BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (project, revision)
);
CREATE TABLE IF NOT EXISTS snapshot_files (
	snapshot_id BIGINT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	ordinal     INT NOT NULL,
	path        TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, ordinal)
);
CREATE TABLE IF NOT EXISTS snapshot_symbols (
	snapshot_id BIGINT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	kind        SMALLINT NOT NULL,
	ordinal     INT NOT NULL,
	symbol_id   BIGINT NOT NULL,
	name        TEXT NOT NULL,
	parent_id   BIGINT,
	PRIMARY KEY (snapshot_id, kind, ordinal)
);`

// Store reads and writes snapshots in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a Store on db.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("snapshot-store"),
	}
}

// Migrate creates the snapshot tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating snapshot schema: %w", err)
	}
	return nil
}

// Resolve returns the row id of project, or of the most recent default
// snapshot when project is nil.
func (s *Store) Resolve(ctx context.Context, project *symbolsearch.ProjectInfo) (int64, error) {
	var id int64
	var err error
	if project == nil {
		err = s.db.QueryRowContext(ctx,
			`SELECT id FROM snapshots WHERE is_default ORDER BY created_at DESC, id DESC LIMIT 1`,
		).Scan(&id)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT id FROM snapshots WHERE project = $1 AND revision = $2`,
			project.Name, project.Revision,
		).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrSnapshotNotFound, project)
	}
	if err != nil {
		return 0, fmt.Errorf("resolving snapshot %s: %w", project, err)
	}
	return id, nil
}

// LoadFiles returns the file paths of project in import order.
func (s *Store) LoadFiles(ctx context.Context, project *symbolsearch.ProjectInfo) ([]string, error) {
	id, err := s.Resolve(ctx, project)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM snapshot_files WHERE snapshot_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()
	var files []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return files, nil
}

// LoadTier returns the symbols of kinds in project. Every requested kind
// gets a batch, empty when nothing is stored for it.
func (s *Store) LoadTier(ctx context.Context, project *symbolsearch.ProjectInfo, kinds []symbolsearch.Kind) (*symbolsearch.TierData, error) {
	id, err := s.Resolve(ctx, project)
	if err != nil {
		return nil, err
	}
	tb := newTierBuilder(kinds)
	if len(tb.codes) == 0 {
		return tb.build(project), nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, symbol_id, name, parent_id
		 FROM snapshot_symbols
		 WHERE snapshot_id = $1 AND kind = ANY($2)
		 ORDER BY kind, ordinal`,
		id, pq.Array(tb.codes),
	)
	if err != nil {
		return nil, fmt.Errorf("querying symbols: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			code   int
			symID  int64
			name   string
			parent sql.NullInt64
		)
		if err := rows.Scan(&code, &symID, &name, &parent); err != nil {
			return nil, fmt.Errorf("scanning symbol: %w", err)
		}
		tb.add(code, symID, name, parent.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating symbols: %w", err)
	}
	data := tb.build(project)
	s.logger.Debug("tier loaded", "project", project.String(), "kinds", kinds, "symbols", tb.total)
	return data, nil
}

// Import replaces the stored revision of snap in one transaction and
// returns its row id. A default snapshot takes the default flag from every
// other row.
func (s *Store) Import(ctx context.Context, snap *Snapshot) (int64, error) {
	batches := make([]symbolsearch.KindBatch, 0, len(snap.Symbols))
	codes := make([]int, 0, len(snap.Symbols))
	for _, w := range snap.Symbols {
		b, err := w.Batch()
		if err != nil {
			return 0, err
		}
		code, ok := b.Kind.Code()
		if !ok {
			return 0, apperrors.NewConfigurationError(apperrors.ErrUnknownKind, "kind", w.Kind)
		}
		batches = append(batches, b)
		codes = append(codes, code)
	}

	var id int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM snapshots WHERE project = $1 AND revision = $2`,
			snap.Project, snap.Revision); err != nil {
			return fmt.Errorf("deleting previous revision: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO snapshots (project, revision, is_default) VALUES ($1, $2, $3) RETURNING id`,
			snap.Project, snap.Revision, snap.Default).Scan(&id); err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		if snap.Default {
			if _, err := tx.ExecContext(ctx,
				`UPDATE snapshots SET is_default = false WHERE is_default AND id <> $1`, id); err != nil {
				return fmt.Errorf("clearing default flag: %w", err)
			}
		}
		if err := copyRows(ctx, tx, pq.CopyIn("snapshot_files", "snapshot_id", "ordinal", "path"),
			len(snap.Files), func(i int) []any {
				return []any{id, i, snap.Files[i]}
			}); err != nil {
			return fmt.Errorf("copying files: %w", err)
		}
		for bi, b := range batches {
			cols := b.Columns
			err := copyRows(ctx, tx, pq.CopyIn("snapshot_symbols", "snapshot_id", "kind", "ordinal", "symbol_id", "name", "parent_id"),
				cols.Len(), func(i int) []any {
					var parent sql.NullInt64
					if i < len(cols.Parents) && cols.Parents[i] != 0 {
						parent = sql.NullInt64{Int64: cols.Parents[i], Valid: true}
					}
					name := ""
					if i < len(cols.Names) {
						name = cols.Names[i]
					}
					return []any{id, codes[bi], i, cols.IDs[i], name, parent}
				})
			if err != nil {
				return fmt.Errorf("copying %s symbols: %w", b.Kind, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("importing snapshot %s: %w", snap.Info(), err)
	}
	s.logger.Info("snapshot imported",
		"project", snap.Info().String(),
		"id", id,
		"files", len(snap.Files),
		"kinds", len(batches),
	)
	return id, nil
}

func copyRows(ctx context.Context, tx *sql.Tx, stmt string, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}
	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer prepared.Close()
	for i := 0; i < n; i++ {
		if _, err := prepared.ExecContext(ctx, row(i)...); err != nil {
			return err
		}
	}
	_, err = prepared.ExecContext(ctx)
	return err
}

// tierBuilder groups symbol rows by kind code into per-kind columns.
type tierBuilder struct {
	kinds   []symbolsearch.Kind
	codes   []int64
	columns map[int]*symbolsearch.Columns
	total   int
}

func newTierBuilder(kinds []symbolsearch.Kind) *tierBuilder {
	tb := &tierBuilder{
		kinds:   kinds,
		columns: make(map[int]*symbolsearch.Columns, len(kinds)),
	}
	for _, k := range kinds {
		if code, ok := k.Code(); ok {
			tb.codes = append(tb.codes, int64(code))
			tb.columns[code] = &symbolsearch.Columns{}
		}
	}
	return tb
}

func (tb *tierBuilder) add(code int, id int64, name string, parent int64) {
	cols, ok := tb.columns[code]
	if !ok {
		return
	}
	cols.IDs = append(cols.IDs, id)
	cols.Names = append(cols.Names, name)
	cols.Parents = append(cols.Parents, parent)
	tb.total++
}

func (tb *tierBuilder) build(project *symbolsearch.ProjectInfo) *symbolsearch.TierData {
	data := &symbolsearch.TierData{
		Project: cloneProject(project),
		Batches: make([]symbolsearch.KindBatch, 0, len(tb.kinds)),
	}
	for _, k := range tb.kinds {
		b := symbolsearch.KindBatch{Kind: k}
		if code, ok := k.Code(); ok {
			b.Columns = *tb.columns[code]
		}
		data.Batches = append(data.Batches, b)
	}
	return data
}
