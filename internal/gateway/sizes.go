package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/ppiankov/flowmedic/internal/models"
)

const (
	exactTableSizesSQL = "SELECT name, SUM(pgsize) FROM dbstat GROUP BY name;"
	databaseSizeSQL    = "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size();"
	userTablesSQL      = "SELECT name FROM sqlite_master WHERE type = 'table';"
)

// DatabaseSize returns the database's total size in bytes from its page
// accounting.
func (g *Gateway) DatabaseSize(ctx context.Context, target models.Target) (int64, error) {
	return g.QueryScalar(ctx, target, databaseSizeSQL)
}

// TableSizes returns per-table on-disk sizes, largest first. The exact path
// uses the dbstat virtual table; sqlite builds without SQLITE_ENABLE_DBSTAT_VTAB
// reject that query, and then sizes are estimated from row counts against the
// total database size and tagged approximate.
func (g *Gateway) TableSizes(ctx context.Context, target models.Target) (*models.TableSizeSet, error) {
	rows, err := g.Query(ctx, target, exactTableSizesSQL, 2)
	if err == nil {
		entries, perr := tableSizeEntries(rows)
		if perr != nil {
			return nil, perr
		}
		sortTableSizes(entries)
		return &models.TableSizeSet{Entries: entries, Accuracy: models.SizeExact}, nil
	}

	var qerr *QueryFailedError
	if !errors.As(err, &qerr) {
		return nil, err
	}

	slog.Debug("dbstat unavailable, estimating table sizes",
		slog.String("workspace", target.Workspace),
		slog.String("stderr", qerr.Stderr),
	)
	return g.approximateTableSizes(ctx, target)
}

func (g *Gateway) approximateTableSizes(ctx context.Context, target models.Target) (*models.TableSizeSet, error) {
	dbSize, err := g.DatabaseSize(ctx, target)
	if err != nil {
		return nil, err
	}

	rows, err := g.Query(ctx, target, userTablesSQL, 1)
	if err != nil {
		return nil, err
	}

	type tableCount struct {
		name string
		rows int64
	}

	counts := make([]tableCount, 0, len(rows))
	var totalRows int64
	for _, row := range rows {
		name := row[0]
		count, err := g.QueryScalar(ctx, target, "SELECT COUNT(*) FROM \""+name+"\";")
		if err != nil {
			return nil, err
		}
		counts = append(counts, tableCount{name: name, rows: count})
		totalRows += count
	}

	entries := make([]models.TableSize, 0, len(counts))
	for _, tc := range counts {
		var est int64
		if totalRows > 0 {
			est = int64(float64(tc.rows) / float64(totalRows) * float64(dbSize))
		}
		entries = append(entries, models.TableSize{Name: tc.name, SizeBytes: est})
	}
	sortTableSizes(entries)

	return &models.TableSizeSet{Entries: entries, Accuracy: models.SizeApproximate}, nil
}

func tableSizeEntries(rows [][]string) ([]models.TableSize, error) {
	entries := make([]models.TableSize, 0, len(rows))
	for _, row := range rows {
		size, err := ParseInt(row[1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.TableSize{Name: row[0], SizeBytes: size})
	}
	return entries, nil
}

func sortTableSizes(entries []models.TableSize) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SizeBytes != entries[j].SizeBytes {
			return entries[i].SizeBytes > entries[j].SizeBytes
		}
		return entries[i].Name < entries[j].Name
	})
}
