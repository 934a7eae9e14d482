package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/models"
)

const (
	topWorkflowsLimit = 10
	growthTrendDays   = 7
	sampleErrorChars  = 200
)

func (c *Collector) collectDatabaseSize(ctx context.Context, target models.Target) error {
	size, err := c.gw.DatabaseSize(ctx, target)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.DatabaseSizeBytes = &size
	return nil
}

func (c *Collector) collectTableSizes(ctx context.Context, target models.Target) error {
	set, err := c.gw.TableSizes(ctx, target)
	if err != nil {
		return err
	}

	if len(c.cfg.ExcludeTables) > 0 {
		kept := set.Entries[:0]
		for _, e := range set.Entries {
			if !c.cfg.IsTableExcluded(e.Name) {
				kept = append(kept, e)
			}
		}
		set.Entries = kept
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.TableSizes = set
	return nil
}

func (c *Collector) collectLargestExecutions(ctx context.Context, target models.Target) error {
	sql := fmt.Sprintf(
		"SELECT e.id, COALESCE(e.workflowId, ''), COALESCE(w.name, ''), LENGTH(d.data), COALESCE(e.status, '')"+
			" FROM execution_data d"+
			" JOIN execution_entity e ON e.id = d.executionId"+
			" LEFT JOIN workflow_entity w ON w.id = e.workflowId"+
			" ORDER BY LENGTH(d.data) DESC, e.id DESC LIMIT %d;",
		c.cfg.TopExecutions,
	)

	rows, err := c.gw.Query(ctx, target, sql, 5)
	if err != nil {
		return err
	}

	executions := make([]models.ExecutionSize, 0, len(rows))
	for _, row := range rows {
		id, err := gateway.ParseInt(row[0])
		if err != nil {
			return err
		}
		size, err := gateway.ParseInt(row[3])
		if err != nil {
			return err
		}
		executions = append(executions, models.ExecutionSize{
			ExecutionID:   id,
			WorkflowID:    row[1],
			WorkflowName:  row[2],
			DataSizeBytes: size,
			Status:        row[4],
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.LargestExecutions = executions
	return nil
}

func (c *Collector) collectWorkflowData(ctx context.Context, target models.Target) error {
	sql := "SELECT w.id, w.name, w.active, SUM(LENGTH(d.data)), COUNT(*)" +
		" FROM execution_data d" +
		" JOIN execution_entity e ON e.id = d.executionId" +
		" JOIN workflow_entity w ON w.id = e.workflowId" +
		" GROUP BY w.id, w.name, w.active" +
		" ORDER BY SUM(LENGTH(d.data)) DESC, w.id ASC;"

	rows, err := c.gw.Query(ctx, target, sql, 5)
	if err != nil {
		return err
	}

	totals := make([]models.WorkflowDataTotal, 0, len(rows))
	for _, row := range rows {
		size, err := gateway.ParseInt(row[3])
		if err != nil {
			return err
		}
		count, err := gateway.ParseInt(row[4])
		if err != nil {
			return err
		}
		totals = append(totals, models.WorkflowDataTotal{
			WorkflowID:     row[0],
			WorkflowName:   row[1],
			Active:         gateway.ParseBool(row[2]),
			TotalDataBytes: size,
			ExecutionCount: count,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.WorkflowData = totals
	return nil
}

func (c *Collector) collectTopWorkflows24h(ctx context.Context, target models.Target) error {
	sql := fmt.Sprintf(
		"SELECT COALESCE(e.workflowId, ''), COALESCE(w.name, ''), COUNT(*)"+
			" FROM execution_entity e"+
			" LEFT JOIN workflow_entity w ON w.id = e.workflowId"+
			" WHERE e.startedAt >= %s"+
			" GROUP BY e.workflowId"+
			" ORDER BY COUNT(*) DESC, e.workflowId ASC LIMIT %d;",
		gateway.QuoteLiteral(c.cutoff24h()), topWorkflowsLimit,
	)

	rows, err := c.gw.Query(ctx, target, sql, 3)
	if err != nil {
		return err
	}

	counts := make([]models.WorkflowExecutionCount, 0, len(rows))
	for _, row := range rows {
		n, err := gateway.ParseInt(row[2])
		if err != nil {
			return err
		}
		counts = append(counts, models.WorkflowExecutionCount{
			WorkflowID:     row[0],
			WorkflowName:   row[1],
			ExecutionCount: n,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.TopWorkflows24h = counts
	return nil
}

func (c *Collector) collectErrorWorkflows24h(ctx context.Context, target models.Target) error {
	cutoff := gateway.QuoteLiteral(c.cutoff24h())
	// The sample is the most recent failed execution's payload head, newlines
	// flattened so it survives line-oriented output. It rides in the last
	// column so embedded separators fold into it.
	sql := fmt.Sprintf(
		"SELECT COALESCE(e.workflowId, ''), COALESCE(w.name, ''), COUNT(*),"+
			" COALESCE((SELECT REPLACE(SUBSTR(d.data, 1, %d), CHAR(10), ' ')"+
			" FROM execution_entity e2 JOIN execution_data d ON d.executionId = e2.id"+
			" WHERE e2.workflowId = e.workflowId AND e2.status IN ('error', 'crashed', 'failed')"+
			" AND e2.startedAt >= %s ORDER BY e2.startedAt DESC LIMIT 1), '')"+
			" FROM execution_entity e"+
			" LEFT JOIN workflow_entity w ON w.id = e.workflowId"+
			" WHERE e.status IN ('error', 'crashed', 'failed') AND e.startedAt >= %s"+
			" GROUP BY e.workflowId"+
			" ORDER BY COUNT(*) DESC, e.workflowId ASC;",
		sampleErrorChars, cutoff, cutoff,
	)

	rows, err := c.gw.Query(ctx, target, sql, 4)
	if err != nil {
		return err
	}

	errorWorkflows := make([]models.ErrorWorkflow, 0, len(rows))
	for _, row := range rows {
		n, err := gateway.ParseInt(row[2])
		if err != nil {
			return err
		}
		errorWorkflows = append(errorWorkflows, models.ErrorWorkflow{
			WorkflowID:   row[0],
			WorkflowName: row[1],
			ErrorCount:   n,
			SampleError:  row[3],
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.ErrorWorkflows24h = errorWorkflows
	return nil
}

func (c *Collector) collectQueueStatus(ctx context.Context, target models.Target) error {
	sql := "SELECT status, COUNT(*) FROM execution_entity" +
		" WHERE status IN ('pending', 'new', 'waiting', 'running')" +
		" GROUP BY status;"

	rows, err := c.gw.Query(ctx, target, sql, 2)
	if err != nil {
		return err
	}

	// Zero-fill: a status with no rows is an observed zero, not a gap.
	counts := make(map[models.QueueStatus]int64, len(models.QueueStatuses))
	for _, status := range models.QueueStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		n, err := gateway.ParseInt(row[1])
		if err != nil {
			return err
		}
		counts[models.QueueStatus(row[0])] = n
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.QueueCounts = counts
	return nil
}

func (c *Collector) collectGrowthTrend(ctx context.Context, target models.Target) error {
	today := c.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(growthTrendDays - 1))

	sql := fmt.Sprintf(
		"SELECT DATE(startedAt), COUNT(*) FROM execution_entity"+
			" WHERE startedAt >= %s GROUP BY DATE(startedAt);",
		gateway.QuoteLiteral(start.Format("2006-01-02")),
	)

	rows, err := c.gw.Query(ctx, target, sql, 2)
	if err != nil {
		return err
	}

	byDate := make(map[string]int64, len(rows))
	for _, row := range rows {
		n, err := gateway.ParseInt(row[1])
		if err != nil {
			return err
		}
		byDate[row[0]] = n
	}

	// Days with no executions still appear, at zero.
	trend := make([]models.GrowthPoint, 0, growthTrendDays)
	for i := 0; i < growthTrendDays; i++ {
		day := start.AddDate(0, 0, i)
		trend = append(trend, models.GrowthPoint{
			Date:          day,
			NewExecutions: byDate[day.Format("2006-01-02")],
		})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Date.Before(trend[j].Date) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.GrowthTrend = trend
	return nil
}

func (c *Collector) collectTotals(ctx context.Context, target models.Target) error {
	sql := fmt.Sprintf(
		"SELECT (SELECT COUNT(*) FROM execution_entity),"+
			" (SELECT COUNT(*) FROM workflow_entity WHERE active = 1),"+
			" (SELECT COUNT(*) FROM workflow_entity WHERE active = 0),"+
			" (SELECT COUNT(*) FROM execution_entity WHERE startedAt >= %s);",
		gateway.QuoteLiteral(c.cutoff24h()),
	)

	rows, err := c.gw.Query(ctx, target, sql, 4)
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return &gateway.ParseFailedError{Reason: "totals query returned no row"}
	}

	values := make([]int64, 4)
	for i := range values {
		v, err := gateway.ParseInt(rows[0][i])
		if err != nil {
			return err
		}
		values[i] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.TotalExecutions = &values[0]
	c.snap.ActiveWorkflows = &values[1]
	c.snap.InactiveWorkflows = &values[2]
	c.snap.Executions24h = &values[3]
	return nil
}
