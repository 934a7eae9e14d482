// Package diagnosis turns a metric snapshot into findings. Diagnose is a pure
// function: identical snapshots yield identical, identically ordered findings,
// and an absent metric never fires a rule.
package diagnosis

import (
	"fmt"
	"sort"

	"github.com/ppiankov/flowmedic/internal/models"
	"github.com/ppiankov/flowmedic/pkg/config"
)

// PayloadTable is the execution-payload table the bloat rule watches.
const PayloadTable = "execution_data"

// Bucket is an urgency group for recommended actions.
type Bucket string

const (
	BucketImmediate   Bucket = "Immediate"
	BucketDataCleanup Bucket = "Data Cleanup"
	BucketPrevention  Bucket = "Prevention"
)

// Buckets lists urgency groups in display order.
var Buckets = []Bucket{BucketImmediate, BucketDataCleanup, BucketPrevention}

// CategoryBucket is the fixed category→urgency mapping. Static, never derived
// per run.
var CategoryBucket = map[models.Category]Bucket{
	models.CategoryPendingBacklog:       BucketImmediate,
	models.CategoryHighErrorRate:        BucketImmediate,
	models.CategoryTableBloat:           BucketDataCleanup,
	models.CategoryInactiveWorkflowData: BucketDataCleanup,
	models.CategoryLargeExecutions:      BucketDataCleanup,
	models.CategoryDatabaseSize:         BucketDataCleanup,
	models.CategoryHighVolume:           BucketPrevention,
}

// Diagnose applies every rule to the snapshot. Rules are independent; several
// may fire at once. Findings come back sorted by severity descending, then
// category name ascending. Rules whose metric is absent are reported as
// notices, never as zero-valued findings.
func Diagnose(snap *models.Snapshot, th config.Thresholds) ([]models.Finding, []models.Notice) {
	var findings []models.Finding
	var notices []models.Notice

	note := func(category models.Category, metric string) bool {
		reason, gapped := snap.Gap(metric)
		if !gapped {
			return false
		}
		notices = append(notices, models.Notice{Category: category, Metric: metric, Reason: reason})
		return true
	}

	// TableBloat
	if snap.TableSizes == nil {
		note(models.CategoryTableBloat, models.MetricTableSizes)
	} else {
		for _, entry := range snap.TableSizes.Entries {
			if entry.Name == PayloadTable && entry.SizeBytes > th.TableBloatBytes {
				findings = append(findings, models.Finding{
					Category:    models.CategoryTableBloat,
					Severity:    models.SeverityWarning,
					MetricValue: float64(entry.SizeBytes),
					Threshold:   float64(th.TableBloatBytes),
					Explanation: fmt.Sprintf("table %s holds %s of execution payloads (limit %s)",
						PayloadTable, formatBytes(entry.SizeBytes), formatBytes(th.TableBloatBytes)),
					Actions: []string{
						"reduce execution retention: set EXECUTIONS_DATA_MAX_AGE to 168 (7 days) or lower",
						fmt.Sprintf("prune old execution payloads from %s, then VACUUM to reclaim disk", PayloadTable),
					},
				})
			}
		}
	}

	// InactiveWorkflowData
	if snap.WorkflowData == nil {
		note(models.CategoryInactiveWorkflowData, models.MetricWorkflowData)
	} else {
		var inactiveBytes int64
		var worst *models.WorkflowDataTotal
		for i := range snap.WorkflowData {
			wd := &snap.WorkflowData[i]
			if wd.Active {
				continue
			}
			inactiveBytes += wd.TotalDataBytes
			if worst == nil || wd.TotalDataBytes > worst.TotalDataBytes {
				worst = wd
			}
		}
		if inactiveBytes > th.InactiveDataBytes {
			actions := []string{
				"purge execution payloads for inactive workflows",
			}
			if worst != nil {
				actions[0] = fmt.Sprintf("purge execution payloads for inactive workflow %q (%s)",
					worst.WorkflowName, formatBytes(worst.TotalDataBytes))
			}
			actions = append(actions, "delete inactive workflows that are no longer needed")
			findings = append(findings, models.Finding{
				Category:    models.CategoryInactiveWorkflowData,
				Severity:    models.SeverityWarning,
				MetricValue: float64(inactiveBytes),
				Threshold:   float64(th.InactiveDataBytes),
				Explanation: fmt.Sprintf("inactive workflows hold %s of stored execution data (limit %s)",
					formatBytes(inactiveBytes), formatBytes(th.InactiveDataBytes)),
				Actions: actions,
			})
		}
	}

	// LargeExecutions
	if snap.LargestExecutions == nil {
		note(models.CategoryLargeExecutions, models.MetricLargestExecutions)
	} else {
		var count int64
		var biggest int64
		for _, e := range snap.LargestExecutions {
			if e.DataSizeBytes > th.LargeExecutionBytes {
				count++
				if e.DataSizeBytes > biggest {
					biggest = e.DataSizeBytes
				}
			}
		}
		if count >= 1 {
			findings = append(findings, models.Finding{
				Category:    models.CategoryLargeExecutions,
				Severity:    models.SeverityWarning,
				MetricValue: float64(count),
				Threshold:   float64(th.LargeExecutionBytes),
				Explanation: fmt.Sprintf("%d execution(s) carry payloads above %s (largest %s)",
					count, formatBytes(th.LargeExecutionBytes), formatBytes(biggest)),
				Actions: []string{
					"enable EXECUTIONS_DATA_PRUNE and cap stored payload size",
					"split oversized workflows so single runs carry less data",
				},
			})
		}
	}

	// PendingBacklog. The store records queued work as both 'pending' and
	// 'new' depending on version; the backlog is their sum.
	if snap.QueueCounts == nil {
		note(models.CategoryPendingBacklog, models.MetricQueueStatus)
	} else {
		backlog := snap.QueueCounts[models.QueuePending] + snap.QueueCounts[models.QueueNew]
		if backlog > th.PendingBacklog {
			findings = append(findings, models.Finding{
				Category:    models.CategoryPendingBacklog,
				Severity:    models.SeverityCritical,
				MetricValue: float64(backlog),
				Threshold:   float64(th.PendingBacklog),
				Explanation: fmt.Sprintf("%d executions are queued and not being processed (limit %d)",
					backlog, th.PendingBacklog),
				Actions: []string{
					"cancel the queued executions to unblock the instance",
					"deactivate the workflows feeding the queue until the backlog drains",
				},
			})
		}
	}

	// DatabaseSize
	if snap.DatabaseSizeBytes == nil {
		note(models.CategoryDatabaseSize, models.MetricDatabaseSize)
	} else if size := *snap.DatabaseSizeBytes; size > th.DatabaseWarnBytes {
		severity := models.SeverityWarning
		if size > th.DatabaseCritBytes {
			severity = models.SeverityCritical
		}
		findings = append(findings, models.Finding{
			Category:    models.CategoryDatabaseSize,
			Severity:    severity,
			MetricValue: float64(size),
			Threshold:   float64(th.DatabaseWarnBytes),
			Explanation: fmt.Sprintf("database is %s (warn above %s, critical above %s)",
				formatBytes(size), formatBytes(th.DatabaseWarnBytes), formatBytes(th.DatabaseCritBytes)),
			Actions: []string{
				"reduce execution retention to 30 days or lower",
				"prune execution data, then VACUUM to shrink the database file",
			},
		})
	}

	// HighErrorRate
	if snap.ErrorWorkflows24h == nil {
		note(models.CategoryHighErrorRate, models.MetricErrorWorkflows24h)
	} else {
		for _, ew := range snap.ErrorWorkflows24h {
			if ew.ErrorCount > th.ErrorCount24h {
				findings = append(findings, models.Finding{
					Category:    models.CategoryHighErrorRate,
					Severity:    models.SeverityWarning,
					MetricValue: float64(ew.ErrorCount),
					Threshold:   float64(th.ErrorCount24h),
					Explanation: fmt.Sprintf("workflow %q failed %d times in the last 24h (limit %d)",
						ew.WorkflowName, ew.ErrorCount, th.ErrorCount24h),
					Actions: []string{
						fmt.Sprintf("inspect the latest error of workflow %q and fix the failing node", ew.WorkflowName),
						fmt.Sprintf("deactivate workflow %q until the failure is fixed", ew.WorkflowName),
					},
				})
				break
			}
		}
	}

	// HighVolume
	if snap.Executions24h == nil {
		note(models.CategoryHighVolume, models.MetricTotals)
	} else if volume := *snap.Executions24h; volume > th.Volume24h {
		findings = append(findings, models.Finding{
			Category:    models.CategoryHighVolume,
			Severity:    models.SeverityInfo,
			MetricValue: float64(volume),
			Threshold:   float64(th.Volume24h),
			Explanation: fmt.Sprintf("%d executions in the last 24h (limit %d)", volume, th.Volume24h),
			Actions: []string{
				"batch high-frequency triggers or widen polling intervals",
				"move this workspace to a larger instance size",
			},
		})
	}

	sortFindings(findings)
	sortNotices(notices)
	return findings, notices
}

func sortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		return findings[i].Category < findings[j].Category
	})
}

func sortNotices(notices []models.Notice) {
	sort.SliceStable(notices, func(i, j int) bool {
		return notices[i].Category < notices[j].Category
	})
}

func formatBytes(b int64) string {
	switch {
	case b >= 1000*1000*1000:
		return fmt.Sprintf("%.1f GB", float64(b)/1e9)
	case b >= 1000*1000:
		return fmt.Sprintf("%.1f MB", float64(b)/1e6)
	case b >= 1000:
		return fmt.Sprintf("%.1f KB", float64(b)/1e3)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// FormatBytes renders a byte count with decimal units for display.
func FormatBytes(b int64) string {
	return formatBytes(b)
}
