package reporter

import (
	"fmt"

	"github.com/ppiankov/flowmedic/internal/models"
)

// appendixSection lists literal remediation commands for each finding, ready
// to paste into a shell. Commands are derived from the same findings as the
// actions section, so the two never disagree.
func appendixSection(result *models.InvestigationResult) Section {
	s := Section{Title: SectionAppendix}

	if len(result.Findings) == 0 {
		s.Lines = append(s.Lines, "No remediation commands needed.")
		return s
	}

	seen := make(map[models.Category]bool)
	for _, f := range result.Findings {
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true

		cmds := commandsFor(f.Category, result.Target)
		if len(cmds) == 0 {
			continue
		}
		s.Lines = append(s.Lines, fmt.Sprintf("# %s", f.Category))
		s.Lines = append(s.Lines, cmds...)
	}
	return s
}

func commandsFor(category models.Category, t models.Target) []string {
	sqlite := func(stmt string) string {
		return fmt.Sprintf("kubectl -n %s exec %s -c %s -- sqlite3 %s \"%s\"",
			t.Workspace, t.Pod, t.Container, t.DatabasePath, stmt)
	}

	switch category {
	case models.CategoryTableBloat, models.CategoryDatabaseSize:
		return []string{
			"flowmedic prune --workspace " + t.Workspace + " --older-than 30d",
			sqlite("DELETE FROM execution_data WHERE executionId IN (SELECT id FROM execution_entity WHERE startedAt < datetime('now', '-30 days'));"),
			sqlite("VACUUM;"),
		}
	case models.CategoryInactiveWorkflowData:
		return []string{
			sqlite("DELETE FROM execution_data WHERE executionId IN (SELECT e.id FROM execution_entity e JOIN workflow_entity w ON w.id = e.workflowId WHERE w.active = 0);"),
			sqlite("VACUUM;"),
		}
	case models.CategoryLargeExecutions:
		return []string{
			sqlite("SELECT executionId, LENGTH(data) FROM execution_data ORDER BY LENGTH(data) DESC LIMIT 20;"),
		}
	case models.CategoryPendingBacklog:
		return []string{
			"flowmedic executions cancel --workspace " + t.Workspace + " --status new",
			"flowmedic workflows deactivate --workspace " + t.Workspace + " --all",
		}
	case models.CategoryHighErrorRate:
		return []string{
			"flowmedic logs --workspace " + t.Workspace,
			"flowmedic workflows deactivate --workspace " + t.Workspace + " --id <workflow-id>",
		}
	case models.CategoryHighVolume:
		return []string{
			sqlite("SELECT workflowId, COUNT(*) FROM execution_entity WHERE startedAt >= datetime('now', '-1 day') GROUP BY workflowId ORDER BY COUNT(*) DESC LIMIT 10;"),
		}
	default:
		return nil
	}
}
