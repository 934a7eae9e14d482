package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/flowmedic/internal/models"
)

// WriteJSON emits the full investigation result as pretty-printed JSON for
// machine consumers.
func WriteJSON(out io.Writer, result *models.InvestigationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result to JSON: %w", err)
	}

	if _, err := out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON result: %w", err)
	}

	return nil
}
