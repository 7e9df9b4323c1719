package taxonomy

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// BuildReport renders a markdown summary of one resolution run.
func BuildReport(result Result) string {
	md := result.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "# Taxonomic Matching Report\n\n")
	fmt.Fprintf(&b, "- Date: %s\n", md.CompletedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", md.CompletedAt.Sub(md.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "- Rows: %d\n", md.Rows)
	fmt.Fprintf(&b, "- Unique lineage/assay combinations: %d\n\n", md.UniqueKeys)

	fmt.Fprintf(&b, "## Stage Summary\n\n")
	fmt.Fprintf(&b, "| Stage | Resolved |\n|---|---|\n")
	fmt.Fprintf(&b, "| Fast path (empty / simple kingdom) | %d |\n", md.FastPathAssigned)
	fmt.Fprintf(&b, "| Stage 1: AphiaID pre-match | %d |\n", md.PrematchMatched)
	fmt.Fprintf(&b, "| Stage 2: batch name match | %d |\n", md.BatchMatched)
	fmt.Fprintf(&b, "| Unmatched (incertae sedis fallback) | %d |\n\n", md.Unmatched)

	fmt.Fprintf(&b, "## Stage 2 Detail\n\n")
	fmt.Fprintf(&b, "- Distinct terms queried: %d\n", md.BatchTermsQueried)
	fmt.Fprintf(&b, "- Batches processed: %d (batch size %d)\n", md.BatchesProcessed, BatchSize)
	if md.SequentialFallback {
		fmt.Fprintf(&b, "- Parallel submission failed; batches were retried sequentially.\n")
	}
	b.WriteString("\n")

	if len(result.Labels) > 0 {
		fmt.Fprintf(&b, "## Match Types\n\n")
		fmt.Fprintf(&b, "| match_type_debug | keys |\n|---|---|\n")
		labels := make([]string, 0, len(result.Labels))
		for label := range result.Labels {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(&b, "| `%s` | %d |\n", label, result.Labels[label])
		}
		b.WriteString("\n")
	}
	return b.String()
}
