package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/stockwatch/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a boxed command title
func PrintHeader(title string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintDoubleSeparator()
}

// PrintRunSummary prints one screening run
func PrintRunSummary(s *contracts.RunSummary) {
	PrintSeparator()
	PrintKeyValue("Run ID", s.RunID, 10)
	PrintKeyValue("As of", s.AsOf.Format("2006-01-02 15:04 MST"), 10)
	PrintKeyValue("Status", string(s.Status), 10)
	if s.FinishedAt != nil {
		PrintKeyValue("Duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String(), 10)
	}
	PrintKeyValue("Tickers", fmt.Sprintf("%d total, %d evaluated", s.Total, s.Evaluated), 10)
	PrintSeparator()

	if len(s.Admitted) > 0 {
		fmt.Printf("Admitted (%d):\n", len(s.Admitted))
		PrintList(s.Admitted)
	} else {
		fmt.Println("Admitted: none")
	}

	if len(s.Skipped) > 0 {
		reasons := make([]string, 0, len(s.Skipped))
		for reason := range s.Skipped {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		fmt.Printf("Skipped (%d):\n", s.SkippedCount())
		for _, reason := range reasons {
			PrintKeyValue(reason, fmt.Sprintf("%d", s.Skipped[reason]), 18)
		}
	}

	if len(s.Failed) > 0 {
		fmt.Printf("Failed (%d):\n", len(s.Failed))
		for _, f := range s.Failed {
			PrintKeyValue(f.Ticker, f.Reason, 10)
		}
	}

	if s.Error != "" {
		PrintError(s.Error)
	}
}

// PrintWatchlist prints entries as a table
func PrintWatchlist(entries []contracts.WatchlistEntry) {
	columns := []string{"TICKER", "ADDED", "REASON", "PRICE", "52W HIGH", "BELOW HIGH"}
	widths := []int{8, 10, 10, 10, 10, 10}

	PrintTableHeader(columns, widths)
	for _, e := range entries {
		PrintTableRow([]string{
			e.Ticker,
			e.DateAdded.Format("2006-01-02"),
			e.Reason,
			fmt.Sprintf("%.2f", e.CurrentPriceAtAdmission),
			fmt.Sprintf("%.2f", e.Week52High),
			fmt.Sprintf("%.2f%%", e.PercentBelowHigh*100),
		}, widths)
	}
	fmt.Printf("\n%d entries\n", len(entries))
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// maskPassword hides the password part of a connection URL
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}

	creds := url[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3] + creds[:colon] + ":***" + url[at:]
}
