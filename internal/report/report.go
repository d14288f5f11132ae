// Package report handles the presentation side of run results: the
// self-contained report.json artifact, terminal rendering, and the HTTP
// results server.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/internal/version"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// FileName is the report artifact written into every run's result folder.
const FileName = "report.json"

// Report is the self-contained run artifact: summary stats plus the full
// equity curve and trade ledger, so display tooling needs no Parquet reader.
type Report struct {
	Stats       types.RunStats      `json:"stats"`
	EquityCurve []types.EquityPoint `json:"equity_curve"`
	Trades      []types.Trade       `json:"trades"`
}

// Write stores the report as report.json under dir.
func Write(dir string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to marshal report", err)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write report", err)
	}

	return nil
}

// Load reads a report.json from dir and rejects files written by an
// incompatible results format version.
func Load(dir string) (Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return Report{}, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read report from %s", dir)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to parse report", err)
	}

	if err := version.CheckResultsCompatibility(version.ResultsFormatVersion, r.Stats.FormatVersion); err != nil {
		return Report{}, errors.Wrap(errors.ErrCodeResultsIncompatible, "incompatible report format", err)
	}

	return r, nil
}

// Discover walks root for run folders containing a report artifact and
// returns their paths, sorted.
func Discover(root string) ([]string, error) {
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && d.Name() == FileName {
			dirs = append(dirs, filepath.Dir(path))
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to scan %s for runs", root)
	}

	sort.Strings(dirs)

	return dirs, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(20)
	valueStyle = lipgloss.NewStyle().Bold(true)
	gainStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	lossStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Render produces the terminal summary of one report.
func Render(r Report) string {
	var b strings.Builder

	m := r.Stats.Metrics

	b.WriteString(titleStyle.Render(fmt.Sprintf("Backtest: %s on %s",
		r.Stats.Strategy, strings.Join(r.Stats.Symbols, ", "))))
	b.WriteString("\n")

	rows := []struct {
		label string
		value string
		bad   bool
	}{
		{"Initial capital", fmt.Sprintf("%.2f", r.Stats.InitialCapital), false},
		{"Final equity", fmt.Sprintf("%.2f", r.Stats.FinalEquity), r.Stats.FinalEquity < r.Stats.InitialCapital},
		{"Total return", fmt.Sprintf("%.2f%%", m.TotalReturn*100), m.TotalReturn < 0},
		{"Annualized return", fmt.Sprintf("%.2f%%", m.AnnualizedReturn*100), m.AnnualizedReturn < 0},
		{"Sharpe ratio", fmt.Sprintf("%.2f", m.SharpeRatio), m.SharpeRatio < 0},
		{"Max drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown*100), m.MaxDrawdown > 0.2},
		{"Volatility", fmt.Sprintf("%.2f%%", m.Volatility*100), false},
		{"Total trades", fmt.Sprintf("%d", m.TotalTrades), false},
		{"Win rate", fmt.Sprintf("%.1f%%", m.WinRate*100), false},
		{"Avg win", fmt.Sprintf("%.2f", m.AvgWin), false},
		{"Avg loss", fmt.Sprintf("%.2f", m.AvgLoss), false},
	}

	var table strings.Builder

	for _, row := range rows {
		style := valueStyle
		if row.bad {
			style = lossStyle
		} else if strings.Contains(row.label, "return") && !strings.HasPrefix(row.value, "-") {
			style = gainStyle
		}

		table.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(row.label), style.Render(row.value)))
		table.WriteString("\n")
	}

	b.WriteString(boxStyle.Render(strings.TrimRight(table.String(), "\n")))
	b.WriteString("\n")

	if len(r.Stats.SymbolStats) > 1 {
		b.WriteString(renderSymbolStats(r.Stats.SymbolStats))
	}

	return b.String()
}

func renderSymbolStats(stats []types.SymbolStats) string {
	var table strings.Builder

	header := lipgloss.NewStyle().Bold(true)
	table.WriteString(header.Render(fmt.Sprintf("%-10s %8s %8s %12s", "Symbol", "Trades", "WinRate", "PnL")))
	table.WriteString("\n")

	for _, s := range stats {
		line := fmt.Sprintf("%-10s %8d %7.1f%% %12.2f", s.Symbol, s.TotalTrades, s.WinRate*100, s.RealizedPnL)
		if s.RealizedPnL < 0 {
			line = lossStyle.Render(line)
		}

		table.WriteString(line)
		table.WriteString("\n")
	}

	return boxStyle.Render(strings.TrimRight(table.String(), "\n")) + "\n"
}
