package services

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"realestate-market/models"
)

// ReportPrinter renders market summaries as terminal tables.
type ReportPrinter struct {
	w        io.Writer
	title    func(...any) string
	heading  func(...any) string
	good     func(...any) string
	bad      func(...any) string
	emphasis func(...any) string
}

// NewReportPrinter writes to w. With useColors false every cell is plain text.
func NewReportPrinter(w io.Writer, useColors bool) *ReportPrinter {
	p := &ReportPrinter{
		w:        w,
		title:    fmt.Sprint,
		heading:  fmt.Sprint,
		good:     fmt.Sprint,
		bad:      fmt.Sprint,
		emphasis: fmt.Sprint,
	}
	if useColors {
		p.title = color.New(color.FgMagenta, color.Bold).SprintFunc()
		p.heading = color.New(color.FgYellow, color.Bold).SprintFunc()
		p.good = color.New(color.FgGreen).SprintFunc()
		p.bad = color.New(color.FgRed).SprintFunc()
		p.emphasis = color.New(color.Bold).SprintFunc()
	}
	return p
}

func (p *ReportPrinter) section(name string) error {
	_, err := fmt.Fprintf(p.w, "\n%s\n%s\n", p.heading(name), strings.Repeat("─", 54))
	return err
}

func (p *ReportPrinter) table(headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(p.w)
	defer func() { _ = table.Close() }()

	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// PrintSources renders one row per source with its price-per-area stats.
func (p *ReportPrinter) PrintSources(stats []*models.MarketStats) error {
	if _, err := fmt.Fprintf(p.w, "\n%s\n", p.title("  MARKET PRICE PER M² BY SOURCE")); err != nil {
		return err
	}
	if len(stats) == 0 {
		_, err := fmt.Fprintln(p.w, "  No source data available")
		return err
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Source,
			strconv.Itoa(s.TotalAds),
			money(s.MinPricePerSqm),
			money(s.MedianPricePerSqm),
			money(s.AvgPricePerSqm),
			money(s.MaxPricePerSqm),
			money(s.IQRPricePerSqm),
			s.DominantRange,
		})
	}
	return p.table([]string{"Source", "Ads", "Min", "Median", "Avg", "Max", "IQR", "Dominant"}, rows)
}

// PrintQuartiles renders the combined quartile report.
func (p *ReportPrinter) PrintQuartiles(r models.QuartileReport) error {
	if err := p.section("Combined quartiles (€/m²)"); err != nil {
		return err
	}
	if r.TotalAds == 0 {
		_, err := fmt.Fprintln(p.w, "  No price samples")
		return err
	}
	rows := [][]string{{
		strconv.Itoa(r.TotalAds),
		money(r.Q1),
		money(r.Q2),
		money(r.Q3),
		money(r.IQR),
		fmt.Sprintf("%d (%.1f%%)", r.OutliersRemoved, r.OutliersPercentage),
	}}
	if err := p.table([]string{"Ads", "Q1", "Median", "Q3", "IQR", "Outliers"}, rows); err != nil {
		return err
	}
	if r.Interpretation != nil {
		_, err := fmt.Fprintf(p.w, "  Market width: %s\n", p.emphasis(r.Interpretation.MarketWidth))
		return err
	}
	return nil
}

// PrintInsights renders the sector overview of the listing snapshot.
func (p *ReportPrinter) PrintInsights(in *models.MarketInsights) error {
	if err := p.section("Listings overview"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(p.w, "  Listings: %s   Median price: %s €   Median €/m²: %s\n",
		p.emphasis(in.TotalListings), p.emphasis(money(in.MedianPriceEUR)), p.emphasis(money(in.MedianPricePerSqm))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(p.w, "  Underpriced: %s   Fair: %d   Overpriced: %s\n",
		p.good(in.UnderpricedCount), in.FairPricedCount, p.bad(in.OverpricedCount)); err != nil {
		return err
	}

	names := append([]string(nil), in.SectorOrder...)
	sort.SliceStable(names, func(i, j int) bool {
		return in.SectorStats[names[i]].Count > in.SectorStats[names[j]].Count
	})
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := in.SectorStats[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(s.Count),
			money(s.AvgPriceEUR),
			money(s.AvgSurfaceSqm),
			money(s.AvgPricePerSqm),
		})
	}
	return p.table([]string{"Sector", "Listings", "Avg price", "Avg m²", "Avg €/m²"}, rows)
}

// PrintRefresh renders the per-source outcome of one refresh pass.
func (p *ReportPrinter) PrintRefresh(r *models.RefreshReport) error {
	if err := p.section(fmt.Sprintf("Refresh %s (%s)", r.RunID, r.Trigger)); err != nil {
		return err
	}
	names := make([]string, 0, len(r.Outcomes))
	for name := range r.Outcomes {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		o := r.Outcomes[name]
		status := p.good("ok")
		if !o.OK {
			status = p.bad("failed")
		}
		rows = append(rows, []string{name, status, strconv.Itoa(o.Items), o.Duration.String(), o.Error})
	}
	return p.table([]string{"Source", "Status", "Items", "Took", "Error"}, rows)
}
