package cmd

import (
	"fmt"
	"strings"

	"spendsense/domain"
	"spendsense/service"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorText   = lipgloss.Color("#FFFCF0")
	colorMuted  = lipgloss.Color("#6F6E69")
	colorBorder = lipgloss.Color("#282726")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorYellow = lipgloss.Color("#D0A215")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(28)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)
)

func renderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Width(60).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

func riskStyle(color string) lipgloss.Style {
	switch color {
	case "green":
		return lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	case "yellow":
		return lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	}
}

// levelColor maps the rule engine verdict to its display color.
func levelColor(level domain.RiskLevel) string {
	switch level {
	case domain.RiskLow:
		return "green"
	case domain.RiskMedium:
		return "yellow"
	default:
		return "red"
	}
}

func row(label, value string) string {
	return "  " + labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// RenderReport formats a report for the terminal.
func RenderReport(report domain.DecisionReport) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(renderTitle("SPENDSENSE PURCHASE EVALUATION"))
	b.WriteString("\n\n")

	if report.Status != domain.StatusSuccess {
		msg := "unknown error"
		if report.Error != nil {
			msg = *report.Error
		}
		b.WriteString("  " + errorStyle.Render(strings.ToUpper(string(report.Status))) + "\n")
		b.WriteString("  " + valueStyle.Render(msg) + "\n\n")
		return b.String()
	}

	metrics := report.FinalDecision.KeyMetrics
	breakdown := service.ScoreWithBreakdown(metrics.PurchaseCost, metrics.DisposableIncome)

	b.WriteString("  " + headerStyle.Render("Financial analysis") + "\n")
	b.WriteString(row("Item", report.InputValidation.PurchaseItem))
	b.WriteString(row("Monthly income", money(metrics.MonthlyIncome)))
	b.WriteString(row("Disposable income", money(metrics.DisposableIncome)))
	b.WriteString(row("Purchase cost", money(metrics.PurchaseCost)))
	if metrics.RemainingAfterPurchase != nil {
		b.WriteString(row("Remaining after purchase", money(*metrics.RemainingAfterPurchase)))
	}
	b.WriteString(row("Share of disposable income", fmt.Sprintf("%.1f%%", metrics.PercentageOfDisposable)))
	if reason := report.FinancialAnalysis.HardStopReason; reason != nil {
		b.WriteString(row("Hard stop", *reason))
	}
	b.WriteString("\n")

	b.WriteString("  " + headerStyle.Render("Risk assessment") + "\n")
	b.WriteString("  " + labelStyle.Render("Risk level") +
		riskStyle(levelColor(report.RiskAssessment.RiskLevel)).Render(string(report.RiskAssessment.RiskLevel)) + "\n")
	b.WriteString("  " + labelStyle.Render("Confidence score") +
		riskStyle(breakdown.Color).Render(fmt.Sprintf("%.3f", report.RiskAssessment.ConfidenceScore)) + "\n")
	b.WriteString("\n")

	b.WriteString("  " + headerStyle.Render("Summary") + "\n")
	b.WriteString("  " + valueStyle.Render(report.FinalDecision.Summary) + "\n\n")

	b.WriteString("  " + headerStyle.Render(fmt.Sprintf("Explanation (%s)", report.AIReasoning.Mode)) + "\n")
	for _, line := range strings.Split(report.AIReasoning.Explanation, "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")

	if len(report.AIReasoning.Alternatives) > 0 {
		b.WriteString("  " + headerStyle.Render("Alternatives") + "\n")
		for i, alt := range report.AIReasoning.Alternatives {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, alt))
		}
		b.WriteString("\n")
	}

	b.WriteString("  " + headerStyle.Render("Next steps") + "\n")
	for _, step := range report.FinalDecision.NextSteps {
		b.WriteString("  - " + step + "\n")
	}
	b.WriteString("\n  " + mutedStyle.Render(report.FinalDecision.Recommendation) + "\n\n")

	return b.String()
}

func RenderFollowUp(question, answer string) string {
	var b strings.Builder
	b.WriteString("  " + headerStyle.Render("Q: "+question) + "\n")
	for _, line := range strings.Split(answer, "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
	return b.String()
}
