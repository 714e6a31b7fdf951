package today

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ldeneuve/felicare/internal/application"
	"github.com/ldeneuve/felicare/internal/domain"
)

// Report is everything the today view needs: the local aggregate, the
// schedules due today and the offline/sync state around them.
type Report struct {
	Subject    string
	Date       string
	Summary    domain.DailySummary
	HasSummary bool
	Schedules  []domain.Schedule
	QueueDepth int
	Offline    bool
	Notice     *application.SyncNotice
}

func renderView(report Report, s styles) string {
	lines := []string{
		s.title.Render("Daily Treatment Summary"),
		s.header.Render(fmt.Sprintf("%s on %s", report.Subject, report.Date)),
	}

	if !report.HasSummary && len(report.Schedules) == 0 {
		lines = append(lines, s.empty.Render("No treatments scheduled or logged today."))
		return lipgloss.JoinVertical(lipgloss.Left, append(lines, statusLines(report, s)...)...)
	}

	if len(report.Schedules) > 0 {
		lines = append(lines, s.section.Render(renderSlots(report, s)))
	}

	lines = append(lines, s.section.Render(renderTotals(report.Summary, s)))
	lines = append(lines, statusLines(report, s)...)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSlots(report Report, s styles) string {
	var (
		parts []string
		done  int
		total int
	)

	for _, schedule := range report.Schedules {
		for _, slot := range schedule.ReminderTimes {
			total++
			covered := slotCovered(report.Summary, schedule, slot)
			if covered {
				done++
			}
			parts = append(parts, slotLine(schedule, slot.Format("15:04"), covered, s))
		}
	}

	parts = append(parts, progressLine(done, total, s))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func slotCovered(summary domain.DailySummary, schedule domain.Schedule, slot time.Time) bool {
	switch schedule.Kind {
	case domain.TreatmentMedication:
		return summary.CompletedNear(schedule.MedicationName, slot, domain.SlotMatchWindow)
	case domain.TreatmentFluid:
		return summary.CompletedNear(domain.FluidSlotKey(schedule.ID), slot, domain.SlotMatchWindow)
	default:
		return false
	}
}

func slotLine(schedule domain.Schedule, clockLabel string, covered bool, s styles) string {
	mark := s.pending.Render("[ ]")
	if covered {
		mark = s.done.Render("[x]")
	}

	var label string
	switch schedule.Kind {
	case domain.TreatmentFluid:
		label = fmt.Sprintf("fluids %.0f ml", schedule.TargetVolume)
	default:
		label = fmt.Sprintf("%s %.4g %s", schedule.MedicationName, schedule.TargetDose, schedule.DoseUnit)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, mark, " ", s.detail.Render(clockLabel+"  "+label))
}

func progressLine(done, total int, s styles) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderProgressBar(done, total, 24, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d of %d treatments done", done, total)),
	)
}

func renderTotals(summary domain.DailySummary, s styles) string {
	medications := fmt.Sprintf("medications: %d session(s)", summary.MedicationSessionCount)
	if summary.TotalDoseGiven > 0 {
		medications += fmt.Sprintf(", %.4g total dose", summary.TotalDoseGiven)
	}
	fluids := fmt.Sprintf("fluids: %d session(s)", summary.FluidSessionCount)
	if summary.TotalFluidVolumeGiven > 0 {
		fluids += fmt.Sprintf(", %.0f ml total", summary.TotalFluidVolumeGiven)
	}

	return lipgloss.JoinVertical(lipgloss.Left, s.detail.Render(medications), s.detail.Render(fluids))
}

func statusLines(report Report, s styles) []string {
	var lines []string

	if report.Offline {
		line := "offline: new entries will be queued"
		if report.QueueDepth > 0 {
			line = fmt.Sprintf("offline: %d operation(s) waiting to sync", report.QueueDepth)
		}
		lines = append(lines, s.section.Render(s.warning.Render(line)))
	} else if report.QueueDepth > 0 {
		lines = append(lines, s.section.Render(s.warning.Render(fmt.Sprintf("%d operation(s) waiting to sync", report.QueueDepth))))
	}

	if report.Notice != nil {
		style := s.notice
		if report.Notice.Failed > 0 {
			style = s.warning
		}
		lines = append(lines, s.section.Render(style.Render(report.Notice.Message)))
	}

	return lines
}

func renderProgressBar(done, total, width int, s styles) string {
	if width <= 0 || total <= 0 {
		return ""
	}

	fraction := float64(done) / float64(total)
	filled := int(math.Round(float64(width) * fraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}
