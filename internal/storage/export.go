// ABOUTME: Export and import functionality for a user's planning data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats and JSON import.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for one user's data.
type ExportData struct {
	Version       string                 `json:"version" yaml:"version"`
	ExportedAt    time.Time              `json:"exported_at" yaml:"exported_at"`
	Tool          string                 `json:"tool" yaml:"tool"`
	UserID        uuid.UUID              `json:"user_id" yaml:"user_id"`
	Visions       []*models.Vision       `json:"visions" yaml:"visions"`
	PowerGoals    []*models.PowerGoal    `json:"power_goals" yaml:"power_goals"`
	Targets       []*models.Target       `json:"targets" yaml:"targets"`
	MINs          []*models.MIN          `json:"mins" yaml:"mins"`
	TimeBlocks    []*models.TimeBlock    `json:"time_blocks" yaml:"time_blocks"`
	KPIs          []*models.KPI          `json:"kpis" yaml:"kpis"`
	KPILogs       []*models.KPILog       `json:"kpi_logs" yaml:"kpi_logs"`
	KPIProgress   []*models.KPIProgress  `json:"kpi_progress" yaml:"kpi_progress"`
	Routines      []*models.Routine      `json:"routines" yaml:"routines"`
	Reviews       []*models.DailyReview  `json:"daily_reviews" yaml:"daily_reviews"`
	LeverageItems []*models.LeverageItem `json:"leverage_items" yaml:"leverage_items"`
	Progress      *models.UserProgress   `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Records returns the number of rows the export carries.
func (data *ExportData) Records() int {
	return len(data.Visions) + len(data.PowerGoals) + len(data.Targets) + len(data.MINs) +
		len(data.TimeBlocks) + len(data.KPIs) + len(data.KPILogs) + len(data.Routines) +
		len(data.Reviews) + len(data.LeverageItems)
}

// GetAllData retrieves all of a user's data for export.
func (d *DB) GetAllData(ctx context.Context, userID uuid.UUID) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "goalpro",
		UserID:     userID,
	}

	var err error
	if data.Visions, err = d.ListVisions(ctx, userID); err != nil {
		return nil, err
	}
	if data.PowerGoals, err = d.ListPowerGoals(ctx, userID, PowerGoalFilter{}); err != nil {
		return nil, err
	}
	if data.Targets, err = d.ListTargets(ctx, userID, nil, nil); err != nil {
		return nil, err
	}
	if data.MINs, err = d.ListMINs(ctx, userID, MINFilter{IncludeCompleted: true}); err != nil {
		return nil, err
	}
	if data.TimeBlocks, err = d.ListTimeBlocks(ctx, userID, time.Time{}, time.Time{}); err != nil {
		return nil, err
	}
	if data.KPIs, err = d.ListKPIs(ctx, userID); err != nil {
		return nil, err
	}
	for _, k := range data.KPIs {
		logs, err := d.ListKPILogs(ctx, userID, k.ID)
		if err != nil {
			return nil, err
		}
		data.KPILogs = append(data.KPILogs, logs...)

		p, err := d.GetKPIProgress(ctx, userID, k.ID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, err
		default:
			data.KPIProgress = append(data.KPIProgress, p)
		}
	}
	if data.Routines, err = d.ListRoutines(ctx, userID); err != nil {
		return nil, err
	}
	if data.Reviews, err = d.ListDailyReviews(ctx, userID, 0); err != nil {
		return nil, err
	}
	if data.LeverageItems, err = d.ListLeverageItems(ctx, userID); err != nil {
		return nil, err
	}
	if data.Progress, err = d.GetUserProgress(ctx, userID); err != nil {
		return nil, err
	}
	return data, nil
}

// ImportData writes an export into the database. Rows are created in
// dependency order and KPIs are inserted parents first.
func (d *DB) ImportData(ctx context.Context, data *ExportData) error {
	for _, v := range data.Visions {
		if err := d.CreateVision(ctx, v); err != nil {
			return fmt.Errorf("import vision: %w", err)
		}
	}
	for _, g := range data.PowerGoals {
		if err := d.CreatePowerGoal(ctx, g); err != nil {
			return fmt.Errorf("import power goal: %w", err)
		}
	}
	for _, t := range data.Targets {
		if err := d.CreateTarget(ctx, t); err != nil {
			return fmt.Errorf("import target: %w", err)
		}
	}
	for _, m := range data.MINs {
		if err := d.CreateMIN(ctx, m); err != nil {
			return fmt.Errorf("import min: %w", err)
		}
	}
	for _, b := range data.TimeBlocks {
		if err := d.CreateTimeBlock(ctx, b); err != nil {
			return fmt.Errorf("import time block: %w", err)
		}
	}
	for _, k := range parentsFirst(data.KPIs) {
		if err := d.CreateKPI(ctx, k); err != nil {
			return fmt.Errorf("import kpi: %w", err)
		}
	}
	for _, l := range data.KPILogs {
		if err := d.AddKPILog(ctx, l); err != nil {
			return fmt.Errorf("import kpi log: %w", err)
		}
	}
	for _, p := range data.KPIProgress {
		if err := d.UpsertKPIProgress(ctx, p); err != nil {
			return fmt.Errorf("import kpi progress: %w", err)
		}
	}
	for _, r := range data.Routines {
		if err := d.CreateRoutine(ctx, r); err != nil {
			return fmt.Errorf("import routine: %w", err)
		}
	}
	for _, r := range data.Reviews {
		if _, err := d.UpsertDailyReview(ctx, r); err != nil {
			return fmt.Errorf("import daily review: %w", err)
		}
	}
	for _, l := range data.LeverageItems {
		if err := d.CreateLeverageItem(ctx, l); err != nil {
			return fmt.Errorf("import leverage item: %w", err)
		}
	}
	if data.Progress != nil {
		if err := d.SaveUserProgress(ctx, data.Progress); err != nil {
			return fmt.Errorf("import progress: %w", err)
		}
	}
	return nil
}

// parentsFirst orders KPIs so every parent precedes its children. Nodes whose
// parent is missing from the slice, or that sit on a cycle, are appended last.
func parentsFirst(kpis []*models.KPI) []*models.KPI {
	byID := make(map[uuid.UUID]*models.KPI, len(kpis))
	for _, k := range kpis {
		byID[k.ID] = k
	}
	placed := make(map[uuid.UUID]bool, len(kpis))
	out := make([]*models.KPI, 0, len(kpis))

	for len(out) < len(kpis) {
		progressed := false
		for _, k := range kpis {
			if placed[k.ID] {
				continue
			}
			if k.ParentID != nil && byID[*k.ParentID] != nil && !placed[*k.ParentID] {
				continue
			}
			placed[k.ID] = true
			out = append(out, k)
			progressed = true
		}
		if !progressed {
			for _, k := range kpis {
				if !placed[k.ID] {
					placed[k.ID] = true
					out = append(out, k)
				}
			}
		}
	}
	return out
}

// ExportJSON exports a user's data as JSON.
func (d *DB) ExportJSON(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	data, err := d.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return data.JSON()
}

// ImportJSON imports data from JSON bytes.
func (d *DB) ImportJSON(ctx context.Context, raw []byte) error {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return d.ImportData(ctx, &data)
}

// ExportYAML exports a user's data as YAML.
func (d *DB) ExportYAML(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	data, err := d.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return data.YAML()
}

// ExportMarkdown exports a user's data as a Markdown report.
func (d *DB) ExportMarkdown(ctx context.Context, userID uuid.UUID) (string, error) {
	data, err := d.GetAllData(ctx, userID)
	if err != nil {
		return "", err
	}
	return data.Markdown(), nil
}

// JSON renders the export as indented JSON.
func (data *ExportData) JSON() ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

// YAML renders the export with goals nested under their vision and MINs
// grouped by due date.
func (data *ExportData) YAML() ([]byte, error) {
	yamlData := struct {
		Version    string               `yaml:"version"`
		ExportedAt string               `yaml:"exported_at"`
		Tool       string               `yaml:"tool"`
		Visions    []yamlVision         `yaml:"visions"`
		Goals      []yamlGoal           `yaml:"unlinked_goals,omitempty"`
		MINs       map[string][]yamlMIN `yaml:"mins"`
		TimeBlocks []yamlTimeBlock      `yaml:"time_blocks"`
		KPIs       []yamlKPI            `yaml:"kpis"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		MINs:       make(map[string][]yamlMIN),
		TimeBlocks: make([]yamlTimeBlock, 0, len(data.TimeBlocks)),
		KPIs:       make([]yamlKPI, 0, len(data.KPIs)),
	}

	targetsByGoal := make(map[uuid.UUID][]string)
	for _, t := range data.Targets {
		targetsByGoal[t.PowerGoalID] = append(targetsByGoal[t.PowerGoalID],
			fmt.Sprintf("%s %s (%s)", t.Level, t.Title, t.PeriodStart.Format(models.DateLayout)))
	}
	goalsByVision := make(map[uuid.UUID][]yamlGoal)
	for _, g := range data.PowerGoals {
		yg := yamlGoal{
			ID:       shortID(g.ID),
			Title:    g.Title,
			Year:     g.Year,
			Quarter:  g.Quarter,
			Status:   string(g.Status),
			Progress: g.Progress,
			Targets:  targetsByGoal[g.ID],
		}
		if g.VisionID == nil {
			yamlData.Goals = append(yamlData.Goals, yg)
			continue
		}
		goalsByVision[*g.VisionID] = append(goalsByVision[*g.VisionID], yg)
	}

	for _, v := range data.Visions {
		yamlData.Visions = append(yamlData.Visions, yamlVision{
			ID:        shortID(v.ID),
			Title:     v.Title,
			RuleScore: v.Score().Total,
			Goals:     goalsByVision[v.ID],
		})
	}

	for _, m := range data.MINs {
		day := m.DueDate.Format(models.DateLayout)
		yamlData.MINs[day] = append(yamlData.MINs[day], yamlMIN{
			ID:        shortID(m.ID),
			Title:     m.Title,
			Priority:  m.Priority,
			Completed: m.Completed,
		})
	}

	for _, b := range data.TimeBlocks {
		yb := yamlTimeBlock{
			ID:       shortID(b.ID),
			Title:    b.Title,
			StartsAt: b.StartsAt.Format(time.RFC3339),
			Minutes:  int(b.Duration().Minutes()),
		}
		if b.Quadrant != nil {
			yb.Quadrant = string(*b.Quadrant)
		}
		if b.Recurrence != nil {
			yb.Recurrence = *b.Recurrence
		}
		yamlData.TimeBlocks = append(yamlData.TimeBlocks, yb)
	}

	progressByKPI := make(map[uuid.UUID]float64, len(data.KPIProgress))
	for _, p := range data.KPIProgress {
		progressByKPI[p.KPIID] = p.Percent
	}
	for _, k := range data.KPIs {
		yk := yamlKPI{
			ID:       shortID(k.ID),
			Title:    k.Title,
			Level:    string(k.Level),
			Target:   k.TargetValue,
			Unit:     k.Unit,
			Progress: progressByKPI[k.ID],
		}
		if k.ParentID != nil {
			yk.Parent = shortID(*k.ParentID)
		}
		yamlData.KPIs = append(yamlData.KPIs, yk)
	}

	return yaml.Marshal(yamlData)
}

type yamlVision struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	RuleScore int        `yaml:"rule_score"`
	Goals     []yamlGoal `yaml:"goals,omitempty"`
}

type yamlGoal struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Year     int      `yaml:"year"`
	Quarter  int      `yaml:"quarter,omitempty"`
	Status   string   `yaml:"status"`
	Progress float64  `yaml:"progress"`
	Targets  []string `yaml:"targets,omitempty"`
}

type yamlMIN struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Priority  int    `yaml:"priority"`
	Completed bool   `yaml:"completed"`
}

type yamlTimeBlock struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	StartsAt   string `yaml:"starts_at"`
	Minutes    int    `yaml:"minutes"`
	Quadrant   string `yaml:"quadrant,omitempty"`
	Recurrence string `yaml:"recurrence,omitempty"`
}

type yamlKPI struct {
	ID       string  `yaml:"id"`
	Parent   string  `yaml:"parent,omitempty"`
	Title    string  `yaml:"title"`
	Level    string  `yaml:"level"`
	Target   float64 `yaml:"target"`
	Unit     string  `yaml:"unit,omitempty"`
	Progress float64 `yaml:"progress"`
}

// Markdown renders the export as a human-readable report.
func (data *ExportData) Markdown() string {
	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Goal Achiever Pro Export - %s\n\n", now.Format(models.DateLayout)))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	if data.Progress != nil {
		sb.WriteString(fmt.Sprintf("Level %d · %d XP · %d day streak (best %d)\n\n",
			data.Progress.Level, data.Progress.TotalXP, data.Progress.CurrentStreak, data.Progress.LongestStreak))
	}

	if len(data.Visions) > 0 {
		sb.WriteString("## Visions\n\n")
		sb.WriteString("| Vision | Clarity | Belief | Consistency | 300% Rule |\n")
		sb.WriteString("|--------|---------|--------|-------------|-----------|\n")
		for _, v := range data.Visions {
			s := v.Score()
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d/300 |\n",
				v.Title, s.Clarity, s.Belief, s.Consistency, s.Total))
		}
		sb.WriteString("\n")
	}

	if len(data.PowerGoals) > 0 {
		sb.WriteString("## Power Goals\n\n")
		sb.WriteString("| Goal | Period | Status | Progress |\n")
		sb.WriteString("|------|--------|--------|----------|\n")
		for _, g := range data.PowerGoals {
			period := fmt.Sprintf("%d", g.Year)
			if g.Quarter > 0 {
				period = fmt.Sprintf("Q%d %d", g.Quarter, g.Year)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.0f%% |\n", g.Title, period, g.Status, g.Progress))
		}
		sb.WriteString("\n")
	}

	if len(data.MINs) > 0 {
		sb.WriteString("## MINs\n\n")
		sb.WriteString("| Due | Priority | Title | Done |\n")
		sb.WriteString("|-----|----------|-------|------|\n")
		for _, m := range data.MINs {
			done := ""
			if m.Completed {
				done = "✓"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n",
				m.DueDate.Format(models.DateLayout), m.Priority, m.Title, done))
		}
		sb.WriteString("\n")
	}

	if len(data.TimeBlocks) > 0 {
		sb.WriteString("## Time Blocks\n\n")
		sb.WriteString("| Start | Title | Minutes | DRIP | Energy |\n")
		sb.WriteString("|-------|-------|---------|------|--------|\n")
		for _, b := range data.TimeBlocks {
			quadrant, energy := "", ""
			if b.Quadrant != nil {
				quadrant = string(*b.Quadrant)
			}
			if b.Energy != nil {
				energy = string(*b.Energy)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
				b.StartsAt.Format("2006-01-02 15:04"), b.Title, int(b.Duration().Minutes()), quadrant, energy))
		}
		sb.WriteString("\n")
	}

	if len(data.KPIs) > 0 {
		progressByKPI := make(map[uuid.UUID]float64, len(data.KPIProgress))
		for _, p := range data.KPIProgress {
			progressByKPI[p.KPIID] = p.Percent
		}
		sb.WriteString("## KPIs\n\n")
		sb.WriteString("| KPI | Level | Target | Progress |\n")
		sb.WriteString("|-----|-------|--------|----------|\n")
		for _, k := range data.KPIs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f %s | %.0f%% |\n",
				k.Title, k.Level, k.TargetValue, k.Unit, progressByKPI[k.ID]))
		}
		sb.WriteString("\n")
	}

	if len(data.Reviews) > 0 {
		reviews := append([]*models.DailyReview(nil), data.Reviews...)
		sort.Slice(reviews, func(i, j int) bool {
			return reviews[i].ReviewDate.After(reviews[j].ReviewDate)
		})
		sb.WriteString("## Daily Reviews\n\n")
		for _, r := range reviews {
			sb.WriteString(fmt.Sprintf("### %s\n\n", r.ReviewDate.Format(models.DateLayout)))
			for _, w := range r.Wins {
				sb.WriteString(fmt.Sprintf("- Win: %s\n", w))
			}
			for _, c := range r.Challenges {
				sb.WriteString(fmt.Sprintf("- Challenge: %s\n", c))
			}
			if r.TomorrowFocus != nil {
				sb.WriteString(fmt.Sprintf("- Tomorrow: %s\n", *r.TomorrowFocus))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
