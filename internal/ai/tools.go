package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/01moynul/dayplanner-golang/internal/models"
	"github.com/01moynul/dayplanner-golang/internal/routine"
)

// DataSource is what the tools may read. Every method is scoped to one user.
type DataSource interface {
	ListTasks(ctx context.Context, userID int64, from, to time.Time) ([]models.Task, error)
	ListActiveRoutines(ctx context.Context, userID int64) ([]models.Routine, error)
}

const (
	ToolListTasks       = "list_tasks"
	ToolListDueRoutines = "list_due_routines"
	maxToolRangeDays    = 62
)

// Tools executes assistant function calls against a DataSource.
type Tools struct {
	data DataSource
}

func NewTools(data DataSource) *Tools {
	return &Tools{data: data}
}

// Declarations describes the tools to the model.
func (t *Tools) Declarations() []*genai.FunctionDeclaration {
	date := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return []*genai.FunctionDeclaration{
		{
			Name:        ToolListTasks,
			Description: "Lists the user's tasks with a due date between from and to (inclusive).",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"from": date("First day, YYYY-MM-DD."),
					"to":   date("Last day, YYYY-MM-DD."),
				},
				Required: []string{"from", "to"},
			},
		},
		{
			Name:        ToolListDueRoutines,
			Description: "Lists the user's active routines that are due on a given date.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"date": date("The day to check, YYYY-MM-DD."),
				},
				Required: []string{"date"},
			},
		},
	}
}

// Call runs tool name for userID. Bad arguments come back as errors for the model to read.
func (t *Tools) Call(ctx context.Context, userID int64, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case ToolListTasks:
		from, err := dateArg(args, "from")
		if err != nil {
			return nil, err
		}
		to, err := dateArg(args, "to")
		if err != nil {
			return nil, err
		}
		if to.Before(from) {
			return nil, fmt.Errorf("to must not be before from")
		}
		if to.Sub(from) > maxToolRangeDays*24*time.Hour {
			return nil, fmt.Errorf("range is limited to %d days", maxToolRangeDays)
		}
		tasks, err := t.data.ListTasks(ctx, userID, from, to)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(tasks))
		for _, task := range tasks {
			item := map[string]any{"title": task.Title, "completed": task.IsCompleted}
			if task.DueDate != nil {
				item["due"] = task.DueDate.Format(time.DateOnly)
			}
			if task.Category != nil {
				item["category"] = *task.Category
			}
			out = append(out, item)
		}
		return map[string]any{"tasks": out}, nil

	case ToolListDueRoutines:
		day, err := dateArg(args, "date")
		if err != nil {
			return nil, err
		}
		routines, err := t.data.ListActiveRoutines(ctx, userID)
		if err != nil {
			return nil, err
		}
		due := routine.ResolveDueRoutines(routines, day)
		out := make([]map[string]any, 0, len(due))
		for _, r := range due {
			out = append(out, map[string]any{"title": r.Title, "frequency": string(r.FrequencyType)})
		}
		return map[string]any{"date": day.Format(time.DateOnly), "routines": out}, nil

	default:
		return nil, fmt.Errorf("unknown function: %s", name)
	}
}

func dateArg(args map[string]any, key string) (time.Time, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("missing %q argument", key)
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q must be YYYY-MM-DD", key)
	}
	return d, nil
}
