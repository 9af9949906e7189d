package inkmail

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/alnah/go-inkmail/internal/logging"
)

// Pipeline names.
const (
	PipelineBuild   = "build"
	PipelineDefault = "default"
	PipelineProd    = "prod"
	PipelineZip     = "zip"
	PipelinePreview = "preview"
)

// Task is one named step.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Series runs tasks in order, logging each start and finish, and stops at
// the first error.
func (b *Builder) Series(ctx context.Context, tasks ...Task) error {
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.runTask(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) runTask(ctx context.Context, t Task) error {
	name := logging.Task(t.Name, b.colored)
	b.logger.Info(fmt.Sprintf("Starting %s...", name))
	start := time.Now()

	if err := t.Run(ctx); err != nil {
		b.logger.Error(fmt.Sprintf("'%s' errored after %s", t.Name, logging.FormatDuration(time.Since(start))))
		return fmt.Errorf("%s: %w", t.Name, err)
	}

	b.logger.Info(fmt.Sprintf("Finished %s after %s", name, logging.FormatDuration(time.Since(start))))
	return nil
}

// Tasks returns every task by name, in build order.
func (b *Builder) Tasks() []Task {
	return []Task{
		{Name: "clean", Run: b.Clean},
		{Name: "pages", Run: b.Pages},
		{Name: "sass", Run: b.Sass},
		{Name: "images", Run: b.Images},
		{Name: "fonts", Run: b.Fonts},
		{Name: "inline", Run: b.Inline},
		{Name: "jsonReplace", Run: b.Replace},
		{Name: "cleanProd", Run: b.CleanProd},
		{Name: "buildProd", Run: b.BuildProd},
		{Name: "zip", Run: b.Zip},
		{Name: "preview", Run: b.Preview},
		{Name: "resetPages", Run: b.Refresh},
	}
}

// Task returns the named task.
func (b *Builder) Task(name string) (Task, bool) {
	i := slices.IndexFunc(b.Tasks(), func(t Task) bool { return t.Name == name })
	if i < 0 {
		return Task{}, false
	}
	return b.Tasks()[i], true
}

// Pipeline returns the task list of a named pipeline. The default pipeline
// is the build; serving and watching are started by Develop.
func (b *Builder) Pipeline(name string) ([]Task, error) {
	var names []string
	switch name {
	case PipelineBuild, PipelineDefault:
		names = buildTasks
	case PipelineProd:
		names = append(slices.Clone(buildTasks), "cleanProd", "buildProd")
	case PipelineZip:
		names = append(slices.Clone(buildTasks), "zip")
	case PipelinePreview:
		names = append(slices.Clone(buildTasks), "preview")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, name)
	}

	tasks := make([]Task, 0, len(names))
	for _, n := range names {
		t, _ := b.Task(n)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Run runs a named pipeline.
func (b *Builder) Run(ctx context.Context, pipeline string) error {
	tasks, err := b.Pipeline(pipeline)
	if err != nil {
		return err
	}
	return b.Series(ctx, tasks...)
}

var buildTasks = []string{"clean", "pages", "sass", "images", "fonts", "inline", "jsonReplace"}
