package pipeline

import "context"

// ContentPlan is the Plan step's output: the generation prompt plus the
// upload metadata derived from it.
type ContentPlan struct {
	PromptText  string
	Title       string
	Description string
	Tags        []string
}

// UploadResult identifies a published video.
type UploadResult struct {
	Identifier string
	URL        string
}

// Planner produces the content plan that seeds a run.
type Planner interface {
	Plan(ctx context.Context, instructions string) (*ContentPlan, error)
}

// Generator renders the plan's prompt into a video file and returns its
// path.
type Generator interface {
	Generate(ctx context.Context, promptText string, durationSeconds int, resolution string) (string, error)
}

// Cleaner removes the generation watermark (and optionally enhances the
// result), returning the path of the cleaned file.
type Cleaner interface {
	Clean(ctx context.Context, inputPath string) (string, error)
}

// Publisher uploads the final video.
type Publisher interface {
	Publish(ctx context.Context, filePath, title, description string, tags []string, privacy string) (*UploadResult, error)
}

// Collaborators bundles the step implementations the runner drives.
type Collaborators struct {
	Planner   Planner
	Generator Generator
	Cleaner   Cleaner
	Publisher Publisher
}
