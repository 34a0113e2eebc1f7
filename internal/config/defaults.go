package config

const (
	defaultDataDir              = "~/.local/share/reel"
	defaultOutputDir            = "~/.local/share/reel/output"
	defaultTempDir              = "~/.local/share/reel/tmp"
	defaultLogDir               = "~/.local/share/reel/logs"
	defaultMinFreeSpaceGB       = 5
	defaultPlannerBaseURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultPlannerModel         = "google/gemini-3-flash-preview"
	defaultPlannerTitle         = "Reel Planner"
	defaultPlannerTimeout       = 60
	defaultGeneratorBaseURL     = "https://api.openai.com/v1/videos"
	defaultGeneratorModel       = "sora-2"
	defaultDurationSeconds      = 30
	defaultResolution           = "1080p"
	defaultGeneratorPoll        = 5
	defaultGeneratorTimeout     = 900
	defaultFFmpegBinary         = "ffmpeg"
	defaultPublisherBaseURL     = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultPrivacy              = "private"
	defaultCategoryID           = "22"
	defaultPublisherTimeout     = 600
	defaultCheckIntervalSeconds = 60
	defaultNtfyRequestTimeout   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
)

// defaultInstructions seeds the planner when no custom brief is configured.
const defaultInstructions = "Create a short, engaging video concept about a surprising " +
	"science, nature, or history fact. Keep it family friendly, visually striking, and " +
	"suitable for a general audience."

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			OutputDir:      defaultOutputDir,
			TempDir:        defaultTempDir,
			LogDir:         defaultLogDir,
			MinFreeSpaceGB: defaultMinFreeSpaceGB,
		},
		Planner: Planner{
			BaseURL:        defaultPlannerBaseURL,
			Model:          defaultPlannerModel,
			Title:          defaultPlannerTitle,
			TimeoutSeconds: defaultPlannerTimeout,
			Instructions:   defaultInstructions,
		},
		Generator: Generator{
			BaseURL:             defaultGeneratorBaseURL,
			Model:               defaultGeneratorModel,
			DurationSeconds:     defaultDurationSeconds,
			Resolution:          defaultResolution,
			PollIntervalSeconds: defaultGeneratorPoll,
			TimeoutSeconds:      defaultGeneratorTimeout,
		},
		Cleaner: Cleaner{
			FFmpegBinary: defaultFFmpegBinary,
			Enhance:      true,
		},
		Publisher: Publisher{
			BaseURL:        defaultPublisherBaseURL,
			Privacy:        defaultPrivacy,
			CategoryID:     defaultCategoryID,
			TimeoutSeconds: defaultPublisherTimeout,
		},
		Schedule: Schedule{
			Entries:              map[string]string{},
			CheckIntervalSeconds: defaultCheckIntervalSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
