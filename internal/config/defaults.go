package config

const (
	defaultConfigPath               = "~/.config/reelsmith/config.toml"
	defaultDataDir                  = "~/.local/share/reelsmith"
	defaultLogDir                   = "~/.local/share/reelsmith/logs"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLLMBaseURL               = "https://api.openai.com/v1"
	defaultLLMModel                 = "gpt-4o-mini"
	defaultLLMSpeechModel           = "tts-1"
	defaultLLMVoice                 = "alloy"
	defaultLLMTemperature           = 0.7
	defaultLLMTimeoutSeconds        = 120
	defaultLLMMaxRetries            = 3
	defaultPexelsBaseURL            = "https://api.pexels.com"
	defaultPixabayBaseURL           = "https://pixabay.com/api"
	defaultStockPerPage             = 15
	defaultStockMaxResults          = 50
	defaultStockTimeoutSeconds      = 20
	defaultCompositorBaseURL        = "https://api.shotstack.io/edit/stage"
	defaultCompositorResolution     = "hd"
	defaultCompositorFormat         = "mp4"
	defaultSubmitTimeoutSeconds     = 30
	defaultPollTimeoutSeconds       = 15
	defaultPollIntervalSeconds      = 5
	defaultPollMaxIntervalSeconds   = 60
	defaultPublishPrivacyStatus     = "private"
	defaultPublishCategoryID        = "22"
	defaultPublishTimeoutSeconds    = 600
	defaultGenerationTimeoutSeconds = 180
	defaultResearchTimeoutSeconds   = 180
	defaultSearchTimeoutSeconds     = 20
	defaultGenerationConcurrency    = 4
	defaultNotifyRequestTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			SpeechModel:    defaultLLMSpeechModel,
			Voice:          defaultLLMVoice,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxRetries:     defaultLLMMaxRetries,
		},
		Stock: Stock{
			Sources:        []string{"pexels", "pixabay"},
			PexelsBaseURL:  defaultPexelsBaseURL,
			PixabayBaseURL: defaultPixabayBaseURL,
			PerPage:        defaultStockPerPage,
			MaxResults:     defaultStockMaxResults,
			TimeoutSeconds: defaultStockTimeoutSeconds,
		},
		Compositor: Compositor{
			BaseURL:                defaultCompositorBaseURL,
			Resolution:             defaultCompositorResolution,
			Format:                 defaultCompositorFormat,
			SubmitTimeoutSeconds:   defaultSubmitTimeoutSeconds,
			PollTimeoutSeconds:     defaultPollTimeoutSeconds,
			PollIntervalSeconds:    defaultPollIntervalSeconds,
			PollMaxIntervalSeconds: defaultPollMaxIntervalSeconds,
		},
		Publish: Publish{
			PrivacyStatus:  defaultPublishPrivacyStatus,
			CategoryID:     defaultPublishCategoryID,
			TimeoutSeconds: defaultPublishTimeoutSeconds,
		},
		Workflow: Workflow{
			GenerationTimeoutSeconds: defaultGenerationTimeoutSeconds,
			ResearchTimeoutSeconds:   defaultResearchTimeoutSeconds,
			SearchTimeoutSeconds:     defaultSearchTimeoutSeconds,
			GenerationConcurrency:    defaultGenerationConcurrency,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Render:         true,
			Publish:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
