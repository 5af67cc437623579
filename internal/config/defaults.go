package config

const (
	defaultDataDir             = "~/.local/share/skimmer"
	defaultLogDir              = "~/.local/share/skimmer/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "meta-llama/llama-3.3-70b-instruct"
	defaultLLMTimeoutSeconds   = 120
	defaultFetchTimeoutSeconds = 10
	defaultMaxContentLength    = 10000
	defaultFetchUserAgent      = "Mozilla/5.0 (compatible; SkimmerBot/1.0)"
	defaultEnrichBatchSize     = 10
	defaultRetryBatchSize      = 3
	defaultMaxFetchAttempts    = 4
	defaultPromptBudget        = 10000
	defaultRetrievalMaxItems   = 8
	defaultContentBudget       = 6000
	defaultTitleHitWeight      = 50
	defaultSummaryHitWeight    = 25
	defaultBodyHitWeight       = 10
	defaultTopicAreaBonus      = 30
	defaultRecencyBonusMax     = 40
	defaultWindowDays          = 14
	defaultDigestMaxItems      = 5
	defaultMinSummaryLength    = 40
	defaultTelegramBaseURL     = "https://api.telegram.org"
	defaultTelegramTimeout     = 10
	defaultAlertThreshold      = 250
	defaultAlertWindowHours    = 48
	defaultSendDelayMillis     = 150
	defaultMaxHistoryTurns     = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Communities: Communities{
			Names: []string{
				"artificial",
				"OpenAI",
				"ClaudeAI",
				"LocalLLaMA",
				"LangChain",
				"AI_Agents",
				"PromptEngineering",
				"singularity",
			},
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		LinkFetch: LinkFetch{
			TimeoutSeconds:   defaultFetchTimeoutSeconds,
			MaxContentLength: defaultMaxContentLength,
			UserAgent:        defaultFetchUserAgent,
		},
		Enrich: Enrich{
			BatchSize:        defaultEnrichBatchSize,
			RetryBatchSize:   defaultRetryBatchSize,
			MaxFetchAttempts: defaultMaxFetchAttempts,
			PromptBudget:     defaultPromptBudget,
		},
		Retrieval: Retrieval{
			MaxItems:          defaultRetrievalMaxItems,
			ContentBudget:     defaultContentBudget,
			TitleHitWeight:    defaultTitleHitWeight,
			SummaryHitWeight:  defaultSummaryHitWeight,
			BodyHitWeight:     defaultBodyHitWeight,
			TopicAreaBonus:    defaultTopicAreaBonus,
			RecencyBonusMax:   defaultRecencyBonusMax,
			DefaultWindowDays: defaultWindowDays,
		},
		Digest: Digest{
			MaxItems:         defaultDigestMaxItems,
			MinSummaryLength: defaultMinSummaryLength,
		},
		Telegram: Telegram{
			BaseURL:        defaultTelegramBaseURL,
			RequestTimeout: defaultTelegramTimeout,
		},
		Broadcast: Broadcast{
			AlertScoreThreshold: defaultAlertThreshold,
			AlertWindowHours:    defaultAlertWindowHours,
			SendDelayMillis:     defaultSendDelayMillis,
		},
		Chat: Chat{
			MaxHistoryTurns: defaultMaxHistoryTurns,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
