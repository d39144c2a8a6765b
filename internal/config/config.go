package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "TOPICSCRIBE_CONFIG"
	envFileEnv      = "TOPICSCRIBE_ENV_FILE"
	defaultEnvFile  = ".env"

	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
	timezoneEnv        = "SCHEDULER_TIMEZONE"
	notionAPIKeyEnv    = "NOTION_API_KEY"
	topicsDBEnv        = "NOTION_DATABASE_ID"
	dailyDBEnv         = "DAILY_DOCUMENTS_DB_ID"
	categoryDBEnv      = "CATEGORY_DOCUMENTS_DB_ID"
	registryPageEnv    = "REGISTRY_PAGE_ID"
	anthropicKeyEnv    = "ANTHROPIC_API_KEY"
	claudeKeyEnv       = "CLAUDE_API_KEY"
	claudeModelEnv     = "CLAUDE_MODEL"
	inputCostEnv       = "CLAUDE_INPUT_COST_PER_M"
	outputCostEnv      = "CLAUDE_OUTPUT_COST_PER_M"
	storageEndpointEnv = "MINIO_ENDPOINT"
	storageAccessEnv   = "MINIO_ACCESS_KEY"
	storageSecretEnv   = "MINIO_SECRET_KEY"
	storageBucketEnv   = "MINIO_BUCKET"
	storageSSLEnv      = "MINIO_USE_SSL"
	topicsFolderEnv    = "TOPICS_FOLDER_ID"
	dailyFolderEnv     = "DAILY_FOLDER_ID"
	categoryFolderEnv  = "CATEGORY_FOLDER_ID"
	batchSizeEnv       = "BATCH_SIZE"
	maxTitleLengthEnv  = "MAX_TITLE_LENGTH"
	quotaSourceEnv     = "QUOTA_SOURCE"
	operationNameEnv   = "OPERATION_NAME"
	ledgerDriverEnv    = "LEDGER_DRIVER"
	ledgerDSNEnv       = "LEDGER_DSN"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	healthAddrEnv      = "HEALTH_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Notion     NotionConfig     `yaml:"notion"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Storage    StorageConfig    `yaml:"storage"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Categories CategoriesConfig `yaml:"categories"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Health     HealthConfig     `yaml:"health"`
}

// LoggingConfig selects the slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when jobs run.
type SchedulerConfig struct {
	CycleSpec string         `yaml:"cycleSpec"`
	DailySpec string         `yaml:"dailySpec"`
	Timezone  string         `yaml:"timezone"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotionConfig describes the record store workspace.
type NotionConfig struct {
	APIKey       string        `yaml:"apiKey"`
	BaseURL      string        `yaml:"baseUrl"`
	Version      string        `yaml:"version"`
	TopicsDB     string        `yaml:"topicsDb"`
	DailyDB      string        `yaml:"dailyDb"`
	CategoryDB   string        `yaml:"categoryDb"`
	RegistryPage string        `yaml:"registryPage"`
	Properties   PropertyNames `yaml:"properties"`
}

// PropertyNames maps logical fields to the column names used in the workspace.
type PropertyNames struct {
	Title       string `yaml:"title"`
	Processed   string `yaml:"processed"`
	Link        string `yaml:"link"`
	Category    string `yaml:"category"`
	ProcessedOn string `yaml:"processedOn"`
	Compiled    string `yaml:"compiled"`
	QuotaSource string `yaml:"quotaSource"`

	DailyTitle  string `yaml:"dailyTitle"`
	DailyDate   string `yaml:"dailyDate"`
	DailyCount  string `yaml:"dailyCount"`
	DailyLink   string `yaml:"dailyLink"`
	DailyStatus string `yaml:"dailyStatus"`

	CategoryTitle  string `yaml:"categoryTitle"`
	CategoryLabel  string `yaml:"categoryLabel"`
	CategoryDate   string `yaml:"categoryDate"`
	CategoryCount  string `yaml:"categoryCount"`
	CategoryLink   string `yaml:"categoryLink"`
	CategoryStatus string `yaml:"categoryStatus"`

	RegistryStatus    string `yaml:"registryStatus"`
	RegistryModel     string `yaml:"registryModel"`
	RegistryLastRun   string `yaml:"registryLastRun"`
	RegistryCost      string `yaml:"registryCost"`
	RegistryTotal     string `yaml:"registryTotal"`
	RegistryHealth    string `yaml:"registryHealth"`
	RegistryFrequency string `yaml:"registryFrequency"`
}

// AnthropicConfig defines how to contact the Messages API.
type AnthropicConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"apiKey"`
	Model             string        `yaml:"model"`
	Version           string        `yaml:"version"`
	MaxTokens         int           `yaml:"maxTokens"`
	ClassifyMaxTokens int           `yaml:"classifyMaxTokens"`
	CondenseMaxTokens int           `yaml:"condenseMaxTokens"`
	InputCostPerM     float64       `yaml:"inputCostPerM"`
	OutputCostPerM    float64       `yaml:"outputCostPerM"`
	Timeout           time.Duration `yaml:"timeout"`
}

// StorageConfig describes the S3-compatible artifact bucket.
type StorageConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	AccessKey     string        `yaml:"accessKey"`
	SecretKey     string        `yaml:"secretKey"`
	Bucket        string        `yaml:"bucket"`
	UseSSL        bool          `yaml:"useSsl"`
	PublicBaseURL string        `yaml:"publicBaseUrl"`
	Folders       FoldersConfig `yaml:"folders"`
}

// FoldersConfig names the destination of each artifact kind.
type FoldersConfig struct {
	Topics   FolderConfig `yaml:"topics"`
	Daily    FolderConfig `yaml:"daily"`
	Category FolderConfig `yaml:"category"`
}

// FolderConfig addresses a folder directly by id or by name lookup.
type FolderConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// PipelineConfig tunes the per-entry pipeline.
type PipelineConfig struct {
	BatchSize        int           `yaml:"batchSize"`
	MaxTitleLength   int           `yaml:"maxTitleLength"`
	MinContentChars  int           `yaml:"minContentChars"`
	ChunkSize        int           `yaml:"chunkSize"`
	ChunkDelay       time.Duration `yaml:"chunkDelay"`
	CommitRetryDelay time.Duration `yaml:"commitRetryDelay"`
	TitlePrefix      string        `yaml:"titlePrefix"`
	QuotaSource      string        `yaml:"quotaSource"`
	OperationName    string        `yaml:"operationName"`
	RunFrequency     string        `yaml:"runFrequency"`
}

// CategoriesConfig holds the seed vocabulary and the fallback label.
type CategoriesConfig struct {
	Seed    []string `yaml:"seed"`
	Default string   `yaml:"default"`
}

// LedgerConfig selects the run ledger backend. An empty driver disables it.
type LedgerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// TelegramConfig wires all data required to send alerts.
type TelegramConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// HealthConfig configures the health HTTP listener. An empty address disables it.
type HealthConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration (if present), the .env file and environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	envFile := os.Getenv(envFileEnv)
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", envFile, err)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports settings that must be present for the long-running service.
func (c Config) Validate() error {
	var errs []error
	if c.Notion.APIKey == "" {
		errs = append(errs, errors.New("notion api key is not set"))
	}
	if c.Notion.TopicsDB == "" {
		errs = append(errs, errors.New("notion topics database is not set"))
	}
	if c.Anthropic.APIKey == "" {
		errs = append(errs, errors.New("anthropic api key is not set"))
	}
	if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage endpoint and bucket are required"))
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		errs = append(errs, errors.New("storage credentials are not set"))
	}
	if c.Pipeline.BatchSize <= 0 {
		errs = append(errs, errors.New("pipeline batch size must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.Format, logFormatEnv)
	setString(&c.Scheduler.Timezone, timezoneEnv)

	setString(&c.Notion.APIKey, notionAPIKeyEnv)
	setString(&c.Notion.TopicsDB, topicsDBEnv)
	setString(&c.Notion.DailyDB, dailyDBEnv)
	setString(&c.Notion.CategoryDB, categoryDBEnv)
	setString(&c.Notion.RegistryPage, registryPageEnv)

	setString(&c.Anthropic.APIKey, claudeKeyEnv)
	setString(&c.Anthropic.APIKey, anthropicKeyEnv)
	setString(&c.Anthropic.Model, claudeModelEnv)
	setFloat(&c.Anthropic.InputCostPerM, inputCostEnv)
	setFloat(&c.Anthropic.OutputCostPerM, outputCostEnv)

	setString(&c.Storage.Endpoint, storageEndpointEnv)
	setString(&c.Storage.AccessKey, storageAccessEnv)
	setString(&c.Storage.SecretKey, storageSecretEnv)
	setString(&c.Storage.Bucket, storageBucketEnv)
	if v := os.Getenv(storageSSLEnv); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Storage.UseSSL = b
		} else {
			log.Printf("config: invalid %s=%q ignored", storageSSLEnv, v)
		}
	}
	setString(&c.Storage.Folders.Topics.ID, topicsFolderEnv)
	setString(&c.Storage.Folders.Daily.ID, dailyFolderEnv)
	setString(&c.Storage.Folders.Category.ID, categoryFolderEnv)

	setInt(&c.Pipeline.BatchSize, batchSizeEnv)
	setInt(&c.Pipeline.MaxTitleLength, maxTitleLengthEnv)
	setString(&c.Pipeline.QuotaSource, quotaSourceEnv)
	setString(&c.Pipeline.OperationName, operationNameEnv)

	setString(&c.Ledger.Driver, ledgerDriverEnv)
	setString(&c.Ledger.DSN, ledgerDSNEnv)

	setString(&c.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Telegram.ChatID, telegramChatIDEnv)

	setString(&c.Health.Addr, healthAddrEnv)
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// mergeConfig takes the file configuration (decoded over defaults) and restores
// defaults for numeric knobs the file zeroed out.
func mergeConfig(base, override Config) Config {
	if override.Pipeline.BatchSize <= 0 {
		override.Pipeline.BatchSize = base.Pipeline.BatchSize
	}
	if override.Pipeline.MaxTitleLength <= 0 {
		override.Pipeline.MaxTitleLength = base.Pipeline.MaxTitleLength
	}
	if override.Pipeline.MinContentChars <= 0 {
		override.Pipeline.MinContentChars = base.Pipeline.MinContentChars
	}
	if override.Pipeline.ChunkSize <= 0 || override.Pipeline.ChunkSize > base.Pipeline.ChunkSize {
		override.Pipeline.ChunkSize = base.Pipeline.ChunkSize
	}
	if override.Anthropic.MaxTokens <= 0 {
		override.Anthropic.MaxTokens = base.Anthropic.MaxTokens
	}
	if override.Anthropic.Timeout <= 0 {
		override.Anthropic.Timeout = base.Anthropic.Timeout
	}
	if len(override.Categories.Seed) == 0 {
		override.Categories.Seed = base.Categories.Seed
	}
	if strings.TrimSpace(override.Categories.Default) == "" {
		override.Categories.Default = base.Categories.Default
	}
	return override
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("config: invalid %s=%q ignored", key, v)
		return
	}
	*dst = n
}

func setFloat(dst *float64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		log.Printf("config: invalid %s=%q ignored", key, v)
		return
	}
	*dst = f
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			CycleSpec: "@every 5m",
			DailySpec: "55 23 * * *",
			Timezone:  defaultTimezone,
			location:  tz,
		},
		Notion: NotionConfig{
			BaseURL: "https://api.notion.com/v1",
			Version: "2022-06-28",
			Properties: PropertyNames{
				Title:       "Word, Phrase, Topic",
				Processed:   "Established Truth, Principles, Understanding?",
				Link:        "Link to Established Resource",
				Category:    "Umbrella Term",
				ProcessedOn: "Document Establishment Date",
				Compiled:    "Utilized, Umbrella Term Establishment?",
				QuotaSource: "Quota Source (Google Account)",

				DailyTitle:  "Daily Document",
				DailyDate:   "Date",
				DailyCount:  "Document Count",
				DailyLink:   "Google Drive, Established Document Link",
				DailyStatus: "Status",

				CategoryTitle:  "Umbrella Term Document",
				CategoryLabel:  "Umbrella Term",
				CategoryDate:   "Date",
				CategoryCount:  "Document Count",
				CategoryLink:   "Google Drive, Established Document Link",
				CategoryStatus: "Status",

				RegistryStatus:    "Status",
				RegistryModel:     "AI Platform & Model",
				RegistryLastRun:   "Last Successful Run",
				RegistryCost:      "Current Month API Cost",
				RegistryTotal:     "Total Inputs Processed",
				RegistryHealth:    "Infrastructure Health",
				RegistryFrequency: "Run Frequency",
			},
		},
		Anthropic: AnthropicConfig{
			Endpoint:          "https://api.anthropic.com/v1/messages",
			Model:             "claude-sonnet-4-6",
			Version:           "2023-06-01",
			MaxTokens:         64000,
			ClassifyMaxTokens: 50,
			CondenseMaxTokens: 100,
			InputCostPerM:     3.00,
			OutputCostPerM:    15.00,
			Timeout:           300 * time.Second,
		},
		Storage: StorageConfig{
			Endpoint: "localhost:9000",
			Bucket:   "topicscribe",
			Folders: FoldersConfig{
				Topics:   FolderConfig{Name: "🧠 Established Truth, Principles, Understanding"},
				Daily:    FolderConfig{Name: "📅 Established Daily Documents"},
				Category: FolderConfig{Name: "Established Umbrella Term Documents"},
			},
		},
		Pipeline: PipelineConfig{
			BatchSize:        5,
			MaxTitleLength:   150,
			MinContentChars:  500,
			ChunkSize:        95,
			ChunkDelay:       500 * time.Millisecond,
			CommitRetryDelay: 2 * time.Second,
			TitlePrefix:      "🧠 Established Truth, Principles of ",
			OperationName:    "Established Truth, Principles Automation",
			RunFrequency:     "Every 5 minutes",
		},
		Categories: CategoriesConfig{
			Seed: []string{
				"Divination", "Consciousness", "Automatism", "Transmutation", "Hermeticism",
				"Scripture", "Psychical Research", "Kabbalah", "Depth Psychology", "Esotericism",
				"Embodiment", "Rhetoric", "Cognition", "Craft", "Historiography", "Media",
			},
			Default: "Esotericism",
		},
		Telegram: TelegramConfig{BaseURL: "https://api.telegram.org"},
		Health:   HealthConfig{Addr: ":8080"},
	}
}
