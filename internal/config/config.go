package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ClipEmbedderConfig configures the HTTP client for a CLIP embedding server.
type ClipEmbedderConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKeyEnv    string `yaml:"api_key_env"`
	Model        string `yaml:"model"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
	ImageMaxSide int    `yaml:"image_max_side"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible text embedder.
type OpenAIEmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// LocalEmbedderConfig configures the offline hashing embedder.
type LocalEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Clip   *ClipEmbedderConfig   `yaml:"clip,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Local  *LocalEmbedderConfig  `yaml:"local,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Bolt   *BoltConfig   `yaml:"bolt,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// BoltConfig locates the bbolt database file.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig locates the sqlite database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexerConfig controls file discovery and batching.
type IndexerConfig struct {
	BatchSize       int      `yaml:"batch_size"`
	Workers         int      `yaml:"workers"`
	TextMaxChars    int      `yaml:"text_max_chars"`
	ImageExtensions []string `yaml:"image_extensions"`
	TextExtensions  []string `yaml:"text_extensions"`
	PDFExtensions   []string `yaml:"pdf_extensions"`
	Directories     []string `yaml:"directories"`
	WatchDebounceMs int      `yaml:"watch_debounce_ms"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Indexer     IndexerConfig     `yaml:"indexer"`
	Search      SearchConfig      `yaml:"search"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			applyConfigDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/filesearch/config.yaml.
// If neither exists, it writes defaults to ~/.config/filesearch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	applyConfigDefaults(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DataDir is where local stores keep their files.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".filesearch"
	}
	return filepath.Join(home, ".local", "share", "filesearch")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "filesearch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Embedder:    EmbedderConfig{Type: "clip"},
		VectorStore: VectorStoreConfig{Type: "bolt"},
		Indexer: IndexerConfig{
			BatchSize:       128,
			TextMaxChars:    2000,
			ImageExtensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"},
			TextExtensions:  []string{".txt", ".md", ".py", ".js", ".html", ".css", ".json"},
			PDFExtensions:   []string{".pdf"},
			WatchDebounceMs: 1500,
		},
		Search: SearchConfig{DefaultLimit: 5},
		Server: ServerConfig{Addr: ":5001"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Override replaces the embedder and store types when non-empty and
// fills in defaults for the newly selected implementations.
func (c *AppConfig) Override(embedder, store string) {
	if embedder != "" {
		c.Embedder.Type = embedder
	}
	if store != "" {
		c.VectorStore.Type = store
	}
	applyConfigDefaults(c)
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("FILESEARCH_EMBEDDER"); v != "" {
		cfg.Embedder.Type = v
	}
	if v := os.Getenv("FILESEARCH_STORE"); v != "" {
		cfg.VectorStore.Type = v
	}
	if v := os.Getenv("FILESEARCH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	switch cfg.Embedder.Type {
	case "clip":
		if cfg.Embedder.Clip == nil {
			cfg.Embedder.Clip = &ClipEmbedderConfig{}
		}
		if cfg.Embedder.Clip.BaseURL == "" {
			cfg.Embedder.Clip.BaseURL = "http://localhost:8000"
		}
		if cfg.Embedder.Clip.Model == "" {
			cfg.Embedder.Clip.Model = "clip-ViT-B-32"
		}
		if cfg.Embedder.Clip.TimeoutSecs == 0 {
			cfg.Embedder.Clip.TimeoutSecs = 30
		}
		if cfg.Embedder.Clip.ImageMaxSide == 0 {
			cfg.Embedder.Clip.ImageMaxSide = 512
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
	case "local":
		if cfg.Embedder.Local == nil {
			cfg.Embedder.Local = &LocalEmbedderConfig{}
		}
		if cfg.Embedder.Local.Dimension == 0 {
			cfg.Embedder.Local.Dimension = 512
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	switch cfg.VectorStore.Type {
	case "bolt":
		if cfg.VectorStore.Bolt == nil {
			cfg.VectorStore.Bolt = &BoltConfig{}
		}
		if cfg.VectorStore.Bolt.Path == "" {
			cfg.VectorStore.Bolt.Path = filepath.Join(DataDir(), "index.db")
		}
	case "sqlite":
		if cfg.VectorStore.SQLite == nil {
			cfg.VectorStore.SQLite = &SQLiteConfig{}
		}
		if cfg.VectorStore.SQLite.Path == "" {
			cfg.VectorStore.SQLite.Path = filepath.Join(DataDir(), "index.sqlite")
		}
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "file_embeddings"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}

	if cfg.Indexer.BatchSize <= 0 {
		cfg.Indexer.BatchSize = def.Indexer.BatchSize
	}
	if cfg.Indexer.Workers <= 0 {
		cfg.Indexer.Workers = max(1, runtime.NumCPU()-1)
	}
	if cfg.Indexer.TextMaxChars == 0 {
		cfg.Indexer.TextMaxChars = def.Indexer.TextMaxChars
	}
	if cfg.Indexer.ImageExtensions == nil {
		cfg.Indexer.ImageExtensions = def.Indexer.ImageExtensions
	}
	if cfg.Indexer.TextExtensions == nil {
		cfg.Indexer.TextExtensions = def.Indexer.TextExtensions
	}
	if cfg.Indexer.PDFExtensions == nil {
		cfg.Indexer.PDFExtensions = def.Indexer.PDFExtensions
	}
	if cfg.Indexer.WatchDebounceMs <= 0 {
		cfg.Indexer.WatchDebounceMs = def.Indexer.WatchDebounceMs
	}
	if cfg.Search.DefaultLimit <= 0 {
		cfg.Search.DefaultLimit = def.Search.DefaultLimit
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
