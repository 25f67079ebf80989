package configs

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config is the explicit construction-time configuration. Nothing in the
// adapters reads the process environment directly; env values enter only
// through ${VAR} expansion in the yaml file.
type Config struct {
	VectorStore   VectorStoreConfig `yaml:"vector_store"`
	Model         ModelConfig       `yaml:"model"`
	HistoryDBPath string            `yaml:"history_db_path"`
}

type VectorStoreConfig struct {
	Provider   string `yaml:"provider" validate:"required,oneof=opensearch qdrant"`
	Host       string `yaml:"host" validate:"required"`
	Port       int    `yaml:"port"`
	Index      string `yaml:"index" validate:"required"`
	Dimensions int    `yaml:"dimensions" validate:"required,gt=0"`
	Metric     string `yaml:"metric" validate:"omitempty,oneof=cosine l2 dot_product"`

	UseIAM    bool   `yaml:"use_iam"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	SecretARN string `yaml:"secret_arn"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type ModelConfig struct {
	Provider       string `yaml:"provider" validate:"required,oneof=bedrock openai"`
	BaseURL        string `yaml:"base_url"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.VectorStore.validateAuth(); err != nil {
		return err
	}
	if c.Model.Provider == "openai" && c.Model.BaseURL == "" {
		return fmt.Errorf("model: base_url is required for the openai provider")
	}
	if c.Model.Provider == "bedrock" && c.Model.Region == "" {
		return fmt.Errorf("model: region is required for the bedrock provider")
	}
	return nil
}

func (v VectorStoreConfig) validateAuth() error {
	if v.Provider != "opensearch" {
		return nil
	}
	if v.UseIAM || v.SecretARN != "" {
		if v.Region == "" {
			return fmt.Errorf("vector_store: region is required for IAM or secret-store auth")
		}
		return nil
	}
	if v.Username == "" || v.Password == "" {
		return fmt.Errorf("vector_store: username and password are required when not using IAM auth")
	}
	return nil
}
