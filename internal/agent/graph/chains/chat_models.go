package chains

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Grader    model.GraderModelConfig
	Generator model.GeneratorModelConfig
}

// ChatModels holds the grading and generating chat models. The grader serves every
// yes/no and routing verdict; the generator writes answers and selects capabilities.
type ChatModels struct {
	Grader        einomodel.ToolCallingChatModel
	Generator     einomodel.ToolCallingChatModel
	GraderName    string
	GeneratorName string
}

// NewChatModels creates both Gemini chat models over one shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Verdicts are short JSON objects; thinking only adds latency there.
	grader, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Grader.Model,
		Temperature: &config.Grader.Temperature,
		MaxTokens:   &config.Grader.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating grader model")
		return nil, fmt.Errorf("error creating grader model: %w", err)
	}

	generator, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Generator.Model,
		Temperature: &config.Generator.Temperature,
		MaxTokens:   &config.Generator.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating generator model")
		return nil, fmt.Errorf("error creating generator model: %w", err)
	}

	return &ChatModels{
		Grader:        grader,
		Generator:     generator,
		GraderName:    config.Grader.Model,
		GeneratorName: config.Generator.Model,
	}, nil
}
