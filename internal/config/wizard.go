package config

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// .copydesk.yml, and returns it.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to copydesk! Let's configure your editing desk.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"anthropic", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	preset := GetPreset(cfg.Provider)
	cfg.Model = preset.Model
	cfg.EmbeddingModel = preset.EmbeddingModel
	if cfg.Provider == ProviderOllama {
		cfg.EmbeddingProvider = ProviderOllama
	} else {
		cfg.EmbeddingProvider = ProviderOpenAI
	}

	stylePrompt := promptui.Select{
		Label: "Default style guide",
		Items: []string{"all (chicago, elements of style, house style)", "chicago-manual", "elements-of-style", "house-style"},
	}
	styleIdx, styleStr, err := stylePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("style guide selection: %w", err)
	}
	if styleIdx > 0 {
		cfg.StyleGuide = styleStr
	}

	corpusPrompt := promptui.Prompt{
		Label:   "Reference corpus directory",
		Default: cfg.CorpusDir,
	}
	corpusDir, err := corpusPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("corpus directory: %w", err)
	}
	cfg.CorpusDir = corpusDir

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: %s is not set. Set it before running an analysis.\n", envVar)
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}
