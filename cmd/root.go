package cmd

import (
	"os"

	"spendsense/config"
	"spendsense/logger"
	"spendsense/repository"
	"spendsense/service"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:          "spendsense",
	Short:        "Purchase risk evaluation",
	Long:         "Evaluate a planned purchase against monthly income, expenses and savings goals.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override logging.level")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	return cfg, nil
}

// buildServices wires the explanation and decision services. offline forces
// the fallback explainer regardless of configuration.
func buildServices(cfg *config.Config, log logger.Logger, offline bool) (*service.DecisionService, *service.ExplanationService) {
	var remote service.ExplanationProvider
	if cfg.Explanation.Enabled() && !offline {
		remote = service.NewAIService(service.AIConfig{
			APIKey:     cfg.Explanation.APIKey,
			APIURL:     cfg.Explanation.BaseURL,
			Model:      cfg.Explanation.Model,
			Timeout:    config.GetDuration(cfg.Explanation.Timeout),
			MaxRetries: cfg.Explanation.MaxRetries,
			MaxTokens:  cfg.Explanation.MaxTokens,
		})
	} else {
		log.Info("remote explanation disabled, using fallback mode", nil)
	}

	explanations := service.NewExplanationService(remote, log)
	decisions := service.NewDecisionService(explanations, log)
	return decisions, explanations
}

func buildSessionRepository(cfg *config.Config) repository.SessionRepository {
	ttl := config.GetDuration(cfg.Session.TTL)
	if cfg.Session.Store == "redis" {
		return repository.NewRedisSessionRepository(repository.RedisOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      ttl,
		})
	}
	return repository.NewSessionRepositoryMemory(ttl)
}
