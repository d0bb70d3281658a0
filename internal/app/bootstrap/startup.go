// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("chathub starting",
		zap.String("env", coreCfg.Env),
		zap.Duration("typing_quiescence", appCfg.TypingQuiescence),
		zap.Int("ws_allowed_origins", len(appCfg.WSAllowedOrigins)))
	return nil
}
