package logging

import (
	"context"
	"log/slog"

	"github.com/aretw0/launchpad/pkg/domain"
)

// Hooks logs the run lifecycle at info level.
func Hooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnScriptEnter: func(ctx context.Context, e *domain.ScriptEvent) {
			logger.InfoContext(ctx, "script_enter", "run", e.RunID, "script", e.Ref, "depth", e.Depth, "daemon", e.Daemon)
		},
		OnScriptLeave: func(ctx context.Context, e *domain.ScriptEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "script_leave", "run", e.RunID, "script", e.Ref, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "script_leave", "run", e.RunID, "script", e.Ref)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step",
				"run", e.RunID,
				"script", e.Ref,
				"index", e.Index,
				"method", e.Method,
				"duration", e.Duration,
				"failed", e.Err != nil,
			)
		},
		OnSessionSpawn: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_spawn", "run", e.RunID, "session", e.SessionID, "pid", e.PID)
		},
		OnSessionExit: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_exit", "run", e.RunID, "session", e.SessionID, "code", e.ExitCode)
		},
		OnTrigger: func(ctx context.Context, e *domain.TriggerEvent) {
			logger.InfoContext(ctx, "trigger", "run", e.RunID, "session", e.SessionID, "pattern", e.Pattern, "mode", e.Mode, "exited", e.Exited)
		},
	}
}
