package jira

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// PriorityCache holds the tracker's priority list, loaded once at startup.
// When loading fails the cache stays empty and severity mapping returns no id,
// so tickets are created with the tracker's default priority instead of
// failing.
type PriorityCache struct {
	mu         sync.RWMutex
	priorities []Priority
}

// Load fetches the priority list. Safe to call again to refresh.
func (p *PriorityCache) Load(ctx context.Context, client *Client, logger *zap.Logger) error {
	priorities, err := client.Priorities(ctx)
	if err != nil {
		logger.Warn("priority list unavailable, tickets will use the tracker default",
			zap.Error(err))
		return err
	}

	p.mu.Lock()
	p.priorities = priorities
	p.mu.Unlock()

	logger.Info("tracker priorities loaded", zap.Int("count", len(priorities)))
	return nil
}

// MapSeverity resolves a severity label ("high", "medium", "low") to a
// priority id. An exact name match wins; otherwise high maps to the highest
// available priority and low to the lowest. Empty return means unmapped.
func (p *PriorityCache) MapSeverity(severity string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.priorities) == 0 {
		return ""
	}

	severity = strings.ToLower(strings.TrimSpace(severity))
	for _, pr := range p.priorities {
		if strings.ToLower(pr.Name) == severity {
			return pr.ID
		}
	}

	switch severity {
	case "high":
		return p.priorities[0].ID
	case "low":
		return p.priorities[len(p.priorities)-1].ID
	case "medium":
		return p.priorities[len(p.priorities)/2].ID
	}
	return ""
}
