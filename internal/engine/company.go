package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/sanitize"
)

// Sources of a company research cache hit, recorded in metadata extras.
const (
	cacheHitMemory = "memory"
	cacheHitStore  = "store"
)

// GenerateCompanyResearch researches the company named by the request or
// its job. Fresh research already held in memory or in the store is
// returned without a provider call unless the caller supplied instructions.
func (o *Orchestrator) GenerateCompanyResearch(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	req.Kind = model.KindCompanyResearch
	job, err := o.authorize(ctx, req)
	if err != nil {
		return nil, &StepError{Step: StepAuthorize, Err: err}
	}

	if strings.TrimSpace(req.Instructions) == "" {
		if content, source, ok := o.lookupCompany(ctx, companyName(req, job)); ok {
			meta := model.ArtifactMetadata{
				Provider: model.ProviderCache,
				Extras:   map[string]any{"cache_hit": source},
			}
			return o.finish(ctx, req, "Company Research - "+content.Name, "", content, meta), nil
		}
	}
	return o.runAuthorized(ctx, req, job)
}

// lookupCompany returns research that is still fresh, from memory first and
// then from the store. A store hit is copied into memory.
func (o *Orchestrator) lookupCompany(ctx context.Context, name string) (sanitize.CompanyContent, string, bool) {
	key := model.CompanyKey(name)
	if key == "" {
		return sanitize.CompanyContent{}, "", false
	}
	if o.cache != nil {
		if c, ok := o.cache.Get(key); ok {
			if o.now().Before(c.ExpiresAt) {
				return c.Content, cacheHitMemory, true
			}
			o.cache.Delete(key)
		}
	}
	if o.companies == nil {
		return sanitize.CompanyContent{}, "", false
	}

	company, err := o.companies.GetCompany(ctx, name)
	if err != nil {
		logLookup(name, err)
		return sanitize.CompanyContent{}, "", false
	}
	research, err := o.companies.GetCompanyResearch(ctx, name)
	if err != nil {
		logLookup(name, err)
		return sanitize.CompanyContent{}, "", false
	}
	if !research.Fresh(o.now()) {
		return sanitize.CompanyContent{}, "", false
	}

	content := sanitize.CompanyFromRecords(*company, research)
	o.remember(key, content, research.ExpiresAt)
	return content, cacheHitStore, true
}

func logLookup(name string, err error) {
	if errors.Is(err, model.ErrNotFound) {
		return
	}
	slog.Warn("company research lookup failed", "company", name, "error", err)
}

// saveCompany writes durable facts and volatile research through separate
// calls. Failures are logged; the generated artifact is still returned.
func (o *Orchestrator) saveCompany(ctx context.Context, c sanitize.CompanyContent) {
	now := o.now()
	research := c.Volatile(now, o.settings.ResearchTTL)
	if o.companies != nil {
		if err := o.companies.UpsertCompany(ctx, c.Durable(now)); err != nil {
			slog.Warn("failed to persist company facts", "company", c.Name, "error", err)
		}
		if err := o.companies.SaveCompanyResearch(ctx, research); err != nil {
			slog.Warn("failed to persist company research", "company", c.Name, "error", err)
		}
	}
	o.remember(model.CompanyKey(c.Name), c, research.ExpiresAt)
}

// remember caches content no longer than its volatile fields stay fresh.
func (o *Orchestrator) remember(key string, c sanitize.CompanyContent, expiresAt time.Time) {
	if o.cache == nil || key == "" {
		return
	}
	o.cache.SetUntil(key, CachedCompany{Content: c, ExpiresAt: expiresAt}, expiresAt)
}
