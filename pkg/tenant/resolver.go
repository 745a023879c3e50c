// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

// Labels that never identify a tenant when they appear as the first host
// label.
var reservedLabels = map[string]struct{}{
	"www":      {},
	"app":      {},
	"admin":    {},
	"platform": {},
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// RequestContext carries the signals a tenant can be resolved from.
type RequestContext struct {
	Host    string
	Path    string
	Session *types.Session
}

// Resolver determines which tenant a request belongs to. Strategy
// precedence, first match wins: subdomain, then path, then the session's
// stored tenant id. A nil result with a nil error means the request is
// platform-scoped.
type Resolver struct {
	registry   RegistryInterface
	pathPrefix string

	// slugs caches registry lookups by slug. Slugs are immutable so the
	// cache has no expiry; a status change is not reflected until the
	// process restarts.
	slugs *gocache.Cache

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ResolverInterface = (*Resolver)(nil)

func NewResolver(
	registry RegistryInterface,
	pathPrefix string,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Resolver {
	return &Resolver{
		registry:   registry,
		pathPrefix: strings.TrimSuffix(pathPrefix, "/"),
		slugs:      gocache.New(gocache.NoExpiration, 0),
		tracer:     tracer,
		monitor:    monitor,
		logger:     logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, rc RequestContext) (*types.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "tenant.Resolver.Resolve")
	defer span.End()

	if slug, ok := r.subdomainSlug(rc.Host); ok {
		t, err := r.lookupSlug(ctx, slug)
		if err != nil || t != nil {
			return t, err
		}
	}

	if slug, ok := r.pathSlug(rc.Path); ok {
		t, err := r.lookupSlug(ctx, slug)
		if err != nil || t != nil {
			return t, err
		}
	}

	if rc.Session != nil && rc.Session.TenantID > 0 {
		t, err := r.registry.GetTenantByID(ctx, rc.Session.TenantID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tenant from session: %w", err)
		}
		return t, nil
	}

	return nil, nil
}

// subdomainSlug extracts a candidate slug from the first host label when
// the host has at least three dot-separated labels and the label is not
// reserved.
func (r *Resolver) subdomainSlug(host string) (string, bool) {
	// Strip any port before splitting.
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return "", false
	}

	slug := strings.ToLower(labels[0])
	if _, reserved := reservedLabels[slug]; reserved {
		return "", false
	}
	if !slugPattern.MatchString(slug) {
		return "", false
	}

	return slug, true
}

// pathSlug extracts a candidate slug from paths shaped like
// {prefix}/{slug}[/...].
func (r *Resolver) pathSlug(path string) (string, bool) {
	if r.pathPrefix == "" || !strings.HasPrefix(path, r.pathPrefix+"/") {
		return "", false
	}

	rest := strings.TrimPrefix(path, r.pathPrefix+"/")
	slug := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		slug = rest[:i]
	}

	slug = strings.ToLower(slug)
	if !slugPattern.MatchString(slug) {
		return "", false
	}

	return slug, true
}

func (r *Resolver) lookupSlug(ctx context.Context, slug string) (*types.Tenant, error) {
	if cached, ok := r.slugs.Get(slug); ok {
		return cached.(*types.Tenant), nil
	}

	t, err := r.registry.GetTenantBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up tenant slug %q: %w", slug, err)
	}

	r.slugs.Set(slug, t, gocache.NoExpiration)
	return t, nil
}
