// Package headers renders the capability and version headers from their
// templates.
package headers

import (
	"context"
	"fmt"

	"hdrgen/internal/logging"
	"hdrgen/internal/probe"
	"hdrgen/internal/subst"
	"hdrgen/internal/version"
)

// Version header tokens.
const (
	VersionToken = "@LINEAR_VERSION_ID@"
	CommitToken  = "@LINEAR_COMMIT_ID@"
)

// CapabilityProber selects the smart-pointer tier.
type CapabilityProber interface {
	Probe(ctx context.Context) probe.Result
}

// VersionResolver resolves the version of a working tree.
type VersionResolver interface {
	Resolve(ctx context.Context, metadataPath string) (version.Info, error)
}

// Defaults are the version header values used before resolution.
type Defaults struct {
	VersionID string
	CommitID  string
	// CommitFallback replaces CommitID when the revision lookup fails.
	CommitFallback string
}

// StandardDefaults returns the stock version header defaults.
func StandardDefaults() Defaults {
	return Defaults{
		VersionID:      "package-version",
		CommitID:       "-",
		CommitFallback: "",
	}
}

// Map returns the base mapping of the version header.
func (d Defaults) Map() subst.PlaceholderMap {
	return subst.MustPlaceholderMap(map[string]string{
		VersionToken: d.VersionID,
		CommitToken:  d.CommitID,
	})
}

// Generator renders headers.
type Generator struct {
	Prober   CapabilityProber
	Resolver VersionResolver
	Defaults Defaults
}

// NewGenerator returns a Generator using StandardDefaults.
func NewGenerator(p CapabilityProber, r VersionResolver) *Generator {
	return &Generator{Prober: p, Resolver: r, Defaults: StandardDefaults()}
}

// Plan names both fixed headers and the metadata they depend on.
type Plan struct {
	Memory       subst.Template
	Version      subst.Template
	MetadataPath string
}

// Generic renders t with a caller-supplied mapping.
func (g *Generator) Generic(ctx context.Context, t subst.Template, m subst.PlaceholderMap) error {
	timer := logging.StartTimer(logging.CategoryHeaders, "generic")
	defer timer.Stop()

	logging.HeadersDebug("Rendering %s -> %s with %d token(s)", t.InputPath, t.OutputPath, m.Len())
	if err := subst.ApplyFile(ctx, t, m); err != nil {
		return err
	}
	logging.Headers("Wrote %s", t.OutputPath)
	return nil
}

// Memory renders the capability header. Flags the prober does not define
// are emitted as #undef.
func (g *Generator) Memory(ctx context.Context, t subst.Template) (probe.Result, error) {
	timer := logging.StartTimer(logging.CategoryHeaders, "memory")
	defer timer.Stop()

	res := g.Prober.Probe(ctx)
	m := probe.Macros(probe.TierNone).Merge(probe.Macros(res.Tier))

	if err := subst.ApplyFile(ctx, t, m); err != nil {
		return res, err
	}
	logging.Headers("Wrote %s (tier=%s, source=%s)", t.OutputPath, res.Tier, res.Source)
	return res, nil
}

// Version renders the version header. A metadata failure aborts before the
// output is touched; a failed revision lookup uses the commit fallback.
func (g *Generator) Version(ctx context.Context, t subst.Template, metadataPath string) (version.Info, error) {
	timer := logging.StartTimer(logging.CategoryHeaders, "version")
	defer timer.Stop()

	info, err := g.Resolver.Resolve(ctx, metadataPath)
	if err != nil {
		return info, fmt.Errorf("resolve version from %s: %w", metadataPath, err)
	}

	commit := info.CommitID
	if !info.CommitKnown {
		commit = g.Defaults.CommitFallback
	}
	m := g.Defaults.Map().Merge(subst.MustPlaceholderMap(map[string]string{
		VersionToken: info.VersionID,
		CommitToken:  commit,
	}))

	if err := subst.ApplyFile(ctx, t, m); err != nil {
		return info, err
	}
	logging.Headers("Wrote %s (version=%s, commit=%q)", t.OutputPath, info.VersionID, commit)
	return info, nil
}

// All renders the capability header, then the version header. It stops at
// the first error.
func (g *Generator) All(ctx context.Context, p Plan) error {
	if _, err := g.Memory(ctx, p.Memory); err != nil {
		return fmt.Errorf("memory header: %w", err)
	}
	if _, err := g.Version(ctx, p.Version, p.MetadataPath); err != nil {
		return fmt.Errorf("version header: %w", err)
	}
	return nil
}
