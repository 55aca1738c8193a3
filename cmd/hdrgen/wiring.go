package main

import (
	"fmt"

	"hdrgen/internal/build"
	"hdrgen/internal/config"
	"hdrgen/internal/headers"
	"hdrgen/internal/probe"
	"hdrgen/internal/tactile"
	"hdrgen/internal/version"
)

// newProber builds the capability prober described by cfg.
func newProber(cfg *config.Config, exec tactile.Executor) (*probe.Prober, error) {
	mode, err := probe.ParseMode(cfg.Probe.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: probe.mode: %w", config.ErrInvalid, err)
	}
	order, err := probe.ParseOrder(cfg.Probe.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: probe.order: %w", config.ErrInvalid, err)
	}

	static := make(map[string]probe.Tier, len(cfg.Probe.StaticTiers))
	for toolchain, name := range cfg.Probe.StaticTiers {
		tier, err := probe.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("%w: probe.static_tiers[%s]: %w", config.ErrInvalid, toolchain, err)
		}
		static[toolchain] = tier
	}
	staticDefault, err := probe.ParseTier(cfg.Probe.StaticDefault)
	if err != nil {
		return nil, fmt.Errorf("%w: probe.static_default: %w", config.ErrInvalid, err)
	}

	compiler, flags := cfg.Probe.CompilerCommand()
	return &probe.Prober{
		Executor:         exec,
		Compiler:         compiler,
		Flags:            flags,
		Order:            order,
		Timeout:          cfg.GetProbeTimeout(),
		Env:              build.CompilerEnv(),
		Mode:             mode,
		ToolchainVersion: cfg.Probe.ToolchainVersion,
		StaticTiers:      static,
		StaticDefault:    staticDefault,
	}, nil
}

// newResolver builds the version resolver described by cfg.
func newResolver(cfg *config.Config, exec tactile.Executor) *version.Resolver {
	return &version.Resolver{
		Executor: exec,
		Command:  cfg.Version.CommitCommand,
		Timeout:  cfg.GetVersionTimeout(),
		Env:      build.HistoryEnv(),
	}
}

// newGenerator wires the header generator to a direct process executor.
func newGenerator(cfg *config.Config) (*headers.Generator, error) {
	exec := tactile.NewDirectExecutor()

	prober, err := newProber(cfg, exec)
	if err != nil {
		return nil, err
	}
	g := headers.NewGenerator(prober, newResolver(cfg, exec))
	g.Defaults = headers.Defaults{
		VersionID:      cfg.Version.DefaultVersionID,
		CommitID:       cfg.Version.DefaultCommitID,
		CommitFallback: cfg.Version.CommitFallback,
	}
	return g, nil
}
