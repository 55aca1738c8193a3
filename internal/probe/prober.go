package probe

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"hdrgen/internal/logging"
	"hdrgen/internal/tactile"
)

// Mode selects how the tier is determined.
type Mode string

const (
	// ModeAuto uses the static table on Windows hosts, where the build is
	// driven by generated IDE projects, and active probing elsewhere.
	ModeAuto Mode = "auto"
	// ModeStatic never invokes a compiler.
	ModeStatic Mode = "static"
	// ModeActive always compiles the probe snippets.
	ModeActive Mode = "active"
)

// ParseMode parses a mode name; empty means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeStatic, ModeActive:
		return m, nil
	}
	return "", fmt.Errorf("unknown probe mode %q (valid: auto, static, active)", s)
}

// Source records how a Result was reached.
type Source string

const (
	SourceStatic   Source = "static"   // looked up from the toolchain version table
	SourceActive   Source = "active"   // a probe compiled, or every probe was rejected
	SourceFallback Source = "fallback" // the compiler could not be invoked
)

// DefaultStaticTiers maps a declared Visual Studio version to its tier.
// Versions missing from the table get DefaultStaticTier.
var DefaultStaticTiers = map[string]Tier{
	"2008": TierTR1,
}

// DefaultStaticTier is used for toolchain versions missing from the static table.
const DefaultStaticTier = TierSTD

// Attempt is one compiler invocation.
type Attempt struct {
	Tier     Tier
	Outcome  tactile.Outcome
	ExitCode int
	Duration time.Duration
}

// Usable reports whether the attempt proved the facility available.
func (a Attempt) Usable() bool {
	return a.Outcome == tactile.OutcomeExited && a.ExitCode == 0
}

// Result is the outcome of probing.
type Result struct {
	Tier     Tier
	Source   Source
	Attempts []Attempt
}

// Prober determines the capability tier of a toolchain.
type Prober struct {
	Executor tactile.Executor

	// Compiler is the C++ compiler driver (the CXX variable).
	Compiler string
	// Flags are extra arguments placed before the syntax-check flags.
	Flags []string
	// Order is the preference order; the first usable tier wins.
	Order []Tier
	// Timeout bounds each compiler invocation.
	Timeout time.Duration
	// Env is the compiler environment.
	Env []string
	// Dir is the working directory for the compiler.
	Dir string

	Mode Mode
	// GOOS is the host OS consulted by ModeAuto; empty means runtime.GOOS.
	GOOS string
	// ToolchainVersion is the declared IDE toolchain version (GYP_MSVS_VERSION).
	ToolchainVersion string
	// StaticTiers overrides DefaultStaticTiers when non-nil.
	StaticTiers map[string]Tier
	// StaticDefault overrides DefaultStaticTier when non-empty.
	StaticDefault Tier
}

// Probe returns the tier to emit. It never fails: when nothing can be
// established the result is TierNone.
func (p *Prober) Probe(ctx context.Context) Result {
	if p.useStatic() {
		res := p.static()
		logging.Probe("Selected %s from static table (toolchain version %q)", res.Tier, p.ToolchainVersion)
		return res
	}
	res := p.active(ctx)
	logging.Probe("Selected %s (%s, %d attempt(s))", res.Tier, res.Source, len(res.Attempts))
	return res
}

func (p *Prober) useStatic() bool {
	switch p.Mode {
	case ModeStatic:
		return true
	case ModeActive:
		return false
	}
	goos := p.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return goos == "windows"
}

func (p *Prober) static() Result {
	table := p.StaticTiers
	if table == nil {
		table = DefaultStaticTiers
	}
	tier, ok := table[p.ToolchainVersion]
	if !ok {
		tier = p.StaticDefault
		if tier == "" {
			tier = DefaultStaticTier
		}
	}
	return Result{Tier: tier, Source: SourceStatic}
}

func (p *Prober) active(ctx context.Context) Result {
	order := p.Order
	if len(order) == 0 {
		order = DefaultOrder
	}

	res := Result{Tier: TierNone, Source: SourceActive}
	for _, tier := range order {
		if ctx.Err() != nil {
			logging.ProbeWarn("Probing interrupted before %s: %v", tier, ctx.Err())
			res.Source = SourceFallback
			return res
		}

		attempt, unavailable := p.try(ctx, tier)
		res.Attempts = append(res.Attempts, attempt)

		if unavailable {
			logging.ProbeWarn("Compiler %q unavailable (%s); emitting no smart-pointer capability", p.Compiler, attempt.Outcome)
			res.Source = SourceFallback
			return res
		}
		if attempt.Usable() {
			res.Tier = tier
			return res
		}
		logging.ProbeDebug("%s rejected: outcome=%s exit=%d", tier, attempt.Outcome, attempt.ExitCode)
	}
	return res
}

// try compiles tier's snippet in syntax-check-only mode. unavailable is set
// when the compiler itself could not be run, which ends probing.
func (p *Prober) try(ctx context.Context, tier Tier) (attempt Attempt, unavailable bool) {
	attempt = Attempt{Tier: tier, ExitCode: -1}

	args := make([]string, 0, len(p.Flags)+4)
	args = append(args, p.Flags...)
	args = append(args, "-x", "c++", "-fsyntax-only", "-")

	cmd := tactile.Command{
		Binary:           p.Compiler,
		Arguments:        args,
		Stdin:            tier.source(),
		Timeout:          p.Timeout,
		Environment:      p.Env,
		WorkingDirectory: p.Dir,
	}

	logging.ProbeDebug("Probing %s with %s", tier, cmd.CommandString())
	result, err := p.Executor.Execute(ctx, cmd)
	if err != nil {
		attempt.Outcome = tactile.OutcomeFailed
		logging.ProbeWarn("Probe %s rejected by executor: %v", tier, err)
		return attempt, true
	}

	attempt.Outcome = result.Outcome
	attempt.ExitCode = result.ExitCode
	attempt.Duration = result.Duration

	if result.Killed() {
		logging.ProbeWarn("Probe %s killed (%s) after %s", tier, result.Outcome, result.Duration)
	}
	return attempt, result.Unavailable()
}
