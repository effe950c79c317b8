// Package diagnose runs the full diagnostic pipeline over a set of MCP
// declaration sources: extraction, static validation, cross-source duplicate
// detection, optional capability probing, and the derived health summary.
package diagnose

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mcpdoctor/internal/logging"
	"mcpdoctor/internal/mcpconfig"
	"mcpdoctor/internal/probe"
	"mcpdoctor/internal/validation"

	"github.com/google/uuid"
)

// Options selects optional stages of a diagnostic run.
type Options struct {
	// Probe launches every valid stdio server and records its capability
	// surface. Off by default; it spawns processes.
	Probe bool
}

// Aggregator fans declaration sources through validation and probing and
// folds everything into one Report.
type Aggregator struct {
	prober *probe.Prober
	logger *logging.AppLogger
}

// New creates an Aggregator. The prober may be nil when probing is never
// requested.
func New(prober *probe.Prober, logger *logging.AppLogger) *Aggregator {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Aggregator{prober: prober, logger: logger}
}

// Run diagnoses every source and derives the report. Probes run strictly
// sequentially, in source order then declaration order, so at most one child
// process is alive at a time; total latency grows linearly with server count
// and that tradeoff is intentional.
func (a *Aggregator) Run(ctx context.Context, sources []mcpconfig.Source, opts Options) *Report {
	report := &Report{
		ID:                   uuid.NewString(),
		DuplicateServerNames: []DuplicateServerName{},
		Recommendations:      []string{},
		GeneratedAt:          time.Now(),
	}

	for _, src := range sources {
		a.logger.Debug("Validating source", "source", src.ID)
		report.ValidationResults = append(report.ValidationResults, validation.ValidateSource(src))
	}

	report.DuplicateServerNames = findDuplicates(report.ValidationResults)

	total, healthy := countServers(report.ValidationResults)
	report.TotalServerCount = total
	report.HealthyServerCount = healthy

	if opts.Probe && a.prober != nil {
		report.ProbeResults = a.probeAll(ctx, report.ValidationResults)
	}

	report.Recommendations = recommendations(report)
	return report
}

// probeAll probes every probeable server, one process in flight at a time.
// Servers with error-severity validation issues are skipped: launching a
// command that is known missing only burns the timeout.
func (a *Aggregator) probeAll(ctx context.Context, results []validation.Result) []ServerProbe {
	var probes []ServerProbe

	for _, result := range results {
		broken := serversWithErrors(result)
		for _, server := range result.Servers {
			if ctx.Err() != nil {
				a.logger.Warn("Probing stopped early", "reason", ctx.Err())
				return probes
			}
			if broken[server.Name] {
				a.logger.Debug("Skipping probe for invalid server", "server", server.Name, "source", server.SourceID)
				continue
			}
			if !probeable(server) {
				a.logger.Debug("Skipping probe for non-stdio server", "server", server.Name, "type", server.Type)
				continue
			}

			a.logger.Info("Probing server", "server", server.Name, "source", server.SourceID)
			probes = append(probes, ServerProbe{
				Server: server,
				Result: a.prober.Probe(ctx, server),
			})
		}
	}

	return probes
}

// probeable reports whether the entry speaks stdio; only stdio servers can
// be spawned and probed over pipes.
func probeable(server mcpconfig.ServerEntry) bool {
	return server.Type == "" || server.Type == "stdio"
}

// findDuplicates groups all extracted servers by name; a name declared in
// more than one distinct source is a duplicate. Locations keep encounter
// order; the duplicate list is sorted by name for stable output.
func findDuplicates(results []validation.Result) []DuplicateServerName {
	locations := make(map[string][]string)
	for _, result := range results {
		for _, server := range result.Servers {
			locations[server.Name] = append(locations[server.Name], server.SourceID)
		}
	}

	duplicates := []DuplicateServerName{}
	for name, locs := range locations {
		if len(distinct(locs)) > 1 {
			duplicates = append(duplicates, DuplicateServerName{Name: name, SourceLocations: locs})
		}
	}
	sort.Slice(duplicates, func(i, j int) bool { return duplicates[i].Name < duplicates[j].Name })
	return duplicates
}

// countServers derives the totals: a server is healthy unless an
// error-severity issue in its source names it. Source-level issues carry no
// server name and do not subtract from the healthy count.
func countServers(results []validation.Result) (total, healthy int) {
	for _, result := range results {
		broken := serversWithErrors(result)
		total += len(result.Servers)
		for _, server := range result.Servers {
			if !broken[server.Name] {
				healthy++
			}
		}
	}
	return total, healthy
}

func serversWithErrors(result validation.Result) map[string]bool {
	broken := make(map[string]bool)
	for _, issue := range result.Issues {
		if issue.Severity == validation.SeverityError && issue.ServerName != "" {
			broken[issue.ServerName] = true
		}
	}
	return broken
}

func recommendations(report *Report) []string {
	recs := []string{}

	if report.TotalServerCount == 0 {
		recs = append(recs, "No MCP servers are configured; add an mcpServers section to a declaration file to get started.")
		return recs
	}

	if broken := report.TotalServerCount - report.HealthyServerCount; broken > 0 {
		recs = append(recs, fmt.Sprintf("%d server(s) have configuration errors; fix the error-severity issues above.", broken))
	}

	if len(report.DuplicateServerNames) > 0 {
		recs = append(recs, fmt.Sprintf("%d server name(s) are declared in multiple sources; rename or remove the extra declarations to avoid ambiguity.", len(report.DuplicateServerNames)))
	}

	if failed := failedProbeCount(report.ProbeResults); failed > 0 {
		recs = append(recs, fmt.Sprintf("%d of %d probed server(s) did not complete the discovery handshake; check their stderr output in the report.", failed, len(report.ProbeResults)))
	}

	return recs
}

func failedProbeCount(probes []ServerProbe) int {
	failed := 0
	for _, p := range probes {
		if p.Result.Error != "" {
			failed++
		}
	}
	return failed
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
