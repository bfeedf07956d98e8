package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/command"
	"github.com/goliatone/go-star/competency"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/query"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var stdout io.Writer = os.Stdout

func cmdMigrate(_ context.Context, app *App, _ []string) error {
	fmt.Fprintf(stdout, "schema ready (%s)\n", app.Config().Persistence.GetDriver())
	return nil
}

func cmdSeed(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	file := fs.String("file", "", "YAML catalogue; the embedded catalogue when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var entries []competency.CatalogueEntry
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		if entries, err = competency.ParseCatalogue(raw); err != nil {
			return err
		}
	}
	added := 0
	if err := app.service.Commands().SeedCompetencies.Execute(ctx, command.SeedCompetenciesInput{
		Entries: entries,
		Result:  &added,
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "added %d competencies\n", added)
	return nil
}

func cmdUsers(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("users", flag.ContinueOnError)
	toggle := fs.Int64("toggle-admin", 0, "flip the admin flag of this user")
	activate := fs.Int64("activate", 0, "reactivate this user")
	deactivate := fs.Int64("deactivate", 0, "deactivate this user")
	actor := fs.Int64("actor", 0, "admin performing the change, recorded in the audit log")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cmds := app.service.Commands()
	if *toggle > 0 {
		if err := cmds.UserToggleAdmin.Execute(ctx, command.UserToggleAdminInput{UserID: *toggle, ActorID: *actor}); err != nil {
			return err
		}
	}
	for id, active := range map[int64]bool{*activate: true, *deactivate: false} {
		if id <= 0 {
			continue
		}
		if err := cmds.UserSetActive.Execute(ctx, command.UserSetActiveInput{UserID: id, ActorID: *actor, Active: active}); err != nil {
			return err
		}
	}

	users, err := app.service.Queries().Users.Query(ctx, query.UserListInput{})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tADMIN\tACTIVE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\t%s\n", u.ID, u.DisplayName, u.Email, u.IsAdmin, u.IsActive, u.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}

func cmdAudit(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	user := fs.Int64("user", 0, "only entries for this user")
	action := fs.String("action", "", "only entries with this action")
	limit := fs.Int("limit", 0, "maximum entries")
	summary := fs.Bool("summary", false, "print counts per action instead of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	queries := app.service.Queries()
	if *summary {
		counts, err := queries.AuditSummary.Query(ctx, query.AuditSummaryInput{UserID: *user, Action: *action})
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, print.MaybeHighlightJSON(counts))
		return nil
	}
	records, err := queries.AuditLog.Query(ctx, query.AuditLogInput{UserID: *user, Action: *action, Limit: *limit})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tUSER\tACTION\tENTITY\tDETAILS")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s:%d\t%s\n",
			rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.UserID, rec.Action, rec.EntityType, rec.EntityID, rec.Details)
	}
	return w.Flush()
}

func cmdEvaluate(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	user := fs.Int64("user", 0, "story owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	storyID, err := positionalID(fs, "story-id")
	if err != nil {
		return err
	}
	result := &ai.EvaluationResult{}
	if err := app.service.Commands().EvaluateStory.Execute(ctx, command.EvaluateStoryInput{
		UserID:  *user,
		StoryID: storyID,
		Result:  result,
	}); err != nil {
		return err
	}
	return report(result, result.Failed(), result.Error)
}

func cmdGenerate(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	user := fs.Int64("user", 0, "requesting user")
	experience := fs.String("experience", "", "raw experience notes; read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	competencyID, err := positionalID(fs, "competency-id")
	if err != nil {
		return err
	}
	notes := strings.TrimSpace(*experience)
	if notes == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		notes = strings.TrimSpace(string(raw))
	}
	result := &ai.GenerateResult{}
	if err := app.service.Commands().GenerateStory.Execute(ctx, command.GenerateStoryInput{
		UserID:       *user,
		CompetencyID: competencyID,
		Experience:   notes,
		Result:       result,
	}); err != nil {
		return err
	}
	return report(result, result.Failed(), result.Error)
}

func cmdGapAnalysis(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("gap-analysis", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	userID, err := positionalID(fs, "user-id")
	if err != nil {
		return err
	}
	coverage, err := app.service.Queries().Coverage.Query(ctx, query.CoverageInput{UserID: userID})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "coverage: %d/%d competencies (%d%%)\n", coverage.Covered, coverage.Total, coverage.Percentage)

	result := &ai.GapAnalysisResult{}
	if err := app.service.Commands().GapAnalysis.Execute(ctx, command.GapAnalysisInput{
		UserID: userID,
		Result: result,
	}); err != nil {
		return err
	}
	return report(result, result.Failed(), result.Error)
}

func cmdServeMetrics(ctx context.Context, app *App, args []string) error {
	cfg := app.Config().Metrics
	fs := flag.NewFlagSet("serve-metrics", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Address, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := app.service.HealthCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok\n")
	})
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		app.GetLogger("metrics").Info("serving metrics", "addr", *addr, "path", path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func positionalID(fs *flag.FlagSet, name string) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%w: expected <%s>", errUsage, name)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errUsage, name)
	}
	return id, nil
}

// report prints an AI result. Degraded results are printed too, then
// surfaced as an external service error so the exit status reflects them.
func report(result any, failed bool, message string) error {
	fmt.Fprintln(stdout, print.MaybeHighlightJSON(result))
	if failed {
		return fmt.Errorf("%w: %s", types.ErrExternalService, message)
	}
	return nil
}
