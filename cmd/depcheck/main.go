package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/extract"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/query"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/session"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/tui"
)

// errAuthRequired makes the process exit non-zero after the notice has
// been printed.
var errAuthRequired = errors.New("authentication required")

type resolveOptions struct {
	exportPath   string
	exportFormat string
	search       string
	group        string
	report       bool
	store        bool
	upload       string
	browse       bool
}

type tokenOptions struct {
	username   string
	password   string
	mode       string
	expiration time.Duration
	show       bool
}

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          "depcheck",
		Short:        "Map the dependencies of a hosted GIS content item",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&opts.portal, "portal", "", "Portal base URL (overrides config and input)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of tables")

	var ro resolveOptions
	resolveCmd := &cobra.Command{
		Use:   "resolve <item-id-or-url>",
		Short: "Resolve the dependency graph of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), opts, args[0], ro)
		},
	}
	resolveCmd.Flags().StringVar(&ro.exportPath, "export", "", "Write the graph to this file")
	resolveCmd.Flags().StringVar(&ro.exportFormat, "format", "", "Export format: json, csv, yaml, dot, mermaid (default from extension)")
	resolveCmd.Flags().StringVar(&ro.search, "query", "", "Filter the companion list, e.g. 'owner:gis type:feature parcels'")
	resolveCmd.Flags().StringVar(&ro.group, "group", "", "Restrict the companion list to one type group")
	resolveCmd.Flags().BoolVar(&ro.report, "report", false, "Print the run report")
	resolveCmd.Flags().BoolVar(&ro.store, "store", false, "Write the graph to Neo4j")
	resolveCmd.Flags().StringVar(&ro.upload, "upload", "", "Upload the graph in this format to object storage")
	resolveCmd.Flags().BoolVar(&ro.browse, "browse", false, "Browse the graph interactively after resolving")

	inspectCmd := &cobra.Command{
		Use:   "inspect <item-id-or-url>",
		Short: "Show one item's kind and direct dependencies without crawling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), opts, args[0])
		},
	}

	var typeKeywords []string
	classifyCmd := &cobra.Command{
		Use:   "classify <item-type>",
		Short: "Print the kind and type group of an item type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(opts, args[0], typeKeywords)
		},
	}
	classifyCmd.Flags().StringSliceVar(&typeKeywords, "keywords", nil, "Type keywords of the item")

	var to tokenOptions
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Request a portal token with username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd.Context(), opts, to)
		},
	}
	tokenCmd.Flags().StringVar(&to.username, "username", "", "Portal username (default from config)")
	tokenCmd.Flags().StringVar(&to.password, "password", "", "Portal password (default from config or secrets)")
	tokenCmd.Flags().StringVar(&to.mode, "mode", "", "Client binding: referer or requestip")
	tokenCmd.Flags().DurationVar(&to.expiration, "expiration", 0, "Requested lifetime (default from config)")
	tokenCmd.Flags().BoolVar(&to.show, "show", false, "Print the token itself")

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	var wait time.Duration
	submitCmd := &cobra.Command{
		Use:   "submit <item-id-or-url>",
		Short: "Run the resolution as a Temporal workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), opts, args[0], wait)
		},
	}
	submitCmd.Flags().DurationVar(&wait, "timeout", 15*time.Minute, "How long to wait for the result")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("depcheck", version)
		},
	}

	rootCmd.AddCommand(resolveCmd, inspectCmd, classifyCmd, tokenCmd, serveCmd, submitCmd, versionCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runResolve(ctx context.Context, opts *globalOptions, input string, ro resolveOptions) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	// Parse output options before spending any catalog requests.
	var (
		exportFormat depgraph.Format
		uploadFormat depgraph.Format
		filter       = query.Filter{Query: ro.search}
	)
	if ro.exportPath != "" {
		name := ro.exportFormat
		if name == "" {
			name = strings.TrimPrefix(filepath.Ext(ro.exportPath), ".")
		}
		if exportFormat, err = depgraph.ParseFormat(name); err != nil {
			return err
		}
	}
	if ro.upload != "" {
		if uploadFormat, err = depgraph.ParseFormat(ro.upload); err != nil {
			return err
		}
	}
	if ro.group != "" {
		grp, ok := depgraph.ParseGroup(ro.group)
		if !ok {
			return fmt.Errorf("unknown group %q", ro.group)
		}
		filter.Group = grp
	}

	tok, err := a.checker.ConfiguredToken(ctx, a.cfg.Portal.URL)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	run, err := a.checker.Resolve(ctx, input, a.cfg.Portal.URL, tok)
	if err != nil {
		if ae, ok := resolver.AsAuthError(err); ok {
			fmt.Fprint(os.Stderr, a.render.Notice(ae.Notice()))
			return errAuthRequired
		}
		return err
	}
	g := run.Graph

	switch {
	case ro.browse:
		sess := session.New(g.Portal)
		if err := sess.Begin(); err != nil {
			return err
		}
		sess.Finish(run)
		sess.SetFilter(filter)
		if err := tui.RunBrowse(sess); err != nil {
			return err
		}
	case a.json:
		if err := writeJSON(a, run); err != nil {
			return err
		}
	default:
		fmt.Fprint(a.out, a.render.Graph(g))
		if filter.Active() {
			fmt.Fprint(a.out, a.render.Search(g, query.Evaluate(g, filter)))
		}
	}
	if ro.report && run.Metrics != nil {
		run.Metrics.PrintSummary(os.Stderr)
	}

	if ro.exportPath != "" {
		data, err := depgraph.Export(g, exportFormat)
		if err != nil {
			return err
		}
		if err := os.WriteFile(ro.exportPath, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		a.audit.LogExport(ctx, g.Root.ID, string(exportFormat), ro.exportPath, len(data))
		a.logger.Info("graph exported", zap.String("path", ro.exportPath), zap.String("format", string(exportFormat)))
	}

	if ro.store {
		gs, err := a.graphStore(ctx)
		if err != nil {
			return err
		}
		defer gs.Close(context.Background())
		res, err := gs.StoreGraph(ctx, g)
		if err != nil {
			return fmt.Errorf("store graph: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Stored %d items, %d services, %d relationships in Neo4j\n", res.Items, res.URLs, res.Edges)
	}

	if ro.upload != "" {
		up, _, err := a.uploader()
		if err != nil {
			return err
		}
		obj, err := up.Upload(ctx, g, uploadFormat)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Uploaded s3://%s/%s (%d bytes)\n", obj.Bucket, obj.Key, obj.Size)
		if obj.URL != "" {
			fmt.Fprintln(os.Stderr, obj.URL)
		}
	}
	return nil
}

func runInspect(ctx context.Context, opts *globalOptions, input string) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	tok, err := a.checker.ConfiguredToken(ctx, a.cfg.Portal.URL)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	ins, err := a.checker.Inspect(ctx, input, a.cfg.Portal.URL, tok)
	if err != nil {
		if errors.Is(err, catalog.ErrAuthRequired) {
			fmt.Fprint(os.Stderr, a.render.Notice("This item requires a token. Run `depcheck token` or set portal.token."))
			return errAuthRequired
		}
		return err
	}
	if a.json {
		return writeJSON(a, ins)
	}
	fmt.Fprint(a.out, a.render.Extraction(ins.Item, ins.ItemKind(), ins.Result))
	return nil
}

func runClassify(opts *globalOptions, itemType string, keywords []string) error {
	kind := extract.Classify(itemType, keywords)
	group := depgraph.GroupOf(itemType)
	if opts.jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"type":  itemType,
			"kind":  kind.String(),
			"group": string(group),
			"color": group.Color(),
		})
	}
	fmt.Printf("kind:  %s\ngroup: %s\n", kind, group)
	return nil
}

func runToken(ctx context.Context, opts *globalOptions, to tokenOptions) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	req := catalog.TokenRequest{
		Username:   firstNonEmpty(to.username, a.cfg.Portal.Username),
		Password:   firstNonEmpty(to.password, a.cfg.Portal.Password),
		Referer:    a.cfg.Portal.Referer,
		Expiration: to.expiration,
	}
	if req.Username == "" || req.Password == "" {
		return errors.New("username and password are required (flags, config or secrets)")
	}
	if req.Mode, err = catalog.ParseTokenMode(firstNonEmpty(to.mode, a.cfg.Portal.TokenMode)); err != nil {
		return err
	}

	tok, err := a.checker.RequestToken(ctx, a.cfg.Portal.URL, req)
	if err != nil {
		return err
	}
	if a.json {
		out := map[string]any{"expiresAt": tok.ExpiresAt}
		if to.show {
			out["token"] = tok.Value
		}
		return writeJSON(a, out)
	}
	fmt.Fprintf(a.out, "Token issued, expires %s\n", tok.ExpiresAt.Local().Format(time.RFC1123))
	if to.show {
		fmt.Fprintln(a.out, tok.Value)
	}
	return nil
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
