package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kiranshivaraju/eveview/internal/credential"
	"github.com/kiranshivaraju/eveview/internal/query"
	"github.com/kiranshivaraju/eveview/internal/results"
	"github.com/kiranshivaraju/eveview/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

const (
	jsonFormat  = "json"
	yamlFormat  = "yaml"
	tableFormat = "table"

	dateLayout = "2006-01-02"
)

var legalOutputTypes = []string{tableFormat, jsonFormat, yamlFormat}

type ResultsOptions struct {
	GlobalOptions

	Status    string
	DateRange string
	From      string
	To        string
	FileType  string
	Search    string
	Page      int
	Limit     int
	Output    string
	Wait      time.Duration
	LoginURL  string

	state query.State
}

func DefaultResultsOptions() *ResultsOptions {
	return &ResultsOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Page:          query.DefaultPage,
		Limit:         query.DefaultLimit,
		Output:        tableFormat,
		Wait:          time.Minute,
		LoginURL:      "/login",
	}
}

func NewCmdResults() *cobra.Command {
	o := DefaultResultsOptions()
	cmd := &cobra.Command{
		Use:   "results [flags]",
		Short: "List analysis results, filtered and paginated.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ResultsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Status, "status", o.Status, "Only show records in this state (processing, completed).")
	fs.StringVar(&o.DateRange, "date-range", o.DateRange, "Only show records uploaded in YYYY-MM-DD:YYYY-MM-DD.")
	fs.StringVar(&o.From, "from", o.From, "Start day (YYYY-MM-DD); requires --to. Alternative to --date-range.")
	fs.StringVar(&o.To, "to", o.To, "End day (YYYY-MM-DD); requires --from.")
	fs.StringVar(&o.FileType, "file-type", o.FileType, "Only show this image type (png, jpg, jpeg).")
	fs.StringVar(&o.Search, "search", o.Search, "Free text search.")
	fs.IntVar(&o.Page, "page", o.Page, "Page number, starting at 1.")
	fs.IntVar(&o.Limit, "limit", o.Limit, "Records per page.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
	fs.DurationVar(&o.Wait, "wait", o.Wait, "How long to wait for the results service.")
	fs.StringVar(&o.LoginURL, "login-url", o.LoginURL, "Where to obtain a new token when the session expires.")
}

func (o *ResultsOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}

	dr, err := o.dateRange()
	if err != nil {
		return err
	}
	o.state = query.Default().WithFilters(query.Filters{
		Status:    query.Status(o.Status),
		DateRange: dr,
		FileType:  query.FileType(strings.ToLower(o.FileType)),
		Search:    o.Search,
	}).WithPage(o.Page, o.Limit)
	return nil
}

func (o *ResultsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if !slices.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	if o.Wait <= 0 {
		return fmt.Errorf("--wait must be positive")
	}
	return o.state.Validate()
}

func (o *ResultsOptions) dateRange() (query.DateRange, error) {
	switch {
	case o.DateRange != "" && (o.From != "" || o.To != ""):
		return query.DateRange{}, fmt.Errorf("--date-range cannot be combined with --from/--to")
	case o.DateRange != "":
		return query.ParseDateRange(o.DateRange)
	case o.From == "" && o.To == "":
		return query.DateRange{}, nil
	case o.From == "" || o.To == "":
		return query.DateRange{}, fmt.Errorf("--from and --to must be given together")
	}

	start, err := time.Parse(dateLayout, o.From)
	if err != nil {
		return query.DateRange{}, fmt.Errorf("--from: %w", err)
	}
	end, err := time.Parse(dateLayout, o.To)
	if err != nil {
		return query.DateRange{}, fmt.Errorf("--to: %w", err)
	}
	return query.NewDateRange(start, end)
}

func (o *ResultsOptions) Run(ctx context.Context, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, o.Wait)
	defer cancel()

	client, store := o.Client()
	ctrl := results.NewController(ctx, client, credential.NewExpiryHandler(store, o.LoginURL))
	defer ctrl.Close()

	if _, err := ctrl.SetQueryState(o.state); err != nil {
		return err
	}
	st, err := ctrl.Await(ctx)
	if err != nil {
		return fmt.Errorf("waiting for results: %w", err)
	}

	switch st.Phase {
	case results.PhaseFailed:
		if st.Err.Kind == results.KindUnauthorized {
			return fmt.Errorf("%s: %s", st.Err.Message, unauthorizedHint(o.LoginURL))
		}
		return fmt.Errorf("%s", st.Err.Message)
	case results.PhaseSuccess:
		return printResults(out, o.Output, st.State, *st.Page)
	default:
		return fmt.Errorf("request was cancelled")
	}
}

type resultsOutput struct {
	Items      []models.ResultRecord `json:"items"`
	TotalCount int                   `json:"total_count"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
}

func printResults(out io.Writer, format string, state query.State, page models.ResultPage) error {
	doc := resultsOutput{
		Items:      page.Items,
		TotalCount: page.TotalCount,
		Page:       state.Page,
		Limit:      state.Limit,
	}
	if doc.Items == nil {
		doc.Items = []models.ResultRecord{}
	}

	switch format {
	case jsonFormat:
		marshalled, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshalling results: %w", err)
		}
		fmt.Fprintf(out, "%s\n", string(marshalled))
		return nil
	case yamlFormat:
		marshalled, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshalling results: %w", err)
		}
		fmt.Fprintf(out, "%s", string(marshalled))
		return nil
	default:
		printResultsTable(out, doc)
		return nil
	}
}

func printResultsTable(out io.Writer, doc resultsOutput) {
	w := tabwriter.NewWriter(out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "FILE NAME\tTYPE\tSTATUS\tRESULT\tDESCRIPTION")
	for _, r := range doc.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.FileName, r.FileType, r.Status, r.Result, r.Description)
	}
	w.Flush()

	pages := 1
	if doc.Limit > 0 && doc.TotalCount > 0 {
		pages = (doc.TotalCount + doc.Limit - 1) / doc.Limit
	}
	fmt.Fprintf(out, "\nPage %d of %d (%d results)\n", doc.Page, pages, doc.TotalCount)
}
