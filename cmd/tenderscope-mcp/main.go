package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/tenderscope/models"
	"github.com/use-agent/tenderscope/report"
)

func main() {
	apiURL := os.Getenv("TENDERSCOPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("TENDERSCOPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "TENDERSCOPE_API_KEY is required")
		os.Exit(1)
	}

	c := newClient(apiURL, apiKey)

	s := server.NewMCPServer(
		"tenderscope",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_tenders",
		mcp.WithDescription("Search the GeBIZ portal for tenders matching keywords and return each tender's agency, status, respondents and awardees. Tenders already collected by earlier runs are skipped unless full is set. A run can take several minutes."),
		mcp.WithArray("keywords",
			mcp.Required(),
			mcp.Description("Search keywords, e.g. [\"Facilities Management\", \"IFM\"]"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("classify",
			mcp.Description("Score each tender's relevance to the keywords"),
		),
		mcp.WithBoolean("full",
			mcp.Description("Revisit tenders collected by earlier runs"),
		),
	)
	s.AddTool(scrapeTool, handleScrapeTenders(c))

	listTool := mcp.NewTool("list_tenders",
		mcp.WithDescription("List every stored tender, ordered by award status then title."),
		mcp.WithString("status",
			mcp.Description("Only return tenders with this award status"),
			mcp.Enum(string(models.StatusOpen), string(models.StatusAwarded), string(models.StatusPendingAward), string(models.StatusNoAward)),
		),
	)
	s.AddTool(listTool, handleListTenders(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// client talks to the tenderscope API.
type client struct {
	http *resty.Client
	poll time.Duration
}

func newClient(apiURL, apiKey string) *client {
	return &client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(apiURL, "/")).
			SetAuthToken(apiKey).
			SetTimeout(30 * time.Second),
		poll: 2 * time.Second,
	}
}

// apiError renders an error body or a bare status.
func apiError(resp *resty.Response) error {
	if e, ok := resp.Error().(*models.ErrorResponse); ok && e.Error != nil {
		return fmt.Errorf("[%s] %s", e.Error.Code, e.Error.Message)
	}
	return fmt.Errorf("API returned status %d", resp.StatusCode())
}

func (c *client) generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateStatusResponse, error) {
	var created models.GenerateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&created).
		SetError(&models.ErrorResponse{}).
		Post("/api/v1/generate")
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("generate job creation failed")
	}
	return c.waitJob(ctx, created.ID)
}

// waitJob polls a generate job until it leaves the processing state or ctx ends.
func (c *client) waitJob(ctx context.Context, id string) (*models.GenerateStatusResponse, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var status models.GenerateStatusResponse
			resp, err := c.http.R().
				SetContext(ctx).
				SetResult(&status).
				SetError(&models.ErrorResponse{}).
				SetPathParam("id", id).
				Get("/api/v1/generate/{id}")
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}
			if resp.IsError() {
				return nil, apiError(resp)
			}
			if status.Status != models.JobProcessing {
				return &status, nil
			}
		}
	}
}

func (c *client) tenders(ctx context.Context) (*models.TendersResponse, error) {
	var out models.TendersResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Get("/api/v1/tenders")
	if err != nil {
		return nil, fmt.Errorf("tenders request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &out, nil
}

func handleScrapeTenders(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keywords, err := request.RequireStringSlice("keywords")
		if err != nil || len(keywords) == 0 {
			return mcp.NewToolResultError("keywords is required and must be a non-empty array of strings"), nil
		}

		status, err := c.generate(ctx, models.GenerateRequest{
			Keywords: keywords,
			Classify: request.GetBool("classify", false),
			Full:     request.GetBool("full", false),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status.Status == models.JobFailed {
			msg := "generate failed"
			if status.Error != nil {
				msg = fmt.Sprintf("[%s] %s", status.Error.Code, status.Error.Message)
			}
			return mcp.NewToolResultError(msg), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Run %s: %s\n", status.ID, status.Message)
		for _, k := range status.Keywords {
			fmt.Fprintf(&sb, "  %s: %d records, %d pages, %d skipped", k.Keyword, k.Records, k.Pages, k.Skipped)
			if k.Error != "" {
				fmt.Fprintf(&sb, " (error: %s)", k.Error)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(formatTenders(status.Results))
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleListTenders(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := c.tenders(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		records := resp.Results
		if want := request.GetString("status", ""); want != "" {
			records = filterStatus(records, models.AwardStatus(want))
		}
		return mcp.NewToolResultText(formatTenders(records)), nil
	}
}

func filterStatus(records []models.TenderRecord, status models.AwardStatus) []models.TenderRecord {
	out := make([]models.TenderRecord, 0, len(records))
	for _, r := range records {
		if r.AwardStatus == status {
			out = append(out, r)
		}
	}
	return out
}

// formatTenders renders records as plain text blocks for the model.
func formatTenders(records []models.TenderRecord) string {
	if len(records) == 0 {
		return "No tenders found.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tenders:\n\n", len(records))
	for i, r := range records {
		fmt.Fprintf(&sb, "--- [%d] %s ---\n", i+1, r.Title)
		fmt.Fprintf(&sb, "Status: %s (%s tab)\n", r.AwardStatus, r.Tab)
		fmt.Fprintf(&sb, "Agency: %s\n", r.Agency)
		fmt.Fprintf(&sb, "%s: %s\n", identifierLabel(r.Identifier.Kind), r.Identifier.Value)
		fmt.Fprintf(&sb, "Reference: %s\n", r.ReferenceNumber)
		fmt.Fprintf(&sb, "Respondents: %s\n", report.FormatRespondents(r.Respondents))
		fmt.Fprintf(&sb, "Awardees: %s\n", strings.Join(r.Awardees, "; "))
		if r.Relevance != nil {
			fmt.Fprintf(&sb, "Relevant: %t (%.2f)\n", r.Relevance.Relevant, r.Relevance.Confidence)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func identifierLabel(k models.IdentifierKind) string {
	if k == models.QuotationNumber {
		return "Quotation No."
	}
	return "Tender No."
}
