package reportclient

// ChartPoint is one labeled slice or bar of a chart.
type ChartPoint struct {
	Label      string   `json:"label"`
	Value      float64  `json:"value"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// PieChartRequest describes a category-share pie chart. Zero values for
// Title, DPI, Width and Height are replaced with the renderer defaults.
type PieChartRequest struct {
	Data   []ChartPoint `json:"data"`
	Title  string       `json:"title"`
	Colors []string     `json:"colors,omitempty"`
	DPI    int          `json:"dpi"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
}

func (r *PieChartRequest) applyDefaults() {
	if r.Title == "" {
		r.Title = "Chart"
	}
	if r.DPI == 0 {
		r.DPI = 100
	}
	if r.Width == 0 {
		r.Width = 8
	}
	if r.Height == 0 {
		r.Height = 6
	}
}

// BarChartRequest describes a per-category bar chart. Categories and Values
// are parallel slices.
type BarChartRequest struct {
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
	Title      string    `json:"title"`
	XLabel     string    `json:"x_label"`
	YLabel     string    `json:"y_label"`
	Colors     []string  `json:"colors,omitempty"`
	DPI        int       `json:"dpi"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

func (r *BarChartRequest) applyDefaults() {
	if r.Title == "" {
		r.Title = "Chart"
	}
	if r.DPI == 0 {
		r.DPI = 100
	}
	if r.Width == 0 {
		r.Width = 10
	}
	if r.Height == 0 {
		r.Height = 6
	}
}

// LineChartRequest describes a trend line over dates (YYYY-MM-DD).
type LineChartRequest struct {
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
	Title  string    `json:"title"`
	XLabel string    `json:"x_label"`
	YLabel string    `json:"y_label"`
	Color  string    `json:"color"`
	DPI    int       `json:"dpi"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

func (r *LineChartRequest) applyDefaults() {
	if r.Title == "" {
		r.Title = "Trend"
	}
	if r.XLabel == "" {
		r.XLabel = "Date"
	}
	if r.YLabel == "" {
		r.YLabel = "Amount"
	}
	if r.Color == "" {
		r.Color = "#3498db"
	}
	if r.DPI == 0 {
		r.DPI = 100
	}
	if r.Width == 0 {
		r.Width = 12
	}
	if r.Height == 0 {
		r.Height = 6
	}
}

// FinancialSummary aggregates one month of activity.
type FinancialSummary struct {
	Income           float64 `json:"income"`
	Expense          float64 `json:"expense"`
	NetSavings       float64 `json:"net_savings"`
	SavingsRate      float64 `json:"savings_rate"`
	TransactionCount int     `json:"transaction_count"`
	IncomeCount      int     `json:"income_count"`
	ExpenseCount     int     `json:"expense_count"`
}

// CategoryBreakdown is the per-category expense split in a report.
type CategoryBreakdown struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TransactionRecord is a single transaction row in a report.
type TransactionRecord struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
}

// FinancialReportData is the complete payload for a monthly PDF report.
type FinancialReportData struct {
	Month             int                 `json:"month"`
	Year              int                 `json:"year"`
	UserName          string              `json:"user_name"`
	UserEmail         string              `json:"user_email,omitempty"`
	Summary           FinancialSummary    `json:"summary"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	Transactions      []TransactionRecord `json:"transactions"`
	GeneratedAt       string              `json:"generated_at,omitempty"`
}

// PDFRequest describes a PDF report rendering job. Build it with
// NewPDFRequest to get the renderer defaults; the zero value excludes both
// charts and the transaction table.
type PDFRequest struct {
	ReportData          FinancialReportData `json:"report_data"`
	TemplateName        string              `json:"template_name"`
	IncludeCharts       bool                `json:"include_charts"`
	IncludeTransactions bool                `json:"include_transactions"`
	PageSize            string              `json:"page_size"`
}

// NewPDFRequest builds a PDF request with charts and the transaction table
// included on A4 pages.
func NewPDFRequest(data FinancialReportData) PDFRequest {
	return PDFRequest{
		ReportData:          data,
		TemplateName:        "report_template.html",
		IncludeCharts:       true,
		IncludeTransactions: true,
		PageSize:            "A4",
	}
}

type chartResponse struct {
	Success     bool   `json:"success"`
	ImageBase64 string `json:"image_base64"`
	ChartType   string `json:"chart_type"`
	Error       string `json:"error"`
}

type pdfResponse struct {
	Success   bool   `json:"success"`
	PDFBase64 string `json:"pdf_base64"`
	FileName  string `json:"file_name"`
	Error     string `json:"error"`
}
