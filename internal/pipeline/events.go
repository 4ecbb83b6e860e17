package pipeline

// Events and responses form the contract with the external orchestrator.

type FetchEvent struct {
	FetchType string `json:"fetch_type,omitempty"`
	Season    string `json:"season,omitempty"`
	// Partition overrides the clock-derived partition for backfills.
	Partition string `json:"partition,omitempty"`
}

type FetchSummary struct {
	Timestamp         string `json:"timestamp"`
	Environment       string `json:"environment"`
	Season            string `json:"season"`
	FetchType         string `json:"fetch_type"`
	SuccessfulFetches int    `json:"successful_fetches"`
	ErrorsCount       int    `json:"errors_count"`
}

type FetchResponse struct {
	StatusCode   int           `json:"statusCode"`
	DataLocation *DataLocation `json:"data_location,omitempty"`
	Season       string        `json:"season,omitempty"`
	FetchType    string        `json:"fetch_type,omitempty"`
	Fetched      []string      `json:"fetched"`
	Errors       []string      `json:"errors"`
	Summary      *FetchSummary `json:"summary,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type ValidateEvent struct {
	DataLocation *DataLocation `json:"data_location"`
	FetchType    string        `json:"fetch_type,omitempty"`
}

type ReportLocation struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type ValidateBody struct {
	Message      string `json:"message"`
	Valid        bool   `json:"valid"`
	ErrorCount   int    `json:"error_count"`
	WarningCount int    `json:"warning_count"`
	Error        string `json:"error,omitempty"`
}

type ValidateResponse struct {
	StatusCode       int             `json:"statusCode"`
	Body             ValidateBody    `json:"body"`
	ValidationReport *ReportLocation `json:"validation_report,omitempty"`
	DataLocation     *DataLocation   `json:"data_location,omitempty"`
	ValidationPassed bool            `json:"validation_passed"`
}

type TransformEvent struct {
	DataLocation     *DataLocation `json:"data_location"`
	ValidationPassed bool          `json:"validation_passed"`
}

type TransformBody struct {
	Transformed []string       `json:"transformed"`
	Errors      []string       `json:"errors"`
	Warnings    []string       `json:"warnings,omitempty"`
	Summary     map[string]any `json:"summary,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

type TransformResponse struct {
	StatusCode               int           `json:"statusCode"`
	Body                     TransformBody `json:"body"`
	DataLocation             *DataLocation `json:"data_location,omitempty"`
	TransformationSuccessful bool          `json:"transformation_successful"`
	Statistics               any           `json:"statistics,omitempty"`
}

type LoadEvent struct {
	DataLocation             *DataLocation `json:"data_location"`
	TransformationSuccessful bool          `json:"transformation_successful"`
	Statistics               any           `json:"statistics,omitempty"`
}

type LoadSummary struct {
	Environment   string `json:"environment"`
	Partition     string `json:"partition"`
	RecordsLoaded int    `json:"records_loaded"`
	TablesUpdated int    `json:"tables_updated"`
	ErrorsCount   int    `json:"errors_count"`
}

type LoadBody struct {
	Loaded  map[string]int `json:"loaded"`
	Errors  []string       `json:"errors"`
	Summary *LoadSummary   `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
}

type LoadResponse struct {
	StatusCode     int            `json:"statusCode"`
	Body           LoadBody       `json:"body"`
	LoadSuccessful bool           `json:"load_successful"`
	RecordsLoaded  map[string]int `json:"records_loaded,omitempty"`
}
