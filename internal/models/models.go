package models

// DashboardData is everything the dashboard needs for one delivery period.
type DashboardData struct {
	Period     string   `json:"period"`
	Metrics    Metrics  `json:"metrics"`
	Suppliers  BarChart `json:"suppliers"`
	Categories BarChart `json:"categories"`
	TIV        BarChart `json:"tiv"`
	Map        FlowMap  `json:"map"`
}

type Metrics struct {
	Countries           int     `json:"countries"`
	WeaponsDelivered    int64   `json:"weapons_delivered"`
	WeaponsDeliveredFmt string  `json:"weapons_delivered_fmt"`
	TotalTIV            float64 `json:"total_tiv"`

	// Importer rank and share are only known for a concrete period.
	Rank     *int     `json:"rank,omitempty"`
	Share    *float64 `json:"share,omitempty"`
	ShareFmt string   `json:"share_fmt,omitempty"`
}

type BarChart struct {
	Title  string    `json:"title"`
	XLabel string    `json:"x_label"`
	YLabel string    `json:"y_label"`
	Items  []BarItem `json:"items"`
}

type BarItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type FlowMap struct {
	Style  string    `json:"map_style"`
	View   ViewState `json:"view_state"`
	Target Point     `json:"target"`
	Arcs   []Arc     `json:"arcs"`
}

type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
}

type Point struct {
	Name    string  `json:"name"`
	Capital string  `json:"capital"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type Arc struct {
	Supplier  string  `json:"supplier"`
	Capital   string  `json:"capital"`
	SourceLat float64 `json:"source_lat"`
	SourceLon float64 `json:"source_lon"`
	TargetLat float64 `json:"target_lat"`
	TargetLon float64 `json:"target_lon"`
	TIV       float64 `json:"tiv"`
	TIVStr    string  `json:"tiv_str"`
	LogTIV    float64 `json:"log_tiv"`
	Intensity float64 `json:"intensity"`
	Width     float64 `json:"width"`
	Color     [3]int  `json:"color"`
}

// TransferRow is one line of the transfers table.
type TransferRow struct {
	Supplier          string  `json:"supplier"`
	DeliveryYearStart int     `json:"delivery_year_start"`
	DeliveryYearEnd   int     `json:"delivery_year_end"`
	WeaponDesignation string  `json:"weapon_designation"`
	WeaponCategory    string  `json:"weapon_category"`
	Company           string  `json:"company"`
	CountryOfOrigin   string  `json:"country_of_origin"`
	TIV               float64 `json:"tiv"`
}

type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type PeriodInfo struct {
	Name string `json:"name"`
	From int    `json:"from,omitempty"`
	To   int    `json:"to,omitempty"`
}

type RankRow struct {
	Recipient string  `json:"recipient"`
	Period    string  `json:"period"`
	Rank      int     `json:"rank"`
	Share     float64 `json:"share"`
	TIV       float64 `json:"tiv"`
}

type ReconcileResult struct {
	Period   string  `json:"period"`
	Computed float64 `json:"computed"`
	Expected float64 `json:"expected"`
	Diff     float64 `json:"diff"`
	OK       bool    `json:"ok"`
}

type TableSchema struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}
