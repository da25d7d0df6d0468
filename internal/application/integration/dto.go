package integration

// Default catalog buckets and channel used by the ERP mapping
const (
	DefaultSalesChannel     = "internet_shop"
	DefaultVinylCategory    = "vinyl"
	DefaultPostcardCategory = "Открытки, марки, значки"
	DefaultBookCategory     = "Книги"
	DefaultOrderCurrency    = "RUB"
	DefaultOrderCountry     = "Россия"
	DefaultProductPageSize  = 50
)

// CatalogSettings configures how ERP records map onto the catalog
type CatalogSettings struct {
	// SalesChannel is the marketplace tag of the preferred price entry
	SalesChannel     string
	VinylCategory    string
	PostcardCategory string
	BookCategory     string
}

// DefaultCatalogSettings returns the stock catalog settings
func DefaultCatalogSettings() CatalogSettings {
	return CatalogSettings{}.withDefaults()
}

func (s CatalogSettings) withDefaults() CatalogSettings {
	if s.SalesChannel == "" {
		s.SalesChannel = DefaultSalesChannel
	}
	if s.VinylCategory == "" {
		s.VinylCategory = DefaultVinylCategory
	}
	if s.PostcardCategory == "" {
		s.PostcardCategory = DefaultPostcardCategory
	}
	if s.BookCategory == "" {
		s.BookCategory = DefaultBookCategory
	}
	return s
}

// OrderSettings configures the order document sent to the ERP
type OrderSettings struct {
	Currency string
	Country  string
}

func (s OrderSettings) withDefaults() OrderSettings {
	if s.Currency == "" {
		s.Currency = DefaultOrderCurrency
	}
	if s.Country == "" {
		s.Country = DefaultOrderCountry
	}
	return s
}

// SyncOptions controls one product sync run
type SyncOptions struct {
	// UpdatedSince overrides the stored watermark when non-empty
	UpdatedSince string
	// Incremental reads the stored watermark when no override is given
	Incremental bool
	PageSize    int
	// Limit stops the run after this many records; zero means no limit
	Limit  int
	DryRun bool
}

// SyncStats aggregates the outcome of a product sync run
type SyncStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Processed returns the number of records handled
func (s SyncStats) Processed() int {
	return s.Created + s.Updated + s.Skipped + s.Errors
}

// PendingOrderQuery selects the orders of a bulk export
type PendingOrderQuery struct {
	OrderIDs []int64
	Limit    int
	DryRun   bool
}

// OrderSendFailure reports one order that could not be exported
type OrderSendFailure struct {
	OrderID int64
	Err     error
}

// OrderExportReport aggregates the outcome of a bulk order export
type OrderExportReport struct {
	// Planned lists the orders a dry run would send
	Planned  []int64
	Sent     int
	Failures []OrderSendFailure
}
