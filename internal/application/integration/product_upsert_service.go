package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upsert validation errors
var (
	ErrPayloadNotObject = shared.NewValidationError("ERP product payload must be an object")
	ErrERPIDMissing     = shared.NewValidationError("ERP product id is missing")
	ErrNameRequired     = shared.NewValidationError("ERP product name is required for new products")
	ErrPriceRequired    = shared.NewValidationError("ERP product price is required for new products")
)

// Well-known additional parameter names
var (
	authorParameterNames    = []string{"Автор", "Авторы"}
	genreParameterNames     = []string{"Жанры товара"}
	directionParameterNames = []string{"Направление"}
)

// UpsertStatus tags the transition performed by an upsert
type UpsertStatus string

const (
	UpsertStatusCreated UpsertStatus = "created"
	UpsertStatusUpdated UpsertStatus = "updated"
)

// UpsertResult is the outcome of upserting one ERP record
type UpsertResult struct {
	Product *catalog.Product
	Status  UpsertStatus
	// UpdatedAt is the record's own updated_at, nil when absent or unparsable
	UpdatedAt *time.Time
}

// ProductUpsertService maps one ERP product record onto a local product
type ProductUpsertService struct {
	products catalog.ProductRepository
	taxonomy *TaxonomyResolver
	settings CatalogSettings
	logger   *zap.Logger
}

// NewProductUpsertService creates a new ProductUpsertService
func NewProductUpsertService(
	products catalog.ProductRepository,
	taxonomy *TaxonomyResolver,
	settings CatalogSettings,
	logger *zap.Logger,
) *ProductUpsertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductUpsertService{
		products: products,
		taxonomy: taxonomy,
		settings: settings.withDefaults(),
		logger:   logger,
	}
}

// upsertContext carries the per-record state through field application
type upsertContext struct {
	payload  integration.Payload
	product  *catalog.Product
	taxonomy *TaxonomyResolver
	isNew    bool
	erpID    string
	sku      string
	offerID  string
	name     string
}

func (u *upsertContext) knownIDs() []string {
	return []string{u.erpID, u.sku, u.offerID}
}

// Upsert locates or creates the product for raw and applies every field the
// record carries. With dryRun nothing is written, taxonomy included.
func (s *ProductUpsertService) Upsert(ctx context.Context, raw any, dryRun bool) (*UpsertResult, error) {
	payload, ok := integration.AsObject(raw)
	if !ok {
		return nil, ErrPayloadNotObject
	}
	erpID, ok := catalog.CleanText(payload["id"])
	if !ok {
		return nil, ErrERPIDMissing
	}

	u := &upsertContext{payload: payload, erpID: erpID, taxonomy: s.taxonomy}
	if dryRun {
		u.taxonomy = s.taxonomy.Preview()
	}
	u.sku, _ = catalog.CleanText(payload["sku"])
	u.offerID, _ = catalog.CleanText(payload["offer_id"])
	u.name, _ = catalog.CleanText(payload["name"])

	product, err := s.resolveIdentity(ctx, u)
	if err != nil {
		return nil, err
	}
	if product == nil {
		if u.name == "" {
			return nil, ErrNameRequired
		}
		slug, err := s.uniqueSlug(ctx, s.pickSlugSource(u), uuid.Nil)
		if err != nil {
			return nil, err
		}
		product, err = catalog.NewProduct(u.name, slug)
		if err != nil {
			return nil, err
		}
		u.isNew = true
	}
	u.product = product

	steps := []func(context.Context, *upsertContext) error{
		s.applyText,
		s.applyIdentifiers,
		s.applyPrice,
		s.applyVisibility,
		s.applyStock,
		s.applyImages,
		s.applyCategories,
		s.applyBookDetails,
		s.applyVinylDetails,
		s.applyPostcardDetails,
		s.refreshSlug,
	}
	for _, step := range steps {
		if err := step(ctx, u); err != nil {
			return nil, err
		}
	}

	result := &UpsertResult{Product: product, Status: UpsertStatusUpdated}
	if u.isNew {
		result.Status = UpsertStatusCreated
	}
	if ts, ok := ParseTimestamp(payload["updated_at"]); ok {
		result.UpdatedAt = &ts
	}
	if dryRun {
		return result, nil
	}

	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Debug("ERP product upserted",
		zap.String("erp_product_id", erpID),
		zap.String("product_id", product.ID.String()),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// resolveIdentity probes the identifier columns in priority order
func (s *ProductUpsertService) resolveIdentity(ctx context.Context, u *upsertContext) (*catalog.Product, error) {
	probes := []struct {
		field catalog.IdentityField
		value string
	}{
		{catalog.IdentityERPProductID, u.erpID},
		{catalog.IdentityExternalID, u.erpID},
		{catalog.IdentitySKU, u.sku},
		{catalog.IdentityOfferID, u.offerID},
	}
	for _, probe := range probes {
		if probe.value == "" {
			continue
		}
		product, err := s.products.FindByIdentity(ctx, probe.field, probe.value)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find product by %s: %w", probe.field, err)
		}
		return product, nil
	}
	return nil, nil
}

func (s *ProductUpsertService) pickSlugSource(u *upsertContext) string {
	if candidate, ok := catalog.CleanText(u.payload["slug"]); ok && !catalog.LooksLikeCode(candidate, u.knownIDs()...) {
		return candidate
	}
	return u.name
}

func (s *ProductUpsertService) uniqueSlug(ctx context.Context, seed string, excludeID uuid.UUID) (string, error) {
	exists := func(ctx context.Context, slug string) (bool, error) {
		return s.products.ExistsBySlug(ctx, slug, excludeID)
	}
	slug, err := catalog.GenerateUniqueSlug(ctx, seed, catalog.SlugMaxLength, exists)
	if err != nil {
		return "", fmt.Errorf("generate product slug: %w", err)
	}
	return slug, nil
}

// ---------------------------------------------------------------------------
// Field application
// ---------------------------------------------------------------------------

func (s *ProductUpsertService) applyText(_ context.Context, u *upsertContext) error {
	if u.name != "" {
		u.product.Name = u.name
	}
	if u.payload.Has("description") {
		u.product.Description = rawText(u.payload["description"])
	}
	return nil
}

func (s *ProductUpsertService) applyIdentifiers(ctx context.Context, u *upsertContext) error {
	if u.sku != "" {
		claimed, err := s.claimIdentifier(ctx, u, catalog.IdentitySKU, u.product.SKU, u.sku)
		if err != nil {
			return err
		}
		if claimed {
			u.product.SKU = stringPtr(u.sku)
		}
	}
	if u.offerID != "" {
		claimed, err := s.claimIdentifier(ctx, u, catalog.IdentityOfferID, u.product.OfferID, u.offerID)
		if err != nil {
			return err
		}
		if claimed {
			u.product.OfferID = stringPtr(u.offerID)
		}
	}
	u.product.ERPProductID = stringPtr(u.erpID)
	return nil
}

// claimIdentifier reports whether value may be stamped onto the product. A
// value already owned by another product is left where it is.
func (s *ProductUpsertService) claimIdentifier(
	ctx context.Context,
	u *upsertContext,
	field catalog.IdentityField,
	current *string,
	value string,
) (bool, error) {
	if u.isNew || (current != nil && *current == value) {
		return true, nil
	}
	owner, err := s.products.FindByIdentity(ctx, field, value)
	if errors.Is(err, shared.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("find product by %s: %w", field, err)
	}
	if owner.ID == u.product.ID {
		return true, nil
	}
	s.logger.Warn("ERP identifier already belongs to another product",
		zap.String("erp_product_id", u.erpID),
		zap.String("field", string(field)),
		zap.String("value", value),
		zap.String("owner_product_id", owner.ID.String()),
	)
	return false, nil
}

func (s *ProductUpsertService) applyPrice(_ context.Context, u *upsertContext) error {
	price, err := ExtractPrice(u.payload["prices"], s.settings.SalesChannel)
	if err != nil {
		return err
	}
	if price == nil {
		if u.isNew {
			return ErrPriceRequired
		}
		return nil
	}
	u.product.Price = price.Value
	if price.Currency != "" {
		u.product.Currency = price.Currency
	}
	return nil
}

func (s *ProductUpsertService) applyVisibility(_ context.Context, u *upsertContext) error {
	visible, ok := u.payload["is_visible"].(bool)
	if !ok {
		return nil
	}
	u.product.IsPublished = visible && !truthy(u.payload["archived"])
	return nil
}

func (s *ProductUpsertService) applyStock(_ context.Context, u *upsertContext) error {
	if !u.payload.Has("stock") {
		return nil
	}
	if qty, ok := ExtractStock(u.payload["stock"]); ok {
		u.product.SetStock(qty)
	}
	return nil
}

func (s *ProductUpsertService) applyImages(_ context.Context, u *upsertContext) error {
	if !u.payload.Has("images") {
		return nil
	}
	images, mainURL := ExtractImages(u.payload["images"])
	u.product.SetImages(images, mainURL)
	return nil
}

func (s *ProductUpsertService) applyCategories(ctx context.Context, u *upsertContext) error {
	if !u.payload.Has("categories") {
		return nil
	}
	categoryName, genreName := ResolveCategoryGenre(u.payload["categories"])
	if categoryName == "" {
		return nil
	}
	category, err := u.taxonomy.EnsureCategory(ctx, categoryName)
	if err != nil {
		return err
	}
	u.product.SetCategory(category)
	if genreName == "" {
		u.product.ClearGenre()
		return nil
	}
	genre, err := u.taxonomy.EnsureGenre(ctx, category, genreName)
	if err != nil {
		return err
	}
	return u.product.SetGenre(genre)
}

func (s *ProductUpsertService) applyBookDetails(ctx context.Context, u *upsertContext) error {
	params := u.payload["additional_parameters"]

	author := ""
	if details, ok := u.payload.Object("book_details"); ok {
		author, _ = firstText(details, "author", "authors")
	}
	if author == "" {
		author, _ = ExtractAdditionalParameter(params, authorParameterNames...)
	}
	if author != "" {
		u.product.Authors = author
	}

	if direction, ok := ExtractAdditionalParameter(params, directionParameterNames...); ok {
		u.product.SetAttribute("direction", direction)
	}

	genreName, ok := ExtractAdditionalParameter(params, genreParameterNames...)
	if !ok {
		return nil
	}
	category := u.product.Category
	if category == nil {
		var err error
		category, err = u.taxonomy.EnsureCategory(ctx, s.settings.BookCategory)
		if err != nil {
			return err
		}
		u.product.SetCategory(category)
	}
	genre, err := u.taxonomy.EnsureGenre(ctx, category, genreName)
	if err != nil {
		return err
	}
	return u.product.SetGenre(genre)
}

func (s *ProductUpsertService) applyVinylDetails(ctx context.Context, u *upsertContext) error {
	details, ok := u.payload.Object("vinyl_details")
	if !ok {
		return nil
	}
	category, err := u.taxonomy.EnsureCategory(ctx, s.settings.VinylCategory)
	if err != nil {
		return err
	}
	u.product.SetCategory(category)

	if err := s.applyDetailGenre(ctx, u, category, details, "genre"); err != nil {
		return err
	}
	if artist, ok := catalog.CleanText(details["artist"]); ok {
		u.product.Authors = artist
	}
	if label, ok := catalog.CleanText(details["label"]); ok {
		u.product.Publisher = label
	}
	applyReleaseYear(u.product, details)

	barcode, ok := catalog.CleanText(u.payload["barcode"])
	if !ok {
		barcode, ok = catalog.CleanText(details["barcode"])
	}
	if ok {
		u.product.Barcode = barcode
	}
	return nil
}

func (s *ProductUpsertService) applyPostcardDetails(ctx context.Context, u *upsertContext) error {
	details, ok := u.payload.Object("postcard_details")
	if !ok {
		return nil
	}
	category, err := u.taxonomy.EnsureCategory(ctx, s.settings.PostcardCategory)
	if err != nil {
		return err
	}
	u.product.SetCategory(category)

	if err := s.applyDetailGenre(ctx, u, category, details, "theme", "collection_type"); err != nil {
		return err
	}
	applyReleaseYear(u.product, details)
	if publisher, ok := catalog.CleanText(details["publisher"]); ok {
		u.product.Publisher = publisher
	}
	if _, hasDescription := catalog.CleanText(u.payload["description"]); !hasDescription {
		if description, ok := catalog.CleanText(details["description"]); ok {
			u.product.Description = description
		}
	}
	return nil
}

// applyDetailGenre sets the genre from the first non-empty key, or clears it
// when one of keys is present but empty.
func (s *ProductUpsertService) applyDetailGenre(
	ctx context.Context,
	u *upsertContext,
	category *catalog.Category,
	details integration.Payload,
	keys ...string,
) error {
	if name, ok := firstText(details, keys...); ok {
		genre, err := u.taxonomy.EnsureGenre(ctx, category, name)
		if err != nil {
			return err
		}
		return u.product.SetGenre(genre)
	}
	for _, key := range keys {
		if details.Has(key) {
			u.product.ClearGenre()
			break
		}
	}
	return nil
}

func (s *ProductUpsertService) refreshSlug(ctx context.Context, u *upsertContext) error {
	if u.name == "" || !shouldRefreshSlug(u.product.Slug, u.knownIDs()...) {
		return nil
	}
	slug, err := s.uniqueSlug(ctx, u.name, u.product.ID)
	if err != nil {
		return err
	}
	u.product.Slug = slug
	return nil
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func (s *ProductUpsertService) persist(ctx context.Context, u *upsertContext) error {
	if !u.isNew {
		if err := s.products.Update(ctx, u.product); err != nil {
			return fmt.Errorf("update product %s: %w", u.product.ID, err)
		}
		return nil
	}

	err := s.products.Create(ctx, u.product)
	if !errors.Is(err, shared.ErrAlreadyExists) {
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return nil
	}

	// The slug was taken between the check and the insert; resolve it again.
	slug, slugErr := s.uniqueSlug(ctx, u.product.Slug, u.product.ID)
	if slugErr != nil {
		return slugErr
	}
	u.product.Slug = slug
	if err := s.products.Create(ctx, u.product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func shouldRefreshSlug(slug string, knownIDs ...string) bool {
	if slug == "" || catalog.LooksLikeCode(slug, knownIDs...) {
		return true
	}
	return catalog.HasNonASCII(slug)
}

func applyReleaseYear(product *catalog.Product, details integration.Payload) {
	if year, ok := parseIntText(details["release_year"]); ok && year > 0 {
		product.Year = &year
	}
}

func rawText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	text, _ := catalog.CleanText(v)
	return text
}

func stringPtr(s string) *string {
	return &s
}
