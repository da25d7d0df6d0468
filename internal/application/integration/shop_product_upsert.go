package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Flat product record errors
var (
	ErrShopRecordNotObject = shared.NewValidationError("Each product entry must be an object")
	ErrShopSKURequired     = shared.NewValidationError("Field sku is required for new products")
	ErrShopNameRequired    = shared.NewValidationError("Field name is required for new products")
	ErrShopPriceRequired   = shared.NewValidationError("Field price is required for new products")
)

// UpsertShopProduct applies one record of the flat shape the ERP pushes to
// the shop: shop_product_id, sku, offer_id, product_id, name, price,
// old_price, currency, vat, isbn, barcode, category, attributes, images,
// is_published. The product is looked up by shop_product_id, then sku,
// offer_id and product_id.
func (s *ProductUpsertService) UpsertShopProduct(ctx context.Context, raw any) (*UpsertResult, error) {
	payload, ok := integration.AsObject(raw)
	if !ok {
		return nil, ErrShopRecordNotObject
	}

	product, err := s.findShopProduct(ctx, payload)
	if err != nil {
		return nil, err
	}
	isNew := product == nil
	sku, _ := catalog.CleanText(payload["sku"])
	name, _ := catalog.CleanText(payload["name"])

	if isNew {
		if sku == "" {
			return nil, ErrShopSKURequired
		}
		if name == "" {
			return nil, ErrShopNameRequired
		}
		seed := sku
		if v, ok := catalog.CleanText(payload["slug"]); ok {
			seed = v
		}
		slug, err := s.uniqueSlug(ctx, seed, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if product, err = catalog.NewProduct(name, slug); err != nil {
			return nil, err
		}
	}

	if err := s.applyShopFields(ctx, product, payload, isNew); err != nil {
		return nil, err
	}

	u := &upsertContext{payload: payload, product: product, isNew: isNew}
	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}

	result := &UpsertResult{Product: product, Status: UpsertStatusUpdated}
	if isNew {
		result.Status = UpsertStatusCreated
	}
	s.logger.Debug("Shop product upserted",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", deref(product.SKU)),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// findShopProduct returns nil when no identifier matches. An unknown
// shop_product_id is an error rather than a reason to create.
func (s *ProductUpsertService) findShopProduct(ctx context.Context, payload integration.Payload) (*catalog.Product, error) {
	if shopID, ok := catalog.CleanText(payload["shop_product_id"]); ok {
		notFound := shared.NewValidationError(fmt.Sprintf("Product with shop_product_id=%s was not found", shopID))
		id, err := uuid.Parse(shopID)
		if err != nil {
			return nil, notFound
		}
		product, err := s.products.FindByID(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, notFound
		}
		if err != nil {
			return nil, fmt.Errorf("find product %s: %w", id, err)
		}
		return product, nil
	}

	probes := []struct {
		field catalog.IdentityField
		key   string
	}{
		{catalog.IdentitySKU, "sku"},
		{catalog.IdentityOfferID, "offer_id"},
		{catalog.IdentityERPProductID, "product_id"},
	}
	for _, probe := range probes {
		value, ok := catalog.CleanText(payload[probe.key])
		if !ok {
			continue
		}
		product, err := s.products.FindByIdentity(ctx, probe.field, value)
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

func (s *ProductUpsertService) applyShopFields(
	ctx context.Context,
	product *catalog.Product,
	payload integration.Payload,
	isNew bool,
) error {
	if name, ok := catalog.CleanText(payload["name"]); ok {
		product.Name = name
	}
	if v, ok := payload["description"]; ok && v != nil {
		product.Description = rawText(v)
	}
	if isbn, ok := catalog.CleanText(payload["isbn"]); ok {
		product.ISBN = isbn
	}
	if barcode, ok := catalog.CleanText(payload["barcode"]); ok {
		product.Barcode = barcode
	}
	if offerID, ok := catalog.CleanText(payload["offer_id"]); ok {
		product.OfferID = stringPtr(offerID)
	}
	if erpID, ok := catalog.CleanText(payload["product_id"]); ok {
		product.ERPProductID = stringPtr(erpID)
	}
	if sku, ok := catalog.CleanText(payload["sku"]); ok {
		product.SKU = stringPtr(sku)
	}

	if categoryName, ok := catalog.CleanText(payload["category"]); ok {
		category, err := s.taxonomy.EnsureCategory(ctx, categoryName)
		if err != nil {
			return err
		}
		product.SetCategory(category)
	}

	if v, ok := payload["price"]; ok && v != nil {
		price, err := parseDecimal(v)
		if err != nil {
			return shared.NewValidationError("price must be a number")
		}
		product.Price = price
	} else if isNew {
		return ErrShopPriceRequired
	}

	if currency, ok := catalog.CleanText(payload["currency"]); ok {
		code := []rune(strings.ToUpper(currency))
		if len(code) > 3 {
			code = code[:3]
		}
		product.Currency = string(code)
	}

	if v, ok := payload["vat"]; ok && v != nil {
		vat, ok := parseInt(v)
		if !ok {
			return shared.NewValidationError("vat must be an integer")
		}
		product.VATRate = &vat
	}

	if payload.Has("attributes") {
		attrs, ok := integration.AsObject(payload["attributes"])
		if !ok {
			attrs = integration.Payload{}
		}
		product.Attributes = map[string]any(attrs)
	}
	if payload.Has("images") {
		images, mainURL := ExtractImages(payload["images"])
		product.SetImages(images, mainURL)
	}
	if published, ok := payload["is_published"].(bool); ok {
		product.IsPublished = published
	}

	if v, ok := payload["old_price"]; ok && v != nil {
		oldPrice, err := parseDecimal(v)
		if err != nil {
			return shared.NewValidationError("old_price must be a number")
		}
		product.OldPrice.Decimal = oldPrice
		product.OldPrice.Valid = true
	}
	return nil
}
