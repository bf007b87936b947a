package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"shoply/internal/handlers"
	"shoply/internal/middleware"
	"shoply/internal/models"
	"shoply/internal/repositories"
	"shoply/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// stubGateway authorizes every order and verifies signatures produced by its
// own Signature helper, standing in for the hosted gateway.
type stubGateway struct {
	mu     sync.Mutex
	orders int
}

func (g *stubGateway) CreateOrder(_ context.Context, amount int64, currency string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	return fmt.Sprintf("order_test_%d", g.orders), nil
}

func (g *stubGateway) VerifySignature(orderRef, paymentID, signature string) error {
	if signature != g.Signature(orderRef, paymentID) {
		return fmt.Errorf("signature mismatch for order %s", orderRef)
	}
	return nil
}

func (g *stubGateway) Signature(orderRef, paymentID string) string {
	return "stub-sig|" + orderRef + "|" + paymentID
}

var dbCounter int64

type testEnv struct {
	app     *fiber.App
	gateway *stubGateway
	tee     models.Product
}

// setupTestApp wires the full stack against an in-memory database, a
// temp-dir guest cart store and the stub gateway, mirroring the production
// wiring.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderLine{},
	))

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	remoteCart := repositories.NewGORMCartStore(db)
	localCart, err := repositories.NewFileCartStore(t.TempDir())
	require.NoError(t, err)

	smallPrice := 19.99
	tee := models.Product{
		Slug:      "classic-tee",
		Name:      "Classic Tee",
		Price:     24.99,
		Inventory: 100,
		Status:    models.ProductStatusActive,
		Variants: []models.ProductVariant{
			{Name: "Small", Price: &smallPrice, Inventory: 40},
		},
	}
	require.NoError(t, productRepo.Create(&tee))

	gateway := &stubGateway{}

	authService := services.NewAuthService(userRepo, "integration-test-secret")
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(localCart, remoteCart, productRepo)
	checkoutService := services.NewCheckoutService(cartService, orderRepo, gateway, nil)
	orderService := services.NewOrderService(orderRepo)

	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)

	app := fiber.New()
	authRequired := middleware.AuthRequired(authService)
	authOptional := middleware.AuthOptional(authService)
	adminOnly := middleware.AdminOnly()

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1, authRequired, adminOnly)
	cartHandler.RegisterRoutes(apiV1, authOptional)

	protectedRoutes := apiV1.Group("", authRequired)
	checkoutHandler.RegisterRoutes(protectedRoutes)
	orderHandler.RegisterRoutes(protectedRoutes, adminOnly)

	return &testEnv{app: app, gateway: gateway, tee: tee}
}

// request performs an API call and decodes the JSON response body.
func (e *testEnv) request(t *testing.T, method, path, token, deviceID string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if deviceID != "" {
		req.Header.Set("X-Device-ID", deviceID)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp.StatusCode, decoded
}

// registerAndLogin creates an account and returns a bearer token for it.
func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	status, _ := e.request(t, http.MethodPost, "/api/v1/auth/register", "", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := e.request(t, http.MethodPost, "/api/v1/auth/login", "", "", map[string]any{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func checkoutBody() map[string]any {
	address := map[string]any{
		"name":    "Asha Rao",
		"address": "12 MG Road",
		"city":    "Bengaluru",
		"zip":     "560001",
		"phone":   "+919800000000",
	}
	return map[string]any{
		"shipping":       address,
		"billing":        address,
		"payment_method": "card",
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	env := setupTestApp(t)
	env.registerAndLogin(t, "asha")

	status, _ := env.request(t, http.MethodPost, "/api/v1/auth/register", "", "", map[string]any{
		"username": "asha",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := setupTestApp(t)
	env.registerAndLogin(t, "asha")

	status, _ := env.request(t, http.MethodPost, "/api/v1/auth/login", "", "", map[string]any{
		"username": "asha",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProductListingIsPublic(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.request(t, http.MethodGet, "/api/v1/products/", "", "", nil)
	assert.Equal(t, http.StatusOK, status)
	products, _ := body["products"].([]any)
	assert.Len(t, products, 1)

	status, body = env.request(t, http.MethodGet, "/api/v1/products/classic-tee", "", "", nil)
	assert.Equal(t, http.StatusOK, status)
	product, _ := body["product"].(map[string]any)
	assert.Equal(t, "Classic Tee", product["name"])

	status, _ = env.request(t, http.MethodGet, "/api/v1/products/no-such-slug", "", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProductWritesRequireAdmin(t *testing.T) {
	env := setupTestApp(t)
	token := env.registerAndLogin(t, "customer")

	status, _ := env.request(t, http.MethodPost, "/api/v1/products/", token, "", map[string]any{
		"slug": "new-product", "name": "New Product", "price": 9.99,
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.request(t, http.MethodPost, "/api/v1/products/", "", "", map[string]any{
		"slug": "new-product", "name": "New Product", "price": 9.99,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGuestCartRequiresDeviceHeader(t *testing.T) {
	env := setupTestApp(t)

	status, _ := env.request(t, http.MethodGet, "/api/v1/cart/", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGuestCartRoundTrip(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.request(t, http.MethodPost, "/api/v1/cart/items", "", "device-1", map[string]any{
		"product_id": env.tee.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusCreated, status)
	line, _ := body["line"].(map[string]any)
	require.NotEmpty(t, line["id"])

	// Adding the same product again increments the existing line.
	status, _ = env.request(t, http.MethodPost, "/api/v1/cart/items", "", "device-1", map[string]any{
		"product_id": env.tee.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = env.request(t, http.MethodGet, "/api/v1/cart/", "", "device-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["total_items"])
	lines, _ := body["lines"].([]any)
	assert.Len(t, lines, 1)
	assert.InDelta(t, 3*24.99, body["total_price"].(float64), 0.0001)

	// Another device sees an empty cart.
	status, body = env.request(t, http.MethodGet, "/api/v1/cart/", "", "device-2", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["total_items"])
}

func TestCartMergeOnSignIn(t *testing.T) {
	env := setupTestApp(t)

	// Guest collects 2 units before signing in.
	status, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", "", "device-1", map[string]any{
		"product_id": env.tee.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusCreated, status)

	// The account cart already holds 1 unit of the same product.
	token := env.registerAndLogin(t, "asha")
	status, _ = env.request(t, http.MethodPost, "/api/v1/cart/items", token, "", map[string]any{
		"product_id": env.tee.ID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.request(t, http.MethodPost, "/api/v1/cart/merge", token, "device-1", map[string]any{})
	require.Equal(t, http.StatusOK, status)
	cart, _ := body["cart"].(map[string]any)
	assert.Equal(t, float64(3), cart["total_items"])
	lines, _ := cart["lines"].([]any)
	assert.Len(t, lines, 1)

	// The guest scope is drained by the merge.
	status, body = env.request(t, http.MethodGet, "/api/v1/cart/", "", "device-1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["total_items"])

	// Merging again is a no-op.
	status, body = env.request(t, http.MethodPost, "/api/v1/cart/merge", token, "device-1", map[string]any{})
	require.Equal(t, http.StatusOK, status)
	cart, _ = body["cart"].(map[string]any)
	assert.Equal(t, float64(3), cart["total_items"])
}

func TestCartMergeRequiresAuthentication(t *testing.T) {
	env := setupTestApp(t)

	status, _ := env.request(t, http.MethodPost, "/api/v1/cart/merge", "", "device-1", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCheckoutRequiresAuthentication(t *testing.T) {
	env := setupTestApp(t)

	status, _ := env.request(t, http.MethodPost, "/api/v1/checkout/", "", "", checkoutBody())
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCheckoutFlowPlacesOrderAndClearsCart(t *testing.T) {
	env := setupTestApp(t)
	token := env.registerAndLogin(t, "asha")

	status, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", token, "", map[string]any{
		"product_id": env.tee.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.request(t, http.MethodPost, "/api/v1/checkout/", token, "", checkoutBody())
	require.Equal(t, http.StatusOK, status)
	orderRef, _ := body["order_reference"].(string)
	require.NotEmpty(t, orderRef)
	// 49.98 subtotal + 9.99 shipping + 4.00 (rounded) tax, in the smallest unit.
	assert.Equal(t, float64(6397), body["amount"])

	status, body = env.request(t, http.MethodPost, "/api/v1/checkout/complete", token, "", map[string]any{
		"order_reference": orderRef,
		"payment_id":      "pay_1",
		"signature":       env.gateway.Signature(orderRef, "pay_1"),
	})
	require.Equal(t, http.StatusCreated, status)
	order, _ := body["order"].(map[string]any)
	require.NotNil(t, order)
	assert.Equal(t, "paid", order["payment_status"])

	// The cart is empty once the order is durable.
	status, body = env.request(t, http.MethodGet, "/api/v1/cart/", token, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["total_items"])

	// The order shows up in the user's history with its lines.
	status, body = env.request(t, http.MethodGet, "/api/v1/orders/", token, "", nil)
	require.Equal(t, http.StatusOK, status)
	orders, _ := body["orders"].([]any)
	require.Len(t, orders, 1)
	placed, _ := orders[0].(map[string]any)
	placedLines, _ := placed["lines"].([]any)
	assert.Len(t, placedLines, 1)
}

func TestCheckoutBadSignatureKeepsCart(t *testing.T) {
	env := setupTestApp(t)
	token := env.registerAndLogin(t, "asha")

	status, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", token, "", map[string]any{
		"product_id": env.tee.ID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.request(t, http.MethodPost, "/api/v1/checkout/", token, "", checkoutBody())
	require.Equal(t, http.StatusOK, status)
	orderRef, _ := body["order_reference"].(string)

	status, _ = env.request(t, http.MethodPost, "/api/v1/checkout/complete", token, "", map[string]any{
		"order_reference": orderRef,
		"payment_id":      "pay_1",
		"signature":       "forged",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)

	status, body = env.request(t, http.MethodGet, "/api/v1/cart/", token, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total_items"])

	// No order was recorded.
	status, body = env.request(t, http.MethodGet, "/api/v1/orders/", token, "", nil)
	require.Equal(t, http.StatusOK, status)
	orders, _ := body["orders"].([]any)
	assert.Empty(t, orders)
}

func TestCheckoutFailCallbackLeavesCartForRetry(t *testing.T) {
	env := setupTestApp(t)
	token := env.registerAndLogin(t, "asha")

	status, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", token, "", map[string]any{
		"product_id": env.tee.ID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.request(t, http.MethodPost, "/api/v1/checkout/", token, "", checkoutBody())
	require.Equal(t, http.StatusOK, status)
	orderRef, _ := body["order_reference"].(string)

	status, _ = env.request(t, http.MethodPost, "/api/v1/checkout/fail", token, "", map[string]any{
		"order_reference": orderRef,
		"reason":          "user closed the widget",
		"canceled":        true,
	})
	assert.Equal(t, http.StatusOK, status)

	// A late success callback on the failed session is rejected.
	status, _ = env.request(t, http.MethodPost, "/api/v1/checkout/complete", token, "", map[string]any{
		"order_reference": orderRef,
		"payment_id":      "pay_1",
		"signature":       env.gateway.Signature(orderRef, "pay_1"),
	})
	assert.Equal(t, http.StatusConflict, status)

	// The cart survives for a retried checkout.
	status, body = env.request(t, http.MethodGet, "/api/v1/cart/", token, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total_items"])

	status, body = env.request(t, http.MethodPost, "/api/v1/checkout/", token, "", checkoutBody())
	assert.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, orderRef, body["order_reference"])
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	env := setupTestApp(t)
	token := env.registerAndLogin(t, "asha")

	status, _ := env.request(t, http.MethodPost, "/api/v1/checkout/", token, "", checkoutBody())
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOrdersAreScopedToTheCaller(t *testing.T) {
	env := setupTestApp(t)
	buyer := env.registerAndLogin(t, "buyer")
	other := env.registerAndLogin(t, "other")

	status, _ := env.request(t, http.MethodPost, "/api/v1/cart/items", buyer, "", map[string]any{
		"product_id": env.tee.ID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusCreated, status)
	status, body := env.request(t, http.MethodPost, "/api/v1/checkout/", buyer, "", checkoutBody())
	require.Equal(t, http.StatusOK, status)
	orderRef, _ := body["order_reference"].(string)
	status, body = env.request(t, http.MethodPost, "/api/v1/checkout/complete", buyer, "", map[string]any{
		"order_reference": orderRef,
		"payment_id":      "pay_1",
		"signature":       env.gateway.Signature(orderRef, "pay_1"),
	})
	require.Equal(t, http.StatusCreated, status)
	order, _ := body["order"].(map[string]any)
	orderID, _ := order["id"].(string)
	require.NotEmpty(t, orderID)

	status, _ = env.request(t, http.MethodGet, "/api/v1/orders/"+orderID, buyer, "", nil)
	assert.Equal(t, http.StatusOK, status)

	// Another user cannot see the order, and cannot tell it exists.
	status, _ = env.request(t, http.MethodGet, "/api/v1/orders/"+orderID, other, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Status updates are admin-only.
	status, _ = env.request(t, http.MethodPatch, "/api/v1/orders/"+orderID+"/status", buyer, "", map[string]any{
		"status": "shipped",
	})
	assert.Equal(t, http.StatusForbidden, status)
}
