package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/feed"
	"stockroom/internal/middleware"
	"stockroom/internal/notification"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var staff = domain.Actor{ID: "u1", Name: "Ada", Email: "ada@school.test", Role: "staff"}

type testAPI struct {
	router   chi.Router
	center   *notification.Center
	registry *feed.Registry
	batches  service.BatchService
	products service.ProductService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	docs := repository.NewMemoryDocuments()
	center := notification.NewCenter(notification.NewMemoryStore(), logger, notification.Options{Enabled: true})
	registry := feed.NewRegistry()
	batches := service.NewBatchService(docs.Batches(), center, registry, logger)
	products := service.NewProductService(docs.Products(), center, registry, nil, logger)
	reorders := service.NewReorderService(docs.Transfers(), center, nil, logger, batches, products)
	t.Cleanup(func() {
		registry.CancelAll()
		batches.Close()
		products.Close()
		center.Close()
	})

	r := chi.NewRouter()
	r.Use(middleware.ErrorHandlingMiddleware(logger))
	// Tests pick the caller with X-Test-Role; no header means the staff user.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := staff
			if role := r.Header.Get("X-Test-Role"); role != "" {
				actor.Role = role
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), actor)))
		})
	})

	guard := middleware.RequireRole([]string{middleware.RoleAdmin, middleware.RoleStaff}, logger)
	NewProductHandler(products, logger).RegisterRoutes(r, guard)
	NewBatchHandler(batches, logger).RegisterRoutes(r, guard)
	NewReorderHandler(reorders, logger).RegisterRoutes(r)
	NewNotificationHandler(center, registry, logger).RegisterRoutes(r)

	return &testAPI{router: r, center: center, registry: registry, batches: batches, products: products}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (a *testAPI) seed(t *testing.T) (batchID, productID string) {
	t.Helper()

	w := a.do(t, "POST", "/api/batches", BatchRequest{
		Name: "shirtsBatch",
		Type: "shirts",
		Items: []BatchItemRequest{{
			VariantType: "short sleeve",
			Color:       "white",
			Sizes:       []BatchSizeRequest{{Size: "M", Quantity: 10}, {Size: "L", Quantity: 3}},
		}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create batch: %d %s", w.Code, w.Body.String())
	}
	batch := decode[domain.Batch](t, w)

	w = a.do(t, "POST", "/api/products", ProductRequest{
		Name: "School Shirt",
		Type: "Shirt",
		Variants: []VariantRequest{{
			ID:          "v1",
			Color:       "white",
			VariantType: "short sleeve",
			Sizes:       []SizeStockRequest{{Size: "M", Quantity: 1}},
		}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", w.Code, w.Body.String())
	}
	product := decode[domain.Product](t, w)

	a.center.ClearAll(context.Background())
	return batch.ID, product.ID
}

func TestBatchHandlerCRUD(t *testing.T) {
	api := newTestAPI(t)
	batchID, _ := api.seed(t)

	w := api.do(t, "GET", "/api/batches/"+batchID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
	batch := decode[domain.Batch](t, w)
	if batch.TotalQuantity != 13 || batch.Status != domain.BatchStatusActive || batch.CreatedBy != staff.Email {
		t.Errorf("unexpected batch %+v", batch)
	}

	w = api.do(t, "PATCH", "/api/batches/"+batchID+"/status", BatchStatusRequest{Status: "archived"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d %s", w.Code, w.Body.String())
	}

	w = api.do(t, "GET", "/api/batches?status=archived", nil)
	if list := decode[[]domain.Batch](t, w); len(list) != 1 {
		t.Errorf("expected one archived batch, got %d", len(list))
	}
	w = api.do(t, "GET", "/api/batches?status=lost", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status filter, got %d", w.Code)
	}

	w = api.do(t, "DELETE", "/api/batches/"+batchID, nil, "X-Test-Role", "viewer")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for viewer, got %d", w.Code)
	}
	w = api.do(t, "DELETE", "/api/batches/"+batchID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	w = api.do(t, "DELETE", "/api/batches/"+batchID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing batch, got %d", w.Code)
	}

	items, _ := api.center.List(context.Background(), notification.FilterAll)
	if len(items) != 1 || items[0].Type != domain.NotificationBatchDeleted {
		t.Errorf("expected exactly one batch_deleted notification, got %+v", items)
	}
}

func TestBatchHandlerValidation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing name", map[string]any{"type": "shirts"}, "name"},
		{"bad status", map[string]any{"name": "b", "status": "lost"}, "status"},
		{"negative quantity", map[string]any{
			"name":  "b",
			"items": []map[string]any{{"variantType": "x", "color": "y", "sizes": []map[string]any{{"size": "M", "quantity": -1}}}},
		}, "items[0].sizes[0].quantity"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := api.do(t, "POST", "/api/batches", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			resp := decode[middleware.ErrorResponse](t, w)
			if resp.Error.Details["field"] != tc.field {
				t.Errorf("expected field %s, got %v", tc.field, resp.Error.Details["field"])
			}
		})
	}

	req := httptest.NewRequest("POST", "/api/batches", strings.NewReader("{"))
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestReorderHandler(t *testing.T) {
	api := newTestAPI(t)
	batchID, productID := api.seed(t)

	reorder := func(size string, qty int) *httptest.ResponseRecorder {
		return api.do(t, "POST", "/api/reorders", ReorderRequest{
			ProductID:   productID,
			VariantID:   "v1",
			Color:       "white",
			VariantType: "short sleeve",
			BatchID:     batchID,
			Size:        size,
			Quantity:    qty,
		})
	}

	w := reorder("M", 2)
	if w.Code != http.StatusOK {
		t.Fatalf("reorder: %d %s", w.Code, w.Body.String())
	}
	resp := decode[ReorderResponse](t, w)
	if resp.Result.BatchRemaining != 8 || resp.Result.ProductOnHand != 3 {
		t.Errorf("expected 8 / 3, got %+v", resp.Result)
	}
	if resp.Message != "Added 2 items of size M to School Shirt" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	w = reorder("L", 5)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	errResp := decode[middleware.ErrorResponse](t, w)
	if errResp.Error.Message != "Cannot receive 5 units. Only 3 available in batch." {
		t.Errorf("unexpected message %q", errResp.Error.Message)
	}
	if errResp.Error.Details["requested"] != float64(5) || errResp.Error.Details["available"] != float64(3) {
		t.Errorf("unexpected details %v", errResp.Error.Details)
	}

	w = reorder("M", 0)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero quantity, got %d", w.Code)
	}
	if d := decode[middleware.ErrorResponse](t, w).Error.Details; d["field"] != "quantity" {
		t.Errorf("expected field quantity, got %v", d)
	}

	w = reorder("XS", 1)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown size, got %d", w.Code)
	}

	items, _ := api.center.List(context.Background(), notification.FilterAll)
	stockUpdates := 0
	for _, n := range items {
		if n.Type == domain.NotificationStockUpdated {
			stockUpdates++
		}
	}
	if stockUpdates != 1 {
		t.Errorf("expected one stock_updated notification, got %d", stockUpdates)
	}
}

func TestReorderHandlerResolvesVariantByID(t *testing.T) {
	api := newTestAPI(t)
	batchID, productID := api.seed(t)

	w := api.do(t, "POST", "/api/reorders", ReorderRequest{
		ProductID: productID,
		VariantID: "v1",
		BatchID:   batchID,
		Size:      "M",
		Quantity:  4,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for an id-only request, got %d %s", w.Code, w.Body.String())
	}
	resp := decode[ReorderResponse](t, w)
	if resp.Result.Color != "white" || resp.Result.BatchRemaining != 6 || resp.Result.ProductOnHand != 5 {
		t.Errorf("unexpected result %+v", resp.Result)
	}

	w = api.do(t, "POST", "/api/reorders", ReorderRequest{
		ProductID:   productID,
		VariantID:   "v1",
		Color:       "navy",
		VariantType: "short sleeve",
		BatchID:     batchID,
		Size:        "M",
		Quantity:    1,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a mismatched variant, got %d", w.Code)
	}
	if d := decode[middleware.ErrorResponse](t, w).Error.Details; d["field"] != "variant" {
		t.Errorf("expected field variant, got %v", d)
	}
}

func TestProductHandler(t *testing.T) {
	api := newTestAPI(t)
	_, productID := api.seed(t)

	w := api.do(t, "GET", "/api/products/"+productID+"/stock", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stock: %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, `"kind":"low_stock"`) {
		t.Errorf("expected low stock classification, got %s", body)
	}

	w = api.do(t, "GET", "/api/inventory/summary", nil)
	if !strings.Contains(w.Body.String(), `"lowStock":1`) {
		t.Errorf("unexpected summary %s", w.Body.String())
	}

	w = api.do(t, "PUT", "/api/products/"+productID, ProductRequest{Name: "Renamed", ImageURL: "not a url"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad image url, got %d", w.Code)
	}

	w = api.do(t, "GET", "/api/products/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestNotificationHandler(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t)
	ctx := context.Background()

	first, _ := api.center.Add(ctx, notification.LowStock("Tie", 2), staff)
	api.center.Add(ctx, notification.SchoolAdded("North"), staff)

	w := api.do(t, "GET", "/api/notifications?filter=alert", nil)
	list := decode[NotificationListResponse](t, w)
	if len(list.Notifications) != 1 || list.UnreadCount != 2 || !list.Enabled {
		t.Errorf("unexpected list %+v", list)
	}

	if w := api.do(t, "GET", "/api/notifications?filter=spam", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown filter, got %d", w.Code)
	}

	if w := api.do(t, "POST", "/api/notifications/"+first.ID+"/read", nil); w.Code != http.StatusNoContent {
		t.Errorf("mark read: %d", w.Code)
	}
	if w := api.do(t, "POST", "/api/notifications/nope/read", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown notification, got %d", w.Code)
	}

	w = api.do(t, "GET", "/api/notifications?filter=unread", nil)
	if list := decode[NotificationListResponse](t, w); len(list.Notifications) != 1 || list.UnreadCount != 1 {
		t.Errorf("unexpected unread list %+v", list)
	}

	w = api.do(t, "PUT", "/api/notifications/settings", map[string]any{"enabled": false})
	if resp := decode[NotificationSettingsResponse](t, w); resp.Enabled || api.center.Enabled() {
		t.Error("expected delivery to be disabled")
	}
	if w := api.do(t, "PUT", "/api/notifications/settings", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without enabled, got %d", w.Code)
	}
	w = api.do(t, "POST", "/api/notifications/toggle", nil)
	if resp := decode[NotificationSettingsResponse](t, w); !resp.Enabled {
		t.Error("expected toggle to re-enable delivery")
	}

	if w := api.do(t, "DELETE", "/api/notifications", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear: %d", w.Code)
	}
	if n, _ := api.center.UnreadCount(ctx); n != 0 {
		t.Errorf("expected empty center, got %d unread", n)
	}
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, body *bufio.Reader) <-chan sseEvent {
	t.Helper()
	out := make(chan sseEvent)
	go func() {
		defer close(out)
		var ev sseEvent
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "" && ev.name != "":
				out <- ev
				ev = sseEvent{}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseEvent) (sseEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-events:
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return sseEvent{}, false
}

func openStream(t *testing.T, ctx context.Context, url string) <-chan sseEvent {
	t.Helper()
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	return readEvents(t, bufio.NewReader(resp.Body))
}

func TestBatchStreamDeliversSnapshots(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := openStream(t, ctx, srv.URL+"/api/batches/stream?consumer=tab1")

	ev, _ := nextEvent(t, events)
	var snap feed.Snapshot[domain.Batch]
	if ev.name != "snapshot" || json.Unmarshal([]byte(ev.data), &snap) != nil || len(snap.Items) != 1 {
		t.Fatalf("unexpected first event %+v", ev)
	}

	api.batches.Add(context.Background(), service.BatchInput{Name: "second"}, staff)

	ev, _ = nextEvent(t, events)
	if json.Unmarshal([]byte(ev.data), &snap) != nil || len(snap.Items) != 2 {
		t.Fatalf("expected two batches after add, got %+v", ev)
	}
}

func TestStreamReplacedBySameConsumer(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := openStream(t, ctx, srv.URL+"/api/notifications/stream?consumer=tab1")
	if ev, _ := nextEvent(t, first); ev.name != "snapshot" {
		t.Fatalf("unexpected first event %+v", ev)
	}

	second := openStream(t, ctx, srv.URL+"/api/notifications/stream?consumer=tab1")
	if ev, _ := nextEvent(t, second); ev.name != "snapshot" {
		t.Fatalf("unexpected event on second stream %+v", ev)
	}

	if _, ok := nextEvent(t, first); ok {
		t.Error("expected the first stream to end once the consumer re-subscribed")
	}
	if n := api.registry.Active(); n != 1 {
		t.Errorf("expected one tracked subscription, got %d", n)
	}
}
