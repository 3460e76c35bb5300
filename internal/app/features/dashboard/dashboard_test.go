package dashboard

import (
	"net/http"
	"strings"
	"testing"

	documentstore "github.com/dalemusser/gicesite/internal/app/store/documents"
	donationstore "github.com/dalemusser/gicesite/internal/app/store/donations"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/gicesite/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func seed(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	docs := documentstore.New(db)
	for _, title := range []string{"Tutoring", "Health camp"} {
		if _, err := docs.Create(ctx, "services", collections.Values{"title": title, "description": "x"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := testimonialstore.New(db).Create(ctx, models.Testimonial{
		Name: "Asha", Body: "Lovely people.", Rating: 5, Pending: true,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, _, err := donationstore.New(db).Record(ctx, models.Donation{
		PaymentID: "pay_1", Amount: 150050, Currency: "INR", DonorName: "Ravi",
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}

func TestShow_Editor(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	seed(t, db)

	h := NewHandler(db, collections.Default(), zap.NewNop())
	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequestWithCSRF(http.MethodGet, "/", testutil.EditorUser())
	Routes(h).ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "/admin/c/services")
	rec.AssertContains(t, "Testimonials awaiting review")

	body := rec.Body.String()
	if !strings.Contains(body, `<span class="tile-count">2</span> Services`) {
		t.Error("expected the services tile to count 2")
	}
	if strings.Contains(body, "INR 1500.50") {
		t.Error("editors should not see donation totals")
	}
}

func TestShow_AdminSeesTotals(t *testing.T) {
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	seed(t, db)

	h := NewHandler(db, collections.Default(), zap.NewNop())
	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequestWithCSRF(http.MethodGet, "/", testutil.AdminUser())
	Routes(h).ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "INR 1500.50")
	rec.AssertContains(t, "/admin/audit")
}

func TestFormatTotals(t *testing.T) {
	got := formatTotals(map[string]int64{"USD": 2500, "INR": 100007})
	want := []string{"INR 1000.07", "USD 25.00"}
	if len(got) != len(want) {
		t.Fatalf("formatTotals() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("formatTotals()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
