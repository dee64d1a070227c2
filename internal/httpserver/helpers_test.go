package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/mail"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/upload"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var testSecret = []byte("test-secret")

type captureMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *captureMailer) SendWelcome(_ context.Context, _ mail.Recipient, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, url)
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _ mail.Recipient, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, url)
	return nil
}

// lastToken returns the token at the end of the most recent mailed link.
func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links)
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	return path.Base(u.Path)
}

// stubGateway answers every verification with a successful transaction paid
// by the customer registered with pay.
type stubGateway struct {
	amount int64
	err    error

	mu     sync.Mutex
	ids    map[string]int64
	payers map[string]string
}

// pay records email as the customer behind reference.
func (g *stubGateway) pay(reference, email string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.payers == nil {
		g.payers = map[string]string{}
	}
	g.payers[reference] = email
}

func (g *stubGateway) payer(reference string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.payers[reference]
}

// id returns a stable gateway id per reference.
func (g *stubGateway) id(reference string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ids == nil {
		g.ids = map[string]int64{}
	}
	if id, ok := g.ids[reference]; ok {
		return id
	}
	id := int64(len(g.ids) + 1000)
	g.ids[reference] = id
	return id
}

func (g *stubGateway) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &paystack.Authorization{AuthorizationURL: "https://checkout.example/x", AccessCode: "x", Reference: "ref-x"}, nil
}

func (g *stubGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.Transaction, error) {
	if g.err != nil {
		return nil, g.err
	}
	now := time.Now().UTC()
	return &paystack.Transaction{
		ID:        g.id(reference),
		Status:    models.PaymentSuccess,
		Reference: reference,
		Amount:    g.amount,
		Currency:  "NGN",
		PaidAt:    &now,
		CreatedAt: now,
		Customer:  paystack.Customer{ID: 42, Email: g.payer(reference)},
	}, nil
}

func (g *stubGateway) ListTransactions(context.Context, paystack.ListParams) ([]paystack.Transaction, *paystack.ListMeta, error) {
	if g.err != nil {
		return nil, nil, g.err
	}
	return []paystack.Transaction{{ID: 7, Status: models.PaymentSuccess, Amount: g.amount}}, &paystack.ListMeta{Total: 1, Page: 1, PerPage: 50, PageCount: 1}, nil
}

func (g *stubGateway) FetchTransaction(_ context.Context, id int64) (*paystack.Transaction, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &paystack.Transaction{ID: id, Status: models.PaymentSuccess, Amount: g.amount}, nil
}

type harness struct {
	db      *gorm.DB
	e       *echo.Echo
	mailer  *captureMailer
	gateway *stubGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets the test adjust dependencies and options before the
// server is built.
func newHarnessWith(t *testing.T, adjust func(*Deps, *Options)) *harness {
	t.Helper()

	gdb := testutil.InitTestDB(t)
	r := &repo.GormRepo{DB: gdb}
	h := &harness{db: gdb, mailer: &captureMailer{}, gateway: &stubGateway{amount: 100000}}

	d := &Deps{
		DB:        gdb,
		JWTSecret: testSecret,
		Auth: &service.AuthService{
			Repo:      r,
			Mailer:    h.mailer,
			JWTSecret: testSecret,
			TokenTTL:  time.Hour,
			BaseURL:   "http://shop.test",
		},
		Users:    &service.UserService{Repo: r},
		Carts:    &service.CartService{Repo: r},
		Orders:   &service.OrderService{Repo: r},
		Reviews:  &service.ReviewService{Repo: r},
		Products: &service.ProductService{Repo: r},
		Payments: &service.PaymentService{Repo: r, Gateway: h.gateway},
		Uploads: &Uploader{
			Processor: upload.NewProcessor(&upload.LocalStore{Root: t.TempDir()}),
		},
	}
	opts := Options{Logger: logging.NewWithWriter(io.Discard, "error")}
	if adjust != nil {
		adjust(d, &opts)
	}
	h.e = New(opts, d)
	return h
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	tok, _, err := tokens.CreateAccessToken(u.ID.String(), u.Role, time.Now(), time.Hour, testSecret)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request, authenticated when token is not empty.
func (h *harness) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart request with data as the JSON "data" field and
// one PNG per entry in files.
func (h *harness) upload(t *testing.T, method, target, token string, data any, field string, files int) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("data", string(b)))
	}
	for i := 0; i < files; i++ {
		fw, err := mw.CreateFormFile(field, "image.png")
		require.NoError(t, err)
		_, err = fw.Write(pngBytes(t))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 80, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Skipped json.RawMessage `json:"skipped"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, dst), rec.Body.String())
}

// requireStatus fails with the response body for context.
func requireStatus(t *testing.T, want int, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}
