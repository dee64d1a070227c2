package service

import (
	"context"
	"errors"
	"net/url"
	"path"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/mail"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeMailer struct {
	fail    bool
	welcome []string
	resets  []string
}

func (m *fakeMailer) SendWelcome(_ context.Context, _ mail.Recipient, url string) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.welcome = append(m.welcome, url)
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _ mail.Recipient, url string) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.resets = append(m.resets, url)
	return nil
}

// tokenFromURL returns the last path segment of a mailed link.
func tokenFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return path.Base(u.Path)
}

type fakeGateway struct {
	initialized []paystack.InitializeRequest
	tx          *paystack.Transaction
	err         error
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.initialized = append(g.initialized, req)
	return &paystack.Authorization{AuthorizationURL: "https://checkout.example/abc", AccessCode: "abc", Reference: "ref-init"}, nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.Transaction, error) {
	if g.err != nil {
		return nil, g.err
	}
	tx := *g.tx
	tx.Reference = reference
	return &tx, nil
}

func (g *fakeGateway) ListTransactions(context.Context, paystack.ListParams) ([]paystack.Transaction, *paystack.ListMeta, error) {
	if g.err != nil {
		return nil, nil, g.err
	}
	return []paystack.Transaction{*g.tx}, &paystack.ListMeta{Total: 1, Page: 1, PerPage: 50, PageCount: 1}, nil
}

func (g *fakeGateway) FetchTransaction(_ context.Context, id int64) (*paystack.Transaction, error) {
	if g.err != nil {
		return nil, g.err
	}
	tx := *g.tx
	tx.ID = id
	return &tx, nil
}

func newRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return &repo.GormRepo{DB: testutil.InitTestDB(t)}
}
