package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/token"
	"github.com/subfusion/checkout/internal/checkout/journal"
	"github.com/subfusion/checkout/internal/checkout/journal/sqlite"
	"github.com/subfusion/checkout/internal/pkg/config"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--env-file", ""))
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sampleOrder() entity.OrderSnapshot {
	return entity.OrderSnapshot{
		ID:            "SF1792368000000-aaaabbbb",
		Items:         []entity.LineItem{{ProductID: "netflix", Plan: "1M", UnitPrice: 500, Quantity: 2}},
		Customer:      entity.Customer{Name: "Rahim", Phone: "01700000000"},
		Subtotal:      1000,
		Fees:          20,
		Total:         1020,
		PaymentMethod: "sslcommerz",
		CreatedAt:     time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	}
}

func TestTokenDecode(t *testing.T) {
	signed, err := token.New("s3cret").Encode(sampleOrder())
	require.NoError(t, err)

	out, err := runCLI(t, "", "token", "decode", "--secret", "s3cret", signed)
	require.NoError(t, err)
	var got entity.OrderSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, sampleOrder(), got)

	_, err = runCLI(t, "", "token", "decode", "--secret", "wrong", signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestTokenDecode_Stdin(t *testing.T) {
	plain, err := token.New("").Encode(sampleOrder())
	require.NoError(t, err)

	out, err := runCLI(t, plain+"\n", "token", "decode", "--secret", "", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "SF1792368000000-aaaabbbb"`)
}

func TestJournalShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, journal.NewEntry(ctx, "SF1", journal.EventSessionCreated, "create", "", map[string]string{"amount": "1326"})))
	require.NoError(t, repo.Save(ctx, journal.NewEntry(ctx, "SF1", journal.EventValidated, "success", "", nil)))
	require.NoError(t, repo.Close())

	out, err := runCLI(t, "", "journal", "show", "--path", path, "SF1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"event":"SESSION_CREATED"`)
	assert.Contains(t, lines[0], `"payload":{"amount":"1326"}`)
	assert.Contains(t, lines[1], `"event":"VALIDATED"`)
}

func TestJournalShow_Latest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, journal.NewEntry(ctx, "SF1", journal.EventSessionCreated, "create", "", nil)))
	require.NoError(t, repo.Save(ctx, journal.NewEntry(ctx, "SF1", journal.EventValidated, "success", "", nil)))
	require.NoError(t, repo.Close())

	out, err := runCLI(t, "", "journal", "show", "--path", path, "--latest", "SF1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"event":"VALIDATED"`)

	_, err = runCLI(t, "", "journal", "show", "--path", path, "--latest", "SF-unknown")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestJournalShow_RequiresPath(t *testing.T) {
	t.Setenv("JOURNAL_PATH", "")
	_, err := runCLI(t, "", "journal", "show", "SF1")
	assert.ErrorIs(t, err, errNoJournal)
}

func TestBuildRouter_DemoMode(t *testing.T) {
	for _, k := range []string{"SSL_STORE_ID", "SSL_STORE_PASSWD", "SMTP_HOST", "SMTP_USER", "SMTP_PASS", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	t.Setenv("JOURNAL_PATH", journalPath)

	cfg, err := config.Load("")
	require.NoError(t, err)

	router, cleanup, err := buildRouter(context.Background(), cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/create",
		strings.NewReader(`{"items":[{"pid":"netflix","plan":"1M","price":500,"qty":2}]}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"demo":true`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payment/cancel?tran_id=SF9", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	cleanup()

	repo, err := sqlite.Open(journalPath)
	require.NoError(t, err)
	defer repo.Close()
	latest, err := repo.Latest(context.Background(), "SF9")
	require.NoError(t, err)
	assert.Equal(t, journal.EventCancelled, latest.Event)
}
