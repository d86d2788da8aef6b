package scout

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagadu/finsight/internal/config"
	"github.com/wagadu/finsight/internal/models"
	"github.com/wagadu/finsight/internal/webhook"
)

type fakeScoutStore struct {
	watchlist  []models.WatchlistEntry
	checksums  map[string]bool
	accessions map[string]bool
	inserted   []models.FilingCandidate
	polled     []string
}

func (f *fakeScoutStore) ActiveWatchlist(context.Context) ([]models.WatchlistEntry, error) {
	return f.watchlist, nil
}

func (f *fakeScoutStore) TouchLastPolled(_ context.Context, id string) error {
	f.polled = append(f.polled, id)
	return nil
}

func (f *fakeScoutStore) CandidateExistsByChecksum(_ context.Context, sum string) (bool, error) {
	return f.checksums[sum], nil
}

func (f *fakeScoutStore) CandidateExistsByAccession(_ context.Context, acc string) (bool, error) {
	return f.accessions[acc], nil
}

func (f *fakeScoutStore) CandidateExistsByFiling(context.Context, string, string, int) (bool, error) {
	return false, nil
}

func (f *fakeScoutStore) DocumentsMatchingName(context.Context, string) ([]models.Document, error) {
	return nil, nil
}

func (f *fakeScoutStore) InsertCandidate(_ context.Context, c models.FilingCandidate) (string, error) {
	f.inserted = append(f.inserted, c)
	return fmt.Sprintf("cand-%d", len(f.inserted)), nil
}

func secTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, submissionsFixture)
	}))
}

func newTestScout(store Store, secURL string) *Scout {
	notifier := webhook.NewNotifier(&config.WebhookConfig{Enabled: false})
	sec := newTestSECClient(secURL)
	sec.archivesURL = secURL
	return NewScout(store, sec, NewAnnualReportsClient("ua"), notifier)
}

func TestRunScanInsertsCandidates(t *testing.T) {
	srv := secTestServer(t)
	defer srv.Close()

	store := &fakeScoutStore{
		watchlist: []models.WatchlistEntry{
			{ID: "w1", Ticker: "AAPL", CIK: "320193", CompanyName: "Apple Inc.", Source: "sec", Priority: 5, IsActive: true},
		},
	}
	s := newTestScout(store, srv.URL)

	stats := s.RunScan(context.Background())

	assert.Equal(t, 1, stats.CompaniesChecked)
	assert.Equal(t, 2, stats.CandidatesFound)
	assert.Equal(t, 2, stats.CandidatesInserted)
	assert.Zero(t, stats.Errors)

	require.Len(t, store.inserted, 2)
	first := store.inserted[0]
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Equal(t, "10-K", first.FilingType)
	assert.Equal(t, models.CandidateStatusPending, first.Status)
	assert.NotEmpty(t, first.SHA256Checksum, "checksum fetched from document URL")
	require.NotNil(t, first.FilingDate)

	assert.Equal(t, []string{"w1"}, store.polled)
}

func TestRunScanSkipsDuplicateAccessions(t *testing.T) {
	srv := secTestServer(t)
	defer srv.Close()

	store := &fakeScoutStore{
		watchlist: []models.WatchlistEntry{
			{ID: "w1", Ticker: "AAPL", CIK: "320193", Source: "sec", IsActive: true},
		},
		accessions: map[string]bool{
			"0000320193-24-000123": true,
			"0000320193-24-000050": true,
		},
	}
	s := newTestScout(store, srv.URL)

	stats := s.RunScan(context.Background())
	assert.Equal(t, 2, stats.DuplicatesSkipped)
	assert.Zero(t, stats.CandidatesInserted)
	assert.Empty(t, store.inserted)
}

func TestRunScanDryRun(t *testing.T) {
	srv := secTestServer(t)
	defer srv.Close()

	store := &fakeScoutStore{
		watchlist: []models.WatchlistEntry{
			{ID: "w1", Ticker: "AAPL", CIK: "320193", Source: "sec", IsActive: true},
		},
	}
	s := newTestScout(store, srv.URL)
	s.DryRun = true

	stats := s.RunScan(context.Background())
	assert.Equal(t, 2, stats.CandidatesFound)
	assert.Zero(t, stats.CandidatesInserted)
	assert.Empty(t, store.inserted)
	assert.Empty(t, store.polled, "dry run must not touch last_polled_at")
}

func TestRunScanLimit(t *testing.T) {
	srv := secTestServer(t)
	defer srv.Close()

	store := &fakeScoutStore{
		watchlist: []models.WatchlistEntry{
			{ID: "w1", Ticker: "AAPL", CIK: "320193", Source: "sec", IsActive: true},
		},
	}
	s := newTestScout(store, srv.URL)
	s.Limit = 1

	stats := s.RunScan(context.Background())
	assert.Equal(t, 1, stats.CandidatesInserted)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "10-K", store.inserted[0].FilingType)
}

func TestRunScanEmptyWatchlist(t *testing.T) {
	s := newTestScout(&fakeScoutStore{}, "http://127.0.0.1:0")
	stats := s.RunScan(context.Background())
	assert.Zero(t, stats.CompaniesChecked)
	assert.Zero(t, stats.Errors)
}
