package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomx/internal/domain"
)

func fastFetcher(user, pass string) *HTTPFetcher {
	f := NewHTTPFetcher(http.DefaultClient, user, pass)
	f.interval = time.Millisecond
	return f
}

func TestFetchSendsBasicAuthAndRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	data, err := fastFetcher("AC123", "secret").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastFetcher("", "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(r.URL.Query().Get("body")))
	}))
	defer srv.Close()
	f := fastFetcher("", "")
	f.limit = 8

	data, err := f.Fetch(context.Background(), srv.URL+"?body=12345678")
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(data))

	data, err = f.Fetch(context.Background(), srv.URL+"?body=123456789")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 8 bytes")
	assert.Nil(t, data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "/uploads/")

	stored, err := s.Put(context.Background(), "store/7/0", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "store/7/0", stored.PublicID)
	assert.Equal(t, "/uploads/store/7/0.jpg", stored.URL)

	b, err := os.ReadFile(filepath.Join(dir, "store", "7", "0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(b))
}

type fakeFetcher map[string][]byte

func (f fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if b, ok := f[url]; ok {
		return b, nil
	}
	return nil, errors.New("unreachable")
}

type memStore struct{ keys []string }

func (m *memStore) Put(_ context.Context, key string, _ []byte, _ string) (Stored, error) {
	m.keys = append(m.keys, key)
	return Stored{PublicID: key, URL: "https://cdn.test/" + key}, nil
}

type memLinker struct {
	existing int64
	images   []domain.Image
}

func (m *memLinker) AttachImage(_ context.Context, _ uint, img *domain.Image) error {
	m.images = append(m.images, *img)
	return nil
}

func (m *memLinker) CountImages(context.Context, uint) (int64, error) {
	return m.existing, nil
}

func TestAttachCountsPerItemErrors(t *testing.T) {
	storeID := uuid.New()
	product := &domain.Product{ID: 7, StoreID: storeID}
	objects := &memStore{}
	links := &memLinker{existing: 2}
	a := NewAttacher(fakeFetcher{"ok1": []byte("a"), "ok2": []byte("b")}, objects, links, time.Second)

	res := a.Attach(context.Background(), product, []Item{
		{URL: "ok1", ContentType: "image/png"},
		{URL: "doc", ContentType: "application/pdf"},
		{URL: "missing", ContentType: "image/jpeg"},
		{URL: "ok2", ContentType: "image/jpeg"},
	})

	assert.Equal(t, 2, res.Added)
	assert.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "application/pdf")
	assert.Equal(t, []string{storeID.String() + "/7/2", storeID.String() + "/7/5"}, objects.keys)
	require.Len(t, links.images, 2)
	assert.Equal(t, "https://cdn.test/"+storeID.String()+"/7/2", links.images[0].URL)
}

func TestAttachWithoutTimeout(t *testing.T) {
	product := &domain.Product{ID: 3, StoreID: uuid.New()}
	links := &memLinker{}
	a := NewAttacher(fakeFetcher{"ok": []byte("a")}, &memStore{}, links, 0)

	res := a.Attach(context.Background(), product, []Item{{URL: "ok", ContentType: "image/png"}})
	assert.Equal(t, 1, res.Added)
	assert.Empty(t, res.Errors)
	assert.Len(t, links.images, 1)
}
