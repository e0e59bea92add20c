package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><div class="menu-item"><h3>Шефбургер</h3></div></body></html>`)
	}))
	defer srv.Close()

	res, err := Static(context.Background(), srv.URL+"/menu", "menuscout-test", 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "menuscout-test", gotUA)
	assert.Equal(t, srv.URL+"/menu", res.URL)
	assert.Equal(t, "Шефбургер", res.Document.Find(".menu-item h3").Text())
}

func TestStatic_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Static(context.Background(), srv.URL, "", time.Second)
	assert.Error(t, err)
}

func TestParseWaitMillis(t *testing.T) {
	d, err := ParseWaitMillis("1500")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, err = ParseWaitMillis("")
	assert.Error(t, err)
	_, err = ParseWaitMillis("soon")
	assert.Error(t, err)
	_, err = ParseWaitMillis("-5")
	assert.Error(t, err)
}
