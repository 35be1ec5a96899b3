package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndex_FetchesUpstreamJSON(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/catalog/index.json", r.URL.Path)
		require.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		w.Write([]byte(`[{"sid":"sr_7","slug":"my-slug"}]`))
	}))
	defer ts.Close()

	data, err := NewClient(ts.URL).Index(context.Background())
	require.NoError(t, err)
	items, ok := data.([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestSeriesMeta_EscapesKeySegments(t *testing.T) {
	t.Parallel()

	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawPath
		if gotPath == "" {
			gotPath = r.URL.Path
		}
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).SeriesMeta(context.Background(), "sr 7", "my/slug")
	require.NoError(t, err)
	require.Contains(t, gotPath, "sr%207-my%2Fslug")
}

func TestFetchJSON_UpstreamHTTPError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Index(context.Background())
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, http.StatusNotFound, ue.Status)
}

func TestFetchJSON_NetworkError(t *testing.T) {
	t.Parallel()

	_, err := NewClient("http://127.0.0.1:1").Index(context.Background())
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, http.StatusBadGateway, ue.Status)
}

func TestFetchJSON_ParseError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Index(context.Background())
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, http.StatusInternalServerError, ue.Status)
}

func TestMergeLikeCounts(t *testing.T) {
	t.Parallel()

	counts := map[string]int{"sr_7-my-slug": 3, "sr_9": 1}

	t.Run("bare array", func(t *testing.T) {
		data := []any{
			map[string]any{"sid": "sr_7", "slug": "my-slug"},
			map[string]any{"id": "sr_9"},
			map[string]any{"title": "no key"},
		}
		MergeLikeCounts(data, counts)
		require.Equal(t, 3, data[0].(map[string]any)["likes"])
		require.Equal(t, 1, data[1].(map[string]any)["likes"])
		require.NotContains(t, data[2].(map[string]any), "likes")
	})

	t.Run("items object", func(t *testing.T) {
		data := map[string]any{"items": []any{
			map[string]any{"seriesId": "sr_7", "slug": "my-slug"},
		}}
		MergeLikeCounts(data, counts)
		items := data["items"].([]any)
		require.Equal(t, 3, items[0].(map[string]any)["likes"])
	})

	t.Run("unknown key gets zero", func(t *testing.T) {
		data := []any{map[string]any{"sid": "sr_1", "slug": "a"}}
		MergeLikeCounts(data, counts)
		require.Equal(t, 0, data[0].(map[string]any)["likes"])
	})
}
