package oracle

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStaticRates(t *testing.T) {
	orc := NewStatic(map[string]decimal.Decimal{
		"ukuji": decimal.RequireFromString("1.23"),
	})

	rate, err := orc.ExchangeRate("ukuji")
	require.NoError(t, err)
	require.Equal(t, "1.23", rate.String())

	_, err = orc.ExchangeRate("unknown")
	require.Error(t, err)

	orc.SetRate("ukuji", decimal.RequireFromString("2.5"))
	rate, err = orc.ExchangeRate("ukuji")
	require.NoError(t, err)
	require.Equal(t, "2.5", rate.String())
}

func TestHTTPGateway(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ukuji", r.URL.Query().Get("asset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"asset":"ukuji","rate":"1.23"}`))
	}))
	defer ts.Close()

	g := NewHTTPGateway(ts.URL, time.Second)
	rate, err := g.ExchangeRate("ukuji")
	require.NoError(t, err)
	require.Equal(t, "1.23", rate.String())
}

func TestHTTPGatewayErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := NewHTTPGateway(ts.URL, time.Second).ExchangeRate("ukuji")
		require.Error(t, err)
	})

	t.Run("negative rate", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"asset":"ukuji","rate":"-1"}`))
		}))
		defer ts.Close()

		_, err := NewHTTPGateway(ts.URL, time.Second).ExchangeRate("ukuji")
		require.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		g := NewHTTPGateway("http://127.0.0.1:1", 100*time.Millisecond)
		_, err := g.ExchangeRate("ukuji")
		require.Error(t, err)
	})
}
