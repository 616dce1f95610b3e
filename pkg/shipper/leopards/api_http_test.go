package leopards_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/tournevent/courierbridge/pkg/shipper/leopards"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://merchantapi.leopardscourier.com", "https://merchantapi.leopardscourier.com"},
		{"https://merchantapi.leopardscourier.com/", "https://merchantapi.leopardscourier.com"},
		{"https://merchantapi.leopardscourier.com/api", "https://merchantapi.leopardscourier.com"},
		{"https://merchantapi.leopardscourier.com/api/", "https://merchantapi.leopardscourier.com"},
		{"  https://h/API//  ", "https://h"},
		{"https://h/apis", "https://h/apis"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := leopards.NormalizeBaseURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, leopards.NormalizeBaseURL(got))
		})
	}
}

func TestResolveBaseURL_EnvironmentDefaults(t *testing.T) {
	assert.Equal(t, "https://merchantapi.leopardscourier.com", leopards.ResolveBaseURL("", "Production"))
	assert.Equal(t, "https://merchantapistaging.leopardscourier.com", leopards.ResolveBaseURL("", "staging"))
	assert.Equal(t, "https://custom", leopards.ResolveBaseURL("https://custom/api/", "production"))
}

func TestHTTPAPIClient_Endpoint(t *testing.T) {
	c := leopards.NewHTTPAPIClient(leopards.HTTPAPIClientConfig{BaseURL: "https://h/api/"})
	assert.Equal(t, "https://h/api/bookPacket/format/json/", c.Endpoint("bookPacket"))
}

func newServer(t *testing.T, handler http.HandlerFunc) *leopards.HTTPAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return leopards.NewHTTPAPIClient(leopards.HTTPAPIClientConfig{BaseURL: srv.URL + "/api"})
}

func TestHTTPAPIClient_BookPacket_FormEncoded(t *testing.T) {
	var gotPath, gotContentType string
	var gotForm url.Values

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"status":1,"track_number":"LE123","slip_link":"https://slip/LE123"}`))
	})

	resp, err := c.BookPacket(context.Background(), &leopards.BookPacketRequest{
		Credentials: leopards.Credentials{APIKey: "key", APIPassword: "secret"},
		Booking: shipper.BookingRequest{
			OrderID:       "DN-1",
			WeightGrams:   500,
			Pieces:        1,
			CollectAmount: 1500,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/bookPacket/format/json/", gotPath)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "500", gotForm.Get("booked_packet_weight"))
	assert.Equal(t, "1500", gotForm.Get("booked_packet_collect_amount"))
	assert.Equal(t, "key", gotForm.Get("api_key"))
	assert.Equal(t, "secret", gotForm.Get("api_password"))
	assert.Equal(t, "LE123", resp.TrackNumber)
	assert.Equal(t, "https://slip/LE123", resp.SlipLink)
}

func TestHTTPAPIClient_BookPacket_StatusNotOne(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":0,"error":"Invalid destination"}`))
	})

	_, err := c.BookPacket(context.Background(), &leopards.BookPacketRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAPI))
	assert.Contains(t, err.Error(), "Invalid destination")
}

func TestHTTPAPIClient_NonOKIsAPIError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := c.PrintCN(context.Background(), &leopards.PrintCNRequest{CNNumbers: "LE1"})
	require.Error(t, err)

	var se *shipper.ShipperError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, shipper.KindAPI, se.Kind)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.True(t, se.Retryable)
}

func TestHTTPAPIClient_InvalidJSON(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := c.GetAllCities(context.Background(), &leopards.Credentials{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAPI))
	assert.Contains(t, err.Error(), "Invalid JSON")
}

func TestHTTPAPIClient_ConnectionErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := leopards.NewHTTPAPIClient(leopards.HTTPAPIClientConfig{BaseURL: srv.URL})
	_, err := c.BookPacket(context.Background(), &leopards.BookPacketRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrTransport))
	assert.True(t, shipper.IsRetryable(err))
}

func TestHTTPAPIClient_GetAllCities_ListKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"city_list", `{"status":"1","city_list":[{"id":1,"name":"Lahore"},{"id":2,"name":"Karachi"}]}`, 2},
		{"data fallback", `{"status":"1","data":[{"city_id":"1","city_name":"Lahore"},{"city_id":"2","city_name":"Karachi"}]}`, 2},
		{"city_list not a list", `{"status":"1","city_list":"n/a","data":[{"id":"1","name":"Lahore"}]}`, 1},
		{"empty list", `{"status":"1","city_list":[]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				b, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(b, &body)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := c.GetAllCities(context.Background(), &leopards.Credentials{APIKey: "k", APIPassword: "p"})
			require.NoError(t, err)
			assert.Len(t, resp.Cities, tt.want)
			assert.Equal(t, "k", body["api_key"])
		})
	}
}

func TestHTTPAPIClient_GetAllCities_Malformed(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"1"}`))
	})

	_, err := c.GetAllCities(context.Background(), &leopards.Credentials{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAPI))
}

func TestHTTPAPIClient_TrackBookedPacket_RequestShape(t *testing.T) {
	var body map[string]any
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		_, _ = w.Write([]byte(`{"status":1,"packet_list":[{"status":"In Transit"}]}`))
	})

	resp, err := c.TrackBookedPacket(context.Background(), &leopards.TrackRequest{TrackNumbers: []string{"LE1"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"LE1"}, body["track_numbers"])
	require.Len(t, resp.Packets, 1)
	assert.Equal(t, "In Transit", resp.Packets[0].Status)
}
