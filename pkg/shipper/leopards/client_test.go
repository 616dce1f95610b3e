package leopards_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/tournevent/courierbridge/pkg/shipper/leopards"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type staticPassword struct {
	value string
	err   error
}

func (s staticPassword) Password(ctx context.Context) (string, error) {
	return s.value, s.err
}

type recordedCall struct {
	operation, status string
}

type fakeRecorder struct {
	calls  []recordedCall
	errors []string
}

func (r *fakeRecorder) RecordRequest(operation, carrier, status string, duration float64) {
	r.calls = append(r.calls, recordedCall{operation, status})
}

func (r *fakeRecorder) RecordError(carrier, errorType string) {
	r.errors = append(r.errors, errorType)
}

func enabledConfig() leopards.Config {
	return leopards.Config{Enabled: true, APIKey: "key"}
}

func newTestClient(mockClient leopards.APIClient) *leopards.Client {
	logger := otelzap.New(zap.NewNop())
	return leopards.NewWithAPIClient(
		enabledConfig(),
		mockClient,
		staticPassword{value: "secret"},
		logger,
		nil,
	)
}

func TestClient_Book_Success(t *testing.T) {
	mockAPI := leopards.NewMockAPIClient()
	var got *leopards.BookPacketRequest
	mockAPI.OnBookPacket = func(ctx context.Context, req *leopards.BookPacketRequest) (*leopards.BookPacketResponse, error) {
		got = req
		return &leopards.BookPacketResponse{Status: "1", TrackNumber: "LE100", SlipLink: "https://slip"}, nil
	}
	rec := &fakeRecorder{}
	client := newTestClient(mockAPI).WithRecorder(rec)

	res, err := client.Book(context.Background(), &shipper.BookingRequest{OrderID: "DN-1", WeightGrams: 500})

	require.NoError(t, err)
	assert.Equal(t, "LE100", res.TrackingNumber)
	assert.Equal(t, "https://slip", res.SlipLink)
	assert.Equal(t, "key", got.APIKey)
	assert.Equal(t, "secret", got.APIPassword)
	assert.Equal(t, []recordedCall{{"bookPacket", "success"}}, rec.calls)
}

func TestClient_Book_MissingTrackNumber(t *testing.T) {
	mockAPI := leopards.NewMockAPIClient()
	mockAPI.OnBookPacket = func(ctx context.Context, req *leopards.BookPacketRequest) (*leopards.BookPacketResponse, error) {
		return &leopards.BookPacketResponse{Status: "1", Raw: []byte(`{"status":"1"}`)}, nil
	}
	rec := &fakeRecorder{}
	client := newTestClient(mockAPI).WithRecorder(rec)

	_, err := client.Book(context.Background(), &shipper.BookingRequest{OrderID: "DN-1"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAPI))
	assert.Contains(t, err.Error(), "track_number missing")
	assert.Equal(t, []recordedCall{{"bookPacket", "error"}}, rec.calls)
	assert.Equal(t, []string{"api"}, rec.errors)
}

func TestClient_Preflight(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	mockAPI := leopards.NewMockAPIClient()

	tests := []struct {
		name      string
		cfg       leopards.Config
		passwords leopards.PasswordSource
		wantErr   bool
	}{
		{"ok", enabledConfig(), staticPassword{value: "secret"}, false},
		{"disabled", leopards.Config{Enabled: false, APIKey: "key"}, staticPassword{value: "secret"}, true},
		{"missing key", leopards.Config{Enabled: true}, staticPassword{value: "secret"}, true},
		{"decrypt failure", enabledConfig(), staticPassword{err: errors.New("no identity matched")}, true},
		{"empty password", enabledConfig(), staticPassword{}, true},
		{"no source", enabledConfig(), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := leopards.NewWithAPIClient(tt.cfg, mockAPI, tt.passwords, logger, nil)
			err := client.Preflight(context.Background())
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, shipper.ErrConfiguration))
		})
	}
}

func TestClient_Book_ConfigurationErrorSkipsProvider(t *testing.T) {
	mockAPI := leopards.NewMockAPIClient()
	called := false
	mockAPI.OnBookPacket = func(ctx context.Context, req *leopards.BookPacketRequest) (*leopards.BookPacketResponse, error) {
		called = true
		return nil, nil
	}
	logger := otelzap.New(zap.NewNop())
	client := leopards.NewWithAPIClient(enabledConfig(), mockAPI, staticPassword{err: errors.New("bad key")}, logger, nil)

	_, err := client.Book(context.Background(), &shipper.BookingRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrConfiguration))
	assert.False(t, called)
}

func TestClient_TrackPacket(t *testing.T) {
	tests := []struct {
		name string
		resp *leopards.TrackResponse
		err  error
		want string
	}{
		{"current status", &leopards.TrackResponse{Status: "1", Packets: []leopards.Packet{{CurrentStatus: "Delivered", Status: "x"}}}, nil, "Delivered"},
		{"status fallback", &leopards.TrackResponse{Status: "1", Packets: []leopards.Packet{{Status: "Arrived at station"}}}, nil, "Arrived at station"},
		{"empty record", &leopards.TrackResponse{Status: "1", Packets: []leopards.Packet{{}}}, nil, "Pending"},
		{"empty list", &leopards.TrackResponse{Status: "1"}, nil, "Pending"},
		{"api error", nil, shipper.NewAPIError("leopards", "HTTP_500", "boom"), "Pending"},
		{"transport error", nil, shipper.NewTransportError("leopards", "timeout", nil), "Pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := leopards.NewMockAPIClient()
			mockAPI.OnTrackBookedPacket = func(ctx context.Context, req *leopards.TrackRequest) (*leopards.TrackResponse, error) {
				return tt.resp, tt.err
			}
			client := newTestClient(mockAPI)

			got, err := client.TrackPacket(context.Background(), "LE1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_TrackPacket_HTTP500IsPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	logger := otelzap.New(zap.NewNop())
	client := leopards.New(leopards.Config{Enabled: true, APIKey: "k", BaseURL: srv.URL}, staticPassword{value: "p"}, logger, nil)

	got, err := client.TrackPacket(context.Background(), "LE1")
	require.NoError(t, err)
	assert.Equal(t, shipper.PendingStatus, got)
}

func TestClient_FetchPrintArtifact(t *testing.T) {
	tests := []struct {
		name    string
		resp    *leopards.PrintCNResponse
		want    *shipper.PrintArtifact
		wantErr bool
	}{
		{"url", &leopards.PrintCNResponse{Status: "1", PrintURL: "https://print/LE1.pdf"}, &shipper.PrintArtifact{URL: "https://print/LE1.pdf"}, false},
		{"html", &leopards.PrintCNResponse{Status: "1", HTML: "<html></html>"}, &shipper.PrintArtifact{HTML: "<html></html>"}, false},
		{"neither", &leopards.PrintCNResponse{Status: "1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := leopards.NewMockAPIClient()
			mockAPI.OnPrintCN = func(ctx context.Context, req *leopards.PrintCNRequest) (*leopards.PrintCNResponse, error) {
				assert.Equal(t, "LE1", req.CNNumbers)
				return tt.resp, nil
			}
			client := newTestClient(mockAPI)

			got, err := client.FetchPrintArtifact(context.Background(), "LE1")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, shipper.ErrUnsupportedPrintFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ListServiceAreas_Mock(t *testing.T) {
	client := newTestClient(leopards.NewMockAPIClient())

	cities, err := client.ListServiceAreas(context.Background())
	require.NoError(t, err)
	assert.Len(t, cities, 3)
}

func TestClient_SimulatedErrors(t *testing.T) {
	mockAPI := leopards.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.ListServiceAreas(context.Background())
	assert.Error(t, err)

	status, err := client.TrackPacket(context.Background(), "LE1")
	require.NoError(t, err)
	assert.Equal(t, shipper.PendingStatus, status)
}
