package feeaccount

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zionix-swap/pkg/chain"
	"zionix-swap/pkg/metrics"
)

type fakeProvisioner struct {
	result *Provisioned
	err    error
	calls  int
}

func (f *fakeProvisioner) Provision(_ context.Context, _, _ solana.PublicKey) (*Provisioned, error) {
	f.calls++
	return f.result, f.err
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, CreatePath, bytes.NewBufferString(body)))
	return rec
}

func TestServerCreate(t *testing.T) {
	ata := solana.NewWallet().PublicKey()
	fp := &fakeProvisioner{result: &Provisioned{Address: ata, Standard: chain.ExtendedAccount, Created: true}}
	h := NewServer(fp, WithAllowedOwner(feeWallet)).Handler()

	rec := post(t, h, `{"feeRecipient":"`+feeWallet.String()+`","feeMint":"`+usdcMint.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"ata":"`+ata.String()+`","isToken2022":true,"created":true}`, rec.Body.String())
}

func TestServerValidation(t *testing.T) {
	fp := &fakeProvisioner{}
	h := NewServer(fp, WithAllowedOwner(feeWallet)).Handler()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"not json", `nope`, http.StatusBadRequest},
		{"missing mint", `{"feeRecipient":"` + feeWallet.String() + `"}`, http.StatusBadRequest},
		{"bad address", `{"feeRecipient":"xyz","feeMint":"` + usdcMint.String() + `"}`, http.StatusBadRequest},
		{"other owner", `{"feeRecipient":"` + solana.NewWallet().PublicKey().String() + `","feeMint":"` + usdcMint.String() + `"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"message"`)
		})
	}
	assert.Zero(t, fp.calls)
}

func TestServerMethodNotAllowed(t *testing.T) {
	h := NewServer(&fakeProvisioner{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CreatePath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerProvisionFailure(t *testing.T) {
	fp := &fakeProvisioner{err: errors.New("insufficient funds for rent")}
	h := NewServer(fp).Handler()

	rec := post(t, h, `{"feeRecipient":"`+feeWallet.String()+`","feeMint":"`+usdcMint.String()+`"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ATA_CREATION_FAILED")
	assert.Contains(t, rec.Body.String(), "insufficient funds for rent")
}

func TestServerMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewServer(&fakeProvisioner{}, WithGatherer(reg), WithServerMetrics(metrics.New(reg))).Handler()

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRemoteCreatorRoundTrip(t *testing.T) {
	ata := solana.NewWallet().PublicKey()
	fp := &fakeProvisioner{result: &Provisioned{Address: ata, Standard: chain.StandardAccount}}
	srv := httptest.NewServer(NewServer(fp).Handler())
	defer srv.Close()

	got, err := NewRemoteCreator(srv.URL, time.Second).CreateFeeAccount(context.Background(), feeWallet, usdcMint)
	require.NoError(t, err)
	assert.Equal(t, ata, got)
}

func TestRemoteCreatorSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(NewServer(&fakeProvisioner{err: errors.New("boom")}).Handler())
	defer srv.Close()

	_, err := NewRemoteCreator(srv.URL, time.Second).CreateFeeAccount(context.Background(), feeWallet, usdcMint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
