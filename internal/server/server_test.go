package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/pool/mock"
	"staking-vault-lab/internal/staking"
	"staking-vault-lab/internal/token"
)

const (
	coordAddr = "vault-coordinator"
	poolAddr  = "yield-pool"
	alice     = "alice"
)

type fixture struct {
	bank  *token.Bank
	coord *staking.Coordinator
	srv   *Server
	ts    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{bank: token.NewBank()}
	f.bank.Mint(alice, big.NewInt(1_000_000))

	receipt := ledger.New("Vault Receipt", "vRCT")
	pool := mock.NewPool(mock.Options{
		Address:       poolAddr,
		Underlying:    f.bank,
		CycleDuration: 7 * 24 * time.Hour,
	})

	logger := log.New(io.Discard, "", 0)
	var srv *Server
	coord, err := staking.New(staking.Options{
		Address:          coordAddr,
		Underlying:       f.bank,
		Receipt:          receipt,
		YieldPool:        pool,
		EpochLength:      time.Hour,
		WithdrawalWindow: 24 * time.Hour,
		OnEvent:          func(e domain.Event) { srv.Publish(e) },
		Logger:           logger,
	})
	require.NoError(t, err)
	f.coord = coord

	srv = New(Options{Coordinator: coord, Receipt: receipt, Logger: logger})
	f.srv = srv
	f.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		f.ts.Close()
	})
	return f
}

func (f *fixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func (f *fixture) getJSON(t *testing.T, path string, out any) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStakeAndState(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/v1/stake", TxRequest{Holder: alice, Amount: "10000"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var state StateResponse
	f.getJSON(t, "/v1/state", &state)
	assert.Equal(t, "10000", state.TotalSupply)
	assert.Equal(t, uint64(1), state.Epoch)
	assert.Equal(t, "10000", state.TotalVaultBalance)

	var holder HolderResponse
	f.getJSON(t, "/v1/holders/"+alice, &holder)
	assert.Equal(t, "10000", holder.Balance)
	assert.Nil(t, holder.Warmup)
}

func TestStake_BadRequests(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/v1/stake", TxRequest{Holder: alice, Amount: "abc"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.postJSON(t, "/v1/stake", TxRequest{Holder: alice, Amount: "-5"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.postJSON(t, "/v1/stake", TxRequest{Amount: "100"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(f.ts.URL+"/v1/stake", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStake_InsufficientFundsIsConflict(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/v1/stake", TxRequest{Holder: "stranger", Amount: "100"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "not enough funds")
}

func TestStake_PausedIsConflict(t *testing.T) {
	f := newFixture(t)
	f.coord.SetPauses(true, false, false)

	resp := f.postJSON(t, "/v1/stake", TxRequest{Holder: alice, Amount: "100"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnstakeAndHolderLocks(t *testing.T) {
	f := newFixture(t)
	f.coord.SetCooldownPeriod(2)

	resp := f.postJSON(t, "/v1/stake", TxRequest{Holder: alice, Amount: "10000"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.postJSON(t, "/v1/unstake", TxRequest{Holder: alice, Amount: "4000"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var holder HolderResponse
	f.getJSON(t, "/v1/holders/"+alice, &holder)
	assert.Equal(t, "6000", holder.Balance)
	require.NotNil(t, holder.Cooldown)
	assert.Equal(t, "4000", holder.Cooldown.Amount)
	assert.Equal(t, uint64(3), holder.Cooldown.ExpiryEpoch)

	// over-draw is a conflict, not a server error
	resp = f.postJSON(t, "/v1/unstake", TxRequest{Holder: alice, Amount: "999999"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestInstantUnstake_UnknownRoute(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/v1/instant-unstake", TxRequest{Holder: alice, Amount: "100", Route: "teleport"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReserve_DisabledShape(t *testing.T) {
	f := newFixture(t)
	var res ReserveResponse
	f.getJSON(t, "/v1/reserve", &res)
	assert.False(t, res.Enabled)
}

func TestEpochEndpoint(t *testing.T) {
	f := newFixture(t)
	var epoch EpochResponse
	f.getJSON(t, "/v1/epoch", &epoch)
	assert.Equal(t, uint64(1), epoch.Number)
	assert.Equal(t, int64(3600), epoch.LengthSeconds)
	assert.Equal(t, "0", epoch.Distribute)
}

func TestWebsocketFeed(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// wait for the subscription to register before staking
	require.Eventually(t, func() bool {
		return f.srv.Hub().ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp := f.postJSON(t, "/v1/stake", TxRequest{Holder: alice, Amount: "500"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event domain.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, domain.EventStake, event.Type)
	assert.Equal(t, alice, event.Holder)
	assert.Equal(t, "500", event.Amount)
	assert.NotEmpty(t, event.ID)
}
