package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"reportes-viales/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpoPushToken(t *testing.T) {
	assert.True(t, IsExpoPushToken("ExponentPushToken[xxxxxx]"))
	assert.True(t, IsExpoPushToken("ExpoPushToken[xxxxxx]"))
	assert.False(t, IsExpoPushToken(""))
	assert.False(t, IsExpoPushToken("fcm-token-123"))
	assert.False(t, IsExpoPushToken("ExponentPushToken[broken"))
	assert.False(t, IsExpoPushToken("[xxxxxx]"))
}

func newTestPushClient(url string) *ExpoPushClient {
	return NewExpoPushClient(&config.Config{ExpoPushURL: url})
}

func TestDispatch_SingleBatchRequest(t *testing.T) {
	var requestCount int32
	var received []PushMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		tickets := make([]PushTicket, len(received))
		for i := range tickets {
			tickets[i] = PushTicket{Status: TicketStatusOK, ID: "ticket"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expoPushResponse{Data: tickets})
	}))
	defer server.Close()

	client := newTestPushClient(server.URL)

	messages := []PushMessage{
		{To: "ExponentPushToken[aaa]", Title: "t1", Body: "b1"},
		{To: "ExponentPushToken[bbb]", Title: "t2", Body: "b2"},
		{To: "ExponentPushToken[ccc]", Title: "t3", Body: "b3"},
	}

	tickets, err := client.Dispatch(context.Background(), messages)

	require.NoError(t, err)
	assert.Len(t, tickets, 3)
	assert.EqualValues(t, 1, atomic.LoadInt32(&requestCount), "все сообщения уходят одним запросом")
	assert.Len(t, received, 3)
}

func TestDispatch_FiltersInvalidTokens(t *testing.T) {
	var received []PushMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expoPushResponse{Data: []PushTicket{{Status: TicketStatusOK}}})
	}))
	defer server.Close()

	client := newTestPushClient(server.URL)

	tickets, err := client.Dispatch(context.Background(), []PushMessage{
		{To: "not-a-token", Title: "t", Body: "b"},
		{To: "ExponentPushToken[valid]", Title: "t", Body: "b"},
	})

	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	require.Len(t, received, 1)
	assert.Equal(t, "ExponentPushToken[valid]", received[0].To)
}

func TestDispatch_AllTokensInvalid(t *testing.T) {
	// Запрос к шлюзу не делается вовсе
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("шлюз не должен вызываться")
	}))
	defer server.Close()

	client := newTestPushClient(server.URL)

	tickets, err := client.Dispatch(context.Background(), []PushMessage{
		{To: "garbage", Title: "t", Body: "b"},
	})

	require.NoError(t, err)
	assert.Nil(t, tickets)
}

func TestDispatch_PartialFailureTickets(t *testing.T) {
	// Отказ по одному сообщению не превращается в ошибку вызова
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expoPushResponse{Data: []PushTicket{
			{Status: TicketStatusOK, ID: "ticket-1"},
			{Status: TicketStatusError, Message: "device gone", Details: &PushTicketDetails{Error: "DeviceNotRegistered"}},
		}})
	}))
	defer server.Close()

	client := newTestPushClient(server.URL)

	tickets, err := client.Dispatch(context.Background(), []PushMessage{
		{To: "ExponentPushToken[aaa]", Title: "t", Body: "b"},
		{To: "ExponentPushToken[bbb]", Title: "t", Body: "b"},
	})

	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, TicketStatusOK, tickets[0].Status)
	assert.Equal(t, TicketStatusError, tickets[1].Status)
	assert.Equal(t, "DeviceNotRegistered", tickets[1].Details.Error)
}

func TestDispatch_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestPushClient(server.URL)

	_, err := client.Dispatch(context.Background(), []PushMessage{
		{To: "ExponentPushToken[aaa]", Title: "t", Body: "b"},
	})

	assert.Error(t, err)
}
